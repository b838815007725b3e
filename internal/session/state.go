// Package session holds the login state machine and the process-local
// registry of open sessions.
package session

import "errors"

// Status is the login state of a session.
type Status int

const (
	LoggedOut Status = iota
	LoggedIn
)

func (s Status) String() string {
	if s == LoggedIn {
		return "logged_in"
	}
	return "logged_out"
}

// ErrEmptyUsername is returned when logging in without a username.
var ErrEmptyUsername = errors.New("username is required")

// State is LoggedOut or LoggedIn(username). The zero value is LoggedOut.
type State struct {
	status   Status
	username string
}

func (s State) Status() Status {
	return s.status
}

func (s State) IsLoggedIn() bool {
	return s.status == LoggedIn
}

// Username is empty unless logged in.
func (s State) Username() string {
	return s.username
}

// Login moves to LoggedIn(username).
func (s State) Login(username string) (State, error) {
	if username == "" {
		return s, ErrEmptyUsername
	}
	return State{status: LoggedIn, username: username}, nil
}

// Logout moves to LoggedOut and clears the username.
func (s State) Logout() State {
	return State{}
}
