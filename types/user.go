package types

// UserAccount is a login credential row of the users workbook.
type UserAccount struct {
	// Username is the login name. Uniqueness is checked on registration only.
	Username string `json:"username"`

	// Password is stored and compared verbatim.
	// It is never exposed in API responses.
	Password string `json:"-"`
}
