package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/cicap/personnel/internal/mq"
	"github.com/cicap/personnel/types"
)

// UserRepository defines persistence operations for user accounts.
type UserRepository interface {
	Load(ctx context.Context) ([]types.UserAccount, error)
	Save(ctx context.Context, accounts []types.UserAccount) error
}

// EventPublisher is the subset of the broker used to announce changes.
type EventPublisher interface {
	PublishEvent(ctx context.Context, channel string, ev mq.Event) (string, error)
}

// UserService encapsulates login and sign-up.
type UserService struct {
	repo   UserRepository
	log    *slog.Logger
	mu     sync.RWMutex
	events EventPublisher
	topic  string
}

func NewUserService(repo UserRepository, log *slog.Logger) *UserService {
	return &UserService{repo: repo, log: log}
}

// SetEvents enables change events on channel.
func (s *UserService) SetEvents(events EventPublisher, channel string) {
	s.events = events
	s.topic = channel
}

// Authenticate checks the credentials and returns the username on success.
// Passwords are compared verbatim after trimming surrounding whitespace from
// both sides. If several rows share the username, the first one is used.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (string, error) {
	s.mu.RLock()
	accounts, err := s.repo.Load(ctx)
	s.mu.RUnlock()
	if err != nil {
		return "", err
	}

	for _, account := range accounts {
		if account.Username != username {
			continue
		}
		if strings.TrimSpace(account.Password) != strings.TrimSpace(password) {
			return "", ErrWrongPassword
		}
		return account.Username, nil
	}
	return "", ErrUserNotFound
}

// Register appends a new account and persists the users workbook.
func (s *UserService) Register(ctx context.Context, username, password, confirm string) error {
	if username == "" || password == "" {
		return fmt.Errorf("%w: username and password are required", ErrValidation)
	}
	if password != confirm {
		return fmt.Errorf("%w: passwords do not match", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	accounts, err := s.repo.Load(ctx)
	if err != nil {
		return err
	}
	for _, account := range accounts {
		if account.Username == username {
			return ErrDuplicateUser
		}
	}

	accounts = append(accounts, types.UserAccount{Username: username, Password: password})
	if err := s.repo.Save(ctx, accounts); err != nil {
		return err
	}

	s.log.InfoContext(ctx, "user registered", "username", username)
	publish(ctx, s.log, s.events, s.topic, mq.Event{Type: mq.EventUserRegistered, Actor: username})
	return nil
}

// List returns every username in file order.
func (s *UserService) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	accounts, err := s.repo.Load(ctx)
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(accounts))
	for _, account := range accounts {
		names = append(names, account.Username)
	}
	return names, nil
}

// publish sends ev when a broker is configured. Failures are logged only: the
// change is already saved.
func publish(ctx context.Context, log *slog.Logger, events EventPublisher, channel string, ev mq.Event) {
	if events == nil {
		return
	}
	if _, err := events.PublishEvent(ctx, channel, ev); err != nil {
		log.WarnContext(ctx, "publish event failed", "type", ev.Type, "error", err)
	}
}
