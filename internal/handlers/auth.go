package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/cicap/personnel/internal/services"
	"github.com/cicap/personnel/internal/session"
	"github.com/go-chi/chi/v5"
)

// AuthHandler provides login, sign-up and logout endpoints.
type AuthHandler struct {
	userService *services.UserService
	sessions    *session.Manager
	log         *slog.Logger
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(userService *services.UserService, sessions *session.Manager, log *slog.Logger) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		sessions:    sessions,
		log:         log,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, userService *services.UserService, sessions *session.Manager, log *slog.Logger) {
	handler := NewAuthHandler(userService, sessions, log)
	requireSession := RequireSession(sessions)

	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
	r.With(requireSession).Post("/logout", handler.Logout)
	r.With(requireSession).Get("/me", handler.Me)
}

// Register creates a new account. It does not log the user in.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	err := h.userService.Register(r.Context(), req.Username, req.Password, req.ConfirmPassword)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrValidation):
		writeError(w, http.StatusBadRequest, "incomplete data or passwords do not match")
		return
	case errors.Is(err, services.ErrDuplicateUser):
		writeError(w, http.StatusConflict, "user already exists")
		return
	default:
		h.log.ErrorContext(r.Context(), "register failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	writeJSON(w, http.StatusCreated, UserResponse{Username: req.Username})
}

// Login verifies credentials and opens a session.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	username, err := h.userService.Authenticate(r.Context(), req.Username, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrUserNotFound):
		writeError(w, http.StatusUnauthorized, "user not found")
		return
	case errors.Is(err, services.ErrWrongPassword):
		writeError(w, http.StatusUnauthorized, "wrong password")
		return
	default:
		h.log.ErrorContext(r.Context(), "authenticate failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to authenticate")
		return
	}

	token, err := h.sessions.Open(username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{Token: token, Username: username})
}

// Logout closes the caller's session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if _, err := h.sessions.Close(tokenFromContext(r.Context())); err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the logged-in username.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	username, err := usernameFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, UserResponse{Username: username})
}

type RegisterRequest struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

type UserResponse struct {
	Username string `json:"username"`
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
