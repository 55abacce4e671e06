package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"heimdall/api"
	"heimdall/internal/auth"
	"heimdall/models"
	"heimdall/services/accounts"
	"heimdall/services/sessions"
)

type accountService interface {
	Create(username, password string) (models.Account, error)
	Authenticate(username, password string) (models.Account, error)
	Get(id string) (models.Account, bool)
	UpdatePassword(id, newPassword string) error
}

type sessionService interface {
	Create(account models.Account, userAgent, ipAddress string) (models.Session, error)
	Revoke(token string) error
	RevokeAllForAccount(accountID, keep string) int
	Duration() time.Duration
}

var (
	_ accountService = (*accounts.Service)(nil)
	_ sessionService = (*sessions.Service)(nil)
)

// AuthHandler handles signup, login and session endpoints.
type AuthHandler struct {
	accounts     accountService
	sessions     sessionService
	cookieName   string
	secureCookie bool
	logger       zerolog.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(accountsSvc accountService, sessionsSvc sessionService, cookieName string, secureCookie bool, logger zerolog.Logger) *AuthHandler {
	if cookieName == "" {
		cookieName = api.DefaultCookieName
	}
	return &AuthHandler{
		accounts:     accountsSvc,
		sessions:     sessionsSvc,
		cookieName:   cookieName,
		secureCookie: secureCookie,
		logger:       logger,
	}
}

// Credentials is the signup and login request body.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SessionResponse is returned by signup and login.
type SessionResponse struct {
	Message   string `json:"message"`
	Token     string `json:"token"`
	Username  string `json:"username"`
	ExpiresAt string `json:"expiresAt"`
}

// Signup registers an account and logs it in.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req Credentials
	if err := decodeJSON(w, r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	account, err := h.accounts.Create(req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, accounts.ErrUsernameRequired),
			errors.Is(err, accounts.ErrPasswordRequired),
			errors.Is(err, accounts.ErrPasswordTooShort):
			writeMessage(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, accounts.ErrUsernameExists):
			writeMessage(w, http.StatusBadRequest, "Username already exists")
		default:
			h.logger.Error().Err(err).Msg("signup failed")
			writeMessage(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	h.logger.Info().Str("username", account.Username).Msg("account created")
	h.startSession(w, r, account, "User created successfully")
}

// Login authenticates a user and returns a session token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req Credentials
	if err := decodeJSON(w, r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	account, err := h.accounts.Authenticate(req.Username, req.Password)
	if err != nil {
		h.logger.Info().Str("username", req.Username).Str("ip", api.ClientIP(r)).Msg("login rejected")
		writeMessage(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	h.startSession(w, r, account, "Login successful")
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, account models.Account, msg string) {
	session, err := h.sessions.Create(account, r.Header.Get("User-Agent"), api.ClientIP(r))
	if err != nil {
		h.logger.Error().Err(err).Msg("create session")
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		MaxAge:   int(h.sessions.Duration().Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, SessionResponse{
		Message:   msg,
		Token:     session.Token,
		Username:  account.Username,
		ExpiresAt: session.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// Logout revokes the current session if any and clears the cookie. Browsers
// following a GET link are sent back to the login page.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := api.ExtractToken(r, h.cookieName); token != "" {
		if err := h.sessions.Revoke(token); err != nil && !errors.Is(err, sessions.ErrSessionNotFound) {
			h.logger.Warn().Err(err).Msg("revoke session")
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	if r.Method == http.MethodGet {
		http.Redirect(w, r, "/login.html", http.StatusFound)
		return
	}
	writeMessage(w, http.StatusOK, "Logged out")
}

// CurrentUser returns the username of the session. Runs behind the auth middleware.
func (h *AuthHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	username := auth.GetUsername(r)
	if username == "" {
		writeMessage(w, http.StatusUnauthorized, "Not logged in")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"username": username})
}

// ChangePasswordRequest represents password change request.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// ChangePassword changes the current account's password and signs out its
// other sessions.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.GetSession(r)
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Not logged in")
		return
	}

	var req ChangePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	account, ok := h.accounts.Get(session.AccountID)
	if !ok {
		writeMessage(w, http.StatusNotFound, "Account not found")
		return
	}
	if _, err := h.accounts.Authenticate(account.Username, req.CurrentPassword); err != nil {
		writeMessage(w, http.StatusUnauthorized, "Current password is incorrect")
		return
	}

	if err := h.accounts.UpdatePassword(account.ID, req.NewPassword); err != nil {
		if errors.Is(err, accounts.ErrPasswordRequired) || errors.Is(err, accounts.ErrPasswordTooShort) {
			writeMessage(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error().Err(err).Msg("update password")
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	revoked := h.sessions.RevokeAllForAccount(account.ID, session.Token)
	h.logger.Info().Str("username", account.Username).Int("revoked_sessions", revoked).Msg("password changed")
	writeMessage(w, http.StatusOK, "Password changed")
}
