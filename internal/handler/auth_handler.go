package handler

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/bodleian-io/bodleian/internal/service"
)

// AuthHandler handles registration, login, logout and the profile route.
type AuthHandler struct {
	users      *service.UserService
	auth       *service.AuthService
	cookieName string
	sessionTTL time.Duration
	logger     zerolog.Logger
}

// AuthConfig contains configuration for the auth handler.
type AuthConfig struct {
	UserService *service.UserService
	AuthService *service.AuthService
	CookieName  string
	SessionTTL  time.Duration
	Logger      zerolog.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(cfg AuthConfig) *AuthHandler {
	return &AuthHandler{
		users:      cfg.UserService,
		auth:       cfg.AuthService,
		cookieName: cfg.CookieName,
		sessionTTL: cfg.SessionTTL,
		logger:     cfg.Logger.With().Str("handler", "auth").Logger(),
	}
}

// =============================================================================
// Request Structs
// =============================================================================

// registerRequest is the body of POST /register.
type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// loginRequest is the body of POST /login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// =============================================================================
// Handlers
// =============================================================================

// Register handles POST /register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	output, err := h.users.Register(r.Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, output.User)
}

// Login handles POST /login. A successful login sets the session cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	output, err := h.auth.Login(r.Context(), service.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    output.Session.Token,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(h.sessionTTL / time.Second),
	})

	writeJSON(w, http.StatusOK, output.User)
}

// Logout handles POST /logout. The session is destroyed and the cookie
// cleared; logging out twice is not an error.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(h.cookieName)
	if err == nil {
		if err := h.auth.Logout(r.Context(), cookie.Value); err != nil {
			writeError(w, err)
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})

	w.WriteHeader(http.StatusNoContent)
}

// Profile handles GET /borrower, returning the logged-in user.
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, CurrentUser(r.Context()))
}
