package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/bodleian-io/bodleian/internal/domain"
	"github.com/bodleian-io/bodleian/internal/metrics"
	"github.com/bodleian-io/bodleian/internal/service"
)

type userCtxKey struct{}

// CurrentUser returns the authenticated user stored by RequireSession,
// or nil on unauthenticated routes.
func CurrentUser(ctx context.Context) *domain.User {
	user, _ := ctx.Value(userCtxKey{}).(*domain.User)
	return user
}

// Middleware bundles the cross-cutting HTTP middleware.
type Middleware struct {
	auth       *service.AuthService
	cookieName string
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

// NewMiddleware creates the middleware bundle.
func NewMiddleware(auth *service.AuthService, cookieName string, m *metrics.Metrics, logger zerolog.Logger) *Middleware {
	return &Middleware{
		auth:       auth,
		cookieName: cookieName,
		metrics:    m,
		logger:     logger.With().Str("component", "http").Logger(),
	}
}

// RequireSession resolves the session cookie to a user and stores it in
// the request context. Requests without a valid session get 401.
func (m *Middleware) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(m.cookieName)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorBody{
				Code:    codeUnauthorized,
				Message: "authentication required",
			})
			return
		}

		user, err := m.auth.Validate(r.Context(), cookie.Value)
		if err != nil {
			writeError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), userCtxKey{}, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin rejects requests from users without the admin role.
// Must run after RequireSession.
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r.Context())
		if user == nil || !user.CanAdminister() {
			writeError(w, domain.ErrAccessDenied)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Instrument logs each request and records its latency.
func (m *Middleware) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		elapsed := time.Since(start)
		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}

		if m.metrics != nil {
			m.metrics.RequestDuration.
				WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).
				Observe(elapsed.Seconds())
		}

		m.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", elapsed).
			Str("remote", r.RemoteAddr).
			Msg("request")
	})
}
