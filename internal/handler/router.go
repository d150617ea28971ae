package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Router assembles the HTTP API.
type Router struct {
	auth       *AuthHandler
	catalog    *CatalogHandler
	ledger     *LedgerHandler
	admin      *AdminHandler
	middleware *Middleware
	logger     zerolog.Logger
}

// RouterConfig contains configuration for the router.
type RouterConfig struct {
	AuthHandler    *AuthHandler
	CatalogHandler *CatalogHandler
	LedgerHandler  *LedgerHandler
	AdminHandler   *AdminHandler
	Middleware     *Middleware
	Logger         zerolog.Logger
}

// NewRouter creates a new Router.
func NewRouter(cfg RouterConfig) *Router {
	return &Router{
		auth:       cfg.AuthHandler,
		catalog:    cfg.CatalogHandler,
		ledger:     cfg.LedgerHandler,
		admin:      cfg.AdminHandler,
		middleware: cfg.Middleware,
		logger:     cfg.Logger.With().Str("component", "router").Logger(),
	}
}

// Handler returns the main HTTP handler.
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(rt.middleware.Instrument)

	// Public routes
	r.Get("/health", rt.handleHealth)
	r.Post("/register", rt.auth.Register)
	r.Post("/login", rt.auth.Login)
	r.Get("/books", rt.catalog.ListBooks)

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(rt.middleware.RequireSession)

		r.Post("/logout", rt.auth.Logout)
		r.Get("/borrower", rt.auth.Profile)
		r.Get("/books/{id}", rt.catalog.GetBook)

		r.Post("/borrow/{borrowerId}/{bookId}", rt.ledger.Borrow)
		r.Post("/return/{borrowerId}/{bookId}", rt.ledger.Return)
		r.Get("/borrow-list/{userId}", rt.ledger.BorrowList)

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(rt.middleware.RequireAdmin)

			r.Post("/books", rt.admin.AddBook)
			r.Get("/admin/borrowers", rt.admin.ListBorrowers)
			r.Get("/admin/books/{bookId}/history", rt.admin.BookHistory)
			r.Get("/admin/borrowers/{borrowerId}/history", rt.admin.BorrowerHistory)
		})
	})

	return r
}

// handleHealth handles health check requests.
func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}
