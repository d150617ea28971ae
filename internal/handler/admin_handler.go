package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/bodleian-io/bodleian/internal/domain"
	"github.com/bodleian-io/bodleian/internal/service"
)

// AdminHandler handles catalog management and reporting routes.
type AdminHandler struct {
	catalog *service.CatalogService
	users   *service.UserService
	logger  zerolog.Logger
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(catalog *service.CatalogService, users *service.UserService, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		catalog: catalog,
		users:   users,
		logger:  logger.With().Str("handler", "admin").Logger(),
	}
}

// addBookRequest is the body of POST /books.
type addBookRequest struct {
	Title         string `json:"title"`
	Author        string `json:"author"`
	ISBN          string `json:"isbn"`
	Genre         string `json:"genre"`
	PublishedDate string `json:"published_date"`
	TotalCopies   int    `json:"total_copies"`
}

// AddBook handles POST /books.
func (h *AdminHandler) AddBook(w http.ResponseWriter, r *http.Request) {
	var req addBookRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	publishedDate, err := parseDate(req.PublishedDate)
	if err != nil {
		writeBadRequest(w, "published_date must be RFC 3339 or YYYY-MM-DD")
		return
	}

	output, err := h.catalog.AddBook(r.Context(), service.AddBookInput{
		Title:         req.Title,
		Author:        req.Author,
		ISBN:          req.ISBN,
		Genre:         req.Genre,
		PublishedDate: publishedDate,
		TotalCopies:   req.TotalCopies,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, output.Book)
}

// ListBorrowers handles GET /admin/borrowers.
func (h *AdminHandler) ListBorrowers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListBorrowers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if users == nil {
		users = []*domain.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

// BookHistory handles GET /admin/books/{bookId}/history.
func (h *AdminHandler) BookHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.catalog.BookHistory(r.Context(), chi.URLParam(r, "bookId"))
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []*service.BookHistoryEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// BorrowerHistory handles GET /admin/borrowers/{borrowerId}/history.
func (h *AdminHandler) BorrowerHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.catalog.BorrowerHistory(r.Context(), chi.URLParam(r, "borrowerId"))
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []*service.BorrowerHistoryEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// parseDate accepts RFC 3339 timestamps or bare dates.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
