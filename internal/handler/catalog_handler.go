package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/bodleian-io/bodleian/internal/domain"
	"github.com/bodleian-io/bodleian/internal/service"
)

// CatalogHandler handles public catalog routes.
type CatalogHandler struct {
	catalog *service.CatalogService
	logger  zerolog.Logger
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(catalog *service.CatalogService, logger zerolog.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalog: catalog,
		logger:  logger.With().Str("handler", "catalog").Logger(),
	}
}

// ListBooks handles GET /books.
func (h *CatalogHandler) ListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.catalog.ListBooks(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if books == nil {
		books = []*domain.Book{}
	}
	writeJSON(w, http.StatusOK, books)
}

// GetBook handles GET /books/{id}.
func (h *CatalogHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	book, err := h.catalog.GetBook(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}
