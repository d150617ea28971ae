package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/bodleian-io/bodleian/internal/domain"
	"github.com/bodleian-io/bodleian/internal/service"
)

// LedgerHandler handles borrow and return routes.
type LedgerHandler struct {
	ledger *service.LedgerService
	logger zerolog.Logger
}

// NewLedgerHandler creates a new ledger handler.
func NewLedgerHandler(ledger *service.LedgerService, logger zerolog.Logger) *LedgerHandler {
	return &LedgerHandler{
		ledger: ledger,
		logger: logger.With().Str("handler", "ledger").Logger(),
	}
}

// borrowResponse is the body of a successful borrow.
type borrowResponse struct {
	Transaction *domain.Transaction `json:"transaction"`
}

// returnResponse is the body of a successful return. Fine is omitted
// for on-time returns.
type returnResponse struct {
	Transaction *domain.Transaction `json:"transaction"`
	Fine        int64               `json:"fine,omitempty"`
}

// Borrow handles POST /borrow/{borrowerId}/{bookId}.
func (h *LedgerHandler) Borrow(w http.ResponseWriter, r *http.Request) {
	borrowerID := chi.URLParam(r, "borrowerId")
	if !h.authorize(w, r, borrowerID) {
		return
	}

	output, err := h.ledger.Borrow(r.Context(), service.BorrowInput{
		UserID: borrowerID,
		BookID: chi.URLParam(r, "bookId"),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, borrowResponse{Transaction: output.Transaction})
}

// Return handles POST /return/{borrowerId}/{bookId}.
func (h *LedgerHandler) Return(w http.ResponseWriter, r *http.Request) {
	borrowerID := chi.URLParam(r, "borrowerId")
	if !h.authorize(w, r, borrowerID) {
		return
	}

	output, err := h.ledger.Return(r.Context(), service.ReturnInput{
		UserID: borrowerID,
		BookID: chi.URLParam(r, "bookId"),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, returnResponse{
		Transaction: output.Transaction,
		Fine:        output.Fine,
	})
}

// BorrowList handles GET /borrow-list/{userId}.
func (h *LedgerHandler) BorrowList(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if !h.authorize(w, r, userID) {
		return
	}

	entries, err := h.ledger.BorrowList(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

// authorize allows a user to act only on their own ledger; admins may act
// on anyone's.
func (h *LedgerHandler) authorize(w http.ResponseWriter, r *http.Request, ownerID string) bool {
	user := CurrentUser(r.Context())
	if user == nil || (user.ID != ownerID && !user.CanAdminister()) {
		writeError(w, domain.ErrAccessDenied)
		return false
	}
	return true
}
