package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/andreasstove999/ecommerce-system/services/pos-register-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/services/pos-register-go/internal/clients"
)

// Transactions is the backend transaction history and its pending-payment
// transitions.
type Transactions interface {
	ListTransactions(ctx context.Context, f clients.TransactionFilter) (clients.TransactionPage, error)
	Confirm(ctx context.Context, id int64) (checkout.Transaction, error)
	Cancel(ctx context.Context, id int64) (checkout.Transaction, error)
}

const dateLayout = "2006-01-02"

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := clients.TransactionFilter{
		Status:    q.Get("status"),
		Search:    q.Get("search"),
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
	}

	for name, v := range map[string]string{"start_date": f.StartDate, "end_date": f.EndDate} {
		if v == "" {
			continue
		}
		if _, err := time.Parse(dateLayout, v); err != nil {
			writeBadRequest(w, r, name+" must be YYYY-MM-DD")
			return
		}
	}

	var ok bool
	if f.PerPage, ok = intQuery(w, r, "per_page"); !ok {
		return
	}
	if f.Page, ok = intQuery(w, r, "page"); !ok {
		return
	}

	page, err := h.transactions.ListTransactions(r.Context(), f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) ConfirmTransaction(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.transactions.Confirm)
}

func (h *Handler) CancelTransaction(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.transactions.Cancel)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn func(context.Context, int64) (checkout.Transaction, error)) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeBadRequest(w, r, "invalid transaction id")
		return
	}
	tx, err := fn(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func intQuery(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		writeBadRequest(w, r, name+" must be a non-negative integer")
		return 0, false
	}
	return n, true
}
