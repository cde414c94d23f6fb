package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/services/pos-register-go/internal/register"
)

// Sessions is the part of the register registry the handlers need.
type Sessions interface {
	Open(ctx context.Context) (*register.Session, error)
	Get(id string) (*register.Session, error)
	Close(id string) error
}

type Handler struct {
	sessions     Sessions
	transactions Transactions
	logger       *zap.Logger
}

func NewHandler(sessions Sessions, transactions Transactions, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{sessions: sessions, transactions: transactions, logger: logger}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Open(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.View())
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.View())
}

func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Close(chi.URLParam(r, "sessionId")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RefreshSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.respondView(w, r)(s.Refresh(r.Context()))
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	lowStock := false
	if v := r.URL.Query().Get("lowStock"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeBadRequest(w, r, "lowStock must be a boolean")
			return
		}
		lowStock = b
	}

	products := s.Products(r.URL.Query().Get("search"), lowStock)
	writeJSON(w, http.StatusOK, map[string]any{"products": nonNil(products)})
}

type addItemRequest struct {
	ProductID int64 `json:"productId"`
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductID <= 0 {
		writeBadRequest(w, r, "productId is required")
		return
	}
	h.respondView(w, r)(s.AddItem(req.ProductID))
}

type updateQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

func (h *Handler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}
	var req updateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Quantity == nil {
		writeBadRequest(w, r, "quantity is required")
		return
	}
	h.respondView(w, r)(s.UpdateQuantity(productID, *req.Quantity))
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}
	h.respondView(w, r)(s.RemoveItem(productID))
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.respondView(w, r)(s.ClearCart())
}

func (h *Handler) UpdateDraft(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var in register.DraftInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeBadRequest(w, r, "invalid draft")
		return
	}
	h.respondView(w, r)(s.SetDraft(in))
}

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	receipt, err := s.Checkout(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*register.Session, bool) {
	s, err := h.sessions.Get(chi.URLParam(r, "sessionId"))
	if err != nil {
		h.writeError(w, r, err)
		return nil, false
	}
	return s, true
}

func (h *Handler) respondView(w http.ResponseWriter, r *http.Request) func(register.View, error) {
	return func(v register.View, err error) {
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func productIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "productId"), 10, 64)
	if err != nil || id <= 0 {
		writeBadRequest(w, r, "invalid product id")
		return 0, false
	}
	return id, true
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
