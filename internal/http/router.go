package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/services/pos-register-go/internal/middleware"
)

func NewRouter(h *Handler, logger *zap.Logger, allowOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.CorrelationID)
	r.Use(middleware.Tracing("pos-register/http"))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.CORS(allowOrigins))

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RequireBearer)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", h.OpenSession)
			r.Route("/{sessionId}", func(r chi.Router) {
				r.Get("/", h.GetSession)
				r.Delete("/", h.CloseSession)
				r.Post("/refresh", h.RefreshSession)
				r.Get("/products", h.ListProducts)
				r.Post("/items", h.AddItem)
				r.Delete("/items", h.ClearCart)
				r.Put("/items/{productId}", h.UpdateQuantity)
				r.Delete("/items/{productId}", h.RemoveItem)
				r.Put("/draft", h.UpdateDraft)
				r.Post("/checkout", h.Checkout)
			})
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", h.ListTransactions)
			r.Post("/{id}/confirm", h.ConfirmTransaction)
			r.Post("/{id}/cancel", h.CancelTransaction)
		})
	})

	return r
}
