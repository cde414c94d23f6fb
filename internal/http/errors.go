package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"

	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/services/pos-register-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/services/pos-register-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/services/pos-register-go/internal/clients"
	"github.com/andreasstove999/ecommerce-system/services/pos-register-go/internal/middleware"
	"github.com/andreasstove999/ecommerce-system/services/pos-register-go/internal/payment"
	"github.com/andreasstove999/ecommerce-system/services/pos-register-go/internal/register"
)

func writeBadRequest(w http.ResponseWriter, r *http.Request, msg string) {
	middleware.WriteError(w, r, http.StatusBadRequest, middleware.ErrorResponse{
		Error: msg,
		Code:  "bad_request",
	})
}

// writeError maps domain and upstream errors onto HTTP statuses.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := h.errorResponse(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("correlation_id", middleware.GetCorrelationID(r.Context())),
			zap.Int("status", status),
			zap.Error(err))
	}
	middleware.WriteError(w, r, status, resp)
}

func (h *Handler) errorResponse(err error) (int, middleware.ErrorResponse) {
	var (
		stockErr   *cart.InsufficientStockError
		paymentErr *checkout.InsufficientPaymentError
		validErr   *checkout.ValidationError
		transient  *checkout.TransientError
		apiErr     *clients.APIError
		netErr     net.Error
	)

	switch {
	case errors.Is(err, register.ErrSessionNotFound):
		return http.StatusNotFound, middleware.ErrorResponse{Error: err.Error(), Code: "session_not_found"}
	case errors.Is(err, register.ErrProductNotFound):
		return http.StatusNotFound, middleware.ErrorResponse{Error: err.Error(), Code: "product_not_found"}

	case errors.Is(err, cart.ErrOutOfStock):
		return http.StatusConflict, middleware.ErrorResponse{Error: err.Error(), Code: "out_of_stock"}
	case errors.As(err, &stockErr):
		available := stockErr.Available
		return http.StatusConflict, middleware.ErrorResponse{Error: err.Error(), Code: "insufficient_stock", Available: &available}
	case errors.Is(err, checkout.ErrSubmissionInFlight):
		return http.StatusConflict, middleware.ErrorResponse{Error: err.Error(), Code: "submission_in_flight"}
	case errors.Is(err, register.ErrCheckoutInProgress):
		return http.StatusConflict, middleware.ErrorResponse{Error: err.Error(), Code: "checkout_in_progress"}

	case errors.Is(err, checkout.ErrEmptyCart):
		return http.StatusUnprocessableEntity, middleware.ErrorResponse{Error: err.Error(), Code: "empty_cart"}
	case errors.Is(err, checkout.ErrMissingPayment):
		return http.StatusUnprocessableEntity, middleware.ErrorResponse{Error: err.Error(), Code: "missing_payment"}
	case errors.As(err, &paymentErr):
		return http.StatusUnprocessableEntity, middleware.ErrorResponse{
			Error:     err.Error(),
			Code:      "insufficient_payment",
			Shortfall: paymentErr.Shortfall.StringFixed(2),
		}
	case errors.Is(err, payment.ErrUnknownPaymentMethod):
		return http.StatusUnprocessableEntity, middleware.ErrorResponse{Error: err.Error(), Code: "unknown_payment_method"}
	case errors.As(err, &validErr):
		return http.StatusUnprocessableEntity, middleware.ErrorResponse{Error: validErr.Error(), Code: "rejected", Field: validErr.Field}

	case errors.Is(err, clients.ErrUnauthorized):
		return http.StatusUnauthorized, middleware.ErrorResponse{Error: "upstream rejected credentials", Code: "unauthorized"}
	case errors.Is(err, clients.ErrForbidden):
		return http.StatusForbidden, middleware.ErrorResponse{Error: "upstream denied access", Code: "forbidden"}
	case errors.As(err, &transient):
		return http.StatusServiceUnavailable, middleware.ErrorResponse{Error: transient.Error(), Code: "upstream_unavailable"}
	case errors.As(err, &apiErr):
		if apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			return apiErr.StatusCode, middleware.ErrorResponse{Error: apiErr.Error(), Code: "upstream_rejected", Field: apiErr.Field}
		}
		return http.StatusBadGateway, middleware.ErrorResponse{Error: apiErr.Error(), Code: "upstream_error"}
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || errors.As(err, &netErr):
		return http.StatusServiceUnavailable, middleware.ErrorResponse{Error: "upstream unavailable", Code: "upstream_unavailable"}
	}

	return http.StatusInternalServerError, middleware.ErrorResponse{Error: "internal error", Code: "internal"}
}
