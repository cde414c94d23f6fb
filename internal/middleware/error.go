package middleware

import (
	"encoding/json"
	"net/http"
)

type ErrorResponse struct {
	Error         string `json:"error"`
	Code          string `json:"code,omitempty"`
	Field         string `json:"field,omitempty"`
	Available     *int   `json:"available,omitempty"`
	Shortfall     string `json:"shortfall,omitempty"`
	CorrelationID string `json:"correlationId,omitempty"`
}

func WriteError(w http.ResponseWriter, r *http.Request, status int, resp ErrorResponse) {
	resp.CorrelationID = GetCorrelationID(r.Context())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
