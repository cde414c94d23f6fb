package clients

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/andreasstove999/ecommerce-system/services/pos-register-go/internal/checkout"
)

type TransactionClient struct{ c *Client }

func NewTransactionClient(c *Client) *TransactionClient { return &TransactionClient{c: c} }

// SubmitOrder posts a checkout. Backend rejections become
// *checkout.ValidationError; 5xx answers and network errors become
// *checkout.TransientError.
func (tc *TransactionClient) SubmitOrder(ctx context.Context, req checkout.OrderRequest) (checkout.Transaction, error) {
	var tx checkout.Transaction
	err := tc.c.DoJSON(ctx, http.MethodPost, "/transactions", "", req, &tx)
	if err == nil {
		return tx, nil
	}

	if errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrForbidden) {
		return checkout.Transaction{}, err
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode >= http.StatusInternalServerError {
			return checkout.Transaction{}, &checkout.TransientError{Err: err}
		}
		msg := apiErr.FieldError
		if msg == "" {
			msg = apiErr.Message
		}
		if msg == "" {
			msg = checkout.DefaultRejectionMessage
		}
		return checkout.Transaction{}, &checkout.ValidationError{Field: apiErr.Field, Message: msg}
	}

	return checkout.Transaction{}, &checkout.TransientError{Err: err}
}

// TransactionFilter narrows GET /transactions. Dates are YYYY-MM-DD.
type TransactionFilter struct {
	Status    string
	Search    string
	StartDate string
	EndDate   string
	PerPage   int
	Page      int
}

func (f TransactionFilter) query() string {
	q := url.Values{}
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set("status", f.Status)
	set("search", f.Search)
	set("start_date", f.StartDate)
	set("end_date", f.EndDate)
	if f.PerPage > 0 {
		q.Set("per_page", strconv.Itoa(f.PerPage))
	}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	return q.Encode()
}

type TransactionPage struct {
	Transactions []checkout.Transaction `json:"transactions"`
	CurrentPage  int                    `json:"currentPage"`
	LastPage     int                    `json:"lastPage"`
	Total        int                    `json:"total"`
}

func (tc *TransactionClient) ListTransactions(ctx context.Context, f TransactionFilter) (TransactionPage, error) {
	var p struct {
		Data        []checkout.Transaction `json:"data"`
		CurrentPage int                    `json:"current_page"`
		LastPage    int                    `json:"last_page"`
		Total       int                    `json:"total"`
	}
	if err := tc.c.DoJSON(ctx, http.MethodGet, "/transactions", f.query(), nil, &p); err != nil {
		return TransactionPage{}, err
	}
	txs := p.Data
	if txs == nil {
		txs = []checkout.Transaction{}
	}
	return TransactionPage{
		Transactions: txs,
		CurrentPage:  p.CurrentPage,
		LastPage:     p.LastPage,
		Total:        p.Total,
	}, nil
}

// Confirm marks a pending non-cash payment as received.
func (tc *TransactionClient) Confirm(ctx context.Context, id int64) (checkout.Transaction, error) {
	return tc.transition(ctx, id, "confirm")
}

// Cancel voids a pending transaction; the backend restores its stock.
func (tc *TransactionClient) Cancel(ctx context.Context, id int64) (checkout.Transaction, error) {
	return tc.transition(ctx, id, "cancel")
}

func (tc *TransactionClient) transition(ctx context.Context, id int64, action string) (checkout.Transaction, error) {
	var tx checkout.Transaction
	path := "/transactions/" + strconv.FormatInt(id, 10) + "/" + action
	err := tc.c.DoJSON(ctx, http.MethodPost, path, "", nil, &tx)
	if errors.Is(err, ErrNoData) {
		return checkout.Transaction{ID: id}, nil
	}
	if err != nil {
		return checkout.Transaction{}, err
	}
	return tx, nil
}
