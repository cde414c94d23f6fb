package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/services/pos-register-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/services/pos-register-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/services/pos-register-go/internal/clients"
	"github.com/andreasstove999/ecommerce-system/services/pos-register-go/internal/guard"
	"github.com/andreasstove999/ecommerce-system/services/pos-register-go/internal/middleware"
	"github.com/andreasstove999/ecommerce-system/services/pos-register-go/internal/register"
)

type fakeCatalog struct {
	mu        sync.Mutex
	products  []catalog.Product
	methods   []catalog.PaymentMethod
	lastToken string
}

func (f *fakeCatalog) ListProducts(ctx context.Context, search string) ([]catalog.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastToken = middleware.GetBearerToken(ctx)
	return f.products, nil
}

func (f *fakeCatalog) ListPaymentMethods(ctx context.Context) ([]catalog.PaymentMethod, error) {
	return f.methods, nil
}

type fakeOrders struct {
	SubmitFunc func(ctx context.Context, req checkout.OrderRequest) (checkout.Transaction, error)
}

func (f *fakeOrders) SubmitOrder(ctx context.Context, req checkout.OrderRequest) (checkout.Transaction, error) {
	if f.SubmitFunc != nil {
		return f.SubmitFunc(ctx, req)
	}
	return checkout.Transaction{
		ID:              7,
		TransactionCode: "TRX-7",
		CustomerName:    req.CustomerName,
		TotalAmount:     decimal.NewFromInt(10000),
		PaymentAmount:   req.PaymentAmount,
		ChangeAmount:    req.PaymentAmount.Sub(decimal.NewFromInt(10000)),
	}, nil
}

type fakeTransactions struct {
	lastFilter clients.TransactionFilter
	confirmErr error
	canceled   []int64
}

func (f *fakeTransactions) ListTransactions(ctx context.Context, flt clients.TransactionFilter) (clients.TransactionPage, error) {
	f.lastFilter = flt
	return clients.TransactionPage{
		Transactions: []checkout.Transaction{{ID: 1, TransactionCode: "TRX-1", Status: "completed"}},
		CurrentPage:  1,
		LastPage:     1,
		Total:        1,
	}, nil
}

func (f *fakeTransactions) Confirm(ctx context.Context, id int64) (checkout.Transaction, error) {
	if f.confirmErr != nil {
		return checkout.Transaction{}, f.confirmErr
	}
	return checkout.Transaction{ID: id, Status: "completed"}, nil
}

func (f *fakeTransactions) Cancel(ctx context.Context, id int64) (checkout.Transaction, error) {
	f.canceled = append(f.canceled, id)
	return checkout.Transaction{ID: id, Status: "cancelled"}, nil
}

type testServer struct {
	catalog      *fakeCatalog
	orders       *fakeOrders
	transactions *fakeTransactions
	router       http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		catalog: &fakeCatalog{
			products: []catalog.Product{
				{ID: 1, Name: "Kopi", SKU: "K1", Price: decimal.NewFromInt(10000), Stock: 2, MinStock: 5},
				{ID: 2, Name: "Roti", SKU: "R1", Price: decimal.NewFromInt(5000), Stock: 0},
			},
			methods: []catalog.PaymentMethod{
				{Code: "cash", Name: "Tunai", Type: catalog.MethodCash},
				{Code: "qris", Name: "QRIS", Type: catalog.MethodNonCash},
			},
		},
		orders:       &fakeOrders{},
		transactions: &fakeTransactions{},
	}

	reg := register.NewRegistry(register.Deps{
		Products:      ts.catalog,
		Methods:       ts.catalog,
		Checkout:      checkout.NewOrchestrator(ts.orders, guard.NewMemoryGuard(), nil),
		DefaultMethod: "cash",
	})
	h := NewHandler(reg, ts.transactions, zap.NewNop())
	ts.router = NewRouter(h, zap.NewNop(), []string{"http://pos.local"})
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer tok-1")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) open(t *testing.T) string {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/sessions", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var v register.View
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	require.NotEmpty(t, v.SessionID)
	return v.SessionID
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) middleware.ErrorResponse {
	t.Helper()
	var resp middleware.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", strings.TrimSpace(rec.Body.String()))
}

func TestAPIRequiresBearer(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/sessions", nil)
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decodeError(t, rec).Code)
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/sessions", nil)
	req.Header.Set("Origin", "http://pos.local")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://pos.local", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestOpenSessionForwardsToken(t *testing.T) {
	ts := newTestServer(t)
	id := ts.open(t)

	assert.Equal(t, "tok-1", ts.catalog.lastToken)

	rec := ts.do(t, http.MethodGet, "/api/sessions/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var v register.View
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	assert.Equal(t, "cash", v.Draft.PaymentMethodCode)
	assert.True(t, v.RequiresTender)
}

func TestUnknownSession(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/sessions/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "session_not_found", decodeError(t, rec).Code)

	rec = ts.do(t, http.MethodDelete, "/api/sessions/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCartErrors(t *testing.T) {
	ts := newTestServer(t)
	id := ts.open(t)

	tests := map[string]struct {
		method     string
		path       string
		body       string
		wantStatus int
		wantCode   string
	}{
		"unknown product":   {http.MethodPost, "/items", `{"productId":99}`, http.StatusNotFound, "product_not_found"},
		"out of stock":      {http.MethodPost, "/items", `{"productId":2}`, http.StatusConflict, "out_of_stock"},
		"missing productId": {http.MethodPost, "/items", `{}`, http.StatusBadRequest, "bad_request"},
		"bad product id":    {http.MethodPut, "/items/abc", `{"quantity":1}`, http.StatusBadRequest, "bad_request"},
		"missing quantity":  {http.MethodPut, "/items/1", `{}`, http.StatusBadRequest, "bad_request"},
		"unknown method":    {http.MethodPut, "/draft", `{"paymentMethodCode":"crypto"}`, http.StatusUnprocessableEntity, "unknown_payment_method"},
		"checkout empty":    {http.MethodPost, "/checkout", "", http.StatusUnprocessableEntity, "empty_cart"},
		"bad lowStock":      {http.MethodGet, "/products?lowStock=maybe", "", http.StatusBadRequest, "bad_request"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			rec := ts.do(t, tc.method, "/api/sessions/"+id+tc.path, tc.body)
			assert.Equal(t, tc.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, tc.wantCode, decodeError(t, rec).Code)
		})
	}
}

func TestInsufficientStockReportsAvailable(t *testing.T) {
	ts := newTestServer(t)
	id := ts.open(t)

	rec := ts.do(t, http.MethodPost, "/api/sessions/"+id+"/items", `{"productId":1}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodPut, "/api/sessions/"+id+"/items/1", `{"quantity":5}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "insufficient_stock", resp.Code)
	require.NotNil(t, resp.Available)
	assert.Equal(t, 2, *resp.Available)
}

func TestProductsLowStock(t *testing.T) {
	ts := newTestServer(t)
	id := ts.open(t)

	rec := ts.do(t, http.MethodGet, "/api/sessions/"+id+"/products?lowStock=true&search=kop", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Products []catalog.Product `json:"products"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Products, 1)
	assert.Equal(t, "Kopi", body.Products[0].Name)
}

func TestCheckoutFlow(t *testing.T) {
	ts := newTestServer(t)
	id := ts.open(t)
	base := "/api/sessions/" + id

	rec := ts.do(t, http.MethodPost, base+"/items", `{"productId":1}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodPut, base+"/draft", `{"customerName":"Ani","tenderedAmount":"8000"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var v register.View
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	assert.True(t, v.Change.Equal(decimal.NewFromInt(-2000)), "change %s", v.Change)

	rec = ts.do(t, http.MethodPost, base+"/checkout", "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "insufficient_payment", resp.Code)
	assert.Equal(t, "2000.00", resp.Shortfall)

	rec = ts.do(t, http.MethodPut, base+"/draft", `{"tenderedAmount":20000}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodPost, base+"/checkout", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var receipt checkout.Receipt
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&receipt))
	assert.Equal(t, "TRX-7", receipt.TransactionCode)
	assert.Equal(t, "Ani", receipt.CustomerName)
	assert.Equal(t, "N/A", receipt.CashierName)
	assert.True(t, receipt.Change.Equal(decimal.NewFromInt(10000)))

	rec = ts.do(t, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, rec.Code)
	v = register.View{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	assert.Empty(t, v.Lines)
	assert.Equal(t, "Guest", v.Draft.CustomerName)
}

func TestCheckoutUpstreamFailures(t *testing.T) {
	tests := map[string]struct {
		err        error
		wantStatus int
		wantCode   string
		wantField  string
	}{
		"rejected with field": {
			err:        &checkout.ValidationError{Field: "items.0.quantity", Message: "Stok Kopi tidak mencukupi"},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "rejected",
			wantField:  "items.0.quantity",
		},
		"transient": {
			err:        &checkout.TransientError{Err: context.DeadlineExceeded},
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "upstream_unavailable",
		},
		"unauthorized": {
			err:        fmt.Errorf("transactions: %w", clients.ErrUnauthorized),
			wantStatus: http.StatusUnauthorized,
			wantCode:   "unauthorized",
		},
		"unexpected": {
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "internal",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.orders.SubmitFunc = func(ctx context.Context, req checkout.OrderRequest) (checkout.Transaction, error) {
				return checkout.Transaction{}, tc.err
			}
			id := ts.open(t)
			base := "/api/sessions/" + id

			require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, base+"/items", `{"productId":1}`).Code)
			require.Equal(t, http.StatusOK, ts.do(t, http.MethodPut, base+"/draft", `{"paymentMethodCode":"qris"}`).Code)

			rec := ts.do(t, http.MethodPost, base+"/checkout", "")
			assert.Equal(t, tc.wantStatus, rec.Code, rec.Body.String())
			resp := decodeError(t, rec)
			assert.Equal(t, tc.wantCode, resp.Code)
			assert.Equal(t, tc.wantField, resp.Field)

			rec = ts.do(t, http.MethodGet, base, "")
			var v register.View
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
			assert.Len(t, v.Lines, 1)
		})
	}
}

func TestRemoveAndClearItems(t *testing.T) {
	ts := newTestServer(t)
	id := ts.open(t)
	base := "/api/sessions/" + id

	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, base+"/items", `{"productId":1}`).Code)

	rec := ts.do(t, http.MethodDelete, base+"/items/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var v register.View
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	assert.Empty(t, v.Lines)

	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, base+"/items", `{"productId":1}`).Code)
	rec = ts.do(t, http.MethodDelete, base+"/items", "")
	require.Equal(t, http.StatusOK, rec.Code)
	v = register.View{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	assert.Empty(t, v.Lines)

	assert.Equal(t, http.StatusNoContent, ts.do(t, http.MethodDelete, base, "").Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, base, "").Code)
}

func TestListTransactions(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/transactions?status=pending&search=TRX&start_date=2024-05-01&end_date=2024-05-31&per_page=20", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, clients.TransactionFilter{
		Status:    "pending",
		Search:    "TRX",
		StartDate: "2024-05-01",
		EndDate:   "2024-05-31",
		PerPage:   20,
	}, ts.transactions.lastFilter)

	var page clients.TransactionPage
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&page))
	require.Len(t, page.Transactions, 1)
	assert.Equal(t, "TRX-1", page.Transactions[0].TransactionCode)
}

func TestListTransactionsBadQuery(t *testing.T) {
	ts := newTestServer(t)

	for _, q := range []string{"start_date=01-05-2024", "end_date=yesterday", "per_page=-1", "page=x"} {
		rec := ts.do(t, http.MethodGet, "/api/transactions?"+q, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestTransactionTransitions(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/transactions/12/cancel", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int64{12}, ts.transactions.canceled)

	rec = ts.do(t, http.MethodPost, "/api/transactions/abc/confirm", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	ts.transactions.confirmErr = &clients.APIError{Service: "transactions", StatusCode: http.StatusNotFound, Message: "Transaction not found"}
	rec = ts.do(t, http.MethodPost, "/api/transactions/12/confirm", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "upstream_rejected", decodeError(t, rec).Code)

	ts.transactions.confirmErr = &clients.APIError{Service: "transactions", StatusCode: http.StatusInternalServerError}
	rec = ts.do(t, http.MethodPost, "/api/transactions/12/confirm", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestCheckoutForwardsTraceToBackend(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	var (
		mu          sync.Mutex
		traceparent string
	)
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		traceparent = r.Header.Get("traceparent")
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"success":true,"data":{"id":3,"transaction_code":"TRX-3","total_amount":"10000","payment_amount":"10000"}}`))
	}))
	t.Cleanup(backend.Close)

	ts := newTestServer(t)
	upstream := clients.NewClient("pos-backend", backend.URL+"/api/v1", backend.Client())
	reg := register.NewRegistry(register.Deps{
		Products:      ts.catalog,
		Methods:       ts.catalog,
		Checkout:      checkout.NewOrchestrator(clients.NewTransactionClient(upstream), guard.NewMemoryGuard(), nil),
		DefaultMethod: "qris",
	})
	ts.router = NewRouter(NewHandler(reg, ts.transactions, nil), zap.NewNop(), nil)

	id := ts.open(t)
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/sessions/"+id+"/items", `{"productId":1}`).Code)

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/checkout", nil)
	req.Header.Set("Authorization", "Bearer tok-1")
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, traceparent)
	assert.Contains(t, traceparent, "4bf92f3577b34da6a3ce929d0e0e4736")
}

func TestCanceledRequestIsUpstreamUnavailable(t *testing.T) {
	h := NewHandler(nil, nil, nil)

	status, resp := h.errorResponse(&checkout.TransientError{Err: fmt.Errorf("acquire submission guard: %w", context.Canceled)})
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "upstream_unavailable", resp.Code)

	status, resp = h.errorResponse(fmt.Errorf("load products: %w", context.Canceled))
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "upstream_unavailable", resp.Code)
}
