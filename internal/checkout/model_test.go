package checkout

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionDecodePaymentMethodShapes(t *testing.T) {
	tests := map[string]struct {
		body string
		want MethodRef
	}{
		"object":  {body: `{"payment_method":{"code":"qris","name":"QRIS"}}`, want: MethodRef{Code: "qris", Name: "QRIS"}},
		"string":  {body: `{"payment_method":"Transfer Bank"}`, want: MethodRef{Name: "Transfer Bank"}},
		"null":    {body: `{"payment_method":null}`, want: MethodRef{}},
		"missing": {body: `{}`, want: MethodRef{}},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			var tx Transaction
			require.NoError(t, json.Unmarshal([]byte(tt.body), &tx))
			assert.Equal(t, tt.want, tx.PaymentMethod)
		})
	}
}

func TestNewReceiptFromBackendPayload(t *testing.T) {
	body := `{
		"id": 7,
		"transaction_code": "TRX-20240501-0007",
		"status": "completed",
		"customer_name": null,
		"user": {"id": 3, "name": "Kasir Satu"},
		"payment_method": "QRIS",
		"payment_reference": "REF-123",
		"qr_code": "00020101021226",
		"details": [
			{"product_id": 1, "product_name": "Kopi", "product_price": "18000.00", "quantity": 2, "subtotal": "36000.00"}
		],
		"total_amount": "36000.00",
		"payment_amount": "36000.00",
		"change_amount": "0.00",
		"created_at": "2024-05-01T10:00:00.000000Z"
	}`

	var tx Transaction
	require.NoError(t, json.Unmarshal([]byte(body), &tx))

	r := NewReceipt(tx)
	assert.Equal(t, int64(7), r.TransactionID)
	assert.Equal(t, "Kasir Satu", r.CashierName)
	assert.Equal(t, "Guest", r.CustomerName)
	assert.Equal(t, "QRIS", r.PaymentMethodName)
	assert.Equal(t, "REF-123", r.PaymentReference)
	assert.Equal(t, "00020101021226", r.QRCode)
	require.Len(t, r.Items, 1)
	assert.Equal(t, "Kopi", r.Items[0].Name)
	assert.True(t, r.Items[0].Subtotal.Equal(decimal.NewFromInt(36000)))
	assert.True(t, r.Total.Equal(decimal.NewFromInt(36000)))
	assert.True(t, r.Change.IsZero())
}

func TestNewReceiptFallbacks(t *testing.T) {
	r := NewReceipt(Transaction{TransactionCode: "TRX-1"})

	assert.Equal(t, "N/A", r.CashierName)
	assert.Equal(t, "Guest", r.CustomerName)
	assert.Equal(t, "Cash", r.PaymentMethodName)
	assert.NotNil(t, r.Items)
	assert.Empty(t, r.Items)
}

func TestOrderRequestWireShape(t *testing.T) {
	req := OrderRequest{
		CustomerName:      "Guest",
		PaymentMethodCode: "cash",
		PaymentAmount:     decimal.RequireFromString("50000.5"),
		Items:             []OrderItem{{ProductID: 3, Quantity: 2}},
	}

	b, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"customer_name": "Guest",
		"payment_method_code": "cash",
		"payment_amount": 50000.5,
		"items": [{"product_id": 3, "quantity": 2}]
	}`, string(b))
}

func TestDraftDecodesOptionalTender(t *testing.T) {
	var d Draft
	require.NoError(t, json.Unmarshal([]byte(`{"customerName":"Ani","paymentMethodCode":"cash","tenderedAmount":null}`), &d))
	assert.False(t, d.Tendered.Valid)

	require.NoError(t, json.Unmarshal([]byte(`{"paymentMethodCode":"cash","tenderedAmount":"75000"}`), &d))
	assert.True(t, d.Tendered.Valid)
	assert.True(t, d.Tendered.Decimal.Equal(decimal.NewFromInt(75000)))
}
