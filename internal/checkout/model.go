package checkout

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

const DefaultCustomerName = "Guest"

// Draft is the cashier's in-progress payment input. Tendered is only read for
// cash methods.
type Draft struct {
	CustomerName      string              `json:"customerName"`
	PaymentMethodCode string              `json:"paymentMethodCode"`
	Tendered          decimal.NullDecimal `json:"tenderedAmount"`
}

func NewDraft(methodCode string) Draft {
	return Draft{CustomerName: DefaultCustomerName, PaymentMethodCode: methodCode}
}

type OrderItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// OrderRequest is the body sent to the order service.
type OrderRequest struct {
	CustomerName      string          `json:"customer_name"`
	PaymentMethodCode string          `json:"payment_method_code"`
	PaymentAmount     decimal.Decimal `json:"payment_amount"`
	Items             []OrderItem     `json:"items"`
}

// MarshalJSON sends payment_amount as a JSON number.
func (r OrderRequest) MarshalJSON() ([]byte, error) {
	type plain OrderRequest
	return json.Marshal(struct {
		plain
		PaymentAmount json.Number `json:"payment_amount"`
	}{
		plain:         plain(r),
		PaymentAmount: json.Number(r.PaymentAmount.String()),
	})
}

type TransactionUser struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// MethodRef is the payment method on a transaction. The backend sends either
// an object or a bare string.
type MethodRef struct {
	Code string `json:"code,omitempty"`
	Name string `json:"name,omitempty"`
}

func (m *MethodRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*m = MethodRef{}
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*m = MethodRef{Name: s}
		return nil
	}
	type plain MethodRef
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*m = MethodRef(p)
	return nil
}

type TransactionDetail struct {
	ProductID    int64           `json:"product_id"`
	ProductName  string          `json:"product_name"`
	ProductPrice decimal.Decimal `json:"product_price"`
	Quantity     int             `json:"quantity"`
	Subtotal     decimal.Decimal `json:"subtotal"`
}

// Transaction is a finalized sale as returned by the order service.
type Transaction struct {
	ID               int64               `json:"id"`
	TransactionCode  string              `json:"transaction_code"`
	Status           string              `json:"status"`
	CustomerName     string              `json:"customer_name"`
	User             *TransactionUser    `json:"user"`
	PaymentMethod    MethodRef           `json:"payment_method"`
	PaymentReference string              `json:"payment_reference"`
	QRCode           string              `json:"qr_code"`
	Details          []TransactionDetail `json:"details"`
	TotalAmount      decimal.Decimal     `json:"total_amount"`
	PaymentAmount    decimal.Decimal     `json:"payment_amount"`
	ChangeAmount     decimal.Decimal     `json:"change_amount"`
	CreatedAt        string              `json:"created_at"`
}

type ReceiptItem struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type Receipt struct {
	TransactionID     int64           `json:"transactionId"`
	TransactionCode   string          `json:"transactionCode"`
	Status            string          `json:"status"`
	CashierName       string          `json:"cashierName"`
	CustomerName      string          `json:"customerName"`
	PaymentMethodName string          `json:"paymentMethodName"`
	PaymentReference  string          `json:"paymentReference,omitempty"`
	QRCode            string          `json:"qrCode,omitempty"`
	Items             []ReceiptItem   `json:"items"`
	Total             decimal.Decimal `json:"total"`
	Tendered          decimal.Decimal `json:"tendered"`
	Change            decimal.Decimal `json:"change"`
	IssuedAt          string          `json:"issuedAt,omitempty"`
}

// NewReceipt maps a finalized transaction into a receipt, filling the
// display fallbacks for fields the backend may leave out.
func NewReceipt(tx Transaction) Receipt {
	r := Receipt{
		TransactionID:     tx.ID,
		TransactionCode:   tx.TransactionCode,
		Status:            tx.Status,
		CashierName:       "N/A",
		CustomerName:      strings.TrimSpace(tx.CustomerName),
		PaymentMethodName: tx.PaymentMethod.Name,
		PaymentReference:  tx.PaymentReference,
		QRCode:            tx.QRCode,
		Items:             make([]ReceiptItem, 0, len(tx.Details)),
		Total:             tx.TotalAmount,
		Tendered:          tx.PaymentAmount,
		Change:            tx.ChangeAmount,
		IssuedAt:          tx.CreatedAt,
	}
	if tx.User != nil && tx.User.Name != "" {
		r.CashierName = tx.User.Name
	}
	if r.CustomerName == "" {
		r.CustomerName = DefaultCustomerName
	}
	if r.PaymentMethodName == "" {
		r.PaymentMethodName = "Cash"
	}

	for _, d := range tx.Details {
		sub := d.Subtotal
		if sub.IsZero() {
			sub = d.ProductPrice.Mul(decimal.NewFromInt(int64(d.Quantity)))
		}
		r.Items = append(r.Items, ReceiptItem{
			Name:     d.ProductName,
			Price:    d.ProductPrice,
			Quantity: d.Quantity,
			Subtotal: sub,
		})
	}
	return r
}
