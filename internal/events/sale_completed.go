package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/services/pos-register-go/internal/checkout"
)

const (
	SaleCompletedEventName    = "SaleCompleted"
	SaleCompletedEventVersion = 1
	SaleCompletedSchemaPath   = "contracts/events/pos/SaleCompleted.v1.enveloped.schema.json"
	SaleCompletedRoutingKey   = "pos.sale.completed.v1"
	RegisterProducer          = "pos-register-go"
)

// EventEnvelope is the shared v1 envelope used across the system's events.
type EventEnvelope struct {
	EventName     string               `json:"eventName"`
	EventVersion  int                  `json:"eventVersion"`
	EventID       string               `json:"eventId"`
	CorrelationID string               `json:"correlationId,omitempty"`
	Producer      string               `json:"producer"`
	PartitionKey  string               `json:"partitionKey"`
	OccurredAt    time.Time            `json:"occurredAt"`
	Schema        string               `json:"schema"`
	Payload       SaleCompletedPayload `json:"payload"`
}

type SaleCompletedPayload struct {
	SessionID       string              `json:"sessionId"`
	TransactionID   int64               `json:"transactionId"`
	TransactionCode string              `json:"transactionCode"`
	CashierName     string              `json:"cashierName"`
	CustomerName    string              `json:"customerName"`
	PaymentMethod   string              `json:"paymentMethod"`
	Items           []SaleCompletedItem `json:"items"`
	TotalAmount     decimal.Decimal     `json:"totalAmount"`
	PaymentAmount   decimal.Decimal     `json:"paymentAmount"`
	ChangeAmount    decimal.Decimal     `json:"changeAmount"`
}

type SaleCompletedItem struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

type EnvelopeOptions struct {
	SessionID     string
	CorrelationID string
	Producer      string
	EventID       string
	OccurredAt    time.Time
}

func BuildSaleCompletedEvent(r checkout.Receipt, opts EnvelopeOptions) EventEnvelope {
	eventID := opts.EventID
	if eventID == "" {
		eventID = uuid.NewString()
	}

	occurredAt := opts.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	producer := opts.Producer
	if producer == "" {
		producer = RegisterProducer
	}

	payload := SaleCompletedPayload{
		SessionID:       opts.SessionID,
		TransactionID:   r.TransactionID,
		TransactionCode: r.TransactionCode,
		CashierName:     r.CashierName,
		CustomerName:    r.CustomerName,
		PaymentMethod:   r.PaymentMethodName,
		Items:           make([]SaleCompletedItem, 0, len(r.Items)),
		TotalAmount:     r.Total,
		PaymentAmount:   r.Tendered,
		ChangeAmount:    r.Change,
	}
	for _, it := range r.Items {
		payload.Items = append(payload.Items, SaleCompletedItem{
			Name:     it.Name,
			Price:    it.Price,
			Quantity: it.Quantity,
		})
	}

	return EventEnvelope{
		EventName:     SaleCompletedEventName,
		EventVersion:  SaleCompletedEventVersion,
		EventID:       eventID,
		CorrelationID: opts.CorrelationID,
		Producer:      producer,
		PartitionKey:  opts.SessionID,
		OccurredAt:    occurredAt,
		Schema:        SaleCompletedSchemaPath,
		Payload:       payload,
	}
}
