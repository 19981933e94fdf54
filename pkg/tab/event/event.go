package event

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tabpay/tab-server/pkg/currency"
	"github.com/tabpay/tab-server/pkg/tab/data/payout"
)

type Type uint8

const (
	PayoutCreated Type = iota
	PayoutApproved
	PayoutUpdated
	InvoiceCompleted
)

func (t Type) String() string {
	switch t {
	case PayoutCreated:
		return "payout_created"
	case PayoutApproved:
		return "payout_approved"
	case PayoutUpdated:
		return "payout_updated"
	case InvoiceCompleted:
		return "invoice_completed"
	}
	return "unknown"
}

// Event is a single bus message. Payout lifecycle events carry the full
// payout snapshot as of the transition.
type Event struct {
	Id        string
	Type      Type
	Timestamp time.Time

	Payout *payout.Record

	// Set on InvoiceCompleted events only
	InvoiceId     string
	PullPaymentId string
	Amount        decimal.Decimal
	Currency      currency.Code
}

func NewPayoutEvent(eventType Type, record *payout.Record) *Event {
	snapshot := record.Clone()
	return &Event{
		Id:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now(),
		Payout:    &snapshot,
	}
}

func NewInvoiceCompletedEvent(invoiceId, pullPaymentId string, amount decimal.Decimal, code currency.Code) *Event {
	return &Event{
		Id:        uuid.NewString(),
		Type:      InvoiceCompleted,
		Timestamp: time.Now(),

		InvoiceId:     invoiceId,
		PullPaymentId: pullPaymentId,
		Amount:        amount,
		Currency:      code,
	}
}
