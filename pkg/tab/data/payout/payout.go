package payout

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tabpay/tab-server/pkg/currency"
	"github.com/tabpay/tab-server/pkg/pointer"
)

type State uint8

const (
	// Initial state of every claimed payout
	StateAwaitingApproval State = iota
	StateAwaitingPayment
	StateInProgress
	StateCompleted
	StateCancelled
)

// IsTerminal returns whether the state accepts no further transitions.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateCancelled
}

func (s State) String() string {
	switch s {
	case StateAwaitingApproval:
		return "awaiting_approval"
	case StateAwaitingPayment:
		return "awaiting_payment"
	case StateInProgress:
		return "in_progress"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Record is a single claim against a pull payment (or a standalone store
// payout) moving through the approval/payment state machine.
type Record struct {
	Id uint64

	PayoutId string

	// Payouts may exist without a pull payment (eg. a top-up reconciliation
	// entry or a standalone store payout).
	PullPaymentId *string

	StoreId  string
	MethodId string

	State State

	// Settlement currency (the payout method's native unit) and the
	// currency/amount as claimed, before rate conversion.
	Currency         currency.Code
	OriginalCurrency currency.Code
	OriginalAmount   *decimal.Decimal

	// Converted amount, set once the payout is approved.
	Amount *decimal.Decimal

	// Caller-supplied idempotence key derived from the claim destination.
	DedupId *string

	// Mutable blob
	Destination        string
	Metadata           json.RawMessage
	Proof              json.RawMessage
	Revision           uint64
	NonInteractiveOnly bool

	CreatedAt time.Time
}

func (r *Record) Validate() error {
	if len(r.PayoutId) == 0 {
		return errors.New("payout id is required")
	}

	if r.PullPaymentId != nil && len(*r.PullPaymentId) == 0 {
		return errors.New("pull payment id cannot be empty when provided")
	}

	if len(r.StoreId) == 0 {
		return errors.New("store id is required")
	}

	if len(r.MethodId) == 0 {
		return errors.New("method id is required")
	}

	if len(r.Currency) == 0 {
		return errors.New("currency is required")
	}

	if r.OriginalAmount != nil && len(r.OriginalCurrency) == 0 {
		return errors.New("original currency is required when an amount is claimed")
	}

	if r.DedupId != nil && len(*r.DedupId) == 0 {
		return errors.New("dedup id cannot be empty when provided")
	}

	if len(r.Destination) == 0 {
		return errors.New("destination is required")
	}

	return nil
}

func (r *Record) Clone() Record {
	return Record{
		Id: r.Id,

		PayoutId: r.PayoutId,

		PullPaymentId: pointer.StringCopy(r.PullPaymentId),

		StoreId:  r.StoreId,
		MethodId: r.MethodId,

		State: r.State,

		Currency:         r.Currency,
		OriginalCurrency: r.OriginalCurrency,
		OriginalAmount:   pointer.DecimalCopy(r.OriginalAmount),

		Amount: pointer.DecimalCopy(r.Amount),

		DedupId: pointer.StringCopy(r.DedupId),

		Destination:        r.Destination,
		Metadata:           append(json.RawMessage{}, r.Metadata...),
		Proof:              append(json.RawMessage{}, r.Proof...),
		Revision:           r.Revision,
		NonInteractiveOnly: r.NonInteractiveOnly,

		CreatedAt: r.CreatedAt,
	}
}

func (r *Record) CopyTo(dst *Record) {
	dst.Id = r.Id

	dst.PayoutId = r.PayoutId

	dst.PullPaymentId = pointer.StringCopy(r.PullPaymentId)

	dst.StoreId = r.StoreId
	dst.MethodId = r.MethodId

	dst.State = r.State

	dst.Currency = r.Currency
	dst.OriginalCurrency = r.OriginalCurrency
	dst.OriginalAmount = pointer.DecimalCopy(r.OriginalAmount)

	dst.Amount = pointer.DecimalCopy(r.Amount)

	dst.DedupId = pointer.StringCopy(r.DedupId)

	dst.Destination = r.Destination
	dst.Metadata = append(json.RawMessage{}, r.Metadata...)
	dst.Proof = append(json.RawMessage{}, r.Proof...)
	dst.Revision = r.Revision
	dst.NonInteractiveOnly = r.NonInteractiveOnly

	dst.CreatedAt = r.CreatedAt
}
