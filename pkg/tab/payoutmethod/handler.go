package payoutmethod

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/tabpay/tab-server/pkg/currency"
	"github.com/tabpay/tab-server/pkg/tab/data/payout"
	"github.com/tabpay/tab-server/pkg/tab/event"
)

// Destination is a parsed claim destination. An embedded amount acts as a
// ceiling on the claimed amount, and an embedded dedup id rejects duplicate
// in-flight claims to the same place.
type Destination interface {
	Address() string
	Amount() *decimal.Decimal
	DedupId() *string
}

// Handler is a payment rail (on-chain, Lightning, custom processor) with its
// own settlement currency and destination validation rules.
type Handler interface {
	// Currency is the rail's native settlement unit
	Currency() currency.Code

	// Divisibility is the number of decimal places amounts settle at
	Divisibility() int32

	ParseDestination(ctx context.Context, raw string) (Destination, error)

	MinimumPayoutAmount(ctx context.Context, destination Destination) (decimal.Decimal, error)

	// TrackClaim is invoked once when a claim creates a payout on this rail
	TrackClaim(ctx context.Context, destination Destination, record *payout.Record) error

	// StartBackgroundCheck lets the handler subscribe to bus events that
	// should feed its own reconciliation loop.
	StartBackgroundCheck(ctx context.Context, subscribe func(handler event.Handler, types ...event.Type))

	// BackgroundCheck receives every committed engine queue item, best
	// effort. Errors are logged and swallowed by the caller.
	BackgroundCheck(ctx context.Context, item interface{}) error
}
