package payout

import (
	"context"
	"errors"
	"time"

	"github.com/tabpay/tab-server/pkg/database/query"
)

var (
	ErrPayoutNotFound = errors.New("no payout records could be found")

	// ErrPayoutAlreadyExists is returned when the payout id is taken, or when
	// a non-terminal payout already carries the same dedup id.
	ErrPayoutAlreadyExists = errors.New("payout record already exists")
)

// Filter selects payout records. Empty fields match everything.
type Filter struct {
	States         []State
	PullPaymentIds []string
	PayoutIds      []string
	MethodIds      []string
	StoreIds       []string
	DedupIds       []string

	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

type Store interface {
	// Put creates a new payout record. ErrPayoutAlreadyExists is returned
	// when another non-terminal payout carries the same dedup id.
	Put(ctx context.Context, record *Record) error

	// Get gets a payout record by its public id
	Get(ctx context.Context, payoutId string) (*Record, error)

	// Update saves the mutable portion of one or more payout records (state,
	// amount, and the metadata blob) within a single transaction. Either all
	// records are saved, or none are.
	Update(ctx context.Context, records ...*Record) error

	// GetAllByFilter gets all payout records matching the filter. An empty
	// result is not an error.
	GetAllByFilter(ctx context.Context, filter Filter, opts ...query.Option) ([]*Record, error)

	// Count counts payout records matching the filter
	Count(ctx context.Context, filter Filter) (uint64, error)
}
