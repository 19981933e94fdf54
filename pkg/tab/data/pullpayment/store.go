package pullpayment

import (
	"context"
	"errors"

	"github.com/tabpay/tab-server/pkg/database/query"
)

var (
	ErrPullPaymentNotFound      = errors.New("no pull payment records could be found")
	ErrPullPaymentAlreadyExists = errors.New("pull payment record already exists")
)

type Store interface {
	// Put creates a new pull payment record
	Put(ctx context.Context, record *Record) error

	// Get gets a pull payment record by its public id
	Get(ctx context.Context, pullPaymentId string) (*Record, error)

	// GetBatch gets a set of pull payment records by public id. Missing ids
	// are silently omitted from the result.
	GetBatch(ctx context.Context, pullPaymentIds ...string) ([]*Record, error)

	// Update saves the mutable portion of a pull payment record (archived
	// flag and the metadata blob)
	Update(ctx context.Context, record *Record) error

	// GetAllByStore gets all pull payment records for a store, optionally
	// including archived ones
	GetAllByStore(ctx context.Context, storeId string, includeArchived bool, opts ...query.Option) ([]*Record, error)
}
