package data

import (
	"context"

	pg "github.com/tabpay/tab-server/pkg/database/postgres"
	"github.com/tabpay/tab-server/pkg/database/query"
	"github.com/tabpay/tab-server/pkg/tab/data/payout"
	payout_memory "github.com/tabpay/tab-server/pkg/tab/data/payout/memory"
	payout_postgres "github.com/tabpay/tab-server/pkg/tab/data/payout/postgres"
	"github.com/tabpay/tab-server/pkg/tab/data/pullpayment"
	pullpayment_memory "github.com/tabpay/tab-server/pkg/tab/data/pullpayment/memory"
	pullpayment_postgres "github.com/tabpay/tab-server/pkg/tab/data/pullpayment/postgres"
)

// Provider aggregates the backing stores behind a single data access layer.
type Provider interface {
	// Pull payments

	CreatePullPayment(ctx context.Context, record *pullpayment.Record) error
	GetPullPayment(ctx context.Context, pullPaymentId string) (*pullpayment.Record, error)
	GetPullPaymentBatch(ctx context.Context, pullPaymentIds ...string) ([]*pullpayment.Record, error)
	UpdatePullPayment(ctx context.Context, record *pullpayment.Record) error
	GetAllPullPaymentsByStore(ctx context.Context, storeId string, includeArchived bool, opts ...query.Option) ([]*pullpayment.Record, error)

	// Payouts

	CreatePayout(ctx context.Context, record *payout.Record) error
	GetPayout(ctx context.Context, payoutId string) (*payout.Record, error)
	UpdatePayouts(ctx context.Context, records ...*payout.Record) error
	GetAllPayoutsByFilter(ctx context.Context, filter payout.Filter, opts ...query.Option) ([]*payout.Record, error)
	CountPayoutsByFilter(ctx context.Context, filter payout.Filter) (uint64, error)
}

type DatabaseData struct {
	pullpayments pullpayment.Store
	payouts      payout.Store
}

func NewDatabaseProvider(dbConfig *pg.Config) (Provider, error) {
	db, err := pg.New(dbConfig)
	if err != nil {
		return nil, err
	}

	return &DatabaseData{
		pullpayments: pullpayment_postgres.New(db),
		payouts:      payout_postgres.New(db),
	}, nil
}

// NewTestDataProvider gets a provider backed entirely by in memory stores.
func NewTestDataProvider() Provider {
	return &DatabaseData{
		pullpayments: pullpayment_memory.New(),
		payouts:      payout_memory.New(),
	}
}

// Pull payments

func (dp *DatabaseData) CreatePullPayment(ctx context.Context, record *pullpayment.Record) error {
	return dp.pullpayments.Put(ctx, record)
}
func (dp *DatabaseData) GetPullPayment(ctx context.Context, pullPaymentId string) (*pullpayment.Record, error) {
	return dp.pullpayments.Get(ctx, pullPaymentId)
}
func (dp *DatabaseData) GetPullPaymentBatch(ctx context.Context, pullPaymentIds ...string) ([]*pullpayment.Record, error) {
	return dp.pullpayments.GetBatch(ctx, pullPaymentIds...)
}
func (dp *DatabaseData) UpdatePullPayment(ctx context.Context, record *pullpayment.Record) error {
	return dp.pullpayments.Update(ctx, record)
}
func (dp *DatabaseData) GetAllPullPaymentsByStore(ctx context.Context, storeId string, includeArchived bool, opts ...query.Option) ([]*pullpayment.Record, error) {
	return dp.pullpayments.GetAllByStore(ctx, storeId, includeArchived, opts...)
}

// Payouts

func (dp *DatabaseData) CreatePayout(ctx context.Context, record *payout.Record) error {
	return dp.payouts.Put(ctx, record)
}
func (dp *DatabaseData) GetPayout(ctx context.Context, payoutId string) (*payout.Record, error) {
	return dp.payouts.Get(ctx, payoutId)
}
func (dp *DatabaseData) UpdatePayouts(ctx context.Context, records ...*payout.Record) error {
	return dp.payouts.Update(ctx, records...)
}
func (dp *DatabaseData) GetAllPayoutsByFilter(ctx context.Context, filter payout.Filter, opts ...query.Option) ([]*payout.Record, error) {
	return dp.payouts.GetAllByFilter(ctx, filter, opts...)
}
func (dp *DatabaseData) CountPayoutsByFilter(ctx context.Context, filter payout.Filter) (uint64, error) {
	return dp.payouts.Count(ctx, filter)
}
