package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/tabpay/tab-server/pkg/database/query"
	"github.com/tabpay/tab-server/pkg/tab/data/pullpayment"
)

type store struct {
	db *sqlx.DB
}

func New(db *sql.DB) pullpayment.Store {
	return &store{
		db: sqlx.NewDb(db, "pgx"),
	}
}

// Put implements pullpayment.Store.Put
func (s *store) Put(ctx context.Context, record *pullpayment.Record) error {
	if err := record.Validate(); err != nil {
		return err
	}

	m := toModel(record)
	if err := m.dbSave(ctx, s.db); err != nil {
		return err
	}

	record.Id = uint64(m.Id.Int64)
	return nil
}

// Get implements pullpayment.Store.Get
func (s *store) Get(ctx context.Context, pullPaymentId string) (*pullpayment.Record, error) {
	obj, err := dbGet(ctx, s.db, pullPaymentId)
	if err != nil {
		return nil, err
	}

	return fromModel(obj), nil
}

// GetBatch implements pullpayment.Store.GetBatch
func (s *store) GetBatch(ctx context.Context, pullPaymentIds ...string) ([]*pullpayment.Record, error) {
	if len(pullPaymentIds) == 0 {
		return []*pullpayment.Record{}, nil
	}

	list, err := dbGetBatch(ctx, s.db, pullPaymentIds...)
	if err != nil {
		return nil, err
	}

	res := make([]*pullpayment.Record, 0, len(list))
	for _, item := range list {
		res = append(res, fromModel(item))
	}

	return res, nil
}

// Update implements pullpayment.Store.Update
func (s *store) Update(ctx context.Context, record *pullpayment.Record) error {
	if err := record.Validate(); err != nil {
		return err
	}

	m := toModel(record)
	if err := m.dbUpdate(ctx, s.db); err != nil {
		return err
	}

	record.Id = uint64(m.Id.Int64)
	return nil
}

// GetAllByStore implements pullpayment.Store.GetAllByStore
func (s *store) GetAllByStore(ctx context.Context, storeId string, includeArchived bool, opts ...query.Option) ([]*pullpayment.Record, error) {
	req, err := query.DefaultPaginationHandler(opts...)
	if err != nil {
		return nil, err
	}

	ordering := query.FromOrderingWithFallback(req.SortBy, "asc")
	list, err := dbGetAllByStore(ctx, s.db, storeId, includeArchived, req.Cursor.ToUint64(), req.Limit, ordering)
	if err != nil {
		return nil, err
	}

	res := make([]*pullpayment.Record, 0, len(list))
	for _, item := range list {
		res = append(res, fromModel(item))
	}

	return res, nil
}
