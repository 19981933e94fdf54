package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/tabpay/tab-server/pkg/database/query"
	"github.com/tabpay/tab-server/pkg/tab/data/payout"
)

type store struct {
	db *sqlx.DB
}

func New(db *sql.DB) payout.Store {
	return &store{
		db: sqlx.NewDb(db, "pgx"),
	}
}

// Put implements payout.Store.Put
func (s *store) Put(ctx context.Context, record *payout.Record) error {
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

// Get implements payout.Store.Get
func (s *store) Get(ctx context.Context, payoutId string) (*payout.Record, error) {
	obj, err := dbGet(ctx, s.db, payoutId)
	if err != nil {
		return nil, err
	}

	return fromModel(obj), nil
}

// Update implements payout.Store.Update
func (s *store) Update(ctx context.Context, records ...*payout.Record) error {
	if len(records) == 0 {
		return nil
	}

	for _, record := range records {
		if err := record.Validate(); err != nil {
			return err
		}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	models := make([]*model, len(records))
	for i, record := range records {
		m := toModel(record)
		if err := m.dbUpdateInTx(ctx, tx); err != nil {
			tx.Rollback()
			return err
		}
		models[i] = m
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	for i, record := range records {
		record.Id = uint64(models[i].Id.Int64)
	}
	return nil
}

// GetAllByFilter implements payout.Store.GetAllByFilter
func (s *store) GetAllByFilter(ctx context.Context, filter payout.Filter, opts ...query.Option) ([]*payout.Record, error) {
	req, err := query.DefaultPaginationHandler(opts...)
	if err != nil {
		return nil, err
	}

	ordering := query.FromOrderingWithFallback(req.SortBy, "asc")
	list, err := dbGetAllByFilter(ctx, s.db, filter, req.Cursor.ToUint64(), req.Limit, ordering)
	if err != nil {
		return nil, err
	}

	res := make([]*payout.Record, 0, len(list))
	for _, item := range list {
		res = append(res, fromModel(item))
	}

	return res, nil
}

// Count implements payout.Store.Count
func (s *store) Count(ctx context.Context, filter payout.Filter) (uint64, error) {
	return dbCountByFilter(ctx, s.db, filter)
}
