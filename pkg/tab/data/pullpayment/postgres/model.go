package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	pgutil "github.com/tabpay/tab-server/pkg/database/postgres"
	"github.com/tabpay/tab-server/pkg/currency"
	"github.com/tabpay/tab-server/pkg/tab/data/pullpayment"
)

const (
	tableName = "tabpay__core_pullpayment"

	tableColumns = `
		pull_payment_id,
		store_id,
		currency,
		limit_amount,

		starts_at,
		expires_at,
		archived,

		name,
		description,
		supported_methods,
		auto_approve_claims,
		minimum_claim,
		bolt11_expiry_seconds,

		created_at
	`
)

type model struct {
	Id sql.NullInt64 `db:"id"`

	PullPaymentId string          `db:"pull_payment_id"`
	StoreId       string          `db:"store_id"`
	Currency      string          `db:"currency"`
	Limit         decimal.Decimal `db:"limit_amount"`

	StartsAt  time.Time    `db:"starts_at"`
	ExpiresAt sql.NullTime `db:"expires_at"`
	Archived  bool         `db:"archived"`

	Name                string          `db:"name"`
	Description         string          `db:"description"`
	SupportedMethods    string          `db:"supported_methods"`
	AutoApproveClaims   bool            `db:"auto_approve_claims"`
	MinimumClaim        decimal.Decimal `db:"minimum_claim"`
	Bolt11ExpirySeconds int64           `db:"bolt11_expiry_seconds"`

	CreatedAt time.Time `db:"created_at"`
}

func toModel(obj *pullpayment.Record) *model {
	m := &model{
		Id: sql.NullInt64{Int64: int64(obj.Id), Valid: obj.Id > 0},

		PullPaymentId: obj.PullPaymentId,
		StoreId:       obj.StoreId,
		Currency:      obj.Currency.String(),
		Limit:         obj.Limit,

		StartsAt: obj.StartsAt.UTC(),
		Archived: obj.Archived,

		Name:                obj.Name,
		Description:         obj.Description,
		SupportedMethods:    strings.Join(obj.SupportedMethods, ","),
		AutoApproveClaims:   obj.AutoApproveClaims,
		MinimumClaim:        obj.MinimumClaim,
		Bolt11ExpirySeconds: int64(obj.Bolt11Expiry / time.Second),

		CreatedAt: obj.CreatedAt.UTC(),
	}

	if obj.ExpiresAt != nil {
		m.ExpiresAt = sql.NullTime{Time: obj.ExpiresAt.UTC(), Valid: true}
	}

	return m
}

func fromModel(obj *model) *pullpayment.Record {
	record := &pullpayment.Record{
		Id: uint64(obj.Id.Int64),

		PullPaymentId: obj.PullPaymentId,
		StoreId:       obj.StoreId,
		Currency:      currency.ToCode(obj.Currency),
		Limit:         obj.Limit,

		StartsAt: obj.StartsAt.UTC(),
		Archived: obj.Archived,

		Name:                obj.Name,
		Description:         obj.Description,
		SupportedMethods:    strings.Split(obj.SupportedMethods, ","),
		AutoApproveClaims:   obj.AutoApproveClaims,
		MinimumClaim:        obj.MinimumClaim,
		Bolt11Expiry:        time.Duration(obj.Bolt11ExpirySeconds) * time.Second,

		CreatedAt: obj.CreatedAt.UTC(),
	}

	if obj.ExpiresAt.Valid {
		expiresAt := obj.ExpiresAt.Time.UTC()
		record.ExpiresAt = &expiresAt
	}

	return record
}

func (m *model) dbSave(ctx context.Context, db *sqlx.DB) error {
	query := `INSERT INTO ` + tableName + ` (` + tableColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id`

	err := db.QueryRowxContext(ctx, query,
		m.PullPaymentId,
		m.StoreId,
		m.Currency,
		m.Limit,
		m.StartsAt,
		m.ExpiresAt,
		m.Archived,
		m.Name,
		m.Description,
		m.SupportedMethods,
		m.AutoApproveClaims,
		m.MinimumClaim,
		m.Bolt11ExpirySeconds,
		m.CreatedAt,
	).Scan(&m.Id)

	return pgutil.CheckUniqueViolation(err, pullpayment.ErrPullPaymentAlreadyExists)
}

func (m *model) dbUpdate(ctx context.Context, db *sqlx.DB) error {
	query := `UPDATE ` + tableName + `
		SET archived = $2, name = $3, description = $4, supported_methods = $5,
			auto_approve_claims = $6, minimum_claim = $7, bolt11_expiry_seconds = $8
		WHERE pull_payment_id = $1
		RETURNING id`

	err := db.QueryRowxContext(ctx, query,
		m.PullPaymentId,
		m.Archived,
		m.Name,
		m.Description,
		m.SupportedMethods,
		m.AutoApproveClaims,
		m.MinimumClaim,
		m.Bolt11ExpirySeconds,
	).Scan(&m.Id)

	return pgutil.CheckNoRows(err, pullpayment.ErrPullPaymentNotFound)
}

func dbGet(ctx context.Context, db *sqlx.DB, pullPaymentId string) (*model, error) {
	res := &model{}

	query := `SELECT id, ` + tableColumns + ` FROM ` + tableName + ` WHERE pull_payment_id = $1`
	err := db.GetContext(ctx, res, query, pullPaymentId)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, pullpayment.ErrPullPaymentNotFound)
	}

	return res, nil
}

func dbGetBatch(ctx context.Context, db *sqlx.DB, pullPaymentIds ...string) ([]*model, error) {
	res := []*model{}

	query, args, err := sqlx.In(`SELECT id, `+tableColumns+` FROM `+tableName+` WHERE pull_payment_id IN (?)`, pullPaymentIds)
	if err != nil {
		return nil, err
	}

	err = db.SelectContext(ctx, &res, db.Rebind(query), args...)
	if err != nil {
		return nil, err
	}

	return res, nil
}

func dbGetAllByStore(ctx context.Context, db *sqlx.DB, storeId string, includeArchived bool, cursor uint64, limit uint64, ordering string) ([]*model, error) {
	res := []*model{}

	query := `SELECT id, ` + tableColumns + ` FROM ` + tableName + ` WHERE store_id = $1`
	if !includeArchived {
		query += ` AND archived IS FALSE`
	}
	if cursor > 0 {
		if ordering == "asc" {
			query += ` AND id > $2`
		} else {
			query += ` AND id < $2`
		}
		query += ` ORDER BY id ` + ordering + ` LIMIT $3`

		err := db.SelectContext(ctx, &res, query, storeId, cursor, limit)
		if err != nil {
			return nil, err
		}
	} else {
		query += ` ORDER BY id ` + ordering + ` LIMIT $2`

		err := db.SelectContext(ctx, &res, query, storeId, limit)
		if err != nil {
			return nil, err
		}
	}

	if len(res) == 0 {
		return nil, pullpayment.ErrPullPaymentNotFound
	}

	return res, nil
}
