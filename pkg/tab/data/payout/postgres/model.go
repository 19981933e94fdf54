package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/tabpay/tab-server/pkg/currency"
	pgutil "github.com/tabpay/tab-server/pkg/database/postgres"
	"github.com/tabpay/tab-server/pkg/tab/data/payout"
)

const (
	tableName = "tabpay__core_payout"

	tableColumns = `
		payout_id,
		pull_payment_id,
		store_id,
		method_id,

		state,

		currency,
		original_currency,
		original_amount,
		amount,

		dedup_id,

		destination,
		metadata,
		proof,
		revision,
		non_interactive_only,

		created_at
	`
)

type model struct {
	Id sql.NullInt64 `db:"id"`

	PayoutId      string         `db:"payout_id"`
	PullPaymentId sql.NullString `db:"pull_payment_id"`
	StoreId       string         `db:"store_id"`
	MethodId      string         `db:"method_id"`

	State uint8 `db:"state"`

	Currency         string              `db:"currency"`
	OriginalCurrency string              `db:"original_currency"`
	OriginalAmount   decimal.NullDecimal `db:"original_amount"`
	Amount           decimal.NullDecimal `db:"amount"`

	DedupId sql.NullString `db:"dedup_id"`

	Destination        string `db:"destination"`
	Metadata           []byte `db:"metadata"`
	Proof              []byte `db:"proof"`
	Revision           int64  `db:"revision"`
	NonInteractiveOnly bool   `db:"non_interactive_only"`

	CreatedAt time.Time `db:"created_at"`
}

func toModel(obj *payout.Record) *model {
	m := &model{
		Id: sql.NullInt64{Int64: int64(obj.Id), Valid: obj.Id > 0},

		PayoutId: obj.PayoutId,
		StoreId:  obj.StoreId,
		MethodId: obj.MethodId,

		State: uint8(obj.State),

		Currency:         obj.Currency.String(),
		OriginalCurrency: obj.OriginalCurrency.String(),

		Destination:        obj.Destination,
		Metadata:           obj.Metadata,
		Proof:              obj.Proof,
		Revision:           int64(obj.Revision),
		NonInteractiveOnly: obj.NonInteractiveOnly,

		CreatedAt: obj.CreatedAt.UTC(),
	}

	if obj.PullPaymentId != nil {
		m.PullPaymentId = sql.NullString{String: *obj.PullPaymentId, Valid: true}
	}
	if obj.OriginalAmount != nil {
		m.OriginalAmount = decimal.NullDecimal{Decimal: *obj.OriginalAmount, Valid: true}
	}
	if obj.Amount != nil {
		m.Amount = decimal.NullDecimal{Decimal: *obj.Amount, Valid: true}
	}
	if obj.DedupId != nil {
		m.DedupId = sql.NullString{String: *obj.DedupId, Valid: true}
	}

	return m
}

func fromModel(obj *model) *payout.Record {
	record := &payout.Record{
		Id: uint64(obj.Id.Int64),

		PayoutId: obj.PayoutId,
		StoreId:  obj.StoreId,
		MethodId: obj.MethodId,

		State: payout.State(obj.State),

		Currency:         currency.ToCode(obj.Currency),
		OriginalCurrency: currency.ToCode(obj.OriginalCurrency),

		Destination:        obj.Destination,
		Metadata:           json.RawMessage(obj.Metadata),
		Proof:              json.RawMessage(obj.Proof),
		Revision:           uint64(obj.Revision),
		NonInteractiveOnly: obj.NonInteractiveOnly,

		CreatedAt: obj.CreatedAt.UTC(),
	}

	if obj.PullPaymentId.Valid {
		pullPaymentId := obj.PullPaymentId.String
		record.PullPaymentId = &pullPaymentId
	}
	if obj.OriginalAmount.Valid {
		originalAmount := obj.OriginalAmount.Decimal
		record.OriginalAmount = &originalAmount
	}
	if obj.Amount.Valid {
		amount := obj.Amount.Decimal
		record.Amount = &amount
	}
	if obj.DedupId.Valid {
		dedupId := obj.DedupId.String
		record.DedupId = &dedupId
	}

	return record
}

func (m *model) dbSave(ctx context.Context, db *sqlx.DB) error {
	query := `INSERT INTO ` + tableName + ` (` + tableColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id`

	err := db.QueryRowxContext(ctx, query,
		m.PayoutId,
		m.PullPaymentId,
		m.StoreId,
		m.MethodId,
		m.State,
		m.Currency,
		m.OriginalCurrency,
		m.OriginalAmount,
		m.Amount,
		m.DedupId,
		m.Destination,
		m.Metadata,
		m.Proof,
		m.Revision,
		m.NonInteractiveOnly,
		m.CreatedAt,
	).Scan(&m.Id)

	return pgutil.CheckUniqueViolation(err, payout.ErrPayoutAlreadyExists)
}

func (m *model) dbUpdateInTx(ctx context.Context, tx *sqlx.Tx) error {
	query := `UPDATE ` + tableName + `
		SET state = $2, original_currency = $3, original_amount = $4, amount = $5,
			destination = $6, metadata = $7, proof = $8, revision = $9
		WHERE payout_id = $1
		RETURNING id`

	err := tx.QueryRowxContext(ctx, query,
		m.PayoutId,
		m.State,
		m.OriginalCurrency,
		m.OriginalAmount,
		m.Amount,
		m.Destination,
		m.Metadata,
		m.Proof,
		m.Revision,
	).Scan(&m.Id)

	return pgutil.CheckNoRows(err, payout.ErrPayoutNotFound)
}

func dbGet(ctx context.Context, db *sqlx.DB, payoutId string) (*model, error) {
	res := &model{}

	query := `SELECT id, ` + tableColumns + ` FROM ` + tableName + ` WHERE payout_id = $1`
	err := db.GetContext(ctx, res, query, payoutId)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, payout.ErrPayoutNotFound)
	}

	return res, nil
}

func appendFilter(query string, args []interface{}, filter payout.Filter) (string, []interface{}) {
	appendIn := func(column string, values []string) {
		query += ` AND ` + column + ` IN (?)`
		args = append(args, values)
	}

	if len(filter.States) > 0 {
		// []uint8 would be bound as a bytea by sqlx.In
		states := make([]int, len(filter.States))
		for i, state := range filter.States {
			states[i] = int(state)
		}
		query += ` AND state IN (?)`
		args = append(args, states)
	}
	if len(filter.PayoutIds) > 0 {
		appendIn("payout_id", filter.PayoutIds)
	}
	if len(filter.PullPaymentIds) > 0 {
		appendIn("pull_payment_id", filter.PullPaymentIds)
	}
	if len(filter.MethodIds) > 0 {
		appendIn("method_id", filter.MethodIds)
	}
	if len(filter.StoreIds) > 0 {
		appendIn("store_id", filter.StoreIds)
	}
	if len(filter.DedupIds) > 0 {
		appendIn("dedup_id", filter.DedupIds)
	}
	if filter.CreatedAfter != nil {
		query += ` AND created_at > ?`
		args = append(args, filter.CreatedAfter.UTC())
	}
	if filter.CreatedBefore != nil {
		query += ` AND created_at < ?`
		args = append(args, filter.CreatedBefore.UTC())
	}

	return query, args
}

func dbGetAllByFilter(ctx context.Context, db *sqlx.DB, filter payout.Filter, cursor uint64, limit uint64, ordering string) ([]*model, error) {
	res := []*model{}

	query := `SELECT id, ` + tableColumns + ` FROM ` + tableName + ` WHERE TRUE`
	args := []interface{}{}
	query, args = appendFilter(query, args, filter)

	if cursor > 0 {
		if ordering == "asc" {
			query += ` AND id > ?`
		} else {
			query += ` AND id < ?`
		}
		args = append(args, cursor)
	}

	query += fmt.Sprintf(` ORDER BY id %s LIMIT ?`, ordering)
	args = append(args, limit)

	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return nil, err
	}

	err = db.SelectContext(ctx, &res, db.Rebind(query), args...)
	if err != nil {
		return nil, err
	}

	return res, nil
}

func dbCountByFilter(ctx context.Context, db *sqlx.DB, filter payout.Filter) (uint64, error) {
	query := `SELECT COUNT(*) FROM ` + tableName + ` WHERE TRUE`
	args := []interface{}{}
	query, args = appendFilter(query, args, filter)

	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return 0, err
	}

	var count uint64
	err = db.GetContext(ctx, &count, db.Rebind(query), args...)
	if err != nil {
		return 0, err
	}

	return count, nil
}
