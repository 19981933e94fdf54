package engine

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tabpay/tab-server/pkg/currency"
	"github.com/tabpay/tab-server/pkg/database/query"
	"github.com/tabpay/tab-server/pkg/tab/data/payout"
	"github.com/tabpay/tab-server/pkg/tab/data/pullpayment"
)

var oneHundred = decimal.NewFromInt(100)

// Progress is a derived view of a pull payment's budget consumption, rounded
// to the currency's display divisibility.
type Progress struct {
	Limit decimal.Decimal

	// Sum over completed and in-progress payouts
	Completed        decimal.Decimal
	CompletedPercent decimal.Decimal

	// Sum over payouts still awaiting approval or payment
	Awaiting        decimal.Decimal
	AwaitingPercent decimal.Decimal

	// Nil when the pull payment never expires
	TimeRemaining *time.Duration
}

// CalculateProgress implements Engine.CalculateProgress. Purely derived and
// unordered against the queue; an in-flight claim may or may not be counted.
func (p *service) CalculateProgress(ctx context.Context, pullPaymentId string, now time.Time) (*Progress, error) {
	record, err := p.data.GetPullPayment(ctx, pullPaymentId)
	if err != nil {
		return nil, err
	}

	records, err := p.getAllPayoutsByFilter(ctx, payout.Filter{
		PullPaymentIds: []string{pullPaymentId},
		States: []payout.State{
			payout.StateAwaitingApproval,
			payout.StateAwaitingPayment,
			payout.StateInProgress,
			payout.StateCompleted,
		},
	})
	if err != nil {
		return nil, err
	}

	completed := decimal.Zero
	awaiting := decimal.Zero
	for _, item := range records {
		if item.OriginalAmount == nil {
			continue
		}

		switch item.State {
		case payout.StateInProgress, payout.StateCompleted:
			completed = completed.Add(*item.OriginalAmount)
		default:
			awaiting = awaiting.Add(*item.OriginalAmount)
		}
	}

	decimals := int32(currency.GetDecimals(record.Currency))
	res := &Progress{
		Limit:            record.Limit,
		Completed:        completed.Round(decimals),
		CompletedPercent: completed.Div(record.Limit).Mul(oneHundred).Round(2),
		Awaiting:         awaiting.Round(decimals),
		AwaitingPercent:  awaiting.Div(record.Limit).Mul(oneHundred).Round(2),
	}

	if record.ExpiresAt != nil {
		remaining := record.ExpiresAt.Sub(now)
		if remaining < 0 {
			remaining = 0
		}
		res.TimeRemaining = &remaining
	}

	return res, nil
}

type GetPayoutsParams struct {
	Filter payout.Filter

	// Include payouts whose pull payment has been archived
	IncludeArchived bool

	// Attach the related pull payment record to each result
	IncludePullPayments bool
}

type PayoutDetails struct {
	Payout      *payout.Record
	PullPayment *pullpayment.Record
}

// GetPayouts implements Engine.GetPayouts
func (p *service) GetPayouts(ctx context.Context, params GetPayoutsParams, opts ...query.Option) ([]*PayoutDetails, error) {
	records, err := p.data.GetAllPayoutsByFilter(ctx, params.Filter, opts...)
	if err != nil {
		return nil, err
	}

	needRelated := params.IncludePullPayments || !params.IncludeArchived

	var related map[string]*pullpayment.Record
	if needRelated {
		distinct := make(map[string]struct{})
		for _, record := range records {
			if record.PullPaymentId != nil {
				distinct[*record.PullPaymentId] = struct{}{}
			}
		}

		related = make(map[string]*pullpayment.Record, len(distinct))
		if len(distinct) > 0 {
			ids := make([]string, 0, len(distinct))
			for id := range distinct {
				ids = append(ids, id)
			}

			batch, err := p.data.GetPullPaymentBatch(ctx, ids...)
			if err != nil {
				return nil, err
			}
			for _, item := range batch {
				related[item.PullPaymentId] = item
			}
		}
	}

	res := make([]*PayoutDetails, 0, len(records))
	for _, record := range records {
		details := &PayoutDetails{Payout: record}

		if record.PullPaymentId != nil && needRelated {
			parent := related[*record.PullPaymentId]
			if !params.IncludeArchived && (parent == nil || parent.Archived) {
				continue
			}
			if params.IncludePullPayments {
				details.PullPayment = parent
			}
		}

		res = append(res, details)
	}

	return res, nil
}
