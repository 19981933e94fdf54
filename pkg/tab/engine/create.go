package engine

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/tabpay/tab-server/pkg/tab/common"
	"github.com/tabpay/tab-server/pkg/tab/data/pullpayment"
)

var (
	ErrNoSupportedPayoutMethods = errors.New("no requested payout method has a registered handler")
	ErrInvalidLimit             = errors.New("pull payment limit must be positive")
)

// CreatePullPayment implements Engine.CreatePullPayment
func (p *service) CreatePullPayment(ctx context.Context, params CreatePullPaymentParams) (string, error) {
	if !params.Amount.IsPositive() {
		return "", ErrInvalidLimit
	}

	supportedMethods := make([]string, 0, len(params.PayoutMethodIds))
	for _, methodId := range params.PayoutMethodIds {
		if _, ok := p.registry.Get(methodId); ok {
			supportedMethods = append(supportedMethods, methodId)
		}
	}
	if len(supportedMethods) == 0 {
		return "", ErrNoSupportedPayoutMethods
	}

	now := time.Now()

	// Backdate slightly so "starts now" has not already passed by the time
	// the record persists.
	startsAt := now.Add(-time.Second)
	if params.StartsAt != nil {
		startsAt = *params.StartsAt
	}

	bolt11Expiry := params.Bolt11Expiry
	if bolt11Expiry == 0 {
		bolt11Expiry = time.Duration(p.conf.defaultBolt11ExpiryDays.Get(ctx)) * 24 * time.Hour
	}

	record := &pullpayment.Record{
		PullPaymentId: common.NewId(),

		StoreId:  params.StoreId,
		Currency: params.Currency,
		Limit:    params.Amount,

		StartsAt:  startsAt,
		ExpiresAt: params.ExpiresAt,

		Name:              params.Name,
		Description:       params.Description,
		SupportedMethods:  supportedMethods,
		AutoApproveClaims: params.AutoApproveClaims,
		MinimumClaim:      params.MinimumClaim,
		Bolt11Expiry:      bolt11Expiry,

		CreatedAt: now,
	}

	if err := p.data.CreatePullPayment(ctx, record); err != nil {
		return "", err
	}

	return record.PullPaymentId, nil
}
