package engine

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tabpay/tab-server/pkg/currency"
	"github.com/tabpay/tab-server/pkg/tab/common"
	"github.com/tabpay/tab-server/pkg/tab/data/payout"
	"github.com/tabpay/tab-server/pkg/tab/event"
	"github.com/tabpay/tab-server/pkg/tab/payoutmethod"
)

// handleTopUp records money added back into a pull payment's budget as a
// negative, already completed payout on the reserved top-up method. There is
// no caller to resolve; failures are logged and dropped.
func (p *service) handleTopUp(ctx context.Context, req *topUpRequest) {
	log := p.log.WithFields(logrus.Fields{
		"method":          "handleTopUp",
		"invoice_id":      req.invoiceId,
		"pull_payment_id": req.pullPaymentId,
	})

	record, err := p.data.GetPullPayment(ctx, req.pullPaymentId)
	if err != nil {
		log.WithError(err).Warn("failure getting pull payment for top up")
		return
	}

	if req.currency != record.Currency {
		log.Warnf("dropping top up in %s against a %s pull payment", req.currency, record.Currency)
		return
	}
	if !currency.IsCrypto(record.Currency) {
		log.Warn("dropping top up for a non-crypto pull payment")
		return
	}

	amount := req.amount.Neg()
	topUp := &payout.Record{
		PayoutId: common.NewId(),

		PullPaymentId: &req.pullPaymentId,

		StoreId:  record.StoreId,
		MethodId: payoutmethod.TopUpMethodId,

		State: payout.StateCompleted,

		Currency:         record.Currency,
		OriginalCurrency: record.Currency,
		OriginalAmount:   &amount,
		Amount:           &amount,

		Destination: req.invoiceId,

		CreatedAt: time.Now(),
	}

	if err := p.data.CreatePayout(ctx, topUp); err != nil {
		log.WithError(err).Warn("failure creating top up payout")
		return
	}

	recordTopUpEvent(ctx, req.pullPaymentId)
	p.bus.Publish(ctx, event.NewPayoutEvent(event.PayoutCreated, topUp))
}
