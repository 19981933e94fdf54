package engine

import (
	"context"
	"time"

	"github.com/tabpay/tab-server/pkg/metrics"
	"github.com/tabpay/tab-server/pkg/tab/data/payout"
)

const (
	queueDepthEventName  = "PayoutQueuePollingCheck"
	payoutCountEventName = "PayoutCountPollingCheck"
	queueItemEventName   = "PayoutQueueItemProcessed"
	claimEventName       = "PayoutClaimed"
	topUpEventName       = "PullPaymentToppedUp"
)

func (p *service) metricsGaugeWorker(ctx context.Context, interval time.Duration) error {
	delay := interval

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
			start := time.Now()

			recordQueueDepthEvent(ctx, p.mailbox.len())

			for _, state := range []payout.State{
				payout.StateAwaitingApproval,
				payout.StateAwaitingPayment,
				payout.StateInProgress,
				payout.StateCompleted,
				payout.StateCancelled,
			} {
				count, err := p.data.CountPayoutsByFilter(ctx, payout.Filter{
					States: []payout.State{state},
				})
				if err != nil {
					continue
				}
				recordPayoutCountEvent(ctx, state, count)
			}

			delay = interval - time.Since(start)
		}
	}
}

func recordQueueDepthEvent(ctx context.Context, depth int) {
	metrics.RecordEvent(ctx, queueDepthEventName, map[string]interface{}{
		"queue_depth": depth,
	})
}

func recordPayoutCountEvent(ctx context.Context, state payout.State, count uint64) {
	metrics.RecordEvent(ctx, payoutCountEventName, map[string]interface{}{
		"count": count,
		"state": state.String(),
	})
}

func recordQueueItemEvent(ctx context.Context, requestType, outcome string, latency time.Duration) {
	metrics.RecordEvent(ctx, queueItemEventName, map[string]interface{}{
		"request_type": requestType,
		"outcome":      outcome,
		"latency_ms":   latency.Milliseconds(),
	})
}

func recordClaimEvent(ctx context.Context, methodId string, kind ClaimResultKind) {
	metrics.RecordEvent(ctx, claimEventName, map[string]interface{}{
		"payout_method_id": methodId,
		"result":           kind.String(),
	})
}

func recordTopUpEvent(ctx context.Context, pullPaymentId string) {
	metrics.RecordEvent(ctx, topUpEventName, map[string]interface{}{
		"pull_payment_id": pullPaymentId,
	})
}
