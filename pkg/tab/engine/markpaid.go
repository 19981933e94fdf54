package engine

import (
	"context"

	"github.com/tabpay/tab-server/pkg/tab/data/payout"
	"github.com/tabpay/tab-server/pkg/tab/event"
)

func (p *service) handleMarkPaid(ctx context.Context, params MarkPaidParams) (*MarkPaidResult, error) {
	record, err := p.data.GetPayout(ctx, params.PayoutId)
	if err == payout.ErrPayoutNotFound {
		return &MarkPaidResult{Kind: UpdateNotFound, Message: "payout does not exist"}, nil
	} else if err != nil {
		return nil, err
	}

	target := params.State

	// Completed is final, and MarkPaid only ever targets the payment half of
	// the state machine.
	if record.State == payout.StateCompleted {
		return &MarkPaidResult{Kind: UpdateInvalidState, Message: "payout is already completed"}, nil
	}

	switch target {
	case payout.StateInProgress, payout.StateCompleted:
		if record.State != payout.StateAwaitingPayment && record.State != payout.StateInProgress {
			return &MarkPaidResult{Kind: UpdateInvalidState, Message: "payout is not awaiting payment"}, nil
		}
		record.Proof = params.Proof
	case payout.StateAwaitingPayment:
		if record.State != payout.StateInProgress {
			return &MarkPaidResult{Kind: UpdateInvalidState, Message: "payout is not in progress"}, nil
		}
		record.Proof = nil
	default:
		return &MarkPaidResult{Kind: UpdateInvalidState, Message: "unexpected target state"}, nil
	}

	if params.Metadata != nil {
		record.Metadata = params.Metadata
	}

	record.State = target
	record.Revision++

	if err := p.data.UpdatePayouts(ctx, record); err != nil {
		return nil, err
	}

	p.bus.Publish(ctx, event.NewPayoutEvent(event.PayoutUpdated, record))

	return &MarkPaidResult{Kind: UpdateOk}, nil
}
