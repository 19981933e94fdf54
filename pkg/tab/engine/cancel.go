package engine

import (
	"context"

	"github.com/tabpay/tab-server/pkg/tab/data/payout"
	"github.com/tabpay/tab-server/pkg/tab/data/pullpayment"
	"github.com/tabpay/tab-server/pkg/tab/event"
)

func (p *service) handleCancel(ctx context.Context, params CancelParams) (map[string]UpdateResultKind, error) {
	results := make(map[string]UpdateResultKind)
	var toCancel []*payout.Record

	if params.PullPaymentId != nil {
		record, err := p.data.GetPullPayment(ctx, *params.PullPaymentId)
		if err != nil {
			return nil, err
		}
		if !storeAllowed(params.StoreIds, record.StoreId) {
			return nil, pullpayment.ErrPullPaymentNotFound
		}

		selected, err := p.getAllPayoutsByFilter(ctx, payout.Filter{
			PullPaymentIds: []string{record.PullPaymentId},
			States:         nonTerminalStates,
		})
		if err != nil {
			return nil, err
		}

		for _, item := range selected {
			// Payouts already settling cannot be pulled back
			if item.State == payout.StateInProgress {
				results[item.PayoutId] = UpdateInvalidState
				continue
			}

			item.State = payout.StateCancelled
			item.Revision++
			toCancel = append(toCancel, item)
			results[item.PayoutId] = UpdateOk
		}

		record.Archived = true
		if err := p.data.UpdatePullPayment(ctx, record); err != nil {
			return nil, err
		}
	} else {
		for _, payoutId := range params.PayoutIds {
			item, err := p.data.GetPayout(ctx, payoutId)
			if err == payout.ErrPayoutNotFound {
				results[payoutId] = UpdateNotFound
				continue
			} else if err != nil {
				return nil, err
			}

			if !storeAllowed(params.StoreIds, item.StoreId) {
				results[payoutId] = UpdateNotFound
				continue
			}

			switch item.State {
			case payout.StateAwaitingApproval, payout.StateAwaitingPayment:
				item.State = payout.StateCancelled
				item.Revision++
				toCancel = append(toCancel, item)
				results[payoutId] = UpdateOk
			default:
				results[payoutId] = UpdateInvalidState
			}
		}
	}

	// One commit for the whole batch
	if len(toCancel) > 0 {
		if err := p.data.UpdatePayouts(ctx, toCancel...); err != nil {
			return nil, err
		}

		for _, item := range toCancel {
			p.bus.Publish(ctx, event.NewPayoutEvent(event.PayoutUpdated, item))
		}
	}

	return results, nil
}

func storeAllowed(allowList []string, storeId string) bool {
	if len(allowList) == 0 {
		return true
	}
	for _, item := range allowList {
		if item == storeId {
			return true
		}
	}
	return false
}
