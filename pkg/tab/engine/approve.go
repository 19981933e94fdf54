package engine

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/tabpay/tab-server/pkg/tab/data/payout"
	"github.com/tabpay/tab-server/pkg/tab/event"
)

var (
	ErrInvalidRate = errors.New("approval rate must be positive")
)

var one = decimal.NewFromInt(1)

func (p *service) handleApprove(ctx context.Context, payoutId string, expectedRevision uint64, approvalRate decimal.Decimal) (*ApproveResult, error) {
	record, err := p.data.GetPayout(ctx, payoutId)
	if err == payout.ErrPayoutNotFound {
		return &ApproveResult{Kind: ApproveNotFound, Message: "payout does not exist"}, nil
	} else if err != nil {
		return nil, err
	}

	if record.State != payout.StateAwaitingApproval {
		return &ApproveResult{Kind: ApproveInvalidState, Message: "payout is not awaiting approval"}, nil
	}

	if record.Revision != expectedRevision {
		return &ApproveResult{Kind: ApproveOldRevision, Message: "payout was modified since it was fetched"}, nil
	}

	return p.approvePayout(ctx, record, approvalRate)
}

// approvePayout converts the claimed amount into the method's settlement
// currency and moves the payout to AwaitingPayment, or cancels it when the
// converted amount is below the method's minimum. The caller has already
// validated state and revision.
func (p *service) approvePayout(ctx context.Context, record *payout.Record, approvalRate decimal.Decimal) (*ApproveResult, error) {
	handler, ok := p.registry.Get(record.MethodId)
	if !ok {
		return &ApproveResult{Kind: ApproveInvalidState, Message: "no handler registered for payout method"}, nil
	}

	if record.OriginalAmount == nil {
		return &ApproveResult{Kind: ApproveInvalidState, Message: "payout has no amount to approve"}, nil
	}

	// The rate prices the settlement currency in claim currency units, so
	// equal currencies always convert at par.
	if record.OriginalCurrency == handler.Currency() {
		approvalRate = one
	}
	if !approvalRate.IsPositive() {
		return nil, ErrInvalidRate
	}

	cryptoAmount := record.OriginalAmount.Div(approvalRate)

	destination, err := handler.ParseDestination(ctx, record.Destination)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidDestination, err.Error())
	}

	minimum, err := handler.MinimumPayoutAmount(ctx, destination)
	if err != nil {
		return nil, err
	}

	if cryptoAmount.LessThan(minimum) {
		p.cancelPayout(ctx, record)
		return &ApproveResult{Kind: ApproveTooLowAmount, Message: "converted amount is below the method's minimum payout"}, nil
	}

	amount := cryptoAmount.RoundUp(handler.Divisibility())
	record.Amount = &amount
	record.State = payout.StateAwaitingPayment
	record.Revision++

	if err := p.data.UpdatePayouts(ctx, record); err != nil {
		return nil, err
	}

	p.bus.Publish(ctx, event.NewPayoutEvent(event.PayoutApproved, record))

	return &ApproveResult{
		Kind:   ApproveOk,
		Amount: &amount,
	}, nil
}
