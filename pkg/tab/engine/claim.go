package engine

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/tabpay/tab-server/pkg/currency"
	"github.com/tabpay/tab-server/pkg/tab/common"
	"github.com/tabpay/tab-server/pkg/tab/data/payout"
	"github.com/tabpay/tab-server/pkg/tab/data/pullpayment"
	"github.com/tabpay/tab-server/pkg/tab/event"
	"github.com/tabpay/tab-server/pkg/tab/payoutmethod"
	"github.com/tabpay/tab-server/pkg/tab/rate"
)

var (
	ErrMissingStoreId     = errors.New("store id is required for a payout without a pull payment")
	ErrInvalidDestination = errors.New("destination could not be parsed")
)

var nonTerminalStates = []payout.State{
	payout.StateAwaitingApproval,
	payout.StateAwaitingPayment,
	payout.StateInProgress,
}

func (p *service) handleClaim(ctx context.Context, params ClaimParams) (*ClaimResult, error) {
	log := p.log.WithFields(logrus.Fields{
		"method":           "handleClaim",
		"payout_method_id": params.MethodId,
	})

	now := time.Now()

	var pullPaymentRecord *pullpayment.Record
	if params.PullPaymentId != nil {
		var err error
		pullPaymentRecord, err = p.data.GetPullPayment(ctx, *params.PullPaymentId)
		if err != nil {
			return nil, err
		}

		switch {
		case pullPaymentRecord.Archived:
			return claimFailure(ctx, params.MethodId, ClaimArchived, "pull payment is archived"), nil
		case pullPaymentRecord.IsExpired(now):
			return claimFailure(ctx, params.MethodId, ClaimExpired, "pull payment has expired"), nil
		case !pullPaymentRecord.HasStarted(now):
			return claimFailure(ctx, params.MethodId, ClaimNotStarted, "pull payment has not started"), nil
		}

		if !pullPaymentRecord.SupportsMethod(params.MethodId) {
			return claimFailure(ctx, params.MethodId, ClaimPaymentMethodNotSupported, "payout method not supported by pull payment"), nil
		}
	} else if len(params.StoreId) == 0 {
		return nil, ErrMissingStoreId
	}

	handler, ok := p.registry.Get(params.MethodId)
	if !ok {
		return claimFailure(ctx, params.MethodId, ClaimPaymentMethodNotSupported, "no handler registered for payout method"), nil
	}

	destination, err := handler.ParseDestination(ctx, params.Destination)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidDestination, err.Error())
	}

	if destination.DedupId() != nil {
		existing, err := p.getAllPayoutsByFilter(ctx, payout.Filter{
			DedupIds: []string{*destination.DedupId()},
			States:   nonTerminalStates,
		})
		if err != nil {
			return nil, err
		}
		if len(existing) > 0 {
			return claimFailure(ctx, params.MethodId, ClaimDuplicate, "an active payout to this destination already exists"), nil
		}
	}

	claimCurrency := handler.Currency()
	if pullPaymentRecord != nil {
		claimCurrency = pullPaymentRecord.Currency
	}

	claimedAmount, failure := reconcileClaimedAmount(
		params.ClaimedAmount,
		destination.Amount(),
		handler.Currency(),
		claimCurrency,
		pullPaymentRecord == nil,
	)
	if failure != nil {
		recordClaimEvent(ctx, params.MethodId, failure.Kind)
		return failure, nil
	}

	if pullPaymentRecord != nil {
		spent, err := p.sumActiveClaims(ctx, pullPaymentRecord.PullPaymentId)
		if err != nil {
			return nil, err
		}
		if spent.Add(*claimedAmount).GreaterThan(pullPaymentRecord.Limit) {
			return claimFailure(ctx, params.MethodId, ClaimOverdraft, "claim exceeds the pull payment's remaining budget"), nil
		}

		if claimedAmount.LessThan(pullPaymentRecord.MinimumClaim) {
			return claimFailure(ctx, params.MethodId, ClaimAmountTooLow, "claimed amount is below the pull payment's minimum"), nil
		}
	}
	if claimedAmount != nil && !claimedAmount.IsPositive() {
		return claimFailure(ctx, params.MethodId, ClaimAmountTooLow, "claimed amount must be positive"), nil
	}

	storeId := params.StoreId
	if pullPaymentRecord != nil {
		storeId = pullPaymentRecord.StoreId
	}

	record := &payout.Record{
		PayoutId: common.NewId(),

		PullPaymentId: params.PullPaymentId,

		StoreId:  storeId,
		MethodId: params.MethodId,

		State: payout.StateAwaitingApproval,

		Currency:         handler.Currency(),
		OriginalCurrency: claimCurrency,
		OriginalAmount:   claimedAmount,

		DedupId: destination.DedupId(),

		Destination:        params.Destination,
		Metadata:           params.Metadata,
		NonInteractiveOnly: params.NonInteractiveOnly,

		CreatedAt: now,
	}

	if err := p.data.CreatePayout(ctx, record); err != nil {
		if err == payout.ErrPayoutAlreadyExists {
			// Raced a retried request outside the queue's protection
			return claimFailure(ctx, params.MethodId, ClaimDuplicate, "an active payout to this destination already exists"), nil
		}
		return nil, err
	}

	if err := handler.TrackClaim(ctx, destination, record); err != nil {
		log.WithError(err).Warn("failure tracking claim with payout method handler")
	}

	p.bus.Publish(ctx, event.NewPayoutEvent(event.PayoutCreated, record))

	if p.shouldAutoApprove(params, pullPaymentRecord) && record.OriginalAmount != nil {
		p.autoApprove(ctx, record, handler)
	}

	recordClaimEvent(ctx, params.MethodId, ClaimOk)

	snapshot := record.Clone()
	return &ClaimResult{
		Kind:   ClaimOk,
		Payout: &snapshot,
	}, nil
}

// reconcileClaimedAmount resolves the effective claimed amount from the
// explicitly claimed amount and the destination's embedded amount. The
// destination amount is a ceiling on claims, not a target; when both are
// given the destination may claim less, never more.
func reconcileClaimedAmount(claimed, destAmount *decimal.Decimal, destCurrency, claimCurrency currency.Code, allowEmpty bool) (*decimal.Decimal, *ClaimResult) {
	comparable := currency.IsUnitComparable(destCurrency, claimCurrency)

	var destInClaimUnits *decimal.Decimal
	if destAmount != nil && comparable {
		converted := currency.ConvertComparableUnits(*destAmount, destCurrency, claimCurrency)
		destInClaimUnits = &converted
	}

	switch {
	case claimed == nil && destInClaimUnits == nil:
		if allowEmpty {
			return nil, nil
		}
		return nil, &ClaimResult{
			Kind:    ClaimAmountTooLow,
			Message: "an amount must be specified",
		}
	case claimed == nil:
		return destInClaimUnits, nil
	case destInClaimUnits == nil:
		return claimed, nil
	case destInClaimUnits.GreaterThan(*claimed):
		return nil, &ClaimResult{
			Kind:    ClaimAmountTooLow,
			Message: "destination amount is more than the claimed amount",
		}
	case destInClaimUnits.LessThan(*claimed):
		return destInClaimUnits, nil
	default:
		return claimed, nil
	}
}

// sumActiveClaims totals OriginalAmount over every non-cancelled payout on
// the pull payment. Completed top-ups carry negative amounts and extend the
// budget.
func (p *service) sumActiveClaims(ctx context.Context, pullPaymentId string) (decimal.Decimal, error) {
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
		return decimal.Zero, err
	}

	sum := decimal.Zero
	for _, record := range records {
		if record.OriginalAmount != nil {
			sum = sum.Add(*record.OriginalAmount)
		}
	}
	return sum, nil
}

func (p *service) shouldAutoApprove(params ClaimParams, pullPaymentRecord *pullpayment.Record) bool {
	if params.PreApprove != nil {
		return *params.PreApprove
	}
	return pullPaymentRecord != nil && pullPaymentRecord.AutoApproveClaims
}

// autoApprove runs the approval algorithm in-line at the current best rate.
// Any approval failure cancels the payout but never fails the claim itself;
// the claim was accepted, only the optional auto-approval fell through.
func (p *service) autoApprove(ctx context.Context, record *payout.Record, handler payoutmethod.Handler) {
	log := p.log.WithFields(logrus.Fields{
		"method":    "autoApprove",
		"payout_id": record.PayoutId,
	})

	approvalRate := one
	if record.OriginalCurrency != handler.Currency() {
		var err error
		approvalRate, err = p.GetRate(ctx, rate.Pair{
			Base:  handler.Currency(),
			Quote: record.OriginalCurrency,
		}, nil)
		if err != nil {
			log.WithError(err).Warn("failure fetching rate; cancelling payout")
			p.cancelPayout(ctx, record)
			return
		}
	}

	result, err := p.approvePayout(ctx, record, approvalRate)
	if err != nil {
		log.WithError(err).Warn("failure auto approving; cancelling payout")
		p.cancelPayout(ctx, record)
		return
	}
	if result.Kind != ApproveOk && record.State != payout.StateCancelled {
		p.cancelPayout(ctx, record)
	}
}

func (p *service) cancelPayout(ctx context.Context, record *payout.Record) {
	record.State = payout.StateCancelled
	record.Revision++
	if err := p.data.UpdatePayouts(ctx, record); err != nil {
		p.log.WithError(err).WithField("payout_id", record.PayoutId).Warn("failure cancelling payout")
		return
	}
	p.bus.Publish(ctx, event.NewPayoutEvent(event.PayoutUpdated, record))
}

func claimFailure(ctx context.Context, methodId string, kind ClaimResultKind, message string) *ClaimResult {
	recordClaimEvent(ctx, methodId, kind)
	return &ClaimResult{
		Kind:    kind,
		Message: message,
	}
}
