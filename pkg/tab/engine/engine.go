package engine

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/tabpay/tab-server/pkg/database/query"
	"github.com/tabpay/tab-server/pkg/tab/async"
	tab_data "github.com/tabpay/tab-server/pkg/tab/data"
	"github.com/tabpay/tab-server/pkg/tab/data/payout"
	"github.com/tabpay/tab-server/pkg/tab/data/pullpayment"
	"github.com/tabpay/tab-server/pkg/tab/event"
	"github.com/tabpay/tab-server/pkg/tab/payoutmethod"
	"github.com/tabpay/tab-server/pkg/tab/rate"
)

var (
	ErrEngineStopped = errors.New("payout engine stopped")
)

// Engine owns the serialized mutation path for pull payment budgets and
// payout state. All mutating calls are funneled through a single consumer
// loop, which is what makes the overdraft check correct without row locks.
type Engine interface {
	async.Service

	// CreatePullPayment creates a new pre-funded budget and returns its id.
	// This call does not go through the serialized queue; there is no shared
	// budget to race on at creation time.
	CreatePullPayment(ctx context.Context, params CreatePullPaymentParams) (string, error)

	// Claim creates a payout against a destination, optionally drawing from
	// a pull payment's budget.
	Claim(ctx context.Context, params ClaimParams) (*ClaimResult, error)

	// Approve converts and approves an awaiting payout at the given rate,
	// guarded by the payout's revision counter.
	Approve(ctx context.Context, payoutId string, expectedRevision uint64, approvalRate decimal.Decimal) (*ApproveResult, error)

	// MarkPaid drives a payout through the payment half of the state machine.
	MarkPaid(ctx context.Context, params MarkPaidParams) (*MarkPaidResult, error)

	// Cancel cancels a batch of payouts, or archives a whole pull payment
	// and cancels everything non-terminal under it. Returns a per payout
	// result map.
	Cancel(ctx context.Context, params CancelParams) (map[string]UpdateResultKind, error)

	// GetPayouts reads payouts directly from the store, bypassing the queue.
	GetPayouts(ctx context.Context, params GetPayoutsParams, opts ...query.Option) ([]*PayoutDetails, error)

	// GetPullPayment reads a pull payment directly from the store, bypassing
	// the queue.
	GetPullPayment(ctx context.Context, pullPaymentId string) (*pullpayment.Record, error)

	// GetRate resolves the current bid rate for a currency pair.
	GetRate(ctx context.Context, pair rate.Pair, rules *rate.RuleSet) (decimal.Decimal, error)

	// CalculateProgress derives budget consumption for a pull payment.
	CalculateProgress(ctx context.Context, pullPaymentId string, now time.Time) (*Progress, error)
}

type service struct {
	log       *logrus.Entry
	conf      *conf
	data      tab_data.Provider
	registry  *payoutmethod.Registry
	bus       *event.Bus
	converter rate.Converter

	mailbox *mailbox
}

func New(data tab_data.Provider, registry *payoutmethod.Registry, bus *event.Bus, converter rate.Converter, configProvider ConfigProvider) Engine {
	return &service{
		log:       logrus.StandardLogger().WithField("service", "payout_engine"),
		conf:      configProvider(),
		data:      data,
		registry:  registry,
		bus:       bus,
		converter: converter,
		mailbox:   newMailbox(),
	}
}

func (p *service) Start(ctx context.Context, interval time.Duration) error {
	for _, handler := range p.registry.All() {
		handler.StartBackgroundCheck(ctx, p.bus.Subscribe)
	}

	// Completed invoices tagged with a pull payment top its budget back up
	p.bus.Subscribe(p.onInvoiceCompleted, event.InvoiceCompleted)

	go func() {
		err := p.consumerWorker(ctx)
		if err != nil && err != context.Canceled {
			p.log.WithError(err).Warn("payout processing loop terminated unexpectedly")
		}
	}()

	go func() {
		err := p.metricsGaugeWorker(ctx, interval)
		if err != nil && err != context.Canceled {
			p.log.WithError(err).Warn("payout metrics gauge loop terminated unexpectedly")
		}
	}()

	<-ctx.Done()
	return ctx.Err()
}

// consumerWorker drains the mailbox strictly in arrival order. On shutdown it
// finishes the in-flight item, then fails everything still queued so callers
// never hang.
func (p *service) consumerWorker(serviceCtx context.Context) error {
	for {
		select {
		case <-serviceCtx.Done():
			for _, item := range p.mailbox.close() {
				p.failItem(item, ErrEngineStopped)
			}
			return serviceCtx.Err()
		case <-p.mailbox.signal:
			for {
				item, ok := p.mailbox.pop()
				if !ok {
					break
				}
				p.process(item)
			}
		}
	}
}

func (p *service) process(item interface{}) {
	// Items committed after shutdown began still need to apply, so per-item
	// work is not bound to the service context.
	ctx := context.Background()

	defer func() {
		if r := recover(); r != nil {
			err := errors.Errorf("panic while processing queue item: %v", r)
			p.log.WithError(err).Warn("recovered from panic in payout processing loop")
			p.failItem(item, err)
		}
	}()

	start := time.Now()

	switch req := item.(type) {
	case *topUpRequest:
		p.handleTopUp(ctx, req)
		recordQueueItemEvent(ctx, "top_up", "ok", time.Since(start))
	case *claimRequest:
		result, err := p.handleClaim(ctx, req.params)
		req.res <- claimOutcome{result: result, err: err}
		outcome := "error"
		if err == nil {
			outcome = result.Kind.String()
		}
		recordQueueItemEvent(ctx, "claim", outcome, time.Since(start))
	case *approveRequest:
		result, err := p.handleApprove(ctx, req.payoutId, req.expectedRevision, req.rate)
		req.res <- approveOutcome{result: result, err: err}
		outcome := "error"
		if err == nil {
			outcome = result.Kind.String()
		}
		recordQueueItemEvent(ctx, "approve", outcome, time.Since(start))
	case *markPaidRequest:
		result, err := p.handleMarkPaid(ctx, req.params)
		req.res <- markPaidOutcome{result: result, err: err}
		outcome := "error"
		if err == nil {
			outcome = result.Kind.String()
		}
		recordQueueItemEvent(ctx, "mark_paid", outcome, time.Since(start))
	case *cancelRequest:
		results, err := p.handleCancel(ctx, req.params)
		req.res <- cancelOutcome{results: results, err: err}
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		recordQueueItemEvent(ctx, "cancel", outcome, time.Since(start))
	default:
		p.log.Warnf("dropping unexpected queue item of type %T", item)
		return
	}

	p.forwardToBackgroundChecks(ctx, item)
}

// failItem resolves a completion handle with an error without blocking, in
// case the handle was already resolved before a panic.
func (p *service) failItem(item interface{}, err error) {
	switch req := item.(type) {
	case *claimRequest:
		select {
		case req.res <- claimOutcome{err: err}:
		default:
		}
	case *approveRequest:
		select {
		case req.res <- approveOutcome{err: err}:
		default:
		}
	case *markPaidRequest:
		select {
		case req.res <- markPaidOutcome{err: err}:
		default:
		}
	case *cancelRequest:
		select {
		case req.res <- cancelOutcome{err: err}:
		default:
		}
	}
}

// forwardToBackgroundChecks fans each committed queue item out to every
// registered handler, best effort. A failing or panicking handler cannot
// stall the loop.
func (p *service) forwardToBackgroundChecks(ctx context.Context, item interface{}) {
	if p.conf.disableBackgroundChecks.Get(ctx) {
		return
	}

	for methodId, handler := range p.registry.All() {
		func() {
			log := p.log.WithFields(logrus.Fields{
				"method":           "forwardToBackgroundChecks",
				"payout_method_id": methodId,
			})

			defer func() {
				if r := recover(); r != nil {
					log.Warnf("background check panicked: %v", r)
				}
			}()

			if err := handler.BackgroundCheck(ctx, item); err != nil {
				log.WithError(err).Warn("background check failed")
			}
		}()
	}
}

func (p *service) onInvoiceCompleted(_ context.Context, e *event.Event) {
	if len(e.PullPaymentId) == 0 {
		return
	}

	err := p.mailbox.push(&topUpRequest{
		invoiceId:     e.InvoiceId,
		pullPaymentId: e.PullPaymentId,
		amount:        e.Amount,
		currency:      e.Currency,
	})
	if err != nil {
		p.log.WithError(err).WithField("invoice_id", e.InvoiceId).Warn("dropping top up for completed invoice")
	}
}

// Claim implements Engine.Claim
func (p *service) Claim(ctx context.Context, params ClaimParams) (*ClaimResult, error) {
	req := &claimRequest{
		params: params,
		res:    make(chan claimOutcome, 1),
	}
	if err := p.mailbox.push(req); err != nil {
		return nil, err
	}

	// Cancelling the wait does not withdraw the queued item; the mutation
	// still applies.
	select {
	case out := <-req.res:
		return out.result, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Approve implements Engine.Approve
func (p *service) Approve(ctx context.Context, payoutId string, expectedRevision uint64, approvalRate decimal.Decimal) (*ApproveResult, error) {
	req := &approveRequest{
		payoutId:         payoutId,
		expectedRevision: expectedRevision,
		rate:             approvalRate,
		res:              make(chan approveOutcome, 1),
	}
	if err := p.mailbox.push(req); err != nil {
		return nil, err
	}

	select {
	case out := <-req.res:
		return out.result, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// MarkPaid implements Engine.MarkPaid
func (p *service) MarkPaid(ctx context.Context, params MarkPaidParams) (*MarkPaidResult, error) {
	req := &markPaidRequest{
		params: params,
		res:    make(chan markPaidOutcome, 1),
	}
	if err := p.mailbox.push(req); err != nil {
		return nil, err
	}

	select {
	case out := <-req.res:
		return out.result, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cancel implements Engine.Cancel
func (p *service) Cancel(ctx context.Context, params CancelParams) (map[string]UpdateResultKind, error) {
	req := &cancelRequest{
		params: params,
		res:    make(chan cancelOutcome, 1),
	}
	if err := p.mailbox.push(req); err != nil {
		return nil, err
	}

	select {
	case out := <-req.res:
		return out.results, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// GetPullPayment implements Engine.GetPullPayment
func (p *service) GetPullPayment(ctx context.Context, pullPaymentId string) (*pullpayment.Record, error) {
	return p.data.GetPullPayment(ctx, pullPaymentId)
}

// GetRate implements Engine.GetRate
func (p *service) GetRate(ctx context.Context, pair rate.Pair, rules *rate.RuleSet) (decimal.Decimal, error) {
	bidAsk, err := p.converter.FetchRate(ctx, pair, rules)
	if err != nil {
		return decimal.Zero, err
	}
	return bidAsk.Bid, nil
}

// getAllPayoutsByFilter pages through every payout matching the filter. The
// budget math must see the full set, not the first page.
func (p *service) getAllPayoutsByFilter(ctx context.Context, filter payout.Filter) ([]*payout.Record, error) {
	batchSize := p.conf.queryBatchSize.Get(ctx)

	var res []*payout.Record
	var cursor query.Cursor
	for {
		opts := []query.Option{query.WithLimit(batchSize)}
		if len(cursor) > 0 {
			opts = append(opts, query.WithCursor(cursor))
		}

		batch, err := p.data.GetAllPayoutsByFilter(ctx, filter, opts...)
		if err != nil {
			return nil, err
		}

		res = append(res, batch...)
		if uint64(len(batch)) < batchSize {
			return res, nil
		}
		cursor = query.ToCursor(batch[len(batch)-1].Id)
	}
}
