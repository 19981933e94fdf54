package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/tabpay/tab-server/pkg/currency"
	tab_data "github.com/tabpay/tab-server/pkg/tab/data"
	"github.com/tabpay/tab-server/pkg/tab/data/payout"
	"github.com/tabpay/tab-server/pkg/tab/event"
	"github.com/tabpay/tab-server/pkg/tab/payoutmethod"
	"github.com/tabpay/tab-server/pkg/tab/rate"
)

const testMethodId = "btc-lightning"

type mockDestination struct {
	address string
	amount  *decimal.Decimal
	dedupId *string
}

func (d *mockDestination) Address() string          { return d.address }
func (d *mockDestination) Amount() *decimal.Decimal { return d.amount }
func (d *mockDestination) DedupId() *string         { return d.dedupId }

type mockHandler struct {
	mu sync.Mutex

	currency     currency.Code
	divisibility int32
	minimum      decimal.Decimal

	// Raw destinations with embedded amounts or dedup ids
	destinations map[string]*mockDestination

	trackedClaims   []string
	backgroundItems []interface{}
}

func newMockHandler() *mockHandler {
	return &mockHandler{
		currency:     currency.SATS,
		divisibility: 0,
		destinations: make(map[string]*mockDestination),
	}
}

func (h *mockHandler) Currency() currency.Code {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.currency
}

func (h *mockHandler) Divisibility() int32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.divisibility
}

func (h *mockHandler) ParseDestination(_ context.Context, raw string) (payoutmethod.Destination, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if destination, ok := h.destinations[raw]; ok {
		return destination, nil
	}
	return &mockDestination{address: raw}, nil
}

func (h *mockHandler) MinimumPayoutAmount(_ context.Context, _ payoutmethod.Destination) (decimal.Decimal, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.minimum, nil
}

func (h *mockHandler) TrackClaim(_ context.Context, _ payoutmethod.Destination, record *payout.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.trackedClaims = append(h.trackedClaims, record.PayoutId)
	return nil
}

func (h *mockHandler) StartBackgroundCheck(_ context.Context, _ func(handler event.Handler, types ...event.Type)) {
}

func (h *mockHandler) BackgroundCheck(_ context.Context, item interface{}) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.backgroundItems = append(h.backgroundItems, item)
	return nil
}

func (h *mockHandler) getBackgroundItemCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.backgroundItems)
}

func (h *mockHandler) getTrackedClaims() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string{}, h.trackedClaims...)
}

func (h *mockHandler) setCurrency(code currency.Code, divisibility int32) {
	h.mu.Lock()
	h.currency = code
	h.divisibility = divisibility
	h.mu.Unlock()
}

func (h *mockHandler) setMinimum(minimum decimal.Decimal) {
	h.mu.Lock()
	h.minimum = minimum
	h.mu.Unlock()
}

func (h *mockHandler) setDestination(raw string, destination *mockDestination) {
	h.mu.Lock()
	h.destinations[raw] = destination
	h.mu.Unlock()
}

type testEnv struct {
	ctx     context.Context
	data    tab_data.Provider
	bus     *event.Bus
	handler *mockHandler
	engine  Engine
}

func setup(t *testing.T, overrides *testOverrides) (*testEnv, func()) {
	if overrides == nil {
		overrides = &testOverrides{disableBackgroundChecks: true}
	}

	data := tab_data.NewTestDataProvider()
	bus := event.NewBus()

	handler := newMockHandler()
	registry := payoutmethod.NewRegistry()
	require.NoError(t, registry.Register(testMethodId, handler))

	converter := rate.NewFixedConverter(map[rate.Pair]decimal.Decimal{
		{Base: currency.BTC, Quote: currency.USD}: decimal.NewFromInt(50000),
	})

	env := &testEnv{
		ctx:     context.Background(),
		data:    data,
		bus:     bus,
		handler: handler,
		engine:  New(data, registry, bus, converter, withManualTestOverrides(overrides)),
	}

	serviceCtx, cancel := context.WithCancel(context.Background())
	go env.engine.Start(serviceCtx, 100*time.Millisecond)

	// Give Start a moment to wire up bus subscriptions
	time.Sleep(50 * time.Millisecond)

	return env, cancel
}

func (env *testEnv) createPullPayment(t *testing.T, params CreatePullPaymentParams) string {
	if len(params.StoreId) == 0 {
		params.StoreId = "store1"
	}
	if len(params.Currency) == 0 {
		params.Currency = currency.SATS
	}
	if len(params.Name) == 0 {
		params.Name = "test pull payment"
		params.Description = "budget for testing"
	}
	if len(params.PayoutMethodIds) == 0 {
		params.PayoutMethodIds = []string{testMethodId}
	}

	id, err := env.engine.CreatePullPayment(env.ctx, params)
	require.NoError(t, err)
	return id
}

func (env *testEnv) claim(t *testing.T, pullPaymentId, destination string, amount int64) *ClaimResult {
	claimed := decimal.NewFromInt(amount)
	result, err := env.engine.Claim(env.ctx, ClaimParams{
		MethodId:      testMethodId,
		PullPaymentId: &pullPaymentId,
		ClaimedAmount: &claimed,
		Destination:   destination,
	})
	require.NoError(t, err)
	return result
}

func (env *testEnv) getPayout(t *testing.T, payoutId string) *payout.Record {
	record, err := env.data.GetPayout(env.ctx, payoutId)
	require.NoError(t, err)
	return record
}
