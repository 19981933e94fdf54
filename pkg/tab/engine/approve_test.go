package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabpay/tab-server/pkg/currency"
	"github.com/tabpay/tab-server/pkg/tab/data/payout"
)

func TestApprove_NotFound(t *testing.T) {
	env, teardown := setup(t, nil)
	defer teardown()

	result, err := env.engine.Approve(env.ctx, "missing", 0, decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.Equal(t, ApproveNotFound, result.Kind)
}

func TestApprove_InvalidState(t *testing.T) {
	env, teardown := setup(t, nil)
	defer teardown()

	pullPaymentId := env.createPullPayment(t, CreatePullPaymentParams{
		Amount: decimal.NewFromInt(100),
	})

	claimResult := env.claim(t, pullPaymentId, "lnbc1", 40)
	require.Equal(t, ClaimOk, claimResult.Kind)
	payoutId := claimResult.Payout.PayoutId

	result, err := env.engine.Approve(env.ctx, payoutId, 0, decimal.NewFromInt(1))
	require.NoError(t, err)
	require.Equal(t, ApproveOk, result.Kind)

	// Approving twice is rejected and leaves the payout untouched
	result, err = env.engine.Approve(env.ctx, payoutId, 1, decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.Equal(t, ApproveInvalidState, result.Kind)

	record := env.getPayout(t, payoutId)
	assert.Equal(t, payout.StateAwaitingPayment, record.State)
}

func TestApprove_OldRevision(t *testing.T) {
	env, teardown := setup(t, nil)
	defer teardown()

	pullPaymentId := env.createPullPayment(t, CreatePullPaymentParams{
		Amount: decimal.NewFromInt(100),
	})

	claimResult := env.claim(t, pullPaymentId, "lnbc1", 40)
	require.Equal(t, ClaimOk, claimResult.Kind)

	result, err := env.engine.Approve(env.ctx, claimResult.Payout.PayoutId, 5, decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.Equal(t, ApproveOldRevision, result.Kind)

	record := env.getPayout(t, claimResult.Payout.PayoutId)
	assert.Equal(t, payout.StateAwaitingApproval, record.State)
}

func TestApprove_RateConversion(t *testing.T) {
	env, teardown := setup(t, nil)
	defer teardown()

	env.handler.setCurrency(currency.BTC, 8)

	pullPaymentId := env.createPullPayment(t, CreatePullPaymentParams{
		Currency: currency.USD,
		Amount:   decimal.NewFromInt(1000),
	})

	claimResult := env.claim(t, pullPaymentId, "bc1q1", 100)
	require.Equal(t, ClaimOk, claimResult.Kind)

	// 100 usd at 50,000 usd/btc
	result, err := env.engine.Approve(env.ctx, claimResult.Payout.PayoutId, 0, decimal.NewFromInt(50000))
	require.NoError(t, err)
	require.Equal(t, ApproveOk, result.Kind)
	assert.True(t, result.Amount.Equal(decimal.RequireFromString("0.002")))

	record := env.getPayout(t, claimResult.Payout.PayoutId)
	assert.Equal(t, currency.BTC, record.Currency)
	assert.Equal(t, currency.USD, record.OriginalCurrency)
	require.NotNil(t, record.Amount)
	assert.True(t, record.Amount.Equal(decimal.RequireFromString("0.002")))
}

func TestApprove_RoundsUpToDivisibility(t *testing.T) {
	env, teardown := setup(t, nil)
	defer teardown()

	env.handler.setCurrency(currency.BTC, 8)

	pullPaymentId := env.createPullPayment(t, CreatePullPaymentParams{
		Currency: currency.USD,
		Amount:   decimal.NewFromInt(1000),
	})

	claimResult := env.claim(t, pullPaymentId, "bc1q1", 100)
	require.Equal(t, ClaimOk, claimResult.Kind)

	// 100 / 30,000 = 0.00333333... rounds up at 8 decimal places
	result, err := env.engine.Approve(env.ctx, claimResult.Payout.PayoutId, 0, decimal.NewFromInt(30000))
	require.NoError(t, err)
	require.Equal(t, ApproveOk, result.Kind)
	assert.True(t, result.Amount.Equal(decimal.RequireFromString("0.00333334")))
}

func TestApprove_ForcedParRateForMatchingCurrencies(t *testing.T) {
	env, teardown := setup(t, nil)
	defer teardown()

	pullPaymentId := env.createPullPayment(t, CreatePullPaymentParams{
		Amount: decimal.NewFromInt(100),
	})

	claimResult := env.claim(t, pullPaymentId, "lnbc1", 40)
	require.Equal(t, ClaimOk, claimResult.Kind)

	// A bogus rate is ignored when the claim currency already matches the
	// method's settlement currency.
	result, err := env.engine.Approve(env.ctx, claimResult.Payout.PayoutId, 0, decimal.NewFromInt(12345))
	require.NoError(t, err)
	require.Equal(t, ApproveOk, result.Kind)
	assert.True(t, result.Amount.Equal(decimal.NewFromInt(40)))
}

func TestApprove_TooLowAmountCancelsPayout(t *testing.T) {
	env, teardown := setup(t, nil)
	defer teardown()

	env.handler.setMinimum(decimal.NewFromInt(50))

	pullPaymentId := env.createPullPayment(t, CreatePullPaymentParams{
		Amount: decimal.NewFromInt(100),
	})

	claimResult := env.claim(t, pullPaymentId, "lnbc1", 10)
	require.Equal(t, ClaimOk, claimResult.Kind)

	result, err := env.engine.Approve(env.ctx, claimResult.Payout.PayoutId, 0, decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.Equal(t, ApproveTooLowAmount, result.Kind)

	record := env.getPayout(t, claimResult.Payout.PayoutId)
	assert.Equal(t, payout.StateCancelled, record.State)

	// The cancelled claim no longer counts against the budget
	assert.Equal(t, ClaimOk, env.claim(t, pullPaymentId, "lnbc2", 100).Kind)
}
