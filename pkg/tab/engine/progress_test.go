package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabpay/tab-server/pkg/tab/data/payout"
)

func TestCalculateProgress(t *testing.T) {
	env, teardown := setup(t, nil)
	defer teardown()

	pullPaymentId := env.createPullPayment(t, CreatePullPaymentParams{
		Amount: decimal.NewFromInt(100),
	})

	completed := env.claim(t, pullPaymentId, "lnbc1", 40).Payout.PayoutId
	_, err := env.engine.Approve(env.ctx, completed, 0, decimal.NewFromInt(1))
	require.NoError(t, err)
	require.Equal(t, UpdateOk, env.markPaid(t, completed, payout.StateCompleted))

	env.claim(t, pullPaymentId, "lnbc2", 10)

	cancelled := env.claim(t, pullPaymentId, "lnbc3", 25).Payout.PayoutId
	results, err := env.engine.Cancel(env.ctx, CancelParams{PayoutIds: []string{cancelled}})
	require.NoError(t, err)
	require.Equal(t, UpdateOk, results[cancelled])

	progress, err := env.engine.CalculateProgress(env.ctx, pullPaymentId, time.Now())
	require.NoError(t, err)

	assert.True(t, progress.Limit.Equal(decimal.NewFromInt(100)))
	assert.True(t, progress.Completed.Equal(decimal.NewFromInt(40)))
	assert.True(t, progress.CompletedPercent.Equal(decimal.NewFromInt(40)))
	assert.True(t, progress.Awaiting.Equal(decimal.NewFromInt(10)))
	assert.True(t, progress.AwaitingPercent.Equal(decimal.NewFromInt(10)))
	assert.Nil(t, progress.TimeRemaining)
}

func TestCalculateProgress_TimeRemaining(t *testing.T) {
	env, teardown := setup(t, nil)
	defer teardown()

	expiresAt := time.Now().Add(time.Hour)
	pullPaymentId := env.createPullPayment(t, CreatePullPaymentParams{
		Amount:    decimal.NewFromInt(100),
		ExpiresAt: &expiresAt,
	})

	progress, err := env.engine.CalculateProgress(env.ctx, pullPaymentId, time.Now())
	require.NoError(t, err)
	require.NotNil(t, progress.TimeRemaining)
	assert.True(t, *progress.TimeRemaining > 0)

	progress, err = env.engine.CalculateProgress(env.ctx, pullPaymentId, expiresAt.Add(time.Hour))
	require.NoError(t, err)
	require.NotNil(t, progress.TimeRemaining)
	assert.Equal(t, time.Duration(0), *progress.TimeRemaining)
}

func TestGetPayouts(t *testing.T) {
	env, teardown := setup(t, nil)
	defer teardown()

	archivedId := env.createPullPayment(t, CreatePullPaymentParams{
		Amount: decimal.NewFromInt(100),
	})

	underArchived := env.claim(t, archivedId, "lnbc1", 10).Payout.PayoutId
	_, err := env.engine.Approve(env.ctx, underArchived, 0, decimal.NewFromInt(1))
	require.NoError(t, err)
	require.Equal(t, UpdateOk, env.markPaid(t, underArchived, payout.StateCompleted))

	_, err = env.engine.Cancel(env.ctx, CancelParams{PullPaymentId: &archivedId})
	require.NoError(t, err)

	activeId := env.createPullPayment(t, CreatePullPaymentParams{
		Amount: decimal.NewFromInt(100),
	})
	active := env.claim(t, activeId, "lnbc2", 10).Payout.PayoutId

	// Archived pull payments hide their payouts by default
	details, err := env.engine.GetPayouts(env.ctx, GetPayoutsParams{})
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.Equal(t, active, details[0].Payout.PayoutId)
	assert.Nil(t, details[0].PullPayment)

	details, err = env.engine.GetPayouts(env.ctx, GetPayoutsParams{IncludeArchived: true})
	require.NoError(t, err)
	assert.Len(t, details, 2)

	details, err = env.engine.GetPayouts(env.ctx, GetPayoutsParams{
		Filter:              payout.Filter{PayoutIds: []string{active}},
		IncludePullPayments: true,
	})
	require.NoError(t, err)
	require.Len(t, details, 1)
	require.NotNil(t, details[0].PullPayment)
	assert.Equal(t, activeId, details[0].PullPayment.PullPaymentId)

	details, err = env.engine.GetPayouts(env.ctx, GetPayoutsParams{
		Filter: payout.Filter{States: []payout.State{payout.StateCancelled}},
	})
	require.NoError(t, err)
	assert.Empty(t, details)
}
