package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabpay/tab-server/pkg/tab/data/payout"
	"github.com/tabpay/tab-server/pkg/tab/data/pullpayment"
)

func (env *testEnv) markPaid(t *testing.T, payoutId string, target payout.State) UpdateResultKind {
	result, err := env.engine.MarkPaid(env.ctx, MarkPaidParams{
		PayoutId: payoutId,
		State:    target,
		Proof:    []byte(`{"txId":"abc"}`),
	})
	require.NoError(t, err)
	return result.Kind
}

func TestMarkPaid_NotFound(t *testing.T) {
	env, teardown := setup(t, nil)
	defer teardown()

	result, err := env.engine.MarkPaid(env.ctx, MarkPaidParams{
		PayoutId: "missing",
		State:    payout.StateCompleted,
	})
	require.NoError(t, err)
	assert.Equal(t, UpdateNotFound, result.Kind)
}

func TestMarkPaid_TransitionTable(t *testing.T) {
	env, teardown := setup(t, nil)
	defer teardown()

	pullPaymentId := env.createPullPayment(t, CreatePullPaymentParams{
		Amount: decimal.NewFromInt(100),
	})

	claimResult := env.claim(t, pullPaymentId, "lnbc1", 40)
	require.Equal(t, ClaimOk, claimResult.Kind)
	payoutId := claimResult.Payout.PayoutId

	// Nothing is payable before approval
	assert.Equal(t, UpdateInvalidState, env.markPaid(t, payoutId, payout.StateInProgress))
	assert.Equal(t, UpdateInvalidState, env.markPaid(t, payoutId, payout.StateCompleted))
	assert.Equal(t, UpdateInvalidState, env.markPaid(t, payoutId, payout.StateAwaitingPayment))

	// MarkPaid never targets the approval half of the state machine
	assert.Equal(t, UpdateInvalidState, env.markPaid(t, payoutId, payout.StateCancelled))

	approveResult, err := env.engine.Approve(env.ctx, payoutId, 0, decimal.NewFromInt(1))
	require.NoError(t, err)
	require.Equal(t, ApproveOk, approveResult.Kind)

	// AwaitingPayment -> InProgress stores the proof
	assert.Equal(t, UpdateOk, env.markPaid(t, payoutId, payout.StateInProgress))
	record := env.getPayout(t, payoutId)
	assert.Equal(t, payout.StateInProgress, record.State)
	assert.JSONEq(t, `{"txId":"abc"}`, string(record.Proof))

	// InProgress -> AwaitingPayment is a retry and clears the proof
	assert.Equal(t, UpdateOk, env.markPaid(t, payoutId, payout.StateAwaitingPayment))
	record = env.getPayout(t, payoutId)
	assert.Equal(t, payout.StateAwaitingPayment, record.State)
	assert.Empty(t, record.Proof)

	// AwaitingPayment -> Completed skips InProgress
	assert.Equal(t, UpdateOk, env.markPaid(t, payoutId, payout.StateCompleted))
	record = env.getPayout(t, payoutId)
	assert.Equal(t, payout.StateCompleted, record.State)

	// Completed is terminal; repeated calls reject and never mutate
	for _, target := range []payout.State{
		payout.StateAwaitingPayment,
		payout.StateInProgress,
		payout.StateCompleted,
	} {
		assert.Equal(t, UpdateInvalidState, env.markPaid(t, payoutId, target))
	}
	revision := record.Revision
	record = env.getPayout(t, payoutId)
	assert.Equal(t, revision, record.Revision)

	// As does Cancel
	results, err := env.engine.Cancel(env.ctx, CancelParams{PayoutIds: []string{payoutId}})
	require.NoError(t, err)
	assert.Equal(t, UpdateInvalidState, results[payoutId])
}

func TestCancel_PullPayment(t *testing.T) {
	env, teardown := setup(t, nil)
	defer teardown()

	pullPaymentId := env.createPullPayment(t, CreatePullPaymentParams{
		Amount: decimal.NewFromInt(100),
	})

	completed := env.claim(t, pullPaymentId, "lnbc1", 10).Payout.PayoutId
	_, err := env.engine.Approve(env.ctx, completed, 0, decimal.NewFromInt(1))
	require.NoError(t, err)
	require.Equal(t, UpdateOk, env.markPaid(t, completed, payout.StateCompleted))

	settling := env.claim(t, pullPaymentId, "lnbc2", 10).Payout.PayoutId
	_, err = env.engine.Approve(env.ctx, settling, 0, decimal.NewFromInt(1))
	require.NoError(t, err)
	require.Equal(t, UpdateOk, env.markPaid(t, settling, payout.StateInProgress))

	awaitingApproval := env.claim(t, pullPaymentId, "lnbc3", 10).Payout.PayoutId
	awaitingPayment := env.claim(t, pullPaymentId, "lnbc4", 10).Payout.PayoutId
	_, err = env.engine.Approve(env.ctx, awaitingPayment, 0, decimal.NewFromInt(1))
	require.NoError(t, err)

	results, err := env.engine.Cancel(env.ctx, CancelParams{PullPaymentId: &pullPaymentId})
	require.NoError(t, err)

	assert.Equal(t, UpdateOk, results[awaitingApproval])
	assert.Equal(t, UpdateOk, results[awaitingPayment])
	assert.Equal(t, UpdateInvalidState, results[settling])
	assert.NotContains(t, results, completed)

	assert.Equal(t, payout.StateCancelled, env.getPayout(t, awaitingApproval).State)
	assert.Equal(t, payout.StateCancelled, env.getPayout(t, awaitingPayment).State)
	assert.Equal(t, payout.StateInProgress, env.getPayout(t, settling).State)
	assert.Equal(t, payout.StateCompleted, env.getPayout(t, completed).State)

	record, err := env.data.GetPullPayment(env.ctx, pullPaymentId)
	require.NoError(t, err)
	assert.True(t, record.Archived)
}

func TestCancel_ExplicitPayouts(t *testing.T) {
	env, teardown := setup(t, nil)
	defer teardown()

	pullPaymentId := env.createPullPayment(t, CreatePullPaymentParams{
		Amount: decimal.NewFromInt(100),
	})

	payoutId := env.claim(t, pullPaymentId, "lnbc1", 10).Payout.PayoutId

	results, err := env.engine.Cancel(env.ctx, CancelParams{
		PayoutIds: []string{payoutId, "missing"},
	})
	require.NoError(t, err)
	assert.Equal(t, UpdateOk, results[payoutId])
	assert.Equal(t, UpdateNotFound, results["missing"])

	// Cancelling again is rejected
	results, err = env.engine.Cancel(env.ctx, CancelParams{
		PayoutIds: []string{payoutId},
	})
	require.NoError(t, err)
	assert.Equal(t, UpdateInvalidState, results[payoutId])
}

func TestCancel_StoreAllowList(t *testing.T) {
	env, teardown := setup(t, nil)
	defer teardown()

	pullPaymentId := env.createPullPayment(t, CreatePullPaymentParams{
		StoreId: "store1",
		Amount:  decimal.NewFromInt(100),
	})

	payoutId := env.claim(t, pullPaymentId, "lnbc1", 10).Payout.PayoutId

	results, err := env.engine.Cancel(env.ctx, CancelParams{
		PayoutIds: []string{payoutId},
		StoreIds:  []string{"other-store"},
	})
	require.NoError(t, err)
	assert.Equal(t, UpdateNotFound, results[payoutId])

	_, err = env.engine.Cancel(env.ctx, CancelParams{
		PullPaymentId: &pullPaymentId,
		StoreIds:      []string{"other-store"},
	})
	assert.Equal(t, pullpayment.ErrPullPaymentNotFound, err)

	results, err = env.engine.Cancel(env.ctx, CancelParams{
		PayoutIds: []string{payoutId},
		StoreIds:  []string{"store1"},
	})
	require.NoError(t, err)
	assert.Equal(t, UpdateOk, results[payoutId])
}
