package engine

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabpay/tab-server/pkg/currency"
	"github.com/tabpay/tab-server/pkg/pointer"
	"github.com/tabpay/tab-server/pkg/tab/data/payout"
	"github.com/tabpay/tab-server/pkg/tab/data/pullpayment"
)

func TestReconcileClaimedAmount(t *testing.T) {
	for _, tc := range []struct {
		name          string
		claimed       *decimal.Decimal
		destAmount    *decimal.Decimal
		destCurrency  currency.Code
		claimCurrency currency.Code
		allowEmpty    bool

		expected    *decimal.Decimal
		failureKind *ClaimResultKind
	}{
		{
			name:          "both absent without a pull payment",
			destCurrency:  currency.SATS,
			claimCurrency: currency.SATS,
			allowEmpty:    true,
			expected:      nil,
		},
		{
			name:          "both absent against a pull payment",
			destCurrency:  currency.SATS,
			claimCurrency: currency.SATS,
			failureKind:   pointerToKind(ClaimAmountTooLow),
		},
		{
			name:          "destination amount only",
			destAmount:    pointer.Decimal(decimal.NewFromInt(40)),
			destCurrency:  currency.SATS,
			claimCurrency: currency.SATS,
			expected:      pointer.Decimal(decimal.NewFromInt(40)),
		},
		{
			name:          "destination amount only in btc against sats",
			destAmount:    pointer.Decimal(decimal.RequireFromString("0.0000004")),
			destCurrency:  currency.BTC,
			claimCurrency: currency.SATS,
			expected:      pointer.Decimal(decimal.NewFromInt(40)),
		},
		{
			name:          "destination amount only in a different asset",
			destAmount:    pointer.Decimal(decimal.NewFromInt(40)),
			destCurrency:  currency.BTC,
			claimCurrency: currency.USD,
			failureKind:   pointerToKind(ClaimAmountTooLow),
		},
		{
			name:          "explicit amount only",
			claimed:       pointer.Decimal(decimal.NewFromInt(40)),
			destCurrency:  currency.SATS,
			claimCurrency: currency.SATS,
			expected:      pointer.Decimal(decimal.NewFromInt(40)),
		},
		{
			name:          "matching amounts",
			claimed:       pointer.Decimal(decimal.NewFromInt(40)),
			destAmount:    pointer.Decimal(decimal.NewFromInt(40)),
			destCurrency:  currency.SATS,
			claimCurrency: currency.SATS,
			expected:      pointer.Decimal(decimal.NewFromInt(40)),
		},
		{
			name:          "destination amount exceeds the claimed amount",
			claimed:       pointer.Decimal(decimal.NewFromInt(40)),
			destAmount:    pointer.Decimal(decimal.NewFromInt(50)),
			destCurrency:  currency.SATS,
			claimCurrency: currency.SATS,
			failureKind:   pointerToKind(ClaimAmountTooLow),
		},
		{
			name:          "destination amount below the claimed amount is a ceiling",
			claimed:       pointer.Decimal(decimal.NewFromInt(40)),
			destAmount:    pointer.Decimal(decimal.NewFromInt(30)),
			destCurrency:  currency.SATS,
			claimCurrency: currency.SATS,
			expected:      pointer.Decimal(decimal.NewFromInt(30)),
		},
		{
			name:          "incomparable destination amount is ignored",
			claimed:       pointer.Decimal(decimal.NewFromInt(40)),
			destAmount:    pointer.Decimal(decimal.NewFromInt(5000)),
			destCurrency:  currency.BTC,
			claimCurrency: currency.USD,
			expected:      pointer.Decimal(decimal.NewFromInt(40)),
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			actual, failure := reconcileClaimedAmount(tc.claimed, tc.destAmount, tc.destCurrency, tc.claimCurrency, tc.allowEmpty)

			if tc.failureKind != nil {
				require.NotNil(t, failure)
				assert.Equal(t, *tc.failureKind, failure.Kind)
				return
			}

			require.Nil(t, failure)
			require.Equal(t, tc.expected == nil, actual == nil)
			if tc.expected != nil {
				assert.True(t, tc.expected.Equal(*actual))
			}
		})
	}
}

func pointerToKind(kind ClaimResultKind) *ClaimResultKind {
	return &kind
}

func TestClaim_DestinationAmountCeiling(t *testing.T) {
	env, teardown := setup(t, nil)
	defer teardown()

	pullPaymentId := env.createPullPayment(t, CreatePullPaymentParams{
		Amount: decimal.NewFromInt(100),
	})

	env.handler.setDestination("lnbc-with-40", &mockDestination{
		address: "lnbc-with-40",
		amount:  pointer.Decimal(decimal.NewFromInt(40)),
	})

	result := env.claim(t, pullPaymentId, "lnbc-with-40", 50)
	require.Equal(t, ClaimOk, result.Kind)
	require.NotNil(t, result.Payout.OriginalAmount)
	assert.True(t, result.Payout.OriginalAmount.Equal(decimal.NewFromInt(40)))

	env.handler.setDestination("lnbc-with-60", &mockDestination{
		address: "lnbc-with-60",
		amount:  pointer.Decimal(decimal.NewFromInt(60)),
	})

	result = env.claim(t, pullPaymentId, "lnbc-with-60", 50)
	assert.Equal(t, ClaimAmountTooLow, result.Kind)
	assert.Equal(t, "destination amount is more than the claimed amount", result.Message)
}

func TestClaim_MinimumClaim(t *testing.T) {
	env, teardown := setup(t, nil)
	defer teardown()

	pullPaymentId := env.createPullPayment(t, CreatePullPaymentParams{
		Amount:       decimal.NewFromInt(100),
		MinimumClaim: decimal.NewFromInt(20),
	})

	assert.Equal(t, ClaimAmountTooLow, env.claim(t, pullPaymentId, "lnbc1", 10).Kind)
	assert.Equal(t, ClaimOk, env.claim(t, pullPaymentId, "lnbc2", 20).Kind)
}

func TestClaim_MethodNotSupported(t *testing.T) {
	env, teardown := setup(t, nil)
	defer teardown()

	pullPaymentId := env.createPullPayment(t, CreatePullPaymentParams{
		Amount: decimal.NewFromInt(100),
	})

	claimed := decimal.NewFromInt(10)
	result, err := env.engine.Claim(env.ctx, ClaimParams{
		MethodId:      "unknown-method",
		PullPaymentId: &pullPaymentId,
		ClaimedAmount: &claimed,
		Destination:   "lnbc1",
	})
	require.NoError(t, err)
	assert.Equal(t, ClaimPaymentMethodNotSupported, result.Kind)
}

func TestClaim_MissingPullPayment(t *testing.T) {
	env, teardown := setup(t, nil)
	defer teardown()

	claimed := decimal.NewFromInt(10)
	_, err := env.engine.Claim(env.ctx, ClaimParams{
		MethodId:      testMethodId,
		PullPaymentId: pointer.String("missing"),
		ClaimedAmount: &claimed,
		Destination:   "lnbc1",
	})
	assert.Equal(t, pullpayment.ErrPullPaymentNotFound, err)
}

func TestClaim_StandalonePayout(t *testing.T) {
	env, teardown := setup(t, nil)
	defer teardown()

	// Store id is required without a pull payment
	_, err := env.engine.Claim(env.ctx, ClaimParams{
		MethodId:    testMethodId,
		Destination: "lnbc1",
	})
	assert.Equal(t, ErrMissingStoreId, errors.Cause(err))

	// Amountless standalone payouts are allowed; the amount arrives with
	// approval on other rails.
	result, err := env.engine.Claim(env.ctx, ClaimParams{
		MethodId:    testMethodId,
		StoreId:     "store1",
		Destination: "lnbc1",
	})
	require.NoError(t, err)
	require.Equal(t, ClaimOk, result.Kind)
	assert.Nil(t, result.Payout.PullPaymentId)
	assert.Nil(t, result.Payout.OriginalAmount)
	assert.Equal(t, "store1", result.Payout.StoreId)

	// An amountless payout cannot be approved
	approveResult, err := env.engine.Approve(env.ctx, result.Payout.PayoutId, 0, decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.Equal(t, ApproveInvalidState, approveResult.Kind)
}

func TestClaim_PreApproveOverride(t *testing.T) {
	env, teardown := setup(t, nil)
	defer teardown()

	pullPaymentId := env.createPullPayment(t, CreatePullPaymentParams{
		Amount: decimal.NewFromInt(100),
	})

	claimed := decimal.NewFromInt(40)
	result, err := env.engine.Claim(env.ctx, ClaimParams{
		MethodId:      testMethodId,
		PullPaymentId: &pullPaymentId,
		ClaimedAmount: &claimed,
		Destination:   "lnbc1",
		PreApprove:    pointer.Bool(true),
	})
	require.NoError(t, err)
	require.Equal(t, ClaimOk, result.Kind)
	assert.Equal(t, payout.StateAwaitingPayment, result.Payout.State)

	// And the inverse disables the pull payment's auto approval
	autoApproveId := env.createPullPayment(t, CreatePullPaymentParams{
		Amount:            decimal.NewFromInt(100),
		AutoApproveClaims: true,
	})

	result, err = env.engine.Claim(env.ctx, ClaimParams{
		MethodId:      testMethodId,
		PullPaymentId: &autoApproveId,
		ClaimedAmount: &claimed,
		Destination:   "lnbc2",
		PreApprove:    pointer.Bool(false),
	})
	require.NoError(t, err)
	require.Equal(t, ClaimOk, result.Kind)
	assert.Equal(t, payout.StateAwaitingApproval, result.Payout.State)
}
