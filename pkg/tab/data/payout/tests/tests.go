package tests

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabpay/tab-server/pkg/currency"
	"github.com/tabpay/tab-server/pkg/database/query"
	"github.com/tabpay/tab-server/pkg/pointer"
	"github.com/tabpay/tab-server/pkg/tab/data/payout"
)

func RunTests(t *testing.T, s payout.Store, teardown func()) {
	for _, tf := range []func(t *testing.T, s payout.Store){
		testRoundTrip,
		testDedup,
		testUpdate,
		testGetAllByFilter,
		testCount,
	} {
		tf(t, s)
		teardown()
	}
}

func testRoundTrip(t *testing.T, s payout.Store) {
	t.Run("testRoundTrip", func(t *testing.T) {
		ctx := context.Background()

		actual, err := s.Get(ctx, "payout1")
		require.Error(t, err)
		assert.Equal(t, payout.ErrPayoutNotFound, err)
		assert.Nil(t, actual)

		expected := newRecord("payout1", "pp1", nil)
		cloned := expected.Clone()
		require.NoError(t, s.Put(ctx, expected))

		assert.Equal(t, payout.ErrPayoutAlreadyExists, s.Put(ctx, expected))

		actual, err = s.Get(ctx, "payout1")
		require.NoError(t, err)
		assertEquivalentRecords(t, &cloned, actual)
		assert.EqualValues(t, 1, actual.Id)
	})
}

func testDedup(t *testing.T, s payout.Store) {
	t.Run("testDedup", func(t *testing.T) {
		ctx := context.Background()

		first := newRecord("payout1", "pp1", pointer.String("dest1"))
		require.NoError(t, s.Put(ctx, first))

		// Same dedup id while payout1 is still active
		second := newRecord("payout2", "pp1", pointer.String("dest1"))
		assert.Equal(t, payout.ErrPayoutAlreadyExists, s.Put(ctx, second))

		// Different dedup id is fine
		require.NoError(t, s.Put(ctx, newRecord("payout3", "pp1", pointer.String("dest2"))))

		// Terminal payouts release the dedup id
		first.State = payout.StateCancelled
		require.NoError(t, s.Update(ctx, first))
		require.NoError(t, s.Put(ctx, second))
	})
}

func testUpdate(t *testing.T, s payout.Store) {
	t.Run("testUpdate", func(t *testing.T) {
		ctx := context.Background()

		record := newRecord("payout1", "pp1", nil)
		assert.Equal(t, payout.ErrPayoutNotFound, s.Update(ctx, record))

		require.NoError(t, s.Put(ctx, record))

		record.State = payout.StateAwaitingPayment
		record.Amount = pointer.Decimal(decimal.RequireFromString("0.00001234"))
		record.Proof = json.RawMessage(`{"txId":"abc"}`)
		record.Revision++
		require.NoError(t, s.Update(ctx, record))

		actual, err := s.Get(ctx, "payout1")
		require.NoError(t, err)
		assert.Equal(t, payout.StateAwaitingPayment, actual.State)
		require.NotNil(t, actual.Amount)
		assert.True(t, actual.Amount.Equal(decimal.RequireFromString("0.00001234")))
		assert.JSONEq(t, `{"txId":"abc"}`, string(actual.Proof))
		assert.EqualValues(t, 1, actual.Revision)

		// Batch updates are all or nothing
		other := newRecord("payout2", "pp1", nil)
		require.NoError(t, s.Put(ctx, other))

		other.State = payout.StateCancelled
		missing := newRecord("missing", "pp1", nil)
		assert.Equal(t, payout.ErrPayoutNotFound, s.Update(ctx, other, missing))

		actual, err = s.Get(ctx, "payout2")
		require.NoError(t, err)
		assert.Equal(t, payout.StateAwaitingApproval, actual.State)

		require.NoError(t, s.Update(ctx, other))
		actual, err = s.Get(ctx, "payout2")
		require.NoError(t, err)
		assert.Equal(t, payout.StateCancelled, actual.State)
	})
}

func testGetAllByFilter(t *testing.T, s payout.Store) {
	t.Run("testGetAllByFilter", func(t *testing.T) {
		ctx := context.Background()

		require.NoError(t, s.Put(ctx, newRecord("payout1", "pp1", nil)))
		require.NoError(t, s.Put(ctx, newRecord("payout2", "pp1", nil)))
		require.NoError(t, s.Put(ctx, newRecord("payout3", "pp2", nil)))

		cancelled := newRecord("payout4", "pp2", nil)
		require.NoError(t, s.Put(ctx, cancelled))
		cancelled.State = payout.StateCancelled
		require.NoError(t, s.Update(ctx, cancelled))

		actual, err := s.GetAllByFilter(ctx, payout.Filter{})
		require.NoError(t, err)
		assert.Len(t, actual, 4)

		actual, err = s.GetAllByFilter(ctx, payout.Filter{
			PullPaymentIds: []string{"pp1"},
		})
		require.NoError(t, err)
		assert.Len(t, actual, 2)

		actual, err = s.GetAllByFilter(ctx, payout.Filter{
			States: []payout.State{payout.StateAwaitingApproval},
		})
		require.NoError(t, err)
		assert.Len(t, actual, 3)

		actual, err = s.GetAllByFilter(ctx, payout.Filter{
			States:         []payout.State{payout.StateCancelled},
			PullPaymentIds: []string{"pp2"},
		})
		require.NoError(t, err)
		require.Len(t, actual, 1)
		assert.Equal(t, "payout4", actual[0].PayoutId)

		actual, err = s.GetAllByFilter(ctx, payout.Filter{
			PayoutIds: []string{"payout1", "payout3"},
		})
		require.NoError(t, err)
		assert.Len(t, actual, 2)

		actual, err = s.GetAllByFilter(ctx, payout.Filter{
			StoreIds: []string{"unknown"},
		})
		require.NoError(t, err)
		assert.Empty(t, actual)

		actual, err = s.GetAllByFilter(ctx, payout.Filter{}, query.WithLimit(2), query.WithDirection(query.Descending))
		require.NoError(t, err)
		require.Len(t, actual, 2)
		assert.Equal(t, "payout4", actual[0].PayoutId)
		assert.Equal(t, "payout3", actual[1].PayoutId)

		actual, err = s.GetAllByFilter(ctx, payout.Filter{}, query.WithCursor(query.ToCursor(2)))
		require.NoError(t, err)
		require.Len(t, actual, 2)
		assert.Equal(t, "payout3", actual[0].PayoutId)
	})
}

func testCount(t *testing.T, s payout.Store) {
	t.Run("testCount", func(t *testing.T) {
		ctx := context.Background()

		count, err := s.Count(ctx, payout.Filter{})
		require.NoError(t, err)
		assert.EqualValues(t, 0, count)

		require.NoError(t, s.Put(ctx, newRecord("payout1", "pp1", nil)))
		require.NoError(t, s.Put(ctx, newRecord("payout2", "pp1", nil)))

		cancelled := newRecord("payout3", "pp2", nil)
		require.NoError(t, s.Put(ctx, cancelled))
		cancelled.State = payout.StateCancelled
		require.NoError(t, s.Update(ctx, cancelled))

		count, err = s.Count(ctx, payout.Filter{})
		require.NoError(t, err)
		assert.EqualValues(t, 3, count)

		count, err = s.Count(ctx, payout.Filter{
			States: []payout.State{payout.StateAwaitingApproval},
		})
		require.NoError(t, err)
		assert.EqualValues(t, 2, count)

		count, err = s.Count(ctx, payout.Filter{
			States:         []payout.State{payout.StateCancelled},
			PullPaymentIds: []string{"pp2"},
		})
		require.NoError(t, err)
		assert.EqualValues(t, 1, count)

		count, err = s.Count(ctx, payout.Filter{
			StoreIds: []string{"unknown"},
		})
		require.NoError(t, err)
		assert.EqualValues(t, 0, count)
	})
}

func newRecord(payoutId, pullPaymentId string, dedupId *string) *payout.Record {
	return &payout.Record{
		PayoutId: payoutId,

		PullPaymentId: pointer.String(pullPaymentId),

		StoreId:  "store1",
		MethodId: "btc-lightning",

		State: payout.StateAwaitingApproval,

		Currency:         currency.BTC,
		OriginalCurrency: currency.SATS,
		OriginalAmount:   pointer.Decimal(decimal.NewFromInt(1234)),

		DedupId: dedupId,

		Destination: "lnbc1234",
		Metadata:    json.RawMessage(`{"source":"test"}`),

		CreatedAt: time.Now(),
	}
}

func assertEquivalentRecords(t *testing.T, obj1, obj2 *payout.Record) {
	assert.Equal(t, obj1.PayoutId, obj2.PayoutId)
	assert.EqualValues(t, obj1.PullPaymentId, obj2.PullPaymentId)
	assert.Equal(t, obj1.StoreId, obj2.StoreId)
	assert.Equal(t, obj1.MethodId, obj2.MethodId)
	assert.Equal(t, obj1.State, obj2.State)
	assert.Equal(t, obj1.Currency, obj2.Currency)
	assert.Equal(t, obj1.OriginalCurrency, obj2.OriginalCurrency)
	require.Equal(t, obj1.OriginalAmount == nil, obj2.OriginalAmount == nil)
	if obj1.OriginalAmount != nil {
		assert.True(t, obj1.OriginalAmount.Equal(*obj2.OriginalAmount))
	}
	require.Equal(t, obj1.Amount == nil, obj2.Amount == nil)
	if obj1.Amount != nil {
		assert.True(t, obj1.Amount.Equal(*obj2.Amount))
	}
	assert.EqualValues(t, obj1.DedupId, obj2.DedupId)
	assert.Equal(t, obj1.Destination, obj2.Destination)
	assert.JSONEq(t, string(obj1.Metadata), string(obj2.Metadata))
	assert.Equal(t, obj1.Revision, obj2.Revision)
	assert.Equal(t, obj1.NonInteractiveOnly, obj2.NonInteractiveOnly)
	assert.Equal(t, obj1.CreatedAt.Unix(), obj2.CreatedAt.Unix())
}
