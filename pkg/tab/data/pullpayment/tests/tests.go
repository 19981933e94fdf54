package tests

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabpay/tab-server/pkg/currency"
	"github.com/tabpay/tab-server/pkg/database/query"
	"github.com/tabpay/tab-server/pkg/pointer"
	"github.com/tabpay/tab-server/pkg/tab/data/pullpayment"
)

func RunTests(t *testing.T, s pullpayment.Store, teardown func()) {
	for _, tf := range []func(t *testing.T, s pullpayment.Store){
		testRoundTrip,
		testUpdate,
		testGetBatch,
		testGetAllByStore,
	} {
		tf(t, s)
		teardown()
	}
}

func testRoundTrip(t *testing.T, s pullpayment.Store) {
	t.Run("testRoundTrip", func(t *testing.T) {
		ctx := context.Background()

		actual, err := s.Get(ctx, "pp1")
		require.Error(t, err)
		assert.Equal(t, pullpayment.ErrPullPaymentNotFound, err)
		assert.Nil(t, actual)

		expected := newRecord("pp1", "store1")
		cloned := expected.Clone()
		require.NoError(t, s.Put(ctx, expected))

		assert.Equal(t, pullpayment.ErrPullPaymentAlreadyExists, s.Put(ctx, expected))

		actual, err = s.Get(ctx, "pp1")
		require.NoError(t, err)
		assertEquivalentRecords(t, &cloned, actual)
		assert.EqualValues(t, 1, actual.Id)
	})
}

func testUpdate(t *testing.T, s pullpayment.Store) {
	t.Run("testUpdate", func(t *testing.T) {
		ctx := context.Background()

		record := newRecord("pp1", "store1")
		assert.Equal(t, pullpayment.ErrPullPaymentNotFound, s.Update(ctx, record))

		require.NoError(t, s.Put(ctx, record))

		record.Archived = true
		record.Name = "updated"
		record.AutoApproveClaims = true
		require.NoError(t, s.Update(ctx, record))

		actual, err := s.Get(ctx, "pp1")
		require.NoError(t, err)
		assert.True(t, actual.Archived)
		assert.Equal(t, "updated", actual.Name)
		assert.True(t, actual.AutoApproveClaims)
	})
}

func testGetBatch(t *testing.T, s pullpayment.Store) {
	t.Run("testGetBatch", func(t *testing.T) {
		ctx := context.Background()

		require.NoError(t, s.Put(ctx, newRecord("pp1", "store1")))
		require.NoError(t, s.Put(ctx, newRecord("pp2", "store1")))

		actual, err := s.GetBatch(ctx, "pp1", "pp2", "missing")
		require.NoError(t, err)
		assert.Len(t, actual, 2)
	})
}

func testGetAllByStore(t *testing.T, s pullpayment.Store) {
	t.Run("testGetAllByStore", func(t *testing.T) {
		ctx := context.Background()

		archived := newRecord("pp1", "store1")
		archived.Archived = true
		require.NoError(t, s.Put(ctx, archived))
		require.NoError(t, s.Update(ctx, archived))
		require.NoError(t, s.Put(ctx, newRecord("pp2", "store1")))
		require.NoError(t, s.Put(ctx, newRecord("pp3", "store2")))

		actual, err := s.GetAllByStore(ctx, "store1", false)
		require.NoError(t, err)
		require.Len(t, actual, 1)
		assert.Equal(t, "pp2", actual[0].PullPaymentId)

		actual, err = s.GetAllByStore(ctx, "store1", true)
		require.NoError(t, err)
		assert.Len(t, actual, 2)

		actual, err = s.GetAllByStore(ctx, "store1", true, query.WithLimit(1), query.WithDirection(query.Descending))
		require.NoError(t, err)
		require.Len(t, actual, 1)
		assert.Equal(t, "pp2", actual[0].PullPaymentId)

		_, err = s.GetAllByStore(ctx, "store3", true)
		assert.Equal(t, pullpayment.ErrPullPaymentNotFound, err)
	})
}

func newRecord(pullPaymentId, storeId string) *pullpayment.Record {
	return &pullpayment.Record{
		PullPaymentId: pullPaymentId,

		StoreId:  storeId,
		Currency: currency.SATS,
		Limit:    decimal.NewFromInt(100),

		StartsAt:  time.Now().Add(-time.Second),
		ExpiresAt: pointer.Time(time.Now().Add(24 * time.Hour)),

		Name:              "test pull payment",
		Description:       "budget for testing",
		SupportedMethods:  []string{"btc-chain", "btc-lightning"},
		AutoApproveClaims: false,
		MinimumClaim:      decimal.NewFromInt(1),
		Bolt11Expiry:      30 * 24 * time.Hour,

		CreatedAt: time.Now(),
	}
}

func assertEquivalentRecords(t *testing.T, obj1, obj2 *pullpayment.Record) {
	assert.Equal(t, obj1.PullPaymentId, obj2.PullPaymentId)
	assert.Equal(t, obj1.StoreId, obj2.StoreId)
	assert.Equal(t, obj1.Currency, obj2.Currency)
	assert.True(t, obj1.Limit.Equal(obj2.Limit))
	assert.Equal(t, obj1.StartsAt.Unix(), obj2.StartsAt.Unix())
	require.Equal(t, obj1.ExpiresAt == nil, obj2.ExpiresAt == nil)
	if obj1.ExpiresAt != nil {
		assert.Equal(t, obj1.ExpiresAt.Unix(), obj2.ExpiresAt.Unix())
	}
	assert.Equal(t, obj1.Archived, obj2.Archived)
	assert.Equal(t, obj1.Name, obj2.Name)
	assert.Equal(t, obj1.Description, obj2.Description)
	assert.Equal(t, obj1.SupportedMethods, obj2.SupportedMethods)
	assert.Equal(t, obj1.AutoApproveClaims, obj2.AutoApproveClaims)
	assert.True(t, obj1.MinimumClaim.Equal(obj2.MinimumClaim))
	assert.Equal(t, obj1.Bolt11Expiry, obj2.Bolt11Expiry)
}
