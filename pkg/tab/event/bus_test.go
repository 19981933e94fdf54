package event

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabpay/tab-server/pkg/currency"
	"github.com/tabpay/tab-server/pkg/tab/data/payout"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := NewBus()

	received := make(chan *Event, 8)
	bus.Subscribe(func(_ context.Context, e *Event) {
		received <- e
	}, PayoutCreated, PayoutUpdated)

	record := &payout.Record{
		PayoutId:    "payout1",
		StoreId:     "store1",
		MethodId:    "btc-lightning",
		Currency:    currency.BTC,
		Destination: "lnbc1234",
	}

	bus.Publish(context.Background(), NewPayoutEvent(PayoutCreated, record))

	select {
	case e := <-received:
		assert.Equal(t, PayoutCreated, e.Type)
		assert.NotEmpty(t, e.Id)
		require.NotNil(t, e.Payout)
		assert.Equal(t, "payout1", e.Payout.PayoutId)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}

	// Types without a subscription are dropped
	bus.Publish(context.Background(), NewPayoutEvent(PayoutApproved, record))
	select {
	case <-received:
		t.Fatal("unexpected delivery")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBus_SnapshotIsolation(t *testing.T) {
	bus := NewBus()

	received := make(chan *Event, 1)
	bus.Subscribe(func(_ context.Context, e *Event) {
		received <- e
	}, PayoutCreated)

	record := &payout.Record{
		PayoutId:    "payout1",
		StoreId:     "store1",
		MethodId:    "btc-lightning",
		Currency:    currency.BTC,
		Destination: "lnbc1234",
	}

	e := NewPayoutEvent(PayoutCreated, record)
	record.State = payout.StateCancelled
	bus.Publish(context.Background(), e)

	select {
	case got := <-received:
		assert.Equal(t, payout.StateAwaitingApproval, got.Payout.State)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBus_PanicIsolation(t *testing.T) {
	bus := NewBus()

	received := make(chan struct{}, 1)
	bus.Subscribe(func(_ context.Context, _ *Event) {
		panic("boom")
	}, InvoiceCompleted)
	bus.Subscribe(func(_ context.Context, _ *Event) {
		received <- struct{}{}
	}, InvoiceCompleted)

	bus.Publish(context.Background(), NewInvoiceCompletedEvent("invoice1", "pp1", decimal.NewFromInt(10), currency.SATS))

	select {
	case <-received:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}
