package rate

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabpay/tab-server/pkg/currency"
)

func TestFixedConverter(t *testing.T) {
	ctx := context.Background()

	converter := NewFixedConverter(map[Pair]decimal.Decimal{
		{Base: currency.BTC, Quote: currency.USD}: decimal.NewFromInt(50000),
	})

	bidAsk, err := converter.FetchRate(ctx, Pair{Base: currency.BTC, Quote: currency.USD}, nil)
	require.NoError(t, err)
	assert.True(t, bidAsk.Bid.Equal(decimal.NewFromInt(50000)))
	assert.True(t, bidAsk.Ask.Equal(decimal.NewFromInt(50000)))

	_, err = converter.FetchRate(ctx, Pair{Base: currency.BTC, Quote: currency.EUR}, nil)
	assert.Equal(t, ErrRateUnavailable, err)
}

func TestConverter_UnitComparablePairs(t *testing.T) {
	ctx := context.Background()

	converter := NewFixedConverter(nil)

	bidAsk, err := converter.FetchRate(ctx, Pair{Base: currency.BTC, Quote: currency.SATS}, nil)
	require.NoError(t, err)
	assert.True(t, bidAsk.Bid.Equal(decimal.NewFromInt(100_000_000)))

	bidAsk, err = converter.FetchRate(ctx, Pair{Base: currency.SATS, Quote: currency.SATS}, nil)
	require.NoError(t, err)
	assert.True(t, bidAsk.Bid.Equal(decimal.NewFromInt(1)))
}

func TestConverter_Spread(t *testing.T) {
	ctx := context.Background()

	converter := NewFixedConverter(map[Pair]decimal.Decimal{
		{Base: currency.BTC, Quote: currency.USD}: decimal.NewFromInt(50000),
	})

	rules := &RuleSet{Spread: decimal.RequireFromString("0.01")}
	bidAsk, err := converter.FetchRate(ctx, Pair{Base: currency.BTC, Quote: currency.USD}, rules)
	require.NoError(t, err)
	assert.True(t, bidAsk.Bid.Equal(decimal.NewFromInt(49500)))
	assert.True(t, bidAsk.Ask.Equal(decimal.NewFromInt(50500)))
}
