package rate

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/tabpay/tab-server/pkg/currency"
)

var one = decimal.NewFromInt(1)

type clientConverter struct {
	client currency.Client
}

// NewClientConverter gets a Converter backed by an external exchange rate
// client. Unit-comparable pairs (BTC/SATS) are priced locally without a
// network call.
func NewClientConverter(client currency.Client) Converter {
	return &clientConverter{
		client: client,
	}
}

// FetchRate implements rate.Converter.FetchRate
func (c *clientConverter) FetchRate(ctx context.Context, pair Pair, rules *RuleSet) (*BidAsk, error) {
	if currency.IsUnitComparable(pair.Base, pair.Quote) {
		mid := currency.ConvertComparableUnits(one, pair.Base, pair.Quote)
		return applySpread(mid, rules), nil
	}

	// The client only quotes against BTC as a base, so SATS pairs are
	// rescaled from the BTC quote.
	base := pair.Base
	scale := one
	if base == currency.SATS {
		base = currency.BTC
		scale = currency.ConvertComparableUnits(one, currency.SATS, currency.BTC)
	}

	data, err := c.client.GetCurrentRates(ctx, base.String())
	if err != nil {
		return nil, err
	}

	raw, ok := data.Rates[pair.Quote.String()]
	if !ok {
		return nil, ErrRateUnavailable
	}

	mid := decimal.NewFromFloat(raw).Mul(scale)
	return applySpread(mid, rules), nil
}

type fixedConverter struct {
	rates map[Pair]decimal.Decimal
}

// NewFixedConverter gets a Converter over a static rate table, intended for
// tests.
func NewFixedConverter(rates map[Pair]decimal.Decimal) Converter {
	return &fixedConverter{
		rates: rates,
	}
}

// FetchRate implements rate.Converter.FetchRate
func (c *fixedConverter) FetchRate(_ context.Context, pair Pair, rules *RuleSet) (*BidAsk, error) {
	if currency.IsUnitComparable(pair.Base, pair.Quote) {
		mid := currency.ConvertComparableUnits(one, pair.Base, pair.Quote)
		return applySpread(mid, rules), nil
	}

	mid, ok := c.rates[pair]
	if !ok {
		return nil, ErrRateUnavailable
	}
	return applySpread(mid, rules), nil
}

func applySpread(mid decimal.Decimal, rules *RuleSet) *BidAsk {
	if rules == nil || rules.Spread.IsZero() {
		return &BidAsk{Bid: mid, Ask: mid}
	}

	return &BidAsk{
		Bid: mid.Mul(one.Sub(rules.Spread)),
		Ask: mid.Mul(one.Add(rules.Spread)),
	}
}
