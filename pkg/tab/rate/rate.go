package rate

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/tabpay/tab-server/pkg/currency"
)

var (
	ErrRateUnavailable = errors.New("no rate available for the currency pair")
)

// Pair prices one unit of Base in terms of Quote.
type Pair struct {
	Base  currency.Code
	Quote currency.Code
}

type BidAsk struct {
	Bid decimal.Decimal
	Ask decimal.Decimal
}

// RuleSet captures a store's rate adjustments. Spread is a fraction applied
// symmetrically around the source rate (eg. 0.01 widens the quote by 1% on
// each side).
type RuleSet struct {
	Spread decimal.Decimal
}

// Converter resolves the current exchange rate for a currency pair under a
// store's rate rules.
type Converter interface {
	FetchRate(ctx context.Context, pair Pair, rules *RuleSet) (*BidAsk, error)
}
