package currency

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Code is an ISO-4217-like currency code, lowercased, plus the crypto units
// this system settles in.
type Code string

const (
	USD Code = "usd"
	EUR Code = "eur"
	GBP Code = "gbp"
	CAD Code = "cad"
	JPY Code = "jpy"

	BTC  Code = "btc"
	SATS Code = "sats"
)

var satsPerBtc = decimal.NewFromInt(100_000_000)

// ToCode normalizes a raw currency symbol into a Code.
func ToCode(raw string) Code {
	return Code(strings.ToLower(raw))
}

func (c Code) String() string {
	return string(c)
}

// IsCrypto returns whether the code denotes a crypto unit rather than fiat.
func IsCrypto(code Code) bool {
	switch code {
	case BTC, SATS:
		return true
	}
	return false
}

// GetDecimals returns the display divisibility for a currency code.
func GetDecimals(code Code) int {
	switch code {
	case BTC:
		return 8
	case SATS, JPY:
		return 0
	}
	return 2
}

// IsUnitComparable returns whether amounts in the two currencies denote the
// same underlying asset and can be compared after a unit conversion. That is
// the case for equal codes, and for the BTC/SATS pair.
func IsUnitComparable(a, b Code) bool {
	if a == b {
		return true
	}
	return (a == BTC && b == SATS) || (a == SATS && b == BTC)
}

// ConvertComparableUnits converts an amount between unit-comparable currencies
// (1 BTC = 100,000,000 SATS). The amount is returned unchanged when the codes
// are equal. Callers must check IsUnitComparable first.
func ConvertComparableUnits(amount decimal.Decimal, from, to Code) decimal.Decimal {
	switch {
	case from == to:
		return amount
	case from == BTC && to == SATS:
		return amount.Mul(satsPerBtc)
	case from == SATS && to == BTC:
		return amount.Div(satsPerBtc)
	}
	return amount
}
