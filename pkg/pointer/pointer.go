package pointer

import (
	"time"

	"github.com/shopspring/decimal"
)

// String returns a pointer to the provided string value
func String(value string) *string {
	return &value
}

// StringIfValid returns a pointer to the value if it's valid, otherwise nil
func StringIfValid(valid bool, value string) *string {
	if valid {
		return &value
	}
	return nil
}

// StringCopy returns a pointer that's a copy of the provided value
func StringCopy(value *string) *string {
	if value == nil {
		return nil
	}
	return String(*value)
}

// Bool returns a pointer to the provided bool value
func Bool(value bool) *bool {
	return &value
}

// BoolCopy returns a pointer that's a copy of the provided value
func BoolCopy(value *bool) *bool {
	if value == nil {
		return nil
	}
	return Bool(*value)
}

// Uint64 returns a pointer to the provided uint64 value
func Uint64(value uint64) *uint64 {
	return &value
}

// Uint64Copy returns a pointer that's a copy of the provided value
func Uint64Copy(value *uint64) *uint64 {
	if value == nil {
		return nil
	}
	return Uint64(*value)
}

// Time returns a pointer to the provided time value
func Time(value time.Time) *time.Time {
	return &value
}

// TimeCopy returns a pointer that's a copy of the provided value
func TimeCopy(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	return Time(*value)
}

// Decimal returns a pointer to the provided decimal value
func Decimal(value decimal.Decimal) *decimal.Decimal {
	return &value
}

// DecimalCopy returns a pointer that's a copy of the provided value
func DecimalCopy(value *decimal.Decimal) *decimal.Decimal {
	if value == nil {
		return nil
	}
	return Decimal(*value)
}
