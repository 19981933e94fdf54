package pullpayment

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tabpay/tab-server/pkg/currency"
	"github.com/tabpay/tab-server/pkg/pointer"
)

// Record is a pre-funded budget from which payouts may be claimed.
type Record struct {
	Id uint64

	PullPaymentId string

	StoreId  string
	Currency currency.Code
	Limit    decimal.Decimal

	StartsAt  time.Time
	ExpiresAt *time.Time

	// Once archived, no further claims are accepted. Payouts already created
	// are unaffected.
	Archived bool

	// Mutable metadata blob
	Name              string
	Description       string
	SupportedMethods  []string
	AutoApproveClaims bool
	MinimumClaim      decimal.Decimal
	Bolt11Expiry      time.Duration

	CreatedAt time.Time
}

func (r *Record) Validate() error {
	if len(r.PullPaymentId) == 0 {
		return errors.New("pull payment id is required")
	}

	if len(r.StoreId) == 0 {
		return errors.New("store id is required")
	}

	if len(r.Currency) == 0 {
		return errors.New("currency is required")
	}

	if !r.Limit.IsPositive() {
		return errors.New("limit must be positive")
	}

	if len(r.SupportedMethods) == 0 {
		return errors.New("at least one payout method is required")
	}

	if r.MinimumClaim.IsNegative() {
		return errors.New("minimum claim cannot be negative")
	}

	if r.ExpiresAt != nil && !r.ExpiresAt.After(r.StartsAt) {
		return errors.New("expiry must be after the start date")
	}

	return nil
}

// HasStarted returns whether the pull payment's validity window has opened.
func (r *Record) HasStarted(now time.Time) bool {
	return !now.Before(r.StartsAt)
}

// IsExpired returns whether the pull payment's validity window has closed.
// Pull payments without an expiry never expire.
func (r *Record) IsExpired(now time.Time) bool {
	return r.ExpiresAt != nil && now.After(*r.ExpiresAt)
}

// SupportsMethod returns whether the payout method is in the supported set.
func (r *Record) SupportsMethod(methodId string) bool {
	for _, supported := range r.SupportedMethods {
		if supported == methodId {
			return true
		}
	}
	return false
}

func (r *Record) Clone() Record {
	return Record{
		Id: r.Id,

		PullPaymentId: r.PullPaymentId,

		StoreId:  r.StoreId,
		Currency: r.Currency,
		Limit:    r.Limit.Copy(),

		StartsAt:  r.StartsAt,
		ExpiresAt: pointer.TimeCopy(r.ExpiresAt),

		Archived: r.Archived,

		Name:              r.Name,
		Description:       r.Description,
		SupportedMethods:  append([]string{}, r.SupportedMethods...),
		AutoApproveClaims: r.AutoApproveClaims,
		MinimumClaim:      r.MinimumClaim.Copy(),
		Bolt11Expiry:      r.Bolt11Expiry,

		CreatedAt: r.CreatedAt,
	}
}

func (r *Record) CopyTo(dst *Record) {
	dst.Id = r.Id

	dst.PullPaymentId = r.PullPaymentId

	dst.StoreId = r.StoreId
	dst.Currency = r.Currency
	dst.Limit = r.Limit.Copy()

	dst.StartsAt = r.StartsAt
	dst.ExpiresAt = pointer.TimeCopy(r.ExpiresAt)

	dst.Archived = r.Archived

	dst.Name = r.Name
	dst.Description = r.Description
	dst.SupportedMethods = append([]string{}, r.SupportedMethods...)
	dst.AutoApproveClaims = r.AutoApproveClaims
	dst.MinimumClaim = r.MinimumClaim.Copy()
	dst.Bolt11Expiry = r.Bolt11Expiry

	dst.CreatedAt = r.CreatedAt
}
