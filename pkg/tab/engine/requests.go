package engine

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tabpay/tab-server/pkg/currency"
	"github.com/tabpay/tab-server/pkg/tab/data/payout"
)

type CreatePullPaymentParams struct {
	StoreId string

	Name        string
	Description string

	Currency currency.Code
	Amount   decimal.Decimal

	StartsAt  *time.Time
	ExpiresAt *time.Time

	PayoutMethodIds   []string
	AutoApproveClaims bool
	MinimumClaim      decimal.Decimal
	Bolt11Expiry      time.Duration
}

type ClaimParams struct {
	MethodId string

	// Absent means a store level payout with no shared budget
	PullPaymentId *string

	// Required when no pull payment is given
	StoreId string

	ClaimedAmount *decimal.Decimal

	// Raw claim destination, parsed by the method handler. May embed an
	// amount ceiling and a dedup id.
	Destination string

	Metadata json.RawMessage

	// Overrides the pull payment's AutoApproveClaims when set
	PreApprove *bool

	NonInteractiveOnly bool
}

type ClaimResultKind uint8

const (
	ClaimOk ClaimResultKind = iota
	ClaimDuplicate
	ClaimExpired
	ClaimNotStarted
	ClaimArchived
	ClaimOverdraft
	ClaimAmountTooLow
	ClaimPaymentMethodNotSupported
)

func (k ClaimResultKind) String() string {
	switch k {
	case ClaimOk:
		return "ok"
	case ClaimDuplicate:
		return "duplicate"
	case ClaimExpired:
		return "expired"
	case ClaimNotStarted:
		return "not_started"
	case ClaimArchived:
		return "archived"
	case ClaimOverdraft:
		return "overdraft"
	case ClaimAmountTooLow:
		return "amount_too_low"
	case ClaimPaymentMethodNotSupported:
		return "payment_method_not_supported"
	}
	return "unknown"
}

type ClaimResult struct {
	Kind    ClaimResultKind
	Message string

	// Snapshot of the created payout on ClaimOk. The payout may already be
	// past AwaitingApproval (or cancelled) when auto approval applied.
	Payout *payout.Record
}

type ApproveResultKind uint8

const (
	ApproveOk ApproveResultKind = iota
	ApproveNotFound
	ApproveInvalidState
	ApproveTooLowAmount
	ApproveOldRevision
)

func (k ApproveResultKind) String() string {
	switch k {
	case ApproveOk:
		return "ok"
	case ApproveNotFound:
		return "not_found"
	case ApproveInvalidState:
		return "invalid_state"
	case ApproveTooLowAmount:
		return "too_low_amount"
	case ApproveOldRevision:
		return "old_revision"
	}
	return "unknown"
}

type ApproveResult struct {
	Kind    ApproveResultKind
	Message string

	// Converted settlement amount on ApproveOk
	Amount *decimal.Decimal
}

type MarkPaidParams struct {
	PayoutId string

	// Target state, one of AwaitingPayment, InProgress or Completed
	State payout.State

	// Settlement evidence, stored on InProgress/Completed targets and
	// cleared otherwise
	Proof json.RawMessage

	// Optional metadata patch
	Metadata json.RawMessage
}

type CancelParams struct {
	// Archive the whole pull payment and cancel every non-terminal payout
	// under it
	PullPaymentId *string

	// Alternatively, an explicit set of payouts to cancel
	PayoutIds []string

	// Optional store allow-list restricting which records may be touched
	StoreIds []string
}

type UpdateResultKind uint8

const (
	UpdateOk UpdateResultKind = iota
	UpdateNotFound
	UpdateInvalidState
)

func (k UpdateResultKind) String() string {
	switch k {
	case UpdateOk:
		return "ok"
	case UpdateNotFound:
		return "not_found"
	case UpdateInvalidState:
		return "invalid_state"
	}
	return "unknown"
}

type MarkPaidResult struct {
	Kind    UpdateResultKind
	Message string
}

// Queued request variants. Every externally visible mutation carries a one
// shot completion channel resolved by the consumer loop.

type claimRequest struct {
	params ClaimParams
	res    chan claimOutcome
}

type claimOutcome struct {
	result *ClaimResult
	err    error
}

type approveRequest struct {
	payoutId         string
	expectedRevision uint64
	rate             decimal.Decimal
	res              chan approveOutcome
}

type approveOutcome struct {
	result *ApproveResult
	err    error
}

type markPaidRequest struct {
	params MarkPaidParams
	res    chan markPaidOutcome
}

type markPaidOutcome struct {
	result *MarkPaidResult
	err    error
}

type cancelRequest struct {
	params CancelParams
	res    chan cancelOutcome
}

type cancelOutcome struct {
	results map[string]UpdateResultKind
	err     error
}

type topUpRequest struct {
	invoiceId     string
	pullPaymentId string
	amount        decimal.Decimal
	currency      currency.Code
}
