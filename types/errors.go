package types

import (
	"fmt"
	"net/http"

	"github.com/darve-social/darve-server/build"
)

// ClientErrorKind is the error taxonomy from which every library-level
// component (ledger, wallet registry, gateway, task-reward, notifications,
// access) picks a member. The HTTP surface maps each kind to a status code;
// this mirrors rivine's types.ClientErrorKind / ClientError exactly, with
// the domain-specific kinds this backend needs appended.
type ClientErrorKind uint32

const (
	// ErrBadRequest indicates a malformed or semantically invalid request.
	ErrBadRequest ClientErrorKind = iota
	// ErrUnauthorized indicates missing or invalid credentials.
	ErrUnauthorized
	// ErrPaymentRequired indicates the source wallet cannot cover the
	// requested amount (BalanceTooLow).
	ErrPaymentRequired
	// ErrForbidden indicates the caller lacks the role/permission required.
	ErrForbidden
	// ErrNotFound indicates the referenced entity does not exist.
	ErrNotFound
	// ErrConflict indicates the target is not in the state the operation
	// needs (e.g. a task already completed, a participant in the wrong
	// status).
	ErrConflict
	// ErrValidationFailed indicates well-formed but semantically rejected
	// input (e.g. a non-positive transfer amount).
	ErrValidationFailed
	// ErrExternalRail indicates the upstream payment processor failed or
	// returned something the gateway could not reconcile.
	ErrExternalRail
	// ErrWalletLocked indicates a wallet (or its owning user's spendable
	// wallet) carries an unexpired lock.
	ErrWalletLocked
	// ErrCurrencyMismatch indicates an amount was tagged with a currency
	// the ledger does not recognize.
	ErrCurrencyMismatch
	// ErrAlreadyFinalized indicates a webhook or revert arrived after the
	// gateway transaction already reached a terminal state.
	ErrAlreadyFinalized
	// ErrDonationNotIncreasing indicates a donor tried to lower or repeat
	// their existing donation amount.
	ErrDonationNotIncreasing
	// ErrGeneric is the catch-all for anything not classified above.
	ErrGeneric

	maxClientErrorKind = ErrGeneric
)

func (kind ClientErrorKind) String() string {
	switch kind {
	case ErrBadRequest:
		return "bad request"
	case ErrUnauthorized:
		return "unauthorized"
	case ErrPaymentRequired:
		return "balance too low"
	case ErrForbidden:
		return "forbidden"
	case ErrNotFound:
		return "not found"
	case ErrConflict:
		return "conflict"
	case ErrValidationFailed:
		return "validation failed"
	case ErrExternalRail:
		return "external rail error"
	case ErrWalletLocked:
		return "wallet locked"
	case ErrCurrencyMismatch:
		return "currency mismatch"
	case ErrAlreadyFinalized:
		return "already finalized"
	case ErrDonationNotIncreasing:
		return "donation not increasing"
	default:
		return "internal error"
	}
}

// AsHTTPStatusCode maps the taxonomy to the status codes fixed in spec §7.
func (kind ClientErrorKind) AsHTTPStatusCode() int {
	switch kind {
	case ErrBadRequest, ErrValidationFailed:
		return http.StatusUnprocessableEntity
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrPaymentRequired:
		return http.StatusPaymentRequired
	case ErrForbidden:
		return http.StatusForbidden
	case ErrNotFound:
		return http.StatusNotFound
	case ErrConflict, ErrAlreadyFinalized:
		return http.StatusConflict
	case ErrWalletLocked:
		return http.StatusConflict
	case ErrExternalRail:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ClientError wraps an underlying error with the taxonomy kind the API
// surface needs to pick a status code.
type ClientError struct {
	Err  error
	Kind ClientErrorKind
}

// NewClientError constructs a ClientError, downgrading an out-of-range kind
// to ErrGeneric rather than propagating an unrepresentable status code.
func NewClientError(err error, kind ClientErrorKind) ClientError {
	if kind > maxClientErrorKind {
		build.Severe("invalid client error kind", kind, err)
		kind = ErrGeneric
	}
	return ClientError{Err: err, Kind: kind}
}

func (ce ClientError) Error() string {
	return fmt.Sprintf("%s: %v", ce.Kind, ce.Err)
}

func (ce ClientError) Unwrap() error {
	return ce.Err
}
