package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ID is the opaque identifier every entity in this system is addressed by.
// Unlike the teacher's content-addressed UTXO IDs (a hash of the object's
// contents), these are account-based records, so identity is assigned at
// creation time the way every wallet/ledger service in the example pack
// does it — a random v4 UUID (see AMBIENT STACK in SPEC_FULL.md).
type ID = uuid.UUID

// NewID returns a fresh random identifier.
func NewID() ID {
	return uuid.New()
}

// ParseID parses a string-form ID, returning the same error a malformed
// path/query parameter should surface as ErrBadRequest at the API layer.
func ParseID(s string) (ID, error) {
	return uuid.Parse(s)
}

// WalletID names a wallet. Two singletons are well-known process-wide
// (AppGatewayWalletID, DarveWalletID); every other wallet ID is derived
// deterministically from its owning user or task, per spec §3/§4.2.
type WalletID string

const (
	// AppGatewayWalletID is the source of deposits and sink of withdrawal
	// holds. Its balance mirrors external inflow and may go negative; the
	// ledger exempts it from the balance check.
	AppGatewayWalletID WalletID = "wallet:APP_GATEWAY"
	// DarveWalletID is the fee sink for withdrawal and payout-rounding
	// fees.
	DarveWalletID WalletID = "wallet:DARVE"
)

// UserWalletID returns the spendable wallet ID for a user.
func UserWalletID(userID ID) WalletID {
	return WalletID(fmt.Sprintf("wallet:user:%s", userID))
}

// UserLockedWalletID returns the escrow wallet ID for a user's own locked
// funds (distinct from a task's escrow wallet).
func UserLockedWalletID(userID ID) WalletID {
	return WalletID(fmt.Sprintf("wallet:user:%s_locked", userID))
}

// TaskEscrowWalletID returns the wallet ID of the escrow wallet unique to a
// given task, per spec §3 TaskRequest.wallet_id.
func TaskEscrowWalletID(taskID ID) WalletID {
	return WalletID(fmt.Sprintf("wallet:task:%s_escrow", taskID))
}

// IsLockedWallet reports whether id is conventionally a "_locked" escrow
// wallet, by its name suffix alone.
func (id WalletID) IsLockedWallet() bool {
	n := len(id)
	return n > 7 && id[n-7:] == "_locked"
}

// Wallet is the per-currency balance-chain head pointer and lock state for
// one wallet, per spec §3.
type Wallet struct {
	ID                WalletID            `json:"id" storm:"id"`
	TransactionHead    map[Currency]ID     `json:"transaction_head" msgpack:"transaction_head"`
	LockID             *ID                 `json:"lock_id,omitempty"`
	LockExpiresAt      *time.Time          `json:"lock_expires_at,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// NewWallet returns a freshly created, unlocked wallet with no transaction
// history yet (wallets are created lazily on first credit, per spec §3
// Lifecycles).
func NewWallet(id WalletID) *Wallet {
	now := time.Now().UTC()
	return &Wallet{
		ID:              id,
		TransactionHead: make(map[Currency]ID),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// IsLocked reports whether the wallet currently carries an unexpired lock,
// per spec §4.2 ("an expired lock is treated as absent").
func (w *Wallet) IsLocked(now time.Time) bool {
	if w.LockID == nil {
		return false
	}
	if w.LockExpiresAt == nil {
		return true
	}
	return now.Before(*w.LockExpiresAt)
}
