// Package walletregistry implements the C2 contract: wallet identity,
// derivation, and the advisory lock used to serialize multi-step flows
// (a withdrawal whose external submission has not yet resolved) against
// the same wallet.
package walletregistry

import (
	"context"
	"fmt"
	"time"

	"github.com/darve-social/darve-server/persist"
	"github.com/darve-social/darve-server/store"
	"github.com/darve-social/darve-server/types"
)

// Registry is the C2 component.
type Registry struct {
	db  *store.DB
	log *persist.Logger
}

// New constructs a Registry over an opened store.
func New(db *store.DB, log *persist.Logger) *Registry {
	return &Registry{db: db, log: log}
}

// Bootstrap ensures the two process-wide singleton wallets exist. Called
// once at daemon startup.
func (r *Registry) Bootstrap(ctx context.Context) error {
	return r.db.Update(ctx, func(tx *store.Tx) error {
		for _, id := range []types.WalletID{types.AppGatewayWalletID, types.DarveWalletID} {
			if _, err := tx.GetOrCreateWallet(id); err != nil {
				return err
			}
		}
		return nil
	})
}

// TryLock acquires an advisory lock on wallet with the given ttl, succeeding
// only if no active (unexpired) lock already exists, per spec §4.2.
func (r *Registry) TryLock(ctx context.Context, wallet types.WalletID, ttl time.Duration) (types.ID, error) {
	var lockID types.ID
	err := r.db.Update(ctx, func(tx *store.Tx) error {
		var err error
		lockID, err = r.TryLockTx(tx, wallet, ttl)
		return err
	})
	if err != nil {
		return types.ID{}, err
	}
	return lockID, nil
}

// TryLockTx is TryLock's logic run against a transaction the caller already
// holds open, so acquiring the lock composes atomically with the writes it
// guards (the withdrawal init sequence's lock-then-transfer-then-fee).
func (r *Registry) TryLockTx(tx *store.Tx, wallet types.WalletID, ttl time.Duration) (types.ID, error) {
	lockID := types.NewID()
	now := time.Now().UTC()
	expires := now.Add(ttl)

	w, err := tx.GetOrCreateWallet(wallet)
	if err != nil {
		return types.ID{}, err
	}
	if w.IsLocked(now) {
		return types.ID{}, types.NewClientError(fmt.Errorf("wallet %s already locked", wallet), types.ErrWalletLocked)
	}
	w.LockID = &lockID
	w.LockExpiresAt = &expires
	if err := tx.SaveWallet(w); err != nil {
		return types.ID{}, err
	}
	return lockID, nil
}

// Unlock releases a lock previously returned by TryLock. It is idempotent:
// releasing an already-absent, already-expired, or mismatched lock is a
// no-op rather than an error, per spec §4.2.
func (r *Registry) Unlock(ctx context.Context, wallet types.WalletID, lockID types.ID) error {
	return r.db.Update(ctx, func(tx *store.Tx) error {
		return r.UnlockTx(tx, wallet, lockID)
	})
}

// UnlockTx is Unlock's logic run against a transaction the caller already
// holds open.
func (r *Registry) UnlockTx(tx *store.Tx, wallet types.WalletID, lockID types.ID) error {
	w, err := tx.GetWallet(wallet)
	if err != nil {
		if err == store.ErrNotFound {
			return nil
		}
		return err
	}
	if w.LockID == nil || *w.LockID != lockID {
		return nil
	}
	w.LockID = nil
	w.LockExpiresAt = nil
	return tx.SaveWallet(w)
}

// Balances sums every currency's head balance for wallet into the
// {usd, reef, eth} view spec §4.2 describes.
func (r *Registry) Balances(ctx context.Context, wallet types.WalletID) (types.Balances, error) {
	balances := types.Balances{}
	err := r.db.View(ctx, func(tx *store.Tx) error {
		w, err := tx.GetWallet(wallet)
		if err != nil {
			if err == store.ErrNotFound {
				return nil
			}
			return err
		}
		for currency, headID := range w.TransactionHead {
			bt, err := tx.GetBalanceTransaction(headID)
			if err != nil {
				return err
			}
			balances[currency] = bt.Balance
		}
		return nil
	})
	return balances, err
}

// SpendableAndLocked returns the combined {spendable, locked} view for a
// user's two derived wallets, per spec §4.2.
func (r *Registry) SpendableAndLocked(ctx context.Context, userID types.ID) (types.SpendableLocked, error) {
	spendable, err := r.Balances(ctx, types.UserWalletID(userID))
	if err != nil {
		return types.SpendableLocked{}, err
	}
	locked, err := r.Balances(ctx, types.UserLockedWalletID(userID))
	if err != nil {
		return types.SpendableLocked{}, err
	}
	return types.SpendableLocked{Spendable: spendable, Locked: locked}, nil
}
