package store

import (
	"errors"
	"time"

	"github.com/asdine/storm"

	"github.com/darve-social/darve-server/types"
)

const bucketWallets = "Wallets"

// ErrNotFound is returned by Get* repository methods when no record
// matches, the store-level counterpart of types.ErrNotFound.
var ErrNotFound = errors.New("not found")

func wrapNotFound(err error) error {
	if errors.Is(err, storm.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// GetWallet fetches a wallet by ID.
func (tx *Tx) GetWallet(id types.WalletID) (*types.Wallet, error) {
	var w types.Wallet
	if err := tx.bucket(bucketWallets).One("ID", id, &w); err != nil {
		return nil, wrapNotFound(err)
	}
	return &w, nil
}

// SaveWallet upserts a wallet.
func (tx *Tx) SaveWallet(w *types.Wallet) error {
	w.UpdatedAt = time.Now().UTC()
	return tx.bucket(bucketWallets).Save(w)
}

// GetOrCreateWallet fetches a wallet, lazily creating it (per spec §3
// "wallets are created lazily on first credit") if absent.
func (tx *Tx) GetOrCreateWallet(id types.WalletID) (*types.Wallet, error) {
	w, err := tx.GetWallet(id)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	w = types.NewWallet(id)
	if err := tx.SaveWallet(w); err != nil {
		return nil, err
	}
	return w, nil
}
