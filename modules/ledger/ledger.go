// Package ledger implements the C1 contract: an atomic, append-only,
// per-(wallet,currency) balance-transaction chain. The transfer primitive
// and head-pointer chain are the accounting core the rest of the backend
// (wallet registry, gateway, task-reward) builds on.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/darve-social/darve-server/persist"
	"github.com/darve-social/darve-server/store"
	"github.com/darve-social/darve-server/types"
)

// Ledger is the C1 component. It is stateless beyond the store and logger
// it holds, so a single instance is shared process-wide.
type Ledger struct {
	db  *store.DB
	log *persist.Logger
}

// New constructs a Ledger over an opened store.
func New(db *store.DB, log *persist.Logger) *Ledger {
	return &Ledger{db: db, log: log}
}

// Refs carries the optional correlation references a transfer's two legs
// are tagged with, per spec §3 BalanceTransaction.
type Refs struct {
	GatewayTx *types.ID
	TaskID    *types.ID
	Type      types.TransactionType
}

// Transfer moves amount of currency from the from wallet to the to wallet,
// appending one debit and one credit record sharing a tx_ident and
// advancing both wallets' head pointers, per spec §4.1. bypassLock skips
// the WalletLocked check on both sides — used when the caller itself just
// acquired (and so already owns) the lock it would otherwise trip, e.g.
// the withdrawal init sequence moving funds out of the wallet it just
// locked, or the ledger advancing an escrow move during an atomic
// task-reward sequence.
func (l *Ledger) Transfer(ctx context.Context, from, to types.WalletID, amount types.Amount, currency types.Currency, refs Refs, bypassLock bool) (debitID, creditID types.ID, sourceBalance, targetBalance types.Amount, err error) {
	err = l.db.Update(ctx, func(tx *store.Tx) error {
		var err error
		debitID, creditID, sourceBalance, targetBalance, err = l.TransferTx(tx, from, to, amount, currency, refs, bypassLock)
		return err
	})
	if err != nil {
		return types.ID{}, types.ID{}, 0, 0, err
	}
	return debitID, creditID, sourceBalance, targetBalance, nil
}

// TransferTx is Transfer's logic run against a transaction the caller
// already holds open, so a multi-leg sequence (withdrawal init's
// lock-then-transfer-then-fee, or a task payout's escrow-to-N-participants
// sweep) commits or rolls back as one unit instead of leg-by-leg. Callers
// composing several TransferTx calls inside one db.Update are themselves
// responsible for lock-acquisition ordering across the whole sequence.
func (l *Ledger) TransferTx(tx *store.Tx, from, to types.WalletID, amount types.Amount, currency types.Currency, refs Refs, bypassLock bool) (debitID, creditID types.ID, sourceBalance, targetBalance types.Amount, err error) {
	if amount <= 0 {
		return types.ID{}, types.ID{}, 0, 0, types.NewClientError(fmt.Errorf("transfer amount must be positive, got %d", amount), types.ErrValidationFailed)
	}
	if !currency.Valid() {
		return types.ID{}, types.ID{}, 0, 0, types.NewClientError(fmt.Errorf("unrecognized currency %q", currency), types.ErrCurrencyMismatch)
	}

	now := time.Now().UTC()
	txIdent := types.NewID()

	// Lock acquisition order is deterministic (source then target, by
	// lexical wallet ID) per spec §5, preventing deadlock against a
	// concurrent reverse transfer.
	first, second := from, to
	if second < first {
		first, second = second, first
	}
	wallets := map[types.WalletID]*types.Wallet{}
	for _, id := range []types.WalletID{first, second} {
		w, err := tx.GetOrCreateWallet(id)
		if err != nil {
			return types.ID{}, types.ID{}, 0, 0, err
		}
		wallets[id] = w
	}
	srcWallet, dstWallet := wallets[from], wallets[to]

	if !bypassLock {
		if srcWallet.IsLocked(now) {
			return types.ID{}, types.ID{}, 0, 0, types.NewClientError(fmt.Errorf("source wallet %s is locked", from), types.ErrWalletLocked)
		}
		if dstWallet.IsLocked(now) {
			return types.ID{}, types.ID{}, 0, 0, types.NewClientError(fmt.Errorf("target wallet %s is locked", to), types.ErrWalletLocked)
		}
	}

	srcHead, err := headOrGenesis(tx, srcWallet, currency, now)
	if err != nil {
		return types.ID{}, types.ID{}, 0, 0, err
	}
	dstHead, err := headOrGenesis(tx, dstWallet, currency, now)
	if err != nil {
		return types.ID{}, types.ID{}, 0, 0, err
	}

	// APP_GATEWAY mirrors external inflow, so it alone may run negative.
	srcNewBalance := srcHead.Balance - amount
	if srcNewBalance < 0 && from != types.AppGatewayWalletID {
		return types.ID{}, types.ID{}, 0, 0, types.NewClientError(fmt.Errorf("wallet %s balance %d insufficient for %d", from, srcHead.Balance, amount), types.ErrPaymentRequired)
	}

	debit := &types.BalanceTransaction{
		ID:              types.NewID(),
		Wallet:          from,
		WithWallet:      &to,
		TxIdent:         txIdent,
		Currency:        currency,
		PrevTransaction: headID(srcHead),
		AmountOut:       amount,
		Balance:         srcNewBalance,
		Type:            refs.Type,
		GatewayTx:       refs.GatewayTx,
		TaskID:          refs.TaskID,
		CreatedAt:       now,
	}
	credit := &types.BalanceTransaction{
		ID:              types.NewID(),
		Wallet:          to,
		WithWallet:      &from,
		TxIdent:         txIdent,
		Currency:        currency,
		PrevTransaction: headID(dstHead),
		AmountIn:        amount,
		Balance:         dstHead.Balance + amount,
		Type:            refs.Type,
		GatewayTx:       refs.GatewayTx,
		TaskID:          refs.TaskID,
		CreatedAt:       now,
	}

	if err := tx.SaveBalanceTransaction(debit); err != nil {
		return types.ID{}, types.ID{}, 0, 0, err
	}
	if err := tx.SaveBalanceTransaction(credit); err != nil {
		return types.ID{}, types.ID{}, 0, 0, err
	}

	srcWallet.TransactionHead[currency] = debit.ID
	dstWallet.TransactionHead[currency] = credit.ID
	if err := tx.SaveWallet(srcWallet); err != nil {
		return types.ID{}, types.ID{}, 0, 0, err
	}
	if err := tx.SaveWallet(dstWallet); err != nil {
		return types.ID{}, types.ID{}, 0, 0, err
	}

	return debit.ID, credit.ID, srcNewBalance, credit.Balance, nil
}

// headOrGenesis returns the current head BalanceTransaction for
// (wallet, currency), creating and persisting a zero-value genesis record
// the first time the pair is touched, per spec §4.1 step 1.
func headOrGenesis(tx *store.Tx, w *types.Wallet, currency types.Currency, now time.Time) (*types.BalanceTransaction, error) {
	headID, ok := w.TransactionHead[currency]
	if ok {
		return tx.GetBalanceTransaction(headID)
	}
	genesis := &types.BalanceTransaction{
		ID:        types.NewID(),
		Wallet:    w.ID,
		TxIdent:   types.NewID(),
		Currency:  currency,
		Balance:   0,
		Type:      types.TxTypeGenesis,
		CreatedAt: now,
	}
	if err := tx.SaveBalanceTransaction(genesis); err != nil {
		return nil, err
	}
	w.TransactionHead[currency] = genesis.ID
	if err := tx.SaveWallet(w); err != nil {
		return nil, err
	}
	return genesis, nil
}

func headID(bt *types.BalanceTransaction) *types.ID {
	id := bt.ID
	return &id
}

// Balance returns the current balance for one (wallet, currency) pair,
// per spec §4.1 "Query side" — O(1), reading only the head record.
func (l *Ledger) Balance(ctx context.Context, wallet types.WalletID, currency types.Currency) (types.Amount, error) {
	var balance types.Amount
	err := l.db.View(ctx, func(tx *store.Tx) error {
		w, err := tx.GetWallet(wallet)
		if err != nil {
			if err == store.ErrNotFound {
				balance = 0
				return nil
			}
			return err
		}
		headID, ok := w.TransactionHead[currency]
		if !ok {
			balance = 0
			return nil
		}
		bt, err := tx.GetBalanceTransaction(headID)
		if err != nil {
			return err
		}
		balance = bt.Balance
		return nil
	})
	return balance, err
}

// History paginates a wallet's balance-transaction chain for one currency,
// most recent first, per spec §4.1 "Query side".
func (l *Ledger) History(ctx context.Context, wallet types.WalletID, currency types.Currency, before int64, limit int) ([]types.BalanceTransaction, error) {
	var out []types.BalanceTransaction
	err := l.db.View(ctx, func(tx *store.Tx) error {
		history, err := tx.History(wallet, currency, before, limit)
		if err != nil {
			return err
		}
		out = history
		return nil
	})
	return out, err
}
