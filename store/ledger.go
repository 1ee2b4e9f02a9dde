package store

import (
	"github.com/asdine/storm"
	"github.com/asdine/storm/q"

	"github.com/darve-social/darve-server/types"
)

const bucketBalanceTransactions = "BalanceTransactions"

// SaveBalanceTransaction inserts a new, immutable balance-transaction leg.
// Balance transactions are never updated once written (spec §3 Lifecycles).
func (tx *Tx) SaveBalanceTransaction(bt *types.BalanceTransaction) error {
	return tx.bucket(bucketBalanceTransactions).Save(bt)
}

// GetBalanceTransaction fetches one leg by ID.
func (tx *Tx) GetBalanceTransaction(id types.ID) (*types.BalanceTransaction, error) {
	var bt types.BalanceTransaction
	if err := tx.bucket(bucketBalanceTransactions).One("ID", id, &bt); err != nil {
		return nil, wrapNotFound(err)
	}
	return &bt, nil
}

// TransferLegs fetches the two legs sharing a tx_ident, per spec §8
// "Transfer atomicity": exactly one with amount_in, one with amount_out.
func (tx *Tx) TransferLegs(txIdent types.ID) ([]types.BalanceTransaction, error) {
	var legs []types.BalanceTransaction
	if err := tx.bucket(bucketBalanceTransactions).Find("TxIdent", txIdent, &legs); err != nil {
		return nil, wrapNotFound(err)
	}
	return legs, nil
}

// History paginates a wallet's balance-transaction chain for one currency,
// ordered by descending created_at, per spec §4.1 "Query side". cursor is
// the created_at of the last record returned by the previous page (zero
// value for the first page).
func (tx *Tx) History(wallet types.WalletID, currency types.Currency, before int64, limit int) ([]types.BalanceTransaction, error) {
	var all []types.BalanceTransaction
	matcher := q.And(
		q.Eq("Wallet", wallet),
		q.Eq("Currency", currency),
	)
	if err := tx.bucket(bucketBalanceTransactions).Select(matcher).OrderBy("CreatedAt").Reverse().Find(&all); err != nil && err != storm.ErrNotFound {
		return nil, err
	}
	if limit <= 0 || limit > len(all) {
		limit = len(all)
	}
	out := make([]types.BalanceTransaction, 0, limit)
	for _, bt := range all {
		if before > 0 && bt.CreatedAt.UnixNano() >= before {
			continue
		}
		out = append(out, bt)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
