package types

import "time"

// TransactionType classifies a BalanceTransaction leg for display and
// reconciliation purposes. It does not affect ledger invariants — those are
// enforced purely on amount_in/amount_out/balance (spec §4.1).
type TransactionType string

const (
	TxTypeTransfer     TransactionType = "Transfer"
	TxTypeDeposit      TransactionType = "Deposit"
	TxTypeWithdraw     TransactionType = "Withdraw"
	TxTypeFee          TransactionType = "Fee"
	TxTypeDonation     TransactionType = "Donation"
	TxTypeTaskPayout   TransactionType = "TaskPayout"
	TxTypeTaskRefund   TransactionType = "TaskRefund"
	TxTypeGenesis      TransactionType = "Genesis"
)

// BalanceTransaction is one leg (debit or credit) of a transfer. Two legs
// sharing TxIdent form a complete transfer, per spec §3/§8 "Transfer
// atomicity". Exactly one of AmountIn/AmountOut is non-zero, except the
// genesis record which carries both as zero.
type BalanceTransaction struct {
	ID              ID              `json:"id" storm:"id"`
	Wallet          WalletID        `json:"wallet" storm:"index"`
	WithWallet      *WalletID       `json:"with_wallet,omitempty"`
	TxIdent         ID              `json:"tx_ident" storm:"index"`
	Currency        Currency        `json:"currency"`
	PrevTransaction *ID             `json:"prev_transaction,omitempty"`
	AmountIn        Amount          `json:"amount_in,omitempty"`
	AmountOut       Amount          `json:"amount_out,omitempty"`
	Balance         Amount          `json:"balance"`
	Type            TransactionType `json:"type"`
	GatewayTx       *ID             `json:"gateway_tx,omitempty"`
	TaskID          *ID             `json:"task_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at" storm:"index"`
}

// IsGenesis reports whether this is the zero-value sentinel record created
// the first time a (wallet, currency) pair is touched.
func (bt *BalanceTransaction) IsGenesis() bool {
	return bt.PrevTransaction == nil && bt.AmountIn == 0 && bt.AmountOut == 0
}

// Leg describes one side of an in-flight transfer before it is written as a
// BalanceTransaction. The ledger's Transfer primitive builds its
// BalanceTransaction records directly and does not use this type.
type Leg struct {
	Wallet    WalletID
	Currency  Currency
	AmountIn  Amount
	AmountOut Amount
}
