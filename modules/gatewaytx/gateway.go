// Package gatewaytx implements the C3 contract: the deposit/withdraw
// lifecycle that reconciles an external payment rail with the internal
// ledger, per spec §4.3.
package gatewaytx

import (
	"context"
	"fmt"
	"time"

	"github.com/darve-social/darve-server/modules/ledger"
	"github.com/darve-social/darve-server/modules/walletregistry"
	"github.com/darve-social/darve-server/persist"
	"github.com/darve-social/darve-server/store"
	"github.com/darve-social/darve-server/types"
)

// DefaultFeeRate is the withdrawal fee applied before the rail submission,
// per spec §6 "a fee-rate constant (default 0.05)".
const DefaultFeeRate = 0.05

// WithdrawLockTTL bounds how long a withdrawal may hold its source wallet
// locked awaiting rail settlement, per spec §4.3 "TTL > rail's worst-case
// settlement".
const WithdrawLockTTL = 24 * time.Hour

// Gateway is the C3 component.
type Gateway struct {
	db       *store.DB
	ledger   *ledger.Ledger
	registry *walletregistry.Registry
	log      *persist.Logger
	feeRate  float64
}

// New constructs a Gateway over the shared store, ledger, and wallet
// registry.
func New(db *store.DB, l *ledger.Ledger, reg *walletregistry.Registry, log *persist.Logger) *Gateway {
	return &Gateway{db: db, ledger: l, registry: reg, log: log, feeRate: DefaultFeeRate}
}

// InitDeposit creates a Pending deposit record. No ledger movement happens
// until the rail's webhook confirms receipt, per spec §4.3.
func (g *Gateway) InitDeposit(ctx context.Context, userID types.ID, amount types.Amount, currency types.Currency) (*types.GatewayTransaction, error) {
	if amount <= 0 {
		return nil, types.NewClientError(fmt.Errorf("deposit amount must be positive, got %d", amount), types.ErrValidationFailed)
	}
	now := time.Now().UTC()
	gt := &types.GatewayTransaction{
		ID:        types.NewID(),
		User:      userID,
		Type:      types.GatewayDeposit,
		Status:    types.GatewayPending,
		Amount:    amount,
		Currency:  currency,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := g.db.Update(ctx, func(tx *store.Tx) error {
		return tx.SaveGatewayTransaction(gt)
	})
	if err != nil {
		return nil, err
	}
	return gt, nil
}

// CompleteDeposit is called once the rail's webhook confirms receipt: it
// credits the user's spendable wallet from APP_GATEWAY_WALLET using C1 and
// flips the record to Completed, per spec §4.3.
func (g *Gateway) CompleteDeposit(ctx context.Context, gatewayTxID types.ID) error {
	return g.db.Update(ctx, func(tx *store.Tx) error {
		gt, err := tx.GetGatewayTransaction(gatewayTxID)
		if err != nil {
			return err
		}
		if gt.Type != types.GatewayDeposit {
			return types.NewClientError(fmt.Errorf("gateway tx %s is not a deposit", gatewayTxID), types.ErrValidationFailed)
		}
		if gt.Status != types.GatewayPending {
			return types.NewClientError(fmt.Errorf("gateway tx %s already in terminal state %s", gatewayTxID, gt.Status), types.ErrAlreadyFinalized)
		}
		gatewayTxRef := gt.ID
		if _, _, _, _, err := g.ledger.TransferTx(tx, types.AppGatewayWalletID, types.UserWalletID(gt.User), gt.Amount, gt.Currency, ledger.Refs{Type: types.TxTypeDeposit, GatewayTx: &gatewayTxRef}, false); err != nil {
			return err
		}
		gt.Status = types.GatewayCompleted
		gt.UpdatedAt = time.Now().UTC()
		return tx.SaveGatewayTransaction(gt)
	})
}

// FailDeposit flips a Pending deposit to Failed with no ledger movement,
// per spec §4.3.
func (g *Gateway) FailDeposit(ctx context.Context, gatewayTxID types.ID, reason string) error {
	return g.db.Update(ctx, func(tx *store.Tx) error {
		gt, err := tx.GetGatewayTransaction(gatewayTxID)
		if err != nil {
			return err
		}
		if gt.Status != types.GatewayPending {
			return types.NewClientError(fmt.Errorf("gateway tx %s already in terminal state %s", gatewayTxID, gt.Status), types.ErrAlreadyFinalized)
		}
		gt.Status = types.GatewayFailed
		gt.RevertReason = reason
		gt.UpdatedAt = time.Now().UTC()
		return tx.SaveGatewayTransaction(gt)
	})
}

// InitWithdraw runs the withdraw Init sequence from spec §4.3 as a single
// atomic transaction: lock the user's spendable wallet, move amount to
// APP_GATEWAY_WALLET, then move the computed fee from APP_GATEWAY_WALLET to
// DARVE_WALLET, before the record is handed to the external rail. Any leg
// failing rolls the whole sequence back — the lock is never left dangling
// and no partial transfer is ever observed.
func (g *Gateway) InitWithdraw(ctx context.Context, userID types.ID, amount types.Amount, currency types.Currency, externalAccountID string) (*types.GatewayTransaction, error) {
	if amount <= 0 {
		return nil, types.NewClientError(fmt.Errorf("withdraw amount must be positive, got %d", amount), types.ErrValidationFailed)
	}

	userWallet := types.UserWalletID(userID)
	now := time.Now().UTC()
	gt := &types.GatewayTransaction{
		ID:                types.NewID(),
		User:              userID,
		Type:              types.GatewayWithdraw,
		Status:            types.GatewayPending,
		Amount:            amount,
		Currency:          currency,
		ExternalAccountID: externalAccountID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	fee := types.Amount(float64(amount) * g.feeRate)
	gatewayTxRef := gt.ID

	err := g.db.Update(ctx, func(tx *store.Tx) error {
		lockID, err := g.registry.TryLockTx(tx, userWallet, WithdrawLockTTL)
		if err != nil {
			return err
		}
		gt.LockID = &lockID

		if _, _, _, _, err := g.ledger.TransferTx(tx, userWallet, types.AppGatewayWalletID, amount, currency, ledger.Refs{Type: types.TxTypeWithdraw, GatewayTx: &gatewayTxRef}, true); err != nil {
			return err
		}
		if fee > 0 {
			_, feeCreditID, _, _, err := g.ledger.TransferTx(tx, types.AppGatewayWalletID, types.DarveWalletID, fee, currency, ledger.Refs{Type: types.TxTypeFee, GatewayTx: &gatewayTxRef}, false)
			if err != nil {
				return err
			}
			gt.FeeTx = &feeCreditID
		}
		return tx.SaveGatewayTransaction(gt)
	})
	if err != nil {
		return nil, err
	}
	return gt, nil
}

// CompleteWithdraw is called once the rail confirms delivery: the record
// flips to Completed and the wallet lock is released, per spec §4.3.
func (g *Gateway) CompleteWithdraw(ctx context.Context, gatewayTxID types.ID) error {
	return g.db.Update(ctx, func(tx *store.Tx) error {
		gt, err := tx.GetGatewayTransaction(gatewayTxID)
		if err != nil {
			return err
		}
		if gt.Type != types.GatewayWithdraw {
			return types.NewClientError(fmt.Errorf("gateway tx %s is not a withdrawal", gatewayTxID), types.ErrValidationFailed)
		}
		if gt.Status != types.GatewayPending {
			return types.NewClientError(fmt.Errorf("gateway tx %s already in terminal state %s", gatewayTxID, gt.Status), types.ErrAlreadyFinalized)
		}
		gt.Status = types.GatewayCompleted
		gt.UpdatedAt = time.Now().UTC()
		if err := tx.SaveGatewayTransaction(gt); err != nil {
			return err
		}
		if gt.LockID != nil {
			return g.registry.UnlockTx(tx, types.UserWalletID(gt.User), *gt.LockID)
		}
		return nil
	})
}

// FailWithdraw reverts a Pending withdrawal per spec §4.3: amount-minus-fee
// is refunded from APP_GATEWAY_WALLET back to the user wallet (the fee leg,
// if already written, is not reverted — see DESIGN.md), the record flips to
// Failed, and the lock is released.
func (g *Gateway) FailWithdraw(ctx context.Context, gatewayTxID types.ID, reason string) error {
	return g.db.Update(ctx, func(tx *store.Tx) error {
		gt, err := tx.GetGatewayTransaction(gatewayTxID)
		if err != nil {
			return err
		}
		if gt.Type != types.GatewayWithdraw {
			return types.NewClientError(fmt.Errorf("gateway tx %s is not a withdrawal", gatewayTxID), types.ErrValidationFailed)
		}
		if gt.Status != types.GatewayPending {
			return types.NewClientError(fmt.Errorf("gateway tx %s already in terminal state %s", gatewayTxID, gt.Status), types.ErrAlreadyFinalized)
		}

		var fee types.Amount
		if gt.FeeTx != nil {
			fee = types.Amount(float64(gt.Amount) * g.feeRate)
		}
		refund := gt.Amount - fee
		gatewayTxRef := gt.ID
		if refund > 0 {
			if _, _, _, _, err := g.ledger.TransferTx(tx, types.AppGatewayWalletID, types.UserWalletID(gt.User), refund, gt.Currency, ledger.Refs{Type: types.TxTypeTaskRefund, GatewayTx: &gatewayTxRef}, false); err != nil {
				return err
			}
		}

		gt.Status = types.GatewayFailed
		gt.RevertReason = reason
		gt.UpdatedAt = time.Now().UTC()
		if err := tx.SaveGatewayTransaction(gt); err != nil {
			return err
		}
		if gt.LockID != nil {
			return g.registry.UnlockTx(tx, types.UserWalletID(gt.User), *gt.LockID)
		}
		return nil
	})
}

// HandleWebhook applies a verified rail outcome to the gateway record it
// references, routing to the deposit or withdraw transition per spec §4.3
// and §6. Receiving the same outcome twice against an already-terminal
// record is a no-op success (idempotency), not an error.
func (g *Gateway) HandleWebhook(ctx context.Context, event types.RailWebhookEvent) error {
	var current *types.GatewayTransaction
	err := g.db.View(ctx, func(tx *store.Tx) error {
		var err error
		current, err = tx.GetGatewayTransaction(event.GatewayTx)
		return err
	})
	if err != nil {
		return err
	}
	if current.Status != types.GatewayPending {
		g.log.Debugf("webhook for already-finalized gateway tx %s (status=%s), ignoring", current.ID, current.Status)
		return nil
	}

	switch current.Type {
	case types.GatewayDeposit:
		if event.Outcome == types.RailSucceeded {
			return g.CompleteDeposit(ctx, current.ID)
		}
		return g.FailDeposit(ctx, current.ID, fmt.Sprintf("rail %s reported failure", event.Rail))
	case types.GatewayWithdraw:
		if event.Outcome == types.RailSucceeded {
			return g.CompleteWithdraw(ctx, current.ID)
		}
		return g.FailWithdraw(ctx, current.ID, fmt.Sprintf("rail %s reported failure", event.Rail))
	default:
		return types.NewClientError(fmt.Errorf("unrecognized gateway tx type %q", current.Type), types.ErrValidationFailed)
	}
}
