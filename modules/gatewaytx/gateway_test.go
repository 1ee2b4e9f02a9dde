package gatewaytx_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/darve-social/darve-server/modules/gatewaytx"
	"github.com/darve-social/darve-server/modules/ledger"
	"github.com/darve-social/darve-server/modules/walletregistry"
	"github.com/darve-social/darve-server/persist"
	"github.com/darve-social/darve-server/store"
	"github.com/darve-social/darve-server/types"
)

func newTestGateway(t *testing.T) (*gatewaytx.Gateway, *ledger.Ledger, *walletregistry.Registry) {
	t.Helper()
	dir := t.TempDir()
	log, err := persist.NewFileLogger("gateway_test", filepath.Join(dir, "test.log"), true)
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	db, err := store.Open(dir, log)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	l := ledger.New(db, log)
	reg := walletregistry.New(db, log)
	if err := reg.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	return gatewaytx.New(db, l, reg, log), l, reg
}

func TestDepositCompleteCreditsUser(t *testing.T) {
	g, l, _ := newTestGateway(t)
	ctx := context.Background()
	userID := types.NewID()

	gt, err := g.InitDeposit(ctx, userID, 1000, types.USD)
	if err != nil {
		t.Fatalf("InitDeposit: %v", err)
	}
	if gt.Status != types.GatewayPending {
		t.Fatalf("status = %s, want Pending", gt.Status)
	}

	if err := g.CompleteDeposit(ctx, gt.ID); err != nil {
		t.Fatalf("CompleteDeposit: %v", err)
	}

	balance, err := l.Balance(ctx, types.UserWalletID(userID), types.USD)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if balance != 1000 {
		t.Fatalf("balance = %d, want 1000", balance)
	}

	if err := g.CompleteDeposit(ctx, gt.ID); err == nil {
		t.Fatalf("completing an already-completed deposit should fail")
	}
}

func TestDepositFailMovesNoFunds(t *testing.T) {
	g, l, _ := newTestGateway(t)
	ctx := context.Background()
	userID := types.NewID()

	gt, err := g.InitDeposit(ctx, userID, 1000, types.USD)
	if err != nil {
		t.Fatalf("InitDeposit: %v", err)
	}
	if err := g.FailDeposit(ctx, gt.ID, "rail declined"); err != nil {
		t.Fatalf("FailDeposit: %v", err)
	}

	balance, err := l.Balance(ctx, types.UserWalletID(userID), types.USD)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if balance != 0 {
		t.Fatalf("balance = %d, want 0", balance)
	}
}

func TestInitDepositRejectsNonPositiveAmount(t *testing.T) {
	g, _, _ := newTestGateway(t)
	ctx := context.Background()
	if _, err := g.InitDeposit(ctx, types.NewID(), 0, types.USD); err == nil {
		t.Fatalf("InitDeposit with zero amount should fail")
	}
}

func TestWithdrawInitLocksMovesFundsAndChargesFee(t *testing.T) {
	g, l, reg := newTestGateway(t)
	ctx := context.Background()
	userID := types.NewID()

	if _, _, _, _, err := l.Transfer(ctx, types.AppGatewayWalletID, types.UserWalletID(userID), 1000, types.USD, ledger.Refs{Type: types.TxTypeDeposit}, false); err != nil {
		t.Fatalf("seed balance: %v", err)
	}

	gt, err := g.InitWithdraw(ctx, userID, 400, types.USD, "acct_123")
	if err != nil {
		t.Fatalf("InitWithdraw: %v", err)
	}
	if gt.LockID == nil {
		t.Fatalf("expected LockID to be set")
	}
	if gt.FeeTx == nil {
		t.Fatalf("expected FeeTx to be set for a positive fee")
	}

	userBalance, err := l.Balance(ctx, types.UserWalletID(userID), types.USD)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if userBalance != 600 {
		t.Fatalf("user balance = %d, want 600", userBalance)
	}

	darveBalance, err := l.Balance(ctx, types.DarveWalletID, types.USD)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if darveBalance != 20 {
		t.Fatalf("darve balance = %d, want 20 (5%% of 400)", darveBalance)
	}

	if _, err := reg.TryLock(ctx, types.UserWalletID(userID), 0); err == nil {
		t.Fatalf("wallet should already be locked by InitWithdraw")
	}
}

func TestWithdrawCompleteReleasesLock(t *testing.T) {
	g, l, reg := newTestGateway(t)
	ctx := context.Background()
	userID := types.NewID()

	if _, _, _, _, err := l.Transfer(ctx, types.AppGatewayWalletID, types.UserWalletID(userID), 1000, types.USD, ledger.Refs{Type: types.TxTypeDeposit}, false); err != nil {
		t.Fatalf("seed balance: %v", err)
	}
	gt, err := g.InitWithdraw(ctx, userID, 400, types.USD, "acct_123")
	if err != nil {
		t.Fatalf("InitWithdraw: %v", err)
	}

	if err := g.CompleteWithdraw(ctx, gt.ID); err != nil {
		t.Fatalf("CompleteWithdraw: %v", err)
	}

	if _, err := reg.TryLock(ctx, types.UserWalletID(userID), time.Minute); err != nil {
		t.Fatalf("wallet lock should be released after CompleteWithdraw: %v", err)
	}
}

func TestWithdrawFailRefundsAmountMinusFee(t *testing.T) {
	g, l, reg := newTestGateway(t)
	ctx := context.Background()
	userID := types.NewID()

	if _, _, _, _, err := l.Transfer(ctx, types.AppGatewayWalletID, types.UserWalletID(userID), 1000, types.USD, ledger.Refs{Type: types.TxTypeDeposit}, false); err != nil {
		t.Fatalf("seed balance: %v", err)
	}
	gt, err := g.InitWithdraw(ctx, userID, 400, types.USD, "acct_123")
	if err != nil {
		t.Fatalf("InitWithdraw: %v", err)
	}

	if err := g.FailWithdraw(ctx, gt.ID, "rail rejected"); err != nil {
		t.Fatalf("FailWithdraw: %v", err)
	}

	userBalance, err := l.Balance(ctx, types.UserWalletID(userID), types.USD)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	// 1000 - 400 (withdrawn) + 380 (refund = amount minus the fee already charged) = 980
	if userBalance != 980 {
		t.Fatalf("user balance = %d, want 980", userBalance)
	}

	if _, err := reg.TryLock(ctx, types.UserWalletID(userID), time.Minute); err != nil {
		t.Fatalf("wallet lock should be released after FailWithdraw: %v", err)
	}
}

func TestWithdrawRejectsInsufficientBalance(t *testing.T) {
	g, l, reg := newTestGateway(t)
	ctx := context.Background()
	userID := types.NewID()

	if _, err := g.InitWithdraw(ctx, userID, 500, types.USD, "acct_123"); err == nil {
		t.Fatalf("InitWithdraw against an empty wallet should fail")
	}

	// The failed attempt must not leave the wallet locked or move any funds.
	if _, err := reg.TryLock(ctx, types.UserWalletID(userID), time.Minute); err != nil {
		t.Fatalf("wallet should not be left locked after a failed InitWithdraw: %v", err)
	}
	balance, err := l.Balance(ctx, types.UserWalletID(userID), types.USD)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if balance != 0 {
		t.Fatalf("balance = %d, want 0", balance)
	}
}

func TestHandleWebhookRoutesAndIsIdempotent(t *testing.T) {
	g, l, _ := newTestGateway(t)
	ctx := context.Background()
	userID := types.NewID()

	gt, err := g.InitDeposit(ctx, userID, 1000, types.USD)
	if err != nil {
		t.Fatalf("InitDeposit: %v", err)
	}

	event := types.RailWebhookEvent{Rail: "stripe", GatewayTx: gt.ID, Outcome: types.RailSucceeded}
	if err := g.HandleWebhook(ctx, event); err != nil {
		t.Fatalf("HandleWebhook: %v", err)
	}

	balance, err := l.Balance(ctx, types.UserWalletID(userID), types.USD)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if balance != 1000 {
		t.Fatalf("balance = %d, want 1000", balance)
	}

	// A duplicate delivery of the same outcome against the now-terminal
	// record must be a no-op, not an error.
	if err := g.HandleWebhook(ctx, event); err != nil {
		t.Fatalf("duplicate HandleWebhook should be a no-op, got: %v", err)
	}
	balance, err = l.Balance(ctx, types.UserWalletID(userID), types.USD)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if balance != 1000 {
		t.Fatalf("balance after duplicate webhook = %d, want unchanged 1000", balance)
	}
}

func TestHandleWebhookFailureRoutesToFail(t *testing.T) {
	g, l, _ := newTestGateway(t)
	ctx := context.Background()
	userID := types.NewID()

	gt, err := g.InitDeposit(ctx, userID, 1000, types.USD)
	if err != nil {
		t.Fatalf("InitDeposit: %v", err)
	}

	event := types.RailWebhookEvent{Rail: "stripe", GatewayTx: gt.ID, Outcome: types.RailFailed}
	if err := g.HandleWebhook(ctx, event); err != nil {
		t.Fatalf("HandleWebhook: %v", err)
	}

	balance, err := l.Balance(ctx, types.UserWalletID(userID), types.USD)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if balance != 0 {
		t.Fatalf("balance = %d, want 0 after a failed deposit", balance)
	}
}
