package walletregistry_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/darve-social/darve-server/modules/ledger"
	"github.com/darve-social/darve-server/modules/walletregistry"
	"github.com/darve-social/darve-server/persist"
	"github.com/darve-social/darve-server/store"
	"github.com/darve-social/darve-server/types"
)

func newTestRegistry(t *testing.T) (*walletregistry.Registry, *ledger.Ledger) {
	t.Helper()
	dir := t.TempDir()
	log, err := persist.NewFileLogger("registry_test", filepath.Join(dir, "test.log"), true)
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	db, err := store.Open(dir, log)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return walletregistry.New(db, log), ledger.New(db, log)
}

func TestBootstrapCreatesSingletons(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()
	if err := r.Bootstrap(ctx); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	b, err := r.Balances(ctx, types.AppGatewayWalletID)
	if err != nil {
		t.Fatalf("Balances: %v", err)
	}
	if len(b) != 0 {
		t.Fatalf("fresh singleton should have no currency heads, got %v", b)
	}
}

func TestTryLockRejectsDoubleLock(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()
	wallet := types.WalletID("wallet:user:alice")

	if _, err := r.TryLock(ctx, wallet, time.Minute); err != nil {
		t.Fatalf("first TryLock: %v", err)
	}
	if _, err := r.TryLock(ctx, wallet, time.Minute); err == nil {
		t.Fatalf("second TryLock should fail while first is active")
	}
}

func TestUnlockIsIdempotent(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()
	wallet := types.WalletID("wallet:user:alice")

	lockID, err := r.TryLock(ctx, wallet, time.Minute)
	if err != nil {
		t.Fatalf("TryLock: %v", err)
	}
	if err := r.Unlock(ctx, wallet, lockID); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if err := r.Unlock(ctx, wallet, lockID); err != nil {
		t.Fatalf("Unlock again should be a no-op, got: %v", err)
	}

	if _, err := r.TryLock(ctx, wallet, time.Minute); err != nil {
		t.Fatalf("TryLock after unlock should succeed: %v", err)
	}
}

func TestExpiredLockTreatedAsAbsent(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()
	wallet := types.WalletID("wallet:user:alice")

	if _, err := r.TryLock(ctx, wallet, -time.Second); err != nil {
		t.Fatalf("TryLock: %v", err)
	}
	if _, err := r.TryLock(ctx, wallet, time.Minute); err != nil {
		t.Fatalf("TryLock over an expired lock should succeed: %v", err)
	}
}

func TestSpendableAndLockedSeparatesWallets(t *testing.T) {
	r, l := newTestRegistry(t)
	ctx := context.Background()
	userID := types.NewID()

	_, _, _, _, err := l.Transfer(ctx, types.AppGatewayWalletID, types.UserWalletID(userID), 500, types.USD, ledger.Refs{Type: types.TxTypeDeposit}, false)
	if err != nil {
		t.Fatalf("fund spendable: %v", err)
	}
	_, _, _, _, err = l.Transfer(ctx, types.AppGatewayWalletID, types.UserLockedWalletID(userID), 200, types.USD, ledger.Refs{Type: types.TxTypeDeposit}, false)
	if err != nil {
		t.Fatalf("fund locked: %v", err)
	}

	view, err := r.SpendableAndLocked(ctx, userID)
	if err != nil {
		t.Fatalf("SpendableAndLocked: %v", err)
	}
	if view.Spendable[types.USD] != 500 {
		t.Fatalf("spendable = %d, want 500", view.Spendable[types.USD])
	}
	if view.Locked[types.USD] != 200 {
		t.Fatalf("locked = %d, want 200", view.Locked[types.USD])
	}
}
