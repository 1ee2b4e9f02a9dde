package taskreward_test

import (
	"context"
	"testing"
	"time"

	"github.com/darve-social/darve-server/modules/taskreward"
	"github.com/darve-social/darve-server/types"
)

func TestSweeperFinalizesDueTaskWithNoDelivery(t *testing.T) {
	e, l, _ := newTestEngine(t)
	ctx := context.Background()
	donor := types.NewID()
	fund(t, l, types.UserWalletID(donor), 1000)

	task, err := e.CreateTask(ctx, taskreward.CreateTaskParams{
		BelongsTo:        types.NewID(),
		CreatedBy:        types.NewID(),
		Currency:         types.USD,
		AcceptancePeriod: -2 * time.Hour,
		DeliveryPeriod:   -time.Hour,
	})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if _, err := e.Donate(ctx, task.ID, donor, 500, types.USD); err != nil {
		t.Fatalf("Donate: %v", err)
	}

	sweeper := taskreward.NewSweeper(e, 10*time.Millisecond, 5)
	if err := sweeper.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { sweeper.Stop() })

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		got, err := e.GetTask(ctx, task.ID)
		if err != nil {
			t.Fatalf("GetTask: %v", err)
		}
		if got.Status == types.TaskCompleted {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("task was not finalized by the sweeper within the deadline")
}
