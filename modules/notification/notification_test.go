package notification_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/darve-social/darve-server/modules/notification"
	"github.com/darve-social/darve-server/persist"
	"github.com/darve-social/darve-server/store"
	"github.com/darve-social/darve-server/types"
)

func newTestService(t *testing.T) *notification.Service {
	t.Helper()
	dir := t.TempDir()
	log, err := persist.NewFileLogger("notification_test", filepath.Join(dir, "test.log"), true)
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	db, err := store.Open(dir, log)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return notification.New(db, log)
}

func TestNotifyCreatesOneEdgePerRecipient(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	creator := types.NewID()
	alice, bob := types.NewID(), types.NewID()

	n, err := s.Notify(ctx, creator, types.EventUserFollowAdded, "alice followed you", nil, []types.ID{alice, bob})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}

	for _, recipient := range []types.ID{alice, bob} {
		page, err := s.List(ctx, recipient, notification.ListParams{})
		if err != nil {
			t.Fatalf("List(%s): %v", recipient, err)
		}
		if len(page) != 1 || page[0].NotificationID != n.ID {
			t.Fatalf("List(%s) = %+v, want one edge for %s", recipient, page, n.ID)
		}
		if page[0].IsRead {
			t.Fatalf("new edge must start unread")
		}
	}
}

func TestReadFlipsOnlyOneEdge(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	creator := types.NewID()
	alice, bob := types.NewID(), types.NewID()

	n, err := s.Notify(ctx, creator, types.EventUserChatMessage, "hi", nil, []types.ID{alice, bob})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if err := s.Read(ctx, n.ID, alice); err != nil {
		t.Fatalf("Read: %v", err)
	}

	alicePage, _ := s.List(ctx, alice, notification.ListParams{})
	bobPage, _ := s.List(ctx, bob, notification.ListParams{})
	if !alicePage[0].IsRead {
		t.Fatalf("alice's edge should be read")
	}
	if bobPage[0].IsRead {
		t.Fatalf("bob's edge must be unaffected by alice's read")
	}
}

func TestReadAllBulkFlips(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	creator, user := types.NewID(), types.NewID()

	for i := 0; i < 3; i++ {
		if _, err := s.Notify(ctx, creator, types.EventUserLikePost, "liked", nil, []types.ID{user}); err != nil {
			t.Fatalf("Notify: %v", err)
		}
	}

	n, err := s.ReadAll(ctx, user)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if n != 3 {
		t.Fatalf("ReadAll flipped %d edges, want 3", n)
	}

	unread, err := s.List(ctx, user, notification.ListParams{UnreadOnly: true})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(unread) != 0 {
		t.Fatalf("unread = %+v, want none", unread)
	}
}

func TestHubDeliversOnlyToAddressedReceivers(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	creator := types.NewID()
	alice, bob := types.NewID(), types.NewID()

	aliceSub := s.Hub().Subscribe(alice)
	defer aliceSub.Close()
	bobSub := s.Hub().Subscribe(bob)
	defer bobSub.Close()

	if _, err := s.Notify(ctx, creator, types.EventUserFollowAdded, "t", nil, []types.ID{alice}); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	select {
	case ev := <-aliceSub.Events():
		if ev.Event != types.EventUserFollowAdded {
			t.Fatalf("unexpected event %v", ev)
		}
	case <-time.After(time.Second):
		t.Fatalf("alice did not receive the event addressed to her")
	}

	select {
	case ev := <-bobSub.Events():
		t.Fatalf("bob must not receive an event addressed to alice, got %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubSlowSubscriberDropsWithoutBlockingPublisher(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	creator, user := types.NewID(), types.NewID()

	sub := s.Hub().Subscribe(user)
	defer sub.Close()

	// Flood past the subscriber's buffer without ever draining it; Notify
	// must not block on the slow consumer (spec §4.5 "lossy for slow
	// consumers").
	done := make(chan struct{})
	go func() {
		for i := 0; i < 64; i++ {
			if _, err := s.Notify(ctx, creator, types.EventUserStatus, "t", nil, []types.ID{user}); err != nil {
				t.Errorf("Notify: %v", err)
			}
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Notify blocked on a slow subscriber")
	}
}
