package access_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/darve-social/darve-server/modules/access"
	"github.com/darve-social/darve-server/persist"
	"github.com/darve-social/darve-server/store"
	"github.com/darve-social/darve-server/types"
)

func TestCanIsMonotoneAcrossChain(t *testing.T) {
	tests := []struct {
		name  string
		chain []access.Node
		perm  types.Permission
		want  bool
	}{
		{
			name: "owner everywhere can edit",
			chain: []access.Node{
				{Resource: types.ResourceApp, Role: types.RoleOwner},
				{Resource: types.ResourceDiscussion, Role: types.RoleOwner},
			},
			perm: types.PermissionEdit,
			want: true,
		},
		{
			name: "chat-only link caps a higher app role",
			chain: []access.Node{
				{Resource: types.ResourceApp, Role: types.RoleOwner},
				{Resource: types.ResourceDiscussion, Role: types.RoleChat},
			},
			perm: types.PermissionEdit,
			want: false,
		},
		{
			name: "member satisfies view",
			chain: []access.Node{
				{Resource: types.ResourceApp, Role: types.RoleMember},
				{Resource: types.ResourceDiscussion, Role: types.RoleMember},
			},
			perm: types.PermissionView,
			want: true,
		},
		{
			name: "empty chain never passes",
			chain: nil,
			perm:  types.PermissionView,
			want:  false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := access.Can(tt.chain, tt.perm); got != tt.want {
				t.Fatalf("Can() = %v, want %v", got, tt.want)
			}
		})
	}
}

func newTestControl(t *testing.T) *access.Control {
	t.Helper()
	dir := t.TempDir()
	log, err := persist.NewFileLogger("access_test", filepath.Join(dir, "test.log"), true)
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	db, err := store.Open(dir, log)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return access.New(db)
}

func TestRoleOnDefaultsToChatWhenAbsent(t *testing.T) {
	c := newTestControl(t)
	ctx := context.Background()
	role, err := c.RoleOn(ctx, types.NewID(), types.ResourceDiscussion, types.NewID())
	if err != nil {
		t.Fatalf("RoleOn: %v", err)
	}
	if role != types.RoleChat {
		t.Fatalf("RoleOn = %v, want RoleChat", role)
	}
}

func TestGrantThenRoleOn(t *testing.T) {
	c := newTestControl(t)
	ctx := context.Background()
	user := types.NewID()
	disc := types.NewID()

	if err := c.Grant(ctx, user, types.ResourceDiscussion, disc, types.RoleEditor); err != nil {
		t.Fatalf("Grant: %v", err)
	}
	role, err := c.RoleOn(ctx, user, types.ResourceDiscussion, disc)
	if err != nil {
		t.Fatalf("RoleOn: %v", err)
	}
	if role != types.RoleEditor {
		t.Fatalf("RoleOn = %v, want RoleEditor", role)
	}

	// Re-granting updates the same edge rather than creating a second one.
	if err := c.Grant(ctx, user, types.ResourceDiscussion, disc, types.RoleOwner); err != nil {
		t.Fatalf("Grant (update): %v", err)
	}
	role, err = c.RoleOn(ctx, user, types.ResourceDiscussion, disc)
	if err != nil {
		t.Fatalf("RoleOn: %v", err)
	}
	if role != types.RoleOwner {
		t.Fatalf("RoleOn after re-grant = %v, want RoleOwner", role)
	}
}

func TestPresenceFirstConnectionFiresOnline(t *testing.T) {
	events := make(chan bool, 4)
	p := access.NewPresence(func(_ types.ID, online bool) { events <- online })
	user := types.NewID()

	g := p.Open(user)
	defer g.Close()

	select {
	case online := <-events:
		if !online {
			t.Fatalf("expected online=true on first connection")
		}
	case <-time.After(time.Second):
		t.Fatalf("no presence event fired")
	}
	if p.Count(user) != 1 {
		t.Fatalf("Count = %d, want 1", p.Count(user))
	}
}

func TestPresenceSecondConnectionDoesNotRefire(t *testing.T) {
	events := make(chan bool, 4)
	p := access.NewPresence(func(_ types.ID, online bool) { events <- online })
	user := types.NewID()

	g1 := p.Open(user)
	defer g1.Close()
	<-events // consume the first online event

	g2 := p.Open(user)
	defer g2.Close()

	select {
	case online := <-events:
		t.Fatalf("unexpected second event: online=%v", online)
	case <-time.After(100 * time.Millisecond):
	}
	if p.Count(user) != 2 {
		t.Fatalf("Count = %d, want 2", p.Count(user))
	}
}

func TestPresenceQuickReconnectNeverGoesOffline(t *testing.T) {
	events := make(chan bool, 4)
	p := access.NewPresence(func(_ types.ID, online bool) { events <- online })
	user := types.NewID()

	g := p.Open(user)
	<-events // online
	g.Close()
	// Reconnect well within the linger window.
	p.Open(user)

	select {
	case online := <-events:
		t.Fatalf("flapped offline/online during linger window: online=%v", online)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestPresenceOfflineFiresAfterLinger(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping 10s linger wait in -short mode")
	}
	events := make(chan bool, 4)
	p := access.NewPresence(func(_ types.ID, online bool) { events <- online })
	user := types.NewID()

	g := p.Open(user)
	<-events // online
	g.Close()

	select {
	case online := <-events:
		if online {
			t.Fatalf("expected offline event, got online=true")
		}
	case <-time.After(11 * time.Second):
		t.Fatalf("offline event never fired")
	}
}

func TestPresenceNeverNegative(t *testing.T) {
	p := access.NewPresence(nil)
	user := types.NewID()
	g := p.Open(user)
	g.Close()
	g.Close() // idempotent double-close must not drive the count negative
	if p.Count(user) != 0 {
		t.Fatalf("Count = %d, want 0", p.Count(user))
	}
}
