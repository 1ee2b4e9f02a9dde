// Package access implements the C6 consumed contract: the can(user,
// resource, permission) boolean C4/C5 call into, and the presence guard,
// per spec §4.6.
package access

import (
	"context"

	"github.com/darve-social/darve-server/store"
	"github.com/darve-social/darve-server/types"
)

// Control is the C6 component.
type Control struct {
	db *store.DB
}

// New constructs a Control over the shared store.
func New(db *store.DB) *Control {
	return &Control{db: db}
}

// Node is one link of the access-path chain from spec §4.6: (App, Role) ->
// (DiscussionPublic|Private, Role) -> (PostPublic|Private, Role) ->
// (TaskPublic|Private, Role). Grounded on
// original_source/src/access/{discussion,post,task}.rs's AccessPath, a
// linked list of (resource kind, role) pairs walked to a single decision.
type Node struct {
	Resource types.ResourceKind
	Role     types.Role
}

// Can resolves spec §4.6's can(user, resource, permission): the effective
// role for a permission check is the minimum role observed along the
// chain, since a member demoted at any link (e.g. Chat-only on a private
// discussion) cannot be promoted back up by a higher role elsewhere in the
// path.
func Can(chain []Node, permission types.Permission) bool {
	if len(chain) == 0 {
		return false
	}
	required := permission.RequiredRole()
	effective := chain[0].Role
	for _, n := range chain[1:] {
		if n.Role < effective {
			effective = n.Role
		}
	}
	return effective >= required
}

// Grant upserts a role for a user on a resource, per spec §3's Access
// relation.
func (c *Control) Grant(ctx context.Context, userID types.ID, resource types.ResourceKind, resourceID types.ID, role types.Role) error {
	return c.db.Update(ctx, func(tx *store.Tx) error {
		return tx.SaveAccess(&types.Access{
			UserID:     userID,
			Resource:   resource,
			ResourceID: resourceID,
			Role:       role,
		})
	})
}

// RoleOn returns a user's recorded role on one resource, defaulting to
// RoleChat if no edge exists (spec §4.6's walk treats an absent edge as
// the lowest standing rather than an error).
func (c *Control) RoleOn(ctx context.Context, userID types.ID, resource types.ResourceKind, resourceID types.ID) (types.Role, error) {
	var role types.Role
	err := c.db.View(ctx, func(tx *store.Tx) error {
		a, err := tx.GetAccess(userID, resource, resourceID)
		if err != nil {
			if err == store.ErrNotFound {
				role = types.RoleChat
				return nil
			}
			return err
		}
		role = a.Role
		return nil
	})
	return role, err
}

// Chain resolves a user's effective Node chain across an ordered set of
// (resource, resourceID) links, one RoleOn lookup per link, in the order
// spec §4.6 names (App, then Discussion, then Post or Task).
func (c *Control) Chain(ctx context.Context, userID types.ID, links []struct {
	Resource   types.ResourceKind
	ResourceID types.ID
}) ([]Node, error) {
	nodes := make([]Node, 0, len(links))
	for _, l := range links {
		role, err := c.RoleOn(ctx, userID, l.Resource, l.ResourceID)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, Node{Resource: l.Resource, Role: role})
	}
	return nodes, nil
}
