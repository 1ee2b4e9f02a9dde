package store

import (
	"github.com/asdine/storm"
	"github.com/asdine/storm/q"

	"github.com/darve-social/darve-server/types"
)

const bucketAccess = "Access"

// SaveAccess upserts a user's role on a resource, keyed by
// (UserID, Resource, ResourceID). If an edge already exists for that
// triple, a is saved over it in place.
func (tx *Tx) SaveAccess(a *types.Access) error {
	if existing, err := tx.GetAccess(a.UserID, a.Resource, a.ResourceID); err == nil {
		a.ID = existing.ID
	} else if err != ErrNotFound {
		return err
	} else if a.ID == (types.ID{}) {
		a.ID = types.NewID()
	}
	return tx.bucket(bucketAccess).Save(a)
}

// GetAccess fetches a single user/resource role edge.
func (tx *Tx) GetAccess(userID types.ID, resource types.ResourceKind, resourceID types.ID) (*types.Access, error) {
	var matches []types.Access
	matcher := q.And(
		q.Eq("UserID", userID),
		q.Eq("Resource", resource),
		q.Eq("ResourceID", resourceID),
	)
	if err := tx.bucket(bucketAccess).Select(matcher).Find(&matches); err != nil {
		return nil, wrapNotFound(err)
	}
	if len(matches) == 0 {
		return nil, ErrNotFound
	}
	return &matches[0], nil
}

// ResourceAccess lists every role a user holds across a set of resources of
// the same kind in one query. access.Control's chain walk does not use it;
// it calls RoleOn once per link.
func (tx *Tx) ResourceAccess(userID types.ID, resource types.ResourceKind, resourceIDs []types.ID) ([]types.Access, error) {
	ids := make([]interface{}, len(resourceIDs))
	for i, id := range resourceIDs {
		ids[i] = id
	}
	var matches []types.Access
	matcher := q.And(
		q.Eq("UserID", userID),
		q.Eq("Resource", resource),
		q.In("ResourceID", ids),
	)
	if err := tx.bucket(bucketAccess).Select(matcher).Find(&matches); err != nil {
		if err == storm.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return matches, nil
}
