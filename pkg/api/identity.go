package api

import (
	"net/http"

	"github.com/darve-social/darve-server/types"
)

// HeaderIdentity is a minimal Identity implementation that trusts a
// pre-verified X-User-Id header, useful for local development or when
// this server sits behind an API gateway that has already authenticated
// the caller and rewrites this header. Production deployments supply
// their own Identity backed by whatever session/JWT verification the
// (out of scope, per spec §1) auth layer performs.
type HeaderIdentity struct {
	Header string
}

// NewHeaderIdentity constructs a HeaderIdentity reading the given header
// name, defaulting to "X-User-Id".
func NewHeaderIdentity(header string) HeaderIdentity {
	if header == "" {
		header = "X-User-Id"
	}
	return HeaderIdentity{Header: header}
}

// CurrentUser implements Identity.
func (h HeaderIdentity) CurrentUser(r *http.Request) (types.ID, bool) {
	v := r.Header.Get(h.Header)
	if v == "" {
		return types.ID{}, false
	}
	id, err := types.ParseID(v)
	if err != nil {
		return types.ID{}, false
	}
	return id, true
}
