// Package api is the C8 HTTP/External Surface: only the routes spec §6
// names whose contracts reach C1-C6 are implemented here. Auth, social
// login, file upload, email, discussion/post CRUD, and webhook envelope
// verification remain external collaborators per spec §1, reached only
// through the narrow Identity interface this package defines; the rail
// webhook handlers accept already-verified payloads.
//
// Grounded on the teacher's pkg/api/router.go (the httprouter.Router
// interface) and pkg/daemon/server.go (a Server wrapping an http.Server +
// listener), generalized from a blockchain daemon's API to this backend's
// JSON surface.
package api

import (
	"errors"
	"net"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/darve-social/darve-server/modules/access"
	"github.com/darve-social/darve-server/modules/gatewaytx"
	"github.com/darve-social/darve-server/modules/ledger"
	"github.com/darve-social/darve-server/modules/notification"
	"github.com/darve-social/darve-server/modules/taskreward"
	"github.com/darve-social/darve-server/modules/walletregistry"
	"github.com/darve-social/darve-server/persist"
	"github.com/darve-social/darve-server/types"
)

// Identity is the narrow contract this surface needs from the (out of
// scope, per spec §1) auth/JWT layer: resolve the authenticated caller of
// a request. ok=false means the request is unauthenticated
// and handlers requiring a caller respond 401.
type Identity interface {
	CurrentUser(r *http.Request) (userID types.ID, ok bool)
}

// Server is the C8 component: one httprouter.Router plus the core
// components its handlers call into.
type Server struct {
	router   *httprouter.Router
	identity Identity
	log      *persist.Logger

	registry   *walletregistry.Registry
	ledger     *ledger.Ledger
	gateway    *gatewaytx.Gateway
	tasks      *taskreward.Engine
	notify     *notification.Service
	access     *access.Control
	presence   *access.Presence
	httpServer *http.Server
	listener   net.Listener
}

// NewServer wires the C8 route table over the given components. presence
// tracks websocket connection counts per user for spec §4.6's online/
// offline broadcast; a nil presence disables that tracking.
func NewServer(identity Identity, reg *walletregistry.Registry, l *ledger.Ledger, gw *gatewaytx.Gateway, tasks *taskreward.Engine, notify *notification.Service, acl *access.Control, presence *access.Presence, log *persist.Logger) *Server {
	s := &Server{
		router:   httprouter.New(),
		identity: identity,
		log:      log,
		registry: reg,
		ledger:   l,
		gateway:  gw,
		tasks:    tasks,
		notify:   notify,
		access:   acl,
		presence: presence,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.GET("/api/user/wallet/balance", s.handleWalletBalance)
	s.router.GET("/api/user/wallet/history", s.handleWalletHistory)
	s.router.POST("/api/user/wallet/withdraw", s.handleWalletWithdraw)

	s.router.POST("/api/task_request", s.handleCreateTask)
	s.router.POST("/api/task_request/:id/status", s.handleTaskStatus)
	s.router.POST("/api/task_request/:id/donate", s.handleDonate)
	s.router.POST("/api/task_request/:id/vote", s.handleVote)
	s.router.POST("/api/task_request/:id/deliver", s.handleDeliver)

	s.router.GET("/api/notifications", s.handleListNotifications)
	s.router.POST("/api/notifications/:id/read", s.handleReadNotification)
	s.router.POST("/api/notifications/read_all", s.handleReadAllNotifications)
	s.router.GET("/api/notifications/stream", s.handleNotificationStream)

	s.router.POST("/api/webhooks/stripe", s.handleStripeWebhook)
	s.router.POST("/api/webhooks/paypal", s.handlePaypalWebhook)

	s.router.NotFound = http.HandlerFunc(UnrecognizedCallHandler)
}

// ServeHTTP satisfies http.Handler, letting Server be handed directly to
// http.Server or httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Serve starts listening on addr and blocks serving requests until the
// listener is closed, mirroring the teacher's pkg/daemon/server.go Server
// shape (one http.Server over one net.Listener, created once at startup).
func (s *Server) Serve(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.httpServer = &http.Server{Handler: s}
	return s.httpServer.Serve(ln)
}

// Close shuts down the listener and in-flight connections.
func (s *Server) Close() error {
	if s.httpServer != nil {
		return s.httpServer.Close()
	}
	return nil
}

func (s *Server) currentUser(w http.ResponseWriter, r *http.Request) (types.ID, bool) {
	userID, ok := s.identity.CurrentUser(r)
	if !ok {
		writeError(w, r, types.NewClientError(errUnauthenticated, types.ErrUnauthorized))
		return types.ID{}, false
	}
	return userID, true
}

var errUnauthenticated = errors.New("no authenticated user on request")

// writeError classifies err per spec §7 and writes the {error, req_id}
// envelope. req_id is taken from the X-Request-Id header set by whatever
// sits in front of this server (load balancer, the (out of scope) auth
// middleware); a request without one gets no req_id rather than a
// fabricated one.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	envelope, status := FromClientError(err, r.Header.Get("X-Request-Id"))
	WriteError(w, Error(envelope), status)
}

func parseIDParam(ps httprouter.Params, name string) (types.ID, error) {
	id, err := types.ParseID(ps.ByName(name))
	if err != nil {
		return types.ID{}, types.NewClientError(err, types.ErrBadRequest)
	}
	return id, nil
}
