package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/darve-social/darve-server/modules/notification"
	"github.com/darve-social/darve-server/types"
)

// handleListNotifications serves a page of the caller's own notification
// edges, per spec §4.5's listing query.
func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	p := notification.ListParams{
		UnreadOnly: q.Get("unread_only") == "true",
		Limit:      50,
	}
	if v := q.Get("before"); v != "" {
		nanos, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, r, types.NewClientError(err, types.ErrBadRequest))
			return
		}
		p.Before = time.Unix(0, nanos)
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, r, types.NewClientError(errBadLimit, types.ErrBadRequest))
			return
		}
		p.Limit = n
	}
	out, err := s.notify.List(r.Context(), userID, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	WriteJSON(w, out)
}

// handleReadNotification flips a single recipient edge to read, per spec
// §4.5 read(notification_id, user).
func (s *Server) handleReadNotification(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	notificationID, err := parseIDParam(ps, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.notify.Read(r.Context(), notificationID, userID); err != nil {
		writeError(w, r, err)
		return
	}
	WriteSuccess(w)
}

type readAllResponse struct {
	Flipped int `json:"flipped"`
}

// handleReadAllNotifications bulk-flips every unread edge for the caller,
// per spec §4.5 read_all(user).
func (s *Server) handleReadAllNotifications(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	n, err := s.notify.ReadAll(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	WriteJSON(w, readAllResponse{Flipped: n})
}

// handleNotificationStream upgrades the connection to a websocket and
// streams live BroadcastEvents addressed to the caller, per spec §6's live
// delivery surface. httprouter does not see a query-string-free path here
// (the upgrade happens entirely inside notification.Service.ServeWS), so
// this handler is a thin adapter resolving the caller before handing off.
// The connection is wrapped in a presence guard (spec §4.6) so the
// online/offline transition fires exactly once per linger window,
// regardless of how many tabs/devices the caller has open.
func (s *Server) handleNotificationStream(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	if s.presence != nil {
		guard := s.presence.Open(userID)
		defer guard.Close()
	}
	s.notify.ServeWS(w, r, userID)
}
