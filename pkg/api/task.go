package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/darve-social/darve-server/modules/taskreward"
	"github.com/darve-social/darve-server/types"
)

type createTaskRequest struct {
	BelongsTo        types.ID              `json:"belongs_to"`
	RequestText      string                `json:"request_text"`
	DeliverableType  string                `json:"deliverable_type"`
	Type             types.TaskRequestType `json:"type"`
	RewardType       types.RewardType      `json:"reward_type"`
	Currency         types.Currency        `json:"currency"`
	AcceptancePeriod time.Duration         `json:"acceptance_period"`
	DeliveryPeriod   time.Duration         `json:"delivery_period"`
}

// handleCreateTask opens a task request at Init, per spec §4.4 create().
func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, types.NewClientError(err, types.ErrBadRequest))
		return
	}
	task, err := s.tasks.CreateTask(r.Context(), taskreward.CreateTaskParams{
		BelongsTo:        req.BelongsTo,
		CreatedBy:        userID,
		RequestText:      req.RequestText,
		DeliverableType:  req.DeliverableType,
		Type:             req.Type,
		RewardType:       req.RewardType,
		Currency:         req.Currency,
		AcceptancePeriod: req.AcceptancePeriod,
		DeliveryPeriod:   req.DeliveryPeriod,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	WriteJSON(w, task)
}

// taskStatusRequest names the one status transition the caller asked for:
// exactly one of the three below, per spec §4.4's participant state
// machine (Requested -> Accepted | Rejected, or a fresh participation
// request against a Public task).
type taskStatusRequest struct {
	Action string `json:"action"`
}

// handleTaskStatus drives the participant-side transitions (request,
// accept, reject) for the task named by :id.
func (s *Server) handleTaskStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	taskID, err := parseIDParam(ps, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req taskStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, types.NewClientError(err, types.ErrBadRequest))
		return
	}

	switch req.Action {
	case "request":
		p, err := s.tasks.RequestParticipant(r.Context(), taskID, userID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		WriteJSON(w, p)
	case "accept":
		if err := s.tasks.Accept(r.Context(), taskID, userID); err != nil {
			writeError(w, r, err)
			return
		}
		WriteSuccess(w)
	case "reject":
		if err := s.tasks.Reject(r.Context(), taskID, userID); err != nil {
			writeError(w, r, err)
			return
		}
		WriteSuccess(w)
	default:
		writeError(w, r, types.NewClientError(errUnknownTaskAction, types.ErrBadRequest))
	}
}

type donateRequest struct {
	Amount   types.Amount   `json:"amount"`
	Currency types.Currency `json:"currency"`
}

// handleDonate funds a task's escrow wallet, per spec §4.4 donate(). A
// repeat donation must raise the donor's total (§4.4/§8 "donation must
// increase"); the engine itself enforces this and maps a violation to
// ErrDonationNotIncreasing.
func (s *Server) handleDonate(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	taskID, err := parseIDParam(ps, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req donateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, types.NewClientError(err, types.ErrBadRequest))
		return
	}
	donor, err := s.tasks.Donate(r.Context(), taskID, userID, req.Amount, req.Currency)
	if err != nil {
		writeError(w, r, err)
		return
	}
	WriteJSON(w, donor)
}

type voteRequest struct {
	Votes []types.Vote `json:"votes"`
}

// handleVote records a donor's point allocation across a task's delivered
// deliverables, per spec §4.4 Voting.
func (s *Server) handleVote(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	taskID, err := parseIDParam(ps, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, types.NewClientError(err, types.ErrBadRequest))
		return
	}
	if err := s.tasks.Vote(r.Context(), taskID, userID, req.Votes); err != nil {
		writeError(w, r, err)
		return
	}
	WriteSuccess(w)
}

type deliverRequest struct {
	Post types.ID `json:"post"`
}

// handleDeliver records a participant's deliverable, per spec §4.4
// deliver().
func (s *Server) handleDeliver(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	taskID, err := parseIDParam(ps, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req deliverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, types.NewClientError(err, types.ErrBadRequest))
		return
	}
	result, err := s.tasks.Deliver(r.Context(), taskID, userID, req.Post)
	if err != nil {
		writeError(w, r, err)
		return
	}
	WriteJSON(w, result)
}

var errUnknownTaskAction = badRequestError(`action must be one of "request", "accept", "reject"`)
