package api

import (
	"errors"

	"github.com/darve-social/darve-server/types"
)

// Error is the JSON envelope every API error response carries, per spec §7
// "a JSON envelope {error, req_id}". This replaces the teacher's bare
// {message} Error struct with the two fields the core's taxonomy demands,
// while keeping the same Error()-implementing shape callers of
// WriteError/WriteJSON already expect (pkg/api/http.go).
type Error struct {
	// Message describes the error in English, typically err.Error().
	Message string `json:"error"`
	// ReqID correlates this response to the request that produced it, so
	// an operator can find it in logs without the client exposing a stack
	// trace (spec §7 "No stack traces cross the boundary").
	ReqID string `json:"req_id,omitempty"`
}

// Error implements the error interface for the Error type.
func (err Error) Error() string {
	return err.Message
}

// FromClientError maps a types.ClientError (or any error) to the Error
// envelope and HTTP status spec §7's taxonomy table assigns it. Errors that
// are not a types.ClientError are treated as ErrGeneric (500) per §7
// "Generic -> 500", with no information beyond a generic message crossing
// the boundary.
func FromClientError(err error, reqID string) (Error, int) {
	var ce types.ClientError
	if errors.As(err, &ce) {
		return Error{Message: ce.Error(), ReqID: reqID}, ce.Kind.AsHTTPStatusCode()
	}
	return Error{Message: "internal error", ReqID: reqID}, 500
}
