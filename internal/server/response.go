package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/me/wfkit/pkg/model"
	"github.com/me/wfkit/pkg/workflow"
)

// requestID generates a unique request identifier.
func requestID() string {
	return "req_" + uuid.New().String()[:8]
}

// respondOK writes a success response with the standard envelope.
func respondOK(w http.ResponseWriter, reqID string, data any) {
	respondJSON(w, http.StatusOK, reqID, data, nil, nil)
}

// respondList writes a success response with pagination.
func respondList(w http.ResponseWriter, reqID string, data any, pg *model.Pagination) {
	respondJSON(w, http.StatusOK, reqID, data, pg, nil)
}

// respondError writes an error response with the standard envelope.
func respondError(w http.ResponseWriter, reqID string, status int, apiErr *model.APIError) {
	respondJSON(w, status, reqID, nil, nil, apiErr)
}

// respondWorkflowError maps a workflow error kind to a status and code.
// Errors of no known kind are internal errors.
func respondWorkflowError(w http.ResponseWriter, reqID string, err error) {
	status, code := http.StatusInternalServerError, model.ErrInternal
	switch workflow.KindOf(err) {
	case workflow.KindInvalidArgument:
		status, code = http.StatusBadRequest, model.ErrValidation
	case workflow.KindDuplicate:
		status, code = http.StatusConflict, model.ErrConflict
	case workflow.KindNotFound:
		status, code = http.StatusNotFound, model.ErrNotFound
	case workflow.KindConfiguration:
		status, code = http.StatusUnprocessableEntity, model.ErrConfiguration
	case workflow.KindPrecondition:
		status, code = http.StatusPreconditionFailed, model.ErrPrecondition
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		status, code = http.StatusRequestEntityTooLarge, model.ErrValidation
	}
	respondError(w, reqID, status, &model.APIError{Code: code, Message: err.Error()})
}

func respondJSON(w http.ResponseWriter, status int, reqID string, data any, pg *model.Pagination, apiErr *model.APIError) {
	resp := model.Response{
		RequestID:  reqID,
		Timestamp:  time.Now().UTC(),
		Data:       data,
		Pagination: pg,
		Error:      apiErr,
	}
	if apiErr != nil {
		resp.Status = "error"
	} else {
		resp.Status = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}
