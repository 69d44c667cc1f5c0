package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/me/wfkit/pkg/model"
)

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	if !s.requireStore(w, reqID) {
		return
	}

	opts := model.DefaultListOptions()
	q := r.URL.Query()
	if state := q.Get("state"); state != "" {
		opts.State = state
	}
	if name := q.Get("workflow"); name != "" {
		opts.WorkflowName = name
	}
	for param, dst := range map[string]*int{"limit": &opts.Limit, "offset": &opts.Offset} {
		v := q.Get(param)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("invalid query parameter",
				model.FieldError{Field: param, Message: "must be an integer"}))
			return
		}
		*dst = n
	}
	opts.Clamp()

	runs, total, err := s.store.ListRuns(r.Context(), opts)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}
	if runs == nil {
		runs = []*model.Run{}
	}
	respondList(w, reqID, runs, model.NewPagination(total, opts))
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	if !s.requireStore(w, reqID) {
		return
	}
	id := chi.URLParam(r, "id")

	run, err := s.store.GetRun(r.Context(), id)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}
	if run == nil {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("run", id))
		return
	}
	respondOK(w, reqID, run)
}

func (s *Server) requireStore(w http.ResponseWriter, reqID string) bool {
	if s.store != nil {
		return true
	}
	respondError(w, reqID, http.StatusServiceUnavailable,
		&model.APIError{Code: model.ErrInternal, Message: "no run registry configured"})
	return false
}
