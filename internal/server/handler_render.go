package server

import (
	"bytes"
	"net/http"

	"github.com/me/wfkit/pkg/model"
	"github.com/me/wfkit/pkg/workflow"
)

// handleRender loads the posted document, infers dependencies and writes
// the canonical document back in the requested format. Errors use the
// JSON envelope.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	format, err := workflow.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.metrics.recordRender("invalid")
		respondWorkflowError(w, reqID, err)
		return
	}

	doc, wf, ok := s.loadDocument(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := workflow.EncodeDoc(&buf, doc, format); err != nil {
		s.metrics.recordRender("error")
		respondWorkflowError(w, reqID, err)
		return
	}
	s.metrics.recordRender("ok")
	s.logger.Debug("rendered", "workflow", wf.Name(), "format", format, "bytes", buf.Len())

	contentType := "application/yaml"
	if format == workflow.FormatJSON {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

type validateResponse struct {
	Name         string   `json:"name"`
	Jobs         int      `json:"jobs"`
	Dependencies int      `json:"dependencies"`
	JobIDs       []string `json:"job_ids"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	_, wf, ok := s.loadDocument(w, r)
	if !ok {
		return
	}
	s.metrics.recordRender("ok")

	resp := validateResponse{Name: wf.Name()}
	for _, j := range wf.Jobs() {
		resp.JobIDs = append(resp.JobIDs, j.ID())
	}
	resp.Jobs = len(resp.JobIDs)
	for _, d := range wf.Dependencies() {
		resp.Dependencies += len(d.Children())
	}
	respondOK(w, reqID, resp)
}

// loadDocument reads the request body as a workflow document and renders
// it. On failure the error response is written and ok is false.
func (s *Server) loadDocument(w http.ResponseWriter, r *http.Request) (*workflow.Doc, *workflow.Workflow, bool) {
	reqID := RequestIDFromContext(r.Context())
	if r.ContentLength == 0 {
		s.metrics.recordRender("invalid")
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("request body must contain a workflow document"))
		return nil, nil, false
	}

	body := http.MaxBytesReader(w, r.Body, s.maxDocumentBytes)
	wf, err := workflow.Load(body, workflow.WithLogger(s.logger))
	if err != nil {
		s.metrics.recordRender("invalid")
		respondWorkflowError(w, reqID, err)
		return nil, nil, false
	}
	doc, err := wf.Document()
	if err != nil {
		s.metrics.recordRender("invalid")
		respondWorkflowError(w, reqID, err)
		return nil, nil, false
	}
	return doc, wf, true
}
