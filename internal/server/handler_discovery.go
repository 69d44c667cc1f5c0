package server

import "net/http"

type endpointInfo struct {
	Path        string   `json:"path"`
	Methods     []string `json:"methods"`
	Description string   `json:"description"`
}

type discoveryResponse struct {
	Name        string         `json:"name"`
	Version     string         `json:"version"`
	Description string         `json:"description"`
	Endpoints   []endpointInfo `json:"endpoints"`
}

func (s *Server) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	respondOK(w, reqID, discoveryResponse{
		Name:        "wfkit API",
		Version:     "v1",
		Description: "Abstract workflow documents: validation, rendering and planned runs",
		Endpoints: []endpointInfo{
			{"/api/v1/render", []string{"POST"}, "Validate a document, infer dependencies and return it in canonical form. Accepts ?format=yml|json"},
			{"/api/v1/validate", []string{"POST"}, "Validate a document and summarize its graph"},
			{"/api/v1/runs", []string{"GET"}, "List planned runs. Accepts ?state, ?workflow, ?limit and ?offset"},
			{"/api/v1/runs/{id}", []string{"GET"}, "Single run detail"},
			{"/api/v1/health", []string{"GET"}, "Server health and version"},
			{"/metrics", []string{"GET"}, "Prometheus metrics"},
		},
	})
}
