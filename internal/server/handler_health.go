package server

import (
	"net/http"
	"runtime"
	"time"
)

type healthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
	Store     string `json:"store"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	storeState := "unconfigured"
	if s.store != nil {
		storeState = "sqlite"
	}
	respondOK(w, reqID, healthResponse{
		Status:    "healthy",
		Version:   s.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Store:     storeState,
	})
}
