// Package api exposes the pipeline trigger surface over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/flujo/flujo/internal/model"
)

// RunRequest is the trigger payload for both orchestrators.
type RunRequest struct {
	Owner string `json:"owner"`
	Limit int    `json:"limit"`
	Days  int    `json:"days"`
	Debug bool   `json:"debug"`
}

// RunFunc executes one pipeline run for a trigger request.
type RunFunc func(ctx context.Context, req RunRequest) (*model.RunReport, error)

// Server routes trigger requests to the orchestrators. Authorization is a
// shared-secret header compared by exact match.
type Server struct {
	Sync    RunFunc
	Promote RunFunc
	Token   string
}

// Handler builds the HTTP routing table with auth, logging, and recovery
// middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("POST /api/v1/sync", s.requireToken(s.runHandler(s.Sync)))
	mux.Handle("POST /api/v1/promote", s.requireToken(s.runHandler(s.Promote)))

	return logRequests(recoverPanics(mux))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) runHandler(run RunFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req RunRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Owner == "" {
			writeError(w, http.StatusBadRequest, "owner is required")
			return
		}

		report, err := run(r.Context(), req)
		if err != nil {
			// Fatal errors surface as a single top-level error; the
			// partial report still ships so the run can be audited.
			writeJSON(w, http.StatusInternalServerError, errorResponse{
				Error:  err.Error(),
				Report: report,
			})
			return
		}

		if !req.Debug && report != nil {
			report.Items = trimDetails(report.Items)
		}
		writeJSON(w, http.StatusOK, report)
	})
}

type errorResponse struct {
	Report *model.RunReport `json:"report,omitempty"`
	Error  string           `json:"error"`
}

// trimDetails drops noisy per-item fields unless debug output was requested.
func trimDetails(items []model.ItemDetail) []model.ItemDetail {
	out := make([]model.ItemDetail, len(items))
	for i, item := range items {
		out[i] = model.ItemDetail{
			Status:   item.Status,
			Reason:   item.Reason,
			StagedID: item.StagedID,
			UID:      item.UID,
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// ListenAndServe runs the server until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
