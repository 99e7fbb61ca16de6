// SPDX-License-Identifier: Apache-2.0

// Package server exposes the decision layer over HTTP. Planning and
// metadata are open; run endpoints pass through the execution gate.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/NaokiMiyanaga/mcp-ansible-wrapper/internal/catalog"
	"github.com/NaokiMiyanaga/mcp-ansible-wrapper/internal/core/apperr"
	"github.com/NaokiMiyanaga/mcp-ansible-wrapper/internal/core/models"
	"github.com/NaokiMiyanaga/mcp-ansible-wrapper/internal/gate"
	"github.com/NaokiMiyanaga/mcp-ansible-wrapper/internal/inventory"
	"github.com/NaokiMiyanaga/mcp-ansible-wrapper/internal/planner"
)

// Runner abstracts the executor so tests can stub playbook runs.
type Runner interface {
	Run(ctx context.Context, playbook string, vars map[string]interface{}, limit string) (models.RunResult, error)
}

// Server wires the catalog, planner, gate and executor behind HTTP handlers.
type Server struct {
	catalog *catalog.Index
	planner *planner.Planner
	gate    *gate.Gate
	runner  Runner
	enum    *inventory.Enumerator
	logger  *zap.Logger
}

// New assembles a server. enum may be nil when host discovery is disabled;
// /meta then serves schemas without an embedded enum.
func New(ix *catalog.Index, pl *planner.Planner, g *gate.Gate, runner Runner, enum *inventory.Enumerator, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		catalog: ix,
		planner: pl,
		gate:    g,
		runner:  runner,
		enum:    enum,
		logger:  logger,
	}
}

// Handler returns the routed HTTP handler with request logging applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/meta", s.handleMetaList)
	mux.HandleFunc("/meta/", s.handleMetaOne)
	mux.HandleFunc("/plan", s.handlePlan)
	mux.HandleFunc("/mcp/run", s.handleRun)
	mux.HandleFunc("/run", s.handleRun)
	return s.logRequests(mux)
}

// ListenAndServe blocks serving the handler on addr.
func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info("listening", zap.String("addr", addr))
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":         true,
		"status":     http.StatusOK,
		"allow":      s.gate.AllowPatterns(),
		"meta_count": len(s.catalog.Procedures()),
	})
}

func (s *Server) handleMetaList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	procs := s.catalog.Procedures()
	hosts := s.discoveredHosts(r.Context())
	out := make([]models.ProcedureMeta, len(procs))
	for i, p := range procs {
		p.InputsSchema = inventory.EmbedHostEnum(p.InputsSchema, hosts)
		out[i] = p
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMetaOne(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/meta/")
	meta, err := s.catalog.Describe(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	meta.InputsSchema = inventory.EmbedHostEnum(meta.InputsSchema, s.discoveredHosts(r.Context()))
	writeJSON(w, http.StatusOK, meta)
}

type planRequest struct {
	Intent string            `json:"intent"`
	Hints  *models.PlanHints `json:"hints,omitempty"`
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, &apperr.ValidationError{Issues: []string{"body must be JSON: " + err.Error()}})
		return
	}
	if strings.TrimSpace(req.Intent) == "" {
		s.writeError(w, &apperr.ValidationError{Issues: []string{"intent is required"}})
		return
	}
	writeJSON(w, http.StatusOK, s.planner.Plan(req.Intent, req.Hints))
}

type runRequest struct {
	Playbook      string                 `json:"playbook"`
	ProcedurePath string                 `json:"procedurePath,omitempty"`
	Limit         string                 `json:"limit,omitempty"`
	ExtraVars     map[string]interface{} `json:"extra_vars,omitempty"`
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, &apperr.ValidationError{Issues: []string{"body must be JSON: " + err.Error()}})
		return
	}
	if req.Playbook == "" {
		req.Playbook = req.ProcedurePath
	}
	if req.Playbook == "" {
		s.writeError(w, &apperr.ValidationError{Issues: []string{"playbook is required"}})
		return
	}

	if err := s.gate.Authorize(req.Playbook, bearerToken(r)); err != nil {
		s.writeError(w, err)
		return
	}

	playbook := req.Playbook
	if meta, err := s.catalog.Describe(req.Playbook); err == nil && meta.Path != "" {
		playbook = meta.Path
	}

	result, err := s.runner.Run(r.Context(), playbook, req.ExtraVars, req.Limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) discoveredHosts(ctx context.Context) []string {
	if s.enum == nil {
		return nil
	}
	return s.enum.Hosts(ctx)
}

// writeError maps the error taxonomy onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	kind := "internal"

	var notFound *apperr.NotFoundError
	var unauthorized *apperr.UnauthorizedError
	var forbidden *apperr.ForbiddenError
	var validation *apperr.ValidationError
	switch {
	case errors.As(err, &notFound):
		status, kind = http.StatusNotFound, "not_found"
	case errors.As(err, &unauthorized):
		status, kind = http.StatusUnauthorized, "unauthorized"
	case errors.As(err, &forbidden):
		status, kind = http.StatusForbidden, "not_allowed"
	case errors.As(err, &validation):
		status, kind = http.StatusUnprocessableEntity, "validation"
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"kind":    kind,
			"message": err.Error(),
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]interface{}{
		"error": map[string]interface{}{
			"kind":    "method_not_allowed",
			"message": "method not allowed",
		},
	})
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}
