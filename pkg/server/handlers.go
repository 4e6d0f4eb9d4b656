package server

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/user/vulndash/pkg/engine"
	"github.com/user/vulndash/pkg/remote"
)

const (
	DefaultScanBranch = "main"
	RemoteScanCommit  = "remote-csv"
	WebhookCommit     = "webhook"

	websocketPlaceholder = "WebSocket endpoint - implement with your preferred WebSocket library"
)

type errorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, details any) {
	writeJSON(w, status, errorResponse{Error: msg, Details: details})
}

func decode(r *http.Request, v any) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
}

type testResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Details remote.Probe `json:"details"`
}

func (s *Server) handleSSHTest(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())

	var cfg remote.Config
	if err := decode(r, &cfg); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON in request body", nil)
		return
	}
	logger.Debug().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("username", cfg.Username).
		Str("remote_path", cfg.RemotePath).
		Bool("has_private_key", cfg.PrivateKey != "").
		Msg("connection test")

	p := cfg.Presence()
	if !p.HasHost || !p.HasUsername || !p.HasPrivateKey {
		writeError(w, http.StatusBadRequest, "Missing required SSH configuration", p)
		return
	}

	start := time.Now()
	src, err := s.sources(cfg)
	if err == nil {
		var probe remote.Probe
		probe, err = src.Probe(r.Context())
		if err == nil {
			writeJSON(w, http.StatusOK, testResponse{Success: true, Message: probe.Message, Details: probe})
			return
		}
	}

	logger.Warn().Err(err).Msg("connection test failed")
	writeError(w, http.StatusInternalServerError, remote.Describe(err), map[string]any{
		"originalError": err.Error(),
		"duration":      time.Since(start).Milliseconds(),
	})
}

type filesRequest struct {
	Action   string         `json:"action"`
	Config   *remote.Config `json:"config"`
	Filename string         `json:"filename"`
}

func validConfig(cfg *remote.Config) bool {
	if cfg == nil {
		return false
	}
	p := cfg.Presence()
	return p.HasHost && p.HasUsername && p.HasPrivateKey
}

func (s *Server) handleSSHFiles(w http.ResponseWriter, r *http.Request) {
	var req filesRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON in request body", nil)
		return
	}
	if !validConfig(req.Config) {
		writeError(w, http.StatusBadRequest, "SSH configuration missing", nil)
		return
	}

	switch req.Action {
	case "list":
		src, err := s.sources(*req.Config)
		if err != nil {
			s.sshFailed(w, r, err)
			return
		}
		files, err := src.List(r.Context())
		if err != nil {
			s.sshFailed(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string][]string{"files": files})

	case "download":
		if req.Filename == "" {
			writeError(w, http.StatusBadRequest, "Filename is required", nil)
			return
		}
		src, err := s.sources(*req.Config)
		if err != nil {
			s.sshFailed(w, r, err)
			return
		}
		content, err := src.Fetch(r.Context(), req.Filename)
		if err != nil {
			s.sshFailed(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"content": content})

	default:
		writeError(w, http.StatusBadRequest, "Invalid action", nil)
	}
}

func (s *Server) sshFailed(w http.ResponseWriter, r *http.Request, err error) {
	zerolog.Ctx(r.Context()).Error().Err(err).Msg("ssh operation failed")
	if errors.Is(err, remote.ErrInvalidFilename) {
		writeError(w, http.StatusBadRequest, "Invalid filename", nil)
		return
	}
	writeError(w, http.StatusInternalServerError, "SSH operation failed", nil)
}

type loadRequest struct {
	Config   *remote.Config `json:"config"`
	Filename string         `json:"filename"`
	Branch   string         `json:"branch"`
	Commit   string         `json:"commit"`
}

// handleLoadScan downloads one report, ingests it and records the result as a
// new scan.
func (s *Server) handleLoadScan(w http.ResponseWriter, r *http.Request) {
	var req loadRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON in request body", nil)
		return
	}
	if !validConfig(req.Config) {
		writeError(w, http.StatusBadRequest, "SSH configuration missing", nil)
		return
	}
	if req.Filename == "" {
		writeError(w, http.StatusBadRequest, "Filename is required", nil)
		return
	}

	src, err := s.sources(*req.Config)
	var content string
	if err == nil {
		content, err = src.Fetch(r.Context(), req.Filename)
	}
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("file", req.Filename).Msg("download failed")
		status := http.StatusBadGateway
		if errors.Is(err, remote.ErrInvalidFilename) {
			status = http.StatusBadRequest
		}
		writeError(w, status, "SSH operation failed", map[string]string{"message": remote.Describe(err)})
		return
	}

	branch, commit := req.Branch, req.Commit
	if branch == "" {
		branch = DefaultScanBranch
	}
	if commit == "" {
		commit = RemoteScanCommit
	}

	vulns := s.pipeline.Ingest(content)
	scan := engine.NewScanResult(vulns, branch, commit, s.now())
	s.store.AddScan(scan)

	zerolog.Ctx(r.Context()).Info().
		Str("file", req.Filename).
		Str("scan", scan.ID).
		Int("vulnerabilities", len(vulns)).
		Msg("scan loaded")
	writeJSON(w, http.StatusCreated, scan)
}

type webhookResponse struct {
	Success bool   `json:"success"`
	Count   int    `json:"count"`
	Dropped int    `json:"dropped"`
	Message string `json:"message"`
}

// handleWebhook accepts a raw CSV report pushed by a scanner.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("read webhook body")
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   "Failed to process CSV data",
		})
		return
	}

	vulns, stats := s.pipeline.IngestWithStats(string(body))
	if len(vulns) > 0 {
		s.store.AddScan(engine.NewScanResult(vulns, DefaultScanBranch, WebhookCommit, s.now()))
	}

	writeJSON(w, http.StatusOK, webhookResponse{
		Success: true,
		Count:   len(vulns),
		Dropped: stats.Dropped,
		Message: "CSV data processed successfully",
	})
}

func (s *Server) handleListScans(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"scans": s.store.Scans()})
}

func (s *Server) handleVulnerabilities(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sev, err := engine.ParseSeverityFilter(q.Get("severity"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid severity", map[string]string{"severity": q.Get("severity")})
		return
	}
	vulns := s.store.Filter(q.Get("search"), sev.String())
	writeJSON(w, http.StatusOK, map[string]any{
		"vulnerabilities": vulns,
		"total":           len(vulns),
	})
}

type metricsResponse struct {
	Scans int `json:"scans"`
	engine.Counts
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, metricsResponse{
		Scans:  len(s.store.Scans()),
		Counts: s.store.Counts(),
	})
}

func (s *Server) handleRemediation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	v, ok := s.store.Find(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Vulnerability not found", nil)
		return
	}
	if s.remediation == nil {
		writeError(w, http.StatusNotFound, "No remediation templates loaded", nil)
		return
	}

	plan, err := s.remediation.GeneratePlan(v)
	if errors.Is(err, engine.ErrTemplateNotFound) {
		writeError(w, http.StatusNotFound, "No remediation template for rule "+v.Rule, nil)
		return
	}
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("id", id).Msg("render remediation plan")
		writeError(w, http.StatusInternalServerError, "Failed to render remediation plan", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "rule": v.Rule, "plan": plan})
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(websocketPlaceholder))
}
