package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/thanhnguyendafa-ux/git-vmind-gg-3-sub002/internal/config"
	"github.com/thanhnguyendafa-ux/git-vmind-gg-3-sub002/internal/engine"
	"github.com/thanhnguyendafa-ux/git-vmind-gg-3-sub002/internal/export"
	"github.com/thanhnguyendafa-ux/git-vmind-gg-3-sub002/internal/models"
	"github.com/thanhnguyendafa-ux/git-vmind-gg-3-sub002/internal/publish"

	"github.com/rs/zerolog"
)

// HTTPServer is the admin surface over the sync engine: producers push
// mutations here and the presentation layer inspects queue, status and log.
type HTTPServer struct {
	cfg      config.APIConfig
	eng      *engine.Engine
	state    *publish.MemoryPublisher
	exports  string
	server   *http.Server
	auth     *HTTPAuth
	logger   zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, eng *engine.Engine, state *publish.MemoryPublisher, exportDir string, logger *zerolog.Logger) *HTTPServer {
	srv := &HTTPServer{
		cfg:     cfg,
		eng:     eng,
		state:   state,
		exports: exportDir,
		logger:  logger.With().Str("component", "admin-api").Logger(),
	}
	srv.auth = NewHTTPAuth(cfg)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/queue", srv.handleQueue)
	mux.HandleFunc("/api/v1/queue/", srv.handleQueueItem)
	mux.HandleFunc("/api/v1/log", srv.handleLog)
	mux.HandleFunc("/api/v1/status", srv.handleStatus)
	mux.HandleFunc("/api/v1/sync", srv.handleSync)
	mux.HandleFunc("/api/v1/suspend", srv.handleSuspend)
	mux.HandleFunc("/api/v1/resume", srv.handleResume)
	mux.HandleFunc("/api/v1/batch/start", srv.handleBatchStart)
	mux.HandleFunc("/api/v1/batch/end", srv.handleBatchEnd)
	mux.HandleFunc("/api/v1/owner", srv.handleOwner)
	mux.HandleFunc("/api/v1/export", srv.handleExport)
	mux.HandleFunc("/api/v1/health", srv.handleHealth)

	handler := srv.loggingMiddleware(srv.auth.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("admin API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler exposes the configured handler for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) handleQueue(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"queue": s.eng.Snapshot()})
	case http.MethodPost:
		s.handlePush(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handlePush(w http.ResponseWriter, r *http.Request) {
	type request struct {
		Kind    models.MutationKind `json:"kind"`
		Payload json.RawMessage     `json:"payload"`
	}

	var body request
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.Kind == "" {
		writeError(w, http.StatusBadRequest, "kind is required")
		return
	}

	owner := s.auth.ClientName(r)
	m, err := s.eng.Push(r.Context(), body.Kind, body.Payload, owner)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, m)
	case errors.Is(err, engine.ErrUnknownKind):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, engine.ErrLocked):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// handleQueueItem routes /api/v1/queue/{id}[/retry|/discard].
func (s *HTTPServer) handleQueueItem(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/queue/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	id := parts[0]

	action := ""
	if len(parts) > 1 {
		action = parts[1]
	}

	var err error
	switch {
	case action == "retry" && r.Method == http.MethodPost:
		err = s.eng.Retry(id)
	case action == "discard" && r.Method == http.MethodPost:
		err = s.eng.Discard(id)
	case action == "" && r.Method == http.MethodPut:
		var body struct {
			Payload json.RawMessage `json:"payload"`
		}
		if decodeErr := json.NewDecoder(r.Body).Decode(&body); decodeErr != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		err = s.eng.UpdatePending(id, body.Payload)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if err != nil {
		if errors.Is(err, engine.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "result": "ok"})
}

func (s *HTTPServer) handleLog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"log": s.eng.LogEntries()})
}

func (s *HTTPServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     s.state.Status(),
		"processing": s.eng.Processing(),
		"depth":      len(s.eng.Snapshot()),
	})
}

func (s *HTTPServer) handleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.eng.TriggerSync()
	writeJSON(w, http.StatusAccepted, map[string]string{"result": "triggered"})
}

func (s *HTTPServer) handleSuspend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.eng.Suspend()
	writeJSON(w, http.StatusOK, map[string]string{"result": "suspended"})
}

func (s *HTTPServer) handleResume(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.eng.Unsuspend()
	s.eng.TriggerSync()
	writeJSON(w, http.StatusOK, map[string]string{"result": "resumed"})
}

func (s *HTTPServer) handleBatchStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.eng.StartBatch()
	writeJSON(w, http.StatusOK, map[string]string{"result": "batching"})
}

func (s *HTTPServer) handleBatchEnd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.eng.EndBatch()
	writeJSON(w, http.StatusOK, map[string]string{"result": "flushing"})
}

// handleOwner is the owner-identity boundary: the session component reports
// the active principal and the engine purges mutations from anyone else.
func (s *HTTPServer) handleOwner(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body struct {
		OwnerID string `json:"owner_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.OwnerID == "" {
		writeError(w, http.StatusBadRequest, "owner_id is required")
		return
	}

	if err := s.eng.ValidateOwnership(r.Context(), body.OwnerID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": "ok"})
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	path, err := export.WriteReport(s.exports, s.eng.Snapshot(), s.eng.LogEntries())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"path": path})
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("dur", time.Since(start)).
			Msg("http request")
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
