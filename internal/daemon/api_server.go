package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"argus/internal/api"
	"argus/internal/config"
	"argus/internal/logging"
	"argus/internal/logs"
	"argus/internal/records"
	"argus/internal/services"
)

// maxUploadBytes bounds multipart image uploads.
const maxUploadBytes = 64 << 20

type apiServer struct {
	bind      string
	logger    *slog.Logger
	daemon    *Daemon
	recordSvc *api.RecordService

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}

	svc := api.NewRecordService(d.store)
	mux := http.NewServeMux()
	srv := &apiServer{
		bind:      bind,
		logger:    logger,
		daemon:    d,
		recordSvc: svc,
	}

	mux.HandleFunc("/api/status", srv.handleStatus)
	mux.HandleFunc("/api/records", srv.handleRecords)
	mux.HandleFunc("/api/records/", srv.handleRecord)
	mux.HandleFunc("/api/analyses", srv.handleSubmit)
	mux.HandleFunc("/api/images", srv.handleUpload)
	mux.HandleFunc("/api/notifications/test", srv.handleTestNotification)
	mux.HandleFunc("/api/logs/tail", srv.handleLogTail)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// addr returns the bound listen address, useful when the configured bind
// uses an ephemeral port.
func (s *apiServer) addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.daemon.Status(r.Context())
	checks := make([]api.PreflightResult, len(status.Preflight))
	for i, check := range status.Preflight {
		checks[i] = api.PreflightResult{
			Name:   check.Name,
			Passed: check.Passed,
			Detail: check.Detail,
		}
	}
	payload := api.DaemonStatus{
		Running:       status.Running,
		PID:           status.PID,
		RecordsDBPath: status.RecordsDBPath,
		LockFilePath:  status.LockFilePath,
		Worker:        api.FromStatusSummary(status.Worker),
		Preflight:     checks,
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) handleRecords(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.recordSvc == nil {
		s.writeJSON(w, http.StatusOK, api.RecordListResponse{Records: nil})
		return
	}
	var statuses []records.Status
	for _, value := range r.URL.Query()["status"] {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		statuses = append(statuses, records.Status(strings.ToLower(trimmed)))
	}

	recs, err := s.recordSvc.List(r.Context(), statuses...)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.RecordListResponse{Records: recs})
}

func (s *apiServer) handleRecord(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.recordSvc == nil {
		s.writeError(w, http.StatusNotFound, "record not found")
		return
	}
	hash := strings.TrimPrefix(r.URL.Path, "/api/records/")
	if hash == "" || strings.Contains(hash, "/") {
		s.writeError(w, http.StatusNotFound, "record not found")
		return
	}
	rec, err := s.recordSvc.Describe(r.Context(), strings.ToLower(hash))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rec == nil {
		s.writeError(w, http.StatusNotFound, "record not found")
		return
	}
	s.writeJSON(w, http.StatusOK, api.RecordResponse{Record: *rec})
}

func (s *apiServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req api.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	rec, created, err := s.daemon.Submit(r.Context(), req.ContentHash, req.Force, req.Detectors)
	if err != nil {
		s.writeSubmitError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	s.writeJSON(w, status, api.SubmitResponse{Record: api.FromRecord(rec), Created: created})
}

func (s *apiServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("image")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, `multipart field "image" is required`)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "read upload: "+err.Error())
		return
	}

	force := parseBoolValue(r.FormValue("force"))
	detectors := splitListValues(r.Form["detectors"])

	rec, created, err := s.daemon.AddImage(r.Context(), header.Filename, data, force, detectors)
	if err != nil {
		s.writeSubmitError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	s.writeJSON(w, status, api.UploadResponse{
		ContentHash: rec.ContentHash,
		Size:        int64(len(data)),
		Record:      api.FromRecord(rec),
		Created:     created,
	})
}

func (s *apiServer) handleTestNotification(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	sent, detail, err := s.daemon.TestNotification(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, detail+": "+err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.TestNotificationResponse{Sent: sent, Detail: detail})
}

// maxLogTailWait keeps long-poll tail requests well inside the server
// write timeout.
const maxLogTailWait = 10 * time.Second

func (s *apiServer) handleLogTail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	logPath := s.daemon.LogPath()
	if logPath == "" {
		s.writeJSON(w, http.StatusOK, api.LogTailResponse{})
		return
	}

	query := r.URL.Query()
	offset := int64(-1)
	if raw := strings.TrimSpace(query.Get("offset")); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid offset")
			return
		}
		offset = parsed
	}
	limit := 0
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}
	var wait time.Duration
	if raw := strings.TrimSpace(query.Get("wait_ms")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid wait_ms")
			return
		}
		wait = time.Duration(parsed) * time.Millisecond
	}
	if wait > maxLogTailWait {
		wait = maxLogTailWait
	}

	ctx := r.Context()
	if wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, wait+500*time.Millisecond)
		defer cancel()
	}

	result, err := logs.Tail(ctx, logPath, logs.TailOptions{
		Offset: offset,
		Limit:  limit,
		Follow: wait > 0,
		Wait:   wait,
	})
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.LogTailResponse{Lines: result.Lines, Offset: result.Offset})
}

// writeSubmitError maps intake validation failures to 400 and everything
// else to 500.
func (s *apiServer) writeSubmitError(w http.ResponseWriter, err error) {
	if services.Kind(err) == "validation" {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeError(w, http.StatusInternalServerError, err.Error())
}

func parseBoolValue(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}

// splitListValues flattens repeated form values and comma-separated lists
// into one slice.
func splitListValues(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String(logging.FieldComponent, "api-server"))
	}
	return logging.NewNop()
}
