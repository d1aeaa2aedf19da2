package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"

	"argus/internal/api"
	"argus/internal/blobstore"
	"argus/internal/fileutil"
	"argus/internal/logging"
	"argus/internal/records"
	"argus/internal/stage"
	"argus/internal/testsupport"
	"argus/internal/worker"
)

type recordReaderStub struct {
	recs []*records.Record
}

func (s *recordReaderStub) List(context.Context, ...records.Status) ([]*records.Record, error) {
	return s.recs, nil
}

func (s *recordReaderStub) Stats(context.Context) (map[records.Status]int, error) {
	return map[records.Status]int{records.StatusPending: len(s.recs)}, nil
}

func (s *recordReaderStub) GetByHash(context.Context, string) (*records.Record, error) {
	if len(s.recs) == 0 {
		return nil, nil
	}
	return s.recs[0], nil
}

type idleStage struct{}

func (idleStage) Prepare(context.Context, *records.Record) error { return nil }
func (idleStage) Execute(context.Context, *records.Record) error { return nil }
func (idleStage) HealthCheck(context.Context) stage.Health {
	return stage.Healthy("idle")
}

func newHandlerDaemon(t *testing.T) *Daemon {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	blobs, err := blobstore.FromConfig(context.Background(), cfg)
	if err != nil {
		t.Fatalf("blobstore.FromConfig: %v", err)
	}
	logger := logging.NewNop()
	mgr := worker.NewManager(cfg, store, idleStage{}, logger)
	d, err := New(cfg, store, blobs, logger, mgr)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d
}

func TestAPIServerHandleRecords(t *testing.T) {
	stub := &recordReaderStub{recs: []*records.Record{{
		ID:          1,
		ContentHash: "abc123",
		Status:      records.StatusPending,
	}}}
	srv := &apiServer{recordSvc: api.NewRecordService(stub)}

	req := httptest.NewRequest(http.MethodGet, "/api/records", nil)
	w := httptest.NewRecorder()
	srv.handleRecords(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	var resp api.RecordListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(resp.Records))
	}
	if resp.Records[0].ContentHash != "abc123" {
		t.Fatalf("unexpected content hash: %q", resp.Records[0].ContentHash)
	}
}

func TestAPIServerHandleRecordNotFound(t *testing.T) {
	srv := &apiServer{recordSvc: api.NewRecordService(&recordReaderStub{})}

	req := httptest.NewRequest(http.MethodGet, "/api/records/deadbeef", nil)
	w := httptest.NewRecorder()
	srv.handleRecord(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestAPIServerSubmitCreatesRecord(t *testing.T) {
	d := newHandlerDaemon(t)
	srv := &apiServer{daemon: d, recordSvc: api.NewRecordService(d.store)}

	hash := fileutil.HashBytes([]byte("submitted image bytes"))
	body, err := json.Marshal(api.SubmitRequest{ContentHash: hash})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/analyses", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.handleSubmit(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 Created, got %d: %s", w.Code, w.Body.String())
	}
	var resp api.SubmitResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Created {
		t.Fatal("expected created flag")
	}
	if resp.Record.ContentHash != hash {
		t.Fatalf("unexpected content hash: %q", resp.Record.ContentHash)
	}

	// Resubmitting without force dedupes against the existing record.
	req = httptest.NewRequest(http.MethodPost, "/api/analyses", bytes.NewReader(body))
	w = httptest.NewRecorder()
	srv.handleSubmit(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK on resubmit, got %d", w.Code)
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode resubmit response: %v", err)
	}
	if resp.Created {
		t.Fatal("expected resubmit to dedupe")
	}
}

func TestAPIServerSubmitRejectsInvalidHash(t *testing.T) {
	d := newHandlerDaemon(t)
	srv := &apiServer{daemon: d, recordSvc: api.NewRecordService(d.store)}

	body, err := json.Marshal(api.SubmitRequest{ContentHash: "zz-not-hex"})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/analyses", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.handleSubmit(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAPIServerUploadStoresImage(t *testing.T) {
	d := newHandlerDaemon(t)
	srv := &apiServer{daemon: d, recordSvc: api.NewRecordService(d.store)}

	data := testsupport.SolidPNG(t, 24, 24, 10, 200, 30)
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("image", "upload.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/images", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	srv.handleUpload(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 Created, got %d: %s", w.Code, w.Body.String())
	}
	var resp api.UploadResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ContentHash != fileutil.HashBytes(data) {
		t.Fatalf("unexpected content hash: %q", resp.ContentHash)
	}
	if resp.Size != int64(len(data)) {
		t.Fatalf("unexpected size: %d", resp.Size)
	}

	stored, err := d.blobs.Get(context.Background(), blobstore.ImageKey(resp.ContentHash))
	if err != nil {
		t.Fatalf("blob fetch: %v", err)
	}
	if !bytes.Equal(stored, data) {
		t.Fatal("stored blob does not match upload")
	}
}

func TestAPIServerLogTail(t *testing.T) {
	d := newHandlerDaemon(t)
	srv := &apiServer{daemon: d}

	logPath := d.LogPath()
	if logPath == "" {
		t.Fatal("expected configured log path")
	}
	content := "first line\nsecond line\nthird line\n"
	if err := os.WriteFile(logPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write log file: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/logs/tail?offset=-1&limit=2", nil)
	w := httptest.NewRecorder()
	srv.handleLogTail(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d: %s", w.Code, w.Body.String())
	}
	var resp api.LogTailResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Lines) != 2 || resp.Lines[0] != "second line" || resp.Lines[1] != "third line" {
		t.Fatalf("unexpected lines: %#v", resp.Lines)
	}
	if resp.Offset != int64(len(content)) {
		t.Fatalf("expected offset %d, got %d", len(content), resp.Offset)
	}

	// Resuming from the returned offset yields nothing new.
	req = httptest.NewRequest(http.MethodGet, "/api/logs/tail?offset="+strconv.FormatInt(resp.Offset, 10), nil)
	w = httptest.NewRecorder()
	srv.handleLogTail(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Lines) != 0 {
		t.Fatalf("expected no new lines, got %#v", resp.Lines)
	}
}

func TestAPIServerLogTailRejectsBadOffset(t *testing.T) {
	d := newHandlerDaemon(t)
	srv := &apiServer{daemon: d}

	req := httptest.NewRequest(http.MethodGet, "/api/logs/tail?offset=abc", nil)
	w := httptest.NewRecorder()
	srv.handleLogTail(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestAPIServerUploadRequiresImageField(t *testing.T) {
	d := newHandlerDaemon(t)
	srv := &apiServer{daemon: d, recordSvc: api.NewRecordService(d.store)}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("force", "1"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/images", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	srv.handleUpload(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}
