package daemonctl

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"argus/internal/api"
	"argus/internal/testsupport"
)

func TestStatusSnapshotPrefersRunningDaemon(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/status" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(api.DaemonStatus{Running: true, PID: 999})
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t)
	snapshot, err := StatusSnapshot(context.Background(), strings.TrimPrefix(server.URL, "http://"), cfg)
	if err != nil {
		t.Fatalf("StatusSnapshot: %v", err)
	}
	if !snapshot.Running || snapshot.PID != 999 {
		t.Fatalf("expected daemon-provided status, got %+v", snapshot)
	}
}

func TestStatusSnapshotFallsBackWhenUnreachable(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.NewAnalysis(t, store, strings.Repeat("a", 64), "photo.jpg")

	snapshot, err := StatusSnapshot(context.Background(), cfg.Paths.APIBind, cfg)
	if err != nil {
		t.Fatalf("StatusSnapshot: %v", err)
	}
	if snapshot.Running {
		t.Fatal("expected offline snapshot")
	}
	if snapshot.Worker.RecordStats["pending"] != 1 {
		t.Fatalf("expected pending count from store fallback, got %+v", snapshot.Worker.RecordStats)
	}
	if len(snapshot.Preflight) == 0 {
		t.Fatal("expected preflight checks in offline snapshot")
	}
	if !strings.HasSuffix(snapshot.RecordsDBPath, "records.db") {
		t.Fatalf("unexpected records db path: %s", snapshot.RecordsDBPath)
	}
}

func TestProcessInfoReportsNotRunning(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	running, pid, err := ProcessInfo(cfg.Paths.APIBind, cfg)
	if err != nil {
		t.Fatalf("ProcessInfo: %v", err)
	}
	if running || pid != 0 {
		t.Fatalf("expected not running, got running=%v pid=%d", running, pid)
	}
}
