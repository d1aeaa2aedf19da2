package daemon_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"argus/internal/blobstore"
	"argus/internal/config"
	"argus/internal/daemon"
	"argus/internal/fileutil"
	"argus/internal/logging"
	"argus/internal/records"
	"argus/internal/services"
	"argus/internal/stage"
	"argus/internal/testsupport"
	"argus/internal/worker"
)

type noopStage struct{}

func (noopStage) Prepare(context.Context, *records.Record) error { return nil }
func (noopStage) Execute(context.Context, *records.Record) error { return nil }
func (noopStage) HealthCheck(context.Context) stage.Health {
	return stage.Healthy("noop")
}

func newTestDaemon(t *testing.T, cfg *config.Config) (*daemon.Daemon, *records.Store, blobstore.Store) {
	t.Helper()
	store := testsupport.MustOpenStore(t, cfg)
	blobs, err := blobstore.FromConfig(context.Background(), cfg)
	if err != nil {
		t.Fatalf("blobstore.FromConfig: %v", err)
	}
	logger := logging.NewNop()
	mgr := worker.NewManager(cfg, store, noopStage{}, logger)
	d, err := daemon.New(cfg, store, blobs, logger, mgr)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	return d, store, blobs
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, _, _ := newTestDaemon(t, cfg)
	t.Cleanup(func() {
		d.Stop()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.PID <= 0 {
		t.Fatalf("expected daemon status to carry pid, got %d", status.PID)
	}
	if d.APIAddr() == "" {
		t.Fatal("expected api server to report a listen address")
	}

	// Second start should fail
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	time.Sleep(50 * time.Millisecond)
	status = d.Status(ctx)
	if status.Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestDaemonSubmitDeduplicates(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, _, _ := newTestDaemon(t, cfg)
	t.Cleanup(func() { d.Stop() })

	ctx := context.Background()
	hash := fileutil.HashBytes([]byte("holiday.jpg contents"))

	first, created, err := d.Submit(ctx, hash, false, nil)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !created {
		t.Fatal("expected first submission to create a record")
	}
	if first.Status != records.StatusPending {
		t.Fatalf("expected pending record, got %s", first.Status)
	}

	second, created, err := d.Submit(ctx, hash, false, nil)
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if created {
		t.Fatal("expected non-force resubmission to be a no-op")
	}
	if second.ID != first.ID {
		t.Fatalf("expected existing record %d, got %d", first.ID, second.ID)
	}

	forced, created, err := d.Submit(ctx, hash, true, nil)
	if err != nil {
		t.Fatalf("force resubmit: %v", err)
	}
	if !created {
		t.Fatal("expected force submission to recreate the record")
	}
	if forced.ID == first.ID {
		t.Fatalf("expected force submission to allocate a new record, got %d again", forced.ID)
	}
}

func TestDaemonSubmitValidatesHash(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, _, _ := newTestDaemon(t, cfg)
	t.Cleanup(func() { d.Stop() })

	_, _, err := d.Submit(context.Background(), "not-a-hash", false, nil)
	if err == nil {
		t.Fatal("expected invalid hash to be rejected")
	}
	if services.Kind(err) != "validation" {
		t.Fatalf("expected validation failure, got kind %q (%v)", services.Kind(err), err)
	}
}

func TestDaemonSubmitRejectsUnknownDetector(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, _, _ := newTestDaemon(t, cfg)
	t.Cleanup(func() { d.Stop() })

	hash := fileutil.HashBytes([]byte("portrait.png contents"))
	_, _, err := d.Submit(context.Background(), hash, false, []string{"ela", "chroma"})
	if err == nil {
		t.Fatal("expected unknown detector to be rejected")
	}
	if services.Kind(err) != "validation" {
		t.Fatalf("expected validation failure, got kind %q (%v)", services.Kind(err), err)
	}
}

func TestDaemonSubmitRecordsDetectorSubset(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, _, _ := newTestDaemon(t, cfg)
	t.Cleanup(func() { d.Stop() })

	hash := fileutil.HashBytes([]byte("receipt.jpg contents"))
	rec, _, err := d.Submit(context.Background(), hash, false, []string{"ELA", "noise", "ela"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if rec.DetectorSubset != "ela,noise" {
		t.Fatalf("unexpected detector subset: %q", rec.DetectorSubset)
	}
}

func TestDaemonAddImageStoresBlobAndQueues(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, _, blobs := newTestDaemon(t, cfg)
	t.Cleanup(func() { d.Stop() })

	ctx := context.Background()
	data := testsupport.SolidPNG(t, 32, 32, 120, 90, 60)

	rec, created, err := d.AddImage(ctx, "vacation.png", data, false, nil)
	if err != nil {
		t.Fatalf("AddImage: %v", err)
	}
	if !created {
		t.Fatal("expected upload to create a record")
	}
	if rec.ContentHash != fileutil.HashBytes(data) {
		t.Fatalf("unexpected content hash: %q", rec.ContentHash)
	}
	if rec.SourcePath != "vacation.png" {
		t.Fatalf("unexpected source path: %q", rec.SourcePath)
	}
	if rec.FileSizeBytes != int64(len(data)) {
		t.Fatalf("unexpected file size: %d", rec.FileSizeBytes)
	}

	stored, err := blobs.Get(ctx, blobstore.ImageKey(rec.ContentHash))
	if err != nil {
		t.Fatalf("blob fetch: %v", err)
	}
	if !bytes.Equal(stored, data) {
		t.Fatal("stored blob does not match uploaded bytes")
	}

	again, created, err := d.AddImage(ctx, "vacation.png", data, false, nil)
	if err != nil {
		t.Fatalf("re-upload: %v", err)
	}
	if created {
		t.Fatal("expected identical upload to dedupe against the existing record")
	}
	if again.ID != rec.ID {
		t.Fatalf("expected record %d, got %d", rec.ID, again.ID)
	}
}

func TestDaemonAddImageRejectsUnsupportedExtension(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, _, _ := newTestDaemon(t, cfg)
	t.Cleanup(func() { d.Stop() })

	_, _, err := d.AddImage(context.Background(), "document.pdf", []byte("%PDF-1.4"), false, nil)
	if err == nil {
		t.Fatal("expected unsupported extension to be rejected")
	}
	if services.Kind(err) != "validation" {
		t.Fatalf("expected validation failure, got kind %q (%v)", services.Kind(err), err)
	}
}

func TestDaemonTestNotificationWithoutTopic(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, _, _ := newTestDaemon(t, cfg)
	t.Cleanup(func() { d.Stop() })

	sent, detail, err := d.TestNotification(context.Background())
	if err != nil {
		t.Fatalf("TestNotification: %v", err)
	}
	if sent {
		t.Fatal("expected no notification without a configured topic")
	}
	if detail == "" {
		t.Fatal("expected explanatory detail")
	}
}
