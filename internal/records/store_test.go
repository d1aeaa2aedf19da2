package records_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"argus/internal/records"
	"argus/internal/testsupport"
)

func TestOpenInitializesSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	rec, err := store.NewAnalysis(ctx, "hash-1", "/images/cat.jpg", 2048)
	if err != nil {
		t.Fatalf("NewAnalysis failed: %v", err)
	}
	if rec.ID == 0 {
		t.Fatal("expected record ID to be assigned")
	}
	if rec.Status != records.StatusPending {
		t.Fatalf("expected pending status, got %s", rec.Status)
	}
	if rec.FileSizeBytes != 2048 {
		t.Fatalf("expected file size persisted, got %d", rec.FileSizeBytes)
	}

	fetched, err := store.GetByID(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched == nil || fetched.SourcePath != "/images/cat.jpg" {
		t.Fatalf("unexpected fetched record: %#v", fetched)
	}

	found, err := store.GetByHash(ctx, "hash-1")
	if err != nil {
		t.Fatalf("GetByHash failed: %v", err)
	}
	if found == nil || found.ID != rec.ID {
		t.Fatalf("expected to find inserted record, got %#v", found)
	}

	missing, err := store.GetByHash(ctx, "no-such-hash")
	if err != nil {
		t.Fatalf("GetByHash missing failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown hash, got %#v", missing)
	}
}

func TestNewAnalysisRequiresHash(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	if _, err := store.NewAnalysis(ctx, "   ", "/images/x.jpg", 0); err == nil {
		t.Fatal("expected error when content hash missing")
	}
}

func TestNewAnalysisRejectsDuplicateHash(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	if _, err := store.NewAnalysis(ctx, "dup", "/a.jpg", 0); err != nil {
		t.Fatalf("first NewAnalysis failed: %v", err)
	}
	if _, err := store.NewAnalysis(ctx, "dup", "/b.jpg", 0); err == nil {
		t.Fatal("expected duplicate hash to be rejected")
	}
}

func TestUpdatePersistsFullOutcome(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	rec := testsupport.NewAnalysis(t, store, "hash-outcome", "/images/dog.png")

	rec.Status = records.StatusCompleted
	rec.DetectorSubset = "ela,noise"
	rec.ELA = records.DetectorOutcome{Confidence: 40, Count: 3, ArtifactKey: "traditional-analysis/hash_ela_1.png"}
	rec.CFA = records.DetectorOutcome{Confidence: 20, Count: 1, ArtifactKey: "traditional-analysis/hash_cfa_1.png"}
	rec.CopyMove = records.DetectorOutcome{Confidence: 60, Count: 3, ArtifactKey: "traditional-analysis/hash_copy_move_1.png"}
	rec.Lighting = records.DetectorOutcome{Confidence: 10, Count: 2, ArtifactKey: "traditional-analysis/hash_lighting_1.png"}
	rec.Noise = records.DetectorOutcome{Confidence: 30, Count: 4, ArtifactKey: "traditional-analysis/hash_noise_1.png"}
	rec.OverallScore = 36.5
	rec.Verdict = records.VerdictSuspicious
	rec.Summary = "Overall manipulation confidence: 36.5/100"
	rec.DetailedFindings = "ELA: moderate compression artifacts"
	rec.ProcessingMillis = 1234
	rec.ImageWidth = 640
	rec.ImageHeight = 480
	rec.MetadataJSON = `{"riskScore":15}`
	rec.ThumbnailKey = "traditional-analysis/hash_thumb_1.png"
	if err := store.Update(ctx, rec); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, err := store.GetByID(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != records.StatusCompleted {
		t.Fatalf("expected completed, got %s", got.Status)
	}
	if got.ELA != rec.ELA || got.CFA != rec.CFA || got.CopyMove != rec.CopyMove ||
		got.Lighting != rec.Lighting || got.Noise != rec.Noise {
		t.Fatalf("detector outcomes did not roundtrip: %#v", got)
	}
	if got.OverallScore != 36.5 || got.Verdict != records.VerdictSuspicious {
		t.Fatalf("aggregate did not roundtrip: score=%v verdict=%s", got.OverallScore, got.Verdict)
	}
	if got.Summary != rec.Summary || got.DetailedFindings != rec.DetailedFindings {
		t.Fatal("findings text did not roundtrip")
	}
	if got.ProcessingMillis != 1234 || got.ImageWidth != 640 || got.ImageHeight != 480 {
		t.Fatalf("processing metadata did not roundtrip: %#v", got)
	}
	if got.MetadataJSON != rec.MetadataJSON || got.ThumbnailKey != rec.ThumbnailKey {
		t.Fatal("metadata fields did not roundtrip")
	}
	if got.DetectorSubset != "ela,noise" {
		t.Fatalf("detector subset did not roundtrip: %q", got.DetectorSubset)
	}
}

func TestListSupportsStatusFilter(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	a := testsupport.NewAnalysis(t, store, "hash-a", "/a.jpg")
	b := testsupport.NewAnalysis(t, store, "hash-b", "/b.jpg")
	b.Status = records.StatusInProgress
	if err := store.Update(ctx, b); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	c := testsupport.NewAnalysis(t, store, "hash-c", "/c.jpg")
	c.SetFailed("boom")
	if err := store.Update(ctx, c); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 records, got %d", len(all))
	}
	if all[0].ID != a.ID || all[1].ID != b.ID || all[2].ID != c.ID {
		t.Fatalf("expected order A,B,C, got IDs %d,%d,%d", all[0].ID, all[1].ID, all[2].ID)
	}

	filtered, err := store.List(ctx, records.StatusInProgress, records.StatusFailed)
	if err != nil {
		t.Fatalf("Filtered list failed: %v", err)
	}
	if len(filtered) != 2 {
		t.Fatalf("expected 2 records, got %d", len(filtered))
	}
	if filtered[0].ID != b.ID || filtered[1].ID != c.ID {
		t.Fatalf("unexpected filtered order: got %d,%d", filtered[0].ID, filtered[1].ID)
	}

	failedOnly, err := store.RecordsByStatus(ctx, records.StatusFailed)
	if err != nil {
		t.Fatalf("RecordsByStatus failed: %v", err)
	}
	if len(failedOnly) != 1 || failedOnly[0].ErrorMessage != "boom" {
		t.Fatalf("unexpected failed records: %#v", failedOnly)
	}
}

func TestNextForStatusesReturnsOldest(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	first := testsupport.NewAnalysis(t, store, "hash-first", "/1.jpg")
	testsupport.NewAnalysis(t, store, "hash-second", "/2.jpg")

	next, err := store.NextForStatuses(ctx, records.StatusPending)
	if err != nil {
		t.Fatalf("NextForStatuses failed: %v", err)
	}
	if next == nil || next.ID != first.ID {
		t.Fatalf("expected oldest pending record, got %#v", next)
	}

	none, err := store.NextForStatuses(ctx, records.StatusCompleted)
	if err != nil {
		t.Fatalf("NextForStatuses completed failed: %v", err)
	}
	if none != nil {
		t.Fatalf("expected no completed records, got %#v", none)
	}
}

func TestRetryFailed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	a := testsupport.NewAnalysis(t, store, "retry-a", "/a.jpg")
	b := testsupport.NewAnalysis(t, store, "retry-b", "/b.jpg")
	for _, rec := range []*records.Record{a, b} {
		rec.SetFailed("boom")
		rec.NeedsReview = true
		rec.ReviewReason = "validation failure, retry will not succeed"
		if err := store.Update(ctx, rec); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}

	updated, err := store.RetryFailed(ctx)
	if err != nil {
		t.Fatalf("RetryFailed all: %v", err)
	}
	if updated != 2 {
		t.Fatalf("expected 2 records retried, got %d", updated)
	}

	rec, err := store.GetByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if rec.Status != records.StatusPending {
		t.Fatalf("expected record A pending, got %s", rec.Status)
	}
	if rec.ErrorMessage != "" || rec.NeedsReview || rec.ReviewReason != "" {
		t.Fatalf("expected failure fields cleared, got %#v", rec)
	}

	// Mark B failed again and retry targeted selection.
	b.SetFailed("boom again")
	if err := store.Update(ctx, b); err != nil {
		t.Fatalf("Update: %v", err)
	}
	updated, err = store.RetryFailed(ctx, b.ID)
	if err != nil {
		t.Fatalf("RetryFailed targeted: %v", err)
	}
	if updated != 1 {
		t.Fatalf("expected 1 record retried, got %d", updated)
	}
}

func TestUpdateHeartbeat(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	rec := testsupport.NewAnalysis(t, store, "heartbeat", "/hb.jpg")
	rec.Status = records.StatusInProgress
	if err := store.Update(ctx, rec); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if err := store.UpdateHeartbeat(ctx, rec.ID); err != nil {
		t.Fatalf("UpdateHeartbeat: %v", err)
	}

	updated, err := store.GetByID(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if updated.LastHeartbeat == nil {
		t.Fatal("expected last heartbeat to be set")
	}
}

func TestResetStuckProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	now := time.Now().UTC()
	stuck := testsupport.NewAnalysis(t, store, "stuck", "/stuck.jpg")
	stuck.Status = records.StatusInProgress
	stuck.LastHeartbeat = &now
	if err := store.Update(ctx, stuck); err != nil {
		t.Fatalf("Update: %v", err)
	}
	done := testsupport.NewAnalysis(t, store, "done", "/done.jpg")
	done.Status = records.StatusCompleted
	if err := store.Update(ctx, done); err != nil {
		t.Fatalf("Update: %v", err)
	}

	count, err := store.ResetStuckProcessing(ctx)
	if err != nil {
		t.Fatalf("ResetStuckProcessing: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 record reset, got %d", count)
	}

	reset, err := store.GetByID(ctx, stuck.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if reset.Status != records.StatusPending {
		t.Fatalf("expected pending after reset, got %s", reset.Status)
	}
	if reset.LastHeartbeat != nil {
		t.Fatal("expected heartbeat cleared")
	}

	untouched, err := store.GetByID(ctx, done.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if untouched.Status != records.StatusCompleted {
		t.Fatalf("expected completed record untouched, got %s", untouched.Status)
	}
}

func TestReclaimStaleProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	past := time.Now().Add(-2 * time.Hour).UTC()

	stale := testsupport.NewAnalysis(t, store, "stale", "/stale.jpg")
	stale.Status = records.StatusInProgress
	stale.LastHeartbeat = &past
	if err := store.Update(ctx, stale); err != nil {
		t.Fatalf("Update stale: %v", err)
	}

	fresh := testsupport.NewAnalysis(t, store, "fresh", "/fresh.jpg")
	fresh.Status = records.StatusInProgress
	if err := store.Update(ctx, fresh); err != nil {
		t.Fatalf("Update fresh: %v", err)
	}
	if err := store.UpdateHeartbeat(ctx, fresh.ID); err != nil {
		t.Fatalf("UpdateHeartbeat fresh: %v", err)
	}

	count, err := store.ReclaimStaleProcessing(ctx, time.Now().Add(-1*time.Hour))
	if err != nil {
		t.Fatalf("ReclaimStaleProcessing: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 record reclaimed, got %d", count)
	}

	reclaimed, err := store.GetByID(ctx, stale.ID)
	if err != nil {
		t.Fatalf("GetByID stale: %v", err)
	}
	if reclaimed.Status != records.StatusPending {
		t.Fatalf("expected stale record re-pended, got %s", reclaimed.Status)
	}
	if reclaimed.LastHeartbeat != nil {
		t.Fatalf("expected stale heartbeat cleared, got %v", reclaimed.LastHeartbeat)
	}

	unchanged, err := store.GetByID(ctx, fresh.ID)
	if err != nil {
		t.Fatalf("GetByID fresh: %v", err)
	}
	if unchanged.Status != records.StatusInProgress {
		t.Fatalf("expected fresh record untouched, got %s", unchanged.Status)
	}
	if unchanged.LastHeartbeat == nil {
		t.Fatal("expected fresh heartbeat preserved")
	}
}

func TestRemoveByHash(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	rec := testsupport.NewAnalysis(t, store, "remove-me", "/r.jpg")

	removed, err := store.RemoveByHash(ctx, "remove-me")
	if err != nil {
		t.Fatalf("RemoveByHash: %v", err)
	}
	if !removed {
		t.Fatal("expected record removed")
	}

	gone, err := store.GetByID(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if gone != nil {
		t.Fatalf("expected record gone, got %#v", gone)
	}

	removed, err = store.RemoveByHash(ctx, "remove-me")
	if err != nil {
		t.Fatalf("RemoveByHash second: %v", err)
	}
	if removed {
		t.Fatal("expected no-op removal to report false")
	}

	// Removing frees the hash for a fresh submission.
	if _, err := store.NewAnalysis(ctx, "remove-me", "/r2.jpg", 0); err != nil {
		t.Fatalf("re-submit after removal failed: %v", err)
	}
}

func TestPruneTerminal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	completed := testsupport.NewAnalysis(t, store, "prune-completed", "/1.jpg")
	completed.Status = records.StatusCompleted
	if err := store.Update(ctx, completed); err != nil {
		t.Fatalf("Update: %v", err)
	}
	failed := testsupport.NewAnalysis(t, store, "prune-failed", "/2.jpg")
	failed.SetFailed("boom")
	if err := store.Update(ctx, failed); err != nil {
		t.Fatalf("Update: %v", err)
	}
	pending := testsupport.NewAnalysis(t, store, "prune-pending", "/3.jpg")

	// A cutoff before every update leaves the records alone.
	count, err := store.PruneTerminal(ctx, time.Now().Add(-1*time.Hour))
	if err != nil {
		t.Fatalf("PruneTerminal past cutoff: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected nothing pruned, got %d", count)
	}

	// A cutoff after every update prunes the terminal records only.
	count, err = store.PruneTerminal(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("PruneTerminal future cutoff: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 records pruned, got %d", count)
	}

	rec, err := store.GetByID(ctx, pending.ID)
	if err != nil {
		t.Fatalf("GetByID pending: %v", err)
	}
	if rec == nil {
		t.Fatal("expected pending record to survive pruning")
	}
}

func TestStatsAndHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		testsupport.NewAnalysis(t, store, fmt.Sprintf("stats-%d", i), "/s.jpg")
	}
	done := testsupport.NewAnalysis(t, store, "stats-done", "/d.jpg")
	done.Status = records.StatusCompleted
	if err := store.Update(ctx, done); err != nil {
		t.Fatalf("Update: %v", err)
	}
	working := testsupport.NewAnalysis(t, store, "stats-working", "/w.jpg")
	working.Status = records.StatusInProgress
	if err := store.Update(ctx, working); err != nil {
		t.Fatalf("Update: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats[records.StatusPending] != 3 || stats[records.StatusCompleted] != 1 || stats[records.StatusInProgress] != 1 {
		t.Fatalf("unexpected stats: %#v", stats)
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	want := records.HealthSummary{Total: 5, Pending: 3, Processing: 1, Completed: 1}
	if health != want {
		t.Fatalf("unexpected health summary: %#v", health)
	}
}

func TestCheckHealthReportsColumns(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	health, err := store.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth: %v", err)
	}
	if !health.DatabaseExists || !health.DatabaseReadable || !health.TableExists {
		t.Fatalf("unexpected database health: %#v", health)
	}
	if len(health.MissingColumns) != 0 {
		t.Fatalf("expected no missing columns, got %v", health.MissingColumns)
	}
	if !health.IntegrityCheck {
		t.Fatal("expected integrity check to pass")
	}
}

func TestRecordDetectors(t *testing.T) {
	cases := []struct {
		name   string
		subset string
		want   []string
	}{
		{"empty means all", "", nil},
		{"whitespace only", "   ", nil},
		{"single", "ela", []string{"ela"}},
		{"multiple", "ela,noise,copy_move", []string{"ela", "noise", "copy_move"}},
		{"padded entries", " ela , noise ", []string{"ela", "noise"}},
		{"stray commas", "ela,,noise,", []string{"ela", "noise"}},
	}
	for _, tc := range cases {
		rec := &records.Record{DetectorSubset: tc.subset}
		got := rec.Detectors()
		if len(got) != len(tc.want) {
			t.Fatalf("%s: Detectors() = %v, want %v", tc.name, got, tc.want)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("%s: Detectors()[%d] = %q, want %q", tc.name, i, got[i], tc.want[i])
			}
		}
	}
}

type classifiedError struct {
	kind string
}

func (e *classifiedError) Error() string { return "classified: " + e.kind }

func (e *classifiedError) ErrorKind() string { return e.kind }

func TestReviewReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"validation", &classifiedError{kind: "validation"}, true},
		{"configuration", &classifiedError{kind: "configuration"}, true},
		{"not_found", &classifiedError{kind: "not_found"}, true},
		{"transient", &classifiedError{kind: "network"}, false},
		{"plain", errors.New("boom"), false},
		{"wrapped", fmt.Errorf("outer: %w", &classifiedError{kind: "validation"}), true},
	}
	for _, tc := range cases {
		reason := records.ReviewReason(tc.err)
		if (reason != "") != tc.want {
			t.Fatalf("%s: ReviewReason = %q, want flagged=%v", tc.name, reason, tc.want)
		}
	}
}
