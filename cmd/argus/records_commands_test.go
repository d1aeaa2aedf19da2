package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"argus/internal/api"
	"argus/internal/records"
	"argus/internal/testsupport"
)

func seedCompletedRecord(t *testing.T, env *cliTestEnv, contentHash string) *records.Record {
	t.Helper()
	ctx := context.Background()
	rec := testsupport.NewAnalysis(t, env.store, contentHash, "holiday.jpg")
	rec.Status = records.StatusCompleted
	rec.Verdict = records.VerdictSuspicious
	rec.OverallScore = 46.5
	rec.Summary = "2 of 5 detectors reported elevated confidence"
	rec.ELA = records.DetectorOutcome{Confidence: 61.0, Count: 4, ArtifactKey: "traditional-analysis/" + contentHash + "/ela.png"}
	rec.ImageWidth = 640
	rec.ImageHeight = 480
	rec.ProcessingMillis = 128
	if err := env.store.Update(ctx, rec); err != nil {
		t.Fatalf("update record: %v", err)
	}
	return rec
}

func seedFailedRecord(t *testing.T, env *cliTestEnv, contentHash string) *records.Record {
	t.Helper()
	ctx := context.Background()
	rec := testsupport.NewAnalysis(t, env.store, contentHash, "broken.png")
	rec.SetFailed("decode image: unexpected EOF")
	if err := env.store.Update(ctx, rec); err != nil {
		t.Fatalf("update record: %v", err)
	}
	return rec
}

func TestRecordsListShowsSeededRecords(t *testing.T) {
	env := setupCLITestEnv(t)

	completed := seedCompletedRecord(t, env, strings.Repeat("a", 64))
	failed := seedFailedRecord(t, env, strings.Repeat("b", 64))

	out, _, err := runCLI(t, []string{"records", "list"}, env.cfg.Paths.APIBind, env.configPath)
	if err != nil {
		t.Fatalf("records list: %v", err)
	}
	requireContains(t, out, formatHash(completed.ContentHash))
	requireContains(t, out, formatHash(failed.ContentHash))
	requireContains(t, out, "Completed")
	requireContains(t, out, "Failed")
	requireContains(t, out, "Suspicious")
}

func TestRecordsListFiltersByStatus(t *testing.T) {
	env := setupCLITestEnv(t)

	completed := seedCompletedRecord(t, env, strings.Repeat("a", 64))
	failed := seedFailedRecord(t, env, strings.Repeat("b", 64))

	out, _, err := runCLI(t, []string{"records", "list", "--status", "failed"}, env.cfg.Paths.APIBind, env.configPath)
	if err != nil {
		t.Fatalf("records list --status failed: %v", err)
	}
	requireContains(t, out, formatHash(failed.ContentHash))
	if strings.Contains(out, formatHash(completed.ContentHash)) {
		t.Fatalf("expected completed record to be filtered out, got %q", out)
	}
}

func TestRecordsListEmptyAndJSON(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"records", "list"}, env.cfg.Paths.APIBind, env.configPath)
	if err != nil {
		t.Fatalf("records list: %v", err)
	}
	requireContains(t, out, "No analysis records")

	seedCompletedRecord(t, env, strings.Repeat("c", 64))

	out, _, err = runCLI(t, []string{"records", "list", "--json"}, env.cfg.Paths.APIBind, env.configPath)
	if err != nil {
		t.Fatalf("records list --json: %v", err)
	}
	var recs []api.AnalysisRecord
	if err := json.Unmarshal([]byte(out), &recs); err != nil {
		t.Fatalf("unmarshal list output: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	if recs[0].Verdict != string(records.VerdictSuspicious) {
		t.Fatalf("unexpected verdict %q", recs[0].Verdict)
	}
}

func TestRecordsShowRendersDetail(t *testing.T) {
	env := setupCLITestEnv(t)

	rec := seedCompletedRecord(t, env, strings.Repeat("d", 64))

	out, _, err := runCLI(t, []string{"records", "show", rec.ContentHash}, env.cfg.Paths.APIBind, env.configPath)
	if err != nil {
		t.Fatalf("records show: %v", err)
	}
	requireContains(t, out, fmt.Sprintf("Record #%d", rec.ID))
	requireContains(t, out, rec.ContentHash)
	requireContains(t, out, "Suspicious")
	requireContains(t, out, "46.5")
	requireContains(t, out, "640x480")
	requireContains(t, out, "Detectors")
	requireContains(t, out, "61.0")
	requireContains(t, out, rec.Summary)
}

func TestRecordsShowMissingRecord(t *testing.T) {
	env := setupCLITestEnv(t)

	missing := strings.Repeat("e", 64)
	_, _, err := runCLI(t, []string{"records", "show", missing}, env.cfg.Paths.APIBind, env.configPath)
	if err == nil {
		t.Fatal("expected error for missing record")
	}
	requireContains(t, err.Error(), "no record found")

	_, _, err = runCLI(t, []string{"records", "show", "not-a-hash"}, env.cfg.Paths.APIBind, env.configPath)
	if err == nil {
		t.Fatal("expected error for invalid hash")
	}
	requireContains(t, err.Error(), "invalid content hash")
}

func TestRecordsRetryAndClear(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	failed := seedFailedRecord(t, env, strings.Repeat("f", 64))

	out, _, err := runCLI(t, []string{"records", "retry"}, env.cfg.Paths.APIBind, env.configPath)
	if err != nil {
		t.Fatalf("records retry: %v", err)
	}
	requireContains(t, out, "Retried 1 failed records")

	updated, err := env.store.GetByID(ctx, failed.ID)
	if err != nil {
		t.Fatalf("lookup record: %v", err)
	}
	if updated.Status != records.StatusPending {
		t.Fatalf("expected pending, got %s", updated.Status)
	}

	updated.SetFailed("still broken")
	if err := env.store.Update(ctx, updated); err != nil {
		t.Fatalf("re-fail record: %v", err)
	}

	out, _, err = runCLI(t, []string{"records", "clear", "--failed"}, env.cfg.Paths.APIBind, env.configPath)
	if err != nil {
		t.Fatalf("records clear --failed: %v", err)
	}
	requireContains(t, out, "Cleared 1 failed records")

	seedCompletedRecord(t, env, strings.Repeat("a", 64))
	out, _, err = runCLI(t, []string{"records", "clear"}, env.cfg.Paths.APIBind, env.configPath)
	if err != nil {
		t.Fatalf("records clear: %v", err)
	}
	requireContains(t, out, "Cleared 1 analysis records")

	_, _, err = runCLI(t, []string{"records", "clear", "--completed", "--failed"}, env.cfg.Paths.APIBind, env.configPath)
	if err == nil {
		t.Fatal("expected mutual exclusion error")
	}
}

func TestRecordsRetrySpecificTargets(t *testing.T) {
	env := setupCLITestEnv(t)

	failed := seedFailedRecord(t, env, strings.Repeat("1", 64))
	completed := seedCompletedRecord(t, env, strings.Repeat("2", 64))

	out, _, err := runCLI(t, []string{"records", "retry", fmt.Sprintf("%d", failed.ID)}, env.cfg.Paths.APIBind, env.configPath)
	if err != nil {
		t.Fatalf("records retry by id: %v", err)
	}
	requireContains(t, out, fmt.Sprintf("Record #%d reset for retry", failed.ID))

	out, _, err = runCLI(t, []string{"records", "retry", completed.ContentHash}, env.cfg.Paths.APIBind, env.configPath)
	if err != nil {
		t.Fatalf("records retry by hash: %v", err)
	}
	requireContains(t, out, fmt.Sprintf("Record #%d is not in failed state", completed.ID))

	out, _, err = runCLI(t, []string{"records", "retry", "9999"}, env.cfg.Paths.APIBind, env.configPath)
	if err != nil {
		t.Fatalf("records retry missing: %v", err)
	}
	requireContains(t, out, "Record 9999 not found")
}

func TestRecordsResetStuck(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	rec := testsupport.NewAnalysis(t, env.store, strings.Repeat("3", 64), "stuck.png")
	rec.Status = records.StatusInProgress
	if err := env.store.Update(ctx, rec); err != nil {
		t.Fatalf("mark in progress: %v", err)
	}

	out, _, err := runCLI(t, []string{"records", "reset-stuck"}, env.cfg.Paths.APIBind, env.configPath)
	if err != nil {
		t.Fatalf("records reset-stuck: %v", err)
	}
	requireContains(t, out, "Reset 1 records")

	updated, err := env.store.GetByID(ctx, rec.ID)
	if err != nil {
		t.Fatalf("lookup record: %v", err)
	}
	if updated.Status != records.StatusPending {
		t.Fatalf("expected pending, got %s", updated.Status)
	}
}

func TestRecordsHealthCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	seedCompletedRecord(t, env, strings.Repeat("4", 64))
	seedFailedRecord(t, env, strings.Repeat("5", 64))

	out, _, err := runCLI(t, []string{"records", "health"}, env.cfg.Paths.APIBind, env.configPath)
	if err != nil {
		t.Fatalf("records health: %v", err)
	}
	requireContains(t, out, "Total: 2")
	requireContains(t, out, "Failed: 1")
	requireContains(t, out, "Completed: 1")
	requireContains(t, out, "Database exists: yes")
	requireContains(t, out, "analysis_records table present: yes")
	requireContains(t, out, "Missing columns: none")
	requireContains(t, out, "Integrity check: yes")
}
