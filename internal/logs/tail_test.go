package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"argus/internal/logs"
)

func writeLog(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
}

func appendLog(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("append log: %v", err)
	}
	_ = f.Close()
}

func TestTailLastLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "argus.log")
	writeLog(t, path, "one\ntwo\nthree\n")

	result, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: -1, Limit: 2})
	if err != nil {
		t.Fatalf("tail returned error: %v", err)
	}
	if len(result.Lines) != 2 || result.Lines[0] != "two" || result.Lines[1] != "three" {
		t.Fatalf("unexpected lines: %#v", result.Lines)
	}
	if result.Offset == 0 {
		t.Fatal("expected offset to advance past existing content")
	}
}

func TestTailResumesFromOffset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "argus.log")
	writeLog(t, path, "first\n")

	initial, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: -1, Limit: 10})
	if err != nil {
		t.Fatalf("initial tail: %v", err)
	}

	appendLog(t, path, "second\nthird\n")

	next, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: initial.Offset})
	if err != nil {
		t.Fatalf("resumed tail: %v", err)
	}
	if len(next.Lines) != 2 || next.Lines[0] != "second" || next.Lines[1] != "third" {
		t.Fatalf("unexpected resumed lines: %#v", next.Lines)
	}
}

func TestTailMissingFileResetsOffset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "argus.log")

	result, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: 500, Limit: 5})
	if err != nil {
		t.Fatalf("tail on missing file: %v", err)
	}
	if len(result.Lines) != 0 || result.Offset != 0 {
		t.Fatalf("expected empty reset result, got %#v", result)
	}
}

func TestTailRestartsAfterTruncation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "argus.log")
	writeLog(t, path, "a long line that will be replaced\n")

	initial, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: -1, Limit: 10})
	if err != nil {
		t.Fatalf("initial tail: %v", err)
	}

	writeLog(t, path, "fresh\n")

	result, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: initial.Offset})
	if err != nil {
		t.Fatalf("tail after truncation: %v", err)
	}
	if len(result.Lines) != 1 || result.Lines[0] != "fresh" {
		t.Fatalf("expected replay of truncated file, got %#v", result.Lines)
	}
}

func TestTailFollowWaitsForNewLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "argus.log")
	writeLog(t, path, "start\n")

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	initial, err := logs.Tail(ctx, path, logs.TailOptions{Offset: -1, Limit: 1})
	if err != nil {
		t.Fatalf("initial tail: %v", err)
	}

	done := make(chan struct{})
	go func(offset int64) {
		defer close(done)
		res, err := logs.Tail(ctx, path, logs.TailOptions{Offset: offset, Follow: true, Wait: 5 * time.Second})
		if err != nil {
			t.Errorf("follow tail error: %v", err)
			return
		}
		if len(res.Lines) != 1 || res.Lines[0] != "later" {
			t.Errorf("unexpected follow lines: %#v", res.Lines)
		}
	}(initial.Offset)

	time.Sleep(200 * time.Millisecond)
	appendLog(t, path, "later\n")

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("tail follow did not observe the appended line")
	}
}
