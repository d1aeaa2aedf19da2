package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// maxLineBytes bounds a single scanned log line.
const maxLineBytes = 1 << 20

// TailOptions controls one Tail call. Offset < 0 requests the last Limit
// lines; Offset >= 0 resumes from a byte position returned by an earlier
// call. Follow with a positive Wait polls for new lines until the wait
// elapses when the initial read comes back empty.
type TailOptions struct {
	Offset int64
	Limit  int
	Follow bool
	Wait   time.Duration
}

// TailResult carries the lines read and the byte offset to resume from.
type TailResult struct {
	Lines  []string
	Offset int64
}

// Tail reads log lines from path according to opts. A missing file is not
// an error; the result simply resets the offset to zero so callers can
// retry once the daemon creates the file.
func Tail(ctx context.Context, path string, opts TailOptions) (TailResult, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return TailResult{Offset: 0}, nil
	}
	if err != nil {
		return TailResult{Offset: opts.Offset}, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return TailResult{Offset: opts.Offset}, fmt.Errorf("log path %q is a directory", path)
	}

	wait := opts.Wait
	if wait < 0 {
		wait = 0
	}

	var result TailResult
	if opts.Offset < 0 {
		result, err = lastLines(path, opts.Limit)
	} else {
		offset := opts.Offset
		if offset > info.Size() {
			// The file was truncated or rotated; start over at the top.
			offset = 0
		}
		result, err = linesFrom(path, offset)
	}
	if err != nil {
		return result, err
	}

	if opts.Follow && wait > 0 && len(result.Lines) == 0 {
		return pollForLines(ctx, path, result.Offset, wait)
	}
	return result, nil
}

// lastLines returns up to limit trailing lines plus the end-of-file offset.
func lastLines(path string, limit int) (TailResult, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return TailResult{}, nil
	}
	if err != nil {
		return TailResult{}, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if limit <= 0 {
		end, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			return TailResult{}, fmt.Errorf("seek log file: %w", err)
		}
		return TailResult{Offset: end}, nil
	}

	ring := make([]string, limit)
	total := 0
	scanner := newLineScanner(file)
	for scanner.Scan() {
		ring[total%limit] = scanner.Text()
		total++
	}
	if err := scanner.Err(); err != nil {
		return TailResult{}, fmt.Errorf("read log file: %w", err)
	}

	end, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return TailResult{}, fmt.Errorf("seek log file: %w", err)
	}

	count := total
	if count > limit {
		count = limit
	}
	lines := make([]string, count)
	for i := 0; i < count; i++ {
		lines[i] = ring[(total-count+i)%limit]
	}
	return TailResult{Lines: lines, Offset: end}, nil
}

// linesFrom reads every complete line starting at the byte offset.
func linesFrom(path string, offset int64) (TailResult, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return TailResult{}, nil
	}
	if err != nil {
		return TailResult{Offset: offset}, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return TailResult{Offset: offset}, fmt.Errorf("seek log file: %w", err)
	}

	var lines []string
	scanner := newLineScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return TailResult{Offset: offset}, fmt.Errorf("read log file: %w", err)
	}

	end, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return TailResult{Offset: offset}, fmt.Errorf("determine log offset: %w", err)
	}
	return TailResult{Lines: lines, Offset: end}, nil
}

// pollForLines re-reads from offset until a line appears, the wait elapses,
// or the context is canceled.
func pollForLines(ctx context.Context, path string, offset int64, wait time.Duration) (TailResult, error) {
	deadline := time.Now().Add(wait)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		result, err := linesFrom(path, offset)
		if err != nil {
			return result, err
		}
		if len(result.Lines) > 0 || time.Now().After(deadline) {
			return result, nil
		}
		offset = result.Offset

		select {
		case <-ctx.Done():
			return TailResult{Offset: offset}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func newLineScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return scanner
}
