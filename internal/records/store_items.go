package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// NewAnalysis inserts a pending record for a submitted image. The content
// hash is the record's identity; inserting a hash that already exists fails
// with the underlying UNIQUE violation.
func (s *Store) NewAnalysis(ctx context.Context, contentHash, sourcePath string, fileSizeBytes int64) (*Record, error) {
	contentHash = strings.TrimSpace(contentHash)
	if contentHash == "" {
		return nil, errors.New("content hash is required")
	}

	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO analysis_records (
            content_hash, source_path, status, file_size_bytes, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?)`,
		contentHash,
		nullableString(sourcePath),
		StatusPending,
		fileSizeBytes,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert analysis record: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches a record by identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM analysis_records WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}

// GetByHash returns the record for a content hash, or nil when none exists.
func (s *Store) GetByHash(ctx context.Context, contentHash string) (*Record, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+recordColumns+` FROM analysis_records WHERE content_hash = ? LIMIT 1`,
		contentHash,
	)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record by hash: %w", err)
	}
	return rec, nil
}

// Update persists changes to an existing record. The content hash and
// creation time are immutable.
func (s *Store) Update(ctx context.Context, rec *Record) error {
	if rec == nil {
		return errors.New("record is nil")
	}
	rec.UpdatedAt = time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE analysis_records
         SET source_path = ?, status = ?, detector_subset = ?,
             ela_confidence = ?, ela_count = ?, ela_artifact_key = ?,
             cfa_confidence = ?, cfa_count = ?, cfa_artifact_key = ?,
             copymove_confidence = ?, copymove_count = ?, copymove_artifact_key = ?,
             lighting_confidence = ?, lighting_count = ?, lighting_artifact_key = ?,
             noise_confidence = ?, noise_count = ?, noise_artifact_key = ?,
             overall_score = ?, verdict = ?, summary = ?, detailed_findings = ?, error_message = ?,
             processing_ms = ?, image_width = ?, image_height = ?, file_size_bytes = ?,
             metadata_json = ?, thumbnail_key = ?, updated_at = ?, last_heartbeat = ?,
             needs_review = ?, review_reason = ?
         WHERE id = ?`,
		nullableString(rec.SourcePath),
		rec.Status,
		rec.DetectorSubset,
		rec.ELA.Confidence,
		rec.ELA.Count,
		nullableString(rec.ELA.ArtifactKey),
		rec.CFA.Confidence,
		rec.CFA.Count,
		nullableString(rec.CFA.ArtifactKey),
		rec.CopyMove.Confidence,
		rec.CopyMove.Count,
		nullableString(rec.CopyMove.ArtifactKey),
		rec.Lighting.Confidence,
		rec.Lighting.Count,
		nullableString(rec.Lighting.ArtifactKey),
		rec.Noise.Confidence,
		rec.Noise.Count,
		nullableString(rec.Noise.ArtifactKey),
		rec.OverallScore,
		nullableString(string(rec.Verdict)),
		nullableString(rec.Summary),
		nullableString(rec.DetailedFindings),
		nullableString(rec.ErrorMessage),
		rec.ProcessingMillis,
		rec.ImageWidth,
		rec.ImageHeight,
		rec.FileSizeBytes,
		nullableString(rec.MetadataJSON),
		nullableString(rec.ThumbnailKey),
		rec.UpdatedAt.Format(time.RFC3339Nano),
		nullableTime(rec.LastHeartbeat),
		boolToInt(rec.NeedsReview),
		nullableString(rec.ReviewReason),
		rec.ID,
	); err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	return nil
}

// RecordsByStatus returns records matching a status ordered by creation time.
func (s *Store) RecordsByStatus(ctx context.Context, status Status) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM analysis_records WHERE status = ? ORDER BY created_at`, status)
	if err != nil {
		return nil, fmt.Errorf("query by status: %w", err)
	}
	defer rows.Close()

	var recs []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// List returns records filtered by status set (or all records when no status
// is provided), ordered by creation time.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Record, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + recordColumns + ` FROM analysis_records`
	orderClause := ` ORDER BY created_at`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var recs []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// NextForStatuses returns the oldest record matching any of the provided statuses.
func (s *Store) NextForStatuses(ctx context.Context, statuses ...Status) (*Record, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := makePlaceholders(len(statuses))
	args := make([]any, len(statuses))
	for i, status := range statuses {
		args[i] = status
	}

	query := `SELECT ` + recordColumns + ` FROM analysis_records WHERE status IN (` + placeholders + `) ORDER BY created_at LIMIT 1`
	row := s.db.QueryRowContext(ctx, query, args...)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Remove deletes a record by identifier.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM analysis_records WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// RemoveByHash deletes the record for a content hash. Used by forced
// re-submission before the replacement record is created.
func (s *Store) RemoveByHash(ctx context.Context, contentHash string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM analysis_records WHERE content_hash = ?`, contentHash)
	if err != nil {
		return false, fmt.Errorf("delete record by hash: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ClearCompleted removes only completed records.
func (s *Store) ClearCompleted(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM analysis_records WHERE status = ?`, StatusCompleted)
	if err != nil {
		return 0, fmt.Errorf("clear completed: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes all records.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM analysis_records`)
	if err != nil {
		return 0, fmt.Errorf("clear records: %w", err)
	}
	return res.RowsAffected()
}

// ClearFailed removes only failed records.
func (s *Store) ClearFailed(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM analysis_records WHERE status = ?`, StatusFailed)
	if err != nil {
		return 0, fmt.Errorf("clear failed: %w", err)
	}
	return res.RowsAffected()
}
