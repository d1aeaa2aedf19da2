package records

import (
	"database/sql"
	"errors"
	"time"
)

const recordColumns = "id, content_hash, source_path, status, detector_subset, " +
	"ela_confidence, ela_count, ela_artifact_key, " +
	"cfa_confidence, cfa_count, cfa_artifact_key, " +
	"copymove_confidence, copymove_count, copymove_artifact_key, " +
	"lighting_confidence, lighting_count, lighting_artifact_key, " +
	"noise_confidence, noise_count, noise_artifact_key, " +
	"overall_score, verdict, summary, detailed_findings, error_message, " +
	"processing_ms, image_width, image_height, file_size_bytes, metadata_json, thumbnail_key, " +
	"created_at, updated_at, last_heartbeat, needs_review, review_reason"

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*Record, error) {
	var (
		id               int64
		contentHash      string
		sourcePath       sql.NullString
		statusStr        string
		elaKey           sql.NullString
		cfaKey           sql.NullString
		copyMoveKey      sql.NullString
		lightingKey      sql.NullString
		noiseKey         sql.NullString
		verdict          sql.NullString
		summary          sql.NullString
		findings         sql.NullString
		errorMessage     sql.NullString
		metadata         sql.NullString
		thumbnailKey     sql.NullString
		createdRaw       sql.NullString
		updatedRaw       sql.NullString
		lastHeartbeatRaw sql.NullString
		needsReview      sql.NullInt64
		reviewReason     sql.NullString
	)

	rec := &Record{}
	if err := scanner.Scan(
		&id,
		&contentHash,
		&sourcePath,
		&statusStr,
		&rec.DetectorSubset,
		&rec.ELA.Confidence,
		&rec.ELA.Count,
		&elaKey,
		&rec.CFA.Confidence,
		&rec.CFA.Count,
		&cfaKey,
		&rec.CopyMove.Confidence,
		&rec.CopyMove.Count,
		&copyMoveKey,
		&rec.Lighting.Confidence,
		&rec.Lighting.Count,
		&lightingKey,
		&rec.Noise.Confidence,
		&rec.Noise.Count,
		&noiseKey,
		&rec.OverallScore,
		&verdict,
		&summary,
		&findings,
		&errorMessage,
		&rec.ProcessingMillis,
		&rec.ImageWidth,
		&rec.ImageHeight,
		&rec.FileSizeBytes,
		&metadata,
		&thumbnailKey,
		&createdRaw,
		&updatedRaw,
		&lastHeartbeatRaw,
		&needsReview,
		&reviewReason,
	); err != nil {
		return nil, err
	}

	rec.ID = id
	rec.ContentHash = contentHash
	rec.SourcePath = sourcePath.String
	rec.Status = Status(statusStr)
	rec.ELA.ArtifactKey = elaKey.String
	rec.CFA.ArtifactKey = cfaKey.String
	rec.CopyMove.ArtifactKey = copyMoveKey.String
	rec.Lighting.ArtifactKey = lightingKey.String
	rec.Noise.ArtifactKey = noiseKey.String
	rec.Verdict = Verdict(verdict.String)
	rec.Summary = summary.String
	rec.DetailedFindings = findings.String
	rec.ErrorMessage = errorMessage.String
	rec.MetadataJSON = metadata.String
	rec.ThumbnailKey = thumbnailKey.String
	if needsReview.Valid {
		rec.NeedsReview = needsReview.Int64 != 0
	}
	rec.ReviewReason = reviewReason.String

	if created, err := parseTimeString(createdRaw.String); err == nil {
		rec.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		rec.UpdatedAt = updated
	}
	if lastHeartbeatRaw.Valid {
		if heartbeat, err := parseTimeString(lastHeartbeatRaw.String); err == nil {
			rec.LastHeartbeat = &heartbeat
		}
	}
	return rec, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	v := value.UTC().Format(time.RFC3339Nano)
	return v
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
