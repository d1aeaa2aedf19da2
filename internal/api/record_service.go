package api

import (
	"context"

	"argus/internal/records"
)

// RecordReader abstracts record persistence interactions needed for API
// queries.
type RecordReader interface {
	List(ctx context.Context, statuses ...records.Status) ([]*records.Record, error)
	Stats(ctx context.Context) (map[records.Status]int, error)
	GetByHash(ctx context.Context, contentHash string) (*records.Record, error)
}

// RecordService exposes read-only record operations returning API DTOs.
type RecordService struct {
	store RecordReader
}

// NewRecordService constructs a RecordService around the provided reader.
func NewRecordService(store RecordReader) *RecordService {
	if store == nil {
		return nil
	}
	return &RecordService{store: store}
}

// List returns analysis records filtered by status.
func (s *RecordService) List(ctx context.Context, statuses ...records.Status) ([]AnalysisRecord, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	recs, err := s.store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return FromRecords(recs), nil
}

// Stats returns record summary counts keyed by status string.
func (s *RecordService) Stats(ctx context.Context) (map[string]int, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return MergeRecordStats(stats), nil
}

// Describe fetches a single record by content hash.
func (s *RecordService) Describe(ctx context.Context, contentHash string) (*AnalysisRecord, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	rec, err := s.store.GetByHash(ctx, contentHash)
	if err != nil || rec == nil {
		return nil, err
	}
	dto := FromRecord(rec)
	return &dto, nil
}
