package logging

import (
	"context"
	"log/slog"
)

type contextKey int

const (
	recordIDKey contextKey = iota
	contentHashKey
	requestIDKey
)

// WithRecordID stores an analysis record identifier on the context.
func WithRecordID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, recordIDKey, id)
}

// WithContentHash stores the image content hash on the context.
func WithContentHash(ctx context.Context, hash string) context.Context {
	return context.WithValue(ctx, contentHashKey, hash)
}

// WithRequestID stores the per-task correlation identifier on the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// ContextFields extracts standardized attrs from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := ctx.Value(recordIDKey).(int64); ok {
		fields = append(fields, slog.Int64(FieldRecordID, id))
	}
	if hash, ok := ctx.Value(contentHashKey).(string); ok && hash != "" {
		fields = append(fields, slog.String(FieldContentHash, hash))
	}
	if rid, ok := ctx.Value(requestIDKey).(string); ok && rid != "" {
		fields = append(fields, slog.String(FieldRequestID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with fields derived from ctx.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
