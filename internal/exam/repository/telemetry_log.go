package repository

import (
	"context"
	"encoding/json"
	"time"

	"examhall/internal/common/cache"
	"examhall/internal/exam/model"
	"examhall/pkg/utils/logger"
	appErr "examhall/pkg/errors"

	"go.uber.org/zap"
)

const telemetryKeyPrefix = "exam:telemetry:"

// TelemetryLog mirrors per-participant integrity violations into an
// append-only redis list so hosts can review them after the in-memory exam
// is gone. Advisory data: writes are best-effort and never fail the caller.
type TelemetryLog struct {
	cache cache.Cache
	ttl   time.Duration
}

// NewTelemetryLog creates a telemetry mirror. cache may be nil, which makes
// every operation a no-op.
func NewTelemetryLog(c cache.Cache, ttl time.Duration) *TelemetryLog {
	return &TelemetryLog{cache: c, ttl: ttl}
}

// Append records one violation for the participant.
func (t *TelemetryLog) Append(ctx context.Context, code, name string, v model.Violation) {
	if t == nil || t.cache == nil {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		logger.Error(ctx, "marshal violation failed", zap.Error(err))
		return
	}
	key := telemetryKey(code, name)
	if err := t.cache.RPush(ctx, key, payload); err != nil {
		logger.Warn(ctx, "append violation telemetry failed",
			zap.String("exam_code", code), zap.String("participant", name), zap.Error(err))
		return
	}
	if t.ttl > 0 {
		_ = t.cache.Expire(ctx, key, t.ttl)
	}
}

// Recent returns up to limit most recent violations for the participant.
func (t *TelemetryLog) Recent(ctx context.Context, code, name string, limit int64) ([]model.Violation, error) {
	if t == nil || t.cache == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	raw, err := t.cache.LRange(ctx, telemetryKey(code, name), -limit, -1)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CacheError)
	}
	violations := make([]model.Violation, 0, len(raw))
	for _, item := range raw {
		var v model.Violation
		if err := json.Unmarshal([]byte(item), &v); err != nil {
			continue
		}
		violations = append(violations, v)
	}
	return violations, nil
}

func telemetryKey(code, name string) string {
	return telemetryKeyPrefix + code + ":" + name
}
