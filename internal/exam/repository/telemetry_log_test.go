package repository_test

import (
	"context"
	"testing"
	"time"

	"examhall/internal/exam/model"
	"examhall/internal/exam/repository"
)

func TestTelemetryLogAppendAndRecent(t *testing.T) {
	c := newTestCache(t)
	log := repository.NewTelemetryLog(c, time.Hour)
	ctx := context.Background()

	recorded := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		log.Append(ctx, "AAAAAA", "bob", model.Violation{
			Kind:       model.ViolationFocusLost,
			Detail:     "window blurred",
			RecordedAt: recorded.Add(time.Duration(i) * time.Minute),
		})
	}

	recent, err := log.Recent(ctx, "AAAAAA", "bob", 10)
	if err != nil {
		t.Fatalf("recent failed: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("expected 3 mirrored violations, got %d", len(recent))
	}
	if recent[0].Kind != model.ViolationFocusLost {
		t.Fatalf("unexpected kind %s", recent[0].Kind)
	}
	if !recent[0].RecordedAt.Equal(recorded) {
		t.Fatalf("expected oldest entry first, got %v", recent[0].RecordedAt)
	}
}

func TestTelemetryLogLimit(t *testing.T) {
	c := newTestCache(t)
	log := repository.NewTelemetryLog(c, time.Hour)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		log.Append(ctx, "AAAAAA", "bob", model.Violation{
			Kind:       model.ViolationFullscreenExit,
			RecordedAt: time.Now(),
		})
	}

	recent, err := log.Recent(ctx, "AAAAAA", "bob", 2)
	if err != nil {
		t.Fatalf("recent failed: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected limit of 2, got %d", len(recent))
	}
}

func TestTelemetryLogIsolatedPerParticipant(t *testing.T) {
	c := newTestCache(t)
	log := repository.NewTelemetryLog(c, time.Hour)
	ctx := context.Background()

	log.Append(ctx, "AAAAAA", "bob", model.Violation{Kind: model.ViolationFocusLost, RecordedAt: time.Now()})

	recent, err := log.Recent(ctx, "AAAAAA", "carol", 10)
	if err != nil {
		t.Fatalf("recent failed: %v", err)
	}
	if len(recent) != 0 {
		t.Fatalf("carol must not see bob's telemetry, got %d entries", len(recent))
	}
}
