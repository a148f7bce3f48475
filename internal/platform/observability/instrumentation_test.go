package observability

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestSetupDisabledMakesNoops(t *testing.T) {
	var buf strings.Builder
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	shutdown, err := Setup(context.Background(), Config{Enabled: false}, logger)
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	defer shutdown(context.Background())

	if Enabled() {
		t.Fatal("expected observability to be disabled")
	}

	buf.Reset()
	_, end := StartSpan(context.Background(), "asr", "flush")
	end(nil)
	RecordMetric(context.Background(), MetricFlushFrames, 12, nil)

	if buf.Len() != 0 {
		t.Errorf("disabled observability should not log, got %q", buf.String())
	}
}

func TestStartSpanLogsDuration(t *testing.T) {
	var buf strings.Builder
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	shutdown, err := Setup(context.Background(), Config{Enabled: true}, logger)
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	defer shutdown(context.Background())

	_, end := StartSpan(context.Background(), "asr", "flush")
	end(errors.New("backend unavailable"))

	out := buf.String()
	if !strings.Contains(out, "span start") || !strings.Contains(out, "span end") {
		t.Errorf("expected span lifecycle in output, got %q", out)
	}
	if !strings.Contains(out, "backend unavailable") {
		t.Errorf("expected error recorded in span end, got %q", out)
	}
}

func TestRecordMetricIncludesLabels(t *testing.T) {
	var buf strings.Builder
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	shutdown, err := Setup(context.Background(), Config{Enabled: true}, logger)
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	defer shutdown(context.Background())

	RecordMetric(context.Background(), MetricSegmentsEmitted, 3, map[string]string{"session": "s1"})

	out := buf.String()
	if !strings.Contains(out, MetricSegmentsEmitted) {
		t.Errorf("expected metric name in output, got %q", out)
	}
	if !strings.Contains(out, "session=s1") {
		t.Errorf("expected label in output, got %q", out)
	}
}
