package asr

import (
	"context"
	"testing"

	"github.com/AnjaneyaBhardwaj/Deafine/internal/platform/logging"
)

type fakeProvider struct{ name string }

func (f *fakeProvider) Transcribe(ctx context.Context, batch Batch) (Result, error) {
	return Result{Kind: KindText, Text: "stub"}, nil
}
func (f *fakeProvider) Name() string { return f.name }
func (f *fakeProvider) Close() error { return nil }

func TestRegisterAndCreate(t *testing.T) {
	Register("fake", func(config Config, logger *logging.Logger) (Provider, error) {
		return &fakeProvider{name: "fake"}, nil
	})

	p, err := Create("fake", Config{}, nil)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if p.Name() != "fake" {
		t.Errorf("provider name = %s, want fake", p.Name())
	}
}

func TestCreate_UnknownProvider(t *testing.T) {
	if _, err := Create("does-not-exist", Config{}, nil); err == nil {
		t.Fatal("expected error for unregistered provider")
	}
}

func TestBatch_Duration(t *testing.T) {
	batch := Batch{PCM: make([]byte, 32000), SampleRate: 16000, Channels: 1}
	if got := batch.Duration(); got != 1.0 {
		t.Errorf("Duration() = %v, want 1.0", got)
	}

	var empty Batch
	if empty.Duration() != 0 {
		t.Errorf("zero batch should have zero duration")
	}
}
