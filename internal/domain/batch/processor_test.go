package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/archive"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/asr"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/audio"
)

type scriptedProvider struct {
	mu         sync.Mutex
	batches    []asr.Batch
	transcribe func(call int, batch asr.Batch) (asr.Result, error)
	closed     bool
}

func (p *scriptedProvider) Transcribe(_ context.Context, batch asr.Batch) (asr.Result, error) {
	p.mu.Lock()
	call := len(p.batches)
	p.batches = append(p.batches, batch)
	p.mu.Unlock()
	if p.transcribe == nil {
		return asr.Result{Kind: asr.KindText, Text: "hello world"}, nil
	}
	return p.transcribe(call, batch)
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}

func (p *scriptedProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.batches)
}

// recordingStore remembers every status written through it.
type recordingStore struct {
	archive.Store
	mu       sync.Mutex
	statuses []archive.Status
}

func (r *recordingStore) Put(ctx context.Context, record archive.Record) error {
	r.mu.Lock()
	r.statuses = append(r.statuses, record.Status)
	r.mu.Unlock()
	return r.Store.Put(ctx, record)
}

func (r *recordingStore) seen() []archive.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]archive.Status(nil), r.statuses...)
}

// writeUpload drops a silent WAV of the given length into dir.
func writeUpload(t *testing.T, dir string, secs float64) string {
	t.Helper()
	path := filepath.Join(dir, "upload.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	pcm := make([]byte, int(secs*16000)*2)
	require.NoError(t, audio.EncodeWAV(f, pcm, 16000, 1))
	return path
}

func newTestProcessor(store archive.Store, provider asr.Provider) (*Processor, *string) {
	var capturedKey string
	factory := func(apiKey string) (asr.Provider, error) {
		capturedKey = apiKey
		return provider, nil
	}
	p := NewProcessor(Config{}, store, factory, nil, nil)
	return p, &capturedKey
}

func TestProcessor_ProcessCompletes(t *testing.T) {
	store := &recordingStore{Store: archive.NewMemory(archive.Config{})}
	provider := &scriptedProvider{}
	p, _ := newTestProcessor(store, provider)

	job := Job{
		SessionID:  "job-complete",
		UploadPath: writeUpload(t, t.TempDir(), 12.0),
		Options:    Options{GenerateSummary: true},
	}
	record, err := p.Process(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, archive.StatusCompleted, record.Status)
	assert.Equal(t, []archive.Status{archive.StatusProcessing, archive.StatusCompleted}, store.seen())

	// 12s at a 5s chunk yields two in-stream windows plus the tail.
	require.Equal(t, 3, provider.calls())
	require.Len(t, record.Segments, 3)
	assert.InDelta(t, 12.0, record.Duration, 1e-6)
	assert.Equal(t, []string{"S1"}, record.Speakers)
	assert.Equal(t, 1, record.SpeakersDetected)

	require.NotNil(t, record.Summary)
	assert.NotEmpty(t, record.Summary["overall"])
	assert.Contains(t, record.Summary, "stats")

	// Windows tile the recording with no gap.
	first := provider.batches[0]
	second := provider.batches[1]
	tail := provider.batches[2]
	assert.Equal(t, 0.0, first.Start)
	assert.Equal(t, first.End, second.Start)
	assert.Equal(t, second.End, tail.Start)
	assert.InDelta(t, 12.0, tail.End, 1e-6)

	_, err = os.Stat(job.UploadPath)
	assert.True(t, os.IsNotExist(err), "upload should be removed after success")

	stored, err := store.Get(context.Background(), "job-complete")
	require.NoError(t, err)
	assert.Equal(t, archive.StatusCompleted, stored.Status)
	assert.NotNil(t, stored.CompletedAt)
}

func TestProcessor_NoSummaryWhenDisabled(t *testing.T) {
	store := archive.NewMemory(archive.Config{})
	p, _ := newTestProcessor(store, &scriptedProvider{})

	job := Job{
		SessionID:  "job-plain",
		UploadPath: writeUpload(t, t.TempDir(), 6.0),
	}
	record, err := p.Process(context.Background(), job)
	require.NoError(t, err)
	assert.Nil(t, record.Summary)
}

func TestProcessor_DecodeFailureMarksFailed(t *testing.T) {
	store := archive.NewMemory(archive.Config{})
	p, _ := newTestProcessor(store, &scriptedProvider{})

	path := filepath.Join(t.TempDir(), "bogus.wav")
	require.NoError(t, os.WriteFile(path, []byte("not audio at all"), 0o644))

	record, err := p.Process(context.Background(), Job{SessionID: "job-bogus", UploadPath: path})
	require.Error(t, err)
	assert.Equal(t, archive.StatusFailed, record.Status)
	assert.NotEmpty(t, record.Error)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "upload removed on failure too")

	stored, getErr := store.Get(context.Background(), "job-bogus")
	require.NoError(t, getErr)
	assert.Equal(t, archive.StatusFailed, stored.Status)
}

func TestProcessor_ProviderSetupFailureMarksFailed(t *testing.T) {
	store := archive.NewMemory(archive.Config{})
	factory := func(string) (asr.Provider, error) {
		return nil, errors.New("missing API key")
	}
	p := NewProcessor(Config{}, store, factory, nil, nil)

	record, err := p.Process(context.Background(), Job{
		SessionID:  "job-nokey",
		UploadPath: writeUpload(t, t.TempDir(), 2.0),
	})
	require.Error(t, err)
	assert.Equal(t, archive.StatusFailed, record.Status)
	assert.Contains(t, record.Error, "missing API key")
}

func TestProcessor_WindowFailureContributesNothing(t *testing.T) {
	provider := &scriptedProvider{
		transcribe: func(call int, _ asr.Batch) (asr.Result, error) {
			if call == 0 {
				return asr.Result{}, errors.New("backend unavailable")
			}
			return asr.Result{Kind: asr.KindText, Text: "late words"}, nil
		},
	}
	store := archive.NewMemory(archive.Config{})
	p, _ := newTestProcessor(store, provider)

	record, err := p.Process(context.Background(), Job{
		SessionID:  "job-partial",
		UploadPath: writeUpload(t, t.TempDir(), 12.0),
	})
	require.NoError(t, err, "a lost window does not fail the job")
	assert.Equal(t, archive.StatusCompleted, record.Status)
	assert.Equal(t, 3, provider.calls())
	assert.Len(t, record.Segments, 2)
	assert.Equal(t, "late words", record.Segments[0].Text)
}

func TestProcessor_APIKeyOverrideReachesFactory(t *testing.T) {
	store := archive.NewMemory(archive.Config{})
	p, captured := newTestProcessor(store, &scriptedProvider{})

	_, err := p.Process(context.Background(), Job{
		SessionID:  "job-key",
		UploadPath: writeUpload(t, t.TempDir(), 2.0),
		Options:    Options{APIKey: "sk-override"},
	})
	require.NoError(t, err)
	assert.Equal(t, "sk-override", *captured)
}

func TestProcessor_AsyncSubmit(t *testing.T) {
	store := archive.NewMemory(archive.Config{})
	p, _ := newTestProcessor(store, &scriptedProvider{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	defer p.Stop()

	require.NoError(t, p.Submit(Job{
		SessionID:  "job-async",
		UploadPath: writeUpload(t, t.TempDir(), 6.0),
	}))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		record, err := store.Get(context.Background(), "job-async")
		if err == nil && record.Status == archive.StatusCompleted {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("async job never completed")
}

func TestProcessor_SubmitQueueFull(t *testing.T) {
	store := archive.NewMemory(archive.Config{})
	provider := &scriptedProvider{}
	factory := func(string) (asr.Provider, error) { return provider, nil }
	p := NewProcessor(Config{QueueSize: 1}, store, factory, nil, nil)
	// Not started: nothing drains the queue.

	require.NoError(t, p.Submit(Job{SessionID: "q1"}))
	err := p.Submit(Job{SessionID: "q2"})
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestProcessor_SubmitAfterStop(t *testing.T) {
	store := archive.NewMemory(archive.Config{})
	p, _ := newTestProcessor(store, &scriptedProvider{})
	p.Start(context.Background())
	p.Stop()
	assert.Error(t, p.Submit(Job{SessionID: "late"}))
}
