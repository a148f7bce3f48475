// Package summary accumulates transcript segments per speaker and
// produces end-of-session summaries and statistics.
package summary

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/segment"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/platform/logging"
)

const (
	overallPrompt = "Summarize this conversation in 2-3 sentences. " +
		"Focus on key topics discussed and main points. Be concise but informative."
	speakerPromptFmt = "Summarize what %s said in 1-2 sentences. " +
		"Focus on their main points and contributions."

	overallExtractWords = 100
	speakerExtractWords = 50

	// Speakers with fewer words than this get a canned summary instead
	// of a model call.
	minSummarizableWords = 5
)

// SpeakerStats describes one speaker's share of the conversation.
type SpeakerStats struct {
	Segments        int     `json:"segments"`
	Words           int     `json:"words"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// Stats aggregates the whole session.
type Stats struct {
	TotalSpeakers int                     `json:"total_speakers"`
	TotalSegments int                     `json:"total_segments"`
	Speakers      map[string]SpeakerStats `json:"speakers"`
}

// Summarizer collects segments as they are assembled and renders
// summaries on demand. Safe for concurrent use: the pipeline adds
// segments while protocol handlers may request a summary.
type Summarizer struct {
	mu       sync.Mutex
	engine   Engine
	segments map[string][]segment.Segment
	logger   *logging.Logger
}

// NewSummarizer wraps engine (nil for extractive-only operation).
func NewSummarizer(engine Engine, logger *logging.Logger) *Summarizer {
	return &Summarizer{
		engine:   engine,
		segments: make(map[string][]segment.Segment),
		logger:   logger,
	}
}

// Add records one segment under its speaker.
func (s *Summarizer) Add(seg segment.Segment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.segments[seg.SpeakerID] = append(s.segments[seg.SpeakerID], seg)
}

// SpeakerText joins everything one speaker said.
func (s *Summarizer) SpeakerText(speakerID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speakerTextLocked(speakerID)
}

func (s *Summarizer) speakerTextLocked(speakerID string) string {
	var parts []string
	for _, seg := range s.segments[speakerID] {
		if seg.Text != "" {
			parts = append(parts, seg.Text)
		}
	}
	return strings.Join(parts, " ")
}

// ConversationText renders the whole session chronologically, one
// "speaker: text" line per segment.
func (s *Summarizer) ConversationText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversationTextLocked()
}

func (s *Summarizer) conversationTextLocked() string {
	var all []segment.Segment
	for _, segs := range s.segments {
		all = append(all, segs...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].StartTime < all[j].StartTime })

	lines := make([]string, 0, len(all))
	for _, seg := range all {
		lines = append(lines, fmt.Sprintf("%s: %s", seg.SpeakerID, seg.Text))
	}
	return strings.Join(lines, "\n")
}

// Summary produces the overall summary plus one entry per speaker.
// Engine failures degrade to extractive output for that entry.
func (s *Summarizer) Summary(ctx context.Context) map[string]string {
	s.mu.Lock()
	if len(s.segments) == 0 {
		s.mu.Unlock()
		return map[string]string{"overall": "No conversation recorded."}
	}

	fullText := s.conversationTextLocked()
	speakers := make([]string, 0, len(s.segments))
	speakerText := make(map[string]string, len(s.segments))
	for speakerID := range s.segments {
		speakers = append(speakers, speakerID)
		speakerText[speakerID] = s.speakerTextLocked(speakerID)
	}
	s.mu.Unlock()
	sort.Strings(speakers)

	summaries := make(map[string]string, len(speakers)+1)
	summaries["overall"] = s.summarize(ctx, overallPrompt, fullText, overallExtractWords)

	for _, speakerID := range speakers {
		text := speakerText[speakerID]
		if len(strings.Fields(text)) < minSummarizableWords {
			summaries[speakerID] = "Brief contribution"
			continue
		}
		prompt := fmt.Sprintf(speakerPromptFmt, speakerID)
		summaries[speakerID] = s.summarize(ctx, prompt, text, speakerExtractWords)
	}
	return summaries
}

func (s *Summarizer) summarize(ctx context.Context, prompt, text string, extractWords int) string {
	if s.engine != nil {
		out, err := s.engine.Summarize(ctx, prompt, text)
		if err == nil {
			return strings.TrimSpace(out)
		}
		s.logger.WarnTag("SUMMARY", "engine failed, falling back to extractive: %v", err)
	}
	return Extractive(text, extractWords)
}

// Compose merges summaries with the stats block into the flat object
// clients receive: speaker entries plus a "stats" member.
func Compose(summaries map[string]string, stats Stats) map[string]any {
	out := make(map[string]any, len(summaries)+1)
	for key, value := range summaries {
		out[key] = value
	}
	out["stats"] = stats
	return out
}

// Stats computes the session statistics snapshot.
func (s *Summarizer) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Stats{
		TotalSpeakers: len(s.segments),
		Speakers:      make(map[string]SpeakerStats, len(s.segments)),
	}
	for speakerID, segs := range s.segments {
		stats.TotalSegments += len(segs)

		words := 0
		duration := 0.0
		for _, seg := range segs {
			words += len(strings.Fields(seg.Text))
			duration += seg.EndTime - seg.StartTime
		}
		stats.Speakers[speakerID] = SpeakerStats{
			Segments:        len(segs),
			Words:           words,
			DurationSeconds: math.Round(duration*10) / 10,
		}
	}
	return stats
}

// Extractive keeps the first and last halves of the text when it
// exceeds maxWords, joined by an ellipsis marker.
func Extractive(text string, maxWords int) string {
	words := strings.Fields(text)
	if len(words) <= maxWords {
		return text
	}
	head := words[:maxWords/2]
	tail := words[len(words)-maxWords/2:]
	return strings.Join(head, " ") + " [...] " + strings.Join(tail, " ")
}
