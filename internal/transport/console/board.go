// Package console renders live transcription output on a terminal:
// one colored caption line per segment, dim status lines, and a
// banner while several voices overlap. It plugs into a session as its
// sink, the same seat the websocket transport takes on the server.
package console

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/eventbus"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/segment"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/summary"
)

const (
	colorReset  = "\x1b[0m"
	colorDim    = "\x1b[90m"
	colorAlert  = "\x1b[93m"
	colorBanner = "\x1b[41;97m"
)

// speakerPalette cycles per speaker label, same family as the logger's
// tag colors.
var speakerPalette = []string{
	"\x1b[96m",
	"\x1b[95m",
	"\x1b[92m",
	"\x1b[94m",
	"\x1b[93m",
	"\x1b[35m",
}

// Board is a terminal caption sink. Safe for concurrent use, though a
// session delivers its output from a single goroutine.
type Board struct {
	mu     sync.Mutex
	out    io.Writer
	colors map[string]string
	next   int
}

// NewBoard writes captions to out, normally os.Stdout.
func NewBoard(out io.Writer) *Board {
	return &Board{
		out:    out,
		colors: make(map[string]string),
	}
}

// Header prints the session banner once at startup.
func (b *Board) Header(sessionID string, sampleRate int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fmt.Fprintf(b.out, "%sDeafine live transcription: session %s, %dHz mono. Ctrl+C to stop.%s\n",
		colorDim, sessionID, sampleRate, colorReset)
}

// FileHeader prints the banner for a rendered file transcription.
func (b *Board) FileHeader(sessionID string, duration float64, speakers int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fmt.Fprintf(b.out, "%sDeafine transcription: session %s, %.1fs of audio, %d speakers.%s\n",
		colorDim, sessionID, duration, speakers, colorReset)
}

// OnStatus renders progress lines dimmed, out of the caption flow.
func (b *Board) OnStatus(message string, timestamp float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fmt.Fprintf(b.out, "%s[%7.1fs] %s%s\n", colorDim, timestamp, message, colorReset)
}

// OnSegment renders one caption line in the speaker's color. A haptic
// match gets an alert marker after the text.
func (b *Board) OnSegment(seg segment.Segment, haptic bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	marker := ""
	if haptic {
		marker = fmt.Sprintf(" %s[!]%s", colorAlert, colorReset)
	}
	fmt.Fprintf(b.out, "%s[%7.1fs]%s %s%s:%s %s%s\n",
		colorDim, seg.StartTime, colorReset,
		b.speakerColor(seg.SpeakerID), seg.SpeakerID, colorReset,
		seg.Text, marker)
}

// OnHaptic announces a watched-name mention.
func (b *Board) OnHaptic(event eventbus.HapticEventData) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fmt.Fprintf(b.out, "%s*** %s mentioned by %s ***%s\n",
		colorAlert, event.UserName, event.SpeakerID, colorReset)
}

// OnOverlap raises the banner while voices overlap and retires it on
// the clearing transition.
func (b *Board) OnOverlap(event eventbus.OverlapEventData) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !event.Overlapping {
		fmt.Fprintf(b.out, "%s[%7.1fs] overlap cleared%s\n", colorDim, event.Timestamp, colorReset)
		return
	}
	fmt.Fprintf(b.out, "%s overlap: %s %s\n",
		colorBanner, joinSpeakers(event.ActiveSpeakers), colorReset)
}

// Summary renders the end-of-session block: the overall text,
// per-speaker summaries with their share of the conversation, and the
// totals.
func (b *Board) Summary(summaries map[string]string, stats summary.Stats) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rule := strings.Repeat("=", 70)
	fmt.Fprintf(b.out, "\n%s\nSESSION SUMMARY\n%s\n", rule, rule)

	if overall, ok := summaries["overall"]; ok {
		fmt.Fprintf(b.out, "\nOverall Conversation:\n   %s\n", overall)
	}

	speakers := make([]string, 0, len(summaries))
	for speaker := range summaries {
		if speaker != "overall" {
			speakers = append(speakers, speaker)
		}
	}
	sort.Strings(speakers)

	if len(speakers) > 0 {
		fmt.Fprintf(b.out, "\nSpeaker Summaries:\n")
		for _, speaker := range speakers {
			fmt.Fprintf(b.out, "\n   %s%s:%s\n      %s\n",
				b.speakerColor(speaker), speaker, colorReset, summaries[speaker])
			if s, ok := stats.Speakers[speaker]; ok {
				fmt.Fprintf(b.out, "      %s(%d words, %.1fs speaking time)%s\n",
					colorDim, s.Words, s.DurationSeconds, colorReset)
			}
		}
	}

	fmt.Fprintf(b.out, "\nStatistics:\n   Total Speakers: %d\n   Total Segments: %d\n\n%s\n",
		stats.TotalSpeakers, stats.TotalSegments, rule)
}

// speakerColor hands out palette slots in first-seen order and keeps
// them stable for the session. Callers hold b.mu.
func (b *Board) speakerColor(speakerID string) string {
	if color, ok := b.colors[speakerID]; ok {
		return color
	}
	color := speakerPalette[b.next%len(speakerPalette)]
	b.next++
	b.colors[speakerID] = color
	return color
}

func joinSpeakers(speakers []string) string {
	if len(speakers) == 0 {
		return "?"
	}
	return strings.Join(speakers, ", ")
}
