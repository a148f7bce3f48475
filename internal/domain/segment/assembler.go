// Package segment turns raw transcription output into transcript
// segments with absolute session timestamps.
package segment

import (
	"strings"

	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/asr"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/speaker"
)

// DefaultLabel is used for full-text results that carry no speaker
// information.
const DefaultLabel = "S1"

// Segment is one speaker's contiguous run of speech. Times are
// absolute session seconds.
type Segment struct {
	SpeakerID string  `json:"speaker_id"`
	Text      string  `json:"text"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
}

// Assemble converts one flush's result into ordered segments.
// Consecutive words from the same mapped speaker fold into a single
// segment; word offsets are shifted by batchStart into session time.
// Empty and whitespace-only words are dropped before grouping. A
// full-text result becomes a single segment spanning the whole batch.
func Assemble(result asr.Result, batchStart, batchEnd float64, mapper *speaker.Mapper) []Segment {
	if result.Kind == asr.KindText {
		text := strings.TrimSpace(result.Text)
		if text == "" {
			return nil
		}
		return []Segment{{
			SpeakerID: DefaultLabel,
			Text:      text,
			StartTime: batchStart,
			EndTime:   batchEnd,
		}}
	}

	var segments []Segment
	var (
		currentTag   string
		currentWords []string
		runStart     float64
		runEnd       float64
	)

	emit := func() {
		if len(currentWords) == 0 {
			return
		}
		segments = append(segments, Segment{
			SpeakerID: mapper.Label(currentTag),
			Text:      strings.Join(currentWords, " "),
			StartTime: batchStart + runStart,
			EndTime:   batchStart + runEnd,
		})
		currentWords = nil
	}

	for _, word := range result.Words {
		text := strings.TrimSpace(word.Text)
		if text == "" {
			continue
		}

		if len(currentWords) > 0 && word.SpeakerTag != currentTag {
			emit()
		}
		if len(currentWords) == 0 {
			currentTag = word.SpeakerTag
			runStart = word.Start
		}
		currentWords = append(currentWords, text)
		runEnd = word.End
	}
	emit()

	return segments
}
