package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/asr"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/speaker"
)

func TestAssemble_FoldsConsecutiveSameSpeaker(t *testing.T) {
	result := asr.Result{
		Kind: asr.KindWords,
		Words: []asr.Word{
			{SpeakerTag: "A", Text: "hi", Start: 0, End: 1},
			{SpeakerTag: "A", Text: "there", Start: 1, End: 2},
			{SpeakerTag: "B", Text: "yo", Start: 2, End: 3},
		},
	}

	segments := Assemble(result, 10.0, 13.0, speaker.NewMapper())
	require.Len(t, segments, 2)

	assert.Equal(t, "S1", segments[0].SpeakerID)
	assert.Equal(t, "hi there", segments[0].Text)
	assert.Equal(t, 10.0, segments[0].StartTime)
	assert.Equal(t, 12.0, segments[0].EndTime)

	assert.Equal(t, "S2", segments[1].SpeakerID)
	assert.Equal(t, "yo", segments[1].Text)
	assert.Equal(t, 12.0, segments[1].StartTime)
	assert.Equal(t, 13.0, segments[1].EndTime)
}

func TestAssemble_SpeakerReturns(t *testing.T) {
	result := asr.Result{
		Kind: asr.KindWords,
		Words: []asr.Word{
			{SpeakerTag: "A", Text: "one", Start: 0, End: 1},
			{SpeakerTag: "B", Text: "two", Start: 1, End: 2},
			{SpeakerTag: "A", Text: "three", Start: 2, End: 3},
		},
	}

	segments := Assemble(result, 0, 3.0, speaker.NewMapper())
	require.Len(t, segments, 3)
	assert.Equal(t, "S1", segments[0].SpeakerID)
	assert.Equal(t, "S2", segments[1].SpeakerID)
	// Returning speaker keeps the original label.
	assert.Equal(t, "S1", segments[2].SpeakerID)
}

func TestAssemble_DropsEmptyWords(t *testing.T) {
	result := asr.Result{
		Kind: asr.KindWords,
		Words: []asr.Word{
			{SpeakerTag: "A", Text: "hello", Start: 0, End: 0.5},
			{SpeakerTag: "A", Text: " ", Start: 0.5, End: 0.6},
			{SpeakerTag: "A", Text: "", Start: 0.6, End: 0.7},
			{SpeakerTag: "A", Text: "world", Start: 0.7, End: 1.2},
		},
	}

	segments := Assemble(result, 0, 1.2, speaker.NewMapper())
	require.Len(t, segments, 1)
	assert.Equal(t, "hello world", segments[0].Text)
	assert.Equal(t, 1.2, segments[0].EndTime)
}

func TestAssemble_AllWordsEmpty(t *testing.T) {
	result := asr.Result{
		Kind: asr.KindWords,
		Words: []asr.Word{
			{SpeakerTag: "A", Text: "  ", Start: 0, End: 1},
		},
	}
	assert.Empty(t, Assemble(result, 0, 1, speaker.NewMapper()))
}

func TestAssemble_FullTextFallback(t *testing.T) {
	result := asr.Result{Kind: asr.KindText, Text: "full transcript here"}

	segments := Assemble(result, 5.0, 10.0, speaker.NewMapper())
	require.Len(t, segments, 1)
	assert.Equal(t, DefaultLabel, segments[0].SpeakerID)
	assert.Equal(t, "full transcript here", segments[0].Text)
	assert.Equal(t, 5.0, segments[0].StartTime)
	assert.Equal(t, 10.0, segments[0].EndTime)
}

func TestAssemble_EmptyFullText(t *testing.T) {
	result := asr.Result{Kind: asr.KindText, Text: "   "}
	assert.Empty(t, Assemble(result, 0, 5, speaker.NewMapper()))
}

func TestAssemble_MapperPersistsAcrossCalls(t *testing.T) {
	mapper := speaker.NewMapper()

	first := asr.Result{Kind: asr.KindWords, Words: []asr.Word{
		{SpeakerTag: "spk_1", Text: "a", Start: 0, End: 1},
	}}
	second := asr.Result{Kind: asr.KindWords, Words: []asr.Word{
		{SpeakerTag: "spk_0", Text: "b", Start: 0, End: 1},
		{SpeakerTag: "spk_1", Text: "c", Start: 1, End: 2},
	}}

	s1 := Assemble(first, 0, 1, mapper)
	s2 := Assemble(second, 5, 7, mapper)

	assert.Equal(t, "S1", s1[0].SpeakerID)
	assert.Equal(t, "S2", s2[0].SpeakerID)
	// spk_1 keeps its label from the earlier flush.
	assert.Equal(t, "S1", s2[1].SpeakerID)
}
