// Package overlap flags concurrent multi-speaker speech from per-
// speaker activity recency, independent of transcription cadence.
package overlap

import "sort"

// ActivityWindow is how long a speaker stays "active" after their last
// observed speech, in seconds.
const ActivityWindow = 2.0

// Detector tracks when each speaker was last heard. It is owned by a
// single session's pipeline and is not safe for concurrent use.
type Detector struct {
	lastActive map[string]float64
}

// NewDetector returns an empty detector.
func NewDetector() *Detector {
	return &Detector{lastActive: make(map[string]float64)}
}

// Observe records that speakerID was speaking up to endTime.
func (d *Detector) Observe(speakerID string, endTime float64) {
	if endTime > d.lastActive[speakerID] {
		d.lastActive[speakerID] = endTime
	}
}

// ActiveSpeakers returns the speakers heard within ActivityWindow of
// now, sorted for stable output.
func (d *Detector) ActiveSpeakers(now float64) []string {
	var active []string
	for speakerID, last := range d.lastActive {
		if now-last < ActivityWindow {
			active = append(active, speakerID)
		}
	}
	sort.Strings(active)
	return active
}

// Overlapping reports whether at least two speakers are active at now.
// Evaluated on every frame tick, so overlap can surface between
// transcription flushes purely from recency.
func (d *Detector) Overlapping(now float64) bool {
	count := 0
	for _, last := range d.lastActive {
		if now-last < ActivityWindow {
			count++
			if count >= 2 {
				return true
			}
		}
	}
	return false
}
