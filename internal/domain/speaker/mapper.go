// Package speaker assigns stable session-scoped labels to the opaque
// speaker tags reported by the transcription backend.
package speaker

import "fmt"

// Mapper labels backend speaker tags S1, S2, ... in first-seen order.
// Entries are never reassigned or removed for the lifetime of a
// session, so identical tag sequences always produce identical labels.
// Not safe for concurrent use; each session owns one mapper.
type Mapper struct {
	labels map[string]string
	order  []string
	next   int
}

// NewMapper returns an empty mapper.
func NewMapper() *Mapper {
	return &Mapper{
		labels: make(map[string]string),
		next:   1,
	}
}

// Label returns the stable label for tag, assigning the next label on
// first sight.
func (m *Mapper) Label(tag string) string {
	if label, ok := m.labels[tag]; ok {
		return label
	}
	label := fmt.Sprintf("S%d", m.next)
	m.labels[tag] = label
	m.order = append(m.order, label)
	m.next++
	return label
}

// Labels returns every assigned label in assignment order.
func (m *Mapper) Labels() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Count returns how many distinct speakers have been seen.
func (m *Mapper) Count() int {
	return len(m.order)
}
