package radar

import (
	"math"
	"sort"
)

// Slot is the decode state of one radar message id.
type Slot struct {
	Signals Signals
	Valid   int // consecutive-good-reading counter
}

// Registry holds a Slot per message id. Slots appear on first observation
// and disappear only when invalidated.
type Registry struct {
	slots map[uint32]*Slot
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{slots: make(map[uint32]*Slot)}
}

// Observe stores the latest signals for id, creating the slot if needed.
func (r *Registry) Observe(id uint32, sig Signals) *Slot {
	s, ok := r.slots[id]
	if !ok {
		s = &Slot{}
		r.slots[id] = s
	}
	s.Signals = sig
	return s
}

// Get returns the slot for id.
func (r *Registry) Get(id uint32) (*Slot, bool) {
	s, ok := r.slots[id]
	return s, ok
}

// Invalidate drops the slot for id.
func (r *Registry) Invalidate(id uint32) {
	delete(r.slots, id)
}

// Len is the number of live slots.
func (r *Registry) Len() int {
	return len(r.slots)
}

// TrackIDs hands out 64-bit track ids. The sequence starts at 1, wraps
// forward past the maximum and never yields 0.
type TrackIDs struct {
	next uint64
}

// NewTrackIDs returns a counter whose first id is 1.
func NewTrackIDs() *TrackIDs {
	return &TrackIDs{next: 1}
}

// Next returns the next id.
func (c *TrackIDs) Next() uint64 {
	if c.next == 0 {
		c.next = 1
	}
	id := c.next
	if c.next == math.MaxUint64 {
		c.next = 1
	} else {
		c.next++
	}
	return id
}

// TrackSet holds the live tracks keyed by the message id backing them.
type TrackSet struct {
	ids    *TrackIDs
	tracks map[uint32]*Track
}

// NewTrackSet returns an empty set drawing ids from ids.
func NewTrackSet(ids *TrackIDs) *TrackSet {
	return &TrackSet{ids: ids, tracks: make(map[uint32]*Track)}
}

// Promote creates a track for slot with a fresh id and returns it. An
// existing track for the slot is replaced.
func (s *TrackSet) Promote(slot uint32) *Track {
	t := &Track{TrackID: s.ids.Next()}
	s.tracks[slot] = t
	return t
}

// Get returns the track backed by slot.
func (s *TrackSet) Get(slot uint32) (*Track, bool) {
	t, ok := s.tracks[slot]
	return t, ok
}

// Remove drops the track backed by slot, if any.
func (s *TrackSet) Remove(slot uint32) {
	delete(s.tracks, slot)
}

// Len is the number of live tracks.
func (s *TrackSet) Len() int {
	return len(s.tracks)
}

// Tracks returns a copy of the live tracks ordered by track id.
func (s *TrackSet) Tracks() []Track {
	out := make([]Track, 0, len(s.tracks))
	for _, t := range s.tracks {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TrackID < out[j].TrackID })
	return out
}

// ErrorCounter debounces the decoder's freshness signal. A fault surfaces
// only after more than Limit consecutive stale scans.
type ErrorCounter struct {
	Limit int
	count int
}

// Observe records one scan's freshness and reports whether the error should
// surface.
func (e *ErrorCounter) Observe(valid bool) bool {
	if valid {
		e.count = 0
		return false
	}
	e.count++
	return e.count > e.Limit
}

// Count is the current run of stale scans.
func (e *ErrorCounter) Count() int {
	return e.count
}
