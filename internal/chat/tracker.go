package chat

import (
	"sort"
	"sync"
)

// Tracker indexes running turns by stream ID so embedders can observe
// and cancel them.
type Tracker struct {
	mu    sync.Mutex
	turns map[string]*ChatTurn
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{turns: map[string]*ChatTurn{}}
}

func (tr *Tracker) add(t *ChatTurn) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.turns[t.StreamID()] = t
}

func (tr *Tracker) remove(streamID string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	delete(tr.turns, streamID)
}

// Running returns the stream IDs of in-flight turns, sorted.
func (tr *Tracker) Running() []string {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	ids := make([]string, 0, len(tr.turns))
	for id := range tr.turns {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Cancel aborts a running turn by stream ID. Returns false if unknown.
func (tr *Tracker) Cancel(streamID string) bool {
	tr.mu.Lock()
	t, ok := tr.turns[streamID]
	tr.mu.Unlock()
	if !ok {
		return false
	}
	t.Cancel()
	return true
}
