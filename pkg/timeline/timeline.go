// Package timeline maintains a client-side view of a single conversation:
// a history snapshot merged with live events into one sequence ordered by
// creation time. Applying the same event twice, or events out of order,
// converges to the same state.
package timeline

import (
	"sort"
	"time"
)

// Entry is one message as the client sees it.
type Entry struct {
	ID        string    `json:"id"`
	SenderID  string    `json:"sender_id"`
	Kind      string    `json:"kind"`
	Content   string    `json:"content"`
	Thumbnail string    `json:"thumbnail,omitempty"`
	Delivered bool      `json:"delivered"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// Timeline is an ordered conversation view. Not safe for concurrent use;
// callers serialize event application themselves.
type Timeline struct {
	entries []Entry
	index   map[string]int
}

func New() *Timeline {
	return &Timeline{index: make(map[string]int)}
}

// Load replaces the timeline with a history snapshot. The snapshot may
// arrive in any order; entries with duplicate ids keep the last occurrence.
func (t *Timeline) Load(snapshot []Entry) {
	t.entries = t.entries[:0]
	t.index = make(map[string]int, len(snapshot))
	for _, e := range snapshot {
		if i, ok := t.index[e.ID]; ok {
			t.entries[i] = e
			continue
		}
		t.index[e.ID] = len(t.entries)
		t.entries = append(t.entries, e)
	}
	sort.SliceStable(t.entries, func(i, j int) bool {
		return before(t.entries[i], t.entries[j])
	})
	t.reindex()
}

// Apply upserts a message event. A known id is replaced in place, keeping
// whichever delivered/read flags are further along; an unknown id is
// inserted at its ordered position.
func (t *Timeline) Apply(e Entry) {
	if i, ok := t.index[e.ID]; ok {
		e.Delivered = e.Delivered || t.entries[i].Delivered
		e.Read = e.Read || t.entries[i].Read
		if e.Read {
			e.Delivered = true
		}
		t.entries[i] = e
		return
	}

	pos := sort.Search(len(t.entries), func(i int) bool {
		return !before(t.entries[i], e)
	})
	t.entries = append(t.entries, Entry{})
	copy(t.entries[pos+1:], t.entries[pos:])
	t.entries[pos] = e
	t.reindex()
}

// ApplyDelivered patches the delivered flag for id. An unknown id is
// dropped: the delivered signal for a message the client never saw carries
// no information it can use.
func (t *Timeline) ApplyDelivered(id string) {
	if i, ok := t.index[id]; ok {
		t.entries[i].Delivered = true
	}
}

// ApplyRead patches the read flag on every present id. Read implies
// delivered, so both flags are set.
func (t *Timeline) ApplyRead(ids []string) {
	for _, id := range ids {
		if i, ok := t.index[id]; ok {
			t.entries[i].Read = true
			t.entries[i].Delivered = true
		}
	}
}

// Entries returns the ordered view. The slice is shared; callers must not
// mutate it.
func (t *Timeline) Entries() []Entry {
	return t.entries
}

// Len reports the number of entries.
func (t *Timeline) Len() int {
	return len(t.entries)
}

// Get returns the entry for id, if present.
func (t *Timeline) Get(id string) (Entry, bool) {
	if i, ok := t.index[id]; ok {
		return t.entries[i], true
	}
	return Entry{}, false
}

// UnreadFrom counts entries from senderID not yet marked read.
func (t *Timeline) UnreadFrom(senderID string) int {
	n := 0
	for _, e := range t.entries {
		if e.SenderID == senderID && !e.Read {
			n++
		}
	}
	return n
}

func (t *Timeline) reindex() {
	for i, e := range t.entries {
		t.index[e.ID] = i
	}
}

// before orders by creation time, breaking ties by id so the order is
// total and stable across clients.
func before(a, b Entry) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}
