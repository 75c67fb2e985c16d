// Package reqlog keeps a bounded in-memory log of dispatched requests
// plus per-(profile, rule) match counters
package reqlog

import (
	"sync"
	"time"
)

// MaxEntries bounds the log; the oldest entry is evicted on overflow
const MaxEntries = 500

// LoggedResponse is the loggable projection of a synthesized or proxied
// response
type LoggedResponse struct {
	Status  int               `json:"status"`
	Headers map[string]string `json:"headers"`
	Body    string            `json:"body,omitempty"`
}

// Entry records one dispatched request. Identifier fields are set
// according to how the dispatch resolved: profile+block for a block hit,
// profile+subProfile+request for a rule hit, none for a proxy
// fallthrough
type Entry struct {
	TimestampMs int64             `json:"timestampMs"`
	Method      string            `json:"method"`
	Path        string            `json:"path"`
	Query       map[string]string `json:"query"`
	Matched     bool              `json:"matched"`
	Profile     string            `json:"profile,omitempty"`
	SubProfile  string            `json:"subProfile,omitempty"`
	Request     string            `json:"request,omitempty"`
	Block       string            `json:"block,omitempty"`
	Response    *LoggedResponse   `json:"response,omitempty"`
}

// MatchCount reports how often a (profile, rule) pair has matched
type MatchCount struct {
	Profile string `json:"profile"`
	Request string `json:"request"`
	Count   uint64 `json:"count"`
}

type matchKey struct {
	profile string
	request string
}

// Book is the log ring and counter map behind a single mutex
type Book struct {
	mu      sync.Mutex
	entries []Entry
	counts  map[matchKey]uint64
}

// NewBook allocates an empty Book
func NewBook() *Book {
	return &Book{counts: map[matchKey]uint64{}}
}

// Record appends an entry, evicting the oldest past MaxEntries. The
// (profile, request) counter increments only when both identifiers are
// known, i.e. the dispatch resolved to a rule. Timestamps default to
// now, taken before lock acquisition
func (b *Book) Record(e Entry) {
	if e.TimestampMs == 0 {
		e.TimestampMs = time.Now().UnixMilli()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries = append(b.entries, e)
	if len(b.entries) > MaxEntries {
		b.entries = append(b.entries[:0:0], b.entries[len(b.entries)-MaxEntries:]...)
	}

	if e.Profile != "" && e.Request != "" {
		b.counts[matchKey{profile: e.Profile, request: e.Request}]++
	}
}

// Entries snapshots the ring, oldest first
func (b *Book) Entries() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Entry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Counts snapshots the counter map
func (b *Book) Counts() []MatchCount {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]MatchCount, 0, len(b.counts))
	for key, count := range b.counts {
		out = append(out, MatchCount{Profile: key.profile, Request: key.request, Count: count})
	}
	return out
}

// Len reports the current number of entries
func (b *Book) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}
