package reqlog

import (
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestRecordEviction(t *testing.T) {
	book := NewBook()
	for i := 0; i < MaxEntries+25; i++ {
		book.Record(Entry{Method: "GET", Path: "/n/" + strconv.Itoa(i)})
	}

	if book.Len() != MaxEntries {
		t.Fatalf("want %d entries got %d", MaxEntries, book.Len())
	}

	entries := book.Entries()
	if entries[0].Path != "/n/25" {
		t.Errorf("oldest entries must be evicted first, got %s", entries[0].Path)
	}
	if entries[len(entries)-1].Path != "/n/"+strconv.Itoa(MaxEntries+24) {
		t.Errorf("newest entry missing, got %s", entries[len(entries)-1].Path)
	}
}

func TestRecordDefaultsTimestamp(t *testing.T) {
	book := NewBook()
	book.Record(Entry{Method: "GET", Path: "/x"})
	book.Record(Entry{Method: "GET", Path: "/y", TimestampMs: 42})

	entries := book.Entries()
	if entries[0].TimestampMs == 0 {
		t.Error("zero timestamp must be defaulted")
	}
	if entries[1].TimestampMs != 42 {
		t.Errorf("explicit timestamp must be kept, got %d", entries[1].TimestampMs)
	}
}

func TestCounts(t *testing.T) {
	book := NewBook()

	// only entries naming both a profile and a request count
	book.Record(Entry{Profile: "shop", Request: "catalog"})
	book.Record(Entry{Profile: "shop", Request: "catalog"})
	book.Record(Entry{Profile: "shop", Request: "item"})
	book.Record(Entry{Profile: "shop", Block: "Session"})
	book.Record(Entry{Method: "GET", Path: "/proxied"})

	want := []MatchCount{
		{Profile: "shop", Request: "catalog", Count: 2},
		{Profile: "shop", Request: "item", Count: 1},
	}
	got := book.Counts()
	sortCounts := cmpopts.SortSlices(func(a, b MatchCount) bool {
		return a.Request < b.Request
	})
	if diff := cmp.Diff(want, got, sortCounts); diff != "" {
		t.Errorf("counts mismatch (-want +got):\n%s", diff)
	}
}

func TestEntriesSnapshotIsIsolated(t *testing.T) {
	book := NewBook()
	book.Record(Entry{Path: "/a"})

	snapshot := book.Entries()
	snapshot[0].Path = "/mutated"

	if book.Entries()[0].Path != "/a" {
		t.Error("mutating a snapshot must not affect the book")
	}
}
