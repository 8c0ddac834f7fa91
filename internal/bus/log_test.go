package bus

import (
	"encoding/json"
	"testing"

	"github.com/frontmesh/crossbus/internal/models"
)

func TestQueryReturnsOnlyOwnerRecords(t *testing.T) {
	l := NewLog()

	l.Append("shell", "one", "default", json.RawMessage(`"hi"`))
	l.Append("shell", "two", "default", json.RawMessage(`"other"`))
	l.Append("two", "one", "greeting", json.RawMessage(`"hello"`))

	got := l.Query("one", "")
	if len(got) != 2 {
		t.Fatalf("expected 2 records for one, got %d", len(got))
	}
	for _, rec := range got {
		if rec.Target != "one" {
			t.Fatalf("record %s addressed to %q leaked into one's query", rec.ID, rec.Target)
		}
	}

	if got := l.Query("three", ""); len(got) != 0 {
		t.Fatalf("expected empty result for unknown owner, got %d", len(got))
	}
}

func TestQueryPreservesPublishOrder(t *testing.T) {
	l := NewLog()

	payloads := []string{`"a"`, `"b"`, `"c"`, `"d"`}
	for _, p := range payloads {
		l.Append("shell", "one", "default", json.RawMessage(p))
	}
	// Interleave records for another owner
	l.Append("shell", "two", "default", json.RawMessage(`"x"`))

	got := l.Query("one", "")
	if len(got) != len(payloads) {
		t.Fatalf("expected %d records, got %d", len(payloads), len(got))
	}
	for i, rec := range got {
		if string(rec.Payload) != payloads[i] {
			t.Fatalf("position %d: expected %s, got %s", i, payloads[i], rec.Payload)
		}
		if i > 0 && rec.Seq <= got[i-1].Seq {
			t.Fatalf("insertion order violated: seq %d after %d", rec.Seq, got[i-1].Seq)
		}
	}
}

func TestQueryTypeFilter(t *testing.T) {
	l := NewLog()

	l.Append("shell", "one", "default", json.RawMessage(`"a"`))
	l.Append("shell", "one", "greeting", json.RawMessage(`"b"`))
	l.Append("two", "one", "greeting", json.RawMessage(`"c"`))

	got := l.Query("one", "greeting")
	if len(got) != 2 {
		t.Fatalf("expected 2 greeting records, got %d", len(got))
	}
	for _, rec := range got {
		if rec.Type != "greeting" {
			t.Fatalf("type filter leaked %q", rec.Type)
		}
	}
}

func TestLatestReturnsMostRecent(t *testing.T) {
	l := NewLog()

	if _, found := l.Latest("one", "default"); found {
		t.Fatal("expected no latest on empty log")
	}

	l.Append("shell", "one", "default", json.RawMessage(`"a"`))
	l.Append("shell", "one", "default", json.RawMessage(`"b"`))

	rec, found := l.Latest("one", "default")
	if !found {
		t.Fatal("expected a latest record")
	}
	if string(rec.Payload) != `"b"` {
		t.Fatalf(`expected payload "b", got %s`, rec.Payload)
	}
}

func TestLatestTiesBreakByInsertion(t *testing.T) {
	l := NewLog()

	// Appends land within the same millisecond often enough that ties
	// must resolve toward the later insertion sequence.
	first, _ := l.Append("shell", "one", "default", json.RawMessage(`"a"`))
	second, _ := l.Append("two", "one", "default", json.RawMessage(`"b"`))

	rec, found := l.Latest("one", "default")
	if !found {
		t.Fatal("expected a latest record")
	}
	if rec.Timestamp == first.Timestamp && rec.ID != second.ID {
		t.Fatalf("tie broke toward %s, want %s", rec.ID, second.ID)
	}
	if rec.Seq < first.Seq {
		t.Fatal("latest resolved to an earlier insertion")
	}
}

func TestLatestIgnoresOtherTypesAndOwners(t *testing.T) {
	l := NewLog()

	l.Append("shell", "one", "greeting", json.RawMessage(`"x"`))
	l.Append("shell", "two", "default", json.RawMessage(`"y"`))

	if _, found := l.Latest("one", "default"); found {
		t.Fatal("latest matched across type boundary")
	}
	if _, found := l.Latest("two", "greeting"); found {
		t.Fatal("latest matched across owner boundary")
	}
}

func TestSlotLatest(t *testing.T) {
	l := NewLog()

	key := models.SlotKey{Source: "shell", Target: "one", Type: "default"}
	if _, found := l.SlotLatest(key); found {
		t.Fatal("expected empty slot")
	}

	l.Append("shell", "one", "default", json.RawMessage(`"a"`))
	rec, _ := l.Append("shell", "one", "default", json.RawMessage(`"b"`))

	got, found := l.SlotLatest(key)
	if !found {
		t.Fatal("expected slot to be filled")
	}
	if got.ID != rec.ID {
		t.Fatalf("slot holds %s, want %s", got.ID, rec.ID)
	}
}

func TestAppendReturnsPrevious(t *testing.T) {
	l := NewLog()

	_, prev := l.Append("shell", "one", "default", json.RawMessage(`"a"`))
	if prev != nil {
		t.Fatal("first append should have no previous record")
	}

	_, prev = l.Append("shell", "one", "default", json.RawMessage(`"b"`))
	if prev == nil {
		t.Fatal("second append should carry the previous record")
	}
	if string(prev.Payload) != `"a"` {
		t.Fatalf(`previous payload %s, want "a"`, prev.Payload)
	}

	// A different slot does not inherit a previous record
	_, prev = l.Append("other", "one", "default", json.RawMessage(`"c"`))
	if prev != nil {
		t.Fatal("different source should start a fresh slot")
	}
}

func TestRecentNewestFirst(t *testing.T) {
	l := NewLog()

	l.Append("shell", "one", "default", json.RawMessage(`"a"`))
	l.Append("shell", "one", "default", json.RawMessage(`"b"`))
	l.Append("shell", "one", "default", json.RawMessage(`"c"`))

	got := l.Recent(2)
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if string(got[0].Payload) != `"c"` || string(got[1].Payload) != `"b"` {
		t.Fatalf("recent order wrong: %s, %s", got[0].Payload, got[1].Payload)
	}

	if got := l.Recent(0); len(got) != 3 {
		t.Fatalf("limit 0 should return all, got %d", len(got))
	}
}
