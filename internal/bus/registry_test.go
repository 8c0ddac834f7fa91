package bus

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/frontmesh/crossbus/internal/models"
)

func testRegistry(t *testing.T) (*Registry, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	return New(logger), &buf
}

func TestPublishAndQueryExample(t *testing.T) {
	reg, _ := testRegistry(t)
	defer reg.Close()

	reg.Attach("shell")
	rec, ok := reg.Publish("shell", "one", "default", json.RawMessage(`"hi"`))
	if !ok || rec == nil {
		t.Fatal("publish should succeed on an open registry")
	}

	one := reg.Query("one", "")
	if len(one) != 1 {
		t.Fatalf("query(one) returned %d records, want 1", len(one))
	}
	if one[0].ID != rec.ID || string(one[0].Payload) != `"hi"` {
		t.Fatalf("query(one) returned wrong record: %+v", one[0])
	}

	if two := reg.Query("two", ""); len(two) != 0 {
		t.Fatalf("query(two) returned %d records, want 0", len(two))
	}
}

func TestLatestOverwrite(t *testing.T) {
	reg, _ := testRegistry(t)
	defer reg.Close()

	reg.Publish("shell", "one", "default", json.RawMessage(`"a"`))
	reg.Publish("shell", "one", "default", json.RawMessage(`"b"`))

	rec, found := reg.Latest("one", "default")
	if !found {
		t.Fatal("expected a latest record")
	}
	if string(rec.Payload) != `"b"` {
		t.Fatalf(`latest payload %s, want "b"`, rec.Payload)
	}
}

func TestPublishOnClosedRegistryWarnsAndNoops(t *testing.T) {
	reg, buf := testRegistry(t)
	h := reg.Attach("shell")
	reg.Close()

	rec, ok := reg.Publish("shell", "one", "default", json.RawMessage(`"hi"`))
	if ok || rec != nil {
		t.Fatal("publish on closed registry must no-op")
	}
	if !strings.Contains(buf.String(), "publish on closed registry dropped") {
		t.Fatalf("expected a warning signal, log was: %s", buf.String())
	}

	// Handle path must be equally safe
	if got := h.Publish("one", "default", json.RawMessage(`"hi"`)); got != nil {
		t.Fatal("handle publish on closed registry must return nil")
	}
}

func TestZeroHandleDoesNotPanic(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	defer func() { log.Logger = prev }()

	var h *Handle

	if rec := h.Publish("one", "default", nil); rec != nil {
		t.Fatal("nil handle publish must return nil")
	}
	if !strings.Contains(buf.String(), "publish without registry dropped") {
		t.Fatalf("expected a warning signal, log was: %s", buf.String())
	}
	if got := h.Query(""); got != nil {
		t.Fatal("nil handle query must return nil")
	}
	if _, found := h.Latest("default"); found {
		t.Fatal("nil handle latest must report not found")
	}
	h.Subscribe(func(Notification) {})() // cancel must be callable
	if h.Name() != "" {
		t.Fatal("nil handle has no name")
	}

	var zero Handle
	if rec := zero.Publish("one", "default", nil); rec != nil {
		t.Fatal("zero handle publish must return nil")
	}
}

func TestAttachIsIdempotent(t *testing.T) {
	reg, _ := testRegistry(t)
	defer reg.Close()

	h1 := reg.Attach("one")
	c1 := reg.Component("one")
	h2 := reg.Attach("one")
	c2 := reg.Component("one")

	if h1 == nil || h2 == nil {
		t.Fatal("attach returned nil handle")
	}
	if c1.ID != c2.ID {
		t.Fatal("re-attach must keep the existing registration")
	}
	if len(reg.Components()) != 1 {
		t.Fatalf("expected 1 component, got %d", len(reg.Components()))
	}
}

func TestDetachKeepsHistory(t *testing.T) {
	reg, _ := testRegistry(t)
	defer reg.Close()

	reg.Attach("one")
	reg.Publish("shell", "one", "default", json.RawMessage(`"hi"`))
	reg.Detach("one")

	if reg.Attached("one") {
		t.Fatal("component still attached after detach")
	}
	if got := reg.Query("one", ""); len(got) != 1 {
		t.Fatalf("history lost on detach: %d records", len(got))
	}
}

func TestComponentCounters(t *testing.T) {
	reg, _ := testRegistry(t)
	defer reg.Close()

	shell := reg.Attach("shell")
	reg.Attach("one")

	shell.Publish("one", "default", json.RawMessage(`"a"`))
	shell.Publish("one", "default", json.RawMessage(`"b"`))
	shell.Publish("nobody", "default", json.RawMessage(`"c"`))

	if c := reg.Component("shell"); c.Published != 3 {
		t.Fatalf("shell published counter %d, want 3", c.Published)
	}
	if c := reg.Component("one"); c.Received != 2 {
		t.Fatalf("one received counter %d, want 2", c.Received)
	}
}

func TestHandleScopesQueriesToSelf(t *testing.T) {
	reg, _ := testRegistry(t)
	defer reg.Close()

	shell := reg.Attach("shell")
	one := reg.Attach("one")

	shell.Publish("one", "default", json.RawMessage(`"for one"`))
	shell.Publish("two", "default", json.RawMessage(`"for two"`))

	got := one.Query("")
	if len(got) != 1 {
		t.Fatalf("handle query returned %d records, want 1", len(got))
	}
	if got[0].Target != "one" {
		t.Fatalf("handle query leaked record for %q", got[0].Target)
	}

	rec, found := one.Latest("default")
	if !found || string(rec.Payload) != `"for one"` {
		t.Fatalf("handle latest wrong: %+v found=%v", rec, found)
	}
}

func TestSubscribeViaHandle(t *testing.T) {
	reg, _ := testRegistry(t)
	defer reg.Close()

	shell := reg.Attach("shell")
	one := reg.Attach("one")

	var got []Notification
	cancel := one.Subscribe(func(n Notification) {
		got = append(got, n)
	})
	defer cancel()

	shell.Publish("one", "default", json.RawMessage(`"a"`))
	shell.Publish("two", "default", json.RawMessage(`"b"`))

	if len(got) != 1 {
		t.Fatalf("subscriber observed %d notifications, want 1", len(got))
	}
	if got[0].Record.Target != "one" {
		t.Fatalf("notification for %q delivered to one", got[0].Record.Target)
	}
}

func TestNotificationCarriesPrevious(t *testing.T) {
	reg, _ := testRegistry(t)
	defer reg.Close()

	var notes []Notification
	defer reg.Subscribe("one", func(n Notification) {
		notes = append(notes, n)
	})()

	reg.Publish("shell", "one", "default", json.RawMessage(`"a"`))
	reg.Publish("shell", "one", "default", json.RawMessage(`"b"`))

	if len(notes) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(notes))
	}
	if notes[0].Previous != nil {
		t.Fatal("first notification must have no previous record")
	}
	if notes[1].Previous == nil || string(notes[1].Previous.Payload) != `"a"` {
		t.Fatalf("second notification previous wrong: %+v", notes[1].Previous)
	}
}

func TestMirrorSeesEveryRecord(t *testing.T) {
	var mirrored []string
	var buf bytes.Buffer
	reg := New(zerolog.New(&buf), WithMirror(func(rec *models.Record) {
		mirrored = append(mirrored, rec.ID)
	}))
	defer reg.Close()

	a, _ := reg.Publish("shell", "one", "default", json.RawMessage(`"a"`))
	b, _ := reg.Publish("shell", "two", "default", json.RawMessage(`"b"`))

	if len(mirrored) != 2 || mirrored[0] != a.ID || mirrored[1] != b.ID {
		t.Fatalf("mirror saw %v, want [%s %s]", mirrored, a.ID, b.ID)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	reg, _ := testRegistry(t)
	reg.Attach("one")

	reg.Close()
	reg.Close()

	if len(reg.Components()) != 0 {
		t.Fatal("components survived close")
	}
	if reg.Attach("one") != nil {
		t.Fatal("attach after close must return nil")
	}
}
