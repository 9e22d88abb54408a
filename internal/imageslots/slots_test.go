package imageslots

import (
	"errors"
	"fmt"
	"testing"
)

// recordingRegistry logs every Create and Revoke in call order.
type recordingRegistry struct {
	next   int
	events []string
	live   map[string]bool
}

func newRecordingRegistry() *recordingRegistry {
	return &recordingRegistry{live: make(map[string]bool)}
}

func (r *recordingRegistry) Create(*File) string {
	r.next++
	url := fmt.Sprintf("blob:%d", r.next)
	r.live[url] = true
	r.events = append(r.events, "create "+url)
	return url
}

func (r *recordingRegistry) Revoke(url string) {
	r.events = append(r.events, "revoke "+url)
	delete(r.live, url)
}

func (r *recordingRegistry) revokes(url string) int {
	n := 0
	for _, e := range r.events {
		if e == "revoke "+url {
			n++
		}
	}
	return n
}

func mustNew(t *testing.T, n int, opts Options) *Slots {
	t.Helper()
	s, err := New(n, opts)
	if err != nil {
		t.Fatalf("New(%d): %v", n, err)
	}
	return s
}

func file(name string) *File {
	return &File{Name: name, ContentType: "image/png", Data: []byte(name)}
}

func primaryOf(t *testing.T, s *Slots) int {
	t.Helper()
	p, ok := s.Primary()
	if !ok {
		return -1
	}
	return p
}

func TestNewMaxSlots(t *testing.T) {
	if _, err := New(0, Options{Strict: true}); !errors.Is(err, ErrInvalidMaxSlots) {
		t.Fatalf("expected ErrInvalidMaxSlots, got %v", err)
	}
	s := mustNew(t, -3, Options{})
	if s.Len() != 1 {
		t.Fatalf("expected clamp to 1, got %d", s.Len())
	}
	s = mustNew(t, 5, Options{})
	if s.Len() != 5 {
		t.Fatalf("expected 5 slots, got %d", s.Len())
	}
	if _, ok := s.Primary(); ok {
		t.Fatal("new slots should have no primary")
	}
}

func TestInitSortsTruncatesAndPicksPrimary(t *testing.T) {
	s := mustNew(t, 2, Options{})
	ok := s.Init([]InitialImage{
		{ID: "c", ImageURL: "https://img/c", OrderIndex: 2},
		{ID: "a", ImageURL: "https://img/a", OrderIndex: 0},
		{ID: "b", ImageURL: "https://img/b", OrderIndex: 1, Primary: true},
	})
	if !ok {
		t.Fatal("expected init to populate")
	}

	slots := s.Slots()
	if slots[0].ID != "a" || slots[1].ID != "b" {
		t.Fatalf("unexpected order: %+v", slots)
	}
	if slots[0].PreviewURL != "https://img/a" {
		t.Fatalf("expected server url, got %q", slots[0].PreviewURL)
	}
	if p := primaryOf(t, s); p != 1 {
		t.Fatalf("expected primary 1, got %d", p)
	}
}

func TestInitDefaultsPrimaryToFirst(t *testing.T) {
	s := mustNew(t, 5, Options{})
	s.Init([]InitialImage{{ID: "a", ImageURL: "u", OrderIndex: 3}})
	if p := primaryOf(t, s); p != 0 {
		t.Fatalf("expected primary 0, got %d", p)
	}
}

func TestInitRunsOnce(t *testing.T) {
	s := mustNew(t, 3, Options{})

	if s.Init(nil) {
		t.Fatal("empty init must not populate")
	}
	if s.State() != Uninitialized {
		t.Fatal("empty init must not change state")
	}

	s.Init([]InitialImage{{ID: "first", ImageURL: "u1"}})
	if s.State() != Initialized {
		t.Fatal("expected Initialized")
	}

	if s.Init([]InitialImage{{ID: "other", ImageURL: "u2"}, {ID: "more", ImageURL: "u3", OrderIndex: 1}}) {
		t.Fatal("second init must be ignored")
	}
	slots := s.Slots()
	if slots[0].ID != "first" || slots[1].filled() {
		t.Fatalf("slots re-populated: %+v", slots)
	}
}

func TestClearSlotReassignsPrimary(t *testing.T) {
	s := mustNew(t, 5, Options{})
	for i := 0; i < 3; i++ {
		if err := s.SetSlotFile(i, file(fmt.Sprint(i))); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.SetPrimaryBySlot(1); err != nil {
		t.Fatal(err)
	}

	if err := s.ClearSlot(1); err != nil {
		t.Fatal(err)
	}
	if p := primaryOf(t, s); p != 0 {
		t.Fatalf("expected primary 0, got %d", p)
	}

	s.ClearSlot(2)
	s.ClearSlot(0)
	if p := primaryOf(t, s); p != -1 {
		t.Fatalf("expected no primary, got %d", p)
	}
}

func TestClearSlotBeforePrimaryShifts(t *testing.T) {
	s := mustNew(t, 5, Options{})
	for i := 0; i < 4; i++ {
		s.SetSlotFile(i, file(fmt.Sprint(i)))
	}
	s.SetPrimaryBySlot(3)

	s.ClearSlot(1)
	if p := primaryOf(t, s); p != 2 {
		t.Fatalf("expected primary 2, got %d", p)
	}

	// Shifting onto an empty slot falls back to the first filled one.
	s.ClearSlot(0)
	s.SetPrimaryBySlot(2)
	s.ClearSlot(1)
	if p := primaryOf(t, s); p != 2 {
		t.Fatalf("expected primary 2, got %d", p)
	}
}

func TestSetPrimaryIgnoresEmptySlot(t *testing.T) {
	var emitted int
	s := mustNew(t, 3, Options{OnChange: func(Change) { emitted++ }})
	s.SetSlotFile(0, file("a"))
	emitted = 0

	if err := s.SetPrimaryBySlot(2); err != nil {
		t.Fatal(err)
	}
	if emitted != 0 {
		t.Fatal("no-op must not emit")
	}
	if _, ok := s.Primary(); ok {
		t.Fatal("primary must stay absent")
	}
}

func TestOutOfRange(t *testing.T) {
	s := mustNew(t, 2, Options{})
	for _, err := range []error{s.SetSlotFile(2, file("x")), s.ClearSlot(-1), s.SetPrimaryBySlot(5)} {
		if !errors.Is(err, ErrSlotOutOfRange) {
			t.Fatalf("expected ErrSlotOutOfRange, got %v", err)
		}
	}
}

func TestPreviewLifecycle(t *testing.T) {
	reg := newRecordingRegistry()
	s := mustNew(t, 3, Options{Registry: reg})
	s.Init([]InitialImage{{ID: "srv", ImageURL: "https://img/srv"}})

	// Server URLs are never revoked.
	s.SetSlotFile(0, file("a"))
	if len(reg.events) != 1 || reg.events[0] != "create blob:1" {
		t.Fatalf("unexpected events: %v", reg.events)
	}

	s.SetSlotFile(0, file("b"))
	want := []string{"create blob:1", "revoke blob:1", "create blob:2"}
	if fmt.Sprint(reg.events) != fmt.Sprint(want) {
		t.Fatalf("expected %v, got %v", want, reg.events)
	}

	s.ClearSlot(0)
	s.ClearSlot(0)
	if n := reg.revokes("blob:2"); n != 1 {
		t.Fatalf("expected one revoke of blob:2, got %d", n)
	}

	s.SetSlotFile(1, file("c"))
	s.Close()
	s.Close()
	if len(reg.live) != 0 {
		t.Fatalf("leaked previews: %v", reg.live)
	}
	if n := reg.revokes("blob:3"); n != 1 {
		t.Fatalf("expected one revoke of blob:3, got %d", n)
	}
}

func TestChangePayload(t *testing.T) {
	var last Change
	s := mustNew(t, 5, Options{OnChange: func(c Change) { last = c }})
	s.Init([]InitialImage{
		{ID: "img-a", ImageURL: "u/a", OrderIndex: 0},
		{ID: "img-b", ImageURL: "u/b", OrderIndex: 1, Primary: true},
		{ID: "img-c", ImageURL: "u/c", OrderIndex: 2},
	})

	newFile := file("new")
	s.SetSlotFile(2, newFile)

	if len(last.Files) != 1 || last.Files[0] != newFile {
		t.Fatalf("unexpected files: %+v", last.Files)
	}
	if fmt.Sprint(last.ReplaceOrderIndexes) != "[2]" {
		t.Fatalf("unexpected replace indexes: %v", last.ReplaceOrderIndexes)
	}
	if fmt.Sprint(last.KeepImageIDs) != "[img-a img-b]" {
		t.Fatalf("unexpected keep ids: %v", last.KeepImageIDs)
	}
	if last.PrimarySlot == nil || *last.PrimarySlot != 1 || last.PrimaryImageID != "img-b" {
		t.Fatalf("unexpected primary: %v %q", last.PrimarySlot, last.PrimaryImageID)
	}

	s.ClearSlot(0)
	if fmt.Sprint(last.KeepImageIDs) != "[img-b]" {
		t.Fatalf("cleared id must be dropped: %v", last.KeepImageIDs)
	}
	// The shifted index lands on the emptied slot, so primary falls back to
	// the first filled slot, which still holds img-b.
	if *last.PrimarySlot != 1 || last.PrimaryImageID != "img-b" {
		t.Fatalf("expected primary img-b at 1, got %d %q", *last.PrimarySlot, last.PrimaryImageID)
	}
}

func TestMemoryRegistryRevokeIsSafe(t *testing.T) {
	reg := NewMemoryRegistry()
	f := file("a")
	url := reg.Create(f)
	if !IsBlobURL(url) {
		t.Fatalf("expected blob url, got %q", url)
	}
	if got, ok := reg.Lookup(url); !ok || got != f {
		t.Fatal("expected live preview")
	}

	reg.Revoke(url)
	reg.Revoke(url)
	reg.Revoke("https://example.com/a.png")
	if reg.Len() != 0 {
		t.Fatalf("expected 0 live previews, got %d", reg.Len())
	}
}
