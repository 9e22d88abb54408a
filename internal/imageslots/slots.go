// Package imageslots manages a fixed number of ordered image slots for a meal.
// Each slot holds either a stored image (id + URL) or a newly chosen file with
// a local preview. Mutations emit a Change describing what to upload, what to
// keep and which slot is primary.
package imageslots

import (
	"errors"
	"sort"
)

var (
	ErrInvalidMaxSlots = errors.New("max slots must be positive")
	ErrSlotOutOfRange  = errors.New("slot index out of range")
)

// File is a newly selected image.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Slot is one position. An empty slot has no file and no preview URL.
type Slot struct {
	File       *File
	PreviewURL string
	ID         string
}

func (s Slot) filled() bool {
	return s.File != nil || s.PreviewURL != ""
}

// InitialImage is an image already stored on the server.
type InitialImage struct {
	ID         string
	ImageURL   string
	OrderIndex int
	Primary    bool
}

type InitState int

const (
	Uninitialized InitState = iota
	Initialized
)

// Change is emitted after every mutation.
type Change struct {
	Files               []*File
	ReplaceOrderIndexes []int
	KeepImageIDs        []string
	PrimarySlot         *int
	PrimaryImageID      string
}

type Options struct {
	// Strict rejects a non-positive slot count instead of clamping it to 1.
	Strict   bool
	Registry PreviewRegistry
	OnChange func(Change)
}

// Slots is not safe for concurrent use.
type Slots struct {
	slots    []Slot
	primary  int // -1 when absent
	state    InitState
	registry PreviewRegistry
	onChange func(Change)
}

func New(maxSlots int, opts Options) (*Slots, error) {
	if maxSlots <= 0 {
		if opts.Strict {
			return nil, ErrInvalidMaxSlots
		}
		maxSlots = 1
	}
	registry := opts.Registry
	if registry == nil {
		registry = NewMemoryRegistry()
	}
	return &Slots{
		slots:    make([]Slot, maxSlots),
		primary:  -1,
		registry: registry,
		onChange: opts.OnChange,
	}, nil
}

func (s *Slots) State() InitState { return s.state }

// Len returns the slot count.
func (s *Slots) Len() int { return len(s.slots) }

// Slots returns a copy of the slot array.
func (s *Slots) Slots() []Slot {
	out := make([]Slot, len(s.slots))
	copy(out, s.slots)
	return out
}

// Primary returns the primary index, or false when no slot is primary.
func (s *Slots) Primary() (int, bool) {
	return s.primary, s.primary >= 0
}

// Init fills the slots from stored images. It runs at most once: only a
// non-empty list moves the state to Initialized, and later calls are ignored.
// It reports whether the slots were populated.
func (s *Slots) Init(images []InitialImage) bool {
	if s.state == Initialized || len(images) == 0 {
		return false
	}

	sorted := make([]InitialImage, len(images))
	copy(sorted, images)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].OrderIndex < sorted[j].OrderIndex })
	if len(sorted) > len(s.slots) {
		sorted = sorted[:len(s.slots)]
	}

	s.primary = -1
	for i, img := range sorted {
		s.slots[i] = Slot{PreviewURL: img.ImageURL, ID: img.ID}
		if img.Primary && s.primary < 0 {
			s.primary = i
		}
	}
	if s.primary < 0 {
		s.primary = 0
	}

	s.state = Initialized
	return true
}

// SetSlotFile puts a new file in slot i. The previous local preview, if any,
// is released before the new one is created. The primary index is unchanged.
func (s *Slots) SetSlotFile(i int, f *File) error {
	if err := s.checkIndex(i); err != nil {
		return err
	}
	if f == nil {
		return s.ClearSlot(i)
	}

	s.release(i)
	s.slots[i].File = f
	s.slots[i].PreviewURL = s.registry.Create(f)
	s.emit()
	return nil
}

// ClearSlot empties slot i and drops its stored image id.
func (s *Slots) ClearSlot(i int) error {
	if err := s.checkIndex(i); err != nil {
		return err
	}

	s.release(i)
	s.slots[i] = Slot{}

	switch {
	case s.firstFilled() < 0:
		s.primary = -1
	case i == s.primary:
		s.primary = s.firstFilled()
	case s.primary >= 0 && i < s.primary:
		s.primary--
		if !s.slots[s.primary].filled() {
			s.primary = s.firstFilled()
		}
	}

	s.emit()
	return nil
}

// SetPrimaryBySlot marks slot i as primary. Empty slots are ignored.
func (s *Slots) SetPrimaryBySlot(i int) error {
	if err := s.checkIndex(i); err != nil {
		return err
	}
	if !s.slots[i].filled() {
		return nil
	}
	s.primary = i
	s.emit()
	return nil
}

// Change returns the current payload without emitting it.
func (s *Slots) Change() Change {
	var c Change
	for i, slot := range s.slots {
		switch {
		case slot.File != nil:
			c.Files = append(c.Files, slot.File)
			c.ReplaceOrderIndexes = append(c.ReplaceOrderIndexes, i)
		case slot.ID != "":
			c.KeepImageIDs = append(c.KeepImageIDs, slot.ID)
		}
	}
	if s.primary >= 0 {
		p := s.primary
		c.PrimarySlot = &p
		if slot := s.slots[p]; slot.File == nil {
			c.PrimaryImageID = slot.ID
		}
	}
	return c
}

// Close releases every outstanding local preview.
func (s *Slots) Close() {
	for i := range s.slots {
		s.release(i)
	}
}

func (s *Slots) release(i int) {
	url := s.slots[i].PreviewURL
	if IsBlobURL(url) {
		s.registry.Revoke(url)
		s.slots[i].PreviewURL = ""
	}
}

func (s *Slots) firstFilled() int {
	for i, slot := range s.slots {
		if slot.filled() {
			return i
		}
	}
	return -1
}

func (s *Slots) checkIndex(i int) error {
	if i < 0 || i >= len(s.slots) {
		return ErrSlotOutOfRange
	}
	return nil
}

func (s *Slots) emit() {
	if s.onChange != nil {
		s.onChange(s.Change())
	}
}
