// Package viewer tracks the single open document slot of the client. At
// most one PDF is open at a time; opening another replaces it and closing
// releases the document's buffers. Fetches race with user actions, so
// every open carries a generation token and stale results are dropped.
package viewer

import (
	"context"
	"sync"

	"luat-chat/pkg/lawapi"
)

// Document is an open PDF the viewer can display and must eventually
// release.
type Document interface {
	PageCount() int
	PageText(ctx context.Context, pageNum int) (string, error)
	Close() error
}

// Open is the currently displayed document with its citation context.
type Open struct {
	Source lawapi.PDFSource
	Title  string
	Doc    Document
	Page   int
}

// slotEntry pins an installed document while readers extract text from
// it. The document is released once it has both left the slot and has
// no remaining readers; closing a parser handle mid-extraction is a
// use-after-free.
type slotEntry struct {
	open     Open
	refs     int
	detached bool
}

// State is the viewer's single document slot. Safe for concurrent use.
type State struct {
	mu      sync.Mutex
	gen     uint64
	current *slotEntry
}

// NewState returns an empty viewer slot.
func NewState() *State {
	return &State{}
}

// Begin starts an open attempt and returns its token. Starting a new
// attempt invalidates every earlier one, so slow fetches from abandoned
// clicks can never clobber the slot.
func (s *State) Begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	return s.gen
}

// Install places a fetched document into the slot if token is still the
// latest attempt. A previously open document is released. When the token
// is stale the new document is released instead and false is returned.
func (s *State) Install(token uint64, open *Open) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token != s.gen {
		if open != nil && open.Doc != nil {
			_ = open.Doc.Close()
		}
		return false
	}

	s.detachLocked()
	open.Page = clamp(open.Page, open.Doc.PageCount())
	s.current = &slotEntry{open: *open}
	return true
}

// Current returns a snapshot of the open document, or false when the
// slot is empty. The snapshot's document is not pinned; callers that
// read pages from it must use Acquire instead.
func (s *State) Current() (*Open, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil, false
	}
	snap := s.current.open
	return &snap, true
}

// Acquire returns a snapshot of the open document and pins the
// underlying document until the returned release func runs. A replace
// or close that happens while the pin is held defers the document's
// release to the last reader.
func (s *State) Acquire() (Open, func(), bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Open{}, nil, false
	}
	entry := s.current
	entry.refs++
	return entry.open, func() { s.release(entry) }, true
}

func (s *State) release(entry *slotEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.refs--
	if entry.refs == 0 && entry.detached && entry.open.Doc != nil {
		_ = entry.open.Doc.Close()
	}
}

// SetPage moves the open document to a page, clamped to its range, and
// returns the resulting page. False when no document is open.
func (s *State) SetPage(page int) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return 0, false
	}
	s.current.open.Page = clamp(page, s.current.open.Doc.PageCount())
	return s.current.open.Page, true
}

// Close empties the slot and releases the document. In-flight open
// attempts started before the close are invalidated.
func (s *State) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detachLocked()
	s.gen++
}

// detachLocked removes the current entry from the slot, closing its
// document immediately only when no reader holds a pin.
func (s *State) detachLocked() {
	entry := s.current
	if entry == nil {
		return
	}
	s.current = nil
	entry.detached = true
	if entry.refs == 0 && entry.open.Doc != nil {
		_ = entry.open.Doc.Close()
	}
}

func clamp(page, total int) int {
	if page < 1 {
		return 1
	}
	if total > 0 && page > total {
		return total
	}
	return page
}
