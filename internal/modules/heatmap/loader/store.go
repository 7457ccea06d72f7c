package loader

import (
	"errors"
	"sync"

	"github.com/Ushasricpu/paper/internal/telemetry"
)

// ErrStale is returned by Commit when a newer load has started or finished
// since the ticket was issued.
var ErrStale = errors.New("stale load result")

// Ticket identifies one load request.
type Ticket uint64

// Store holds the latest grouped data. Each load takes a ticket from Begin;
// only the most recent ticket may Commit, so a slow response can never
// overwrite a newer one.
type Store struct {
	mu       sync.Mutex
	next     Ticket
	data     telemetry.Grouped
	revision uint64
}

func NewStore() *Store {
	return &Store{}
}

// Begin starts a load and invalidates every earlier ticket.
func (s *Store) Begin() Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return s.next
}

// Commit replaces the data if t is still the latest ticket and returns the new
// revision.
func (s *Store) Commit(t Ticket, g telemetry.Grouped) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t != s.next {
		return s.revision, ErrStale
	}
	s.data = g
	s.revision++
	return s.revision, nil
}

// Current returns the committed data and its revision. Revision 0 means
// nothing has been loaded yet.
func (s *Store) Current() (telemetry.Grouped, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data, s.revision
}
