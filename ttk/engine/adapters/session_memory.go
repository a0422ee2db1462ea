package adapters

import (
	"context"
	"sync"
	"time"

	ports "github.com/tabletalkhq/tabletalk/ttk/engine/ports"
)

// MemorySessionStore keeps payment sessions in process memory with LRU
// eviction once capacity is reached. Eviction is otherwise explicit via
// Delete and Sweep, matching the session lifecycle.
type MemorySessionStore struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*sessionEntry
	head     *sessionEntry
	tail     *sessionEntry
}

type sessionEntry struct {
	session ports.PaymentSession
	prev    *sessionEntry
	next    *sessionEntry
}

// NewMemorySessionStore creates an in-memory session store with the given capacity.
func NewMemorySessionStore(capacity int) *MemorySessionStore {
	if capacity <= 0 {
		capacity = 1024
	}
	return &MemorySessionStore{
		capacity: capacity,
		entries:  make(map[string]*sessionEntry),
	}
}

// Put inserts or updates the session for its call id.
func (s *MemorySessionStore) Put(ctx context.Context, session ports.PaymentSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session.UpdatedAt = time.Now().UTC()

	if entry, exists := s.entries[session.CallID]; exists {
		entry.session = session
		s.moveToFront(entry)
		return nil
	}

	entry := &sessionEntry{session: session}
	s.addToFront(entry)
	s.entries[session.CallID] = entry

	if len(s.entries) > s.capacity {
		s.evictLRU()
	}

	return nil
}

// Get returns the session for a call id; it refreshes recency on hit.
func (s *MemorySessionStore) Get(ctx context.Context, callID string) (ports.PaymentSession, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.entries[callID]
	if !exists {
		return ports.PaymentSession{}, false, nil
	}

	s.moveToFront(entry)
	return entry.session, true, nil
}

// Delete pops the session for a call id, returning what was stored.
func (s *MemorySessionStore) Delete(ctx context.Context, callID string) (ports.PaymentSession, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.entries[callID]
	if !exists {
		return ports.PaymentSession{}, false, nil
	}

	s.removeEntry(entry)
	delete(s.entries, callID)
	return entry.session, true, nil
}

// Sweep removes sessions started before the cutoff and reports how many.
func (s *MemorySessionStore) Sweep(ctx context.Context, startedBefore time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for callID, entry := range s.entries {
		if entry.session.StartedAt.Before(startedBefore) {
			s.removeEntry(entry)
			delete(s.entries, callID)
			removed++
		}
	}
	return removed, nil
}

// Len reports the number of live sessions.
func (s *MemorySessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// moveToFront moves an entry to the front of the recency list.
func (s *MemorySessionStore) moveToFront(entry *sessionEntry) {
	if entry == s.head {
		return
	}
	s.removeEntry(entry)
	s.addToFront(entry)
}

// addToFront adds an entry to the front of the recency list.
func (s *MemorySessionStore) addToFront(entry *sessionEntry) {
	entry.next = s.head
	entry.prev = nil

	if s.head != nil {
		s.head.prev = entry
	}
	s.head = entry

	if s.tail == nil {
		s.tail = entry
	}
}

// removeEntry unlinks an entry from the recency list.
func (s *MemorySessionStore) removeEntry(entry *sessionEntry) {
	if entry.prev != nil {
		entry.prev.next = entry.next
	} else {
		s.head = entry.next
	}

	if entry.next != nil {
		entry.next.prev = entry.prev
	} else {
		s.tail = entry.prev
	}

	entry.prev = nil
	entry.next = nil
}

// evictLRU removes the least recently used entry.
func (s *MemorySessionStore) evictLRU() {
	if s.tail == nil {
		return
	}
	entry := s.tail
	s.removeEntry(entry)
	delete(s.entries, entry.session.CallID)
}

// Ensure MemorySessionStore implements the SessionStore interface.
var _ ports.SessionStore = (*MemorySessionStore)(nil)
