package dialog

import (
	"sync"
	"time"
)

// DraftStore owns the in-progress drafts, keyed by requester chat id.
// Every access stamps the draft so abandoned conversations can be swept.
type DraftStore struct {
	mu     sync.Mutex
	drafts map[int64]*Draft
	now    func() time.Time
}

func NewDraftStore() *DraftStore {
	return &DraftStore{
		drafts: make(map[int64]*Draft),
		now:    time.Now,
	}
}

// Begin replaces any existing draft with a fresh one at the doctor step.
func (s *DraftStore) Begin(chatID int64) *Draft {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := &Draft{
		State:       StateSelectingDoctor,
		LastTouched: s.now(),
	}
	s.drafts[chatID] = d
	return d
}

// Get returns the live draft of a conversation, touching it.
func (s *DraftStore) Get(chatID int64) (*Draft, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.drafts[chatID]
	if ok {
		d.LastTouched = s.now()
	}
	return d, ok
}

// Discard drops the draft, if any.
func (s *DraftStore) Discard(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, chatID)
}

// SweepStale removes drafts idle longer than ttl and returns how many went.
func (s *DraftStore) SweepStale(ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-ttl)
	removed := 0
	for chatID, d := range s.drafts {
		if d.LastTouched.Before(cutoff) {
			delete(s.drafts, chatID)
			removed++
		}
	}
	return removed
}

// Len reports the live draft count.
func (s *DraftStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.drafts)
}
