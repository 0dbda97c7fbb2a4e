// Package history implements the session history of checked messages
package history

import (
	"encoding/csv"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/umputun/spamdash/lib/msgcheck"
)

// Entry is a single checked message
type Entry struct {
	Message    string         `json:"message"`
	Prediction msgcheck.Label `json:"prediction"`
	Backend    string         `json:"backend,omitempty"`
	Time       time.Time      `json:"time"`
}

// Store keeps entries in insertion order, thread-safe.
// Entries are never deduplicated. With a positive limit the oldest entries are dropped.
type Store struct {
	entries []Entry
	limit   int
	lock    sync.RWMutex
}

// Counts is the number of entries per label
type Counts struct {
	Spam  int `json:"spam"`
	Ham   int `json:"ham"`
	Total int `json:"total"`
}

// NewStore makes an empty store, limit of 0 means unlimited
func NewStore(limit int) *Store {
	return &Store{limit: max(limit, 0)}
}

// Append adds an entry to the end of history
func (s *Store) Append(e Entry) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	s.entries = append(s.entries, e)
	if s.limit > 0 && len(s.entries) > s.limit {
		// copy to release the dropped head
		s.entries = append([]Entry(nil), s.entries[len(s.entries)-s.limit:]...)
	}
}

// All returns a copy of all entries, oldest first
func (s *Store) All() []Entry {
	s.lock.RLock()
	defer s.lock.RUnlock()
	res := make([]Entry, len(s.entries))
	copy(res, s.entries)
	return res
}

// Filter returns entries with the given label, oldest first. Empty label returns everything.
func (s *Store) Filter(label msgcheck.Label) []Entry {
	if label == "" {
		return s.All()
	}
	s.lock.RLock()
	defer s.lock.RUnlock()
	res := []Entry{}
	for _, e := range s.entries {
		if e.Prediction == label {
			res = append(res, e)
		}
	}
	return res
}

// Len returns number of entries
func (s *Store) Len() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.entries)
}

// Counts returns number of entries per label
func (s *Store) Counts() Counts {
	s.lock.RLock()
	defer s.lock.RUnlock()
	res := Counts{Total: len(s.entries)}
	for _, e := range s.entries {
		switch e.Prediction {
		case msgcheck.LabelSpam:
			res.Spam++
		case msgcheck.LabelHam:
			res.Ham++
		}
	}
	return res
}

// Reset removes all entries
func (s *Store) Reset() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.entries = nil
}

// WriteCSV exports entries with the given label (all if empty) as csv with Message,Prediction header
func (s *Store) WriteCSV(w io.Writer, label msgcheck.Label) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Message", "Prediction"}); err != nil {
		return fmt.Errorf("can't write csv header: %w", err)
	}
	for _, e := range s.Filter(label) {
		if err := cw.Write([]string{e.Message, string(e.Prediction)}); err != nil {
			return fmt.Errorf("can't write csv record: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("can't flush csv: %w", err)
	}
	return nil
}
