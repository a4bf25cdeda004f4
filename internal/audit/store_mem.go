package audit

import (
	"context"
	"sort"
	"sync"
)

// defaultMemCapacity bounds the in-memory store so a long-running process
// with audit disabled does not grow without limit.
const defaultMemCapacity = 10000

// MemStore is an in-memory Store. It backs tests and the degraded mode used
// when audit logging is administratively disabled: gates and records are
// never skipped, recording just loses durability.
type MemStore struct {
	mu       sync.Mutex
	nextID   int64
	records  []Record
	capacity int
}

// NewMemStore creates an in-memory store with the default capacity.
func NewMemStore() *MemStore {
	return &MemStore{nextID: 1, capacity: defaultMemCapacity}
}

// Append stores a copy of record and returns its assigned identifier.
func (s *MemStore) Append(_ context.Context, record Record) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record.ID = s.nextID
	s.nextID++
	s.records = append(s.records, record)
	if len(s.records) > s.capacity {
		s.records = s.records[len(s.records)-s.capacity:]
	}
	return record.ID, nil
}

// Query returns matching records newest first.
func (s *MemStore) Query(_ context.Context, filter Filter) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []Record
	for _, record := range s.records {
		if filter.Principal != "" && record.Principal != filter.Principal {
			continue
		}
		if filter.Tool != "" && record.Tool != filter.Tool {
			continue
		}
		if filter.Outcome != "" && string(record.Outcome) != filter.Outcome {
			continue
		}
		if !filter.From.IsZero() && record.Timestamp.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && record.Timestamp.After(filter.To) {
			continue
		}
		matched = append(matched, record)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].Timestamp.Equal(matched[j].Timestamp) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})

	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

// Close implements Store.
func (s *MemStore) Close() error {
	return nil
}
