package store

import (
	"context"
	"fmt"
	"sync"

	"fjacquet/donor-mapper/internal/mappingerror"
	"fjacquet/donor-mapper/internal/models"
	"fjacquet/donor-mapper/internal/textutils"
)

// MockMappingStore is an in-memory mapping store for testing.
type MockMappingStore struct {
	mu       sync.Mutex
	mappings map[string]*models.SemanticFieldMapping
	nextID   int

	// Error flags for testing error conditions
	LookupError error
	RecordError error
	TouchError  error

	// Call counters
	LookupCalls int
	RecordCalls int
	TouchCalls  int
}

// NewMockMappingStore creates a MockMappingStore holding mappings.
func NewMockMappingStore(mappings ...models.SemanticFieldMapping) *MockMappingStore {
	m := &MockMappingStore{mappings: make(map[string]*models.SemanticFieldMapping)}
	for i := range mappings {
		mapping := mappings[i]
		if mapping.ID == "" {
			m.nextID++
			mapping.ID = mockID(m.nextID)
		}
		m.mappings[mapping.NormalizedValue] = &mapping
	}
	return m
}

// Lookup returns a copy of the mapping stored for normalized.
func (m *MockMappingStore) Lookup(_ context.Context, normalized string) (*models.SemanticFieldMapping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LookupCalls++
	if m.LookupError != nil {
		return nil, m.LookupError
	}
	found, ok := m.mappings[normalized]
	if !ok {
		return nil, nil
	}
	out := *found
	return &out, nil
}

// Record stores rec, merging into an existing entry like the real store.
func (m *MockMappingStore) Record(_ context.Context, rec models.MappingRecord) (*models.SemanticFieldMapping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RecordCalls++
	if m.RecordError != nil {
		return nil, m.RecordError
	}
	if m.mappings == nil {
		m.mappings = make(map[string]*models.SemanticFieldMapping)
	}
	if rec.NormalizedValue == "" {
		rec.NormalizedValue = textutils.Normalize(rec.RawValue)
	}

	existing, ok := m.mappings[rec.NormalizedValue]
	if !ok {
		m.nextID++
		existing = &models.SemanticFieldMapping{
			ID:              mockID(m.nextID),
			RawValue:        rec.RawValue,
			NormalizedValue: rec.NormalizedValue,
		}
		m.mappings[rec.NormalizedValue] = existing
	} else if existing.Approved && !rec.Approved {
		out := *existing
		return &out, nil
	}
	existing.MappedTo = rec.MappedTo
	existing.MappedKey = rec.MappedKey
	existing.Confidence = rec.Confidence
	existing.Source = rec.Source
	existing.Approved = rec.Approved
	if rec.Metadata != nil {
		existing.Metadata = rec.Metadata
	}
	out := *existing
	return &out, nil
}

// Touch increments the usage counter of mapping id.
func (m *MockMappingStore) Touch(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TouchCalls++
	if m.TouchError != nil {
		return m.TouchError
	}
	for _, mapping := range m.mappings {
		if mapping.ID == id {
			mapping.TimesUsed++
			return nil
		}
	}
	return &mappingerror.NotFoundError{Entity: "mapping", ID: id}
}

// Mapping returns a copy of the stored mapping for normalized.
func (m *MockMappingStore) Mapping(normalized string) (models.SemanticFieldMapping, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	found, ok := m.mappings[normalized]
	if !ok {
		return models.SemanticFieldMapping{}, false
	}
	return *found, true
}

func mockID(n int) string {
	return fmt.Sprintf("mock-%04d", n)
}
