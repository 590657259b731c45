package testutil

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	progressDomain "linggo_sync/internal/domain/progress"
	errs "linggo_sync/internal/errors"
)

// NewTestLogger creates a no-op logger for tests
func NewTestLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

// MemoryStore is an in-memory progress store with the same guard semantics
// as the Mongo implementation.
type MemoryStore struct {
	mu          sync.Mutex
	collections map[string]map[string]progressDomain.Document

	// Err, when set, is returned by every call.
	Err error
	// Calls counts every store access.
	Calls int
	// OnCreate runs before Create inserts, so tests can simulate a lost race.
	OnCreate func(s *MemoryStore)
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: map[string]map[string]progressDomain.Document{}}
}

// Seed stores doc as is, bypassing every guard.
func (s *MemoryStore) Seed(collection string, doc progressDomain.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(collection, progressDomain.Clone(doc))
}

// Get returns a copy of the stored document or nil.
func (s *MemoryStore) Get(collection, uid string) progressDomain.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return progressDomain.Clone(s.collections[collection][uid])
}

func (s *MemoryStore) FindByUID(_ context.Context, collection, uid string) (progressDomain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.find(collection, uid)
	if err != nil {
		return nil, err
	}
	return progressDomain.Clone(doc), nil
}

func (s *MemoryStore) Create(_ context.Context, collection string, doc progressDomain.Document) (progressDomain.Document, error) {
	if s.OnCreate != nil {
		hook := s.OnCreate
		s.OnCreate = nil
		hook(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.access(); err != nil {
		return nil, err
	}
	uid, _ := doc[progressDomain.FieldUID].(string)
	if _, ok := s.collections[collection][uid]; ok {
		return nil, errs.ErrAlreadyExists
	}
	s.put(collection, progressDomain.Clone(doc))
	return progressDomain.Clone(doc), nil
}

func (s *MemoryStore) Overwrite(_ context.Context, collection, uid string, fields progressDomain.Document) (progressDomain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.find(collection, uid)
	if err != nil {
		return nil, err
	}
	setFields(doc, fields)
	return progressDomain.Clone(doc), nil
}

func (s *MemoryStore) AdvanceMarker(_ context.Context, collection, uid string, m progressDomain.Marker) (progressDomain.Document, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.find(collection, uid)
	if err != nil {
		return nil, false, err
	}
	if !olderThan(doc, m) {
		return progressDomain.Clone(doc), false, nil
	}
	m.Apply(doc)
	return progressDomain.Clone(doc), true, nil
}

func (s *MemoryStore) OverwriteIfNewer(_ context.Context, collection, uid string, fields progressDomain.Document, m progressDomain.Marker) (progressDomain.Document, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.find(collection, uid)
	if err != nil {
		return nil, false, err
	}
	if !olderThan(doc, m) {
		return progressDomain.Clone(doc), false, nil
	}
	setFields(doc, fields)
	m.Apply(doc)
	return progressDomain.Clone(doc), true, nil
}

func (s *MemoryStore) EnsureShell(_ context.Context, collection, uid string, shell progressDomain.Document) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.access(); err != nil {
		return false, err
	}
	if _, ok := s.collections[collection][uid]; ok {
		return false, nil
	}
	doc := progressDomain.Clone(shell)
	doc[progressDomain.FieldUID] = uid
	s.put(collection, doc)
	return true, nil
}

func (s *MemoryStore) UpsertElement(_ context.Context, collection, uid, array string, id any, element progressDomain.Document) (progressDomain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.find(collection, uid)
	if err != nil {
		return nil, err
	}
	upsertElement(doc, array, id, element)
	return progressDomain.Clone(doc), nil
}

func (s *MemoryStore) UpsertElementIfNewer(_ context.Context, collection, uid, array string, id any, element progressDomain.Document, m progressDomain.Marker) (progressDomain.Document, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.find(collection, uid)
	if err != nil {
		return nil, false, err
	}
	if !olderThan(doc, m) {
		return progressDomain.Clone(doc), false, nil
	}
	upsertElement(doc, array, id, element)
	m.Apply(doc)
	return progressDomain.Clone(doc), true, nil
}

func (s *MemoryStore) access() error {
	s.Calls++
	return s.Err
}

func (s *MemoryStore) find(collection, uid string) (progressDomain.Document, error) {
	if err := s.access(); err != nil {
		return nil, err
	}
	doc, ok := s.collections[collection][uid]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return doc, nil
}

func (s *MemoryStore) put(collection string, doc progressDomain.Document) {
	if s.collections[collection] == nil {
		s.collections[collection] = map[string]progressDomain.Document{}
	}
	uid, _ := doc[progressDomain.FieldUID].(string)
	s.collections[collection][uid] = doc
}

// olderThan mirrors the Mongo guard: a missing stored marker is always older.
func olderThan(doc progressDomain.Document, m progressDomain.Marker) bool {
	stored := progressDomain.MarkerOf(doc)
	if _, ok := doc[progressDomain.FieldUpdated]; ok && stored.Updated >= m.Updated {
		return false
	}
	if m.HasTimeStamp() {
		if _, ok := doc[progressDomain.FieldTimeStamp]; ok && stored.TimeStamp >= m.TimeStamp {
			return false
		}
	}
	return true
}

func setFields(doc, fields progressDomain.Document) {
	for k, v := range progressDomain.Clone(fields) {
		doc[k] = v
	}
}

func upsertElement(doc progressDomain.Document, path string, id any, element progressDomain.Document) {
	parent := map[string]any(doc)
	keys := strings.Split(path, ".")
	for _, k := range keys[:len(keys)-1] {
		child, ok := progressDomain.AsMap(parent[k])
		if !ok {
			child = map[string]any{}
		}
		parent[k] = child
		parent = child
	}
	last := keys[len(keys)-1]

	arr, _ := progressDomain.AsSlice(parent[last])
	value := map[string]any(progressDomain.Clone(element))
	for i, existing := range arr {
		if e, ok := progressDomain.AsMap(existing); ok && progressDomain.SameID(e[progressDomain.FieldID], id) {
			arr[i] = value
			parent[last] = arr
			return
		}
	}
	parent[last] = append(arr, value)
}
