package book

import (
	"sort"
	"sync"
)

// MemStore is an in-memory Store for tests. It mirrors FSStore semantics,
// including filename derivation and rename conflicts.
type MemStore struct {
	mu    sync.RWMutex
	files map[string]string // filename -> content
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{files: make(map[string]string)}
}

// Root identifies the store in logs.
func (s *MemStore) Root() string { return "mem://" }

// List returns all units in number order.
func (s *MemStore) List() ([]Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var units []Unit
	for name := range s.files {
		number, ok := ParseFilename(name)
		if !ok || reservedNames[name] {
			continue
		}
		units = append(units, Unit{
			Number:   number,
			Title:    titleFromStem(name),
			Filename: name,
			Status:   StatusGenerated,
		})
	}
	sort.Slice(units, func(i, j int) bool { return units[i].Number < units[j].Number })
	return units, nil
}

// Exists reports whether a unit exists for the number.
func (s *MemStore) Exists(number int) (bool, error) {
	units, _ := s.List()
	for _, u := range units {
		if u.Number == number {
			return true, nil
		}
	}
	return false, nil
}

// Read returns a unit with its content.
func (s *MemStore) Read(number int) (Unit, error) {
	units, _ := s.List()
	for _, u := range units {
		if u.Number == number {
			s.mu.RLock()
			u.Content = s.files[u.Filename]
			s.mu.RUnlock()
			u.Title = TitleFromContent(u.Content, u.Title)
			return u, nil
		}
	}
	return Unit{}, ErrNotFound{Number: number}
}

// Write persists a unit, reusing the existing filename for a known number.
func (s *MemStore) Write(number int, title, content string) (Unit, error) {
	name := Filename(number, title)
	if existing, err := s.Read(number); err == nil {
		name = existing.Filename
	}
	s.mu.Lock()
	s.files[name] = content
	s.mu.Unlock()
	return Unit{Number: number, Title: title, Filename: name, Status: StatusGenerated, Content: content}, nil
}

// Rename moves a unit file; the target must not exist.
func (s *MemStore) Rename(oldName, newName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[newName]; ok {
		return &renameConflictError{target: newName}
	}
	content, ok := s.files[oldName]
	if !ok {
		return &renameConflictError{target: oldName, missing: true}
	}
	delete(s.files, oldName)
	s.files[newName] = content
	return nil
}

type renameConflictError struct {
	target  string
	missing bool
}

func (e *renameConflictError) Error() string {
	if e.missing {
		return "rename source missing: " + e.target
	}
	return "rename target already exists: " + e.target
}
