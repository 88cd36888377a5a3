package book

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FSStore is the filesystem-backed Store. Every call re-scans the project
// directory, which is what makes the pipeline resumable: a unit whose file
// already exists is Generated regardless of how the process got there.
type FSStore struct {
	dir string
}

// NewFSStore creates a store rooted at the given project directory,
// creating it if needed.
func NewFSStore(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create project directory: %w", err)
	}
	return &FSStore{dir: dir}, nil
}

// Root returns the project directory.
func (s *FSStore) Root() string { return s.dir }

// List reconstructs the unit sequence from directory contents by parsing
// the numeric prefix of each markdown filename.
func (s *FSStore) List() ([]Unit, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("scan project directory: %w", err)
	}
	var units []Unit
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if filepath.Ext(name) != ".md" || reservedNames[name] {
			continue
		}
		number, ok := ParseFilename(name)
		if !ok {
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

// Exists reports whether a unit file exists for the number.
func (s *FSStore) Exists(number int) (bool, error) {
	_, err := s.find(number)
	if IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Read loads a unit and its content. The title is taken from the content's
// first heading when present.
func (s *FSStore) Read(number int) (Unit, error) {
	unit, err := s.find(number)
	if err != nil {
		return Unit{}, err
	}
	data, err := os.ReadFile(filepath.Join(s.dir, unit.Filename))
	if err != nil {
		return Unit{}, fmt.Errorf("read unit %d: %w", number, err)
	}
	unit.Content = string(data)
	unit.Title = TitleFromContent(unit.Content, unit.Title)
	return unit, nil
}

// Write persists a unit. An existing unit keeps its current filename even
// when the title changed; stem reconciliation belongs to the asset
// synchronizer. New units get the filename derived from number and title.
func (s *FSStore) Write(number int, title, content string) (Unit, error) {
	name := Filename(number, title)
	if existing, err := s.find(number); err == nil {
		name = existing.Filename
	}
	if err := os.WriteFile(filepath.Join(s.dir, name), []byte(content), 0o644); err != nil {
		return Unit{}, fmt.Errorf("write unit %d: %w", number, err)
	}
	return Unit{Number: number, Title: title, Filename: name, Status: StatusGenerated, Content: content}, nil
}

// Rename moves a unit file; the target must not exist.
func (s *FSStore) Rename(oldName, newName string) error {
	target := filepath.Join(s.dir, newName)
	if _, err := os.Stat(target); err == nil {
		return fmt.Errorf("rename target already exists: %s", newName)
	}
	if err := os.Rename(filepath.Join(s.dir, oldName), target); err != nil {
		return fmt.Errorf("rename unit file: %w", err)
	}
	return nil
}

func (s *FSStore) find(number int) (Unit, error) {
	units, err := s.List()
	if err != nil {
		return Unit{}, err
	}
	for _, u := range units {
		if u.Number == number {
			return u, nil
		}
	}
	return Unit{}, ErrNotFound{Number: number}
}

// titleFromStem recovers a readable title from a slugged filename, used
// only as a fallback when the content has no heading.
func titleFromStem(name string) string {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	if m := numberPrefixRe.FindStringIndex(stem); m != nil {
		stem = stem[m[1]:]
	}
	return strings.ReplaceAll(stem, "-", " ")
}
