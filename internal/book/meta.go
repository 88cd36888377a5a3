package book

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/text/language"
)

// MetaFilename is the metadata record persisted in each project directory.
const MetaFilename = "meta.json"

// ProgressFilename is the generation checkpoint file (owned by the writer).
const ProgressFilename = ".bookforge-progress.json"

// MetaRecord is the single authoritative record reconciling unit identity
// with display titles. It is written by the generation flow and readable
// and editable externally.
type MetaRecord struct {
	Title        string        `json:"title,omitempty"`
	Author       string        `json:"author,omitempty"`
	Language     string        `json:"language,omitempty"`
	Genres       []string      `json:"genres,omitempty"`
	PrimaryGenre string        `json:"primary_genre,omitempty"`
	Chapters     []ChapterMeta `json:"chapters,omitempty"`
}

// ChapterMeta binds a stable unit number to its display title and current
// filename.
type ChapterMeta struct {
	Number   int    `json:"number"`
	Title    string `json:"title"`
	Filename string `json:"filename"`
}

// LoadMeta reads a project's metadata record. A missing file yields an
// empty record, not an error: meta is regenerated lazily.
func LoadMeta(dir string) (*MetaRecord, error) {
	data, err := os.ReadFile(filepath.Join(dir, MetaFilename))
	if os.IsNotExist(err) {
		return &MetaRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", MetaFilename, err)
	}
	var meta MetaRecord
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", MetaFilename, err)
	}
	return &meta, nil
}

// SaveMeta writes the metadata record.
func SaveMeta(dir string, meta *MetaRecord) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", MetaFilename, err)
	}
	if err := os.WriteFile(filepath.Join(dir, MetaFilename), append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", MetaFilename, err)
	}
	return nil
}

// EnsureIdentity fills title/author/language when absent and persists the
// record if it changed. An invalid language tag is rejected.
func EnsureIdentity(dir, title, author, lang string) (*MetaRecord, error) {
	meta, err := LoadMeta(dir)
	if err != nil {
		return nil, err
	}
	changed := false
	if meta.Title == "" && title != "" {
		meta.Title = title
		changed = true
	}
	if meta.Author == "" && author != "" {
		meta.Author = author
		changed = true
	}
	if meta.Language == "" && lang != "" {
		if _, err := language.Parse(lang); err != nil {
			return nil, fmt.Errorf("invalid language tag %q: %w", lang, err)
		}
		meta.Language = lang
		changed = true
	}
	if changed {
		if err := SaveMeta(dir, meta); err != nil {
			return nil, err
		}
	}
	return meta, nil
}

// EnsureChapters reconciles the chapter list against the store's current
// units, preserving titles already recorded for known numbers.
func EnsureChapters(dir string, store Store) (*MetaRecord, error) {
	meta, err := LoadMeta(dir)
	if err != nil {
		return nil, err
	}
	units, err := store.List()
	if err != nil {
		return nil, err
	}
	known := make(map[int]ChapterMeta, len(meta.Chapters))
	for _, ch := range meta.Chapters {
		known[ch.Number] = ch
	}
	chapters := make([]ChapterMeta, 0, len(units))
	changed := len(units) != len(meta.Chapters)
	for _, u := range units {
		entry := ChapterMeta{Number: u.Number, Title: u.Title, Filename: u.Filename}
		if prev, ok := known[u.Number]; ok {
			if prev.Title != "" {
				entry.Title = prev.Title
			}
			if prev != entry {
				changed = true
			}
		} else {
			// Prefer the content heading over the slug fallback.
			if read, err := store.Read(u.Number); err == nil {
				entry.Title = read.Title
			}
			changed = true
		}
		chapters = append(chapters, entry)
	}
	meta.Chapters = chapters
	if changed {
		if err := SaveMeta(dir, meta); err != nil {
			return nil, err
		}
	}
	return meta, nil
}

// SetChapterTitle records a new display title for a unit number. The
// filename is reconciled by the asset synchronizer, not here.
func SetChapterTitle(dir string, number int, title string) (*MetaRecord, error) {
	meta, err := LoadMeta(dir)
	if err != nil {
		return nil, err
	}
	for i := range meta.Chapters {
		if meta.Chapters[i].Number == number {
			meta.Chapters[i].Title = title
			if err := SaveMeta(dir, meta); err != nil {
				return nil, err
			}
			return meta, nil
		}
	}
	return nil, fmt.Errorf("no chapter with number %d in %s", number, MetaFilename)
}
