// Package book owns the on-disk representation of a book project: numbered
// generation units, the metadata record, and the store abstraction over them.
// The directory layout is the persisted state; there is no database.
package book

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/gosimple/slug"
)

// Status describes a unit's lifecycle as reconstructed from disk.
type Status string

const (
	// StatusPending means no file exists for the unit yet.
	StatusPending Status = "pending"
	// StatusGenerated means the unit file exists, however it got there.
	StatusGenerated Status = "generated"
	// StatusFailed means a generation attempt was recorded as failed.
	StatusFailed Status = "failed"
)

// Unit is one chapter's persisted text artifact. Number is the permanent
// identity; Filename is derived from Number and the current Title and may
// change when the title is edited.
type Unit struct {
	Number   int
	Title    string
	Filename string
	Status   Status
	Content  string
}

var numberPrefixRe = regexp.MustCompile(`^(\d+)-`)

// Stem derives the filename stem for a unit number and display title.
func Stem(number int, title string) string {
	s := slug.Make(title)
	if s == "" {
		s = "untitled"
	}
	return fmt.Sprintf("%03d-%s", number, s)
}

// Filename derives the unit's markdown filename.
func Filename(number int, title string) string {
	return Stem(number, title) + ".md"
}

// ParseFilename extracts the unit number from a numbered filename.
// The second return is false when the name carries no numeric prefix.
func ParseFilename(name string) (int, bool) {
	m := numberPrefixRe.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// TitleFromContent returns the first heading of a unit's content, falling
// back to the given default when none is present.
func TitleFromContent(content, fallback string) string {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			if title := strings.TrimSpace(strings.TrimLeft(trimmed, "#")); title != "" {
				return title
			}
		}
	}
	return fallback
}

// TitleWords renders a title as a CamelCase word run for deterministic
// typesetter output filenames ("The Reckoning" -> "TheReckoning").
func TitleWords(title string) string {
	words := regexp.MustCompile(`[A-Za-z0-9]+`).FindAllString(title, -1)
	if len(words) == 0 {
		return "Untitled"
	}
	var sb strings.Builder
	for _, w := range words {
		sb.WriteString(strings.ToUpper(w[:1]))
		if len(w) > 1 {
			sb.WriteString(strings.ToLower(w[1:]))
		}
	}
	return sb.String()
}
