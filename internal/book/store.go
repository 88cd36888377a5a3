package book

import "fmt"

// Reserved filenames that live next to unit files but are not units.
var reservedNames = map[string]bool{
	"book.md":                true,
	"back-cover-synopsis.md": true,
	"nextsteps.md":           true,
	MetaFilename:             true,
	ProgressFilename:         true,
	"epub.css":               true,
}

// Store is the repository abstraction over a book project's generation
// units. Implementations must treat their backing state as the single
// source of truth on every call; callers never cache across invocations.
type Store interface {
	// List returns all units in number order. Content is not loaded.
	List() ([]Unit, error)

	// Exists reports whether a unit file exists for the number.
	Exists(number int) (bool, error)

	// Read returns the unit with its content.
	// Returns ErrNotFound if no unit file exists for the number.
	Read(number int) (Unit, error)

	// Write persists a unit's content. An existing unit keeps its current
	// filename regardless of title; a new unit's filename is derived from
	// number and title. Stem changes happen only through Rename.
	Write(number int, title, content string) (Unit, error)

	// Rename moves a unit file to a new name, failing if the target exists.
	// The asset synchronizer is its only production caller.
	Rename(oldName, newName string) error

	// Root identifies the project location (directory path for the
	// filesystem store); informational for logs and asset lookups.
	Root() string
}

// ErrNotFound is returned when a unit doesn't exist.
type ErrNotFound struct {
	Number int
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("unit %d not found", e.Number)
}

// IsNotFound returns true if the error is ErrNotFound.
func IsNotFound(err error) bool {
	_, ok := err.(ErrNotFound)
	return ok
}
