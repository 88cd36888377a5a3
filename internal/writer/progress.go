package writer

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/bookforge/internal/book"
	"git.home.luguber.info/inful/bookforge/internal/llm"
)

// Progress is the generation checkpoint persisted after every completed
// step. It lets an interrupted run resume mid-book with the rolling chapter
// context intact, and records which units were attempted and failed so a
// resumed run can tell them apart from units never attempted.
type Progress struct {
	RunID           string              `json:"run_id"`
	Status          string              `json:"status"` // in_progress|completed
	OutlineHash     string              `json:"outline_hash,omitempty"`
	TotalSteps      int                 `json:"total_steps"`
	CompletedSteps  int                 `json:"completed_steps"`
	PreviousChapter *llm.ChapterContext `json:"previous_chapter,omitempty"`
	Failed          []int               `json:"failed,omitempty"`
	NextSteps       []string            `json:"nextsteps_sections,omitempty"`
	BookTitle       string              `json:"book_title,omitempty"`
	Byline          string              `json:"byline,omitempty"`
}

const (
	statusInProgress = "in_progress"
	statusCompleted  = "completed"
)

func progressPath(dir string) string {
	return filepath.Join(dir, book.ProgressFilename)
}

// LoadProgress reads the checkpoint; a missing file yields nil.
func LoadProgress(dir string) (*Progress, error) {
	data, err := os.ReadFile(progressPath(dir))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read progress: %w", err)
	}
	var p Progress
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("unmarshal progress: %w", err)
	}
	return &p, nil
}

// SaveProgress writes the checkpoint.
func SaveProgress(dir string, p *Progress) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}
	if err := os.WriteFile(progressPath(dir), append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write progress: %w", err)
	}
	return nil
}

// ClearProgress removes the checkpoint if present.
func ClearProgress(dir string) error {
	err := os.Remove(progressPath(dir))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear progress: %w", err)
	}
	return nil
}

// OutlineHash fingerprints the outline text; a changed outline invalidates
// a resumed checkpoint.
func OutlineHash(outlineText string) string {
	sum := sha256.Sum256([]byte(outlineText))
	return hex.EncodeToString(sum[:])
}
