package llm

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/bookforge/internal/config"
)

// LoadBasePrompt resolves the base system prompt prefix for a run. When an
// author persona is named, its file under authors_dir wins over the project
// prompt file; naming an unknown persona is an error rather than a silent
// fallback.
func LoadBasePrompt(gc config.GenerationConfig, author string) (string, error) {
	if author != "" {
		if gc.AuthorsDir == "" {
			return "", fmt.Errorf("author persona %q requested but authors_dir is not configured", author)
		}
		path := filepath.Join(gc.AuthorsDir, author+".md")
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("author persona %q is not available (expected %s): %w", author, path, err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	if gc.PromptFile == "" {
		return "", nil
	}
	data, err := os.ReadFile(gc.PromptFile)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read base prompt %s: %w", gc.PromptFile, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// LoadTone resolves a tone preface by name from tones_dir. Unknown tones
// are an error; an empty name means no tone.
func LoadTone(gc config.GenerationConfig, tone string) (string, error) {
	if tone == "" {
		return "", nil
	}
	if gc.TonesDir == "" {
		return "", fmt.Errorf("tone %q requested but tones_dir is not configured", tone)
	}
	path := filepath.Join(gc.TonesDir, tone+".md")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("tone %q is not available (expected %s): %w", tone, path, err)
	}
	return strings.TrimSpace(string(data)), nil
}
