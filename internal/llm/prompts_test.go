package llm

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/bookforge/internal/config"
	"git.home.luguber.info/inful/bookforge/internal/outline"
)

func TestBuildChapterPromptIncludesOutlineAndFocus(t *testing.T) {
	chapters, err := outline.Parse("# Chapter One\n## Section One\n# Chapter Two\n")
	require.NoError(t, err)

	prompt := BuildChapterPrompt(chapters, chapters[0], nil, "")
	assert.Contains(t, prompt, "Outline:\n- Chapter One")
	assert.Contains(t, prompt, "Current item: Chapter One (chapter).")
	assert.Contains(t, prompt, "Chapter focus checklist:\n- Section One")
	assert.NotContains(t, prompt, "Previous chapter context")
}

func TestBuildChapterPromptCarriesPreviousContext(t *testing.T) {
	chapters, err := outline.Parse("# Chapter One\n# Chapter Two\n")
	require.NoError(t, err)

	prompt := BuildChapterPrompt(chapters, chapters[1], &ChapterContext{Title: "Chapter One", Content: "summary"}, "")
	assert.Contains(t, prompt, "Previous chapter context")
	assert.Contains(t, prompt, "Title: Chapter One")
	assert.Contains(t, prompt, "summary")
}

func TestBuildChapterPromptTonePreface(t *testing.T) {
	chapters, err := outline.Parse("# Chapter One\n")
	require.NoError(t, err)
	prompt := BuildChapterPrompt(chapters, chapters[0], nil, "Write grimly.")
	assert.True(t, len(prompt) > 0)
	assert.Contains(t, prompt, "Write grimly.\n\n")
}

func TestBuildExpandPromptContext(t *testing.T) {
	prompt := BuildExpandPrompt("current para", "prev para", "next para", "The Heading", "")
	assert.Contains(t, prompt, "Section heading: The Heading")
	assert.Contains(t, prompt, "Previous section/paragraph:\nprev para")
	assert.Contains(t, prompt, "Next section/paragraph:\nnext para")
	assert.Contains(t, prompt, "Current paragraph/section:\ncurrent para")
}

func TestBuildExpandPromptOmitsEmptyContext(t *testing.T) {
	prompt := BuildExpandPrompt("current", "", "", "", "")
	assert.NotContains(t, prompt, "Previous section")
	assert.NotContains(t, prompt, "Next section")
	assert.NotContains(t, prompt, "Section heading")
}

func TestBuildGenrePrompt(t *testing.T) {
	prompt := BuildGenrePrompt("  a synopsis  ")
	assert.Contains(t, prompt, "Synopsis:\na synopsis")
	assert.Contains(t, prompt, `"genres"`)
}

func TestLoadBasePromptAuthorPersona(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "poe.md"), []byte("Write like Poe.\n"), 0o644))
	gc := config.GenerationConfig{AuthorsDir: dir}

	got, err := LoadBasePrompt(gc, "poe")
	require.NoError(t, err)
	assert.Equal(t, "Write like Poe.", got)

	_, err = LoadBasePrompt(gc, "unknown")
	require.Error(t, err)
}

func TestLoadBasePromptFallsBackToPromptFile(t *testing.T) {
	dir := t.TempDir()
	promptFile := filepath.Join(dir, "PROMPT.md")
	require.NoError(t, os.WriteFile(promptFile, []byte("Base prompt.\n"), 0o644))

	got, err := LoadBasePrompt(config.GenerationConfig{PromptFile: promptFile}, "")
	require.NoError(t, err)
	assert.Equal(t, "Base prompt.", got)

	// Missing prompt file is fine: no base prompt.
	got, err = LoadBasePrompt(config.GenerationConfig{PromptFile: filepath.Join(dir, "missing.md")}, "")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLoadTone(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "noir.md"), []byte("Moody.\n"), 0o644))
	gc := config.GenerationConfig{TonesDir: dir}

	got, err := LoadTone(gc, "noir")
	require.NoError(t, err)
	assert.Equal(t, "Moody.", got)

	got, err = LoadTone(gc, "")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = LoadTone(gc, "absent")
	require.Error(t, err)
}
