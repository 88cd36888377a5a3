package book

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractImplementationSections(t *testing.T) {
	content := "# Chapter One\n\nProse stays.\n\n## Implementation Details\n\nWire the gadget.\n\nCalibrate it.\n\n## Aftermath\n\nMore prose.\n"
	cleaned, sections := ExtractImplementationSections(content)
	require.Len(t, sections, 1)
	assert.Contains(t, sections[0], "Wire the gadget.")
	assert.Contains(t, sections[0], "Calibrate it.")
	assert.NotContains(t, cleaned, "Implementation Details")
	assert.Contains(t, cleaned, "Prose stays.")
	assert.Contains(t, cleaned, "## Aftermath")
}

func TestExtractImplementationSectionsCaseAndEmphasis(t *testing.T) {
	content := "## **implementation details**\n\nLowercase and bold still match.\n"
	cleaned, sections := ExtractImplementationSections(content)
	require.Len(t, sections, 1)
	assert.Empty(t, cleaned)
}

func TestExtractImplementationSectionsNoMatchIsUnchanged(t *testing.T) {
	content := "# Chapter One\n\nJust prose.\n\n## Details of Implementation\n\nNot a match.\n"
	cleaned, sections := ExtractImplementationSections(content)
	assert.Empty(t, sections)
	assert.Equal(t, content, cleaned)
}

func TestExtractImplementationSectionsStopsAtSameLevel(t *testing.T) {
	// A deeper heading belongs to the section; a same-level one ends it.
	content := "## Implementation Details\n\nStep one.\n\n### Sub-steps\n\nStep two.\n\n## Epilogue\n\nKept.\n"
	cleaned, sections := ExtractImplementationSections(content)
	require.Len(t, sections, 1)
	assert.Contains(t, sections[0], "Sub-steps")
	assert.Contains(t, cleaned, "## Epilogue")
}

func TestWriteNextSteps(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteNextSteps(dir, []string{"## Implementation Details\n\nWire it.", "  "}))

	data, err := os.ReadFile(filepath.Join(dir, NextStepsFilename))
	require.NoError(t, err)
	assert.Equal(t, "## Implementation Details\n\nWire it.\n", string(data))

	// No sections, no file.
	empty := t.TempDir()
	require.NoError(t, WriteNextSteps(empty, nil))
	_, err = os.Stat(filepath.Join(empty, NextStepsFilename))
	assert.True(t, os.IsNotExist(err))
}
