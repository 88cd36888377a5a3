package book

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// NextStepsFilename collects "Implementation Details" sections pulled out of
// generated chapters.
const NextStepsFilename = "nextsteps.md"

// ExtractImplementationSections removes every section titled "Implementation
// Details" (any heading level, case-insensitive) from unit markdown. A
// section runs until the next heading of the same or higher level. Returns
// the cleaned content and the removed sections.
func ExtractImplementationSections(content string) (string, []string) {
	lines := strings.Split(content, "\n")
	var kept []string
	var sections []string
	i := 0
	for i < len(lines) {
		line := lines[i]
		level := headingLevel(line)
		if level > 0 && isImplementationHeading(line) {
			end := i + 1
			for end < len(lines) {
				if l := headingLevel(lines[end]); l > 0 && l <= level {
					break
				}
				end++
			}
			if section := strings.TrimSpace(strings.Join(lines[i:end], "\n")); section != "" {
				sections = append(sections, section)
			}
			i = end
			continue
		}
		kept = append(kept, line)
		i++
	}
	if len(sections) == 0 {
		return content, nil
	}
	cleaned := strings.TrimSpace(strings.Join(kept, "\n"))
	if cleaned != "" {
		cleaned += "\n"
	}
	return cleaned, sections
}

// WriteNextSteps persists extracted sections as nextsteps.md in the project
// directory. Nothing is written when there are no sections.
func WriteNextSteps(dir string, sections []string) error {
	var parts []string
	for _, s := range sections {
		if t := strings.TrimSpace(s); t != "" {
			parts = append(parts, t)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	content := strings.Join(parts, "\n\n") + "\n"
	if err := os.WriteFile(filepath.Join(dir, NextStepsFilename), []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", NextStepsFilename, err)
	}
	return nil
}

func headingLevel(line string) int {
	if !strings.HasPrefix(line, "#") {
		return 0
	}
	level := 0
	for level < len(line) && line[level] == '#' {
		level++
	}
	return level
}

func isImplementationHeading(line string) bool {
	text := strings.TrimSpace(strings.TrimLeft(line, "# "))
	text = strings.Trim(text, "*_`")
	return strings.EqualFold(text, "implementation details")
}
