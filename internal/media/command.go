// Package media renders derived book artifacts (narration audio, chapter
// videos, cover art, slideshow imagery) by driving external tools. Every
// renderer is resumable: artifacts that already exist are skipped unless
// overwrite is configured, and a missing tool downgrades the step to a
// warning instead of failing the pipeline.
package media

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrToolMissing marks an external tool that is not installed.
var ErrToolMissing = errors.New("external tool not found")

// runner executes one external command; injectable for tests.
type runner func(ctx context.Context, dir string, argv []string) error

func execRunner(ctx context.Context, dir string, argv []string) error {
	if len(argv) == 0 {
		return errors.New("empty command")
	}
	bin, err := exec.LookPath(argv[0])
	if err != nil {
		return fmt.Errorf("%w: %s", ErrToolMissing, argv[0])
	}
	cmd := exec.CommandContext(ctx, bin, argv[1:]...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", argv[0], err, strings.TrimSpace(string(out)))
	}
	return nil
}

// expandCommand substitutes {placeholder} variables into a command template.
// Unknown placeholders are left verbatim so misconfigurations surface in
// tool errors rather than silently vanishing.
func expandCommand(template []string, vars map[string]string) []string {
	argv := make([]string, len(template))
	for i, arg := range template {
		for key, val := range vars {
			arg = strings.ReplaceAll(arg, "{"+key+"}", val)
		}
		argv[i] = arg
	}
	return argv
}
