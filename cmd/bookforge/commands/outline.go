package commands

import (
	"fmt"
	"os"

	"git.home.luguber.info/inful/bookforge/internal/llm"
	"git.home.luguber.info/inful/bookforge/internal/outline"
	"git.home.luguber.info/inful/bookforge/internal/retry"
)

// OutlineCmd drafts a new outline from a premise, or revises an existing one.
type OutlineCmd struct {
	Premise string `arg:"" optional:"" help:"Premise to draft the outline from"`
	Output  string `short:"o" default:"outline.md" help:"Outline file to write"`
	Revise  string `help:"Revision instructions applied to the existing outline file"`
	Persona string `help:"Author persona from authors_dir"`
}

func (o *OutlineCmd) Run(_ *Global, root *CLI) error {
	cfg, err := LoadAppConfig(root)
	if err != nil {
		return err
	}
	gen, err := NewGenerator(cfg, o.Persona)
	if err != nil {
		return err
	}

	var prompt string
	switch {
	case o.Revise != "":
		existing, err := os.ReadFile(o.Output)
		if err != nil {
			return fmt.Errorf("read outline for revision: %w", err)
		}
		prompt = llm.BuildOutlineRevisionPrompt(string(existing), o.Revise)
	case o.Premise != "":
		prompt = llm.BuildOutlinePrompt(o.Premise)
	default:
		return fmt.Errorf("either a premise argument or --revise is required")
	}

	ctx, cancel := SignalContext()
	defer cancel()

	var text string
	err = retry.Do(ctx, Policy(cfg), llm.IsTransient, func() error {
		var genErr error
		text, genErr = gen.Generate(ctx, prompt)
		return genErr
	})
	if err != nil {
		return fmt.Errorf("draft outline: %w", err)
	}

	// Reject drafts the writer would choke on later.
	if _, err := outline.Parse(text); err != nil {
		return fmt.Errorf("drafted outline is unusable: %w", err)
	}
	if err := os.WriteFile(o.Output, []byte(text+"\n"), 0o644); err != nil {
		return fmt.Errorf("write outline: %w", err)
	}
	fmt.Printf("Outline written to %s\n", o.Output)
	return nil
}
