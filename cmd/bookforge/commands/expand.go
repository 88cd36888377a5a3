package commands

import (
	"fmt"
	"log/slog"

	"git.home.luguber.info/inful/bookforge/internal/expand"
	"git.home.luguber.info/inful/bookforge/internal/llm"
)

// ExpandCmd implements the 'expand' command.
type ExpandCmd struct {
	Dir     string `arg:"" help:"Project directory"`
	Units   string `short:"u" help:"Unit selection, e.g. \"1,3-5\" or a unit filename (default: all)"`
	Passes  int    `short:"p" default:"1" help:"Expansion passes to run (clamped to expand.max_passes)"`
	Persona string `help:"Author persona from authors_dir"`
	Tone    string `help:"Tone preface from tones_dir"`
}

func (e *ExpandCmd) Run(_ *Global, root *CLI) error {
	cfg, err := LoadAppConfig(root)
	if err != nil {
		return err
	}
	store, err := OpenStore(e.Dir)
	if err != nil {
		return err
	}
	gen, err := NewGenerator(cfg, e.Persona)
	if err != nil {
		return err
	}
	tone, err := llm.LoadTone(cfg.Generation, e.Tone)
	if err != nil {
		return err
	}
	selection, err := expand.ParseSelection(e.Units)
	if err != nil {
		return err
	}

	ctx, cancel := SignalContext()
	defer cancel()

	engine := expand.NewEngine(store, gen, Policy(cfg), cfg.Expand, tone)
	report, err := engine.Run(ctx, selection, e.Passes)
	if err != nil {
		return err
	}
	for _, u := range report.Units {
		slog.Info("unit expanded", "number", u.Number, "passes", u.Passes,
			"bytes_before", u.BytesBefore, "bytes_after", u.BytesAfter)
	}
	fmt.Printf("Expanded %d unit(s)\n", len(report.Units))
	if len(report.Failed) > 0 {
		return fmt.Errorf("%d unit(s) failed and kept their previous content: %v", len(report.Failed), report.Failed)
	}
	return nil
}
