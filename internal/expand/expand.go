// Package expand grows existing chapter units by rewriting each paragraph
// into richer prose. Every pass preserves the unit's block structure:
// paragraph count and order never change, headings and breaks pass through.
package expand

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"git.home.luguber.info/inful/bookforge/internal/book"
	"git.home.luguber.info/inful/bookforge/internal/config"
	"git.home.luguber.info/inful/bookforge/internal/llm"
	"git.home.luguber.info/inful/bookforge/internal/metrics"
	"git.home.luguber.info/inful/bookforge/internal/retry"
)

// Engine runs expansion passes over a project's units.
type Engine struct {
	store     book.Store
	dir       string
	gen       llm.Generator
	policy    retry.Policy
	maxPasses int
	tone      string
	log       *slog.Logger
}

// NewEngine builds an expansion engine. The configured max_passes ceiling is
// a hard cap: expansion grows output on every pass and never converges, so
// requests beyond the ceiling are clamped.
func NewEngine(store book.Store, gen llm.Generator, policy retry.Policy, ec config.ExpandConfig, tone string) *Engine {
	max := ec.MaxPasses
	if max <= 0 {
		max = 8
	}
	return &Engine{
		store:     store,
		dir:       store.Root(),
		gen:       gen,
		policy:    policy,
		maxPasses: max,
		tone:      tone,
		log:       slog.Default().With("component", "expand"),
	}
}

// UnitReport describes the outcome of expanding one unit.
type UnitReport struct {
	Number      int
	Passes      int
	BytesBefore int
	BytesAfter  int
	NextSteps   []string
}

// Report summarizes an expansion run.
type Report struct {
	Units  []UnitReport
	Failed []int
}

// Run expands the selected units (all units when selection is empty) for
// the requested number of passes, clamped to the configured ceiling. A unit
// whose pass fails keeps the content of its last completed pass; the run
// continues with the remaining units.
func (e *Engine) Run(ctx context.Context, selection []int, passes int) (*Report, error) {
	if passes <= 0 {
		passes = 1
	}
	if passes > e.maxPasses {
		e.log.Warn("pass count clamped to ceiling", "requested", passes, "ceiling", e.maxPasses)
		passes = e.maxPasses
	}

	units, err := e.store.List()
	if err != nil {
		return nil, err
	}
	if len(units) == 0 {
		return nil, fmt.Errorf("no units to expand")
	}
	selected, err := selectUnits(units, selection)
	if err != nil {
		return nil, err
	}

	// Boundary context comes from a snapshot of the neighbors taken before
	// any rewriting, so every unit sees its neighbors' pre-run prose.
	// Neighbors are positional in the ordered unit list, so gaps in the
	// numbering don't lose edge context.
	edges, err := e.boundarySnapshot(units)
	if err != nil {
		return nil, err
	}
	prevOf := make(map[int]string, len(units))
	nextOf := make(map[int]string, len(units))
	for i, u := range units {
		if i > 0 {
			prevOf[u.Number] = edges[units[i-1].Number].last
		}
		if i < len(units)-1 {
			nextOf[u.Number] = edges[units[i+1].Number].first
		}
	}

	report := &Report{}
	var nextSteps []string
	for _, u := range selected {
		ur, err := e.expandUnit(ctx, u.Number, passes, prevOf[u.Number], nextOf[u.Number])
		if err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			e.log.Error("unit expansion failed", "number", u.Number, "error", err)
			report.Failed = append(report.Failed, u.Number)
			continue
		}
		report.Units = append(report.Units, ur)
		nextSteps = append(nextSteps, ur.NextSteps...)
	}
	if err := book.WriteNextSteps(e.dir, nextSteps); err != nil {
		return report, err
	}
	return report, nil
}

// boundary holds the outermost paragraphs of a unit, used as cross-unit
// context for its neighbors.
type boundary struct {
	first string
	last  string
}

func (e *Engine) boundarySnapshot(units []book.Unit) (map[int]boundary, error) {
	edges := make(map[int]boundary, len(units))
	for _, u := range units {
		read, err := e.store.Read(u.Number)
		if err != nil {
			return nil, err
		}
		blocks := Split(read.Content)
		var b boundary
		for _, blk := range blocks {
			if !blk.Expandable() {
				continue
			}
			if b.first == "" {
				b.first = blk.Text
			}
			b.last = blk.Text
		}
		edges[u.Number] = b
	}
	return edges, nil
}

func (e *Engine) expandUnit(ctx context.Context, number, passes int, prevEdge, nextEdge string) (UnitReport, error) {
	unit, err := e.store.Read(number)
	if err != nil {
		return UnitReport{}, err
	}
	blocks := Split(unit.Content)
	report := UnitReport{Number: number, BytesBefore: len(unit.Content)}

	for pass := 0; pass < passes; pass++ {
		expanded, err := e.expandPass(ctx, blocks, prevEdge, nextEdge)
		if err != nil {
			// The last completed pass is already persisted; nothing
			// from the failed pass reaches the store.
			return report, fmt.Errorf("pass %d: %w", pass+1, err)
		}
		blocks = expanded
		content := Join(blocks)
		if _, err := e.store.Write(number, unit.Title, content); err != nil {
			return report, err
		}
		metrics.ExpansionPasses.Inc()
		report.Passes = pass + 1
		report.BytesAfter = len(content)
		e.log.Info("expansion pass complete", "number", number, "pass", pass+1, "bytes", len(content))
	}

	// Expanded prose sometimes grows an "Implementation Details" section;
	// pull it out of the chapter and hand it to the run's nextsteps file.
	cleaned, sections := book.ExtractImplementationSections(Join(blocks))
	if len(sections) > 0 {
		if _, err := e.store.Write(number, unit.Title, cleaned); err != nil {
			return report, err
		}
		report.BytesAfter = len(cleaned)
		report.NextSteps = sections
	}
	return report, nil
}

// expandPass rewrites every paragraph of one pass. Neighbor context is
// taken from the pre-pass snapshot, not from already-rewritten blocks, so
// paragraphs within a pass see consistent context.
func (e *Engine) expandPass(ctx context.Context, snapshot []Block, prevEdge, nextEdge string) ([]Block, error) {
	result := make([]Block, len(snapshot))
	copy(result, snapshot)

	heading := ""
	for i, blk := range snapshot {
		if blk.Kind == BlockHeading {
			heading = strings.TrimSpace(strings.TrimLeft(blk.Text, "# "))
			continue
		}
		if !blk.Expandable() {
			continue
		}
		prev := neighborText(snapshot, i, -1, prevEdge)
		next := neighborText(snapshot, i, +1, nextEdge)

		prompt := llm.BuildExpandPrompt(blk.Text, prev, next, heading, e.tone)
		var text string
		err := retry.Do(ctx, e.policy, llm.IsTransient, func() error {
			var genErr error
			text, genErr = e.gen.Generate(ctx, prompt)
			return genErr
		})
		if err != nil {
			return nil, err
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, fmt.Errorf("empty expansion for paragraph %d", i+1)
		}
		result[i] = Block{Kind: BlockParagraph, Text: text}
	}
	return result, nil
}

// neighborText finds the nearest expandable block in the given direction,
// falling back to the adjacent unit's boundary paragraph at the edges.
func neighborText(blocks []Block, from, step int, edge string) string {
	for i := from + step; i >= 0 && i < len(blocks); i += step {
		if blocks[i].Expandable() {
			return blocks[i].Text
		}
	}
	return edge
}

// selectUnits resolves a selection against the unit list. Selections naming
// units that don't exist are rejected rather than silently dropped.
func selectUnits(units []book.Unit, selection []int) ([]book.Unit, error) {
	if len(selection) == 0 {
		return units, nil
	}
	present := make(map[int]bool, len(units))
	for _, u := range units {
		present[u.Number] = true
	}
	wanted := make(map[int]bool, len(selection))
	var missing []int
	for _, n := range selection {
		if wanted[n] {
			continue
		}
		wanted[n] = true
		if !present[n] {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("selection names units that don't exist: %v", missing)
	}
	var out []book.Unit
	for _, u := range units {
		if wanted[u.Number] {
			out = append(out, u)
		}
	}
	return out, nil
}

// ParseSelection parses a unit selection such as "1,3-5" or a unit
// filename like "002-the-reckoning.md" into numbers.
func ParseSelection(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var numbers []int
	for _, token := range strings.Split(s, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		if lo, hi, ok := strings.Cut(token, "-"); ok && !strings.HasSuffix(token, ".md") {
			start, err1 := strconv.Atoi(strings.TrimSpace(lo))
			end, err2 := strconv.Atoi(strings.TrimSpace(hi))
			if err1 != nil || err2 != nil || start <= 0 || end < start {
				return nil, fmt.Errorf("invalid selection range %q", token)
			}
			for n := start; n <= end; n++ {
				numbers = append(numbers, n)
			}
			continue
		}
		if n, err := strconv.Atoi(token); err == nil {
			if n <= 0 {
				return nil, fmt.Errorf("invalid unit number %q", token)
			}
			numbers = append(numbers, n)
			continue
		}
		n, ok := book.ParseFilename(token)
		if !ok {
			return nil, fmt.Errorf("invalid selection %q", token)
		}
		numbers = append(numbers, n)
	}
	return numbers, nil
}
