package expand

import "strings"

// BlockKind classifies a markdown block for expansion purposes.
type BlockKind string

const (
	// BlockParagraph is prose and the only expandable kind.
	BlockParagraph BlockKind = "paragraph"
	// BlockHeading passes through every pass untouched.
	BlockHeading BlockKind = "heading"
	// BlockBreak is a thematic break; it marks scene boundaries and is
	// never expanded.
	BlockBreak BlockKind = "break"
	// BlockVerbatim is a fenced code or quote block; preserved as-is.
	BlockVerbatim BlockKind = "verbatim"
)

// Block is one blank-line-delimited chunk of a unit file.
type Block struct {
	Kind BlockKind
	Text string
}

// Expandable reports whether the block may be rewritten.
func (b Block) Expandable() bool { return b.Kind == BlockParagraph }

// Split divides unit content into blocks on blank lines, keeping fenced
// code intact and classifying each block. Join(Split(x)) normalizes blank
// runs but preserves block order and content exactly.
func Split(content string) []Block {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	var blocks []Block
	var current []string
	inFence := false

	flush := func() {
		if len(current) == 0 {
			return
		}
		text := strings.Join(current, "\n")
		blocks = append(blocks, Block{Kind: classifyBlock(text), Text: text})
		current = nil
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
			current = append(current, line)
			if !inFence {
				flush()
			}
			continue
		}
		if inFence {
			current = append(current, line)
			continue
		}
		if trimmed == "" {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()
	return blocks
}

// Join renders blocks back to unit content with single blank lines between
// blocks and a trailing newline.
func Join(blocks []Block) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		parts = append(parts, b.Text)
	}
	return strings.Join(parts, "\n\n") + "\n"
}

func classifyBlock(text string) BlockKind {
	trimmed := strings.TrimSpace(text)
	switch {
	case strings.HasPrefix(trimmed, "#"):
		return BlockHeading
	case isThematicBreak(trimmed):
		return BlockBreak
	case strings.HasPrefix(trimmed, "```"), strings.HasPrefix(trimmed, ">"):
		return BlockVerbatim
	default:
		return BlockParagraph
	}
}

// isThematicBreak matches ---, ***, ___ and spaced variants like * * *.
func isThematicBreak(s string) bool {
	if s == "" {
		return false
	}
	stripped := strings.ReplaceAll(s, " ", "")
	if len(stripped) < 3 {
		return false
	}
	first := stripped[0]
	if first != '-' && first != '*' && first != '_' {
		return false
	}
	for i := 1; i < len(stripped); i++ {
		if stripped[i] != first {
			return false
		}
	}
	return true
}
