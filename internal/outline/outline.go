// Package outline parses a markdown outline into an ordered tree of
// generation units (chapters with section children).
package outline

import (
	"errors"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ErrMalformedOutline is returned when an outline contains no parseable headings.
var ErrMalformedOutline = errors.New("outline contains no headings")

// Kind classifies an outline node.
type Kind string

const (
	// KindChapter is a top-level generation unit.
	KindChapter Kind = "chapter"
	// KindSection is a focus beat inside a chapter.
	KindSection Kind = "section"
)

// Node is one entry of the parsed outline tree. Chapters carry a 1-based
// Number assigned in document order; sections are numbered within their
// parent chapter and do not consume chapter numbers.
type Node struct {
	Kind     Kind
	Title    string
	Depth    int
	Number   int
	Parent   string
	Children []*Node
}

// Parse turns outline text into an ordered sequence of chapter nodes.
// Classification is prefix-based ("Chapter", "Section") and independent of
// heading level; a heading with neither prefix starts a chapter when no
// chapter is open or when it sits at the top heading level, and otherwise
// attaches to the nearest enclosing chapter as a section.
func Parse(outlineText string) ([]*Node, error) {
	headings := extractHeadings([]byte(outlineText))
	if len(headings) == 0 {
		return nil, ErrMalformedOutline
	}

	minLevel := headings[0].level
	for _, h := range headings {
		if h.level < minLevel {
			minLevel = h.level
		}
	}

	var chapters []*Node
	var current *Node
	for _, h := range headings {
		kind := classify(h.title, h.level == minLevel, current != nil)
		switch kind {
		case KindChapter:
			current = &Node{
				Kind:   KindChapter,
				Title:  h.title,
				Depth:  h.level,
				Number: len(chapters) + 1,
			}
			chapters = append(chapters, current)
		case KindSection:
			section := &Node{
				Kind:   KindSection,
				Title:  h.title,
				Depth:  h.level,
				Number: len(current.Children) + 1,
				Parent: current.Title,
			}
			current.Children = append(current.Children, section)
		}
	}
	return chapters, nil
}

func classify(title string, topLevel, hasChapter bool) Kind {
	lower := strings.ToLower(title)
	switch {
	case strings.HasPrefix(lower, "chapter"):
		return KindChapter
	case strings.HasPrefix(lower, "section"):
		if !hasChapter {
			// A section with no enclosing chapter is promoted.
			return KindChapter
		}
		return KindSection
	case topLevel || !hasChapter:
		return KindChapter
	default:
		return KindSection
	}
}

type heading struct {
	level int
	title string
}

func extractHeadings(source []byte) []heading {
	md := goldmark.New()
	root := md.Parser().Parse(text.NewReader(source))

	var headings []heading
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		h, ok := n.(*gmast.Heading)
		if !ok {
			return gmast.WalkContinue, nil
		}
		title := strings.TrimSpace(nodeText(h, source))
		if title != "" {
			headings = append(headings, heading{level: h.Level, title: title})
		}
		return gmast.WalkSkipChildren, nil
	})
	return headings
}

// nodeText concatenates the literal text of a node's descendants, so a
// heading keeps its title through emphasis or inline code markers.
func nodeText(n gmast.Node, source []byte) string {
	var sb strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *gmast.Text:
			sb.Write(t.Segment.Value(source))
		case *gmast.String:
			sb.Write(t.Value)
		default:
			sb.WriteString(nodeText(c, source))
		}
	}
	return sb.String()
}

// Text renders the outline as an indented bullet list for prompt context.
func Text(chapters []*Node) string {
	var lines []string
	for _, ch := range chapters {
		lines = append(lines, "- "+ch.Title)
		for _, sec := range ch.Children {
			lines = append(lines, "  - "+sec.Title)
		}
	}
	return strings.Join(lines, "\n")
}

// DisplayTitle is the title used for filenames and metadata; sections are
// qualified by their parent chapter.
func (n *Node) DisplayTitle() string {
	if n.Kind == KindSection && n.Parent != "" {
		return n.Title + " (in " + n.Parent + ")"
	}
	return n.Title
}

// SectionTitles lists the titles of a chapter's sections in order.
func (n *Node) SectionTitles() []string {
	titles := make([]string, 0, len(n.Children))
	for _, sec := range n.Children {
		titles = append(titles, sec.Title)
	}
	return titles
}
