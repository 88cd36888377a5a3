// Package compile assembles a project's unit files into a single publishable
// document and drives the external typesetter. Assembly is deterministic and
// read-only with respect to unit files: compiling twice with unchanged inputs
// produces byte-identical output.
package compile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/bookforge/internal/book"
)

// BookFilename is the compiled document written into the project directory.
const BookFilename = "book.md"

// CoverFilename is the cover image the assembler embeds when present.
const CoverFilename = "cover.png"

// Compiler assembles unit files into the compiled document.
type Compiler struct {
	store book.Store
	dir   string
	log   *slog.Logger
	// now is injected so copyright years are stable in tests.
	now func() time.Time
}

// New builds a compiler over a project store.
func New(store book.Store) *Compiler {
	return &Compiler{
		store: store,
		dir:   store.Root(),
		log:   slog.Default().With("component", "compile"),
		now:   time.Now,
	}
}

// Assemble produces the compiled document from the project's current state:
// front matter, cover and title pages, a copyright page, the table of
// contents, every unit in number order, and the back cover synopsis.
func (c *Compiler) Assemble() (string, error) {
	meta, err := book.EnsureChapters(c.dir, c.store)
	if err != nil {
		return "", err
	}
	units, err := c.store.List()
	if err != nil {
		return "", err
	}
	if len(units) == 0 {
		return "", fmt.Errorf("no units to compile")
	}

	title := meta.Title
	if title == "" {
		title = "Untitled"
	}
	lang := meta.Language
	if lang == "" {
		lang = "en"
	}
	titlesByNumber := make(map[int]string, len(meta.Chapters))
	for _, ch := range meta.Chapters {
		titlesByNumber[ch.Number] = ch.Title
	}

	var sb strings.Builder
	sb.WriteString(frontMatter(title, meta.Author, lang))

	if c.hasFile(CoverFilename) {
		sb.WriteString(coverPage(CoverFilename))
	}
	sb.WriteString(titlePage(title, meta.Author))
	sb.WriteString(copyrightPage(meta.Author, c.now().Year()))
	sb.WriteString(contentsPage(units, titlesByNumber))

	for _, u := range units {
		read, err := c.store.Read(u.Number)
		if err != nil {
			return "", err
		}
		chTitle := titlesByNumber[u.Number]
		if chTitle == "" {
			chTitle = read.Title
		}
		sb.WriteString(chapterSection(u.Number, chTitle, read.Content))
	}

	if synopsis := c.readSynopsis(); synopsis != "" {
		sb.WriteString("\n\\newpage\n\n")
		sb.WriteString("# Back Cover {.unnumbered}\n\n")
		sb.WriteString(EscapeLaTeX(StripUnsafe(synopsis)))
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// Write assembles the document and persists it as book.md, returning its path.
func (c *Compiler) Write() (string, error) {
	content, err := c.Assemble()
	if err != nil {
		return "", err
	}
	path := filepath.Join(c.dir, BookFilename)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", BookFilename, err)
	}
	c.log.Info("book assembled", "path", path, "bytes", len(content))
	return path, nil
}

func (c *Compiler) hasFile(name string) bool {
	_, err := os.Stat(filepath.Join(c.dir, name))
	return err == nil
}

func (c *Compiler) readSynopsis() string {
	data, err := os.ReadFile(filepath.Join(c.dir, "back-cover-synopsis.md"))
	if err != nil {
		return ""
	}
	_, body := StripLeadingHeading(string(data))
	return strings.TrimSpace(body)
}

func frontMatter(title, author, lang string) string {
	var sb strings.Builder
	sb.WriteString("---\n")
	sb.WriteString("title-meta: " + yamlQuote(title) + "\n")
	if author != "" {
		sb.WriteString("author-meta: " + yamlQuote(author) + "\n")
	}
	sb.WriteString("lang: " + yamlQuote(lang) + "\n")
	sb.WriteString("header-includes:\n")
	sb.WriteString("  - \\usepackage{fvextra}\n")
	sb.WriteString("  - \\sloppy\n")
	sb.WriteString("---\n\n")
	return sb.String()
}

// coverPage embeds the cover as a full page for the PDF and as plain
// markdown for reflowable formats.
func coverPage(cover string) string {
	return "```{=latex}\n" +
		"\\begin{titlepage}\n" +
		"\\centering\n" +
		"\\includegraphics[width=\\textwidth,height=\\textheight,keepaspectratio]{" + cover + "}\n" +
		"\\end{titlepage}\n" +
		"```\n\n" +
		"```{=html}\n" +
		"<figure class=\"cover\"><img src=\"" + cover + "\" alt=\"Cover\"/></figure>\n" +
		"```\n\n"
}

func titlePage(title, author string) string {
	var sb strings.Builder
	sb.WriteString("```{=latex}\n\\begin{titlepage}\n\\centering\n\\vspace*{\\fill}\n")
	sb.WriteString("{\\Huge " + EscapeLaTeX(title) + "}\\par\n")
	if author != "" {
		sb.WriteString("\\vspace{2em}\n{\\Large " + EscapeLaTeX(author) + "}\\par\n")
	}
	sb.WriteString("\\vspace*{\\fill}\n\\end{titlepage}\n```\n\n")
	sb.WriteString("# " + EscapeLaTeX(title) + " {.unnumbered}\n\n")
	if author != "" {
		sb.WriteString("by " + EscapeLaTeX(author) + "\n\n")
	}
	return sb.String()
}

func copyrightPage(author string, year int) string {
	holder := author
	if holder == "" {
		holder = "the author"
	}
	return "\\newpage\n\n" +
		fmt.Sprintf("Copyright © %d %s. All rights reserved.\n\n", year, EscapeLaTeX(holder)) +
		"This is a work of fiction. Names, characters, places, and incidents " +
		"are products of the author's imagination or are used fictitiously.\n\n"
}

// contentsPage renders the table of contents with stable chapter anchors
// keyed by unit number, so links survive title renames.
func contentsPage(units []book.Unit, titles map[int]string) string {
	var sb strings.Builder
	sb.WriteString("\\newpage\n\n# Contents {.unnumbered}\n\n")
	for _, u := range units {
		title := titles[u.Number]
		if title == "" {
			title = u.Title
		}
		sb.WriteString(fmt.Sprintf("- [%s](#chapter-%d)\n", EscapeLaTeX(title), u.Number))
	}
	sb.WriteString("\n")
	return sb.String()
}

// chapterSection renders one unit: its own leading heading is replaced by a
// numbered anchor heading, stray metadata-style breaks are normalized, and
// the prose is sanitized for the typesetter.
func chapterSection(number int, title, content string) string {
	_, body := StripLeadingHeading(StripFrontMatter(content))
	body = normalizeBreaks(body)
	body = escapeProse(StripUnsafe(body))
	return fmt.Sprintf("\n\\newpage\n\n# %s {#chapter-%d}\n\n%s\n",
		EscapeLaTeX(title), number, strings.TrimSpace(body))
}
