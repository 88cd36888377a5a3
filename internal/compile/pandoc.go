package compile

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"git.home.luguber.info/inful/bookforge/internal/book"
)

// EpubStylesheet is picked up automatically when present in the project dir.
const EpubStylesheet = "epub.css"

// OutputBaseName derives the deterministic typeset output base name from
// the book title ("The Reckoning" -> "TheReckoning").
func OutputBaseName(title string) string {
	return book.TitleWords(title)
}

// Typeset runs the external typesetter over the compiled document,
// producing PDF and EPUB next to it. A missing pandoc binary is logged and
// skipped rather than failing the compile: the assembled book.md is the
// primary artifact.
func (c *Compiler) Typeset(ctx context.Context, bookPath, title string) error {
	pandoc, err := exec.LookPath("pandoc")
	if err != nil {
		c.log.Warn("pandoc not found, skipping typeset", "error", err)
		return nil
	}
	base := OutputBaseName(title)

	pdfArgs := []string{
		bookPath,
		"-o", filepath.Join(c.dir, base+".pdf"),
		"--pdf-engine=xelatex",
		"-V", "documentclass=book",
		"-V", "geometry:margin=1in",
		"--resource-path", c.dir,
	}
	if err := c.runTypesetter(ctx, pandoc, pdfArgs, "pdf"); err != nil {
		return err
	}

	epubArgs := []string{
		bookPath,
		"-o", filepath.Join(c.dir, base+".epub"),
		"--resource-path", c.dir,
	}
	if css := filepath.Join(c.dir, EpubStylesheet); fileExists(css) {
		epubArgs = append(epubArgs, "--css", css)
	}
	if cover := filepath.Join(c.dir, CoverFilename); fileExists(cover) {
		epubArgs = append(epubArgs, "--epub-cover-image", cover)
	}
	return c.runTypesetter(ctx, pandoc, epubArgs, "epub")
}

func (c *Compiler) runTypesetter(ctx context.Context, pandoc string, args []string, format string) error {
	cmd := exec.CommandContext(ctx, pandoc, args...)
	cmd.Dir = c.dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("typeset %s: %w: %s", format, err, out)
	}
	c.log.Info("typeset complete", "format", format)
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
