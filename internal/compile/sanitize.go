package compile

import (
	"strings"
	"unicode"
)

// latexSpecials are characters the PDF typesetter treats as markup when they
// appear in prose. Escaping is suppressed inside inline code spans and math
// segments, which carry their own rules.
var latexSpecials = map[rune]string{
	'&': `\&`,
	'%': `\%`,
	'#': `\#`,
	'_': `\_`,
}

// EscapeLaTeX escapes typesetter-special characters in markdown prose while
// leaving inline code spans (backticks) and math segments (dollar signs)
// untouched.
func EscapeLaTeX(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))
	inCode := false
	inMath := false
	for _, r := range text {
		switch {
		case r == '`' && !inMath:
			inCode = !inCode
			sb.WriteRune(r)
		case r == '$' && !inCode:
			inMath = !inMath
			sb.WriteRune(r)
		case inCode || inMath:
			sb.WriteRune(r)
		default:
			if esc, ok := latexSpecials[r]; ok {
				sb.WriteString(esc)
			} else {
				sb.WriteRune(r)
			}
		}
	}
	return sb.String()
}

// StripUnsafe removes control characters and unpaired surrogates that break
// downstream typesetters, keeping newlines and tabs.
func StripUnsafe(text string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) || !unicode.IsGraphic(r) && r != ' ' {
			return -1
		}
		if r >= 0xD800 && r <= 0xDFFF {
			return -1
		}
		return r
	}, text)
}

// StripFrontMatter removes a leading YAML metadata block from externally
// edited unit content; the assembler emits the document's single front
// matter block itself.
func StripFrontMatter(content string) string {
	trimmed := strings.TrimLeft(content, "\n \t")
	if !strings.HasPrefix(trimmed, "---\n") {
		return content
	}
	rest := trimmed[len("---\n"):]
	if idx := strings.Index(rest, "\n---"); idx >= 0 {
		after := rest[idx+len("\n---"):]
		return strings.TrimLeft(after, "-\n")
	}
	return content
}

// StripLeadingHeading removes the unit's first line when it is a heading,
// returning the heading title and the remaining body.
func StripLeadingHeading(content string) (title, body string) {
	content = strings.TrimLeft(content, "\n \t")
	lines := strings.SplitN(content, "\n", 2)
	first := strings.TrimSpace(lines[0])
	if strings.HasPrefix(first, "#") {
		title = strings.TrimSpace(strings.TrimLeft(first, "# "))
		if len(lines) == 2 {
			body = strings.TrimLeft(lines[1], "\n")
		}
		return title, body
	}
	return "", content
}

// escapeProse applies EscapeLaTeX line by line, leaving fenced blocks
// untouched. Fence markers themselves pass through unescaped.
func escapeProse(body string) string {
	lines := strings.Split(body, "\n")
	inFence := false
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
			continue
		}
		if !inFence {
			lines[i] = EscapeLaTeX(line)
		}
	}
	return strings.Join(lines, "\n")
}

// yamlQuote renders a string as a double-quoted YAML scalar.
func yamlQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

// normalizeBreaks rewrites bare thematic break lines to the spaced form so
// the typesetter cannot mistake a mid-unit "---" for metadata or a heading
// underline.
func normalizeBreaks(body string) string {
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		t := strings.TrimSpace(line)
		if t == "---" || t == "***" || t == "___" {
			lines[i] = "* * *"
		}
	}
	return strings.Join(lines, "\n")
}
