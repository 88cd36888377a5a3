package book

import (
	"encoding/json"
	"regexp"
	"strings"
)

// GenreLimit caps how many genres a book records.
const GenreLimit = 3

var (
	jsonBlockRe    = regexp.MustCompile(`(?s)(\{.*\}|\[.*\])`)
	genreLeadingRe = regexp.MustCompile(`^[\s*\-•]+`)
	genreSpacesRe  = regexp.MustCompile(`\s+`)
	genreSplitRe   = regexp.MustCompile(`[,/;\n]`)
)

// ParseGenres extracts up to GenreLimit genre strings from a model
// response. The model is asked for JSON but routinely wraps it in prose or
// returns a bare list, so parsing is tolerant: try the whole response as
// JSON, then the first embedded JSON block, then plain separator splitting.
func ParseGenres(response string) []string {
	trimmed := strings.TrimSpace(response)
	if parsed := extractJSON(trimmed); parsed != nil {
		if genres := coerceGenres(parsed); len(genres) > 0 {
			return capGenres(genres)
		}
		return nil
	}
	return capGenres(uniqueGenres(splitGenres(trimmed)))
}

// SetGenres records normalized genres on the record; the first becomes the
// primary genre.
func (m *MetaRecord) SetGenres(genres []string) {
	normalized := capGenres(uniqueGenres(genres))
	if len(normalized) == 0 {
		return
	}
	m.Genres = normalized
	m.PrimaryGenre = normalized[0]
}

func extractJSON(text string) any {
	if text == "" {
		return nil
	}
	if strings.HasPrefix(text, "{") || strings.HasPrefix(text, "[") {
		var v any
		if err := json.Unmarshal([]byte(text), &v); err == nil {
			return v
		}
	}
	if m := jsonBlockRe.FindString(text); m != "" {
		var v any
		if err := json.Unmarshal([]byte(m), &v); err == nil {
			return v
		}
	}
	return nil
}

func coerceGenres(data any) []string {
	switch v := data.(type) {
	case []any:
		return uniqueGenres(stringify(v))
	case map[string]any:
		switch g := v["genres"].(type) {
		case []any:
			return uniqueGenres(stringify(g))
		case string:
			return uniqueGenres(splitGenres(g))
		}
	case string:
		return uniqueGenres(splitGenres(v))
	}
	return nil
}

func stringify(values []any) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func splitGenres(value string) []string {
	var out []string
	for _, chunk := range genreSplitRe.Split(value, -1) {
		if c := strings.TrimSpace(chunk); c != "" {
			out = append(out, c)
		}
	}
	return out
}

func normalizeGenre(value string) string {
	cleaned := genreLeadingRe.ReplaceAllString(strings.TrimSpace(value), "")
	cleaned = genreSpacesRe.ReplaceAllString(cleaned, " ")
	return strings.TrimRight(cleaned, ",.;")
}

func uniqueGenres(values []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range values {
		cleaned := normalizeGenre(v)
		if cleaned == "" || seen[cleaned] {
			continue
		}
		seen[cleaned] = true
		out = append(out, cleaned)
	}
	return out
}

func capGenres(genres []string) []string {
	if len(genres) > GenreLimit {
		return genres[:GenreLimit]
	}
	return genres
}
