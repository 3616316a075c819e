package engine

import (
	"regexp"
	"strings"

	"github.com/planforge/planforge-backend/internal/catalog"
)

// keywordMinTextLen gates the keyword fallback: short messages rarely carry
// enough signal for a keyword vote to be meaningful.
const keywordMinTextLen = 200

// keywordMinHits is how many distinct keywords of one section must appear
// before that section qualifies in the fallback vote.
const keywordMinHits = 2

var markdownHeaderRe = regexp.MustCompile(`(?m)^[ \t]{0,3}#{1,6}[ \t]`)

// DetectSection returns the single best-matching catalog section id for a
// block of text, or "" when nothing matches. Header pattern matches always
// outrank keyword votes; ties resolve to the first section in catalog order.
func DetectSection(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	lower := strings.ToLower(text)

	for _, def := range catalog.Definitions() {
		if headerMatchIndex(lower, def) >= 0 {
			return def.ID
		}
	}

	if len(text) <= keywordMinTextLen {
		return ""
	}

	bestID := ""
	bestHits := 0
	for _, def := range catalog.Definitions() {
		hits := 0
		for _, kw := range def.Keywords {
			if strings.Contains(lower, kw) {
				hits++
			}
		}
		if hits >= keywordMinHits && hits > bestHits {
			bestID = def.ID
			bestHits = hits
		}
	}
	return bestID
}

// ExtractCandidates locates, per catalog section, the raw span of text that
// belongs to it. A span starts just after the matched header line and runs to
// the next markdown-style header token or the end of the text. The result is
// raw: callers clean it before treating it as document prose.
func ExtractCandidates(text string) map[string]string {
	out := make(map[string]string)
	if strings.TrimSpace(text) == "" {
		return out
	}
	lower := strings.ToLower(text)

	for _, def := range catalog.Definitions() {
		idx := headerMatchIndex(lower, def)
		if idx < 0 {
			continue
		}
		start := idx
		if nl := strings.IndexByte(text[idx:], '\n'); nl >= 0 {
			start = idx + nl + 1
		} else {
			// Header is the last line; nothing follows it.
			continue
		}
		end := len(text)
		if loc := markdownHeaderRe.FindStringIndex(text[start:]); loc != nil {
			end = start + loc[0]
		}
		span := strings.TrimSpace(text[start:end])
		if span != "" {
			out[def.ID] = span
		}
	}
	return out
}

// headerMatchIndex returns the byte offset of the earliest header pattern
// occurrence for a section, or -1. Patterns are ordered by priority, so the
// first pattern that matches anywhere wins.
func headerMatchIndex(lowerText string, def catalog.SectionDefinition) int {
	for _, pattern := range def.HeaderPatterns {
		if i := strings.Index(lowerText, strings.ToLower(pattern)); i >= 0 {
			return i
		}
	}
	return -1
}
