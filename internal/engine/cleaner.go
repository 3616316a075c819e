package engine

import (
	"regexp"
	"strings"
)

// Acceptance thresholds for cleaned content. Anything under these is treated
// as "no usable content" rather than an error.
const (
	minCleanedChars = 50
	minCleanedWords = 10
)

var (
	boldTokenRe    = regexp.MustCompile(`\*\*|__`)
	headingTokenRe = regexp.MustCompile(`(?m)^[ \t]{0,3}#{1,6}[ \t]*`)
	blankRunRe     = regexp.MustCompile(`\n{3,}`)
)

// instructionalPhrases is the denylist of conversational filler that
// assistant replies interleave with actual document prose. Matching is
// case-insensitive substring.
var instructionalPhrases = []string{
	"let me know",
	"would you like",
	"here's what i recommend",
	"i recommend",
	"i suggest",
	"feel free to",
	"hope this helps",
	"happy to help",
	"great question",
	"good question",
	"of course",
	"please share",
	"please provide",
	"tell me more",
	"to get started",
	"we can work on",
	"shall we",
	"hello",
	"hi there",
}

// interrogativeWords flag a sentence as a question when it opens with one.
var interrogativeWords = []string{
	"what", "how", "why", "would", "could", "can", "do", "does", "did",
	"is", "are", "will", "should", "shall", "may", "where", "when",
	"who", "which", "have", "has",
}

// CleanContent turns a raw matched span into document prose. It strips
// formatting tokens, drops question and filler sentences, and rejoins the
// survivors. The second return is false when the result is too weak to use
// as a section candidate.
func CleanContent(raw string) (string, bool) {
	text := boldTokenRe.ReplaceAllString(raw, "")
	text = headingTokenRe.ReplaceAllString(text, "")
	text = blankRunRe.ReplaceAllString(text, "\n\n")

	kept := make([]string, 0, 8)
	for _, s := range splitSentences(text) {
		if s.isQuestion() || isInstructional(s.text) {
			continue
		}
		trimmed := strings.TrimSpace(s.text)
		if trimmed == "" {
			continue
		}
		kept = append(kept, trimmed)
	}
	if len(kept) == 0 {
		return "", false
	}

	joined := strings.Join(kept, ". ") + "."
	if len(joined) <= minCleanedChars {
		return "", false
	}
	if len(strings.Fields(joined)) <= minCleanedWords {
		return "", false
	}
	return joined, true
}

type sentence struct {
	text       string
	terminator byte
}

func (s sentence) isQuestion() bool {
	if s.terminator == '?' || strings.ContainsRune(s.text, '?') {
		return true
	}
	fields := strings.Fields(strings.ToLower(s.text))
	if len(fields) == 0 {
		return false
	}
	first := strings.Trim(fields[0], `"'(`)
	for _, w := range interrogativeWords {
		if first == w {
			return true
		}
	}
	return false
}

func isInstructional(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range instructionalPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// splitSentences cuts on ., ! and ?, remembering each sentence's terminator
// so question detection still works after the split.
func splitSentences(text string) []sentence {
	var out []sentence
	var b strings.Builder
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch c {
		case '.', '!', '?':
			out = append(out, sentence{text: b.String(), terminator: c})
			b.Reset()
		default:
			b.WriteByte(c)
		}
	}
	if rest := strings.TrimSpace(b.String()); rest != "" {
		out = append(out, sentence{text: rest})
	}
	return out
}
