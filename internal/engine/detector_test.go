package engine

import (
	"strings"
	"testing"
)

func TestDetectSectionHeaderMatch(t *testing.T) {
	got := DetectSection("## Market Analysis\nOur target customers are small bakeries.")
	if got != "market_analysis" {
		t.Fatalf("DetectSection: want market_analysis got %q", got)
	}
}

func TestDetectSectionHeaderOutranksKeywords(t *testing.T) {
	// Plenty of market keywords, but an explicit funding header wins.
	text := "Funding Request\n" +
		strings.Repeat("Our competitors in this industry face heavy demand from every customer segment. ", 4)
	got := DetectSection(text)
	if got != "funding_request" {
		t.Fatalf("header should outrank keywords: want funding_request got %q", got)
	}
}

func TestDetectSectionHeaderCatalogOrderPriority(t *testing.T) {
	text := "We covered the market analysis and the executive summary today."
	if got := DetectSection(text); got != "executive_summary" {
		t.Fatalf("catalog order should break header ties: want executive_summary got %q", got)
	}
}

func TestDetectSectionKeywordFallback(t *testing.T) {
	text := "The target market for artisan bread keeps growing and the competitors nearby " +
		"are mostly chains with stale products. Local demand is strong, the customer segment " +
		"skews younger, and nothing similar exists within ten miles of downtown right now."
	if len(text) <= keywordMinTextLen {
		t.Fatalf("test text must exceed %d chars, got %d", keywordMinTextLen, len(text))
	}
	if got := DetectSection(text); got != "market_analysis" {
		t.Fatalf("keyword fallback: want market_analysis got %q", got)
	}
}

func TestDetectSectionKeywordFallbackNeedsLongText(t *testing.T) {
	short := "target market and competitors"
	if got := DetectSection(short); got != "" {
		t.Fatalf("short text should produce no keyword match, got %q", got)
	}
}

func TestDetectSectionKeywordFallbackNeedsTwoHits(t *testing.T) {
	text := "The competitors around here are all pretty slow to adapt. " +
		strings.Repeat("Nothing else in this paragraph points anywhere in particular. ", 4)
	if len(text) <= keywordMinTextLen {
		t.Fatalf("test text must exceed %d chars, got %d", keywordMinTextLen, len(text))
	}
	if got := DetectSection(text); got != "" {
		t.Fatalf("single keyword hit should not qualify, got %q", got)
	}
}

func TestDetectSectionEmpty(t *testing.T) {
	if got := DetectSection("   \n "); got != "" {
		t.Fatalf("blank input: want empty got %q", got)
	}
}

func TestExtractCandidatesSpans(t *testing.T) {
	text := "## Market Analysis\nSmall bakeries dominate this corridor.\n\n" +
		"## Funding Request\nWe are seeking fifty thousand dollars of startup capital."
	got := ExtractCandidates(text)
	ma, ok := got["market_analysis"]
	if !ok {
		t.Fatalf("market_analysis span missing: %v", got)
	}
	if strings.Contains(ma, "Funding") {
		t.Fatalf("market_analysis span should stop at next header, got %q", ma)
	}
	fr, ok := got["funding_request"]
	if !ok {
		t.Fatalf("funding_request span missing: %v", got)
	}
	if !strings.Contains(fr, "fifty thousand") {
		t.Fatalf("funding_request span should run to end of text, got %q", fr)
	}
}

func TestExtractCandidatesHeaderOnLastLine(t *testing.T) {
	got := ExtractCandidates("Let's fill in the ## Executive Summary")
	if _, ok := got["executive_summary"]; ok {
		t.Fatalf("a trailing header with no body should yield no span")
	}
}

func TestExtractCandidatesIdempotent(t *testing.T) {
	text := "## Executive Summary\nWe help small bakeries manage inventory with simple software."
	first := ExtractCandidates(text)
	second := ExtractCandidates(text)
	if len(first) != len(second) {
		t.Fatalf("extraction not stable: %d vs %d spans", len(first), len(second))
	}
	for id, span := range first {
		if second[id] != span {
			t.Fatalf("span for %s changed between runs: %q vs %q", id, span, second[id])
		}
	}
}
