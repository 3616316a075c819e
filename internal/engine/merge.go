package engine

import (
	"github.com/planforge/planforge-backend/internal/domain/plan"
)

// Merge thresholds. Manual content above manualProtectMin chars is treated
// as a real human investment; an AI candidate above aiAdoptAlways chars is
// substantial enough to replace it regardless.
const (
	manualProtectMin = 50
	aiAdoptAlways    = 500
)

// Resolution is the outcome of merging one candidate into one section.
type Resolution struct {
	Content string
	Origin  plan.SectionOrigin
	Adopted bool
}

// ResolveAI decides whether a freshly cleaned AI extraction replaces the
// section's current content. While the section is under a local edit lock the
// current content always survives. Otherwise the candidate wins when the
// section has no protected manual content, when the candidate is strictly
// longer, or when the candidate is substantial on its own.
func ResolveAI(currentContent string, currentOrigin plan.SectionOrigin, candidate string, locked bool) Resolution {
	keep := Resolution{Content: currentContent, Origin: currentOrigin, Adopted: false}
	if locked || candidate == "" {
		return keep
	}

	hasManualContent := currentOrigin == plan.OriginManual && len(currentContent) > manualProtectMin
	aiIsLonger := len(candidate) > len(currentContent)

	if !hasManualContent || aiIsLonger || len(candidate) > aiAdoptAlways {
		return Resolution{Content: candidate, Origin: plan.OriginAI, Adopted: true}
	}
	return keep
}

// ResolveRemote applies a section update pushed from another session. Remote
// content is adopted unconditionally, stamped with the origin it arrived
// with, unless the target section is under a local edit lock.
func ResolveRemote(currentContent string, currentOrigin plan.SectionOrigin, remoteContent string, remoteOrigin plan.SectionOrigin, locked bool) Resolution {
	if locked {
		return Resolution{Content: currentContent, Origin: currentOrigin, Adopted: false}
	}
	if remoteOrigin != plan.OriginManual && remoteOrigin != plan.OriginAI {
		remoteOrigin = plan.OriginAI
	}
	return Resolution{Content: remoteContent, Origin: remoteOrigin, Adopted: true}
}
