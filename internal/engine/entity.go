package engine

import (
	"regexp"
	"strings"

	"github.com/planforge/planforge-backend/internal/domain/plan"
)

var entityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:business|company|startup|venture)\s+(?:is\s+)?(?:called|named)\s+"?([A-Z][A-Za-z0-9&' -]{1,40})"?`),
	regexp.MustCompile(`(?i)my\s+(?:business|company|startup)\s*,\s*([A-Z][A-Za-z0-9&' -]{1,40})\s*,`),
	regexp.MustCompile(`(?i)(?:we(?:'|a)?re|we are)\s+called\s+"?([A-Z][A-Za-z0-9&' -]{1,40})"?`),
}

// DetectBusinessName mines a business name out of the user's side of the
// conversation. The most recent match wins; no match yields "".
func DetectBusinessName(messages []plan.ConversationMessage) string {
	name := ""
	for _, m := range messages {
		if m.Role != plan.RoleUser {
			continue
		}
		for _, re := range entityPatterns {
			if match := re.FindStringSubmatch(m.Content); match != nil {
				candidate := strings.TrimSpace(strings.Trim(match[1], `"' .,`))
				if candidate != "" {
					name = candidate
				}
			}
		}
	}
	return name
}

// DocumentTitle derives a display title from a detected entity name.
func DocumentTitle(entityName string) string {
	entityName = strings.TrimSpace(entityName)
	if entityName == "" {
		return "Business Plan"
	}
	return entityName + " Business Plan"
}
