package catalog

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// SectionDefinition is one immutable catalog entry. HeaderPatterns are
// literal header strings matched case-insensitively with highest priority;
// Keywords are lowercase phrases used as a fallback signal.
type SectionDefinition struct {
	ID             string   `yaml:"id"`
	Title          string   `yaml:"title"`
	HeaderPatterns []string `yaml:"header_patterns"`
	Keywords       []string `yaml:"keywords"`
}

//go:embed sections.yaml
var sectionsYAML []byte

var (
	loadOnce sync.Once
	defs     []SectionDefinition
	byID     map[string]SectionDefinition
	loadErr  error
)

func load() {
	loadOnce.Do(func() {
		var parsed []SectionDefinition
		if err := yaml.Unmarshal(sectionsYAML, &parsed); err != nil {
			loadErr = fmt.Errorf("parse section catalog: %w", err)
			return
		}
		index := make(map[string]SectionDefinition, len(parsed))
		for _, d := range parsed {
			if strings.TrimSpace(d.ID) == "" || strings.TrimSpace(d.Title) == "" {
				loadErr = fmt.Errorf("section catalog entry missing id or title: %+v", d)
				return
			}
			if len(d.HeaderPatterns) == 0 {
				loadErr = fmt.Errorf("section %q has no header patterns", d.ID)
				return
			}
			if _, dup := index[d.ID]; dup {
				loadErr = fmt.Errorf("duplicate section id %q in catalog", d.ID)
				return
			}
			for _, kw := range d.Keywords {
				if kw != strings.ToLower(kw) {
					loadErr = fmt.Errorf("section %q keyword %q must be lowercase", d.ID, kw)
					return
				}
			}
			index[d.ID] = d
		}
		defs = parsed
		byID = index
	})
}

// Definitions returns all catalog entries in canonical order.
func Definitions() []SectionDefinition {
	load()
	if loadErr != nil {
		panic(loadErr)
	}
	out := make([]SectionDefinition, len(defs))
	copy(out, defs)
	return out
}

func ByID(id string) (SectionDefinition, bool) {
	load()
	if loadErr != nil {
		panic(loadErr)
	}
	d, ok := byID[id]
	return d, ok
}

func IDs() []string {
	load()
	if loadErr != nil {
		panic(loadErr)
	}
	out := make([]string, 0, len(defs))
	for _, d := range defs {
		out = append(out, d.ID)
	}
	return out
}

func Count() int {
	load()
	if loadErr != nil {
		panic(loadErr)
	}
	return len(defs)
}
