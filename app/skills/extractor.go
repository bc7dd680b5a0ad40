package skills

import (
	"regexp"
	"slices"
	"strings"
	"sync"
)

// Extractor finds skill mentions in posting text.
// Patterns for names outside the catalog are compiled on first use and kept.
type Extractor struct {
	adhoc sync.Map // name -> *regexp.Regexp
}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns the sorted, deduplicated, lowercase skills mentioned in
// text. When whitelist is empty the full catalog is scanned.
func (e *Extractor) Extract(text string, whitelist []string) []string {
	if text == "" {
		return []string{}
	}

	candidates := whitelist
	if len(candidates) == 0 {
		candidates = Catalog
	}

	found := make([]string, 0, 4)
	for _, candidate := range candidates {
		name := strings.ToLower(strings.TrimSpace(candidate))
		if name == "" {
			continue
		}
		if e.pattern(name).MatchString(text) {
			found = append(found, name)
		}
	}

	slices.Sort(found)
	return slices.Compact(found)
}

func (e *Extractor) pattern(name string) *regexp.Regexp {
	if re, ok := catalogPatterns[name]; ok {
		return re
	}
	if re, ok := e.adhoc.Load(name); ok {
		return re.(*regexp.Regexp)
	}
	re, _ := e.adhoc.LoadOrStore(name, compile(name))
	return re.(*regexp.Regexp)
}
