package skills

import (
	"regexp"
	"strings"
)

// Catalog is the fixed list of canonical skill names scanned when no
// whitelist is configured.
var Catalog = []string{
	"python", "sql", "pandas", "spark", "airflow", "databricks", "n8n",
	"puppeteer", "selenium", "aws", "gcp", "azure", "tableau", "power bi",
	"streamlit", "langchain", "llm", "rag", "mlflow", "dbt", "kafka",
}

var catalogPatterns = func() map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp, len(Catalog))
	for _, name := range Catalog {
		patterns[name] = compile(name)
	}
	return patterns
}()

// InCatalog reports whether name is a canonical catalog entry.
func InCatalog(name string) bool {
	_, ok := catalogPatterns[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// wordEdge stands in for \b, which RE2 only defines for ASCII.
const wordEdge = `[^\p{L}\p{M}\p{N}_]`

func compile(name string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(?:^|` + wordEdge + `)` + regexp.QuoteMeta(name) + `(?:` + wordEdge + `|$)`)
}
