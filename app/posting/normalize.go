package posting

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
)

// blockElements get a trailing space before their text is read so that
// adjacent paragraphs do not run into each other.
const blockElements = "p,div,br,li,ul,ol,tr,td,th,h1,h2,h3,h4,h5,h6,section,article,header,footer"

// Normalize converts a raw posting into its canonical form. It never fails:
// missing or malformed fields fall back to defaults.
func Normalize(raw Raw) Posting {
	p := Posting{
		Source:      cleanSource(raw.Source),
		Title:       strings.TrimSpace(raw.Title),
		Company:     optional(raw.Company),
		Location:    optional(raw.Location),
		PostedAtRaw: strings.TrimSpace(raw.PostedAt),
		URL:         optional(raw.URL),
		Skills:      []string{},
	}

	p.PostedAt = ParseTime(p.PostedAtRaw)

	switch {
	case raw.DescriptionText != "":
		p.Text = CollapseWhitespace(raw.DescriptionText)
	case raw.DescriptionHTML != "":
		p.Text = CollapseWhitespace(HTMLText(raw.DescriptionHTML))
	}

	return p
}

// ParseTime leniently parses a timestamp into UTC. Unparseable or empty
// input yields nil.
func ParseTime(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	t, err := dateparse.ParseIn(value, time.UTC)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

// HTMLText reduces markup to its text content. Input that cannot be parsed
// is returned unchanged.
func HTMLText(markup string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return markup
	}
	doc.Find("script,style").Remove()
	doc.Find(blockElements).AppendHtml(" ")
	return doc.Text()
}

// CollapseWhitespace replaces every whitespace run with one space and trims.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func cleanSource(source string) string {
	if source = strings.TrimSpace(source); source == "" {
		return DefaultSource
	}
	return source
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
