package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/lysyi3m/skills-monitor/app/posting"
)

// WriteCSV writes rows in the persisted layout, optionally preceded by the header.
func WriteCSV(w io.Writer, rows []posting.Row, header bool) error {
	cw := csv.NewWriter(w)
	if header {
		if err := cw.Write(Columns); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}
	for _, row := range rows {
		if err := cw.Write(encodeRow(row)); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses rows in the persisted layout. Columns are located by
// header name; unknown columns are ignored.
func ReadCSV(r io.Reader) ([]posting.Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return []posting.Row{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}

	var rows []posting.Row
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", len(rows)+1, err)
		}
		field := func(name string) string {
			if i, ok := index[name]; ok && i < len(record) {
				return record[i]
			}
			return ""
		}
		rows = append(rows, decodeRow(field))
	}

	if rows == nil {
		rows = []posting.Row{}
	}
	return rows, nil
}

func encodeRow(row posting.Row) []string {
	return []string{
		row.Source,
		row.Title,
		posting.Value(row.Company),
		posting.Value(row.Location),
		formatPostedAt(row.Posting),
		posting.Value(row.URL),
		strings.Join(row.Skills, ","),
		formatTime(row.FetchedAt),
	}
}

func decodeRow(field func(string) string) posting.Row {
	p := posting.Normalize(posting.Raw{
		Source:   field("source"),
		Title:    field("title"),
		Company:  field("company"),
		Location: field("location"),
		PostedAt: field("posted_at"),
		URL:      field("url"),
	})
	p.Skills = SplitSkills(field("skills"))

	return posting.Row{Posting: p, FetchedAt: posting.ParseTime(field("fetched_at"))}
}

// SplitSkills splits a persisted skills cell, trimming and dropping empty tokens.
func SplitSkills(cell string) []string {
	skills := []string{}
	for _, token := range strings.Split(cell, ",") {
		if token = strings.TrimSpace(token); token != "" {
			skills = append(skills, token)
		}
	}
	return skills
}

// formatPostedAt writes the parsed time when there is one and the raw value
// otherwise, so nothing the source sent is lost.
func formatPostedAt(p posting.Posting) string {
	if p.PostedAt != nil {
		return formatTime(p.PostedAt)
	}
	return p.PostedAtRaw
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
