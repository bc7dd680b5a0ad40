package trends

import (
	"github.com/lysyi3m/skills-monitor/app/posting"
	"golang.org/x/text/cases"
)

type Filterer struct{}

func NewFilterer() *Filterer {
	return &Filterer{}
}

// Run returns the rows matching every criterion of q, in input order.
func (f *Filterer) Run(rows []posting.Row, q Query) []posting.Row {
	fold := cases.Fold()
	sources := foldSet(fold, q.Sources)
	companies := foldSet(fold, q.Companies)
	skills := foldSet(fold, q.Skills)

	filtered := make([]posting.Row, 0, len(rows))
	for _, row := range rows {
		if !f.inWindow(row, q) {
			continue
		}
		if len(sources) > 0 && !sources[fold.String(row.Source)] {
			continue
		}
		if len(companies) > 0 && !companies[fold.String(posting.Value(row.Company))] {
			continue
		}
		if len(skills) > 0 && !hasAny(fold, row.Skills, skills) {
			continue
		}
		filtered = append(filtered, row)
	}

	return filtered
}

func (f *Filterer) inWindow(row posting.Row, q Query) bool {
	if q.Start == nil && q.End == nil {
		return true
	}
	ts := row.Timestamp()
	if ts == nil {
		return false
	}
	if q.Start != nil && ts.Before(*q.Start) {
		return false
	}
	if q.End != nil && ts.After(*q.End) {
		return false
	}
	return true
}

func foldSet(fold cases.Caser, values []string) map[string]bool {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[fold.String(v)] = true
	}
	return set
}

func hasAny(fold cases.Caser, values []string, set map[string]bool) bool {
	for _, v := range values {
		if set[fold.String(v)] {
			return true
		}
	}
	return false
}
