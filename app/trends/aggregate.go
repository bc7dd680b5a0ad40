package trends

import (
	"cmp"
	"maps"
	"slices"
	"time"

	"github.com/lysyi3m/skills-monitor/app/posting"
)

// DefaultTopN is the number of skills shown when no limit is requested.
const DefaultTopN = 15

// ExplodeSkills yields one mention per (row, skill) pair.
func ExplodeSkills(rows []posting.Row) []Mention {
	mentions := make([]Mention, 0, len(rows))
	for _, row := range rows {
		for _, skill := range row.Skills {
			mentions = append(mentions, Mention{
				Skill:     skill,
				Source:    row.Source,
				Company:   posting.Value(row.Company),
				Timestamp: row.Timestamp(),
			})
		}
	}
	return mentions
}

func Counts(mentions []Mention) map[string]int {
	counts := make(map[string]int)
	for _, m := range mentions {
		counts[m.Skill]++
	}
	return counts
}

// TopN orders skills by count descending, then name ascending, and keeps
// at most n of them. n <= 0 keeps all.
func TopN(counts map[string]int, n int) []SkillCount {
	ranked := make([]SkillCount, 0, len(counts))
	for skill, count := range counts {
		ranked = append(ranked, SkillCount{Skill: skill, Count: count})
	}
	slices.SortFunc(ranked, func(a, b SkillCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Skill, b.Skill)
	})
	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// Trend counts mentions per skill per bucket. Only non-empty buckets are
// returned, ascending. Mentions without a timestamp are skipped.
func Trend(mentions []Mention, bucket Bucket) map[string][]Point {
	perSkill := make(map[string]map[time.Time]int)
	for _, m := range mentions {
		if m.Timestamp == nil {
			continue
		}
		start := BucketStart(*m.Timestamp, bucket)
		if perSkill[m.Skill] == nil {
			perSkill[m.Skill] = make(map[time.Time]int)
		}
		perSkill[m.Skill][start]++
	}

	series := make(map[string][]Point, len(perSkill))
	for skill, buckets := range perSkill {
		points := make([]Point, 0, len(buckets))
		for start, count := range buckets {
			points = append(points, Point{Bucket: start, Count: count})
		}
		slices.SortFunc(points, func(a, b Point) int {
			return a.Bucket.Compare(b.Bucket)
		})
		series[skill] = points
	}
	return series
}

// BucketStart truncates t to the start of its UTC day, or to Monday 00:00
// UTC of its ISO week.
func BucketStart(t time.Time, bucket Bucket) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	if bucket != Week {
		return day
	}
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

func Summarize(rows []posting.Row, mentions []Mention) Summary {
	companies := make(map[string]struct{})
	for _, row := range rows {
		if row.Company != nil {
			companies[*row.Company] = struct{}{}
		}
	}

	s := Summary{
		Rows:      len(rows),
		Companies: len(companies),
		Skills:    len(Counts(mentions)),
		Mentions:  len(mentions),
	}
	if start, end, ok := bounds(rows); ok {
		s.Window = &Window{Start: start, End: end}
	}
	return s
}

// DefaultWindow proposes the last days of data, clamped to the data's own
// bounds and aligned to whole UTC days.
func DefaultWindow(rows []posting.Row, days int) (Window, bool) {
	first, last, ok := bounds(rows)
	if !ok {
		return Window{}, false
	}
	end := BucketStart(last, Day).Add(24*time.Hour - time.Nanosecond)
	start := BucketStart(last, Day).AddDate(0, 0, -days)
	if floor := BucketStart(first, Day); start.Before(floor) {
		start = floor
	}
	return Window{Start: start, End: end}, true
}

// Recent returns up to limit rows, newest first. Rows without a timestamp
// sort last.
func Recent(rows []posting.Row, limit int) []posting.Row {
	sorted := slices.Clone(rows)
	slices.SortStableFunc(sorted, func(a, b posting.Row) int {
		ta, tb := a.Timestamp(), b.Timestamp()
		switch {
		case ta == nil && tb == nil:
			return 0
		case ta == nil:
			return 1
		case tb == nil:
			return -1
		}
		return tb.Compare(*ta)
	})
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

func BuildOptions(rows []posting.Row) Options {
	sources := make(map[string]struct{})
	companies := make(map[string]struct{})
	skills := make(map[string]struct{})
	for _, row := range rows {
		sources[row.Source] = struct{}{}
		if row.Company != nil {
			companies[*row.Company] = struct{}{}
		}
		for _, skill := range row.Skills {
			skills[skill] = struct{}{}
		}
	}
	return Options{
		Sources:   sortedKeys(sources),
		Companies: sortedKeys(companies),
		Skills:    sortedKeys(skills),
	}
}

func bounds(rows []posting.Row) (first, last time.Time, ok bool) {
	for _, row := range rows {
		ts := row.Timestamp()
		if ts == nil {
			continue
		}
		if !ok || ts.Before(first) {
			first = *ts
		}
		if !ok || ts.After(last) {
			last = *ts
		}
		ok = true
	}
	return first, last, ok
}

func sortedKeys(set map[string]struct{}) []string {
	return slices.Sorted(maps.Keys(set))
}
