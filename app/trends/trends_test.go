package trends

import (
	"testing"
	"time"

	"github.com/lysyi3m/skills-monitor/app/posting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) *time.Time {
	t := time.Date(2024, 3, d, 12, 0, 0, 0, time.UTC)
	return &t
}

func str(s string) *string {
	return &s
}

func row(source, company string, at *time.Time, skills ...string) posting.Row {
	r := posting.Row{Posting: posting.Posting{Source: source, Skills: skills}, FetchedAt: at}
	if company != "" {
		r.Company = str(company)
	}
	return r
}

func TestCountsAndExplode(t *testing.T) {
	rows := []posting.Row{
		row("lever", "Acme", day(1), "python", "sql"),
		row("greenhouse", "Beta", day(2), "python"),
	}

	mentions := ExplodeSkills(rows)
	assert.Len(t, mentions, 3)
	assert.Equal(t, map[string]int{"python": 2, "sql": 1}, Counts(mentions))
}

func TestExplodeCountMatchesRowsContainingSkill(t *testing.T) {
	rows := []posting.Row{
		row("a", "", nil, "aws", "kafka"),
		row("a", "", nil, "kafka"),
		row("b", "", nil),
		row("b", "", nil, "aws", "dbt", "kafka"),
	}

	counts := Counts(ExplodeSkills(rows))
	for skill, count := range counts {
		containing := 0
		for _, r := range rows {
			for _, s := range r.Skills {
				if s == skill {
					containing++
				}
			}
		}
		assert.Equal(t, containing, count, skill)
	}
	assert.Equal(t, 3, counts["kafka"])
}

func TestTopN(t *testing.T) {
	counts := map[string]int{"a": 3, "b": 3, "c": 1}

	top := TopN(counts, 2)
	assert.Equal(t, []SkillCount{{"a", 3}, {"b", 3}}, top)

	all := TopN(counts, 0)
	assert.Equal(t, []SkillCount{{"a", 3}, {"b", 3}, {"c", 1}}, all)

	assert.Empty(t, TopN(map[string]int{}, 5))
}

func TestFilterIsConjunctive(t *testing.T) {
	rows := []posting.Row{
		row("lever", "Acme", day(1), "python"),
		row("lever", "Beta", day(1), "python"),
		row("greenhouse", "Acme", day(1), "python"),
		row("lever", "Acme", day(1), "sql"),
	}

	got := NewFilterer().Run(rows, Query{
		Sources:   []string{"LEVER"},
		Companies: []string{"acme"},
		Skills:    []string{"Python"},
	})
	require.Len(t, got, 1)
	assert.Equal(t, rows[0], got[0])
}

func TestFilterEmptyQueryKeepsEverything(t *testing.T) {
	rows := []posting.Row{row("a", "", nil), row("b", "X", day(3), "sql")}
	assert.Equal(t, rows, NewFilterer().Run(rows, Query{}))
}

func TestFilterWindow(t *testing.T) {
	posted := day(2)
	rows := []posting.Row{
		row("a", "", day(1)),
		row("a", "", day(5)),
		row("a", "", day(9)),
		row("a", "", nil),
		{Posting: posting.Posting{Source: "b", PostedAt: posted}},
	}

	start, end := *day(2), *day(5)
	got := NewFilterer().Run(rows, Query{Start: &start, End: &end})

	require.Len(t, got, 2)
	assert.Equal(t, day(5), got[0].FetchedAt)
	assert.Equal(t, "b", got[1].Source)
}

func TestFilterUnicodeFolding(t *testing.T) {
	rows := []posting.Row{row("lever", "Straße GmbH", nil)}
	got := NewFilterer().Run(rows, Query{Companies: []string{"STRASSE GMBH"}})
	assert.Len(t, got, 1)
}

func TestTrend(t *testing.T) {
	// 2024-03-04 is a Monday.
	mentions := ExplodeSkills([]posting.Row{
		row("a", "", day(4), "python"),
		row("a", "", day(6), "python"),
		row("a", "", day(10), "python", "sql"),
		row("a", "", day(11), "python"),
		row("a", "", nil, "python"),
	})

	weekly := Trend(mentions, Week)
	monday := func(d int) time.Time { return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC) }
	assert.Equal(t, []Point{{monday(4), 3}, {monday(11), 1}}, weekly["python"])
	assert.Equal(t, []Point{{monday(4), 1}}, weekly["sql"])

	daily := Trend(mentions, Day)
	require.Len(t, daily["python"], 4)
	for i := 1; i < len(daily["python"]); i++ {
		assert.True(t, daily["python"][i-1].Bucket.Before(daily["python"][i].Bucket))
	}
}

func TestBucketStart(t *testing.T) {
	sunday := time.Date(2024, 3, 10, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), BucketStart(sunday, Week))
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), BucketStart(sunday, Day))

	shifted := time.Date(2024, 3, 11, 1, 0, 0, 0, time.FixedZone("CET", 3600))
	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), BucketStart(shifted, Day))
	assert.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), BucketStart(time.Date(2024, 3, 11, 0, 30, 0, 0, time.FixedZone("CET", 3600)), Week))
}

func TestParseBucket(t *testing.T) {
	b, err := ParseBucket("")
	require.NoError(t, err)
	assert.Equal(t, Day, b)

	b, err = ParseBucket("week")
	require.NoError(t, err)
	assert.Equal(t, Week, b)

	_, err = ParseBucket("month")
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	rows := []posting.Row{
		row("lever", "Acme", day(1), "python", "sql"),
		row("lever", "Acme", day(3), "python"),
		row("rss", "", day(2)),
	}
	s := Summarize(rows, ExplodeSkills(rows))

	assert.Equal(t, 3, s.Rows)
	assert.Equal(t, 1, s.Companies)
	assert.Equal(t, 2, s.Skills)
	assert.Equal(t, 3, s.Mentions)
	require.NotNil(t, s.Window)
	assert.Equal(t, *day(1), s.Window.Start)
	assert.Equal(t, *day(3), s.Window.End)

	assert.Nil(t, Summarize(nil, nil).Window)
}

func TestDefaultWindow(t *testing.T) {
	_, ok := DefaultWindow(nil, 30)
	assert.False(t, ok)

	short, ok := DefaultWindow([]posting.Row{row("a", "", day(5)), row("a", "", day(9))}, 30)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), short.Start)
	assert.Equal(t, time.Date(2024, 3, 9, 23, 59, 59, 999999999, time.UTC), short.End)

	long, ok := DefaultWindow([]posting.Row{row("a", "", day(1)), row("a", "", day(20))}, 7)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC), long.Start)
}

func TestRecent(t *testing.T) {
	rows := []posting.Row{
		row("old", "", day(1)),
		row("none", "", nil),
		row("new", "", day(9)),
		row("mid", "", day(5)),
	}

	got := Recent(rows, 3)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"new", "mid", "old"}, []string{got[0].Source, got[1].Source, got[2].Source})
	assert.Equal(t, "old", rows[0].Source, "input must not be reordered")
}

func TestBuildOptions(t *testing.T) {
	opts := BuildOptions([]posting.Row{
		row("lever", "Beta", nil, "sql"),
		row("greenhouse", "Acme", nil, "python", "sql"),
		row("lever", "", nil),
	})
	assert.Equal(t, []string{"greenhouse", "lever"}, opts.Sources)
	assert.Equal(t, []string{"Acme", "Beta"}, opts.Companies)
	assert.Equal(t, []string{"python", "sql"}, opts.Skills)
}
