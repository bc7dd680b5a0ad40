package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lysyi3m/skills-monitor/app/posting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePostings() []posting.Posting {
	first := posting.Normalize(posting.Raw{
		Source:   "lever",
		Title:    "Data Engineer",
		Company:  "Acme, Inc.",
		Location: "Remote",
		PostedAt: "2024-03-05T10:00:00Z",
		URL:      "https://jobs.example.com/1",
	})
	first.Skills = []string{"python", "sql"}

	second := posting.Normalize(posting.Raw{Source: "rss", Title: "Analyst", PostedAt: "sometime"})

	return []posting.Posting{first, second}
}

func TestStamperNeverGoesBackwards(t *testing.T) {
	clock := []time.Time{
		time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 5, 11, 0, 0, 500, time.UTC),
	}
	s := NewStamper()
	s.now = func() time.Time {
		t := clock[0]
		clock = clock[1:]
		return t
	}

	a, b, c := s.Stamp(), s.Stamp(), s.Stamp()
	assert.Equal(t, a, b)
	assert.True(t, c.After(b))
	assert.Equal(t, 0, c.Nanosecond())
}

func TestCSVStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "jobs.csv")
	store := NewCSVStore(path)

	rows, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)

	stored, err := store.Append(ctx, "run-1", samplePostings())
	require.NoError(t, err)
	require.Len(t, stored, 2)
	require.NotNil(t, stored[0].FetchedAt)

	_, err = store.Append(ctx, "run-2", samplePostings()[:1])
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "source,title,company,location,posted_at,url,skills,fetched_at", lines[0])
	assert.Equal(t, 1, strings.Count(string(raw), "source,title"), "header written once")

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 3)

	got := loaded[0]
	assert.Equal(t, "lever", got.Source)
	assert.Equal(t, "Data Engineer", got.Title)
	assert.Equal(t, "Acme, Inc.", posting.Value(got.Company))
	assert.Equal(t, "Remote", posting.Value(got.Location))
	assert.Equal(t, []string{"python", "sql"}, got.Skills)
	require.NotNil(t, got.PostedAt)
	assert.Equal(t, time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC), *got.PostedAt)
	assert.Equal(t, stored[0].FetchedAt.Unix(), got.FetchedAt.Unix())

	unparsed := loaded[1]
	assert.Nil(t, unparsed.PostedAt)
	assert.Equal(t, "sometime", unparsed.PostedAtRaw)
	assert.Nil(t, unparsed.Company)
	assert.Empty(t, unparsed.Skills)

	for i := 1; i < len(loaded); i++ {
		assert.False(t, loaded[i].FetchedAt.Before(*loaded[i-1].FetchedAt))
	}
}

func TestCSVStoreAppendNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.csv")
	rows, err := NewCSVStore(path).Append(context.Background(), "run", nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.NoFileExists(t, path)
}

func TestReadCSVLenientSkills(t *testing.T) {
	input := "source,title,company,location,posted_at,url,skills,fetched_at\n" +
		"lever,Dev,,,,,\" python , ,sql,\",2024-03-05T10:00:00Z\n"

	rows, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"python", "sql"}, rows[0].Skills)
	assert.Nil(t, rows[0].Company)
}

func TestReadCSVColumnOrderIndependent(t *testing.T) {
	input := "skills,source,extra\nkafka,greenhouse,x\n"

	rows, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "greenhouse", rows[0].Source)
	assert.Equal(t, []string{"kafka"}, rows[0].Skills)
	assert.Nil(t, rows[0].FetchedAt)
}

func TestReadCSVEmpty(t *testing.T) {
	rows, err := ReadCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestWriteCSVWithoutHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil, false))
	assert.Empty(t, buf.String())
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStore(ctx, filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	rows, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)

	_, err = store.Append(ctx, "run-1", samplePostings())
	require.NoError(t, err)
	_, err = store.Append(ctx, "run-2", samplePostings()[:1])
	require.NoError(t, err)

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	assert.Equal(t, "Acme, Inc.", posting.Value(loaded[0].Company))
	assert.Equal(t, []string{"python", "sql"}, loaded[0].Skills)
	assert.Equal(t, "sometime", loaded[1].PostedAtRaw)
	assert.Nil(t, loaded[1].URL)

	var n int
	require.NoError(t, store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs WHERE run_id = ?`, "run-1").Scan(&n))
	assert.Equal(t, 2, n)
}

func TestSQLiteStoreReopenKeepsRows(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "jobs.db")

	store, err := NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	_, err = store.Append(ctx, "run-1", samplePostings())
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	rows, err := reopened.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	csvStore, err := Open(ctx, KindCSV, filepath.Join(dir, "jobs.csv"), "")
	require.NoError(t, err)
	assert.IsType(t, &CSVStore{}, csvStore)

	sqliteStore, err := Open(ctx, KindSQLite, "", filepath.Join(dir, "jobs.db"))
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, sqliteStore)
	require.NoError(t, sqliteStore.Close())

	_, err = Open(ctx, "postgres", "", "")
	assert.Error(t, err)
}
