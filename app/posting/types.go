package posting

import "time"

// DefaultSource is used when a raw posting does not name its origin.
const DefaultSource = "unknown"

// Raw is a posting as handed over by a source adapter.
// Empty strings mean the field is absent.
type Raw struct {
	Source          string
	Title           string
	Company         string
	Location        string
	PostedAt        string
	URL             string
	DescriptionText string
	DescriptionHTML string
}

// Posting is the canonical form of a job posting.
type Posting struct {
	Source      string
	Title       string
	Company     *string
	Location    *string
	PostedAt    *time.Time
	PostedAtRaw string
	URL         *string
	Text        string
	Skills      []string // sorted, deduplicated, lowercase
}

// Row is a persisted posting.
type Row struct {
	Posting
	FetchedAt *time.Time // UTC
}

// Timestamp returns the time used for windowing and trends: the fetch time
// when known, the posting time otherwise.
func (r Row) Timestamp() *time.Time {
	if r.FetchedAt != nil {
		return r.FetchedAt
	}
	return r.PostedAt
}

// Value dereferences an optional string field.
func Value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
