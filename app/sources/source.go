package sources

import (
	"context"
	"iter"

	"github.com/lysyi3m/skills-monitor/app/posting"
)

const untitled = "Untitled"

// Source yields raw postings from one job board. The sequence is finite;
// failures for a single board or feed are yielded as errors and iteration
// continues with the next one.
type Source interface {
	Name() string
	Fetch(ctx context.Context) iter.Seq2[posting.Raw, error]
}
