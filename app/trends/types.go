package trends

import (
	"fmt"
	"time"
)

// Query restricts the rows an aggregation looks at. Zero values mean no
// restriction; all set criteria must hold.
type Query struct {
	Start     *time.Time // inclusive
	End       *time.Time // inclusive
	Sources   []string
	Companies []string
	Skills    []string
}

// Mention is one (row, skill) pair.
type Mention struct {
	Skill     string
	Source    string
	Company   string
	Timestamp *time.Time
}

type SkillCount struct {
	Skill string `json:"skill"`
	Count int    `json:"count"`
}

type Point struct {
	Bucket time.Time `json:"bucket"`
	Count  int       `json:"count"`
}

type Bucket string

const (
	Day  Bucket = "day"
	Week Bucket = "week"
)

func ParseBucket(s string) (Bucket, error) {
	switch Bucket(s) {
	case "", Day:
		return Day, nil
	case Week:
		return Week, nil
	default:
		return "", fmt.Errorf("unknown bucket %q (want day or week)", s)
	}
}

type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type Summary struct {
	Rows      int     `json:"rows"`
	Companies int     `json:"companies"`
	Skills    int     `json:"skills"`
	Mentions  int     `json:"mentions"`
	Window    *Window `json:"window,omitempty"`
}

// Options lists the distinct values available for filtering.
type Options struct {
	Sources   []string `json:"sources"`
	Companies []string `json:"companies"`
	Skills    []string `json:"skills"`
}
