package api

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/skills-monitor/app/trends"
)

const dateLayout = "2006-01-02"

// viewParams are the dashboard filters shared by every endpoint.
type viewParams struct {
	Query  trends.Query
	Bucket trends.Bucket
	Top    int
	Lines  int
}

func (p viewParams) hasWindow() bool {
	return p.Query.Start != nil || p.Query.End != nil
}

func parseParams(c *gin.Context) (viewParams, error) {
	p := viewParams{
		Top:   trends.DefaultTopN,
		Lines: defaultLines,
		Query: trends.Query{
			Sources:   listParam(c, "source"),
			Companies: listParam(c, "company"),
			Skills:    listParam(c, "skill"),
		},
	}

	if v := c.Query("start"); v != "" {
		day, err := time.Parse(dateLayout, v)
		if err != nil {
			return p, fmt.Errorf("invalid start date %q (want YYYY-MM-DD)", v)
		}
		p.Query.Start = &day
	}
	if v := c.Query("end"); v != "" {
		day, err := time.Parse(dateLayout, v)
		if err != nil {
			return p, fmt.Errorf("invalid end date %q (want YYYY-MM-DD)", v)
		}
		end := day.Add(24*time.Hour - time.Nanosecond)
		p.Query.End = &end
	}
	if p.Query.Start != nil && p.Query.End != nil && p.Query.End.Before(*p.Query.Start) {
		return p, fmt.Errorf("end date is before start date")
	}

	bucket, err := trends.ParseBucket(c.Query("bucket"))
	if err != nil {
		return p, err
	}
	p.Bucket = bucket

	if v := c.Query("top"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return p, fmt.Errorf("invalid top %q", v)
		}
		p.Top = min(max(n, minTopN), maxTopN)
	}
	if v := c.Query("lines"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return p, fmt.Errorf("invalid lines %q", v)
		}
		p.Lines = min(max(n, 1), maxLines)
	}

	return p, nil
}

// listParam accepts repeated and comma-separated values.
func listParam(c *gin.Context, name string) []string {
	var values []string
	for _, raw := range c.QueryArray(name) {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				values = append(values, v)
			}
		}
	}
	return values
}
