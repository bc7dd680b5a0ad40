package alerts

import (
	"fmt"
	"strings"
)

// Decision is the outcome of comparing a skill's mentions to a threshold.
type Decision struct {
	Skill    string
	Mentions int
	Notify   bool
}

// Check looks up target (case-insensitively) in counts and decides whether
// its mentions reach threshold.
func Check(counts map[string]int, target string, threshold int) Decision {
	skill := strings.ToLower(strings.TrimSpace(target))
	mentions := counts[skill]
	return Decision{
		Skill:    skill,
		Mentions: mentions,
		Notify:   skill != "" && mentions >= threshold,
	}
}

func (d Decision) Subject() string {
	return fmt.Sprintf("[Job Trends] Spike detected: %s (%d mentions)", d.Skill, d.Mentions)
}

func (d Decision) Body() string {
	return fmt.Sprintf("Heads up!\n\nSkill: %s\nMentions today: %d\n\n-- Job Skills Demand Monitor\n", d.Skill, d.Mentions)
}
