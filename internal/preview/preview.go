// Package preview computes, without touching a browser, which group each tab
// of a saved session would join under the current rules.
package preview

import (
	"fmt"
	"strings"

	"github.com/lotas/autogroup/internal/rules"
	"github.com/lotas/autogroup/internal/types"
)

// Move is a proposed tab-to-group assignment.
type Move struct {
	Tab    *types.Tab
	RuleID string
	// InPlace is set when the tab already sits in a session group with the
	// target title.
	InPlace bool
}

// Bucket collects the moves that target one group.
type Bucket struct {
	GroupName string
	Color     rules.Color
	Moves     []*Move
}

// Result holds the preview output. Buckets keep the order in which their
// group was first matched.
type Result struct {
	Buckets   []*Bucket
	Unmatched int
	Skipped   int
}

// Pending counts moves that would change a tab's group.
func (r *Result) Pending() int {
	n := 0
	for _, b := range r.Buckets {
		for _, m := range b.Moves {
			if !m.InPlace {
				n++
			}
		}
	}
	return n
}

// Plan matches every tab of the session against rs.
func Plan(sd *types.SessionData, rs []rules.Rule) *Result {
	r := &Result{}

	titles := make(map[string]string)
	for _, g := range sd.Groups {
		if g.Key != "" {
			titles[g.Key] = g.Title
		}
	}

	buckets := make(map[string]*Bucket)
	for _, tab := range sd.AllTabs {
		if !rules.Eligible(tab.URL) {
			r.Skipped++
			continue
		}
		rule, ok := rules.Match(tab.URL, rs)
		if !ok {
			r.Unmatched++
			continue
		}

		b, found := buckets[rule.GroupName]
		if !found {
			b = &Bucket{GroupName: rule.GroupName, Color: rule.Color()}
			buckets[rule.GroupName] = b
			r.Buckets = append(r.Buckets, b)
		}
		b.Moves = append(b.Moves, &Move{
			Tab:     tab,
			RuleID:  rule.ID,
			InPlace: tab.SessionGroup != "" && titles[tab.SessionGroup] == rule.GroupName,
		})
	}

	return r
}

// FormatDryRun returns a human-readable summary of the plan.
func FormatDryRun(r *Result) string {
	var b strings.Builder

	for _, bucket := range r.Buckets {
		fmt.Fprintf(&b, "\n%s [%s] (%d):\n", bucket.GroupName, bucket.Color, len(bucket.Moves))
		for _, m := range bucket.Moves {
			title := m.Tab.Title
			if title == "" {
				title = m.Tab.URL
			}
			if m.InPlace {
				fmt.Fprintf(&b, "  = %s\n", title)
			} else {
				fmt.Fprintf(&b, "  + %s\n", title)
			}
		}
	}

	if len(r.Buckets) == 0 {
		b.WriteString("\nNo tabs match any enabled rule.\n")
	} else {
		fmt.Fprintf(&b, "\n%d tabs would move.\n", r.Pending())
	}
	if r.Unmatched > 0 {
		fmt.Fprintf(&b, "Unmatched: %d tabs\n", r.Unmatched)
	}
	if r.Skipped > 0 {
		fmt.Fprintf(&b, "Skipped: %d internal pages\n", r.Skipped)
	}

	return b.String()
}
