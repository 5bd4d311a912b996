package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/lotas/autogroup/internal/rules"
)

// Markdown formats a rule list as a markdown document.
func Markdown(rs []rules.Rule, now time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Tab grouping rules\n")
	fmt.Fprintf(&b, "> Exported %s, %d of %d active\n", now.Format("2006-01-02 15:04"), rules.CountEnabled(rs), len(rs))

	for _, r := range rs {
		state := "enabled"
		if !r.Enabled {
			state = "disabled"
		}
		fmt.Fprintf(&b, "\n## %s (%s)\n\n", displayName(r), state)
		fmt.Fprintf(&b, "- Group: %s (%s)\n", r.GroupName, r.Color())
		fmt.Fprintf(&b, "- ID: `%s`\n", r.ID)

		n := len(r.Pattern)
		noun := "patterns"
		if n == 1 {
			noun = "pattern"
		}
		fmt.Fprintf(&b, "- %d %s:\n", n, noun)
		for _, p := range r.Pattern {
			fmt.Fprintf(&b, "  - `%s`\n", p)
		}
	}

	return b.String()
}

func displayName(r rules.Rule) string {
	if r.Name != "" {
		return r.Name
	}
	return r.GroupName
}
