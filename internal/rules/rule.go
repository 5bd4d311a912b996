// Package rules defines grouping rules and the URL matcher that picks the
// rule for a tab.
package rules

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Color is a tab group color from the browser's fixed palette.
type Color string

const (
	Grey   Color = "grey"
	Blue   Color = "blue"
	Red    Color = "red"
	Yellow Color = "yellow"
	Green  Color = "green"
	Pink   Color = "pink"
	Purple Color = "purple"
	Cyan   Color = "cyan"
	Orange Color = "orange"
)

// Palette lists every color a group can take, in display order.
var Palette = []Color{Grey, Blue, Red, Yellow, Green, Pink, Purple, Cyan, Orange}

// Valid reports whether c is part of the palette.
func (c Color) Valid() bool {
	for _, p := range Palette {
		if c == p {
			return true
		}
	}
	return false
}

// OrDefault returns c, or grey when c is empty.
func (c Color) OrDefault() Color {
	if c == "" {
		return Grey
	}
	return c
}

// ParseColor converts user input into a palette color.
func ParseColor(s string) (Color, error) {
	c := Color(strings.ToLower(strings.TrimSpace(s)))
	if c == "gray" {
		c = Grey
	}
	if c == "" {
		return Grey, nil
	}
	if !c.Valid() {
		return "", fmt.Errorf("unknown color %q", s)
	}
	return c, nil
}

// Patterns is the ordered set of substrings that trigger a rule.
//
// Older rule lists stored a single string instead of a list. Unmarshalling
// accepts both shapes; marshalling always writes a list.
type Patterns []string

// UnmarshalJSON accepts either a JSON string or an array of strings.
func (p *Patterns) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*p = nil
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*p = Patterns{}
			return nil
		}
		*p = Patterns{s}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("pattern must be a string or a list of strings: %w", err)
	}
	*p = Patterns(list)
	return nil
}

// MarshalJSON always writes a list, never null.
func (p Patterns) MarshalJSON() ([]byte, error) {
	if p == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(p))
}

// Add appends pattern after trimming it. Empty and duplicate patterns are
// ignored. It reports whether the pattern was added.
func (p *Patterns) Add(pattern string) bool {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" || p.Contains(pattern) {
		return false
	}
	*p = append(*p, pattern)
	return true
}

// Remove drops pattern from the set.
func (p *Patterns) Remove(pattern string) {
	out := (*p)[:0]
	for _, existing := range *p {
		if existing != pattern {
			out = append(out, existing)
		}
	}
	*p = out
}

// Contains reports whether pattern is already in the set.
func (p Patterns) Contains(pattern string) bool {
	for _, existing := range p {
		if existing == pattern {
			return true
		}
	}
	return false
}

// NormalizePatterns trims each entry and drops empties and duplicates,
// keeping the first occurrence order.
func NormalizePatterns(in []string) Patterns {
	out := Patterns{}
	for _, s := range in {
		out.Add(s)
	}
	return out
}

// Rule maps URL patterns to a named, colored tab group.
type Rule struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Pattern    Patterns `json:"pattern"`
	GroupName  string   `json:"groupName"`
	GroupColor Color    `json:"groupColor"`
	Enabled    bool     `json:"enabled"`
}

// Color returns the rule's group color, defaulting to grey.
func (r Rule) Color() Color {
	return r.GroupColor.OrDefault()
}

// Clone returns a copy of r that does not share the pattern slice.
func (r Rule) Clone() Rule {
	c := r
	c.Pattern = append(Patterns(nil), r.Pattern...)
	return c
}

// Defaults returns the rule list written on first start.
func Defaults() []Rule {
	return []Rule{
		{
			ID:         "mail",
			Name:       "Mail",
			Pattern:    Patterns{"mail.google.com", "outlook.live.com"},
			GroupName:  "Mail",
			GroupColor: Blue,
			Enabled:    true,
		},
	}
}

// CountEnabled returns how many rules are enabled.
func CountEnabled(rs []Rule) int {
	n := 0
	for _, r := range rs {
		if r.Enabled {
			n++
		}
	}
	return n
}
