package router

import (
	"context"

	"github.com/lotas/autogroup/internal/applog"
	"github.com/lotas/autogroup/internal/rules"
	"github.com/lotas/autogroup/internal/types"
)

// RuleSource loads the current rule list. found is false when no list has
// been stored yet.
type RuleSource interface {
	Load() (rs []rules.Rule, found bool, err error)
}

// Placer puts a tab into the group for a rule.
type Placer interface {
	EnsureTabInGroup(ctx context.Context, rule rules.Rule, tabID int) (int, error)
}

// Status is the result of running a tab through the pipeline.
type Status int

const (
	StatusIneligible Status = iota
	StatusNoMatch
	StatusGrouped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIneligible:
		return "ineligible"
	case StatusNoMatch:
		return "no-match"
	case StatusGrouped:
		return "grouped"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// Outcome describes what Process did with a tab.
type Outcome struct {
	Status  Status
	RuleID  string
	GroupID int
	Err     error
}

// Pipeline matches a tab's URL against the rules and places it in the
// matching group.
type Pipeline struct {
	rules  RuleSource
	placer Placer
}

// NewPipeline returns a Pipeline reading rules from src and grouping via p.
func NewPipeline(src RuleSource, p Placer) *Pipeline {
	return &Pipeline{rules: src, placer: p}
}

// Process runs one tab through filter, match and group placement. Errors are
// logged and reported in the Outcome; they never propagate further.
func (p *Pipeline) Process(ctx context.Context, tab *types.Tab) Outcome {
	if tab == nil || !rules.Eligible(tab.URL) {
		url := ""
		if tab != nil {
			url = tab.URL
		}
		applog.Info("pipeline.skip", "reason", "ineligible", "url", url)
		return Outcome{Status: StatusIneligible}
	}

	rs, found, err := p.rules.Load()
	if err != nil {
		applog.Error("pipeline.rules", err, "tab", tab.ID)
		return Outcome{Status: StatusFailed, Err: err}
	}
	if !found {
		rs = rules.Defaults()
	}

	rule, ok := rules.Match(tab.URL, rs)
	if !ok {
		applog.Info("pipeline.nomatch", "tab", tab.ID, "url", tab.URL, "rules", len(rs))
		return Outcome{Status: StatusNoMatch}
	}

	groupID, err := p.placer.EnsureTabInGroup(ctx, rule, tab.ID)
	if err != nil {
		applog.Error("pipeline.group", err, "tab", tab.ID, "rule", rule.ID)
		return Outcome{Status: StatusFailed, RuleID: rule.ID, Err: err}
	}
	applog.Info("pipeline.grouped", "tab", tab.ID, "rule", rule.ID, "group", groupID)
	return Outcome{Status: StatusGrouped, RuleID: rule.ID, GroupID: groupID}
}
