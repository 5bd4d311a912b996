package router

import (
	"context"
	"errors"
	"testing"

	"github.com/lotas/autogroup/internal/rules"
	"github.com/lotas/autogroup/internal/types"
	"github.com/stretchr/testify/assert"
)

type staticRules struct {
	rs    []rules.Rule
	found bool
	err   error
}

func (s staticRules) Load() ([]rules.Rule, bool, error) {
	return s.rs, s.found, s.err
}

type fakePlacer struct {
	calls []string
	err   error
}

func (p *fakePlacer) EnsureTabInGroup(ctx context.Context, rule rules.Rule, tabID int) (int, error) {
	p.calls = append(p.calls, rule.ID)
	if p.err != nil {
		return 0, p.err
	}
	return 42, nil
}

func TestPipeline_Grouped(t *testing.T) {
	placer := &fakePlacer{}
	src := staticRules{found: true, rs: []rules.Rule{
		{ID: "ab", Pattern: rules.Patterns{"a.com", "b.com"}, GroupName: "AB", Enabled: true},
	}}

	out := NewPipeline(src, placer).Process(context.Background(), &types.Tab{ID: 7, URL: "https://b.com/x"})
	assert.Equal(t, StatusGrouped, out.Status)
	assert.Equal(t, "ab", out.RuleID)
	assert.Equal(t, 42, out.GroupID)
	assert.Equal(t, []string{"ab"}, placer.calls)
}

func TestPipeline_IneligibleNeverLoadsRules(t *testing.T) {
	placer := &fakePlacer{}
	src := staticRules{err: errors.New("must not be called")}
	p := NewPipeline(src, placer)

	for _, url := range []string{"", "about:blank", "chrome://newtab/", "chrome-extension://x/options.html"} {
		out := p.Process(context.Background(), &types.Tab{ID: 1, URL: url})
		assert.Equal(t, StatusIneligible, out.Status, url)
	}
	assert.Equal(t, StatusIneligible, p.Process(context.Background(), nil).Status)
	assert.Empty(t, placer.calls)
}

func TestPipeline_FallsBackToDefaults(t *testing.T) {
	placer := &fakePlacer{}
	out := NewPipeline(staticRules{found: false}, placer).
		Process(context.Background(), &types.Tab{ID: 2, URL: "https://outlook.live.com/mail/"})
	assert.Equal(t, StatusGrouped, out.Status)
	assert.Equal(t, "mail", out.RuleID)
}

func TestPipeline_StoredEmptyListMatchesNothing(t *testing.T) {
	placer := &fakePlacer{}
	out := NewPipeline(staticRules{found: true}, placer).
		Process(context.Background(), &types.Tab{ID: 2, URL: "https://mail.google.com/"})
	assert.Equal(t, StatusNoMatch, out.Status)
	assert.Empty(t, placer.calls)
}

func TestPipeline_PlacementFailureIsSoft(t *testing.T) {
	placer := &fakePlacer{err: errors.New("tab closed")}
	src := staticRules{found: true, rs: rules.Defaults()}

	out := NewPipeline(src, placer).Process(context.Background(), &types.Tab{ID: 2, URL: "https://mail.google.com/"})
	assert.Equal(t, StatusFailed, out.Status)
	assert.Error(t, out.Err)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "grouped", StatusGrouped.String())
	assert.Equal(t, "no-match", StatusNoMatch.String())
}
