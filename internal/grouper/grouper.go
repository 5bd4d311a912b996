// Package grouper keeps browser tab groups in line with grouping rules.
package grouper

import (
	"context"
	"fmt"

	"github.com/lotas/autogroup/internal/applog"
	"github.com/lotas/autogroup/internal/rules"
	"github.com/lotas/autogroup/internal/types"
)

// Browser is the subset of the browser's tab-group API the reconciler needs.
type Browser interface {
	QueryGroups(ctx context.Context) ([]*types.TabGroup, error)
	GroupTabIDs(ctx context.Context, groupID int) ([]int, error)
	CreateGroup(ctx context.Context, tabIDs []int) (int, error)
	AddToGroup(ctx context.Context, groupID int, tabIDs []int) error
	UpdateGroup(ctx context.Context, groupID int, title, color string) error
}

// GroupOperationError reports which browser call failed while placing a tab.
type GroupOperationError struct {
	Op      string // "query-groups", "create", "update", "query-tabs", "add"
	TabID   int
	GroupID int
	Err     error
}

func (e *GroupOperationError) Error() string {
	if e.GroupID != 0 {
		return fmt.Sprintf("group %s (tab %d, group %d): %v", e.Op, e.TabID, e.GroupID, e.Err)
	}
	return fmt.Sprintf("group %s (tab %d): %v", e.Op, e.TabID, e.Err)
}

func (e *GroupOperationError) Unwrap() error { return e.Err }

// Reconciler places tabs into rule groups. Groups are identified by title:
// the group whose title equals a rule's GroupName is that rule's group.
type Reconciler struct {
	browser Browser
}

// New returns a Reconciler that drives b.
func New(b Browser) *Reconciler {
	return &Reconciler{browser: b}
}

// EnsureTabInGroup makes sure a group titled rule.GroupName exists with the
// rule's color and that tabID is in it. It returns the group id.
//
// The call is idempotent: when the group already looks right and already
// holds the tab, no mutating browser call is made.
func (r *Reconciler) EnsureTabInGroup(ctx context.Context, rule rules.Rule, tabID int) (int, error) {
	groups, err := r.browser.QueryGroups(ctx)
	if err != nil {
		return 0, &GroupOperationError{Op: "query-groups", TabID: tabID, Err: err}
	}

	color := string(rule.Color())
	groupID := 0
	for _, g := range groups {
		if g.Title != rule.GroupName {
			continue
		}
		groupID = g.ID
		if g.Color != color || g.Title != rule.GroupName {
			if err := r.browser.UpdateGroup(ctx, g.ID, rule.GroupName, color); err != nil {
				return 0, &GroupOperationError{Op: "update", TabID: tabID, GroupID: g.ID, Err: err}
			}
			applog.Info("grouper.update", "group", g.ID, "title", rule.GroupName, "color", color)
		}
		break
	}

	if groupID == 0 {
		groupID, err = r.browser.CreateGroup(ctx, []int{tabID})
		if err != nil {
			return 0, &GroupOperationError{Op: "create", TabID: tabID, Err: err}
		}
		if err := r.browser.UpdateGroup(ctx, groupID, rule.GroupName, color); err != nil {
			return 0, &GroupOperationError{Op: "update", TabID: tabID, GroupID: groupID, Err: err}
		}
		applog.Info("grouper.create", "group", groupID, "title", rule.GroupName, "color", color, "tab", tabID)
	}

	members, err := r.browser.GroupTabIDs(ctx, groupID)
	if err != nil {
		return 0, &GroupOperationError{Op: "query-tabs", TabID: tabID, GroupID: groupID, Err: err}
	}
	for _, id := range members {
		if id == tabID {
			applog.Info("grouper.member", "group", groupID, "tab", tabID)
			return groupID, nil
		}
	}

	if err := r.browser.AddToGroup(ctx, groupID, []int{tabID}); err != nil {
		return 0, &GroupOperationError{Op: "add", TabID: tabID, GroupID: groupID, Err: err}
	}
	applog.Info("grouper.add", "group", groupID, "tab", tabID, "title", rule.GroupName)
	return groupID, nil
}

// ReconcileAll updates the title and color of every existing group whose
// title equals an enabled rule's GroupName. It never creates or removes
// groups and never moves tabs. If several enabled rules share a group name,
// the last one in the list wins.
//
// It returns the number of groups updated. Failures on one group are logged
// and do not stop the others; the first one is returned.
func (r *Reconciler) ReconcileAll(ctx context.Context, rs []rules.Rule) (int, error) {
	byGroupName := make(map[string]rules.Rule)
	for _, rule := range rs {
		if rule.Enabled {
			byGroupName[rule.GroupName] = rule
		}
	}
	if len(byGroupName) == 0 {
		return 0, nil
	}

	groups, err := r.browser.QueryGroups(ctx)
	if err != nil {
		return 0, fmt.Errorf("query groups: %w", err)
	}

	var firstErr error
	updated := 0
	for _, g := range groups {
		rule, ok := byGroupName[g.Title]
		if !ok {
			continue
		}
		color := string(rule.Color())
		if g.Color == color && g.Title == rule.GroupName {
			continue
		}
		if err := r.browser.UpdateGroup(ctx, g.ID, rule.GroupName, color); err != nil {
			applog.Error("grouper.reconcile", err, "group", g.ID)
			if firstErr == nil {
				firstErr = fmt.Errorf("update group %d: %w", g.ID, err)
			}
			continue
		}
		updated++
		applog.Info("grouper.reconcile", "group", g.ID, "title", rule.GroupName, "color", color)
	}
	return updated, firstErr
}
