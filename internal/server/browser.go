package server

import (
	"context"
	"fmt"

	"github.com/lotas/autogroup/internal/types"
)

// Browser performs tab and group operations on the connected extension.
// Each call is a command round trip through Server.Request.
type Browser struct {
	srv *Server
}

// NewBrowser returns a Browser that issues commands over srv.
func NewBrowser(srv *Server) *Browser {
	return &Browser{srv: srv}
}

// GetTab fetches the current state of a tab.
func (b *Browser) GetTab(ctx context.Context, tabID int) (*types.Tab, error) {
	resp, err := b.srv.Request(ctx, OutgoingMsg{Action: ActionGetTab, TabID: tabID})
	if err != nil {
		return nil, err
	}
	return ParseTab(resp.Tab)
}

// QueryGroups lists all tab groups.
func (b *Browser) QueryGroups(ctx context.Context) ([]*types.TabGroup, error) {
	resp, err := b.srv.Request(ctx, OutgoingMsg{Action: ActionQueryGroups})
	if err != nil {
		return nil, err
	}
	return ParseGroups(resp.Groups)
}

// GroupTabIDs returns the ids of the tabs currently in a group.
func (b *Browser) GroupTabIDs(ctx context.Context, groupID int) ([]int, error) {
	resp, err := b.srv.Request(ctx, OutgoingMsg{Action: ActionQueryTabs, GroupID: groupID})
	if err != nil {
		return nil, err
	}
	tabs, err := ParseTabs(resp.Tabs)
	if err != nil {
		return nil, err
	}
	ids := make([]int, 0, len(tabs))
	for _, t := range tabs {
		ids = append(ids, t.ID)
	}
	return ids, nil
}

// CreateGroup groups the given tabs into a new group and returns its id.
// The browser cannot create an empty group.
func (b *Browser) CreateGroup(ctx context.Context, tabIDs []int) (int, error) {
	resp, err := b.srv.Request(ctx, OutgoingMsg{Action: ActionGroupTabs, TabIDs: tabIDs})
	if err != nil {
		return 0, err
	}
	if resp.GroupID == 0 {
		return 0, fmt.Errorf("%s: reply has no group id", ActionGroupTabs)
	}
	return resp.GroupID, nil
}

// AddToGroup moves tabs into an existing group.
func (b *Browser) AddToGroup(ctx context.Context, groupID int, tabIDs []int) error {
	_, err := b.srv.Request(ctx, OutgoingMsg{Action: ActionGroupTabs, GroupID: groupID, TabIDs: tabIDs})
	return err
}

// UpdateGroup sets a group's title and color.
func (b *Browser) UpdateGroup(ctx context.Context, groupID int, title, color string) error {
	_, err := b.srv.Request(ctx, OutgoingMsg{Action: ActionUpdateGroup, GroupID: groupID, Title: title, Color: color})
	return err
}
