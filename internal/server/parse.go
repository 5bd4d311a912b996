package server

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lotas/autogroup/internal/types"
)

type wireTab struct {
	ID           int    `json:"id"`
	URL          string `json:"url"`
	Title        string `json:"title"`
	Status       string `json:"status"`
	LastAccessed int64  `json:"lastAccessed"`
	GroupID      int    `json:"groupId"`
	WindowID     int    `json:"windowId"`
	Index        int    `json:"index"`
	FavIconURL   string `json:"favIconUrl"`
}

func (wt wireTab) toTab() *types.Tab {
	tab := &types.Tab{
		ID:       wt.ID,
		URL:      wt.URL,
		Title:    wt.Title,
		Status:   wt.Status,
		GroupID:  wt.GroupID,
		WindowID: wt.WindowID,
		Index:    wt.Index,
		Favicon:  wt.FavIconURL,
	}
	if wt.LastAccessed > 0 {
		tab.LastAccessed = time.UnixMilli(wt.LastAccessed)
	}
	return tab
}

type wireGroup struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Color     string `json:"color"`
	Collapsed bool   `json:"collapsed"`
}

// ParseSnapshot converts an IncomingMsg of type "snapshot" into a SessionData.
func ParseSnapshot(msg IncomingMsg) (*types.SessionData, error) {
	tabs, err := ParseTabs(msg.Tabs)
	if err != nil {
		return nil, err
	}
	groups, err := ParseGroups(msg.Groups)
	if err != nil {
		return nil, err
	}

	groupMap := make(map[int]*types.TabGroup, len(groups))
	for _, g := range groups {
		groupMap[g.ID] = g
	}

	ungrouped := &types.TabGroup{Title: "Ungrouped"}
	for _, tab := range tabs {
		if g, ok := groupMap[tab.GroupID]; ok {
			g.Tabs = append(g.Tabs, tab)
		} else {
			ungrouped.Tabs = append(ungrouped.Tabs, tab)
		}
	}
	if len(ungrouped.Tabs) > 0 {
		groups = append(groups, ungrouped)
	}

	return &types.SessionData{
		Groups:   groups,
		AllTabs:  tabs,
		ParsedAt: time.Now(),
	}, nil
}

// ParseTab converts a raw JSON tab into a Tab.
func ParseTab(raw json.RawMessage) (*types.Tab, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("parse tab: empty payload")
	}
	var wt wireTab
	if err := json.Unmarshal(raw, &wt); err != nil {
		return nil, fmt.Errorf("parse tab: %w", err)
	}
	return wt.toTab(), nil
}

// ParseTabs converts a raw JSON tab array. A missing payload is an empty list.
func ParseTabs(raw json.RawMessage) ([]*types.Tab, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var wts []wireTab
	if err := json.Unmarshal(raw, &wts); err != nil {
		return nil, fmt.Errorf("parse tabs: %w", err)
	}
	tabs := make([]*types.Tab, 0, len(wts))
	for _, wt := range wts {
		tabs = append(tabs, wt.toTab())
	}
	return tabs, nil
}

// ParseGroups converts a raw JSON group array. A missing payload is an empty
// list.
func ParseGroups(raw json.RawMessage) ([]*types.TabGroup, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var wgs []wireGroup
	if err := json.Unmarshal(raw, &wgs); err != nil {
		return nil, fmt.Errorf("parse groups: %w", err)
	}
	groups := make([]*types.TabGroup, 0, len(wgs))
	for _, g := range wgs {
		groups = append(groups, &types.TabGroup{
			ID:        g.ID,
			Title:     g.Title,
			Color:     g.Color,
			Collapsed: g.Collapsed,
		})
	}
	return groups, nil
}
