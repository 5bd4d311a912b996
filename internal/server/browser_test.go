package server

import (
	"context"
	"encoding/json"
	"testing"

	"nhooyr.io/websocket"
)

// fakeExtension answers commands the way the browser extension does.
func fakeExtension(ctx context.Context, conn *websocket.Conn, seen chan<- OutgoingMsg) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		var cmd OutgoingMsg
		if err := json.Unmarshal(data, &cmd); err != nil {
			return
		}
		seen <- cmd

		ok := true
		reply := IncomingMsg{ID: cmd.ID, OK: &ok}
		switch cmd.Action {
		case ActionGetTab:
			reply.Tab = json.RawMessage(`{"id": 7, "url": "https://a.com/x", "groupId": -1}`)
		case ActionQueryGroups:
			reply.Groups = json.RawMessage(`[{"id": 3, "title": "Mail", "color": "blue"}]`)
		case ActionQueryTabs:
			reply.Tabs = json.RawMessage(`[{"id": 7}, {"id": 8}]`)
		case ActionGroupTabs:
			if cmd.GroupID == 0 {
				reply.GroupID = 44
			} else {
				reply.GroupID = cmd.GroupID
			}
		}
		out, _ := json.Marshal(reply)
		if err := conn.Write(ctx, websocket.MessageText, out); err != nil {
			return
		}
	}
}

func TestBrowserRoundTrips(t *testing.T) {
	srv := New(0)
	conn, ctx := dialTestServer(t, srv)
	seen := make(chan OutgoingMsg, 16)
	go fakeExtension(ctx, conn, seen)

	b := NewBrowser(srv)

	tab, err := b.GetTab(ctx, 7)
	if err != nil {
		t.Fatalf("GetTab: %v", err)
	}
	if tab.ID != 7 || tab.URL != "https://a.com/x" {
		t.Errorf("tab = %+v", tab)
	}
	if cmd := <-seen; cmd.Action != ActionGetTab || cmd.TabID != 7 {
		t.Errorf("command = %+v", cmd)
	}

	groups, err := b.QueryGroups(ctx)
	if err != nil {
		t.Fatalf("QueryGroups: %v", err)
	}
	if len(groups) != 1 || groups[0].Title != "Mail" || groups[0].ID != 3 {
		t.Errorf("groups = %+v", groups)
	}
	<-seen

	ids, err := b.GroupTabIDs(ctx, 3)
	if err != nil {
		t.Fatalf("GroupTabIDs: %v", err)
	}
	if len(ids) != 2 || ids[0] != 7 || ids[1] != 8 {
		t.Errorf("ids = %v", ids)
	}
	if cmd := <-seen; cmd.GroupID != 3 {
		t.Errorf("query-tabs group = %d", cmd.GroupID)
	}

	id, err := b.CreateGroup(ctx, []int{7})
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if id != 44 {
		t.Errorf("created group id = %d, want 44", id)
	}
	if cmd := <-seen; cmd.Action != ActionGroupTabs || cmd.GroupID != 0 || len(cmd.TabIDs) != 1 {
		t.Errorf("create command = %+v", cmd)
	}

	if err := b.AddToGroup(ctx, 3, []int{9}); err != nil {
		t.Fatalf("AddToGroup: %v", err)
	}
	if cmd := <-seen; cmd.GroupID != 3 || cmd.TabIDs[0] != 9 {
		t.Errorf("add command = %+v", cmd)
	}

	if err := b.UpdateGroup(ctx, 3, "Mail", "red"); err != nil {
		t.Fatalf("UpdateGroup: %v", err)
	}
	if cmd := <-seen; cmd.Action != ActionUpdateGroup || cmd.Title != "Mail" || cmd.Color != "red" {
		t.Errorf("update command = %+v", cmd)
	}
}
