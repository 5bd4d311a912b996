package server

import (
	"encoding/json"
	"testing"
)

func TestParseSnapshot(t *testing.T) {
	snapshot := `{
		"type": "snapshot",
		"tabs": [
			{"id": 1, "url": "https://example.com", "title": "Example", "status": "complete", "lastAccessed": 1700000000000, "groupId": 5, "windowId": 1, "index": 0},
			{"id": 2, "url": "https://other.com", "title": "Other", "lastAccessed": 1700000060000, "groupId": -1, "windowId": 1, "index": 1}
		],
		"groups": [
			{"id": 5, "title": "Work", "color": "blue", "collapsed": false}
		]
	}`

	var msg IncomingMsg
	if err := json.Unmarshal([]byte(snapshot), &msg); err != nil {
		t.Fatal(err)
	}

	data, err := ParseSnapshot(msg)
	if err != nil {
		t.Fatal(err)
	}

	if len(data.AllTabs) != 2 {
		t.Fatalf("got %d tabs, want 2", len(data.AllTabs))
	}
	first := data.AllTabs[0]
	if first.ID != 1 || first.URL != "https://example.com" || first.Status != "complete" {
		t.Errorf("first tab = %+v", first)
	}
	if first.LastAccessed.IsZero() {
		t.Error("tab LastAccessed is zero")
	}
	if !first.Grouped() || data.AllTabs[1].Grouped() {
		t.Error("Grouped() mismatch")
	}

	// "Work" + "Ungrouped"
	if len(data.Groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(data.Groups))
	}
	work := data.Groups[0]
	if work.ID != 5 || work.Title != "Work" || work.Color != "blue" || len(work.Tabs) != 1 {
		t.Errorf("work group = %+v", work)
	}
	if data.Groups[1].Title != "Ungrouped" || len(data.Groups[1].Tabs) != 1 {
		t.Errorf("ungrouped = %+v", data.Groups[1])
	}
}

func TestParseSnapshotNoGroups(t *testing.T) {
	snapshot := `{
		"type": "snapshot",
		"tabs": [
			{"id": 1, "url": "https://example.com", "title": "Example", "lastAccessed": 1700000000000, "groupId": -1, "windowId": 1, "index": 0}
		],
		"groups": []
	}`

	var msg IncomingMsg
	json.Unmarshal([]byte(snapshot), &msg)
	data, err := ParseSnapshot(msg)
	if err != nil {
		t.Fatal(err)
	}
	if len(data.Groups) != 1 || data.Groups[0].Title != "Ungrouped" {
		t.Errorf("expected single Ungrouped group, got %v", data.Groups)
	}
}

func TestParseTab(t *testing.T) {
	tab, err := ParseTab(json.RawMessage(`{"id": 7, "url": "https://a.com", "status": "loading", "groupId": -1}`))
	if err != nil {
		t.Fatal(err)
	}
	if tab.ID != 7 || tab.URL != "https://a.com" || tab.Status != "loading" {
		t.Errorf("tab = %+v", tab)
	}
	if !tab.LastAccessed.IsZero() {
		t.Error("missing lastAccessed should stay zero")
	}

	if _, err := ParseTab(nil); err == nil {
		t.Error("expected error for empty payload")
	}
}

func TestIncomingReplyFields(t *testing.T) {
	raw := `{"id":"cmd-4","ok":true,"groupId":31}`
	var msg IncomingMsg
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != "" || msg.ID != "cmd-4" || msg.OK == nil || !*msg.OK || msg.GroupID != 31 {
		t.Errorf("msg = %+v", msg)
	}
}
