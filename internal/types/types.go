package types

import "time"

// Tab represents a single browser tab.
type Tab struct {
	ID           int // live browser tab ID; 0 in offline mode
	URL          string
	Title        string
	Status       string // "loading" or "complete"
	GroupID      int    // live group ID; -1 or 0 if ungrouped
	WindowID     int
	Index        int
	LastAccessed time.Time
	Favicon      string
	SessionGroup string // session-file group key; offline mode only
}

// Grouped reports whether the tab belongs to a live tab group.
func (t *Tab) Grouped() bool {
	return t.GroupID > 0
}

// TabGroup represents a browser tab group.
type TabGroup struct {
	ID        int    // live group ID; 0 for session-file groups
	Key       string // session-file group key; empty in live mode
	Title     string
	Color     string
	Collapsed bool
	Tabs      []*Tab
}

// Profile represents a Firefox profile.
type Profile struct {
	Name       string
	Path       string // absolute path to profile directory
	IsDefault  bool
	IsRelative bool
}

// SessionData holds all tabs and groups read from a browser session, either
// a session file on disk or a live snapshot from the extension.
type SessionData struct {
	Groups   []*TabGroup
	AllTabs  []*Tab
	Profile  Profile
	ParsedAt time.Time
}
