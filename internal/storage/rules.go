package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lotas/autogroup/internal/applog"
	"github.com/lotas/autogroup/internal/rules"
)

const (
	// RulesKey is the key under which the whole rule list is stored.
	RulesKey = "rules"
	// installedKey marks that first-run seeding already happened.
	installedKey = "installed"
)

var (
	// ErrRuleNotFound is returned when no rule has the requested id.
	ErrRuleNotFound = errors.New("rule not found")
	// ErrDuplicateID is returned when adding a rule whose id is taken.
	ErrDuplicateID = errors.New("rule id already exists")
)

// RuleUpdate carries the fields to change on an existing rule.
// Nil fields are left untouched.
type RuleUpdate struct {
	Name       *string
	Pattern    rules.Patterns
	GroupName  *string
	GroupColor *rules.Color
	Enabled    *bool
}

// RuleStore persists the rule list as a single JSON value. Every mutation
// reads the full list, edits it in memory and writes the full list back, so
// concurrent writers from different processes resolve as last write wins.
type RuleStore struct {
	db *sql.DB
}

// NewRuleStore returns a store backed by db. The kv table must exist; use
// OpenDB to create it.
func NewRuleStore(db *sql.DB) *RuleStore {
	return &RuleStore{db: db}
}

// Load returns the stored rules. found is false if the rules key has never
// been written. Legacy single-string patterns are normalized to lists here.
func (s *RuleStore) Load() (rs []rules.Rule, found bool, err error) {
	raw, _, found, err := GetValue(s.db, RulesKey)
	if err != nil || !found {
		return nil, found, err
	}
	if err := json.Unmarshal([]byte(raw), &rs); err != nil {
		return nil, true, fmt.Errorf("decode rules: %w", err)
	}
	return rs, true, nil
}

// Rules returns the stored rules, or an empty list if none were saved.
func (s *RuleStore) Rules() ([]rules.Rule, error) {
	rs, _, err := s.Load()
	return rs, err
}

// Save replaces the whole rule list.
func (s *RuleStore) Save(rs []rules.Rule) error {
	if rs == nil {
		rs = []rules.Rule{}
	}
	data, err := json.Marshal(rs)
	if err != nil {
		return fmt.Errorf("encode rules: %w", err)
	}
	if err := SetValue(s.db, RulesKey, string(data)); err != nil {
		return err
	}
	applog.Info("rules.saved", "count", len(rs))
	return nil
}

// Seed runs once per database, on first start. It writes the default rules
// when the list is absent or empty and reports whether it did. Later calls
// are no-ops, so a user who deletes every rule keeps an empty list.
func (s *RuleStore) Seed() (bool, error) {
	_, _, installed, err := GetValue(s.db, installedKey)
	if err != nil {
		return false, err
	}
	if installed {
		return false, nil
	}

	rs, found, err := s.Load()
	if err != nil {
		return false, err
	}
	seeded := false
	if !found || len(rs) == 0 {
		if err := s.Save(rules.Defaults()); err != nil {
			return false, err
		}
		seeded = true
		applog.Info("rules.seeded")
	}
	if err := SetValue(s.db, installedKey, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return false, err
	}
	return seeded, nil
}

// Add validates r, assigns an id if it has none and appends it to the list.
// The Enabled field is stored as given.
func (s *RuleStore) Add(r rules.Rule) (rules.Rule, error) {
	if err := rules.Validate(r); err != nil {
		return rules.Rule{}, err
	}
	rs, err := s.Rules()
	if err != nil {
		return rules.Rule{}, err
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	for _, existing := range rs {
		if existing.ID == r.ID {
			return rules.Rule{}, fmt.Errorf("%w: %s", ErrDuplicateID, r.ID)
		}
	}
	r.Pattern = rules.NormalizePatterns(r.Pattern)
	r.GroupColor = r.GroupColor.OrDefault()

	rs = append(rs, r)
	if err := s.Save(rs); err != nil {
		return rules.Rule{}, err
	}
	applog.Info("rules.added", "id", r.ID, "group", r.GroupName)
	return r, nil
}

// Import replaces the whole list with rs after validating each rule.
// Missing ids are assigned; duplicate ids reject the import.
func (s *RuleStore) Import(rs []rules.Rule) ([]rules.Rule, error) {
	out := make([]rules.Rule, 0, len(rs))
	seen := make(map[string]bool, len(rs))
	for i, r := range rs {
		if err := rules.Validate(r); err != nil {
			return nil, fmt.Errorf("rule %d: %w", i+1, err)
		}
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		if seen[r.ID] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, r.ID)
		}
		seen[r.ID] = true
		r.Pattern = rules.NormalizePatterns(r.Pattern)
		r.GroupColor = r.GroupColor.OrDefault()
		out = append(out, r)
	}
	if err := s.Save(out); err != nil {
		return nil, err
	}
	applog.Info("rules.imported", "count", len(out))
	return out, nil
}

// Update merges u into the rule with the given id and returns the result.
func (s *RuleStore) Update(id string, u RuleUpdate) (rules.Rule, error) {
	rs, err := s.Rules()
	if err != nil {
		return rules.Rule{}, err
	}
	idx := indexOf(rs, id)
	if idx < 0 {
		return rules.Rule{}, fmt.Errorf("%w: %s", ErrRuleNotFound, id)
	}

	r := rs[idx]
	if u.Name != nil {
		r.Name = *u.Name
	}
	if u.Pattern != nil {
		r.Pattern = rules.NormalizePatterns(u.Pattern)
	}
	if u.GroupName != nil {
		r.GroupName = *u.GroupName
	}
	if u.GroupColor != nil {
		r.GroupColor = u.GroupColor.OrDefault()
	}
	if u.Enabled != nil {
		r.Enabled = *u.Enabled
	}
	if err := rules.Validate(r); err != nil {
		return rules.Rule{}, err
	}

	rs[idx] = r
	if err := s.Save(rs); err != nil {
		return rules.Rule{}, err
	}
	applog.Info("rules.updated", "id", id)
	return r, nil
}

// Delete removes the rule with the given id. Deleting an unknown id is not
// an error.
func (s *RuleStore) Delete(id string) error {
	rs, err := s.Rules()
	if err != nil {
		return err
	}
	kept := make([]rules.Rule, 0, len(rs))
	for _, r := range rs {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	if err := s.Save(kept); err != nil {
		return err
	}
	applog.Info("rules.deleted", "id", id, "removed", len(rs)-len(kept))
	return nil
}

// Toggle flips the enabled flag of the rule with the given id.
func (s *RuleStore) Toggle(id string) (rules.Rule, error) {
	rs, err := s.Rules()
	if err != nil {
		return rules.Rule{}, err
	}
	idx := indexOf(rs, id)
	if idx < 0 {
		return rules.Rule{}, fmt.Errorf("%w: %s", ErrRuleNotFound, id)
	}
	rs[idx].Enabled = !rs[idx].Enabled
	if err := s.Save(rs); err != nil {
		return rules.Rule{}, err
	}
	applog.Info("rules.toggled", "id", id, "enabled", rs[idx].Enabled)
	return rs[idx], nil
}

// Revision returns the revision counter of the stored rule list.
func (s *RuleStore) Revision() (int64, error) {
	return Revision(s.db, RulesKey)
}

// Watch polls the rule list revision every interval and sends the new list
// whenever it changes, including changes made by other processes. The
// channel is closed when ctx is done.
func (s *RuleStore) Watch(ctx context.Context, interval time.Duration) <-chan []rules.Rule {
	out := make(chan []rules.Rule)
	last, err := s.Revision()
	if err != nil {
		applog.Error("rules.watch", err)
	}

	go func() {
		defer close(out)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			rev, err := s.Revision()
			if err != nil {
				applog.Error("rules.watch", err)
				continue
			}
			if rev == last {
				continue
			}
			rs, err := s.Rules()
			if err != nil {
				applog.Error("rules.watch", err)
				continue
			}
			last = rev
			applog.Info("rules.changed", "revision", rev, "count", len(rs))
			select {
			case out <- rs:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func indexOf(rs []rules.Rule, id string) int {
	for i, r := range rs {
		if r.ID == id {
			return i
		}
	}
	return -1
}
