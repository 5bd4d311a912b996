package tui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/lotas/autogroup/internal/rules"
	"github.com/lotas/autogroup/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	rules   []rules.Rule
	updates []storage.RuleUpdate
	nextID  int
	failAdd error
}

func (s *memStore) Rules() ([]rules.Rule, error) {
	return append([]rules.Rule(nil), s.rules...), nil
}

func (s *memStore) Add(r rules.Rule) (rules.Rule, error) {
	if s.failAdd != nil {
		return rules.Rule{}, s.failAdd
	}
	if err := rules.Validate(r); err != nil {
		return rules.Rule{}, err
	}
	s.nextID++
	r.ID = "id" + string(rune('0'+s.nextID))
	s.rules = append(s.rules, r)
	return r, nil
}

func (s *memStore) Update(id string, u storage.RuleUpdate) (rules.Rule, error) {
	s.updates = append(s.updates, u)
	for i := range s.rules {
		if s.rules[i].ID == id {
			if u.GroupColor != nil {
				s.rules[i].GroupColor = *u.GroupColor
			}
			return s.rules[i], nil
		}
	}
	return rules.Rule{}, storage.ErrRuleNotFound
}

func (s *memStore) Delete(id string) error {
	for i := range s.rules {
		if s.rules[i].ID == id {
			s.rules = append(s.rules[:i], s.rules[i+1:]...)
			break
		}
	}
	return nil
}

func (s *memStore) Toggle(id string) (rules.Rule, error) {
	for i := range s.rules {
		if s.rules[i].ID == id {
			s.rules[i].Enabled = !s.rules[i].Enabled
			return s.rules[i], nil
		}
	}
	return rules.Rule{}, storage.ErrRuleNotFound
}

// step feeds msg to the model and runs any returned command chain
// synchronously until it settles.
func step(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(Model)
	for cmd != nil {
		out := cmd()
		if out == nil {
			break
		}
		if _, quit := out.(tea.QuitMsg); quit {
			break
		}
		next, cmd = m.Update(out)
		m = next.(Model)
	}
	return m
}

func loaded(t *testing.T, store *memStore) Model {
	t.Helper()
	m := NewModel(store)
	m = step(t, m, m.Init()())
	require.False(t, m.loading)
	return m
}

func TestModel_ToggleSelectedRule(t *testing.T) {
	store := &memStore{rules: rules.Defaults()}
	m := loaded(t, store)

	m = step(t, m, keyMsg(" "))
	assert.False(t, store.rules[0].Enabled)
	assert.False(t, m.list.Rules[0].Enabled)
	assert.Equal(t, "Mail disabled", m.status)
	assert.Contains(t, m.View(), "0 of 1 active")
}

func TestModel_AddRuleThroughForm(t *testing.T) {
	store := &memStore{}
	m := loaded(t, store)
	assert.Contains(t, m.View(), "No rules yet")

	m = step(t, m, keyMsg("a"))
	require.True(t, m.showForm)
	for _, k := range []string{"Quick", "enter", "a.com", "enter", "b.com", "enter", "enter", "Work"} {
		m = step(t, m, keyMsg(k))
	}
	m = step(t, m, keyMsg("ctrl+s"))

	assert.False(t, m.showForm)
	require.Len(t, store.rules, 1)
	r := store.rules[0]
	assert.Equal(t, rules.Patterns{"a.com", "b.com"}, r.Pattern)
	assert.Equal(t, "Work", r.GroupName)
	assert.Equal(t, rules.Grey, r.GroupColor)
	assert.True(t, r.Enabled)
	assert.Len(t, m.list.Rules, 1)
}

func TestModel_InvalidFormStaysOpen(t *testing.T) {
	store := &memStore{}
	m := loaded(t, store)

	m = step(t, m, keyMsg("a"))
	m = step(t, m, keyMsg("ctrl+s"))

	assert.True(t, m.showForm)
	assert.Empty(t, store.rules)
	require.NotNil(t, m.form.err)
	assert.Equal(t, "pattern", m.form.err.Field)
}

func TestModel_StoreErrorKeepsFormOpen(t *testing.T) {
	store := &memStore{failAdd: errors.New("database is locked")}
	m := loaded(t, store)

	m = step(t, m, keyMsg("a"))
	m.form.patterns = rules.Patterns{"a.com"}
	m.form.group.SetValue("A")
	m = step(t, m, keyMsg("ctrl+s"))

	assert.True(t, m.showForm)
	require.NotNil(t, m.form.err)
	assert.Empty(t, m.form.err.Field)
	assert.Contains(t, m.form.View(), "database is locked")
}

func TestModel_ToggleUnknownShowsError(t *testing.T) {
	store := &memStore{rules: rules.Defaults()}
	m := loaded(t, store)
	store.rules = nil

	m = step(t, m, keyMsg(" "))
	require.Error(t, m.err)
	assert.ErrorIs(t, m.err, storage.ErrRuleNotFound)
	assert.Contains(t, m.View(), "Error:")
}

func TestModel_EditSendsFullUpdate(t *testing.T) {
	store := &memStore{rules: rules.Defaults()}
	m := loaded(t, store)

	m = step(t, m, keyMsg("e"))
	require.True(t, m.showForm)
	require.Equal(t, "mail", m.form.RuleID())

	m = step(t, m, keyMsg("shift+tab"))
	m = step(t, m, keyMsg("right"))
	m = step(t, m, keyMsg("enter"))

	require.Len(t, store.updates, 1)
	u := store.updates[0]
	require.NotNil(t, u.GroupColor)
	assert.Equal(t, rules.Red, *u.GroupColor)
	assert.Nil(t, u.Enabled, "editing never flips the enabled state")
	assert.Equal(t, rules.Red, store.rules[0].GroupColor)
}

func TestModel_DeleteAsksFirst(t *testing.T) {
	store := &memStore{rules: rules.Defaults()}
	m := loaded(t, store)

	m = step(t, m, keyMsg("d"))
	require.True(t, m.showConfirm)
	assert.Contains(t, m.View(), `Delete rule "Mail"?`)

	m = step(t, m, keyMsg("n"))
	assert.False(t, m.showConfirm)
	assert.Len(t, store.rules, 1)

	m = step(t, m, keyMsg("d"))
	m = step(t, m, keyMsg("y"))
	assert.Empty(t, store.rules)
	assert.Empty(t, m.list.Rules)
}
