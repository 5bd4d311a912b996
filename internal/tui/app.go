// Package tui implements the interactive rule editor.
package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/lotas/autogroup/internal/rules"
	"github.com/lotas/autogroup/internal/storage"
)

// RuleStore is the persistence the editor needs.
type RuleStore interface {
	Rules() ([]rules.Rule, error)
	Add(r rules.Rule) (rules.Rule, error)
	Update(id string, u storage.RuleUpdate) (rules.Rule, error)
	Delete(id string) error
	Toggle(id string) (rules.Rule, error)
}

// --- Messages ---

type rulesLoadedMsg struct {
	rules []rules.Rule
	err   error
}

type ruleSavedMsg struct {
	status string
	err    error
}

// --- Commands ---

func loadRules(store RuleStore) tea.Cmd {
	return func() tea.Msg {
		rs, err := store.Rules()
		return rulesLoadedMsg{rules: rs, err: err}
	}
}

func toggleRule(store RuleStore, id string) tea.Cmd {
	return func() tea.Msg {
		r, err := store.Toggle(id)
		if err != nil {
			return ruleSavedMsg{err: err}
		}
		state := "enabled"
		if !r.Enabled {
			state = "disabled"
		}
		return ruleSavedMsg{status: fmt.Sprintf("%s %s", r.GroupName, state)}
	}
}

func deleteRule(store RuleStore, r rules.Rule) tea.Cmd {
	return func() tea.Msg {
		if err := store.Delete(r.ID); err != nil {
			return ruleSavedMsg{err: err}
		}
		return ruleSavedMsg{status: fmt.Sprintf("Deleted rule for %s", r.GroupName)}
	}
}

func saveRule(store RuleStore, r rules.Rule) tea.Cmd {
	return func() tea.Msg {
		if r.ID == "" {
			added, err := store.Add(r)
			if err != nil {
				return ruleSavedMsg{err: err}
			}
			return ruleSavedMsg{status: fmt.Sprintf("Added rule for %s", added.GroupName)}
		}
		_, err := store.Update(r.ID, storage.RuleUpdate{
			Name:       &r.Name,
			Pattern:    r.Pattern,
			GroupName:  &r.GroupName,
			GroupColor: &r.GroupColor,
		})
		if err != nil {
			return ruleSavedMsg{err: err}
		}
		return ruleSavedMsg{status: fmt.Sprintf("Saved rule for %s", r.GroupName)}
	}
}

// --- Model ---

type Model struct {
	store RuleStore

	list        RuleList
	form        RuleForm
	showForm    bool
	confirm     ConfirmDelete
	showConfirm bool

	loading bool
	status  string
	err     error
	width   int
	height  int
}

func NewModel(store RuleStore) Model {
	return Model{store: store, loading: true}
}

func (m Model) Init() tea.Cmd {
	return loadRules(m.store)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.Width = m.width - 4
		m.list.Height = m.height - 6 // top bar + bottom bar + borders
		m.form.Width = m.width
		return m, nil

	case rulesLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.list.SetRules(msg.rules)
		return m, nil

	case ruleSavedMsg:
		if msg.err != nil {
			if m.showForm {
				m.form.SetError(msg.err)
				return m, nil
			}
			m.status = ""
			m.err = msg.err
			return m, loadRules(m.store)
		}
		m.showForm = false
		m.err = nil
		m.status = msg.status
		return m, loadRules(m.store)

	case tea.KeyMsg:
		if m.showForm {
			return m.updateForm(msg)
		}
		if m.showConfirm {
			switch msg.String() {
			case "y", "Y":
				m.showConfirm = false
				return m, deleteRule(m.store, m.confirm.Rule)
			case "n", "N", "esc":
				m.showConfirm = false
			case "ctrl+c":
				return m, tea.Quit
			}
			return m, nil
		}
		return m.updateList(msg)
	}

	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, listKeys.Quit):
		return m, tea.Quit
	case key.Matches(msg, listKeys.Up):
		m.list.MoveUp()
	case key.Matches(msg, listKeys.Down):
		m.list.MoveDown()
	case key.Matches(msg, listKeys.Reload):
		return m, loadRules(m.store)
	case key.Matches(msg, listKeys.Add):
		m.form = NewRuleForm()
		m.form.Width = m.width
		m.showForm = true
	case key.Matches(msg, listKeys.Toggle):
		if r, ok := m.list.Selected(); ok {
			return m, toggleRule(m.store, r.ID)
		}
	case key.Matches(msg, listKeys.Edit):
		if r, ok := m.list.Selected(); ok {
			m.form = EditRuleForm(r)
			m.form.Width = m.width
			m.showForm = true
		}
	case key.Matches(msg, listKeys.Delete):
		if r, ok := m.list.Selected(); ok {
			m.confirm = ConfirmDelete{Rule: r}
			m.showConfirm = true
		}
	}
	return m, nil
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	form, action, cmd := m.form.Update(msg)
	m.form = form
	switch action {
	case formCancel:
		m.showForm = false
		return m, nil
	case formSave:
		r, ok := m.form.Submit()
		if !ok {
			return m, nil
		}
		return m, saveRule(m.store, r)
	}
	return m, cmd
}

func (m Model) View() string {
	if m.loading {
		return "\n  Loading rules...\n"
	}

	if m.showForm {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.form.View())
	}
	if m.showConfirm {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.confirm.View())
	}

	topBarStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	topBar := topBarStyle.Render(fmt.Sprintf("Tab grouping rules · %d of %d active",
		rules.CountEnabled(m.list.Rules), len(m.list.Rules)))

	listBorder := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(0, 1)
	if m.width > 0 {
		listBorder = listBorder.Width(m.width - 2)
	}
	body := listBorder.Render(m.list.View())

	bottomBarStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Padding(0, 1)
	bottomText := helpLine(listKeys.Up, listKeys.Down, listKeys.Toggle, listKeys.Add,
		listKeys.Edit, listKeys.Delete, listKeys.Reload, listKeys.Quit)
	switch {
	case m.err != nil:
		bottomText = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("Error: "+m.err.Error()) + "  " + bottomText
	case m.status != "":
		bottomText = m.status + " · " + bottomText
	}

	return lipgloss.JoinVertical(lipgloss.Left, topBar, body, bottomBarStyle.Render(bottomText))
}
