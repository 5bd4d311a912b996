package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/lotas/autogroup/internal/rules"
)

type formField int

const (
	fieldName formField = iota
	fieldPattern
	fieldGroup
	fieldColor
	fieldCount
)

// formAction tells the app what the form wants after a key press.
type formAction int

const (
	formNone formAction = iota
	formSave
	formCancel
)

// RuleForm edits one rule. Patterns are entered one at a time and shown as
// tags.
type RuleForm struct {
	ruleID   string
	enabled  bool
	name     textinput.Model
	pattern  textinput.Model
	group    textinput.Model
	patterns rules.Patterns
	color    int // index into rules.Palette
	focus    formField
	err      *rules.ValidationError
	Width    int
}

func newInput(placeholder string) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 256
	ti.Prompt = ""
	ti.Cursor.SetMode(cursor.CursorStatic)
	return ti
}

// NewRuleForm returns an empty form for a new, enabled rule.
func NewRuleForm() RuleForm {
	f := RuleForm{
		enabled: true,
		name:    newInput("e.g. Work mail"),
		pattern: newInput("e.g. mail.google.com, then enter"),
		group:   newInput("e.g. Mail"),
	}
	f.setFocus(fieldName)
	return f
}

// EditRuleForm returns a form prefilled from r.
func EditRuleForm(r rules.Rule) RuleForm {
	f := NewRuleForm()
	f.ruleID = r.ID
	f.enabled = r.Enabled
	f.name.SetValue(r.Name)
	f.group.SetValue(r.GroupName)
	f.patterns = append(rules.Patterns{}, r.Pattern...)
	for i, c := range rules.Palette {
		if c == r.Color() {
			f.color = i
		}
	}
	return f
}

// Editing reports whether the form edits an existing rule.
func (f RuleForm) Editing() bool {
	return f.ruleID != ""
}

func (f RuleForm) RuleID() string {
	return f.ruleID
}

func (f RuleForm) Patterns() rules.Patterns {
	return f.patterns
}

func (f RuleForm) Color() rules.Color {
	return rules.Palette[f.color]
}

func (f *RuleForm) setFocus(field formField) {
	f.focus = field
	f.name.Blur()
	f.pattern.Blur()
	f.group.Blur()
	switch field {
	case fieldName:
		f.name.Focus()
	case fieldPattern:
		f.pattern.Focus()
	case fieldGroup:
		f.group.Focus()
	}
}

// addPendingPattern turns the pattern input's text into a tag. Duplicates
// are dropped silently.
func (f *RuleForm) addPendingPattern() {
	if f.patterns.Add(f.pattern.Value()) && f.err != nil && f.err.Field == "pattern" {
		f.err = nil
	}
	f.pattern.SetValue("")
}

// Rule builds the rule the form currently describes.
func (f RuleForm) Rule() rules.Rule {
	return rules.Rule{
		ID:         f.ruleID,
		Name:       strings.TrimSpace(f.name.Value()),
		Pattern:    append(rules.Patterns{}, f.patterns...),
		GroupName:  strings.TrimSpace(f.group.Value()),
		GroupColor: f.Color(),
		Enabled:    f.enabled,
	}
}

// SetError shows err inline. Non-validation errors are shown on the form
// as a whole.
func (f *RuleForm) SetError(err error) {
	var ve *rules.ValidationError
	if errors.As(err, &ve) {
		f.err = ve
		return
	}
	f.err = &rules.ValidationError{Message: err.Error()}
}

// Submit validates the form. On failure the error is shown inline and
// focus moves to the offending field.
func (f *RuleForm) Submit() (rules.Rule, bool) {
	if strings.TrimSpace(f.pattern.Value()) != "" {
		f.addPendingPattern()
	}
	r := f.Rule()
	if err := rules.Validate(r); err != nil {
		f.SetError(err)
		switch f.err.Field {
		case "pattern":
			f.setFocus(fieldPattern)
		case "groupName":
			f.setFocus(fieldGroup)
		}
		return rules.Rule{}, false
	}
	f.err = nil
	return r, true
}

func (f RuleForm) Update(msg tea.KeyMsg) (RuleForm, formAction, tea.Cmd) {
	switch {
	case key.Matches(msg, formKeys.Cancel):
		return f, formCancel, nil
	case key.Matches(msg, formKeys.Submit):
		return f, formSave, nil
	case key.Matches(msg, formKeys.Next):
		f.setFocus((f.focus + 1) % fieldCount)
		return f, formNone, nil
	case key.Matches(msg, formKeys.Prev):
		f.setFocus((f.focus + fieldCount - 1) % fieldCount)
		return f, formNone, nil
	}

	var cmd tea.Cmd
	switch f.focus {
	case fieldName:
		if msg.String() == "enter" {
			f.setFocus(fieldPattern)
			return f, formNone, nil
		}
		f.name, cmd = f.name.Update(msg)
	case fieldPattern:
		switch msg.String() {
		case "enter":
			if strings.TrimSpace(f.pattern.Value()) == "" {
				f.setFocus(fieldGroup)
			} else {
				f.addPendingPattern()
			}
			return f, formNone, nil
		case "backspace":
			if f.pattern.Value() == "" && len(f.patterns) > 0 {
				f.patterns = f.patterns[:len(f.patterns)-1]
				return f, formNone, nil
			}
		}
		f.pattern, cmd = f.pattern.Update(msg)
	case fieldGroup:
		if msg.String() == "enter" {
			f.setFocus(fieldColor)
			return f, formNone, nil
		}
		f.group, cmd = f.group.Update(msg)
	case fieldColor:
		switch {
		case key.Matches(msg, formKeys.Left):
			f.color = (f.color + len(rules.Palette) - 1) % len(rules.Palette)
		case key.Matches(msg, formKeys.Right):
			f.color = (f.color + 1) % len(rules.Palette)
		case msg.String() == "enter":
			return f, formSave, nil
		}
	}
	return f, formNone, cmd
}

func (f RuleForm) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	labelStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245")).Width(8)
	activeLabel := labelStyle.Foreground(lipgloss.Color("62"))
	tagStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Background(lipgloss.Color("62")).Padding(0, 1)
	errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(1, 2)

	label := func(field formField, text string) string {
		if f.focus == field {
			return activeLabel.Render(text)
		}
		return labelStyle.Render(text)
	}
	fieldErr := func(field string) string {
		if f.err != nil && f.err.Field == field {
			return "\n" + errStyle.Render("  ✗ "+f.err.Message)
		}
		return ""
	}

	title := "New rule"
	if f.Editing() {
		title = "Edit rule"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(title) + "\n\n")

	b.WriteString(label(fieldName, "Name") + f.name.View() + "\n")

	var tags []string
	for _, p := range f.patterns {
		tags = append(tags, tagStyle.Render(p))
	}
	b.WriteString(label(fieldPattern, "URLs"))
	if len(tags) > 0 {
		b.WriteString(strings.Join(tags, " ") + " ")
	}
	b.WriteString(f.pattern.View() + fieldErr("pattern") + "\n")

	b.WriteString(label(fieldGroup, "Group") + f.group.View() + fieldErr("groupName") + "\n")

	var colors []string
	for i, c := range rules.Palette {
		s := swatch(c)
		if i == f.color {
			s = "[" + s + "]"
		} else {
			s = " " + s + " "
		}
		colors = append(colors, s)
	}
	b.WriteString(label(fieldColor, "Color") + strings.Join(colors, "") + " " + string(f.Color()) + fieldErr("groupColor") + "\n")

	if f.err != nil && f.err.Field == "" {
		b.WriteString("\n" + errStyle.Render(fmt.Sprintf("✗ %s", f.err.Message)) + "\n")
	}

	b.WriteString("\n" + dimStyle.Render(helpLine(formKeys.Next, formKeys.Submit, formKeys.Cancel)))
	if f.focus == fieldPattern {
		b.WriteString("\n" + dimStyle.Render("enter add URL · backspace remove last"))
	} else if f.focus == fieldColor {
		b.WriteString("\n" + dimStyle.Render("←/→ pick color · enter save"))
	}

	return boxStyle.Render(b.String())
}
