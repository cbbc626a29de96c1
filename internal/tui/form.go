package tui

import (
	"strings"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/colibri-os/rlab/internal/app"
	"github.com/colibri-os/rlab/internal/domain"
)

// entry-form field indexes in focus order.
const (
	formFieldKind = iota
	formFieldCategory
	formFieldTitle
	formFieldDescription
	formFieldExternal
	formFieldCount
)

// formKinds stores the kinds selectable from the entry form.
var formKinds = []domain.EventKind{
	domain.EventKindMicroAction,
	domain.EventKindEvidence,
}

// entryForm stores the in-progress submission.
type entryForm struct {
	kind        int
	category    int
	external    bool
	focus       int
	title       textinput.Model
	description textinput.Model
	errText     string
}

// newEntryForm builds one form preset to a kind and category.
func newEntryForm(kind domain.EventKind, category int) entryForm {
	f := entryForm{
		category:    clamp(category, 0, len(domain.CategoryIDs())-1),
		external:    true,
		focus:       formFieldTitle,
		title:       newModalInput("título: ", "ej. FODA personal", "", 120),
		description: newModalInput("descripción: ", "qué hiciste y qué aprendiste", "", 500),
	}
	for idx, candidate := range formKinds {
		if candidate == kind {
			f.kind = idx
		}
	}
	f.title.Focus()
	return f
}

// newModalInput constructs modal input.
func newModalInput(prompt, placeholder, value string, limit int) textinput.Model {
	in := textinput.New()
	in.Prompt = prompt
	in.Placeholder = placeholder
	in.CharLimit = limit
	if value != "" {
		in.SetValue(value)
	}
	return in
}

// input builds the submission payload.
func (f entryForm) input() app.SubmitEventInput {
	return app.SubmitEventInput{
		Kind:                 formKinds[f.kind],
		Category:             domain.CategoryIDs()[f.category],
		Title:                f.title.Value(),
		Description:          f.description.Value(),
		RegisteredExternally: f.external,
	}
}

// setFocus moves focus to one field and syncs text-input focus state.
func (f *entryForm) setFocus(idx int) tea.Cmd {
	f.focus = wrapIndex(idx, 0, formFieldCount)
	f.title.Blur()
	f.description.Blur()
	switch f.focus {
	case formFieldTitle:
		return f.title.Focus()
	case formFieldDescription:
		return f.description.Focus()
	}
	return nil
}

// cycle changes the value of a selector field.
func (f *entryForm) cycle(delta int) {
	switch f.focus {
	case formFieldKind:
		f.kind = wrapIndex(f.kind, delta, len(formKinds))
	case formFieldCategory:
		f.category = wrapIndex(f.category, delta, len(domain.CategoryIDs()))
	case formFieldExternal:
		f.external = !f.external
	}
}

// update routes one key press to the form. submit reports an enter on the form.
func (f entryForm) update(msg tea.KeyPressMsg) (entryForm, tea.Cmd, bool) {
	switch msg.String() {
	case "tab", "down":
		return f, f.setFocus(f.focus + 1), false
	case "shift+tab", "up":
		return f, f.setFocus(f.focus + formFieldCount - 1), false
	case "enter":
		return f, nil, true
	case "left", "right", " ", "space":
		if f.focus != formFieldTitle && f.focus != formFieldDescription {
			delta := 1
			if msg.String() == "left" {
				delta = -1
			}
			f.cycle(delta)
			return f, nil, false
		}
	}

	var cmd tea.Cmd
	switch f.focus {
	case formFieldTitle:
		f.title, cmd = f.title.Update(msg)
	case formFieldDescription:
		f.description, cmd = f.description.Update(msg)
	}
	return f, cmd, false
}

// view renders the form body.
func (f entryForm) view(width int) string {
	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	focusStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("203"))

	row := func(idx int, label, value string) string {
		prefix := "  "
		style := labelStyle
		if f.focus == idx {
			prefix = "› "
			style = focusStyle
		}
		return prefix + style.Render(label) + " " + value
	}

	category := domain.Categories()[f.category]
	external := "no"
	if f.external {
		external = "sí"
	}
	title := f.title
	title.SetWidth(max(20, width-16))
	description := f.description
	description.SetWidth(max(20, width-22))

	lines := []string{
		focusStyle.Render("Nuevo registro"),
		"",
		row(formFieldKind, "tipo:", "‹ "+formKinds[f.kind].Label()+" ›"),
		row(formFieldCategory, "categoría:", "‹ "+category.DisplayLabel()+" ›"),
		row(formFieldTitle, "", title.View()),
		row(formFieldDescription, "", description.View()),
		row(formFieldExternal, "registrado en Story:", "‹ "+external+" ›"),
		"",
		labelStyle.Render(truncate(category.Hint, max(20, width-4))),
	}
	if f.errText != "" {
		lines = append(lines, "", errStyle.Render(f.errText))
	}
	lines = append(lines, "", labelStyle.Render("tab campo • ←/→ cambiar • enter guardar • esc cancelar"))
	return strings.Join(lines, "\n")
}
