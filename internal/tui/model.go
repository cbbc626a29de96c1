package tui

import (
	"context"
	"fmt"
	"image/color"
	"strings"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/colibri-os/rlab/internal/app"
	"github.com/colibri-os/rlab/internal/domain"
)

// Service represents service data used by this package.
type Service interface {
	Progress(context.Context) (app.ProgressSnapshot, app.LoadReport)
	Timeline(context.Context, app.TimelineFilter) (app.Timeline, app.LoadReport)
	Submit(context.Context, app.SubmitEventInput) (app.SubmitResult, error)
}

// Model represents model data used by this package.
type Model struct {
	svc   Service
	state viewState
	keys  keyMap
	help  help.Model

	ready  bool
	width  int
	height int
	status string

	displayName string
	snapshot    app.ProgressSnapshot
	timeline    app.Timeline
	report      app.LoadReport
	form        entryForm
	timelineTop int

	markdown *markdownRenderer
	copyText ClipboardFunc
	changes  <-chan struct{}
}

// loadedMsg carries message data through update handling.
type loadedMsg struct {
	snapshot app.ProgressSnapshot
	timeline app.Timeline
	report   app.LoadReport
}

// submittedMsg carries one submission outcome.
type submittedMsg struct {
	result app.SubmitResult
	err    error
}

// copiedMsg carries one clipboard write outcome.
type copiedMsg struct {
	err error
}

// storeChangedMsg reports that the event log changed outside the dashboard.
type storeChangedMsg struct{}

// NewModel constructs a new value for this package.
func NewModel(svc Service, opts ...Option) Model {
	h := help.New()
	h.ShowAll = false
	m := Model{
		svc:      svc,
		keys:     newKeyMap(),
		help:     h,
		status:   "loading...",
		markdown: &markdownRenderer{},
		copyText: systemClipboard,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	return m
}

// Init handles init.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadData, m.waitForChange())
}

// Update updates state for the requested operation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case loadedMsg:
		m.snapshot = msg.snapshot
		m.timeline = msg.timeline
		m.report = msg.report
		m.timelineTop = clamp(m.timelineTop, 0, max(0, len(m.timeline.Events)-1))
		if m.status == "" || m.status == "loading..." || m.status == "reloading..." {
			m.status = "ready"
		}
		return m, nil

	case submittedMsg:
		if msg.err != nil {
			m.form.errText = app.ValidationMessage(msg.err)
			return m, nil
		}
		m.state = reduce(m.state, actionCloseModal)
		m.status = msg.result.Message
		return m, m.loadData

	case copiedMsg:
		if msg.err != nil {
			m.status = "no se pudo copiar: " + msg.err.Error()
			return m, nil
		}
		m.status = "resumen copiado al portapapeles"
		return m, nil

	case storeChangedMsg:
		return m, tea.Batch(m.loadData, m.waitForChange())

	case tea.KeyPressMsg:
		switch m.state.modal {
		case modalForm:
			return m.handleFormKey(msg)
		case modalDetail:
			return m.handleDetailKey(msg)
		}
		return m.handleNormalModeKey(msg)

	default:
		return m, nil
	}
}

// handleNormalModeKey handles dashboard keys outside any overlay.
func (m Model) handleNormalModeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case msg.String() == "esc":
		m.help.ShowAll = false
		return m, nil
	case key.Matches(msg, m.keys.reload):
		m.status = "reloading..."
		return m, m.loadData
	case key.Matches(msg, m.keys.nextTab):
		m.state = reduce(m.state, actionNextTab)
		return m, nil
	case key.Matches(msg, m.keys.prevTab):
		m.state = reduce(m.state, actionPrevTab)
		return m, nil
	case key.Matches(msg, m.keys.moveDown):
		if m.state.tab == tabTimeline {
			m.timelineTop = clamp(m.timelineTop+1, 0, max(0, len(m.timeline.Events)-1))
			return m, nil
		}
		m.state = reduce(m.state, actionNextCategory)
		return m, nil
	case key.Matches(msg, m.keys.moveUp):
		if m.state.tab == tabTimeline {
			m.timelineTop = clamp(m.timelineTop-1, 0, max(0, len(m.timeline.Events)-1))
			return m, nil
		}
		m.state = reduce(m.state, actionPrevCategory)
		return m, nil
	case key.Matches(msg, m.keys.details):
		m.state = reduce(m.state, actionOpenDetail)
		return m, nil
	case key.Matches(msg, m.keys.kindFilter):
		m.state = reduce(m.state, actionCycleKindFilter)
		m.timelineTop = 0
		m.status = "filtro: " + m.state.kindFilterLabel()
		return m, m.loadData
	case key.Matches(msg, m.keys.newEntry):
		return m.openForm(domain.EventKindMicroAction)
	case key.Matches(msg, m.keys.newEvidence):
		return m.openForm(domain.EventKindEvidence)
	case key.Matches(msg, m.keys.copySummary):
		return m, m.copySummary()
	}
	return m, nil
}

// openForm opens the entry form preset to the selected category.
func (m Model) openForm(kind domain.EventKind) (tea.Model, tea.Cmd) {
	m.state = reduce(m.state, actionOpenForm)
	m.form = newEntryForm(kind, m.state.category)
	m.status = "nuevo registro"
	return m, nil
}

// handleFormKey routes keys to the entry form.
func (m Model) handleFormKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "esc" {
		m.state = reduce(m.state, actionCloseModal)
		m.status = "registro cancelado"
		return m, nil
	}
	form, cmd, submit := m.form.update(msg)
	m.form = form
	if submit {
		return m, m.submit(m.form.input())
	}
	return m, cmd
}

// handleDetailKey closes the category detail overlay.
func (m Model) handleDetailKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.String() == "esc", key.Matches(msg, m.keys.details):
		m.state = reduce(m.state, actionCloseModal)
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	}
	return m, nil
}

// loadData loads required data for the current operation.
func (m Model) loadData() tea.Msg {
	ctx := context.Background()
	snapshot, report := m.svc.Progress(ctx)
	timeline, _ := m.svc.Timeline(ctx, app.TimelineFilter{Kind: m.state.kindFilter})
	return loadedMsg{snapshot: snapshot, timeline: timeline, report: report}
}

// submit appends one entry through the service.
func (m Model) submit(in app.SubmitEventInput) tea.Cmd {
	return func() tea.Msg {
		result, err := m.svc.Submit(context.Background(), in)
		return submittedMsg{result: result, err: err}
	}
}

// waitForChange blocks on the change feed and reports one change.
func (m Model) waitForChange() tea.Cmd {
	changes := m.changes
	if changes == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return nil
		}
		return storeChangedMsg{}
	}
}

// copySummary writes the progress summary to the clipboard.
func (m Model) copySummary() tea.Cmd {
	text := m.summaryText()
	copyText := m.copyText
	return func() tea.Msg {
		return copiedMsg{err: copyText(text)}
	}
}

// summaryText renders the one-line progress summary.
func (m Model) summaryText() string {
	snap := m.snapshot
	parts := []string{}
	if name := strings.TrimSpace(m.displayName); name != "" {
		parts = append(parts, name)
	}
	parts = append(parts,
		snap.CurrentLevel.Name,
		fmt.Sprintf("IC %d%%", snap.CompletionIndex),
		fmt.Sprintf("Microacciones %d/%d", snap.Micro, snap.MicroMax),
		fmt.Sprintf("Evidencias %d/%d", snap.Evidence, snap.EvidenceMax),
	)
	return strings.Join(parts, " · ")
}

// View handles view.
func (m Model) View() tea.View {
	if !m.ready {
		v := tea.NewView("loading...")
		v.AltScreen = true
		return v
	}

	accent := lipgloss.Color("214")
	muted := lipgloss.Color("241")
	dim := lipgloss.Color("239")
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	statusStyle := lipgloss.NewStyle().Foreground(dim)

	header := titleStyle.Render("rlab")
	if name := strings.TrimSpace(m.displayName); name != "" {
		header += "  " + name
	}
	header += statusStyle.Render("  [" + m.snapshot.CurrentLevel.Name + "]")

	var body string
	switch m.state.tab {
	case tabTimeline:
		body = m.renderTimeline(accent, muted)
	case tabEvidence:
		body = m.renderEvidence(accent, muted)
	default:
		body = m.renderPanel(accent, muted)
	}

	sections := []string{header, m.renderTabs(accent, dim), "", body}
	if warning := m.loadWarning(); warning != "" {
		sections = append(sections, "", lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Render(warning))
	}
	if strings.TrimSpace(m.status) != "" && m.status != "ready" {
		sections = append(sections, "", statusStyle.Render(m.status))
	}
	content := strings.Join(sections, "\n")

	helpBubble := m.help
	helpBubble.SetWidth(max(0, m.width-2))
	helpLine := lipgloss.NewStyle().
		Foreground(muted).
		BorderTop(true).
		BorderForeground(dim).
		Padding(0, 1).
		Width(max(0, m.width)).
		Render(helpBubble.View(m.keys))

	if m.height > 0 {
		content = fitLines(content, max(0, m.height-lipgloss.Height(helpLine)))
	}
	fullContent := content + "\n" + helpLine
	if overlay := m.renderOverlay(accent); overlay != "" {
		overlayHeight := lipgloss.Height(fullContent)
		if m.height > 0 {
			overlayHeight = m.height
		}
		fullContent = overlayOnContent(fullContent, overlay, max(1, m.width), max(1, overlayHeight))
	}

	v := tea.NewView(fullContent)
	v.AltScreen = true
	return v
}

// renderTabs renders the tab strip.
func (m Model) renderTabs(accent, dim color.Color) string {
	active := lipgloss.NewStyle().Bold(true).Foreground(accent).Underline(true)
	inactive := lipgloss.NewStyle().Foreground(dim)
	parts := make([]string, 0, tabCount)
	for idx := range tabCount {
		tab := dashboardTab(idx)
		if tab == m.state.tab {
			parts = append(parts, active.Render(tab.Label()))
			continue
		}
		parts = append(parts, inactive.Render(tab.Label()))
	}
	return strings.Join(parts, "   ")
}

// renderPanel renders the level card and category checklist.
func (m Model) renderPanel(accent, muted color.Color) string {
	snap := m.snapshot
	labelStyle := lipgloss.NewStyle().Foreground(muted)
	levelStyle := lipgloss.NewStyle().Bold(true).Foreground(accent)
	selectedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	doneStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("114"))

	barWidth := clamp(m.width-30, 10, 40)
	lines := []string{
		levelStyle.Render(snap.CurrentLevel.Name) + labelStyle.Render(fmt.Sprintf("  %d registros", snap.TotalRecords)),
		fmt.Sprintf("IC %3d%% %s", snap.CompletionIndex, progressBar(snap.CompletionIndex, 100, barWidth)),
		fmt.Sprintf("Microacciones %d/%d  Evidencias %d/%d", snap.Micro, snap.MicroMax, snap.Evidence, snap.EvidenceMax),
	}
	if next := snap.NextLevel; next != nil {
		need := fmt.Sprintf("siguiente: %s", next.Name)
		if next.Placeholder {
			need += " (próximamente)"
		} else {
			need += fmt.Sprintf(" (faltan %d microacciones y %d evidencias)",
				max(0, next.MicroThreshold-snap.Micro), max(0, next.EvidenceThreshold-snap.Evidence))
		}
		lines = append(lines, labelStyle.Render(need))
	}
	lines = append(lines, "")

	rows := m.categoryRows()
	for idx, row := range rows {
		prefix := "  "
		label := fmt.Sprintf("%-36s  micro %d/%d  evid %d/%d",
			truncate(row.Category.DisplayLabel(), 36), row.Micro, row.MicroMax, row.Evidence, row.EvidenceMax)
		if row.Complete() {
			label = doneStyle.Render(label + "  ✓")
		}
		if idx == m.state.category {
			prefix = "› "
			label = selectedStyle.Render(label)
		}
		lines = append(lines, prefix+label)
	}
	selected := m.state.selectedCategory()
	lines = append(lines, "", labelStyle.Render(truncate(selected.Hint, max(20, m.width-4))))
	return strings.Join(lines, "\n")
}

// renderTimeline renders the filtered, newest-first event list.
func (m Model) renderTimeline(accent, muted color.Color) string {
	labelStyle := lipgloss.NewStyle().Foreground(muted)
	kindStyle := lipgloss.NewStyle().Bold(true).Foreground(accent)
	counts := m.timeline.Counts

	lines := []string{
		labelStyle.Render(fmt.Sprintf("filtro: %s • %d registros • %d microacciones • %d evidencias • %d hitos • %d en Story",
			m.state.kindFilterLabel(), counts.Total, counts.MicroActions, counts.Evidence, counts.Milestones, counts.RegisteredExternally)),
		"",
	}
	events := m.timeline.Events
	if len(events) == 0 {
		lines = append(lines, labelStyle.Render("(sin registros)"))
		return strings.Join(lines, "\n")
	}

	window := 8
	if m.height > 0 {
		window = max(3, (m.height-12)/2)
	}
	start, end := windowBounds(len(events), m.timelineTop, window)
	for idx := start; idx < end; idx++ {
		event := events[idx]
		prefix := "  "
		if idx == m.timelineTop {
			prefix = "› "
		}
		kind := event.DisplayKind()
		title := kindStyle.Render(kind.Label()) + "  " + truncate(event.Title, max(10, m.width-40))
		if category, ok := domain.LookupCategory(event.Category); ok {
			title += labelStyle.Render("  " + string(category.ID))
		}
		if event.RegisteredExternally {
			title += labelStyle.Render("  · Story")
		}
		lines = append(lines, prefix+title)
		lines = append(lines, "    "+labelStyle.Render(formatEventDate(event.CreatedAt)+"  "+truncate(event.Description, max(10, m.width-24))))
	}
	if end < len(events) {
		lines = append(lines, labelStyle.Render(fmt.Sprintf("  … %d más", len(events)-end)))
	}
	return strings.Join(lines, "\n")
}

// renderEvidence renders per-category evidence status.
func (m Model) renderEvidence(accent, muted color.Color) string {
	labelStyle := lipgloss.NewStyle().Foreground(muted)
	doneStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("114"))
	selectedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)

	lines := []string{
		lipgloss.NewStyle().Bold(true).Foreground(accent).Render(fmt.Sprintf("Evidencias %d/%d", m.snapshot.Evidence, m.snapshot.EvidenceMax)),
		labelStyle.Render("e registra una evidencia en la categoría seleccionada"),
		"",
	}
	for idx, row := range m.categoryRows() {
		mark := "pendiente"
		if row.Evidence >= row.EvidenceMax && row.EvidenceMax > 0 {
			mark = doneStyle.Render("lista")
		}
		line := fmt.Sprintf("%-36s  %s", truncate(row.Category.DisplayLabel(), 36), mark)
		prefix := "  "
		if idx == m.state.category {
			prefix = "› "
			line = selectedStyle.Render(line)
		}
		lines = append(lines, prefix+line)
	}
	return strings.Join(lines, "\n")
}

// renderOverlay renders the active modal, if any.
func (m Model) renderOverlay(accent color.Color) string {
	width := clamp(m.width-8, 30, 90)
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Padding(1, 2).
		Width(width)

	switch {
	case m.state.modal == modalForm:
		return box.Render(m.form.view(width - 6))
	case m.state.modal == modalDetail:
		row := m.categoryRows()[clamp(m.state.category, 0, len(m.categoryRows())-1)]
		return box.Render(m.markdown.render(categoryMarkdown(row), width-6))
	case m.help.ShowAll:
		helpBubble := m.help
		helpBubble.SetWidth(width - 6)
		return box.Render(helpBubble.View(m.keys))
	}
	return ""
}

// categoryRows returns snapshot rows or zero rows before the first load.
func (m Model) categoryRows() []app.CategoryProgress {
	if len(m.snapshot.Categories) > 0 {
		return m.snapshot.Categories
	}
	rules := app.DefaultProgressRules()
	rows := make([]app.CategoryProgress, 0, len(domain.CategoryIDs()))
	for _, category := range domain.Categories() {
		rows = append(rows, app.CategoryProgress{
			Category:    category,
			MicroMax:    rules.MicroPerCategory,
			EvidenceMax: rules.EvidencePerCategory,
		})
	}
	return rows
}

// loadWarning describes a degraded load.
func (m Model) loadWarning() string {
	switch {
	case m.report.Failure != "":
		return "no se pudo leer el registro: " + m.report.Failure
	case m.report.Corrupt && m.report.BackupKey != "":
		return "registro dañado respaldado en " + m.report.BackupKey
	case m.report.Corrupt:
		return "registro dañado; se respaldará en la próxima escritura"
	case m.report.Skipped > 0:
		return fmt.Sprintf("%d registros ilegibles omitidos", m.report.Skipped)
	}
	return ""
}

// progressBar renders value/limit as a fixed-width bar.
func progressBar(value, limit, width int) string {
	if width <= 0 {
		return ""
	}
	filled := 0
	if limit > 0 {
		filled = clamp(value*width/limit, 0, width)
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("·", width-filled) + "]"
}

// formatEventDate renders an event timestamp for the timeline.
func formatEventDate(at time.Time) string {
	if at.IsZero() {
		return "sin fecha"
	}
	return at.UTC().Format("2006-01-02")
}

// windowBounds returns a visible [start,end) window that keeps selected in view.
func windowBounds(total, selected, windowSize int) (int, int) {
	if total <= 0 || windowSize <= 0 {
		return 0, 0
	}
	if total <= windowSize {
		return 0, total
	}
	start := clamp(selected-windowSize/2, 0, total-windowSize)
	return start, start + windowSize
}

// fitLines truncates or pads content to exactly maxLines lines.
func fitLines(content string, maxLines int) string {
	if maxLines <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	switch {
	case len(lines) > maxLines:
		if maxLines == 1 {
			lines = []string{"…"}
		} else {
			lines = append(lines[:maxLines-1], "…")
		}
	case len(lines) < maxLines:
		padding := make([]string, maxLines-len(lines))
		lines = append(lines, padding...)
	}
	return strings.Join(lines, "\n")
}

// overlayOnContent overlays on content.
func overlayOnContent(base, overlay string, width, height int) string {
	if width <= 0 || height <= 0 {
		if strings.TrimSpace(overlay) == "" {
			return base
		}
		return overlay + "\n\n" + base
	}

	base = fitLines(base, height)
	canvas := lipgloss.NewCanvas(width, height)
	baseLayer := lipgloss.NewLayer(base).X(0).Y(0).Z(0)
	centeredOverlay := lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		overlay,
	)
	overlayLayer := lipgloss.NewLayer(centeredOverlay).X(0).Y(0).Z(10)

	canvas.Compose(baseLayer)
	canvas.Compose(overlayLayer)
	return canvas.Render()
}

// truncate shortens s to max runes with an ellipsis.
func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= max {
		return s
	}
	if max <= 1 {
		return string(rs[:max])
	}
	return string(rs[:max-1]) + "…"
}
