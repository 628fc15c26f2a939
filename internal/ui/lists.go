package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/jobdeck/internal/portal"
	"github.com/five82/jobdeck/internal/state"
)

// visibleJobs returns the jobs matching the active category, in server order.
func (m Model) visibleJobs() []portal.Job {
	if m.category == "" {
		return m.jobSnap.Items
	}
	var out []portal.Job
	for _, job := range m.jobSnap.Items {
		if strings.EqualFold(strings.TrimSpace(job.Category), m.category) {
			out = append(out, job)
		}
	}
	return out
}

// visibleCompanies returns companies sorted by name.
func (m Model) visibleCompanies() []portal.Company {
	out := make([]portal.Company, len(m.companySnap.Items))
	copy(out, m.companySnap.Items)
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(strings.TrimSpace(out[i].Name)) < strings.ToLower(strings.TrimSpace(out[j].Name))
	})
	return out
}

func (m Model) selectedJob() (portal.Job, bool) {
	jobs := m.visibleJobs()
	if len(jobs) == 0 {
		return portal.Job{}, false
	}
	return jobs[clampIndex(m.selected[ViewJobs], len(jobs))], true
}

func (m Model) selectedCompany() (portal.Company, bool) {
	companies := m.visibleCompanies()
	if len(companies) == 0 {
		return portal.Company{}, false
	}
	return companies[clampIndex(m.selected[ViewCompanies], len(companies))], true
}

// listState captures what the body should show for the active view.
type listState struct {
	name    string
	hasData bool
	loading bool
	fetched bool
	errMsg  string
}

func (m Model) activeListState() listState {
	if m.view == ViewCompanies {
		return listState{
			name:    "companies",
			hasData: m.companySnap.HasData(),
			loading: m.companySnap.Loading,
			fetched: !m.companySnap.LastFetch.IsZero(),
			errMsg:  m.companySnap.Error,
		}
	}
	return listState{
		name:    "jobs",
		hasData: m.jobSnap.HasData(),
		loading: m.jobSnap.Loading,
		fetched: !m.jobSnap.LastFetch.IsZero(),
		errMsg:  m.jobSnap.Error,
	}
}

func (m Model) contentHeight() int {
	return max(m.height-2, 3) // header + command bar
}

func (m Model) paneWidths() (list, detail int) {
	if m.width >= 160 {
		list = m.width * 35 / 100
	} else {
		list = m.width * 45 / 100
	}
	return list, m.width - list
}

// renderContent renders the body below the command bar.
func (m Model) renderContent() string {
	styles := m.theme.Styles()
	height := m.contentHeight()
	ls := m.activeListState()

	if !ls.hasData {
		var msg string
		switch {
		case ls.errMsg != "":
			msg = styles.DangerText.Render(ls.errMsg) + "\n\n" +
				styles.MutedText.Render("Press r to retry")
		case ls.loading || !ls.fetched:
			msg = m.spinner.View() + " " + styles.MutedText.Render("Loading "+ls.name+"...")
		default:
			msg = styles.MutedText.Render("No " + ls.name + " yet")
		}
		return lipgloss.Place(m.width, height, lipgloss.Center, lipgloss.Center, msg)
	}

	var banner string
	if ls.errMsg != "" {
		banner = m.renderStaleBanner(ls.errMsg)
		height--
	}

	listWidth, detailWidth := m.paneWidths()
	var listTitle, listBody, detailTitle string
	if m.view == ViewCompanies {
		listTitle = fmt.Sprintf("Companies (%d)", len(m.companySnap.Items))
		listBody = m.renderCompanyRows(listWidth-2, height-2)
		detailTitle = "Company"
	} else {
		listTitle = m.jobsTitle()
		listBody = m.renderJobRows(listWidth-2, height-2)
		detailTitle = "Job"
	}

	listPane := m.renderTitledBox(listTitle, listBody, listWidth, height, true)
	detailPane := m.renderTitledBox(detailTitle, m.detail.View(), detailWidth, height, false)
	body := lipgloss.JoinHorizontal(lipgloss.Top, listPane, detailPane)
	if banner != "" {
		return banner + "\n" + body
	}
	return body
}

// renderStaleBanner warns that the list shows the last good data.
func (m Model) renderStaleBanner(errMsg string) string {
	styles := m.theme.Styles().WithBackground(m.theme.SurfaceAlt)
	bg := NewBgStyle(m.theme.SurfaceAlt)
	age := state.UpdatedLabel(state.CombinedAge(m.statuses...))
	text := bg.Render("!", styles.WarningText.Bold(true)) + bg.Space() +
		bg.Render(errMsg, styles.WarningText) + bg.Spaces(2) +
		bg.Render("Showing cached data. "+age+".", styles.MutedText)
	return bg.FillLine(text, m.width)
}

func (m Model) jobsTitle() string {
	if m.category == "" {
		return fmt.Sprintf("Jobs (%d)", len(m.jobSnap.Items))
	}
	return fmt.Sprintf("Jobs: %s (%d)", m.category, len(m.visibleJobs()))
}

func (m Model) renderJobRows(width, height int) string {
	jobs := m.visibleJobs()
	if len(jobs) == 0 {
		return m.theme.Styles().MutedText.Render("No jobs in " + m.category)
	}
	start, end := scrollWindow(len(jobs), m.selected[ViewJobs], height)
	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		lines = append(lines, m.renderRow(m.formatJobRow(jobs[i]), width, i == m.selected[ViewJobs]))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderCompanyRows(width, height int) string {
	companies := m.visibleCompanies()
	start, end := scrollWindow(len(companies), m.selected[ViewCompanies], height)
	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		lines = append(lines, m.renderRow(m.formatCompanyRow(companies[i]), width, i == m.selected[ViewCompanies]))
	}
	return strings.Join(lines, "\n")
}

// scrollWindow returns the [start, end) slice of n rows that keeps selected
// visible in height lines.
func scrollWindow(n, selected, height int) (int, int) {
	if height <= 0 || n <= height {
		return 0, n
	}
	start := max(selected-height+1, 0)
	return start, min(start+height, n)
}

// row is a list line split into independently styled parts.
type row struct {
	id     string
	title  string
	meta   string
	marker string
	color  string // meta colour; empty uses Muted
}

func (m Model) formatJobRow(job portal.Job) row {
	r := row{
		id:    fmt.Sprintf("#%d", job.ID),
		title: job.Title,
		meta:  job.CompanyName,
		color: m.colorForStatus(job.Status),
	}
	var flags []string
	if job.Applied {
		flags = append(flags, "A")
	}
	if job.Saved {
		flags = append(flags, "S")
	}
	if m.jobSnap.IsLocal(job.ID) {
		flags = append(flags, "*")
	}
	r.marker = strings.Join(flags, "")
	return r
}

func (m Model) formatCompanyRow(c portal.Company) row {
	r := row{
		id:    fmt.Sprintf("#%d", c.ID),
		title: strings.TrimSpace(c.Name),
		meta:  c.Industry,
	}
	if m.companySnap.IsLocal(c.ID) {
		r.marker = "*"
	}
	return r
}

// renderRow renders one list line. Selected rows use the selection colours
// throughout so every segment keeps its contrast.
func (m Model) renderRow(r row, width int, selected bool) string {
	bgColor := m.theme.SurfaceAlt
	if selected {
		bgColor = m.theme.SelectionBg
	}
	bg := NewBgStyle(bgColor)

	styles := m.theme.Styles()
	idStyle, titleStyle, metaStyle, markStyle := styles.MutedText, styles.Text, styles.MutedText, styles.WarningText
	if r.color != "" {
		metaStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(r.color))
	}
	if selected {
		sel := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.SelectionText))
		idStyle, titleStyle, metaStyle, markStyle = sel, sel.Bold(true), sel, sel
	}

	fixed := len(r.id) + 1 + len(r.marker) + 1
	metaWidth := min(lipgloss.Width(r.meta), max(width/3, 8))
	titleWidth := max(width-fixed-metaWidth-3, 8)

	line := bg.Render(r.id, idStyle) + bg.Space() + bg.Render(truncate(r.title, titleWidth), titleStyle)
	if r.meta != "" {
		line += bg.Render(" · ", styles.FaintText) + bg.Render(truncate(r.meta, metaWidth), metaStyle)
	}
	if r.marker != "" {
		line += bg.Space() + bg.Render(r.marker, markStyle)
	}
	return bg.FillLine(line, width)
}

func (m Model) colorForStatus(status string) string {
	status = strings.ToLower(strings.TrimSpace(status))
	if status == "" {
		status = "open"
	}
	if color, ok := m.theme.StatusColors[status]; ok {
		return color
	}
	return m.theme.Muted
}

// renderTitledBox draws content inside a border with the title set into the
// top edge: ┌─── Title ───┐
func (m Model) renderTitledBox(title, content string, width, height int, focused bool) string {
	borderColor, bgColor := m.theme.Border, m.theme.SurfaceAlt
	if focused {
		borderColor = m.theme.BorderFocus
	}
	bg := NewBgStyle(bgColor)
	borderStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(borderColor))
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(m.theme.Text))

	innerWidth := max(width-2, 1)
	title = truncate(title, max(innerWidth-4, 1))
	titleLen := lipgloss.Width(title)
	leftPad := max((innerWidth-titleLen-2)/2, 0)
	rightPad := max(innerWidth-titleLen-2-leftPad, 0)

	top := bg.Render("┌"+strings.Repeat("─", leftPad), borderStyle) +
		bg.Render(" "+title+" ", titleStyle) +
		bg.Render(strings.Repeat("─", rightPad)+"┐", borderStyle)
	bottom := bg.Render("└"+strings.Repeat("─", innerWidth)+"┘", borderStyle)

	lineStyle := lipgloss.NewStyle().Width(innerWidth).MaxWidth(innerWidth).Background(lipgloss.Color(bgColor))
	side := bg.Render("│", borderStyle)

	contentLines := strings.Split(content, "\n")
	boxHeight := max(height-2, 0)
	lines := make([]string, 0, boxHeight+2)
	lines = append(lines, top)
	for i := range boxHeight {
		var line string
		if i < len(contentLines) {
			line = contentLines[i]
		}
		lines = append(lines, side+lineStyle.Render(line)+side)
	}
	lines = append(lines, bottom)
	return strings.Join(lines, "\n")
}
