package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/jobdeck/internal/catalog"
	"github.com/five82/jobdeck/internal/logging"
	"github.com/five82/jobdeck/internal/portal"
	"github.com/five82/jobdeck/internal/prefs"
	"github.com/five82/jobdeck/internal/state"
)

// View is the active list.
type View int

const (
	ViewJobs View = iota
	ViewCompanies
)

func (v View) String() string {
	if v == ViewCompanies {
		return prefs.ViewCompanies
	}
	return prefs.ViewJobs
}

func parseView(s string) View {
	if strings.EqualFold(strings.TrimSpace(s), prefs.ViewCompanies) {
		return ViewCompanies
	}
	return ViewJobs
}

// Options configures the UI. Companies, Jobs and Focus are required; the
// action hooks may be nil, which disables the matching key.
type Options struct {
	Context   context.Context
	Companies *catalog.Companies
	Jobs      *catalog.Jobs
	Focus     *state.Focus

	Refresh     func(ctx context.Context) []state.Status
	Apply       func(ctx context.Context, id int64) error
	ToggleSaved func(ctx context.Context, id int64) (bool, error)

	Tick      time.Duration // snapshot re-read cadence; default 1s
	Prefs     prefs.Prefs
	PrefsPath string
	Log       logging.Logger
}

// Model is the root Bubble Tea model.
type Model struct {
	ctx         context.Context
	companies   *catalog.Companies
	jobs        *catalog.Jobs
	focus       *state.Focus
	refresh     func(ctx context.Context) []state.Status
	apply       func(ctx context.Context, id int64) error
	toggleSaved func(ctx context.Context, id int64) (bool, error)
	prefsPath   string
	tick        time.Duration
	log         logging.Logger
	keys        keyMap

	// UI state
	theme    Theme
	view     View
	width    int
	height   int
	ready    bool
	showHelp bool
	blurred  bool
	selected [2]int // per view
	category string

	// Data state
	companySnap state.Snapshot[int64, portal.Company]
	jobSnap     state.Snapshot[int64, portal.Job]
	statuses    []state.Status
	categories  []string

	// Activity
	spinner    spinner.Model
	detail     viewport.Model
	refreshing bool
	notice     string
	noticeErr  bool
}

// New creates the model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	tick := opts.Tick
	if tick <= 0 {
		tick = time.Second
	}
	focus := opts.Focus
	if focus == nil {
		focus = state.NewFocus()
	}
	theme := GetTheme(opts.Prefs.Theme)

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Accent))

	m := Model{
		ctx:         ctx,
		companies:   opts.Companies,
		jobs:        opts.Jobs,
		focus:       focus,
		refresh:     opts.Refresh,
		apply:       opts.Apply,
		toggleSaved: opts.ToggleSaved,
		prefsPath:   opts.PrefsPath,
		tick:        tick,
		log:         logging.OrNop(opts.Log),
		keys:        DefaultKeyMap(),
		theme:       theme,
		view:        parseView(opts.Prefs.View),
		category:    strings.TrimSpace(opts.Prefs.Category),
		spinner:     sp,
		detail:      viewport.New(0, 0),
	}
	m.readStores()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(m.tick), m.spinner.Tick)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.layoutDetail()
		return m, nil

	case tea.FocusMsg:
		m.blurred = false
		m.focus.Gained()
		return m, nil

	case tea.BlurMsg:
		m.blurred = true
		m.focus.Lost()
		return m, nil

	case tickMsg:
		m.readStores()
		return m, tickCmd(m.tick)

	case refreshDoneMsg:
		m.refreshing = false
		m.readStores()
		if failed := failedStatuses(msg.statuses); len(failed) > 0 {
			m.setNotice(strings.Join(failed, " "), true)
		} else {
			m.setNotice(state.UpdatedLabel(state.CombinedAge(msg.statuses...)), false)
		}
		return m, nil

	case actionDoneMsg:
		m.readStores()
		if msg.err != nil {
			m.setNotice(msg.err.Error(), true)
		} else {
			m.setNotice(msg.text, false)
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	b.WriteString(m.renderContent())
	return b.String()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.spinner.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Accent))
		m.savePrefs()
		m.syncDetail()
		return m, nil

	case key.Matches(msg, m.keys.SwitchView):
		if m.view == ViewJobs {
			m.view = ViewCompanies
		} else {
			m.view = ViewJobs
		}
		m.savePrefs()
		m.syncDetail()
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		if m.refresh == nil || m.refreshing {
			return m, nil
		}
		m.refreshing = true
		return m, refreshCmd(m.ctx, m.refresh)

	case key.Matches(msg, m.keys.Up):
		m.moveSelection(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveSelection(1)
	case key.Matches(msg, m.keys.Top):
		m.selected[m.view] = 0
		m.syncDetail()
	case key.Matches(msg, m.keys.Bottom):
		m.selected[m.view] = max(m.rowCount()-1, 0)
		m.syncDetail()
	case key.Matches(msg, m.keys.HalfPageDown):
		m.detail.HalfPageDown()
	case key.Matches(msg, m.keys.HalfPageUp):
		m.detail.HalfPageUp()

	case key.Matches(msg, m.keys.CycleCategory):
		if m.view == ViewJobs {
			m.category = nextCategory(m.categories, m.category)
			m.selected[ViewJobs] = 0
			m.savePrefs()
			m.syncDetail()
		}

	case key.Matches(msg, m.keys.Apply):
		return m, m.applyCmd()

	case key.Matches(msg, m.keys.ToggleSaved):
		return m, m.toggleSavedCmd()
	}

	return m, nil
}

func (m *Model) moveSelection(delta int) {
	m.selected[m.view] = clampIndex(m.selected[m.view]+delta, m.rowCount())
	m.syncDetail()
}

func (m Model) rowCount() int {
	if m.view == ViewCompanies {
		return len(m.visibleCompanies())
	}
	return len(m.visibleJobs())
}

func (m Model) applyCmd() tea.Cmd {
	if m.view != ViewJobs || m.apply == nil {
		return nil
	}
	job, ok := m.selectedJob()
	if !ok {
		return nil
	}
	if job.Applied {
		return noticeCmd("Already applied to " + job.Title)
	}
	if !job.IsOpen() {
		return noticeCmd(job.Title + " is no longer accepting applications")
	}
	ctx, apply := m.ctx, m.apply
	return func() tea.Msg {
		if err := apply(ctx, job.ID); err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{text: "Applied to " + job.Title}
	}
}

func (m Model) toggleSavedCmd() tea.Cmd {
	if m.view != ViewJobs || m.toggleSaved == nil {
		return nil
	}
	job, ok := m.selectedJob()
	if !ok {
		return nil
	}
	ctx, toggle := m.ctx, m.toggleSaved
	return func() tea.Msg {
		saved, err := toggle(ctx, job.ID)
		if err != nil {
			return actionDoneMsg{err: err}
		}
		if saved {
			return actionDoneMsg{text: "Saved " + job.Title}
		}
		return actionDoneMsg{text: "Removed " + job.Title + " from saved"}
	}
}

// readStores copies the current store state into the model.
func (m *Model) readStores() {
	if m.companies != nil {
		m.companySnap = m.companies.Snapshot()
	}
	if m.jobs != nil {
		m.jobSnap = m.jobs.Snapshot()
		m.categories = m.jobs.Categories()
	}
	statuses := make([]state.Status, 0, 2)
	if m.companies != nil {
		statuses = append(statuses, m.companies.Status())
	}
	if m.jobs != nil {
		statuses = append(statuses, m.jobs.Status())
	}
	m.statuses = statuses
	m.selected[ViewJobs] = clampIndex(m.selected[ViewJobs], len(m.visibleJobs()))
	m.selected[ViewCompanies] = clampIndex(m.selected[ViewCompanies], len(m.visibleCompanies()))
	m.syncDetail()
}

func (m *Model) setNotice(text string, isErr bool) {
	m.notice = text
	m.noticeErr = isErr
}

func (m Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	err := prefs.Save(m.prefsPath, prefs.Prefs{
		Theme:    m.theme.Name,
		View:     m.view.String(),
		Category: m.category,
	})
	if err != nil {
		m.log.Warn("prefs save failed", logging.Fields{"error": err.Error()})
	}
}

// nextCategory cycles "" (all) through categories and back.
func nextCategory(categories []string, current string) string {
	if current == "" {
		if len(categories) == 0 {
			return ""
		}
		return categories[0]
	}
	for i, c := range categories {
		if strings.EqualFold(c, current) {
			if i+1 < len(categories) {
				return categories[i+1]
			}
			return ""
		}
	}
	return ""
}

func failedStatuses(statuses []state.Status) []string {
	var out []string
	for _, st := range statuses {
		if st.Error != "" {
			out = append(out, st.Error)
		}
	}
	return out
}

// Messages

type tickMsg time.Time

type refreshDoneMsg struct {
	statuses []state.Status
}

type actionDoneMsg struct {
	text string
	err  error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func refreshCmd(ctx context.Context, refresh func(context.Context) []state.Status) tea.Cmd {
	return func() tea.Msg {
		return refreshDoneMsg{statuses: refresh(ctx)}
	}
}

func noticeCmd(text string) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{text: text}
	}
}

// Run starts the Bubble Tea program and blocks until it exits.
func Run(opts Options) error {
	if opts.Companies == nil || opts.Jobs == nil {
		return fmt.Errorf("ui: companies and jobs stores are required")
	}
	m := New(opts)
	programOpts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithReportFocus()}
	if opts.Context != nil {
		programOpts = append(programOpts, tea.WithContext(opts.Context))
	}
	p := tea.NewProgram(m, programOpts...)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && opts.Context != nil && opts.Context.Err() != nil {
		return nil
	}
	return err
}
