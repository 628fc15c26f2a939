package ui

import (
	"fmt"
	"strings"

	"github.com/five82/jobdeck/internal/state"
)

// renderHeader renders the status bar: counts, freshness and activity.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	parts := []string{bg.Render("jobdeck", styles.Logo)}

	jobsLabel := fmt.Sprintf("%d", len(m.jobSnap.Items))
	if m.category != "" {
		jobsLabel = fmt.Sprintf("%d/%d", len(m.visibleJobs()), len(m.jobSnap.Items))
	}
	parts = append(parts,
		bg.Render("Jobs:", styles.MutedText)+bg.Space()+bg.Render(jobsLabel, styles.Text),
		bg.Render("Companies:", styles.MutedText)+bg.Space()+
			bg.Render(fmt.Sprintf("%d", len(m.companySnap.Items)), styles.Text),
	)

	if local := len(m.jobSnap.Local) + len(m.companySnap.Local); local > 0 {
		parts = append(parts, bg.Render(fmt.Sprintf("*%d local", local), styles.WarningText))
	}

	if m.anyLoading() {
		parts = append(parts, bg.Render(m.spinner.View()+" Refreshing...", styles.InfoText))
	} else {
		parts = append(parts, bg.Render(state.UpdatedLabel(state.CombinedAge(m.statuses...)), styles.MutedText))
	}

	if m.anyStale() {
		parts = append(parts, bg.Render("STALE", styles.WarningText.Bold(true)))
	}
	if failures := m.maxFailures(); failures > 1 {
		parts = append(parts, bg.Render(fmt.Sprintf("OFFLINE x%d", failures), styles.DangerText))
	}
	if m.blurred {
		parts = append(parts, bg.Render("paused", styles.FaintText))
	}

	if m.notice != "" {
		noticeStyle := styles.SuccessText
		if m.noticeErr {
			noticeStyle = styles.DangerText
		}
		limit := 60
		if m.width < 100 {
			limit = 30
		}
		parts = append(parts, bg.Render(truncate(m.notice, limit), noticeStyle))
	}

	return styles.Header.Width(m.width).Render(bg.Join(parts, "  "))
}

// renderCommandBar renders the key hints for the active view.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	type cmd struct{ key, desc string }
	commands := []cmd{{"tab", otherView(m.view)}, {"j/k", "Navigate"}}
	if m.view == ViewJobs {
		category := m.category
		if category == "" {
			category = "All"
		}
		commands = append(commands,
			cmd{"c", category},
			cmd{"a", "Apply"},
			cmd{"s", "Save"},
		)
	}
	commands = append(commands, cmd{"r", "Refresh"}, cmd{"?", "More"})

	colon := bg.Render(":", styles.FaintText)
	segments := make([]string, 0, len(commands)+1)
	for _, c := range commands {
		segments = append(segments, bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, styles.MutedText))
	}
	segments = append(segments, bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Header.Width(m.width).Render(strings.Join(segments, bg.Spaces(2)))
}

func otherView(v View) string {
	if v == ViewJobs {
		return "Companies"
	}
	return "Jobs"
}

func (m Model) anyLoading() bool {
	if m.refreshing {
		return true
	}
	for _, st := range m.statuses {
		if st.Loading {
			return true
		}
	}
	return false
}

func (m Model) anyStale() bool {
	for _, st := range m.statuses {
		if st.HasAge && st.Stale {
			return true
		}
	}
	return false
}

func (m Model) maxFailures() int {
	n := 0
	for _, st := range m.statuses {
		n = max(n, st.Failures)
	}
	return n
}
