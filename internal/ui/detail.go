package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/jobdeck/internal/portal"
)

// layoutDetail sizes the detail viewport to the right-hand pane.
func (m *Model) layoutDetail() {
	_, detailWidth := m.paneWidths()
	m.detail.Width = max(detailWidth-4, 10)
	m.detail.Height = max(m.contentHeight()-3, 1)
	m.syncDetail()
}

// syncDetail re-renders the detail content for the current selection.
func (m *Model) syncDetail() {
	if m.detail.Width == 0 {
		return
	}
	var content string
	if m.view == ViewCompanies {
		if c, ok := m.selectedCompany(); ok {
			content = m.renderCompanyDetail(c, m.detail.Width)
		}
	} else if job, ok := m.selectedJob(); ok {
		content = m.renderJobDetail(job, m.detail.Width)
	}
	if content == "" {
		content = m.theme.Styles().MutedText.Render("Nothing selected")
	}
	m.detail.SetContent(content)
}

func (m Model) renderJobDetail(job portal.Job, width int) string {
	styles := m.theme.Styles()
	var b strings.Builder

	b.WriteString(styles.Text.Bold(true).Render(job.Title))
	b.WriteString("\n")
	if job.CompanyName != "" {
		b.WriteString(styles.AccentText.Render(job.CompanyName))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	status := job.Status
	if strings.TrimSpace(status) == "" {
		status = "open"
	}
	badges := []string{styles.StatusStyle(status).Render(titleCase(status))}
	if job.Applied {
		badges = append(badges, styles.StatusStyle("applied").Render("Applied"))
	}
	if job.Saved {
		badges = append(badges, styles.StatusStyle("saved").Render("Saved"))
	}
	if m.jobSnap.IsLocal(job.ID) {
		badges = append(badges, styles.StatusStyle("local").Render("* Local"))
	}
	b.WriteString(strings.Join(badges, " "))
	b.WriteString("\n\n")

	location := job.Location
	if job.Remote {
		location = strings.TrimSpace(location + " (remote)")
	}
	writeField(&b, styles.MutedText, styles.Text, "Category", job.Category)
	writeField(&b, styles.MutedText, styles.Text, "Location", location)
	writeField(&b, styles.MutedText, styles.Text, "Type", titleCase(job.EmploymentType))
	writeField(&b, styles.MutedText, styles.Text, "Salary", job.SalaryLabel())
	writeField(&b, styles.MutedText, styles.Text, "Applicants", fmt.Sprintf("%d", job.ApplicantCount))
	writeField(&b, styles.MutedText, styles.Text, "Posted", formatDate(job.ParsedPostedAt()))
	writeField(&b, styles.MutedText, styles.Text, "Deadline", formatDate(job.ParsedDeadline()))

	if m.jobSnap.IsLocal(job.ID) {
		b.WriteString("\n")
		b.WriteString(styles.WarningText.Render("* Changed locally, waiting for the next refresh"))
		b.WriteString("\n")
	}

	if desc := strings.TrimSpace(job.Description); desc != "" {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Width(width).Foreground(lipgloss.Color(m.theme.Text)).Render(desc))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderCompanyDetail(c portal.Company, width int) string {
	styles := m.theme.Styles()
	var b strings.Builder

	b.WriteString(styles.Text.Bold(true).Render(strings.TrimSpace(c.Name)))
	b.WriteString("\n\n")

	writeField(&b, styles.MutedText, styles.Text, "Industry", c.Industry)
	writeField(&b, styles.MutedText, styles.Text, "Location", c.Location)
	writeField(&b, styles.MutedText, styles.Text, "Size", c.Size)
	writeField(&b, styles.MutedText, styles.AccentText, "Website", c.Website)

	var postings []portal.Job
	for _, job := range m.jobSnap.Items {
		if job.CompanyID == c.ID {
			postings = append(postings, job)
		}
	}
	open := c.OpenJobs
	if open == 0 {
		open = len(postings)
	}
	writeField(&b, styles.MutedText, styles.Text, "Open jobs", fmt.Sprintf("%d", open))

	if desc := strings.TrimSpace(c.Description); desc != "" {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Width(width).Foreground(lipgloss.Color(m.theme.Text)).Render(desc))
		b.WriteString("\n")
	}

	if len(postings) > 0 {
		b.WriteString("\n")
		b.WriteString(styles.AccentText.Bold(true).Render("Postings"))
		b.WriteString("\n")
		for _, job := range postings {
			line := fmt.Sprintf("#%d %s", job.ID, job.Title)
			b.WriteString(styles.Text.Render(truncate(line, width)))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func writeField(b *strings.Builder, labelStyle, valueStyle lipgloss.Style, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	b.WriteString(labelStyle.Width(12).Render(label))
	b.WriteString(valueStyle.Render(value))
	b.WriteString("\n")
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
