package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/five82/jobdeck/internal/portal"
	"github.com/five82/jobdeck/internal/state"
)

var (
	okColor    = color.New(color.FgGreen)
	warnColor  = color.New(color.FgYellow)
	errColor   = color.New(color.FgRed, color.Bold)
	labelColor = color.New(color.FgCyan)
)

func setColor(disabled bool) {
	if disabled {
		color.NoColor = true
	}
}

func writeJobsTable(w io.Writer, jobs []portal.Job, isLocal func(int64) bool) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"ID", "Title", "Company", "Category", "Location", "Salary", "Status", "Flags"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})

	data := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		data = append(data, []string{
			strconv.FormatInt(job.ID, 10),
			job.Title,
			job.CompanyName,
			job.Category,
			jobLocation(job),
			job.SalaryLabel(),
			jobStatus(job),
			jobFlags(job, isLocal != nil && isLocal(job.ID)),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func writeCompaniesTable(w io.Writer, companies []portal.Company) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"ID", "Name", "Industry", "Location", "Size", "Open Jobs"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})

	data := make([][]string, 0, len(companies))
	for _, c := range companies {
		data = append(data, []string{
			strconv.FormatInt(c.ID, 10),
			c.Name,
			c.Industry,
			c.Location,
			c.Size,
			strconv.Itoa(c.OpenJobs),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

// storeReport pairs a refresh status with the store's counters.
type storeReport struct {
	status state.Status
	stats  state.StatsSnapshot
}

func writeRefreshTable(w io.Writer, reports []storeReport) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Store", "Items", "Local", "Age", "Result", "Fetches", "Failures"})

	data := make([][]string, 0, len(reports))
	for _, r := range reports {
		result := okColor.Sprint("ok")
		if r.status.Error != "" {
			result = errColor.Sprint("failed")
		}
		data = append(data, []string{
			r.status.Name,
			strconv.Itoa(r.status.Count),
			strconv.Itoa(r.status.Local),
			ageCell(r.status),
			result,
			strconv.FormatInt(r.stats.Fetches, 10),
			strconv.FormatInt(r.stats.Failures, 10),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func ageCell(st state.Status) string {
	if !st.HasAge {
		return "-"
	}
	return fmt.Sprintf("%ds", st.AgeSeconds())
}

// writeStaleWarning tells the user the listing comes from an older fetch.
func writeStaleWarning(w io.Writer, st state.Status) {
	warnColor.Fprintf(w, "! %s Showing cached data. %s.\n", st.Error, state.UpdatedLabel(st.Age, st.HasAge))
}

func writeJobDetail(w io.Writer, job portal.Job) error {
	var b strings.Builder
	b.WriteString(labelColor.Sprint(job.Title))
	b.WriteString("\n")
	field(&b, "ID", strconv.FormatInt(job.ID, 10))
	field(&b, "Company", job.CompanyName)
	field(&b, "Category", job.Category)
	field(&b, "Location", jobLocation(job))
	field(&b, "Type", job.EmploymentType)
	field(&b, "Salary", job.SalaryLabel())
	field(&b, "Status", jobStatus(job))
	field(&b, "Applicants", strconv.Itoa(job.ApplicantCount))
	if t := job.ParsedPostedAt(); !t.IsZero() {
		field(&b, "Posted", t.Format("2006-01-02"))
	}
	if t := job.ParsedDeadline(); !t.IsZero() {
		field(&b, "Deadline", t.Format("2006-01-02"))
	}
	if flags := jobFlags(job, false); flags != "" {
		field(&b, "Flags", flags)
	}
	if desc := strings.TrimSpace(job.Description); desc != "" {
		b.WriteString("\n")
		b.WriteString(desc)
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeCompanyDetail(w io.Writer, c portal.Company, jobs []portal.Job) error {
	var b strings.Builder
	b.WriteString(labelColor.Sprint(c.Name))
	b.WriteString("\n")
	field(&b, "ID", strconv.FormatInt(c.ID, 10))
	field(&b, "Industry", c.Industry)
	field(&b, "Location", c.Location)
	field(&b, "Size", c.Size)
	field(&b, "Website", c.Website)
	field(&b, "Open Jobs", strconv.Itoa(c.OpenJobs))
	if desc := strings.TrimSpace(c.Description); desc != "" {
		b.WriteString("\n")
		b.WriteString(desc)
		b.WriteString("\n")
	}
	if _, err := io.WriteString(w, b.String()); err != nil {
		return err
	}
	if len(jobs) == 0 {
		return nil
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return err
	}
	return writeJobsTable(w, jobs, nil)
}

func field(b *strings.Builder, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	fmt.Fprintf(b, "%-11s %s\n", label+":", value)
}

func jobLocation(job portal.Job) string {
	switch {
	case job.Remote && job.Location != "":
		return job.Location + " (remote)"
	case job.Remote:
		return "Remote"
	default:
		return job.Location
	}
}

func jobStatus(job portal.Job) string {
	if job.IsOpen() {
		return okColor.Sprint("open")
	}
	return warnColor.Sprint(strings.ToLower(strings.TrimSpace(job.Status)))
}

// jobFlags marks applied (A), saved (S) and locally patched (*) jobs.
func jobFlags(job portal.Job, local bool) string {
	var flags []string
	if job.Applied {
		flags = append(flags, "A")
	}
	if job.Saved {
		flags = append(flags, "S")
	}
	if local {
		flags = append(flags, "*")
	}
	return strings.Join(flags, " ")
}
