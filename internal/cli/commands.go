package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/five82/jobdeck/internal/app"
	"github.com/five82/jobdeck/internal/portal"
	"github.com/five82/jobdeck/internal/state"
)

func newCompaniesCommand(rt *env) *cobra.Command {
	var search string
	cmd := &cobra.Command{
		Use:   "companies",
		Short: "List companies",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "filter by name, industry or location")
	cmd.RunE = rt.headless(func(cmd *cobra.Command, _ []string) error {
		companies := rt.svc.Companies
		companies.Load(cmd.Context(), false)
		if err := rt.checkStatus(companies.Status()); err != nil {
			return err
		}
		return writeCompaniesTable(rt.out, companies.Search(search))
	})
	return cmd
}

func newCompanyCommand(rt *env) *cobra.Command {
	return &cobra.Command{
		Use:   "company <id>",
		Short: "Show one company and its jobs",
		Args:  cobra.ExactArgs(1),
		RunE: rt.headless(func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			company, err := rt.svc.Client.GetCompany(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("get company %d: %w", id, err)
			}
			jobs := rt.svc.Jobs
			jobs.Load(cmd.Context(), false)
			return writeCompanyDetail(rt.out, *company, jobs.ByCompany(id))
		}),
	}
}

func newJobsCommand(rt *env) *cobra.Command {
	var (
		category  string
		companyID int64
		company   string
	)
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List job postings",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "only jobs in this category")
	cmd.Flags().Int64Var(&companyID, "company-id", 0, "only jobs posted by this company ID")
	cmd.Flags().StringVar(&company, "company", "", "only jobs posted by this company name")
	cmd.RunE = rt.headless(func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		jobs := rt.svc.Jobs
		if company != "" {
			rt.svc.Warm(ctx)
			match, ok := rt.svc.Companies.GetByName(company)
			if !ok {
				if err := rt.checkStatus(rt.svc.Companies.Status()); err != nil {
					return err
				}
				return fmt.Errorf("no company named %q", company)
			}
			companyID = match.ID
		} else {
			jobs.Load(ctx, false)
		}
		if err := rt.checkStatus(jobs.Status()); err != nil {
			return err
		}

		list := jobs.ByCategory(category)
		if companyID != 0 {
			filtered := list[:0]
			for _, job := range list {
				if job.CompanyID == companyID {
					filtered = append(filtered, job)
				}
			}
			list = filtered
		}
		return writeJobsTable(rt.out, list, jobs.IsLocal)
	})
	return cmd
}

func newJobCommand(rt *env) *cobra.Command {
	return &cobra.Command{
		Use:   "job <id>",
		Short: "Show one job posting",
		Args:  cobra.ExactArgs(1),
		RunE: rt.headless(func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			job, err := rt.svc.Client.GetJob(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("get job %d: %w", id, err)
			}
			return writeJobDetail(rt.out, *job)
		}),
	}
}

func newRefreshCommand(rt *env) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Force-refresh every store and report the result",
		Args:  cobra.NoArgs,
		RunE: rt.headless(func(cmd *cobra.Command, _ []string) error {
			summary := app.RefreshAll(cmd.Context(), rt.svc.Stores()...)

			reports := []storeReport{
				{stats: rt.svc.Companies.Stats().Snapshot()},
				{stats: rt.svc.Jobs.Stats().Snapshot()},
			}
			for i := range reports {
				reports[i].status = summary.Statuses[i]
			}
			if err := writeRefreshTable(rt.out, reports); err != nil {
				return err
			}

			if !summary.OK() {
				for _, msg := range summary.Failed() {
					errColor.Fprintln(rt.errOut, msg)
				}
				fmt.Fprintln(rt.out, summary.Label())
				return errSilent
			}
			okColor.Fprintf(rt.out, "%s (took %s)\n", summary.Label(), summary.Took.Round(time.Millisecond))
			return nil
		}),
	}
}

func newApplyCommand(rt *env) *cobra.Command {
	var note, resume string
	cmd := &cobra.Command{
		Use:   "apply <id>",
		Short: "Apply to a job",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().StringVarP(&note, "note", "n", "", "cover letter text")
	cmd.Flags().StringVar(&resume, "resume", "", "resume URL")
	cmd.RunE = rt.headless(func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		rt.svc.Jobs.Load(ctx, false)
		if job, ok := rt.svc.Jobs.GetByID(id); ok && job.Applied {
			return fmt.Errorf("already applied to %s", job.Title)
		}
		res, err := app.Apply(ctx, rt.svc.Client, rt.svc.Jobs, id, portal.Application{
			CoverLetter: strings.TrimSpace(note),
			ResumeURL:   strings.TrimSpace(resume),
		})
		if err != nil {
			return err
		}
		title := "job " + strconv.FormatInt(id, 10)
		if job, ok := rt.svc.Jobs.GetByID(id); ok {
			title = job.Title
		}
		okColor.Fprintf(rt.out, "Applied to %s (%d applicants)\n", title, res.ApplicantCount)
		if st := rt.svc.Jobs.Status(); st.Error != "" {
			writeStaleWarning(rt.errOut, st)
		}
		return nil
	})
	return cmd
}

func newSaveCommand(rt *env) *cobra.Command {
	return &cobra.Command{
		Use:   "save <id>",
		Short: "Toggle the saved flag on a job",
		Args:  cobra.ExactArgs(1),
		RunE: rt.headless(func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			rt.svc.Jobs.Load(cmd.Context(), false)
			if err := rt.checkStatus(rt.svc.Jobs.Status()); err != nil {
				return err
			}
			saved, err := app.ToggleSaved(cmd.Context(), rt.svc.Client, rt.svc.Jobs, id)
			if err != nil {
				return err
			}
			if saved {
				okColor.Fprintf(rt.out, "Saved job %d\n", id)
			} else {
				fmt.Fprintf(rt.out, "Removed job %d from saved\n", id)
			}
			return nil
		}),
	}
}

func newEditCommand(rt *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Update fields on a job posting",
		Args:  cobra.ExactArgs(1),
	}
	flags := cmd.Flags()
	flags.String("title", "", "new title")
	flags.String("category", "", "new category")
	flags.String("location", "", "new location")
	flags.String("status", "", "new status, e.g. open or closed")
	cmd.RunE = rt.headless(func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		var patch portal.JobPatch
		for name, dst := range map[string]**string{
			"title":    &patch.Title,
			"category": &patch.Category,
			"location": &patch.Location,
			"status":   &patch.Status,
		} {
			if cmd.Flags().Changed(name) {
				v, _ := cmd.Flags().GetString(name)
				*dst = &v
			}
		}
		if patch == (portal.JobPatch{}) {
			return errors.New("nothing to update; pass at least one of --title, --category, --location, --status")
		}
		job, err := rt.svc.Client.UpdateJob(cmd.Context(), id, patch)
		if err != nil {
			return fmt.Errorf("update job %d: %w", id, err)
		}
		rt.svc.Jobs.ForceRefresh(cmd.Context())
		return writeJobDetail(rt.out, *job)
	})
	return cmd
}

func newContactCommand(rt *env) *cobra.Command {
	var msg portal.ContactMessage
	cmd := &cobra.Command{
		Use:   "contact",
		Short: "Send a message to the portal team",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringVar(&msg.Name, "name", "", "your name")
	cmd.Flags().StringVar(&msg.Email, "email", "", "reply address")
	cmd.Flags().StringVar(&msg.Subject, "subject", "", "message subject")
	cmd.Flags().StringVarP(&msg.Message, "message", "m", "", "message body")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("message")
	cmd.RunE = rt.headless(func(cmd *cobra.Command, _ []string) error {
		if err := rt.svc.Client.SendContactMessage(cmd.Context(), msg); err != nil {
			return fmt.Errorf("send message: %w", err)
		}
		okColor.Fprintln(rt.out, "Message sent")
		return nil
	})
	return cmd
}

// checkStatus fails when a store has nothing to show and warns when the
// listing comes from an older fetch.
func (rt *env) checkStatus(st state.Status) error {
	if st.Error == "" {
		return nil
	}
	if st.Count == 0 {
		return errors.New(st.Error)
	}
	writeStaleWarning(rt.errOut, st)
	return nil
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}
