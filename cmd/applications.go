package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/skillmatch/internal/logger"
	"github.com/spigell/skillmatch/internal/market"
)

var applicationsCmd = &cobra.Command{
	Use:   "applications",
	Short: "Track applications and review applicants",
}

var applicationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your applications with their status",
	Run: func(_ *cobra.Command, _ []string) {
		ctx := context.Background()
		a := setup(ctx)
		defer a.Close()

		apps, err := a.repo.FetchApplicationsWithJob(ctx, a.as(market.RoleSeeker))
		if err != nil {
			a.logger.Fatal("listing applications", zap.Error(err))
		}

		w := newTable("APPLICATION", "JOB", "COMPANY", "STATUS", "APPLIED")
		for _, app := range apps {
			row(w, app.ID, app.Job.Title, app.Job.CompanyName, string(app.Status), formatTime(app.CreatedAt))
		}
		w.Flush()
	},
}

var applicantsCmd = &cobra.Command{
	Use:   "applicants",
	Short: "List applicants to your jobs",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := context.Background()
		a := setup(ctx)
		defer a.Close()

		jobID, _ := cmd.Flags().GetString("job")
		applicants, err := a.repo.FetchApplicantsForEmployer(ctx, a.as(market.RoleEmployer), jobID)
		if err != nil {
			a.logger.Fatal("listing applicants", zap.Error(err))
		}

		w := newTable("APPLICATION", "APPLICANT", "HEADLINE", "JOB", "STATUS", "APPLIED")
		for _, v := range applicants {
			row(w, v.ApplicationID, v.Name, v.Headline, v.JobTitle, string(v.Status), formatTime(v.AppliedAt))
		}
		w.Flush()
	},
}

var applicationStatusCmd = &cobra.Command{
	Use:   "status <application-id> <shortlisted|interview|rejected>",
	Short: "Move an application to a new status",
	Args:  cobra.ExactArgs(2),
	Run: func(_ *cobra.Command, args []string) {
		ctx := context.Background()
		a := setup(ctx)
		defer a.Close()

		employerID := a.as(market.RoleEmployer)

		status, err := market.ParseStatus(args[1])
		if err != nil {
			a.logger.Fatal("parsing status", zap.Error(err))
		}

		app, err := a.repo.UpdateApplicationStatus(ctx, employerID, args[0], status)
		switch {
		case errors.Is(err, market.ErrInvalidTransition):
			a.logger.Fatal("status change is not allowed", zap.Error(err), logger.ApplicationID(args[0]))
		case errors.Is(err, market.ErrNotOwner):
			a.logger.Fatal("application belongs to a job of another employer", logger.ApplicationID(args[0]))
		case err != nil:
			a.logger.Fatal("updating application status", zap.Error(err), logger.ApplicationID(args[0]))
		}

		a.logger.Info("application status updated", logger.ApplicationID(app.ID), zap.String("status", string(app.Status)))
	},
}

func init() {
	rootCmd.AddCommand(applicationsCmd)
	applicationsCmd.AddCommand(applicationsListCmd, applicantsCmd, applicationStatusCmd)

	applicantsCmd.Flags().String("job", "", "only applicants to this job id")
}
