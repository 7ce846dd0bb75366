package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/skillmatch/internal/filtering"
	"github.com/spigell/skillmatch/internal/logger"
	"github.com/spigell/skillmatch/internal/market"
	"github.com/spigell/skillmatch/internal/matching"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Browse, bookmark and publish jobs",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active jobs you have not applied to (employers: your own jobs)",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := context.Background()
		a := setup(ctx)
		defer a.Close()

		userID := a.signedIn()
		role, _ := a.session.Role()

		var (
			jobs []*market.Job
			err  error
		)
		if role == market.RoleEmployer {
			jobs, err = a.repo.EmployerJobs(ctx, userID)
		} else {
			location := cmd.Flag("location").Value.String()
			jobs, err = a.repo.FetchJobsExcludingApplied(ctx, userID, location)
		}
		if err != nil {
			a.logger.Fatal("listing jobs", zap.Error(err))
		}

		a.logger.Info("getting jobs", zap.Int("count", len(jobs)))
		printJobs(jobs)
	},
}

var jobsSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search active jobs by title or company; without a query prints recent searches",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a := setup(ctx)
		defer a.Close()

		if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
			recent, err := a.session.RecentSearches(ctx)
			if err != nil {
				a.logger.Fatal("reading recent searches", zap.Error(err))
			}
			for _, term := range recent {
				fmt.Fprintln(out, term)
			}
			return
		}

		query := strings.TrimSpace(args[0])
		if _, err := a.session.AddRecentSearch(ctx, query); err != nil {
			a.logger.Warn("saving recent search", zap.Error(err))
		}

		rows, err := a.repo.SearchJobs(ctx, query)
		if err != nil {
			a.logger.Fatal("searching jobs", zap.Error(err))
		}
		jobs := market.NewJobs(rows)

		if hide, _ := cmd.Flags().GetBool("hide-applied"); hide {
			userID := a.as(market.RoleSeeker)
			steps := []filtering.Filter{filtering.NewAppliedHistory(a.repo, userID, a.logger)}
			if jobs, err = filtering.Run(ctx, a.logger, steps, jobs); err != nil {
				a.logger.Fatal("filtering applied jobs", zap.Error(err))
			}
		}

		a.logger.Info("getting jobs", zap.String("query", query), zap.Int("count", jobs.Len()))
		printJobs(jobs.Items)
	},
}

var jobsShowCmd = &cobra.Command{
	Use:   "show <job-id>",
	Short: "Show a job; seekers also see their match score",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		ctx := context.Background()
		a := setup(ctx)
		defer a.Close()

		job, err := a.repo.GetJob(ctx, args[0])
		if err != nil {
			a.logger.Fatal("getting job", zap.Error(err))
		}

		score := -1
		if userID, err := a.session.RequireRole(market.RoleSeeker); err == nil {
			if err := a.repo.RecordJobView(ctx, userID, job.ID); err != nil {
				a.logger.Warn("recording job view", zap.Error(err), logger.JobID(job.ID))
			}

			profile, err := a.repo.GetProfile(ctx, userID)
			if err != nil {
				a.logger.Warn("getting profile for match score", zap.Error(err))
			} else {
				score = matching.Score(matching.SeekerFromProfile(profile), job)
			}
		}

		printJob(job, score)
	},
}

var jobsSaveCmd = &cobra.Command{
	Use:   "save <job-id>",
	Short: "Bookmark a job",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		ctx := context.Background()
		a := setup(ctx)
		defer a.Close()

		if err := a.repo.SaveJob(ctx, a.signedIn(), args[0]); err != nil {
			a.logger.Fatal("saving job", zap.Error(err))
		}
		a.logger.Info("job saved", logger.JobID(args[0]))
	},
}

var jobsUnsaveCmd = &cobra.Command{
	Use:   "unsave <job-id>",
	Short: "Remove a bookmark",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		ctx := context.Background()
		a := setup(ctx)
		defer a.Close()

		if err := a.repo.UnsaveJob(ctx, a.signedIn(), args[0]); err != nil {
			a.logger.Fatal("removing bookmark", zap.Error(err))
		}
		a.logger.Info("job removed from saved", logger.JobID(args[0]))
	},
}

var jobsSavedCmd = &cobra.Command{
	Use:   "saved",
	Short: "List bookmarked jobs",
	Run: func(_ *cobra.Command, _ []string) {
		ctx := context.Background()
		a := setup(ctx)
		defer a.Close()

		jobs, err := a.repo.FetchSavedJobs(ctx, a.signedIn())
		if err != nil {
			a.logger.Fatal("listing saved jobs", zap.Error(err))
		}
		printJobs(jobs)
	},
}

var jobsRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List recently viewed jobs",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := context.Background()
		a := setup(ctx)
		defer a.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		views, err := a.repo.FetchRecentlyViewed(ctx, a.signedIn(), limit)
		if err != nil {
			a.logger.Fatal("listing recently viewed jobs", zap.Error(err))
		}

		w := newTable("ID", "TITLE", "COMPANY", "VIEWED")
		for _, v := range views {
			row(w, v.Job.ID, v.Job.Title, v.Job.CompanyName, formatTime(v.ViewedAt))
		}
		w.Flush()
	},
}

var jobsPostCmd = &cobra.Command{
	Use:   "post",
	Short: "Publish a new job",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := context.Background()
		a := setup(ctx)
		defer a.Close()

		employerID := a.as(market.RoleEmployer)

		draft := jobDraftFromFlags(cmd)
		if draft.CompanyName == "" {
			if profile, err := a.repo.GetProfile(ctx, employerID); err == nil {
				draft.CompanyName = profile.CompanyName
			}
		}

		job, err := a.repo.PostJob(ctx, employerID, draft)
		var invalid *market.ValidationError
		if errors.As(err, &invalid) {
			a.logger.Fatal("invalid job", zap.String("reason", invalid.Msg))
		}
		if err != nil {
			a.logger.Fatal("posting job", zap.Error(err))
		}

		a.logger.Info("job posted", logger.JobID(job.ID), zap.String("title", job.Title))
	},
}

var jobsCloseCmd = &cobra.Command{
	Use:   "close <job-id>",
	Short: "Close one of your jobs",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		ctx := context.Background()
		a := setup(ctx)
		defer a.Close()

		if err := a.repo.CloseJob(ctx, a.as(market.RoleEmployer), args[0]); err != nil {
			a.logger.Fatal("closing job", zap.Error(err), logger.JobID(args[0]))
		}
		a.logger.Info("job closed", logger.JobID(args[0]))
	},
}

func init() {
	rootCmd.AddCommand(jobsCmd)
	jobsCmd.AddCommand(jobsListCmd, jobsSearchCmd, jobsShowCmd, jobsSaveCmd, jobsUnsaveCmd,
		jobsSavedCmd, jobsRecentCmd, jobsPostCmd, jobsCloseCmd)

	jobsListCmd.Flags().StringP("location", "l", "", "substring of the job location")
	jobsSearchCmd.Flags().Bool("hide-applied", false, "hide jobs you already applied to")
	jobsRecentCmd.Flags().Int("limit", 0, "max jobs to show (default 20)")

	f := jobsPostCmd.Flags()
	f.String("title", "", "job title (required)")
	f.String("company", "", "company name (default is the one from your profile)")
	f.String("location", "", "location")
	f.String("salary", "", "salary range, e.g. 50k-70k")
	f.String("type", "", "job type, e.g. full-time")
	f.String("description", "", "description")
	f.String("requirements", "", "comma separated requirements")
	f.String("skills", "", "comma separated skills")
	f.String("benefits", "", "comma separated benefits")
}

func jobDraftFromFlags(cmd *cobra.Command) market.JobDraft {
	get := func(name string) string {
		v, _ := cmd.Flags().GetString(name)
		return strings.TrimSpace(v)
	}

	return market.JobDraft{
		Title:        get("title"),
		CompanyName:  get("company"),
		Location:     get("location"),
		SalaryRange:  get("salary"),
		JobType:      get("type"),
		Description:  get("description"),
		Requirements: splitList(get("requirements")),
		Skills:       splitList(get("skills")),
		Benefits:     splitList(get("benefits")),
	}
}
