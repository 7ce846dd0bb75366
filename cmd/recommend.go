package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/skillmatch/internal/ai"
	"github.com/spigell/skillmatch/internal/ai/gemini"
	"github.com/spigell/skillmatch/internal/filtering"
	"github.com/spigell/skillmatch/internal/logger"
	"github.com/spigell/skillmatch/internal/market"
	"github.com/spigell/skillmatch/internal/matching"
	"github.com/spigell/skillmatch/internal/secrets"
)

const (
	PromptApplyAll = "Apply to all"
	PromptDone     = "Done"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Rank open jobs by how well they match your skills",
	Run: func(cmd *cobra.Command, _ []string) {
		recommend(cmd)
	},
}

func init() {
	rootCmd.AddCommand(recommendCmd)

	recommendCmd.Flags().StringP("location", "l", "", "substring of the job location (default is recommend.location)")
	recommendCmd.Flags().Bool("explain", false, "attach an AI note to the top recommendations")
	recommendCmd.Flags().BoolP("yes", "y", false, "apply to every recommended job without asking")
}

func recommend(cmd *cobra.Command) {
	ctx := context.Background()
	a := setup(ctx)
	defer a.Close()

	userID := a.as(market.RoleSeeker)

	profile, err := a.repo.GetProfile(ctx, userID)
	if err != nil {
		a.logger.Fatal("getting profile", zap.Error(err))
	}
	if len(profile.Skills) == 0 {
		a.logger.Fatal("profile has no skills", zap.String("hint", "run 'skillmatch profile update --skills go,sql'"))
	}

	location := a.config.Recommend.Location
	if cmd.Flags().Changed("location") {
		location = cmd.Flag("location").Value.String()
	}

	rows, err := a.repo.FetchJobsExcludingApplied(ctx, userID, location)
	if err != nil {
		a.logger.Fatal("getting available jobs", zap.Error(err))
	}

	a.logger.Info("getting jobs", zap.Int("count", len(rows)), zap.String("location", location))

	jobs := market.NewJobs(rows)
	if jobs.Len() == 0 {
		a.logger.Info("exiting", zap.String("reason", "no jobs found"))
		return
	}

	explain, _ := cmd.Flags().GetBool("explain")
	steps := prepareFilters(ctx, a, profile, explain)

	jobs, err = filtering.Run(ctx, a.logger, steps, jobs)
	if err != nil {
		a.logger.Fatal("filtering failed", zap.Error(err))
	}

	if jobs.Len() == 0 {
		a.logger.Info("exiting", zap.String("reason", "no jobs match your skills"))
		return
	}

	printRecommendations(jobs)

	if yes, _ := cmd.Flags().GetBool("yes"); yes {
		applyAll(ctx, a, userID, jobs)
		return
	}

	if err := manualApply(ctx, a, userID, jobs); err != nil {
		a.logger.Fatal("exiting", zap.Error(err))
	}
}

func printRecommendations(jobs *market.Jobs) {
	printJobs(jobs.Items)

	for _, job := range jobs.Items {
		if job.Match == nil {
			continue
		}
		switch {
		case job.Match.Note != "":
			fmt.Fprintf(out, "\n%s (%s): %s\n", job.Title, job.ID, job.Match.Note)
		case job.Match.NoteError != "":
			fmt.Fprintf(out, "\n%s (%s): note unavailable\n", job.Title, job.ID)
		}
	}
}

func manualApply(ctx context.Context, a *application, userID string, jobs *market.Jobs) error {
	for jobs.Len() > 0 {
		items := make([]string, 0, jobs.Len()+2)
		for _, job := range jobs.Items {
			items = append(items, fmt.Sprintf("%s %s / %s / %s", job.ID, job.Title, job.CompanyName, matchLabel(job.Match)))
		}

		jobPrompt := promptui.Select{
			Label: "Choose a job to apply and press ENTER",
			Items: append(items, PromptApplyAll, PromptDone),
			Size:  10,
		}

		_, selected, err := jobPrompt.Run()
		if err != nil {
			return err
		}

		switch selected {
		case PromptDone:
			return nil
		case PromptApplyAll:
			applyAll(ctx, a, userID, jobs)
			return nil
		default:
			jobID := strings.Split(selected, " ")[0]
			if jobs.FindByID(jobID) == nil {
				return fmt.Errorf("there is no such job id %s", jobID)
			}

			if err := apply(ctx, a, userID, jobID); err != nil {
				return err
			}

			jobs.Exclude(market.JobIDField, []string{jobID})
		}
	}

	return nil
}

func applyAll(ctx context.Context, a *application, userID string, jobs *market.Jobs) {
	for _, job := range jobs.Items {
		if err := apply(ctx, a, userID, job.ID); err != nil {
			a.logger.Fatal("applying to job", zap.Error(err), logger.JobID(job.ID))
		}
	}

	a.logger.Info("successfully applied to jobs", zap.Int("count", jobs.Len()))
}

func prepareFilters(ctx context.Context, a *application, profile *market.Profile, explain bool) []filtering.Filter {
	jobType := ""
	if profile.Preferences != nil {
		jobType = profile.Preferences.JobType
	}

	steps := []filtering.Filter{
		filtering.NewExcludedEmployers(a.config.Recommend.ExcludeCompanies, a.logger),
		filtering.NewJobType(jobType),
		filtering.NewMatch(matching.SeekerFromProfile(profile)),
	}

	aiFilter, err := prepareAIFilter(ctx, a, profile, explain)
	if err != nil {
		a.logger.Warn("skipping AI note filter", zap.Error(err))
		aiFilter = filtering.NewAINote(&filtering.AINoteConfig{
			Enabled:  true,
			Provider: a.config.AI.Provider,
			Model:    a.config.AI.Gemini.Model,
			MaxNotes: a.config.AI.MaxNotes,
		}, nil)
	}
	steps = append(steps, aiFilter)

	if err != nil {
		filtering.DisableByName(steps, aiFilter.Name(), err.Error())
	}

	logFilterStatuses(a.logger, steps)

	return steps
}

func logFilterStatuses(log *zap.Logger, steps []filtering.Filter) {
	for _, status := range filtering.Describe(steps) {
		fields := []zap.Field{
			zap.String("name", status.Name),
			zap.Bool("enabled", status.Enabled),
		}
		if status.Reason != "" {
			fields = append(fields, zap.String("reason", status.Reason))
		}
		if len(status.Details) > 0 {
			fields = append(fields, zap.Any("details", status.Details))
		}
		log.Debug("filter status", fields...)
	}
}

func prepareAIFilter(ctx context.Context, a *application, profile *market.Profile, explain bool) (filtering.Filter, error) {
	config := a.config.AI
	if !config.Enabled && !explain {
		disabled := filtering.NewAINote(nil, nil)
		disabled.Disable("ai.enabled is false and --explain is not set")
		return disabled, nil
	}

	explainer, err := newExplainer(ctx, config, a.logger)
	if err != nil {
		return nil, fmt.Errorf("building ai explainer: %w", err)
	}

	return filtering.NewAINote(&filtering.AINoteConfig{
		Enabled:  true,
		Provider: config.Provider,
		Model:    config.Gemini.Model,
		MaxNotes: config.MaxNotes,
	}, &filtering.AINoteDeps{
		Logger:    a.logger,
		Explainer: explainer,
		Seeker:    profile,
	}), nil
}

func newExplainer(ctx context.Context, cfg *AIConfig, log *zap.Logger) (ai.Explainer, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		File:  cfg.Gemini.APIKeyFile,
		Env:   "GEMINI_API_KEY",
		Value: cfg.Gemini.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	genLogger := logger.WithAI(log, "gemini", cfg.Gemini.Model).With(
		zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries),
	)

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, genLogger)
	if err != nil {
		return nil, err
	}

	return gemini.NewExplainer(generator, logger.WithAI(log, "gemini", generator.Model()), cfg.Gemini.MaxLogLength), nil
}
