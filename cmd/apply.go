package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/skillmatch/internal/logger"
	"github.com/spigell/skillmatch/internal/market"
)

var applyCmd = &cobra.Command{
	Use:   "apply <job-id>",
	Short: "Apply to a job",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		ctx := context.Background()
		a := setup(ctx)
		defer a.Close()

		userID := a.as(market.RoleSeeker)

		if err := apply(ctx, a, userID, args[0]); err != nil {
			a.logger.Fatal("applying to job", zap.Error(err), logger.JobID(args[0]))
		}
	},
}

func init() {
	rootCmd.AddCommand(applyCmd)
}

// apply submits one application. A duplicate is reported to the user and is not an error.
func apply(ctx context.Context, a *application, userID, jobID string) error {
	app, err := a.repo.ApplyToJob(ctx, jobID, userID)
	if errors.Is(err, market.ErrAlreadyApplied) {
		fmt.Fprintf(out, "You have already applied to job %s.\n", jobID)
		return nil
	}
	if err != nil {
		return err
	}

	a.logger.Info("successfully applied to job", logger.JobID(jobID), logger.ApplicationID(app.ID))
	return nil
}
