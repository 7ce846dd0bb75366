package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/skillmatch/internal/market"
	"github.com/spigell/skillmatch/internal/utils"
)

const previewLength = 40

var chatsCmd = &cobra.Command{
	Use:   "chats",
	Short: "List conversations with applicants, latest activity first",
	Run: func(_ *cobra.Command, _ []string) {
		ctx := context.Background()
		a := setup(ctx)
		defer a.Close()

		chats, err := a.repo.FetchEmployerChats(ctx, a.as(market.RoleEmployer))
		if err != nil {
			a.logger.Fatal("listing chats", zap.Error(err))
		}

		w := newTable("APPLICATION", "APPLICANT", "JOB", "STATUS", "LAST MESSAGE", "ACTIVITY")
		for _, c := range chats {
			last := ""
			if c.LastMessage != nil {
				last = utils.TruncateForLog(c.LastMessage.Content, previewLength)
			}
			row(w, c.ApplicationID, c.ApplicantName, c.JobTitle, string(c.Status), last, formatTime(c.LastActivity()))
		}
		w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(chatsCmd)
}
