package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/skillmatch/internal/inbox"
	"github.com/spigell/skillmatch/internal/logger"
	"github.com/spigell/skillmatch/internal/market"
)

var messagesCmd = &cobra.Command{
	Use:   "messages",
	Short: "Read and send messages of an application",
}

var messagesListCmd = &cobra.Command{
	Use:   "list <application-id>",
	Short: "Print the conversation, oldest first",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		ctx := context.Background()
		a := setup(ctx)
		defer a.Close()

		userID := a.signedIn()

		messages, err := a.repo.FetchMessages(ctx, args[0])
		if err != nil {
			a.logger.Fatal("fetching messages", zap.Error(err), logger.ApplicationID(args[0]))
		}

		printMessages(messages, userID)
	},
}

var messagesSendCmd = &cobra.Command{
	Use:   "send <application-id> <text>...",
	Short: "Send a message",
	Args:  cobra.MinimumNArgs(2),
	Run: func(_ *cobra.Command, args []string) {
		ctx := context.Background()
		a := setup(ctx)
		defer a.Close()

		userID := a.signedIn()
		thread := inbox.NewThread(args[0])

		msg, err := inbox.Send(ctx, thread, a.repo, userID, strings.Join(args[1:], " "))
		if err != nil {
			a.logger.Fatal("sending message", zap.Error(err), logger.ApplicationID(args[0]))
		}

		a.logger.Info("message sent", logger.ApplicationID(args[0]), zap.String("message_id", msg.ID))
	},
}

var messagesWatchCmd = &cobra.Command{
	Use:   "watch <application-id>",
	Short: "Follow the conversation until interrupted",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a := setup(ctx)
		defer a.Close()

		userID := a.signedIn()

		interval := a.config.Chat.PollInterval
		if cmd.Flags().Changed("interval") {
			interval, _ = cmd.Flags().GetDuration("interval")
		}

		thread := inbox.NewThread(args[0])
		poller := inbox.NewPoller(a.repo, thread, interval, a.logger, func(fresh []*market.Message) {
			printMessages(fresh, userID)
		})

		if err := poller.Start(ctx); err != nil {
			a.logger.Fatal("starting message polling", zap.Error(err), logger.ApplicationID(args[0]))
		}
		defer poller.Stop()

		a.logger.Info("watching messages", logger.ApplicationID(args[0]), zap.Duration("interval", interval))
		<-ctx.Done()
	},
}

func init() {
	rootCmd.AddCommand(messagesCmd)
	messagesCmd.AddCommand(messagesListCmd, messagesSendCmd, messagesWatchCmd)

	messagesWatchCmd.Flags().Duration("interval", inbox.DefaultInterval, "poll interval (default is chat.poll-interval)")
}
