package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/skillmatch/internal/market"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show and edit profiles",
}

var profileShowCmd = &cobra.Command{
	Use:   "show [user-id]",
	Short: "Show your profile or the profile of another user",
	Args:  cobra.MaximumNArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		ctx := context.Background()
		a := setup(ctx)
		defer a.Close()

		var id string
		if len(args) == 1 {
			id = args[0]
		} else {
			id = a.signedIn()
		}

		profile, err := a.repo.GetProfile(ctx, id)
		if err != nil {
			a.logger.Fatal("getting profile", zap.Error(err))
		}

		printProfile(profile)
	},
}

var profileUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update fields of your profile",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := context.Background()
		a := setup(ctx)
		defer a.Close()

		userID := a.signedIn()

		update, err := profileUpdateFromFlags(cmd, func() (*market.Profile, error) {
			return a.repo.GetProfile(ctx, userID)
		})
		if err != nil {
			a.logger.Fatal("reading flags", zap.Error(err))
		}

		profile, err := a.repo.UpdateProfile(ctx, userID, userID, update)
		if err != nil {
			a.logger.Fatal("updating profile", zap.Error(err))
		}

		printProfile(profile)
	},
}

var uploadResumeCmd = &cobra.Command{
	Use:   "upload-resume <file>",
	Short: "Upload a resume file and link it to your profile",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		ctx := context.Background()
		a := setup(ctx)
		defer a.Close()

		url := upload(ctx, a, a.config.Storage.ResumeBucket, args[0])
		_, err := a.repo.UpdateProfile(ctx, a.signedIn(), a.signedIn(), market.ProfileUpdate{ResumeURL: &url})
		if err != nil {
			a.logger.Fatal("linking resume", zap.Error(err))
		}

		a.logger.Info("resume uploaded", zap.String("url", url))
	},
}

var uploadAvatarCmd = &cobra.Command{
	Use:   "upload-avatar <file>",
	Short: "Upload an avatar image and link it to your profile",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		ctx := context.Background()
		a := setup(ctx)
		defer a.Close()

		url := upload(ctx, a, a.config.Storage.AvatarBucket, args[0])
		_, err := a.repo.UpdateProfile(ctx, a.signedIn(), a.signedIn(), market.ProfileUpdate{AvatarURL: &url})
		if err != nil {
			a.logger.Fatal("linking avatar", zap.Error(err))
		}

		a.logger.Info("avatar uploaded", zap.String("url", url))
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.AddCommand(profileShowCmd, profileUpdateCmd, uploadResumeCmd, uploadAvatarCmd)

	f := profileUpdateCmd.Flags()
	f.String("name", "", "full name")
	f.String("company", "", "company name")
	f.String("headline", "", "headline, e.g. Backend Developer")
	f.String("skills", "", "comma separated skills; replaces the current list")
	f.String("bio", "", "short bio")
	f.String("job-type", "", "preferred job type, e.g. full-time")
}

// profileUpdateFromFlags sets only the fields whose flags were given.
// current is called when the preferences need to be merged.
func profileUpdateFromFlags(cmd *cobra.Command, current func() (*market.Profile, error)) (market.ProfileUpdate, error) {
	var update market.ProfileUpdate
	flags := cmd.Flags()

	str := func(name string) *string {
		if !flags.Changed(name) {
			return nil
		}
		v, _ := flags.GetString(name)
		return &v
	}

	update.FullName = str("name")
	update.CompanyName = str("company")
	update.Headline = str("headline")
	update.Bio = str("bio")
	if skills := str("skills"); skills != nil {
		update.Skills = splitList(*skills)
	}

	if jobType := str("job-type"); jobType != nil {
		profile, err := current()
		if err != nil {
			return update, err
		}
		prefs := market.Preferences{}
		if profile.Preferences != nil {
			prefs = *profile.Preferences
		}
		prefs.JobType = strings.TrimSpace(*jobType)
		update.Preferences = &prefs
	}

	return update, nil
}

// upload stores file under <user-id>/<uuid><ext> in bucket and returns the public url.
func upload(ctx context.Context, a *application, bucket, file string) string {
	userID := a.signedIn()

	f, err := os.Open(file)
	if err != nil {
		a.logger.Fatal("opening file", zap.Error(err))
	}
	defer f.Close()

	object := objectName(userID, file)
	url, err := a.client.Upload(ctx, bucket, object, f)
	if err != nil {
		a.logger.Fatal("uploading file", zap.Error(err), zap.String("bucket", bucket))
	}

	return url
}

func objectName(userID, file string) string {
	return fmt.Sprintf("%s/%s%s", userID, uuid.NewString(), strings.ToLower(filepath.Ext(file)))
}
