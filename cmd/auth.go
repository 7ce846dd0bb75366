package cmd

import (
	"context"
	"errors"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/skillmatch/internal/backend"
	"github.com/spigell/skillmatch/internal/logger"
	"github.com/spigell/skillmatch/internal/market"
	"github.com/spigell/skillmatch/internal/session"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Sign in, sign up and manage credentials",
}

var signInCmd = &cobra.Command{
	Use:   "signin",
	Short: "Sign in with email and password",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := context.Background()
		a := setup(ctx)
		defer a.Close()

		email, password := credentials(a, cmd)

		resp, err := a.client.SignIn(ctx, email, password)
		if err != nil {
			a.logger.Fatal("signing in", zap.Error(err))
		}

		startSession(ctx, a, resp, "")
	},
}

var signUpCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create a new seeker or employer account",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := context.Background()
		a := setup(ctx)
		defer a.Close()

		role := market.Role(strings.ToLower(strings.TrimSpace(cmd.Flag("role").Value.String())))
		if role != market.RoleSeeker && role != market.RoleEmployer {
			a.logger.Fatal("invalid role", zap.String("role", string(role)), zap.String("hint", "use seeker or employer"))
		}

		email, password := credentials(a, cmd)
		name := cmd.Flag("name").Value.String()
		company := cmd.Flag("company").Value.String()

		metadata := map[string]any{"role": string(role), "full_name": name}
		if company != "" {
			metadata["company_name"] = company
		}

		resp, err := a.client.SignUp(ctx, email, password, metadata)
		if err != nil {
			a.logger.Fatal("signing up", zap.Error(err))
		}

		if resp.AccessToken == "" {
			a.logger.Info("account created", zap.String("hint", "confirm your email, then run 'skillmatch auth signin'"))
			return
		}

		startSession(ctx, a, resp, role)
	},
}

var signOutCmd = &cobra.Command{
	Use:   "signout",
	Short: "Forget the stored session",
	Run: func(_ *cobra.Command, _ []string) {
		ctx := context.Background()
		a := setup(ctx)
		defer a.Close()

		if err := a.session.End(ctx); err != nil {
			a.logger.Fatal("signing out", zap.Error(err))
		}
		a.client.SetToken("")

		a.logger.Info("signed out")
	},
}

var resetPasswordCmd = &cobra.Command{
	Use:   "reset-password",
	Short: "Send a password recovery email",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := context.Background()
		a := setup(ctx)
		defer a.Close()

		email, err := ask("Email", cmd.Flag("email").Value.String(), false)
		if err != nil {
			a.logger.Fatal("reading email", zap.Error(err))
		}

		if err := a.client.ResetPassword(ctx, email); err != nil {
			a.logger.Fatal("requesting password reset", zap.Error(err))
		}

		a.logger.Info("recovery email sent", zap.String("email", email))
	},
}

var updatePasswordCmd = &cobra.Command{
	Use:   "update-password",
	Short: "Change the password of the signed in user",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := context.Background()
		a := setup(ctx)
		defer a.Close()

		a.signedIn()

		password, err := ask("New password", cmd.Flag("password").Value.String(), true)
		if err != nil {
			a.logger.Fatal("reading password", zap.Error(err))
		}

		if err := a.client.UpdatePassword(ctx, password); err != nil {
			a.logger.Fatal("updating password", zap.Error(err))
		}

		a.logger.Info("password updated")
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(signInCmd, signUpCmd, signOutCmd, resetPasswordCmd, updatePasswordCmd)

	for _, c := range []*cobra.Command{signInCmd, signUpCmd} {
		c.Flags().StringP("email", "e", "", "account email (prompted when empty)")
		c.Flags().StringP("password", "p", "", "account password (prompted when empty)")
	}

	signUpCmd.Flags().StringP("role", "r", string(market.RoleSeeker), "account role: seeker or employer")
	signUpCmd.Flags().String("name", "", "full name")
	signUpCmd.Flags().String("company", "", "company name for employers")

	resetPasswordCmd.Flags().StringP("email", "e", "", "account email (prompted when empty)")
	updatePasswordCmd.Flags().StringP("password", "p", "", "new password (prompted when empty)")
}

func credentials(a *application, cmd *cobra.Command) (string, string) {
	email, err := ask("Email", cmd.Flag("email").Value.String(), false)
	if err != nil {
		a.logger.Fatal("reading email", zap.Error(err))
	}

	password, err := ask("Password", cmd.Flag("password").Value.String(), true)
	if err != nil {
		a.logger.Fatal("reading password", zap.Error(err))
	}

	return email, password
}

// startSession persists the auth response and makes sure the profile row exists.
// Accounts confirmed by email get their profile at the first sign in.
func startSession(ctx context.Context, a *application, resp *backend.AuthResponse, role market.Role) {
	if resp == nil || resp.User == nil {
		a.logger.Fatal("auth response has no user")
	}

	a.client.SetToken(resp.AccessToken)

	if role == "" {
		role = market.Role(resp.User.Role())
	}

	profile, err := a.repo.GetProfile(ctx, resp.User.ID)
	switch {
	case err == nil:
		role = profile.Role
	case errors.Is(err, market.ErrNotFound):
		profile = profileFromMetadata(resp.User, role)
		if err := a.repo.CreateProfile(ctx, profile); err != nil {
			a.logger.Fatal("creating profile", zap.Error(err))
		}
	default:
		a.logger.Warn("loading profile", zap.Error(err))
	}

	err = a.session.Start(ctx, session.Auth{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		User: session.User{
			ID:    resp.User.ID,
			Email: resp.User.Email,
			Role:  role,
		},
	})
	if err != nil {
		a.logger.Fatal("saving session", zap.Error(err))
	}

	logger.WithSession(a.logger, resp.User.ID, string(role)).Info("signed in", zap.String("email", resp.User.Email))
}

func profileFromMetadata(user *backend.AuthUser, role market.Role) *market.Profile {
	meta := func(key string) string {
		v, _ := user.Metadata[key].(string)
		return strings.TrimSpace(v)
	}

	if role == "" {
		role = market.RoleSeeker
	}

	return &market.Profile{
		ID:          user.ID,
		Role:        role,
		FullName:    meta("full_name"),
		CompanyName: meta("company_name"),
	}
}
