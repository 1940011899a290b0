package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/digitalplanet/shopclient/internal/core/tokens"
	"github.com/digitalplanet/shopclient/internal/output"
)

var (
	loginPassword      string
	loginPasswordStdin bool
	loginRemember      bool
)

var loginCmd = &cobra.Command{
	Use:   "login <email>",
	Short: "Log in and store the session tokens",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := resolvePassword(loginPassword, loginPasswordStdin, os.Stdin)
		if err != nil {
			return err
		}

		return withSession(cmd, func(ctx context.Context, s *clientSession) error {
			if _, err := s.client.Auth.Login(ctx, args[0], password, loginRemember); err != nil {
				return err
			}
			s.logger.Info("Logged in", zap.String("identity", s.tokens.Identity(ctx)))
			return render(cmd, "login", sessionView(ctx, s))
		})
	},
}

var (
	registerPassword      string
	registerPasswordStdin bool
)

var registerCmd = &cobra.Command{
	Use:   "register <username> <email>",
	Short: "Create an account",
	Long: `Create an account. When the storefront returns a token the new session
is stored immediately; otherwise log in afterwards.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := resolvePassword(registerPassword, registerPasswordStdin, os.Stdin)
		if err != nil {
			return err
		}

		return withSession(cmd, func(ctx context.Context, s *clientSession) error {
			resp, err := s.client.Auth.Register(ctx, args[0], args[1], password)
			if err != nil {
				return err
			}
			if s.tokens.Credentials().HasAccess() {
				return render(cmd, "register", sessionView(ctx, s))
			}
			return render(cmd, "register", output.ResponseView(resp))
		})
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out and clear stored credentials",
	Long: `Notify the storefront and clear stored credentials. Local credentials are
cleared even when the logout call fails.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *clientSession) error {
			err := s.client.Auth.Logout(ctx)
			if err != nil {
				s.logger.Warn("Logout call failed; local credentials were cleared", zap.Error(err))
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		})
	},
}

var socialLoginCmd = &cobra.Command{
	Use:   "social-login <provider>",
	Short: "Print the URL that starts a social login (google, github, wechat)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *clientSession) error {
			target, err := s.client.Auth.SocialLoginURL(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), target)
			return err
		})
	},
}

var passwordCmd = &cobra.Command{
	Use:   "password",
	Short: "Password recovery",
}

var passwordForgotCmd = &cobra.Command{
	Use:   "forgot <email>",
	Short: "Request a password reset email",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *clientSession) error {
			resp, err := s.client.Auth.ForgotPassword(ctx, args[0])
			if err != nil {
				return err
			}
			return render(cmd, "password-forgot", output.ResponseView(resp))
		})
	},
}

var (
	resetPassword      string
	resetPasswordStdin bool
)

var passwordResetCmd = &cobra.Command{
	Use:   "reset <token>",
	Short: "Set a new password with the emailed reset token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := resolvePassword(resetPassword, resetPasswordStdin, os.Stdin)
		if err != nil {
			return err
		}
		return withSession(cmd, func(ctx context.Context, s *clientSession) error {
			resp, err := s.client.Auth.ResetPassword(ctx, args[0], password)
			if err != nil {
				return err
			}
			return render(cmd, "password-reset", output.ResponseView(resp))
		})
	},
}

// resolvePassword reads the password from the flag or the first line of stdin.
func resolvePassword(flagValue string, fromStdin bool, stdin io.Reader) (string, error) {
	if fromStdin {
		if flagValue != "" {
			return "", errors.New("--password and --password-stdin are mutually exclusive")
		}
		line, err := bufio.NewReader(stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("read password: %w", err)
		}
		flagValue = strings.TrimRight(line, "\r\n")
	}
	if flagValue == "" {
		return "", errors.New("password is required (--password or --password-stdin)")
	}
	return flagValue, nil
}

func sessionView(ctx context.Context, s *clientSession) output.View {
	creds := s.tokens.Credentials()
	status := output.NewCredentialStatus(creds, s.tokens.UserID(), tokens.SubjectOf(creds.AccessToken), s.tokens.Identity(ctx))
	return output.CredentialsView(status)
}

func addPasswordFlags(cmd *cobra.Command, value *string, stdin *bool) {
	cmd.Flags().StringVarP(value, "password", "p", "", "Password (prefer --password-stdin)")
	cmd.Flags().BoolVar(stdin, "password-stdin", false, "Read the password from stdin")
}

func init() {
	addPasswordFlags(loginCmd, &loginPassword, &loginPasswordStdin)
	loginCmd.Flags().BoolVar(&loginRemember, "remember", false, "Ask the storefront for a long-lived session")
	addOutputFlags(loginCmd)

	addPasswordFlags(registerCmd, &registerPassword, &registerPasswordStdin)
	addOutputFlags(registerCmd)

	addPasswordFlags(passwordResetCmd, &resetPassword, &resetPasswordStdin)
	addOutputFlags(passwordResetCmd)
	addOutputFlags(passwordForgotCmd)

	passwordCmd.AddCommand(passwordForgotCmd)
	passwordCmd.AddCommand(passwordResetCmd)

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(socialLoginCmd)
	rootCmd.AddCommand(passwordCmd)
}
