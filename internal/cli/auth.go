package cli

import (
	"time"

	"github.com/spf13/cobra"

	"kis-gateway/internal/security"
	"kis-gateway/internal/transport"
)

// addAuthCommands adds access token commands.
func addAuthCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Access token management",
		Long: `Inspect the configured credential and acquire access tokens.

The venue allows one token request per minute. A token is valid for about
24 hours and is renewed five minutes before it expires.`,
	}
	cmd.AddCommand(newAuthTokenCmd(app))
	cmd.AddCommand(newAuthStatusCmd(app))
	rootCmd.AddCommand(cmd)
}

type tokenView struct {
	Environment string    `json:"environment"`
	Account     string    `json:"account"`
	Token       string    `json:"token"`
	IssuedAt    time.Time `json:"issued_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func newAuthTokenCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Acquire an access token",
		Example: `  kisgw auth token
  kisgw auth token --live --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := commandContext(cmd)
			defer cancel()

			client, err := app.Client()
			if err != nil {
				return err
			}
			if _, err := client.Sessions().EnsureValidToken(ctx); err != nil {
				output.Error("Token acquisition failed: %v", err)
				return err
			}
			session, _ := client.Sessions().Snapshot()

			view := tokenView{
				Environment: string(client.Environment()),
				Account:     security.MaskAccount(client.Credential().AccountID()),
				Token:       security.MaskCredential(session.AccessToken),
				IssuedAt:    session.IssuedAt,
				ExpiresAt:   session.ExpiresAt,
			}
			if output.IsJSON() {
				return output.JSON(view)
			}

			output.Success("✓ Access token acquired")
			output.Printf("  Environment: %s\n", view.Environment)
			output.Printf("  Account:     %s\n", view.Account)
			output.Printf("  Token:       %s\n", view.Token)
			output.Printf("  Expires:     %s (in %s)\n", FormatDateTime(view.ExpiresAt),
				FormatDuration(time.Until(view.ExpiresAt)))
			return nil
		},
	}
}

type authStatus struct {
	Environment string `json:"environment"`
	BaseURL     string `json:"base_url"`
	AppKey      string `json:"app_key"`
	Account     string `json:"account"`
	ReadOnly    bool   `json:"read_only"`
	Configured  bool   `json:"configured"`
	Problem     string `json:"problem,omitempty"`
}

func newAuthStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the configured credential",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			env, err := app.Environment()
			if err != nil {
				return err
			}
			status := authStatus{
				Environment: string(env),
				BaseURL:     transport.BaseURL(env),
				AppKey:      security.MaskCredential(app.Config.Credentials.AppKey),
				Account:     security.MaskAccount(app.Config.Credentials.AccountNo),
				ReadOnly:    app.Config.Security.ReadOnlyMode,
				Configured:  true,
			}
			if _, err := app.Client(); err != nil {
				status.Configured = false
				status.Problem = err.Error()
			}

			if output.IsJSON() {
				return output.JSON(status)
			}

			output.Bold("Credential")
			output.Printf("  Environment: %s\n", status.Environment)
			output.Printf("  Base URL:    %s\n", status.BaseURL)
			output.Printf("  App key:     %s\n", status.AppKey)
			output.Printf("  Account:     %s\n", status.Account)
			if status.ReadOnly {
				output.Warning("  Read-only mode: order placement is disabled")
			}
			output.Println()
			if status.Configured {
				output.Success("✓ Credential is complete")
				output.Dim("Run 'kisgw auth token' to verify it against the venue")
			} else {
				output.Error("✗ %s", status.Problem)
			}
			return nil
		},
	}
}
