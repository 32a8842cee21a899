package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

// addHelpCommands adds workflow documentation commands.
func addHelpCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newExamplesCmd())
	rootCmd.AddCommand(newQuickstartCmd())
}

func newExamplesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "examples",
		Short: "Show common workflow examples",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			output.Bold("Common Workflow Examples")
			output.Println()

			examples := []struct {
				title    string
				commands []string
			}{
				{
					title: "Check Connectivity",
					commands: []string{
						"kisgw auth status               # Show the configured credential",
						"kisgw auth token                # Acquire an access token",
						"kisgw probe                     # Query every balance and count requests",
					},
				},
				{
					title: "Domestic Equity",
					commands: []string{
						"kisgw quote 005930              # Samsung Electronics",
						"kisgw buy 005930 10 --price 70000",
						"kisgw revise <order-id> --price 69500",
						"kisgw cancel <order-id>",
						"kisgw balance                   # Holdings and cash",
					},
				},
				{
					title: "Overseas Equity",
					commands: []string{
						"kisgw quote AAPL -a us -e NASD",
						"kisgw buy AAPL 5 -a us -e NASD --price 185.50",
						"kisgw sell 0700 100 -a us -e SEHK --price 380",
						"kisgw balance -a overseas_equity",
					},
				},
				{
					title: "Derivatives",
					commands: []string{
						"kisgw buy 101S06 1 -a domestic_derivative --price 350.25",
						"kisgw sell 101S06 1 -a domestic_derivative --price 351 --close",
						"kisgw deposit -a domestic_derivative",
						"kisgw executions --from 2026-03-02 --to 2026-03-02",
					},
				},
				{
					title: "Bonds",
					commands: []string{
						"kisgw quote KR6095572D81 -a bond --live",
						"kisgw orderbook KR6095572D81 --live",
					},
				},
				{
					title: "Plugin Contract",
					commands: []string{
						"kisgw plugin ops                # List operations",
						"echo '{}' | kisgw plugin call get_accounts",
						"kisgw plugin serve              # JSON lines on stdin/stdout",
					},
				},
				{
					title: "Routing Table",
					commands: []string{
						"kisgw route list --env paper",
						"kisgw route resolve --asset us --action buy_new --env live --exchange NYSE",
					},
				},
			}

			for _, ex := range examples {
				output.Bold("%s", ex.title)
				for _, c := range ex.commands {
					parts := strings.SplitN(c, "#", 2)
					if len(parts) == 2 {
						output.Printf("  %s %s\n", output.Cyan(strings.TrimSpace(parts[0])), output.DimText(strings.TrimSpace(parts[1])))
					} else {
						output.Printf("  %s\n", output.Cyan(c))
					}
				}
				output.Println()
			}

			return nil
		},
	}
}

func newQuickstartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quickstart",
		Short: "New user guide",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			output.Bold("KIS Gateway - Quick Start Guide")
			output.Println()

			steps := []struct {
				step  int
				title string
				desc  string
				cmd   string
			}{
				{1, "Configure Credentials",
					"Put your app key, app secret and 10-digit account number in credentials.toml.",
					"kisgw config path  # Shows config directory"},
				{2, "Validate", "Check the configuration without calling the venue.", "kisgw config validate"},
				{3, "Get a Token", "The venue issues one token per minute; it lasts about a day.", "kisgw auth token"},
				{4, "Check Your Balance", "Verify the account is reachable.", "kisgw balance"},
				{5, "Get a Quote", "Fetch the current price of a stock.", "kisgw quote 005930"},
				{6, "Place a Paper Order", "Orders go to the simulated venue unless --live is given.",
					"kisgw buy 005930 1 --price 70000"},
				{7, "Review the Ledger", "Every accepted order is recorded locally.", "kisgw orders"},
			}

			for _, s := range steps {
				output.Printf("%s Step %d: %s\n", output.Cyan("→"), s.step, output.BoldText(s.title))
				output.Printf("  %s\n", s.desc)
				output.Printf("  %s\n\n", output.DimText(s.cmd))
			}

			output.Bold("Configuration Files")
			output.Println()
			output.Printf("  %s - app key, app secret, account number\n", output.Cyan("credentials.toml"))
			output.Printf("  %s - environment, transport, logging, security\n", output.Cyan("config.toml"))
			output.Println()

			output.Bold("Important Notes")
			output.Println()
			output.Printf("  %s Paper is the default environment\n", output.Yellow("⚠"))
			output.Printf("  %s Set security.read_only_mode to block every order\n", output.Yellow("⚠"))
			output.Printf("  %s Keep credentials.toml private (mode 0600)\n", output.Yellow("⚠"))

			return nil
		},
	}
}
