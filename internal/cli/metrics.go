package cli

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"kis-gateway/internal/errors"
	"kis-gateway/internal/models"
	"kis-gateway/internal/resilience"
	"kis-gateway/internal/transport"
)

// addMetricsCommands adds the venue probe.
func addMetricsCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newProbeCmd(app))
}

type probeView struct {
	Environment string           `json:"environment"`
	Succeeded   []string         `json:"succeeded"`
	Failed      []snapshotFailed `json:"failed,omitempty"`
	Metrics     map[string]int64 `json:"metrics"`

	Breakers []resilience.CircuitBreakerStats `json:"breakers,omitempty"`
}

func newProbeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Check venue connectivity and report request metrics",
		Long: `Acquire a token, query the balance of each asset class and report the
counters collected on the way: token acquisitions, hashkey requests and
venue calls by result. The state of each venue host's circuit breaker is
shown as well.`,
		Example: `  kisgw probe
  kisgw probe --asset domestic_equity --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := commandContext(cmd)
			defer cancel()

			if err := app.enableMetrics(); err != nil {
				return err
			}

			names, _ := cmd.Flags().GetStringSlice("asset")
			classes := make([]models.AssetClass, 0, len(names))
			for _, n := range names {
				c, err := models.ParseAssetClass(n)
				if err != nil {
					return errors.NewValidationError("asset", n, err.Error())
				}
				classes = append(classes, c)
			}

			client, err := app.Client()
			if err != nil {
				return err
			}
			view := probeView{Environment: string(client.Environment()), Succeeded: []string{}}

			snap, snapErr := client.Snapshot(ctx, classes...)
			if snap != nil {
				for _, class := range models.AssetClasses() {
					if _, ok := snap.Balances[class]; ok {
						view.Succeeded = append(view.Succeeded, string(class))
					}
					if err, ok := snap.Errors[class]; ok {
						view.Failed = append(view.Failed, snapshotFailed{
							AssetClass: string(class), Kind: errors.Kind(err), Message: err.Error(),
						})
					}
				}
			}

			totals, err := app.MetricTotals(ctx)
			if err != nil {
				return err
			}
			if totals == nil {
				totals = map[string]int64{}
			}
			view.Metrics = totals
			if ht, ok := app.Transport.(*transport.HTTPTransport); ok {
				view.Breakers = ht.Breakers().All()
			}

			if output.IsJSON() {
				if err := output.JSON(view); err != nil {
					return err
				}
				return snapErr
			}

			if snapErr != nil {
				output.Error("✗ Token acquisition failed: %v", snapErr)
			} else {
				output.Success("✓ Token acquired (%s)", view.Environment)
			}
			for _, class := range view.Succeeded {
				output.Success("✓ %s", class)
			}
			for _, f := range view.Failed {
				output.Error("✗ %s [%s] %s", f.AssetClass, f.Kind, f.Message)
			}
			output.Println()

			metricNames := make([]string, 0, len(totals))
			for name := range totals {
				metricNames = append(metricNames, name)
			}
			sort.Strings(metricNames)
			table := NewTable(output, "METRIC", "COUNT")
			for _, name := range metricNames {
				table.AddRow(name, FormatQuantity(decimal.NewFromInt(totals[name])))
			}
			table.Render()

			if len(view.Breakers) > 0 {
				output.Println()
				hosts := NewTable(output, "HOST", "STATE", "REQUESTS", "FAILURES", "REJECTED")
				for _, b := range view.Breakers {
					hosts.AddRow(b.Host, string(b.State),
						FormatQuantity(decimal.NewFromInt(b.Requests)),
						FormatQuantity(decimal.NewFromInt(b.Failures)),
						FormatQuantity(decimal.NewFromInt(b.Rejected)))
				}
				hosts.Render()
			}
			return snapErr
		},
	}
	cmd.Flags().StringSliceP("asset", "a", nil, "asset classes to probe (default: all available)")
	return cmd
}
