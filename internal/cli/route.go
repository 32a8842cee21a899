package cli

import (
	"github.com/spf13/cobra"

	"kis-gateway/internal/models"
	"kis-gateway/internal/routing"
)

// addRouteCommands adds routing table commands. They work offline.
func addRouteCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "route",
		Short: "Inspect the endpoint routing table",
	}
	cmd.AddCommand(newRouteListCmd())
	cmd.AddCommand(newRouteResolveCmd())
	rootCmd.AddCommand(cmd)
}

type routeView struct {
	AssetClass      string `json:"asset_class"`
	Action          string `json:"action"`
	Environment     string `json:"environment"`
	Exchange        string `json:"exchange,omitempty"`
	Method          string `json:"method"`
	Path            string `json:"path"`
	TransactionCode string `json:"tr_id"`
}

func toRouteView(e routing.Entry) routeView {
	return routeView{
		AssetClass:      string(e.Key.AssetClass),
		Action:          string(e.Key.Action),
		Environment:     string(e.Key.Environment),
		Exchange:        string(e.Key.Exchange),
		Method:          e.Descriptor.Method,
		Path:            e.Descriptor.Path,
		TransactionCode: e.Descriptor.TransactionCode,
	}
}

func newRouteListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every routed operation",
		Example: `  kisgw route list
  kisgw route list --asset overseas_equity --env paper`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			var class models.AssetClass
			if s, _ := cmd.Flags().GetString("asset"); s != "" {
				c, err := models.ParseAssetClass(s)
				if err != nil {
					return err
				}
				class = c
			}
			var env models.Environment
			if s, _ := cmd.Flags().GetString("env"); s != "" {
				e, err := models.ParseEnvironment(s)
				if err != nil {
					return err
				}
				env = e
			}

			views := make([]routeView, 0)
			for _, e := range routing.Entries() {
				if class != "" && e.Key.AssetClass != class {
					continue
				}
				if env != "" && e.Key.Environment != env {
					continue
				}
				views = append(views, toRouteView(e))
			}

			if output.IsJSON() {
				return output.JSON(views)
			}

			table := NewTable(output, "ASSET", "ACTION", "ENV", "EXCH", "METHOD", "TR_ID", "PATH")
			for _, v := range views {
				table.AddRow(v.AssetClass, v.Action, v.Environment, v.Exchange, v.Method, v.TransactionCode, v.Path)
			}
			table.Render()
			output.Println()
			output.Dim("%d routes", len(views))
			return nil
		},
	}
	cmd.Flags().String("asset", "", "filter by asset class")
	cmd.Flags().String("env", "", "filter by environment (live, paper)")
	return cmd
}

func newRouteResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve one routing key",
		Example: `  kisgw route resolve --asset domestic_equity --action buy_new --env paper
  kisgw route resolve --asset us --action sell_new --env live --exchange SEHK`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			assetFlag, _ := cmd.Flags().GetString("asset")
			actionFlag, _ := cmd.Flags().GetString("action")
			envFlag, _ := cmd.Flags().GetString("env")
			exchangeFlag, _ := cmd.Flags().GetString("exchange")

			class, err := models.ParseAssetClass(assetFlag)
			if err != nil {
				return err
			}
			action, err := routing.ParseAction(actionFlag)
			if err != nil {
				return err
			}
			env, err := models.ParseEnvironment(envFlag)
			if err != nil {
				return err
			}

			key := routing.Key{
				AssetClass:  class,
				Action:      action,
				Environment: env,
				Exchange:    models.Exchange(exchangeFlag),
			}
			desc, err := routing.Resolve(key)
			if err != nil {
				return err
			}

			view := toRouteView(routing.Entry{Key: key, Descriptor: desc})
			if output.IsJSON() {
				return output.JSON(view)
			}
			output.Printf("%s %s\n", desc.Method, desc.Path)
			output.Printf("tr_id: %s\n", desc.TransactionCode)
			if action.Mutating() {
				output.Dim("Requires a hashkey")
			}
			return nil
		},
	}
	cmd.Flags().String("asset", "", "asset class (required)")
	cmd.Flags().String("action", "", "action (required)")
	cmd.Flags().String("env", "paper", "environment (live, paper)")
	cmd.Flags().String("exchange", "", "overseas exchange code")
	cmd.MarkFlagRequired("asset")
	cmd.MarkFlagRequired("action")
	return cmd
}
