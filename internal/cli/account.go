package cli

import (
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"kis-gateway/internal/errors"
	"kis-gateway/internal/models"
)

// addAccountCommands adds balance and deposit commands.
func addAccountCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newBalanceCmd(app))
	rootCmd.AddCommand(newDepositCmd(app))
	rootCmd.AddCommand(newSnapshotCmd(app))
}

type positionView struct {
	Symbol         string          `json:"symbol"`
	Name           string          `json:"name,omitempty"`
	Exchange       string          `json:"exchange,omitempty"`
	Side           string          `json:"side,omitempty"`
	Quantity       decimal.Decimal `json:"quantity"`
	AveragePrice   decimal.Decimal `json:"average_price"`
	CurrentPrice   decimal.Decimal `json:"current_price"`
	MarketValue    decimal.Decimal `json:"market_value"`
	ProfitLoss     decimal.Decimal `json:"profit_loss"`
	ProfitLossRate decimal.Decimal `json:"profit_loss_rate"`
	Currency       string          `json:"currency,omitempty"`
	Maturity       string          `json:"maturity,omitempty"`
}

type summaryView struct {
	Currency       string          `json:"currency"`
	TotalEquity    decimal.Decimal `json:"total_equity"`
	BuyingPower    decimal.Decimal `json:"buying_power"`
	AvailableCash  decimal.Decimal `json:"available_cash"`
	Deposit        decimal.Decimal `json:"deposit"`
	Margin         decimal.Decimal `json:"margin"`
	PurchaseAmount decimal.Decimal `json:"purchase_amount"`
	ProfitLoss     decimal.Decimal `json:"profit_loss"`
	Withdrawable   decimal.Decimal `json:"withdrawable"`
}

type balanceView struct {
	AssetClass string         `json:"asset_class"`
	Summary    summaryView    `json:"summary"`
	Positions  []positionView `json:"positions"`
}

func toSummaryView(s models.BalanceSummary) summaryView {
	return summaryView{
		Currency:       s.Currency,
		TotalEquity:    s.TotalEquity,
		BuyingPower:    s.BuyingPower,
		AvailableCash:  s.AvailableCash,
		Deposit:        s.Deposit,
		Margin:         s.Margin,
		PurchaseAmount: s.PurchaseAmount,
		ProfitLoss:     s.ProfitLoss,
		Withdrawable:   s.Withdrawable,
	}
}

func toBalanceView(b *models.Balance) balanceView {
	v := balanceView{
		AssetClass: string(b.AssetClass),
		Summary:    toSummaryView(b.Summary),
		Positions:  make([]positionView, 0, len(b.Positions)),
	}
	for _, p := range b.Positions {
		v.Positions = append(v.Positions, positionView{
			Symbol:         p.Symbol,
			Name:           p.Name,
			Exchange:       p.Exchange,
			Side:           string(p.Side),
			Quantity:       p.Quantity,
			AveragePrice:   p.AveragePrice,
			CurrentPrice:   p.CurrentPrice,
			MarketValue:    p.MarketValue,
			ProfitLoss:     p.ProfitLoss,
			ProfitLossRate: p.ProfitLossRate,
			Currency:       p.Currency,
			Maturity:       p.Maturity,
		})
	}
	return v
}

// assetFlag parses the --asset flag of cmd.
func assetFlag(cmd *cobra.Command) (models.AssetClass, error) {
	s, _ := cmd.Flags().GetString("asset")
	class, err := models.ParseAssetClass(s)
	if err != nil {
		return "", errors.NewValidationError("asset", s, err.Error())
	}
	return class, nil
}

func newBalanceCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show holdings and account summary for one asset class",
		Example: `  kisgw balance
  kisgw balance --asset overseas_equity
  kisgw balance --asset bond --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := commandContext(cmd)
			defer cancel()

			class, err := assetFlag(cmd)
			if err != nil {
				return err
			}
			ep, err := app.Endpoint(class)
			if err != nil {
				return err
			}
			bal, err := ep.Balance(ctx)
			if err != nil {
				output.Error("Balance inquiry failed: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(toBalanceView(bal))
			}
			renderBalance(output, bal)
			return nil
		},
	}
	cmd.Flags().StringP("asset", "a", string(models.DomesticEquity), "asset class")
	return cmd
}

func renderBalance(output *Output, bal *models.Balance) {
	s := bal.Summary
	output.Box(string(bal.AssetClass), []string{
		"Total equity:   " + FormatAmount(s.TotalEquity, s.Currency),
		"Available cash: " + FormatAmount(s.AvailableCash, s.Currency),
		"Buying power:   " + FormatAmount(s.BuyingPower, s.Currency),
		"Deposit:        " + FormatAmount(s.Deposit, s.Currency),
		"Profit/loss:    " + output.FormatPnL(s.ProfitLoss, s.Currency),
	})
	output.Println()

	if len(bal.Positions) == 0 {
		output.Dim("No positions")
		return
	}

	table := NewTable(output, "SYMBOL", "NAME", "QTY", "AVG", "LAST", "VALUE", "P&L", "P&L%")
	for _, p := range bal.Positions {
		currency := p.Currency
		if currency == "" {
			currency = s.Currency
		}
		table.AddRow(
			p.Symbol,
			TruncateString(p.Name, 20),
			FormatQuantity(p.Quantity),
			FormatPrice(p.AveragePrice),
			FormatPrice(p.CurrentPrice),
			FormatAmount(p.MarketValue, currency),
			output.FormatPnL(p.ProfitLoss, currency),
			output.FormatPercent(p.ProfitLossRate),
		)
	}
	table.Render()
}

func newDepositCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deposit",
		Short: "Show the margin deposit of a derivatives account",
		Example: `  kisgw deposit --asset domestic_derivative
  kisgw deposit --asset overseas_derivative --live`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := commandContext(cmd)
			defer cancel()

			class, err := assetFlag(cmd)
			if err != nil {
				return err
			}
			client, err := app.Client()
			if err != nil {
				return err
			}
			s, err := client.DerivativeDeposit(ctx, class)
			if err != nil {
				output.Error("Deposit inquiry failed: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(toSummaryView(*s))
			}
			output.Box("Deposit "+string(class), []string{
				"Total equity:   " + FormatAmount(s.TotalEquity, s.Currency),
				"Deposit:        " + FormatAmount(s.Deposit, s.Currency),
				"Margin:         " + FormatAmount(s.Margin, s.Currency),
				"Buying power:   " + FormatAmount(s.BuyingPower, s.Currency),
				"Withdrawable:   " + FormatAmount(s.Withdrawable, s.Currency),
			})
			return nil
		},
	}
	cmd.Flags().StringP("asset", "a", string(models.DomesticDerivative), "derivative asset class")
	return cmd
}

type snapshotView struct {
	Balances []balanceView    `json:"balances"`
	Errors   []snapshotFailed `json:"errors,omitempty"`
}

type snapshotFailed struct {
	AssetClass string `json:"asset_class"`
	Kind       string `json:"kind"`
	Message    string `json:"message"`
}

func newSnapshotCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Fetch the balances of several asset classes concurrently",
		Long: `Fetch the balances of several asset classes concurrently.

Without --asset every class the selected environment supports is queried.
A failing class is reported without hiding the others.`,
		Example: `  kisgw snapshot
  kisgw snapshot --asset domestic_equity --asset bond`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := commandContext(cmd)
			defer cancel()

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
			snap, err := client.Snapshot(ctx, classes...)
			if err != nil {
				output.Error("Snapshot failed: %v", err)
				return err
			}

			view := snapshotView{Balances: make([]balanceView, 0, len(snap.Balances))}
			for _, class := range models.AssetClasses() {
				if bal, ok := snap.Balances[class]; ok {
					view.Balances = append(view.Balances, toBalanceView(bal))
				}
				if err, ok := snap.Errors[class]; ok {
					view.Errors = append(view.Errors, snapshotFailed{
						AssetClass: string(class),
						Kind:       errors.Kind(err),
						Message:    err.Error(),
					})
				}
			}

			if output.IsJSON() {
				return output.JSON(view)
			}

			for _, class := range models.AssetClasses() {
				if bal, ok := snap.Balances[class]; ok {
					renderBalance(output, bal)
					output.Println()
				}
			}
			for _, f := range view.Errors {
				output.Error("%s: [%s] %s", f.AssetClass, f.Kind, f.Message)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceP("asset", "a", nil, "asset classes to include (repeatable)")
	return cmd
}
