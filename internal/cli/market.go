package cli

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"kis-gateway/internal/errors"
	"kis-gateway/internal/models"
)

// addMarketCommands adds quote and history commands.
func addMarketCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newQuoteCmd(app))
	rootCmd.AddCommand(newOrderBookCmd(app))
	rootCmd.AddCommand(newExecutionsCmd(app))
}

type quoteView struct {
	Symbol      string          `json:"symbol"`
	Name        string          `json:"name,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Change      decimal.Decimal `json:"change"`
	ChangeRate  decimal.Decimal `json:"change_rate"`
	Open        decimal.Decimal `json:"open"`
	High        decimal.Decimal `json:"high"`
	Low         decimal.Decimal `json:"low"`
	Volume      decimal.Decimal `json:"volume"`
	TradedValue decimal.Decimal `json:"traded_value"`
	CouponRate  decimal.Decimal `json:"coupon_rate,omitempty"`
	Currency    string          `json:"currency,omitempty"`
}

func newQuoteCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote <symbol>",
		Short: "Get the current price of an instrument",
		Example: `  kisgw quote 005930
  kisgw quote AAPL --asset overseas_equity --exchange NASD
  kisgw quote KR6095572D81 --asset bond`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := commandContext(cmd)
			defer cancel()

			class, err := assetFlag(cmd)
			if err != nil {
				return err
			}
			exchange, _ := cmd.Flags().GetString("exchange")
			inst := models.Instrument{
				Symbol:   strings.ToUpper(args[0]),
				Exchange: models.Exchange(strings.ToUpper(exchange)),
			}

			ep, err := app.Endpoint(class)
			if err != nil {
				return err
			}
			q, err := ep.Quote(ctx, inst)
			if err != nil {
				output.Error("Quote failed: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(quoteView{
					Symbol: q.Symbol, Name: q.Name, Price: q.Price,
					Change: q.Change, ChangeRate: q.ChangeRate,
					Open: q.Open, High: q.High, Low: q.Low,
					Volume: q.Volume, TradedValue: q.TradedValue,
					CouponRate: q.CouponRate, Currency: q.Currency,
				})
			}

			title := q.Symbol
			if q.Name != "" {
				title += " " + q.Name
			}
			lines := []string{
				"Price:  " + FormatAmount(q.Price, q.Currency),
				"Change: " + output.FormatPnL(q.Change, q.Currency) + " (" + output.FormatPercent(q.ChangeRate) + ")",
				"Open:   " + FormatPrice(q.Open),
				"High:   " + FormatPrice(q.High),
				"Low:    " + FormatPrice(q.Low),
				"Volume: " + FormatQuantity(q.Volume),
			}
			if !q.CouponRate.IsZero() {
				lines = append(lines, "Coupon: "+FormatPercent(q.CouponRate))
			}
			output.Box(title, lines)
			return nil
		},
	}
	cmd.Flags().StringP("asset", "a", string(models.DomesticEquity), "asset class")
	cmd.Flags().StringP("exchange", "e", "", "overseas exchange code (NASD, NYSE, AMEX, SEHK, ...)")
	return cmd
}

type bookView struct {
	Symbol string      `json:"symbol"`
	Asks   []levelView `json:"asks"`
	Bids   []levelView `json:"bids"`
}

type levelView struct {
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
}

func toLevels(levels []models.BookLevel) []levelView {
	out := make([]levelView, 0, len(levels))
	for _, l := range levels {
		out = append(out, levelView{Price: l.Price, Quantity: l.Quantity})
	}
	return out
}

func newOrderBookCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "orderbook <bond-serial>",
		Short:   "Show the five-level order book of a bond",
		Example: `  kisgw orderbook KR6095572D81 --live`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := commandContext(cmd)
			defer cancel()

			client, err := app.Client()
			if err != nil {
				return err
			}
			book, err := client.BondOrderBook(ctx, args[0])
			if err != nil {
				output.Error("Order book inquiry failed: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(bookView{Symbol: book.Symbol, Asks: toLevels(book.Asks), Bids: toLevels(book.Bids)})
			}

			output.Bold("Order book %s", book.Symbol)
			table := NewTable(output, "SIDE", "PRICE", "QTY")
			for i := len(book.Asks) - 1; i >= 0; i-- {
				table.AddRow(output.Red("ASK"), FormatPrice(book.Asks[i].Price), FormatQuantity(book.Asks[i].Quantity))
			}
			for _, l := range book.Bids {
				table.AddRow(output.Green("BID"), FormatPrice(l.Price), FormatQuantity(l.Quantity))
			}
			table.Render()
			return nil
		},
	}
}

type executionView struct {
	OrderID     string          `json:"order_id"`
	Symbol      string          `json:"symbol"`
	Side        string          `json:"side"`
	OrderQty    decimal.Decimal `json:"order_qty"`
	FilledQty   decimal.Decimal `json:"filled_qty"`
	OrderPrice  decimal.Decimal `json:"order_price"`
	FilledPrice decimal.Decimal `json:"filled_price"`
	OrderTime   string          `json:"order_time"`
}

const dateLayout = "2006-01-02"

func newExecutionsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "executions",
		Short: "List derivative executions in a date range",
		Example: `  kisgw executions
  kisgw executions --asset overseas_derivative --from 2026-03-01 --to 2026-03-02`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := commandContext(cmd)
			defer cancel()

			class, err := assetFlag(cmd)
			if err != nil {
				return err
			}
			today := time.Now().In(kst).Format(dateLayout)
			fromFlag, _ := cmd.Flags().GetString("from")
			toFlag, _ := cmd.Flags().GetString("to")
			if fromFlag == "" {
				fromFlag = today
			}
			if toFlag == "" {
				toFlag = today
			}
			from, err := time.ParseInLocation(dateLayout, fromFlag, kst)
			if err != nil {
				return errors.NewValidationError("from", fromFlag, "expected YYYY-MM-DD")
			}
			to, err := time.ParseInLocation(dateLayout, toFlag, kst)
			if err != nil {
				return errors.NewValidationError("to", toFlag, "expected YYYY-MM-DD")
			}
			if to.Before(from) {
				return errors.NewValidationError("to", toFlag, "must not be before --from")
			}

			client, err := app.Client()
			if err != nil {
				return err
			}
			fills, err := client.Executions(ctx, class, from, to)
			if err != nil {
				output.Error("Execution inquiry failed: %v", err)
				return err
			}

			views := make([]executionView, 0, len(fills))
			for _, f := range fills {
				views = append(views, executionView{
					OrderID: f.OrderID, Symbol: f.Symbol, Side: string(f.Side),
					OrderQty: f.OrderQty, FilledQty: f.FilledQty,
					OrderPrice: f.OrderPrice, FilledPrice: f.FilledPrice,
					OrderTime: f.OrderTime,
				})
			}
			if output.IsJSON() {
				return output.JSON(views)
			}

			if len(views) == 0 {
				output.Dim("No executions between %s and %s", fromFlag, toFlag)
				return nil
			}
			table := NewTable(output, "ORDER", "SYMBOL", "SIDE", "QTY", "FILLED", "PRICE", "AVG FILL", "TIME")
			for _, v := range views {
				side := output.Green("BUY")
				if v.Side == string(models.Sell) {
					side = output.Red("SELL")
				}
				table.AddRow(v.OrderID, v.Symbol, side,
					FormatQuantity(v.OrderQty), FormatQuantity(v.FilledQty),
					FormatPrice(v.OrderPrice), FormatPrice(v.FilledPrice),
					FormatVenueTime(v.OrderTime))
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().StringP("asset", "a", string(models.DomesticDerivative), "derivative asset class")
	cmd.Flags().String("from", "", "first day, YYYY-MM-DD (default today)")
	cmd.Flags().String("to", "", "last day, YYYY-MM-DD (default today)")
	return cmd
}
