package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"kis-gateway/internal/errors"
	"kis-gateway/internal/logging"
	"kis-gateway/internal/models"
	"kis-gateway/internal/store"
)

// addTradingCommands adds order commands. Every accepted order is recorded
// in the local ledger so it can later be revised or cancelled by id.
func addTradingCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newPlaceCmd(app, models.Buy))
	rootCmd.AddCommand(newPlaceCmd(app, models.Sell))
	rootCmd.AddCommand(newReviseCmd(app))
	rootCmd.AddCommand(newCancelCmd(app))
	rootCmd.AddCommand(newOrdersCmd(app))
}

type confirmationView struct {
	OrderID         string `json:"order_id"`
	BranchNo        string `json:"branch_no,omitempty"`
	OrderTime       string `json:"order_time,omitempty"`
	TransactionCode string `json:"tr_id"`
	Message         string `json:"message,omitempty"`
	AssetClass      string `json:"asset_class"`
	Environment     string `json:"environment"`
}

func toConfirmationView(c *models.Confirmation) confirmationView {
	return confirmationView{
		OrderID:         c.OrderID,
		BranchNo:        c.BranchNo,
		OrderTime:       c.OrderTime,
		TransactionCode: c.TransactionCode,
		Message:         c.Message,
		AssetClass:      string(c.AssetClass),
		Environment:     string(c.Environment),
	}
}

// priceFlag parses a decimal flag; an empty value is zero.
func priceFlag(cmd *cobra.Command, name string) (decimal.Decimal, error) {
	s, _ := cmd.Flags().GetString(name)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errors.NewValidationError(name, s, "not a number")
	}
	return d, nil
}

func parseQuantity(s string) (int64, error) {
	qty, err := strconv.ParseInt(strings.ReplaceAll(s, ",", ""), 10, 64)
	if err != nil || qty <= 0 {
		return 0, errors.NewValidationError("quantity", s, "must be a positive whole number")
	}
	return qty, nil
}

func newPlaceCmd(app *App, side models.Side) *cobra.Command {
	verb := string(side)
	cmd := &cobra.Command{
		Use:   verb + " <symbol> <quantity>",
		Short: fmt.Sprintf("Place a %s order", verb),
		Long: fmt.Sprintf(`Place a %s order.

Without --price the order is sent at market. For derivatives use --close
to liquidate an existing position instead of opening a new one. For bonds
the symbol is the bond serial number.`, verb),
		Example: fmt.Sprintf(`  kisgw %[1]s 005930 10 --price 70000
  kisgw %[1]s AAPL 5 --asset overseas_equity --exchange NASD --price 185.50
  kisgw %[1]s 101S06 1 --asset domestic_derivative --price 350.25 --close`, verb),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := commandContext(cmd)
			defer cancel()

			class, err := assetFlag(cmd)
			if err != nil {
				return err
			}
			qty, err := parseQuantity(args[1])
			if err != nil {
				return err
			}
			price, err := priceFlag(cmd, "price")
			if err != nil {
				return err
			}
			kindFlag, _ := cmd.Flags().GetString("kind")
			exchange, _ := cmd.Flags().GetString("exchange")
			closing, _ := cmd.Flags().GetBool("close")

			kind := models.PriceKind(kindFlag)
			if kind == "" {
				kind = models.Limit
				if price.IsZero() {
					kind = models.Market
				}
			}
			effect := models.Open
			if closing {
				effect = models.Close
			}

			req := models.OrderRequest{
				AssetClass: class,
				Symbol:     strings.ToUpper(args[0]),
				Side:       side,
				Quantity:   qty,
				Price:      price,
				PriceKind:  kind,
				Exchange:   models.Exchange(strings.ToUpper(exchange)),
				Effect:     effect,
			}

			ep, err := app.Endpoint(class)
			if err != nil {
				return err
			}

			if !output.IsJSON() {
				sideText := output.Green("BUY")
				if side == models.Sell {
					sideText = output.Red("SELL")
				}
				output.Bold("Order Preview")
				output.Printf("  Asset:    %s\n", class)
				output.Printf("  Symbol:   %s\n", req.Symbol)
				output.Printf("  Side:     %s\n", sideText)
				output.Printf("  Quantity: %d\n", qty)
				output.Printf("  Type:     %s\n", kind)
				if !kind.IsMarket() {
					output.Printf("  Price:    %s\n", FormatPrice(price))
				}
				if class.IsDerivative() {
					output.Printf("  Effect:   %s\n", effect)
				}
				output.Println()
				if app.Config.IsPaperMode() {
					output.Warning("PAPER TRADING MODE")
				}
			}

			conf, err := ep.PlaceOrder(ctx, req)
			if err != nil {
				output.Error("Order failed: %v", err)
				return err
			}
			app.recordOrder(cmd, req, conf)

			if output.IsJSON() {
				return output.JSON(toConfirmationView(conf))
			}
			output.Success("✓ Order accepted")
			output.Printf("  Order ID: %s\n", conf.OrderID)
			if conf.OrderTime != "" {
				output.Printf("  Time:     %s\n", FormatVenueTime(conf.OrderTime))
			}
			output.Printf("  TR ID:    %s\n", conf.TransactionCode)
			if conf.Message != "" {
				output.Printf("  Message:  %s\n", conf.Message)
			}
			output.Println()
			output.Dim("Use 'kisgw orders' to see the order ledger")
			return nil
		},
	}

	cmd.Flags().StringP("asset", "a", string(models.DomesticEquity), "asset class")
	cmd.Flags().StringP("price", "p", "", "limit price (omit for market)")
	cmd.Flags().String("kind", "", "price kind (limit, market, conditional_limit, best_limit, ...)")
	cmd.Flags().StringP("exchange", "e", "", "overseas exchange code")
	cmd.Flags().Bool("close", false, "liquidate a derivative position")
	return cmd
}

// recordOrder saves an accepted order to the ledger. A ledger failure is
// logged; the order itself already reached the venue.
func (a *App) recordOrder(cmd *cobra.Command, req models.OrderRequest, conf *models.Confirmation) {
	ledger, err := a.Ledger()
	if err != nil {
		a.Logger.Warn().Err(err).Msg("Order not recorded")
		return
	}
	now := time.Now().UTC()
	entry := &models.LedgerOrder{
		ID:              conf.OrderID,
		BranchNo:        conf.BranchNo,
		AssetClass:      req.AssetClass,
		Environment:     conf.Environment,
		Exchange:        req.Exchange,
		Symbol:          req.Symbol,
		Side:            req.Side,
		Kind:            req.PriceKind,
		Quantity:        req.Quantity,
		Price:           req.Price,
		Status:          models.StatusSubmitted,
		TransactionCode: conf.TransactionCode,
		Message:         conf.Message,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if entry.ID == "" {
		a.Logger.Warn().Str("symbol", req.Symbol).Msg("Venue returned no order number; order not recorded")
		return
	}
	if err := ledger.SaveOrder(cmd.Context(), entry); err != nil {
		a.Logger.Warn().Err(err).Str("order_id", entry.ID).Msg("Order not recorded")
		return
	}
	logging.LogOrder(a.Logger, entry.ID, entry.Symbol, string(req.Side), entry.Status)
}

// amendable loads a ledger order and checks it can still be changed from
// the selected environment.
func (a *App) amendable(cmd *cobra.Command, id string) (*models.LedgerOrder, error) {
	ledger, err := a.Ledger()
	if err != nil {
		return nil, err
	}
	entry, err := ledger.GetOrder(cmd.Context(), id)
	if err != nil {
		return nil, err
	}
	if entry.Status == models.StatusRejected || entry.Status == models.StatusCancelled {
		return nil, errors.NewValidationError("order_id", id, "order is "+entry.Status)
	}
	env, err := a.Environment()
	if err != nil {
		return nil, err
	}
	if entry.Environment != env {
		return nil, errors.NewValidationError("order_id", id,
			fmt.Sprintf("order was placed in %s, selected environment is %s", entry.Environment, env))
	}
	return entry, nil
}

func newReviseCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revise <order-id>",
		Short: "Change the price or quantity of an open order",
		Example: `  kisgw revise 0000117057 --price 69500
  kisgw revise 0000117057 --price 69500 --qty 5`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := commandContext(cmd)
			defer cancel()

			entry, err := app.amendable(cmd, args[0])
			if err != nil {
				return err
			}
			price, err := priceFlag(cmd, "price")
			if err != nil {
				return err
			}
			qty := entry.Quantity
			if cmd.Flags().Changed("qty") {
				qty, _ = cmd.Flags().GetInt64("qty")
			}

			ep, err := app.Endpoint(entry.AssetClass)
			if err != nil {
				return err
			}
			conf, err := ep.Revise(ctx, entry.Ref(), qty, price)
			if err != nil {
				output.Error("Revision failed: %v", err)
				return err
			}
			app.updateOrder(cmd, entry, "revise", models.StatusRevised, conf.Message)

			if output.IsJSON() {
				return output.JSON(toConfirmationView(conf))
			}
			output.Success("✓ Order %s revised", entry.ID)
			output.Printf("  New order ID: %s\n", conf.OrderID)
			output.Printf("  Quantity:     %d\n", qty)
			output.Printf("  Price:        %s\n", FormatPrice(price))
			return nil
		},
	}
	cmd.Flags().StringP("price", "p", "", "new price")
	cmd.Flags().Int64("qty", 0, "quantity to revise (default: whole order)")
	cmd.MarkFlagRequired("price")
	return cmd
}

func newCancelCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "cancel <order-id>",
		Short:   "Cancel an open order",
		Example: `  kisgw cancel 0000117057`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := commandContext(cmd)
			defer cancel()

			entry, err := app.amendable(cmd, args[0])
			if err != nil {
				return err
			}
			qty := entry.Quantity
			if cmd.Flags().Changed("qty") {
				qty, _ = cmd.Flags().GetInt64("qty")
			}

			ep, err := app.Endpoint(entry.AssetClass)
			if err != nil {
				return err
			}
			conf, err := ep.Cancel(ctx, entry.Ref(), qty)
			if err != nil {
				output.Error("Cancel failed: %v", err)
				return err
			}
			app.updateOrder(cmd, entry, "cancel", models.StatusCancelled, conf.Message)

			if output.IsJSON() {
				return output.JSON(toConfirmationView(conf))
			}
			output.Success("✓ Order %s cancelled", entry.ID)
			if conf.Message != "" {
				output.Dim("%s", conf.Message)
			}
			return nil
		},
	}
	cmd.Flags().Int64("qty", 0, "quantity to cancel (default: whole order)")
	return cmd
}

func (a *App) updateOrder(cmd *cobra.Command, entry *models.LedgerOrder, action, status, message string) {
	ledger, err := a.Ledger()
	if err == nil {
		err = ledger.UpdateOrderStatus(cmd.Context(), entry.ID, status, message)
	}
	if err != nil {
		a.Logger.Warn().Err(err).Str("order_id", entry.ID).Msg("Ledger not updated")
		return
	}
	logging.LogOrder(a.Logger, entry.ID, entry.Symbol, action, status)
}

type ledgerView struct {
	ID          string          `json:"id"`
	AssetClass  string          `json:"asset_class"`
	Environment string          `json:"environment"`
	Symbol      string          `json:"symbol"`
	Exchange    string          `json:"exchange,omitempty"`
	Side        string          `json:"side"`
	Kind        string          `json:"kind"`
	Quantity    int64           `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Status      string          `json:"status"`
	Message     string          `json:"message,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func newOrdersCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "List orders recorded in the local ledger",
		Example: `  kisgw orders
  kisgw orders --status submitted --limit 20`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			filter := store.OrderFilter{}
			filter.Status, _ = cmd.Flags().GetString("status")
			filter.Symbol, _ = cmd.Flags().GetString("symbol")
			filter.Limit, _ = cmd.Flags().GetInt("limit")
			if s, _ := cmd.Flags().GetString("asset"); s != "" {
				class, err := models.ParseAssetClass(s)
				if err != nil {
					return errors.NewValidationError("asset", s, err.Error())
				}
				filter.AssetClass = class
			}

			ledger, err := app.Ledger()
			if err != nil {
				return err
			}
			orders, err := ledger.ListOrders(cmd.Context(), filter)
			if err != nil {
				return err
			}

			views := make([]ledgerView, 0, len(orders))
			for _, o := range orders {
				views = append(views, ledgerView{
					ID: o.ID, AssetClass: string(o.AssetClass), Environment: string(o.Environment),
					Symbol: o.Symbol, Exchange: string(o.Exchange), Side: string(o.Side),
					Kind: string(o.Kind), Quantity: o.Quantity, Price: o.Price,
					Status: o.Status, Message: o.Message,
					CreatedAt: o.CreatedAt, UpdatedAt: o.UpdatedAt,
				})
			}
			if output.IsJSON() {
				return output.JSON(views)
			}

			if len(views) == 0 {
				output.Dim("No orders recorded")
				return nil
			}
			table := NewTable(output, "ID", "TIME", "ASSET", "SYMBOL", "SIDE", "QTY", "PRICE", "STATUS")
			for _, v := range views {
				status := v.Status
				switch v.Status {
				case models.StatusRejected, models.StatusCancelled:
					status = output.DimText(status)
				case models.StatusSubmitted:
					status = output.Cyan(status)
				}
				table.AddRow(v.ID, FormatDateTime(v.CreatedAt), v.AssetClass, v.Symbol,
					v.Side, strconv.FormatInt(v.Quantity, 10), FormatPrice(v.Price), status)
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().String("status", "", "filter by status (submitted, revised, cancelled, rejected)")
	cmd.Flags().String("symbol", "", "filter by symbol")
	cmd.Flags().StringP("asset", "a", "", "filter by asset class")
	cmd.Flags().Int("limit", 50, "maximum number of orders")
	return cmd
}
