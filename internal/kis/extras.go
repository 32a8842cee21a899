package kis

import (
	"context"
	"strings"
	"time"

	"kis-gateway/internal/errors"
	"kis-gateway/internal/models"
	"kis-gateway/internal/routing"
)

// DerivativeDeposit returns the deposit and margin summary of a
// derivative account.
func (c *Client) DerivativeDeposit(ctx context.Context, class models.AssetClass) (*models.BalanceSummary, error) {
	e, err := c.Endpoint(class)
	if err != nil {
		return nil, errors.NewQueryError("deposit", string(class), err)
	}
	if e.schema.depositQuery == nil {
		return nil, errors.NewQueryError("deposit", string(class), unsupported(class, routing.Deposit, c.Environment()))
	}
	env, _, err := e.send(ctx, call{action: routing.Deposit, params: e.schema.depositQuery(c.cred)})
	if err != nil {
		return nil, errors.NewQueryError("deposit", string(class), err)
	}
	sum, err := e.schema.parseDeposit(env)
	if err != nil {
		return nil, errors.NewQueryError("deposit", string(class), err)
	}
	return sum, nil
}

// Executions returns the derivative fills between from and to, inclusive
// by calendar day.
func (c *Client) Executions(ctx context.Context, class models.AssetClass, from, to time.Time) ([]models.Execution, error) {
	e, err := c.Endpoint(class)
	if err != nil {
		return nil, errors.NewQueryError("executions", string(class), err)
	}
	if e.schema.executionsQuery == nil {
		return nil, errors.NewQueryError("executions", string(class), unsupported(class, routing.Executions, c.Environment()))
	}
	if to.Before(from) {
		return nil, errors.NewQueryError("executions", string(class),
			errors.NewValidationError("to", to.Format(dateLayout), "must not be before from"))
	}
	env, _, err := e.send(ctx, call{action: routing.Executions, params: e.schema.executionsQuery(c.cred, from, to)})
	if err != nil {
		return nil, errors.NewQueryError("executions", string(class), err)
	}
	fills, err := e.schema.parseExecutions(env)
	if err != nil {
		return nil, errors.NewQueryError("executions", string(class), err)
	}
	return fills, nil
}

// BondOrderBook returns five ask and five bid levels for a bond serial.
func (c *Client) BondOrderBook(ctx context.Context, serial string) (*models.OrderBook, error) {
	if strings.TrimSpace(serial) == "" {
		return nil, errors.NewQueryError("order_book", string(models.Bond),
			errors.NewValidationError("serial", serial, "must not be empty"))
	}
	e, err := c.Endpoint(models.Bond)
	if err != nil {
		return nil, errors.NewQueryError("order_book", string(models.Bond), err)
	}
	env, _, err := e.send(ctx, call{action: routing.OrderBook, params: bondSerialParams{Serial: serial}})
	if err != nil {
		return nil, errors.NewQueryError("order_book", string(models.Bond), err)
	}
	book, err := parseBondOrderBook(serial, env)
	if err != nil {
		return nil, errors.NewQueryError("order_book", string(models.Bond), err)
	}
	return book, nil
}

func unsupported(class models.AssetClass, action routing.Action, env models.Environment) error {
	key := routing.Key{AssetClass: class, Action: action, Environment: env}
	return errors.NewConfigError(errors.ConfigUnsupportedInEnvironment, key.String())
}
