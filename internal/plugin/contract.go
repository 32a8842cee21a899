// Package plugin exposes the gateway to a plugin host through a byte-level
// JSON contract: an operation name and a request payload in, a response
// payload out.
package plugin

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"kis-gateway/internal/errors"
)

// Operations understood by Host.Call.
const (
	OpInitialize   = "initialize"
	OpGetAccounts  = "get_accounts"
	OpGetPositions = "get_positions"
	OpSubmitOrder  = "submit_order"
	OpCancelOrder  = "cancel_order"
	OpGetOrders    = "get_orders"
)

// Operations returns every operation in dispatch order.
func Operations() []string {
	return []string{OpInitialize, OpGetAccounts, OpGetPositions, OpSubmitOrder, OpCancelOrder, OpGetOrders}
}

// BrokerID identifies this plugin to the host.
const BrokerID = "broker-korea"

// ErrorObject is the serialized form of any failure.
type ErrorObject struct {
	Kind    string `json:"kind"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// errorObject classifies err. Venue messages are passed through verbatim.
func errorObject(err error) *ErrorObject {
	if err == nil {
		return nil
	}
	obj := &ErrorObject{Kind: errors.Kind(err), Message: err.Error()}

	var biz *errors.BusinessFailure
	var auth *errors.AuthError
	var val *errors.ValidationError
	switch {
	case errors.As(err, &biz):
		obj.Code = biz.Code
		obj.Message = biz.Message
	case errors.As(err, &auth):
		if auth.Status != 0 {
			obj.Code = strconv.Itoa(auth.Status)
		}
	case errors.As(err, &val):
		obj.Code = val.Field
	}
	return obj
}

// InitializeRequest carries the secrets the host stores for this plugin.
type InitializeRequest struct {
	AppKey    string `json:"app_key"`
	AppSecret string `json:"app_secret"`
	AccountNo string `json:"account_no"`
	IsPaper   *bool  `json:"is_paper,omitempty"` // defaults to true
}

// InitializeResponse reports whether the client was created.
type InitializeResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Error   *ErrorObject `json:"error,omitempty"`
}

// AccountBalance is the cash side of an account in KRW.
type AccountBalance struct {
	Currency      string          `json:"currency"`
	TotalEquity   decimal.Decimal `json:"total_equity"`
	AvailableCash decimal.Decimal `json:"available_cash"`
	BuyingPower   decimal.Decimal `json:"buying_power"`
	LockedCash    decimal.Decimal `json:"locked_cash"`
}

// Position is one domestic equity holding.
type Position struct {
	SymbolID             string          `json:"symbol_id"`
	AccountID            string          `json:"account_id"`
	Name                 string          `json:"name,omitempty"`
	Quantity             decimal.Decimal `json:"quantity"`
	AvgPrice             decimal.Decimal `json:"avg_price"`
	CurrentPrice         decimal.Decimal `json:"current_price"`
	MarketValue          decimal.Decimal `json:"market_value"`
	UnrealizedPnL        decimal.Decimal `json:"unrealized_pnl"`
	UnrealizedPnLPercent decimal.Decimal `json:"unrealized_pnl_percent"`
}

// Account is the summary returned by get_accounts.
type Account struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	BrokerID  string         `json:"broker_id"`
	IsPaper   bool           `json:"is_paper"`
	Balance   AccountBalance `json:"balance"`
	Positions []Position     `json:"positions"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// GetAccountsResponse lists the single configured account.
type GetAccountsResponse struct {
	Accounts []Account    `json:"accounts"`
	Error    *ErrorObject `json:"error,omitempty"`
}

// GetPositionsRequest selects the account to list.
type GetPositionsRequest struct {
	AccountID string `json:"account_id"`
}

// GetPositionsResponse lists holdings. Positions is never null.
type GetPositionsResponse struct {
	Positions []Position   `json:"positions"`
	Error     *ErrorObject `json:"error,omitempty"`
}

// OrderParams is the host's description of a new order.
type OrderParams struct {
	SymbolID   string           `json:"symbol_id"`
	Side       string           `json:"side"`       // "buy" | "sell"
	OrderType  string           `json:"order_type"` // "market" | "limit"
	Quantity   decimal.Decimal  `json:"quantity"`
	LimitPrice *decimal.Decimal `json:"limit_price,omitempty"`
	PersonaID  string           `json:"persona_id,omitempty"`
}

// SubmitOrderRequest wraps a new order.
type SubmitOrderRequest struct {
	Order OrderParams `json:"order"`
}

// Order is the plugin's view of a submitted order.
type Order struct {
	ID         string            `json:"id"`
	Status     string            `json:"status"`
	Request    OrderParams       `json:"request"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
	Extensions map[string]string `json:"extensions,omitempty"`
}

// SubmitOrderResponse always carries an order. A rejected order also
// carries the classified error.
type SubmitOrderResponse struct {
	Order Order        `json:"order"`
	Error *ErrorObject `json:"error,omitempty"`
}

// CancelOrderRequest names a ledger order to cancel.
type CancelOrderRequest struct {
	OrderID string `json:"order_id"`
}

// CancelOrderResponse reports the ledger state after the cancel.
type CancelOrderResponse struct {
	OrderID string       `json:"order_id"`
	Status  string       `json:"status,omitempty"`
	Message string       `json:"message,omitempty"`
	Error   *ErrorObject `json:"error,omitempty"`
}

// GetOrdersRequest filters the ledger.
type GetOrdersRequest struct {
	Status string `json:"status,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

// LedgerEntry is one ledger row as seen by the host.
type LedgerEntry struct {
	ID        string          `json:"id"`
	SymbolID  string          `json:"symbol_id"`
	Side      string          `json:"side"`
	OrderType string          `json:"order_type"`
	Quantity  int64           `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Status    string          `json:"status"`
	Message   string          `json:"message,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// GetOrdersResponse lists ledger orders, newest first.
type GetOrdersResponse struct {
	Orders []LedgerEntry `json:"orders"`
	Error  *ErrorObject  `json:"error,omitempty"`
}
