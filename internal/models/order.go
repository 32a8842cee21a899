package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderRequest is a new order for any asset class. Exchange is required for
// overseas equity, Effect only matters for derivatives, and for bonds the
// Symbol is the bond serial number.
type OrderRequest struct {
	AssetClass AssetClass
	AccountID  string // optional; must match the client's credential when set
	Symbol     string
	Side       Side
	Quantity   int64
	Price      decimal.Decimal
	PriceKind  PriceKind
	Exchange   Exchange
	Effect     PositionEffect
}

// OrderRef identifies a previously placed order for revision or cancellation.
type OrderRef struct {
	OrderID  string
	BranchNo string // KRX_FWDG_ORD_ORGNO, returned by the original confirmation
	Symbol   string
	Exchange Exchange
	Kind     PriceKind
}

// Confirmation is the venue's acknowledgement of an order, revision or cancel.
type Confirmation struct {
	OrderID         string
	BranchNo        string
	OrderTime       string
	Message         string
	TransactionCode string
	AssetClass      AssetClass
	Environment     Environment
}

// Position is one holding line of a balance inquiry.
type Position struct {
	Symbol         string
	Name           string
	Exchange       string
	Side           Side // derivatives only
	Quantity       decimal.Decimal
	AveragePrice   decimal.Decimal
	CurrentPrice   decimal.Decimal
	PurchaseAmount decimal.Decimal
	MarketValue    decimal.Decimal
	ProfitLoss     decimal.Decimal
	ProfitLossRate decimal.Decimal
	Currency       string
	Maturity       string // bonds only
}

// BalanceSummary is the account-level part of a balance inquiry.
type BalanceSummary struct {
	Currency       string
	TotalEquity    decimal.Decimal
	BuyingPower    decimal.Decimal
	AvailableCash  decimal.Decimal
	Deposit        decimal.Decimal
	Margin         decimal.Decimal
	PurchaseAmount decimal.Decimal
	ProfitLoss     decimal.Decimal
	Withdrawable   decimal.Decimal
}

// Balance pairs positions with their summary. Positions may be empty.
type Balance struct {
	AssetClass AssetClass
	Positions  []Position
	Summary    BalanceSummary
}

// Instrument identifies what to quote. Exchange is only used for overseas equity.
type Instrument struct {
	Symbol   string
	Exchange Exchange
}

// Quote is a current-price snapshot.
type Quote struct {
	Symbol      string
	Name        string
	Price       decimal.Decimal
	Change      decimal.Decimal
	ChangeRate  decimal.Decimal
	Open        decimal.Decimal
	High        decimal.Decimal
	Low         decimal.Decimal
	Volume      decimal.Decimal
	TradedValue decimal.Decimal
	CouponRate  decimal.Decimal // bonds only
	Currency    string
}

// BookLevel is one price level of an order book.
type BookLevel struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// OrderBook holds up to five ask and bid levels, best first.
type OrderBook struct {
	Symbol string
	Asks   []BookLevel
	Bids   []BookLevel
}

// Execution is one line of a derivative execution history.
type Execution struct {
	OrderID     string
	Symbol      string
	Side        Side
	OrderQty    decimal.Decimal
	FilledQty   decimal.Decimal
	OrderPrice  decimal.Decimal
	FilledPrice decimal.Decimal
	OrderTime   string
}

// LedgerOrder is an order recorded by the local order ledger.
type LedgerOrder struct {
	ID              string
	BranchNo        string
	AssetClass      AssetClass
	Environment     Environment
	Exchange        Exchange
	Symbol          string
	Side            Side
	Kind            PriceKind
	Quantity        int64
	Price           decimal.Decimal
	Status          string
	TransactionCode string
	Message         string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Ref returns the reference needed to revise or cancel the order.
func (o *LedgerOrder) Ref() OrderRef {
	return OrderRef{
		OrderID:  o.ID,
		BranchNo: o.BranchNo,
		Symbol:   o.Symbol,
		Exchange: o.Exchange,
		Kind:     o.Kind,
	}
}

// Ledger order statuses.
const (
	StatusSubmitted = "submitted"
	StatusRejected  = "rejected"
	StatusRevised   = "revised"
	StatusCancelled = "cancelled"
)
