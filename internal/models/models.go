// Package models provides domain models for the gateway.
package models

import (
	"fmt"
	"strings"
)

// AssetClass identifies one of the venue's product families.
type AssetClass string

const (
	DomesticEquity     AssetClass = "domestic_equity"
	OverseasEquity     AssetClass = "overseas_equity"
	DomesticDerivative AssetClass = "domestic_derivative"
	OverseasDerivative AssetClass = "overseas_derivative"
	Bond               AssetClass = "bond"
)

// AssetClasses returns every supported asset class in routing-table order.
func AssetClasses() []AssetClass {
	return []AssetClass{DomesticEquity, OverseasEquity, DomesticDerivative, OverseasDerivative, Bond}
}

// Valid reports whether a is a known asset class.
func (a AssetClass) Valid() bool {
	switch a {
	case DomesticEquity, OverseasEquity, DomesticDerivative, OverseasDerivative, Bond:
		return true
	}
	return false
}

// IsDerivative reports whether positions of this class carry an open/close effect.
func (a AssetClass) IsDerivative() bool {
	return a == DomesticDerivative || a == OverseasDerivative
}

// ParseAssetClass accepts the canonical names plus dashed forms and short aliases.
func ParseAssetClass(s string) (AssetClass, error) {
	norm := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	switch norm {
	case "domestic_equity", "domestic_stock", "kr":
		return DomesticEquity, nil
	case "overseas_equity", "overseas_stock", "us":
		return OverseasEquity, nil
	case "domestic_derivative", "domestic_future", "kr_futures":
		return DomesticDerivative, nil
	case "overseas_derivative", "overseas_future":
		return OverseasDerivative, nil
	case "bond", "bonds":
		return Bond, nil
	}
	return "", fmt.Errorf("unknown asset class %q", s)
}

// Environment selects between the real-money and simulated venues.
type Environment string

const (
	Live  Environment = "live"
	Paper Environment = "paper"
)

// Valid reports whether e is Live or Paper.
func (e Environment) Valid() bool {
	return e == Live || e == Paper
}

// ParseEnvironment parses "live"/"real" and "paper"/"mock"/"vts".
func ParseEnvironment(s string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "live", "real", "prod":
		return Live, nil
	case "paper", "mock", "vts":
		return Paper, nil
	}
	return "", fmt.Errorf("invalid environment %q (must be 'live' or 'paper')", s)
}

// Exchange is an overseas exchange code as used by the venue's order API.
type Exchange string

const (
	NASD Exchange = "NASD"
	NYSE Exchange = "NYSE"
	AMEX Exchange = "AMEX"
	SEHK Exchange = "SEHK" // Hong Kong
	SHAA Exchange = "SHAA" // Shanghai A
	SZAA Exchange = "SZAA" // Shenzhen A
	TKSE Exchange = "TKSE" // Tokyo
	HASE Exchange = "HASE" // Hanoi
	VNSE Exchange = "VNSE" // Ho Chi Minh
)

// Exchanges returns every supported overseas exchange.
func Exchanges() []Exchange {
	return []Exchange{NASD, NYSE, AMEX, SEHK, SHAA, SZAA, TKSE, HASE, VNSE}
}

// Valid reports whether x is a supported exchange.
func (x Exchange) Valid() bool {
	for _, e := range Exchanges() {
		if e == x {
			return true
		}
	}
	return false
}

// IsUS reports whether x is one of the US exchanges.
func (x Exchange) IsUS() bool {
	return x == NASD || x == NYSE || x == AMEX
}

// QuoteCode returns the three-letter code the quotation API expects.
func (x Exchange) QuoteCode() string {
	switch x {
	case NASD:
		return "NAS"
	case NYSE:
		return "NYS"
	case AMEX:
		return "AMS"
	case SEHK:
		return "HKS"
	case SHAA:
		return "SHS"
	case SZAA:
		return "SZS"
	case TKSE:
		return "TSE"
	case HASE:
		return "HNX"
	case VNSE:
		return "HSX"
	}
	return string(x)
}

// Currency returns the settlement currency of x.
func (x Exchange) Currency() string {
	switch x {
	case NASD, NYSE, AMEX:
		return "USD"
	case SEHK:
		return "HKD"
	case SHAA, SZAA:
		return "CNY"
	case TKSE:
		return "JPY"
	case HASE, VNSE:
		return "VND"
	}
	return ""
}

// Side is the direction of an order.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// PositionEffect distinguishes opening from liquidating derivative orders.
type PositionEffect string

const (
	Open  PositionEffect = "open"
	Close PositionEffect = "close"
)

// PriceKind is how an order's price is interpreted.
type PriceKind string

const (
	Limit            PriceKind = "limit"
	Market           PriceKind = "market"
	ConditionalLimit PriceKind = "conditional_limit"
	BestLimit        PriceKind = "best_limit"
	PriorityLimit    PriceKind = "priority_limit"
	PreMarketClose   PriceKind = "pre_market_close"
	AfterMarketClose PriceKind = "after_market_close"
	MarketOnOpen     PriceKind = "market_on_open"
	LimitOnOpen      PriceKind = "limit_on_open"
	MarketOnClose    PriceKind = "market_on_close"
	LimitOnClose     PriceKind = "limit_on_close"
)

// IsMarket reports whether the venue ignores the price for this kind.
func (k PriceKind) IsMarket() bool {
	switch k {
	case Market, BestLimit, PriorityLimit, PreMarketClose, AfterMarketClose, MarketOnOpen, MarketOnClose:
		return true
	}
	return false
}
