// Package routing maps (asset class, action, environment, exchange) keys to
// the venue's HTTP method, path and transaction code.
package routing

import (
	"fmt"

	"kis-gateway/internal/errors"
	"kis-gateway/internal/models"
)

// Action is an operation within an asset class.
type Action string

const (
	BuyNew        Action = "buy_new"
	SellNew       Action = "sell_new"
	LiquidateBuy  Action = "liquidate_buy"
	LiquidateSell Action = "liquidate_sell"
	Revise        Action = "revise"
	Cancel        Action = "cancel"
	Balance       Action = "balance"
	Quote         Action = "quote"
	Deposit       Action = "deposit"
	Executions    Action = "executions"
	OrderBook     Action = "order_book"
)

// Actions returns every action the table knows about.
func Actions() []Action {
	return []Action{BuyNew, SellNew, LiquidateBuy, LiquidateSell, Revise, Cancel, Balance, Quote, Deposit, Executions, OrderBook}
}

// Mutating reports whether the action changes venue state and so needs a hashkey.
func (a Action) Mutating() bool {
	switch a {
	case BuyNew, SellNew, LiquidateBuy, LiquidateSell, Revise, Cancel:
		return true
	}
	return false
}

// ParseAction parses an action name.
func ParseAction(s string) (Action, error) {
	for _, a := range Actions() {
		if string(a) == s {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown action %q", s)
}

// Key is a routing lookup key.
type Key struct {
	AssetClass  models.AssetClass
	Action      Action
	Environment models.Environment
	Exchange    models.Exchange
}

func (k Key) String() string {
	if k.Exchange != "" {
		return fmt.Sprintf("%s/%s/%s/%s", k.AssetClass, k.Action, k.Environment, k.Exchange)
	}
	return fmt.Sprintf("%s/%s/%s", k.AssetClass, k.Action, k.Environment)
}

// exchangeScoped reports whether the exchange participates in the lookup.
func (k Key) exchangeScoped() bool {
	if k.AssetClass != models.OverseasEquity {
		return false
	}
	switch k.Action {
	case BuyNew, SellNew, Revise, Cancel:
		return true
	}
	return false
}

func (k Key) normalize() Key {
	if !k.exchangeScoped() {
		k.Exchange = ""
	}
	return k
}

// Descriptor is the resolved endpoint for a key.
type Descriptor struct {
	Method          string
	Path            string
	TransactionCode string
}

// Entry is one resolvable row of the table.
type Entry struct {
	Key        Key
	Descriptor Descriptor
}

// Resolve returns the descriptor for key. A key without a table entry, such
// as any Paper key for overseas derivatives, is a ConfigError; there is no
// fallback to the Live family.
func Resolve(key Key) (Descriptor, error) {
	if !key.AssetClass.Valid() {
		return Descriptor{}, errors.NewConfigError(errors.ConfigUnknownInstrumentClass, key.String())
	}
	d, ok := index[key.normalize()]
	if !ok {
		return Descriptor{}, errors.NewConfigError(errors.ConfigUnsupportedInEnvironment, key.String())
	}
	return d, nil
}

// Entries returns every resolvable key in table order.
func Entries() []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

var entries, index = build(rows)

func build(rs []row) ([]Entry, map[Key]Descriptor) {
	var es []Entry
	idx := make(map[Key]Descriptor, len(rs)*2)
	add := func(k Key, d Descriptor) {
		if _, dup := idx[k]; dup {
			panic("routing: duplicate key " + k.String())
		}
		idx[k] = d
		es = append(es, Entry{Key: k, Descriptor: d})
	}
	for _, r := range rs {
		for _, action := range r.actions {
			k := Key{AssetClass: r.class, Action: action, Exchange: r.exchange}
			if r.live != "" {
				k.Environment = models.Live
				add(k, Descriptor{Method: r.method, Path: r.path, TransactionCode: r.live})
			}
			if r.paper != "" {
				k.Environment = models.Paper
				add(k, Descriptor{Method: r.method, Path: r.path, TransactionCode: r.paper})
			}
		}
	}
	return es, idx
}
