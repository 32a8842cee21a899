package kis

import (
	"strings"

	"github.com/shopspring/decimal"

	"kis-gateway/internal/errors"
	"kis-gateway/internal/models"
)

var overseasStockSchema = assetSchema{
	exchangeRequired: true,
	checkOrder: func(req models.OrderRequest) error {
		_, err := overseasDivision(req.Exchange, req.PriceKind)
		return err
	},
	orderBody:    overseasStockOrderBody,
	amendBody:    overseasStockAmendBody,
	balanceQuery: overseasStockBalanceQuery,
	parseBalance: parseOverseasStockBalance,
	quoteQuery: func(inst models.Instrument) interface{} {
		return overseasPriceParams{Exchange: inst.Exchange.QuoteCode(), Symbol: inst.Symbol}
	},
	parseQuote: parseOverseasStockQuote,
}

// US exchanges accept auction order types; the others take limit orders only.
var usDivision = map[models.PriceKind]string{
	models.Limit:         "00",
	models.MarketOnOpen:  "31",
	models.LimitOnOpen:   "32",
	models.MarketOnClose: "33",
	models.LimitOnClose:  "34",
}

func overseasDivision(x models.Exchange, kind models.PriceKind) (string, error) {
	if x.IsUS() {
		if d, ok := usDivision[kind]; ok {
			return d, nil
		}
	} else if kind == models.Limit {
		return "00", nil
	}
	return "", errors.NewValidationError("price_kind", kind, "not offered on "+string(x))
}

func overseasPrice(kind models.PriceKind, price decimal.Decimal) string {
	if kind.IsMarket() {
		return "0"
	}
	return price.StringFixed(2)
}

type overseasStockOrder struct {
	Account   string `json:"CANO"`
	Product   string `json:"ACNT_PRDT_CD"`
	Exchange  string `json:"OVRS_EXCG_CD"`
	Symbol    string `json:"PDNO"`
	Quantity  string `json:"ORD_QTY"`
	Price     string `json:"OVRS_ORD_UNPR"`
	SellType  string `json:"SLL_TYPE,omitempty"`
	ServerDiv string `json:"ORD_SVR_DVSN_CD"`
	Division  string `json:"ORD_DVSN"`
}

type overseasStockAmend struct {
	Account      string `json:"CANO"`
	Product      string `json:"ACNT_PRDT_CD"`
	Exchange     string `json:"OVRS_EXCG_CD"`
	Symbol       string `json:"PDNO"`
	OrigOrderNo  string `json:"ORGN_ODNO"`
	ReviseCancel string `json:"RVSE_CNCL_DVSN_CD"`
	Quantity     string `json:"ORD_QTY"`
	Price        string `json:"OVRS_ORD_UNPR"`
	ServerDiv    string `json:"ORD_SVR_DVSN_CD"`
}

type overseasStockBalanceParams struct {
	Account         string `url:"CANO"`
	Product         string `url:"ACNT_PRDT_CD"`
	Exchange        string `url:"OVRS_EXCG_CD"`
	Currency        string `url:"TR_CRCY_CD"`
	ContextFilter   string `url:"CTX_AREA_FK200"`
	ContextNextPage string `url:"CTX_AREA_NK200"`
}

type overseasPriceParams struct {
	Auth     string `url:"AUTH"`
	Exchange string `url:"EXCD"`
	Symbol   string `url:"SYMB"`
}

func overseasStockOrderBody(cred Credential, req models.OrderRequest) (interface{}, error) {
	division, err := overseasDivision(req.Exchange, req.PriceKind)
	if err != nil {
		return nil, err
	}
	body := overseasStockOrder{
		Account:   cred.AccountPrefix(),
		Product:   cred.AccountSuffix(),
		Exchange:  string(req.Exchange),
		Symbol:    req.Symbol,
		Quantity:  qtyString(req.Quantity),
		Price:     overseasPrice(req.PriceKind, req.Price),
		ServerDiv: "0",
		Division:  division,
	}
	if req.Side == models.Sell {
		body.SellType = "00"
	}
	return body, nil
}

func overseasStockAmendBody(cred Credential, a amendment) (interface{}, error) {
	if strings.TrimSpace(a.ref.Symbol) == "" {
		return nil, errors.NewValidationError("symbol", a.ref.Symbol, "required to amend an overseas order")
	}
	price := "0"
	if !a.cancel {
		price = overseasPrice(a.ref.Kind, a.price)
	}
	return overseasStockAmend{
		Account:      cred.AccountPrefix(),
		Product:      cred.AccountSuffix(),
		Exchange:     string(a.ref.Exchange),
		Symbol:       a.ref.Symbol,
		OrigOrderNo:  a.ref.OrderID,
		ReviseCancel: a.code(),
		Quantity:     qtyString(a.qty),
		Price:        price,
		ServerDiv:    "0",
	}, nil
}

func overseasStockBalanceQuery(cred Credential) interface{} {
	return overseasStockBalanceParams{
		Account: cred.AccountPrefix(),
		Product: cred.AccountSuffix(),
	}
}

type overseasStockHolding struct {
	Symbol       string `json:"ovrs_pdno"`
	Name         string `json:"ovrs_item_name"`
	Quantity     amount `json:"ovrs_cblc_qty"`
	AveragePrice amount `json:"pchs_avg_pric"`
	Price        amount `json:"now_pric2"`
	Purchase     amount `json:"frcr_pchs_amt1"`
	ProfitLoss   amount `json:"frcr_evlu_pfls_amt"`
	ProfitRate   amount `json:"evlu_pfls_rt"`
	Value        amount `json:"ovrs_stck_evlu_amt"`
	Exchange     string `json:"ovrs_excg_cd"`
	Currency     string `json:"tr_crcy_cd"`
}

type overseasStockSummary struct {
	Purchase   amount `json:"frcr_pchs_amt1"`
	ProfitLoss amount `json:"tot_evlu_pfls_amt"`
}

func parseOverseasStockBalance(env *Envelope) (*models.Balance, error) {
	var holdings []overseasStockHolding
	if err := decodeRows(env.Output1, &holdings); err != nil {
		return nil, err
	}
	var sum overseasStockSummary
	if err := decodeObject(env.Output2, &sum); err != nil {
		return nil, err
	}

	bal := &models.Balance{Positions: make([]models.Position, 0, len(holdings))}
	values := make([]decimal.Decimal, 0, len(holdings))
	for _, h := range holdings {
		bal.Positions = append(bal.Positions, models.Position{
			Symbol:         h.Symbol,
			Name:           h.Name,
			Exchange:       h.Exchange,
			Quantity:       h.Quantity.dec(),
			AveragePrice:   h.AveragePrice.dec(),
			CurrentPrice:   h.Price.dec(),
			PurchaseAmount: h.Purchase.dec(),
			MarketValue:    h.Value.dec(),
			ProfitLoss:     h.ProfitLoss.dec(),
			ProfitLossRate: h.ProfitRate.dec(),
			Currency:       h.Currency,
		})
		values = append(values, h.Value.dec())
	}

	currency := "USD"
	if len(holdings) > 0 && holdings[0].Currency != "" {
		currency = holdings[0].Currency
	}
	bal.Summary = models.BalanceSummary{
		Currency:       currency,
		TotalEquity:    sumOf(values),
		PurchaseAmount: sum.Purchase.dec(),
		ProfitLoss:     sum.ProfitLoss.dec(),
	}
	return bal, nil
}

type overseasStockPrice struct {
	Price      amount `json:"last"`
	Change     amount `json:"diff"`
	ChangeRate amount `json:"rate"`
	Open       amount `json:"open"`
	High       amount `json:"high"`
	Low        amount `json:"low"`
	Volume     amount `json:"tvol"`
	Value      amount `json:"tamt"`
}

func parseOverseasStockQuote(inst models.Instrument, env *Envelope) (*models.Quote, error) {
	var p overseasStockPrice
	if err := decodeObject(env.Output, &p); err != nil {
		return nil, err
	}
	return &models.Quote{
		Symbol:      inst.Symbol,
		Price:       p.Price.dec(),
		Change:      p.Change.dec(),
		ChangeRate:  p.ChangeRate.dec(),
		Open:        p.Open.dec(),
		High:        p.High.dec(),
		Low:         p.Low.dec(),
		Volume:      p.Volume.dec(),
		TradedValue: p.Value.dec(),
		Currency:    inst.Exchange.Currency(),
	}, nil
}
