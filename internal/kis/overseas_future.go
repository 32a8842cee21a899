package kis

import (
	"time"

	"github.com/shopspring/decimal"

	"kis-gateway/internal/models"
)

// Overseas derivatives trade on the live venue only; every paper key is
// absent from the routing table.
var overseasFutureSchema = assetSchema{
	checkOrder:   checkDerivativeOrder,
	orderBody:    overseasFutureOrderBody,
	amendBody:    overseasFutureAmendBody,
	balanceQuery: overseasFutureBalanceQuery,
	parseBalance: parseOverseasFutureBalance,
	quoteQuery: func(inst models.Instrument) interface{} {
		return overseasFuturePriceParams{Series: inst.Symbol}
	},
	parseQuote: parseOverseasFutureQuote,

	depositQuery: func(cred Credential) interface{} {
		return overseasFutureDepositParams{
			Account:      cred.AccountPrefix(),
			Product:      cred.AccountSuffix(),
			CurrencyDivn: "01",
		}
	},
	parseDeposit:    parseOverseasFutureDeposit,
	executionsQuery: overseasFutureExecutionsQuery,
	parseExecutions: parseOverseasFutureExecutions,
}

type overseasFutureOrder struct {
	Account   string `json:"CANO"`
	Product   string `json:"ACNT_PRDT_CD"`
	Symbol    string `json:"OVRS_FUTR_FX_PDNO"`
	Side      string `json:"SLL_BUY_DVSN_CD"`
	PriceType string `json:"PRIC_DVSN_CD"`
	Quantity  string `json:"ORD_QTY"`
	Price     string `json:"FUOP_LIMT_PRIC"`
}

// A cancel carries neither quantity nor price.
type overseasFutureAmend struct {
	Account      string `json:"CANO"`
	Product      string `json:"ACNT_PRDT_CD"`
	OrigOrderNo  string `json:"ORGN_ODNO"`
	ReviseCancel string `json:"RVSE_CNCL_DVSN_CD"`
	Quantity     string `json:"ORD_QTY,omitempty"`
	Price        string `json:"FUOP_LIMT_PRIC,omitempty"`
}

type overseasFutureBalanceParams struct {
	Account         string `url:"CANO"`
	Product         string `url:"ACNT_PRDT_CD"`
	Symbol          string `url:"OVRS_FUTR_FX_PDNO"`
	ContextFilter   string `url:"CTX_AREA_FK200"`
	ContextNextPage string `url:"CTX_AREA_NK200"`
}

type overseasFutureDepositParams struct {
	Account      string `url:"CANO"`
	Product      string `url:"ACNT_PRDT_CD"`
	Symbol       string `url:"OVRS_FUTR_FX_PDNO"`
	CurrencyDivn string `url:"WCRC_FRCR_DVSN_CD"`
	Country      string `url:"NATN_CD"`
}

type overseasFutureExecutionsParams struct {
	Account         string `url:"CANO"`
	Product         string `url:"ACNT_PRDT_CD"`
	Symbol          string `url:"OVRS_FUTR_FX_PDNO"`
	From            string `url:"STRT_DT"`
	To              string `url:"END_DT"`
	Side            string `url:"SLL_BUY_DVSN_CD"`
	Filled          string `url:"CCLD_NCCS_DVSN_CD"`
	Sort            string `url:"SORT_SQN"`
	ContextFilter   string `url:"CTX_AREA_FK200"`
	ContextNextPage string `url:"CTX_AREA_NK200"`
}

type overseasFuturePriceParams struct {
	Series string `url:"SRS_CD"`
}

func overseasFutureOrderBody(cred Credential, req models.OrderRequest) (interface{}, error) {
	return overseasFutureOrder{
		Account:   cred.AccountPrefix(),
		Product:   cred.AccountSuffix(),
		Symbol:    req.Symbol,
		Side:      sideCode(req.Side),
		PriceType: derivativePriceCode[req.PriceKind],
		Quantity:  qtyString(req.Quantity),
		Price:     derivativePrice(req.PriceKind, req.Price),
	}, nil
}

func overseasFutureAmendBody(cred Credential, a amendment) (interface{}, error) {
	body := overseasFutureAmend{
		Account:      cred.AccountPrefix(),
		Product:      cred.AccountSuffix(),
		OrigOrderNo:  a.ref.OrderID,
		ReviseCancel: a.code(),
	}
	if !a.cancel {
		body.Quantity = qtyString(a.qty)
		body.Price = derivativePrice(a.ref.Kind, a.price)
	}
	return body, nil
}

func overseasFutureBalanceQuery(cred Credential) interface{} {
	return overseasFutureBalanceParams{
		Account: cred.AccountPrefix(),
		Product: cred.AccountSuffix(),
	}
}

func overseasFutureExecutionsQuery(cred Credential, from, to time.Time) interface{} {
	return overseasFutureExecutionsParams{
		Account: cred.AccountPrefix(),
		Product: cred.AccountSuffix(),
		From:    from.Format(dateLayout),
		To:      to.Format(dateLayout),
		Sort:    "DS",
	}
}

type overseasFutureHolding struct {
	Symbol       string `json:"ovrs_futr_fx_pdno"`
	Name         string `json:"ovrs_futr_fx_item_nm"`
	Quantity     amount `json:"unpd_qty"`
	AveragePrice amount `json:"avg_pric"`
	Price        amount `json:"prpr"`
	ProfitLoss   amount `json:"evlu_pfls_amt"`
	ProfitRate   amount `json:"evlu_pfls_rt"`
	Side         string `json:"sll_buy_dvsn_cd"`
	Currency     string `json:"crcy_cd"`
}

// parseOverseasFutureBalance projects the unsettled positions. The venue
// reports no account summary here; DerivativeDeposit provides it.
func parseOverseasFutureBalance(env *Envelope) (*models.Balance, error) {
	var holdings []overseasFutureHolding
	if err := decodeRows(firstPresent(env.Output1, env.Output), &holdings); err != nil {
		return nil, err
	}

	bal := &models.Balance{Positions: make([]models.Position, 0, len(holdings))}
	pl := make([]decimal.Decimal, 0, len(holdings))
	for _, h := range holdings {
		bal.Positions = append(bal.Positions, models.Position{
			Symbol:         h.Symbol,
			Name:           h.Name,
			Side:           sideFromCode(h.Side),
			Quantity:       h.Quantity.dec(),
			AveragePrice:   h.AveragePrice.dec(),
			CurrentPrice:   h.Price.dec(),
			ProfitLoss:     h.ProfitLoss.dec(),
			ProfitLossRate: h.ProfitRate.dec(),
			Currency:       h.Currency,
		})
		pl = append(pl, h.ProfitLoss.dec())
	}

	currency := "USD"
	if len(holdings) > 0 && holdings[0].Currency != "" {
		currency = holdings[0].Currency
	}
	bal.Summary = models.BalanceSummary{Currency: currency, ProfitLoss: sumOf(pl)}
	return bal, nil
}

type overseasFutureDeposit struct {
	Total      amount `json:"tot_dpsit_amt"`
	Orderable  amount `json:"ord_psbl_amt"`
	Margin     amount `json:"mgna_amt"`
	ProfitLoss amount `json:"evlu_pfls_amt"`
	Currency   string `json:"crcy_cd"`
	Foreign    amount `json:"frcr_dpsit_tot_amt"`
}

func parseOverseasFutureDeposit(env *Envelope) (*models.BalanceSummary, error) {
	var d overseasFutureDeposit
	if err := decodeObject(firstPresent(env.Output, env.Output1), &d); err != nil {
		return nil, err
	}
	currency := d.Currency
	if currency == "" {
		currency = "USD"
	}
	return &models.BalanceSummary{
		Currency:      currency,
		TotalEquity:   d.Total.dec(),
		Deposit:       d.Total.dec(),
		BuyingPower:   d.Orderable.dec(),
		AvailableCash: d.Orderable.dec(),
		Margin:        d.Margin.dec(),
		ProfitLoss:    d.ProfitLoss.dec(),
	}, nil
}

type overseasFutureFill struct {
	OrderNo     string `json:"odno"`
	Symbol      string `json:"ovrs_futr_fx_pdno"`
	Side        string `json:"sll_buy_dvsn_cd"`
	OrderQty    amount `json:"ord_qty"`
	FilledQty   amount `json:"ccld_qty"`
	FilledPrice amount `json:"ccld_unpr"`
	Time        string `json:"ccld_tmd"`
}

func parseOverseasFutureExecutions(env *Envelope) ([]models.Execution, error) {
	var fills []overseasFutureFill
	if err := decodeRows(firstPresent(env.Output1, env.Output), &fills); err != nil {
		return nil, err
	}
	out := make([]models.Execution, 0, len(fills))
	for _, f := range fills {
		out = append(out, models.Execution{
			OrderID:     f.OrderNo,
			Symbol:      f.Symbol,
			Side:        sideFromCode(f.Side),
			OrderQty:    f.OrderQty.dec(),
			FilledQty:   f.FilledQty.dec(),
			FilledPrice: f.FilledPrice.dec(),
			OrderTime:   f.Time,
		})
	}
	return out, nil
}

type overseasFuturePrice struct {
	Price      amount `json:"last_price"`
	Change     amount `json:"prev_diff_price"`
	ChangeRate amount `json:"prev_diff_rate"`
	Open       amount `json:"open_price"`
	High       amount `json:"high_price"`
	Low        amount `json:"low_price"`
	Volume     amount `json:"vol"`
	Currency   string `json:"crc_cd"`
}

func parseOverseasFutureQuote(inst models.Instrument, env *Envelope) (*models.Quote, error) {
	var p overseasFuturePrice
	if err := decodeObject(firstPresent(env.Output1, env.Output), &p); err != nil {
		return nil, err
	}
	return &models.Quote{
		Symbol:     inst.Symbol,
		Price:      p.Price.dec(),
		Change:     p.Change.dec(),
		ChangeRate: p.ChangeRate.dec(),
		Open:       p.Open.dec(),
		High:       p.High.dec(),
		Low:        p.Low.dec(),
		Volume:     p.Volume.dec(),
		Currency:   p.Currency,
	}, nil
}
