package kis

import (
	"time"

	"github.com/shopspring/decimal"

	"kis-gateway/internal/errors"
	"kis-gateway/internal/models"
)

var domesticFutureSchema = assetSchema{
	checkOrder:   checkDerivativeOrder,
	orderBody:    domesticFutureOrderBody,
	amendBody:    domesticFutureAmendBody,
	balanceQuery: domesticFutureBalanceQuery,
	parseBalance: parseDomesticFutureBalance,
	quoteQuery: func(inst models.Instrument) interface{} {
		return priceQuery{Market: "F", Symbol: inst.Symbol}
	},
	parseQuote: parseDomesticFutureQuote,

	depositQuery: func(cred Credential) interface{} {
		return domesticFutureDepositParams{
			Account:  cred.AccountPrefix(),
			Product:  cred.AccountSuffix(),
			Inquiry1: "00",
			Inquiry2: "00",
		}
	},
	parseDeposit:    parseDomesticFutureDeposit,
	executionsQuery: domesticFutureExecutionsQuery,
	parseExecutions: parseDomesticFutureExecutions,
}

// derivativePriceCode maps a price kind to the futures price type code.
var derivativePriceCode = map[models.PriceKind]string{
	models.Limit:  "1",
	models.Market: "2",
}

func checkDerivativeOrder(req models.OrderRequest) error {
	if _, ok := derivativePriceCode[req.PriceKind]; !ok {
		return errors.NewValidationError("price_kind", req.PriceKind, "derivatives take limit or market orders")
	}
	return nil
}

// sideCode is SLL_BUY_DVSN_CD: 01 sell, 02 buy.
func sideCode(s models.Side) string {
	if s == models.Sell {
		return "01"
	}
	return "02"
}

func sideFromCode(code string) models.Side {
	switch code {
	case "01":
		return models.Sell
	case "02":
		return models.Buy
	}
	return ""
}

func derivativePrice(kind models.PriceKind, price decimal.Decimal) string {
	if kind.IsMarket() {
		return "0"
	}
	return price.String()
}

const dateLayout = "20060102"

type domesticFutureOrder struct {
	Account   string `json:"CANO"`
	Product   string `json:"ACNT_PRDT_CD"`
	Symbol    string `json:"PDNO"`
	Side      string `json:"SLL_BUY_DVSN_CD"`
	Quantity  string `json:"ORD_QTY"`
	Price     string `json:"UNIT_PRICE"`
	PriceType string `json:"NMPR_TYPE_CD"`
}

type domesticFutureAmend struct {
	Account      string `json:"CANO"`
	Product      string `json:"ACNT_PRDT_CD"`
	OrigOrderNo  string `json:"ORGN_ORD_NO"`
	ReviseCancel string `json:"RVSE_CNCL_DVSN_CD"`
	Quantity     string `json:"ORD_QTY"`
	Price        string `json:"UNIT_PRICE"`
}

type domesticFutureBalanceParams struct {
	Account         string `url:"CANO"`
	Product         string `url:"ACNT_PRDT_CD"`
	AfterHours      string `url:"AFHR_FLPR_YN"`
	Inquiry         string `url:"INQR_DVSN"`
	UnitPrice       string `url:"UNPR_DVSN"`
	FundSettlement  string `url:"FUND_STTL_ICLD_YN"`
	AutoRepayment   string `url:"FNCG_AMT_AUTO_RDPT_YN"`
	Offline         string `url:"OFL_YN"`
	ContextFilter   string `url:"CTX_AREA_FK100"`
	ContextNextPage string `url:"CTX_AREA_NK100"`
}

type domesticFutureDepositParams struct {
	Account  string `url:"CANO"`
	Product  string `url:"ACNT_PRDT_CD"`
	Inquiry1 string `url:"INQR_DVSN_1"`
	Inquiry2 string `url:"INQR_DVSN_2"`
}

type domesticFutureExecutionsParams struct {
	Account         string `url:"CANO"`
	Product         string `url:"ACNT_PRDT_CD"`
	From            string `url:"INQR_STRT_DT"`
	To              string `url:"INQR_END_DT"`
	Side            string `url:"SLL_BUY_DVSN_CD"`
	Inquiry         string `url:"INQR_DVSN"`
	Symbol          string `url:"PDNO"`
	Filled          string `url:"CCLD_DVSN"`
	Branch          string `url:"ORD_GNO_BRNO"`
	OrderNo         string `url:"ODNO"`
	Inquiry3        string `url:"INQR_DVSN_3"`
	Inquiry1        string `url:"INQR_DVSN_1"`
	ContextFilter   string `url:"CTX_AREA_FK100"`
	ContextNextPage string `url:"CTX_AREA_NK100"`
}

func domesticFutureOrderBody(cred Credential, req models.OrderRequest) (interface{}, error) {
	return domesticFutureOrder{
		Account:   cred.AccountPrefix(),
		Product:   cred.AccountSuffix(),
		Symbol:    req.Symbol,
		Side:      sideCode(req.Side),
		Quantity:  qtyString(req.Quantity),
		Price:     derivativePrice(req.PriceKind, req.Price),
		PriceType: derivativePriceCode[req.PriceKind],
	}, nil
}

func domesticFutureAmendBody(cred Credential, a amendment) (interface{}, error) {
	price := "0"
	if !a.cancel {
		price = derivativePrice(a.ref.Kind, a.price)
	}
	return domesticFutureAmend{
		Account:      cred.AccountPrefix(),
		Product:      cred.AccountSuffix(),
		OrigOrderNo:  a.ref.OrderID,
		ReviseCancel: a.code(),
		Quantity:     qtyString(a.qty),
		Price:        price,
	}, nil
}

func domesticFutureBalanceQuery(cred Credential) interface{} {
	return domesticFutureBalanceParams{
		Account:        cred.AccountPrefix(),
		Product:        cred.AccountSuffix(),
		AfterHours:     "N",
		Inquiry:        "00",
		UnitPrice:      "01",
		FundSettlement: "N",
		AutoRepayment:  "N",
		Offline:        "N",
	}
}

func domesticFutureExecutionsQuery(cred Credential, from, to time.Time) interface{} {
	return domesticFutureExecutionsParams{
		Account:  cred.AccountPrefix(),
		Product:  cred.AccountSuffix(),
		From:     from.Format(dateLayout),
		To:       to.Format(dateLayout),
		Side:     "00",
		Inquiry:  "00",
		Filled:   "00",
		Inquiry3: "00",
	}
}

type domesticFutureHolding struct {
	Symbol       string `json:"pdno"`
	Name         string `json:"prdt_name"`
	Side         string `json:"sll_buy_dvsn_cd"`
	Quantity     amount `json:"cblc_qty"`
	AveragePrice amount `json:"avg_unpr"`
	Price        amount `json:"prpr"`
	ProfitLoss   amount `json:"evlu_pfls_amt"`
	ProfitRate   amount `json:"pfls_rt"`
}

type domesticFutureSummary struct {
	Deposit     amount `json:"dnca_tot_amt"`
	BuyingPower amount `json:"ord_psbl_amt"`
	Margin      amount `json:"mgna_amt"`
	TotalEquity amount `json:"prsm_dpast"`
}

func parseDomesticFutureBalance(env *Envelope) (*models.Balance, error) {
	var holdings []domesticFutureHolding
	if err := decodeRows(env.Output1, &holdings); err != nil {
		return nil, err
	}
	var sum domesticFutureSummary
	if err := decodeObject(env.Output2, &sum); err != nil {
		return nil, err
	}

	bal := &models.Balance{Positions: make([]models.Position, 0, len(holdings))}
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
			Currency:       "KRW",
		})
	}
	bal.Summary = models.BalanceSummary{
		Currency:      "KRW",
		TotalEquity:   sum.TotalEquity.dec(),
		BuyingPower:   sum.BuyingPower.dec(),
		AvailableCash: sum.BuyingPower.dec(),
		Deposit:       sum.Deposit.dec(),
		Margin:        sum.Margin.dec(),
	}
	return bal, nil
}

type domesticFutureDeposit struct {
	Deposit      amount `json:"dnca_tot_amt"`
	Margin       amount `json:"mgna_amt"`
	MarginRate   amount `json:"mgna_rt"`
	Orderable    amount `json:"ord_psbl_amt"`
	Withdrawable amount `json:"wdrw_psbl_amt"`
}

func parseDomesticFutureDeposit(env *Envelope) (*models.BalanceSummary, error) {
	var d domesticFutureDeposit
	if err := decodeObject(firstPresent(env.Output, env.Output1), &d); err != nil {
		return nil, err
	}
	return &models.BalanceSummary{
		Currency:      "KRW",
		Deposit:       d.Deposit.dec(),
		Margin:        d.Margin.dec(),
		BuyingPower:   d.Orderable.dec(),
		AvailableCash: d.Orderable.dec(),
		Withdrawable:  d.Withdrawable.dec(),
	}, nil
}

type domesticFutureFill struct {
	OrderNo     string `json:"ord_no"`
	Symbol      string `json:"pdno"`
	Side        string `json:"sll_buy_dvsn_cd"`
	OrderQty    amount `json:"ord_qty"`
	FilledQty   amount `json:"ccld_qty"`
	OrderPrice  amount `json:"ord_unpr"`
	FilledPrice amount `json:"ccld_unpr"`
	Time        string `json:"ccld_tmd"`
}

func parseDomesticFutureExecutions(env *Envelope) ([]models.Execution, error) {
	var fills []domesticFutureFill
	if err := decodeRows(env.Output1, &fills); err != nil {
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
			OrderPrice:  f.OrderPrice.dec(),
			FilledPrice: f.FilledPrice.dec(),
			OrderTime:   f.Time,
		})
	}
	return out, nil
}

type domesticFuturePrice struct {
	Price      amount `json:"futs_prpr"`
	Change     amount `json:"futs_prdy_vrss"`
	ChangeRate amount `json:"futs_prdy_ctrt"`
	Open       amount `json:"futs_oprc"`
	High       amount `json:"futs_hgpr"`
	Low        amount `json:"futs_lwpr"`
	Volume     amount `json:"acml_vol"`
	Value      amount `json:"acml_tr_pbmn"`
	Name       string `json:"hts_kor_isnm"`
}

func parseDomesticFutureQuote(inst models.Instrument, env *Envelope) (*models.Quote, error) {
	var p domesticFuturePrice
	if err := decodeObject(firstPresent(env.Output1, env.Output), &p); err != nil {
		return nil, err
	}
	return &models.Quote{
		Symbol:      inst.Symbol,
		Name:        p.Name,
		Price:       p.Price.dec(),
		Change:      p.Change.dec(),
		ChangeRate:  p.ChangeRate.dec(),
		Open:        p.Open.dec(),
		High:        p.High.dec(),
		Low:         p.Low.dec(),
		Volume:      p.Volume.dec(),
		TradedValue: p.Value.dec(),
		Currency:    "KRW",
	}, nil
}
