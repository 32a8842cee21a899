package kis

import (
	"github.com/shopspring/decimal"

	"kis-gateway/internal/errors"
	"kis-gateway/internal/models"
)

var domesticStockSchema = assetSchema{
	checkOrder:   checkDomesticStockOrder,
	orderBody:    domesticStockOrderBody,
	amendBody:    domesticStockAmendBody,
	balanceQuery: domesticStockBalanceQuery,
	parseBalance: parseDomesticStockBalance,
	quoteQuery: func(inst models.Instrument) interface{} {
		return priceQuery{Market: "J", Symbol: inst.Symbol}
	},
	parseQuote: parseDomesticStockQuote,
}

// domesticStockDivision maps a price kind to ORD_DVSN.
var domesticStockDivision = map[models.PriceKind]string{
	models.Limit:            "00",
	models.Market:           "01",
	models.ConditionalLimit: "02",
	models.BestLimit:        "03",
	models.PriorityLimit:    "04",
	models.PreMarketClose:   "05",
	models.AfterMarketClose: "06",
}

type domesticStockOrder struct {
	Account  string `json:"CANO"`
	Product  string `json:"ACNT_PRDT_CD"`
	Symbol   string `json:"PDNO"`
	Division string `json:"ORD_DVSN"`
	Quantity string `json:"ORD_QTY"`
	Price    string `json:"ORD_UNPR"`
}

type domesticStockAmend struct {
	Account       string `json:"CANO"`
	Product       string `json:"ACNT_PRDT_CD"`
	BranchNo      string `json:"KRX_FWDG_ORD_ORGNO"`
	OrigOrderNo   string `json:"ORGN_ODNO"`
	Division      string `json:"ORD_DVSN"`
	ReviseCancel  string `json:"RVSE_CNCL_DVSN_CD"`
	Quantity      string `json:"ORD_QTY"`
	Price         string `json:"ORD_UNPR"`
	AllQuantityYN string `json:"QTY_ALL_ORD_YN"`
}

type domesticStockBalanceParams struct {
	Account         string `url:"CANO"`
	Product         string `url:"ACNT_PRDT_CD"`
	AfterHours      string `url:"AFHR_FLPR_YN"`
	Offline         string `url:"OFL_YN"`
	Inquiry         string `url:"INQR_DVSN"`
	UnitPrice       string `url:"UNPR_DVSN"`
	FundSettlement  string `url:"FUND_STTL_ICLD_YN"`
	AutoRepayment   string `url:"FNCG_AMT_AUTO_RDPT_YN"`
	Process         string `url:"PRCS_DVSN"`
	ContextFilter   string `url:"CTX_AREA_FK100"`
	ContextNextPage string `url:"CTX_AREA_NK100"`
}

// priceQuery is the FID quotation query shared by the domestic markets.
type priceQuery struct {
	Market string `url:"FID_COND_MRKT_DIV_CODE"`
	Symbol string `url:"FID_INPUT_ISCD"`
}

func checkDomesticStockOrder(req models.OrderRequest) error {
	if _, ok := domesticStockDivision[req.PriceKind]; !ok {
		return errors.NewValidationError("price_kind", req.PriceKind, "not offered for domestic equity")
	}
	return checkWholePrice(req.PriceKind, req.Price)
}

// checkWholePrice rejects fractional won prices.
func checkWholePrice(kind models.PriceKind, price decimal.Decimal) error {
	if !kind.IsMarket() && !price.Equal(price.Truncate(0)) {
		return errors.NewValidationError("price", price, "must be a whole number of won")
	}
	return nil
}

func wholePrice(kind models.PriceKind, price decimal.Decimal) string {
	if kind.IsMarket() {
		return "0"
	}
	return price.StringFixed(0)
}

func domesticStockOrderBody(cred Credential, req models.OrderRequest) (interface{}, error) {
	return domesticStockOrder{
		Account:  cred.AccountPrefix(),
		Product:  cred.AccountSuffix(),
		Symbol:   req.Symbol,
		Division: domesticStockDivision[req.PriceKind],
		Quantity: qtyString(req.Quantity),
		Price:    wholePrice(req.PriceKind, req.Price),
	}, nil
}

func domesticStockAmendBody(cred Credential, a amendment) (interface{}, error) {
	division, ok := domesticStockDivision[a.ref.Kind]
	if !ok {
		return nil, errors.NewValidationError("price_kind", a.ref.Kind, "not offered for domestic equity")
	}
	price := "0"
	if !a.cancel {
		if err := checkWholePrice(a.ref.Kind, a.price); err != nil {
			return nil, err
		}
		price = wholePrice(a.ref.Kind, a.price)
	}
	return domesticStockAmend{
		Account:       cred.AccountPrefix(),
		Product:       cred.AccountSuffix(),
		BranchNo:      a.ref.BranchNo,
		OrigOrderNo:   a.ref.OrderID,
		Division:      division,
		ReviseCancel:  a.code(),
		Quantity:      qtyString(a.qty),
		Price:         price,
		AllQuantityYN: "N",
	}, nil
}

func domesticStockBalanceQuery(cred Credential) interface{} {
	return domesticStockBalanceParams{
		Account:        cred.AccountPrefix(),
		Product:        cred.AccountSuffix(),
		AfterHours:     "N",
		Inquiry:        "02",
		UnitPrice:      "01",
		FundSettlement: "N",
		AutoRepayment:  "N",
		Process:        "00",
	}
}

type domesticStockHolding struct {
	Symbol       string `json:"pdno"`
	Name         string `json:"prdt_name"`
	Quantity     amount `json:"hldg_qty"`
	AveragePrice amount `json:"pchs_avg_pric"`
	Purchase     amount `json:"pchs_amt"`
	Price        amount `json:"prpr"`
	Value        amount `json:"evlu_amt"`
	ProfitLoss   amount `json:"evlu_pfls_amt"`
	ProfitRate   amount `json:"evlu_pfls_rt"`
}

type domesticStockSummary struct {
	TotalEquity   amount  `json:"tot_evlu_amt"`
	Deposit       amount  `json:"dnca_tot_amt"`
	AvailableCash *amount `json:"ord_psbl_cash"`
	ProfitLoss    amount  `json:"evlu_pfls_smtl_amt"`
	Purchase      amount  `json:"pchs_amt_smtl_amt"`
}

func parseDomesticStockBalance(env *Envelope) (*models.Balance, error) {
	var holdings []domesticStockHolding
	if err := decodeRows(env.Output1, &holdings); err != nil {
		return nil, err
	}
	var sum domesticStockSummary
	if err := decodeObject(env.Output2, &sum); err != nil {
		return nil, err
	}

	bal := &models.Balance{Positions: make([]models.Position, 0, len(holdings))}
	for _, h := range holdings {
		bal.Positions = append(bal.Positions, models.Position{
			Symbol:         h.Symbol,
			Name:           h.Name,
			Quantity:       h.Quantity.dec(),
			AveragePrice:   h.AveragePrice.dec(),
			CurrentPrice:   h.Price.dec(),
			PurchaseAmount: h.Purchase.dec(),
			MarketValue:    h.Value.dec(),
			ProfitLoss:     h.ProfitLoss.dec(),
			ProfitLossRate: h.ProfitRate.dec(),
			Currency:       "KRW",
		})
	}

	available := sum.Deposit.dec()
	if sum.AvailableCash != nil {
		available = sum.AvailableCash.dec()
	}
	bal.Summary = models.BalanceSummary{
		Currency:       "KRW",
		TotalEquity:    sum.TotalEquity.dec(),
		BuyingPower:    sum.Deposit.dec(),
		AvailableCash:  available,
		Deposit:        sum.Deposit.dec(),
		PurchaseAmount: sum.Purchase.dec(),
		ProfitLoss:     sum.ProfitLoss.dec(),
	}
	return bal, nil
}

type domesticStockPrice struct {
	Price      amount `json:"stck_prpr"`
	Change     amount `json:"prdy_vrss"`
	ChangeRate amount `json:"prdy_ctrt"`
	Open       amount `json:"stck_oprc"`
	High       amount `json:"stck_hgpr"`
	Low        amount `json:"stck_lwpr"`
	Volume     amount `json:"acml_vol"`
	Value      amount `json:"acml_tr_pbmn"`
}

func parseDomesticStockQuote(inst models.Instrument, env *Envelope) (*models.Quote, error) {
	var p domesticStockPrice
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
		Currency:    "KRW",
	}, nil
}
