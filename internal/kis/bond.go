package kis

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"kis-gateway/internal/errors"
	"kis-gateway/internal/models"
)

// For bonds the order symbol is the bond serial number (BOND_SRNO).
var bondSchema = assetSchema{
	checkOrder: func(req models.OrderRequest) error {
		if req.PriceKind != models.Limit {
			return errors.NewValidationError("price_kind", req.PriceKind, "bonds take limit orders only")
		}
		return nil
	},
	orderBody:    bondOrderBody,
	amendBody:    bondAmendBody,
	balanceQuery: bondBalanceQuery,
	parseBalance: parseBondBalance,
	quoteQuery: func(inst models.Instrument) interface{} {
		return bondSerialParams{Serial: inst.Symbol}
	},
	parseQuote: parseBondQuote,
}

type bondOrder struct {
	Account  string `json:"CANO"`
	Product  string `json:"ACNT_PRDT_CD"`
	Serial   string `json:"BOND_SRNO"`
	Quantity string `json:"ORD_QTY"`
	Price    string `json:"ORD_PRIC"`
}

type bondAmend struct {
	Account     string `json:"CANO"`
	Product     string `json:"ACNT_PRDT_CD"`
	BranchNo    string `json:"KRX_FWDG_ORD_ORGNO"`
	OrigOrderNo string `json:"ORGN_ODNO"`
	Division    string `json:"ORD_DVSN"`
	Quantity    string `json:"RVSE_QTY"`
	Price       string `json:"RVSE_PRIC"`
}

type bondBalanceParams struct {
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

type bondSerialParams struct {
	Serial string `url:"BOND_SRNO"`
}

func bondOrderBody(cred Credential, req models.OrderRequest) (interface{}, error) {
	return bondOrder{
		Account:  cred.AccountPrefix(),
		Product:  cred.AccountSuffix(),
		Serial:   req.Symbol,
		Quantity: qtyString(req.Quantity),
		Price:    req.Price.String(),
	}, nil
}

func bondAmendBody(cred Credential, a amendment) (interface{}, error) {
	price := "0"
	if !a.cancel {
		price = a.price.String()
	}
	return bondAmend{
		Account:     cred.AccountPrefix(),
		Product:     cred.AccountSuffix(),
		BranchNo:    a.ref.BranchNo,
		OrigOrderNo: a.ref.OrderID,
		Division:    a.code(),
		Quantity:    qtyString(a.qty),
		Price:       price,
	}, nil
}

func bondBalanceQuery(cred Credential) interface{} {
	return bondBalanceParams{
		Account:        cred.AccountPrefix(),
		Product:        cred.AccountSuffix(),
		AfterHours:     "N",
		Offline:        "N",
		Inquiry:        "01",
		UnitPrice:      "01",
		FundSettlement: "N",
		AutoRepayment:  "N",
		Process:        "00",
	}
}

type bondHolding struct {
	Symbol       string `json:"pdno"`
	Name         string `json:"prdt_name"`
	Quantity     amount `json:"hldg_qty"`
	AveragePrice amount `json:"pchs_avg_pric"`
	Purchase     amount `json:"pchs_amt"`
	Price        amount `json:"prpr"`
	Value        amount `json:"evlu_amt"`
	ProfitLoss   amount `json:"evlu_pfls_amt"`
	ProfitRate   amount `json:"evlu_pfls_rt"`
	Maturity     string `json:"expr_dt"`
}

func parseBondBalance(env *Envelope) (*models.Balance, error) {
	var holdings []bondHolding
	if err := decodeRows(firstPresent(env.Output1, env.Output), &holdings); err != nil {
		return nil, err
	}

	bal := &models.Balance{Positions: make([]models.Position, 0, len(holdings))}
	values := make([]decimal.Decimal, 0, len(holdings))
	purchases := make([]decimal.Decimal, 0, len(holdings))
	pl := make([]decimal.Decimal, 0, len(holdings))
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
			Maturity:       h.Maturity,
		})
		values = append(values, h.Value.dec())
		purchases = append(purchases, h.Purchase.dec())
		pl = append(pl, h.ProfitLoss.dec())
	}
	bal.Summary = models.BalanceSummary{
		Currency:       "KRW",
		TotalEquity:    sumOf(values),
		PurchaseAmount: sumOf(purchases),
		ProfitLoss:     sumOf(pl),
	}
	return bal, nil
}

type bondPrice struct {
	Serial     string `json:"bond_srno"`
	Name       string `json:"bond_nm"`
	Price      amount `json:"stck_prpr"`
	Change     amount `json:"prdy_vrss"`
	ChangeRate amount `json:"prdy_ctrt"`
	Open       amount `json:"stck_oprc"`
	High       amount `json:"stck_hgpr"`
	Low        amount `json:"stck_lwpr"`
	Volume     amount `json:"acml_vol"`
	Value      amount `json:"acml_tr_pbmn"`
	Coupon     amount `json:"srfc_inrt"`
}

func parseBondQuote(inst models.Instrument, env *Envelope) (*models.Quote, error) {
	var p bondPrice
	if err := decodeObject(firstPresent(env.Output, env.Output1), &p); err != nil {
		return nil, err
	}
	symbol := p.Serial
	if symbol == "" {
		symbol = inst.Symbol
	}
	return &models.Quote{
		Symbol:      symbol,
		Name:        p.Name,
		Price:       p.Price.dec(),
		Change:      p.Change.dec(),
		ChangeRate:  p.ChangeRate.dec(),
		Open:        p.Open.dec(),
		High:        p.High.dec(),
		Low:         p.Low.dec(),
		Volume:      p.Volume.dec(),
		TradedValue: p.Value.dec(),
		CouponRate:  p.Coupon.dec(),
		Currency:    "KRW",
	}, nil
}

// bookDepth is the number of levels per side in the bond order book.
const bookDepth = 5

// parseBondOrderBook reads askp1..5, bidp1..5 and their residual
// quantities. The fields are numbered, so they are looked up by name.
func parseBondOrderBook(serial string, env *Envelope) (*models.OrderBook, error) {
	var fields map[string]json.RawMessage
	if err := decodeObject(firstPresent(env.Output, env.Output1), &fields); err != nil {
		return nil, err
	}
	level := func(price, qty string) (models.BookLevel, error) {
		var lv models.BookLevel
		for key, dst := range map[string]*decimal.Decimal{price: &lv.Price, qty: &lv.Quantity} {
			raw, ok := fields[key]
			if !ok {
				raw = fields[strings.ToUpper(key)]
			}
			var a amount
			if !absent(raw) {
				if err := json.Unmarshal(raw, &a); err != nil {
					return lv, malformed("decoding "+key, err)
				}
			}
			*dst = a.dec()
		}
		return lv, nil
	}

	book := &models.OrderBook{Symbol: serial}
	for i := 1; i <= bookDepth; i++ {
		ask, err := level(fmt.Sprintf("askp%d", i), fmt.Sprintf("askp_rsqn%d", i))
		if err != nil {
			return nil, err
		}
		bid, err := level(fmt.Sprintf("bidp%d", i), fmt.Sprintf("bidp_rsqn%d", i))
		if err != nil {
			return nil, err
		}
		book.Asks = append(book.Asks, ask)
		book.Bids = append(book.Bids, bid)
	}
	return book, nil
}
