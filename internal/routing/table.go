package routing

import (
	"net/http"

	"kis-gateway/internal/models"
)

type row struct {
	class    models.AssetClass
	actions  []Action
	exchange models.Exchange
	method   string
	path     string
	live     string
	paper    string // empty when the venue has no simulated variant
}

func one(a Action) []Action { return []Action{a} }

var reviseCancel = []Action{Revise, Cancel}

const (
	domesticStock  = "/uapi/domestic-stock/v1"
	overseasStock  = "/uapi/overseas-stock/v1"
	domesticFuture = "/uapi/domestic-futureoption/v1"
	overseasFuture = "/uapi/overseas-futureoption/v1"
	domesticBond   = "/uapi/domestic-bond/v1"
)

var rows = []row{
	// Domestic equity
	{models.DomesticEquity, one(BuyNew), "", http.MethodPost, domesticStock + "/trading/order-cash", "TTTC0802U", "VTTC0802U"},
	{models.DomesticEquity, one(SellNew), "", http.MethodPost, domesticStock + "/trading/order-cash", "TTTC0801U", "VTTC0801U"},
	{models.DomesticEquity, reviseCancel, "", http.MethodPost, domesticStock + "/trading/order-rvsecncl", "TTTC0803U", "VTTC0803U"},
	{models.DomesticEquity, one(Balance), "", http.MethodGet, domesticStock + "/trading/inquire-balance", "TTTC8434R", "VTTC8434R"},
	{models.DomesticEquity, one(Quote), "", http.MethodGet, domesticStock + "/quotations/inquire-price", "FHKST01010100", "FHKST01010100"},

	// Overseas equity: buy and sell codes differ per exchange
	{models.OverseasEquity, one(BuyNew), models.NASD, http.MethodPost, overseasStock + "/trading/order", "TTTT1002U", "VTTT1002U"},
	{models.OverseasEquity, one(SellNew), models.NASD, http.MethodPost, overseasStock + "/trading/order", "TTTT1006U", "VTTT1006U"},
	{models.OverseasEquity, one(BuyNew), models.NYSE, http.MethodPost, overseasStock + "/trading/order", "TTTT1002U", "VTTT1002U"},
	{models.OverseasEquity, one(SellNew), models.NYSE, http.MethodPost, overseasStock + "/trading/order", "TTTT1006U", "VTTT1006U"},
	{models.OverseasEquity, one(BuyNew), models.AMEX, http.MethodPost, overseasStock + "/trading/order", "TTTT1002U", "VTTT1002U"},
	{models.OverseasEquity, one(SellNew), models.AMEX, http.MethodPost, overseasStock + "/trading/order", "TTTT1006U", "VTTT1006U"},
	{models.OverseasEquity, one(BuyNew), models.SEHK, http.MethodPost, overseasStock + "/trading/order", "TTTS1002U", "VTTS1002U"},
	{models.OverseasEquity, one(SellNew), models.SEHK, http.MethodPost, overseasStock + "/trading/order", "TTTS1001U", "VTTS1001U"},
	{models.OverseasEquity, one(BuyNew), models.SHAA, http.MethodPost, overseasStock + "/trading/order", "TTTS0202U", "VTTS0202U"},
	{models.OverseasEquity, one(SellNew), models.SHAA, http.MethodPost, overseasStock + "/trading/order", "TTTS1005U", "VTTS1005U"},
	{models.OverseasEquity, one(BuyNew), models.SZAA, http.MethodPost, overseasStock + "/trading/order", "TTTS0305U", "VTTS0305U"},
	{models.OverseasEquity, one(SellNew), models.SZAA, http.MethodPost, overseasStock + "/trading/order", "TTTS0304U", "VTTS0304U"},
	{models.OverseasEquity, one(BuyNew), models.TKSE, http.MethodPost, overseasStock + "/trading/order", "TTTS0308U", "VTTS0308U"},
	{models.OverseasEquity, one(SellNew), models.TKSE, http.MethodPost, overseasStock + "/trading/order", "TTTS0307U", "VTTS0307U"},
	{models.OverseasEquity, one(BuyNew), models.HASE, http.MethodPost, overseasStock + "/trading/order", "TTTS0311U", "VTTS0311U"},
	{models.OverseasEquity, one(SellNew), models.HASE, http.MethodPost, overseasStock + "/trading/order", "TTTS0310U", "VTTS0310U"},
	{models.OverseasEquity, one(BuyNew), models.VNSE, http.MethodPost, overseasStock + "/trading/order", "TTTS0311U", "VTTS0311U"},
	{models.OverseasEquity, one(SellNew), models.VNSE, http.MethodPost, overseasStock + "/trading/order", "TTTS0310U", "VTTS0310U"},
	{models.OverseasEquity, reviseCancel, models.NASD, http.MethodPost, overseasStock + "/trading/order-rvsecncl", "TTTT1004U", "VTTT1004U"},
	{models.OverseasEquity, reviseCancel, models.NYSE, http.MethodPost, overseasStock + "/trading/order-rvsecncl", "TTTT1004U", "VTTT1004U"},
	{models.OverseasEquity, reviseCancel, models.AMEX, http.MethodPost, overseasStock + "/trading/order-rvsecncl", "TTTT1004U", "VTTT1004U"},
	{models.OverseasEquity, reviseCancel, models.SEHK, http.MethodPost, overseasStock + "/trading/order-rvsecncl", "TTTS1003U", "VTTS1003U"},
	{models.OverseasEquity, reviseCancel, models.SHAA, http.MethodPost, overseasStock + "/trading/order-rvsecncl", "TTTS1003U", "VTTS1003U"},
	{models.OverseasEquity, reviseCancel, models.SZAA, http.MethodPost, overseasStock + "/trading/order-rvsecncl", "TTTS1003U", "VTTS1003U"},
	{models.OverseasEquity, reviseCancel, models.TKSE, http.MethodPost, overseasStock + "/trading/order-rvsecncl", "TTTS1003U", "VTTS1003U"},
	{models.OverseasEquity, reviseCancel, models.HASE, http.MethodPost, overseasStock + "/trading/order-rvsecncl", "TTTS1003U", "VTTS1003U"},
	{models.OverseasEquity, reviseCancel, models.VNSE, http.MethodPost, overseasStock + "/trading/order-rvsecncl", "TTTS1003U", "VTTS1003U"},
	{models.OverseasEquity, one(Balance), "", http.MethodGet, overseasStock + "/trading/inquire-balance", "TTTS3012R", "VTTS3012R"},
	{models.OverseasEquity, one(Quote), "", http.MethodGet, overseasStock + "/quotations/price", "HHDFS00000300", "HHDFS00000300"},

	// Domestic derivatives
	{models.DomesticDerivative, one(BuyNew), "", http.MethodPost, domesticFuture + "/trading/order", "TTTO0101U", "VTTO0101U"},
	{models.DomesticDerivative, one(SellNew), "", http.MethodPost, domesticFuture + "/trading/order", "TTTO0102U", "VTTO0102U"},
	{models.DomesticDerivative, one(LiquidateBuy), "", http.MethodPost, domesticFuture + "/trading/order", "TTTO0103U", "VTTO0103U"},
	{models.DomesticDerivative, one(LiquidateSell), "", http.MethodPost, domesticFuture + "/trading/order", "TTTO0104U", "VTTO0104U"},
	{models.DomesticDerivative, one(Revise), "", http.MethodPost, domesticFuture + "/trading/order-rvsecncl", "TTTO0105U", "VTTO0105U"},
	{models.DomesticDerivative, one(Cancel), "", http.MethodPost, domesticFuture + "/trading/order-rvsecncl", "TTTO0106U", "VTTO0106U"},
	{models.DomesticDerivative, one(Balance), "", http.MethodGet, domesticFuture + "/trading/inquire-balance", "TTTO5201R", "VTTO5201R"},
	{models.DomesticDerivative, one(Deposit), "", http.MethodGet, domesticFuture + "/trading/inquire-deposit", "TTTO5300R", "VTTO5300R"},
	{models.DomesticDerivative, one(Executions), "", http.MethodGet, domesticFuture + "/trading/inquire-ccnl", "TTTO5107R", "VTTO5107R"},
	{models.DomesticDerivative, one(Quote), "", http.MethodGet, domesticFuture + "/quotations/inquire-price", "FHMIF10000000", "FHMIF10000000"},

	// Overseas derivatives: live only
	{models.OverseasDerivative, one(BuyNew), "", http.MethodPost, overseasFuture + "/trading/order", "OTFM3001U", ""},
	{models.OverseasDerivative, one(SellNew), "", http.MethodPost, overseasFuture + "/trading/order", "OTFM3002U", ""},
	{models.OverseasDerivative, one(LiquidateBuy), "", http.MethodPost, overseasFuture + "/trading/order", "OTFM3003U", ""},
	{models.OverseasDerivative, one(LiquidateSell), "", http.MethodPost, overseasFuture + "/trading/order", "OTFM3004U", ""},
	{models.OverseasDerivative, reviseCancel, "", http.MethodPost, overseasFuture + "/trading/order-rvsecncl", "OTFM3005U", ""},
	{models.OverseasDerivative, one(Balance), "", http.MethodGet, overseasFuture + "/trading/inquire-unpd", "OTFM3304R", ""},
	{models.OverseasDerivative, one(Deposit), "", http.MethodGet, overseasFuture + "/trading/inquire-deposit", "OTFM3306R", ""},
	{models.OverseasDerivative, one(Executions), "", http.MethodGet, overseasFuture + "/trading/inquire-ccld", "OTFM3307R", ""},
	{models.OverseasDerivative, one(Quote), "", http.MethodGet, overseasFuture + "/quotations/inquire-price", "HHDFC55010000", ""},

	// Bonds
	{models.Bond, one(BuyNew), "", http.MethodPost, domesticBond + "/trading/buy", "TTCB1101U", "VTCB1101U"},
	{models.Bond, one(SellNew), "", http.MethodPost, domesticBond + "/trading/sell", "TTCB1201U", "VTCB1201U"},
	{models.Bond, reviseCancel, "", http.MethodPost, domesticBond + "/trading/order-rvsecncl", "TTCB1301U", "VTCB1301U"},
	{models.Bond, one(Balance), "", http.MethodGet, domesticBond + "/trading/inquire-balance", "CTCB8001R", "VTCB8001R"},
	{models.Bond, one(Quote), "", http.MethodGet, domesticBond + "/quotations/inquire-price", "CTCB3002R", "VTCB3002R"},
	{models.Bond, one(OrderBook), "", http.MethodGet, domesticBond + "/quotations/inquire-asking-price", "CTCB3001R", "VTCB3001R"},
}
