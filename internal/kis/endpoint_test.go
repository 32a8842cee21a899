package kis

import (
	"context"
	"sync"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"kis-gateway/internal/errors"
	"kis-gateway/internal/kistest"
	"kis-gateway/internal/models"
	"kis-gateway/internal/security"
	"kis-gateway/internal/telemetry"
)

const (
	orderCashPath     = "/uapi/domestic-stock/v1/trading/order-cash"
	orderRvsecnclPath = "/uapi/domestic-stock/v1/trading/order-rvsecncl"
	overseasOrderPath = "/uapi/overseas-stock/v1/trading/order"
	futureAmendPath   = "/uapi/overseas-futureoption/v1/trading/order-rvsecncl"
)

func orderAck(orderNo string) string {
	return kistest.Success("output", map[string]string{
		"KRX_FWDG_ORD_ORGNO": "00950",
		"ODNO":               orderNo,
		"ORD_TMD":            "121052",
	})
}

func bodyOf(t *testing.T, call kistest.Call) map[string]string {
	t.Helper()
	var m map[string]string
	if err := json.Unmarshal(call.Body, &m); err != nil {
		t.Fatalf("request body is not a flat JSON object: %v (%s)", err, call.Body)
	}
	return m
}

func TestPlaceOrder_DomesticLimitBuyInPaper(t *testing.T) {
	c, venue, _ := newTestClient(t, models.Paper)
	venue.OnOK(orderCashPath, orderAck("0000117057"))

	conf, err := endpointFor(t, c, models.DomesticEquity).PlaceOrder(context.Background(), models.OrderRequest{
		Symbol:    "005930",
		Side:      models.Buy,
		Quantity:  1,
		Price:     decimal.NewFromInt(70000),
		PriceKind: models.Limit,
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	want := []string{kistest.TokenPath, kistest.HashkeyPath, orderCashPath}
	if got := venue.Paths(); !equalPaths(got, want) {
		t.Fatalf("call order = %v, want %v", got, want)
	}

	order, _ := venue.Last(orderCashPath)
	hash, _ := venue.Last(kistest.HashkeyPath)
	if order.Method != "POST" {
		t.Errorf("method = %s", order.Method)
	}
	if order.Header["tr_id"] != "VTTC0802U" {
		t.Errorf("tr_id = %q, want VTTC0802U", order.Header["tr_id"])
	}
	if order.Header["hashkey"] != "hash-1" {
		t.Errorf("hashkey = %q, want the signer's result hash-1", order.Header["hashkey"])
	}
	if order.Header["authorization"] != "Bearer token-1" {
		t.Errorf("authorization = %q", order.Header["authorization"])
	}
	if order.Header["custtype"] != "P" || order.Header["appkey"] != testAppKey || order.Header["appsecret"] != testAppSecret {
		t.Errorf("missing fixed headers: %v", order.Header)
	}
	if string(order.Body) != string(hash.Body) {
		t.Errorf("order body %s differs from signed body %s", order.Body, hash.Body)
	}

	body := bodyOf(t, order)
	wantBody := map[string]string{
		"CANO": "50123456", "ACNT_PRDT_CD": "01", "PDNO": "005930",
		"ORD_DVSN": "00", "ORD_QTY": "1", "ORD_UNPR": "70000",
	}
	for k, v := range wantBody {
		if body[k] != v {
			t.Errorf("body[%s] = %q, want %q", k, body[k], v)
		}
	}

	if conf.OrderID != "0000117057" || conf.BranchNo != "00950" || conf.TransactionCode != "VTTC0802U" {
		t.Errorf("unexpected confirmation %+v", conf)
	}
	if conf.Environment != models.Paper || conf.AssetClass != models.DomesticEquity {
		t.Errorf("confirmation context = %s/%s", conf.AssetClass, conf.Environment)
	}
}

func TestPlaceOrder_OverseasSellOnNASDInLive(t *testing.T) {
	c, venue, _ := newTestClient(t, models.Live)
	venue.OnOK(overseasOrderPath, orderAck("0030138295"))

	_, err := endpointFor(t, c, models.OverseasEquity).PlaceOrder(context.Background(), models.OrderRequest{
		Symbol:   "AAPL",
		Side:     models.Sell,
		Quantity: 3,
		Price:    decimal.RequireFromString("150.5"),
		Exchange: models.NASD,
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	order, ok := venue.Last(overseasOrderPath)
	if !ok {
		t.Fatal("order not sent")
	}
	if order.Header["tr_id"] != "TTTT1006U" {
		t.Errorf("tr_id = %q, want TTTT1006U", order.Header["tr_id"])
	}
	body := bodyOf(t, order)
	wantBody := map[string]string{
		"OVRS_EXCG_CD": "NASD", "PDNO": "AAPL", "ORD_QTY": "3", "OVRS_ORD_UNPR": "150.50",
		"SLL_TYPE": "00", "ORD_SVR_DVSN_CD": "0", "ORD_DVSN": "00",
	}
	for k, v := range wantBody {
		if body[k] != v {
			t.Errorf("body[%s] = %q, want %q", k, body[k], v)
		}
	}
}

func TestPlaceOrder_OverseasBuyOmitsSellType(t *testing.T) {
	c, venue, _ := newTestClient(t, models.Paper)
	venue.OnOK(overseasOrderPath, orderAck("1"))

	_, err := endpointFor(t, c, models.OverseasEquity).PlaceOrder(context.Background(), models.OrderRequest{
		Symbol: "0700", Side: models.Buy, Quantity: 100, Price: decimal.NewFromInt(300), Exchange: models.SEHK,
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	order, _ := venue.Last(overseasOrderPath)
	if order.Header["tr_id"] != "VTTS1002U" {
		t.Errorf("tr_id = %q, want VTTS1002U", order.Header["tr_id"])
	}
	if _, ok := bodyOf(t, order)["SLL_TYPE"]; ok {
		t.Error("buy orders must not carry SLL_TYPE")
	}
}

func TestPlaceOrder_DerivativeActions(t *testing.T) {
	tests := []struct {
		side   models.Side
		effect models.PositionEffect
		code   string
		sideCd string
	}{
		{models.Buy, models.Open, "VTTO0101U", "02"},
		{models.Sell, models.Open, "VTTO0102U", "01"},
		{models.Buy, models.Close, "VTTO0103U", "02"},
		{models.Sell, models.Close, "VTTO0104U", "01"},
	}
	const path = "/uapi/domestic-futureoption/v1/trading/order"

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			c, venue, _ := newTestClient(t, models.Paper)
			venue.OnOK(path, kistest.Success("output", map[string]string{"ODNO": "77"}))

			_, err := endpointFor(t, c, models.DomesticDerivative).PlaceOrder(context.Background(), models.OrderRequest{
				Symbol: "101W09", Side: tt.side, Effect: tt.effect, Quantity: 1,
				PriceKind: models.Market,
			})
			if err != nil {
				t.Fatalf("PlaceOrder: %v", err)
			}
			order, _ := venue.Last(path)
			if order.Header["tr_id"] != tt.code {
				t.Errorf("tr_id = %q, want %q", order.Header["tr_id"], tt.code)
			}
			body := bodyOf(t, order)
			if body["SLL_BUY_DVSN_CD"] != tt.sideCd || body["NMPR_TYPE_CD"] != "2" || body["UNIT_PRICE"] != "0" {
				t.Errorf("unexpected body %v", body)
			}
		})
	}
}

func TestPlaceOrder_ValidationMakesNoCalls(t *testing.T) {
	valid := models.OrderRequest{
		Symbol: "005930", Side: models.Buy, Quantity: 1, Price: decimal.NewFromInt(70000),
	}
	tests := []struct {
		name  string
		class models.AssetClass
		edit  func(r *models.OrderRequest)
	}{
		{"zero quantity", models.DomesticEquity, func(r *models.OrderRequest) { r.Quantity = 0 }},
		{"negative quantity", models.DomesticEquity, func(r *models.OrderRequest) { r.Quantity = -5 }},
		{"empty symbol", models.DomesticEquity, func(r *models.OrderRequest) { r.Symbol = "  " }},
		{"negative price", models.DomesticEquity, func(r *models.OrderRequest) { r.Price = decimal.NewFromInt(-1) }},
		{"fractional won", models.DomesticEquity, func(r *models.OrderRequest) { r.Price = decimal.RequireFromString("70000.5") }},
		{"bad side", models.DomesticEquity, func(r *models.OrderRequest) { r.Side = "hold" }},
		{"close on equity", models.DomesticEquity, func(r *models.OrderRequest) { r.Effect = models.Close }},
		{"foreign account", models.DomesticEquity, func(r *models.OrderRequest) { r.AccountID = "99999999-01" }},
		{"class mismatch", models.DomesticEquity, func(r *models.OrderRequest) { r.AssetClass = models.Bond }},
		{"auction kind in Korea", models.DomesticEquity, func(r *models.OrderRequest) { r.PriceKind = models.MarketOnClose }},
		{"missing exchange", models.OverseasEquity, func(r *models.OrderRequest) { r.Exchange = "" }},
		{"overseas market order", models.OverseasEquity, func(r *models.OrderRequest) {
			r.Exchange = models.NYSE
			r.PriceKind = models.Market
		}},
		{"auction kind outside US", models.OverseasEquity, func(r *models.OrderRequest) {
			r.Exchange = models.TKSE
			r.PriceKind = models.LimitOnClose
		}},
		{"bond market order", models.Bond, func(r *models.OrderRequest) { r.PriceKind = models.Market }},
		{"derivative best limit", models.DomesticDerivative, func(r *models.OrderRequest) { r.PriceKind = models.BestLimit }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, venue, _ := newTestClient(t, models.Paper)
			req := valid
			tt.edit(&req)

			_, err := endpointFor(t, c, tt.class).PlaceOrder(context.Background(), req)
			if !errors.Is(err, errors.ErrInputValidation) {
				t.Fatalf("want validation error, got %v", err)
			}
			if calls := venue.Calls(); len(calls) != 0 {
				t.Errorf("validation failure made %d venue calls", len(calls))
			}
		})
	}
}

func TestPlaceOrder_ReadOnlyBlocksMutations(t *testing.T) {
	c, venue, _ := newTestClient(t, models.Live, WithAccessChecker(security.NewAccessController(true, nil)))
	e := endpointFor(t, c, models.DomesticEquity)
	ctx := context.Background()

	_, err := e.PlaceOrder(ctx, models.OrderRequest{Symbol: "005930", Side: models.Buy, Quantity: 1, Price: decimal.NewFromInt(1)})
	if !errors.Is(err, errors.ErrReadOnlyMode) {
		t.Fatalf("PlaceOrder: want read-only error, got %v", err)
	}
	_, err = e.Cancel(ctx, models.OrderRef{OrderID: "1", BranchNo: "00950"}, 1)
	if !errors.Is(err, errors.ErrReadOnlyMode) {
		t.Fatalf("Cancel: want read-only error, got %v", err)
	}
	if calls := venue.Calls(); len(calls) != 0 {
		t.Errorf("blocked mutations made %d venue calls", len(calls))
	}

	venue.OnOK("/uapi/domestic-stock/v1/quotations/inquire-price", kistest.Success("output", map[string]string{"stck_prpr": "1"}))
	if _, err := e.Quote(ctx, models.Instrument{Symbol: "005930"}); err != nil {
		t.Errorf("reads must pass in read-only mode: %v", err)
	}
}

func TestPlaceOrder_BusinessFailureCarriesTransactionCode(t *testing.T) {
	c, venue, _ := newTestClient(t, models.Paper)
	venue.OnOK(orderCashPath, kistest.Failure("APBK0919", "주문가능금액을 초과 했습니다"))

	_, err := endpointFor(t, c, models.DomesticEquity).PlaceOrder(context.Background(), models.OrderRequest{
		Symbol: "005930", Side: models.Buy, Quantity: 1000000, Price: decimal.NewFromInt(70000),
	})

	var bf *errors.BusinessFailure
	if !errors.As(err, &bf) {
		t.Fatalf("want BusinessFailure, got %v", err)
	}
	if bf.Code != "APBK0919" || bf.Message != "주문가능금액을 초과 했습니다" || bf.TransactionCode != "VTTC0802U" {
		t.Errorf("unexpected failure %+v", bf)
	}
	var oe *errors.OrderError
	if !errors.As(err, &oe) || oe.Op != "place" {
		t.Errorf("want OrderError(place), got %v", err)
	}
}

func TestPlaceOrder_OverseasDerivativeRejectedInPaper(t *testing.T) {
	c, venue, _ := newTestClient(t, models.Paper)

	_, err := endpointFor(t, c, models.OverseasDerivative).PlaceOrder(context.Background(), models.OrderRequest{
		Symbol: "ESZ26", Side: models.Buy, Quantity: 1, Price: decimal.NewFromInt(5000),
	})
	if !errors.Is(err, errors.ErrUnsupportedInEnvironment) {
		t.Fatalf("want UnsupportedInEnvironment, got %v", err)
	}
	if calls := venue.Calls(); len(calls) != 0 {
		t.Errorf("unsupported route made %d venue calls", len(calls))
	}
}

func TestRevise_DomesticInPaper(t *testing.T) {
	c, venue, _ := newTestClient(t, models.Paper)
	venue.OnOK(orderRvsecnclPath, orderAck("0000117058"))

	ref := models.OrderRef{OrderID: "0000117057", BranchNo: "00950", Symbol: "005930", Kind: models.Limit}
	conf, err := endpointFor(t, c, models.DomesticEquity).Revise(context.Background(), ref, 2, decimal.NewFromInt(71000))
	if err != nil {
		t.Fatalf("Revise: %v", err)
	}

	call, _ := venue.Last(orderRvsecnclPath)
	if call.Header["tr_id"] != "VTTC0803U" {
		t.Errorf("tr_id = %q, want VTTC0803U", call.Header["tr_id"])
	}
	body := bodyOf(t, call)
	wantBody := map[string]string{
		"KRX_FWDG_ORD_ORGNO": "00950", "ORGN_ODNO": "0000117057", "ORD_DVSN": "00",
		"RVSE_CNCL_DVSN_CD": "01", "ORD_QTY": "2", "ORD_UNPR": "71000", "QTY_ALL_ORD_YN": "N",
	}
	for k, v := range wantBody {
		if body[k] != v {
			t.Errorf("body[%s] = %q, want %q", k, body[k], v)
		}
	}
	if conf.OrderID != "0000117058" {
		t.Errorf("OrderID = %q", conf.OrderID)
	}
}

func TestCancel_FallsBackToOriginalOrderID(t *testing.T) {
	c, venue, _ := newTestClient(t, models.Live)
	venue.OnOK(orderRvsecnclPath, kistest.Success())

	ref := models.OrderRef{OrderID: "0000117057", BranchNo: "00950"}
	conf, err := endpointFor(t, c, models.DomesticEquity).Cancel(context.Background(), ref, 1)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if conf.OrderID != "0000117057" {
		t.Errorf("OrderID = %q, want the original order", conf.OrderID)
	}

	call, _ := venue.Last(orderRvsecnclPath)
	body := bodyOf(t, call)
	if call.Header["tr_id"] != "TTTC0803U" || body["RVSE_CNCL_DVSN_CD"] != "02" || body["ORD_UNPR"] != "0" {
		t.Errorf("unexpected cancel %s %v", call.Header["tr_id"], body)
	}
}

func TestCancel_OverseasFutureOmitsQuantityAndPrice(t *testing.T) {
	c, venue, _ := newTestClient(t, models.Live)
	venue.OnOK(futureAmendPath, kistest.Success("output", map[string]string{"ODNO": "9"}))

	_, err := endpointFor(t, c, models.OverseasDerivative).Cancel(context.Background(), models.OrderRef{OrderID: "8"}, 1)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	call, _ := venue.Last(futureAmendPath)
	body := bodyOf(t, call)
	if call.Header["tr_id"] != "OTFM3005U" || body["RVSE_CNCL_DVSN_CD"] != "02" {
		t.Errorf("unexpected cancel %s %v", call.Header["tr_id"], body)
	}
	for _, k := range []string{"ORD_QTY", "FUOP_LIMT_PRIC"} {
		if _, ok := body[k]; ok {
			t.Errorf("cancel body carries %s", k)
		}
	}
}

func TestAmend_Validation(t *testing.T) {
	c, venue, _ := newTestClient(t, models.Paper)
	ctx := context.Background()

	_, err := endpointFor(t, c, models.DomesticEquity).Cancel(ctx, models.OrderRef{OrderID: "1"}, 0)
	if !errors.Is(err, errors.ErrInputValidation) {
		t.Errorf("zero-quantity cancel: got %v", err)
	}
	_, err = endpointFor(t, c, models.DomesticEquity).Revise(ctx, models.OrderRef{}, 1, decimal.NewFromInt(1))
	if !errors.Is(err, errors.ErrInputValidation) {
		t.Errorf("revise without order id: got %v", err)
	}
	_, err = endpointFor(t, c, models.OverseasEquity).Cancel(ctx, models.OrderRef{OrderID: "1", Exchange: models.NASD}, 1)
	if !errors.Is(err, errors.ErrInputValidation) {
		t.Errorf("overseas cancel without symbol: got %v", err)
	}
	if calls := venue.Calls(); len(calls) != 0 {
		t.Errorf("invalid amendments made %d venue calls", len(calls))
	}
}

func TestClient_UnknownAssetClass(t *testing.T) {
	c, _, _ := newTestClient(t, models.Live)
	if _, err := c.Endpoint("crypto"); !errors.Is(err, errors.ErrUnknownInstrumentClass) {
		t.Fatalf("want UnknownInstrumentClass, got %v", err)
	}
}

type recordingSink struct {
	mu     sync.Mutex
	events []security.AuditEvent
}

func (r *recordingSink) Log(_ context.Context, ev security.AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingSink) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = string(ev.EventType)
	}
	return out
}

func TestPlaceOrder_AuditAndMetrics(t *testing.T) {
	mp, reader := telemetry.NewManualProvider()
	instruments, err := telemetry.NewInstruments(mp)
	if err != nil {
		t.Fatalf("NewInstruments: %v", err)
	}
	sink := &recordingSink{}
	c, venue, _ := newTestClient(t, models.Paper, WithAudit(sink), WithMetrics(instruments))
	venue.OnOK(orderCashPath, orderAck("1"))
	ctx := context.Background()

	if _, err := endpointFor(t, c, models.DomesticEquity).PlaceOrder(ctx, models.OrderRequest{
		Symbol: "005930", Side: models.Buy, Quantity: 1, Price: decimal.NewFromInt(70000),
	}); err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	want := []string{string(security.AuditTokenIssued), string(security.AuditOrderPlaced)}
	if got := sink.types(); !equalPaths(got, want) {
		t.Errorf("audit events = %v, want %v", got, want)
	}
	for _, ev := range sink.events {
		if ev.AccountID != "50123456-01" {
			t.Errorf("audit account = %q", ev.AccountID)
		}
	}

	totals, err := telemetry.Totals(ctx, reader)
	if err != nil {
		t.Fatalf("Totals: %v", err)
	}
	for name, want := range map[string]int64{
		telemetry.MetricTokenAcquisitions: 1,
		telemetry.MetricHashkeyRequests:   1,
		telemetry.MetricVenueRequests:     1,
		telemetry.MetricVenueLatency:      1,
	} {
		if totals[name] != want {
			t.Errorf("%s = %d, want %d", name, totals[name], want)
		}
	}
}
