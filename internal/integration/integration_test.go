// Package integration runs the gateway end to end over real HTTP against a
// local TLS server that plays the venue.
package integration

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"kis-gateway/internal/cli"
	"kis-gateway/internal/config"
	"kis-gateway/internal/kis"
	"kis-gateway/internal/kistest"
	"kis-gateway/internal/models"
	"kis-gateway/internal/transport"
)

const (
	orderCashPath       = "/uapi/domestic-stock/v1/trading/order-cash"
	domesticBalancePath = "/uapi/domestic-stock/v1/trading/inquire-balance"
)

// redirect sends every request to target while leaving the URL the
// transport checked against its allow-list untouched.
type redirect struct {
	target *url.URL
	base   http.RoundTripper
}

func (r redirect) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.URL.Scheme = r.target.Scheme
	req.URL.Host = r.target.Host
	req.Host = r.target.Host
	return r.base.RoundTrip(req)
}

// serveVenue exposes a scripted venue over HTTPS.
func serveVenue(t *testing.T, venue *kistest.Venue) *httptest.Server {
	t.Helper()
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		header := make(map[string]string, len(r.Header))
		for k := range r.Header {
			header[strings.ToLower(k)] = r.Header.Get(k)
		}
		resp, err := venue.Perform(r.Context(), transport.Request{
			Method: r.Method,
			URL:    "https://" + r.Host + r.URL.RequestURI(),
			Header: header,
			Body:   body,
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(resp.Status)
		w.Write(resp.Body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newHTTPTransport(t *testing.T, venue *kistest.Venue) *transport.HTTPTransport {
	t.Helper()
	srv := serveVenue(t, venue)
	target, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	cfg := transport.DefaultConfig()
	cfg.Timeout = 5 * time.Second
	cfg.MaxRetries = 2
	cfg.Client = &http.Client{Transport: redirect{target: target, base: srv.Client().Transport}}
	cfg.Logger = zerolog.Nop()
	return transport.NewHTTPTransport(cfg)
}

func newClient(t *testing.T, tr transport.Transport) *kis.Client {
	t.Helper()
	cred, err := kis.NewCredential("PSabcdefghijklmnop", "never-logged", "5012345601", models.Paper)
	if err != nil {
		t.Fatalf("NewCredential: %v", err)
	}
	return kis.NewClient(cred, tr, kis.WithLogger(zerolog.Nop()))
}

func balanceReply() string {
	return kistest.Success(
		"output1", []map[string]string{{
			"pdno": "005930", "prdt_name": "삼성전자", "hldg_qty": "10", "pchs_avg_pric": "65000",
			"prpr": "70000", "evlu_amt": "700000", "evlu_pfls_amt": "50000", "evlu_pfls_rt": "7.69",
		}},
		"output2", []map[string]string{{
			"dnca_tot_amt": "10000000", "tot_evlu_amt": "10700000", "ord_psbl_cash": "9500000",
		}},
	)
}

func TestPaperOrderOverHTTPS(t *testing.T) {
	venue := kistest.New()
	venue.OnOK(orderCashPath, kistest.Success("output", map[string]string{
		"KRX_FWDG_ORD_ORGNO": "00950", "ODNO": "0000117057", "ORD_TMD": "093001",
	}))
	client := newClient(t, newHTTPTransport(t, venue))

	ep, err := client.Endpoint(models.DomesticEquity)
	if err != nil {
		t.Fatal(err)
	}
	conf, err := ep.PlaceOrder(context.Background(), models.OrderRequest{
		AssetClass: models.DomesticEquity,
		Symbol:     "005930",
		Side:       models.Buy,
		Quantity:   3,
		Price:      decimal.NewFromInt(70000),
		PriceKind:  models.Limit,
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if conf.OrderID != "0000117057" || conf.BranchNo != "00950" {
		t.Errorf("confirmation = %+v", conf)
	}

	want := []string{kistest.TokenPath, kistest.HashkeyPath, orderCashPath}
	if got := venue.Paths(); strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("paths = %v, want %v", got, want)
	}

	call, _ := venue.Last(orderCashPath)
	if call.Method != http.MethodPost {
		t.Errorf("method = %s", call.Method)
	}
	for k, v := range map[string]string{
		"tr_id":         "VTTC0802U",
		"hashkey":       "hash-1",
		"authorization": "Bearer token-1",
		"custtype":      "P",
	} {
		if call.Header[k] != v {
			t.Errorf("header %s = %q, want %q", k, call.Header[k], v)
		}
	}

	hashCall, _ := venue.Last(kistest.HashkeyPath)
	if !bytes.Equal(hashCall.Body, call.Body) {
		t.Errorf("signed body differs from sent body:\n%s\n%s", hashCall.Body, call.Body)
	}
}

func TestQueryRetriedOnGatewayError(t *testing.T) {
	venue := kistest.New()
	venue.On(domesticBalancePath,
		kistest.Reply{Status: http.StatusServiceUnavailable, Body: "upstream unavailable"},
		kistest.Reply{Status: http.StatusOK, Body: balanceReply()},
	)
	client := newClient(t, newHTTPTransport(t, venue))

	ep, _ := client.Endpoint(models.DomesticEquity)
	bal, err := ep.Balance(context.Background())
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if got := bal.Summary.TotalEquity.String(); got != "10700000" {
		t.Errorf("total equity = %s", got)
	}
	if n := venue.Count(domesticBalancePath); n != 2 {
		t.Errorf("balance requests = %d, want 2", n)
	}
}

func TestOrderNotRetriedOnGatewayError(t *testing.T) {
	venue := kistest.New()
	venue.On(orderCashPath, kistest.Reply{Status: http.StatusServiceUnavailable, Body: "upstream unavailable"})
	client := newClient(t, newHTTPTransport(t, venue))

	ep, _ := client.Endpoint(models.DomesticEquity)
	_, err := ep.PlaceOrder(context.Background(), models.OrderRequest{
		AssetClass: models.DomesticEquity,
		Symbol:     "005930",
		Side:       models.Sell,
		Quantity:   1,
		PriceKind:  models.Market,
	})
	if err == nil {
		t.Fatal("expected an error for a 503 order response")
	}
	if n := venue.Count(orderCashPath); n != 1 {
		t.Errorf("order requests = %d, want 1", n)
	}
}

func TestConcurrentSnapshotSharesOneToken(t *testing.T) {
	venue := kistest.New()
	venue.OnOK(domesticBalancePath, balanceReply())
	client := newClient(t, newHTTPTransport(t, venue))

	snap, err := client.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if _, ok := snap.Balances[models.DomesticEquity]; !ok {
		t.Errorf("domestic equity missing from snapshot; errors: %v", snap.Err())
	}
	if n := venue.Count(kistest.TokenPath); n != 1 {
		t.Errorf("token requests = %d, want 1", n)
	}
}

func TestConfigFilesDriveCLI(t *testing.T) {
	cfg := loadConfigDir(t)
	if cfg.Transport.Timeout != 30*time.Second || cfg.Transport.MaxRetries != 2 {
		t.Errorf("transport defaults = %+v", cfg.Transport)
	}

	venue := kistest.New()
	venue.OnOK(domesticBalancePath, balanceReply())
	app := &cli.App{Config: cfg, Transport: newHTTPTransport(t, venue), LogOutput: io.Discard}
	defer app.Close()

	root := cli.NewRootCmd(app)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"balance", "--json"})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("balance: %v", err)
	}

	var view struct {
		Summary struct {
			AvailableCash string `json:"available_cash"`
		} `json:"summary"`
		Positions []struct {
			Symbol string `json:"symbol"`
			Name   string `json:"name"`
		} `json:"positions"`
	}
	if err := json.Unmarshal(out.Bytes(), &view); err != nil {
		t.Fatalf("decoding %s: %v", out.String(), err)
	}
	if view.Summary.AvailableCash != "9500000" {
		t.Errorf("available_cash = %q", view.Summary.AvailableCash)
	}
	if len(view.Positions) != 1 || view.Positions[0].Name != "삼성전자" {
		t.Errorf("positions = %+v", view.Positions)
	}
}

func TestProbeReportsVenueHostBreaker(t *testing.T) {
	venue := kistest.New()
	venue.OnOK(domesticBalancePath, balanceReply())
	app := &cli.App{Config: loadConfigDir(t), Transport: newHTTPTransport(t, venue), LogOutput: io.Discard}
	defer app.Close()

	root := cli.NewRootCmd(app)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"probe", "--json", "--asset", "domestic_equity"})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("probe: %v", err)
	}

	var view struct {
		Succeeded []string `json:"succeeded"`
		Breakers  []struct {
			Host     string `json:"host"`
			State    string `json:"state"`
			Requests int64  `json:"requests"`
			Failures int64  `json:"failures"`
		} `json:"breakers"`
	}
	if err := json.Unmarshal(out.Bytes(), &view); err != nil {
		t.Fatalf("decoding %s: %v", out.String(), err)
	}
	if len(view.Succeeded) != 1 || view.Succeeded[0] != "domestic_equity" {
		t.Errorf("succeeded = %v", view.Succeeded)
	}
	if len(view.Breakers) != 1 {
		t.Fatalf("breakers = %+v", view.Breakers)
	}
	b := view.Breakers[0]
	if b.Host != "openapivts.koreainvestment.com:29443" || b.State != "CLOSED" || b.Requests != 2 || b.Failures != 0 {
		t.Errorf("breaker = %+v", b)
	}
}

// loadConfigDir writes a paper configuration with credentials to a temp
// directory and loads it.
func loadConfigDir(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.toml"), `
[venue]
environment = "paper"

[logging]
level = "error"

[security]
audit_enabled = false

[store]
path = ":memory:"
`)
	writeFile(t, filepath.Join(dir, "credentials.toml"), `
[kis]
app_key = "PSabcdefghijklmnop"
app_secret = "never-logged"
account_no = "50123456-01"
`)

	cfg, err := config.Load(dir)
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	return cfg
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
}
