package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"kis-gateway/internal/errors"
	"kis-gateway/internal/resilience"
)

func newTestTransport(t *testing.T, handler http.HandlerFunc, breaker resilience.CircuitBreakerConfig) (*HTTPTransport, *httptest.Server) {
	t.Helper()
	srv := httptest.NewTLSServer(handler)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parsing server URL: %v", err)
	}
	tr := NewHTTPTransport(Config{
		Timeout:      2 * time.Second,
		MaxRetries:   2,
		AllowedHosts: []string{u.Host},
		Breaker:      breaker,
		Client:       srv.Client(),
	})
	return tr, srv
}

func TestHTTPTransport_PassesHeadersAndBody(t *testing.T) {
	var gotHeader http.Header
	var gotBody string
	tr, srv := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Clone()
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"rt_cd":"0"}`))
	}, resilience.DefaultCircuitBreakerConfig())

	resp, err := tr.Perform(context.Background(), Request{
		Method: http.MethodPost,
		URL:    srv.URL + "/uapi/hashkey",
		Header: map[string]string{"tr_id": "VTTC0802U", "content-type": "application/json; charset=utf-8"},
		Body:   []byte(`{"ORD_QTY":"1"}`),
	})
	if err != nil {
		t.Fatalf("Perform: %v", err)
	}
	if resp.Status != http.StatusCreated || string(resp.Body) != `{"rt_cd":"0"}` {
		t.Errorf("response = %d %s", resp.Status, resp.Body)
	}
	if gotHeader.Get("tr_id") != "VTTC0802U" {
		t.Errorf("tr_id header = %q", gotHeader.Get("tr_id"))
	}
	if gotBody != `{"ORD_QTY":"1"}` {
		t.Errorf("body = %s", gotBody)
	}
}

func TestHTTPTransport_RejectsUnlistedHost(t *testing.T) {
	tr := NewHTTPTransport(DefaultConfig())

	for _, u := range []string{
		"https://example.com/uapi/hashkey",
		"http://openapi.koreainvestment.com:9443/oauth2/tokenP",
	} {
		_, err := tr.Perform(context.Background(), Request{Method: http.MethodGet, URL: u})
		if !errors.Is(err, errors.ErrHostNotAllowed) {
			t.Errorf("%s: want ErrHostNotAllowed, got %v", u, err)
		}
		if !errors.Is(err, errors.ErrTransport) {
			t.Errorf("%s: want a TransportError, got %v", u, err)
		}
	}
}

func TestHTTPTransport_ErrorStatusIsAResponse(t *testing.T) {
	tr, srv := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error_code":"EGW00103"}`))
	}, resilience.DefaultCircuitBreakerConfig())

	resp, err := tr.Perform(context.Background(), Request{Method: http.MethodPost, URL: srv.URL + "/oauth2/tokenP"})
	if err != nil {
		t.Fatalf("Perform: %v", err)
	}
	if resp.Status != http.StatusForbidden {
		t.Errorf("status = %d", resp.Status)
	}
}

func TestHTTPTransport_RetriesGetOnGatewayStatus(t *testing.T) {
	var hits atomic.Int32
	tr, srv := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"rt_cd":"0"}`))
	}, resilience.CircuitBreakerConfig{})

	resp, err := tr.Perform(context.Background(), Request{Method: http.MethodGet, URL: srv.URL + "/q"})
	if err != nil {
		t.Fatalf("Perform: %v", err)
	}
	if resp.Status != http.StatusOK || hits.Load() != 3 {
		t.Errorf("status = %d after %d attempts", resp.Status, hits.Load())
	}
}

func TestHTTPTransport_NeverRetriesPost(t *testing.T) {
	var hits atomic.Int32
	tr, srv := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}, resilience.CircuitBreakerConfig{})

	resp, err := tr.Perform(context.Background(), Request{Method: http.MethodPost, URL: srv.URL + "/order"})
	if err != nil {
		t.Fatalf("Perform: %v", err)
	}
	if resp.Status != http.StatusBadGateway {
		t.Errorf("status = %d", resp.Status)
	}
	if hits.Load() != 1 {
		t.Errorf("attempts = %d, want 1", hits.Load())
	}
}

func TestHTTPTransport_OpenCircuitStopsCalls(t *testing.T) {
	var hits atomic.Int32
	tr, srv := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusGatewayTimeout)
	}, resilience.CircuitBreakerConfig{FailureThreshold: 1, Cooldown: time.Hour})
	ctx := context.Background()

	if _, err := tr.Perform(ctx, Request{Method: http.MethodPost, URL: srv.URL + "/order"}); err != nil {
		t.Fatalf("first Perform: %v", err)
	}
	_, err := tr.Perform(ctx, Request{Method: http.MethodPost, URL: srv.URL + "/order"})
	if !errors.Is(err, errors.ErrCircuitOpen) {
		t.Fatalf("want ErrCircuitOpen, got %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("attempts = %d, want 1", hits.Load())
	}
}

func TestBaseURL(t *testing.T) {
	if BaseURL("live") != LiveBaseURL || BaseURL("paper") != PaperBaseURL {
		t.Error("BaseURL does not select the environment's host")
	}
}
