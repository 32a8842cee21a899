package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"

	"kis-gateway/internal/errors"
	"kis-gateway/internal/resilience"
)

const maxBodyBytes = 4 << 20

// Config configures an HTTPTransport.
type Config struct {
	Timeout      time.Duration
	MaxRetries   int
	AllowedHosts []string
	Breaker      resilience.CircuitBreakerConfig
	Client       *http.Client
	Logger       zerolog.Logger
}

// DefaultConfig returns a 30 second timeout, two GET retries and the venue allow-list.
func DefaultConfig() Config {
	return Config{
		Timeout:      30 * time.Second,
		MaxRetries:   2,
		AllowedHosts: DefaultAllowedHosts(),
		Breaker:      resilience.DefaultCircuitBreakerConfig(),
		Logger:       zerolog.Nop(),
	}
}

// HTTPTransport is the net/http implementation of Transport.
//
// It rejects any URL whose host is not allow-listed, enforces a per-attempt
// timeout, retries idempotent GETs on network errors and gateway statuses,
// and stops calling a host whose circuit is open.
type HTTPTransport struct {
	client     *http.Client
	timeout    time.Duration
	maxRetries int
	allowed    map[string]bool
	breakers   *resilience.Registry
	logger     zerolog.Logger
}

// NewHTTPTransport creates an HTTPTransport.
func NewHTTPTransport(cfg Config) *HTTPTransport {
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	hosts := cfg.AllowedHosts
	if len(hosts) == 0 {
		hosts = DefaultAllowedHosts()
	}
	allowed := make(map[string]bool, len(hosts))
	for _, h := range hosts {
		allowed[h] = true
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPTransport{
		client:     client,
		timeout:    timeout,
		maxRetries: cfg.MaxRetries,
		allowed:    allowed,
		breakers:   resilience.NewRegistry(cfg.Breaker),
		logger:     cfg.Logger,
	}
}

// Breakers exposes the per-host circuit breakers.
func (t *HTTPTransport) Breakers() *resilience.Registry {
	return t.breakers
}

// retryableStatus marks a gateway status worth retrying on an idempotent call.
type retryableStatus struct{ status int }

func (e *retryableStatus) Error() string { return fmt.Sprintf("retryable status %d", e.status) }

func isRetryableStatus(status int) bool {
	return status == http.StatusBadGateway || status == http.StatusServiceUnavailable || status == http.StatusGatewayTimeout
}

// Perform implements Transport.
func (t *HTTPTransport) Perform(ctx context.Context, req Request) (*Response, error) {
	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, errors.NewTransportError(req.Method, req.URL, err)
	}
	if u.Scheme != "https" || !t.allowed[u.Host] {
		return nil, errors.NewTransportError(req.Method, req.URL, errors.ErrHostNotAllowed)
	}

	cb := t.breakers.Get(u.Host)
	var last *Response

	attempt := func() (*Response, error) {
		var resp *Response
		err := cb.Execute(func() error {
			r, err := t.do(ctx, req)
			if err != nil {
				return err
			}
			resp = r
			if isRetryableStatus(r.Status) {
				return &retryableStatus{status: r.Status}
			}
			return nil
		}, nil)
		if resp != nil {
			last = resp
		}
		if err != nil && errors.Is(err, errors.ErrCircuitOpen) {
			return nil, backoff.Permanent(err)
		}
		return resp, err
	}

	tries := uint(1)
	if req.Method == http.MethodGet && t.maxRetries > 0 {
		tries = uint(t.maxRetries) + 1
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 2 * time.Second

	resp, err := backoff.Retry(ctx, attempt,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(tries),
		backoff.WithNotify(func(err error, next time.Duration) {
			t.logger.Debug().Err(err).Str("url", req.URL).Dur("retry_in", next).Msg("Retrying venue call")
		}),
	)
	if err != nil {
		var rs *retryableStatus
		if errors.As(err, &rs) && last != nil {
			return last, nil
		}
		var te *errors.TransportError
		if errors.As(err, &te) {
			return nil, te
		}
		return nil, errors.NewTransportError(req.Method, req.URL, err)
	}
	return resp, nil
}

func (t *HTTPTransport) do(ctx context.Context, req Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, errors.NewTransportError(req.Method, req.URL, err)
	}
	for k, v := range req.Header {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, errors.NewTransportError(req.Method, req.URL, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.NewTransportError(req.Method, req.URL, err)
	}
	return &Response{Status: httpResp.StatusCode, Body: data}, nil
}
