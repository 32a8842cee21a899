package kis

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"kis-gateway/internal/errors"
	"kis-gateway/internal/logging"
	"kis-gateway/internal/security"
	"kis-gateway/internal/telemetry"
	"kis-gateway/internal/transport"
)

const (
	// RenewalMargin is how long before expiry a session stops being reused.
	RenewalMargin = 5 * time.Minute
	// AcquisitionCooldown is the minimum interval between token acquisitions.
	AcquisitionCooldown = 60 * time.Second

	tokenPath = "/oauth2/tokenP"
)

// Session is one access token and its validity window.
type Session struct {
	AccessToken string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// Usable reports whether the session can be reused at now.
func (s Session) Usable(now time.Time) bool {
	return s.AccessToken != "" && now.Before(s.ExpiresAt.Add(-RenewalMargin))
}

// Expired reports whether the venue will reject the token at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// SessionManager owns the cached session. The mutex covers the whole
// check, acquire and replace sequence so concurrent callers never issue
// two acquisitions.
type SessionManager struct {
	cred      Credential
	baseURL   string
	transport transport.Transport
	settings

	mu      sync.Mutex
	session *Session
	limiter *rate.Limiter
}

// NewSessionManager creates a session manager for cred.
func NewSessionManager(cred Credential, tr transport.Transport, opts ...Option) *SessionManager {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	return newSessionManager(cred, tr, s)
}

func newSessionManager(cred Credential, tr transport.Transport, s settings) *SessionManager {
	return &SessionManager{
		cred:      cred,
		baseURL:   transport.BaseURL(cred.Environment()),
		transport: tr,
		settings:  s,
		limiter:   rate.NewLimiter(rate.Every(AcquisitionCooldown), 1),
	}
}

// Snapshot returns a copy of the cached session, if any.
func (m *SessionManager) Snapshot() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return Session{}, false
	}
	return *m.session, true
}

// EnsureValidToken returns a token that is valid for at least the renewal
// margin, acquiring a new one when needed. Inside the acquisition cooldown
// a cached token that has not yet expired is still returned; without one
// the call fails with a RateLimited AuthError and no network call is made.
func (m *SessionManager) EnsureValidToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if m.session != nil && m.session.Usable(now) {
		return m.session.AccessToken, nil
	}

	if !m.limiter.AllowN(now, 1) {
		if m.session != nil && !m.session.Expired(now) {
			m.logger.Debug().
				Time("expires_at", m.session.ExpiresAt).
				Msg("Token renewal deferred by acquisition cooldown")
			return m.session.AccessToken, nil
		}
		wait := time.Duration((1 - m.limiter.TokensAt(now)) * float64(AcquisitionCooldown))
		m.metrics.TokenAcquisition(ctx, "rate_limited")
		return "", &errors.AuthError{
			Kind:   errors.AuthRateLimited,
			Op:     "token",
			Detail: fmt.Sprintf("one acquisition per %s, retry in %s", AcquisitionCooldown, wait.Round(time.Second)),
		}
	}

	sess, err := m.acquire(ctx, now)
	if err != nil {
		m.metrics.TokenAcquisition(ctx, telemetry.ResultError)
		m.auditLog(ctx, security.AuditEvent{
			EventType:   security.AuditAuthFailed,
			AccountID:   m.cred.AccountID(),
			Environment: string(m.cred.Environment()),
			Success:     false,
			ErrorMsg:    err.Error(),
		})
		return "", err
	}

	m.session = sess
	m.metrics.TokenAcquisition(ctx, telemetry.ResultSuccess)
	m.auditLog(ctx, security.AuditEvent{
		EventType:   security.AuditTokenIssued,
		AccountID:   m.cred.AccountID(),
		Environment: string(m.cred.Environment()),
		Success:     true,
		Details:     map[string]string{"expires_at": sess.ExpiresAt.Format(time.RFC3339)},
	})
	m.logger.Info().
		Str("environment", string(m.cred.Environment())).
		Time("expires_at", sess.ExpiresAt).
		Msg("Access token issued")

	return sess.AccessToken, nil
}

type tokenRequest struct {
	GrantType string `json:"grant_type"`
	AppKey    string `json:"appkey"`
	AppSecret string `json:"appsecret"`
}

type tokenResponse struct {
	AccessToken      string      `json:"access_token"`
	TokenType        string      `json:"token_type"`
	ExpiresIn        json.Number `json:"expires_in"`
	ErrorCode        string      `json:"error_code"`
	ErrorDescription string      `json:"error_description"`
}

func (m *SessionManager) acquire(ctx context.Context, now time.Time) (*Session, error) {
	body, err := json.Marshal(tokenRequest{
		GrantType: "client_credentials",
		AppKey:    m.cred.AppKey(),
		AppSecret: m.cred.AppSecret(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "encoding token request")
	}

	start := time.Now()
	resp, err := m.transport.Perform(ctx, transport.Request{
		Method: http.MethodPost,
		URL:    m.baseURL + tokenPath,
		Header: map[string]string{"content-type": contentType},
		Body:   body,
	})
	if err != nil {
		logging.LogAPICall(m.logger, http.MethodPost, tokenPath, "", 0, time.Since(start), err)
		return nil, asTransportError(http.MethodPost, m.baseURL+tokenPath, err)
	}
	logging.LogAPICall(m.logger, http.MethodPost, tokenPath, "", resp.Status, time.Since(start), nil)

	var tr tokenResponse
	decodeErr := json.Unmarshal(resp.Body, &tr)

	if resp.Status < 200 || resp.Status >= 300 {
		detail := truncate(string(resp.Body), 256)
		if decodeErr == nil && tr.ErrorDescription != "" {
			detail = fmt.Sprintf("%s %s", tr.ErrorCode, tr.ErrorDescription)
		}
		return nil, &errors.AuthError{Kind: errors.AuthCredentialRejected, Op: "token", Status: resp.Status, Detail: detail}
	}
	if decodeErr != nil {
		return nil, &errors.AuthError{Kind: errors.AuthMalformedResponse, Op: "token", Status: resp.Status, Err: decodeErr}
	}

	expiresIn, err := tr.ExpiresIn.Int64()
	if tr.AccessToken == "" || err != nil || expiresIn <= 0 {
		return nil, &errors.AuthError{
			Kind:   errors.AuthMalformedResponse,
			Op:     "token",
			Status: resp.Status,
			Detail: "missing access_token or positive expires_in",
		}
	}

	return &Session{
		AccessToken: tr.AccessToken,
		IssuedAt:    now,
		ExpiresAt:   now.Add(time.Duration(expiresIn) * time.Second),
	}, nil
}

// asTransportError passes a transport failure through, wrapping errors the
// collaborator returned without the expected type.
func asTransportError(method, url string, err error) error {
	var te *errors.TransportError
	if errors.As(err, &te) {
		return te
	}
	return errors.NewTransportError(method, url, err)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
