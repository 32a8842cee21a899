package kis

import (
	"context"
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"kis-gateway/internal/errors"
	"kis-gateway/internal/logging"
	"kis-gateway/internal/telemetry"
	"kis-gateway/internal/transport"
)

const (
	hashkeyPath = "/uapi/hashkey"
	contentType = "application/json; charset=utf-8"
)

// Signer obtains the venue's hashkey for a serialized order body. Every
// call goes to the network; hashes are never cached.
type Signer struct {
	cred      Credential
	baseURL   string
	transport transport.Transport
	settings
}

// NewSigner creates a signer for cred.
func NewSigner(cred Credential, tr transport.Transport, opts ...Option) *Signer {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	return newSigner(cred, tr, s)
}

func newSigner(cred Credential, tr transport.Transport, s settings) *Signer {
	return &Signer{
		cred:      cred,
		baseURL:   transport.BaseURL(cred.Environment()),
		transport: tr,
		settings:  s,
	}
}

type hashkeyResponse struct {
	Body struct {
		Hash string `json:"HASH"`
	} `json:"BODY"`
	Hash string `json:"HASH"`
}

// Sign returns the hashkey for body. The bytes are sent exactly as given,
// and must be the same bytes later sent with the order.
func (s *Signer) Sign(ctx context.Context, body []byte) (string, error) {
	hash, err := s.sign(ctx, body)
	if err != nil {
		s.metrics.Hashkey(ctx, telemetry.ResultError)
		return "", err
	}
	s.metrics.Hashkey(ctx, telemetry.ResultSuccess)
	return hash, nil
}

func (s *Signer) sign(ctx context.Context, body []byte) (string, error) {
	url := s.baseURL + hashkeyPath

	start := time.Now()
	resp, err := s.transport.Perform(ctx, transport.Request{
		Method: http.MethodPost,
		URL:    url,
		Header: map[string]string{
			"content-type": contentType,
			"appkey":       s.cred.AppKey(),
			"appsecret":    s.cred.AppSecret(),
		},
		Body: body,
	})
	if err != nil {
		logging.LogAPICall(s.logger, http.MethodPost, hashkeyPath, "", 0, time.Since(start), err)
		return "", asTransportError(http.MethodPost, url, err)
	}
	logging.LogAPICall(s.logger, http.MethodPost, hashkeyPath, "", resp.Status, time.Since(start), nil)

	if resp.Status < 200 || resp.Status >= 300 {
		return "", &errors.AuthError{
			Kind:   errors.AuthCredentialRejected,
			Op:     "hashkey",
			Status: resp.Status,
			Detail: truncate(string(resp.Body), 256),
		}
	}

	var hr hashkeyResponse
	if err := json.Unmarshal(resp.Body, &hr); err != nil {
		return "", &errors.AuthError{Kind: errors.AuthMalformedResponse, Op: "hashkey", Status: resp.Status, Err: err}
	}
	hash := hr.Body.Hash
	if hash == "" {
		hash = hr.Hash
	}
	if hash == "" {
		return "", &errors.AuthError{
			Kind:   errors.AuthMalformedResponse,
			Op:     "hashkey",
			Status: resp.Status,
			Detail: "response carries no HASH",
		}
	}
	return hash, nil
}
