// Package transport is the network collaborator of the gateway. The core
// only ever talks to the venue through the Transport interface.
package transport

import (
	"context"

	"kis-gateway/internal/models"
)

// Venue base URLs. These are the only destinations the gateway addresses.
const (
	LiveBaseURL  = "https://openapi.koreainvestment.com:9443"
	PaperBaseURL = "https://openapivts.koreainvestment.com:29443"
)

// BaseURL returns the base URL for env.
func BaseURL(env models.Environment) string {
	if env == models.Live {
		return LiveBaseURL
	}
	return PaperBaseURL
}

// DefaultAllowedHosts returns the host:port pairs of both venue environments.
func DefaultAllowedHosts() []string {
	return []string{"openapi.koreainvestment.com:9443", "openapivts.koreainvestment.com:29443"}
}

// Request is one outbound call.
type Request struct {
	Method string
	URL    string
	Header map[string]string
	Body   []byte
}

// Response is the raw result of a call that reached the venue.
type Response struct {
	Status int
	Body   []byte
}

// Transport performs a single request. Network-level failures are returned
// as *errors.TransportError; any HTTP status is a Response.
type Transport interface {
	Perform(ctx context.Context, req Request) (*Response, error)
}

// Func adapts a function to the Transport interface.
type Func func(ctx context.Context, req Request) (*Response, error)

// Perform calls f.
func (f Func) Perform(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}
