package kis

import (
	"kis-gateway/internal/errors"
	"kis-gateway/internal/models"
	"kis-gateway/internal/transport"
)

// Client is the entry point to the venue for one credential. All of its
// endpoints share one session manager and one signer.
type Client struct {
	cred      Credential
	baseURL   string
	transport transport.Transport
	settings

	sessions *SessionManager
	signer   *Signer
	schemas  map[models.AssetClass]assetSchema
}

// NewClient creates a client that reaches the venue through tr.
func NewClient(cred Credential, tr transport.Transport, opts ...Option) *Client {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	return &Client{
		cred:      cred,
		baseURL:   transport.BaseURL(cred.Environment()),
		transport: tr,
		settings:  s,
		sessions:  newSessionManager(cred, tr, s),
		signer:    newSigner(cred, tr, s),
		schemas: map[models.AssetClass]assetSchema{
			models.DomesticEquity:     domesticStockSchema,
			models.OverseasEquity:     overseasStockSchema,
			models.DomesticDerivative: domesticFutureSchema,
			models.OverseasDerivative: overseasFutureSchema,
			models.Bond:               bondSchema,
		},
	}
}

func (c *Client) Credential() Credential { return c.cred }
func (c *Client) Environment() models.Environment { return c.cred.Environment() }
func (c *Client) Sessions() *SessionManager { return c.sessions }
func (c *Client) Signer() *Signer { return c.signer }

// Endpoint returns the operations of one asset class.
func (c *Client) Endpoint(class models.AssetClass) (*Endpoint, error) {
	schema, ok := c.schemas[class]
	if !ok {
		return nil, errors.NewConfigError(errors.ConfigUnknownInstrumentClass, string(class))
	}
	return &Endpoint{client: c, class: class, schema: schema}, nil
}
