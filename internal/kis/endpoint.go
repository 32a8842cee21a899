package kis

import (
	"context"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/go-querystring/query"
	"github.com/shopspring/decimal"

	"kis-gateway/internal/errors"
	"kis-gateway/internal/logging"
	"kis-gateway/internal/models"
	"kis-gateway/internal/routing"
	"kis-gateway/internal/security"
	"kis-gateway/internal/telemetry"
	"kis-gateway/internal/transport"
)

// customerType is the custtype header; the gateway only trades as an individual.
const customerType = "P"

// assetSchema is what differs between asset classes: request bodies,
// query parameters and the projections of the venue's outputs. Optional
// operations are nil for classes that do not offer them.
type assetSchema struct {
	exchangeRequired bool

	checkOrder   func(req models.OrderRequest) error
	orderBody    func(cred Credential, req models.OrderRequest) (interface{}, error)
	amendBody    func(cred Credential, a amendment) (interface{}, error)
	balanceQuery func(cred Credential) interface{}
	parseBalance func(env *Envelope) (*models.Balance, error)
	quoteQuery   func(inst models.Instrument) interface{}
	parseQuote   func(inst models.Instrument, env *Envelope) (*models.Quote, error)

	depositQuery    func(cred Credential) interface{}
	parseDeposit    func(env *Envelope) (*models.BalanceSummary, error)
	executionsQuery func(cred Credential, from, to time.Time) interface{}
	parseExecutions func(env *Envelope) ([]models.Execution, error)
}

// amendment is a revise or cancel of an earlier order.
type amendment struct {
	ref    models.OrderRef
	cancel bool
	qty    int64
	price  decimal.Decimal
}

func (a amendment) code() string {
	if a.cancel {
		return "02"
	}
	return "01"
}

// Endpoint is the set of operations for one asset class. Every call
// runs through the same pipeline: validate, route, check access, obtain
// the token, sign, send, classify and project.
type Endpoint struct {
	client *Client
	class  models.AssetClass
	schema assetSchema
}

// AssetClass returns the class this endpoint serves.
func (e *Endpoint) AssetClass() models.AssetClass {
	return e.class
}

// PlaceOrder submits a new order.
func (e *Endpoint) PlaceOrder(ctx context.Context, req models.OrderRequest) (*models.Confirmation, error) {
	action, err := e.validateOrder(&req)
	var body interface{}
	if err == nil {
		body, err = e.schema.orderBody(e.client.cred, req)
	}
	if err != nil {
		return nil, errors.NewOrderError("place", string(e.class), req.Symbol, "", err)
	}

	env, desc, err := e.send(ctx, call{action: action, exchange: req.Exchange, symbol: req.Symbol, body: body})
	if err != nil {
		e.auditOrder(ctx, security.AuditOrderRejected, action, desc, req.Symbol, "", err)
		return nil, errors.NewOrderError("place", string(e.class), req.Symbol, "", err)
	}

	conf, err := e.confirmation(env, desc)
	if err != nil {
		return nil, errors.NewOrderError("place", string(e.class), req.Symbol, "", err)
	}
	e.auditOrder(ctx, security.AuditOrderPlaced, action, desc, req.Symbol, conf.OrderID, nil)
	logging.LogOrder(e.client.logger, conf.OrderID, req.Symbol, string(action), models.StatusSubmitted)
	return conf, nil
}

// Revise changes the quantity and price of an open order.
func (e *Endpoint) Revise(ctx context.Context, ref models.OrderRef, qty int64, price decimal.Decimal) (*models.Confirmation, error) {
	return e.amend(ctx, amendment{ref: ref, qty: qty, price: price})
}

// Cancel cancels qty units of an open order.
func (e *Endpoint) Cancel(ctx context.Context, ref models.OrderRef, qty int64) (*models.Confirmation, error) {
	return e.amend(ctx, amendment{ref: ref, cancel: true, qty: qty, price: decimal.Zero})
}

func (e *Endpoint) amend(ctx context.Context, a amendment) (*models.Confirmation, error) {
	action, op, event := routing.Revise, "revise", security.AuditOrderRevised
	if a.cancel {
		action, op, event = routing.Cancel, "cancel", security.AuditOrderCancelled
	}

	err := e.validateAmendment(&a)
	var body interface{}
	if err == nil {
		body, err = e.schema.amendBody(e.client.cred, a)
	}
	if err != nil {
		return nil, errors.NewOrderError(op, string(e.class), a.ref.Symbol, a.ref.OrderID, err)
	}

	env, desc, err := e.send(ctx, call{action: action, exchange: a.ref.Exchange, symbol: a.ref.Symbol, body: body})
	if err != nil {
		e.auditOrder(ctx, security.AuditOrderRejected, action, desc, a.ref.Symbol, a.ref.OrderID, err)
		return nil, errors.NewOrderError(op, string(e.class), a.ref.Symbol, a.ref.OrderID, err)
	}

	conf, err := e.confirmation(env, desc)
	if err != nil {
		return nil, errors.NewOrderError(op, string(e.class), a.ref.Symbol, a.ref.OrderID, err)
	}
	if conf.OrderID == "" {
		conf.OrderID = a.ref.OrderID
	}
	e.auditOrder(ctx, event, action, desc, a.ref.Symbol, conf.OrderID, nil)
	return conf, nil
}

// Balance returns positions and the account summary. An account without
// holdings yields an empty position list and a populated summary.
func (e *Endpoint) Balance(ctx context.Context) (*models.Balance, error) {
	env, _, err := e.send(ctx, call{action: routing.Balance, params: e.schema.balanceQuery(e.client.cred)})
	if err != nil {
		return nil, errors.NewQueryError("balance", string(e.class), err)
	}
	bal, err := e.schema.parseBalance(env)
	if err != nil {
		return nil, errors.NewQueryError("balance", string(e.class), err)
	}
	bal.AssetClass = e.class
	if bal.Positions == nil {
		bal.Positions = []models.Position{}
	}
	return bal, nil
}

// Quote returns the current price of inst.
func (e *Endpoint) Quote(ctx context.Context, inst models.Instrument) (*models.Quote, error) {
	if err := e.validateInstrument(inst); err != nil {
		return nil, errors.NewQueryError("quote", string(e.class), err)
	}
	env, _, err := e.send(ctx, call{action: routing.Quote, params: e.schema.quoteQuery(inst)})
	if err != nil {
		return nil, errors.NewQueryError("quote", string(e.class), err)
	}
	q, err := e.schema.parseQuote(inst, env)
	if err != nil {
		return nil, errors.NewQueryError("quote", string(e.class), err)
	}
	return q, nil
}

func (e *Endpoint) validateOrder(req *models.OrderRequest) (routing.Action, error) {
	if req.AssetClass != "" && req.AssetClass != e.class {
		return "", errors.NewValidationError("asset_class", req.AssetClass, "does not match endpoint "+string(e.class))
	}
	if req.AccountID != "" && !e.client.cred.MatchesAccount(req.AccountID) {
		return "", errors.NewValidationError("account_id", req.AccountID, "does not match the client's account")
	}
	if strings.TrimSpace(req.Symbol) == "" {
		return "", errors.NewValidationError("symbol", req.Symbol, "must not be empty")
	}
	if req.Quantity <= 0 {
		return "", errors.NewValidationError("quantity", req.Quantity, "must be positive")
	}
	if req.PriceKind == "" {
		req.PriceKind = models.Limit
	}
	if !req.PriceKind.IsMarket() && req.Price.IsNegative() {
		return "", errors.NewValidationError("price", req.Price, "must not be negative")
	}
	if e.schema.exchangeRequired && !req.Exchange.Valid() {
		return "", errors.NewValidationError("exchange", req.Exchange, "a supported exchange is required")
	}

	if req.Effect == "" {
		req.Effect = models.Open
	}
	if req.Effect == models.Close && !e.class.IsDerivative() {
		return "", errors.NewValidationError("effect", req.Effect, "close applies to derivatives only")
	}

	var action routing.Action
	switch {
	case req.Side == models.Buy && req.Effect == models.Open:
		action = routing.BuyNew
	case req.Side == models.Sell && req.Effect == models.Open:
		action = routing.SellNew
	case req.Side == models.Buy && req.Effect == models.Close:
		action = routing.LiquidateBuy
	case req.Side == models.Sell && req.Effect == models.Close:
		action = routing.LiquidateSell
	case req.Side != models.Buy && req.Side != models.Sell:
		return "", errors.NewValidationError("side", req.Side, "must be buy or sell")
	default:
		return "", errors.NewValidationError("effect", req.Effect, "must be open or close")
	}

	if e.schema.checkOrder != nil {
		if err := e.schema.checkOrder(*req); err != nil {
			return "", err
		}
	}
	return action, nil
}

func (e *Endpoint) validateAmendment(a *amendment) error {
	if strings.TrimSpace(a.ref.OrderID) == "" {
		return errors.NewValidationError("order_id", a.ref.OrderID, "must not be empty")
	}
	if a.qty <= 0 {
		return errors.NewValidationError("quantity", a.qty, "must be positive")
	}
	if a.ref.Kind == "" {
		a.ref.Kind = models.Limit
	}
	if !a.cancel && !a.ref.Kind.IsMarket() && a.price.IsNegative() {
		return errors.NewValidationError("price", a.price, "must not be negative")
	}
	if e.schema.exchangeRequired && !a.ref.Exchange.Valid() {
		return errors.NewValidationError("exchange", a.ref.Exchange, "a supported exchange is required")
	}
	return nil
}

func (e *Endpoint) validateInstrument(inst models.Instrument) error {
	if strings.TrimSpace(inst.Symbol) == "" {
		return errors.NewValidationError("symbol", inst.Symbol, "must not be empty")
	}
	if e.schema.exchangeRequired && !inst.Exchange.Valid() {
		return errors.NewValidationError("exchange", inst.Exchange, "a supported exchange is required")
	}
	return nil
}

// call is one venue request after validation.
type call struct {
	action   routing.Action
	exchange models.Exchange
	symbol   string
	params   interface{} // query parameters of a GET, as go-querystring tagged struct
	body     interface{} // JSON body of a POST
}

// send runs the shared part of the pipeline. The token is obtained before
// the body is signed, so a mutating call always reaches the venue as
// token, hashkey, order.
func (e *Endpoint) send(ctx context.Context, c call) (*Envelope, routing.Descriptor, error) {
	cl := e.client
	desc, err := routing.Resolve(routing.Key{
		AssetClass:  e.class,
		Action:      c.action,
		Environment: cl.cred.Environment(),
		Exchange:    c.exchange,
	})
	if err != nil {
		return nil, desc, err
	}

	if c.action.Mutating() && cl.access != nil {
		err := cl.access.Authorize(ctx, security.Mutation{
			Operation:   operationFor(c.action),
			AssetClass:  string(e.class),
			Environment: string(cl.cred.Environment()),
			Symbol:      c.symbol,
		})
		if err != nil {
			return nil, desc, err
		}
	}

	token, err := cl.sessions.EnsureValidToken(ctx)
	if err != nil {
		return nil, desc, err
	}

	header := map[string]string{
		"content-type":  contentType,
		"authorization": "Bearer " + token,
		"appkey":        cl.cred.AppKey(),
		"appsecret":     cl.cred.AppSecret(),
		"tr_id":         desc.TransactionCode,
		"custtype":      customerType,
	}

	url := cl.baseURL + desc.Path
	var payload []byte
	if desc.Method == http.MethodGet {
		if c.params != nil {
			values, err := query.Values(c.params)
			if err != nil {
				return nil, desc, errors.Wrap(err, "encoding query parameters")
			}
			url += "?" + values.Encode()
		}
	} else {
		if payload, err = json.Marshal(c.body); err != nil {
			return nil, desc, errors.Wrap(err, "encoding request body")
		}
		if c.action.Mutating() {
			hash, err := cl.signer.Sign(ctx, payload)
			if err != nil {
				return nil, desc, err
			}
			header["hashkey"] = hash
		}
	}

	start := time.Now()
	resp, err := cl.transport.Perform(ctx, transport.Request{
		Method: desc.Method,
		URL:    url,
		Header: header,
		Body:   payload,
	})
	took := time.Since(start)
	if err != nil {
		logging.LogAPICall(cl.logger, desc.Method, desc.Path, desc.TransactionCode, 0, took, err)
		cl.metrics.VenueRequest(ctx, string(e.class), string(c.action), telemetry.ResultError, took)
		return nil, desc, asTransportError(desc.Method, url, err)
	}
	logging.LogAPICall(cl.logger, desc.Method, desc.Path, desc.TransactionCode, resp.Status, took, nil)

	env, err := classifyResponse(resp.Status, resp.Body)
	if err != nil {
		if bf, ok := err.(*errors.BusinessFailure); ok {
			bf.TransactionCode = desc.TransactionCode
		}
		cl.metrics.VenueRequest(ctx, string(e.class), string(c.action), telemetry.ResultError, took)
		return nil, desc, err
	}
	cl.metrics.VenueRequest(ctx, string(e.class), string(c.action), telemetry.ResultSuccess, took)
	return env, desc, nil
}

func operationFor(a routing.Action) security.OperationType {
	switch a {
	case routing.Revise:
		return security.OpModifyOrder
	case routing.Cancel:
		return security.OpCancelOrder
	}
	return security.OpPlaceOrder
}

type orderOutput struct {
	OrderNo    string `json:"ODNO"`
	AltOrderNo string `json:"ORD_NO"`
	OrderTime  string `json:"ORD_TMD"`
	BranchNo   string `json:"KRX_FWDG_ORD_ORGNO"`
}

func (e *Endpoint) confirmation(env *Envelope, desc routing.Descriptor) (*models.Confirmation, error) {
	var out orderOutput
	if err := decodeObject(firstPresent(env.Output, env.Output1), &out); err != nil {
		return nil, err
	}
	id := out.OrderNo
	if id == "" {
		id = out.AltOrderNo
	}
	return &models.Confirmation{
		OrderID:         id,
		BranchNo:        out.BranchNo,
		OrderTime:       out.OrderTime,
		Message:         env.Message,
		TransactionCode: desc.TransactionCode,
		AssetClass:      e.class,
		Environment:     e.client.cred.Environment(),
	}, nil
}

func (e *Endpoint) auditOrder(ctx context.Context, event security.AuditEventType, action routing.Action,
	desc routing.Descriptor, symbol, orderID string, err error) {
	ev := security.AuditEvent{
		EventType:       event,
		AccountID:       e.client.cred.AccountID(),
		Environment:     string(e.client.cred.Environment()),
		AssetClass:      string(e.class),
		TransactionCode: desc.TransactionCode,
		Symbol:          symbol,
		OrderID:         orderID,
		Action:          string(action),
		Success:         err == nil,
	}
	if err != nil {
		ev.ErrorMsg = err.Error()
	}
	e.client.auditLog(ctx, ev)
}
