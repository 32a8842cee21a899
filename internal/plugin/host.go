package plugin

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"kis-gateway/internal/errors"
	"kis-gateway/internal/kis"
	"kis-gateway/internal/logging"
	"kis-gateway/internal/models"
	"kis-gateway/internal/store"
	"kis-gateway/internal/transport"
)

// Config wires a Host to its collaborators.
type Config struct {
	Transport transport.Transport
	// Ledger records every submitted order. An in-memory ledger is opened
	// when nil.
	Ledger        store.OrderLedger
	Logger        zerolog.Logger
	ClientOptions []kis.Option
	Now           func() time.Time
}

// Host owns at most one venue client, created by the initialize operation.
type Host struct {
	transport  transport.Transport
	ledger     store.OrderLedger
	ownsLedger bool
	logger     zerolog.Logger
	clientOpts []kis.Option
	now        func() time.Time

	mu     sync.RWMutex
	client *kis.Client

	handlers map[string]func(context.Context, []byte) interface{}
}

// NewHost creates an uninitialized host.
func NewHost(cfg Config) (*Host, error) {
	if cfg.Transport == nil {
		return nil, errors.NewValidationError("transport", nil, "must not be nil")
	}
	h := &Host{
		transport:  cfg.Transport,
		ledger:     cfg.Ledger,
		logger:     cfg.Logger.With().Str("component", "plugin").Logger(),
		clientOpts: cfg.ClientOptions,
		now:        cfg.Now,
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.ledger == nil {
		ledger, err := store.NewSQLiteStore(store.MemoryPath)
		if err != nil {
			return nil, fmt.Errorf("opening order ledger: %w", err)
		}
		h.ledger = ledger
		h.ownsLedger = true
	}

	h.handlers = map[string]func(context.Context, []byte) interface{}{
		OpInitialize:   h.initialize,
		OpGetAccounts:  h.getAccounts,
		OpGetPositions: h.getPositions,
		OpSubmitOrder:  h.submitOrder,
		OpCancelOrder:  h.cancelOrder,
		OpGetOrders:    h.getOrders,
	}
	return h, nil
}

// Close releases the ledger if the host opened it.
func (h *Host) Close() error {
	if h.ownsLedger {
		return h.ledger.Close()
	}
	return nil
}

// Call runs one operation. Failures of the operation itself are reported
// inside the response; the returned error is only set for an unknown
// operation or a response that cannot be encoded.
func (h *Host) Call(ctx context.Context, op string, payload []byte) ([]byte, error) {
	handler, ok := h.handlers[op]
	if !ok {
		return nil, fmt.Errorf("unknown plugin operation %q", op)
	}
	return json.Marshal(handler(ctx, payload))
}

func decode(payload []byte, v interface{}) error {
	if len(strings.TrimSpace(string(payload))) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return errors.NewValidationError("payload", "", err.Error())
	}
	return nil
}

func (h *Host) current() *kis.Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.client
}

func (h *Host) initialize(ctx context.Context, payload []byte) interface{} {
	var req InitializeRequest
	if err := decode(payload, &req); err != nil {
		return InitializeResponse{Error: errorObject(err)}
	}
	if req.AppKey == "" || req.AppSecret == "" || req.AccountNo == "" {
		err := errors.NewValidationError("config", "", "missing required configuration: app_key, app_secret, or account_no")
		return InitializeResponse{Error: errorObject(err)}
	}

	env := models.Paper
	if req.IsPaper != nil && !*req.IsPaper {
		env = models.Live
	}
	cred, err := kis.NewCredential(req.AppKey, req.AppSecret, req.AccountNo, env)
	if err != nil {
		return InitializeResponse{Error: errorObject(err)}
	}

	client := kis.NewClient(cred, h.transport, h.clientOpts...)
	h.mu.Lock()
	h.client = client
	h.mu.Unlock()

	h.logger.Info().Str("credential", cred.String()).Msg("KIS broker initialized")

	label := "paper"
	if env == models.Live {
		label = "production"
	}
	return InitializeResponse{Success: true, Message: fmt.Sprintf("Initialized KIS broker (%s)", label)}
}

func (h *Host) getAccounts(ctx context.Context, payload []byte) interface{} {
	client := h.current()
	if client == nil {
		return GetAccountsResponse{Accounts: []Account{}, Error: errorObject(errors.ErrNotInitialized)}
	}
	cred := client.Credential()
	paper := client.Environment() == models.Paper

	name := "KIS Live Account"
	if paper {
		name = "KIS Paper Account"
	}
	account := Account{
		ID:        cred.AccountPrefix() + cred.AccountSuffix(),
		Name:      name,
		BrokerID:  BrokerID,
		IsPaper:   paper,
		Balance:   AccountBalance{Currency: "KRW"},
		Positions: []Position{},
		UpdatedAt: h.now().UTC(),
	}

	bal, err := domesticBalance(ctx, client)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to fetch balance")
		return GetAccountsResponse{Accounts: []Account{account}, Error: errorObject(err)}
	}

	sum := bal.Summary
	locked := sum.Deposit.Sub(sum.AvailableCash)
	if locked.IsNegative() {
		locked = decimal.Zero
	}
	account.Balance = AccountBalance{
		Currency:      "KRW",
		TotalEquity:   sum.TotalEquity,
		AvailableCash: sum.AvailableCash,
		BuyingPower:   sum.AvailableCash,
		LockedCash:    locked,
	}
	account.Positions = positionsOf(account.ID, bal)
	return GetAccountsResponse{Accounts: []Account{account}}
}

func (h *Host) getPositions(ctx context.Context, payload []byte) interface{} {
	var req GetPositionsRequest
	if err := decode(payload, &req); err != nil {
		return GetPositionsResponse{Positions: []Position{}, Error: errorObject(err)}
	}
	client := h.current()
	if client == nil {
		return GetPositionsResponse{Positions: []Position{}, Error: errorObject(errors.ErrNotInitialized)}
	}
	cred := client.Credential()
	if !cred.MatchesAccount(req.AccountID) {
		err := errors.NewValidationError("account_id", req.AccountID, "does not match the initialized account")
		return GetPositionsResponse{Positions: []Position{}, Error: errorObject(err)}
	}

	bal, err := domesticBalance(ctx, client)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to fetch positions")
		return GetPositionsResponse{Positions: []Position{}, Error: errorObject(err)}
	}
	return GetPositionsResponse{Positions: positionsOf(cred.AccountPrefix()+cred.AccountSuffix(), bal)}
}

func domesticBalance(ctx context.Context, client *kis.Client) (*models.Balance, error) {
	ep, err := client.Endpoint(models.DomesticEquity)
	if err != nil {
		return nil, err
	}
	return ep.Balance(ctx)
}

func positionsOf(accountID string, bal *models.Balance) []Position {
	out := make([]Position, 0, len(bal.Positions))
	for _, p := range bal.Positions {
		out = append(out, Position{
			SymbolID:             p.Symbol,
			AccountID:            accountID,
			Name:                 p.Name,
			Quantity:             p.Quantity,
			AvgPrice:             p.AveragePrice,
			CurrentPrice:         p.CurrentPrice,
			MarketValue:          p.MarketValue,
			UnrealizedPnL:        p.ProfitLoss,
			UnrealizedPnLPercent: p.ProfitLossRate,
		})
	}
	return out
}

// orderRequest maps the host's order onto a domestic equity order.
func orderRequest(p OrderParams) (models.OrderRequest, error) {
	req := models.OrderRequest{
		AssetClass: models.DomesticEquity,
		Symbol:     strings.TrimSpace(p.SymbolID),
	}

	switch strings.ToLower(p.Side) {
	case "buy":
		req.Side = models.Buy
	case "sell":
		req.Side = models.Sell
	default:
		return req, errors.NewValidationError("side", p.Side, "must be buy or sell")
	}

	if !p.Quantity.IsPositive() || !p.Quantity.IsInteger() {
		return req, errors.NewValidationError("quantity", p.Quantity, "must be a positive whole number")
	}
	req.Quantity = p.Quantity.IntPart()

	switch strings.ToLower(p.OrderType) {
	case "market":
		req.PriceKind = models.Market
	case "limit":
		if p.LimitPrice == nil {
			return req, errors.NewValidationError("limit_price", nil, "required for limit orders")
		}
		req.PriceKind = models.Limit
		req.Price = *p.LimitPrice
	default:
		return req, errors.NewValidationError("order_type", p.OrderType, "must be market or limit")
	}
	return req, nil
}

func (h *Host) submitOrder(ctx context.Context, payload []byte) interface{} {
	var req SubmitOrderRequest
	decodeErr := decode(payload, &req)

	now := h.now().UTC()
	order := Order{Request: req.Order, CreatedAt: now, UpdatedAt: now}
	entry := &models.LedgerOrder{
		AssetClass: models.DomesticEquity,
		Symbol:     req.Order.SymbolID,
		Side:       models.Side(strings.ToLower(req.Order.Side)),
		Kind:       models.PriceKind(strings.ToLower(req.Order.OrderType)),
		Quantity:   req.Order.Quantity.IntPart(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if req.Order.LimitPrice != nil {
		entry.Price = *req.Order.LimitPrice
	}

	reject := func(err error) interface{} {
		obj := errorObject(err)
		order.ID = "error_" + uuid.NewString()
		order.Status = models.StatusRejected
		order.Extensions = map[string]string{"error": obj.Message}
		entry.ID = order.ID
		entry.Status = models.StatusRejected
		entry.Message = obj.Message
		h.record(ctx, entry)
		logging.LogOrder(h.logger, order.ID, entry.Symbol, "submit", order.Status)
		return SubmitOrderResponse{Order: order, Error: obj}
	}

	if decodeErr != nil {
		return reject(decodeErr)
	}
	client := h.current()
	if client == nil {
		return reject(errors.ErrNotInitialized)
	}
	entry.Environment = client.Environment()

	orderReq, err := orderRequest(req.Order)
	if err != nil {
		return reject(err)
	}
	ep, err := client.Endpoint(models.DomesticEquity)
	if err != nil {
		return reject(err)
	}
	conf, err := ep.PlaceOrder(ctx, orderReq)
	if err != nil {
		return reject(err)
	}

	order.ID = conf.OrderID
	if order.ID == "" {
		order.ID = "kr_" + uuid.NewString()
	}
	order.Status = models.StatusSubmitted
	order.Extensions = map[string]string{"kis_tr_id": conf.TransactionCode}
	if conf.OrderTime != "" {
		order.Extensions["kis_order_time"] = conf.OrderTime
	}
	if conf.BranchNo != "" {
		order.Extensions["kis_branch_no"] = conf.BranchNo
	}

	entry.ID = order.ID
	entry.BranchNo = conf.BranchNo
	entry.Status = models.StatusSubmitted
	entry.TransactionCode = conf.TransactionCode
	entry.Message = conf.Message
	h.record(ctx, entry)
	logging.LogOrder(h.logger, order.ID, entry.Symbol, "submit", order.Status)

	return SubmitOrderResponse{Order: order}
}

func (h *Host) record(ctx context.Context, entry *models.LedgerOrder) {
	if err := h.ledger.SaveOrder(ctx, entry); err != nil {
		h.logger.Error().Err(err).Str("order_id", entry.ID).Msg("Failed to record order in ledger")
	}
}

func (h *Host) cancelOrder(ctx context.Context, payload []byte) interface{} {
	var req CancelOrderRequest
	if err := decode(payload, &req); err != nil {
		return CancelOrderResponse{Error: errorObject(err)}
	}
	resp := CancelOrderResponse{OrderID: req.OrderID}

	client := h.current()
	if client == nil {
		resp.Error = errorObject(errors.ErrNotInitialized)
		return resp
	}
	if req.OrderID == "" {
		resp.Error = errorObject(errors.NewValidationError("order_id", "", "must not be empty"))
		return resp
	}

	entry, err := h.ledger.GetOrder(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, errors.ErrOrderNotFound) {
			err = errors.NewValidationError("order_id", req.OrderID, "not found in the order ledger")
		}
		resp.Error = errorObject(err)
		return resp
	}
	resp.Status = entry.Status

	switch {
	case entry.Status == models.StatusRejected || entry.Status == models.StatusCancelled:
		resp.Error = errorObject(errors.NewValidationError("order_id", req.OrderID, "order is "+entry.Status))
		return resp
	case entry.Environment != client.Environment():
		resp.Error = errorObject(errors.NewValidationError("order_id", req.OrderID,
			fmt.Sprintf("order was placed in %s, client is %s", entry.Environment, client.Environment())))
		return resp
	}

	ep, err := client.Endpoint(entry.AssetClass)
	if err != nil {
		resp.Error = errorObject(err)
		return resp
	}
	conf, err := ep.Cancel(ctx, entry.Ref(), entry.Quantity)
	if err != nil {
		resp.Error = errorObject(err)
		return resp
	}

	if err := h.ledger.UpdateOrderStatus(ctx, entry.ID, models.StatusCancelled, conf.Message); err != nil {
		h.logger.Error().Err(err).Str("order_id", entry.ID).Msg("Failed to update ledger")
	}
	logging.LogOrder(h.logger, entry.ID, entry.Symbol, "cancel", models.StatusCancelled)

	resp.Status = models.StatusCancelled
	resp.Message = conf.Message
	return resp
}

func (h *Host) getOrders(ctx context.Context, payload []byte) interface{} {
	var req GetOrdersRequest
	if err := decode(payload, &req); err != nil {
		return GetOrdersResponse{Orders: []LedgerEntry{}, Error: errorObject(err)}
	}

	orders, err := h.ledger.ListOrders(ctx, store.OrderFilter{Status: req.Status, Limit: req.Limit})
	if err != nil {
		return GetOrdersResponse{Orders: []LedgerEntry{}, Error: errorObject(err)}
	}

	out := make([]LedgerEntry, 0, len(orders))
	for _, o := range orders {
		out = append(out, LedgerEntry{
			ID:        o.ID,
			SymbolID:  o.Symbol,
			Side:      string(o.Side),
			OrderType: string(o.Kind),
			Quantity:  o.Quantity,
			Price:     o.Price,
			Status:    o.Status,
			Message:   o.Message,
			CreatedAt: o.CreatedAt,
			UpdatedAt: o.UpdatedAt,
		})
	}
	return GetOrdersResponse{Orders: out}
}
