package security

import (
	"context"
	"sync/atomic"

	"kis-gateway/internal/errors"
)

// OperationType names a venue call that changes order state.
type OperationType string

const (
	OpPlaceOrder  OperationType = "PLACE_ORDER"
	OpModifyOrder OperationType = "MODIFY_ORDER"
	OpCancelOrder OperationType = "CANCEL_ORDER"
)

// Mutation is an order call about to be sent to the venue.
type Mutation struct {
	Operation   OperationType
	AssetClass  string
	Environment string
	Symbol      string
}

// AccessController refuses every Mutation while read-only mode is on.
// Queries never reach it.
type AccessController struct {
	readOnly atomic.Bool
	audit    *AuditLogger
}

// NewAccessController creates an access controller. audit may be nil.
func NewAccessController(readOnly bool, audit *AuditLogger) *AccessController {
	ac := &AccessController{audit: audit}
	ac.readOnly.Store(readOnly)
	return ac
}

// IsReadOnly reports whether mutations are currently refused.
func (ac *AccessController) IsReadOnly() bool {
	return ac.readOnly.Load()
}

// SetReadOnly switches read-only mode.
func (ac *AccessController) SetReadOnly(readOnly bool) {
	ac.readOnly.Store(readOnly)
}

// Authorize returns a SecurityError wrapping ErrReadOnlyMode when m must
// not be sent. Refusals are written to the audit log.
func (ac *AccessController) Authorize(ctx context.Context, m Mutation) error {
	if !ac.readOnly.Load() {
		return nil
	}
	if ac.audit != nil {
		_ = ac.audit.Log(ctx, AuditEvent{
			EventType:   AuditReadOnlyViolation,
			Environment: m.Environment,
			AssetClass:  m.AssetClass,
			Symbol:      m.Symbol,
			Action:      string(m.Operation),
			ErrorMsg:    "operation blocked: read-only mode enabled",
		})
	}
	return errors.NewSecurityError(string(m.Operation), "read-only mode is enabled", errors.ErrReadOnlyMode)
}
