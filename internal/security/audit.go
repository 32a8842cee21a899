// Package security provides audit logging, read-only enforcement and
// credential masking.
package security

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// AuditEventType represents the type of audit event.
type AuditEventType string

const (
	AuditTokenIssued AuditEventType = "TOKEN_ISSUED"
	AuditAuthFailed  AuditEventType = "AUTH_FAILED"

	AuditOrderPlaced    AuditEventType = "ORDER_PLACED"
	AuditOrderRevised   AuditEventType = "ORDER_REVISED"
	AuditOrderCancelled AuditEventType = "ORDER_CANCELLED"
	AuditOrderRejected  AuditEventType = "ORDER_REJECTED"

	AuditReadOnlyViolation AuditEventType = "READ_ONLY_VIOLATION"
)

// AuditEvent is one line of the audit log. Secrets never appear in it:
// the account is the only credential field and it is not a secret.
type AuditEvent struct {
	Timestamp       time.Time         `json:"timestamp"`
	EventType       AuditEventType    `json:"event_type"`
	AccountID       string            `json:"account_id,omitempty"`
	Environment     string            `json:"environment,omitempty"`
	AssetClass      string            `json:"asset_class,omitempty"`
	TransactionCode string            `json:"tr_id,omitempty"`
	Symbol          string            `json:"symbol,omitempty"`
	OrderID         string            `json:"order_id,omitempty"`
	Action          string            `json:"action,omitempty"`
	Details         map[string]string `json:"details,omitempty"`
	Success         bool              `json:"success"`
	ErrorMsg        string            `json:"error,omitempty"`
	SessionID       string            `json:"session_id,omitempty"`
}

// AuditLogger writes AuditEvents as JSON lines. Every event of one process
// carries the same session id.
type AuditLogger struct {
	log       zerolog.Logger
	closer    io.Closer
	sessionID string
	now       func() time.Time
}

// AuditConfig holds audit logger configuration.
type AuditConfig struct {
	Path       string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
}

// DefaultAuditConfig keeps a year of rotated audit files under the
// gateway's config directory.
func DefaultAuditConfig() AuditConfig {
	home, _ := os.UserHomeDir()
	return AuditConfig{
		Path:       filepath.Join(home, ".config", "kis-gateway", "logs", "audit.log"),
		MaxSize:    50,
		MaxBackups: 30,
		MaxAge:     365,
	}
}

// NewAuditLogger creates an audit logger backed by a rotating file.
func NewAuditLogger(cfg AuditConfig) (*AuditLogger, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0700); err != nil {
		return nil, fmt.Errorf("creating audit directory: %w", err)
	}
	file := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   true,
	}
	al := NewAuditLoggerWriter(file)
	al.closer = file
	return al, nil
}

// NewAuditLoggerWriter creates an audit logger writing to w.
func NewAuditLoggerWriter(w io.Writer) *AuditLogger {
	return &AuditLogger{
		log:       zerolog.New(w),
		sessionID: uuid.NewString(),
		now:       time.Now,
	}
}

// SessionID returns the identifier stamped on every event of this process.
func (al *AuditLogger) SessionID() string {
	return al.sessionID
}

// Log writes event, stamping its time and session id.
func (al *AuditLogger) Log(ctx context.Context, event AuditEvent) error {
	e := al.log.Log().
		Time("timestamp", al.now().UTC()).
		Str("event_type", string(event.EventType)).
		Bool("success", event.Success).
		Str("session_id", al.sessionID)

	for k, v := range map[string]string{
		"account_id":  event.AccountID,
		"environment": event.Environment,
		"asset_class": event.AssetClass,
		"tr_id":       event.TransactionCode,
		"symbol":      event.Symbol,
		"order_id":    event.OrderID,
		"action":      event.Action,
		"error":       event.ErrorMsg,
	} {
		if v != "" {
			e = e.Str(k, v)
		}
	}
	if len(event.Details) > 0 {
		e = e.Fields(map[string]interface{}{"details": event.Details})
	}
	e.Send()
	return nil
}

// Close closes the underlying file, if any.
func (al *AuditLogger) Close() error {
	if al.closer != nil {
		return al.closer.Close()
	}
	return nil
}
