package kis

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"kis-gateway/internal/security"
	"kis-gateway/internal/telemetry"
)

// AuditSink receives audit events for token and order activity.
type AuditSink interface {
	Log(ctx context.Context, event security.AuditEvent) error
}

// AccessChecker decides whether a mutating call may be sent.
type AccessChecker interface {
	Authorize(ctx context.Context, m security.Mutation) error
}

type settings struct {
	now     func() time.Time
	logger  zerolog.Logger
	audit   AuditSink
	access  AccessChecker
	metrics *telemetry.Instruments
}

func defaultSettings() settings {
	return settings{
		now:    time.Now,
		logger: zerolog.Nop(),
	}
}

// Option configures a Client, SessionManager or Signer.
type Option func(*settings)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithAudit sets the audit sink.
func WithAudit(sink AuditSink) Option {
	return func(s *settings) {
		s.audit = sink
	}
}

// WithAccessChecker sets the read-only guard consulted before mutating calls.
func WithAccessChecker(ac AccessChecker) Option {
	return func(s *settings) {
		s.access = ac
	}
}

// WithMetrics sets the metric instruments.
func WithMetrics(in *telemetry.Instruments) Option {
	return func(s *settings) {
		s.metrics = in
	}
}

func (s *settings) auditLog(ctx context.Context, event security.AuditEvent) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Log(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("event_type", string(event.EventType)).Msg("Failed to write audit event")
	}
}
