// Package publisher provides the audit sink used by workflow and decision
// services.
//
// Emission is fail-open: an audit write failure is logged and
// counted but never returned to the caller, so a degraded audit store can
// never block a workflow transition. The postgres outbox store underneath
// keeps delivery guaranteed once the write succeeds.
package publisher

import (
	"context"
	"log/slog"
	"time"

	audit "kycgate/pkg/platform/audit"
)

// Publisher records audit entries through a Store without ever failing the
// calling operation.
type Publisher struct {
	store   audit.Store
	logger  *slog.Logger
	metrics *Metrics
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets a logger for out-of-band failure reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// New creates an audit publisher backed by the given store.
func New(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit appends an entry to the audit store. Failures are swallowed and
// reported out-of-band; the caller's operation proceeds regardless.
func (p *Publisher) Emit(ctx context.Context, entry audit.Entry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if entry.Category == "" {
		entry.Category = audit.CategoryFor(entry.Action)
	}

	if err := p.store.Append(ctx, entry); err != nil {
		if p.metrics != nil {
			p.metrics.IncAppendFailures()
		}
		if p.logger != nil {
			p.logger.ErrorContext(ctx, "audit append failed",
				"action", entry.Action,
				"resource_type", entry.ResourceType,
				"resource_id", entry.ResourceID,
				"error", err,
			)
		}
		return
	}

	if p.metrics != nil {
		p.metrics.IncEntriesEmitted()
	}
}
