// Package audit is the append-only record of principal actions. Writes are
// best-effort relative to the triggering business action: the action never
// fails because its audit write did, but every failed write is logged,
// counted, and surfaced to the caller as an explicit result value.
package audit

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"clinicore/internal/audit/metrics"
	"clinicore/pkg/domain"
	"clinicore/pkg/requestcontext"
)

var tracer = otel.Tracer("clinicore/audit")

// Publisher fans audit entries out to the observability stream. Optional;
// publish failures never affect the durable write.
type Publisher interface {
	Publish(ctx context.Context, entry Entry) error
}

// WriteResult distinguishes "action completed, audit write ok" from "action
// completed, audit write failed". Callers that must react to audit gaps
// check Err; everyone else can ignore the result because the failure has
// already been logged and counted.
type WriteResult struct {
	Entry Entry
	Err   error
}

// Ok reports whether the entry was durably recorded.
func (r WriteResult) Ok() bool { return r.Err == nil }

// Service records and queries audit entries.
type Service struct {
	store     Store
	publisher Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher attaches an event-stream publisher for fan-out.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func NewService(st Store, logger *slog.Logger, m *metrics.Metrics, opts ...Option) *Service {
	s := &Service{store: st, logger: logger, metrics: m}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record appends one entry for a completed action. The write is attempted
// twice at most; a second failure is reported through logs, metrics, and the
// returned WriteResult, never as an error the end user sees.
func (s *Service) Record(ctx context.Context, userID, action string, payload Payload) WriteResult {
	ctx, span := tracer.Start(ctx, "audit.record")
	defer span.End()

	entry := Entry{
		ID:        uuid.New(),
		UserID:    userID,
		Action:    action,
		Payload:   withClientMetadata(ctx, payload),
		CreatedAt: requestcontext.Now(ctx),
	}

	err := s.store.Append(ctx, entry)
	if err != nil {
		s.metrics.IncrementWriteRetries()
		// Append is idempotent on entry ID, so a blind retry is safe.
		err = s.store.Append(ctx, entry)
	}
	if err != nil {
		s.metrics.IncrementWriteFailures()
		s.logger.ErrorContext(ctx, "audit write failed",
			"action", action,
			"user_id", userID,
			"entry_id", entry.ID,
			"error", err,
		)
		return WriteResult{Entry: entry, Err: err}
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, entry); err != nil {
			s.metrics.IncrementPublishDrops()
			s.logger.WarnContext(ctx, "audit publish failed",
				"entry_id", entry.ID,
				"error", err,
			)
		}
	}

	return WriteResult{Entry: entry}
}

// Query returns the most recent entries visible to the principal, newest
// first. Administrators see all entries; everyone else sees only their own.
// The limit is clamped to MaxPageSize; non-positive limits get the full page.
func (s *Service) Query(ctx context.Context, principal domain.Principal, limit int) ([]Entry, error) {
	if limit <= 0 || limit > MaxPageSize {
		limit = MaxPageSize
	}
	return s.store.List(ctx, scopeFor(principal), limit)
}

// scopeFor is the single place role scoping happens. Every query path goes
// through it, so a new call site cannot forget to filter: non-administrators
// can only ever produce a scope restricted to themselves.
func scopeFor(principal domain.Principal) Scope {
	if principal.IsAdmin() {
		return ScopeAll()
	}
	return ScopeUser(principal.ID)
}

// withClientMetadata folds request metadata into the payload when present.
// The copy keeps the caller's map untouched.
func withClientMetadata(ctx context.Context, payload Payload) Payload {
	ip := requestcontext.ClientIP(ctx)
	ua := requestcontext.UserAgent(ctx)
	if ip == "" && ua == "" {
		return payload
	}

	merged := make(Payload, len(payload)+2)
	for k, v := range payload {
		merged[k] = v
	}
	if ip != "" {
		merged["client_ip"] = ip
	}
	if ua != "" {
		merged["user_agent"] = ua
	}
	return merged
}
