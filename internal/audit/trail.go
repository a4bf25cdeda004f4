package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

// maxResultSummaryLen bounds persisted result summaries.
const maxResultSummaryLen = 1000

// Trail owns the invocation record lifecycle: redaction, persistence, and
// filtered retrieval. The dispatcher only submits records; it never reads or
// rewrites them.
type Trail struct {
	store    Store
	redactor *Redactor
	logger   zerolog.Logger
	now      func() time.Time
}

// TrailConfig configures a Trail.
type TrailConfig struct {
	Store    Store
	Redactor *Redactor
	Logger   zerolog.Logger

	// Now overrides time.Now for testing.
	Now func() time.Time
}

// NewTrail creates a trail over the given store.
func NewTrail(cfg TrailConfig) *Trail {
	redactor := cfg.Redactor
	if redactor == nil {
		redactor = NewRedactor()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Trail{
		store:    cfg.Store,
		redactor: redactor,
		logger:   cfg.Logger.With().Str("component", "audit").Logger(),
		now:      now,
	}
}

// Record redacts and persists one invocation record, returning the assigned
// identifier. Sensitive names the tool descriptor declares are redacted on
// top of the builtin secret-key patterns; the summary is redacted and
// truncated. A store failure is reported, never swallowed.
func (t *Trail) Record(ctx context.Context, record Record, sensitiveFields []string) (int64, error) {
	if record.Timestamp.IsZero() {
		record.Timestamp = t.now().UTC()
	}
	record.Input = t.redactor.RedactParams(record.Input, sensitiveFields)
	record.ResultSummary = truncateSummary(t.redactor.RedactText(record.ResultSummary))

	id, err := t.store.Append(ctx, record)
	if err != nil {
		t.logger.Error().Err(err).Str("tool", record.Tool).Msg("audit append failed")
		return 0, fmt.Errorf("recording invocation: %w", err)
	}

	t.logger.Info().
		Int64("audit_id", id).
		Str("principal", record.Principal).
		Str("role", record.Role).
		Str("tool", record.Tool).
		Str("outcome", string(record.Outcome)).
		Float64("latency_ms", record.LatencyMS).
		Msg("invocation recorded")
	return id, nil
}

// SummarizeResult redacts descriptor-marked and builtin sensitive fields in a
// tool result and serializes it for the record's result summary. Redaction
// happens on the structured result, before flattening, so a marked field
// never reaches the stored string.
func (t *Trail) SummarizeResult(result map[string]any, sensitiveFields []string) string {
	encoded, err := json.Marshal(t.redactor.RedactParams(result, sensitiveFields))
	if err != nil {
		return "unserializable result"
	}
	return string(encoded)
}

// Query returns records matching filter, newest first.
func (t *Trail) Query(ctx context.Context, filter Filter) ([]Record, error) {
	return t.store.Query(ctx, filter)
}

// Close flushes and closes the underlying store.
func (t *Trail) Close() error {
	return t.store.Close()
}

func truncateSummary(s string) string {
	if len(s) <= maxResultSummaryLen {
		return s
	}
	// Never cut in the middle of a rune.
	cut := maxResultSummaryLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
