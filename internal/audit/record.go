// Package audit provides the append-only, queryable invocation trail.
// Every dispatch attempt, granted or denied, produces exactly one record.
package audit

import (
	"context"
	"errors"
	"time"
)

// Outcome classifies how a dispatch attempt ended.
type Outcome string

// Outcome values. Denied outcomes mean a gate rejected the call before the
// tool body ran; granted-failure means all gates passed but execution or
// output validation failed.
const (
	OutcomeGrantedSuccess     Outcome = "granted-success"
	OutcomeGrantedFailure     Outcome = "granted-failure"
	OutcomeDeniedUnauthorized Outcome = "denied-unauthorized"
	OutcomeDeniedInvalidInput Outcome = "denied-invalid-input"
	OutcomeDeniedUnsafeQuery  Outcome = "denied-unsafe-query"
)

// UnknownPrincipal marks records for calls whose credential never resolved.
// The presented credential itself is never written.
const UnknownPrincipal = "unknown"

// ErrUnavailable indicates the durable store rejected or could not
// acknowledge a write. Callers must treat the overall call as failed.
var ErrUnavailable = errors.New("audit store unavailable")

// Record is one immutable audit entry. The store assigns the identifier in
// call-arrival order per principal; records are never mutated or deleted.
type Record struct {
	ID            int64          `json:"id"`
	Timestamp     time.Time      `json:"timestamp"`
	Principal     string         `json:"principal"`
	Role          string         `json:"role"`
	Tool          string         `json:"tool"`
	Input         map[string]any `json:"input,omitempty"`
	Outcome       Outcome        `json:"outcome"`
	ErrorCode     string         `json:"error_code,omitempty"`
	ResultSummary string         `json:"result_summary,omitempty"`
	LatencyMS     float64        `json:"latency_ms"`
}

// Filter selects records for Query. All set fields are combined with AND.
type Filter struct {
	Principal string
	Tool      string
	Outcome   string
	From      time.Time
	To        time.Time
	Limit     int
}

// Store persists invocation records. Append must be atomic with respect to
// concurrent appends and durable on acknowledge; Query returns records
// ordered by timestamp descending.
type Store interface {
	Append(ctx context.Context, record Record) (int64, error)
	Query(ctx context.Context, filter Filter) ([]Record, error)
	Close() error
}
