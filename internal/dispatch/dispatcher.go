// Package dispatch sequences the gates every tool invocation passes through:
// identity, authorization, input validation, query safety, execution, output
// validation, and audit. No gate is skippable and every invocation produces
// exactly one audit record.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/opsgate/opsgate/internal/audit"
	"github.com/opsgate/opsgate/internal/auth"
	"github.com/opsgate/opsgate/internal/policy"
	"github.com/opsgate/opsgate/internal/sqlguard"
	"github.com/opsgate/opsgate/internal/telemetry"
	"github.com/opsgate/opsgate/internal/tools"
)

// DefaultToolTimeout bounds a single tool execution.
const DefaultToolTimeout = 30 * time.Second

// auditWriteTimeout bounds the audit write itself. The write is detached from
// the caller's context so an expired call deadline cannot suppress the record.
const auditWriteTimeout = 5 * time.Second

// Config wires a Dispatcher.
type Config struct {
	Resolver *auth.Resolver
	Registry *tools.Registry
	Policy   *policy.Table
	Trail    *audit.Trail
	Metrics  *telemetry.Metrics
	Logger   zerolog.Logger

	// ToolTimeout bounds handler execution; zero means DefaultToolTimeout.
	ToolTimeout time.Duration
}

// Dispatcher runs the invocation pipeline.
type Dispatcher struct {
	resolver    *auth.Resolver
	registry    *tools.Registry
	policy      *policy.Table
	trail       *audit.Trail
	metrics     *telemetry.Metrics
	logger      zerolog.Logger
	toolTimeout time.Duration
}

// New creates a dispatcher.
func New(cfg Config) *Dispatcher {
	timeout := cfg.ToolTimeout
	if timeout <= 0 {
		timeout = DefaultToolTimeout
	}
	return &Dispatcher{
		resolver:    cfg.Resolver,
		registry:    cfg.Registry,
		policy:      cfg.Policy,
		trail:       cfg.Trail,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger.With().Str("component", "dispatch").Logger(),
		toolTimeout: timeout,
	}
}

// Dispatch runs one tool invocation end to end and returns the tool result
// or a terminal Error. The audit record is written before any success is
// reported; if that write fails the invocation fails with
// KindAuditUnavailable regardless of what the tool produced.
func (d *Dispatcher) Dispatch(ctx context.Context, credential, toolName string, args map[string]any) (map[string]any, *Error) {
	start := time.Now()

	record := audit.Record{
		Principal: audit.UnknownPrincipal,
		Tool:      toolName,
		Input:     args,
	}
	var sensitiveFields []string

	finish := func(result map[string]any, invErr *Error) (map[string]any, *Error) {
		record.LatencyMS = float64(time.Since(start).Microseconds()) / 1000
		auditCtx, cancelAudit := context.WithTimeout(context.WithoutCancel(ctx), auditWriteTimeout)
		defer cancelAudit()
		if _, err := d.trail.Record(auditCtx, record, sensitiveFields); err != nil {
			d.metrics.ObserveInvocation(toolName, string(record.Outcome), time.Since(start).Seconds())
			return nil, newError(KindAuditUnavailable, "audit trail unavailable")
		}
		d.metrics.ObserveInvocation(toolName, string(record.Outcome), time.Since(start).Seconds())
		return result, invErr
	}

	// Gate 1: identity.
	principal, err := d.resolver.Resolve(credential)
	if err != nil {
		record.Outcome = audit.OutcomeDeniedUnauthorized
		record.ErrorCode = string(KindUnauthenticated)
		return finish(nil, newError(KindUnauthenticated, safeAuthMessage(err)))
	}
	record.Principal = principal.ID
	record.Role = string(principal.Role)

	// Gate 2: authorization. An unknown tool is refused with the same
	// message as a known-but-forbidden one so probing reveals nothing; the
	// audit record still names what was asked for.
	descriptor, known := d.registry.Lookup(toolName)
	if !known || !d.policy.IsPermitted(toolName, principal.Role) {
		record.Outcome = audit.OutcomeDeniedUnauthorized
		record.ErrorCode = string(KindUnauthorized)
		return finish(nil, newError(KindUnauthorized, fmt.Sprintf("tool %q is not permitted", toolName)))
	}
	sensitiveFields = descriptor.SensitiveFields

	// Gate 3: input shape.
	if err := descriptor.ValidateInput(args); err != nil {
		record.Outcome = audit.OutcomeDeniedInvalidInput
		record.ErrorCode = string(KindInvalidInput)
		return finish(nil, newError(KindInvalidInput, fmt.Sprintf("invalid input: %v", err)))
	}

	// Gate 4: query safety, only for tools that carry raw SQL.
	if descriptor.QueryField != "" {
		queryText, _ := args[descriptor.QueryField].(string)
		if err := sqlguard.Validate(queryText); err != nil {
			record.Outcome = audit.OutcomeDeniedUnsafeQuery
			record.ErrorCode = string(KindUnsafeQuery)
			record.Input = filteredQueryInput(args, descriptor.QueryField)
			return finish(nil, newError(KindUnsafeQuery, err.Error()))
		}
	}

	// Gate 5: execution under the tool timeout.
	execCtx, cancel := context.WithTimeout(ctx, d.toolTimeout)
	defer cancel()
	result, execErr := descriptor.Execute(execCtx, args)
	if execErr != nil {
		record.Outcome = audit.OutcomeGrantedFailure
		kind := KindExecutionFailure
		message := execErr.Error()
		if errors.Is(execErr, context.DeadlineExceeded) && execCtx.Err() != nil {
			kind = KindTimeout
			message = "tool execution timed out"
		}
		record.ErrorCode = string(kind)
		record.ResultSummary = message
		d.logger.Warn().Err(execErr).Str("tool", toolName).Str("principal", principal.ID).Msg("tool execution failed")
		return finish(nil, newError(kind, message))
	}

	// Gate 6: output shape.
	if err := descriptor.ValidateOutput(result); err != nil {
		record.Outcome = audit.OutcomeGrantedFailure
		record.ErrorCode = string(KindInvalidOutput)
		record.ResultSummary = "tool produced malformed output"
		d.logger.Error().Err(err).Str("tool", toolName).Msg("output schema violation")
		return finish(nil, newError(KindInvalidOutput, "tool produced malformed output"))
	}

	record.Outcome = audit.OutcomeGrantedSuccess
	record.ResultSummary = d.trail.SummarizeResult(result, sensitiveFields)
	return finish(result, nil)
}

// safeAuthMessage keeps credential material out of responses.
func safeAuthMessage(err error) string {
	if errors.Is(err, auth.ErrUnauthenticated) {
		return err.Error()
	}
	return "authentication failed"
}

// filteredQueryInput replaces a rejected query with a marker so the raw text
// of a hostile statement is never persisted.
func filteredQueryInput(args map[string]any, queryField string) map[string]any {
	filtered := make(map[string]any, len(args))
	for key, value := range args {
		filtered[key] = value
	}
	filtered[queryField] = "[REJECTED QUERY]"
	return filtered
}
