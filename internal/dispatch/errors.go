package dispatch

// Kind classifies why an invocation was refused or failed.
type Kind string

const (
	KindUnauthenticated  Kind = "unauthenticated"
	KindUnauthorized     Kind = "unauthorized"
	KindInvalidInput     Kind = "invalid_input"
	KindUnsafeQuery      Kind = "unsafe_query"
	KindExecutionFailure Kind = "execution_failure"
	KindInvalidOutput    Kind = "invalid_output"
	KindAuditUnavailable Kind = "audit_unavailable"
	KindTimeout          Kind = "timeout"
)

// Error is the dispatcher's terminal error: a stable kind for programmatic
// handling plus a safe, category-level message.
type Error struct {
	Kind    Kind
	Message string
}

// Error implements error.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func newError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}
