package audit

import (
	"regexp"
	"strings"
)

// RedactPlaceholder replaces sensitive values in persisted records.
const RedactPlaceholder = "[REDACTED]"

// builtinSensitiveKey matches parameter names that likely carry secrets,
// regardless of what the tool descriptor declares.
var builtinSensitiveKey = regexp.MustCompile(`(?i)(password|passwd|secret|token|api_?key|credential|authorization)`)

// bearerTokenPattern catches bearer tokens embedded in free-text summaries.
var bearerTokenPattern = regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9\-._~+/]+=*`)

// Redactor replaces sensitive fields with a fixed placeholder before
// persistence. Redaction is applied uniformly regardless of outcome so no
// field leaks through a failure path.
type Redactor struct{}

// NewRedactor creates a redactor with the builtin sensitive-key patterns.
func NewRedactor() *Redactor {
	return &Redactor{}
}

// RedactParams returns a deep copy of params with every field named in
// sensitive, and every field matching the builtin secret-key patterns,
// replaced by the placeholder. Nested maps are walked; the input map is
// never mutated.
func (r *Redactor) RedactParams(params map[string]any, sensitive []string) map[string]any {
	if params == nil {
		return nil
	}

	declared := make(map[string]struct{}, len(sensitive))
	for _, name := range sensitive {
		trimmed := strings.ToLower(strings.TrimSpace(name))
		if trimmed != "" {
			declared[trimmed] = struct{}{}
		}
	}

	return r.redactMap(params, declared)
}

func (r *Redactor) redactMap(params map[string]any, declared map[string]struct{}) map[string]any {
	out := make(map[string]any, len(params))
	for key, value := range params {
		if r.isSensitiveKey(key, declared) {
			out[key] = RedactPlaceholder
			continue
		}
		switch typed := value.(type) {
		case map[string]any:
			out[key] = r.redactMap(typed, declared)
		case []any:
			items := make([]any, len(typed))
			for i, item := range typed {
				if nested, ok := item.(map[string]any); ok {
					items[i] = r.redactMap(nested, declared)
				} else {
					items[i] = item
				}
			}
			out[key] = items
		default:
			out[key] = value
		}
	}
	return out
}

func (r *Redactor) isSensitiveKey(key string, declared map[string]struct{}) bool {
	if _, ok := declared[strings.ToLower(strings.TrimSpace(key))]; ok {
		return true
	}
	return builtinSensitiveKey.MatchString(key)
}

// RedactText removes obvious secrets from free-text result summaries and
// error details.
func (r *Redactor) RedactText(raw string) string {
	if raw == "" {
		return raw
	}
	return bearerTokenPattern.ReplaceAllString(raw, "Bearer "+RedactPlaceholder)
}
