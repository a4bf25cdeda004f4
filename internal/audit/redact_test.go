package audit

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRedactParams_BuiltinSensitiveKeys(t *testing.T) {
	redactor := NewRedactor()
	out := redactor.RedactParams(map[string]any{
		"query":   "SELECT 1",
		"apiKey":  "sk-12345",
		"api_key": "sk-67890",
		"token":   "abc",
	}, nil)

	require.Equal(t, "SELECT 1", out["query"])
	require.Equal(t, RedactPlaceholder, out["apiKey"])
	require.Equal(t, RedactPlaceholder, out["api_key"])
	require.Equal(t, RedactPlaceholder, out["token"])
}

func TestRedactParams_DeclaredSensitiveFields(t *testing.T) {
	redactor := NewRedactor()
	out := redactor.RedactParams(map[string]any{
		"location": "Berlin",
		"contact":  "someone@example.com",
	}, []string{"contact"})

	require.Equal(t, "Berlin", out["location"])
	require.Equal(t, RedactPlaceholder, out["contact"])
}

func TestRedactParams_WalksNestedMaps(t *testing.T) {
	redactor := NewRedactor()
	out := redactor.RedactParams(map[string]any{
		"options": map[string]any{
			"password": "hunter2",
			"depth":    "basic",
		},
		"targets": []any{
			map[string]any{"secret": "x"},
			"plain",
		},
	}, nil)

	options := out["options"].(map[string]any)
	require.Equal(t, RedactPlaceholder, options["password"])
	require.Equal(t, "basic", options["depth"])

	targets := out["targets"].([]any)
	require.Equal(t, RedactPlaceholder, targets[0].(map[string]any)["secret"])
	require.Equal(t, "plain", targets[1])
}

func TestRedactParams_DoesNotMutateInput(t *testing.T) {
	redactor := NewRedactor()
	in := map[string]any{"token": "abc"}
	_ = redactor.RedactParams(in, nil)
	require.Equal(t, "abc", in["token"])
}

func TestRedactText_StripsBearerTokens(t *testing.T) {
	redactor := NewRedactor()
	out := redactor.RedactText("upstream said: Authorization: Bearer abc.def.ghi failed")
	require.NotContains(t, out, "abc.def.ghi")
	require.Contains(t, out, RedactPlaceholder)
}
