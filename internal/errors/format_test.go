package errors

import (
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatForCLI_IncludesHintDetailsAndCode(t *testing.T) {
	// Given: an index-not-found error with a suggestion
	err := New(ErrCodeIndexNotFound, "Index not found. Please run indexing first.", nil).
		WithDetail("path", "../index").
		WithSuggestion("Run 'buscador index'")

	// When: formatting for the terminal
	out := FormatForCLI(err)

	// Then: every part is present
	assert.Contains(t, out, "Error: Index not found. Please run indexing first.\n")
	assert.Contains(t, out, "Hint: Run 'buscador index'")
	assert.Contains(t, out, "path: ../index")
	assert.Contains(t, out, "Code: ERR_205_INDEX_NOT_FOUND")
}

func TestFormatForCLI_PlainErrorIsInternal(t *testing.T) {
	out := FormatForCLI(errors.New("boom"))

	assert.Contains(t, out, "Error: boom")
	assert.Contains(t, out, ErrCodeInternal)
}

func TestFormatForCLI_Nil(t *testing.T) {
	assert.Empty(t, FormatForCLI(nil))
}

func TestFormatJSON_RoundTripsFields(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := DatabaseError("database unavailable", cause).WithDetail("host", "localhost")

	data, jerr := FormatJSON(err)
	require.NoError(t, jerr)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, ErrCodeDatabaseUnavailable, got["code"])
	assert.Equal(t, "database unavailable", got["message"])
	assert.Equal(t, "DATABASE", got["category"])
	assert.Equal(t, "dial tcp: connection refused", got["cause"])
	assert.Equal(t, true, got["retryable"])
	assert.Equal(t, map[string]any{"host": "localhost"}, got["details"])
}

func TestLogAttrs(t *testing.T) {
	err := New(ErrCodeExtractionFailed, "malformed zip", errors.New("zip: not a valid zip file")).
		WithDetail("path", "docs/a.pptx")

	attrs := LogAttrs(err)

	keys := map[string]string{}
	for _, a := range attrs {
		attr := a.(slog.Attr)
		keys[attr.Key] = attr.Value.String()
	}
	assert.Equal(t, ErrCodeExtractionFailed, keys["error_code"])
	assert.Equal(t, "malformed zip", keys["error"])
	assert.Equal(t, "zip: not a valid zip file", keys["cause"])
	assert.Equal(t, "docs/a.pptx", keys["detail_path"])
}

func TestLogAttrs_PlainAndNil(t *testing.T) {
	assert.Nil(t, LogAttrs(nil))
	attrs := LogAttrs(errors.New("x"))
	require.Len(t, attrs, 1)
	assert.Equal(t, "error", attrs[0].(slog.Attr).Key)
}
