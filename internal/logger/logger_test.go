package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T, level string) *bytes.Buffer {
	t.Helper()
	prev := defaultLogger
	t.Cleanup(func() { defaultLogger = prev })

	var buf bytes.Buffer
	SetDefault(New(level, "json", &buf))
	return &buf
}

func TestInfoContextCarriesRequestID(t *testing.T) {
	buf := capture(t, "info")
	ctx := ContextWithRequestID(context.Background(), "req-42")

	InfoContext(ctx, "Rental created", "rentalID", 11)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-42", entry["request_id"])
	assert.Equal(t, "Rental created", entry["msg"])
	assert.EqualValues(t, 11, entry["rentalID"])
}

func TestLevelFiltering(t *testing.T) {
	buf := capture(t, "warn")

	Info("hidden")
	EnterMethod("hidden")
	Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestTransactionResult(t *testing.T) {
	buf := capture(t, "info")

	TransactionResult(false, errors.New("insufficient stock"), true)
	assert.Empty(t, buf.String())

	TransactionResult(false, errors.New("lock timeout"), false)
	assert.Contains(t, buf.String(), "lock timeout")
	assert.Contains(t, buf.String(), `"level":"WARN"`)
}

func TestRequestIDAbsent(t *testing.T) {
	assert.Equal(t, "", RequestID(context.Background()))
}
