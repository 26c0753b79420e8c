package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel(" debug "))
	assert.Equal(t, LevelWarn, ParseLevel("warning"))
	assert.Equal(t, LevelError, ParseLevel("ERROR"))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
	assert.Equal(t, "WARN", LevelWarn.String())
}

func TestLogger_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Output: &buf, Level: LevelInfo, Format: FormatJSON})

	l.Debug("dropped")
	l.With(Component("progress")).WithRequestID("req-1").Info("completion recorded",
		UserID("u1"),
		ScenarioID("drag-drop"),
		XPAmount(50),
		Duration("delay", 2*time.Second),
		Err(errors.New("boom")),
	)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "completion recorded", entry["message"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "progress", entry["component"])
	assert.Equal(t, "req-1", entry[RequestIDKey])
	assert.Equal(t, "u1", entry["user_id"])
	assert.Equal(t, 50.0, entry["xp_amount"])
	assert.Equal(t, "2s", entry["delay"])
	assert.Equal(t, "boom", entry["error"])
}

func TestContext(t *testing.T) {
	l := Nop()
	ctx := WithContext(context.Background(), l)
	assert.Same(t, l, FromContext(ctx))
	assert.NotNil(t, FromContext(context.Background()))
}
