package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zapcore.Level
		wantErr  bool
	}{
		{input: "debug", expected: zapcore.DebugLevel},
		{input: "INFO", expected: zapcore.InfoLevel},
		{input: "warning", expected: zapcore.WarnLevel},
		{input: " warn ", expected: zapcore.WarnLevel},
		{input: "error", expected: zapcore.ErrorLevel},
		{input: "", expected: zapcore.InfoLevel},
		{input: "verbose", expected: zapcore.InfoLevel, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			lvl, err := parseLogLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.expected, lvl)
		})
	}
}

func TestLogger_WithHelpers(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewWithCore(core)

	log.WithField("user_id", "123").
		WithFields(map[string]interface{}{"count": 4}).
		WithError(errors.New("boom")).
		Warn("something happened")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	ctx := entry.ContextMap()
	assert.Equal(t, "something happened", entry.Message)
	assert.Equal(t, "123", ctx["user_id"])
	assert.EqualValues(t, 4, ctx["count"])
	assert.Equal(t, "boom", ctx["error"])
}

func TestNew(t *testing.T) {
	log, err := New("debug")
	require.NoError(t, err)
	assert.NotNil(t, log.Logger)
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
}

func TestNew_InvalidLevel(t *testing.T) {
	log, err := New("loud")
	assert.Nil(t, log)
	assert.ErrorContains(t, err, `invalid log level "loud"`)
}

func TestNew_Encoders(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		json bool
	}{
		{name: "production is JSON", opts: []Option{ForEnvironment("production")}, json: true},
		{name: "development is console", opts: []Option{ForEnvironment("Development")}},
		{name: "explicit console", opts: []Option{WithConsole()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log, err := New("info", append(tt.opts, WithOutput(&buf))...)
			require.NoError(t, err)

			log.Named("snapshot_service").WithField("users", 3).Info("Snapshot saved")
			line := strings.TrimSpace(buf.String())
			require.NotEmpty(t, line)

			var entry map[string]interface{}
			if tt.json {
				require.NoError(t, json.Unmarshal([]byte(line), &entry))
				assert.Equal(t, "info", entry["level"])
				assert.Equal(t, "snapshot_service", entry["logger"])
				assert.Equal(t, "Snapshot saved", entry["message"])
				assert.EqualValues(t, 3, entry["users"])
				return
			}
			assert.Error(t, json.Unmarshal([]byte(line), &entry))
			assert.Contains(t, line, "INFO")
			assert.Contains(t, line, "Snapshot saved")
		})
	}
}
