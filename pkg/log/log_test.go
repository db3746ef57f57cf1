package log

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/taxifare/pkg/errors"
)

func TestZerologLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(&buf, LevelDebug).With(ModelNameKey, "gbt")

	logger.Info("Training started", SamplesKey, 1000, LearningRateKey, 0.2, "ok", true)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "Training started", entry["message"])
	assert.Equal(t, "gbt", entry[ModelNameKey])
	assert.Equal(t, float64(1000), entry[SamplesKey])
	assert.Equal(t, 0.2, entry[LearningRateKey])
	assert.Equal(t, true, entry["ok"])
}

func TestZerologLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(&buf, LevelWarn)

	logger.Debug("hidden")
	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.False(t, logger.Enabled(context.Background(), LevelInfo))
	assert.True(t, logger.Enabled(context.Background(), LevelError))
}

func TestZerologLogger_ErrorWithStructuredError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(&buf, LevelInfo)

	err := errors.NewShapeMismatchError("Apply", "features", 9, 3)
	logger.Error("apply failed", err, "detail", &errors.ShapeMismatchError{Op: "Apply", What: "features", Expected: 9, Got: 3})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Contains(t, entry["error"], "shape mismatch in features")
	detail, ok := entry["detail"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "ShapeMismatchError", detail["type"])
	assert.Equal(t, float64(9), detail["expected"])
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"info", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"loud", LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSetProvider_RoutesWarnings(t *testing.T) {
	provider, _ := NewTestLoggerProvider(LevelDebug)
	SetProvider(provider)
	t.Cleanup(func() {
		SetProvider(NewZerologProvider(&bytes.Buffer{}, LevelInfo, false))
		errors.SetZerologWarnFunc(nil)
	})

	errors.Warn(errors.NewUnknownCategoryWarning("vendor_id", "XYZ"))

	logger := provider.Logger()
	assert.True(t, logger.ContainsField(ComponentKey, "warnings"))
	entries, err := logger.GetLogEntries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "WARN", entries[0]["level"])
	warning, ok := entries[0]["warning"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "vendor_id", warning["field"])
	assert.Equal(t, "XYZ", warning["value"])
}

func TestGetLoggerWithName(t *testing.T) {
	provider, buf := NewTestLoggerProvider(LevelInfo)
	SetProvider(provider)
	t.Cleanup(func() {
		SetProvider(NewZerologProvider(&bytes.Buffer{}, LevelInfo, false))
		errors.SetZerologWarnFunc(nil)
	})

	GetLoggerWithName("ensemble.trainer").Info("round", IterationKey, 3)
	GetLogger().Debug("dropped")

	assert.True(t, provider.Logger().ContainsField(ComponentKey, "ensemble.trainer"))
	assert.True(t, provider.Logger().ContainsField(IterationKey, float64(3)))
	assert.False(t, strings.Contains(buf.String(), "dropped"))
}

func TestTestLogger_Clear(t *testing.T) {
	logger, buf := NewTestLogger(LevelDebug)
	logger.Error("boom", errors.New("cause"), OperationKey, OperationFit)

	assert.True(t, logger.ContainsMessage("boom"))
	assert.True(t, logger.ContainsField("error", "cause"))
	assert.True(t, logger.ContainsField(OperationKey, OperationFit))

	logger.Clear()
	assert.Zero(t, buf.Len())
}

func TestMarshalStack(t *testing.T) {
	assert.Nil(t, MarshalStack(nil))
	st := MarshalStack(errors.New("with stack"))
	require.NotNil(t, st)
	assert.Contains(t, st.(string), "TestMarshalStack")
}

func TestTestLogger_ObjectFields(t *testing.T) {
	logger, _ := NewTestLogger(LevelDebug)
	logger.Warn("unknown", "warning", errors.NewUnknownCategoryWarning("vendor_id", "XYZ"))

	entries, err := logger.GetLogEntries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	obj, ok := entries[0]["warning"].(map[string]interface{})
	require.True(t, ok, "got %#v", entries[0]["warning"])
	assert.Equal(t, "vendor_id", obj["field"])
	assert.Equal(t, "XYZ", obj["value"])
	assert.Equal(t, "UnknownCategoryWarning", obj["type"])
}
