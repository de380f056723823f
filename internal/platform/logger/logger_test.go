package logger

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		input string
		want  slog.Level
	}{
		{input: "debug", want: slog.LevelDebug},
		{input: "info", want: slog.LevelInfo},
		{input: "warn", want: slog.LevelWarn},
		{input: "error", want: slog.LevelError},
		{input: "WARN", want: slog.LevelWarn},
		{input: "nonsense", want: slog.LevelInfo},
		{input: "", want: slog.LevelInfo},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.want, parseLevel(tc.input), "level %q", tc.input)
	}
}

func TestSetupReturnsAndInstallsLogger(t *testing.T) {
	logger := Setup("debug")
	require.NotNil(t, logger)
	assert.Equal(t, logger, slog.Default())
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
}

func TestFromContext(t *testing.T) {
	t.Parallel()

	attached := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := WithLogger(context.Background(), attached)
	assert.Equal(t, attached, FromContext(ctx))

	// A bare context falls back to the default logger, never nil.
	assert.NotNil(t, FromContext(context.Background()))
}

func TestFromContextOrDefault(t *testing.T) {
	t.Parallel()

	def := slog.New(slog.NewTextHandler(io.Discard, nil))
	assert.Equal(t, def, FromContextOrDefault(context.Background(), def))

	attached := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := WithLogger(context.Background(), attached)
	assert.Equal(t, attached, FromContextOrDefault(ctx, def))
}
