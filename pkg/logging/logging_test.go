package logging

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"WARNING", zerolog.WarnLevel},
		{"off", zerolog.Disabled},
		{"", zerolog.InfoLevel},
		{"bogus", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}

func TestFromContext(t *testing.T) {
	t.Run("default when missing", func(t *testing.T) {
		assert.Same(t, Default(), FromContext(context.Background()))
	})

	t.Run("fields propagate", func(t *testing.T) {
		tl := NewTestLogger(t)
		ctx := WithLogger(context.Background(), tl.Logger)
		ctx = WithSource(ctx, "disgenet")
		ctx = WithEntity(ctx, "BCR")

		FromContext(ctx).Info().Msg("merged")

		tl.AssertContains(t, `"source":"disgenet"`)
		tl.AssertContains(t, `"entity":"BCR"`)
		assert.Len(t, tl.Lines(), 1)
	})
}

func TestNewLoggerFromConfig(t *testing.T) {
	old := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(old) })

	logger := NewLoggerFromConfig(&Config{Level: "error", Format: "json", Output: "discard"})
	assert.Equal(t, zerolog.ErrorLevel, logger.GetLevel())
}
