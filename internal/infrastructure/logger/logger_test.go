package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"comanda/internal/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.LogConfig
		wantDebug bool
	}{
		{"json debug", config.LogConfig{Level: "debug", Encoding: "json"}, true},
		{"console info", config.LogConfig{Level: "info", Encoding: "console"}, false},
		{"unknown level falls back to info", config.LogConfig{Level: "loud"}, false},
		{"unknown encoding falls back to json", config.LogConfig{Level: "warn", Encoding: "xml"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg, "comanda-station")
			require.NoError(t, err)

			assert.Equal(t, tt.wantDebug, l.Core().Enabled(zapcore.DebugLevel))
			assert.True(t, l.Core().Enabled(zapcore.ErrorLevel))
		})
	}
}
