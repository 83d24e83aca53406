package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vsinha/mfgplan/pkg/infrastructure/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		cfg   config.LogConfig
		debug bool
	}{
		{cfg: config.LogConfig{Level: "debug", Format: "console"}, debug: true},
		{cfg: config.LogConfig{Level: "info", Format: "json"}},
		{cfg: config.LogConfig{Level: "warn", Format: "console"}},
	}

	for _, tt := range tests {
		t.Run(tt.cfg.Level+"/"+tt.cfg.Format, func(t *testing.T) {
			logger, err := New(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.debug, logger.Core().Enabled(zap.DebugLevel))
			assert.True(t, logger.Core().Enabled(zap.ErrorLevel))
		})
	}
}

func TestNew_UnknownLevel(t *testing.T) {
	_, err := New(config.LogConfig{Level: "verbose"})
	require.Error(t, err)
}
