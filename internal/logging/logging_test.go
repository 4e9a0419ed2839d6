// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	tests := []struct {
		level, format string
		want          zap.AtomicLevel
		wantErr       bool
	}{
		{level: "", format: "console", want: zap.NewAtomicLevelAt(zap.InfoLevel)},
		{level: "debug", format: "json", want: zap.NewAtomicLevelAt(zap.DebugLevel)},
		{level: "warn", format: "", want: zap.NewAtomicLevelAt(zap.WarnLevel)},
		{level: "loud", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.level+"/"+tt.format, func(t *testing.T) {
			log, err := New(tt.level, tt.format)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, log.Core().Enabled(tt.want.Level()))
			assert.False(t, log.Core().Enabled(tt.want.Level()-1))
		})
	}
}
