package nlog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestEncoderColor(t *testing.T) {
	cases := []struct {
		json, dev, tty bool
		color          bool
	}{
		{dev: true, tty: true, color: true},
		{dev: true},
		{tty: true},
		{json: true, dev: true, tty: true},
	}
	for _, tc := range cases {
		buf, err := newEncoder(tc.json, tc.dev, tc.tty).EncodeEntry(zapcore.Entry{
			Level:   zap.WarnLevel,
			Message: "careful",
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, tc.color, strings.Contains(buf.String(), "\x1b["), "%+v", tc)
	}
}
