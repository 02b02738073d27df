package logger

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	require.Equal(t, logrus.WarnLevel, NewLogger("warn", false).GetLevel())
	require.Equal(t, logrus.DebugLevel, NewLogger("loud", false).GetLevel())
	require.IsType(t, &logrus.JSONFormatter{}, NewLogger("info", true).Formatter)
}
