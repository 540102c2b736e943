package logger

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestLevelFromEnv(t *testing.T) {
	testCases := []struct {
		raw  string
		want logrus.Level
	}{
		{"", logrus.InfoLevel},
		{"debug", logrus.DebugLevel},
		{"warning", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{"chatty", logrus.InfoLevel},
	}
	for _, tc := range testCases {
		t.Setenv("LOG_LEVEL", tc.raw)
		assert.Equal(t, tc.want, level(), "LOG_LEVEL=%q", tc.raw)
	}
}
