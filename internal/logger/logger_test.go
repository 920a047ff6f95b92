package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesJSONWithServiceField(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput("portal", "debug", &buf)
	log.WithField("user_id", "u-1").Info("created new user")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "portal", entry["service"])
	assert.Equal(t, "u-1", entry["user_id"])
	assert.Equal(t, "created new user", entry["message"])
	assert.Equal(t, "info", entry["level"])
	assert.Contains(t, entry, "timestamp")
}

func TestNewFallsBackToInfo(t *testing.T) {
	log := NewWithOutput("portal", "loud", &bytes.Buffer{})
	assert.Equal(t, logrus.InfoLevel, log.Logger.GetLevel())
}
