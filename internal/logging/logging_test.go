package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The logger is configured once per process, so one test drives the whole
// lifecycle: first Configure wins, later calls are no-ops.
func TestConfigureOnce(t *testing.T) {
	buf := &bytes.Buffer{}

	Configure(Config{Level: "debug", Output: buf, Service: "test-service"})
	Configure(Config{Level: "error", Service: "ignored"})

	logger := WithComponent("unit")
	logger.Debug().Str("event", "test.event").Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "test-service", entry["service"])
	assert.Equal(t, "unit", entry["component"])
	assert.Equal(t, "test.event", entry["event"])
	assert.Equal(t, "hello", entry["message"])
	assert.Equal(t, "debug", entry["level"])
	assert.Contains(t, entry, "time")
}
