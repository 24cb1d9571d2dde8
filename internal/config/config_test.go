package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultFlightNodeConfig(t *testing.T) {
	cfg, err := LoadFlightNode("")
	require.NoError(t, err)
	require.Equal(t, uint8(0), cfg.RocketID)
	require.Equal(t, 4096, cfg.TraceCapacity)
	require.Equal(t, 915_000_000, int(cfg.Radio.FrequencyHz))
}

func TestLoadFlightNodeFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flightnode.yaml")
	yaml := []byte("rocket_id: 5\nrocket_name: booster-1\ntrace_capacity: 2048\nradio:\n  port: /dev/ttyS1\n")
	require.NoError(t, os.WriteFile(path, yaml, 0o644))

	cfg, err := LoadFlightNode(path)
	require.NoError(t, err)
	require.Equal(t, uint8(5), cfg.RocketID)
	require.Equal(t, "booster-1", cfg.RocketName)
	require.Equal(t, 2048, cfg.TraceCapacity)
	require.Equal(t, "/dev/ttyS1", cfg.Radio.Port)
	require.Equal(t, 57600, cfg.Radio.BaudRate, "fields absent from the file keep their default")
}

func TestDefaultGatewayConfig(t *testing.T) {
	cfg, err := LoadGateway("")
	require.NoError(t, err)
	require.Equal(t, uint32(5000), cfg.LinkTimeoutMs)
	require.Equal(t, ":9090", cfg.MetricsAddr)
}
