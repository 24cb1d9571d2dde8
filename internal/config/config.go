// Package config loads the YAML-backed configuration shared by both
// node binaries via viper: radio PHY profile, rocket identity, serial
// port names, trace capacity, link timeout, metrics address, and log
// level.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// RadioConfig mirrors §6's PHY profile.
type RadioConfig struct {
	FrequencyHz    int64 `mapstructure:"frequency_hz" yaml:"frequency_hz"`
	SpreadingFactor int   `mapstructure:"spreading_factor" yaml:"spreading_factor"`
	BandwidthHz    int   `mapstructure:"bandwidth_hz" yaml:"bandwidth_hz"`
	CodingRate     int   `mapstructure:"coding_rate" yaml:"coding_rate"`
	PreambleSymbols int  `mapstructure:"preamble_symbols" yaml:"preamble_symbols"`
	TXPowerDbm     int   `mapstructure:"tx_power_dbm" yaml:"tx_power_dbm"`
	SyncWord       int   `mapstructure:"sync_word" yaml:"sync_word"`
	Port           string `mapstructure:"port" yaml:"port"`
	BaudRate       int    `mapstructure:"baud_rate" yaml:"baud_rate"`
}

// FlightNodeConfig is the flight node's full configuration.
type FlightNodeConfig struct {
	Radio         RadioConfig `mapstructure:"radio" yaml:"radio"`
	RocketID      uint8       `mapstructure:"rocket_id" yaml:"rocket_id"`
	RocketName    string      `mapstructure:"rocket_name" yaml:"rocket_name"`
	TraceCapacity int         `mapstructure:"trace_capacity" yaml:"trace_capacity"`
	LogLevel      string      `mapstructure:"log_level" yaml:"log_level"`
	Simulate      bool        `mapstructure:"simulate" yaml:"simulate"`
}

// GatewayConfig is the gateway's full configuration.
type GatewayConfig struct {
	Radio           RadioConfig `mapstructure:"radio" yaml:"radio"`
	RocketID        uint8       `mapstructure:"rocket_id" yaml:"rocket_id"`
	HostPort        string      `mapstructure:"host_port" yaml:"host_port"`
	HostBaudRate    int         `mapstructure:"host_baud_rate" yaml:"host_baud_rate"`
	LinkTimeoutMs   uint32      `mapstructure:"link_timeout_ms" yaml:"link_timeout_ms"`
	MetricsAddr     string      `mapstructure:"metrics_addr" yaml:"metrics_addr"`
	LogLevel        string      `mapstructure:"log_level" yaml:"log_level"`
}

func defaultRadio() RadioConfig {
	return RadioConfig{
		FrequencyHz:     915_000_000,
		SpreadingFactor: 7,
		BandwidthHz:     125_000,
		CodingRate:      5,
		PreambleSymbols: 8,
		TXPowerDbm:      20,
		SyncWord:        0x14,
		Port:            "/dev/ttyUSB0",
		BaudRate:        57600,
	}
}

// DefaultFlightNodeConfig returns the reference configuration.
func DefaultFlightNodeConfig() FlightNodeConfig {
	return FlightNodeConfig{
		Radio:         defaultRadio(),
		RocketID:      0,
		TraceCapacity: 4096,
		LogLevel:      "info",
	}
}

// DefaultGatewayConfig returns the reference configuration.
func DefaultGatewayConfig() GatewayConfig {
	return GatewayConfig{
		Radio:         defaultRadio(),
		RocketID:      0,
		HostPort:      "/dev/ttyACM0",
		HostBaudRate:  115200,
		LinkTimeoutMs: 5000,
		MetricsAddr:   ":9090",
		LogLevel:      "info",
	}
}

// LoadFlightNode reads a YAML config file at path (if non-empty) layered
// over DefaultFlightNodeConfig, plus ROCKETAVIONICS_-prefixed
// environment overrides. Environment variables reach only the top-level
// keys the YAML file itself sets; with no file, the environment is not
// consulted.
func LoadFlightNode(path string) (FlightNodeConfig, error) {
	cfg := DefaultFlightNodeConfig()
	v := newViper(path)
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("config: unmarshal flight node config: %w", err)
	}
	return cfg, nil
}

// LoadGateway reads a YAML config file at path (if non-empty) layered
// over DefaultGatewayConfig, plus environment overrides (limited as for
// LoadFlightNode).
func LoadGateway(path string) (GatewayConfig, error) {
	cfg := DefaultGatewayConfig()
	v := newViper(path)
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("config: unmarshal gateway config: %w", err)
	}
	return cfg, nil
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("ROCKETAVIONICS")
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
		_ = v.ReadInConfig()
	}
	return v
}
