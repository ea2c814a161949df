// Package config provides adapter configuration.
//
// Sources, in priority order: environment variables > config file > defaults.
// The file may be YAML or JSON. Binaries load the configuration once at
// startup and install it with SetAdapterConfig.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Environment variables read by Load.
const (
	EnvTriggerSalt     = "LAMBDA_ADAPTER_TRIGGER_SALT"
	EnvLegacySalt      = "HONO_TRIGGER_SALT"
	EnvServiceName     = "LAMBDA_ADAPTER_SERVICE_NAME"
	EnvLogLevel        = "LAMBDA_ADAPTER_LOG_LEVEL"
	EnvMetricsEnabled  = "LAMBDA_ADAPTER_METRICS"
	EnvTracingEnabled  = "LAMBDA_ADAPTER_TRACING"
	EnvOTLPEndpoint    = "LAMBDA_ADAPTER_OTLP_ENDPOINT"
	EnvGRPCAddr        = "LAMBDA_ADAPTER_GRPC_ADDR"
	EnvHTTPAddr        = "LAMBDA_ADAPTER_HTTP_ADDR"
	EnvStreaming       = "LAMBDA_ADAPTER_STREAMING"
	EnvShutdownTimeout = "LAMBDA_ADAPTER_SHUTDOWN_TIMEOUT"
)

// AdapterConfig holds adapter configuration.
type AdapterConfig struct {
	// Salt mixed into the trigger namespace token.
	TriggerSalt string `json:"trigger_salt" yaml:"trigger_salt"`

	ServiceName string `json:"service_name" yaml:"service_name"`
	LogLevel    string `json:"log_level" yaml:"log_level"` // debug, info, warn, error

	// Observability
	MetricsEnabled bool   `json:"metrics_enabled" yaml:"metrics_enabled"`
	TracingEnabled bool   `json:"tracing_enabled" yaml:"tracing_enabled"`
	OTLPEndpoint   string `json:"otlp_endpoint" yaml:"otlp_endpoint"`

	// Local development servers
	GRPCAddr        string `json:"grpc_addr" yaml:"grpc_addr"`
	HTTPAddr        string `json:"http_addr" yaml:"http_addr"`
	ShutdownTimeout int    `json:"shutdown_timeout" yaml:"shutdown_timeout"` // seconds

	// Serve Function URL invocations as streamed responses.
	Streaming bool `json:"streaming" yaml:"streaming"`
}

// DefaultAdapterConfig returns an AdapterConfig with default values.
func DefaultAdapterConfig() *AdapterConfig {
	return &AdapterConfig{
		ServiceName:     "lambda-adapter",
		LogLevel:        "info",
		MetricsEnabled:  true,
		TracingEnabled:  false,
		OTLPEndpoint:    "localhost:4317",
		GRPCAddr:        ":50051",
		HTTPAddr:        ":9000",
		ShutdownTimeout: 10,
		Streaming:       false,
	}
}

// AdapterConfigFromMap creates an AdapterConfig from a map.
// Unknown keys are ignored.
func AdapterConfigFromMap(config map[string]any) *AdapterConfig {
	c := DefaultAdapterConfig()

	if v, ok := config["trigger_salt"].(string); ok {
		c.TriggerSalt = v
	}
	if v, ok := config["service_name"].(string); ok {
		c.ServiceName = v
	}
	if v, ok := config["log_level"].(string); ok {
		c.LogLevel = v
	}
	if v, ok := config["metrics_enabled"].(bool); ok {
		c.MetricsEnabled = v
	}
	if v, ok := config["tracing_enabled"].(bool); ok {
		c.TracingEnabled = v
	}
	if v, ok := config["otlp_endpoint"].(string); ok {
		c.OTLPEndpoint = v
	}
	if v, ok := config["grpc_addr"].(string); ok {
		c.GRPCAddr = v
	}
	if v, ok := config["http_addr"].(string); ok {
		c.HTTPAddr = v
	}
	if v, ok := config["shutdown_timeout"].(int); ok {
		c.ShutdownTimeout = v
	} else if v, ok := config["shutdown_timeout"].(float64); ok {
		c.ShutdownTimeout = int(v)
	}
	if v, ok := config["streaming"].(bool); ok {
		c.Streaming = v
	}

	return c
}

// ToMap converts config to a map.
func (c *AdapterConfig) ToMap() map[string]any {
	return map[string]any{
		"trigger_salt":     c.TriggerSalt,
		"service_name":     c.ServiceName,
		"log_level":        c.LogLevel,
		"metrics_enabled":  c.MetricsEnabled,
		"tracing_enabled":  c.TracingEnabled,
		"otlp_endpoint":    c.OTLPEndpoint,
		"grpc_addr":        c.GRPCAddr,
		"http_addr":        c.HTTPAddr,
		"shutdown_timeout": c.ShutdownTimeout,
		"streaming":        c.Streaming,
	}
}

// Load reads configuration from a file, then overlays environment variables.
// An empty path skips the file.
func Load(path string) (*AdapterConfig, error) {
	c := DefaultAdapterConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return c, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return c, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(c, os.LookupEnv)
	return c, nil
}

// LoadFromEnv loads configuration from environment variables only.
func LoadFromEnv() *AdapterConfig {
	c, _ := Load("")
	return c
}

func applyEnv(c *AdapterConfig, lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	flag := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = parseBool(v)
		}
	}

	str(EnvLegacySalt, &c.TriggerSalt)
	str(EnvTriggerSalt, &c.TriggerSalt)
	str(EnvServiceName, &c.ServiceName)
	str(EnvLogLevel, &c.LogLevel)
	flag(EnvMetricsEnabled, &c.MetricsEnabled)
	flag(EnvTracingEnabled, &c.TracingEnabled)
	str(EnvOTLPEndpoint, &c.OTLPEndpoint)
	str(EnvGRPCAddr, &c.GRPCAddr)
	str(EnvHTTPAddr, &c.HTTPAddr)
	flag(EnvStreaming, &c.Streaming)
	if v, ok := lookup(EnvShutdownTimeout); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.ShutdownTimeout = n
		}
	}
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// =============================================================================
// GLOBAL CONFIG (set by the binary at startup)
// =============================================================================

var (
	globalAdapterConfig *AdapterConfig
	configMu            sync.RWMutex
)

// GetAdapterConfig returns the installed config, or defaults.
func GetAdapterConfig() *AdapterConfig {
	configMu.RLock()
	defer configMu.RUnlock()

	if globalAdapterConfig == nil {
		return DefaultAdapterConfig()
	}
	return globalAdapterConfig
}

// SetAdapterConfig installs the process configuration.
func SetAdapterConfig(config *AdapterConfig) {
	configMu.Lock()
	defer configMu.Unlock()

	globalAdapterConfig = config
}

// ResetAdapterConfig resets the config to nil (useful for testing).
// After reset, GetAdapterConfig() returns defaults.
func ResetAdapterConfig() {
	configMu.Lock()
	defer configMu.Unlock()

	globalAdapterConfig = nil
}
