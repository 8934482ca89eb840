package observability

import (
	"strings"

	"github.com/smallbiznis/gymcore/internal/config"
)

const (
	defaultServiceName = "gymcore"

	// Production keeps one trace in ten. Other environments trace everything.
	productionSampleRatio = 0.1
)

// Config is the resolved logging and tracing setup for one binary.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64
}

// LoadConfig resolves telemetry settings from the application config.
// Tracing turns on when an OTLP endpoint is configured, unless OTEL_ENABLED
// says otherwise. Unset log settings follow the environment: development
// gets debug-level console output, everything else info-level JSON.
func LoadConfig(cfg config.Config) Config {
	t := cfg.Telemetry
	env := strings.TrimSpace(cfg.Environment)
	dev := isDevEnv(env)

	serviceName := strings.TrimSpace(cfg.AppName)
	if serviceName == "" {
		serviceName = defaultServiceName
	}

	level := t.LogLevel
	if level == "" {
		level = "info"
		if dev {
			level = "debug"
		}
	}
	format := t.LogFormat
	if format == "" {
		format = "json"
		if dev {
			format = "console"
		}
	}

	enabled := t.OTLPEndpoint != ""
	if t.TracingEnabled != nil {
		enabled = *t.TracingEnabled && t.OTLPEndpoint != ""
	}

	return Config{
		ServiceName:          serviceName,
		Environment:          env,
		Version:              strings.TrimSpace(cfg.AppVersion),
		LogLevel:             level,
		LogFormat:            format,
		OtelEnabled:          enabled,
		OtelExporterEndpoint: t.OTLPEndpoint,
		OtelExporterProtocol: t.OTLPProtocol,
		OtelSamplingRatio:    sampleRatio(t.SampleRatio, cfg.IsProduction()),
	}
}

func (c Config) Debug() bool {
	return c.LogLevel == "debug" || isDevEnv(c.Environment)
}

func sampleRatio(configured float64, production bool) float64 {
	switch {
	case configured > 1:
		return 1
	case configured > 0:
		return configured
	case production:
		return productionSampleRatio
	default:
		return 1
	}
}

func isDevEnv(env string) bool {
	switch strings.ToLower(env) {
	case "dev", "development", "local", "test":
		return true
	}
	return false
}
