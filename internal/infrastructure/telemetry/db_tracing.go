package telemetry

import (
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database tracing.
type DBTracingConfig struct {
	Enabled bool
	// DBSystem names the database in span attributes (postgresql, sqlite)
	DBSystem string
	// LogFullSQL keeps query variables in spans. Development only.
	LogFullSQL bool
}

// RegisterDBTracing installs the otelgorm plugin so every cart storage query
// becomes a child span of the request span.
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, provider trace.TracerProvider) error {
	if !cfg.Enabled {
		return nil
	}

	opts := []otelgorm.Option{
		otelgorm.WithDBName(cfg.DBSystem),
	}
	if provider != nil {
		opts = append(opts, otelgorm.WithTracerProvider(provider))
	}
	if !cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	return db.Use(otelgorm.NewPlugin(opts...))
}
