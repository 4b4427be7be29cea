package telemetry

import (
	"context"

	"github.com/robalyx/lumi/internal/setup/config"
	"github.com/uptrace/uptrace-go/uptrace"
)

// SetupTracing configures OpenTelemetry export to Uptrace. It returns false
// when no DSN is configured.
func SetupTracing(cfg *config.Uptrace, serviceType ServiceType, version string) bool {
	if cfg.DSN == "" {
		return false
	}

	uptrace.ConfigureOpentelemetry(
		uptrace.WithDSN(cfg.DSN),
		uptrace.WithServiceName("lumi-"+serviceType.String()),
		uptrace.WithServiceVersion(version),
	)

	return true
}

// ShutdownTracing flushes pending spans.
func ShutdownTracing(ctx context.Context) error {
	return uptrace.Shutdown(ctx)
}
