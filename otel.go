package crypto

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// instrumentationName identifies this library to OpenTelemetry.
const instrumentationName = "github.com/rbaliyan/field-crypto"

// Telemetry is emitted through the global OpenTelemetry providers and is a
// no-op unless the host application installs an SDK. Only the adapters
// record anything; the core encrypt/decrypt path stays side-effect free.
var (
	tracer trace.Tracer
	meter  metric.Meter

	encryptCount metric.Int64Counter
	decryptCount metric.Int64Counter
	decryptFails metric.Int64Counter
)

func init() {
	tracer = otel.Tracer(instrumentationName)
	meter = otel.Meter(instrumentationName)

	encryptCount, _ = meter.Int64Counter("fieldcrypto.encrypt.count",
		metric.WithDescription("Values encrypted"))
	decryptCount, _ = meter.Int64Counter("fieldcrypto.decrypt.count",
		metric.WithDescription("Values decrypted, by envelope format"))
	decryptFails, _ = meter.Int64Counter("fieldcrypto.decrypt.failures",
		metric.WithDescription("Decryptions that failed every candidate key"))
}
