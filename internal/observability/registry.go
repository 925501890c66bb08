package observability

import (
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Instrument names recorded by the equipment registry.
const (
	RegistryOperations = "equipment.registry.operations"
	RegistryDuplicates = "equipment.registry.duplicate_serial_numbers"
	RegistryDuration   = "equipment.registry.duration"
)

// registryDurationBuckets are in milliseconds.
var registryDurationBuckets = []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}

// registryViews keeps registry instruments to bounded label sets. Serial
// numbers and ids never become metric labels.
func registryViews() []sdkmetric.View {
	return []sdkmetric.View{
		sdkmetric.NewView(
			sdkmetric.Instrument{Name: RegistryOperations},
			sdkmetric.Stream{AttributeFilter: attribute.NewAllowKeysFilter("operation", "outcome")},
		),
		sdkmetric.NewView(
			sdkmetric.Instrument{Name: RegistryDuplicates},
			sdkmetric.Stream{AttributeFilter: attribute.NewAllowKeysFilter("operation", "source")},
		),
		sdkmetric.NewView(
			sdkmetric.Instrument{Name: RegistryDuration},
			sdkmetric.Stream{
				AttributeFilter: attribute.NewAllowKeysFilter("operation"),
				Aggregation:     sdkmetric.AggregationExplicitBucketHistogram{Boundaries: registryDurationBuckets},
			},
		),
	}
}

func meterProviderOptions(reader sdkmetric.Reader, opts ...sdkmetric.Option) []sdkmetric.Option {
	opts = append(opts, sdkmetric.WithReader(reader), sdkmetric.WithView(registryViews()...))
	return opts
}
