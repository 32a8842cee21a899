// Package telemetry holds the OpenTelemetry instruments of the gateway.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// MeterName is the instrumentation scope of every gateway instrument.
const MeterName = "kis-gateway"

// Attribute keys.
const (
	AttrAssetClass = attribute.Key("asset_class")
	AttrAction     = attribute.Key("action")
	AttrResult     = attribute.Key("result")
)

// Result values.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Instrument names.
const (
	MetricTokenAcquisitions = "kis.token.acquisitions"
	MetricHashkeyRequests   = "kis.hashkey.requests"
	MetricVenueRequests     = "kis.venue.requests"
	MetricVenueLatency      = "kis.venue.latency"
)

// Instruments records gateway metrics. A nil *Instruments records nothing.
type Instruments struct {
	tokenAcquisitions metric.Int64Counter
	hashkeyRequests   metric.Int64Counter
	venueRequests     metric.Int64Counter
	venueLatency      metric.Float64Histogram
}

// NewInstruments creates the instruments on mp, or on the global provider when mp is nil.
func NewInstruments(mp metric.MeterProvider) (*Instruments, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(MeterName)

	var (
		in  Instruments
		err error
	)
	if in.tokenAcquisitions, err = meter.Int64Counter(MetricTokenAcquisitions,
		metric.WithDescription("Access token acquisition attempts")); err != nil {
		return nil, err
	}
	if in.hashkeyRequests, err = meter.Int64Counter(MetricHashkeyRequests,
		metric.WithDescription("Hashkey signing requests")); err != nil {
		return nil, err
	}
	if in.venueRequests, err = meter.Int64Counter(MetricVenueRequests,
		metric.WithDescription("Order and query calls to the venue")); err != nil {
		return nil, err
	}
	if in.venueLatency, err = meter.Float64Histogram(MetricVenueLatency,
		metric.WithDescription("Venue call latency"), metric.WithUnit("ms")); err != nil {
		return nil, err
	}
	return &in, nil
}

// TokenAcquisition records one token acquisition attempt.
func (i *Instruments) TokenAcquisition(ctx context.Context, result string) {
	if i == nil {
		return
	}
	i.tokenAcquisitions.Add(ctx, 1, metric.WithAttributes(AttrResult.String(result)))
}

// Hashkey records one signing request.
func (i *Instruments) Hashkey(ctx context.Context, result string) {
	if i == nil {
		return
	}
	i.hashkeyRequests.Add(ctx, 1, metric.WithAttributes(AttrResult.String(result)))
}

// VenueRequest records one order or query call.
func (i *Instruments) VenueRequest(ctx context.Context, assetClass, action, result string, took time.Duration) {
	if i == nil {
		return
	}
	attrs := metric.WithAttributes(
		AttrAssetClass.String(assetClass),
		AttrAction.String(action),
		AttrResult.String(result),
	)
	i.venueRequests.Add(ctx, 1, attrs)
	i.venueLatency.Record(ctx, float64(took)/float64(time.Millisecond), attrs)
}

// NewManualProvider returns an SDK meter provider whose values are read on demand.
func NewManualProvider() (*sdkmetric.MeterProvider, *sdkmetric.ManualReader) {
	reader := sdkmetric.NewManualReader()
	return sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)), reader
}

// Totals collects reader and sums counter values per instrument name.
// Histograms contribute their observation count.
func Totals(ctx context.Context, reader sdkmetric.Reader) (map[string]int64, error) {
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		return nil, err
	}
	totals := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					totals[m.Name] += dp.Value
				}
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					totals[m.Name] += int64(dp.Count)
				}
			}
		}
	}
	return totals, nil
}
