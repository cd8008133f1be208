package pipeline

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// otelMetrics wraps the OpenTelemetry instruments recorded alongside
// the plain Stats/Metrics snapshots: a counter of messages processed,
// a histogram of per-file processing duration, and an up-down counter
// tracking the live quarantine size.
type otelMetrics struct {
	messagesProcessed metric.Int64Counter
	processingDuration metric.Float64Histogram
	quarantineSize     metric.Int64UpDownCounter
}

func newOtelMetrics() *otelMetrics {
	meter := otel.Meter("github.com/edicraft/edipipe/pipeline")

	messagesProcessed, _ := meter.Int64Counter(
		"edipipe.messages_processed_total",
		metric.WithDescription("messages processed by the pipeline, by outcome"),
	)
	processingDuration, _ := meter.Float64Histogram(
		"edipipe.processing_duration_seconds",
		metric.WithDescription("per-file processing duration"),
		metric.WithUnit("s"),
	)
	quarantineSize, _ := meter.Int64UpDownCounter(
		"edipipe.quarantine_size",
		metric.WithDescription("current number of quarantined entries"),
	)

	return &otelMetrics{
		messagesProcessed:  messagesProcessed,
		processingDuration: processingDuration,
		quarantineSize:     quarantineSize,
	}
}

func (m *otelMetrics) recordFile(duration time.Duration, _ int64) {
	if m.processingDuration == nil {
		return
	}
	m.processingDuration.Record(context.Background(), duration.Seconds())
}

func (m *otelMetrics) recordMessages(succeeded, failed int) {
	if m.messagesProcessed == nil {
		return
	}
	if succeeded > 0 {
		m.messagesProcessed.Add(context.Background(), int64(succeeded), metric.WithAttributes(attribute.String("outcome", "success")))
	}
	if failed > 0 {
		m.messagesProcessed.Add(context.Background(), int64(failed), metric.WithAttributes(attribute.String("outcome", "failure")))
	}
}

func (m *otelMetrics) recordQuarantined(delta int64) {
	if m.quarantineSize == nil {
		return
	}
	m.quarantineSize.Add(context.Background(), delta)
}
