package telemetry

import (
	"context"
	"testing"
	"time"

	otelglobal "go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestInstrumentsRecord(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	otelglobal.SetMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))

	if err := Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	ctx := context.Background()
	RecordRun(ctx, "triage", "t1", "completed", 150*time.Millisecond)
	RecordNodeVisit(ctx, "triage.handle_email", "classify")
	RecordNodeVisit(ctx, "triage.handle_email", "route")
	RecordPostRunAction(ctx, "triage", "respond", "sent")

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if data, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range data.DataPoints {
					sums[m.Name] += dp.Value
				}
			}
		}
	}

	want := map[string]int64{
		"ai_suite_runs_total":             1,
		"ai_suite_node_visits_total":      2,
		"ai_suite_post_run_actions_total": 1,
	}
	for name, v := range want {
		if sums[name] != v {
			t.Fatalf("%s = %d, want %d (all: %v)", name, sums[name], v, sums)
		}
	}
}
