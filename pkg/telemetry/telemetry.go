// Package telemetry holds the OpenTelemetry instruments of the runtime. The
// process decides which MeterProvider is installed; without one the global
// no-op provider is used.
package telemetry

import (
	"context"
	"sync"
	"time"

	otelglobal "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/tanpawarit/ai-suite-runtime"

var (
	AttrAgent  = attribute.Key("agent")
	AttrTenant = attribute.Key("tenant")
	AttrStatus = attribute.Key("status")
	AttrNode   = attribute.Key("node")
	AttrAction = attribute.Key("action")
	AttrGraph  = attribute.Key("graph")
)

var (
	initOnce          sync.Once
	initErr           error
	runsCounter       metric.Int64Counter
	runDuration       metric.Float64Histogram
	nodeVisitsCounter metric.Int64Counter
	actionsCounter    metric.Int64Counter
)

func Meter() metric.Meter {
	return otelglobal.Meter(meterName)
}

// Init creates the instruments on the global meter. Only the first call has
// an effect, so install the MeterProvider before calling it.
func Init() error {
	initOnce.Do(func() {
		m := Meter()
		runsCounter, initErr = m.Int64Counter("ai_suite_runs_total", metric.WithDescription("Agent runs by final status"))
		if initErr != nil {
			return
		}
		runDuration, initErr = m.Float64Histogram("ai_suite_run_duration_seconds",
			metric.WithDescription("Agent run duration in seconds"), metric.WithUnit("s"))
		if initErr != nil {
			return
		}
		nodeVisitsCounter, initErr = m.Int64Counter("ai_suite_node_visits_total", metric.WithDescription("Graph node executions"))
		if initErr != nil {
			return
		}
		actionsCounter, initErr = m.Int64Counter("ai_suite_post_run_actions_total", metric.WithDescription("Post-run external actions by outcome"))
	})
	return initErr
}

func RecordRun(ctx context.Context, agent, tenant, status string, d time.Duration) {
	attrs := metric.WithAttributes(AttrAgent.String(agent), AttrTenant.String(tenant), AttrStatus.String(status))
	if runsCounter != nil {
		runsCounter.Add(ctx, 1, attrs)
	}
	if runDuration != nil {
		runDuration.Record(ctx, d.Seconds(), attrs)
	}
}

func RecordNodeVisit(ctx context.Context, graph, node string) {
	if nodeVisitsCounter == nil {
		return
	}
	nodeVisitsCounter.Add(ctx, 1, metric.WithAttributes(AttrGraph.String(graph), AttrNode.String(node)))
}

func RecordPostRunAction(ctx context.Context, agent, action, status string) {
	if actionsCounter == nil {
		return
	}
	actionsCounter.Add(ctx, 1, metric.WithAttributes(AttrAgent.String(agent), AttrAction.String(action), AttrStatus.String(status)))
}
