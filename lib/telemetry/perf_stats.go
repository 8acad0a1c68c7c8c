package telemetry

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"go.opentelemetry.io/otel"
)

var meter = otel.Meter("rbgcli.perf_stats")
var cpuGauge, _ = meter.Float64Gauge("cpu_usage")
var heapGauge, _ = meter.Int64Gauge("heap_mb")
var liveObjectsGauge, _ = meter.Int64Gauge("live_objects")
var goroutineGauge, _ = meter.Int64Gauge("goroutine_count")

// InstrumentPerfStats samples process stats for the lifetime of ctx.
// Invocations are short-lived so the first sample fires immediately and
// cpu usage is measured non-blocking against the previous sample.
func InstrumentPerfStats(ctx context.Context) {
	// prime the cpu delta so later non-blocking reads mean something
	cpu.Percent(0, false)

	record := func() {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		usage, err := cpu.Percent(0, false)
		if err != nil {
			slog.Warn("failed to read cpu usage", "err", err)
		} else if len(usage) > 0 {
			cpuGauge.Record(ctx, usage[0])
		}

		heapGauge.Record(ctx, int64(memStats.HeapAlloc/1_000_000))
		liveObjectsGauge.Record(ctx, int64(memStats.Mallocs)-int64(memStats.Frees))
		goroutineGauge.Record(ctx, int64(runtime.NumGoroutine()))
	}

	go func() {
		ticker := time.NewTicker(time.Second * 15)
		defer ticker.Stop()
		record()

		for {
			select {
			case <-ticker.C:
				record()
			case <-ctx.Done():
				return
			}
		}
	}()
}
