package workers

import (
	"chat-relay/observability"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shirou/gopsutil/process"
)

// ProcessStatsWorker samples the resource usage of one process and exposes
// it through the process gauges.
type ProcessStatsWorker struct {
	log            *slog.Logger
	metrics        *observability.Metrics
	pid            int32
	metricInterval time.Duration
}

func NewProcessStatsWorker(log *slog.Logger, metrics *observability.Metrics, pid int, metricInterval time.Duration) *ProcessStatsWorker {
	return &ProcessStatsWorker{
		log:            log,
		metrics:        metrics,
		pid:            int32(pid),
		metricInterval: metricInterval,
	}
}

func (w *ProcessStatsWorker) Run(ctx context.Context) error {
	p, err := process.NewProcess(w.pid)
	if err != nil {
		return fmt.Errorf("process %d not found: %w", w.pid, err)
	}

	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		w.sample(p)
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping process sampling")
			return nil
		case <-ticker.C:
		}
	}
}

func (w *ProcessStatsWorker) sample(p *process.Process) {
	mem, err := p.MemoryInfo()
	if err != nil {
		w.log.Error("Error while finding process ram usage", "pid", w.pid, "error", err)
	} else {
		w.metrics.ProcessRSSBytes.Set(float64(mem.RSS))
	}

	cpu, err := p.CPUPercent()
	if err != nil {
		w.log.Error("Error while finding process cpu usage", "pid", w.pid, "error", err)
		return
	}
	w.metrics.ProcessCPUPercent.Set(cpu)
}
