package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

// HealthWorker periodically logs the resource usage of the server
// process together with the current session count. Observability only;
// nothing reacts to these numbers.
type HealthWorker struct {
	log            *slog.Logger
	metricInterval time.Duration
	onlineCount    func() int
}

func NewHealthWorker(log *slog.Logger, metricInterval time.Duration, onlineCount func() int) *HealthWorker {
	return &HealthWorker{log: log, metricInterval: metricInterval, onlineCount: onlineCount}
}

func (w *HealthWorker) Run(ctx context.Context) error {
	self, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping health worker")
			return nil
		case <-ticker.C:
			cpu, err := self.CPUPercent()
			if err != nil {
				w.log.Error("Error while reading process cpu usage", "err", err)
				continue
			}
			ram, err := self.MemoryPercent()
			if err != nil {
				w.log.Error("Error while reading process ram usage", "err", err)
				continue
			}
			w.log.Info("telemetry: process health",
				"cpu_percent", cpu,
				"ram_percent", ram,
				"online_users", w.onlineCount(),
			)
		}
	}
}
