// Package memmon implements the memory monitor: a ticker-driven RSS sampler
// that triggers the cache registry's pressure-clear sweep once process
// memory crosses a configured fraction of its soft cap.
package memmon

import (
	"context"
	"os"
	"time"

	"github.com/shirou/gopsutil/v4/process"
	"go.uber.org/zap"

	"github.com/nclsjn/youtubingest/internal/cache"
	"github.com/nclsjn/youtubingest/internal/metrics"
)

// Monitor samples the current process's resident set size on an interval
// and drains caches under the registry when it crosses a high-water mark.
type Monitor struct {
	reg           *cache.Registry
	proc          *process.Process
	softCapBytes  uint64
	highWater     float64
	interval      time.Duration
	log           *zap.Logger
	breakerStates func() (quota, general int)
}

// New builds a Monitor for the current process. softCapBytes is the memory
// budget this process is expected to stay under; highWaterFraction (e.g.
// 0.75) is the fraction of that budget at which pressure-clearing begins.
// breakerStates, if non-nil, is polled on every tick to publish circuit
// breaker state as a metrics gauge; pass nil to skip that reporting.
func New(reg *cache.Registry, softCapBytes uint64, highWaterFraction float64, interval time.Duration, log *zap.Logger, breakerStates func() (quota, general int)) (*Monitor, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	return &Monitor{
		reg:           reg,
		proc:          proc,
		softCapBytes:  softCapBytes,
		highWater:     highWaterFraction,
		interval:      interval,
		log:           log,
		breakerStates: breakerStates,
	}, nil
}

// Run samples memory every interval until ctx is canceled: a blocking call
// that returns once its context is done.
func (m *Monitor) Run(ctx context.Context) {
	if m.interval <= 0 {
		m.interval = 30 * time.Second
	}
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sampleOnce(ctx)
		}
	}
}

func (m *Monitor) sampleOnce(ctx context.Context) {
	metrics.ReportCacheStats(m.reg)
	if m.breakerStates != nil {
		quota, general := m.breakerStates()
		metrics.SetBreakerState("quota", quota)
		metrics.SetBreakerState("general", general)
	}

	info, err := m.proc.MemoryInfoWithContext(ctx)
	if err != nil {
		if m.log != nil {
			m.log.Warn("failed to sample process memory", zap.Error(err))
		}
		return
	}

	threshold := uint64(float64(m.softCapBytes) * m.highWater)
	if m.softCapBytes == 0 || info.RSS < threshold {
		return
	}

	if m.log != nil {
		m.log.Info("memory high water mark crossed, clearing caches under pressure",
			zap.Uint64("rss_bytes", info.RSS),
			zap.Uint64("threshold_bytes", threshold))
	}

	cleared := m.reg.PressureClear(func() bool {
		updated, err := m.proc.MemoryInfoWithContext(ctx)
		if err != nil {
			return true
		}
		return updated.RSS < threshold
	})
	if m.log != nil {
		m.log.Info("pressure clear complete", zap.Any("evicted", cleared))
	}
}
