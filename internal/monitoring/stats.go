package monitoring

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/isdelr/annotation-hub-be/internal/models"
	"github.com/isdelr/annotation-hub-be/internal/services"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

const (
	highCPUThreshold = 90.0
	alertCooldown    = 15 * time.Minute
)

// StatsCollector reads host resource usage.
type StatsCollector struct {
	diskPath string
	sample   time.Duration
	eventSvc services.EventServiceProvider

	mu        sync.Mutex
	lastAlert time.Time
}

// NewStatsCollector creates a collector reporting disk usage for the filesystem holding diskPath.
func NewStatsCollector(diskPath string, eventSvc services.EventServiceProvider) *StatsCollector {
	if diskPath == "" {
		diskPath = "/"
	}
	return &StatsCollector{diskPath: diskPath, sample: 200 * time.Millisecond, eventSvc: eventSvc}
}

// Collect takes a snapshot of CPU, memory, disk and uptime.
func (sc *StatsCollector) Collect(ctx context.Context) (models.HostStats, error) {
	stats := models.HostStats{DiskPath: sc.diskPath, CollectedAt: time.Now().UTC()}

	percents, err := cpu.PercentWithContext(ctx, sc.sample, false)
	if err != nil {
		return stats, fmt.Errorf("reading cpu usage: %w", err)
	}
	if len(percents) > 0 {
		stats.CPUPercent = percents[0]
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return stats, fmt.Errorf("reading memory usage: %w", err)
	}
	stats.MemoryTotal = vm.Total
	stats.MemoryUsed = vm.Used
	stats.MemoryPercent = vm.UsedPercent

	usage, err := disk.UsageWithContext(ctx, sc.diskPath)
	if err != nil {
		return stats, fmt.Errorf("reading disk usage of %s: %w", sc.diskPath, err)
	}
	stats.DiskTotal = usage.Total
	stats.DiskUsed = usage.Used
	stats.DiskPercent = usage.UsedPercent

	uptime, err := host.UptimeWithContext(ctx)
	if err != nil {
		return stats, fmt.Errorf("reading uptime: %w", err)
	}
	stats.UptimeSeconds = uptime
	return stats, nil
}

// CheckCPU records a warning event when CPU usage is high, at most once per cooldown.
func (sc *StatsCollector) CheckCPU(ctx context.Context) {
	stats, err := sc.Collect(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("StatsCollector: Could not collect host stats")
		return
	}
	sc.alertIfHigh(stats.CPUPercent, time.Now())
}

func (sc *StatsCollector) alertIfHigh(cpuPercent float64, at time.Time) bool {
	if cpuPercent <= highCPUThreshold {
		return false
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if !sc.lastAlert.IsZero() && at.Sub(sc.lastAlert) < alertCooldown {
		return false
	}
	sc.lastAlert = at
	msg := fmt.Sprintf("High CPU usage (%.1f%%) detected on the API host.", cpuPercent)
	if err := sc.eventSvc.CreateEvent("system.alert.cpu", "warn", msg, nil, nil); err != nil {
		log.Error().Err(err).Msg("StatsCollector: Failed to record cpu alert")
	}
	return true
}
