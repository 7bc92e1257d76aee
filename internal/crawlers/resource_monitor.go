package crawlers

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// ResourceMonitor 启动浏览器前的系统资源检查
// 资源不足只告警, 不阻止启动
type ResourceMonitor struct {
	config ResourceMonitorConfig

	virtualMemory func() (*mem.VirtualMemoryStat, error)
	cpuPercent    func(interval time.Duration, percpu bool) ([]float64, error)
}

// ResourceMonitorConfig 资源检查阈值
type ResourceMonitorConfig struct {
	MinAvailableMemory uint64  // 最低可用内存(字节), Chromium 单实例约 300MB
	CPULoadThreshold   float64 // CPU负载阈值(%)
	SampleInterval     time.Duration
}

// DefaultResourceMonitorConfig 默认阈值
func DefaultResourceMonitorConfig() ResourceMonitorConfig {
	return ResourceMonitorConfig{
		MinAvailableMemory: 512 * 1024 * 1024,
		CPULoadThreshold:   90,
		SampleInterval:     100 * time.Millisecond,
	}
}

// ResourceSnapshot 一次采样结果
type ResourceSnapshot struct {
	TotalMemory     uint64
	AvailableMemory uint64
	CPUPercent      float64
	MemoryPressure  string
}

// NewResourceMonitor 创建资源监控器
func NewResourceMonitor(config ResourceMonitorConfig) *ResourceMonitor {
	if config.SampleInterval <= 0 {
		config.SampleInterval = 100 * time.Millisecond
	}
	return &ResourceMonitor{
		config:        config,
		virtualMemory: mem.VirtualMemory,
		cpuPercent:    cpu.Percent,
	}
}

// Snapshot 采样内存和CPU, 采样失败的项保持为0
func (rm *ResourceMonitor) Snapshot() ResourceSnapshot {
	var snap ResourceSnapshot

	if vm, err := rm.virtualMemory(); err != nil {
		log.Warn().Err(err).Msg("获取系统内存失败")
	} else {
		snap.TotalMemory = vm.Total
		snap.AvailableMemory = vm.Available
	}

	if percentages, err := rm.cpuPercent(rm.config.SampleInterval, false); err != nil {
		log.Warn().Err(err).Msg("获取CPU使用率失败")
	} else if len(percentages) > 0 {
		snap.CPUPercent = percentages[0]
	}

	availableMB := snap.AvailableMemory / (1024 * 1024)
	switch {
	case snap.TotalMemory == 0:
		snap.MemoryPressure = "unknown"
	case availableMB < 200:
		snap.MemoryPressure = "emergency"
	case availableMB < 300:
		snap.MemoryPressure = "critical"
	case availableMB < 500:
		snap.MemoryPressure = "warning"
	default:
		snap.MemoryPressure = "normal"
	}

	return snap
}

// Preflight 启动前检查, 返回是否充足以及原因
func (rm *ResourceMonitor) Preflight() (ok bool, reason string) {
	snap := rm.Snapshot()

	log.Info().
		Str("total", formatMB(snap.TotalMemory)).
		Str("available", formatMB(snap.AvailableMemory)).
		Float64("cpu_percent", snap.CPUPercent).
		Str("pressure", snap.MemoryPressure).
		Msg("🖥️  系统资源检查")

	if snap.TotalMemory > 0 && snap.AvailableMemory < rm.config.MinAvailableMemory {
		reason = fmt.Sprintf("可用内存不足(当前%s, 建议至少%s)",
			formatMB(snap.AvailableMemory), formatMB(rm.config.MinAvailableMemory))
		log.Warn().Msg(reason)
		return false, reason
	}

	if rm.config.CPULoadThreshold > 0 && snap.CPUPercent > rm.config.CPULoadThreshold {
		reason = fmt.Sprintf("CPU负载过高(当前%.1f%%)", snap.CPUPercent)
		log.Warn().Msg(reason)
		return false, reason
	}

	return true, ""
}

func formatMB(b uint64) string {
	return fmt.Sprintf("%dMB", b/(1024*1024))
}
