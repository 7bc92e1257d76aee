package crawlers

import (
	"errors"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
)

func newStubMonitor(available uint64, cpuLoad float64, memErr error) *ResourceMonitor {
	rm := NewResourceMonitor(DefaultResourceMonitorConfig())
	rm.virtualMemory = func() (*mem.VirtualMemoryStat, error) {
		if memErr != nil {
			return nil, memErr
		}
		return &mem.VirtualMemoryStat{Total: 8 << 30, Available: available}, nil
	}
	rm.cpuPercent = func(time.Duration, bool) ([]float64, error) {
		return []float64{cpuLoad}, nil
	}
	return rm
}

func TestResourceMonitor_Preflight(t *testing.T) {
	tests := []struct {
		name      string
		available uint64
		cpu       float64
		memErr    error
		wantOK    bool
		pressure  string
	}{
		{"资源充足", 4 << 30, 20, nil, true, "normal"},
		{"内存不足", 256 << 20, 20, nil, false, "critical"},
		{"内存紧急", 100 << 20, 20, nil, false, "emergency"},
		{"CPU过高", 4 << 30, 97, nil, false, "normal"},
		{"内存采样失败不阻止", 0, 10, errors.New("no /proc"), true, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rm := newStubMonitor(tt.available, tt.cpu, tt.memErr)

			if snap := rm.Snapshot(); snap.MemoryPressure != tt.pressure {
				t.Errorf("MemoryPressure = %s, want %s", snap.MemoryPressure, tt.pressure)
			}
			ok, reason := rm.Preflight()
			if ok != tt.wantOK {
				t.Errorf("Preflight() = %v (%s), want %v", ok, reason, tt.wantOK)
			}
			if !ok && reason == "" {
				t.Error("失败时应给出原因")
			}
		})
	}
}
