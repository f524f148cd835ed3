package process

import (
	"context"
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/perfguard/backend/internal/shared/types"
)

// Snapshotter reads the OS process table via gopsutil. CPU percentages
// are normalized by core count so a fully loaded single core on an
// 8-core machine reads 12.5, not 100.
type Snapshotter struct {
	cores float64
}

// NewSnapshotter creates a process table snapshotter.
func NewSnapshotter() *Snapshotter {
	return &Snapshotter{cores: float64(runtime.NumCPU())}
}

// Snapshot returns one sample per readable process. Processes that
// disappear mid-read or deny access are skipped, not errors.
func (s *Snapshotter) Snapshot(ctx context.Context) ([]types.ProcessSample, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read memory stats: %w", err)
	}
	totalMB := float64(vm.Total) / (1024 * 1024)

	samples := make([]types.ProcessSample, 0, len(procs))
	for _, p := range procs {
		if p == nil || p.Pid <= 0 {
			continue
		}

		name, err := p.NameWithContext(ctx)
		if err != nil || name == "" {
			continue
		}

		sample := types.ProcessSample{
			PID:  uint32(p.Pid),
			Name: name,
		}

		if cpu, err := p.CPUPercentWithContext(ctx); err == nil {
			sample.CPUPercent = cpu / s.cores
		}
		if info, err := p.MemoryInfoWithContext(ctx); err == nil && info != nil {
			sample.MemoryMB = float64(info.RSS) / (1024 * 1024)
			if totalMB > 0 {
				sample.MemoryPercent = sample.MemoryMB / totalMB * 100
			}
		}
		if exe, err := p.ExeWithContext(ctx); err == nil {
			sample.ExePath = exe
		}
		// Per-process GPU usage has no portable source; it stays 0 and the
		// aggregate carries it through unchanged.

		samples = append(samples, sample)
	}

	return samples, nil
}
