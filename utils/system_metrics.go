package utils

import (
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

// GetCPUUsage returns the current CPU usage as a percentage, sampled over interval.
func GetCPUUsage(interval time.Duration) float64 {
	percentage, err := cpu.Percent(interval, false)
	if err != nil {
		Error("failed to read CPU usage", err)
		return 0
	}
	if len(percentage) > 0 {
		return percentage[0]
	}
	return 0
}

// GetMemoryUsage returns the used share of physical memory as a percentage.
func GetMemoryUsage() float64 {
	vm, err := mem.VirtualMemory()
	if err != nil {
		Error("failed to read memory usage", err)
		return 0
	}
	return vm.UsedPercent
}
