package models

import "time"

// HostStats is a snapshot of the machine running the API.
type HostStats struct {
	CPUPercent    float64   `json:"cpuPercent"`
	MemoryTotal   uint64    `json:"memoryTotal"`
	MemoryUsed    uint64    `json:"memoryUsed"`
	MemoryPercent float64   `json:"memoryPercent"`
	DiskPath      string    `json:"diskPath"`
	DiskTotal     uint64    `json:"diskTotal"`
	DiskUsed      uint64    `json:"diskUsed"`
	DiskPercent   float64   `json:"diskPercent"`
	UptimeSeconds uint64    `json:"uptimeSeconds"`
	CollectedAt   time.Time `json:"collectedAt"`
}
