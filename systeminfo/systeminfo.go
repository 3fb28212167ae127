package systeminfo

import (
	"runtime"

	"huntsman/logger"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
)

type SystemInfo struct {
	Hostname        string     `json:"hostname"`
	OS              string     `json:"os"`
	Arch            string     `json:"arch"`
	Platform        string     `json:"platform"`
	PlatformVersion string     `json:"platform_version"`
	KernelVersion   string     `json:"kernel_version"`
	CPUModel        string     `json:"cpu_model"`
	CPUCores        int        `json:"cpu_cores"`
	TotalMemory     uint64     `json:"total_memory"`
	UsedMemory      uint64     `json:"used_memory"`
	Disks           []DiskInfo `json:"disks"`
}

type DiskInfo struct {
	Device     string `json:"device"`
	Mountpoint string `json:"mountpoint"`
	Fstype     string `json:"fstype"`
	Total      uint64 `json:"total,omitempty"`
	Free       uint64 `json:"free,omitempty"`
}

// Collect gathers the host environment snapshot logged at startup and
// embedded in the output header. Partial failures degrade to empty fields.
func Collect() *SystemInfo {
	info := &SystemInfo{
		OS:   runtime.GOOS,
		Arch: runtime.GOARCH,
	}

	if h, err := host.Info(); err == nil {
		info.Hostname = h.Hostname
		info.Platform = h.Platform
		info.PlatformVersion = h.PlatformVersion
		info.KernelVersion = h.KernelVersion
	} else {
		logger.Warnf("Failed to gather host information: %v", err)
	}

	if cpus, err := cpu.Info(); err == nil && len(cpus) > 0 {
		info.CPUModel = cpus[0].ModelName
	} else if err != nil {
		logger.Warnf("Failed to gather CPU information: %v", err)
	}
	if cores, err := cpu.Counts(true); err == nil {
		info.CPUCores = cores
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		info.TotalMemory = vm.Total
		info.UsedMemory = vm.Used
	} else {
		logger.Warnf("Failed to gather memory information: %v", err)
	}

	if partitions, err := disk.Partitions(false); err == nil {
		for _, p := range partitions {
			d := DiskInfo{Device: p.Device, Mountpoint: p.Mountpoint, Fstype: p.Fstype}
			if usage, err := disk.Usage(p.Mountpoint); err == nil {
				d.Total = usage.Total
				d.Free = usage.Free
			}
			info.Disks = append(info.Disks, d)
		}
	} else {
		logger.Warnf("Failed to gather disk information: %v", err)
	}

	return info
}

// Log writes the environment report at info level, one line per concern.
func (s *SystemInfo) Log() {
	logger.Infof("Operating system information OS: %s ARCH: %s", s.OS, s.Arch)
	logger.Infof("System information PLATFORM: %s VERSION: %s KERNEL: %s HOSTNAME: %s",
		s.Platform, s.PlatformVersion, s.KernelVersion, s.Hostname)
	logger.Infof("CPU information NUM_CORES: %d MODEL: %s", s.CPUCores, s.CPUModel)
	logger.Infof("Memory information TOTAL: %d USED: %d", s.TotalMemory, s.UsedMemory)
	for _, d := range s.Disks {
		logger.Infof("Disk DEVICE: %s FS_TYPE: %s MOUNT_POINT: %s TOTAL: %d FREE: %d",
			d.Device, d.Fstype, d.Mountpoint, d.Total, d.Free)
	}
}
