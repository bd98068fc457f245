// Package system provides host information for the exporter's system
// endpoint, so an operator can tell at a glance which box a scrape target
// is and how long it has been up.
package system

import (
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/host"
)

// Info represents static host information.
type Info struct {
	Hostname     string    `json:"hostname"`
	OSName       string    `json:"os_name"`
	OSVersion    string    `json:"os_version"`
	Kernel       string    `json:"kernel"`
	Architecture string    `json:"architecture"`
	UptimeSecs   uint64    `json:"uptime_seconds"`
	BootTime     time.Time `json:"boot_time"`
}

// GetInfo returns static host information. Individual lookups failing
// leave their fields zero rather than failing the whole call.
func GetInfo() (*Info, error) {
	info := &Info{
		Architecture: runtime.GOARCH,
	}

	if hostname, err := os.Hostname(); err == nil {
		info.Hostname = hostname
	}

	hi, err := host.Info()
	if err != nil {
		return info, err
	}
	info.OSName = hi.Platform
	info.OSVersion = hi.PlatformVersion
	info.Kernel = hi.KernelVersion
	info.UptimeSecs = hi.Uptime
	info.BootTime = time.Unix(int64(hi.BootTime), 0)

	return info, nil
}
