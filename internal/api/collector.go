package api

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nuclearlighters/diskstatus/internal/scanner"
)

// SnapshotSource yields the scan snapshot to render. Depending on the scan
// schedule, an implementation either triggers a fresh scan per scrape or
// returns the latest background-scan result.
type SnapshotSource func(ctx context.Context) *scanner.Snapshot

// DiskCollector implements prometheus.Collector over scan snapshots.
//
// disk_power_state carries the numeric code for existing alerting rules;
// disk_power_mode_info and disk_info are constant-1 metrics carrying the
// textual state and static device labels for joins.
type DiskCollector struct {
	source SnapshotSource

	diskInfo      *prometheus.Desc
	powerModeInfo *prometheus.Desc
	powerState    *prometheus.Desc

	enumerated     *prometheus.Desc
	scannedHDDs    *prometheus.Desc
	skippedNonRot  *prometheus.Desc
	skippedVirtual *prometheus.Desc
	scanDuration   *prometheus.Desc
}

// NewDiskCollector creates a collector rendering snapshots from source.
func NewDiskCollector(source SnapshotSource) *DiskCollector {
	deviceLabels := []string{"device_id", "device", "type", "pool"}
	return &DiskCollector{
		source: source,
		diskInfo: prometheus.NewDesc(
			"disk_info",
			"Static labels describing the disk (type/pool). Always 1.",
			deviceLabels, nil,
		),
		powerModeInfo: prometheus.NewDesc(
			"disk_power_mode_info",
			"Disk power mode as reported by smartctl (label state=...). Always 1.",
			append(deviceLabels[:4:4], "state"), nil,
		),
		powerState: prometheus.NewDesc(
			"disk_power_state",
			"Current disk power state as a numeric code (0=standby, 1=idle, 2=active_or_idle, -1=unknown, -2=error; finer-grained states use appended codes).",
			deviceLabels, nil,
		),
		enumerated: prometheus.NewDesc(
			"disk_scan_devices_enumerated",
			"Block devices enumerated by the last scan.",
			nil, nil,
		),
		scannedHDDs: prometheus.NewDesc(
			"disk_scan_hdds_scanned",
			"Rotational, non-virtual devices probed by the last scan.",
			nil, nil,
		),
		skippedNonRot: prometheus.NewDesc(
			"disk_scan_skipped_non_rotational",
			"Devices skipped by the last scan because they are not rotational.",
			nil, nil,
		),
		skippedVirtual: prometheus.NewDesc(
			"disk_scan_skipped_virtual",
			"Devices skipped by the last scan because they are virtual.",
			nil, nil,
		),
		scanDuration: prometheus.NewDesc(
			"disk_scan_duration_seconds",
			"Wall-clock duration of the last scan.",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *DiskCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.diskInfo
	ch <- c.powerModeInfo
	ch <- c.powerState
	ch <- c.enumerated
	ch <- c.scannedHDDs
	ch <- c.skippedNonRot
	ch <- c.skippedVirtual
	ch <- c.scanDuration
}

// Collect implements prometheus.Collector.
func (c *DiskCollector) Collect(ch chan<- prometheus.Metric) {
	snap := c.source(context.Background())
	if snap == nil {
		return
	}

	for _, r := range snap.Results {
		labels := []string{r.PersistentID, r.Device, r.Type, r.Pool}
		ch <- prometheus.MustNewConstMetric(c.diskInfo, prometheus.GaugeValue, 1, labels...)
		ch <- prometheus.MustNewConstMetric(c.powerModeInfo, prometheus.GaugeValue, 1,
			append(labels[:4:4], r.State.Mode())...)
		ch <- prometheus.MustNewConstMetric(c.powerState, prometheus.GaugeValue, float64(r.Code), labels...)
	}

	ch <- prometheus.MustNewConstMetric(c.enumerated, prometheus.GaugeValue, float64(snap.Counters.Enumerated))
	ch <- prometheus.MustNewConstMetric(c.scannedHDDs, prometheus.GaugeValue, float64(snap.Counters.ScannedHDDs))
	ch <- prometheus.MustNewConstMetric(c.skippedNonRot, prometheus.GaugeValue, float64(snap.Counters.SkippedNonRotational))
	ch <- prometheus.MustNewConstMetric(c.skippedVirtual, prometheus.GaugeValue, float64(snap.Counters.SkippedVirtual))
	ch <- prometheus.MustNewConstMetric(c.scanDuration, prometheus.GaugeValue, snap.Duration.Seconds())
}
