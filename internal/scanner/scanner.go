// Package scanner orchestrates a full disk scan: enumeration, pool
// correlation and concurrent multi-sample power probing, producing one
// point-in-time Snapshot for the rendering layer.
package scanner

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nuclearlighters/diskstatus/internal/device"
	"github.com/nuclearlighters/diskstatus/internal/power"
)

// DeviceLister enumerates candidate disks and resolves their identities.
type DeviceLister interface {
	List() []device.Device
	PersistentID(devPath string) string
}

// PoolResolver maps base device paths to storage-pool names.
type PoolResolver interface {
	DeviceMap(ctx context.Context) map[string]string
}

// Prober returns the power state of one device.
type Prober interface {
	Probe(ctx context.Context, devPath string) power.State
}

// Options tune the scan orchestration.
type Options struct {
	// Attempts is how many sequential samples to take per device; the
	// highest-activity sample wins. Repeated sampling is the engine's
	// retry mechanism.
	Attempts int
	// SampleDelay spaces successive samples of the same device.
	SampleDelay time.Duration
	// Concurrency bounds how many devices are probed in flight at once.
	Concurrency int
}

// Result is the outcome for one scanned device.
type Result struct {
	Device       string      `json:"device"`
	PersistentID string      `json:"device_id"`
	Type         string      `json:"type"`
	Pool         string      `json:"pool"`
	State        power.State `json:"-"`
	StateName    string      `json:"state"`
	Code         int         `json:"code"`
}

// Counters are the scan-wide bookkeeping numbers. They always satisfy
// ScannedHDDs + SkippedNonRotational + SkippedVirtual == Enumerated.
type Counters struct {
	Enumerated           int `json:"enumerated"`
	ScannedHDDs          int `json:"scanned_hdds"`
	SkippedNonRotational int `json:"skipped_non_rotational"`
	SkippedVirtual       int `json:"skipped_virtual"`
}

// Snapshot is the complete output of one scan, sorted by device path.
type Snapshot struct {
	Results  []Result      `json:"results"`
	Counters Counters      `json:"counters"`
	TakenAt  time.Time     `json:"taken_at"`
	Duration time.Duration `json:"duration"`
}

// Scanner runs scans and retains the most recent snapshot.
type Scanner struct {
	devices DeviceLister
	pools   PoolResolver
	prober  Prober
	opts    Options

	mu   sync.RWMutex
	last *Snapshot
}

// New creates a Scanner. Zero or negative option fields fall back to one
// sample, no delay and serial probing respectively.
func New(devices DeviceLister, pools PoolResolver, prober Prober, opts Options) *Scanner {
	if opts.Attempts < 1 {
		opts.Attempts = 1
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Scanner{
		devices: devices,
		pools:   pools,
		prober:  prober,
		opts:    opts,
	}
}

// Scan performs a full scan and returns the snapshot, which is also
// retained for Latest. Individual device failures never abort the scan;
// they degrade that device's result per the prober's contract.
func (s *Scanner) Scan(ctx context.Context) *Snapshot {
	start := time.Now()

	devices := s.devices.List()
	poolMap := s.pools.DeviceMap(ctx)

	counters := Counters{Enumerated: len(devices)}
	eligible := make([]device.Device, 0, len(devices))
	for _, d := range devices {
		switch {
		case d.Type != device.TypeHDD:
			counters.SkippedNonRotational++
		case d.Virtual:
			counters.SkippedVirtual++
		default:
			counters.ScannedHDDs++
			eligible = append(eligible, d)
		}
	}

	// Bounded worker pool: excess devices queue on the channel instead of
	// spawning unbounded goroutines. Each worker finishes one device's
	// whole sample sequence before taking the next.
	work := make(chan device.Device)
	results := make([]Result, 0, len(eligible))
	var (
		resultsMu sync.Mutex
		wg        sync.WaitGroup
	)
	for i := 0; i < s.opts.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for d := range work {
				r := s.scanDevice(ctx, d, poolMap)
				resultsMu.Lock()
				results = append(results, r)
				resultsMu.Unlock()
			}
		}()
	}
	for _, d := range eligible {
		work <- d
	}
	close(work)
	wg.Wait()

	// Completion order is scheduling noise; output order is contractual.
	sort.Slice(results, func(i, j int) bool { return results[i].Device < results[j].Device })

	snap := &Snapshot{
		Results:  results,
		Counters: counters,
		TakenAt:  start,
		Duration: time.Since(start),
	}

	s.mu.Lock()
	s.last = snap
	s.mu.Unlock()

	log.Info().
		Int("enumerated", counters.Enumerated).
		Int("scanned_hdds", counters.ScannedHDDs).
		Int("skipped_non_rotational", counters.SkippedNonRotational).
		Int("skipped_virtual", counters.SkippedVirtual).
		Dur("duration", snap.Duration).
		Msg("Scan complete")

	return snap
}

// scanDevice takes the device's full sample sequence sequentially and
// folds it to the highest-activity observation.
func (s *Scanner) scanDevice(ctx context.Context, d device.Device, poolMap map[string]string) Result {
	state := s.prober.Probe(ctx, d.Path)
	for i := 1; i < s.opts.Attempts; i++ {
		if !sleepCtx(ctx, s.opts.SampleDelay) {
			break
		}
		state = power.Merge(state, s.prober.Probe(ctx, d.Path))
	}

	pool, ok := poolMap[device.BaseDevice(d.Path)]
	if !ok {
		pool = "none"
	}

	return Result{
		Device:       d.Path,
		PersistentID: s.devices.PersistentID(d.Path),
		Type:         d.Type,
		Pool:         pool,
		State:        state,
		StateName:    state.String(),
		Code:         state.Code(),
	}
}

// Latest returns the most recent snapshot, or nil before the first scan.
func (s *Scanner) Latest() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// sleepCtx waits for d or until the context is done; it reports whether
// the full delay elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
