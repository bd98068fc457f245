// Package smartctl probes a drive's power state through the smartctl
// binary without spinning the drive up, and decodes the free-text answer
// into a canonical power state.
package smartctl

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nuclearlighters/diskstatus/internal/cooldown"
	"github.com/nuclearlighters/diskstatus/internal/power"
)

// phraseTable maps smartctl power-mode phrases to states, scanned
// case-insensitively in order with first match winning. Order is
// load-bearing: STANDBY and the IDLE_x variants must be tried before the
// bare ACTIVE and IDLE markers they contain. A new smartctl phrasing is a
// one-line addition here.
var phraseTable = []struct {
	marker string
	state  power.State
}{
	{"STANDBY", power.Standby},
	{"SLEEP", power.Sleep},
	{"IDLE_A", power.IdleA},
	{"IDLE_B", power.IdleB},
	{"IDLE_C", power.IdleC},
	{"ACTIVE OR IDLE", power.ActiveOrIdle},
	{"ACTIVE/IDLE", power.ActiveOrIdle},
	{"ACTIVE", power.Active},
	{"IDLE", power.Idle},
}

// unsupportedMarkers indicate the drive has no usable SMART subsystem.
// Such drives decode to unknown regardless of exit status.
var unsupportedMarkers = []string{
	"SMART SUPPORT IS: UNAVAILABLE",
	"DEVICE LACKS SMART CAPABILITY",
	"DEVICE DOES NOT SUPPORT SMART",
	"OPERATION NOT SUPPORTED",
}

// Prober queries one device at a time. Safe for concurrent use; the only
// shared state is the cooldown table, which is safe itself.
type Prober struct {
	binary   string
	timeout  time.Duration
	cooldown *cooldown.Table
	run      runFunc // injectable for testing
}

type runFunc func(ctx context.Context, binary string, args ...string) (string, bool, error)

// NewProber creates a Prober around the given smartctl binary. Devices that
// time out are parked in the cooldown table and reported unknown until
// their window elapses.
func NewProber(binary string, timeout time.Duration, cd *cooldown.Table) *Prober {
	return &Prober{
		binary:   binary,
		timeout:  timeout,
		cooldown: cd,
		run:      runSmartctl,
	}
}

// runSmartctl executes smartctl and reports (combined output, whether the
// command ran to completion and merely exited non-zero, error).
func runSmartctl(ctx context.Context, binary string, args ...string) (string, bool, error) {
	out, err := exec.CommandContext(ctx, binary, args...).CombinedOutput()
	if ctx.Err() == context.DeadlineExceeded {
		return string(out), false, context.DeadlineExceeded
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return string(out), true, err
	}
	return string(out), false, err
}

// Probe returns the device's power state.
//
// Devices in cooldown are answered immediately with unknown: no process is
// spawned at all. `-n standby` guarantees the query itself never wakes the
// drive, and `-d sat` pins the transport so smartctl's autodetection cannot
// fall through to a probe variant that would.
func (p *Prober) Probe(ctx context.Context, device string) power.State {
	if p.cooldown.InCooldown(device) {
		log.Debug().Str("device", device).Msg("Device in cooldown, skipping probe")
		return power.Unknown
	}

	cctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	out, exited, err := p.run(cctx, p.binary, "-n", "standby", "-d", "sat", "-i", device)

	if errors.Is(err, context.DeadlineExceeded) {
		// The deadline may belong to the caller, not the probe timer: a
		// request abort mid-probe says nothing about the drive's health
		// and must not park it in cooldown.
		if ctx.Err() != nil {
			log.Debug().Str("device", device).Msg("Probe abandoned, caller context done")
			return power.Unknown
		}
		// A hung drive must not be hammered every scan; a plain tool error
		// below must not silence monitoring, so only timeouts arm this.
		p.cooldown.Set(device)
		log.Warn().Str("device", device).Dur("timeout", p.timeout).Msg("smartctl timed out, device entering cooldown")
		return power.Unknown
	}
	if err != nil && !exited {
		log.Warn().Err(err).Str("device", device).Msg("smartctl invocation failed")
		return power.Error
	}

	return Decode(out, err == nil)
}

// Decode maps smartctl output to a power state. cleanExit tells whether the
// command exited zero; smartctl exit codes are advisory only, so they break
// ties but never override a matched phrase.
func Decode(out string, cleanExit bool) power.State {
	upper := strings.ToUpper(out)

	for _, marker := range unsupportedMarkers {
		if strings.Contains(upper, marker) {
			return power.Unknown
		}
	}
	for _, entry := range phraseTable {
		if strings.Contains(upper, entry.marker) {
			return entry.state
		}
	}
	if !cleanExit {
		return power.Unknown
	}
	// Healthy exit but unrecognized text: we cannot rule out activity, and
	// reporting a possibly-spinning drive as dormant is the worse mistake.
	return power.ActiveOrIdle
}
