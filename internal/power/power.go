// Package power defines the canonical drive power states reported by the
// exporter, their activity ordering, and the numeric codes exposed to
// Prometheus consumers.
package power

// State is a drive power state. The integer value of a State is its
// activity rank: higher means more awake. Aggregation of repeated samples
// always keeps the highest rank, so a drive that answered "ACTIVE" once
// during a scan is reported active even if later samples saw it idle.
type State int

const (
	Error State = iota // probe invocation failed
	Unknown
	Sleep
	Standby
	IdleA
	IdleB
	IdleC
	Idle
	ActiveOrIdle
	Active
)

// String returns the lowercase identifier used in logs and metric labels.
func (s State) String() string {
	switch s {
	case Error:
		return "error"
	case Unknown:
		return "unknown"
	case Sleep:
		return "sleep"
	case Standby:
		return "standby"
	case IdleA:
		return "idle_a"
	case IdleB:
		return "idle_b"
	case IdleC:
		return "idle_c"
	case Idle:
		return "idle"
	case ActiveOrIdle:
		return "active_or_idle"
	case Active:
		return "active"
	default:
		return "unknown"
	}
}

// Mode returns the uppercase mode label matching smartctl's own spelling,
// used as the state label on disk_power_mode_info.
func (s State) Mode() string {
	switch s {
	case Error:
		return "ERROR"
	case Sleep:
		return "SLEEP"
	case Standby:
		return "STANDBY"
	case IdleA:
		return "IDLE_A"
	case IdleB:
		return "IDLE_B"
	case IdleC:
		return "IDLE_C"
	case Idle:
		return "IDLE"
	case ActiveOrIdle:
		return "ACTIVE OR IDLE"
	case Active:
		return "ACTIVE"
	default:
		return "UNKNOWN"
	}
}

// Code returns the numeric value published as disk_power_state.
//
// The first five codes predate this implementation and are kept as-is so
// existing Prometheus alerting rules keep working; the finer-grained states
// were appended with fresh codes rather than renumbering.
func (s State) Code() int {
	switch s {
	case Standby:
		return 0
	case Idle:
		return 1
	case ActiveOrIdle:
		return 2
	case Unknown:
		return -1
	case Error:
		return -2
	case Sleep:
		return 3
	case IdleA:
		return 4
	case IdleB:
		return 5
	case IdleC:
		return 6
	case Active:
		return 7
	default:
		return -1
	}
}

// Rank returns the activity rank used for aggregation. Ordering, low to
// high: error < unknown < sleep < standby < idle_a < idle_b < idle_c <
// idle < active_or_idle < active.
func (s State) Rank() int {
	return int(s)
}

// Merge reduces two samples of the same device to the more-awake one.
// Ties keep the first argument, so folding a sample sequence is stable.
func Merge(a, b State) State {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}
