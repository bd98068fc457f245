// Package zpool resolves which physical disks back which ZFS pool by
// parsing `zpool status` output. It is a best-effort adapter over free
// text: every failure mode degrades to an empty map, never an error that
// would fail a scan.
package zpool

import (
	"context"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nuclearlighters/diskstatus/internal/device"
)

// structuralPrefixes start lines inside the config section that describe
// vdev grouping rather than a member device. Adding a new zpool vdev label
// is a one-line edit here.
var structuralPrefixes = []string{
	"NAME",
	"mirror-",
	"raidz",
	"draid",
	"special",
	"log",
	"spare",
	"cache",
	"stripe",
	"replacing-",
	"indirect-",
}

// deviceTokenRe matches bare device names (without /dev/) as they appear
// in the config column when zpool was not asked for full paths.
var deviceTokenRe = regexp.MustCompile(`^(?:(?:sd|hd|vd|xvd)[a-z]+\d*|nvme\d+n\d+(?:p\d+)?|mmcblk\d+(?:p\d+)?)$`)

// Resolver maps base devices to pool names via the zpool binary.
type Resolver struct {
	binary  string
	devRoot string
	timeout time.Duration
	run     runFunc
}

type runFunc func(ctx context.Context, binary string, args ...string) (string, error)

// NewResolver creates a Resolver invoking the given zpool binary. devRoot
// is the directory bare device tokens are anchored under, normally /dev.
func NewResolver(binary, devRoot string, timeout time.Duration) *Resolver {
	return &Resolver{
		binary:  binary,
		devRoot: devRoot,
		timeout: timeout,
		run:     runZpool,
	}
}

func runZpool(ctx context.Context, binary string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, binary, args...).Output()
	return string(out), err
}

// DeviceMap returns base device path -> pool name for every pool member
// zpool reports. A missing binary, timeout, abnormal exit or unparsable
// report all yield an empty map; pool correlation then degrades to "none"
// for every device.
func (r *Resolver) DeviceMap(ctx context.Context) map[string]string {
	if _, err := exec.LookPath(r.binary); err != nil {
		return map[string]string{}
	}

	cctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	// -L resolves links to real paths, -P prints full paths, so the device
	// column is machine-resolvable instead of whatever alias the pool was
	// imported with.
	out, err := r.run(cctx, r.binary, "status", "-L", "-P")
	if err != nil {
		log.Debug().Err(err).Msg("zpool status unavailable, skipping pool correlation")
		return map[string]string{}
	}
	return r.parse(out)
}

// parse runs the three-state line scanner over a zpool status report:
// outside any pool, a "pool:" line captures the name; a "config:" line
// enters the member table; inside it, structural lines are skipped and
// member lines are recorded under their base device.
func (r *Resolver) parse(out string) map[string]string {
	poolMap := make(map[string]string)

	currentPool := ""
	inConfig := false

	for _, raw := range strings.Split(out, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "pool:") {
			currentPool = strings.TrimSpace(strings.TrimPrefix(line, "pool:"))
			inConfig = false
			continue
		}
		if strings.HasPrefix(line, "config:") {
			inConfig = true
			continue
		}
		if !inConfig || currentPool == "" {
			continue
		}
		if hasStructuralPrefix(line) {
			continue
		}

		token := strings.Fields(line)[0]
		// Section labels such as "errors:" terminate nothing in this
		// scanner but must not be mistaken for devices.
		if strings.HasSuffix(token, ":") {
			continue
		}

		devPath, ok := r.normalizeToken(token)
		if !ok {
			continue
		}
		poolMap[device.BaseDevice(devPath)] = currentPool
	}
	return poolMap
}

// normalizeToken turns a config-column token into a device path. Symlink
// paths (by-id and friends) are resolved to the real device so that links
// and raw paths land on the same base-device key.
func (r *Resolver) normalizeToken(token string) (string, bool) {
	switch {
	case strings.HasPrefix(token, "/"):
		if real, err := filepath.EvalSymlinks(token); err == nil {
			return real, true
		}
		return token, true
	case deviceTokenRe.MatchString(token):
		return filepath.Join(r.devRoot, token), true
	default:
		return "", false
	}
}

func hasStructuralPrefix(line string) bool {
	for _, p := range structuralPrefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}
