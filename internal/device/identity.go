package device

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// preferredIDPrefixes order stable identifier families ahead of oddball
// by-id entries (eui., lvm-pv-uuid-, ...). The list order itself does not
// matter, only membership; ties among preferred names are broken by length
// then lexicographically.
var preferredIDPrefixes = []string{"ata-", "scsi-", "wwn-", "nvme-", "usb-", "virtio-"}

// PersistentID resolves a device path to its most stable human-readable
// alias under the by-id directory. When no by-id link resolves to the
// device, the original path is returned unchanged; this never fails.
//
// Selection is deterministic: preferred-prefix names win over others, then
// shorter names, then lexicographic order.
func (e *Enumerator) PersistentID(devPath string) string {
	entries, err := os.ReadDir(e.byIDDir)
	if err != nil {
		return devPath
	}

	real, err := filepath.EvalSymlinks(devPath)
	if err != nil {
		return devPath
	}

	var candidates []string
	for _, entry := range entries {
		target, err := filepath.EvalSymlinks(filepath.Join(e.byIDDir, entry.Name()))
		if err != nil {
			continue
		}
		if target == real {
			candidates = append(candidates, entry.Name())
		}
	}
	if len(candidates) == 0 {
		return devPath
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		ap, bp := hasAnyPrefix(a, preferredIDPrefixes), hasAnyPrefix(b, preferredIDPrefixes)
		if ap != bp {
			return ap
		}
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		return a < b
	})
	return filepath.Join(e.byIDDir, candidates[0])
}

// BaseDevice strips a trailing partition suffix from a device path,
// yielding the whole-disk path used as the pool-map key.
//
// Partition naming differs by device family: sda3 -> sda strips bare
// trailing digits, but nvme0n1p2 -> nvme0n1 and mmcblk0p1 -> mmcblk0 must
// only strip the pNN suffix, since the digits in nvme0n1 and mmcblk0 are
// device indices, not partition numbers. A generic trailing-digit strip
// would corrupt those names, so both patterns are handled explicitly.
func BaseDevice(path string) string {
	name := filepath.Base(path)

	if strings.HasPrefix(name, "nvme") || strings.HasPrefix(name, "mmcblk") {
		if i := strings.LastIndex(name, "p"); i > 0 && allDigits(name[i+1:]) {
			return filepath.Join(filepath.Dir(path), name[:i])
		}
		return path
	}

	trimmed := strings.TrimRight(name, "0123456789")
	if trimmed == "" || trimmed == name {
		return path
	}
	return filepath.Join(filepath.Dir(path), trimmed)
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
