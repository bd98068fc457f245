// Package device enumerates physical block devices from sysfs and resolves
// their stable /dev/disk/by-id identities.
package device

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

// Rotational classification values for a block device.
const (
	TypeHDD     = "hdd"
	TypeSSD     = "ssd"
	TypeUnknown = "unknown"
)

// knames with these prefixes are pseudo-devices, never physical disks:
// loopback, ramdisk, floppy, optical, device-mapper, software RAID.
var skipKnamePrefixes = []string{"loop", "ram", "fd", "sr", "dm-", "md"}

// virtualIDPrefixes mark by-id names that only virtual machines produce.
var virtualIDPrefixes = []string{"scsi-0QEMU_", "ata-QEMU_", "virtio-"}

// Device is one enumerated block device. Built fresh each scan.
type Device struct {
	Path    string `json:"path"`  // /dev/sda
	Kname   string `json:"kname"` // sda
	Type    string `json:"type"`  // hdd, ssd or unknown
	Virtual bool   `json:"virtual"`
}

// Enumerator lists candidate disks. The sysfs, /dev and by-id roots are
// configurable so tests can point it at fixture trees.
type Enumerator struct {
	sysBlock string
	devRoot  string
	byIDDir  string
}

// NewEnumerator creates an Enumerator over the given roots.
func NewEnumerator(sysBlock, devRoot, byIDDir string) *Enumerator {
	return &Enumerator{
		sysBlock: sysBlock,
		devRoot:  devRoot,
		byIDDir:  byIDDir,
	}
}

// List returns all whole-disk block devices, sorted by device path.
// Pseudo-devices are skipped entirely; rotational type and virtualness are
// classified per device with read failures degrading the classification
// rather than dropping the device.
func (e *Enumerator) List() []Device {
	entries, err := os.ReadDir(e.sysBlock)
	if err != nil {
		log.Warn().Err(err).Str("path", e.sysBlock).Msg("Cannot read block device directory")
		return nil
	}

	var devices []Device
	for _, entry := range entries {
		kname := entry.Name()
		if hasAnyPrefix(kname, skipKnamePrefixes) {
			continue
		}
		path := filepath.Join(e.devRoot, kname)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		devices = append(devices, Device{
			Path:    path,
			Kname:   kname,
			Type:    e.rotationalType(kname),
			Virtual: e.isVirtual(path, kname),
		})
	}

	sort.Slice(devices, func(i, j int) bool { return devices[i].Path < devices[j].Path })
	return devices
}

// rotationalType reads the sysfs rotational flag. Any read failure yields
// TypeUnknown rather than guessing either way.
func (e *Enumerator) rotationalType(kname string) string {
	data, err := os.ReadFile(filepath.Join(e.sysBlock, kname, "queue", "rotational"))
	if err != nil {
		return TypeUnknown
	}
	if strings.TrimSpace(string(data)) == "1" {
		return TypeHDD
	}
	return TypeSSD
}

// isVirtual reports whether the device looks like a VM-provided disk, by
// vendor/model markers or the shape of its by-id name. Read failures are
// treated as "not virtual": misclassifying a real disk as virtual would
// silently drop it from monitoring.
func (e *Enumerator) isVirtual(path, kname string) bool {
	vendor := readSysString(filepath.Join(e.sysBlock, kname, "device", "vendor"))
	model := readSysString(filepath.Join(e.sysBlock, kname, "device", "model"))

	for _, marker := range []string{"QEMU", "VIRTUAL"} {
		if strings.Contains(vendor, marker) || strings.Contains(model, marker) {
			return true
		}
	}

	baseID := filepath.Base(e.PersistentID(path))
	return hasAnyPrefix(baseID, virtualIDPrefixes)
}

func readSysString(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.ToUpper(strings.TrimSpace(string(data)))
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
