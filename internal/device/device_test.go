package device

import (
	"os"
	"path/filepath"
	"testing"
)

// fixture builds a fake sysfs/dev/by-id tree inside t.TempDir.
type fixture struct {
	t        *testing.T
	sysBlock string
	devRoot  string
	byIDDir  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	f := &fixture{
		t:        t,
		sysBlock: filepath.Join(root, "sys", "block"),
		devRoot:  filepath.Join(root, "dev"),
		byIDDir:  filepath.Join(root, "dev", "disk", "by-id"),
	}
	for _, dir := range []string{f.sysBlock, f.devRoot, f.byIDDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	return f
}

func (f *fixture) enumerator() *Enumerator {
	return NewEnumerator(f.sysBlock, f.devRoot, f.byIDDir)
}

// addDisk creates the sysfs node and device file for kname.
// rotational "" skips writing the flag to simulate a read failure.
func (f *fixture) addDisk(kname, rotational, vendor, model string) {
	f.t.Helper()
	if err := os.MkdirAll(filepath.Join(f.sysBlock, kname, "queue"), 0o755); err != nil {
		f.t.Fatal(err)
	}
	if rotational != "" {
		f.write(filepath.Join(f.sysBlock, kname, "queue", "rotational"), rotational+"\n")
	}
	if vendor != "" || model != "" {
		if err := os.MkdirAll(filepath.Join(f.sysBlock, kname, "device"), 0o755); err != nil {
			f.t.Fatal(err)
		}
	}
	if vendor != "" {
		f.write(filepath.Join(f.sysBlock, kname, "device", "vendor"), vendor+"\n")
	}
	if model != "" {
		f.write(filepath.Join(f.sysBlock, kname, "device", "model"), model+"\n")
	}
	f.write(filepath.Join(f.devRoot, kname), "")
}

// addSysOnly creates a sysfs node without a backing /dev entry.
func (f *fixture) addSysOnly(kname string) {
	f.t.Helper()
	if err := os.MkdirAll(filepath.Join(f.sysBlock, kname, "queue"), 0o755); err != nil {
		f.t.Fatal(err)
	}
}

func (f *fixture) addByIDLink(name, kname string) {
	f.t.Helper()
	if err := os.Symlink(filepath.Join(f.devRoot, kname), filepath.Join(f.byIDDir, name)); err != nil {
		f.t.Fatal(err)
	}
}

func (f *fixture) write(path, content string) {
	f.t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		f.t.Fatal(err)
	}
}

func TestListSkipsPseudoDevices(t *testing.T) {
	f := newFixture(t)
	f.addDisk("sda", "1", "", "")
	for _, kname := range []string{"loop0", "ram0", "fd0", "sr0", "dm-0", "md127"} {
		f.addDisk(kname, "1", "", "")
	}

	devices := f.enumerator().List()
	if len(devices) != 1 {
		t.Fatalf("List() returned %d devices, want 1: %+v", len(devices), devices)
	}
	if devices[0].Kname != "sda" {
		t.Errorf("surviving device = %s, want sda", devices[0].Kname)
	}
}

func TestListSkipsMissingDevNode(t *testing.T) {
	f := newFixture(t)
	f.addDisk("sda", "1", "", "")
	f.addSysOnly("sdb")

	devices := f.enumerator().List()
	if len(devices) != 1 || devices[0].Kname != "sda" {
		t.Fatalf("List() = %+v, want only sda", devices)
	}
}

func TestListSortedByPath(t *testing.T) {
	f := newFixture(t)
	f.addDisk("sdc", "1", "", "")
	f.addDisk("sda", "1", "", "")
	f.addDisk("sdb", "1", "", "")

	devices := f.enumerator().List()
	want := []string{"sda", "sdb", "sdc"}
	for i, w := range want {
		if devices[i].Kname != w {
			t.Fatalf("devices[%d] = %s, want %s", i, devices[i].Kname, w)
		}
	}
}

func TestRotationalClassification(t *testing.T) {
	f := newFixture(t)
	f.addDisk("sda", "1", "", "")
	f.addDisk("sdb", "0", "", "")
	f.addDisk("sdc", "", "", "") // missing flag -> unknown, not hdd or ssd

	types := map[string]string{}
	for _, d := range f.enumerator().List() {
		types[d.Kname] = d.Type
	}

	if types["sda"] != TypeHDD {
		t.Errorf("sda type = %s, want hdd", types["sda"])
	}
	if types["sdb"] != TypeSSD {
		t.Errorf("sdb type = %s, want ssd", types["sdb"])
	}
	if types["sdc"] != TypeUnknown {
		t.Errorf("sdc type = %s, want unknown", types["sdc"])
	}
}

func TestVirtualByVendorModel(t *testing.T) {
	f := newFixture(t)
	f.addDisk("sda", "1", "QEMU", "QEMU HARDDISK")
	f.addDisk("sdb", "1", "Msft", "Virtual Disk")
	f.addDisk("sdc", "1", "ATA", "WDC WD40EFRX")
	f.addDisk("sdd", "1", "", "") // no vendor/model files -> fail open

	virtual := map[string]bool{}
	for _, d := range f.enumerator().List() {
		virtual[d.Kname] = d.Virtual
	}

	if !virtual["sda"] || !virtual["sdb"] {
		t.Errorf("QEMU/Virtual disks not flagged: %+v", virtual)
	}
	if virtual["sdc"] || virtual["sdd"] {
		t.Errorf("real disks flagged virtual: %+v", virtual)
	}
}

func TestVirtualByIDPrefix(t *testing.T) {
	f := newFixture(t)
	f.addDisk("vda", "1", "", "")
	f.addByIDLink("virtio-pci-0000_00_05_0", "vda")

	devices := f.enumerator().List()
	if len(devices) != 1 || !devices[0].Virtual {
		t.Fatalf("virtio-backed disk not flagged virtual: %+v", devices)
	}
}

func TestPersistentIDPrefersStableNames(t *testing.T) {
	f := newFixture(t)
	f.addDisk("sda", "1", "", "")
	f.addByIDLink("wwn-0x5000c500a1b2c3d4", "sda")
	f.addByIDLink("ata-WDC_WD40EFRX-68N32N0_WD-WCC7K1234567", "sda")
	f.addByIDLink("lvm-pv-uuid-aaaa", "sda")

	got := f.enumerator().PersistentID(filepath.Join(f.devRoot, "sda"))
	// Both preferred candidates beat the unprefixed one; among them the
	// shorter wwn- name wins.
	want := filepath.Join(f.byIDDir, "wwn-0x5000c500a1b2c3d4")
	if got != want {
		t.Errorf("PersistentID = %s, want %s", got, want)
	}
}

func TestPersistentIDLexicographicTieBreak(t *testing.T) {
	f := newFixture(t)
	f.addDisk("sda", "1", "", "")
	f.addByIDLink("ata-DISK_B", "sda")
	f.addByIDLink("ata-DISK_A", "sda")

	got := f.enumerator().PersistentID(filepath.Join(f.devRoot, "sda"))
	want := filepath.Join(f.byIDDir, "ata-DISK_A")
	if got != want {
		t.Errorf("PersistentID = %s, want %s", got, want)
	}
}

func TestPersistentIDFallsBackToDevicePath(t *testing.T) {
	f := newFixture(t)
	f.addDisk("sda", "1", "", "")
	f.addDisk("sdb", "1", "", "")
	f.addByIDLink("ata-OTHER_DISK", "sdb")

	devPath := filepath.Join(f.devRoot, "sda")
	if got := f.enumerator().PersistentID(devPath); got != devPath {
		t.Errorf("PersistentID = %s, want %s", got, devPath)
	}

	// Missing by-id directory entirely.
	e := NewEnumerator(f.sysBlock, f.devRoot, filepath.Join(f.devRoot, "no-such-dir"))
	if got := e.PersistentID(devPath); got != devPath {
		t.Errorf("PersistentID without by-id dir = %s, want %s", got, devPath)
	}
}

func TestPersistentIDDeterministic(t *testing.T) {
	f := newFixture(t)
	f.addDisk("sda", "1", "", "")
	f.addByIDLink("scsi-35000c500a1b2c3d4", "sda")
	f.addByIDLink("wwn-0x5000c500a1b2c3d4", "sda")

	devPath := filepath.Join(f.devRoot, "sda")
	first := f.enumerator().PersistentID(devPath)
	for i := 0; i < 10; i++ {
		if got := f.enumerator().PersistentID(devPath); got != first {
			t.Fatalf("PersistentID flapped: %s then %s", first, got)
		}
	}
}

func TestBaseDevice(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"/dev/sda", "/dev/sda"},
		{"/dev/sda3", "/dev/sda"},
		{"/dev/sdab12", "/dev/sdab"},
		{"/dev/nvme0n1", "/dev/nvme0n1"},
		{"/dev/nvme0n1p2", "/dev/nvme0n1"},
		{"/dev/nvme10n2p11", "/dev/nvme10n2"},
		{"/dev/mmcblk0", "/dev/mmcblk0"},
		{"/dev/mmcblk0p1", "/dev/mmcblk0"},
		{"sda3", "sda"},
	}

	for _, tt := range tests {
		if got := BaseDevice(tt.in); got != tt.want {
			t.Errorf("BaseDevice(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
