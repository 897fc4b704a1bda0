package search

import (
	"os"
	"path/filepath"
	"runtime"
)

// Entry is one directory listing item.
type Entry struct {
	Name string
	Dir  bool
}

// Volume is one storage mount the engine fans out over.
type Volume struct {
	Root string
	// System marks the volume holding the OS install. It is searched
	// through a fixed allow-list of high-value roots instead of from /.
	System bool
	// Roots overrides the search roots; used for system volumes and tests.
	Roots []string
}

// SearchRoots returns the directories a branch should start from.
func (v Volume) SearchRoots() []string {
	if len(v.Roots) > 0 {
		return v.Roots
	}
	if v.System {
		return systemRoots()
	}
	return []string{v.Root}
}

// systemRoots is the allow-list for the OS volume: the places applications
// actually live, instead of the entire tree.
func systemRoots() []string {
	var candidates []string
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "windows":
		candidates = []string{
			filepath.Join(home, `AppData\Roaming\Microsoft\Windows\Start Menu`),
			`C:\ProgramData\Microsoft\Windows\Start Menu\Programs`,
			`C:\Program Files (x86)`,
			`C:\Program Files`,
		}
	case "darwin":
		candidates = []string{
			"/Applications",
			filepath.Join(home, "Applications"),
			filepath.Join(home, "Desktop"),
		}
	default:
		candidates = []string{
			"/usr/share/applications",
			"/opt",
			filepath.Join(home, ".local", "share", "applications"),
			filepath.Join(home, "Desktop"),
		}
	}
	var roots []string
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			roots = append(roots, c)
		}
	}
	return roots
}

// deniedDirs are OS and tooling folders a search never descends into.
var deniedDirs = map[string]bool{
	// Unix
	"proc": true, "sys": true, "dev": true, "run": true, "tmp": true,
	"lost+found": true, ".git": true, "node_modules": true,
	// Windows
	"Windows": true, "ProgramData": true, "$RECYCLE.BIN": true,
	"$Recycle.Bin": true, "System Volume Information": true,
	"Recovery": true, "PerfLogs": true, "Config.Msi": true,
	"Documents and Settings": true, "IntelOptaneData": true,
	"$GetCurrent": true, "$SysReset": true, "$WINDOWS.~BT": true,
	"$Windows.~WS": true, "$WinREAgent": true, "OneDriveTemp": true,
	"MSOCache": true, "Boot": true,
}

// deniedFiles are junk entries excluded from matching.
var deniedFiles = map[string]bool{
	"pagefile.sys": true, "hiberfil.sys": true, "swapfile.sys": true,
	"DumpStack.log": true, "DumpStack.log.tmp": true, "bootmgr": true,
}

// FS abstracts volume enumeration and directory listing so tests can run
// the engine over an in-memory tree.
type FS interface {
	Volumes() ([]Volume, error)
	ReadDir(path string) ([]Entry, error)
}

// HostFS is the real filesystem.
type HostFS struct{}

// Volumes enumerates the root volume plus common removable-media mounts.
func (HostFS) Volumes() ([]Volume, error) {
	if runtime.GOOS == "windows" {
		return windowsVolumes(), nil
	}
	vols := []Volume{{Root: "/", System: true}}
	for _, base := range mediaBases() {
		entries, err := os.ReadDir(base)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() {
				vols = append(vols, Volume{Root: filepath.Join(base, e.Name())})
			}
		}
	}
	return vols, nil
}

func mediaBases() []string {
	home, _ := os.UserHomeDir()
	user := filepath.Base(home)
	return []string{
		"/media/" + user,
		"/run/media/" + user,
		"/mnt",
	}
}

func windowsVolumes() []Volume {
	var vols []Volume
	for letter := 'C'; letter <= 'Z'; letter++ {
		root := string(letter) + `:\`
		if _, err := os.Stat(root); err != nil {
			continue
		}
		vols = append(vols, Volume{Root: root, System: letter == 'C'})
	}
	return vols
}

// ReadDir lists a directory.
func (HostFS) ReadDir(path string) ([]Entry, error) {
	items, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(items))
	for _, it := range items {
		entries = append(entries, Entry{Name: it.Name(), Dir: it.IsDir()})
	}
	return entries, nil
}
