package preflight

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"

	"annofuse/internal/ledger"
	"annofuse/internal/taxonomy"
	"annofuse/internal/workspace"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.W_OK|unix.X_OK, "read/write ok")
}

// CheckDirectoryReadable verifies that the directory exists and can be listed.
func CheckDirectoryReadable(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.X_OK, "readable")
}

// CheckCreatableDirectory passes when path is a writable directory or does
// not exist yet but its nearest existing ancestor is writable.
func CheckCreatableDirectory(name, path string) Result {
	if path == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	if _, err := os.Stat(path); err == nil {
		return CheckDirectoryAccess(name, path)
	}
	parent := filepath.Dir(path)
	for {
		if _, err := os.Stat(parent); err == nil {
			break
		}
		next := filepath.Dir(parent)
		if next == parent {
			break
		}
		parent = next
	}
	if err := unix.Access(parent, unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: cannot create under %s: %v)", path, parent, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", path)}
}

func checkDirectory(name, path string, mode uint32, ok string) Result {
	if path == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, mode); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", path, ok)}
}

// FreeBytes reports the space available to unprivileged users on the
// filesystem holding path.
func FreeBytes(path string) (uint64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, err
	}
	return st.Bavail * uint64(st.Bsize), nil
}

// CheckFreeSpace verifies at least minBytes are free where path lives. A
// missing path is measured at its nearest existing ancestor.
func CheckFreeSpace(name, path string, minBytes uint64) Result {
	if path == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	probe := path
	for {
		if _, err := os.Stat(probe); err == nil {
			break
		}
		next := filepath.Dir(probe)
		if next == probe {
			break
		}
		probe = next
	}
	free, err := FreeBytes(probe)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", probe, err)}
	}
	detail := fmt.Sprintf("%s free at %s", humanize.IBytes(free), probe)
	if free < minBytes {
		return Result{Name: name, Detail: fmt.Sprintf("%s (need %s)", detail, humanize.IBytes(minBytes))}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckLedger opens the run ledger, which also verifies its schema version.
func CheckLedger(path string) Result {
	const name = "Run ledger"
	if path == "" {
		return Result{Name: name, Passed: true, Detail: "disabled"}
	}
	store, err := ledger.Open(path)
	if err != nil {
		if errors.Is(err, ledger.ErrSchemaMismatch) {
			return Result{Name: name, Detail: err.Error()}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	defer store.Close()
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckMappingFile verifies the configured taxonomy mapping file parses.
func CheckMappingFile(path string) Result {
	const name = "Mapping file"
	if path == "" {
		return Result{Name: name, Passed: true, Detail: "not configured (inline mapping)"}
	}
	mapping, err := taxonomy.LoadMappingFile(path)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d entries)", path, len(mapping))}
}

// CheckWorkspaceIdle fails when another annofuse process holds the lock on dir.
func CheckWorkspaceIdle(name, dir string) Result {
	if dir == "" {
		return Result{Name: name, Passed: true, Detail: "not configured"}
	}
	held, err := workspace.Held(dir)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", dir, err)}
	}
	if held {
		return Result{Name: name, Detail: fmt.Sprintf("%s (locked by another annofuse process)", dir)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (idle)", dir)}
}
