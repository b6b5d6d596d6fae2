// Package bpffs checks that a pin path lives on a mounted BPF
// filesystem before the daemon pins the device map there.
package bpffs

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultMountInfoPath is the mount table consulted by CheckPinPath.
const DefaultMountInfoPath = "/proc/self/mountinfo"

// maxLineLen bounds a single mountinfo line. Some runtimes produce
// very long option lists.
const maxLineLen = 1024 * 1024

// ErrNotBPFFS is returned when a pin path is not on a bpf mount.
var ErrNotBPFFS = errors.New("not on a bpf filesystem")

// Mount is one entry of the mount table.
type Mount struct {
	Point  string
	FSType string
}

// Mounts parses mountInfoPath in proc(5) mountinfo format:
//
//	mount_id parent_id major:minor root mount_point options [optional...] - fstype source super_options
//
// The " - " separator is located by search because the number of
// optional fields varies.
func Mounts(mountInfoPath string) ([]Mount, error) {
	f, err := os.Open(mountInfoPath)
	if err != nil {
		return nil, fmt.Errorf("opening mountinfo: %w", err)
	}
	defer f.Close()

	var out []Mount
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineLen)
	for sc.Scan() {
		line := sc.Text()
		sep := strings.Index(line, " - ")
		if sep == -1 {
			continue
		}
		prefix := strings.Fields(line[:sep])
		suffix := strings.Fields(line[sep+3:])
		if len(prefix) < 5 || len(suffix) < 1 {
			continue
		}
		out = append(out, Mount{Point: unescape(prefix[4]), FSType: suffix[0]})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading mountinfo: %w", err)
	}
	return out, nil
}

// unescape undoes the octal escaping mountinfo applies to spaces,
// tabs, newlines and backslashes in paths.
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	r := strings.NewReplacer(`\040`, " ", `\011`, "\t", `\012`, "\n", `\134`, `\`)
	return r.Replace(s)
}

// Containing returns the mount that holds path: the entry with the
// longest mount point that is path itself or one of its parents. Later
// entries shadow earlier ones at the same point.
func Containing(mounts []Mount, path string) (Mount, bool) {
	path = filepath.Clean(path)
	var (
		best  Mount
		found bool
	)
	for _, m := range mounts {
		if !within(path, m.Point) {
			continue
		}
		if !found || len(m.Point) >= len(best.Point) {
			best, found = m, true
		}
	}
	return best, found
}

func within(path, point string) bool {
	if point == "/" {
		return strings.HasPrefix(path, "/")
	}
	return path == point || strings.HasPrefix(path, point+"/")
}

// CheckPinPath reports ErrNotBPFFS unless the directory holding pin is
// on a bpf mount according to mountInfoPath.
func CheckPinPath(mountInfoPath, pin string) error {
	mounts, err := Mounts(mountInfoPath)
	if err != nil {
		return err
	}
	dir := filepath.Dir(filepath.Clean(pin))
	m, ok := Containing(mounts, dir)
	if !ok || m.FSType != "bpf" {
		return fmt.Errorf("pin path %s: %w", pin, ErrNotBPFFS)
	}
	return nil
}
