// Package osrelease identifies the running Linux distribution so answer
// document checks can be restricted to a particular OS family.
package osrelease

import (
	"bufio"
	"bytes"
	"errors"
	"io/fs"
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

// DefaultPath is the standard os-release location.
const DefaultPath = "/etc/os-release"

// Recognized OS identifiers accepted in os-release attributes.
const (
	Ubuntu = "ubuntu"
	CentOS = "centos"
	RHEL   = "rhel"
)

// Known reports whether id is a recognized OS identifier.
func Known(id string) bool {
	switch id {
	case Ubuntu, CentOS, RHEL:
		return true
	}
	return false
}

// Detector answers whether the running environment is a given OS.
type Detector interface {
	Is(id string) bool
}

// Release holds the parsed os-release fields the checker needs.
type Release struct {
	ID        string
	IDLike    []string
	VersionID string
	Kernel    string
}

// Is reports whether the release matches a recognized identifier.
func (r Release) Is(id string) bool {
	switch id {
	case Ubuntu:
		return r.ID == Ubuntu
	case CentOS:
		return r.ID == CentOS
	case RHEL:
		return r.ID == RHEL
	}
	return false
}

// Load parses the os-release file at path. A missing file yields an empty
// Release so every guarded check is skipped rather than erroring.
func Load(path string) (Release, error) {
	if path == "" {
		path = DefaultPath
	}
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Release{Kernel: kernel()}, nil
		}
		return Release{}, err
	}
	rel := Parse(content)
	rel.Kernel = kernel()
	return rel, nil
}

// Parse reads os-release KEY=value lines.
func Parse(content []byte) Release {
	var rel Release
	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		switch key {
		case "ID":
			rel.ID = strings.ToLower(value)
		case "ID_LIKE":
			rel.IDLike = strings.Fields(strings.ToLower(value))
		case "VERSION_ID":
			rel.VersionID = value
		}
	}
	return rel
}

// Static is a Detector pinned to one identifier, used by tests and by
// callers that already know the target OS.
type Static string

// Is implements Detector.
func (s Static) Is(id string) bool { return string(s) == id }

func kernel() string {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return ""
	}
	return unix.ByteSliceToString(uts.Release[:])
}
