package golden

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// ResourceExt is the extension of raw fixture resources.
const ResourceExt = ".dat"

// AnswerExt is the extension of answer documents.
const AnswerExt = ".xml"

var resourcePattern = regexp.MustCompile(`^(?:.*/)?([^/@]+)(@[^/]+)?\.dat$`)

// Forms derives the initial form and, when the resource name carries a
// non-numeric @SUFFIX, the expected final form from a resource path.
// FORM@2.dat yields ("FORM", ""); FORM@DONE.dat yields ("FORM", "DONE").
func Forms(resource string) (initial, final string) {
	m := resourcePattern.FindStringSubmatch(filepath.ToSlash(resource))
	if m == nil {
		base := filepath.Base(resource)
		return strings.TrimSuffix(base, filepath.Ext(base)), ""
	}
	initial = m[1]
	suffix := strings.TrimPrefix(m[2], "@")
	if suffix == "" {
		return initial, ""
	}
	if _, err := strconv.Atoi(suffix); err == nil {
		return initial, ""
	}
	return initial, suffix
}

// AnswerPath returns the answer document path paired with resource.
func AnswerPath(resource string) string {
	return strings.TrimSuffix(resource, filepath.Ext(resource)) + AnswerExt
}

// TestName names a resource relative to dir without its extension, falling
// back to the base name when resource is outside dir.
func TestName(dir, resource string) string {
	name := resource
	if dir != "" {
		if rel, err := filepath.Rel(dir, resource); err == nil && !strings.HasPrefix(rel, "..") {
			name = rel
		}
	}
	if name == resource && filepath.IsAbs(resource) {
		name = filepath.Base(resource)
	}
	return filepath.ToSlash(strings.TrimSuffix(name, filepath.Ext(name)))
}
