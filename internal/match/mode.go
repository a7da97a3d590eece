package match

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"

	"goldcheck/internal/failure"
)

const (
	// DefaultMode applies when an element declares no matchMode attribute.
	DefaultMode = "equals"
	// DefaultSeparator applies to collection mode without collectionSeparator.
	DefaultSeparator = ","
)

// Mode names.
const (
	Equals      = "equals"
	Contains    = "contains"
	Index       = "index"
	NotContains = "!contains"
	NotIndex    = "!index"
	Regex       = "match"
	Base64      = "base64"
	Collection  = "collection"
)

// Assertion is one declared expectation.
type Assertion struct {
	// Test names the test case for failure messages.
	Test string
	// Field is the element name the assertion came from (meta, data, view).
	Field string
	// Key is the metadata key or view name, if any.
	Key       string
	Mode      string
	Expected  string
	Separator string
}

// Evaluate checks actual against a. present=false means the actual value does
// not exist, which fails every mode.
func Evaluate(a Assertion, actual string, present bool) error {
	mode := a.Mode
	if mode == "" {
		mode = DefaultMode
	}

	if !isKnown(mode) {
		return failure.New(failure.Malformed, a.Test,
			"problematic matchMode %q specified on %s in element %s", mode, a.Key, a.Field)
	}
	if !present {
		return failure.New(failure.Assertion, a.Test,
			"%s element '%s' has no actual value, expected '%s'", a.Field, a.Key, a.Expected)
	}

	switch mode {
	case Equals:
		if actual != a.Expected {
			return mismatch(a, "value '%s' does not equal '%s'", actual, a.Expected)
		}
	case Contains, Index:
		if !strings.Contains(actual, a.Expected) {
			return mismatch(a, "value '%s' does not index '%s'", actual, a.Expected)
		}
	case NotContains, NotIndex:
		if strings.Contains(actual, a.Expected) {
			return mismatch(a, "value '%s' should not be indexed in '%s'", a.Expected, actual)
		}
	case Regex:
		re, err := regexp.Compile(`^(?:` + a.Expected + `)$`)
		if err != nil {
			return failure.Wrap(failure.Malformed, a.Test,
				fmt.Sprintf("%s element '%s' has an invalid expression", a.Field, a.Key), err)
		}
		if !re.MatchString(actual) {
			return mismatch(a, "value '%s' does not match '%s'", actual, a.Expected)
		}
	case Base64:
		decoded, err := DecodeBase64(a.Expected)
		if err != nil {
			return failure.Wrap(failure.Malformed, a.Test,
				fmt.Sprintf("%s element '%s' has invalid base64", a.Field, a.Key), err)
		}
		if actual != decoded {
			return mismatch(a, "value '%s' does not match '%s'", actual, decoded)
		}
	default:
		sep := a.Separator
		if sep == "" {
			sep = DefaultSeparator
		}
		if !equalCollections(split(a.Expected, sep), split(actual, sep)) {
			return mismatch(a, "did not have equal collection, value '%s' does not equal '%s' split by separator '%s'",
				actual, a.Expected, sep)
		}
	}
	return nil
}

func isKnown(mode string) bool {
	switch mode {
	case Equals, Contains, Index, NotContains, NotIndex, Regex, Base64:
		return true
	}
	return strings.EqualFold(mode, Collection)
}

func mismatch(a Assertion, format string, args ...any) error {
	prefix := fmt.Sprintf("%s element '%s' problem: ", a.Field, a.Key)
	return failure.New(failure.Assertion, a.Test, prefix+format, args...)
}

// DecodeBase64 decodes standard base64, padded or not, ignoring whitespace.
func DecodeBase64(s string) (string, error) {
	s = strings.Join(strings.Fields(s), "")
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		b, err = base64.RawStdEncoding.DecodeString(s)
		if err != nil {
			return "", err
		}
	}
	return string(b), nil
}

func split(s, sep string) []string {
	parts := strings.Split(s, sep)
	for len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}

// equalCollections compares as multisets.
func equalCollections(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, v := range a {
		counts[v]++
	}
	for _, v := range b {
		counts[v]--
		if counts[v] < 0 {
			return false
		}
	}
	return true
}
