package codec

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"goldcheck/internal/payload"
)

// Policy names how non-printable buffers are represented.
type Policy string

const (
	// Default keeps every buffer recoverable, base64 encoding when needed.
	Default Policy = "default"
	// SHA256 replaces non-printable buffers with their digest.
	SHA256 Policy = "sha256"
)

// ParsePolicy resolves a policy name. An empty name selects Default.
func ParsePolicy(name string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(name))) {
	case "", Default:
		return Default, nil
	case SHA256:
		return SHA256, nil
	default:
		return "", fmt.Errorf("unknown encoding policy %q", name)
	}
}

// IsPrintable reports whether every byte is printable ASCII, tab or newline.
// Carriage returns do not survive XML parsing and count as non-printable.
func IsPrintable(b []byte) bool {
	for _, c := range b {
		if c == '\t' || c == '\n' {
			continue
		}
		if c < 0x20 || c > 0x7e {
			return false
		}
	}
	return true
}

// Digest returns the lower-case hex sha256 of b.
func Digest(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// textSafe reports whether b can be written as element text and read back
// unchanged. Whitespace-only text is dropped when documents are indented.
func textSafe(b []byte) bool {
	if !IsPrintable(b) {
		return false
	}
	return len(b) == 0 || len(bytes.TrimSpace(b)) > 0
}

// maskBytes returns the digest text of b when policy masks it, else b.
func maskBytes(b []byte, policy Policy) []byte {
	if policy != SHA256 || len(b) == 0 || IsPrintable(b) {
		return b
	}
	return []byte(Digest(b))
}

// Mask rewrites p in place the way the encoder represents it: under SHA256
// the primary data and every alternate view holding non-printable bytes are
// replaced by their digest text, recursively through extracted records.
// Metadata is never masked. Mask is a no-op under Default.
func Mask(p *payload.Payload, policy Policy) {
	if p == nil || policy != SHA256 {
		return
	}
	if data := p.Data(); data != nil {
		p.SetData(maskBytes(data, policy))
	}
	for _, name := range p.AlternateViewNames() {
		view, _ := p.AlternateView(name)
		p.AddAlternateView(name, maskBytes(view, policy))
	}
	for _, rec := range p.ExtractedRecords() {
		Mask(rec, policy)
	}
}

// MaskAll masks every payload in list.
func MaskAll(list []*payload.Payload, policy Policy) {
	for _, p := range list {
		Mask(p, policy)
	}
}
