package kff

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"

	"goldcheck/internal/logging"
	"goldcheck/internal/payload"
)

// Digest algorithm names recorded on payloads.
const (
	SHA256 = "sha256"
	MD5    = "md5"
)

// KnownFileType is applied to matching payloads whose entry names no file type.
const KnownFileType = "KFF"

// Lookup resolves a digest to a known entry. A nil entry means unknown.
type Lookup interface {
	Lookup(ctx context.Context, digest string) (*Entry, error)
}

// Handler runs the fingerprint pass. The zero value only records digests.
type Handler struct {
	Known  Lookup
	Logger *slog.Logger
}

// Hash records the sha256 and md5 digests of p's data and applies the
// disposition of a known entry. Payloads without data are left alone.
func (h *Handler) Hash(ctx context.Context, p *payload.Payload) error {
	if p == nil || p.DataLength() == 0 {
		return nil
	}
	shaHex := DigestBytes(SHA256, p.Data())
	md5Hex := DigestBytes(MD5, p.Data())
	p.SetDigest(SHA256, shaHex)
	p.SetDigest(MD5, md5Hex)

	if h == nil || h.Known == nil {
		return nil
	}
	for _, digest := range []string{shaHex, md5Hex} {
		entry, err := h.Known.Lookup(ctx, digest)
		if err != nil {
			return err
		}
		if entry == nil {
			continue
		}
		h.apply(p, entry)
		return nil
	}
	return nil
}

func (h *Handler) apply(p *payload.Payload, entry *Entry) {
	if entry.Form != "" {
		p.ReplaceCurrentForm(entry.Form)
	}
	fileType := entry.FileType
	if fileType == "" {
		fileType = KnownFileType
	}
	p.SetFileType(fileType)
	if entry.Truncate {
		p.SetData([]byte{})
	}
	if h.Logger != nil {
		h.Logger.Debug("known file matched",
			logging.String(logging.FieldResource, p.Name()),
			logging.String("digest", entry.Digest),
			logging.String("file_type", fileType),
			logging.Bool("truncated", entry.Truncate),
		)
	}
}

func algorithmFor(digest string) string {
	switch len(digest) {
	case md5.Size * 2:
		return MD5
	default:
		return SHA256
	}
}

func validAlgorithm(alg string) bool {
	return alg == SHA256 || alg == MD5
}

// DigestBytes returns the lower-case hex digest of b under alg.
func DigestBytes(alg string, b []byte) string {
	if alg == MD5 {
		sum := md5.Sum(b)
		return hex.EncodeToString(sum[:])
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
