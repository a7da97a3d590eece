package processors

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/language"

	"goldcheck/internal/logging"
	"goldcheck/internal/payload"
)

// Transcode forms and view names.
const (
	UTF8Form         = "UTF8"
	OriginalView     = "ORIGINAL"
	TitleParam       = "TITLE"
	SourceCharset    = "SOURCE_CHARSET"
	defaultCharset   = "utf-8"
	untitledDocument = "Untitled Document"
)

// Transcode converts the payload data from the charset named by its font
// encoding to UTF-8. The original bytes are kept in the ORIGINAL view and a
// title derived from the short name is recorded as metadata.
type Transcode struct {
	Logger *slog.Logger
}

// Process implements payload.Processor.
func (t *Transcode) Process(_ context.Context, p *payload.Payload) ([]*payload.Payload, error) {
	logger := t.logger()
	charset := strings.TrimSpace(p.FontEncoding())
	if charset == "" {
		charset = defaultCharset
	}

	enc, err := htmlindex.Get(charset)
	if err != nil {
		p.AddProcessingError("unsupported charset " + charset)
		return nil, fmt.Errorf("transcode: unsupported charset %q: %w", charset, err)
	}
	name, _ := htmlindex.Name(enc)

	original := p.Data()
	decoded, err := enc.NewDecoder().Bytes(original)
	if err != nil {
		return nil, fmt.Errorf("transcode from %s: %w", name, err)
	}
	if !utf8.Valid(decoded) {
		p.SetBroken(true)
		logger.Warn("decoded data is not valid utf-8")
	}

	p.AddAlternateView(OriginalView, original)
	p.SetData(decoded)
	p.SetFontEncoding(defaultCharset)
	p.SetParameter(SourceCharset, name)
	p.SetParameter(TitleParam, deriveTitle(p.ShortName()))
	p.PushCurrentForm(UTF8Form)
	logger.Info("transcoded from " + name)
	return nil, nil
}

func (t *Transcode) logger() *slog.Logger {
	if t.Logger != nil {
		return t.Logger
	}
	return logging.NewNop()
}

func deriveTitle(shortName string) string {
	base := strings.TrimSuffix(shortName, filepath.Ext(shortName))
	if i := strings.IndexByte(base, '@'); i >= 0 {
		base = base[:i]
	}
	var cleaned strings.Builder
	prevSpace := false
	for _, r := range base {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			cleaned.WriteRune(r)
			prevSpace = false
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '.':
			if !prevSpace {
				cleaned.WriteRune(' ')
				prevSpace = true
			}
		}
	}
	title := strings.TrimSpace(cleaned.String())
	if title == "" {
		return untitledDocument
	}
	return cases.Title(language.Und).String(strings.ToLower(title))
}
