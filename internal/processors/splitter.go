package processors

import (
	"bytes"
	"context"
	"log/slog"
	"strconv"

	"goldcheck/internal/logging"
	"goldcheck/internal/payload"
)

// Splitter forms, delimiters and metadata keys.
const (
	SplitForm      = "SPLIT"
	PartForm       = "PART"
	QuoteForm      = "QUOTE"
	PartsParam     = "PARTS"
	PartIndexParam = "PART_INDEX"
	QuoteLineParam = "LINE"
)

var (
	partDelimiter = []byte("\n--\n")
	quotePrefix   = []byte("> ")
)

// Splitter cuts the payload data at lines holding only "--". Each part after
// the first becomes an attachment; lines of the first part starting with "> "
// become extracted records and are removed from the parent data.
type Splitter struct {
	Logger *slog.Logger
}

// Process implements payload.Processor.
func (s *Splitter) Process(_ context.Context, p *payload.Payload) ([]*payload.Payload, error) {
	logger := s.logger()
	parts := bytes.Split(p.Data(), partDelimiter)
	if len(parts) == 1 {
		logger.Warn("no part delimiter found")
	}

	head, quotes := splitQuotes(parts[0])
	for i, q := range quotes {
		rec := payload.New(q.text, p.Name()+"::extract"+strconv.Itoa(i+1), QuoteForm)
		rec.SetFileType(QuoteForm)
		rec.SetParameter(QuoteLineParam, strconv.Itoa(q.line))
		p.AddExtractedRecord(rec)
	}
	p.SetData(head)

	var children []*payload.Payload
	for i, part := range parts[1:] {
		n := i + 1
		child := payload.New(part, payload.ChildName(p.Name(), n), PartForm)
		child.SetFileType(PartForm)
		child.SetClassification(p.Classification())
		child.SetParameter(PartIndexParam, strconv.Itoa(n))
		if len(bytes.TrimSpace(part)) == 0 {
			child.AddProcessingError("empty part " + strconv.Itoa(n))
			logger.Error("empty part " + strconv.Itoa(n))
		}
		children = append(children, child)
	}

	p.SetParameter(PartsParam, strconv.Itoa(len(parts)))
	p.PushCurrentForm(SplitForm)
	logger.Info("split into " + strconv.Itoa(len(parts)) + " parts")
	return children, nil
}

type quote struct {
	line int
	text []byte
}

func splitQuotes(data []byte) ([]byte, []quote) {
	if len(data) == 0 {
		return data, nil
	}
	lines := bytes.SplitAfter(data, []byte("\n"))
	var kept [][]byte
	var quotes []quote
	for i, line := range lines {
		if bytes.HasPrefix(line, quotePrefix) {
			text := bytes.TrimSuffix(bytes.TrimPrefix(line, quotePrefix), []byte("\n"))
			quotes = append(quotes, quote{line: i + 1, text: text})
			continue
		}
		kept = append(kept, line)
	}
	return bytes.Join(kept, nil), quotes
}

func (s *Splitter) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return logging.NewNop()
}
