package checker

import (
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"goldcheck/internal/answers"
	"goldcheck/internal/codec"
	"goldcheck/internal/failure"
	"goldcheck/internal/logging"
	"goldcheck/internal/payload"
)

// Snapshot is the comparable state of one payload.
type Snapshot struct {
	ShortName      string
	Forms          []string
	FileType       string
	Classification string
	FontEncoding   string
	Broken         bool
	ProcError      string
	Data           string
	Views          map[string]string
	Meta           map[string]string
	Extracted      []Snapshot
}

// Tree is a payload with its attachments.
type Tree struct {
	Root        Snapshot
	Attachments []Snapshot
}

// Snap captures p. Processing errors are joined with ';' as they are written
// to answer documents.
func Snap(p *payload.Payload) Snapshot {
	s := Snapshot{
		ShortName:      p.ShortName(),
		Forms:          p.AllCurrentForms(),
		FileType:       p.FileType(),
		Classification: p.Classification(),
		FontEncoding:   p.FontEncoding(),
		Broken:         p.IsBroken(),
		Data:           string(p.Data()),
		Views:          make(map[string]string),
		Meta:           make(map[string]string),
	}
	if msg, ok := p.ProcessingError(); ok {
		s.ProcError = strings.ReplaceAll(msg, "\n", ";")
	}
	for _, name := range p.AlternateViewNames() {
		v, _ := p.AlternateView(name)
		s.Views[name] = string(v)
	}
	for _, key := range p.ParameterKeys() {
		s.Meta[key], _ = p.StringParameter(key)
	}
	for _, rec := range p.ExtractedRecords() {
		s.Extracted = append(s.Extracted, Snap(rec))
	}
	return s
}

// SnapTree captures p and its attachments.
func SnapTree(p *payload.Payload, attachments []*payload.Payload) Tree {
	t := Tree{Root: Snap(p)}
	for _, att := range attachments {
		t.Attachments = append(t.Attachments, Snap(att))
	}
	return t
}

// Diff renders every difference between expected and actual, or "" when they
// are equal.
func Diff(expected, actual Tree) string {
	return cmp.Diff(expected, actual, cmpopts.EquateEmpty())
}

// CheckStrict requires the whole answers section to describe p and its
// attachments exactly, no more and no less.
func (c *Checker) CheckStrict(doc *answers.Document, p *payload.Payload, attachments []*payload.Payload, test string) error {
	expected, expectedAtts, _, err := codec.DecodeAnswers(doc.Answers())
	if err != nil {
		return failure.Wrap(failure.Malformed, test, "decode answers", err)
	}
	codec.Mask(p, c.Policy)
	codec.MaskAll(attachments, c.Policy)

	if diff := Diff(SnapTree(expected, expectedAtts), SnapTree(p, attachments)); diff != "" {
		return failure.New(failure.Assertion, test, "answer tree differs (-expected +actual):\n%s", diff)
	}
	return nil
}

// CheckLogEvents requires the captured events to equal the logEvents section
// exactly, in order.
func (c *Checker) CheckLogEvents(doc *answers.Document, events []logging.Event, test string) error {
	expected, err := codec.DecodeLogEvents(doc.Answers())
	if err != nil {
		return failure.Wrap(failure.Malformed, test, "decode log events", err)
	}
	if diff := cmp.Diff(expected, events, cmpopts.EquateEmpty()); diff != "" {
		return failure.New(failure.Assertion, test, "log events differ (-expected +actual):\n%s", diff)
	}
	return nil
}
