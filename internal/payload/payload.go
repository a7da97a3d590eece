package payload

import (
	"path"
	"sort"
	"strconv"
	"strings"
)

// ParamSeparator joins multi-valued metadata in StringParameter.
const ParamSeparator = ";"

// AttachmentSeparator joins a parent name and a child index.
const AttachmentSeparator = "-att-"

// Payload is the object under test.
type Payload struct {
	name           string
	forms          []string // bottom first; the last element is the current form
	fileType       string
	classification string
	fontEncoding   string
	data           []byte
	views          map[string][]byte
	params         map[string][]string
	broken         bool
	procErrors     []string
	extracted      []*Payload
	digests        map[string]string
}

// New creates a payload holding data with form pushed as the current form.
func New(data []byte, name, form string) *Payload {
	p := &Payload{
		name:    name,
		data:    data,
		views:   make(map[string][]byte),
		params:  make(map[string][]string),
		digests: make(map[string]string),
	}
	if form != "" {
		p.forms = append(p.forms, form)
	}
	return p
}

// ChildName returns the conventional name of the n-th (1-based) child of parent.
func ChildName(parent string, n int) string {
	return parent + AttachmentSeparator + strconv.Itoa(n)
}

// Name returns the full name of the payload, usually the resource path.
func (p *Payload) Name() string { return p.name }

// SetName replaces the payload name.
func (p *Payload) SetName(name string) { p.name = name }

// ShortName returns the final path segment of the payload name.
func (p *Payload) ShortName() string {
	if p.name == "" {
		return ""
	}
	return path.Base(strings.ReplaceAll(p.name, "\\", "/"))
}

// PushCurrentForm makes form the current form.
func (p *Payload) PushCurrentForm(form string) {
	p.forms = append(p.forms, form)
}

// EnqueueCurrentForm adds form at the bottom of the stack.
func (p *Payload) EnqueueCurrentForm(form string) {
	p.forms = append([]string{form}, p.forms...)
}

// PopCurrentForm removes and returns the current form.
func (p *Payload) PopCurrentForm() string {
	if len(p.forms) == 0 {
		return ""
	}
	top := p.forms[len(p.forms)-1]
	p.forms = p.forms[:len(p.forms)-1]
	return top
}

// ReplaceCurrentForm swaps the current form for form, pushing when empty.
func (p *Payload) ReplaceCurrentForm(form string) {
	if len(p.forms) == 0 {
		p.forms = append(p.forms, form)
		return
	}
	p.forms[len(p.forms)-1] = form
}

// CurrentForm returns the most specific form or "" when the stack is empty.
func (p *Payload) CurrentForm() string {
	return p.CurrentFormAt(0)
}

// CurrentFormAt returns the form at position i counted from the top (0 is
// the current form), or "" when i is out of range.
func (p *Payload) CurrentFormAt(i int) string {
	if i < 0 || i >= len(p.forms) {
		return ""
	}
	return p.forms[len(p.forms)-1-i]
}

// SearchCurrentForm returns the position of form counted from the top, or -1.
func (p *Payload) SearchCurrentForm(form string) int {
	for i := 0; i < len(p.forms); i++ {
		if p.CurrentFormAt(i) == form {
			return i
		}
	}
	return -1
}

// CurrentFormSize returns the depth of the form stack.
func (p *Payload) CurrentFormSize() int { return len(p.forms) }

// AllCurrentForms returns the stack top first.
func (p *Payload) AllCurrentForms() []string {
	out := make([]string, 0, len(p.forms))
	for i := len(p.forms) - 1; i >= 0; i-- {
		out = append(out, p.forms[i])
	}
	return out
}

// FileType returns the file type label.
func (p *Payload) FileType() string { return p.fileType }

// SetFileType sets the file type label.
func (p *Payload) SetFileType(v string) { p.fileType = v }

// Classification returns the classification string.
func (p *Payload) Classification() string { return p.classification }

// SetClassification sets the classification string.
func (p *Payload) SetClassification(v string) { p.classification = v }

// FontEncoding returns the font encoding string.
func (p *Payload) FontEncoding() string { return p.fontEncoding }

// SetFontEncoding sets the font encoding string.
func (p *Payload) SetFontEncoding(v string) { p.fontEncoding = v }

// IsBroken reports the broken flag.
func (p *Payload) IsBroken() bool { return p.broken }

// SetBroken sets the broken flag.
func (p *Payload) SetBroken(v bool) { p.broken = v }

// AddProcessingError records a processing error message.
func (p *Payload) AddProcessingError(msg string) {
	p.procErrors = append(p.procErrors, msg)
}

// ProcessingError returns the recorded errors, one per line, and whether any
// were recorded.
func (p *Payload) ProcessingError() (string, bool) {
	if len(p.procErrors) == 0 {
		return "", false
	}
	return strings.Join(p.procErrors, "\n"), true
}

// Data returns the primary data buffer.
func (p *Payload) Data() []byte { return p.data }

// SetData replaces the primary data buffer.
func (p *Payload) SetData(b []byte) { p.data = b }

// ClearData drops the primary data buffer entirely.
func (p *Payload) ClearData() { p.data = nil }

// DataLength returns the primary data length.
func (p *Payload) DataLength() int { return len(p.data) }

// AlternateView returns the named view.
func (p *Payload) AlternateView(name string) ([]byte, bool) {
	b, ok := p.views[name]
	return b, ok
}

// AddAlternateView stores a named view; a nil buffer removes it.
func (p *Payload) AddAlternateView(name string, b []byte) {
	if b == nil {
		delete(p.views, name)
		return
	}
	p.views[name] = b
}

// AlternateViewNames returns the view names sorted.
func (p *Payload) AlternateViewNames() []string {
	return sortedKeys(p.views)
}

// AppendParameter adds value to the values of key.
func (p *Payload) AppendParameter(key, value string) {
	p.params[key] = append(p.params[key], value)
}

// SetParameter replaces the values of key.
func (p *Payload) SetParameter(key string, values ...string) {
	p.params[key] = append([]string(nil), values...)
}

// DeleteParameter removes key.
func (p *Payload) DeleteParameter(key string) {
	delete(p.params, key)
}

// Parameter returns a copy of the values stored under key.
func (p *Payload) Parameter(key string) []string {
	values, ok := p.params[key]
	if !ok {
		return nil
	}
	return append([]string(nil), values...)
}

// StringParameter returns the values of key joined with ParamSeparator.
func (p *Payload) StringParameter(key string) (string, bool) {
	values, ok := p.params[key]
	if !ok {
		return "", false
	}
	return strings.Join(values, ParamSeparator), true
}

// HasParameter reports whether key is present.
func (p *Payload) HasParameter(key string) bool {
	_, ok := p.params[key]
	return ok
}

// ParameterKeys returns the metadata keys sorted.
func (p *Payload) ParameterKeys() []string {
	return sortedKeys(p.params)
}

// ExtractedRecords returns the records extracted from this payload.
func (p *Payload) ExtractedRecords() []*Payload { return p.extracted }

// HasExtractedRecords reports whether any records were extracted.
func (p *Payload) HasExtractedRecords() bool { return len(p.extracted) > 0 }

// AddExtractedRecord appends an extracted record.
func (p *Payload) AddExtractedRecord(r *Payload) {
	p.extracted = append(p.extracted, r)
}

// SetExtractedRecords replaces the extracted records.
func (p *Payload) SetExtractedRecords(records []*Payload) {
	p.extracted = records
}

// SetDigest records a content digest computed by the known-file filter.
func (p *Payload) SetDigest(alg, hex string) { p.digests[alg] = hex }

// Digest returns a recorded content digest.
func (p *Payload) Digest(alg string) (string, bool) {
	v, ok := p.digests[alg]
	return v, ok
}

// Clone returns a deep copy, extracted records included.
func (p *Payload) Clone() *Payload {
	c := &Payload{
		name:           p.name,
		forms:          append([]string(nil), p.forms...),
		fileType:       p.fileType,
		classification: p.classification,
		fontEncoding:   p.fontEncoding,
		data:           cloneBytes(p.data),
		views:          make(map[string][]byte, len(p.views)),
		params:         make(map[string][]string, len(p.params)),
		broken:         p.broken,
		procErrors:     append([]string(nil), p.procErrors...),
		digests:        make(map[string]string, len(p.digests)),
	}
	for k, v := range p.views {
		c.views[k] = cloneBytes(v)
	}
	for k, v := range p.params {
		c.params[k] = append([]string(nil), v...)
	}
	for k, v := range p.digests {
		c.digests[k] = v
	}
	for _, r := range p.extracted {
		c.extracted = append(c.extracted, r.Clone())
	}
	return c
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte{}, b...)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
