package answers

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// Element names shared by the setup builder, the checker and the codec.
const (
	RootTag    = "result"
	SetupTag   = "setup"
	AnswersTag = "answers"

	NameTag  = "name"
	ValueTag = "value"

	MatchModeAttr           = "matchMode"
	CollectionSeparatorAttr = "collectionSeparator"
	OSReleaseAttr           = "os-release"
	IndexAttr               = "index"
	EncodingAttr            = "encoding"

	NumAttachmentsTag = "numAttachments"
	ExtractCountTag   = "extractCount"
	AttachmentPrefix  = "att"
	ExtractPrefix     = "extract"

	// Base64Encoding is the value of the encoding attribute on setup values
	// that could not be written as plain text.
	Base64Encoding = "base64"
)

// Setup section element names.
const (
	InitialFormTag        = "initialForm"
	ClassificationTag     = "classification"
	FontEncodingTag       = "fontEncoding"
	MetaTag               = "meta"
	AltViewTag            = "altView"
	FileTypeTag           = "fileType"
	InputAlternateViewTag = "inputAlternateView"
	BadAlternateViewTag   = "badAlternateView"
)

// Answers section element names.
const (
	CurrentFormTag     = "currentForm"
	CurrentFormSizeTag = "currentFormSize"
	DataLengthTag      = "dataLength"
	ShortNameTag       = "shortName"
	BrokenTag          = "broken"
	ProcErrorTag       = "procError"
	NoMetaTag          = "nometa"
	DataTag            = "data"
	ViewTag            = "view"
	NoViewTag          = "noview"
	LengthTag          = "length"
	LogEventsTag       = "logEvents"
	LogEventTag        = "logEvent"
	LevelTag           = "level"
	MessageTag         = "message"
)

// ErrNotFound reports a missing answer document.
var ErrNotFound = errors.New("answer document not found")

var (
	attPattern     = regexp.MustCompile(`^att(\d+)$`)
	extractPattern = regexp.MustCompile(`^extract(\d+)$`)
)

// Document wraps a parsed answer document.
type Document struct {
	doc *etree.Document
}

// New returns an empty document with a result root.
func New() *Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	doc.CreateElement(RootTag)
	return &Document{doc: doc}
}

// Parse reads a document from bytes.
func Parse(content []byte) (*Document, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(content); err != nil {
		return nil, fmt.Errorf("parse answer document: %w", err)
	}
	if doc.Root() == nil {
		return nil, errors.New("parse answer document: no root element")
	}
	return &Document{doc: doc}, nil
}

// Load reads a document from path, returning ErrNotFound when it is absent.
func Load(path string) (*Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("read answer document: %w", err)
	}
	return Parse(content)
}

// Root returns the root element.
func (d *Document) Root() *etree.Element {
	return d.doc.Root()
}

// Setup returns the setup section or nil.
func (d *Document) Setup() *etree.Element {
	return d.Root().SelectElement(SetupTag)
}

// Answers returns the answers section, falling back to the root element.
func (d *Document) Answers() *etree.Element {
	if el := d.Root().SelectElement(AnswersTag); el != nil {
		return el
	}
	return d.Root()
}

// Bytes serializes the document indented by two spaces.
func (d *Document) Bytes() ([]byte, error) {
	d.doc.Indent(2)
	return d.doc.WriteToBytes()
}

// ChildText returns the raw text of the first child named tag.
func ChildText(el *etree.Element, tag string) (string, bool) {
	child := el.SelectElement(tag)
	if child == nil {
		return "", false
	}
	return child.Text(), true
}

// ChildTextTrim returns the trimmed text of the first child named tag.
func ChildTextTrim(el *etree.Element, tag string) (string, bool) {
	text, ok := ChildText(el, tag)
	return strings.TrimSpace(text), ok
}

// ChildInt parses the first child named tag as an integer, returning -1 when
// the child is absent or not numeric.
func ChildInt(el *etree.Element, tag string) int {
	text, ok := ChildTextTrim(el, tag)
	if !ok {
		return -1
	}
	n, err := strconv.Atoi(text)
	if err != nil {
		return -1
	}
	return n
}

// TextTrim returns the trimmed text of el.
func TextTrim(el *etree.Element) string {
	return strings.TrimSpace(el.Text())
}

// Attr returns the value of an attribute.
func Attr(el *etree.Element, key string) (string, bool) {
	a := el.SelectAttr(key)
	if a == nil {
		return "", false
	}
	return a.Value, true
}

// Indexed returns the indices of att<N> or extract<N> children, sorted.
func Indexed(el *etree.Element, prefix string) []int {
	pattern := attPattern
	if prefix == ExtractPrefix {
		pattern = extractPattern
	}
	var out []int
	for _, child := range el.ChildElements() {
		m := pattern.FindStringSubmatch(child.Tag)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// IndexedChild returns the <prefix><n> child or nil.
func IndexedChild(el *etree.Element, prefix string, n int) *etree.Element {
	return el.SelectElement(prefix + strconv.Itoa(n))
}

// AddText appends a child element holding text.
func AddText(parent *etree.Element, tag, text string) *etree.Element {
	child := parent.CreateElement(tag)
	child.SetText(text)
	return child
}

// AddNamedValue appends <tag><name>..</name><value>..</value></tag>.
func AddNamedValue(parent *etree.Element, tag, name, value string) *etree.Element {
	child := parent.CreateElement(tag)
	AddText(child, NameTag, name)
	AddText(child, ValueTag, value)
	return child
}

// ExpectedValue returns the value an assertion element declares: the raw
// text of its value child, or its own text when it has no child elements and
// that text is not blank. ok is false when nothing is declared.
func ExpectedValue(el *etree.Element) (string, bool) {
	if text, ok := ChildText(el, ValueTag); ok {
		return text, true
	}
	if len(el.ChildElements()) > 0 {
		return "", false
	}
	text := el.Text()
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	return text, true
}
