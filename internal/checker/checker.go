package checker

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"goldcheck/internal/answers"
	"goldcheck/internal/codec"
	"goldcheck/internal/failure"
	"goldcheck/internal/match"
	"goldcheck/internal/osrelease"
	"goldcheck/internal/payload"
)

// AttachmentHook runs around the check of one attachment.
type AttachmentHook func(el *etree.Element, parent, attachment *payload.Payload, test string) error

// Hooks are optional callbacks invoked while checking.
type Hooks struct {
	BeforeAttachment AttachmentHook
	AfterAttachment  AttachmentHook
}

// Checker evaluates answer documents. OS resolves os-release guards; a nil
// OS matches no guarded element.
type Checker struct {
	OS     osrelease.Detector
	Policy codec.Policy
	Hooks  Hooks
}

// Check verifies p and its attachments against doc. Under the SHA256 policy
// the payloads are masked in place first, mirroring generation.
func (c *Checker) Check(doc *answers.Document, p *payload.Payload, attachments []*payload.Payload, test string) error {
	codec.Mask(p, c.Policy)
	codec.MaskAll(attachments, c.Policy)

	parent := doc.Answers()
	if err := c.checkNode(parent, p, attachments, test); err != nil {
		return err
	}

	for n := 1; n <= len(attachments); n++ {
		el := answers.IndexedChild(parent, answers.AttachmentPrefix, n)
		if el == nil {
			continue
		}
		att := attachments[n-1]
		name := payload.ChildName(test, n)
		if h := c.Hooks.BeforeAttachment; h != nil {
			if err := h(el, p, att, name); err != nil {
				return err
			}
		}
		if err := c.checkNode(el, att, nil, name); err != nil {
			return err
		}
		if h := c.Hooks.AfterAttachment; h != nil {
			if err := h(el, p, att, name); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkNode runs every declared check of el against p. attachments is the
// list counted by numAttachments; it is empty below the top level.
func (c *Checker) checkNode(el *etree.Element, p *payload.Payload, attachments []*payload.Payload, test string) error {
	if err := reconcile(el, answers.NumAttachmentsTag, answers.AttachmentPrefix, "att", len(attachments), test); err != nil {
		return err
	}

	steps := []func(*etree.Element, *payload.Payload, string) error{
		c.checkForms,
		c.checkScalars,
		c.checkDataLength,
		c.checkMeta,
		c.checkData,
		c.checkViews,
	}
	for _, step := range steps {
		if err := step(el, p, test); err != nil {
			return err
		}
	}

	records := p.ExtractedRecords()
	if err := reconcile(el, answers.ExtractCountTag, answers.ExtractPrefix, "extracts", len(records), test); err != nil {
		return err
	}
	for i, rec := range records {
		child := answers.IndexedChild(el, answers.ExtractPrefix, i+1)
		if child == nil {
			continue
		}
		if err := c.checkNode(child, rec, nil, test+"::extract"+strconv.Itoa(i+1)); err != nil {
			return err
		}
	}
	return nil
}

// reconcile compares the declared child count of el with actual. A declared
// count wins over counting indexed elements; with neither, any child is
// unexpected.
func reconcile(el *etree.Element, countTag, prefix, noun string, actual int, test string) error {
	declared := answers.ChildInt(el, countTag)
	indices := answers.Indexed(el, prefix)

	switch {
	case declared > -1:
		if n := len(indices); n > 0 && indices[n-1] > declared {
			return failure.New(failure.Malformed, test,
				"<%s> declares %d but <%s%d> is described", countTag, declared, prefix, indices[n-1])
		}
		if declared != actual {
			return failure.New(failure.Assertion, test,
				"expected <%s> %d not equal to number of %s in payload %d", countTag, declared, noun, actual)
		}
	case len(indices) > 0:
		if len(indices) != actual {
			return failure.New(failure.Assertion, test,
				"expected <%s#> count %d not equal to number of %s in payload %d", prefix, len(indices), noun, actual)
		}
	case actual > 0:
		return failure.New(failure.Assertion, test,
			"%d %s in payload with no count in answer xml, add matching <%s> count", actual, noun, countTag)
	}
	return nil
}

func (c *Checker) checkForms(el *etree.Element, p *payload.Payload, test string) error {
	for _, cf := range el.SelectElements(answers.CurrentFormTag) {
		ok, err := c.applies(cf, test)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		form := answers.TextTrim(cf)
		raw, indexed := answers.Attr(cf, answers.IndexAttr)
		if !indexed {
			if p.SearchCurrentForm(form) < 0 {
				return failure.New(failure.Assertion, test,
					"current form '%s' not found, %v", form, p.AllCurrentForms())
			}
			continue
		}
		pos, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return failure.Wrap(failure.Malformed, test, "currentForm index "+strconv.Quote(raw), err)
		}
		if got := p.CurrentFormAt(pos); got != form {
			return failure.New(failure.Assertion, test,
				"current form '%s' not found at position [%d], %v", form, pos, p.AllCurrentForms())
		}
	}

	if size := answers.ChildInt(el, answers.CurrentFormSizeTag); size > -1 && size != p.CurrentFormSize() {
		return failure.New(failure.Assertion, test,
			"current form size is %d, expected %d", p.CurrentFormSize(), size)
	}
	return nil
}

func (c *Checker) checkScalars(el *etree.Element, p *payload.Payload, test string) error {
	type scalar struct {
		tag       string
		actual    string
		skipBlank bool
	}
	broken := strconv.FormatBool(p.IsBroken())
	procErr, hasProcErr := p.ProcessingError()
	scalars := []scalar{
		{tag: answers.FileTypeTag, actual: p.FileType()},
		{tag: answers.ClassificationTag, actual: p.Classification()},
		{tag: answers.ShortNameTag, actual: p.ShortName(), skipBlank: true},
		{tag: answers.FontEncodingTag, actual: p.FontEncoding(), skipBlank: true},
		{tag: answers.BrokenTag, actual: broken, skipBlank: true},
	}
	for _, s := range scalars {
		child := el.SelectElement(s.tag)
		if child == nil {
			continue
		}
		ok, err := c.applies(child, test)
		if err != nil {
			return err
		}
		want := answers.TextTrim(child)
		if !ok || (s.skipBlank && want == "") {
			continue
		}
		if want != s.actual {
			return failure.New(failure.Assertion, test, "%s is '%s', expected '%s'", s.tag, s.actual, want)
		}
	}

	child := el.SelectElement(answers.ProcErrorTag)
	if child == nil {
		return nil
	}
	want := answers.TextTrim(child)
	if ok, err := c.applies(child, test); err != nil || !ok || want == "" {
		return err
	}
	if !hasProcErr {
		return failure.New(failure.Assertion, test, "expected processing error '%s'", want)
	}
	if got := strings.ReplaceAll(procErr, "\n", ";"); got != want {
		return failure.New(failure.Assertion, test, "processing error is '%s', expected '%s'", got, want)
	}
	return nil
}

func (c *Checker) checkDataLength(el *etree.Element, p *payload.Payload, test string) error {
	for _, dl := range el.SelectElements(answers.DataLengthTag) {
		ok, err := c.applies(dl, test)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		want, err := strconv.Atoi(answers.TextTrim(dl))
		if err != nil || want < 0 {
			continue
		}
		if want != p.DataLength() {
			return failure.New(failure.Assertion, test, "data length is %d, expected %d", p.DataLength(), want)
		}
	}
	return nil
}

func (c *Checker) checkMeta(el *etree.Element, p *payload.Payload, test string) error {
	for _, meta := range el.SelectElements(answers.MetaTag) {
		ok, err := c.applies(meta, test)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		key, err := requireName(meta, test)
		if err != nil {
			return err
		}
		actual, present := p.StringParameter(key)
		if _, declared := answers.ExpectedValue(meta); !declared {
			if !present {
				return failure.New(failure.Assertion, test, "metadata element '%s' does not exist", key)
			}
			continue
		}
		if err := evaluate(meta, key, actual, present, test); err != nil {
			return err
		}
	}

	for _, meta := range el.SelectElements(answers.NoMetaTag) {
		ok, err := c.applies(meta, test)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		key, err := requireName(meta, test)
		if err != nil {
			return err
		}
		if p.HasParameter(key) {
			value, _ := p.StringParameter(key)
			return failure.New(failure.Assertion, test,
				"metadata element '%s' should not exist, but has value of '%s'", key, value)
		}
	}
	return nil
}

func (c *Checker) checkData(el *etree.Element, p *payload.Payload, test string) error {
	for _, data := range el.SelectElements(answers.DataTag) {
		ok, err := c.applies(data, test)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := evaluate(data, "", string(p.Data()), true, test); err != nil {
			return err
		}
	}
	return nil
}

func (c *Checker) checkViews(el *etree.Element, p *payload.Payload, test string) error {
	for _, view := range el.SelectElements(answers.ViewTag) {
		ok, err := c.applies(view, test)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		name, err := requireName(view, test)
		if err != nil {
			return err
		}
		data, exists := p.AlternateView(name)
		if !exists {
			return failure.New(failure.Assertion, test, "alternate view '%s' is missing", name)
		}
		if raw, declared := answers.ChildTextTrim(view, answers.LengthTag); declared {
			want, err := strconv.Atoi(raw)
			if err != nil {
				return failure.Wrap(failure.Malformed, test, "length of alternate view '"+name+"'", err)
			}
			if want != len(data) {
				return failure.New(failure.Assertion, test,
					"length of alternate view '%s' is %d, expected %d", name, len(data), want)
			}
		}
		if err := evaluate(view, name, string(data), true, test); err != nil {
			return err
		}
	}

	for _, view := range el.SelectElements(answers.NoViewTag) {
		ok, err := c.applies(view, test)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		name, err := requireName(view, test)
		if err != nil {
			return err
		}
		if _, exists := p.AlternateView(name); exists {
			return failure.New(failure.Assertion, test, "alternate view '%s' is present, but should not be", name)
		}
	}
	return nil
}

// applies evaluates the os-release guard of el.
func (c *Checker) applies(el *etree.Element, test string) (bool, error) {
	id, ok := answers.Attr(el, answers.OSReleaseAttr)
	if !ok {
		return true, nil
	}
	if !osrelease.Known(id) {
		return false, failure.New(failure.Malformed, test,
			"specified OS needs to match ubuntu, centos, or rhel on <%s>. Provided OS=%s", el.Tag, id)
	}
	if c.OS == nil {
		return false, nil
	}
	return c.OS.Is(id), nil
}

func requireName(el *etree.Element, test string) (string, error) {
	key, ok := answers.ChildTextTrim(el, answers.NameTag)
	if !ok {
		return "", failure.New(failure.Malformed, test,
			"the element %s does not have a child name element", el.Tag)
	}
	return key, nil
}

// evaluate applies the declared match mode of el to actual. Elements without
// an expected value pass.
func evaluate(el *etree.Element, key, actual string, present bool, test string) error {
	expected, ok := answers.ExpectedValue(el)
	if !ok {
		return nil
	}
	mode, _ := answers.Attr(el, answers.MatchModeAttr)
	sep, _ := answers.Attr(el, answers.CollectionSeparatorAttr)
	return match.Evaluate(match.Assertion{
		Test:      test,
		Field:     el.Tag,
		Key:       key,
		Mode:      mode,
		Expected:  expected,
		Separator: sep,
	}, actual, present)
}
