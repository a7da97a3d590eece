// Package setup rebuilds the initial state of a payload from the setup
// section of an answer document.
package setup

import (
	"context"
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"goldcheck/internal/answers"
	"goldcheck/internal/codec"
	"goldcheck/internal/failure"
	"goldcheck/internal/kff"
	"goldcheck/internal/payload"
)

// WrongViewSentinel replaces data the processor is not supposed to read.
const WrongViewSentinel = "This is the incorrect view, the place should not have processed this view"

// Builder applies setup sections. The zero value only records digests.
type Builder struct {
	KFF *kff.Handler
}

// Apply runs the fingerprint pass and then the setup effects, in order:
// initial forms, classification, font encoding, metadata, alternate views,
// file type, input alternate view and bad alternate view. A nil section
// still runs the pass and defaults the file type.
func (b *Builder) Apply(ctx context.Context, p *payload.Payload, section *etree.Element, test string) error {
	if err := b.KFF.Hash(ctx, p); err != nil {
		return failure.Wrap(failure.Fixture, test, "fingerprint pass", err)
	}
	if section == nil {
		p.SetFileType(p.CurrentForm())
		return nil
	}

	if forms := section.SelectElements(answers.InitialFormTag); len(forms) > 0 {
		p.PopCurrentForm()
		for _, el := range forms {
			p.PushCurrentForm(answers.TextTrim(el))
		}
	}

	if v, _ := answers.ChildTextTrim(section, answers.ClassificationTag); v != "" {
		p.SetClassification(v)
	}
	if v, _ := answers.ChildTextTrim(section, answers.FontEncodingTag); v != "" {
		p.SetFontEncoding(v)
	}

	for _, meta := range section.SelectElements(answers.MetaTag) {
		key, ok := answers.ChildTextTrim(meta, answers.NameTag)
		if !ok {
			return failure.New(failure.Malformed, test, "setup meta element does not have a child name element")
		}
		value, _, err := codec.DecodeSetupValue(meta, true)
		if err != nil {
			return failure.Wrap(failure.Malformed, test, "setup meta "+key, err)
		}
		p.AppendParameter(key, string(value))
	}

	for _, view := range section.SelectElements(answers.AltViewTag) {
		name, ok := answers.ChildTextTrim(view, answers.NameTag)
		if !ok {
			return failure.New(failure.Malformed, test, "setup altView element does not have a child name element")
		}
		value, _, err := codec.DecodeSetupValue(view, false)
		if err != nil {
			return failure.Wrap(failure.Malformed, test, "setup altView "+name, err)
		}
		p.AddAlternateView(name, value)
	}

	if v, _ := answers.ChildTextTrim(section, answers.FileTypeTag); v != "" {
		p.SetFileType(v)
	} else {
		p.SetFileType(p.CurrentForm())
	}

	if name, _ := answers.ChildTextTrim(section, answers.InputAlternateViewTag); name != "" {
		data := p.Data()
		if data == nil {
			data = []byte{}
		}
		p.AddAlternateView(name, data)
		p.SetData([]byte(WrongViewSentinel))
	}
	if name, _ := answers.ChildTextTrim(section, answers.BadAlternateViewTag); name != "" {
		p.AddAlternateView(name, []byte(WrongViewSentinel))
	}
	return nil
}

// Describe renders a one-line summary of a setup section for debug logs.
func Describe(section *etree.Element) string {
	if section == nil {
		return "no setup"
	}
	var forms []string
	for _, el := range section.SelectElements(answers.InitialFormTag) {
		forms = append(forms, answers.TextTrim(el))
	}
	return fmt.Sprintf("forms=%s meta=%d views=%d",
		strings.Join(forms, ","),
		len(section.SelectElements(answers.MetaTag)),
		len(section.SelectElements(answers.AltViewTag)))
}
