package codec

import (
	"encoding/base64"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"goldcheck/internal/answers"
	"goldcheck/internal/logging"
	"goldcheck/internal/payload"
)

// EncodeSetup writes the initial state of p as a setup element. Values that
// cannot round-trip as trimmed element text carry encoding="base64". Setup
// values are never digested: they must rebuild the exact initial payload.
func EncodeSetup(p *payload.Payload) *etree.Element {
	el := etree.NewElement(answers.SetupTag)

	forms := p.AllCurrentForms()
	for i := len(forms) - 1; i >= 0; i-- {
		answers.AddText(el, answers.InitialFormTag, forms[i])
	}
	if v := p.Classification(); v != "" {
		answers.AddText(el, answers.ClassificationTag, v)
	}
	if v := p.FontEncoding(); v != "" {
		answers.AddText(el, answers.FontEncodingTag, v)
	}
	for _, key := range p.ParameterKeys() {
		for _, value := range p.Parameter(key) {
			meta := el.CreateElement(answers.MetaTag)
			answers.AddText(meta, answers.NameTag, key)
			addSetupValue(meta, []byte(value), true)
		}
	}
	for _, name := range p.AlternateViewNames() {
		view, _ := p.AlternateView(name)
		alt := el.CreateElement(answers.AltViewTag)
		answers.AddText(alt, answers.NameTag, name)
		addSetupValue(alt, view, false)
	}
	if v := p.FileType(); v != "" {
		answers.AddText(el, answers.FileTypeTag, v)
	}
	return el
}

func addSetupValue(parent *etree.Element, b []byte, trimmed bool) {
	plain := textSafe(b)
	if plain && trimmed {
		s := string(b)
		plain = strings.TrimSpace(s) == s
	}
	if plain {
		answers.AddText(parent, answers.ValueTag, string(b))
		return
	}
	value := answers.AddText(parent, answers.ValueTag, base64.StdEncoding.EncodeToString(b))
	value.CreateAttr(answers.EncodingAttr, answers.Base64Encoding)
}

// EncodeAnswers writes the final state of p, its attachments and the captured
// log events as an answers element. Under SHA256 the payloads are masked on
// copies first; the inputs are not modified.
func EncodeAnswers(p *payload.Payload, attachments []*payload.Payload, events []logging.Event, policy Policy) *etree.Element {
	el := etree.NewElement(answers.AnswersTag)
	final := p.Clone()
	Mask(final, policy)
	encodeNode(el, final)

	answers.AddText(el, answers.NumAttachmentsTag, strconv.Itoa(len(attachments)))
	for i, att := range attachments {
		child := att.Clone()
		Mask(child, policy)
		attEl := el.CreateElement(answers.AttachmentPrefix + strconv.Itoa(i+1))
		encodeNode(attEl, child)
		answers.AddText(attEl, answers.NumAttachmentsTag, "0")
	}

	if events != nil {
		encodeLogEvents(el, events)
	}
	return el
}

// encodeNode writes the checkable fields of an already masked payload.
func encodeNode(el *etree.Element, p *payload.Payload) {
	for i, form := range p.AllCurrentForms() {
		cf := answers.AddText(el, answers.CurrentFormTag, form)
		cf.CreateAttr(answers.IndexAttr, strconv.Itoa(i))
	}
	answers.AddText(el, answers.CurrentFormSizeTag, strconv.Itoa(p.CurrentFormSize()))
	if v := p.FileType(); v != "" {
		answers.AddText(el, answers.FileTypeTag, v)
	}
	if v := p.Classification(); v != "" {
		answers.AddText(el, answers.ClassificationTag, v)
	}
	answers.AddText(el, answers.DataLengthTag, strconv.Itoa(p.DataLength()))
	if v := p.ShortName(); v != "" {
		answers.AddText(el, answers.ShortNameTag, v)
	}
	if v := p.FontEncoding(); v != "" {
		answers.AddText(el, answers.FontEncodingTag, v)
	}
	answers.AddText(el, answers.BrokenTag, strconv.FormatBool(p.IsBroken()))
	if msg, ok := p.ProcessingError(); ok {
		answers.AddText(el, answers.ProcErrorTag, strings.ReplaceAll(msg, "\n", ";"))
	}

	for _, key := range p.ParameterKeys() {
		value, _ := p.StringParameter(key)
		meta := el.CreateElement(answers.MetaTag)
		answers.AddText(meta, answers.NameTag, key)
		addAnswerValue(meta, []byte(value))
	}

	data := el.CreateElement(answers.DataTag)
	addAnswerValue(data, p.Data())

	for _, name := range p.AlternateViewNames() {
		view, _ := p.AlternateView(name)
		viewEl := el.CreateElement(answers.ViewTag)
		answers.AddText(viewEl, answers.NameTag, name)
		answers.AddText(viewEl, answers.LengthTag, strconv.Itoa(len(view)))
		addAnswerValue(viewEl, view)
	}

	records := p.ExtractedRecords()
	answers.AddText(el, answers.ExtractCountTag, strconv.Itoa(len(records)))
	for i, rec := range records {
		recEl := el.CreateElement(answers.ExtractPrefix + strconv.Itoa(i+1))
		encodeNode(recEl, rec)
		answers.AddText(recEl, answers.NumAttachmentsTag, "0")
	}
}

// addAnswerValue writes b as the value child of parent, switching parent to
// base64 match mode when b cannot be written as text.
func addAnswerValue(parent *etree.Element, b []byte) {
	if textSafe(b) {
		answers.AddText(parent, answers.ValueTag, string(b))
		return
	}
	parent.CreateAttr(answers.MatchModeAttr, "base64")
	answers.AddText(parent, answers.ValueTag, base64.StdEncoding.EncodeToString(b))
}

func encodeLogEvents(parent *etree.Element, events []logging.Event) {
	list := parent.CreateElement(answers.LogEventsTag)
	for _, ev := range events {
		item := list.CreateElement(answers.LogEventTag)
		answers.AddText(item, answers.LevelTag, ev.Level)
		msg := []byte(ev.Message)
		if textSafe(msg) {
			answers.AddText(item, answers.MessageTag, ev.Message)
			continue
		}
		m := answers.AddText(item, answers.MessageTag, base64.StdEncoding.EncodeToString(msg))
		m.CreateAttr(answers.EncodingAttr, answers.Base64Encoding)
	}
}
