package codec

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"goldcheck/internal/answers"
	"goldcheck/internal/logging"
	"goldcheck/internal/match"
	"goldcheck/internal/payload"
)

// DecodeSetupValue reads the value child of parent, decoding it when it
// carries encoding="base64". Plain values are trimmed when trim is set.
func DecodeSetupValue(parent *etree.Element, trim bool) ([]byte, bool, error) {
	value := parent.SelectElement(answers.ValueTag)
	if value == nil {
		return nil, false, nil
	}
	if enc, _ := answers.Attr(value, answers.EncodingAttr); enc == answers.Base64Encoding {
		decoded, err := match.DecodeBase64(value.Text())
		if err != nil {
			return nil, true, fmt.Errorf("%s value: %w", parent.Tag, err)
		}
		return []byte(decoded), true, nil
	}
	text := value.Text()
	if trim {
		text = strings.TrimSpace(text)
	}
	return []byte(text), true, nil
}

// DecodeAnswers rebuilds the expected final payload, its attachments and the
// expected log events from an answers element. Buffers that were digested at
// generation time decode to their digest text, so the result must be compared
// with payloads masked under the same policy.
func DecodeAnswers(el *etree.Element) (*payload.Payload, []*payload.Payload, []logging.Event, error) {
	p, err := decodeNode(el)
	if err != nil {
		return nil, nil, nil, err
	}
	attachments, err := decodeIndexed(el, answers.AttachmentPrefix, answers.NumAttachmentsTag)
	if err != nil {
		return nil, nil, nil, err
	}
	events, err := DecodeLogEvents(el)
	if err != nil {
		return nil, nil, nil, err
	}
	return p, attachments, events, nil
}

// DecodeLogEvents reads the logEvents section of el. A missing section
// decodes to no events.
func DecodeLogEvents(el *etree.Element) ([]logging.Event, error) {
	list := el.SelectElement(answers.LogEventsTag)
	if list == nil {
		return nil, nil
	}
	var events []logging.Event
	for _, item := range list.SelectElements(answers.LogEventTag) {
		level, _ := answers.ChildTextTrim(item, answers.LevelTag)
		var message string
		if m := item.SelectElement(answers.MessageTag); m != nil {
			message = m.Text()
			if enc, _ := answers.Attr(m, answers.EncodingAttr); enc == answers.Base64Encoding {
				decoded, err := match.DecodeBase64(message)
				if err != nil {
					return nil, fmt.Errorf("log event message: %w", err)
				}
				message = decoded
			}
		}
		events = append(events, logging.Event{Level: level, Message: message})
	}
	return events, nil
}

func decodeNode(el *etree.Element) (*payload.Payload, error) {
	p := payload.New(nil, "", "")
	if name, ok := answers.ChildTextTrim(el, answers.ShortNameTag); ok {
		p.SetName(name)
	}

	forms, err := decodeForms(el)
	if err != nil {
		return nil, err
	}
	for i := len(forms) - 1; i >= 0; i-- {
		p.PushCurrentForm(forms[i])
	}
	if v, ok := answers.ChildTextTrim(el, answers.FileTypeTag); ok {
		p.SetFileType(v)
	}
	if v, ok := answers.ChildTextTrim(el, answers.ClassificationTag); ok {
		p.SetClassification(v)
	}
	if v, ok := answers.ChildTextTrim(el, answers.FontEncodingTag); ok {
		p.SetFontEncoding(v)
	}
	if v, _ := answers.ChildTextTrim(el, answers.BrokenTag); v == "true" {
		p.SetBroken(true)
	}
	if v, ok := answers.ChildTextTrim(el, answers.ProcErrorTag); ok && v != "" {
		p.AddProcessingError(v)
	}

	for _, meta := range el.SelectElements(answers.MetaTag) {
		key, ok := answers.ChildTextTrim(meta, answers.NameTag)
		if !ok {
			return nil, errors.New("meta element without name")
		}
		value, _, err := answerValue(meta)
		if err != nil {
			return nil, err
		}
		p.AppendParameter(key, value)
	}

	if data := el.SelectElement(answers.DataTag); data != nil {
		value, ok, err := answerValue(data)
		if err != nil {
			return nil, err
		}
		if ok {
			p.SetData([]byte(value))
		} else {
			p.SetData([]byte{})
		}
	}

	for _, view := range el.SelectElements(answers.ViewTag) {
		name, ok := answers.ChildTextTrim(view, answers.NameTag)
		if !ok {
			return nil, errors.New("view element without name")
		}
		value, _, err := answerValue(view)
		if err != nil {
			return nil, err
		}
		p.AddAlternateView(name, []byte(value))
	}

	records, err := decodeIndexed(el, answers.ExtractPrefix, answers.ExtractCountTag)
	if err != nil {
		return nil, err
	}
	p.SetExtractedRecords(records)
	return p, nil
}

// decodeForms returns the current forms top first. Indexed entries are placed
// by index; entries without one follow in document order.
func decodeForms(el *etree.Element) ([]string, error) {
	type indexed struct {
		pos  int
		form string
	}
	var (
		positioned []indexed
		plain      []string
	)
	for _, cf := range el.SelectElements(answers.CurrentFormTag) {
		form := answers.TextTrim(cf)
		raw, ok := answers.Attr(cf, answers.IndexAttr)
		if !ok {
			plain = append(plain, form)
			continue
		}
		pos, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("currentForm index %q: %w", raw, err)
		}
		positioned = append(positioned, indexed{pos: pos, form: form})
	}
	sort.SliceStable(positioned, func(i, j int) bool { return positioned[i].pos < positioned[j].pos })
	forms := make([]string, 0, len(positioned)+len(plain))
	for _, f := range positioned {
		forms = append(forms, f.form)
	}
	return append(forms, plain...), nil
}

// decodeIndexed decodes every <prefix><N> child. The declared count, when
// present, must match the highest index and every index up to it must exist.
func decodeIndexed(el *etree.Element, prefix, countTag string) ([]*payload.Payload, error) {
	indices := answers.Indexed(el, prefix)
	count := answers.ChildInt(el, countTag)
	if count < 0 {
		count = len(indices)
	}
	out := make([]*payload.Payload, 0, count)
	for n := 1; n <= count; n++ {
		child := answers.IndexedChild(el, prefix, n)
		if child == nil {
			return nil, fmt.Errorf("%s%d is not described", prefix, n)
		}
		p, err := decodeNode(child)
		if err != nil {
			return nil, fmt.Errorf("%s%d: %w", prefix, n, err)
		}
		out = append(out, p)
	}
	if len(indices) > 0 && indices[len(indices)-1] > count {
		return nil, fmt.Errorf("%s%d exceeds declared count %d", prefix, indices[len(indices)-1], count)
	}
	return out, nil
}

func answerValue(el *etree.Element) (string, bool, error) {
	value, ok := answers.ExpectedValue(el)
	if !ok {
		return "", false, nil
	}
	if mode, _ := answers.Attr(el, answers.MatchModeAttr); mode == match.Base64 {
		decoded, err := match.DecodeBase64(value)
		if err != nil {
			return "", true, fmt.Errorf("%s value: %w", el.Tag, err)
		}
		return decoded, true, nil
	}
	return value, true, nil
}
