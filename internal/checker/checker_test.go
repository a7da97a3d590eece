package checker_test

import (
	"strings"
	"testing"

	"github.com/beevik/etree"

	"goldcheck/internal/answers"
	"goldcheck/internal/checker"
	"goldcheck/internal/codec"
	"goldcheck/internal/failure"
	"goldcheck/internal/logging"
	"goldcheck/internal/osrelease"
	"goldcheck/internal/payload"
)

func parse(t *testing.T, body string) *answers.Document {
	t.Helper()
	doc, err := answers.Parse([]byte("<result><answers>" + body + "</answers></result>"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return doc
}

func hello() *payload.Payload {
	return payload.New([]byte("hello"), "dir/foo.dat", "foo")
}

func children(n int) []*payload.Payload {
	var out []*payload.Payload
	for i := 1; i <= n; i++ {
		out = append(out, payload.New([]byte("child"), payload.ChildName("dir/foo.dat", i), "CHILD"))
	}
	return out
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		payload     func() *payload.Payload
		attachments int
		wantClass   failure.Class
		wantMsg     string
	}{
		{
			name: "data equals passes",
			body: `<data matchMode="equals">hello</data>`,
		},
		{
			name:        "zero declared against one child",
			body:        `<numAttachments>0</numAttachments>`,
			attachments: 1,
			wantClass:   failure.Assertion,
			wantMsg:     "numAttachments",
		},
		{
			name:        "declared two against one child names both counts",
			body:        `<numAttachments>2</numAttachments>`,
			attachments: 1,
			wantClass:   failure.Assertion,
			wantMsg:     "<numAttachments> 2 not equal to number of att in payload 1",
		},
		{
			name:        "undeclared children fail",
			attachments: 1,
			wantClass:   failure.Assertion,
			wantMsg:     "no count in answer xml",
		},
		{
			name:        "indexed elements count",
			body:        `<att1/><att2/>`,
			attachments: 2,
		},
		{
			name:        "index above declared count is malformed",
			body:        `<numAttachments>1</numAttachments><att3/>`,
			attachments: 1,
			wantClass:   failure.Malformed,
		},
		{
			name:      "missing meta fails against expected value",
			body:      `<meta><name>FOO</name><value>bar</value></meta>`,
			wantClass: failure.Assertion,
			wantMsg:   "'bar'",
		},
		{
			name:      "meta without value asserts presence",
			body:      `<meta><name>FOO</name></meta>`,
			wantClass: failure.Assertion,
			wantMsg:   "does not exist",
		},
		{
			name:      "meta without name is malformed",
			body:      `<meta><value>bar</value></meta>`,
			wantClass: failure.Malformed,
		},
		{
			name: "meta collection",
			body: `<meta matchMode="collection" collectionSeparator="|"><name>K</name><value>b|a</value></meta>`,
			payload: func() *payload.Payload {
				p := hello()
				p.SetParameter("K", "a|b")
				return p
			},
		},
		{
			name: "nometa",
			body: `<nometa><name>K</name></nometa>`,
			payload: func() *payload.Payload {
				p := hello()
				p.AppendParameter("K", "v")
				return p
			},
			wantClass: failure.Assertion,
			wantMsg:   "should not exist",
		},
		{
			name:      "unknown os is malformed even when value matches",
			body:      `<data os-release="plan9"><value>hello</value></data>`,
			wantClass: failure.Malformed,
		},
		{
			name: "guarded check for another os is skipped",
			body: `<data os-release="centos"><value>nope</value></data><dataLength os-release="rhel">1</dataLength>`,
		},
		{
			name:      "guarded check for this os runs",
			body:      `<dataLength os-release="ubuntu">4</dataLength>`,
			wantClass: failure.Assertion,
			wantMsg:   "data length is 5, expected 4",
		},
		{
			name: "non-numeric data length is skipped",
			body: `<dataLength>five</dataLength>`,
		},
		{
			name: "current form membership and position",
			body: `<currentForm>B</currentForm><currentForm index="0">A</currentForm><currentForm index="1">B</currentForm><currentFormSize>2</currentFormSize>`,
			payload: func() *payload.Payload {
				p := payload.New(nil, "x", "B")
				p.PushCurrentForm("A")
				return p
			},
		},
		{
			name: "current form wrong position",
			body: `<currentForm index="1">A</currentForm>`,
			payload: func() *payload.Payload {
				p := payload.New(nil, "x", "B")
				p.PushCurrentForm("A")
				return p
			},
			wantClass: failure.Assertion,
			wantMsg:   "position [1]",
		},
		{
			name: "scalars",
			body: `<fileType>T</fileType><classification>C</classification><shortName>foo.dat</shortName><fontEncoding>  </fontEncoding><broken>true</broken>`,
			payload: func() *payload.Payload {
				p := hello()
				p.SetFileType("T")
				p.SetClassification("C")
				p.SetBroken(true)
				return p
			},
		},
		{
			name:      "broken compared as literal",
			body:      `<broken>true</broken>`,
			wantClass: failure.Assertion,
			wantMsg:   "broken",
		},
		{
			name: "processing error newlines become semicolons",
			body: `<procError>one;two</procError>`,
			payload: func() *payload.Payload {
				p := hello()
				p.AddProcessingError("one")
				p.AddProcessingError("two")
				return p
			},
		},
		{
			name:      "declared processing error missing",
			body:      `<procError>boom</procError>`,
			wantClass: failure.Assertion,
		},
		{
			name: "views",
			body: `<view matchMode="contains"><name>V</name><length>5</length><value>ell</value></view><noview><name>W</name></noview>`,
			payload: func() *payload.Payload {
				p := hello()
				p.AddAlternateView("V", []byte("hello"))
				return p
			},
		},
		{
			name:      "missing view",
			body:      `<view><name>V</name></view>`,
			wantClass: failure.Assertion,
			wantMsg:   "is missing",
		},
		{
			name:      "unknown match mode",
			body:      `<data matchMode="fuzzy"><value>hello</value></data>`,
			wantClass: failure.Malformed,
		},
		{
			name: "extracted records recurse",
			body: `<extractCount>1</extractCount><extract1><data><value>wrong</value></data></extract1>`,
			payload: func() *payload.Payload {
				p := hello()
				p.AddExtractedRecord(payload.New([]byte("rec"), "rec", "R"))
				return p
			},
			wantClass: failure.Assertion,
			wantMsg:   "foo.dat::extract1",
		},
		{
			name: "extracted records without count",
			payload: func() *payload.Payload {
				p := hello()
				p.AddExtractedRecord(payload.New([]byte("rec"), "rec", "R"))
				return p
			},
			wantClass: failure.Assertion,
			wantMsg:   "extractCount",
		},
		{
			name:      "extract elements without records",
			body:      `<extract1/>`,
			wantClass: failure.Assertion,
		},
		{
			name:        "attachment checked with its own name",
			body:        `<numAttachments>1</numAttachments><att1><data><value>other</value></data></att1>`,
			attachments: 1,
			wantClass:   failure.Assertion,
			wantMsg:     "foo.dat-att-1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := hello()
			if tt.payload != nil {
				p = tt.payload()
			}
			c := checker.Checker{OS: osrelease.Static(osrelease.Ubuntu)}
			err := c.Check(parse(t, tt.body), p, children(tt.attachments), "foo.dat")
			if tt.wantClass == "" {
				if err != nil {
					t.Fatalf("unexpected failure: %v", err)
				}
				return
			}
			if !failure.Is(err, tt.wantClass) {
				t.Fatalf("expected %s failure, got %v", tt.wantClass, err)
			}
			if tt.wantMsg != "" && !strings.Contains(err.Error(), tt.wantMsg) {
				t.Fatalf("error %q does not contain %q", err, tt.wantMsg)
			}
		})
	}
}

func TestCheckHooksRunAroundAttachments(t *testing.T) {
	var calls []string
	hook := func(tag string) checker.AttachmentHook {
		return func(el *etree.Element, _, _ *payload.Payload, test string) error {
			calls = append(calls, tag+":"+el.Tag+":"+test)
			return nil
		}
	}
	c := checker.Checker{Hooks: checker.Hooks{BeforeAttachment: hook("before"), AfterAttachment: hook("after")}}
	doc := parse(t, `<numAttachments>2</numAttachments><att2/>`)
	if err := c.Check(doc, hello(), children(2), "t"); err != nil {
		t.Fatalf("Check: %v", err)
	}
	want := []string{"before:att2:t-att-2", "after:att2:t-att-2"}
	if strings.Join(calls, ",") != strings.Join(want, ",") {
		t.Fatalf("calls = %v", calls)
	}
}

func TestCheckMasksUnderSHA256(t *testing.T) {
	raw := []byte{0x00, 0x01}
	doc := parse(t, `<data><value>`+codec.Digest(raw)+`</value></data><dataLength>64</dataLength>`)
	c := checker.Checker{Policy: codec.SHA256}
	if err := c.Check(doc, payload.New(raw, "a", "F"), nil, "t"); err != nil {
		t.Fatalf("Check: %v", err)
	}

	c.Policy = codec.Default
	if err := c.Check(doc, payload.New(raw, "a", "F"), nil, "t"); !failure.Is(err, failure.Assertion) {
		t.Fatalf("expected mismatch without masking, got %v", err)
	}
}

func TestCheckLogEvents(t *testing.T) {
	doc := parse(t, `<logEvents>
  <logEvent><level>INFO</level><message>started</message></logEvent>
  <logEvent><level>WARN</level><message>odd</message></logEvent>
</logEvents>`)
	var c checker.Checker
	events := []logging.Event{{Level: "INFO", Message: "started"}, {Level: "WARN", Message: "odd"}}
	if err := c.CheckLogEvents(doc, events, "t"); err != nil {
		t.Fatalf("CheckLogEvents: %v", err)
	}
	if err := c.CheckLogEvents(doc, events[:1], "t"); !failure.Is(err, failure.Assertion) {
		t.Fatalf("expected assertion failure, got %v", err)
	}
	if err := c.CheckLogEvents(parse(t, ""), nil, "t"); err != nil {
		t.Fatalf("no section and no events should pass: %v", err)
	}
}

func TestCheckStrictReportsExtraState(t *testing.T) {
	p := hello()
	p.AppendParameter("K", "v")
	doc := answers.New()
	doc.Root().AddChild(codec.EncodeAnswers(p, nil, nil, codec.Default))

	var c checker.Checker
	if err := c.CheckStrict(doc, p.Clone(), nil, "t"); err != nil {
		t.Fatalf("CheckStrict: %v", err)
	}

	extra := p.Clone()
	extra.AppendParameter("NEW", "x")
	err := c.CheckStrict(doc, extra, nil, "t")
	if !failure.Is(err, failure.Assertion) || !strings.Contains(err.Error(), "NEW") {
		t.Fatalf("expected diff naming NEW, got %v", err)
	}
	if err := c.Check(doc, extra.Clone(), nil, "t"); err != nil {
		t.Fatalf("declarative check ignores undeclared state: %v", err)
	}
}
