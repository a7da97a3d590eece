package golden_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/go-cmp/cmp"

	"goldcheck/internal/answers"
	"goldcheck/internal/checker"
	"goldcheck/internal/codec"
	"goldcheck/internal/failure"
	"goldcheck/internal/golden"
	"goldcheck/internal/logging"
	"goldcheck/internal/payload"
	"goldcheck/internal/setup"
)

// upper upper-cases the data, pushes a form, copies ORIGIN metadata into SAW
// and derives one attachment.
func upper(loggerName string) payload.Processor {
	return payload.ProcessorFunc(func(_ context.Context, p *payload.Payload) ([]*payload.Payload, error) {
		logging.Named(loggerName).Warn("processing " + p.ShortName())
		p.SetData([]byte(strings.ToUpper(string(p.Data()))))
		p.PushCurrentForm("UPPER")
		if v, ok := p.StringParameter("ORIGIN"); ok {
			p.AppendParameter("SAW", v)
		}
		child := payload.New([]byte("child"), payload.ChildName(p.Name(), 1), "CHILD")
		return []*payload.Payload{child}, nil
	})
}

func writeResource(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write resource: %v", err)
	}
	return path
}

func decodeFinal(t *testing.T, path string) (*answers.Document, *payload.Payload, []*payload.Payload, []logging.Event) {
	t.Helper()
	doc, err := answers.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	final, atts, events, err := codec.DecodeAnswers(doc.Answers())
	if err != nil {
		t.Fatalf("DecodeAnswers: %v", err)
	}
	return doc, final, atts, events
}

func TestGenerateThenVerify(t *testing.T) {
	const name = "golden-generate-verify"
	ctx := context.Background()
	dir := t.TempDir()
	resource := writeResource(t, dir, "TEXT.dat", []byte("hello"))

	g := golden.Generator{Processor: upper(name), LoggerName: name}
	path, err := g.Generate(ctx, resource)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if path != filepath.Join(dir, "TEXT.xml") {
		t.Fatalf("answer path = %q", path)
	}

	doc, err := answers.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if form, _ := answers.ChildTextTrim(doc.Setup(), answers.InitialFormTag); form != "TEXT" {
		t.Fatalf("setup initialForm = %q, want TEXT", form)
	}
	if ft, _ := answers.ChildTextTrim(doc.Setup(), answers.FileTypeTag); ft != "TEXT" {
		t.Fatalf("setup fileType = %q, want TEXT", ft)
	}

	p := payload.New([]byte("hello"), resource, "TEXT")
	var b setup.Builder
	if err := b.Apply(ctx, p, doc.Setup(), "TEXT"); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	children, events, err := golden.Invoke(ctx, upper(name), p, name)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}

	var c checker.Checker
	if err := c.Check(doc, p.Clone(), children, "TEXT"); err != nil {
		t.Fatalf("Check: %v", err)
	}
	if err := c.CheckStrict(doc, p.Clone(), children, "TEXT"); err != nil {
		t.Fatalf("CheckStrict: %v", err)
	}
	if err := c.CheckLogEvents(doc, events, "TEXT"); err != nil {
		t.Fatalf("CheckLogEvents: %v", err)
	}

	// A lock file is left in the fixture directory but no temp files are.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	if diff := cmp.Diff([]string{golden.LockName, "TEXT.dat", "TEXT.xml"}, names); diff != "" {
		t.Fatalf("directory listing mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerateCarriesOverSetup(t *testing.T) {
	const name = "golden-carry-setup"
	dir := t.TempDir()
	resource := writeResource(t, dir, "TEXT.dat", []byte("abc"))
	existing := `<result><setup><initialForm>CUSTOM</initialForm><meta><name>ORIGIN</name><value>fixture</value></meta></setup><answers/></result>`
	if err := os.WriteFile(golden.AnswerPath(resource), []byte(existing), 0o644); err != nil {
		t.Fatal(err)
	}

	g := golden.Generator{Processor: upper(name), LoggerName: name, Backup: true}
	path, err := g.Generate(context.Background(), resource)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	doc, final, atts, events := decodeFinal(t, path)
	if form, _ := answers.ChildTextTrim(doc.Setup(), answers.InitialFormTag); form != "CUSTOM" {
		t.Fatalf("setup not carried over: initialForm = %q", form)
	}
	if v, _ := final.StringParameter("SAW"); v != "fixture" {
		t.Fatalf("processor did not see setup meta, SAW = %q", v)
	}
	if diff := cmp.Diff([]string{"UPPER", "CUSTOM"}, final.AllCurrentForms()); diff != "" {
		t.Fatalf("forms mismatch (-want +got):\n%s", diff)
	}
	if len(atts) != 1 || len(events) != 1 {
		t.Fatalf("attachments=%d events=%d", len(atts), len(events))
	}

	backup, err := os.ReadFile(path + ".bak")
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	if string(backup) != existing {
		t.Fatalf("backup = %q", backup)
	}
}

func TestGenerateFinalFormFromName(t *testing.T) {
	dir := t.TempDir()
	resource := writeResource(t, dir, "TEXT@UPPER.dat", []byte("abc"))
	mismatch := writeResource(t, dir, "TEXT@DONE.dat", []byte("abc"))

	g := golden.Generator{Processor: upper("golden-final-form")}
	if _, err := g.Generate(context.Background(), mismatch); !failure.Is(err, failure.Generation) {
		t.Fatalf("expected generation failure for unexpected final form, got %v", err)
	}
	if _, err := os.Stat(golden.AnswerPath(mismatch)); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("answer document written for mismatched form: %v", err)
	}

	path, err := g.Generate(context.Background(), resource)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	doc, final, _, events := decodeFinal(t, path)
	if diff := cmp.Diff([]string{"UPPER", "TEXT"}, final.AllCurrentForms()); diff != "" {
		t.Fatalf("forms mismatch (-want +got):\n%s", diff)
	}
	if events != nil {
		t.Fatalf("events decoded without a capture: %v", events)
	}
	if doc.Answers().SelectElement(answers.LogEventsTag) != nil {
		t.Fatal("logEvents written without a capture")
	}
}

func TestGenerateHooks(t *testing.T) {
	const name = "golden-hooks"
	dir := t.TempDir()
	resource := writeResource(t, dir, "TEXT.dat", []byte("abc"))

	g := golden.Generator{
		Processor:  upper(name),
		LoggerName: name,
		Hooks: golden.Hooks{
			InitialPayload: func(_ context.Context, resource string, data []byte) (*payload.Payload, error) {
				p := payload.New(data, resource, "HOOKED")
				p.AppendParameter("ORIGIN", "hook")
				return p, nil
			},
			TweakInitial: func(_ string, p *payload.Payload) {
				p.SetClassification("INITIAL")
			},
			TweakFinal: func(_ string, p *payload.Payload) error {
				p.SetClassification("FINAL")
				return nil
			},
			TweakChildren: func(_ string, children []*payload.Payload) []*payload.Payload {
				return nil
			},
			TweakLogEvents: func(_ string, events []logging.Event) []logging.Event {
				return append(events, logging.Event{Level: "INFO", Message: "added"})
			},
		},
	}
	path, err := g.Generate(context.Background(), resource)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	doc, final, atts, events := decodeFinal(t, path)
	if c, _ := answers.ChildTextTrim(doc.Setup(), answers.ClassificationTag); c != "INITIAL" {
		t.Fatalf("setup classification = %q", c)
	}
	if form, _ := answers.ChildTextTrim(doc.Setup(), answers.InitialFormTag); form != "HOOKED" {
		t.Fatalf("setup initialForm = %q", form)
	}
	if final.Classification() != "FINAL" {
		t.Fatalf("final classification = %q", final.Classification())
	}
	if v, _ := final.StringParameter("SAW"); v != "hook" {
		t.Fatalf("SAW = %q", v)
	}
	if len(atts) != 0 {
		t.Fatalf("attachments = %d, want 0", len(atts))
	}
	want := []logging.Event{
		{Level: "WARN", Message: "processing TEXT.dat"},
		{Level: "INFO", Message: "added"},
	}
	if diff := cmp.Diff(want, events); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerateSHA256MasksBinaryData(t *testing.T) {
	dir := t.TempDir()
	data := []byte{0x00, 0x01, 0x02}
	resource := writeResource(t, dir, "BIN.dat", data)

	identity := payload.ProcessorFunc(func(context.Context, *payload.Payload) ([]*payload.Payload, error) {
		return nil, nil
	})
	g := golden.Generator{Processor: identity, Policy: codec.SHA256}
	path, err := g.Generate(context.Background(), resource)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	doc, final, _, _ := decodeFinal(t, path)
	if string(final.Data()) != codec.Digest(data) {
		t.Fatalf("data = %q, want digest", final.Data())
	}

	p := payload.New(data, resource, "BIN")
	if err := (&setup.Builder{}).Apply(context.Background(), p, doc.Setup(), "BIN"); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	c := checker.Checker{Policy: codec.SHA256}
	if err := c.Check(doc, p, nil, "BIN"); err != nil {
		t.Fatalf("Check: %v", err)
	}
}

func TestGenerateFailures(t *testing.T) {
	dir := t.TempDir()
	resource := writeResource(t, dir, "TEXT.dat", []byte("abc"))

	tests := []struct {
		name     string
		resource string
		proc     payload.Processor
	}{
		{
			name:     "missing resource",
			resource: filepath.Join(dir, "MISSING.dat"),
			proc:     upper("golden-failures"),
		},
		{
			name:     "processor error",
			resource: resource,
			proc: payload.ProcessorFunc(func(context.Context, *payload.Payload) ([]*payload.Payload, error) {
				return nil, errors.New("cannot parse")
			}),
		},
		{
			name:     "processor panic",
			resource: resource,
			proc: payload.ProcessorFunc(func(context.Context, *payload.Payload) ([]*payload.Payload, error) {
				panic("boom")
			}),
		},
		{
			name:     "no processor",
			resource: resource,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := golden.Generator{Processor: tt.proc}
			_, err := g.Generate(context.Background(), tt.resource)
			if !failure.Is(err, failure.Generation) {
				t.Fatalf("expected generation failure, got %v", err)
			}
			if _, statErr := os.Stat(golden.AnswerPath(tt.resource)); !errors.Is(statErr, os.ErrNotExist) {
				t.Fatalf("answer document written despite failure: %v", statErr)
			}
		})
	}
}

func TestGenerateMalformedExistingDocument(t *testing.T) {
	dir := t.TempDir()
	resource := writeResource(t, dir, "TEXT.dat", []byte("abc"))
	if err := os.WriteFile(golden.AnswerPath(resource), []byte("not an answer document"), 0o644); err != nil {
		t.Fatal(err)
	}
	g := golden.Generator{Processor: upper("golden-malformed")}
	if _, err := g.Generate(context.Background(), resource); !failure.Is(err, failure.Generation) {
		t.Fatalf("expected generation failure, got %v", err)
	}
}

func TestGenerateWaitsForLock(t *testing.T) {
	dir := t.TempDir()
	resource := writeResource(t, dir, "TEXT.dat", []byte("abc"))

	held := flock.New(filepath.Join(dir, golden.LockName))
	locked, err := held.TryLock()
	if err != nil || !locked {
		t.Fatalf("TryLock: locked=%v err=%v", locked, err)
	}
	defer held.Unlock()

	g := golden.Generator{Processor: upper("golden-lock"), LockTimeout: 100 * time.Millisecond}
	if _, err := g.Generate(context.Background(), resource); !failure.Is(err, failure.Generation) {
		t.Fatalf("expected generation failure while locked, got %v", err)
	}
}
