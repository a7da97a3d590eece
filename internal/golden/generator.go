package golden

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/beevik/etree"
	"github.com/gofrs/flock"

	"goldcheck/internal/answers"
	"goldcheck/internal/codec"
	"goldcheck/internal/failure"
	"goldcheck/internal/fileutil"
	"goldcheck/internal/kff"
	"goldcheck/internal/logging"
	"goldcheck/internal/payload"
	"goldcheck/internal/setup"
)

// LockName is the lock file taken in a fixture directory while answer
// documents in it are written.
const LockName = ".goldcheck.lock"

const (
	lockRetryDelay     = 50 * time.Millisecond
	defaultLockTimeout = 30 * time.Second
	answerFileMode     = 0o644
)

// Hooks customise generation. Every field is optional.
type Hooks struct {
	// InitialPayload builds the payload handed to setup and the processor.
	// The default names the payload after the resource and pushes the form
	// derived from the file name.
	InitialPayload func(ctx context.Context, resource string, data []byte) (*payload.Payload, error)
	// TweakInitial adjusts the initial payload before its setup is encoded.
	// The default clears the data so it is always re-read from the resource.
	TweakInitial func(resource string, p *payload.Payload)
	// TweakFinal adjusts the processed payload before it is encoded. The
	// default requires the current form to equal the final form named by an
	// @SUFFIX in the file name, when there is one. A mismatch fails
	// generation instead of being written into the answer document, so a
	// golden file never records a form the processor did not produce.
	// Hooks that prefer to stamp the suffix form can call ReplaceCurrentForm.
	TweakFinal func(resource string, p *payload.Payload) error
	// TweakChildren adjusts the attachments before they are encoded.
	TweakChildren func(resource string, children []*payload.Payload) []*payload.Payload
	// TweakLogEvents adjusts the captured events before they are encoded.
	TweakLogEvents func(resource string, events []logging.Event) []logging.Event
}

// Generator writes answer documents.
type Generator struct {
	Processor  payload.Processor
	Policy     codec.Policy
	LoggerName string
	KFF        *kff.Handler
	Hooks      Hooks
	// Backup copies an existing answer document to <answer>.bak before it is
	// replaced.
	Backup      bool
	LockTimeout time.Duration
	Logger      *slog.Logger
}

// Generate runs the processor over resource and writes the paired answer
// document, returning its path. Every failure is of class Generation.
func (g *Generator) Generate(ctx context.Context, resource string) (string, error) {
	logger := g.logger().With(logging.String(logging.FieldResource, resource))
	answerPath := AnswerPath(resource)

	data, err := os.ReadFile(resource)
	if err != nil {
		return "", failure.Wrap(failure.Generation, resource, "read resource", err)
	}

	existing, err := answers.Load(answerPath)
	if err != nil && !errors.Is(err, answers.ErrNotFound) {
		return "", failure.Wrap(failure.Generation, resource, "load existing answer document", err)
	}
	var section *etree.Element
	if existing != nil {
		section = existing.Setup()
	}

	initial, err := g.initialPayload(ctx, resource, data)
	if err != nil {
		return "", failure.Wrap(failure.Generation, resource, "build initial payload", err)
	}
	builder := setup.Builder{KFF: g.KFF}
	if err := builder.Apply(ctx, initial, section, resource); err != nil {
		return "", failure.Wrap(failure.Generation, resource, "apply setup", err)
	}

	final := initial.Clone()
	children, events, err := Invoke(ctx, g.Processor, final, g.LoggerName)
	if err != nil {
		return "", failure.Wrap(failure.Generation, resource, "run processor", err)
	}

	g.tweakInitial(resource, initial)
	if err := g.tweakFinal(resource, final); err != nil {
		return "", failure.Wrap(failure.Generation, resource, "final payload", err)
	}
	if g.Hooks.TweakChildren != nil {
		children = g.Hooks.TweakChildren(resource, children)
	}
	if events != nil && g.Hooks.TweakLogEvents != nil {
		events = g.Hooks.TweakLogEvents(resource, events)
	}

	doc := answers.New()
	if section != nil {
		doc.Root().AddChild(section.Copy())
	} else {
		doc.Root().AddChild(codec.EncodeSetup(initial))
	}
	doc.Root().AddChild(codec.EncodeAnswers(final, children, events, g.Policy))
	content, err := doc.Bytes()
	if err != nil {
		return "", failure.Wrap(failure.Generation, resource, "serialize answer document", err)
	}

	if err := g.write(ctx, answerPath, content, existing != nil); err != nil {
		return "", failure.Wrap(failure.Generation, resource, "write answer document", err)
	}
	logger.Info("answer document written",
		logging.String(logging.FieldEventType, "answers_generated"),
		logging.String("path", answerPath),
		logging.Int("attachments", len(children)),
		logging.Bool("setup_carried_over", section != nil),
	)
	return answerPath, nil
}

func (g *Generator) initialPayload(ctx context.Context, resource string, data []byte) (*payload.Payload, error) {
	if g.Hooks.InitialPayload != nil {
		p, err := g.Hooks.InitialPayload(ctx, resource, data)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, errors.New("initial payload hook returned nil")
		}
		return p, nil
	}
	initial, _ := Forms(resource)
	return payload.New(data, resource, initial), nil
}

func (g *Generator) tweakInitial(resource string, p *payload.Payload) {
	if g.Hooks.TweakInitial != nil {
		g.Hooks.TweakInitial(resource, p)
		return
	}
	p.ClearData()
}

func (g *Generator) tweakFinal(resource string, p *payload.Payload) error {
	if g.Hooks.TweakFinal != nil {
		return g.Hooks.TweakFinal(resource, p)
	}
	_, form := Forms(resource)
	if form == "" || p.CurrentForm() == form {
		return nil
	}
	return fmt.Errorf("current form is %q but the resource name expects %q", p.CurrentForm(), form)
}

// write replaces path with content while holding the directory lock.
func (g *Generator) write(ctx context.Context, path string, content []byte, exists bool) error {
	timeout := g.LockTimeout
	if timeout <= 0 {
		timeout = defaultLockTimeout
	}
	lockCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	lock := flock.New(filepath.Join(filepath.Dir(path), LockName))
	locked, err := lock.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("acquire lock: %s is held by another process", lock.Path())
	}
	defer func() {
		_ = lock.Unlock()
	}()

	if g.Backup && exists {
		if err := fileutil.CopyFile(path, path+".bak", answerFileMode); err != nil {
			return fmt.Errorf("backup answer document: %w", err)
		}
	}
	return fileutil.WriteFileAtomic(path, content, answerFileMode)
}

func (g *Generator) logger() *slog.Logger {
	return logging.NewComponentLogger(g.Logger, "golden")
}
