package regression

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"goldcheck/internal/answers"
	"goldcheck/internal/checker"
	"goldcheck/internal/codec"
	"goldcheck/internal/failure"
	"goldcheck/internal/golden"
	"goldcheck/internal/kff"
	"goldcheck/internal/logging"
	"goldcheck/internal/osrelease"
	"goldcheck/internal/payload"
	"goldcheck/internal/setup"
)

// Processor is the component under test.
type Processor = payload.Processor

// Hooks customise a run. Every field is optional.
type Hooks struct {
	// BeforeCheck runs after processing and before any answer check. It may
	// normalise nondeterministic state.
	BeforeCheck func(test string, p *payload.Payload, attachments []*payload.Payload) error
	// Checker hooks run around each attachment check.
	Checker checker.Hooks
	// Generation hooks are used when answer documents are regenerated.
	Generation golden.Hooks
}

// Runner verifies (and optionally regenerates) fixtures.
type Runner struct {
	Processor  Processor
	FixtureDir string
	Policy     codec.Policy
	// LoggerName enables log event capture for the named logger.
	LoggerName string
	Generate   bool
	Strict     bool
	Backup     bool
	KFF        *kff.Handler
	OS         osrelease.Detector
	Hooks      Hooks
	Logger     *slog.Logger
}

// Discover lists every *.dat resource under dir, sorted.
func Discover(dir string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) == golden.ResourceExt {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover fixtures in %s: %w", dir, err)
	}
	sort.Strings(out)
	return out, nil
}

// RunAll runs every resource discovered in the fixture directory.
func (r *Runner) RunAll(ctx context.Context) (Summary, error) {
	resources, err := Discover(r.FixtureDir)
	if err != nil {
		return Summary{}, err
	}
	return r.RunResources(ctx, resources)
}

// RunResources runs resources sequentially under one run ID. It stops early
// when ctx is cancelled and returns the results gathered so far together
// with the context error.
func (r *Runner) RunResources(ctx context.Context, resources []string) (Summary, error) {
	summary := Summary{RunID: uuid.NewString()}
	logger := r.logger().With(logging.String(logging.FieldRunID, summary.RunID))
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "run_started"),
		logging.String("fixtures_dir", r.FixtureDir),
		logging.Int("resources", len(resources)),
		logging.String(logging.FieldPolicy, string(r.Policy)),
		logging.Bool("generate", r.Generate),
	}
	if rel, ok := r.OS.(osrelease.Release); ok {
		attrs = append(attrs,
			logging.String("os_id", rel.ID),
			logging.String("os_version", rel.VersionID),
			logging.Any("os_like", rel.IDLike),
			logging.String("kernel", rel.Kernel),
		)
	}
	logger.Info("regression run started", logging.Args(attrs...)...)

	for _, resource := range resources {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Results = append(summary.Results, r.run(ctx, summary.RunID, resource))
	}

	logger.Info("regression run finished",
		logging.String(logging.FieldEventType, "run_finished"),
		logging.Int("passed", summary.Passed()),
		logging.Int("failed", summary.Failed()),
	)
	return summary, nil
}

// Run runs one resource under a fresh run ID.
func (r *Runner) Run(ctx context.Context, resource string) Result {
	return r.run(ctx, uuid.NewString(), resource)
}

func (r *Runner) run(ctx context.Context, runID, resource string) Result {
	start := time.Now()
	res := Result{
		RunID:    runID,
		Test:     golden.TestName(r.FixtureDir, resource),
		Resource: resource,
	}
	fields := logging.Args(
		logging.String(logging.FieldRunID, runID),
		logging.String(logging.FieldTest, res.Test),
	)
	logger := r.logger().With(fields...)

	if r.Generate {
		g := golden.Generator{
			Processor:  r.Processor,
			Policy:     r.Policy,
			LoggerName: r.LoggerName,
			KFF:        r.KFF,
			Hooks:      r.Hooks.Generation,
			Backup:     r.Backup,
			Logger:     r.baseLogger().With(fields...),
		}
		if _, err := g.Generate(ctx, resource); err != nil {
			res.Err = err
		} else {
			res.Generated = true
		}
	}
	if res.Err == nil {
		res.Err = r.verify(ctx, logger, resource, &res)
	}
	res.Duration = time.Since(start)

	if res.Err != nil {
		logger.Warn("test failed",
			logging.String(logging.FieldEventType, "test_failed"),
			logging.String("class", string(res.Class())),
			logging.Error(res.Err),
			logging.String(logging.FieldErrorHint, hint(res.Class())),
		)
	} else {
		logger.Info("test passed",
			logging.String(logging.FieldEventType, "test_passed"),
			logging.Duration("duration", res.Duration),
		)
	}
	return res
}

func (r *Runner) verify(ctx context.Context, logger *slog.Logger, resource string, res *Result) error {
	test := res.Test
	doc, err := answers.Load(golden.AnswerPath(resource))
	if err != nil {
		if errors.Is(err, answers.ErrNotFound) {
			return failure.Wrap(failure.Fixture, test, "missing answer document", err)
		}
		return failure.Wrap(failure.Fixture, test, "unreadable answer document", err)
	}
	data, err := os.ReadFile(resource)
	if err != nil {
		return failure.Wrap(failure.Fixture, test, "unreadable resource", err)
	}

	initialForm, _ := golden.Forms(resource)
	p := payload.New(data, resource, initialForm)
	logger.Debug("applying setup", logging.String("setup", setup.Describe(doc.Setup())))
	builder := setup.Builder{KFF: r.KFF}
	if err := builder.Apply(ctx, p, doc.Setup(), test); err != nil {
		return err
	}

	children, events, err := golden.Invoke(ctx, r.Processor, p, r.LoggerName)
	if err != nil {
		return failure.Wrap(failure.Processor, test, "process "+resource, err)
	}
	res.Attachments = len(children)
	res.Events = len(events)

	if h := r.Hooks.BeforeCheck; h != nil {
		if err := h(test, p, children); err != nil {
			return err
		}
	}

	c := checker.Checker{OS: r.OS, Policy: r.Policy, Hooks: r.Hooks.Checker}
	if err := c.Check(doc, p, children, test); err != nil {
		return err
	}
	if events != nil {
		if err := c.CheckLogEvents(doc, events, test); err != nil {
			return err
		}
	}
	if r.Strict {
		if err := c.CheckStrict(doc, p, children, test); err != nil {
			return err
		}
	}
	return nil
}

func hint(class failure.Class) string {
	switch class {
	case failure.Fixture:
		return "generate the answer document or restore the resource"
	case failure.Assertion:
		return "behaviour changed; regenerate answers if the change is intended"
	case failure.Malformed:
		return "fix the answer document"
	case failure.Processor:
		return "the processor returned an error or panicked"
	case failure.Generation:
		return "answer generation failed; see the cause"
	}
	return ""
}

func (r *Runner) logger() *slog.Logger {
	return logging.NewComponentLogger(r.Logger, "regression")
}

func (r *Runner) baseLogger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return logging.NewNop()
}
