package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"goldcheck/internal/codec"
	"goldcheck/internal/config"
	"goldcheck/internal/kff"
	"goldcheck/internal/osrelease"
	"goldcheck/internal/processors"
	"goldcheck/internal/regression"
)

type runOptions struct {
	fixtures   string
	policy     string
	processor  string
	loggerName string
	osRelease  string
	strict     bool
	generate   bool
	backup     bool
}

func (o *runOptions) bind(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&o.fixtures, "fixtures", "f", "", "Fixture directory (overrides paths.fixtures_dir)")
	flags.StringVar(&o.policy, "policy", "", "Encoding policy for non-printable buffers: default or sha256")
	flags.StringVarP(&o.processor, "processor", "p", "", "Processor under test (see `goldcheck processors`)")
	flags.StringVar(&o.loggerName, "logger", "", "Named logger to capture; empty disables log event checks")
	flags.StringVar(&o.osRelease, "os-release", osrelease.DefaultPath, "os-release file used for os-release guards")
	flags.BoolVar(&o.strict, "strict", false, "Require the answers section to describe the whole payload tree")
	_ = flags.MarkHidden("os-release")
}

func newVerifyCommand(ctx *commandContext) *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "verify [resource...]",
		Short: "Verify fixtures against their answer documents",
		Long: "Verify runs the configured processor over every *.dat resource in the fixture\n" +
			"directory (or the named resources) and checks the outcome against the paired\n" +
			"*.xml answer document. Set " + config.GenerateEnv + "=true to regenerate answers first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegression(cmd, ctx, opts, args)
		},
	}
	opts.bind(cmd)
	return cmd
}

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "generate [resource...]",
		Short: "Regenerate answer documents from current behaviour",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.generate = true
			return runRegression(cmd, ctx, opts, args)
		},
	}
	opts.bind(cmd)
	cmd.Flags().BoolVar(&opts.backup, "backup", false, "Keep the previous answer document as <answer>.xml.bak")
	return cmd
}

func runRegression(cmd *cobra.Command, ctx *commandContext, opts runOptions, args []string) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}

	fixtures := cfg.Paths.FixturesDir
	if strings.TrimSpace(opts.fixtures) != "" {
		if fixtures, err = config.ExpandPath(opts.fixtures); err != nil {
			return fmt.Errorf("resolve fixture directory: %w", err)
		}
	}
	policy, err := codec.ParsePolicy(firstNonEmpty(opts.policy, cfg.Run.Policy))
	if err != nil {
		return err
	}
	loggerName := cfg.Run.LoggerName
	if cmd.Flags().Changed("logger") {
		loggerName = strings.TrimSpace(opts.loggerName)
	}
	proc, err := processors.New(firstNonEmpty(opts.processor, cfg.Run.Processor), loggerName)
	if err != nil {
		return err
	}
	release, err := osrelease.Load(opts.osRelease)
	if err != nil {
		return fmt.Errorf("read os-release: %w", err)
	}

	return ctx.withKFF(func(store *kff.Store) error {
		runner := regression.Runner{
			Processor:  proc,
			FixtureDir: fixtures,
			Policy:     policy,
			LoggerName: loggerName,
			Generate:   opts.generate || cfg.Run.Generate,
			Strict:     opts.strict || cfg.Run.Strict,
			Backup:     opts.backup,
			OS:         release,
			Logger:     logger,
		}
		if store != nil {
			runner.KFF = &kff.Handler{Known: store, Logger: logger}
		}

		var summary regression.Summary
		if len(args) > 0 {
			summary, err = runner.RunResources(cmd.Context(), args)
		} else {
			summary, err = runner.RunAll(cmd.Context())
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprint(out, renderSummary(summary, shouldColorize(out)))
		if failed := summary.Failed(); failed > 0 {
			return fmt.Errorf("%d of %d tests failed", failed, len(summary.Results))
		}
		return nil
	})
}

func renderSummary(summary regression.Summary, colorize bool) string {
	var b strings.Builder
	if len(summary.Results) > 0 {
		rows := make([][]string, 0, len(summary.Results))
		for _, r := range summary.Results {
			rows = append(rows, []string{
				r.Test,
				outcomeOf(r).label(),
				string(r.Class()),
				strconv.Itoa(r.Attachments),
				strconv.Itoa(r.Events),
				r.Duration.Round(time.Microsecond).String(),
			})
		}
		b.WriteString(renderTable(
			[]string{"Test", "Result", "Class", "Attachments", "Events", "Duration"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight},
		))
		b.WriteString("\n")
		for _, line := range failureSection(summary.Results, colorize) {
			b.WriteString(line + "\n")
		}
	}
	b.WriteString(summaryLine(summary, colorize) + "\n")
	return b.String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
