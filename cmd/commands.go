package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/MimeLyc/notebook-translator/internal/config"
	"github.com/MimeLyc/notebook-translator/internal/notebook"
	"github.com/MimeLyc/notebook-translator/internal/segment"
	"github.com/MimeLyc/notebook-translator/internal/service"
	"github.com/MimeLyc/notebook-translator/internal/translator"
	"github.com/MimeLyc/notebook-translator/pkg/log"
)

// engineFlags are the translation flags shared by translate and watch.
type engineFlags struct {
	language     string
	batchSize    int
	concurrency  int
	codeComments bool
	noNaturalize bool
	memory       string
	glossary     string
}

func (f *engineFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.language, "language", "l", "", "Target language code (default: TARGET_LANGUAGE or ko)")
	cmd.Flags().IntVarP(&f.batchSize, "batch-size", "b", 0, "Maximum texts per request")
	cmd.Flags().IntVar(&f.concurrency, "concurrency", 0, "Requests in flight at once")
	cmd.Flags().BoolVar(&f.codeComments, "code-comments", false, "Also translate comments in code cells")
	cmd.Flags().BoolVar(&f.noNaturalize, "no-naturalize", false, "Skip the naturalization pass")
	cmd.Flags().StringVar(&f.memory, "memory", "", "Translation memory database file")
	cmd.Flags().StringVar(&f.glossary, "glossary", "", "Glossary JSON or YAML file")
}

// options turns the flags the user set into config options.
func (f *engineFlags) options(cmd *cobra.Command) []config.Option {
	var opts []config.Option
	changed := cmd.Flags().Changed
	if changed("language") {
		opts = append(opts, func(c *config.Config) { c.Translate.TargetLanguage = f.language })
	}
	if changed("batch-size") {
		opts = append(opts, func(c *config.Config) { c.Translate.BatchSize = f.batchSize })
	}
	if changed("concurrency") {
		opts = append(opts, func(c *config.Config) { c.Translate.Concurrency = f.concurrency })
	}
	if changed("code-comments") {
		opts = append(opts, func(c *config.Config) { c.Translate.TranslateCodeComments = f.codeComments })
	}
	if changed("no-naturalize") {
		opts = append(opts, func(c *config.Config) { c.Translate.Naturalize = !f.noNaturalize })
	}
	if changed("memory") {
		opts = append(opts, func(c *config.Config) { c.Translate.MemoryDB = f.memory })
	}
	if changed("glossary") {
		opts = append(opts, func(c *config.Config) { c.Translate.GlossaryFile = f.glossary })
	}
	return opts
}

// prepare loads configuration, logging and the engine for a command.
func prepare(ctx context.Context, cmd *cobra.Command, flags *engineFlags, inputs []string, extra ...config.Option) (*service.Engine, *config.Config, func(), error) {
	cfg, err := loadConfig(append(flags.options(cmd), extra...)...)
	if err != nil {
		return nil, nil, nil, err
	}
	closeLog, err := setupLogging(cfg.System)
	if err != nil {
		return nil, nil, nil, err
	}
	engine, closeEngine, err := buildEngine(ctx, cfg, inputs)
	if err != nil {
		closeLog()
		return nil, nil, nil, err
	}
	return engine, cfg, func() {
		closeEngine()
		closeLog()
	}, nil
}

func newTranslateCmd() *cobra.Command {
	var (
		flags   engineFlags
		output  string
		preview bool
	)

	cmd := &cobra.Command{
		Use:   "translate <notebook.ipynb>",
		Short: "Translate a notebook",
		Long: `Translate the markdown cells of a notebook and write <name>_translated_<lang>.ipynb
next to it. Content that could not be translated keeps its original text and is
listed as a warning. Press Ctrl+C to stop; completed translations are still written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			engine, _, cleanup, err := prepare(ctx, cmd, &flags, args)
			if err != nil {
				return err
			}
			defer cleanup()

			input := args[0]
			out := output
			if out == "" {
				out = engine.OutputPath(input)
			}
			res, err := engine.TranslateFile(ctx, input, out)
			if res != nil {
				printReport(cmd.OutOrStdout(), &res.Report, preview)
				fmt.Fprintf(cmd.OutOrStdout(), "output: %s\n", out)
			}
			return err
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: <name>_translated_<lang>.ipynb)")
	cmd.Flags().BoolVar(&preview, "preview", false, "Print a preview of the first translated texts")
	return cmd
}

func printReport(w io.Writer, r *service.Report, preview bool) {
	fmt.Fprint(w, r.Summary())
	if preview && len(r.Preview) > 0 {
		fmt.Fprintln(w, "preview:")
		for _, p := range r.Preview {
			fmt.Fprintf(w, "  [%s]\n    - %s\n    + %s\n", p.Origin, p.Original, p.Translated)
		}
	}
	if r.PartialSuccess() {
		fmt.Fprintf(w, "partial success: %d texts kept their original text\n", len(r.Failures))
	}
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <notebook.ipynb>",
		Short: "Show the structure of a notebook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := notebook.Load(args[0])
			if err != nil {
				return err
			}
			info := notebook.Describe(doc)

			plan, err := segment.Extract(doc, segment.Options{
				TranslateCodeComments:     true,
				TranslateEmbeddedComments: true,
				CodeLanguage:              info.Language,
				Rules:                     segment.SkipRules{MinLength: 2},
			})
			if err != nil {
				return err
			}
			var prose, commented int
			for _, fp := range plan.Fragments {
				if fp.ProseSpan >= 0 {
					prose++
				}
				if fp.Kind == notebook.Executable && len(fp.CommentSpans) > 0 {
					commented++
				}
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "file: %s\n", args[0])
			fmt.Fprintf(w, "nbformat: %s\n", info.Format)
			if info.Kernel != "" {
				fmt.Fprintf(w, "kernel: %s\n", info.Kernel)
			}
			if info.Language != "" {
				fmt.Fprintf(w, "language: %s\n", info.Language)
			}
			fmt.Fprintf(w, "cells: %d (markdown %d, code %d, raw %d)\n",
				info.Cells, info.MarkdownCells, info.CodeCells, info.RawCells)
			fmt.Fprintf(w, "translatable markdown cells: %d\n", prose)
			fmt.Fprintf(w, "code cells with comments: %d\n", commented)
			fmt.Fprintf(w, "texts: %d\n", len(plan.Spans))
			return nil
		},
	}
}

func newLanguagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List supported target languages",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			w := cmd.OutOrStdout()
			for _, code := range translator.SupportedLanguages {
				fmt.Fprintf(w, "%-6s %s\n", code, translator.LanguageName(code))
			}
		},
	}
}

func newWatchCmd() *cobra.Command {
	var (
		flags    engineFlags
		cronExpr string
		once     bool
	)

	cmd := &cobra.Command{
		Use:   "watch <notebook.ipynb>...",
		Short: "Re-translate notebooks whenever they change",
		Long: `Check the given notebooks on a cron schedule and translate every notebook
that is newer than its translation. Runs until interrupted.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var extra []config.Option
			if cmd.Flags().Changed("cron") {
				extra = append(extra, func(c *config.Config) { c.System.WatchCron = cronExpr })
			}
			engine, cfg, cleanup, err := prepare(ctx, cmd, &flags, args, extra...)
			if err != nil {
				return err
			}
			defer cleanup()

			c := cron.New()
			w, err := service.NewWatcher(engine, c, cfg.System.WatchCron, args)
			if err != nil {
				return err
			}
			w.OnResult = func(input string, res *service.Result, err error) {
				if res != nil && res.Report.PartialSuccess() {
					log.Warn("%s: %d texts kept their original text", input, len(res.Report.Failures))
				}
			}

			w.RunOnce(ctx)
			if once {
				return nil
			}
			if err := w.Schedule(ctx); err != nil {
				return err
			}
			c.Start()
			<-ctx.Done()
			<-c.Stop().Done()
			log.Info("Watch stopped")
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&cronExpr, "cron", "", "Cron schedule (default: WATCH_CRON or */10 * * * *)")
	cmd.Flags().BoolVar(&once, "once", false, "Translate stale notebooks once and exit")
	return cmd
}
