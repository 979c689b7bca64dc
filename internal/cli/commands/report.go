package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/ccollicutt/fraglog/pkg/config"
	"github.com/ccollicutt/fraglog/pkg/output"
	"github.com/ccollicutt/fraglog/pkg/report"
	"github.com/ccollicutt/fraglog/pkg/store"
	"github.com/ccollicutt/fraglog/pkg/webhook"
)

// ReportOptions holds command-line options for the report command.
type ReportOptions struct {
	ConfigPath  string
	Output      string
	OutFile     string
	TieBreak    string
	Verbose     bool
	Quiet       bool
	NoColor     bool
	FailOnEmpty bool

	// History store options
	Store    string
	StoreDSN string

	// Webhook options
	WebhookURL     string
	WebhookToken   string
	WebhookTrigger string
}

// NewReportCommand creates the report command.
func NewReportCommand() *cobra.Command {
	opts := &ReportOptions{}

	cmd := &cobra.Command{
		Use:   "report [log-file...]",
		Short: "Report matches and the kill ranking of a server log",
		Long: `Split server logs into matches and report, for each match, its players,
kill scores, causes of death and start/end time, followed by a ranking of
players over every completed match.

Log files (globs allowed) are read in the order given. Without arguments the
log_sources of the config file are used.

Options may also be set through FRAGLOG_* environment variables or a
.fraglog.yaml file in the current or home directory.

Exit codes:
  0 - Report produced
  1 - A log source could not be read (an empty report is printed),
      or --fail-on-empty and no match completed
  2 - Configuration or runtime error`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Parsing rules file (YAML)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json|csv|parquet)")
	cmd.Flags().StringVar(&opts.OutFile, "out-file", "", "Write the report to a file instead of stdout")
	cmd.Flags().StringVar(&opts.TieBreak, "tie-break", "", "Order of equal totals (first_seen|name)")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show per-match detail and run metadata")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Summary only")
	cmd.Flags().BoolVar(&opts.NoColor, "no-color", false, "Disable colored output")
	cmd.Flags().BoolVar(&opts.FailOnEmpty, "fail-on-empty", false, "Exit 1 when no match completed")

	// Store flags
	cmd.Flags().StringVar(&opts.Store, "store", "", "History store backend (none|sqlite|mysql|postgres)")
	cmd.Flags().StringVar(&opts.StoreDSN, "store-dsn", "", "History store connection string")

	// Webhook flags
	cmd.Flags().StringVar(&opts.WebhookURL, "webhook-url", "", "Webhook endpoint URL")
	cmd.Flags().StringVar(&opts.WebhookToken, "webhook-token", "", "Bearer token for webhook auth")
	cmd.Flags().StringVar(&opts.WebhookTrigger, "webhook-trigger", string(config.WebhookTriggerOnCompleted), "When to fire webhook (on_completed|always|never)")

	return cmd
}

func (o *ReportOptions) applySettings(v *viper.Viper) {
	o.ConfigPath = v.GetString("config")
	o.Output = v.GetString("output")
	o.OutFile = v.GetString("out-file")
	o.TieBreak = v.GetString("tie-break")
	o.Verbose = v.GetBool("verbose")
	o.Quiet = v.GetBool("quiet")
	o.NoColor = v.GetBool("no-color")
	o.FailOnEmpty = v.GetBool("fail-on-empty")
	o.Store = v.GetString("store")
	o.StoreDSN = v.GetString("store-dsn")
	o.WebhookURL = v.GetString("webhook-url")
	o.WebhookToken = v.GetString("webhook-token")
	o.WebhookTrigger = v.GetString("webhook-trigger")
}

func runReport(cmd *cobra.Command, args []string, opts *ReportOptions) error {
	ctx := commandContext(cmd)

	v, err := LoadSettings(cmd)
	if err != nil {
		return err
	}
	opts.applySettings(v)

	cfg, err := loadConfig(ctx, opts.ConfigPath)
	if err != nil {
		return err
	}
	if opts.TieBreak != "" {
		cfg.TieBreak = opts.TieBreak
	}
	storeOverrides(cfg, opts.Store, opts.StoreDSN)
	cfg.Webhooks = collectWebhooks(cfg, opts)
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}

	formatter, err := createFormatter(opts)
	if err != nil {
		return err
	}

	paths := args
	if len(paths) == 0 {
		paths = cfg.LogSources
	}

	log := logrus.WithField("command", "report")

	reporter, err := report.NewReporterFromConfig(cfg, report.WithLogger(log))
	if err != nil {
		return fmt.Errorf("creating reporter: %w", err)
	}

	rep, runErr := reporter.Run(ctx, paths)
	var srcErr *report.SourceError
	if runErr != nil && !errors.As(runErr, &srcErr) {
		if errors.Is(runErr, report.ErrNoSources) {
			return fmt.Errorf("%w: pass log files or set log_sources in the config file", runErr)
		}
		return fmt.Errorf("building report: %w", runErr)
	}

	if err := writeReport(cmd, opts, formatter, rep); err != nil {
		return err
	}

	// A failed source produces an empty report; it is printed but not
	// recorded or sent.
	if srcErr != nil {
		ExitCode = 1
		return nil
	}

	if err := saveReport(cmd, cfg, rep, log); err != nil {
		return err
	}

	// Webhook failures are logged but don't fail the report
	webhook.NewClient().Notify(ctx, rep, cfg.Webhooks, log)

	if opts.FailOnEmpty && rep.CompletedMatches() == 0 {
		ExitCode = 1
	}

	return nil
}

func createFormatter(opts *ReportOptions) (output.Formatter, error) {
	if output.IsBinary(opts.Output) && (opts.OutFile == "" || opts.OutFile == "-") {
		return nil, fmt.Errorf("output format %s requires --out-file", opts.Output)
	}

	return output.NewFormatter(opts.Output, output.FormatOptions{
		Verbose: opts.Verbose,
		Quiet:   opts.Quiet,
	})
}

// writeReport renders rep to stdout or --out-file. Color is enabled only for
// text written to a terminal.
func writeReport(cmd *cobra.Command, opts *ReportOptions, formatter output.Formatter, rep *report.Report) error {
	w, closeOut, err := openOutput(cmd, opts.OutFile)
	if err != nil {
		return err
	}

	if formatter.Name() == "text" && useColor(opts.NoColor, w) {
		formatter = output.NewTextFormatter(output.FormatOptions{
			Verbose: opts.Verbose,
			Quiet:   opts.Quiet,
			Color:   true,
		})
	}

	if err := formatter.Format(commandContext(cmd), rep, w); err != nil {
		_ = closeOut()
		return fmt.Errorf("formatting output: %w", err)
	}
	if err := closeOut(); err != nil {
		return fmt.Errorf("closing output: %w", err)
	}
	return nil
}

func openOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}

	f, err := os.Create(path) // #nosec G304 -- user-provided output path is expected
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}
	return f, f.Close, nil
}

func useColor(noColor bool, w io.Writer) bool {
	if noColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// saveReport records rep in the history store when one is configured.
func saveReport(cmd *cobra.Command, cfg *config.Config, rep *report.Report, log logrus.FieldLogger) error {
	ctx := commandContext(cmd)

	st, err := store.Open(ctx, cfg.Store, log)
	if err != nil {
		return fmt.Errorf("opening history store: %w", err)
	}
	defer func() { _ = st.Close() }()

	if !st.Enabled() {
		return nil
	}

	if _, err := st.SaveReport(ctx, rep); err != nil {
		return fmt.Errorf("saving report: %w", err)
	}
	return nil
}

// collectWebhooks merges config file webhooks with CLI webhook.
func collectWebhooks(cfg *config.Config, opts *ReportOptions) []config.WebhookConfig {
	webhooks := make([]config.WebhookConfig, 0, len(cfg.Webhooks)+1)

	// Add config file webhooks
	webhooks = append(webhooks, cfg.Webhooks...)

	// Add CLI webhook if specified
	if opts.WebhookURL != "" {
		trigger := config.WebhookTrigger(opts.WebhookTrigger)
		if trigger == "" {
			trigger = config.WebhookTriggerOnCompleted
		}

		webhooks = append(webhooks, config.WebhookConfig{
			Name:    "cli",
			URL:     opts.WebhookURL,
			Token:   opts.WebhookToken,
			Trigger: trigger,
			Timeout: config.DefaultWebhookTimeout,
		})
	}

	return webhooks
}
