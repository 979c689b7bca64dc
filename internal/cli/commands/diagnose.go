package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ccollicutt/fraglog/pkg/config"
	"github.com/ccollicutt/fraglog/pkg/detector"
	"github.com/ccollicutt/fraglog/pkg/parser"
	"github.com/ccollicutt/fraglog/pkg/store"
)

// diagnoseSampleSize is the number of lines tested per log file.
const diagnoseSampleSize = 200

// DiagnoseOptions holds options for the diagnose command
type DiagnoseOptions struct {
	Verbose bool
}

// DiagnosticResult represents the result of a single diagnostic check
type DiagnosticResult struct {
	Check    string
	Status   string // "ok", "warning", "error"
	Message  string
	Details  []string
	Suggests []string
}

// NewDiagnoseCommand creates the diagnose command
func NewDiagnoseCommand() *cobra.Command {
	opts := &DiagnoseOptions{}

	cmd := &cobra.Command{
		Use:   "diagnose <config-file>",
		Short: "Diagnose common configuration issues",
		Long: `Diagnose common configuration issues.

This command checks your configuration file against the logs it names:
- Config file syntax and structure
- Log source file existence and accessibility
- Clock layout against actual log lines
- Session markers and kill pattern against actual log lines
- History store connectivity
- Webhook configuration

Example:
  fraglog diagnose fraglog.yaml
  fraglog diagnose -v fraglog.yaml  # verbose output, also probes webhooks`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiagnose(commandContext(cmd), cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show detailed diagnostic output")

	return cmd
}

func runDiagnose(ctx context.Context, w io.Writer, configPath string, opts *DiagnoseOptions) error {
	results := []DiagnosticResult{}

	// 1. Check config file existence
	result := checkConfigExists(configPath)
	results = append(results, result)
	if result.Status == "error" {
		printDiagnostics(w, results, opts)
		return nil
	}

	// 2. Parse config file
	cfg, result := checkConfigParseable(ctx, configPath)
	results = append(results, result)
	if result.Status == "error" {
		printDiagnostics(w, results, opts)
		return nil
	}

	// 3. Check log sources
	files, logResults := checkLogSources(cfg)
	results = append(results, logResults...)

	// 4. Check clock layout and markers against the first readable log
	if len(files) > 0 {
		results = append(results, checkLogContent(ctx, cfg, files[0], opts)...)
	}

	// 5. Check history store
	results = append(results, checkStore(ctx, cfg, opts)...)

	// 6. Check webhooks configuration
	results = append(results, checkWebhooks(cfg, opts)...)

	printDiagnostics(w, results, opts)
	return nil
}

func checkConfigExists(path string) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Config File",
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		result.Status = "error"
		result.Message = fmt.Sprintf("Config file not found: %s", path)
		result.Suggests = []string{
			"Check the file path is correct",
			"Use 'fraglog inspect <log-file> --write-config fraglog.yaml' to generate a starter config",
		}
		return result
	}
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot access config file: %v", err)
		result.Suggests = []string{"Check file permissions"}
		return result
	}
	if info.IsDir() {
		result.Status = "error"
		result.Message = "Path is a directory, not a file"
		return result
	}

	result.Status = "ok"
	result.Message = fmt.Sprintf("Found: %s (%d bytes)", path, info.Size())
	return result
}

func checkConfigParseable(ctx context.Context, path string) (*config.Config, DiagnosticResult) {
	result := DiagnosticResult{
		Check: "Config Syntax",
	}

	cfg, err := config.Load(ctx, path)
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Failed to parse config: %v", err)
		switch {
		case strings.Contains(err.Error(), "yaml"):
			result.Suggests = []string{
				"Check YAML syntax - ensure proper indentation (use spaces, not tabs)",
			}
		case strings.Contains(err.Error(), "kill_pattern"):
			result.Suggests = []string{
				"The kill pattern needs three groups: killer, victim and cause",
				"Example: 'Kill: \\d+ \\d+ \\d+: (.+) killed (.+) by (.+)'",
			}
		}
		return nil, result
	}

	result.Status = "ok"
	result.Message = "Config file parsed successfully"
	result.Details = []string{
		fmt.Sprintf("Log sources: %d", len(cfg.LogSources)),
		fmt.Sprintf("Clock layout: %s", cfg.ClockLayout),
		fmt.Sprintf("Tie break: %s", cfg.TieBreak),
	}
	return cfg, result
}

// checkLogSources reports on every configured source and returns the
// readable, non-empty files.
func checkLogSources(cfg *config.Config) ([]string, []DiagnosticResult) {
	results := []DiagnosticResult{}

	if len(cfg.LogSources) == 0 {
		results = append(results, DiagnosticResult{
			Check:   "Log Sources",
			Status:  "warning",
			Message: "No log sources defined",
			Suggests: []string{
				"Pass log files to 'fraglog report', or add a log_sources section",
				"Example: log_sources:\n  - /var/log/arena/games.log",
			},
		})
		return nil, results
	}

	var files []string
	for _, source := range cfg.LogSources {
		result := DiagnosticResult{
			Check: fmt.Sprintf("Log Source: %s", source),
		}

		// Check if it's a glob pattern
		if strings.ContainsAny(source, "*?[") {
			matches, err := filepath.Glob(source)
			if err != nil {
				result.Status = "error"
				result.Message = fmt.Sprintf("Invalid glob pattern: %v", err)
			} else if len(matches) == 0 {
				result.Status = "warning"
				result.Message = "Glob pattern matches no files"
				result.Suggests = []string{
					"Check if the log files exist at this path",
					"Verify the glob pattern syntax",
				}
			} else {
				result.Status = "ok"
				result.Message = fmt.Sprintf("Matches %d file(s)", len(matches))
				result.Details = append(result.Details, matches...)
				files = append(files, matches...)
			}
			results = append(results, result)
			continue
		}

		// Direct file path
		info, err := os.Stat(source)
		switch {
		case os.IsNotExist(err):
			result.Status = "error"
			result.Message = "File does not exist"
			result.Suggests = []string{
				"Check if the log file path is correct",
				"A missing source makes 'fraglog report' print an empty report and exit 1",
			}
		case err != nil:
			result.Status = "error"
			result.Message = fmt.Sprintf("Cannot access file: %v", err)
			result.Suggests = []string{"Check file permissions"}
		case info.IsDir():
			result.Status = "error"
			result.Message = "Path is a directory, not a file"
			result.Suggests = []string{
				"Use a glob pattern to match files in directory",
				"Example: /var/log/arena/*.log",
			}
		case info.Size() == 0:
			result.Status = "warning"
			result.Message = "File is empty (0 bytes)"
		default:
			result.Status = "ok"
			result.Message = fmt.Sprintf("File exists (%d bytes)", info.Size())
			files = append(files, source)
		}
		results = append(results, result)
	}

	if len(files) == 0 {
		results = append(results, DiagnosticResult{
			Check:   "Log Files Summary",
			Status:  "error",
			Message: "No accessible log files found",
			Suggests: []string{
				"Ensure at least one log file exists and is readable",
			},
		})
	}

	return files, results
}

// checkLogContent tests the clock layout, session markers and kill pattern
// against the head of logFile.
func checkLogContent(ctx context.Context, cfg *config.Config, logFile string, opts *DiagnoseOptions) []DiagnosticResult {
	name := filepath.Base(logFile)

	lines, err := readSample(ctx, logFile, diagnoseSampleSize)
	if err != nil {
		return []DiagnosticResult{{
			Check:   fmt.Sprintf("Log Content: %s", name),
			Status:  "warning",
			Message: fmt.Sprintf("Cannot read file: %v", err),
		}}
	}
	if len(lines) == 0 {
		return nil
	}

	classifier, err := parser.NewClassifier(cfg.Markers.SessionStart, cfg.Markers.SessionEnd, cfg.CompiledKillPattern())
	if err != nil {
		return []DiagnosticResult{{
			Check:   "Markers",
			Status:  "error",
			Message: err.Error(),
		}}
	}

	inspection := detector.New(
		detector.WithClassifier(classifier),
		detector.WithWorldEntity(cfg.WorldEntity),
	).InspectLines(lines)

	return []DiagnosticResult{
		checkClock(cfg, lines, inspection, name, logFile, opts),
		checkMarkers(cfg, inspection, name, logFile),
	}
}

func readSample(ctx context.Context, path string, n int) ([]string, error) {
	src := parser.NewFileSource([]string{path})
	defer src.Close()

	var lines []string
	for len(lines) < n {
		line, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(line.Raw) != "" {
			lines = append(lines, line.Raw)
		}
	}
	return lines, nil
}

func checkClock(cfg *config.Config, lines []string, inspection *detector.Inspection, name, logFile string, opts *DiagnoseOptions) DiagnosticResult {
	result := DiagnosticResult{
		Check: fmt.Sprintf("Clock Layout: %s", name),
	}

	clock := parser.NewClockParser(cfg.ClockLayout)
	matchCount := 0
	var sampleMatch, sampleFail string
	for _, line := range lines {
		if _, ok := clock.Parse(line); ok {
			matchCount++
			if sampleMatch == "" {
				sampleMatch = line
			}
		} else if sampleFail == "" {
			sampleFail = line
		}
	}

	switch {
	case matchCount == 0:
		result.Status = "warning"
		result.Message = fmt.Sprintf("Layout %q parses no sample line; match times will be empty", cfg.ClockLayout)
		if sampleFail != "" {
			result.Details = []string{"Sample line that didn't parse:", truncate(sampleFail, 80)}
		}
		if best := inspection.BestClock(); best != nil {
			result.Suggests = []string{
				fmt.Sprintf("Detected format: %s", best.Format.Name),
				fmt.Sprintf("Suggested clock_layout: %q", best.Format.Layout),
			}
		} else {
			result.Suggests = []string{"Use 'fraglog inspect " + logFile + "' to look at the file"}
		}
	case matchCount < len(lines)/2:
		result.Status = "warning"
		result.Message = fmt.Sprintf("Layout parses only %d/%d sample lines", matchCount, len(lines))
		if sampleFail != "" {
			result.Details = []string{"Sample line that didn't parse:", truncate(sampleFail, 80)}
		}
	default:
		result.Status = "ok"
		result.Message = fmt.Sprintf("Layout parses %d/%d sample lines", matchCount, len(lines))
		if opts.Verbose && sampleMatch != "" {
			result.Details = []string{"Sample match:", truncate(sampleMatch, 80)}
		}
	}

	return result
}

func checkMarkers(cfg *config.Config, inspection *detector.Inspection, name, logFile string) DiagnosticResult {
	result := DiagnosticResult{
		Check: fmt.Sprintf("Markers: %s", name),
		Details: []string{
			fmt.Sprintf("Session starts: %d", inspection.SessionStarts),
			fmt.Sprintf("Session ends: %d", inspection.SessionEnds),
			fmt.Sprintf("Kills: %d (%d by %s)", inspection.Kills, inspection.WorldKills, cfg.WorldEntity),
		},
	}

	switch {
	case inspection.SessionStarts == 0:
		result.Status = "error"
		result.Message = fmt.Sprintf("No %q line in the first %d lines; every line would be discarded", cfg.Markers.SessionStart, inspection.SampledLines)
		result.Suggests = []string{
			"Check markers.session_start",
			"Use 'fraglog inspect " + logFile + "' to look at the file",
		}
	case inspection.Kills == 0:
		result.Status = "warning"
		result.Message = "Sessions found but the kill pattern matches no line; every match would be aborted"
		result.Suggests = []string{"Check kill_pattern against a kill line of the log"}
	default:
		result.Status = "ok"
		result.Message = fmt.Sprintf("%d session start(s), %d kill(s) in sample", inspection.SessionStarts, inspection.Kills)
	}

	return result
}

func checkStore(ctx context.Context, cfg *config.Config, opts *DiagnoseOptions) []DiagnosticResult {
	if cfg.Store.Backend == config.StoreNone {
		if opts.Verbose {
			return []DiagnosticResult{{
				Check:   "History Store",
				Status:  "ok",
				Message: "No store configured (optional)",
			}}
		}
		return nil
	}

	result := DiagnosticResult{
		Check: fmt.Sprintf("History Store: %s", cfg.Store.Backend),
	}

	log := logrus.WithField("command", "diagnose")
	st, err := store.Open(ctx, cfg.Store, log)
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot open store: %v", err)
		result.Suggests = []string{
			"Check store.dsn",
			"'fraglog report' fails before printing when the store cannot be opened",
		}
		return []DiagnosticResult{result}
	}
	defer func() { _ = st.Close() }()

	runs, err := st.Runs(ctx)
	if err != nil {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Store opened but cannot list runs: %v", err)
		return []DiagnosticResult{result}
	}

	result.Status = "ok"
	result.Message = fmt.Sprintf("Reachable, %d run(s) stored", len(runs))
	return []DiagnosticResult{result}
}

func printDiagnostics(w io.Writer, results []DiagnosticResult, opts *DiagnoseOptions) {
	p := func(format string, a ...any) {
		_, _ = fmt.Fprintf(w, format, a...)
	}

	p("=== Fraglog Configuration Diagnostics ===\n\n")

	okCount := 0
	warnCount := 0
	errCount := 0

	for _, r := range results {
		var icon string
		switch r.Status {
		case "ok":
			icon = "PASS"
			okCount++
		case "warning":
			icon = "WARN"
			warnCount++
		case "error":
			icon = "FAIL"
			errCount++
		}

		p("[%s] %s\n", icon, r.Check)
		p("    %s\n", r.Message)

		if opts.Verbose || r.Status != "ok" {
			for _, d := range r.Details {
				p("      - %s\n", d)
			}
		}

		for _, s := range r.Suggests {
			p("      Hint: %s\n", s)
		}

		p("\n")
	}

	p("---\n")
	p("Summary: %d passed, %d warnings, %d errors\n", okCount, warnCount, errCount)

	switch {
	case errCount > 0:
		p("\nFix the errors above before running a report.\n")
	case warnCount > 0:
		p("\nConfiguration is usable but has warnings.\n")
	default:
		p("\nConfiguration looks good!\n")
	}
}

// checkWebhooks reports on webhooks that passed config validation; with
// verbose output it also probes each endpoint.
func checkWebhooks(cfg *config.Config, opts *DiagnoseOptions) []DiagnosticResult {
	results := []DiagnosticResult{}

	if len(cfg.Webhooks) == 0 {
		if opts.Verbose {
			results = append(results, DiagnosticResult{
				Check:   "Webhooks",
				Status:  "ok",
				Message: "No webhooks configured (optional)",
			})
		}
		return results
	}

	for _, wh := range cfg.Webhooks {
		name := wh.Name
		if name == "" {
			name = wh.URL
		}

		result := DiagnosticResult{
			Check: fmt.Sprintf("Webhook: %s", name),
		}

		if wh.Trigger == config.WebhookTriggerNever {
			result.Status = "warning"
			result.Message = "Trigger is never; this webhook is disabled"
		} else {
			result.Status = "ok"
			result.Message = fmt.Sprintf("Trigger: %s", wh.Trigger)
		}
		if opts.Verbose {
			result.Details = []string{
				fmt.Sprintf("URL: %s", wh.URL),
				fmt.Sprintf("Timeout: %s", wh.Timeout),
			}
			// ${VAR} tokens are expanded on load; an unset variable leaves none
			if wh.Token != "" {
				result.Details = append(result.Details, "Token: configured")
			} else {
				result.Details = append(result.Details, "Token: none")
			}
		}
		results = append(results, result)

		if opts.Verbose {
			probe := checkWebhookConnectivity(wh)
			probe.Check = fmt.Sprintf("Webhook Connectivity: %s", name)
			results = append(results, probe)
		}
	}

	return results
}

func checkWebhookConnectivity(wh config.WebhookConfig) DiagnosticResult {
	result := DiagnosticResult{}

	// Just do a HEAD request to check if the endpoint is reachable
	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	req, err := http.NewRequest(http.MethodHead, wh.URL, nil)
	if err != nil {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Cannot create request: %v", err)
		return result
	}

	if wh.Token != "" {
		req.Header.Set("Authorization", "Bearer "+wh.Token)
	}

	resp, err := client.Do(req)
	if err != nil {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Cannot connect: %v", err)
		result.Suggests = []string{
			"Check if the webhook URL is correct",
			"Verify network connectivity",
		}
		return result
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		result.Status = "ok"
		result.Message = fmt.Sprintf("Reachable (status %d)", resp.StatusCode)
	} else {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Reachable but returned status %d", resp.StatusCode)
		result.Suggests = []string{
			"The endpoint may require POST method (will work during actual webhook send)",
			"Check authentication if using a token",
		}
	}

	return result
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
