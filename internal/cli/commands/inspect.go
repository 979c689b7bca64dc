package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/fraglog/pkg/config"
	"github.com/ccollicutt/fraglog/pkg/detector"
	"github.com/ccollicutt/fraglog/pkg/parser"
)

// InspectOptions holds command-line options for the inspect command.
type InspectOptions struct {
	ConfigPath  string
	Output      string
	SampleSize  int
	ShowAll     bool
	WriteConfig string
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand() *cobra.Command {
	opts := &InspectOptions{}

	cmd := &cobra.Command{
		Use:   "inspect <log-file>",
		Short: "Inspect a log file before reporting on it",
		Long: `Sample the head of a log file and report whether it looks like an arena
server log: which clock format its lines carry, and how many session
starts, session ends and kills the sample holds.

Optionally generates a starter config file with --write-config.

Example:
  fraglog inspect games.log
  fraglog inspect --sample 2000 games.log
  fraglog inspect --write-config fraglog.yaml games.log`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Parsing rules file (YAML)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().IntVarP(&opts.SampleSize, "sample", "n", detector.DefaultSampleSize, "Number of lines to sample")
	cmd.Flags().BoolVar(&opts.ShowAll, "all", false, "Show all detected clock formats, not just the best match")
	cmd.Flags().StringVarP(&opts.WriteConfig, "write-config", "w", "", "Write starter config to file (will not overwrite)")

	return cmd
}

func runInspect(cmd *cobra.Command, args []string, opts *InspectOptions) error {
	logFile := args[0]
	ctx := commandContext(cmd)

	// Check file exists
	if _, err := os.Stat(logFile); os.IsNotExist(err) {
		return fmt.Errorf("log file not found: %s", logFile)
	}

	cfg, err := loadConfig(ctx, opts.ConfigPath)
	if err != nil {
		return err
	}
	classifier, err := parser.NewClassifier(cfg.Markers.SessionStart, cfg.Markers.SessionEnd, cfg.CompiledKillPattern())
	if err != nil {
		return fmt.Errorf("building classifier: %w", err)
	}

	d := detector.New(
		detector.WithSampleSize(opts.SampleSize),
		detector.WithClassifier(classifier),
		detector.WithWorldEntity(cfg.WorldEntity),
	)

	result, err := d.InspectFile(ctx, logFile)
	if err != nil {
		return fmt.Errorf("inspection failed: %w", err)
	}

	w := cmd.OutOrStdout()

	// Write config file if requested
	if opts.WriteConfig != "" {
		if err := writeStarterConfig(w, result, cfg, logFile, opts.WriteConfig); err != nil {
			return err
		}
	}

	switch opts.Output {
	case "json":
		return outputInspectJSON(w, result, logFile, opts)
	case "text", "":
		return outputInspectText(w, result, logFile, opts)
	default:
		return fmt.Errorf("unknown output format %q (use text or json)", opts.Output)
	}
}

func outputInspectText(w io.Writer, result *detector.Inspection, logFile string, opts *InspectOptions) error {
	p := func(format string, a ...any) {
		_, _ = fmt.Fprintf(w, format, a...)
	}

	p("=== Log Inspection ===\n\n")
	p("File: %s\n", logFile)
	p("Lines sampled: %d\n\n", result.SampledLines)

	p("Session starts: %d\n", result.SessionStarts)
	p("Session ends:   %d\n", result.SessionEnds)
	p("Kills:          %d (%d by the world)\n", result.Kills, result.WorldKills)
	p("Unrecognized:   %d\n\n", result.Unrecognized)

	if result.SampleKill != nil {
		p("Sample kill:\n  %s\n", result.SampleLine)
		p("  killer=%q victim=%q cause=%q\n\n", result.SampleKill.Killer, result.SampleKill.Victim, result.SampleKill.Cause)
	}

	if !result.HasClock() {
		p("No clock format detected.\n\n")
		p("Tip: match start and end times will be left empty.\n")
		p("Check the first few lines manually and set clock_layout in the config file.\n\n")
	} else {
		best := result.BestClock()
		p("Clock format: %s\n", best.Format.Name)
		p("Clock confidence: %.1f%% (%d/%d lines matched)\n", best.Confidence*100, best.MatchCount, result.SampledLines)
		p("Sample match:\n  %s\n", best.SampleLine)
		p("Parsed as: %s\n\n", best.ParsedTime.Format(best.Format.Layout))

		p("--- Configuration snippet (copy to your config file) ---\n\n")
		p("clock_layout: %q\n\n", best.Format.Layout)

		if opts.ShowAll && len(result.Clocks) > 1 {
			p("--- Alternative clock formats detected ---\n")
			for i, m := range result.Clocks[1:] {
				p("%d. %s (%.1f%% confidence)\n", i+2, m.Format.Name, m.Confidence*100)
				p("   layout: %q\n", m.Format.Layout)
			}
			p("\n")
		}
	}

	p("Arena log confidence: %.1f%%\n", result.Confidence*100)
	if !result.LooksLikeArenaLog() {
		p("WARNING: this does not look like an arena server log; a report may find no matches.\n")
	}

	return nil
}

// JSONClock represents a clock format match in JSON output.
type JSONClock struct {
	Name       string  `json:"name"`
	Pattern    string  `json:"pattern"`
	Layout     string  `json:"layout"`
	Confidence float64 `json:"confidence"`
	MatchCount int     `json:"match_count"`
	SampleLine string  `json:"sample_line"`
}

// JSONKill is the sample kill in JSON output.
type JSONKill struct {
	Killer string `json:"killer"`
	Victim string `json:"victim"`
	Cause  string `json:"cause"`
	Line   string `json:"line"`
}

// JSONInspection represents the full JSON output.
type JSONInspection struct {
	File          string      `json:"file"`
	SampledLines  int         `json:"sampled_lines"`
	SessionStarts int         `json:"session_starts"`
	SessionEnds   int         `json:"session_ends"`
	Kills         int         `json:"kills"`
	WorldKills    int         `json:"world_kills"`
	Unrecognized  int         `json:"unrecognized"`
	SampleKill    *JSONKill   `json:"sample_kill,omitempty"`
	Clocks        []JSONClock `json:"clocks"`
	Confidence    float64     `json:"confidence"`
	ArenaLog      bool        `json:"arena_log"`
}

func outputInspectJSON(w io.Writer, result *detector.Inspection, logFile string, opts *InspectOptions) error {
	out := JSONInspection{
		File:          logFile,
		SampledLines:  result.SampledLines,
		SessionStarts: result.SessionStarts,
		SessionEnds:   result.SessionEnds,
		Kills:         result.Kills,
		WorldKills:    result.WorldKills,
		Unrecognized:  result.Unrecognized,
		Clocks:        make([]JSONClock, 0),
		Confidence:    result.Confidence,
		ArenaLog:      result.LooksLikeArenaLog(),
	}

	if result.SampleKill != nil {
		out.SampleKill = &JSONKill{
			Killer: result.SampleKill.Killer,
			Victim: result.SampleKill.Victim,
			Cause:  result.SampleKill.Cause,
			Line:   result.SampleLine,
		}
	}

	clocks := result.Clocks
	if !opts.ShowAll && len(clocks) > 1 {
		clocks = clocks[:1] // Only show best match
	}
	for _, m := range clocks {
		out.Clocks = append(out.Clocks, JSONClock{
			Name:       m.Format.Name,
			Pattern:    m.Format.PatternStr,
			Layout:     m.Format.Layout,
			Confidence: m.Confidence,
			MatchCount: m.MatchCount,
			SampleLine: m.SampleLine,
		})
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

// writeStarterConfig generates a starter config file for the inspected log.
func writeStarterConfig(w io.Writer, result *detector.Inspection, cfg *config.Config, logFile, configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file already exists: %s (will not overwrite)", configPath)
	}

	if result.SessionStarts == 0 {
		return fmt.Errorf("cannot generate config: no %q line in the first %d lines", cfg.Markers.SessionStart, result.SampledLines)
	}

	layout := cfg.ClockLayout
	formatName := "none detected, using default"
	if best := result.BestClock(); best != nil {
		layout = best.Format.Layout
		formatName = best.Format.Name
	}

	content := generateStarterConfig(logFile, formatName, layout, cfg)

	// #nosec G306 - config file doesn't need restrictive permissions
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	_, _ = fmt.Fprintf(w, "Wrote starter config to: %s\n\n", configPath)
	return nil
}

// generateStarterConfig creates a YAML config template.
func generateStarterConfig(logFile, formatName, layout string, cfg *config.Config) string {
	absLogFile := logFile
	if abs, err := filepath.Abs(logFile); err == nil {
		absLogFile = abs
	}

	ends := ""
	for _, e := range cfg.Markers.SessionEnd {
		ends += fmt.Sprintf("    - %q\n", e)
	}

	return fmt.Sprintf(`# fraglog configuration
# Generated by: fraglog inspect
# Detected clock format: %s

log_sources:
  - %s
  # Add more log files or use globs:
  # - /var/log/arena/*.log

markers:
  session_start: %q
  session_end:
%s
# Groups: killer, victim, cause
kill_pattern: '%s'

world_entity: %q
clock_layout: %q
match_id_prefix: %q

# Order of players with equal totals: first_seen or name
tie_break: %s

# Keep a history of reports for 'fraglog history'
store:
  backend: none
  # backend: sqlite
  # dsn: %s

# webhooks:
#   - name: scoreboard
#     url: https://example.com/hooks/fraglog
#     token: ${FRAGLOG_WEBHOOK_TOKEN}
#     trigger: on_completed
`, formatName,
		absLogFile,
		cfg.Markers.SessionStart,
		ends,
		cfg.KillPattern,
		cfg.WorldEntity,
		layout,
		cfg.MatchIDPrefix,
		cfg.TieBreak,
		config.DefaultSQLitePath)
}
