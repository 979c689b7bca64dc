package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/fraglog/pkg/config"
	"github.com/ccollicutt/fraglog/pkg/parser"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a configuration file",
		Long: `Validate a fraglog configuration file without reading any log.

Checks:
  - YAML syntax
  - Session markers
  - Kill pattern validity (exactly three capture groups)
  - Tie break, store and webhook settings
  - Log source file existence (warning only)`,
		Args: cobra.ExactArgs(1),
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	configPath := args[0]
	ctx := commandContext(cmd)
	w := cmd.OutOrStdout()

	_, _ = fmt.Fprintf(w, "Validating %s...\n", configPath)

	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	_, _ = fmt.Fprintf(w, "\nConfiguration valid!\n")
	_, _ = fmt.Fprintf(w, "  Session start: %q\n", cfg.Markers.SessionStart)
	_, _ = fmt.Fprintf(w, "  Session end:   %s\n", quoteAll(cfg.Markers.SessionEnd))
	_, _ = fmt.Fprintf(w, "  Kill pattern:  %s\n", cfg.KillPattern)
	_, _ = fmt.Fprintf(w, "  World entity:  %q\n", cfg.WorldEntity)
	_, _ = fmt.Fprintf(w, "  Clock layout:  %q\n", cfg.ClockLayout)
	_, _ = fmt.Fprintf(w, "  Match ids:     %s1, %s2, ...\n", cfg.MatchIDPrefix, cfg.MatchIDPrefix)
	_, _ = fmt.Fprintf(w, "  Tie break:     %s\n", cfg.TieBreak)
	_, _ = fmt.Fprintf(w, "  Store:         %s\n", describeStore(cfg.Store))

	if len(cfg.Webhooks) > 0 {
		_, _ = fmt.Fprintf(w, "\nWebhooks:\n")
		for i, wh := range cfg.Webhooks {
			name := wh.Name
			if name == "" {
				name = wh.URL
			}
			_, _ = fmt.Fprintf(w, "  %d. %s [%s, timeout %s]\n", i+1, name, wh.Trigger, wh.Timeout)
		}
	}

	// Check if log sources exist (warnings only)
	if len(cfg.LogSources) == 0 {
		_, _ = fmt.Fprintf(w, "\nNo log sources configured; pass log files to 'fraglog report'.\n")
		return nil
	}

	files, err := parser.ExpandGlobs(cfg.LogSources)
	if err != nil {
		_, _ = fmt.Fprintf(w, "\nWarning: Error expanding log source patterns: %v\n", err)
		return nil
	}

	var found, missing []string
	for _, f := range files {
		if fileExists(f) {
			found = append(found, f)
		} else {
			missing = append(missing, f)
		}
	}

	_, _ = fmt.Fprintf(w, "\nLog files matched: %d\n", len(found))
	for _, f := range found {
		_, _ = fmt.Fprintf(w, "  - %s\n", f)
	}
	for _, f := range missing {
		_, _ = fmt.Fprintf(w, "Warning: log source not found: %s\n", f)
	}

	return nil
}

func describeStore(s config.StoreConfig) string {
	switch s.Backend {
	case config.StoreNone:
		return "none (history disabled)"
	case config.StoreSQLite:
		return fmt.Sprintf("sqlite (%s)", s.DSN)
	default:
		return string(s.Backend)
	}
}

func quoteAll(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return strings.Join(quoted, ", ")
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
