// Package cli provides the command-line interface for fraglog.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ccollicutt/fraglog/internal/cli/commands"
	"github.com/ccollicutt/fraglog/internal/cli/plugins"
)

// DefaultLogLevel is the log level used when none is configured.
const DefaultLogLevel = "warn"

// Execute runs the root command and returns the exit code.
func Execute() int {
	return run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	rootCmd := NewRootCommand()
	rootCmd.SetArgs(args)
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	name := pluginCandidate(rootCmd, args)
	if name != "" {
		if pluginPath, err := plugins.Find(name); err == nil {
			return plugins.Run(ctx, pluginPath, args[1:], stdin, stdout, stderr)
		}
	}

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if name != "" {
			_, _ = fmt.Fprintln(stderr, plugins.NotFoundMessage(name))
			return 2
		}
		// Print error to stderr (SilenceErrors prevents Cobra from doing this)
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2 // Configuration or runtime error
	}
	return commands.ExitCode
}

// pluginCandidate returns the first argument when it names no built-in command.
func pluginCandidate(rootCmd *cobra.Command, args []string) string {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return ""
	}
	name := args[0]
	if name == "help" || name == "completion" || name == cobra.ShellCompRequestCmd || name == cobra.ShellCompNoDescRequestCmd {
		return ""
	}
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == name || cmd.HasAlias(name) {
			return ""
		}
	}
	return name
}

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fraglog",
		Short: "Match reports and kill rankings from arena server logs",
		Long: `fraglog reads arena shooter server logs, splits them into matches and
reports, for every match, who played, how many kills each player scored,
how players died and when the match ran. Players are then ranked across all
completed matches.

Diagnostics are written to stderr; --log-level debug shows how every match
was closed.

Settings can be given as flags, FRAGLOG_* environment variables or in a
.fraglog.yaml file in the current or home directory.

PLUGINS:
  Unknown commands are handed to a binary named fraglog-<command>, looked up
  next to the fraglog binary, in ~/.fraglog/plugins/ and then in PATH.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v, err := commands.LoadSettings(cmd)
			if err != nil {
				return err
			}
			return setupLogging(cmd.ErrOrStderr(), v.GetString("log-level"))
		},
	}

	rootCmd.PersistentFlags().String("log-level", DefaultLogLevel, "Log level (debug|info|warn|error)")

	// Add subcommands
	rootCmd.AddCommand(commands.NewReportCommand())
	rootCmd.AddCommand(commands.NewHistoryCommand())
	rootCmd.AddCommand(commands.NewInspectCommand())
	rootCmd.AddCommand(commands.NewDiagnoseCommand())
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	return rootCmd
}

// setupLogging configures the standard logrus logger used by all commands.
func setupLogging(w io.Writer, level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	logrus.SetOutput(w)
	logrus.SetLevel(lvl)
	logrus.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
	})
	return nil
}
