// Package plugins runs external fraglog subcommands.
//
// A plugin is any executable named fraglog-<command>. When fraglog is
// invoked with a command it does not know, the plugin binary is looked up
// and run with the remaining arguments, the same way git and kubectl do.
package plugins

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// Prefix is prepended to a command name to form the plugin binary name.
const Prefix = "fraglog-"

// ErrPluginNotFound is returned when no plugin binary can be located.
var ErrPluginNotFound = errors.New("plugin not found")

// Dir returns the per-user plugin directory, ~/.fraglog/plugins.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".fraglog", "plugins"), nil
}

// Find locates the binary for command. Locations are searched in order:
//  1. Next to the fraglog binary
//  2. ~/.fraglog/plugins/
//  3. PATH
func Find(command string) (string, error) {
	if command == "" || strings.ContainsAny(command, `/\`) {
		return "", ErrPluginNotFound
	}
	name := Prefix + command

	if execPath, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(execPath), name)
		if isExecutable(candidate) {
			return candidate, nil
		}
	}

	if dir, err := Dir(); err == nil {
		candidate := filepath.Join(dir, name)
		if isExecutable(candidate) {
			return candidate, nil
		}
	}

	if path, err := exec.LookPath(name); err == nil {
		return path, nil
	}

	return "", ErrPluginNotFound
}

// Run executes the plugin at path and returns its exit code.
func Run(ctx context.Context, path string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	logrus.WithFields(logrus.Fields{"plugin": path, "args": len(args)}).Debug("running plugin")

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode()
		}
		_, _ = fmt.Fprintf(stderr, "Error executing plugin: %v\n", err)
		return 2
	}
	return 0
}

// NotFoundMessage explains where a plugin for command would be looked up.
func NotFoundMessage(command string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "unknown command %q for \"fraglog\"\n", command)
	sb.WriteString("\nIf this is a plugin, install the binary as one of:\n")
	fmt.Fprintf(&sb, "  - %s%s in the same directory as fraglog\n", Prefix, command)
	fmt.Fprintf(&sb, "  - ~/.fraglog/plugins/%s%s\n", Prefix, command)
	fmt.Fprintf(&sb, "  - %s%s anywhere in your PATH\n", Prefix, command)
	sb.WriteString("\nRun 'fraglog --help' for usage.")

	return sb.String()
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Mode()&0111 != 0
}
