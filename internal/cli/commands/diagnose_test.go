package commands

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ccollicutt/fraglog/pkg/config"
)

func runDiagnoseOutput(t *testing.T, configPath string, verbose bool) string {
	t.Helper()
	var buf bytes.Buffer
	if err := runDiagnose(context.Background(), &buf, configPath, &DiagnoseOptions{Verbose: verbose}); err != nil {
		t.Fatalf("runDiagnose returned error: %v", err)
	}
	return buf.String()
}

func TestNewDiagnoseCommand(t *testing.T) {
	cmd := NewDiagnoseCommand()

	if cmd.Use != "diagnose <config-file>" {
		t.Errorf("Unexpected Use: %s", cmd.Use)
	}

	// Check verbose flag exists
	if cmd.Flags().Lookup("verbose") == nil {
		t.Error("Missing verbose flag")
	}
}

func TestCheckConfigExists_NotFound(t *testing.T) {
	result := checkConfigExists("/nonexistent/config.yaml")

	if result.Status != "error" {
		t.Errorf("Expected error status, got %s", result.Status)
	}
	if !strings.Contains(result.Message, "not found") {
		t.Errorf("Expected 'not found' in message, got: %s", result.Message)
	}
}

func TestCheckConfigExists_Directory(t *testing.T) {
	result := checkConfigExists(t.TempDir())

	if result.Status != "error" {
		t.Errorf("Expected error status, got %s", result.Status)
	}
	if !strings.Contains(result.Message, "directory") {
		t.Errorf("Expected 'directory' in message, got: %s", result.Message)
	}
}

func TestCheckConfigExists_Success(t *testing.T) {
	configPath := writeFile(t, t.TempDir(), "fraglog.yaml", "tie_break: name\n")

	result := checkConfigExists(configPath)

	if result.Status != "ok" {
		t.Errorf("Expected ok status, got %s", result.Status)
	}
}

func TestCheckConfigParseable(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		wantStatus string
		wantHint   string
	}{
		{"empty file uses defaults", "", "ok", ""},
		{"invalid yaml", "markers: [unclosed", "error", "YAML syntax"},
		{"two groups", "kill_pattern: '(.+) killed (.+)'\n", "error", "three groups"},
		{"bad tie break", "tie_break: score\n", "error", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := writeFile(t, t.TempDir(), "fraglog.yaml", tt.content)

			cfg, result := checkConfigParseable(context.Background(), configPath)

			if result.Status != tt.wantStatus {
				t.Errorf("Status = %s, want %s (%s)", result.Status, tt.wantStatus, result.Message)
			}
			if tt.wantStatus == "ok" && cfg == nil {
				t.Error("Expected config on success")
			}
			if tt.wantHint != "" && !strings.Contains(strings.Join(result.Suggests, "\n"), tt.wantHint) {
				t.Errorf("Expected hint containing %q, got %v", tt.wantHint, result.Suggests)
			}
		})
	}
}

func TestRunDiagnose_MissingConfig(t *testing.T) {
	out := runDiagnoseOutput(t, "/nonexistent/config.yaml", false)

	if !strings.Contains(out, "[FAIL] Config File") {
		t.Errorf("Expected config failure:\n%s", out)
	}
	if !strings.Contains(out, "1 errors") {
		t.Errorf("Expected one error in summary:\n%s", out)
	}
}

func TestRunDiagnose_ValidConfig(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	logPath := writeFile(t, dir, "games.log", gamesLog)
	configPath := writeFile(t, dir, "fraglog.yaml", "log_sources:\n  - "+logPath+"\n")

	out := runDiagnoseOutput(t, configPath, false)

	for _, want := range []string{
		"[PASS] Config Syntax",
		"[PASS] Log Source: " + logPath,
		"[PASS] Clock Layout: games.log",
		"[PASS] Markers: games.log",
		"Configuration looks good!",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output:\n%s", want, out)
		}
	}
}

func TestRunDiagnose_WrongClockLayout(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	logPath := writeFile(t, dir, "games.log", gamesLog)
	configPath := writeFile(t, dir, "fraglog.yaml", "log_sources:\n  - "+logPath+"\nclock_layout: \"15:04:05\"\n")

	out := runDiagnoseOutput(t, configPath, false)

	if !strings.Contains(out, "[WARN] Clock Layout: games.log") {
		t.Errorf("Expected clock warning:\n%s", out)
	}
	if !strings.Contains(out, `Suggested clock_layout: "15:04"`) {
		t.Errorf("Expected suggested layout:\n%s", out)
	}
}

func TestRunDiagnose_WrongMarkers(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	logPath := writeFile(t, dir, "games.log", gamesLog)
	configPath := writeFile(t, dir, "fraglog.yaml", `log_sources:
  - `+logPath+`
markers:
  session_start: "MatchStart:"
  session_end: ["MatchEnd:"]
`)

	out := runDiagnoseOutput(t, configPath, false)

	if !strings.Contains(out, "[FAIL] Markers: games.log") {
		t.Errorf("Expected markers failure:\n%s", out)
	}
	if !strings.Contains(out, "Fix the errors above") {
		t.Errorf("Expected failing summary:\n%s", out)
	}
}

func TestRunDiagnose_NoKills(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	logPath := writeFile(t, dir, "quiet.log", quietLog)
	configPath := writeFile(t, dir, "fraglog.yaml", "log_sources:\n  - "+logPath+"\n")

	out := runDiagnoseOutput(t, configPath, false)

	if !strings.Contains(out, "[WARN] Markers: quiet.log") {
		t.Errorf("Expected markers warning:\n%s", out)
	}
}

func TestRunDiagnose_MissingLogSource(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	configPath := writeFile(t, dir, "fraglog.yaml", "log_sources:\n  - "+filepath.Join(dir, "missing.log")+"\n")

	out := runDiagnoseOutput(t, configPath, false)

	if !strings.Contains(out, "File does not exist") {
		t.Errorf("Expected missing file message:\n%s", out)
	}
	if !strings.Contains(out, "No accessible log files found") {
		t.Errorf("Expected summary failure:\n%s", out)
	}
}

func TestRunDiagnose_Store(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "history.db")
	configPath := writeFile(t, dir, "fraglog.yaml", "store:\n  backend: sqlite\n  dsn: "+dbPath+"\n")

	out := runDiagnoseOutput(t, configPath, false)

	if !strings.Contains(out, "[PASS] History Store: sqlite") {
		t.Errorf("Expected store check:\n%s", out)
	}
	if !strings.Contains(out, "0 run(s) stored") {
		t.Errorf("Expected run count:\n%s", out)
	}
}

func TestCheckStore_Unreachable(t *testing.T) {
	isolate(t)
	cfg := config.DefaultConfig()
	cfg.Store = config.StoreConfig{Backend: config.StoreSQLite, DSN: filepath.Join(t.TempDir(), "missing", "dir", "history.db")}

	results := checkStore(context.Background(), cfg, &DiagnoseOptions{})

	if len(results) != 1 || results[0].Status != "error" {
		t.Errorf("Expected one error result, got %+v", results)
	}
}

func TestCheckStore_None(t *testing.T) {
	cfg := config.DefaultConfig()

	if results := checkStore(context.Background(), cfg, &DiagnoseOptions{}); len(results) != 0 {
		t.Errorf("Expected no results without verbose, got %d", len(results))
	}
	if results := checkStore(context.Background(), cfg, &DiagnoseOptions{Verbose: true}); len(results) != 1 {
		t.Errorf("Expected one result with verbose, got %d", len(results))
	}
}

func TestCheckLogSources(t *testing.T) {
	dir := t.TempDir()
	logPath := writeFile(t, dir, "games.log", gamesLog)
	emptyPath := writeFile(t, dir, "empty.log", "")
	writeFile(t, dir, "other.log", gamesLog)

	t.Run("direct file", func(t *testing.T) {
		cfg := &config.Config{LogSources: []string{logPath}}
		files, results := checkLogSources(cfg)

		if len(files) != 1 || files[0] != logPath {
			t.Errorf("files = %v", files)
		}
		if results[0].Status != "ok" {
			t.Errorf("Status = %s, want ok", results[0].Status)
		}
	})

	t.Run("empty file", func(t *testing.T) {
		cfg := &config.Config{LogSources: []string{emptyPath}}
		files, results := checkLogSources(cfg)

		if len(files) != 0 {
			t.Errorf("files = %v, want none", files)
		}
		if results[0].Status != "warning" {
			t.Errorf("Status = %s, want warning", results[0].Status)
		}
	})

	t.Run("glob", func(t *testing.T) {
		cfg := &config.Config{LogSources: []string{filepath.Join(dir, "*.log")}}
		files, results := checkLogSources(cfg)

		if len(files) != 3 {
			t.Errorf("got %d files, want 3", len(files))
		}
		if !strings.Contains(results[0].Message, "3 file(s)") {
			t.Errorf("Message = %s", results[0].Message)
		}
	})

	t.Run("none configured", func(t *testing.T) {
		files, results := checkLogSources(&config.Config{})

		if files != nil {
			t.Errorf("files = %v, want nil", files)
		}
		if len(results) != 1 || results[0].Status != "warning" {
			t.Errorf("Expected one warning, got %+v", results)
		}
	})
}

func TestCheckWebhooks(t *testing.T) {
	t.Run("none", func(t *testing.T) {
		if results := checkWebhooks(&config.Config{}, &DiagnoseOptions{}); len(results) != 0 {
			t.Errorf("Expected no results, got %d", len(results))
		}
		if results := checkWebhooks(&config.Config{}, &DiagnoseOptions{Verbose: true}); len(results) != 1 {
			t.Errorf("Expected one result in verbose mode, got %d", len(results))
		}
	})

	t.Run("never trigger", func(t *testing.T) {
		cfg := &config.Config{Webhooks: []config.WebhookConfig{
			{Name: "off", URL: "https://example.com/hook", Trigger: config.WebhookTriggerNever},
		}}
		results := checkWebhooks(cfg, &DiagnoseOptions{})

		if len(results) != 1 || results[0].Status != "warning" {
			t.Errorf("Expected one warning, got %+v", results)
		}
	})

	t.Run("verbose probes endpoint", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodHead {
				t.Errorf("Expected HEAD, got %s", r.Method)
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		cfg := &config.Config{Webhooks: []config.WebhookConfig{
			{Name: "scoreboard", URL: server.URL, Token: "secret", Trigger: config.WebhookTriggerOnCompleted, Timeout: time.Second},
		}}
		results := checkWebhooks(cfg, &DiagnoseOptions{Verbose: true})

		if len(results) != 2 {
			t.Fatalf("Expected config and connectivity results, got %d", len(results))
		}
		if results[1].Status != "ok" || !strings.Contains(results[1].Message, "Reachable") {
			t.Errorf("Connectivity = %+v", results[1])
		}
		if !strings.Contains(strings.Join(results[0].Details, "\n"), "Token: configured") {
			t.Errorf("Details = %v", results[0].Details)
		}
	})
}

func TestCheckWebhookConnectivity_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
	}))
	defer server.Close()

	result := checkWebhookConnectivity(config.WebhookConfig{URL: server.URL})

	if result.Status != "warning" {
		t.Errorf("Status = %s, want warning", result.Status)
	}
}

func TestPrintDiagnostics(t *testing.T) {
	var buf bytes.Buffer
	printDiagnostics(&buf, []DiagnosticResult{
		{Check: "One", Status: "ok", Message: "fine", Details: []string{"hidden"}},
		{Check: "Two", Status: "warning", Message: "hmm", Details: []string{"shown"}, Suggests: []string{"try this"}},
	}, &DiagnoseOptions{})
	out := buf.String()

	for _, want := range []string{"[PASS] One", "[WARN] Two", "- shown", "Hint: try this", "1 passed, 1 warnings, 0 errors", "usable but has warnings"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, "hidden") {
		t.Error("Details of passing checks are only shown in verbose mode")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input  string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is a long line", 10, "this is..."},
	}

	for _, tt := range tests {
		if got := truncate(tt.input, tt.maxLen); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
		}
	}
}

func TestReadSample(t *testing.T) {
	logPath := writeFile(t, t.TempDir(), "games.log", "a\n\n  \nb\nc\n")

	lines, err := readSample(context.Background(), logPath, 2)
	if err != nil {
		t.Fatalf("readSample failed: %v", err)
	}
	if strings.Join(lines, ",") != "a,b" {
		t.Errorf("lines = %v, want [a b]", lines)
	}

	if _, err := readSample(context.Background(), filepath.Join(os.TempDir(), "fraglog-missing.log"), 2); err == nil {
		t.Error("Expected error for missing file")
	}
}
