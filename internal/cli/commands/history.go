package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ccollicutt/fraglog/pkg/config"
	"github.com/ccollicutt/fraglog/pkg/report"
	"github.com/ccollicutt/fraglog/pkg/store"
)

// HistoryOptions holds command-line options for the history command.
type HistoryOptions struct {
	ConfigPath string
	Output     string
	TieBreak   string
	Verbose    bool
	Store      string
	StoreDSN   string
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	opts := &HistoryOptions{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the all-time ranking from the history store",
		Long: `Rank players over every completed match recorded by 'fraglog report'
in the history store. Use -v to list the stored runs as well.

Requires a store backend (sqlite, mysql or postgres), set in the config
file or with --store.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Parsing rules file (YAML)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().StringVar(&opts.TieBreak, "tie-break", "", "Order of equal totals (first_seen|name)")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "List stored runs")
	cmd.Flags().StringVar(&opts.Store, "store", "", "History store backend (sqlite|mysql|postgres)")
	cmd.Flags().StringVar(&opts.StoreDSN, "store-dsn", "", "History store connection string")

	return cmd
}

func runHistory(cmd *cobra.Command, opts *HistoryOptions) error {
	ctx := commandContext(cmd)

	v, err := LoadSettings(cmd)
	if err != nil {
		return err
	}
	opts.ConfigPath = v.GetString("config")
	opts.Output = v.GetString("output")
	opts.TieBreak = v.GetString("tie-break")
	opts.Verbose = v.GetBool("verbose")
	opts.Store = v.GetString("store")
	opts.StoreDSN = v.GetString("store-dsn")

	if opts.Output != "text" && opts.Output != "json" {
		return fmt.Errorf("unknown output format %q (use text or json)", opts.Output)
	}

	cfg, err := loadConfig(ctx, opts.ConfigPath)
	if err != nil {
		return err
	}
	if opts.TieBreak != "" {
		cfg.TieBreak = opts.TieBreak
	}
	storeOverrides(cfg, opts.Store, opts.StoreDSN)
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}

	tb, err := report.ParseTieBreak(cfg.TieBreak)
	if err != nil {
		return err
	}

	st, err := store.Open(ctx, cfg.Store, logrus.WithField("command", "history"))
	if err != nil {
		return fmt.Errorf("opening history store: %w", err)
	}
	defer func() { _ = st.Close() }()

	standings, err := st.Standings(ctx, tb)
	if errors.Is(err, store.ErrDisabled) {
		return fmt.Errorf("%w: set store.backend in the config file or pass --store", err)
	}
	if err != nil {
		return err
	}

	var runs []store.Run
	if opts.Verbose {
		if runs, err = st.Runs(ctx); err != nil {
			return err
		}
	}

	w := cmd.OutOrStdout()
	if opts.Output == "json" {
		return outputHistoryJSON(w, st.Backend(), standings, runs)
	}
	return outputHistoryText(w, st.Backend(), standings, runs, opts.Verbose)
}

func outputHistoryText(w io.Writer, backend config.StoreBackend, standings []report.Standing, runs []store.Run, verbose bool) error {
	_, _ = fmt.Fprintf(w, "=== Fraglog History (%s) ===\n\n", backend)

	if len(standings) == 0 {
		_, _ = fmt.Fprintln(w, "No completed matches stored")
	} else {
		table := tablewriter.NewWriter(w)
		table.Header([]string{"Rank", "Player", "Kills"})
		table.Configure(func(cfg *tablewriter.Config) {
			cfg.Row.Alignment.Global = tw.AlignRight
		})

		var data [][]string
		for _, s := range standings {
			data = append(data, []string{strconv.Itoa(s.Rank), s.Player, strconv.Itoa(s.Score)})
		}
		if err := table.Bulk(data); err != nil {
			return err
		}
		if err := table.Render(); err != nil {
			return err
		}
	}

	if !verbose {
		return nil
	}

	_, _ = fmt.Fprintf(w, "\nRuns: %d\n", len(runs))
	if len(runs) == 0 {
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Run", "Created", "Matches", "Completed", "Lines", "Sources"})

	var data [][]string
	for _, r := range runs {
		data = append(data, []string{
			r.ID,
			r.CreatedAt.Local().Format(time.DateTime),
			strconv.Itoa(r.Matches),
			strconv.Itoa(r.Completed),
			strconv.Itoa(r.LinesRead),
			strings.Join(r.Sources, ", "),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

// JSONRun is a stored run in JSON output.
type JSONRun struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Sources   []string  `json:"sources"`
	LinesRead int       `json:"lines_read"`
	Matches   int       `json:"matches"`
	Completed int       `json:"completed"`
}

// JSONHistory represents the full JSON output.
type JSONHistory struct {
	Backend string    `json:"backend"`
	Ranking []string  `json:"ranking"`
	Runs    []JSONRun `json:"runs,omitempty"`
}

func outputHistoryJSON(w io.Writer, backend config.StoreBackend, standings []report.Standing, runs []store.Run) error {
	out := JSONHistory{
		Backend: string(backend),
		Ranking: make([]string, 0, len(standings)),
	}
	for _, s := range standings {
		out.Ranking = append(out.Ranking, s.String())
	}
	for _, r := range runs {
		out.Runs = append(out.Runs, JSONRun(r))
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}
