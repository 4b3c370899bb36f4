package commands

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	ferrors "git.home.luguber.info/inful/texbuild/internal/foundation/errors"
	"git.home.luguber.info/inful/texbuild/internal/history"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int `short:"n" help:"Number of compiles to show" default:"20"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	if cfg.History.Path == "" {
		return ferrors.ConfigError("compile history is disabled; set history.path in the configuration").Build()
	}

	store, err := history.NewSQLiteStore(cfg.History.Path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	records, err := store.Recent(g.ctx(), h.Limit)
	if err != nil {
		return err
	}
	return printHistory(g.out(), records)
}

func printHistory(w io.Writer, records []history.Record) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No compiles recorded")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "WHEN\tRESULT\tDOCUMENT\tPROGRAM\tDURATION\tDIAGNOSTICS")
	for _, r := range records {
		result := "ok"
		if !r.Succeeded {
			result = r.Failure
			if r.ExitStatus != 0 {
				result = fmt.Sprintf("%s (%d)", r.Failure, r.ExitStatus)
			}
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			humanize.Time(r.StartedAt),
			result,
			r.Target,
			r.Program,
			r.Duration.Round(time.Millisecond),
			diagnosticSummary(r.Diagnostics))
	}
	return tw.Flush()
}

func diagnosticSummary(counts map[string]int) string {
	if len(counts) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(counts))
	for _, kind := range []string{"error", "warning", "box"} {
		if n := counts[kind]; n > 0 {
			parts = append(parts, humanize.Comma(int64(n))+" "+kind)
		}
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}
