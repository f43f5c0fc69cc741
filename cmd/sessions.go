package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"
	"unicode/utf8"

	"github.com/vibecheck-ai/vibecheck/internal/client"
	"github.com/vibecheck-ai/vibecheck/internal/config"
	"github.com/vibecheck-ai/vibecheck/internal/export"
	"github.com/vibecheck-ai/vibecheck/internal/log"
	"github.com/vibecheck-ai/vibecheck/internal/session"
)

// runSessions lists past sessions or exports one to a file.
func runSessions(logger log.Logger, args []string) error {
	fs := flag.NewFlagSet("sessions", flag.ContinueOnError)
	page := fs.Int("page", 1, "history page to show")
	pageSize := fs.Int("page-size", 0, "sessions per page (default from config)")
	exportID := fs.String("export", "", "write the given session to a JSON file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if *pageSize <= 0 {
		*pageSize = cfg.PageSize
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	api, err := client.New(client.Config{
		BaseURL:        cfg.APIBaseURL,
		Token:          cfg.APIToken,
		RequestTimeout: cfg.RequestTimeout,
		MaxRetries:     cfg.MaxRetries,
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("create api client: %w", err)
	}

	if *exportID != "" {
		return exportSession(ctx, api, logger, *exportID)
	}

	history, err := api.History(ctx, *page, *pageSize)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}

	writeHistory(os.Stdout, history)
	return nil
}

// exportSession fetches one session and writes it as JSON.
func exportSession(ctx context.Context, api *client.Client, logger log.Logger, id string) error {
	sess, err := api.GetSession(ctx, id)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	path, err := export.New("", logger).Session(sess)
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}

// writeHistory renders one page of session summaries as a table.
func writeHistory(w io.Writer, history *session.HistoryPage) {
	if len(history.Sessions) == 0 {
		fmt.Fprintln(w, "No sessions yet. Start one with: vibecheck chat")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPHASE\tUPDATED\tSUMMARY")
	for _, s := range history.Sessions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			s.ID,
			elide(s.Name, 32),
			s.Mode,
			s.UpdatedAt.Format(time.DateTime),
			elide(s.PersonaSummary, 48),
		)
	}
	_ = tw.Flush()

	fmt.Fprintf(w, "\nPage %d of %d sessions total\n", history.Page, history.Total)
}

// elide shortens long cell values so the table stays readable. Cuts fall on
// rune boundaries so multi-byte names stay valid UTF-8.
func elide(s string, n int) string {
	if n <= 3 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-3]) + "..."
}
