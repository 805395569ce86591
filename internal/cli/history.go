package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/catfeed/internal/core/config"
	redisclient "github.com/vietddude/catfeed/internal/infra/redis"
	"github.com/vietddude/catfeed/internal/infra/storage"
	"github.com/vietddude/catfeed/internal/infra/storage/postgres"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently published results from the journal",
	Run:   runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of entries to show")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	ctx := context.Background()

	repo, closeFn, err := openJournal(ctx, cfg)
	if err != nil {
		slog.Error("Failed to open journal", "error", err)
		os.Exit(1)
	}
	defer closeFn()

	entries, err := repo.Recent(ctx, historyLimit)
	if err != nil {
		slog.Error("Failed to read journal", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, "PUBLISHED\tKIND\tTEXT")
	for _, e := range entries {
		text := e.Fact
		if text == "" {
			text = e.Message
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", e.PublishedAt.Local().Format(time.RFC3339), e.Kind, text)
	}
	_ = w.Flush()
}

func openJournal(ctx context.Context, cfg *config.AppConfig) (storage.JournalRepository, func(), error) {
	switch cfg.Journal.Backend {
	case config.JournalRedis:
		client, err := redisclient.NewClient(cfg.Redis, cfg.Journal.Capacity)
		if err != nil {
			return nil, nil, err
		}
		return client, func() { _ = client.Close() }, nil

	case config.JournalPostgres:
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewJournalRepo(db), func() { _ = db.Close() }, nil

	default:
		return nil, nil, fmt.Errorf(
			"journal backend %q is not readable offline; query /facts/recent on the running service",
			cfg.Journal.Backend,
		)
	}
}
