package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/catfeed/internal/control"
	"github.com/vietddude/catfeed/internal/core/config"
	"github.com/vietddude/catfeed/internal/core/domain"
	"github.com/vietddude/catfeed/internal/feed"
	"github.com/vietddude/catfeed/internal/infra/local"
)

var noFallback bool

var factCmd = &cobra.Command{
	Use:   "fact",
	Short: "Fetch a single fact, falling back to a local one on failure",
	Run:   runFact,
}

func init() {
	factCmd.Flags().BoolVar(&noFallback, "no-fallback", false, "report remote failures instead of using a local fact")
	rootCmd.AddCommand(factCmd)
}

func runFact(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	res, err := fetchOnce(context.Background(), cfg, noFallback)
	if err != nil {
		slog.Error("Failed to fetch fact", "error", err)
		os.Exit(1)
	}

	out, err := domain.MarshalResult(res)
	if err != nil {
		slog.Error("Failed to encode result", "error", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}

// fetchOnce runs a single tick of the feed pipeline. Only the remote fetch is
// bounded by the deadline; the local fallback runs on ctx.
func fetchOnce(ctx context.Context, cfg *config.AppConfig, noFallback bool) (domain.Result, error) {
	pool, err := control.NewRemotePool(cfg.Remote)
	if err != nil {
		return nil, err
	}
	defer pool.Close()

	rctx, rcancel := context.WithTimeout(ctx, remoteDeadline(cfg.Remote))
	fact, err := pool.FetchFact(rctx)
	rcancel()
	if err == nil {
		return domain.Success{Fact: fact}, nil
	}
	slog.Warn("Remote fetch failed", "error", err)

	if noFallback {
		return domain.Error{Message: err.Error()}, nil
	}

	facts := local.DefaultFacts()
	if cfg.Feed.FactsFile != "" {
		if facts, err = local.LoadFacts(cfg.Feed.FactsFile); err != nil {
			return nil, err
		}
	}
	generator, err := local.NewGenerator(facts, cfg.Feed.Interval)
	if err != nil {
		return nil, err
	}

	fact, err = generator.FallbackFact(ctx)
	if err != nil {
		return feed.Classify(err, domain.MessageRef(cfg.Feed.DefaultError)), nil
	}
	return domain.Success{Fact: fact}, nil
}

// remoteDeadline bounds a single fetch across every endpoint and attempt.
func remoteDeadline(cfg config.RemoteConfig) time.Duration {
	attempts := max(cfg.Retry.MaxAttempts, 1)
	return cfg.Timeout * time.Duration(attempts*max(len(cfg.Endpoints), 1))
}
