// Command learnctl browses the tutorial catalog and manages local learning
// progress from the terminal.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/KaretiGnaneswar/gnanify-learn/internal/catalog"
	"github.com/KaretiGnaneswar/gnanify-learn/internal/platform/blob"
	"github.com/KaretiGnaneswar/gnanify-learn/internal/platform/cache"
	"github.com/KaretiGnaneswar/gnanify-learn/internal/platform/config"
	"github.com/KaretiGnaneswar/gnanify-learn/internal/progress"
)

const closeTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// cli carries state shared by subcommands.
type cli struct {
	cfg     *config.Config
	verbose bool
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "learnctl",
		Short:         "Browse tutorials and track learning progress",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelWarn
			if c.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			c.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		newSearchCmd(c),
		newCatalogCmd(c),
		newProgressCmd(c),
		newReportCmd(c),
	)
	return root
}

// loadCatalog resolves the configured catalog source.
func (c *cli) loadCatalog(ctx context.Context) (*catalog.Catalog, error) {
	src, err := catalog.OpenSource(c.cfg.Catalog.RemoteURL, c.cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	if rs, ok := src.(*catalog.RemoteSource); ok {
		defer rs.Close()
	}
	cat, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return cat, nil
}

// openStore opens the progress store on the configured state backend. The
// returned func drains pending remote writes and releases the backend.
func (c *cli) openStore(ctx context.Context) (*progress.Store, func(), error) {
	pc := c.cfg.Progress
	var closers []io.Closer

	var client *redis.Client
	if pc.StateBackend == "redis" {
		cc, err := cache.New(ctx, c.cfg.Cache)
		if err != nil {
			return nil, nil, fmt.Errorf("connect cache: %w", err)
		}
		client = cc.Client
		closers = append(closers, cc)
	}

	store, backendCloser, err := blob.Open(pc.StateBackend, pc.StatePath, client)
	if err != nil {
		closeAll(closers)
		return nil, nil, fmt.Errorf("open state: %w", err)
	}
	closers = append(closers, backendCloser)

	opts := progress.Options{
		Blob:            store,
		UserID:          pc.UserID,
		SyncPolicy:      progress.SyncPolicy(pc.SyncPolicy),
		SyncAttempts:    pc.SyncAttempts,
		RefreshInterval: pc.RefreshInterval,
		Sinks: []progress.EventSink{progress.FuncEventSink(func(e progress.Event) error {
			slog.Debug("progress changed", "type", e.Type, "category", e.Category, "topic", e.Topic, "section", e.Section, "completed", e.Completed)
			return nil
		})},
		OnSyncError: func(op progress.Op, err error) {
			slog.Warn("progress sync failed", "category", op.Category, "topic", op.Topic, "section", op.Section, "error", err)
		},
	}
	if pc.RemoteURL != "" {
		remote := progress.NewHTTPRemote(pc.RemoteURL, pc.UserID)
		opts.Remote = remote
		closers = append(closers, remote)
	}

	s := progress.NewStore(ctx, opts)
	closeFn := func() {
		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if err := s.Close(ctx); err != nil {
			slog.Warn("progress store close failed", "pending", s.PendingSync(), "error", err)
		}
		closeAll(closers)
	}
	return s, closeFn, nil
}

func closeAll(closers []io.Closer) {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			slog.Debug("close failed", "error", err)
		}
	}
}

func newSearchCmd(c *cli) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search categories, topics and sections",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := c.loadCatalog(cmd.Context())
			if err != nil {
				return err
			}
			if limit <= 0 {
				limit = c.cfg.Search.MaxResults
			}
			results := searchCatalog(cat, strings.Join(args, " "), limit)
			if len(results) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no results")
				return nil
			}
			w := newTable(cmd.OutOrStdout())
			for _, r := range results {
				fmt.Fprintf(w, "%s\t%s\t%s\n", r.Title, r.Meta, r.To)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of results")
	return cmd
}
