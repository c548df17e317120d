// Command bookctl reads and writes the book voting contract from a terminal.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"bookvote/internal/config"
	"bookvote/internal/journal"
	"bookvote/internal/ledger"
	"bookvote/internal/logging"
	"bookvote/internal/shelf"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app carries the global flags and how to build a shelf. Tests replace
// newShelf.
type app struct {
	configFile string
	logLevel   string
	asJSON     bool

	logger   *zap.Logger
	newShelf func(ctx context.Context) (*shelf.Shelf, func(), error)
}

func main() {
	a := &app{}
	a.newShelf = a.shelfFromConfig
	if err := newRootCmd(a).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "bookctl",
		Short:         "Read and vote on the book voting contract",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.logger != nil {
				return nil
			}
			logger, err := logging.New(a.logLevel)
			if err != nil {
				return err
			}
			a.logger = logger
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.configFile, "config", "", "Path to a config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&a.asJSON, "json", false, "Print JSON instead of a table")

	root.AddCommand(newBooksCmd(a), newCataloguesCmd(a))
	return root
}

func (a *app) shelfFromConfig(ctx context.Context) (*shelf.Shelf, func(), error) {
	config.LoadEnvFiles()
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return nil, nil, err
	}

	client := ledger.NewClient(ledger.Options{
		GatewayURL: cfg.Ledger.GatewayURL,
		Contract:   cfg.Ledger.Contract,
		Account:    cfg.Ledger.Account,
		Secret:     cfg.Ledger.GatewaySecret,
		RPS:        cfg.Ledger.RPS,
		MaxRetries: cfg.Ledger.MaxRetries,
		Timeout:    cfg.Ledger.Timeout,
		Logger:     a.logger,
	})
	opts := shelf.Options{Caller: client.Caller(), LoadTimeout: cfg.ShelfLoadTimeout, Logger: a.logger}

	cleanup := func() {}
	if cfg.JournalEnabled() {
		pool, err := pgxpool.New(ctx, cfg.DBDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("cannot create db pool: %w", err)
		}
		opts.Journal = journal.NewPostgresRepo(pool, 3*time.Second)
		cleanup = pool.Close
	}
	return shelf.New(client, opts), cleanup, nil
}

// withShelf builds a shelf for one command run and releases it afterwards.
func (a *app) withShelf(cmd *cobra.Command, fn func(ctx context.Context, s *shelf.Shelf) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, cleanup, err := a.newShelf(ctx)
	if err != nil {
		return err
	}
	defer cleanup()
	return fn(ctx, s)
}
