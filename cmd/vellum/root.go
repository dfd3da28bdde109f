package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	// Database drivers selectable with VELLUM_DRIVER.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/syssam/vellum/dialect"
	"github.com/syssam/vellum/dialect/sql"
	"github.com/syssam/vellum/dialect/sql/sqlcatalog"
	"github.com/syssam/vellum/internal/config"
)

// app holds what the subcommands share once the root command has loaded
// the configuration.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	provider sql.Provider
	driver   *sql.StatsDriver
	catalog  *sqlcatalog.Manager
	out      io.Writer
}

var cli = &app{out: os.Stdout}

var rootCmd = &cobra.Command{
	Use:   "vellum",
	Short: "Inspect table metadata and page through tables",
	Long: `vellum reads table metadata from the database catalog and fetches pages of
rows by keyset. The connection is configured through VELLUM_* environment
variables (VELLUM_DIALECT, VELLUM_DRIVER, VELLUM_DSN, VELLUM_SCHEMA, ...).`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error { return cli.open() },
	PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
		return cli.close()
	},
}

// Execute runs the root command.
func Execute() error {
	ctx := context.Background()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.AddCommand(describeCmd)
	rootCmd.AddCommand(existsCmd)
	rootCmd.AddCommand(pageCmd)
}

func (a *app) open() error {
	if err := a.close(); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = newLogger(os.Stderr, cfg.Logging)
	slog.SetDefault(a.log)

	a.provider, err = newProvider(cfg.Database)
	if err != nil {
		return err
	}
	drv, err := sql.Open(cfg.Database.Dialect, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err
	}
	a.driver = sql.NewStatsDriver(drv,
		sql.WithSlowThreshold(cfg.Database.SlowThreshold),
		sql.WithSlowQueryLog(a.log),
	)
	a.catalog = sqlcatalog.NewManager(a.provider, a.driver,
		sqlcatalog.WithLogger(a.log),
		sqlcatalog.WithValidation(cfg.Database.Validate),
	)
	return nil
}

func (a *app) close() error {
	if a.driver == nil {
		return nil
	}
	a.log.Debug("queries", "stats", a.driver.QueryStats().Snapshot().String())
	drv := a.driver
	a.driver = nil
	if err := drv.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

func newLogger(w io.Writer, cfg config.LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.JSON() {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// newProvider returns the dialect provider for cfg. The MySQL default
// schema comes from the DSN unless VELLUM_SCHEMA sets one.
func newProvider(cfg config.DatabaseConfig) (sql.Provider, error) {
	var opts []sql.ProviderOption
	if cfg.Schema != "" {
		opts = append(opts, sql.WithDefaultSchema(cfg.Schema))
	}
	if cfg.Dialect == dialect.MySQL {
		return sql.NewMySQLFromDSN(cfg.DSN, opts...)
	}
	return sql.ProviderFor(cfg.Dialect, opts...)
}
