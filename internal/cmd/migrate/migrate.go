// Package migrate implements the "migrate" sub-command, which opens the
// store just long enough to run its schema migrations and exit — useful
// for running migrations as a separate step ahead of a rolling deploy.
package migrate

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/chirino/memstore/internal/config"
	"github.com/chirino/memstore/internal/store"
	"github.com/urfave/cli/v3"
)

// Command returns the migrate sub-command.
func Command() *cli.Command {
	var dbURL string
	return &cli.Command{
		Name:  "migrate",
		Usage: "Run store schema migrations and exit",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "db-url",
				Sources:     cli.EnvVars("MEMSTORE_DB_URL"),
				Destination: &dbURL,
				Usage:       "Database connection URL",
				Required:    true,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.LoadFromEnv()
			if err != nil {
				return err
			}
			if dbURL != "" {
				cfg.DBURL = dbURL
			}

			log.Info("running migrations...")
			s, err := store.Open(ctx, cfg.DBURL, store.PoolConfig{
				MaxConns:         cfg.DBMaxConns,
				MinConns:         cfg.DBMinConns,
				MaxConnLifetime:  cfg.DBMaxConnLifetime,
				MaxConnIdleTime:  cfg.DBMaxConnIdleTime,
				SingleConnection: true,
			}, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			log.Info("migrations completed successfully")
			return nil
		},
	}
}
