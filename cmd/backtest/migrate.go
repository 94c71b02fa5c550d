package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"straddle-lab/internal/storage/migrations"
	pgstore "straddle-lab/internal/storage/postgres"
)

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply the embedded Postgres and ClickHouse schemas",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "postgres-dsn",
				Usage: "PostgreSQL connection string (overrides the run file)",
			},
			&cli.StringFlag{
				Name:  "clickhouse-dsn",
				Usage: "ClickHouse connection string (overrides the run file)",
			},
		},
		Action: migrateAction,
	}
}

func migrateAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.IsSet("postgres-dsn") {
		cfg.Storage.PostgresDSN = cmd.String("postgres-dsn")
	}
	if cmd.IsSet("clickhouse-dsn") {
		cfg.Storage.ClickhouseDSN = cmd.String("clickhouse-dsn")
	}
	if cfg.Storage.PostgresDSN == "" && cfg.Storage.ClickhouseDSN == "" {
		return fmt.Errorf("nothing to migrate: set --postgres-dsn and/or --clickhouse-dsn")
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	if dsn := cfg.Storage.PostgresDSN; dsn != "" {
		pool, err := pgstore.NewPool(ctx, dsn)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		applied, err := migrations.RunPostgresMigrations(ctx, pool)
		pool.Close()
		if err != nil {
			return fmt.Errorf("postgres migrations: %w", err)
		}
		log.Info("postgres migrated", zap.Strings("applied", applied))
	}

	if dsn := cfg.Storage.ClickhouseDSN; dsn != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, dsn)
		if err != nil {
			return fmt.Errorf("clickhouse migrations: %w", err)
		}
		if err := conn.Close(); err != nil {
			return fmt.Errorf("close clickhouse: %w", err)
		}
		log.Info("clickhouse migrated")
	}

	return nil
}
