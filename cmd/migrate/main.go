package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/angelmondragon/popspot-backend/pkg/config"
	"github.com/angelmondragon/popspot-backend/pkg/db"
	"github.com/angelmondragon/popspot-backend/pkg/logger"
	"github.com/angelmondragon/popspot-backend/pkg/migrate"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})
	_ = godotenv.Load()

	cmd := &cli.Command{
		Name:  "migrate",
		Usage: "manage the popspot database schema",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "dir",
				Value: migrate.DefaultDir,
				Usage: "migrations directory for create and validate",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "up",
				Usage: "apply all pending migrations",
				Action: withDB(logg, func(ctx context.Context, sqlDB *sql.DB, _ *cli.Command) error {
					return migrate.Run(ctx, sqlDB, "up")
				}),
			},
			{
				Name:  "down",
				Usage: "roll back the latest migration",
				Action: withDB(logg, func(ctx context.Context, sqlDB *sql.DB, _ *cli.Command) error {
					return migrate.Run(ctx, sqlDB, "down")
				}),
			},
			{
				Name:  "status",
				Usage: "print applied and pending migrations",
				Action: withDB(logg, func(ctx context.Context, sqlDB *sql.DB, _ *cli.Command) error {
					return migrate.Run(ctx, sqlDB, "status")
				}),
			},
			{
				Name:      "version",
				Usage:     "migrate up or down to a version",
				ArgsUsage: "<version>",
				Action: withDB(logg, func(ctx context.Context, sqlDB *sql.DB, c *cli.Command) error {
					target := c.Args().First()
					if target == "" {
						return fmt.Errorf("missing target version")
					}
					return migrate.MigrateToVersion(ctx, sqlDB, target)
				}),
			},
			{
				Name:      "create",
				Usage:     "create a new SQL migration file",
				ArgsUsage: "<name>",
				Action: func(ctx context.Context, c *cli.Command) error {
					name := c.Args().First()
					if name == "" {
						return fmt.Errorf("missing migration name")
					}
					path, err := migrate.CreateSQLMigration(c.String("dir"), name)
					if err != nil {
						return err
					}
					fmt.Println("created migration:", path)
					return nil
				},
			},
			{
				Name:  "validate",
				Usage: "check migration files for gaps and missing annotations",
				Action: func(ctx context.Context, c *cli.Command) error {
					dir := c.String("dir")
					if err := migrate.ValidateDir(os.DirFS(dir), "."); err != nil {
						return err
					}
					fmt.Println("migration validation passed")
					return nil
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		logg.Error(context.Background(), "migrate failed", err)
		os.Exit(1)
	}
}

type dbAction func(ctx context.Context, sqlDB *sql.DB, c *cli.Command) error

// withDB loads config and opens the database before running action.
func withDB(bootstrap *logger.Logger, action dbAction) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		cfg, err := config.Load()
		if err != nil {
			bootstrap.Error(ctx, "failed to load config", err)
			return fmt.Errorf("load config: %w", err)
		}
		logg := logger.New(logger.Options{
			ServiceName: "migrate",
			Level:       logger.ParseLevel(cfg.App.LogLevel),
			WarnStack:   cfg.App.LogWarnStack,
		})
		ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "cmd": c.Name})

		dbClient, err := db.New(ctx, cfg.DB, logg)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer func() {
			if err := dbClient.Close(); err != nil {
				logg.Error(ctx, "error closing database", err)
			}
		}()

		sqlDB, err := dbClient.DB().DB()
		if err != nil {
			return fmt.Errorf("sql database: %w", err)
		}
		logg.Info(ctx, "migrate ready")
		return action(ctx, sqlDB, c)
	}
}
