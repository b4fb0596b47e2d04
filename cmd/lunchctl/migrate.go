package main

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/TonyV66/LunchSystem-sub000/internal/app"
	"github.com/TonyV66/LunchSystem-sub000/pkg/database"
)

func newMigrateCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database schema migrations",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSQLDB(root, func(db *sql.DB, logger *zap.Logger) error {
				return database.RunMigrations(db, logger)
			})
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if steps <= 0 {
				return fmt.Errorf("--steps must be positive")
			}
			return withSQLDB(root, func(db *sql.DB, logger *zap.Logger) error {
				return database.RollbackMigrations(db, steps, logger)
			})
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	version := &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSQLDB(root, func(db *sql.DB, _ *zap.Logger) error {
				v, dirty, err := database.MigrationVersion(db)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", v, dirty)
				return nil
			})
		},
	}

	cmd.AddCommand(up, down, version)
	return cmd
}

// withSQLDB 直接连接数据库执行迁移，不依赖 AutoMigrate 设置
func withSQLDB(root *rootOptions, fn func(db *sql.DB, logger *zap.Logger) error) error {
	cfg, logger, err := app.LoadConfig(root.configPath)
	if err != nil {
		return err
	}
	defer logger.Sync()

	gdb, err := database.NewDB(&cfg.Database, logger, false)
	if err != nil {
		return err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	return fn(sqlDB, logger)
}
