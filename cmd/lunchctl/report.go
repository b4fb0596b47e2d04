package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/TonyV66/LunchSystem-sub000/internal/app"
	"github.com/TonyV66/LunchSystem-sub000/pkg/calendar"
	"github.com/TonyV66/LunchSystem-sub000/pkg/jwt"
)

type reportOptions struct {
	date    string
	yearID  string
	out     string
	archive bool
}

func newReportCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Daily lunch reports",
	}

	opts := &reportOptions{}
	export := &cobra.Command{
		Use:   "export",
		Short: "Export the daily report as .xlsx",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReportExport(cmd, root, opts)
		},
	}
	export.Flags().StringVar(&opts.date, "date", "", "report date YYYY-MM-DD (default today in the school timezone)")
	export.Flags().StringVar(&opts.yearID, "year", "", "school year id (default the year containing the date)")
	export.Flags().StringVarP(&opts.out, "out", "o", ".", "output directory")
	export.Flags().BoolVar(&opts.archive, "archive", false, "also upload to the configured object storage")

	cmd.AddCommand(export)
	return cmd
}

func runReportExport(cmd *cobra.Command, root *rootOptions, opts *reportOptions) error {
	cfg, logger, err := app.LoadConfig(root.configPath)
	if err != nil {
		return err
	}
	defer logger.Sync()

	date := calendar.CivilDate(time.Now().In(cfg.School.Location()))
	if opts.date != "" {
		if date, err = calendar.ParseDate(opts.date); err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()

	infra, err := app.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer infra.Close()

	svc := infra.Services(cfg, jwt.NewManager(&cfg.Auth))

	buf, filename, err := svc.Report.ExportDailyReport(ctx, opts.yearID, date)
	if err != nil {
		return err
	}
	path := filepath.Join(opts.out, filename)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	logger.Info("日报已导出", zap.String("path", path))
	fmt.Fprintln(cmd.OutOrStdout(), path)

	if opts.archive {
		key, err := svc.Report.ArchiveDailyReport(ctx, opts.yearID, date)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "archived %s\n", key)
	}
	return nil
}
