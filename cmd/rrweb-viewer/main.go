package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vincentbai/rrweb-viewer/internal/config"
	"github.com/vincentbai/rrweb-viewer/internal/database"
	"github.com/vincentbai/rrweb-viewer/internal/format"
	"github.com/vincentbai/rrweb-viewer/internal/metrics"
	"github.com/vincentbai/rrweb-viewer/internal/server"
	"github.com/vincentbai/rrweb-viewer/internal/stats"
	"github.com/vincentbai/rrweb-viewer/internal/watch"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "rrweb-viewer",
	Short:         "Replay and summarise rrweb session recordings",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newHistoryCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "rrweb-viewer: %v\n", err)
		os.Exit(1)
	}
}

func newServeCmd() *cobra.Command {
	var address string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web viewer",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if address != "" {
				cfg.Server.Address = address
			}

			db, err := database.NewDatabase(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer db.Close()

			srv := server.NewServer(db, cfg.Server.Address,
				server.WithMaxUploadBytes(cfg.Server.MaxUploadBytes),
				server.WithCacheSize(cfg.Stats.CacheSize),
				server.WithHistoryLimit(cfg.Stats.HistoryLimit),
				server.WithMetrics(metrics.NewCollector()),
			)
			return srv.Start()
		},
	}

	cmd.Flags().StringVar(&address, "address", "", "listen address (overrides config and RRWEB_VIEWER_ADDRESS)")
	return cmd
}

func newStatsCmd() *cobra.Command {
	var formatFlag string

	cmd := &cobra.Command{
		Use:   "stats <file>",
		Short: "Print recording statistics for a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := watch.Analyze(args[0])
			if err != nil {
				return err
			}
			return format.WriteStats(cmd.OutOrStdout(), s, strings.ToLower(formatFlag))
		},
	}

	cmd.Flags().StringVar(&formatFlag, "format", "table", "output format: table or json")
	return cmd
}

func newWatchCmd() *cobra.Command {
	var formatFlag string

	cmd := &cobra.Command{
		Use:   "watch <file>",
		Short: "Recompute statistics every time the file changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			errs := cmd.ErrOrStderr()
			outputFormat := strings.ToLower(formatFlag)
			return watch.Watch(ctx, args[0], func(s stats.RecordingStats, err error) {
				if err != nil {
					fmt.Fprintf(errs, "error: %v\n", err)
					return
				}
				if err := format.WriteStats(out, s, outputFormat); err != nil {
					fmt.Fprintf(errs, "error: %v\n", err)
				}
				fmt.Fprintln(out)
			})
		},
	}

	cmd.Flags().StringVar(&formatFlag, "format", "table", "output format: table or json")
	return cmd
}

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List previously analysed uploads",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			db, err := database.NewDatabase(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer db.Close()

			analyses, err := db.ListAnalyses(limit)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "CREATED\tFILE\tEVENTS\tDURATION\tSIZE\tURL")
			for _, analysis := range analyses {
				url := "Unknown"
				if analysis.URL != nil {
					url = *analysis.URL
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					analysis.CreatedAt.Local().Format("2006-01-02 15:04"),
					analysis.FileName,
					stats.FormatCount(analysis.TotalEvents),
					stats.FormatDuration(analysis.DurationMS),
					stats.FormatBytes(analysis.FileSize),
					url,
				)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", config.DefaultHistoryLimit, "maximum rows to show (0 means all)")
	return cmd
}
