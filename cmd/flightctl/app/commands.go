// Package app holds the flightctl commands. Each command runs one sync
// operation against the configured stores and prints its stats as JSON.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"flightsync-service/internal/domain/entity"
	"flightsync-service/internal/infrastructure/bootstrap"
	"flightsync-service/internal/infrastructure/config"
	"flightsync-service/pkg/logger"
	"flightsync-service/pkg/metrics"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the flightctl root command with every subcommand
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "flightctl",
		DisableAutoGenTag: true,
		Short:             "Run flight sync operations on demand",
		SilenceUsage:      true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().String("log-level", "", "Override LOG_LEVEL")

	rootCmd.AddCommand(
		scopedCmd("sync-routes", "Rebuild the route list of an interface from its schedule",
			func(ctx context.Context, s *session, provider, code string) (any, error) {
				return s.app.Orchestrator.SyncRoutes(ctx, provider, code)
			}),
		updatePeriodCmd(),
		scopedCmd("update-due", "Refresh flights whose next check is due",
			func(ctx context.Context, s *session, provider, code string) (any, error) {
				return s.app.Orchestrator.UpdateDue(ctx, provider, code)
			}),
		scopedCmd("sync-status", "Reconcile open/closed status from the schedule",
			func(ctx context.Context, s *session, provider, code string) (any, error) {
				return s.app.Orchestrator.SyncStatus(ctx, provider, code)
			}),
		scopedCmd("detect-missing", "Mark or delete flights no longer offered upstream",
			func(ctx context.Context, s *session, provider, code string) (any, error) {
				return s.app.Orchestrator.DetectMissingFlights(ctx, provider, code)
			}),
		globalCmd("cleanup", "Delete flights that departed before today",
			func(ctx context.Context, s *session) (any, error) {
				return s.app.Orchestrator.CleanupPastFlights(ctx), nil
			}),
		globalCmd("fill-fares", "Queue fare detail tasks for classes without fares",
			func(ctx context.Context, s *session) (any, error) {
				return fillFares(ctx, s.app.Orchestrator)
			}),
	)
	return rootCmd
}

type session struct {
	app *bootstrap.App
}

// withSession loads config, wires the engine and runs fn until it returns or the
// process is interrupted
func withSession(cmd *cobra.Command, fn func(ctx context.Context, s *session) (any, error)) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	log := logger.NewLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, metrics.NewMetrics("flightsync"), log)
	if err != nil {
		return fmt.Errorf("failed to initialise sync engine: %w", err)
	}
	defer app.Close(context.Background())

	result, err := fn(ctx, &session{app: app})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func scopedCmd(use, short string, run func(ctx context.Context, s *session, provider, code string) (any, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			provider, code, err := scope(cmd)
			if err != nil {
				return err
			}
			return withSession(cmd, func(ctx context.Context, s *session) (any, error) {
				return run(ctx, s, provider, code)
			})
		},
	}
	addScopeFlags(cmd)
	return cmd
}

func globalCmd(use, short string, run func(ctx context.Context, s *session) (any, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, func(ctx context.Context, s *session) (any, error) {
				return run(ctx, s)
			})
		},
	}
}

type fareFiller interface {
	FareQueueAvailable() bool
	FillMissingFareDetail(ctx context.Context) entity.FareFillStats
}

func fillFares(ctx context.Context, f fareFiller) (entity.FareFillStats, error) {
	if !f.FareQueueAvailable() {
		return entity.FareFillStats{}, entity.ErrQueueUnavailable
	}
	return f.FillMissingFareDetail(ctx), nil
}

func updatePeriodCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update-period",
		Short: "Fetch and store the flights of the next N days",
		RunE: func(cmd *cobra.Command, _ []string) error {
			provider, code, err := scope(cmd)
			if err != nil {
				return err
			}
			period, err := cmd.Flags().GetInt("period")
			if err != nil {
				return fmt.Errorf("failed to get period flag: %w", err)
			}
			return withSession(cmd, func(ctx context.Context, s *session) (any, error) {
				return s.app.Orchestrator.UpdateByPeriod(ctx, provider, period, code)
			})
		},
	}
	addScopeFlags(cmd)
	cmd.Flags().Int("period", 3, "Look-ahead in days (3, 7, 30, 60, 90 or 120)")
	return cmd
}

func addScopeFlags(cmd *cobra.Command) {
	cmd.Flags().String("provider", "", "Provider name (nira or sepehr)")
	cmd.Flags().String("code", "", "Interface code; empty selects the first active interface")
	_ = cmd.MarkFlagRequired("provider")
}

func scope(cmd *cobra.Command) (string, string, error) {
	provider, err := cmd.Flags().GetString("provider")
	if err != nil {
		return "", "", fmt.Errorf("failed to get provider flag: %w", err)
	}
	code, err := cmd.Flags().GetString("code")
	if err != nil {
		return "", "", fmt.Errorf("failed to get code flag: %w", err)
	}
	return provider, code, nil
}
