package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/memerun/memerun/internal/config"
)

const (
	appName = "MemeRun"
	version = "v0.4.0"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	var configPath string

	rootCmd := &cobra.Command{
		Use:     "memerun",
		Short:   appName + " is a continuously running memecoin signal engine",
		Version: version,
		Long: appName + ` discovers newly launched and actively traded tokens,
fuses rate-limited provider data into a uniform token view, and evaluates
each candidate through a layered safety/quality pipeline. Passing
candidates become structured signals; no trades are ever placed.`,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the scan loop until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return runEngine(cmd.Context(), cfg)
		},
	}

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Run a single scan cycle and print its counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return runSingleCycle(cmd.Context(), cfg)
		},
	}

	thresholdsCmd := &cobra.Command{
		Use:   "thresholds",
		Short: "Inspect and optimize the dynamic thresholds",
	}
	thresholdsShowCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the current threshold snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return showThresholds(cmd.Context(), cfg)
		},
	}
	var applyNow bool
	thresholdsOptimizeCmd := &cobra.Command{
		Use:   "optimize",
		Short: "Propose threshold moves from recent signal outcomes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return optimizeThresholds(cmd.Context(), cfg, applyNow)
		},
	}
	thresholdsOptimizeCmd.Flags().BoolVar(&applyNow, "apply", false, "Apply the proposals immediately")
	thresholdsCmd.AddCommand(thresholdsShowCmd, thresholdsOptimizeCmd)

	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Query a running engine's health endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return queryHealth(cmd.Context(), cfg)
		},
	}

	rootCmd.AddCommand(runCmd, scanCmd, thresholdsCmd, healthCmd)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func runEngine(ctx context.Context, cfg *config.Config) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	a.server.Start()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("metrics server shutdown failed")
		}
	}()

	log.Info().
		Str("version", version).
		Bool("learning_mode", cfg.LearningMode).
		Bool("chain_rpc", a.chain.Enabled()).
		Msg(appName + " starting")

	a.scheduler.Run(ctx)
	return nil
}

func runSingleCycle(ctx context.Context, cfg *config.Config) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	stats := a.scheduler.RunCycle(ctx)
	return printJSON(stats)
}

func showThresholds(ctx context.Context, cfg *config.Config) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	return printJSON(a.thresholds.Current())
}

func optimizeThresholds(ctx context.Context, cfg *config.Config, applyNow bool) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	result, err := a.thresholds.Optimize(ctx, applyNow)
	if err != nil {
		return err
	}
	return printJSON(result)
}

func queryHealth(ctx context.Context, cfg *config.Config) error {
	url := "http://localhost" + cfg.MetricsListen + "/health"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := (&http.Client{Timeout: 5 * time.Second}).Do(req)
	if err != nil {
		return fmt.Errorf("engine not reachable at %s: %w", url, err)
	}
	defer resp.Body.Close()

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return err
	}
	return printJSON(payload)
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
