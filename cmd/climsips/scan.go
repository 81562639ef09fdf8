package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tensorplex-labs/climsips/internal/catalog"
	"github.com/tensorplex-labs/climsips/internal/config"
	"github.com/tensorplex-labs/climsips/internal/dataset"
	"github.com/tensorplex-labs/climsips/internal/results"
	"github.com/tensorplex-labs/climsips/internal/scan"
	"github.com/tensorplex-labs/climsips/internal/selection"
	"github.com/tensorplex-labs/climsips/internal/telemetry"
	"github.com/tensorplex-labs/climsips/internal/utils/redis"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run the alpha-beta scan for one ensemble, region and metric choice",
	Example: "  climsips scan --bundle perf_ind_spread_metrics.json --ensemble CMIP6 --choice IM " +
		"--region JJA_CEU --m 5 --workers 8",
	Args: cobra.NoArgs,
	RunE: runScan,
}

func init() {
	f := scanCmd.Flags()
	f.String("bundle", "", "metric bundle: path, .zst path or http(s) URL (env CLIMSIPS_BUNDLE)")
	f.String("catalog", "", "catalog yaml; the built-in catalog when empty (env CLIMSIPS_CATALOG)")
	f.String("ensemble", "", "ensemble identifier, e.g. CMIP6")
	f.String("choice", "IM", "metric choice, IM or EM")
	f.String("region", "", "season and region, e.g. JJA_CEU")
	f.Int("m", 0, "subset size (env CLIMSIPS_M)")
	f.Int("alpha-steps", 0, "alpha grid resolution (env CLIMSIPS_ALPHA_STEPS)")
	f.Int("beta-steps", 0, "beta grid resolution (env CLIMSIPS_BETA_STEPS)")
	f.Float64("cutoff", 0, "drop members with performance >= cutoff (env CLIMSIPS_PERF_CUTOFF)")
	f.Int("workers", 0, "parallel workers; 1 scans sequentially (env CLIMSIPS_MAX_WORKERS)")
	f.Bool("runner-up", false, "report the second-best subset per grid point (env CLIMSIPS_RUNNER_UP)")
	f.String("out-dir", "", "directory of the result file (env CLIMSIPS_OUT_DIR)")
	f.String("checkpoint-dir", "", "checkpoint root, relative to out-dir unless absolute (env CLIMSIPS_CHECKPOINT_DIR)")
	f.String("checkpoint-backend", "", "checkpoint store: file or redis (env CLIMSIPS_CHECKPOINT_BACKEND)")
	f.String("metrics-file", "", "write prometheus metrics to this textfile when done (env CLIMSIPS_METRICS_FILE)")

	_ = scanCmd.MarkFlagRequired("ensemble")
	_ = scanCmd.MarkFlagRequired("region")
}

// applyScanFlags lets explicitly set flags override the environment.
func applyScanFlags(cmd *cobra.Command, cfg *config.AppConfig) {
	f := cmd.Flags()
	if f.Changed("bundle") {
		cfg.Data.Bundle, _ = f.GetString("bundle")
	}
	if f.Changed("catalog") {
		cfg.Data.Catalog, _ = f.GetString("catalog")
	}
	if f.Changed("m") {
		cfg.Scan.SubsetSize, _ = f.GetInt("m")
	}
	if f.Changed("alpha-steps") {
		cfg.Scan.AlphaSteps, _ = f.GetInt("alpha-steps")
	}
	if f.Changed("beta-steps") {
		cfg.Scan.BetaSteps, _ = f.GetInt("beta-steps")
	}
	if f.Changed("cutoff") {
		cfg.Scan.PerfCutoff, _ = f.GetFloat64("cutoff")
	}
	if f.Changed("workers") {
		cfg.Scan.MaxWorkers, _ = f.GetInt("workers")
	}
	if f.Changed("runner-up") {
		cfg.Scan.RunnerUp, _ = f.GetBool("runner-up")
	}
	if f.Changed("out-dir") {
		cfg.Scan.OutDir, _ = f.GetString("out-dir")
	}
	if f.Changed("checkpoint-dir") {
		cfg.Checkpoint.Dir, _ = f.GetString("checkpoint-dir")
	}
	if f.Changed("checkpoint-backend") {
		cfg.Checkpoint.Backend, _ = f.GetString("checkpoint-backend")
	}
	if f.Changed("metrics-file") {
		cfg.Telemetry.MetricsFile, _ = f.GetString("metrics-file")
	}
}

func runScan(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg := appCfg
	applyScanFlags(cmd, cfg)

	if err := cfg.Scan.Validate(); err != nil {
		return err
	}
	if err := cfg.Checkpoint.Validate(); err != nil {
		return err
	}
	if cfg.Data.Bundle == "" {
		return fmt.Errorf("no metric bundle given: set --bundle or CLIMSIPS_BUNDLE")
	}

	ensemble, _ := cmd.Flags().GetString("ensemble")
	choice, _ := cmd.Flags().GetString("choice")
	region, _ := cmd.Flags().GetString("region")

	cat, err := catalog.Load(cfg.Data.Catalog)
	if err != nil {
		return err
	}
	target, err := cat.Target(ensemble, choice, region, cfg.Scan.RunnerUp)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.Scan.OutDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	dest := filepath.Join(cfg.Scan.OutDir, target.ResultFileName())
	if err := results.EnsureAbsent(dest); err != nil {
		return err
	}

	loader := dataset.NewLoader(cfg.Data)
	defer loader.Cache().Purge()

	bundle, err := loader.Load(ctx, cfg.Data.Bundle)
	if err != nil {
		return err
	}
	checkBundleTarget(bundle, target)
	if len(target.Members) > 0 {
		if bundle, err = bundle.Restrict(target.Members); err != nil {
			return err
		}
	}

	triple, err := selection.Normalize(bundle.Metrics(), cfg.Scan.PerfCutoff)
	if err != nil {
		return err
	}
	log.Info().Strs("members", triple.Members).Msgf("%d candidate members", triple.Len())

	metrics := telemetry.New()
	opts := []scan.Option{
		scan.WithWorkers(cfg.Scan.MaxWorkers),
		scan.WithRunnerUp(cfg.Scan.RunnerUp),
		scan.WithTarget(target.CheckpointPrefix()),
		scan.WithRecorder(metrics),
		scan.WithProgressEvery(progressEvery(cfg)),
	}
	if cfg.Scan.MaxWorkers > 1 {
		store, closeStore, err := checkpointStore(cfg)
		if err != nil {
			return err
		}
		defer closeStore()
		opts = append(opts, scan.WithMode(scan.Parallel), scan.WithCheckpointStore(store))
	}

	scanner, err := scan.NewScanner(cfg.Scan.SubsetSize, cfg.Scan.AlphaSteps, cfg.Scan.BetaSteps, opts...)
	if err != nil {
		return err
	}
	if _, err := scanner.Run(ctx, triple, dest); err != nil {
		return err
	}
	log.Info().Str("file", dest).Msg("scan result written")

	if cfg.Telemetry.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.Telemetry.MetricsFile); err != nil {
			return err
		}
	}
	return nil
}

func progressEvery(cfg *config.AppConfig) int {
	if cfg.Scan.ReportEvery > 0 {
		return cfg.Scan.ReportEvery
	}
	return config.NewProgressConfig(cfg.Environment).ReportEvery
}

func checkpointStore(cfg *config.AppConfig) (scan.CheckpointStore, func(), error) {
	switch cfg.Checkpoint.Backend {
	case config.CheckpointBackendRedis:
		r, err := redis.NewRedis(&cfg.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to init redis client: %w", err)
		}
		return scan.NewRedisCheckpointStore(r, 0), r.Close, nil
	default:
		dir := cfg.Checkpoint.Dir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(cfg.Scan.OutDir, dir)
		}
		return scan.NewFileCheckpointStore(dir), func() {}, nil
	}
}

// checkBundleTarget warns when a bundle labelled for another target is scanned.
func checkBundleTarget(b *dataset.Bundle, t catalog.Target) {
	mismatch := func(field, got, want string) {
		if got != "" && got != want {
			log.Warn().Str(field, got).Str("expected", want).Msg("bundle was built for a different target")
		}
	}
	mismatch("ensemble", b.Ensemble, t.Ensemble)
	mismatch("choice", b.Choice, t.Choice)
	mismatch("season_region", b.SeasonRegion, t.SeasonRegion)
}
