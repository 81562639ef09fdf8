package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tensorplex-labs/climsips/internal/config"
	"github.com/tensorplex-labs/climsips/internal/utils/logger"
)

var appCfg *config.AppConfig

var rootCmd = &cobra.Command{
	Use:   "climsips",
	Short: "Climate model subset selection",
	Long: "climsips picks the subset of ensemble members that best balances performance, " +
		"independence and spread, scanned over a grid of objective weights.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		debug, _ := cmd.Flags().GetBool("debug")
		trace, _ := cmd.Flags().GetBool("trace")
		info, _ := cmd.Flags().GetBool("info")
		logger.Init(logger.Options{Debug: debug, Trace: trace, Info: info})

		cfg, err := config.LoadConfig(cmd.Context())
		if err != nil {
			return err
		}
		appCfg = cfg
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().Bool("trace", false, "enable trace logging")
	rootCmd.PersistentFlags().Bool("info", false, "log at info level regardless of ENVIRONMENT")

	rootCmd.AddCommand(scanCmd, bundleCmd, catalogCmd, gridCmd, showCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("climsips failed")
		stop()
		os.Exit(1)
	}
}
