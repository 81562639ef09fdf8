package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tensorplex-labs/climsips/internal/scan"
)

var gridCmd = &cobra.Command{
	Use:   "grid",
	Short: "List the grid points a scan would evaluate",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		alphaSteps, betaSteps := appCfg.Scan.AlphaSteps, appCfg.Scan.BetaSteps
		if cmd.Flags().Changed("alpha-steps") {
			alphaSteps, _ = cmd.Flags().GetInt("alpha-steps")
		}
		if cmd.Flags().Changed("beta-steps") {
			betaSteps, _ = cmd.Flags().GetInt("beta-steps")
		}

		points, err := scan.Grid(alphaSteps, betaSteps)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, p := range points {
			fmt.Fprintf(out, "%3d %3d  alpha=%-6.4g beta=%-6.4g perf=%.4g\n",
				p.AlphaIdx, p.BetaIdx, p.Alpha, p.Beta, 1-p.Alpha-p.Beta)
		}
		fmt.Fprintf(out, "%d grid points\n", len(points))
		return nil
	},
}

func init() {
	gridCmd.Flags().Int("alpha-steps", 0, "alpha grid resolution (env CLIMSIPS_ALPHA_STEPS)")
	gridCmd.Flags().Int("beta-steps", 0, "beta grid resolution (env CLIMSIPS_BETA_STEPS)")
}
