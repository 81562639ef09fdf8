package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tensorplex-labs/climsips/internal/results"
)

var showCmd = &cobra.Command{
	Use:   "show <result.csv>",
	Short: "Summarize a scan result file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rows, err := results.Read(args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		counts := map[string]int{}
		var order []string
		for _, r := range rows {
			fmt.Fprintf(out, "alpha=%-6.4g beta=%-6.4g min_val=%-10.4f %s\n",
				r.Alpha, r.Beta, r.MinVal, strings.Join(r.Members, " "))
			key := strings.Join(r.Members, " ")
			if counts[key] == 0 {
				order = append(order, key)
			}
			counts[key]++
		}

		fmt.Fprintf(out, "\n%d grid points, %d distinct subsets\n", len(rows), len(order))
		for _, key := range order {
			fmt.Fprintf(out, "%4d  %s\n", counts[key], key)
		}
		return nil
	},
}
