package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tensorplex-labs/climsips/internal/catalog"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List the known ensembles, regions and metric choices",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, _ := cmd.Flags().GetString("catalog")
		if path == "" {
			path = appCfg.Data.Catalog
		}
		cat, err := catalog.Load(path)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "choices: %s\n", strings.Join(cat.Choices, ", "))
		for _, name := range cat.EnsembleNames() {
			e := cat.Ensembles[name]
			fmt.Fprintf(out, "%-14s %s\n", name, e.Description)
			fmt.Fprintf(out, "%-14s regions: %s\n", "", strings.Join(e.Regions, ", "))
			if len(e.Members) > 0 {
				fmt.Fprintf(out, "%-14s members: %d\n", "", len(e.Members))
			}
		}
		return nil
	},
}

func init() {
	catalogCmd.Flags().String("catalog", "", "catalog yaml; the built-in catalog when empty")
}
