package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tensorplex-labs/climsips/internal/catalog"
	"github.com/tensorplex-labs/climsips/internal/dataset"
)

var bundleCmd = &cobra.Command{
	Use:   "bundle <predictors.json> <bundle.json[.zst]>",
	Short: "Aggregate a predictor file into a metric bundle",
	Long: "bundle aggregates a predictor file into a metric bundle. When the ensemble is " +
		"known to the catalog, the metric choice is applied first: EM averages every " +
		"initial-condition group into its ensemble mean, IM keeps one representative member per group.",
	Args: cobra.ExactArgs(2),
	RunE: runBundle,
}

func init() {
	f := bundleCmd.Flags()
	f.String("ensemble", "", "ensemble name; taken from the predictor file when empty")
	f.String("choice", "", "metric choice IM or EM; taken from the predictor file when empty")
	f.String("region", "", "season/region; taken from the predictor file when empty")
	f.String("catalog", "", "catalog yaml; the built-in catalog when empty (env CLIMSIPS_CATALOG)")
}

func runBundle(cmd *cobra.Command, args []string) error {
	src, dst := args[0], args[1]

	loader := dataset.NewLoader(appCfg.Data)
	pf, err := loader.LoadPredictors(cmd.Context(), src)
	if err != nil {
		return err
	}
	if pf, err = applyCatalogChoice(cmd, pf); err != nil {
		return err
	}
	b, err := dataset.BuildBundle(pf)
	if err != nil {
		return err
	}

	data, err := dataset.Encode(b)
	if err != nil {
		return err
	}
	if strings.HasSuffix(dst, ".zst") {
		if data, err = dataset.Compress(data); err != nil {
			return err
		}
	}
	if err := writeNewFile(dst, bytes.NewReader(data)); err != nil {
		return err
	}

	log.Info().Str("file", dst).Int("members", b.Len()).Str("choice", b.Choice).Msg("bundle written")
	return nil
}

// applyCatalogChoice resolves the target from the flags, falling back to the predictor
// file, and applies its metric choice. Files without an ensemble are used as they are.
func applyCatalogChoice(cmd *cobra.Command, pf *dataset.PredictorFile) (*dataset.PredictorFile, error) {
	f := cmd.Flags()
	ensemble := flagOr(cmd, "ensemble", pf.Ensemble)
	if ensemble == "" {
		return pf, nil
	}
	choice := flagOr(cmd, "choice", pf.Choice)
	if choice == "" {
		choice = catalog.ChoiceIndividual
	}

	path := appCfg.Data.Catalog
	if f.Changed("catalog") {
		path, _ = f.GetString("catalog")
	}
	cat, err := catalog.Load(path)
	if err != nil {
		return nil, err
	}
	t, err := cat.Target(ensemble, choice, flagOr(cmd, "region", pf.SeasonRegion), false)
	if err != nil {
		return nil, err
	}
	return dataset.ApplyChoice(pf, t)
}

func flagOr(cmd *cobra.Command, name, fallback string) string {
	if v, _ := cmd.Flags().GetString(name); v != "" {
		return v
	}
	return fallback
}

// writeNewFile copies src into dst, which must not exist yet. A partial dst is removed.
func writeNewFile(dst string, src io.Reader) error {
	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("bundle %s already exists", dst)
		}
		return fmt.Errorf("failed to create bundle: %w", err)
	}
	if _, err := io.Copy(f, src); err != nil {
		_ = f.Close()
		_ = os.Remove(dst)
		return fmt.Errorf("failed to write bundle: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("failed to close bundle: %w", err)
	}
	return nil
}
