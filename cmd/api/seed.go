package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/firebase-recipes/recipes-api/internal/bootstrap"
	"github.com/firebase-recipes/recipes-api/internal/seed"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load recipes from a YAML file into the configured store",
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := seed.ParseFile(seedFile)
		if err != nil {
			return err
		}
		recipes, err := seed.Build(entries, time.Now())
		if err != nil {
			return err
		}

		backend, err := bootstrap.OpenBackend(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer backend.Close()

		ids, err := seed.Load(cmd.Context(), backend.Store, recipes, logger)
		if err != nil {
			return err
		}
		logger.Info("seed complete", zap.Int("created", len(ids)), zap.String("file", seedFile))
		fmt.Fprintf(cmd.OutOrStdout(), "created %d recipes\n", len(ids))
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "YAML file with a list of recipes")
	_ = seedCmd.MarkFlagRequired("file")
}
