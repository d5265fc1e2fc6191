package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var importUser string

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a supplier CSV or XLSX file as a new dataset",
	Long:  "Reads supplier_name and supplier_coords (\"lat,lon\") columns and stores the rows as a dataset. Prints the dataset id.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if importUser == "" {
			return eris.New("--user is required")
		}

		f, err := os.Open(args[0])
		if err != nil {
			return eris.Wrap(err, "import: open file")
		}
		defer f.Close() //nolint:errcheck

		env, err := initEnv(ctx, prometheus.NewRegistry())
		if err != nil {
			return err
		}
		defer env.Close()

		ds, err := env.Analysis.ImportDataset(ctx, importUser, filepath.Base(args[0]), f)
		if err != nil {
			return eris.Wrap(err, "import")
		}

		zap.L().Info("import complete",
			zap.String("dataset_id", ds.ID),
			zap.Int("suppliers", ds.TotalSuppliers),
		)
		fmt.Fprintln(cmd.OutOrStdout(), ds.ID)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importUser, "user", "", "owning user id (required)")
	rootCmd.AddCommand(importCmd)
}
