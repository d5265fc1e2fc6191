package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/coverage-cli/internal/analysis"
	"github.com/sells-group/coverage-cli/internal/coverage"
	"github.com/sells-group/coverage-cli/internal/ingest"
	"github.com/sells-group/coverage-cli/internal/insights"
)

var analyzeFlags struct {
	suppliers string
	offices   string
	dataset   string
	user      string
	radius    float64
	format    string
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Rank offices by supplier coverage",
	Long: `Ranks offices by the number of suppliers within --radius km.

Offline:      analyze --suppliers suppliers.csv --offices offices.yaml
Store-backed: analyze --dataset <id> --user <id>   (persists the result)`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		f := analyzeFlags
		radius := f.radius
		if !cmd.Flags().Changed("radius") {
			radius = cfg.Analysis.DefaultRadiusKM
		}

		var (
			run coverage.Run
			err error
		)
		switch {
		case f.suppliers != "" && f.offices != "":
			run, err = analyzeFiles(ctx, f.suppliers, f.offices, radius)
		case f.dataset != "" && f.user != "":
			run, err = analyzeDataset(ctx, f.user, f.dataset, radius)
		default:
			return eris.New("either --suppliers and --offices, or --dataset and --user, are required")
		}
		if err != nil {
			return err
		}
		return writeRun(cmd.OutOrStdout(), run, f.format)
	},
}

func analyzeFiles(ctx context.Context, suppliersPath, officesPath string, radiusKM float64) (coverage.Run, error) {
	suppliers, err := ingest.ReadSuppliersFile(ctx, suppliersPath)
	if err != nil {
		return coverage.Run{}, err
	}
	offices, err := ingest.ReadOfficesFile(officesPath)
	if err != nil {
		return coverage.Run{}, err
	}
	return analysis.NewService(nil, cfg, nil).Compute(ctx, "", suppliers, offices, radiusKM)
}

func analyzeDataset(ctx context.Context, userID, datasetID string, radiusKM float64) (coverage.Run, error) {
	env, err := initEnv(ctx, prometheus.NewRegistry())
	if err != nil {
		return coverage.Run{}, err
	}
	defer env.Close()
	return env.Analysis.Recompute(ctx, userID, datasetID, radiusKM)
}

func writeRun(w io.Writer, run coverage.Run, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(run), "encode run")
	case "", "table":
		fmt.Fprintf(w, "Suppliers: %d  Offices: %d  Radius: %v km\n\n", run.TotalSuppliers, run.Offices, run.RadiusKM)
		fmt.Fprintln(w, insights.FormatRankingTable(run.Results))
		return nil
	default:
		return eris.Errorf("unsupported output format %q", format)
	}
}

func init() {
	fs := analyzeCmd.Flags()
	fs.StringVar(&analyzeFlags.suppliers, "suppliers", "", "supplier CSV/XLSX file (offline mode)")
	fs.StringVar(&analyzeFlags.offices, "offices", "", "office YAML file (offline mode)")
	fs.StringVar(&analyzeFlags.dataset, "dataset", "", "stored dataset id")
	fs.StringVar(&analyzeFlags.user, "user", "", "owning user id")
	fs.Float64Var(&analyzeFlags.radius, "radius", 50, "radius in km (default from config)")
	fs.StringVar(&analyzeFlags.format, "format", "table", "output format: table or json")
	rootCmd.AddCommand(analyzeCmd)
}
