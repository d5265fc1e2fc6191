package main

import (
	"bytes"
	"context"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/coverage-cli/internal/export"
)

var exportFlags struct {
	dataset string
	user    string
	office  string
	radius  float64
	format  string
	out     string
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the current analysis as CSV, XLSX, PDF, PNG or GeoJSON",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		f := exportFlags
		if f.dataset == "" || f.user == "" {
			return eris.New("--dataset and --user are required")
		}
		format, err := export.ParseFormat(f.format)
		if err != nil {
			return err
		}
		radius := f.radius
		if !cmd.Flags().Changed("radius") {
			radius = cfg.Analysis.DefaultRadiusKM
		}

		env, err := initEnv(ctx, prometheus.NewRegistry())
		if err != nil {
			return err
		}
		defer env.Close()

		var buf bytes.Buffer
		if err := renderExport(ctx, env, &buf, format, radius); err != nil {
			return err
		}

		out := f.out
		if out == "" {
			out = export.Filename(radius, format, time.Now())
		}
		if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
			return eris.Wrap(err, "export: write file")
		}
		zap.L().Info("export written", zap.String("path", out), zap.Int("bytes", buf.Len()))
		return nil
	},
}

func renderExport(ctx context.Context, env *appEnv, buf *bytes.Buffer, format export.Format, radius float64) error {
	f := exportFlags
	if format == export.FormatGeoJSON {
		if f.office == "" {
			return eris.New("--office is required for geojson")
		}
		office, distances, err := env.Analysis.SupplierDistances(ctx, f.user, f.dataset, f.office, radius)
		if err != nil {
			return err
		}
		return export.WriteOverlay(buf, *office, radius, distances)
	}

	run, recs, err := env.Analysis.Current(ctx, f.user, f.dataset, radius)
	if err != nil {
		return err
	}
	var opts export.Options
	if len(recs) > 0 {
		opts.Recommendation = recs[0].AIRecommendation
	}
	return export.Write(buf, format, run, opts)
}

func init() {
	fs := exportCmd.Flags()
	fs.StringVar(&exportFlags.dataset, "dataset", "", "dataset id (required)")
	fs.StringVar(&exportFlags.user, "user", "", "owning user id (required)")
	fs.StringVar(&exportFlags.office, "office", "", "office id (geojson only)")
	fs.Float64Var(&exportFlags.radius, "radius", 50, "radius in km (default from config)")
	fs.StringVar(&exportFlags.format, "format", "csv", "csv, xlsx, pdf, png or geojson")
	fs.StringVar(&exportFlags.out, "out", "", "output path (default office_analysis_<r>km_<date>.<ext>)")
	rootCmd.AddCommand(exportCmd)
}
