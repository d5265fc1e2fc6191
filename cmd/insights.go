package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/coverage-cli/internal/model"
)

var insightsFlags struct {
	dataset string
	user    string
	office  string
	context string
	radius  float64
}

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Generate AI recommendations and SWOT analyses",
}

var insightsRecommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Recommend the best office for the current analysis",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		f := insightsFlags
		cd, err := loadContext(f.context)
		if err != nil {
			return err
		}

		env, err := initEnv(ctx, prometheus.NewRegistry())
		if err != nil {
			return err
		}
		defer env.Close()

		text, err := env.Insights.Recommend(ctx, f.user, f.dataset, insightsRadius(cmd), cd)
		if err != nil {
			return eris.Wrap(err, "insights recommend")
		}
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	},
}

var insightsSWOTCmd = &cobra.Command{
	Use:   "swot",
	Short: "Generate a SWOT analysis for one office",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		f := insightsFlags
		if f.office == "" {
			return eris.New("--office is required")
		}
		cd, err := loadContext(f.context)
		if err != nil {
			return err
		}

		env, err := initEnv(ctx, prometheus.NewRegistry())
		if err != nil {
			return err
		}
		defer env.Close()

		swot, err := env.Insights.SWOT(ctx, f.user, f.dataset, f.office, insightsRadius(cmd), cd)
		if err != nil {
			return eris.Wrap(err, "insights swot")
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(swot)
	},
}

func insightsRadius(cmd *cobra.Command) float64 {
	if cmd.Flags().Changed("radius") {
		return insightsFlags.radius
	}
	return cfg.Analysis.DefaultRadiusKM
}

// loadContext reads optional location context from a JSON file.
func loadContext(path string) (*model.ContextualData, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "read context file")
	}
	var cd model.ContextualData
	if err := json.Unmarshal(data, &cd); err != nil {
		return nil, eris.Wrapf(err, "parse context file %s", path)
	}
	return &cd, nil
}

func init() {
	pf := insightsCmd.PersistentFlags()
	pf.StringVar(&insightsFlags.dataset, "dataset", "", "dataset id (required)")
	pf.StringVar(&insightsFlags.user, "user", "", "owning user id (required)")
	pf.StringVar(&insightsFlags.context, "context", "", "JSON file with location context")
	pf.Float64Var(&insightsFlags.radius, "radius", 50, "radius in km (default from config)")
	_ = insightsCmd.MarkPersistentFlagRequired("dataset")
	_ = insightsCmd.MarkPersistentFlagRequired("user")
	insightsSWOTCmd.Flags().StringVar(&insightsFlags.office, "office", "", "office id (required)")

	insightsCmd.AddCommand(insightsRecommendCmd, insightsSWOTCmd)
	rootCmd.AddCommand(insightsCmd)
}
