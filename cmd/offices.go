package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/coverage-cli/internal/geo"
	"github.com/sells-group/coverage-cli/internal/ingest"
	"github.com/sells-group/coverage-cli/internal/model"
)

var officesUser string

var officesCmd = &cobra.Command{
	Use:   "offices",
	Short: "Manage candidate office locations",
}

// -- offices add --

var officesAddCmd = &cobra.Command{
	Use:   "add <name> <lat,lon>",
	Short: "Add a candidate office",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if officesUser == "" {
			return eris.New("--user is required")
		}
		loc, err := geo.ParseCoordinates(args[1])
		if err != nil {
			return err
		}

		env, err := initEnv(ctx, prometheus.NewRegistry())
		if err != nil {
			return err
		}
		defer env.Close()

		o, err := env.Analysis.AddOffice(ctx, officesUser, args[0], loc)
		if err != nil {
			return eris.Wrap(err, "offices add")
		}
		fmt.Fprintln(cmd.OutOrStdout(), o.ID)
		return nil
	},
}

// -- offices list --

var officesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List offices, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if officesUser == "" {
			return eris.New("--user is required")
		}

		env, err := initEnv(ctx, prometheus.NewRegistry())
		if err != nil {
			return err
		}
		defer env.Close()

		offices, err := env.Store.ListOffices(ctx, officesUser)
		if err != nil {
			return eris.Wrap(err, "offices list")
		}
		formatOffices(cmd.OutOrStdout(), offices)
		return nil
	},
}

// -- offices delete --

var officesDeleteCmd = &cobra.Command{
	Use:   "delete <office-id>",
	Short: "Delete an office",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if officesUser == "" {
			return eris.New("--user is required")
		}

		env, err := initEnv(ctx, prometheus.NewRegistry())
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Store.DeleteOffice(ctx, officesUser, args[0]); err != nil {
			return eris.Wrap(err, "offices delete")
		}
		zap.L().Info("office deleted", zap.String("office_id", args[0]))
		return nil
	},
}

// -- offices import --

var officesImportCmd = &cobra.Command{
	Use:   "import <offices.yaml>",
	Short: "Add every office listed in a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if officesUser == "" {
			return eris.New("--user is required")
		}

		offices, err := ingest.ReadOfficesFile(args[0])
		if err != nil {
			return err
		}

		env, err := initEnv(ctx, prometheus.NewRegistry())
		if err != nil {
			return err
		}
		defer env.Close()

		added := 0
		for _, o := range offices {
			if _, err := env.Analysis.AddOffice(ctx, officesUser, o.Name, o.Location); err != nil {
				return eris.Wrapf(err, "offices import: %s (added %d)", o.Name, added)
			}
			added++
		}
		zap.L().Info("offices imported", zap.Int("added", added))
		return nil
	},
}

func formatOffices(w io.Writer, offices []model.Office) {
	if len(offices) == 0 {
		fmt.Fprintln(w, "No offices found.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCOORDINATES\tCREATED")
	for _, o := range offices {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", o.ID, o.Name, geo.FormatCoordinates(o.Location), o.CreatedAt.Format("2006-01-02 15:04"))
	}
	tw.Flush() //nolint:errcheck
}

func init() {
	officesCmd.PersistentFlags().StringVar(&officesUser, "user", "", "owning user id (required)")
	officesCmd.AddCommand(officesAddCmd, officesListCmd, officesDeleteCmd, officesImportCmd)
	rootCmd.AddCommand(officesCmd)
}
