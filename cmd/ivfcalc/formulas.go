package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/liamcoop/ivfsuccess/formulas"
	"github.com/liamcoop/ivfsuccess/internal/bootstrap"
	"github.com/liamcoop/ivfsuccess/internal/config"
)

func newFormulasCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "formulas",
		Short: "Inspect and manage the formula table",
	}
	cmd.AddCommand(newFormulasListCmd(v))
	cmd.AddCommand(newFormulasValidateCmd(v))
	cmd.AddCommand(newFormulasImportCmd(v))
	cmd.AddCommand(newFormulasExportCmd(v))
	return cmd
}

func newFormulasListCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the formulas in the configured table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			table, err := bootstrap.LoadTable(cmd.Context(), cfg)
			if err != nil {
				return classify(err)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "OWN EGGS\tPREVIOUS IVF\tREASON KNOWN\tFORMULA\tINTERCEPT")
			for _, key := range table.Keys() {
				rec, err := table.Lookup(key)
				if err != nil {
					return classify(err)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%g\n", key.UsingOwnEggs, key.PreviousIVF, key.ReasonKnown, rec.Formula, rec.Intercept)
			}
			return tw.Flush()
		},
	}
}

func newFormulasValidateCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [csv-file]",
		Short: "Check that a formula table is complete and well formed",
		Long: "Validate the configured formula table, or the given CSV file. " +
			"Every selector combination must be present exactly once and every coefficient must parse.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var src formulas.RowSource
			if len(args) == 1 {
				src = formulas.NewCSVSource(args[0])
			} else {
				cfg, err := loadConfig(v)
				if err != nil {
					return err
				}
				opened, closeSource, err := bootstrap.OpenSource(cmd.Context(), cfg)
				if err != nil {
					return classify(err)
				}
				defer closeSource()
				src = opened
			}

			table, err := formulas.Load(cmd.Context(), src)
			if err != nil {
				return classify(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d formulas, all selector combinations present\n", table.Len())
			return nil
		},
	}
}

func openSQLTarget(cmd *cobra.Command, cfg *config.Config) (*formulas.SQLSource, error) {
	switch cfg.FormulaSource {
	case config.SourceSQLite:
		return formulas.OpenSQLSource(cmd.Context(), formulas.DriverSQLite, "file:"+cfg.FormulaPath)
	case config.SourcePostgres:
		return formulas.OpenSQLSource(cmd.Context(), formulas.DriverPostgres, cfg.DatabaseURL)
	default:
		return nil, exitError(exitFailure, "formula source must be %s or %s, got %s", config.SourceSQLite, config.SourcePostgres, cfg.FormulaSource)
	}
}

func newFormulasImportCmd(v *viper.Viper) *cobra.Command {
	var createSchema bool

	cmd := &cobra.Command{
		Use:   "import <csv-file>",
		Short: "Replace the formulas in a SQLite or Postgres table with a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := formulas.NewCSVSource(args[0]).Rows(cmd.Context())
			if err != nil {
				return classify(err)
			}

			// Reject incomplete tables before touching the database
			table, err := formulas.Build(rows)
			if err != nil {
				return classify(err)
			}
			if err := table.Validate(); err != nil {
				return classify(err)
			}

			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			target, err := openSQLTarget(cmd, cfg)
			if err != nil {
				return classify(err)
			}
			defer target.Close()

			if createSchema {
				if err := target.EnsureSchema(cmd.Context()); err != nil {
					return classify(err)
				}
			}
			if err := target.Import(cmd.Context(), rows); err != nil {
				return classify(err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "imported %d formulas into %s\n", len(rows), cfg.FormulaSource)
			return nil
		},
	}

	cmd.Flags().BoolVar(&createSchema, "create-schema", true, "Create the formula table if it does not exist")
	return cmd
}

func newFormulasExportCmd(v *viper.Viper) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the configured formula table as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			src, closeSource, err := bootstrap.OpenSource(cmd.Context(), cfg)
			if err != nil {
				return classify(err)
			}
			defer closeSource()

			rows, err := src.Rows(cmd.Context())
			if err != nil {
				return classify(err)
			}

			w := cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return exitError(exitFailure, "failed to create %s: %v", out, err)
				}
				defer f.Close()
				w = f
			}
			return classify(formulas.WriteCSV(w, rows))
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "Output file path (default: stdout)")
	return cmd
}
