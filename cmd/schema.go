package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"vocab-loader/feature/cdm/schema"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// schemaCmd groups the schema commands.
var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Create or check the CDM tables used by the loader",
}

var schemaCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create the vocabulary, concept_class, concept, source_to_concept_map and stcm_version tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(true)
		if err != nil {
			return err
		}
		defer a.close()

		if err := schema.Create(a.db); err != nil {
			return err
		}
		a.log.Info("Schema created", zap.String("driver", a.cfg.Database.Driver))
		return nil
	},
}

var schemaCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Report missing tables and columns",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(true)
		if err != nil {
			return err
		}
		defer a.close()

		report, err := schema.Check(a.db)
		if err != nil {
			return err
		}

		jsonOutput, _ := cmd.Flags().GetBool("json")
		if jsonOutput {
			data, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal JSON: %w", err)
			}
			fmt.Fprintln(os.Stdout, string(data))
		}

		tables := make([]string, 0, len(report.Tables))
		for table := range report.Tables {
			tables = append(tables, table)
		}
		sort.Strings(tables)
		for _, table := range tables {
			tbl := report.Tables[table]
			switch {
			case tbl.Missing:
				a.log.Error("Table missing", zap.String("table", table))
			case len(tbl.MissingColumns) > 0:
				a.log.Error("Table is missing columns", zap.String("table", table), zap.Strings("columns", tbl.MissingColumns))
			default:
				a.log.Debug("Table ok", zap.String("table", table))
			}
		}

		if !report.Matched {
			return fmt.Errorf("schema does not match; run `vocab-loader schema create`")
		}
		a.log.Info("Schema matches", zap.String("driver", report.Driver))
		return nil
	},
}

func init() {
	schemaCheckCmd.Flags().Bool("json", false, "Print the report as JSON")
	schemaCmd.AddCommand(schemaCreateCmd, schemaCheckCmd)
	RootCmd.AddCommand(schemaCmd)
}
