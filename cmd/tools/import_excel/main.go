package main

import (
	"fmt"
	"os"
	"strings"

	"era-inventory-panel/internal"
	"era-inventory-panel/internal/config"
	"era-inventory-panel/internal/logging"
	"era-inventory-panel/pkg/importer"

	"github.com/spf13/cobra"
)

func main() {
	var (
		filePath    string
		entity      string
		mappingPath string
		dryRun      bool
		maxErrors   int
	)

	cmd := &cobra.Command{
		Use:   "import_excel",
		Short: "Import an Excel workbook into the inventory backend",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadAndValidate()
			if err != nil {
				return err
			}
			logging.Init(cfg.LogLevel, cfg.LogPretty)

			if entity != "" {
				ent, ok := cfg.Entity(entity)
				if !ok {
					return fmt.Errorf("unknown entity %q", entity)
				}
				entity = ent.Name
			}
			if mappingPath == "" {
				mappingPath = cfg.ImportMapping
			}

			client, err := internal.NewBackendClient(cfg, nil)
			if err != nil {
				return err
			}

			file, err := os.Open(filePath)
			if err != nil {
				return fmt.Errorf("open workbook: %w", err)
			}
			defer file.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Importing %s into %s (dry_run=%v)\n", filePath, cfg.BackendURL, dryRun)
			fmt.Fprintln(out, strings.Repeat("=", 60))

			summary, err := importer.ImportExcel(cmd.Context(), client, file, importer.ImportOptions{
				Entity:      entity,
				MappingPath: mappingPath,
				DryRun:      dryRun,
				MaxErrors:   maxErrors,
			})
			printSummary(cmd, summary)
			if err != nil {
				return fmt.Errorf("import failed: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&filePath, "file", "", "path to the .xlsx workbook")
	cmd.Flags().StringVar(&entity, "entity", "", "import every sheet into this entity instead of using the mapping")
	cmd.Flags().StringVar(&mappingPath, "mapping", "", "YAML mapping file (default: built-in mapping or IMPORT_MAPPING)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate without writing")
	cmd.Flags().IntVar(&maxErrors, "max-errors", 50, "stop after this many row errors")
	_ = cmd.MarkFlagRequired("file")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func printSummary(cmd *cobra.Command, summary importer.ImportSummary) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "\n"+strings.Repeat("=", 60))
	fmt.Fprintln(out, "IMPORT SUMMARY")
	fmt.Fprintln(out, strings.Repeat("=", 60))

	fmt.Fprintf(out, "Total inserted: %d\n", summary.Inserted)
	fmt.Fprintf(out, "Total updated: %d\n", summary.Updated)
	fmt.Fprintf(out, "Total skipped: %d\n", summary.Skipped)
	fmt.Fprintf(out, "Total errors: %d\n", summary.Errors)
	fmt.Fprintf(out, "Dry run: %v\n", summary.DryRun)

	if len(summary.Sheets) > 0 {
		fmt.Fprintln(out, "\nSheet Details:")
		for _, sheet := range summary.Sheets {
			fmt.Fprintf(out, "  %s: inserted=%d, updated=%d, skipped=%d, errors=%d\n",
				sheet.Name, sheet.Inserted, sheet.Updated, sheet.Skipped, sheet.Errors)
			for _, sample := range sheet.Samples {
				fmt.Fprintf(out, "      Row %d: %s\n", sample.Row, sample.Message)
			}
		}
	}
}
