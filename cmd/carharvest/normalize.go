package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/carharvest/internal/pipeline"
	"github.com/IshaanNene/carharvest/internal/storage"
	"github.com/IshaanNene/carharvest/internal/translate"
)

func normalizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "normalize",
		Short: "Normalize the stored listings into a flat table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			return a.normalize()
		},
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output table path")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "", "output format: csv or jsonl")
	cmd.Flags().StringVar(&translations, "dictionary", "", "translation table (.json or .yaml)")
	cmd.Flags().StringVar(&colorStrategy, "color-strategy", "", "color derivation: regex or split")
	return cmd
}

func (a *app) normalize() error {
	dict, err := translate.Load(a.cfg.Normalize.TranslationFile)
	if err != nil {
		return fmt.Errorf("load translations: %w", err)
	}

	store, err := a.recordStore()
	if err != nil {
		return err
	}

	listings, err := store.All(a.ctx)
	if err != nil {
		return fmt.Errorf("read %s: %w", a.cfg.CollectionName(), err)
	}

	n, err := pipeline.NewNormalizer(dict, a.logger,
		pipeline.WithColorStrategy(a.cfg.Normalize.ColorStrategy),
		pipeline.WithFailureRecorder(a.failures),
		pipeline.WithMetrics(a.metrics),
	)
	if err != nil {
		return err
	}

	table, report, err := n.Normalize(listings)
	if err != nil {
		return err
	}

	if err := storage.WriteTable(a.cfg.Normalize.OutputPath, a.cfg.Normalize.OutputFormat, table, a.logger); err != nil {
		return fmt.Errorf("write table: %w", err)
	}

	fmt.Println()
	fmt.Println("═══ Normalization Complete ═══")
	fmt.Printf("  Schema:     v%d\n", report.SchemaVersion)
	fmt.Printf("  Input:      %d records (%d terms)\n", report.InputRows, dict.Len())
	fmt.Printf("  Filtered:   %d (no price)\n", report.Filtered)
	fmt.Printf("  Excluded:   %d\n", len(report.Excluded))
	fmt.Printf("  Written:    %d rows, %d columns\n", report.OutputRows, len(table.Header()))
	fmt.Printf("  Output:     %s (%s)\n", a.cfg.Normalize.OutputPath, a.cfg.Normalize.OutputFormat)
	fmt.Printf("  Elapsed:    %s\n", report.Elapsed.Round(time.Millisecond))
	for _, ex := range report.Excluded {
		fmt.Printf("    %s  [%s] %v\n", ex.Key, ex.Step, ex.Err)
	}
	return nil
}
