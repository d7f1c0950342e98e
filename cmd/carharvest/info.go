package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/carharvest/internal/config"
	"github.com/IshaanNene/carharvest/internal/pipeline"
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("carharvest %s\n", config.Version)
			fmt.Printf("  Go:      %s\n", runtime.Version())
			fmt.Printf("  OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
			fmt.Printf("  Schema:  v%d\n", pipeline.SchemaVersion)
		},
	}
}

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := applyCLIOverrides(cfg); err != nil {
				return err
			}
			fmt.Println("═══ carharvest Configuration ═══")
			fmt.Printf("\n[Catalog]\n")
			fmt.Printf("  Model:          %s\n", cfg.Catalog.Model)
			fmt.Printf("  Root URL:       %s\n", cfg.Catalog.RootURL)
			fmt.Printf("  Link file:      %s\n", cfg.Catalog.LinkFile)
			fmt.Printf("  Page format:    %s\n", cfg.Catalog.PagePathFormat)
			fmt.Printf("\n[Engine]\n")
			fmt.Printf("  Timeout:        %s\n", cfg.Engine.RequestTimeout)
			fmt.Printf("  Limit:          %d\n", cfg.Engine.Limit)
			fmt.Printf("\n[Fetcher]\n")
			fmt.Printf("  Type:           %s\n", cfg.Fetcher.Type)
			fmt.Printf("  User-Agent:     %s\n", cfg.Fetcher.UserAgent)
			fmt.Printf("  Stealth:        %v\n", cfg.Fetcher.Stealth)
			fmt.Printf("\n[Storage]\n")
			fmt.Printf("  Type:           %s\n", cfg.Storage.Type)
			fmt.Printf("  Collection:     %s\n", cfg.CollectionName())
			fmt.Printf("\n[Normalize]\n")
			fmt.Printf("  Dictionary:     %s\n", cfg.Normalize.TranslationFile)
			fmt.Printf("  Output:         %s (%s)\n", cfg.Normalize.OutputPath, cfg.Normalize.OutputFormat)
			fmt.Printf("  Color strategy: %s\n", cfg.Normalize.ColorStrategy)
			fmt.Printf("\n[Logging]\n")
			fmt.Printf("  Level:          %s\n", cfg.Logging.Level)
			fmt.Printf("  Format:         %s\n", cfg.Logging.Format)
			fmt.Printf("  Failure log:    %s\n", cfg.Logging.FailureLog)
			fmt.Printf("\n[Metrics]\n")
			fmt.Printf("  Enabled:        %v\n", cfg.Metrics.Enabled)
			fmt.Printf("  Port:           %d\n", cfg.Metrics.Port)
			return nil
		},
	}
}
