package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/carharvest/internal/config"
	"github.com/IshaanNene/carharvest/internal/discovery"
	"github.com/IshaanNene/carharvest/internal/engine"
	"github.com/IshaanNene/carharvest/internal/extract"
	"github.com/IshaanNene/carharvest/internal/fetcher"
	"github.com/IshaanNene/carharvest/internal/parser"
	"github.com/IshaanNene/carharvest/internal/translate"
	"github.com/IshaanNene/carharvest/internal/types"
)

func discoverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "discover [root-url]",
		Short: "Collect listing links from the catalog into the link file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			_, err = a.discover(rootArg(a.cfg, args))
			return err
		},
	}
	addFetchFlags(cmd)
	cmd.Flags().StringVar(&linkFile, "link-file", "", "where to write discovered links")
	return cmd
}

func crawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [link-file]",
		Short: "Fetch and store every listing named in the link file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				linkFile = args[0]
			}
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			return a.crawl()
		},
	}
	addFetchFlags(cmd)
	addCrawlFlags(cmd)
	return cmd
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [root-url]",
		Short: "Discover listing links, then crawl them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.discover(rootArg(a.cfg, args)); err != nil {
				return err
			}
			return a.crawl()
		},
	}
	addFetchFlags(cmd)
	addCrawlFlags(cmd)
	cmd.Flags().StringVar(&linkFile, "link-file", "", "link file written by discovery and read by the crawl")
	return cmd
}

func addFetchFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&fetcherType, "fetcher", "", "fetcher type: http or browser")
	cmd.Flags().StringVar(&timeout, "timeout", "", "per-request timeout (e.g. 30s)")
}

func addCrawlFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "stop after this many fetches (0 = no limit)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "keep records in memory instead of the configured store")
	cmd.Flags().StringVar(&translations, "dictionary", "", "translation table (.json or .yaml)")
}

func rootArg(cfg *config.Config, args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return cfg.Catalog.RootURL
}

// discover runs link discovery from root and writes the link file.
func (a *app) discover(root string) (*discovery.Result, error) {
	if err := config.ValidateURL(root); err != nil {
		return nil, fmt.Errorf("invalid root URL %q: %w", root, err)
	}

	f, err := fetcher.New(a.cfg, a.logger)
	if err != nil {
		return nil, fmt.Errorf("create fetcher: %w", err)
	}
	defer f.Close()

	d := discovery.New(a.cfg, f, a.failures, a.metrics, a.logger)
	result, err := d.Discover(a.ctx, root)
	if result == nil {
		return nil, err
	}
	stopped := errors.Is(err, types.ErrCrawlStopped)
	if err != nil && !stopped {
		return nil, err
	}

	// A partial list must not replace a complete link file from an earlier run.
	if !stopped {
		if werr := discovery.WriteLinkFile(a.cfg.Catalog.LinkFile, result.URLs); werr != nil {
			return nil, fmt.Errorf("write link file: %w", werr)
		}
	}

	fmt.Println()
	fmt.Println("═══ Discovery Complete ═══")
	fmt.Printf("  Catalog:       %s\n", root)
	fmt.Printf("  Last page:     %d\n", result.LastPage)
	fmt.Printf("  Links:         %d\n", len(result.URLs))
	fmt.Printf("  Duplicates:    %d\n", result.Duplicates)
	fmt.Printf("  Pages failed:  %d\n", result.PagesFailed)
	fmt.Printf("  Link file:     %s\n", a.cfg.Catalog.LinkFile)
	fmt.Printf("  Elapsed:       %s\n", result.Elapsed.Round(time.Millisecond))
	if stopped {
		fmt.Println("  Stopped early; the link file was left untouched.")
		return result, err
	}
	return result, nil
}

// crawl fetches every URL of the link file into the record store.
func (a *app) crawl() error {
	f, err := fetcher.New(a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("create fetcher: %w", err)
	}
	defer f.Close()

	store, err := a.recordStore()
	if err != nil {
		return err
	}

	dict, err := translate.Load(a.cfg.Normalize.TranslationFile)
	if err != nil {
		return fmt.Errorf("load translations: %w", err)
	}

	p := parser.NewListingParser(&a.cfg.Catalog, extract.DefaultRuleSet(), dict, a.logger)
	ctrl := engine.NewController(&a.cfg.Engine, f, p, store, a.logger,
		engine.WithFailureRecorder(a.failures),
		engine.WithMetrics(a.metrics),
	)

	a.logger.Info("starting crawl",
		"link_file", a.cfg.Catalog.LinkFile,
		"store", store.Name(),
		"collection", a.cfg.CollectionName(),
		"limit", a.cfg.Engine.Limit,
	)

	summary, err := ctrl.Run(a.ctx, a.cfg.Catalog.LinkFile)
	if summary == nil {
		return err
	}

	fmt.Println()
	fmt.Println("═══ Crawl Complete ═══")
	fmt.Printf("  Store:      %s (%s)\n", store.Name(), a.cfg.CollectionName())
	fmt.Printf("  Processed:  %d\n", summary.Total)
	fmt.Printf("  Stored:     %d\n", summary.Stored)
	fmt.Printf("  Skipped:    %d\n", summary.Skipped)
	fmt.Printf("  Failed:     %d\n", summary.Failed)
	fmt.Printf("  Elapsed:    %s\n", summary.Elapsed.Round(time.Millisecond))
	if summary.Stopped {
		fmt.Println("  Stopped early; rerun to continue where it left off.")
	}
	if len(summary.Failures) > 0 {
		fmt.Printf("  Failures (see %s):\n", a.cfg.Logging.FailureLog)
		for _, r := range summary.Failures {
			fmt.Printf("    %s  %s\n", r.URL, r.Err)
		}
	}

	if errors.Is(err, types.ErrCrawlStopped) {
		return nil
	}
	return err
}
