package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rbarroso/mlwatch/internal/browser"
	"github.com/rbarroso/mlwatch/internal/collector"
	"github.com/rbarroso/mlwatch/internal/config"
	"github.com/rbarroso/mlwatch/internal/pacing"
	"github.com/rbarroso/mlwatch/internal/report"
	"github.com/rbarroso/mlwatch/internal/storage"
	"github.com/rbarroso/mlwatch/internal/types"
)

var (
	cfgFile      string
	verbose      bool
	termsFile    string
	outputPath   string
	outputFormat string
	desiredCount int
	enrichLimit  int
	ownStores    string
	headful      bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mlwatch",
		Short: "mlwatch — marketplace price research for your own listings",
		Long: `mlwatch runs paced marketplace searches for a list of terms, captures
the leading listings with their prices and ad tiers, enriches them from
the product pages, and flags every competitor priced below your own
store's cheapest offer for the same term.

The browsing session is deliberately slow and sequential: randomized
delays, humanized scrolling, and a stealth-patched headless browser
keep the traffic signature close to a human shopper's.`,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// runCmd creates the "run" subcommand.
func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [term...]",
		Short: "Research a list of search terms",
		Long: `Research every given term in order. Terms come from the command line
or from a file (--terms): a .xlsx workbook is read from column A of its
first sheet, anything else as plain text with one term per line.`,
		RunE: runResearch,
	}

	cmd.Flags().StringVarP(&termsFile, "terms", "t", "", "terms file (.xlsx or plain text)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "report file path")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "", "report format: xlsx, json, jsonl")
	cmd.Flags().IntVarP(&desiredCount, "count", "n", 0, "results to capture per term (0 = config default)")
	cmd.Flags().IntVar(&enrichLimit, "enrich-limit", -1, "detail pages to visit per term (-1 = config default, 0 = all)")
	cmd.Flags().StringVar(&ownStores, "own-stores", "", "comma-separated own-store seller names")
	cmd.Flags().BoolVar(&headful, "headful", false, "run the browser with a visible window")

	return cmd
}

// runResearch executes the run command.
func runResearch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyCLIOverrides(cfg)

	logger := setupLogger(cfg)

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	terms, err := resolveTerms(args)
	if err != nil {
		return err
	}

	logger.Info("starting research run",
		"terms", len(terms),
		"count_per_term", cfg.Collect.DesiredCount,
		"output", cfg.Output.Path,
		"format", cfg.Output.Format,
	)

	sink, err := storage.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create output sink: %w", err)
	}

	pacer := pacing.New(cfg.Pacing, logger)

	session, err := browser.New(cfg, pacer, logger)
	if err != nil {
		return fmt.Errorf("start browser: %w", err)
	}
	defer session.Close()

	coll := collector.New(session, cfg, pacer, logger,
		collector.WithProgress(printProgress),
		collector.WithWarn(printWarning),
	)

	// Graceful shutdown: first signal stops after the current term,
	// keeping everything finalized so far.
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, finishing current term...", "signal", sig)
		cancel()
	}()

	start := time.Now()
	table, summary, runErr := coll.Run(ctx, terms)

	// Partial results are still results; write them even when the run
	// aborted on the block threshold.
	if len(table) > 0 {
		if err := sink.Store(table); err != nil {
			return fmt.Errorf("store results: %w", err)
		}
	}
	if err := sink.Close(); err != nil {
		return fmt.Errorf("finalize output: %w", err)
	}

	elapsed := time.Since(start)
	logger.Info("run complete",
		"elapsed", elapsed,
		"terms", summary.TermsProcessed,
		"records", summary.RecordsCollected,
		"abandoned", summary.Abandoned,
		"blocked_terms", len(summary.BlockedTerms),
	)

	fmt.Printf("\n✅ Research run complete in %s\n", elapsed.Round(time.Second))
	fmt.Printf("   Terms:     %d processed, %d blocked\n", summary.TermsProcessed, len(summary.BlockedTerms))
	fmt.Printf("   Records:   %d collected, %d detail pages abandoned\n", summary.RecordsCollected, summary.Abandoned)
	fmt.Printf("   Output:    %s\n", cfg.Output.Path)
	if len(summary.BlockedTerms) > 0 {
		fmt.Printf("   Blocked:   %s\n", strings.Join(summary.BlockedTerms, ", "))
	}

	if runErr != nil {
		return fmt.Errorf("run aborted: %w", runErr)
	}
	return nil
}

// resolveTerms merges the terms file and positional arguments.
func resolveTerms(args []string) ([]string, error) {
	var terms []string
	if termsFile != "" {
		fileTerms, err := report.ReadTerms(termsFile)
		if err != nil {
			return nil, err
		}
		terms = fileTerms
	}
	for _, a := range args {
		if a = strings.TrimSpace(a); a != "" {
			terms = append(terms, a)
		}
	}
	if len(terms) == 0 {
		return nil, fmt.Errorf("no search terms: pass them as arguments or via --terms")
	}
	return terms, nil
}

func printProgress(p types.Progress) {
	switch p.Status {
	case "searching":
		fmt.Printf("🔍 %s\n", p.Term)
	case "enriching":
		fmt.Printf("   %d listings, visiting detail pages...\n", p.Succeeded)
	case "done":
		fmt.Printf("   done: %d records\n", p.Succeeded)
	case "blocked":
		fmt.Printf("   ⚠ blocked: kept %d partial records\n", p.Succeeded)
	case "stopped":
		fmt.Printf("   stopped before %q\n", p.Term)
	}
}

func printWarning(w types.Warning) {
	fmt.Printf("   ⚠ [%s] %s: %s\n", w.Kind, w.Term, w.Message)
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("mlwatch %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			fmt.Printf("Site:\n")
			fmt.Printf("  Search Base:      %s\n", cfg.Site.SearchBase)
			fmt.Printf("  Page Size:        %d\n", cfg.Site.PageSize)
			fmt.Printf("\nBrowser:\n")
			fmt.Printf("  Headless:         %v\n", cfg.Browser.Headless)
			fmt.Printf("  Nav Timeout:      %s\n", cfg.Browser.NavTimeout)
			fmt.Printf("  Search Retries:   %d\n", cfg.Browser.SearchRetries)
			fmt.Printf("  Detail Retries:   %d\n", cfg.Browser.DetailRetries)
			fmt.Printf("\nCollect:\n")
			fmt.Printf("  Desired Count:    %d\n", cfg.Collect.DesiredCount)
			fmt.Printf("  Enrich Limit:     %d\n", cfg.Collect.EnrichLimit)
			fmt.Printf("  Block Threshold:  %d\n", cfg.Collect.BlockThreshold)
			fmt.Printf("\nPacing:\n")
			fmt.Printf("  Between Terms:    %s – %s\n", cfg.Pacing.BetweenTerms.Min, cfg.Pacing.BetweenTerms.Max)
			fmt.Printf("  Between Pages:    %s – %s\n", cfg.Pacing.BetweenPages.Min, cfg.Pacing.BetweenPages.Max)
			fmt.Printf("  Before Detail:    %s – %s\n", cfg.Pacing.BeforeDetail.Min, cfg.Pacing.BeforeDetail.Max)
			fmt.Printf("  Scroll:           %v\n", cfg.Pacing.Scroll)
			fmt.Printf("\nStores:\n")
			fmt.Printf("  Own:              %s\n", strings.Join(cfg.Stores.Own, ", "))
			fmt.Printf("\nOutput:\n")
			fmt.Printf("  Path:             %s\n", cfg.Output.Path)
			fmt.Printf("  Format:           %s\n", cfg.Output.Format)
			fmt.Printf("  Mongo Mirror:     %v\n", cfg.Output.Mongo.Enabled)
			return nil
		},
	}
}

// setupLogger creates the structured logger the configuration asks for.
func setupLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.ToLower(cfg.Logging.Format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// applyCLIOverrides applies command-line flag values to the config.
func applyCLIOverrides(cfg *config.Config) {
	if outputPath != "" {
		cfg.Output.Path = outputPath
	}
	if outputFormat != "" {
		cfg.Output.Format = strings.ToLower(outputFormat)
	}
	if desiredCount > 0 {
		cfg.Collect.DesiredCount = desiredCount
	}
	if enrichLimit >= 0 {
		cfg.Collect.EnrichLimit = enrichLimit
	}
	if ownStores != "" {
		var stores []string
		for _, s := range strings.Split(ownStores, ",") {
			if s = strings.TrimSpace(s); s != "" {
				stores = append(stores, s)
			}
		}
		cfg.Stores.Own = stores
	}
	if headful {
		cfg.Browser.Headless = false
	}
}
