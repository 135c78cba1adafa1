package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/pglist/internal/format"
	"github.com/joshuapare/pglist/internal/logger"
	"github.com/joshuapare/pglist/phys/printer"
	"github.com/joshuapare/pglist/phys/sim"
)

var (
	// Global flags
	verbose bool
	quiet   bool
	jsonOut bool
	debug   bool
	logDir  string

	// Machine flags
	segmentSpecs []string
	pageSizeFlag string
	colors       int
	cache        int
	fragment     int
	seed         int64
)

var rootCmd = &cobra.Command{
	Use:   "pgctl",
	Short: "Exercise a constrained physical page allocator",
	Long: `pgctl builds a simulated physical memory layout and runs the
constrained page-list allocator against it. Segments, page size, cached
(reclaimable) pages and fragmentation are set with global flags.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initLogging()
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Write debug logs")
	rootCmd.PersistentFlags().
		StringVar(&logDir, "log-dir", "", "Directory for log files (default ~/.pgctl/logs)")

	// Machine flags
	rootCmd.PersistentFlags().StringArrayVar(&segmentSpecs, "segment", nil,
		"Segment start-end[/availStart-availEnd][:class] (repeatable, default 0x0-0x10000)")
	rootCmd.PersistentFlags().StringVar(&pageSizeFlag, "page-size", "4K", "Page size")
	rootCmd.PersistentFlags().IntVar(&colors, "colors", 1, "Page colors per free class")
	rootCmd.PersistentFlags().IntVar(&cache, "cache", 0, "Pages held resident by the reclaim daemon")
	rootCmd.PersistentFlags().IntVar(&fragment, "fragment", 0, "Pin every Nth page of each segment")
	rootCmd.PersistentFlags().Int64Var(&seed, "seed", 1, "Reclaim and stress seed")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error("pgctl: command failed", "err", err)
		printError("%v\n", err)
		os.Exit(1)
	}
}

func initLogging() error {
	if !debug && logDir == "" {
		return nil
	}
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	if err := logger.Init(logger.Options{Enabled: true, LogDir: logDir, Level: level}); err != nil {
		return err
	}
	logger.Info("pgctl: logging enabled", "level", level.String(), "args", os.Args[1:])
	return nil
}

// buildMachine assembles a simulated machine from the global flags.
func buildMachine() (*sim.Machine, error) {
	ps, err := format.ParseSize(pageSizeFlag)
	if err != nil {
		return nil, err
	}
	regions, err := parseSegments(segmentSpecs)
	if err != nil {
		return nil, err
	}
	printVerbose("Building %d segment(s), page size %s\n", max(len(regions), 1), format.FormatSize(ps))
	logger.Debug("pgctl: build machine",
		"segments", len(regions), "page_size", ps, "cache", cache, "fragment", fragment)
	return sim.New(&sim.Config{
		Regions:  regions,
		PageSize: ps,
		Colors:   colors,
		Cache:    cache,
		Fragment: fragment,
		Seed:     seed,
		Logger:   logger.L,
	})
}

// newPrinter returns a printer for stdout honoring --json.
func newPrinter(w io.Writer) *printer.Printer {
	opts := printer.DefaultOptions()
	if jsonOut {
		opts.Format = printer.FormatJSON
	}
	opts.ShowPages = verbose
	return printer.New(w, opts)
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...any) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printError prints an error message
func printError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format, args...)
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...any) {
	if verbose && !quiet && !jsonOut {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
