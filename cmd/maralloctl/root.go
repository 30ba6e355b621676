package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/joshuapare/maralloc/brk"
	"github.com/joshuapare/maralloc/internal/logger"
	"github.com/joshuapare/maralloc/malloc"
)

var (
	// Global flags
	verbose    bool
	quiet      bool
	jsonOut    bool
	logEnabled bool
	logDir     string
	arenaSize  string
	prefault   bool
)

var rootCmd = &cobra.Command{
	Use:   "maralloctl",
	Short: "Exercise and inspect the maralloc first-fit allocator",
	Long: `maralloctl drives a maralloc heap over an emulated program break.
It can replay the reference allocation scenario, run a concurrent
workload, and export the allocator counters in Prometheus text format.`,
	Version:            version,
	SilenceUsage:       true,
	PersistentPreRunE:  initLogging,
	PersistentPostRunE: closeLogging,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&logEnabled, "log", false, "Append JSON logs to maralloc.log")
	rootCmd.PersistentFlags().
		StringVar(&logDir, "log-dir", "", "Directory for the log file (default ~/.maralloc)")
	rootCmd.PersistentFlags().
		StringVar(&arenaSize, "arena", "64MiB", "Address space reserved for the heap")
	rootCmd.PersistentFlags().
		BoolVar(&prefault, "prefault", false, "Pre-fault pages as the break grows")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		_ = logger.Close()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initLogging(*cobra.Command, []string) error {
	if !logEnabled {
		return nil
	}
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	if err := logger.Init(logger.Options{Enabled: true, LogDir: logDir, Level: level}); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	return nil
}

func closeLogging(*cobra.Command, []string) error {
	return logger.Close()
}

// parseSize parses a humanized byte count such as "64MiB" or "4k".
func parseSize(s string) (int, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if n == 0 || n > math.MaxInt {
		return 0, fmt.Errorf("invalid size %q: out of range", s)
	}
	return int(n), nil
}

// openHeap reserves an arena sized by --arena and builds a heap over it.
// The caller must Close the arena once the heap is no longer used.
func openHeap() (*malloc.Heap, *brk.Arena, error) {
	capacity, err := parseSize(arenaSize)
	if err != nil {
		return nil, nil, err
	}

	opts := []brk.Option{brk.WithLogger(logger.L)}
	if prefault {
		opts = append(opts, brk.WithPrefault())
	}
	a, err := brk.Open(capacity, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to reserve arena: %w", err)
	}

	h, err := malloc.New(a, malloc.WithLogger(logger.L))
	if err != nil {
		_ = a.Close()
		return nil, nil, fmt.Errorf("failed to create heap: %w", err)
	}
	printVerbose("Reserved %s arena at %p\n", humanize.IBytes(uint64(a.Cap())), a.Base())
	return h, a, nil
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...any) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...any) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
