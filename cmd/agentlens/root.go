package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/use-agent/agentlens/config"
)

// NewRootCmd creates the root command for agentlens.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agentlens",
		Short: "Measure how much of a page exists before script execution",
		Long: `agentlens analyzes how accessible a web page is to script-less agents.

It captures the page twice — once as served over plain HTTP (what an agent
without script execution sees) and once fully rendered in a headless
browser — then diffs the two, classifies what content only exists after
script execution, and reduces the findings to a 0-100 accessibility score
with concrete recommendations.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewAnalyzeCmd())
	cmd.AddCommand(NewBatchCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initLogger configures slog from LogConfig; --verbose forces debug.
func initLogger(cfg config.LogConfig, verbose bool) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}

func getVerboseFlag(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("verbose")
	return v
}
