package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/use-agent/agentlens/config"
	"github.com/use-agent/agentlens/report"
)

// NewBatchCmd creates the batch command.
func NewBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch [urls...]",
		Short: "Analyze multiple pages under one deadline",
		Long: `Batch analyzes targets sequentially with a politeness delay between
them and a single wall-clock deadline over the whole run. Targets past
the per-invocation cap are reported as deferred, never silently dropped.

Examples:
  # Analyze a list of URLs
  agentlens batch https://a.example.com/ https://b.example.com/

  # Read targets from a file, one URL per line
  agentlens batch --file targets.txt

  # JSON output for machine consumption
  agentlens batch --json --file targets.txt`,
		Args: cobra.ArbitraryArgs,
		RunE: runBatchCmd,
	}

	cmd.Flags().StringP("mode", "m", "full", "Analysis mode: quick, full, or stealth")
	cmd.Flags().StringP("file", "f", "", "Read target URLs from a file, one per line")
	cmd.Flags().BoolP("json", "j", false, "Output results as JSON instead of a Markdown summary")

	return cmd
}

func runBatchCmd(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	initLogger(cfg.Log, getVerboseFlag(cmd))

	urls, err := collectTargets(cmd, args)
	if err != nil {
		return err
	}
	if len(urls) == 0 {
		return fmt.Errorf("no targets: pass URLs as arguments or via --file")
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	an, closeBrowser, err := newAnalyzer(cfg)
	if err != nil {
		return err
	}
	defer closeBrowser()

	mode, _ := cmd.Flags().GetString("mode")
	res := an.AnalyzeBatch(ctx, urls, mode)

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	rows := make([]report.Row, 0, len(res.Reports))
	for _, rep := range res.Reports {
		rows = append(rows, report.BuildRow(rep))
	}
	if err := report.WriteBatchSummary(cmd.OutOrStdout(), rows); err != nil {
		return err
	}

	if len(res.Deferred) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "\n%d target(s) deferred:\n", len(res.Deferred))
		for _, u := range res.Deferred {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", u)
		}
	}
	if res.TimedOut {
		return fmt.Errorf("batch deadline exceeded; %d target(s) deferred", len(res.Deferred))
	}
	return nil
}

// collectTargets merges positional URLs with the optional --file list.
func collectTargets(cmd *cobra.Command, args []string) ([]string, error) {
	urls := append([]string{}, args...)

	path, _ := cmd.Flags().GetString("file")
	if path == "" {
		return urls, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open target file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read target file: %w", err)
	}
	return urls, nil
}
