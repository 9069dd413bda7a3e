package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/use-agent/agentlens/analyzer"
	"github.com/use-agent/agentlens/config"
	"github.com/use-agent/agentlens/driver"
	"github.com/use-agent/agentlens/models"
	"github.com/use-agent/agentlens/report"
)

// NewAnalyzeCmd creates the analyze command.
func NewAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [url]",
		Short: "Analyze one page's pre-execution accessibility",
		Long: `Analyze captures the target before and after script execution on every
configured engine, classifies the script-dependent content, and prints a
scored report.

Examples:
  # Markdown report to stdout
  agentlens analyze https://shop.example.com/product/1

  # Stealth profile with JSON output
  agentlens analyze --mode stealth --json https://shop.example.com/

  # Write the report to a file
  agentlens analyze -o report.md https://shop.example.com/`,
		Args: cobra.ExactArgs(1),
		RunE: runAnalyzeCmd,
	}

	cmd.Flags().StringP("mode", "m", "full", "Analysis mode: quick, full, or stealth")
	cmd.Flags().BoolP("json", "j", false, "Output the raw report as JSON instead of Markdown")
	cmd.Flags().StringP("output", "o", "", "Write the report to a file instead of stdout")

	return cmd
}

func runAnalyzeCmd(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	initLogger(cfg.Log, getVerboseFlag(cmd))

	mode, _ := cmd.Flags().GetString("mode")
	target, err := models.NewTarget(args[0], mode)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	an, closeBrowser, err := newAnalyzer(cfg)
	if err != nil {
		return err
	}
	defer closeBrowser()

	rep := an.AnalyzeTarget(ctx, target)

	asJSON, _ := cmd.Flags().GetBool("json")
	outPath, _ := cmd.Flags().GetString("output")
	if err := writeReport(cmd, rep, asJSON, outPath); err != nil {
		return err
	}

	if rep.Error != nil {
		return fmt.Errorf("analysis failed: %s: %s", rep.Error.Code, rep.Error.Message)
	}
	return nil
}

// newAnalyzer launches the shared browser and wires the standard engine
// set. The returned func shuts the browser down.
func newAnalyzer(cfg *config.Config) (*analyzer.Analyzer, func(), error) {
	browser, err := driver.LaunchBrowser(cfg.Browser)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	return analyzer.NewFromBrowser(cfg, browser), browser.Close, nil
}

func writeReport(cmd *cobra.Command, rep *models.Report, asJSON bool, outPath string) error {
	out := cmd.OutOrStdout()
	if outPath != "" {
		if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
			return err
		}
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := f.Close(); cerr != nil {
				slog.Warn("report file close failed", "path", outPath, "error", cerr)
			}
		}()
		out = f
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	_, err := report.NewMarkdownWriter(out).Write(rep)
	return err
}
