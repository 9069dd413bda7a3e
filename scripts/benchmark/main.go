// Benchmark drives the analyze endpoint across a fixed set of site types
// and reports average score, confidence, and latency per target.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"
)

// CLI flags
var (
	apiURL = flag.String("api-url", "http://localhost:8080", "Agentlens API base URL")
	apiKey = flag.String("api-key", "", "API key for authenticated requests")
	runs   = flag.Int("runs", 3, "Number of runs per URL for averaging")
	mode   = flag.String("mode", "full", "Analysis mode: quick, full, or stealth")
	output = flag.String("output", "benchmark-results.json", "JSON output file path")
)

// Test URLs covering 5 rendering profiles.
var testURLs = []struct {
	Label string
	URL   string
}{
	{"Static", "https://example.com"},
	{"Blog", "https://go.dev/blog/go1.21"},
	{"Docs", "https://go.dev/doc/effective_go"},
	{"News", "https://www.bbc.com/news"},
	{"SPA", "https://github.com/go-rod/rod"},
}

// --- Request / Response types (mirrors models package) ---

type analyzeRequest struct {
	URL     string `json:"url"`
	Mode    string `json:"mode,omitempty"`
	NoCache bool   `json:"no_cache"`
}

type analyzeResponse struct {
	Success bool         `json:"success"`
	Report  *report      `json:"report"`
	Error   *errorDetail `json:"error,omitempty"`
}

type report struct {
	Runs []struct {
		Status      string  `json:"status"`
		RawLength   int     `json:"raw_length"`
		DiffPercent float64 `json:"diff_percent"`
		DurationMs  int64   `json:"duration_ms"`
	} `json:"runs"`
	Score struct {
		Value       float64 `json:"value"`
		Confidence  float64 `json:"confidence"`
		Consistency string  `json:"consistency"`
	} `json:"score"`
	Recommendations []struct {
		Severity string `json:"severity"`
	} `json:"recommendations"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// --- Benchmark result types ---

type runResult struct {
	Run             int     `json:"run"`
	TotalMs         int64   `json:"total_ms"`
	Score           float64 `json:"score"`
	Confidence      float64 `json:"confidence"`
	Consistency     string  `json:"consistency"`
	DiffPercent     float64 `json:"diff_percent"`
	Recommendations int     `json:"recommendations"`
	EnginesOK       int     `json:"engines_ok"`
	Success         bool    `json:"success"`
	Error           string  `json:"error,omitempty"`
}

type urlAverages struct {
	TotalMs     float64 `json:"total_ms"`
	Score       float64 `json:"score"`
	Confidence  float64 `json:"confidence"`
	DiffPercent float64 `json:"diff_percent"`
}

type urlResult struct {
	URL      string       `json:"url"`
	Label    string       `json:"label"`
	Runs     []runResult  `json:"runs"`
	Averages *urlAverages `json:"averages,omitempty"`
}

type benchmarkReport struct {
	Timestamp  string      `json:"timestamp"`
	APIURL     string      `json:"api_url"`
	Mode       string      `json:"mode"`
	RunsPerURL int         `json:"runs_per_url"`
	Results    []urlResult `json:"results"`
}

func main() {
	flag.Parse()

	fmt.Println("=== Agentlens Benchmark Suite ===")
	fmt.Printf("API URL:   %s\n", *apiURL)
	fmt.Printf("Mode:      %s\n", *mode)
	fmt.Printf("Runs/URL:  %d\n", *runs)
	fmt.Printf("Output:    %s\n", *output)
	fmt.Println()

	// Quick connectivity check.
	if err := checkAPI(*apiURL); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot reach API at %s: %v\n", *apiURL, err)
		fmt.Fprintf(os.Stderr, "Make sure the agentlens server is running (agentlens serve)\n")
		os.Exit(1)
	}

	report := benchmarkReport{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		APIURL:     *apiURL,
		Mode:       *mode,
		RunsPerURL: *runs,
	}

	for _, t := range testURLs {
		fmt.Printf("Benchmarking [%s] %s ...\n", t.Label, t.URL)
		ur := urlResult{URL: t.URL, Label: t.Label}

		for i := 1; i <= *runs; i++ {
			fmt.Printf("  Run %d/%d ... ", i, *runs)
			rr := benchmarkURL(t.URL, i)
			if rr.Success {
				fmt.Printf("OK  %dms  score %.0f (confidence %.0f%%)\n", rr.TotalMs, rr.Score, rr.Confidence)
			} else {
				fmt.Printf("FAILED: %s\n", rr.Error)
			}
			ur.Runs = append(ur.Runs, rr)
		}

		ur.Averages = computeAverages(ur.Runs)
		report.Results = append(report.Results, ur)
		fmt.Println()
	}

	// Print summary table.
	printTable(report.Results)

	// Write JSON report.
	if err := writeJSON(*output, report); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing JSON output: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nDetailed results written to %s\n", *output)
}

func checkAPI(baseURL string) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(baseURL + "/api/v1/health")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func benchmarkURL(url string, run int) runResult {
	rr := runResult{Run: run}

	// no_cache keeps every run an end-to-end measurement.
	reqBody := analyzeRequest{
		URL:     url,
		Mode:    *mode,
		NoCache: true,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		rr.Error = fmt.Sprintf("marshal error: %v", err)
		return rr
	}

	req, err := http.NewRequest("POST", *apiURL+"/api/v1/analyze", bytes.NewReader(bodyBytes))
	if err != nil {
		rr.Error = fmt.Sprintf("request error: %v", err)
		return rr
	}
	req.Header.Set("Content-Type", "application/json")
	if *apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+*apiKey)
	}

	start := time.Now()
	client := &http.Client{Timeout: 300 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		rr.Error = fmt.Sprintf("request failed: %v", err)
		return rr
	}
	defer resp.Body.Close()
	rr.TotalMs = time.Since(start).Milliseconds()

	var ar analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		rr.Error = fmt.Sprintf("decode error: %v", err)
		return rr
	}

	rr.Success = ar.Success
	if ar.Report != nil {
		rr.Score = ar.Report.Score.Value
		rr.Confidence = ar.Report.Score.Confidence
		rr.Consistency = ar.Report.Score.Consistency
		rr.Recommendations = len(ar.Report.Recommendations)

		var diffSum float64
		for _, r := range ar.Report.Runs {
			if r.Status == "success" {
				rr.EnginesOK++
				diffSum += r.DiffPercent
			}
		}
		if rr.EnginesOK > 0 {
			rr.DiffPercent = diffSum / float64(rr.EnginesOK)
		}
	}

	if ar.Error != nil {
		rr.Error = ar.Error.Message
	}

	return rr
}

func computeAverages(runs []runResult) *urlAverages {
	var successCount int
	var avg urlAverages

	for _, r := range runs {
		if !r.Success {
			continue
		}
		successCount++
		avg.TotalMs += float64(r.TotalMs)
		avg.Score += r.Score
		avg.Confidence += r.Confidence
		avg.DiffPercent += r.DiffPercent
	}

	if successCount == 0 {
		return nil
	}

	n := float64(successCount)
	avg.TotalMs /= n
	avg.Score /= n
	avg.Confidence /= n
	avg.DiffPercent /= n
	return &avg
}

func printTable(results []urlResult) {
	fmt.Println(strings.Repeat("─", 85))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "URL\tAvg Latency\tScore\tConfidence\tContent Diff\n")
	fmt.Fprintf(w, "───\t───────────\t─────\t──────────\t────────────\n")

	for _, r := range results {
		if r.Averages == nil {
			fmt.Fprintf(w, "%s\tFAILED\t-\t-\t-\n", truncateURL(r.URL, 40))
			continue
		}

		fmt.Fprintf(w, "%s\t%dms\t%.0f/100\t%.0f%%\t%+.1f%%\n",
			truncateURL(r.URL, 40),
			int64(r.Averages.TotalMs),
			r.Averages.Score,
			r.Averages.Confidence,
			r.Averages.DiffPercent,
		)
	}

	w.Flush()
	fmt.Println(strings.Repeat("─", 85))
}

func truncateURL(u string, max int) string {
	if len(u) <= max {
		return u
	}
	return u[:max-3] + "..."
}

func writeJSON(path string, report benchmarkReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
