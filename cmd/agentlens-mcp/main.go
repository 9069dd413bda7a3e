// Command agentlens-mcp exposes the agentlens HTTP API as MCP tools over
// stdio, so agent frameworks can ask how accessible a page is to them.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// analyzeRequest mirrors the agentlens API request model.
type analyzeRequest struct {
	URL     string `json:"url"`
	Mode    string `json:"mode,omitempty"`
	NoCache bool   `json:"no_cache,omitempty"`
}

// reportPayload mirrors the fields of the API report this server renders.
type reportPayload struct {
	Target struct {
		URL  string `json:"url"`
		Mode string `json:"mode"`
	} `json:"target"`
	Runs []struct {
		EngineID    string  `json:"engine_id"`
		Status      string  `json:"status"`
		DiffPercent float64 `json:"diff_percent"`
	} `json:"runs"`
	Score struct {
		Value       float64 `json:"value"`
		Confidence  float64 `json:"confidence"`
		Consistency string  `json:"consistency"`
	} `json:"score"`
	Recommendations []struct {
		Severity string `json:"severity"`
		Message  string `json:"message"`
	} `json:"recommendations"`
	Findings map[string]struct {
		Total   int `json:"total"`
		Missing int `json:"missing"`
	} `json:"findings"`
	Preview *struct {
		TextLength int  `json:"text_length"`
		Extracted  bool `json:"extracted"`
	} `json:"preview"`
}

// analyzeResponse mirrors the agentlens API response model.
type analyzeResponse struct {
	Success bool           `json:"success"`
	Report  *reportPayload `json:"report"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// batchAnalyzeResponse mirrors the agentlens batch API response model.
type batchAnalyzeResponse struct {
	Success  bool              `json:"success"`
	Reports  []json.RawMessage `json:"reports"`
	Deferred []string          `json:"deferred"`
	TimedOut bool              `json:"timed_out"`
	Error    *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func main() {
	apiURL := os.Getenv("AGENTLENS_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("AGENTLENS_API_KEY")

	s := server.NewMCPServer(
		"agentlens",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	analyzeTool := mcp.NewTool("analyze_page",
		mcp.WithDescription("Analyze how accessible a web page is to script-less agents. Compares the page before and after script execution, classifies content that only exists after rendering, and returns a 0-100 accessibility score with recommendations."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL of the page to analyze"),
		),
		mcp.WithString("mode",
			mcp.Description("Analysis mode: 'full' (default), 'quick' (short waits), or 'stealth' (anti-bot evasion profile)"),
			mcp.Enum("quick", "full", "stealth"),
		),
		mcp.WithBoolean("no_cache",
			mcp.Description("Bypass the server-side report cache"),
		),
	)
	s.AddTool(analyzeTool, handleAnalyzePage(apiURL, apiKey))

	batchTool := mcp.NewTool("batch_analyze",
		mcp.WithDescription("Analyze multiple URLs sequentially under one deadline. Returns a score line per target; targets beyond the server's cap come back as deferred."),
		mcp.WithArray("urls",
			mcp.Required(),
			mcp.Description("List of URLs to analyze"),
		),
		mcp.WithString("mode",
			mcp.Description("Analysis mode: 'full' (default), 'quick', or 'stealth'"),
			mcp.Enum("quick", "full", "stealth"),
		),
	)
	s.AddTool(batchTool, handleBatchAnalyze(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// apiPost sends a POST request to the agentlens API and returns the body.
func apiPost(ctx context.Context, client *http.Client, apiURL, apiKey, path string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

func handleAnalyzePage(apiURL, apiKey string) server.ToolHandlerFunc {
	// One analysis drives every engine through a real browser; allow for
	// slow pages plus settle waits.
	client := &http.Client{Timeout: 300 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		payload := analyzeRequest{
			URL:     url,
			Mode:    request.GetString("mode", ""),
			NoCache: request.GetBool("no_cache", false),
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/analyze", payload)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("analyze request failed: %v", err)), nil
		}

		var resp analyzeResponse
		if err := json.Unmarshal(respBody, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}

		if resp.Report == nil {
			errMsg := "analysis failed"
			if resp.Error != nil {
				errMsg = fmt.Sprintf("[%s] %s", resp.Error.Code, resp.Error.Message)
			}
			return mcp.NewToolResultError(errMsg), nil
		}

		return mcp.NewToolResultText(renderReport(resp.Report)), nil
	}
}

func handleBatchAnalyze(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 3000 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		urls, err := request.RequireStringSlice("urls")
		if err != nil {
			return mcp.NewToolResultError("urls is required and must be an array of strings"), nil
		}

		payload := map[string]interface{}{
			"urls": urls,
			"mode": request.GetString("mode", ""),
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/batch/analyze", payload)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("batch request failed: %v", err)), nil
		}

		var resp batchAnalyzeResponse
		if err := json.Unmarshal(respBody, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if !resp.Success {
			errMsg := "batch failed"
			if resp.Error != nil {
				errMsg = fmt.Sprintf("[%s] %s", resp.Error.Code, resp.Error.Message)
			}
			return mcp.NewToolResultError(errMsg), nil
		}

		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("Analyzed %d target(s)\n\n", len(resp.Reports)))
		for i, raw := range resp.Reports {
			var rep reportPayload
			if err := json.Unmarshal(raw, &rep); err != nil {
				sb.WriteString(fmt.Sprintf("--- [%d] parse error ---\n\n", i+1))
				continue
			}
			sb.WriteString(fmt.Sprintf("--- [%d] %s ---\nScore %.0f/100, confidence %.0f%%\n\n",
				i+1, rep.Target.URL, rep.Score.Value, rep.Score.Confidence))
		}
		if len(resp.Deferred) > 0 {
			sb.WriteString(fmt.Sprintf("Deferred (%d):\n", len(resp.Deferred)))
			for _, u := range resp.Deferred {
				sb.WriteString("  " + u + "\n")
			}
		}
		if resp.TimedOut {
			sb.WriteString("\nBatch deadline was exceeded; resubmit the deferred targets.\n")
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// renderReport formats one report as compact text for the calling agent.
func renderReport(rep *reportPayload) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s (mode: %s)\n", rep.Target.URL, rep.Target.Mode))
	sb.WriteString(fmt.Sprintf("Accessibility score: %.0f/100 (confidence %.0f%%, consistency %s)\n\n",
		rep.Score.Value, rep.Score.Confidence, rep.Score.Consistency))

	for _, run := range rep.Runs {
		sb.WriteString(fmt.Sprintf("Engine %s: %s, content diff %+.1f%%\n",
			run.EngineID, run.Status, run.DiffPercent))
	}

	var missing []string
	for cat, f := range rep.Findings {
		if f.Missing > 0 {
			missing = append(missing, fmt.Sprintf("%s (%d/%d)", cat, f.Missing, f.Total))
		}
	}
	if len(missing) > 0 {
		sb.WriteString("\nMissing before script execution: " + strings.Join(missing, ", ") + "\n")
	}

	if len(rep.Recommendations) > 0 {
		sb.WriteString("\nRecommendations:\n")
		for _, rec := range rep.Recommendations {
			sb.WriteString(fmt.Sprintf("  [%s] %s\n", rec.Severity, rec.Message))
		}
	}

	if rep.Preview != nil {
		sb.WriteString(fmt.Sprintf("\nPre-execution text: %d chars (readability extraction: %t)\n",
			rep.Preview.TextLength, rep.Preview.Extracted))
	}
	return sb.String()
}
