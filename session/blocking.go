package session

import (
	"log/slog"
	"strings"

	"github.com/use-agent/agentlens/driver"
)

// blockingIndicators are fixed phrases that identify an automation-detection
// page in the rendered title or body text.
var blockingIndicators = []string{
	"access denied",
	"captcha",
	"automated",
	"robot check",
	"are you a robot",
	"verify you are human",
	"attention required",
	"just a moment",
	"pardon our interruption",
	"unusual traffic",
	"request blocked",
}

// challengeIndicators identify an anti-bot interstitial in the raw
// (pre-execution) snapshot markup. Deliberately narrow: generic words like
// "captcha" appear in legitimate markup (recaptcha script URLs), so only
// distinctive interstitial phrases qualify.
var challengeIndicators = []string{
	"<title>just a moment",
	"checking your browser before accessing",
	"cf-browser-verification",
	"cf-challenge",
	"ddos protection by",
	"<title>attention required",
}

// detectBlocking inspects the rendered document for blocking indicators or
// an empty/childless body. Returns the matched indicator for logging.
func detectBlocking(page driver.Page) (bool, string) {
	title, err := page.Title()
	if err != nil {
		slog.Debug("title read failed during blocking detection", "error", err)
	}
	body, err := page.BodyText()
	if err != nil {
		slog.Debug("body read failed during blocking detection", "error", err)
	}

	haystack := strings.ToLower(title + " " + body)
	for _, indicator := range blockingIndicators {
		if strings.Contains(haystack, indicator) {
			return true, indicator
		}
	}

	children, err := page.BodyChildCount()
	if err == nil && children == 0 && strings.TrimSpace(body) == "" {
		return true, "empty body"
	}

	return false, ""
}

// rawChallenged reports whether the pre-execution snapshot was served an
// anti-bot interstitial rather than the real document.
func rawChallenged(raw *driver.RawSnapshot) bool {
	if raw == nil {
		return false
	}
	if raw.StatusCode == 403 || raw.StatusCode == 503 {
		return true
	}
	body := strings.ToLower(raw.Body)
	for _, indicator := range challengeIndicators {
		if strings.Contains(body, indicator) {
			return true
		}
	}
	return false
}
