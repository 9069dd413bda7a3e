package score

import (
	"testing"

	"github.com/use-agent/agentlens/config"
	"github.com/use-agent/agentlens/models"
)

func cfg() config.ScoringConfig {
	return config.DefaultScoring()
}

func successRun(engine string, diff float64, rawLen int) models.BrowserRun {
	return models.BrowserRun{
		EngineID:    engine,
		Status:      models.StatusSuccess,
		RawLength:   rawLen,
		DiffPercent: diff,
		Findings:    models.EmptyFindings(),
	}
}

func TestCompute_PerfectPage(t *testing.T) {
	runs := []models.BrowserRun{
		successRun("a", 0, 10000),
		successRun("b", 0, 10000),
	}
	s := Compute(runs, cfg())

	if s.Value != 100 {
		t.Errorf("value = %v, want 100", s.Value)
	}
	if s.Confidence != 100 {
		t.Errorf("confidence = %v, want 100", s.Confidence)
	}
	if s.Consistency != models.ConsistencyHigh {
		t.Errorf("consistency = %q, want High", s.Consistency)
	}
	if s.Error != nil {
		t.Errorf("unexpected error marker: %+v", s.Error)
	}
}

func TestCompute_AllRunsFailedIsExplicitZero(t *testing.T) {
	runs := []models.BrowserRun{
		{EngineID: "a", Status: models.StatusFailed},
		{EngineID: "b", Status: models.StatusBlocked},
	}
	s := Compute(runs, cfg())

	if s.Value != 0 {
		t.Errorf("value = %v, want 0", s.Value)
	}
	if s.Confidence != 0 {
		t.Errorf("confidence = %v, want 0", s.Confidence)
	}
	if s.Consistency != models.ConsistencyNA {
		t.Errorf("consistency = %q, want N/A", s.Consistency)
	}
	if s.Error == nil || s.Error.Code != models.ErrCodeAggregate {
		t.Errorf("error = %+v, want %s marker", s.Error, models.ErrCodeAggregate)
	}
}

func TestCompute_OrderIndependent(t *testing.T) {
	a := successRun("a", 30, 10000)
	b := successRun("b", 80, 10000)
	b.Findings[models.CategoryPricing] = &models.CategoryFinding{Total: 3, Missing: 2}
	c := models.BrowserRun{EngineID: "c", Status: models.StatusFailed}

	forward := Compute([]models.BrowserRun{a, b, c}, cfg())
	backward := Compute([]models.BrowserRun{c, b, a}, cfg())

	if forward != backward {
		t.Errorf("score depends on run order:\n%+v\nvs\n%+v", forward, backward)
	}
}

func TestCompute_PricingPenaltyApplies(t *testing.T) {
	clean := []models.BrowserRun{successRun("a", 0, 10000)}
	base := Compute(clean, cfg())

	withPricing := []models.BrowserRun{successRun("a", 0, 10000)}
	withPricing[0].Findings[models.CategoryPricing] = &models.CategoryFinding{Total: 2, Missing: 2}
	penalized := Compute(withPricing, cfg())

	if got, want := base.Value-penalized.Value, cfg().PricingPenalty; got != want {
		t.Errorf("pricing deduction = %v, want %v", got, want)
	}
}

func TestCompute_NavigationPenaltyScalesAndCaps(t *testing.T) {
	c := cfg()

	few := []models.BrowserRun{successRun("a", 0, 10000)}
	few[0].Findings[models.CategoryNavigation] = &models.CategoryFinding{Total: 5, Missing: 3}
	sFew := Compute(few, c)
	if got, want := 100-sFew.Value, 3*c.NavPerLinkPenalty; got != want {
		t.Errorf("nav deduction for 3 links = %v, want %v", got, want)
	}

	many := []models.BrowserRun{successRun("a", 0, 10000)}
	many[0].Findings[models.CategoryNavigation] = &models.CategoryFinding{Total: 60, Missing: 60}
	sMany := Compute(many, c)
	if got, want := 100-sMany.Value, c.NavPenaltyCap; got != want {
		t.Errorf("nav deduction for 60 links = %v, want cap %v", got, want)
	}
}

func TestCompute_CheckoutPenalty(t *testing.T) {
	runs := []models.BrowserRun{successRun("a", 0, 10000)}
	runs[0].Signals.PurchaseControlMissing = true
	s := Compute(runs, cfg())

	if got, want := 100-s.Value, cfg().CheckoutPenalty; got != want {
		t.Errorf("checkout deduction = %v, want %v", got, want)
	}
}

func TestCompute_DiffBands(t *testing.T) {
	tests := []struct {
		name        string
		diff        float64
		wantPenalty float64
	}{
		{"no change", 0, 0},
		{"below first band", 9, 0},
		{"small", 15, 10},
		{"moderate", 30, 20},
		{"large", 75, 30},
		{"very large", 120, 40},
		{"extreme", 180, 50},
		{"negative diff counts by magnitude", -120, 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs := []models.BrowserRun{successRun("a", tt.diff, 10000)}
			s := Compute(runs, cfg())
			if got := 100 - s.Value; got != tt.wantPenalty {
				t.Errorf("diff %v: deduction = %v, want %v", tt.diff, got, tt.wantPenalty)
			}
		})
	}
}

func TestCompute_ShellPagePenalty(t *testing.T) {
	runs := []models.BrowserRun{successRun("a", 0, 100)}
	s := Compute(runs, cfg())
	if got, want := 100-s.Value, cfg().ShellPenalty; got != want {
		t.Errorf("shell deduction = %v, want %v", got, want)
	}
}

func TestCompute_BlockedExcludedFromAveraging(t *testing.T) {
	// Scenario: one blocked run must not drag the average diff toward zero.
	blocked := models.BrowserRun{EngineID: "b", Status: models.StatusBlocked,
		Findings: models.EmptyFindings()}
	runs := []models.BrowserRun{successRun("a", 120, 10000), blocked}

	s := Compute(runs, cfg())

	// Average over the single countable run is 120 => 40-point band.
	if got := 100 - s.Value; got != 40 {
		t.Errorf("deduction = %v, want 40 (blocked run excluded)", got)
	}
	if s.Confidence != 100-cfg().BlockedRunPenalty {
		t.Errorf("confidence = %v, want %v", s.Confidence, 100-cfg().BlockedRunPenalty)
	}
}

func TestCompute_SingleFailureReducesConfidenceOnce(t *testing.T) {
	// Scenario: one of three engines fails, two succeed consistently.
	runs := []models.BrowserRun{
		successRun("a", 20, 10000),
		successRun("b", 22, 10000),
		{EngineID: "c", Status: models.StatusFailed},
	}
	s := Compute(runs, cfg())

	if s.Consistency != models.ConsistencyHigh {
		t.Errorf("consistency = %q, want High (stddev 1)", s.Consistency)
	}
	if got, want := s.Confidence, 100-cfg().FailedRunPenalty; got != want {
		t.Errorf("confidence = %v, want %v (single failure, not doubled)", got, want)
	}
}

func TestCompute_InconsistentEnginesPenalized(t *testing.T) {
	c := cfg()
	runs := []models.BrowserRun{
		successRun("a", 0, 10000),
		successRun("b", 80, 10000),
	}
	s := Compute(runs, c)

	if s.Consistency != models.ConsistencyLow {
		t.Fatalf("consistency = %q, want Low (stddev 40)", s.Consistency)
	}
	// avg abs diff 40 => 20-point band, plus the variance penalty.
	wantValue := 100 - 20 - c.VariancePenalty
	if s.Value != wantValue {
		t.Errorf("value = %v, want %v", s.Value, wantValue)
	}
	if got, want := s.Confidence, 100-c.LowConsistencyPenalty; got != want {
		t.Errorf("confidence = %v, want %v", got, want)
	}
}

func TestCompute_ValueAlwaysBounded(t *testing.T) {
	worst := successRun("a", 200, 0)
	worst.Findings[models.CategoryPricing] = &models.CategoryFinding{Total: 9, Missing: 9}
	worst.Findings[models.CategoryReviews] = &models.CategoryFinding{Total: 9, Missing: 9}
	worst.Findings[models.CategoryNavigation] = &models.CategoryFinding{Total: 99, Missing: 99}
	worst.Signals.PurchaseControlMissing = true

	inconsistent := successRun("b", -200, 0)

	s := Compute([]models.BrowserRun{worst, inconsistent}, cfg())
	if s.Value < 0 || s.Value > 100 {
		t.Errorf("value = %v, out of [0,100]", s.Value)
	}
	if s.Confidence < 0 || s.Confidence > 100 {
		t.Errorf("confidence = %v, out of [0,100]", s.Confidence)
	}
}
