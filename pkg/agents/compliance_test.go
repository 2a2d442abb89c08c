package agents

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/factorylens/factorylens/pkg/agent"
	"github.com/factorylens/factorylens/pkg/types"
)

func TestScoreComplianceNoInputs(t *testing.T) {
	got := ScoreCompliance(nil, nil, nil, nil)

	if got.Level != 0 {
		t.Errorf("expected level 0 without inputs, got %d", got.Level)
	}
	if len(got.Recommendations) != 1 || !strings.Contains(got.Recommendations[0], "data collection") {
		t.Errorf("expected the data collection recommendation, got %v", got.Recommendations)
	}
	// KPI assessments are still produced for transparency
	if len(got.KPIs) != len(benchmarks) {
		t.Errorf("expected %d KPI assessments, got %d", len(benchmarks), len(got.KPIs))
	}
}

func TestAwardLevel(t *testing.T) {
	tests := []struct {
		name string
		r    types.ComplianceResult
		want int
	}{
		{"no oee", types.ComplianceResult{}, 0},
		{"oee only", types.ComplianceResult{OEE: 0.70}, 1},
		{"oee with maintenance kpis", types.ComplianceResult{OEE: 0.70, MTBFHours: 80, MTTRHours: 3}, 2},
		{"missing mttr stops at one", types.ComplianceResult{OEE: 0.70, MTBFHours: 80}, 1},
		{"full kpi coverage", types.ComplianceResult{
			OEE: 0.70, MTBFHours: 80, MTTRHours: 3,
			FirstPassYield: 0.96, CycleEfficiency: 0.12,
		}, 3},
		{"quality without cycle efficiency stops at two", types.ComplianceResult{
			OEE: 0.70, MTBFHours: 80, MTTRHours: 3, FirstPassYield: 0.96,
		}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := awardLevel(&tt.r); got != tt.want {
				t.Errorf("awardLevel = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestBenchmarkClassify(t *testing.T) {
	oee := benchmarks[0]
	mttr := benchmarks[3]

	tests := []struct {
		name  string
		b     kpiBenchmark
		value float64
		want  types.BenchmarkLevel
	}{
		{"oee world class", oee, 0.86, types.BenchmarkWorldClass},
		{"oee exactly world class", oee, 0.85, types.BenchmarkWorldClass},
		{"oee good", oee, 0.78, types.BenchmarkGood},
		{"oee average", oee, 0.65, types.BenchmarkAverage},
		{"oee poor", oee, 0.40, types.BenchmarkPoor},
		// lower-is-better thresholds invert the comparison
		{"mttr world class", mttr, 0.5, types.BenchmarkWorldClass},
		{"mttr good", mttr, 1.5, types.BenchmarkGood},
		{"mttr average", mttr, 3.0, types.BenchmarkAverage},
		{"mttr poor", mttr, 6.0, types.BenchmarkPoor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.b.classify(tt.value); got != tt.want {
				t.Errorf("classify(%f) = %s, want %s", tt.value, got, tt.want)
			}
		})
	}
}

func TestScoreComplianceFromUpstreamResults(t *testing.T) {
	now := time.Now()
	collection := &types.DataCollectionResult{
		TimeRange: types.TimeRange{Start: now.Add(-100 * time.Hour), End: now},
		Performance: []types.PerformanceRecord{
			{EquipmentID: "m1", UnitsProduced: 500, CycleTimeSec: 40, IdealCycleSec: 10},
		},
	}
	performance := &types.PerformanceAnalysisResult{
		OEE: types.OEEBreakdown{Availability: 0.9, Performance: 0.9, Quality: 0.95, OEE: 0.7695},
	}
	quality := &types.QualityAnalysisResult{FirstPassYield: 0.96, ScrapRate: 0.008}
	maintenance := &types.MaintenanceAnalysisResult{AvgMTBFHours: 120, AvgMTTRHours: 1.5}

	got := ScoreCompliance(collection, performance, quality, maintenance)

	if got.Level != 3 {
		t.Fatalf("expected level 3, got %d", got.Level)
	}
	if !almostEqual(got.OEE, 0.7695) {
		t.Errorf("OEE = %f, want 0.7695", got.OEE)
	}
	if !almostEqual(got.CycleEfficiency, 0.25) {
		t.Errorf("cycle efficiency = %f, want 0.25", got.CycleEfficiency)
	}
	if !almostEqual(got.Throughput, 5) {
		t.Errorf("throughput = %f, want 5 units/hour", got.Throughput)
	}
}

func TestScoreComplianceDerivesMaintenanceKPIs(t *testing.T) {
	now := time.Now()
	collection := &types.DataCollectionResult{
		TimeRange: types.TimeRange{Start: now.Add(-200 * time.Hour), End: now},
		Maintenance: []types.MaintenanceRecord{
			{EquipmentID: "m1", IsFailure: true, RepairHours: 2},
			{EquipmentID: "m1", IsFailure: true, RepairHours: 4},
		},
		Equipment: []types.Equipment{{ID: "m1", OpHours: 100}},
	}
	performance := &types.PerformanceAnalysisResult{
		OEE: types.OEEBreakdown{OEE: 0.7},
	}

	got := ScoreCompliance(collection, performance, nil, nil)

	// two failures over 100 operating hours
	if !almostEqual(got.MTBFHours, 50) {
		t.Errorf("MTBF = %f, want 50", got.MTBFHours)
	}
	if !almostEqual(got.MTTRHours, 3) {
		t.Errorf("MTTR = %f, want 3", got.MTTRHours)
	}
	if got.Level != 2 {
		t.Errorf("expected level 2, got %d", got.Level)
	}
}

func TestComplianceScorerExecuteWarnsAtLevelZero(t *testing.T) {
	c := NewComplianceScorer(nil)

	res := c.Execute(context.Background(), &types.AgentContext{Query: "compliance"}, agent.Upstream{})
	if !res.Succeeded() {
		t.Fatalf("level 0 is a valid result, got %s (%v)", res.Status, res.Errors)
	}
	if len(res.Warnings) != 1 {
		t.Errorf("expected an insufficient-input warning, got %v", res.Warnings)
	}
	if !c.Validate(res.Data) {
		t.Error("result data must be a compliance result")
	}
}
