package agents

import (
	"strings"
	"testing"

	"github.com/factorylens/factorylens/pkg/agent"
	"github.com/factorylens/factorylens/pkg/types"
)

func fullUpstream() agent.Upstream {
	collection := &types.DataCollectionResult{
		DataQuality: types.DataQuality{Completeness: 1, Accuracy: 1, Timeliness: 1},
	}
	perf := &types.PerformanceAnalysisResult{
		OEE:         types.OEEBreakdown{Availability: 0.9, Performance: 0.9, Quality: 0.95, OEE: 0.7695},
		Bottlenecks: []types.Bottleneck{{EquipmentID: "press-1", Reason: "OEE 55.0% below threshold"}},
	}
	quality := &types.QualityAnalysisResult{
		DefectRateDPMO: 1500,
		FirstPassYield: 0.96,
		TopDefects:     []types.DefectSummary{{DefectType: "crack", Count: 9}},
	}
	maintenance := &types.MaintenanceAnalysisResult{AvgMTBFHours: 120, AvgMTTRHours: 1.5}
	rootCause := &types.RootCauseAnalysisResult{
		ProblemStatement: "Elevated defect rate of 1500 DPMO with associated scrap and rework losses",
		Causes:           []types.RootCause{{Cause: "Incoming material defects", Category: types.CategoryMaterial, Probability: 0.7}},
		Recommendations:  []types.Recommendation{{Action: "Initiate supplier corrective action request (SCAR)"}},
	}
	compliance := &types.ComplianceResult{
		Level:           2,
		Recommendations: []string{"Increase preventive maintenance frequency on failure-prone equipment"},
	}
	viz := &types.VisualizationResult{
		Specs: []types.VisualizationSpec{{Type: "oee_gauge", Title: "Overall OEE 77.0%"}},
	}

	return agent.Upstream{
		types.AgentTypeDataCollector:        completedResult(types.AgentTypeDataCollector, collection),
		types.AgentTypePerformanceOptimizer: completedResult(types.AgentTypePerformanceOptimizer, perf),
		types.AgentTypeQualityAnalyzer:      completedResult(types.AgentTypeQualityAnalyzer, quality),
		types.AgentTypeMaintenancePredictor: completedResult(types.AgentTypeMaintenancePredictor, maintenance),
		types.AgentTypeRootCauseAnalyzer:    completedResult(types.AgentTypeRootCauseAnalyzer, rootCause),
		types.AgentTypeComplianceScorer:     completedResult(types.AgentTypeComplianceScorer, compliance),
		types.AgentTypeVisualizationGen:     completedResult(types.AgentTypeVisualizationGen, viz),
	}
}

func TestComposeReportFullCoverage(t *testing.T) {
	report := ComposeReport("why is scrap high", fullUpstream())

	wantSections := []string{
		"# Manufacturing Analysis Report",
		"## Performance",
		"## Quality",
		"## Maintenance",
		"## Root Cause Analysis",
		"## KPI Compliance",
	}
	for _, want := range wantSections {
		if !strings.Contains(report.Content, want) {
			t.Errorf("report missing section %q", want)
		}
	}

	// all five sections covered with perfect data quality
	if !almostEqual(report.Confidence, 1.0) {
		t.Errorf("confidence = %f, want 1.0", report.Confidence)
	}

	// recommendations gathered from root cause and compliance
	if len(report.Recommendations) != 2 {
		t.Errorf("expected 2 recommendations, got %d: %v", len(report.Recommendations), report.Recommendations)
	}
	if len(report.Visualizations) != 1 {
		t.Errorf("expected 1 visualization, got %d", len(report.Visualizations))
	}
	if len(report.References) == 0 {
		t.Error("expected standard references")
	}
}

func TestComposeReportPartialCoverage(t *testing.T) {
	perf := &types.PerformanceAnalysisResult{OEE: types.OEEBreakdown{OEE: 0.7}}
	upstream := agent.Upstream{
		types.AgentTypePerformanceOptimizer: completedResult(types.AgentTypePerformanceOptimizer, perf),
	}

	report := ComposeReport("oee review", upstream)

	// one of five sections, no collection quality to scale by
	if !almostEqual(report.Confidence, 0.2) {
		t.Errorf("confidence = %f, want 0.2", report.Confidence)
	}
	if strings.Contains(report.Content, "## Quality") {
		t.Error("quality section must be absent without a quality result")
	}
}

func TestComposeReportIgnoresFailedUpstream(t *testing.T) {
	failed := &types.AgentResult{
		AgentType: types.AgentTypeQualityAnalyzer,
		Status:    types.AgentStatusFailed,
		Data:      &types.QualityAnalysisResult{DefectRateDPMO: 9999},
	}
	report := ComposeReport("review", agent.Upstream{types.AgentTypeQualityAnalyzer: failed})

	if strings.Contains(report.Content, "## Quality") {
		t.Error("failed upstream results must not contribute sections")
	}
	if report.Confidence != 0 {
		t.Errorf("confidence = %f, want 0", report.Confidence)
	}
}
