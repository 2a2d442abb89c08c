package agents

import (
	"strings"
	"testing"

	"github.com/factorylens/factorylens/pkg/types"
)

func TestProblemStatement(t *testing.T) {
	quality := &types.QualityAnalysisResult{DefectRateDPMO: 1500}
	lowOEE := &types.PerformanceAnalysisResult{OEE: types.OEEBreakdown{OEE: 0.45}}

	tests := []struct {
		name        string
		query       string
		quality     *types.QualityAnalysisResult
		performance *types.PerformanceAnalysisResult
		wantSub     string
	}{
		{"downtime keyword", "why so much downtime", nil, nil, "downtime"},
		{"quality keyword with metrics", "high scrap on line 2", quality, nil, "defect rate"},
		{"quality keyword without metrics", "defect investigation", nil, nil, "defect rate"},
		{"oee keyword", "oee review", nil, nil, "effectiveness"},
		{"maintenance keyword", "mtbf trend", nil, nil, "Maintenance"},
		{"no keyword, high dpmo", "what happened", quality, nil, "DPMO"},
		{"no keyword, low oee", "what happened", nil, lowOEE, "OEE"},
		{"no signals at all", "what happened", nil, nil, "General performance review"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := problemStatement(tt.query, tt.quality, tt.performance)
			if !strings.Contains(got, tt.wantSub) {
				t.Errorf("statement %q must contain %q", got, tt.wantSub)
			}
		})
	}
}

func TestAnalyze6MMachineCauseRankedFirst(t *testing.T) {
	alerts := make([]types.AlertRecord, 0, 11)
	for i := 0; i < 11; i++ {
		alerts = append(alerts, types.AlertRecord{EquipmentID: "m1", Category: "equipment"})
	}
	collection := &types.DataCollectionResult{Alerts: alerts}

	got := Analyze6M("oee drop", collection, nil, nil)
	if len(got.Causes) == 0 {
		t.Fatal("expected at least one cause")
	}

	// equipment reliability carries the highest fixed confidence
	first := got.Causes[0]
	if first.Category != types.CategoryMachine {
		t.Errorf("expected machine cause first, got %s", first.Category)
	}
	if !almostEqual(first.Probability, 0.85) {
		t.Errorf("expected probability 0.85, got %f", first.Probability)
	}
	if len(first.Evidence) == 0 {
		t.Error("expected evidence on the cause")
	}
}

func TestAnalyze6MMaterialCauseFromDPMO(t *testing.T) {
	quality := &types.QualityAnalysisResult{DefectRateDPMO: 1500, ScrapRate: 0.01}

	got := Analyze6M("high scrap", nil, quality, nil)

	if !strings.Contains(got.ProblemStatement, "defect rate") {
		t.Errorf("expected defect rate problem statement, got %q", got.ProblemStatement)
	}

	found := false
	for _, c := range got.Causes {
		if c.Category == types.CategoryMaterial {
			found = true
			if !almostEqual(c.Probability, 0.70) {
				t.Errorf("expected material probability 0.70, got %f", c.Probability)
			}
		}
	}
	if !found {
		t.Error("expected material cause for DPMO above limit")
	}
}

func TestFishboneAlwaysSixCategories(t *testing.T) {
	tests := []struct {
		name       string
		collection *types.DataCollectionResult
		quality    *types.QualityAnalysisResult
	}{
		{"no inputs", nil, nil},
		{"with findings", &types.DataCollectionResult{
			Alerts: []types.AlertRecord{
				{Category: "equipment"}, {Category: "equipment"}, {Category: "equipment"},
				{Category: "equipment"}, {Category: "equipment"}, {Category: "equipment"},
				{Category: "equipment"}, {Category: "equipment"}, {Category: "equipment"},
				{Category: "equipment"}, {Category: "equipment"},
			},
		}, &types.QualityAnalysisResult{DefectRateDPMO: 2000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Analyze6M("review", tt.collection, tt.quality, nil)

			if len(got.Fishbone) != len(types.AllCauseCategories) {
				t.Fatalf("expected %d fishbone categories, got %d", len(types.AllCauseCategories), len(got.Fishbone))
			}
			for _, cat := range types.AllCauseCategories {
				if len(got.Fishbone[cat]) == 0 {
					t.Errorf("category %s must not be empty", cat)
				}
			}
		})
	}
}

func TestAnalyze6MRecommendationsSorted(t *testing.T) {
	alerts := make([]types.AlertRecord, 0, 17)
	for i := 0; i < 11; i++ {
		alerts = append(alerts, types.AlertRecord{Category: "equipment"})
	}
	for i := 0; i < 6; i++ {
		alerts = append(alerts, types.AlertRecord{Category: "operator"})
	}
	collection := &types.DataCollectionResult{Alerts: alerts}
	quality := &types.QualityAnalysisResult{DefectRateDPMO: 2000, ReworkRate: 0.10}

	got := Analyze6M("quality problems", collection, quality, nil)

	if len(got.Recommendations) == 0 {
		t.Fatal("expected recommendations")
	}
	for i := 1; i < len(got.Recommendations); i++ {
		if got.Recommendations[i].Priority < got.Recommendations[i-1].Priority {
			t.Fatalf("recommendations not sorted by priority: %+v", got.Recommendations)
		}
	}

	// the top recommendation comes from the highest ranked cause
	topCategory := got.Causes[0].Category
	if got.Recommendations[0].Action != categoryActions[topCategory][0].action {
		t.Errorf("top recommendation %q does not match top cause category %s",
			got.Recommendations[0].Action, topCategory)
	}
}

func TestShiftDefectSpread(t *testing.T) {
	records := []types.QualityRecord{
		{Shift: "day", UnitsChecked: 1000, Defects: 10},
		{Shift: "night", UnitsChecked: 1000, Defects: 30},
	}

	lo, hi, ok := shiftDefectSpread(records)
	if !ok {
		t.Fatal("expected a valid spread with two shifts")
	}
	if !almostEqual(lo, 0.01) || !almostEqual(hi, 0.03) {
		t.Errorf("spread lo=%f hi=%f, want 0.01/0.03", lo, hi)
	}

	// a single shift is not comparable
	if _, _, ok := shiftDefectSpread(records[:1]); ok {
		t.Error("expected no spread with a single shift")
	}
}
