package agents

import (
	"testing"
	"time"

	"github.com/factorylens/factorylens/pkg/types"
)

func TestPredictMaintenance(t *testing.T) {
	now := time.Now()
	lastFailure := now.Add(-48 * time.Hour)

	collection := &types.DataCollectionResult{
		TimeRange: types.TimeRange{Start: now.Add(-30 * 24 * time.Hour), End: now},
		Maintenance: []types.MaintenanceRecord{
			{EquipmentID: "press-1", IsFailure: true, RepairHours: 2, StartedAt: now.Add(-200 * time.Hour)},
			{EquipmentID: "press-1", IsFailure: true, RepairHours: 4, StartedAt: lastFailure},
			{EquipmentID: "press-2", Type: "planned", OverdueTasks: 2},
		},
		Equipment: []types.Equipment{
			{ID: "press-1", OpHours: 100},
			{ID: "press-2", OpHours: 200},
		},
	}

	got := PredictMaintenance(collection)

	if len(got.Forecasts) != 2 {
		t.Fatalf("expected 2 forecasts, got %d", len(got.Forecasts))
	}

	// the failing press carries more risk and sorts first
	f := got.Forecasts[0]
	if f.EquipmentID != "press-1" {
		t.Fatalf("expected press-1 first, got %s", f.EquipmentID)
	}
	if f.FailureCount != 2 {
		t.Errorf("failure count = %d, want 2", f.FailureCount)
	}
	// 100 operating hours / 2 failures
	if !almostEqual(f.MTBFHours, 50) {
		t.Errorf("MTBF = %f, want 50", f.MTBFHours)
	}
	if f.NextFailureAt == nil {
		t.Fatal("expected a next failure estimate")
	}
	if want := lastFailure.Add(50 * time.Hour); !f.NextFailureAt.Equal(want) {
		t.Errorf("next failure at %v, want %v", f.NextFailureAt, want)
	}

	if !almostEqual(got.AvgMTBFHours, 50) {
		t.Errorf("avg MTBF = %f, want 50", got.AvgMTBFHours)
	}
	// (2 + 4) repair hours over 2 failures
	if !almostEqual(got.AvgMTTRHours, 3) {
		t.Errorf("avg MTTR = %f, want 3", got.AvgMTTRHours)
	}
}

func TestPredictMaintenanceFallsBackToRangeHours(t *testing.T) {
	now := time.Now()
	collection := &types.DataCollectionResult{
		TimeRange: types.TimeRange{Start: now.Add(-100 * time.Hour), End: now},
		Maintenance: []types.MaintenanceRecord{
			{EquipmentID: "unknown-press", IsFailure: true, RepairHours: 1, StartedAt: now.Add(-time.Hour)},
		},
	}

	got := PredictMaintenance(collection)
	if len(got.Forecasts) != 1 {
		t.Fatalf("expected 1 forecast, got %d", len(got.Forecasts))
	}
	// no equipment entry: the analysis window substitutes for operating hours
	if !almostEqual(got.Forecasts[0].MTBFHours, 100) {
		t.Errorf("MTBF = %f, want 100", got.Forecasts[0].MTBFHours)
	}
}

func TestRiskScore(t *testing.T) {
	tests := []struct {
		name     string
		failures int
		overdue  int
		opHours  float64
		maxAge   float64
		want     float64
	}{
		{"no signals", 0, 0, 0, 100, 0},
		{"failures saturate at five", 10, 0, 0, 100, riskFailureWeight},
		{"overdue saturates at ten", 0, 20, 0, 100, riskOverdueWeight},
		{"oldest equipment", 0, 0, 100, 100, riskAgeWeight},
		{"all maxed", 5, 10, 100, 100, 1.0},
		{"partial mix", 1, 5, 50, 100, 0.2*riskFailureWeight + 0.5*riskOverdueWeight + 0.5*riskAgeWeight},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := riskScore(tt.failures, tt.overdue, tt.opHours, tt.maxAge)
			if !almostEqual(got, tt.want) {
				t.Errorf("riskScore = %f, want %f", got, tt.want)
			}
		})
	}
}
