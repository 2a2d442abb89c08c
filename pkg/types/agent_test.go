package types

import (
	"errors"
	"testing"
	"time"
)

func TestTimeRangeValid(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name string
		tr   TimeRange
		want bool
	}{
		{"valid range", TimeRange{Start: now.Add(-time.Hour), End: now}, true},
		{"zero start", TimeRange{End: now}, false},
		{"zero end", TimeRange{Start: now}, false},
		{"inverted", TimeRange{Start: now, End: now.Add(-time.Hour)}, false},
		{"equal start and end", TimeRange{Start: now, End: now}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tr.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAgentContextValidate(t *testing.T) {
	now := time.Now()
	valid := TimeRange{Start: now.Add(-time.Hour), End: now}

	tests := []struct {
		name    string
		ctx     AgentContext
		wantErr error
	}{
		{"valid", AgentContext{Query: "oee review", TimeRange: valid}, nil},
		{"empty query", AgentContext{TimeRange: valid}, ErrEmptyQuery},
		{"bad range", AgentContext{Query: "oee review"}, ErrInvalidTimeRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.ctx.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestStageOf(t *testing.T) {
	tests := []struct {
		agentType AgentType
		want      PipelineStage
	}{
		{AgentTypeDataCollector, StageDataCollection},
		{AgentTypeQualityAnalyzer, StageAnalysis},
		{AgentTypePerformanceOptimizer, StageOptimization},
		{AgentTypeVisualizationGen, StageVisualization},
		{AgentTypeReportGenerator, StageReporting},
		{AgentType("unknown"), StageAnalysis}, // fallback
	}

	for _, tt := range tests {
		if got := StageOf(tt.agentType); got != tt.want {
			t.Errorf("StageOf(%s) = %s, want %s", tt.agentType, got, tt.want)
		}
	}
}

func TestIsValidAgentType(t *testing.T) {
	for _, at := range AllAgentTypes {
		if !IsValidAgentType(at) {
			t.Errorf("known type %s reported invalid", at)
		}
	}
	if IsValidAgentType(AgentType("made_up")) {
		t.Error("unknown type reported valid")
	}
}

func TestAgentStatusIsTerminal(t *testing.T) {
	tests := []struct {
		status AgentStatus
		want   bool
	}{
		{AgentStatusIdle, false},
		{AgentStatusProcessing, false},
		{AgentStatusCompleted, true},
		{AgentStatusFailed, true},
	}

	for _, tt := range tests {
		if got := tt.status.IsTerminal(); got != tt.want {
			t.Errorf("%s.IsTerminal() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestAgentResultSucceeded(t *testing.T) {
	var nilResult *AgentResult
	if nilResult.Succeeded() {
		t.Error("nil result must not succeed")
	}
	if (&AgentResult{Status: AgentStatusFailed}).Succeeded() {
		t.Error("failed result must not succeed")
	}
	if !(&AgentResult{Status: AgentStatusCompleted}).Succeeded() {
		t.Error("completed result must succeed")
	}
}

func TestPipelineResultAgentResultOf(t *testing.T) {
	res := &AgentResult{AgentType: AgentTypeQualityAnalyzer, Status: AgentStatusCompleted}
	pr := &PipelineResult{
		Stages: map[PipelineStage]*StageResult{
			StageAnalysis: {
				Stage:   StageAnalysis,
				Results: map[AgentType]*AgentResult{AgentTypeQualityAnalyzer: res},
			},
		},
	}

	if got := pr.AgentResultOf(AgentTypeQualityAnalyzer); got != res {
		t.Error("expected the stored result")
	}
	if got := pr.AgentResultOf(AgentTypeDataCollector); got != nil {
		t.Error("expected nil for a missing agent")
	}
}
