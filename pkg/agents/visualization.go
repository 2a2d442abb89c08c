package agents

import (
	"context"
	"fmt"

	"github.com/factorylens/factorylens/pkg/agent"
	"github.com/factorylens/factorylens/pkg/types"
)

// MessageReceiver 자신의 메일박스에서 중간 메시지를 꺼내기 위한 최소 인터페이스
type MessageReceiver interface {
	Receive(agentType types.AgentType) []types.AgentMessage
}

// VisualizationGenerator 상위 분석 결과를 시각화 디스크립터로 변환하는 에이전트
// 메일박스에 쌓인 중간 결과도 함께 소비함
type VisualizationGenerator struct {
	*agent.Base
	receiver MessageReceiver
}

// NewVisualizationGenerator 새 시각화 에이전트 생성
func NewVisualizationGenerator(receiver MessageReceiver, cfg *types.AgentConfig, opts ...agent.BaseOption) *VisualizationGenerator {
	if cfg == nil {
		cfg = types.DefaultAgentConfig()
	}
	if len(cfg.Dependencies) == 0 {
		cfg.Dependencies = []types.AgentType{
			types.AgentTypePerformanceOptimizer,
			types.AgentTypeQualityAnalyzer,
			types.AgentTypeRootCauseAnalyzer,
		}
	}
	return &VisualizationGenerator{
		Base:     agent.NewBase(types.AgentTypeVisualizationGen, cfg, opts...),
		receiver: receiver,
	}
}

// Execute 상위 결과별 시각화 디스크립터 생성
// 실제 렌더링은 하지 않으며 표현 계층이 소비할 스펙만 만든다
func (v *VisualizationGenerator) Execute(ctx context.Context, actx *types.AgentContext, upstream agent.Upstream) *types.AgentResult {
	return v.Track(ctx, func(ctx context.Context) (any, []string, error) {
		specs := make([]types.VisualizationSpec, 0)
		var warnings []string

		// 메일박스의 중간 결과를 먼저 비움 (파괴적 읽기)
		interim := 0
		if v.receiver != nil {
			interim = len(v.receiver.Receive(types.AgentTypeVisualizationGen))
		}

		if perf, ok := upstream.PerformanceResult(); ok {
			specs = append(specs, oeeGauge(perf))
			if len(perf.ByEquipment) > 0 {
				specs = append(specs, oeeTrend(perf))
			}
		} else {
			warnings = append(warnings, "performance result unavailable; OEE visualizations skipped")
		}

		if quality, ok := upstream.QualityResult(); ok && len(quality.TopDefects) > 0 {
			specs = append(specs, defectPareto(quality))
		}

		if rootCause, ok := upstream.RootCauseResult(); ok {
			specs = append(specs, fishboneDiagram(rootCause))
		}

		if len(specs) == 0 {
			warnings = append(warnings, "no upstream analysis results; nothing to visualize")
		}

		return &types.VisualizationResult{
			Specs:           specs,
			InterimMessages: interim,
		}, warnings, nil
	})
}

// Validate 시각화 결과 형태 확인
func (v *VisualizationGenerator) Validate(data any) bool {
	_, ok := data.(*types.VisualizationResult)
	return ok
}

// oeeGauge 전체 OEE 게이지
func oeeGauge(perf *types.PerformanceAnalysisResult) types.VisualizationSpec {
	return types.VisualizationSpec{
		Type:  "oee_gauge",
		Title: fmt.Sprintf("Overall OEE %.1f%%", perf.OEE.OEE*100),
		Data:  perf.OEE,
		Options: map[string]any{
			"min":       0.0,
			"max":       1.0,
			"threshold": 0.85,
		},
	}
}

// oeeTrend 설비별 OEE 비교
func oeeTrend(perf *types.PerformanceAnalysisResult) types.VisualizationSpec {
	return types.VisualizationSpec{
		Type:  "trend",
		Title: "OEE by Equipment",
		Data:  perf.ByEquipment,
		Options: map[string]any{
			"sort": "asc",
		},
	}
}

// defectPareto 결함 유형 파레토
func defectPareto(quality *types.QualityAnalysisResult) types.VisualizationSpec {
	return types.VisualizationSpec{
		Type:  "pareto",
		Title: "Top Defect Types",
		Data:  quality.TopDefects,
		Options: map[string]any{
			"cumulative_line": true,
		},
	}
}

// fishboneDiagram 6M 피시본 다이어그램
func fishboneDiagram(rootCause *types.RootCauseAnalysisResult) types.VisualizationSpec {
	return types.VisualizationSpec{
		Type:  "fishbone",
		Title: rootCause.ProblemStatement,
		Data:  rootCause.Fishbone,
		Options: map[string]any{
			"categories": types.AllCauseCategories,
		},
	}
}
