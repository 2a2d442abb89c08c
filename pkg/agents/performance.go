package agents

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/factorylens/factorylens/pkg/agent"
	"github.com/factorylens/factorylens/pkg/types"
)

// 병목 판정 기준
const (
	bottleneckOEEThreshold      = 0.60
	bottleneckDowntimeThreshold = 8.0 // 시간
)

// PerformanceOptimizer OEE 분해, 병목, 개선 기회 분석 에이전트
type PerformanceOptimizer struct {
	*agent.Base
}

// NewPerformanceOptimizer 새 성능 분석 에이전트 생성
func NewPerformanceOptimizer(cfg *types.AgentConfig, opts ...agent.BaseOption) *PerformanceOptimizer {
	if cfg == nil {
		cfg = types.DefaultAgentConfig()
	}
	if len(cfg.Dependencies) == 0 {
		cfg.Dependencies = []types.AgentType{types.AgentTypeDataCollector}
	}
	return &PerformanceOptimizer{
		Base: agent.NewBase(types.AgentTypePerformanceOptimizer, cfg, opts...),
	}
}

// Execute 성능 레코드를 집계해 OEE와 병목, 개선 기회 도출
// 중간 결과를 시각화 에이전트 메일박스로 선제 전송 (best-effort)
func (p *PerformanceOptimizer) Execute(ctx context.Context, actx *types.AgentContext, upstream agent.Upstream) *types.AgentResult {
	return p.Track(ctx, func(ctx context.Context) (any, []string, error) {
		collection, ok := upstream.Collection()
		if !ok || len(collection.Performance) == 0 {
			// 데이터 없음 - 빈 결과와 에러 반환 (예외 전파 없음)
			return &types.PerformanceAnalysisResult{}, nil, errors.New("no performance data available")
		}

		result := &types.PerformanceAnalysisResult{
			OEE:         overallOEE(collection.Performance),
			ByEquipment: equipmentOEE(collection.Performance),
		}
		result.Bottlenecks = findBottlenecks(result.ByEquipment, collection.Performance)
		result.Opportunities = findOpportunities(result.OEE)

		p.SendMessage(types.AgentTypeVisualizationGen, types.MessageKindResponse, result)

		var warnings []string
		if result.OEE.OEE < bottleneckOEEThreshold {
			warnings = append(warnings, fmt.Sprintf("overall OEE %.1f%% is below the %.0f%% threshold",
				result.OEE.OEE*100, bottleneckOEEThreshold*100))
		}
		return result, warnings, nil
	})
}

// Validate 성능 분석 결과 형태 확인
func (p *PerformanceOptimizer) Validate(data any) bool {
	_, ok := data.(*types.PerformanceAnalysisResult)
	return ok
}

// overallOEE 전체 평균 OEE 분해
func overallOEE(records []types.PerformanceRecord) types.OEEBreakdown {
	var avail, perf, qual float64
	for _, r := range records {
		avail += r.Availability
		perf += r.Performance
		qual += r.Quality
	}

	n := float64(len(records))
	b := types.OEEBreakdown{
		Availability: avail / n,
		Performance:  perf / n,
		Quality:      qual / n,
	}
	b.OEE = b.Availability * b.Performance * b.Quality
	return b
}

// equipmentOEE 설비별 OEE 분해
func equipmentOEE(records []types.PerformanceRecord) map[string]types.OEEBreakdown {
	grouped := make(map[string][]types.PerformanceRecord)
	for _, r := range records {
		grouped[r.EquipmentID] = append(grouped[r.EquipmentID], r)
	}

	out := make(map[string]types.OEEBreakdown, len(grouped))
	for id, recs := range grouped {
		out[id] = overallOEE(recs)
	}
	return out
}

// findBottlenecks OEE가 낮거나 다운타임이 긴 설비 탐지
func findBottlenecks(byEquipment map[string]types.OEEBreakdown, records []types.PerformanceRecord) []types.Bottleneck {
	downtime := make(map[string]float64)
	for _, r := range records {
		downtime[r.EquipmentID] += r.DowntimeHours
	}

	out := make([]types.Bottleneck, 0)
	for id, oee := range byEquipment {
		switch {
		case oee.OEE < bottleneckOEEThreshold:
			out = append(out, types.Bottleneck{
				EquipmentID: id,
				OEE:         oee.OEE,
				Downtime:    downtime[id],
				Reason:      fmt.Sprintf("OEE %.1f%% below threshold", oee.OEE*100),
			})
		case downtime[id] > bottleneckDowntimeThreshold:
			out = append(out, types.Bottleneck{
				EquipmentID: id,
				OEE:         oee.OEE,
				Downtime:    downtime[id],
				Reason:      fmt.Sprintf("%.1fh downtime in period", downtime[id]),
			})
		}
	}

	// 심각도 순 정렬 (OEE 낮은 순)
	sort.Slice(out, func(i, j int) bool {
		return out[i].OEE < out[j].OEE
	})
	return out
}

// findOpportunities OEE 구성 요소별 개선 기회 도출
func findOpportunities(oee types.OEEBreakdown) []types.Opportunity {
	out := make([]types.Opportunity, 0)

	if oee.Availability < 0.90 {
		out = append(out, types.Opportunity{
			Area:          "availability",
			Description:   "Reduce unplanned downtime through preventive maintenance scheduling",
			EstimatedGain: (0.90 - oee.Availability) * oee.Performance * oee.Quality * 100,
		})
	}
	if oee.Performance < 0.95 {
		out = append(out, types.Opportunity{
			Area:          "performance",
			Description:   "Close the gap between actual and ideal cycle times",
			EstimatedGain: (0.95 - oee.Performance) * oee.Availability * oee.Quality * 100,
		})
	}
	if oee.Quality < 0.99 {
		out = append(out, types.Opportunity{
			Area:          "quality",
			Description:   "Reduce defects and rework through process control",
			EstimatedGain: (0.99 - oee.Quality) * oee.Availability * oee.Performance * 100,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].EstimatedGain > out[j].EstimatedGain
	})
	return out
}
