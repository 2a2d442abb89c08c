package agents

import (
	"context"
	"errors"
	"sort"

	"github.com/factorylens/factorylens/pkg/agent"
	"github.com/factorylens/factorylens/pkg/types"
)

// QualityAnalyzer DPMO, 수율, 스크랩/재작업률 분석 에이전트
type QualityAnalyzer struct {
	*agent.Base
}

// NewQualityAnalyzer 새 품질 분석 에이전트 생성
func NewQualityAnalyzer(cfg *types.AgentConfig, opts ...agent.BaseOption) *QualityAnalyzer {
	if cfg == nil {
		cfg = types.DefaultAgentConfig()
	}
	if len(cfg.Dependencies) == 0 {
		cfg.Dependencies = []types.AgentType{types.AgentTypeDataCollector}
	}
	return &QualityAnalyzer{
		Base: agent.NewBase(types.AgentTypeQualityAnalyzer, cfg, opts...),
	}
}

// Execute 품질 레코드를 집계해 핵심 품질 지표 계산
func (q *QualityAnalyzer) Execute(ctx context.Context, actx *types.AgentContext, upstream agent.Upstream) *types.AgentResult {
	return q.Track(ctx, func(ctx context.Context) (any, []string, error) {
		collection, ok := upstream.Collection()
		if !ok || len(collection.Quality) == 0 {
			return &types.QualityAnalysisResult{}, nil, errors.New("no quality data available")
		}

		return AnalyzeQuality(collection.Quality), nil, nil
	})
}

// Validate 품질 분석 결과 형태 확인
func (q *QualityAnalyzer) Validate(data any) bool {
	_, ok := data.(*types.QualityAnalysisResult)
	return ok
}

// AnalyzeQuality 품질 레코드 집계 (순수 함수)
func AnalyzeQuality(records []types.QualityRecord) *types.QualityAnalysisResult {
	var checked, defects, reworked, scrapped, opportunities int64
	defectCounts := make(map[string]int64)

	for _, r := range records {
		checked += r.UnitsChecked
		defects += r.Defects
		reworked += r.Reworked
		scrapped += r.Scrapped

		opp := r.Opportunities
		if opp <= 0 {
			opp = 1
		}
		opportunities += r.UnitsChecked * opp

		if r.DefectType != "" && r.Defects > 0 {
			defectCounts[r.DefectType] += r.Defects
		}
	}

	result := &types.QualityAnalysisResult{UnitsChecked: checked}
	if checked == 0 {
		return result
	}

	if opportunities > 0 {
		result.DefectRateDPMO = float64(defects) / float64(opportunities) * 1_000_000
	}
	result.FirstPassYield = clamp01(float64(checked-defects-reworked) / float64(checked))
	result.ScrapRate = clamp01(float64(scrapped) / float64(checked))
	result.ReworkRate = clamp01(float64(reworked) / float64(checked))
	result.TopDefects = topDefects(defectCounts, 5)

	return result
}

// topDefects 결함 유형 상위 N개
func topDefects(counts map[string]int64, n int) []types.DefectSummary {
	out := make([]types.DefectSummary, 0, len(counts))
	for t, c := range counts {
		out = append(out, types.DefectSummary{DefectType: t, Count: c})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].DefectType < out[j].DefectType
	})

	if len(out) > n {
		out = out[:n]
	}
	return out
}
