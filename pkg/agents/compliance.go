package agents

import (
	"context"
	"fmt"

	"github.com/factorylens/factorylens/pkg/agent"
	"github.com/factorylens/factorylens/pkg/types"
)

// kpiBenchmark KPI별 4단계 벤치마크
// lowerBetter가 true면 값이 작을수록 좋은 지표 (예: MTTR)
type kpiBenchmark struct {
	name        string
	worldClass  float64
	good        float64
	average     float64
	lowerBetter bool
	advice      map[types.BenchmarkLevel]string
}

// benchmarks KPI 벤치마크 고정 테이블
var benchmarks = []kpiBenchmark{
	{
		name: "oee", worldClass: 0.85, good: 0.75, average: 0.60,
		advice: map[types.BenchmarkLevel]string{
			types.BenchmarkWorldClass: "Sustain current OEE through continuous improvement reviews",
			types.BenchmarkGood:       "Target the largest OEE loss category to reach world-class",
			types.BenchmarkAverage:    "Run a structured loss analysis across availability, performance and quality",
			types.BenchmarkPoor:       "Launch a focused OEE improvement program starting with downtime reduction",
		},
	},
	{
		name: "first_pass_yield", worldClass: 0.99, good: 0.95, average: 0.90,
		advice: map[types.BenchmarkLevel]string{
			types.BenchmarkWorldClass: "Maintain first pass yield with ongoing SPC monitoring",
			types.BenchmarkGood:       "Attack the top defect categories to push yield above 99%",
			types.BenchmarkAverage:    "Introduce in-process inspection to catch defects earlier",
			types.BenchmarkPoor:       "Perform a full process capability study on the affected lines",
		},
	},
	{
		name: "mtbf_hours", worldClass: 200, good: 100, average: 50,
		advice: map[types.BenchmarkLevel]string{
			types.BenchmarkWorldClass: "Keep the current reliability program in place",
			types.BenchmarkGood:       "Extend condition monitoring to remaining critical equipment",
			types.BenchmarkAverage:    "Increase preventive maintenance frequency on failure-prone equipment",
			types.BenchmarkPoor:       "Establish a reliability-centered maintenance program",
		},
	},
	{
		name: "mttr_hours", worldClass: 1, good: 2, average: 4, lowerBetter: true,
		advice: map[types.BenchmarkLevel]string{
			types.BenchmarkWorldClass: "Repair response is world-class; document and standardize practices",
			types.BenchmarkGood:       "Pre-stage critical spares to shorten repair time further",
			types.BenchmarkAverage:    "Review repair workflows for waiting and diagnosis delays",
			types.BenchmarkPoor:       "Analyze repair time breakdown; most time is likely spent waiting",
		},
	},
	{
		name: "cycle_efficiency", worldClass: 0.25, good: 0.10, average: 0.05,
		advice: map[types.BenchmarkLevel]string{
			types.BenchmarkWorldClass: "Value-added ratio is excellent; hold current flow design",
			types.BenchmarkGood:       "Map the value stream to remove remaining queue time",
			types.BenchmarkAverage:    "Reduce batch sizes and WIP to cut waiting time",
			types.BenchmarkPoor:       "Run a value stream mapping workshop; most cycle time is non-value-added",
		},
	},
	{
		name: "scrap_rate", worldClass: 0.005, good: 0.01, average: 0.03, lowerBetter: true,
		advice: map[types.BenchmarkLevel]string{
			types.BenchmarkWorldClass: "Scrap is under control; monitor for drift",
			types.BenchmarkGood:       "Pareto the scrap causes and address the top contributor",
			types.BenchmarkAverage:    "Tighten process parameters linked to the dominant scrap mode",
			types.BenchmarkPoor:       "Contain the scrap source and run a formal root cause analysis",
		},
	},
}

// ComplianceScorer KPI 벤치마크 평가와 계층적 레벨 부여 에이전트
type ComplianceScorer struct {
	*agent.Base
}

// NewComplianceScorer 새 컴플라이언스 평가 에이전트 생성
func NewComplianceScorer(cfg *types.AgentConfig, opts ...agent.BaseOption) *ComplianceScorer {
	if cfg == nil {
		cfg = types.DefaultAgentConfig()
	}
	if len(cfg.Dependencies) == 0 {
		cfg.Dependencies = []types.AgentType{
			types.AgentTypeDataCollector,
			types.AgentTypePerformanceOptimizer,
			types.AgentTypeQualityAnalyzer,
			types.AgentTypeMaintenancePredictor,
		}
	}
	return &ComplianceScorer{
		Base: agent.NewBase(types.AgentTypeComplianceScorer, cfg, opts...),
	}
}

// Execute 상위 결과에서 KPI를 산출하고 벤치마크 평가 및 레벨 부여
// 입력이 비어도 에러 대신 레벨 0과 데이터 수집 권고를 반환
func (c *ComplianceScorer) Execute(ctx context.Context, actx *types.AgentContext, upstream agent.Upstream) *types.AgentResult {
	return c.Track(ctx, func(ctx context.Context) (any, []string, error) {
		collection, _ := upstream.Collection()
		performance, _ := upstream.PerformanceResult()
		quality, _ := upstream.QualityResult()
		maintenance, _ := upstream.MaintenanceResult()

		result := ScoreCompliance(collection, performance, quality, maintenance)

		var warnings []string
		if result.Level == 0 {
			warnings = append(warnings, "insufficient KPI inputs; compliance level could not be awarded")
		}
		return result, warnings, nil
	})
}

// Validate 컴플라이언스 결과 형태 확인
func (c *ComplianceScorer) Validate(data any) bool {
	_, ok := data.(*types.ComplianceResult)
	return ok
}

// ScoreCompliance KPI 산출과 레벨 부여 (순수 함수)
func ScoreCompliance(collection *types.DataCollectionResult, performance *types.PerformanceAnalysisResult, quality *types.QualityAnalysisResult, maintenance *types.MaintenanceAnalysisResult) *types.ComplianceResult {
	result := &types.ComplianceResult{}

	if performance != nil {
		result.OEE = performance.OEE.OEE
	} else if collection != nil && len(collection.Performance) > 0 {
		result.OEE = overallOEE(collection.Performance).OEE
	}

	if maintenance != nil {
		result.MTBFHours = maintenance.AvgMTBFHours
		result.MTTRHours = maintenance.AvgMTTRHours
	} else if collection != nil {
		result.MTBFHours, result.MTTRHours = maintenanceKPIs(collection)
	}

	if quality != nil {
		result.FirstPassYield = quality.FirstPassYield
		result.ScrapRate = quality.ScrapRate
	}

	if collection != nil {
		result.CycleEfficiency = cycleEfficiency(collection.Performance)
		result.Throughput = throughput(collection)
	}

	result.KPIs = assessKPIs(result)
	result.Level = awardLevel(result)

	if result.Level == 0 {
		result.Recommendations = []string{
			"Implement systematic data collection for performance, quality and maintenance before KPI benchmarking",
		}
		return result
	}

	for _, kpi := range result.KPIs {
		if kpi.Level == types.BenchmarkPoor || kpi.Level == types.BenchmarkAverage {
			result.Recommendations = append(result.Recommendations, kpi.Recommendation)
		}
	}

	return result
}

// awardLevel 계층적 레벨 부여
// 각 레벨은 하위 레벨 요건을 포함 (독립적이지 않음)
func awardLevel(r *types.ComplianceResult) int {
	if r.OEE <= 0 {
		return 0
	}
	level := 1

	if r.MTBFHours > 0 && r.MTTRHours > 0 {
		level = 2
	} else {
		return level
	}

	if r.FirstPassYield > 0 && r.CycleEfficiency > 0 {
		level = 3
	}
	return level
}

// assessKPIs 벤치마크 테이블로 각 KPI 평가
func assessKPIs(r *types.ComplianceResult) []types.KPIAssessment {
	values := map[string]float64{
		"oee":              r.OEE,
		"first_pass_yield": r.FirstPassYield,
		"mtbf_hours":       r.MTBFHours,
		"mttr_hours":       r.MTTRHours,
		"cycle_efficiency": r.CycleEfficiency,
		"scrap_rate":       r.ScrapRate,
	}

	out := make([]types.KPIAssessment, 0, len(benchmarks))
	for _, b := range benchmarks {
		value := values[b.name]
		level := b.classify(value)
		out = append(out, types.KPIAssessment{
			Name:           b.name,
			Value:          value,
			Level:          level,
			Recommendation: b.advice[level],
		})
	}
	return out
}

// classify 벤치마크 등급 판정
func (b kpiBenchmark) classify(value float64) types.BenchmarkLevel {
	if b.lowerBetter {
		switch {
		case value <= b.worldClass:
			return types.BenchmarkWorldClass
		case value <= b.good:
			return types.BenchmarkGood
		case value <= b.average:
			return types.BenchmarkAverage
		default:
			return types.BenchmarkPoor
		}
	}

	switch {
	case value >= b.worldClass:
		return types.BenchmarkWorldClass
	case value >= b.good:
		return types.BenchmarkGood
	case value >= b.average:
		return types.BenchmarkAverage
	default:
		return types.BenchmarkPoor
	}
}

// maintenanceKPIs 수집 데이터에서 MTBF/MTTR 직접 산출
// MTBF는 설비별 (가동시간 / 고장 수)를 구한 뒤 설비 평균
func maintenanceKPIs(collection *types.DataCollectionResult) (mtbf, mttr float64) {
	failures := make(map[string]int)
	var repairHours float64
	failureCount := 0

	for _, m := range collection.Maintenance {
		if !m.IsFailure {
			continue
		}
		failures[m.EquipmentID]++
		repairHours += m.RepairHours
		failureCount++
	}

	if failureCount == 0 {
		return 0, 0
	}

	opHours := make(map[string]float64)
	for _, e := range collection.Equipment {
		opHours[e.ID] = e.OpHours
	}

	var mtbfSum float64
	mtbfN := 0
	for id, n := range failures {
		hours := opHours[id]
		if hours <= 0 {
			hours = collection.TimeRange.Duration().Hours()
		}
		if hours > 0 {
			mtbfSum += hours / float64(n)
			mtbfN++
		}
	}

	if mtbfN > 0 {
		mtbf = mtbfSum / float64(mtbfN)
	}
	mttr = repairHours / float64(failureCount)
	return mtbf, mttr
}

// cycleEfficiency 제조 사이클 효율 (이상 사이클 / 실제 사이클)
func cycleEfficiency(records []types.PerformanceRecord) float64 {
	var actual, ideal float64
	for _, r := range records {
		if r.CycleTimeSec > 0 && r.IdealCycleSec > 0 {
			actual += r.CycleTimeSec
			ideal += r.IdealCycleSec
		}
	}
	if actual <= 0 {
		return 0
	}
	return clamp01(ideal / actual)
}

// throughput 기간 전체 시간당 생산량
func throughput(collection *types.DataCollectionResult) float64 {
	hours := collection.TimeRange.Duration().Hours()
	if hours <= 0 {
		return 0
	}

	var units int64
	for _, r := range collection.Performance {
		units += r.UnitsProduced
	}
	return float64(units) / hours
}

// String 디버그 출력
func (b kpiBenchmark) String() string {
	return fmt.Sprintf("%s(wc=%.3g good=%.3g avg=%.3g)", b.name, b.worldClass, b.good, b.average)
}
