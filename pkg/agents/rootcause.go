package agents

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/factorylens/factorylens/pkg/agent"
	"github.com/factorylens/factorylens/pkg/types"
)

// 규칙 기반 신호 임계값과 신뢰도 상수
// 각 확률은 가설별 고정 휴리스틱이며 통계적으로 적합된 값이 아님
const (
	machineAlertCount      = 10
	machineAlertProb       = 0.85
	unplannedMaintRatio    = 0.30
	unplannedMaintProb     = 0.70
	operatorAlertCount     = 5
	operatorAlertProb      = 0.65
	shiftVarianceFactor    = 2.0
	shiftVarianceProb      = 0.60
	reworkRateLimit        = 0.05
	reworkRateProb         = 0.75
	cycleOverrunFactor     = 1.2
	cycleOverrunProb       = 0.60
	materialDPMOLimit      = 1000.0
	materialDPMOProb       = 0.70
	scrapRateLimit         = 0.03
	scrapRateProb          = 0.65
	calibrationOverdueProb = 0.60
	environmentAlertCount  = 3
	environmentAlertProb   = 0.55

	lowOEELimit = 0.60
)

// fishbonePlaceholders 발견된 원인이 없는 분류에 채우는 일반 검토 항목
// UI는 항상 6개 분류 전체를 표시
var fishbonePlaceholders = map[types.CauseCategory][]string{
	types.CategoryMan: {
		"Operator training and certification status",
		"Shift handover practices",
		"Staffing levels during the period",
	},
	types.CategoryMachine: {
		"Equipment age and maintenance history",
		"Spare part availability",
		"Machine capability studies",
	},
	types.CategoryMethod: {
		"Standard work instruction adherence",
		"Process parameter settings",
		"Changeover procedures",
	},
	types.CategoryMaterial: {
		"Supplier quality performance",
		"Material storage conditions",
		"Lot-to-lot variation",
	},
	types.CategoryMeasurement: {
		"Gauge calibration schedule",
		"Measurement system analysis (MSA)",
		"Inspection sampling plan",
	},
	types.CategoryEnvironment: {
		"Temperature and humidity control",
		"Workspace cleanliness (5S)",
		"Vibration and noise levels",
	},
}

// categoryAction 분류별 권고 액션 테이블
type categoryAction struct {
	action string
	impact string
	effort string
}

var categoryActions = map[types.CauseCategory][]categoryAction{
	types.CategoryMan: {
		{"Launch targeted operator retraining for the affected line", "high", "medium"},
		{"Standardize shift handover checklists", "medium", "low"},
	},
	types.CategoryMachine: {
		{"Schedule corrective maintenance for flagged equipment", "high", "medium"},
		{"Move affected equipment to a condition-based maintenance plan", "high", "high"},
	},
	types.CategoryMethod: {
		{"Review and update standard work instructions", "medium", "low"},
		{"Introduce SPC charts on the critical process parameters", "high", "medium"},
	},
	types.CategoryMaterial: {
		{"Initiate supplier corrective action request (SCAR)", "high", "medium"},
		{"Tighten incoming inspection sampling for affected lots", "medium", "low"},
	},
	types.CategoryMeasurement: {
		{"Bring overdue gauges back onto the calibration schedule", "medium", "low"},
		{"Run a gauge R&R study on the affected measurement", "medium", "medium"},
	},
	types.CategoryEnvironment: {
		{"Restore environmental controls to specification", "medium", "medium"},
		{"Add continuous monitoring for the out-of-range condition", "low", "low"},
	},
}

// RootCauseAnalyzer 6M 피시본 기반 근본 원인 추론 에이전트
type RootCauseAnalyzer struct {
	*agent.Base
}

// NewRootCauseAnalyzer 새 근본 원인 분석 에이전트 생성
func NewRootCauseAnalyzer(cfg *types.AgentConfig, opts ...agent.BaseOption) *RootCauseAnalyzer {
	if cfg == nil {
		cfg = types.DefaultAgentConfig()
	}
	if len(cfg.Dependencies) == 0 {
		cfg.Dependencies = []types.AgentType{
			types.AgentTypeDataCollector,
			types.AgentTypeQualityAnalyzer,
			types.AgentTypePerformanceOptimizer,
		}
	}
	return &RootCauseAnalyzer{
		Base: agent.NewBase(types.AgentTypeRootCauseAnalyzer, cfg, opts...),
	}
}

// Execute 문제 정의, 6M 원인 추론, 피시본 구성, 권고 생성
// 입력이 빈 경우에도 placeholder 피시본과 함께 결과를 반환
func (r *RootCauseAnalyzer) Execute(ctx context.Context, actx *types.AgentContext, upstream agent.Upstream) *types.AgentResult {
	return r.Track(ctx, func(ctx context.Context) (any, []string, error) {
		collection, _ := upstream.Collection()
		quality, _ := upstream.QualityResult()
		performance, _ := upstream.PerformanceResult()

		result := Analyze6M(actx.Query, collection, quality, performance)

		var warnings []string
		if collection == nil {
			warnings = append(warnings, "analysis performed without collected telemetry")
		}
		return result, warnings, nil
	})
}

// Validate 근본 원인 결과 형태 확인
func (r *RootCauseAnalyzer) Validate(data any) bool {
	_, ok := data.(*types.RootCauseAnalysisResult)
	return ok
}

// Analyze6M 6M 근본 원인 분석 (순수 함수)
func Analyze6M(query string, collection *types.DataCollectionResult, quality *types.QualityAnalysisResult, performance *types.PerformanceAnalysisResult) *types.RootCauseAnalysisResult {
	result := &types.RootCauseAnalysisResult{
		ProblemStatement: problemStatement(query, quality, performance),
	}

	// 6M 분류별 독립 서브 분석, 고정 순서로 병합해 동률 시 안정성 유지
	causes := make([]types.RootCause, 0)
	causes = append(causes, analyzeMan(collection, quality)...)
	causes = append(causes, analyzeMachine(collection)...)
	causes = append(causes, analyzeMethod(collection, quality)...)
	causes = append(causes, analyzeMaterial(quality)...)
	causes = append(causes, analyzeMeasurement(collection)...)
	causes = append(causes, analyzeEnvironment(collection)...)

	sort.SliceStable(causes, func(i, j int) bool {
		return causes[i].Probability > causes[j].Probability
	})
	result.Causes = causes

	result.Fishbone = buildFishbone(causes)
	result.Recommendations = buildRecommendations(causes)

	return result
}

// problemStatement 쿼리 키워드 우선, 실패 시 지표 임계값으로 문제 정의 도출
func problemStatement(query string, quality *types.QualityAnalysisResult, performance *types.PerformanceAnalysisResult) string {
	q := strings.ToLower(query)

	switch {
	case containsAny(q, "downtime", "availability", "breakdown", "stoppage"):
		return "Frequent equipment downtime is reducing availability"
	case containsAny(q, "quality", "defect", "scrap", "rework", "reject"):
		if quality != nil && quality.DefectRateDPMO > 0 {
			return fmt.Sprintf("Elevated defect rate of %.0f DPMO with associated scrap and rework losses", quality.DefectRateDPMO)
		}
		return "Elevated defect rate and scrap losses are impacting quality"
	case containsAny(q, "oee", "efficiency", "performance", "throughput"):
		return "Overall equipment effectiveness is below target"
	case containsAny(q, "maintenance", "mtbf", "mttr", "repair"):
		return "Maintenance effectiveness is limiting equipment reliability"
	}

	// 키워드 미일치 - 상위 결과 임계값으로 추론
	if quality != nil && quality.DefectRateDPMO > materialDPMOLimit {
		return fmt.Sprintf("Elevated defect rate of %.0f DPMO exceeds the acceptable limit", quality.DefectRateDPMO)
	}
	if performance != nil && performance.OEE.OEE > 0 && performance.OEE.OEE < lowOEELimit {
		return fmt.Sprintf("OEE of %.1f%% is below the %.0f%% threshold", performance.OEE.OEE*100, lowOEELimit*100)
	}

	return "General performance review for the selected period"
}

// analyzeMan 인적 요인 신호 분석
func analyzeMan(collection *types.DataCollectionResult, quality *types.QualityAnalysisResult) []types.RootCause {
	out := make([]types.RootCause, 0)
	if collection == nil {
		return out
	}

	operatorAlerts := countAlerts(collection.Alerts, "operator")
	if operatorAlerts > operatorAlertCount {
		out = append(out, types.RootCause{
			Cause:       "Operator error or training gap",
			Category:    types.CategoryMan,
			Probability: operatorAlertProb,
			Evidence:    []string{fmt.Sprintf("%d operator-attributed alerts in period", operatorAlerts)},
		})
	}

	if lo, hi, ok := shiftDefectSpread(collection.Quality); ok && hi > lo*shiftVarianceFactor {
		out = append(out, types.RootCause{
			Cause:       "Inconsistent practices across shifts",
			Category:    types.CategoryMan,
			Probability: shiftVarianceProb,
			Evidence: []string{fmt.Sprintf("worst shift defect rate %.2f%% vs best %.2f%%",
				hi*100, lo*100)},
		})
	}

	return out
}

// analyzeMachine 설비 요인 신호 분석
func analyzeMachine(collection *types.DataCollectionResult) []types.RootCause {
	out := make([]types.RootCause, 0)
	if collection == nil {
		return out
	}

	equipmentAlerts := countAlerts(collection.Alerts, "equipment")
	if equipmentAlerts > machineAlertCount {
		out = append(out, types.RootCause{
			Cause:       "Equipment reliability degradation",
			Category:    types.CategoryMachine,
			Probability: machineAlertProb,
			Evidence:    []string{fmt.Sprintf("%d equipment alerts in period", equipmentAlerts)},
		})
	}

	if total := len(collection.Maintenance); total > 0 {
		unplanned := 0
		for _, m := range collection.Maintenance {
			if m.Type == "unplanned" {
				unplanned++
			}
		}
		if ratio := float64(unplanned) / float64(total); ratio > unplannedMaintRatio {
			out = append(out, types.RootCause{
				Cause:       "Insufficient preventive maintenance coverage",
				Category:    types.CategoryMachine,
				Probability: unplannedMaintProb,
				Evidence:    []string{fmt.Sprintf("%.0f%% of maintenance events were unplanned", ratio*100)},
			})
		}
	}

	return out
}

// analyzeMethod 방법/공정 요인 신호 분석
func analyzeMethod(collection *types.DataCollectionResult, quality *types.QualityAnalysisResult) []types.RootCause {
	out := make([]types.RootCause, 0)

	if quality != nil && quality.ReworkRate > reworkRateLimit {
		out = append(out, types.RootCause{
			Cause:       "Process control weakness causing rework",
			Category:    types.CategoryMethod,
			Probability: reworkRateProb,
			Evidence:    []string{fmt.Sprintf("rework rate %.1f%% exceeds %.0f%% limit", quality.ReworkRate*100, reworkRateLimit*100)},
		})
	}

	if collection != nil {
		var actual, ideal float64
		n := 0
		for _, p := range collection.Performance {
			if p.IdealCycleSec > 0 && p.CycleTimeSec > 0 {
				actual += p.CycleTimeSec
				ideal += p.IdealCycleSec
				n++
			}
		}
		if n > 0 && actual > ideal*cycleOverrunFactor {
			out = append(out, types.RootCause{
				Cause:       "Cycle times consistently exceed standard",
				Category:    types.CategoryMethod,
				Probability: cycleOverrunProb,
				Evidence: []string{fmt.Sprintf("average cycle %.1fs vs ideal %.1fs",
					actual/float64(n), ideal/float64(n))},
			})
		}
	}

	return out
}

// analyzeMaterial 자재 요인 신호 분석
func analyzeMaterial(quality *types.QualityAnalysisResult) []types.RootCause {
	out := make([]types.RootCause, 0)
	if quality == nil {
		return out
	}

	if quality.DefectRateDPMO > materialDPMOLimit {
		out = append(out, types.RootCause{
			Cause:       "Incoming material defects",
			Category:    types.CategoryMaterial,
			Probability: materialDPMOProb,
			Evidence:    []string{fmt.Sprintf("defect rate %.0f DPMO exceeds %.0f DPMO limit", quality.DefectRateDPMO, materialDPMOLimit)},
		})
	}

	if quality.ScrapRate > scrapRateLimit {
		out = append(out, types.RootCause{
			Cause:       "Material quality variation causing scrap",
			Category:    types.CategoryMaterial,
			Probability: scrapRateProb,
			Evidence:    []string{fmt.Sprintf("scrap rate %.1f%% exceeds %.0f%% limit", quality.ScrapRate*100, scrapRateLimit*100)},
		})
	}

	return out
}

// analyzeMeasurement 측정 요인 신호 분석
func analyzeMeasurement(collection *types.DataCollectionResult) []types.RootCause {
	out := make([]types.RootCause, 0)
	if collection == nil {
		return out
	}

	overdue := 0
	for _, m := range collection.Maintenance {
		if m.Type == "calibration" && m.OverdueTasks > 0 {
			overdue += m.OverdueTasks
		}
	}
	if overdue > 0 {
		out = append(out, types.RootCause{
			Cause:       "Measurement system calibration overdue",
			Category:    types.CategoryMeasurement,
			Probability: calibrationOverdueProb,
			Evidence:    []string{fmt.Sprintf("%d overdue calibration tasks", overdue)},
		})
	}

	return out
}

// analyzeEnvironment 환경 요인 신호 분석
func analyzeEnvironment(collection *types.DataCollectionResult) []types.RootCause {
	out := make([]types.RootCause, 0)
	if collection == nil {
		return out
	}

	envAlerts := countAlerts(collection.Alerts, "environment")
	if envAlerts > environmentAlertCount {
		out = append(out, types.RootCause{
			Cause:       "Environmental conditions out of range",
			Category:    types.CategoryEnvironment,
			Probability: environmentAlertProb,
			Evidence:    []string{fmt.Sprintf("%d environment alerts in period", envAlerts)},
		})
	}

	return out
}

// buildFishbone 원인을 분류별로 버킷팅
// 발견이 없는 분류는 placeholder로 채워 항상 6개 분류를 유지
func buildFishbone(causes []types.RootCause) map[types.CauseCategory][]string {
	fishbone := make(map[types.CauseCategory][]string, len(types.AllCauseCategories))

	for _, c := range causes {
		fishbone[c.Category] = append(fishbone[c.Category], c.Cause)
	}

	for _, cat := range types.AllCauseCategories {
		if len(fishbone[cat]) == 0 {
			fishbone[cat] = append([]string(nil), fishbonePlaceholders[cat]...)
		}
	}

	return fishbone
}

// buildRecommendations 상위 5개 원인에 분류별 액션 테이블 적용
// 우선순위는 원인 순위에 소수 오프셋을 더해 같은 원인 내 순서를 보존
func buildRecommendations(causes []types.RootCause) []types.Recommendation {
	out := make([]types.Recommendation, 0)

	top := causes
	if len(top) > 5 {
		top = top[:5]
	}

	for rank, cause := range top {
		for i, act := range categoryActions[cause.Category] {
			out = append(out, types.Recommendation{
				Action:   act.action,
				Impact:   act.impact,
				Effort:   act.effort,
				Priority: float64(rank) + float64(i)*0.1,
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority < out[j].Priority
	})
	return out
}

// countAlerts 해당 분류의 알람 수
func countAlerts(alerts []types.AlertRecord, category string) int {
	n := 0
	for _, a := range alerts {
		if a.Category == category {
			n++
		}
	}
	return n
}

// shiftDefectSpread 교대조별 결함률 최소/최대
func shiftDefectSpread(records []types.QualityRecord) (lo, hi float64, ok bool) {
	checked := make(map[string]int64)
	defects := make(map[string]int64)

	for _, r := range records {
		if r.Shift == "" {
			continue
		}
		checked[r.Shift] += r.UnitsChecked
		defects[r.Shift] += r.Defects
	}

	if len(checked) < 2 {
		return 0, 0, false
	}

	first := true
	for shift, c := range checked {
		if c == 0 {
			continue
		}
		rate := float64(defects[shift]) / float64(c)
		if first {
			lo, hi = rate, rate
			first = false
			continue
		}
		if rate < lo {
			lo = rate
		}
		if rate > hi {
			hi = rate
		}
	}

	return lo, hi, !first && lo > 0
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
