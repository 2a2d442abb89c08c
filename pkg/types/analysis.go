package types

import "time"

// OEEBreakdown OEE 구성 요소
type OEEBreakdown struct {
	Availability float64 `json:"availability"`
	Performance  float64 `json:"performance"`
	Quality      float64 `json:"quality"`
	OEE          float64 `json:"oee"`
}

// Bottleneck 병목 설비
type Bottleneck struct {
	EquipmentID string  `json:"equipment_id"`
	OEE         float64 `json:"oee"`
	Downtime    float64 `json:"downtime_hours"`
	Reason      string  `json:"reason"`
}

// Opportunity 개선 기회
type Opportunity struct {
	Area          string  `json:"area"`
	Description   string  `json:"description"`
	EstimatedGain float64 `json:"estimated_gain"` // OEE 포인트 추정 개선폭
}

// PerformanceAnalysisResult 성능 최적화 에이전트 결과
type PerformanceAnalysisResult struct {
	OEE           OEEBreakdown  `json:"oee"`
	ByEquipment   map[string]OEEBreakdown `json:"by_equipment,omitempty"`
	Bottlenecks   []Bottleneck  `json:"bottlenecks,omitempty"`
	Opportunities []Opportunity `json:"opportunities,omitempty"`
}

// DefectSummary 결함 유형 요약
type DefectSummary struct {
	DefectType string `json:"defect_type"`
	Count      int64  `json:"count"`
}

// QualityAnalysisResult 품질 분석 에이전트 결과
type QualityAnalysisResult struct {
	DefectRateDPMO float64         `json:"defect_rate_dpmo"`
	FirstPassYield float64         `json:"first_pass_yield"` // 0~1
	ScrapRate      float64         `json:"scrap_rate"`       // 0~1
	ReworkRate     float64         `json:"rework_rate"`      // 0~1
	UnitsChecked   int64           `json:"units_checked"`
	TopDefects     []DefectSummary `json:"top_defects,omitempty"`
}

// CauseCategory 6M 피시본 원인 분류
type CauseCategory string

const (
	CategoryMan         CauseCategory = "man"
	CategoryMachine     CauseCategory = "machine"
	CategoryMethod      CauseCategory = "method"
	CategoryMaterial    CauseCategory = "material"
	CategoryMeasurement CauseCategory = "measurement"
	CategoryEnvironment CauseCategory = "environment"
)

// AllCauseCategories 6M 분류 전체 (고정)
var AllCauseCategories = []CauseCategory{
	CategoryMan,
	CategoryMachine,
	CategoryMethod,
	CategoryMaterial,
	CategoryMeasurement,
	CategoryEnvironment,
}

// RootCause 추정 원인
// Probability는 가설별 독립 신뢰도이며 합이 1일 필요는 없음
type RootCause struct {
	Cause       string        `json:"cause"`
	Category    CauseCategory `json:"category"`
	Probability float64       `json:"probability"` // 0~1
	Evidence    []string      `json:"evidence,omitempty"`
}

// Recommendation 개선 권고
// Priority가 낮을수록 먼저 수행
type Recommendation struct {
	Action   string  `json:"action"`
	Impact   string  `json:"impact"`
	Effort   string  `json:"effort"`
	Priority float64 `json:"priority"`
}

// RootCauseAnalysisResult 근본 원인 분석 에이전트 결과
// Fishbone은 항상 6M 분류 전체를 포함
type RootCauseAnalysisResult struct {
	ProblemStatement string                     `json:"problem_statement"`
	Causes           []RootCause                `json:"causes"`
	Fishbone         map[CauseCategory][]string `json:"fishbone"`
	Recommendations  []Recommendation           `json:"recommendations"`
}

// MaintenanceForecast 설비별 유지보수 예측
type MaintenanceForecast struct {
	EquipmentID   string     `json:"equipment_id"`
	FailureCount  int        `json:"failure_count"`
	MTBFHours     float64    `json:"mtbf_hours"`
	RiskScore     float64    `json:"risk_score"` // 0~1
	NextFailureAt *time.Time `json:"next_failure_at,omitempty"`
}

// MaintenanceAnalysisResult 유지보수 예측 에이전트 결과
type MaintenanceAnalysisResult struct {
	Forecasts    []MaintenanceForecast `json:"forecasts"`
	AvgMTBFHours float64               `json:"avg_mtbf_hours"`
	AvgMTTRHours float64               `json:"avg_mttr_hours"`
}

// BenchmarkLevel KPI 벤치마크 등급
type BenchmarkLevel string

const (
	BenchmarkWorldClass BenchmarkLevel = "world_class"
	BenchmarkGood       BenchmarkLevel = "good"
	BenchmarkAverage    BenchmarkLevel = "average"
	BenchmarkPoor       BenchmarkLevel = "poor"
)

// KPIAssessment 단일 KPI 평가
type KPIAssessment struct {
	Name           string         `json:"name"`
	Value          float64        `json:"value"`
	Level          BenchmarkLevel `json:"level"`
	Recommendation string         `json:"recommendation"`
}

// ComplianceResult KPI 컴플라이언스 평가 결과
// Level은 계층적으로 부여됨 (상위 레벨은 하위 레벨 요건을 포함)
type ComplianceResult struct {
	OEE             float64         `json:"oee"`
	MTBFHours       float64         `json:"mtbf_hours"`
	MTTRHours       float64         `json:"mttr_hours"`
	FirstPassYield  float64         `json:"first_pass_yield"`
	CycleEfficiency float64         `json:"cycle_efficiency"`
	Throughput      float64         `json:"throughput"` // 단위/시간
	ScrapRate       float64         `json:"scrap_rate"`
	KPIs            []KPIAssessment `json:"kpis"`
	Level           int             `json:"level"` // 0~3
	Recommendations []string        `json:"recommendations"`
}
