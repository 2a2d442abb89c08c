package types

import (
	"errors"
	"time"
)

// AgentType 분석 에이전트 타입
type AgentType string

const (
	AgentTypeDataCollector        AgentType = "data_collector"
	AgentTypeQualityAnalyzer      AgentType = "quality_analyzer"
	AgentTypePerformanceOptimizer AgentType = "performance_optimizer"
	AgentTypeMaintenancePredictor AgentType = "maintenance_predictor"
	AgentTypeRootCauseAnalyzer    AgentType = "root_cause_analyzer"
	AgentTypeVisualizationGen     AgentType = "visualization_generator"
	AgentTypeReportGenerator      AgentType = "report_generator"
	AgentTypeOrchestrator         AgentType = "orchestrator"
	AgentTypeComplianceScorer     AgentType = "compliance_scorer"
)

// AllAgentTypes 전체 에이전트 타입 목록 (고정)
var AllAgentTypes = []AgentType{
	AgentTypeDataCollector,
	AgentTypeQualityAnalyzer,
	AgentTypePerformanceOptimizer,
	AgentTypeMaintenancePredictor,
	AgentTypeRootCauseAnalyzer,
	AgentTypeVisualizationGen,
	AgentTypeReportGenerator,
	AgentTypeOrchestrator,
	AgentTypeComplianceScorer,
}

// PipelineStage 파이프라인 단계
type PipelineStage string

const (
	StageDataCollection PipelineStage = "data_collection"
	StageDataValidation PipelineStage = "data_validation"
	StageAnalysis       PipelineStage = "analysis"
	StageOptimization   PipelineStage = "optimization"
	StageVisualization  PipelineStage = "visualization"
	StageReporting      PipelineStage = "reporting"
)

// agentStages 에이전트 타입 -> 단계 고정 매핑
var agentStages = map[AgentType]PipelineStage{
	AgentTypeDataCollector:        StageDataCollection,
	AgentTypeQualityAnalyzer:      StageAnalysis,
	AgentTypePerformanceOptimizer: StageOptimization,
	AgentTypeMaintenancePredictor: StageAnalysis,
	AgentTypeRootCauseAnalyzer:    StageAnalysis,
	AgentTypeVisualizationGen:     StageVisualization,
	AgentTypeReportGenerator:      StageReporting,
	AgentTypeOrchestrator:         StageAnalysis,
	AgentTypeComplianceScorer:     StageAnalysis,
}

// stageOrder 단계 실행 순서
var stageOrder = map[PipelineStage]int{
	StageDataCollection: 0,
	StageDataValidation: 1,
	StageAnalysis:       2,
	StageOptimization:   3,
	StageVisualization:  4,
	StageReporting:      5,
}

// StageOf 에이전트 타입의 파이프라인 단계 조회
func StageOf(t AgentType) PipelineStage {
	if stage, ok := agentStages[t]; ok {
		return stage
	}
	return StageAnalysis
}

// StageIndex 단계 실행 순서 조회
func StageIndex(s PipelineStage) int {
	if idx, ok := stageOrder[s]; ok {
		return idx
	}
	return len(stageOrder)
}

// IsValidAgentType 에이전트 타입 유효성 확인
func IsValidAgentType(t AgentType) bool {
	_, ok := agentStages[t]
	return ok
}

// AgentStatus 에이전트 상태
type AgentStatus string

const (
	AgentStatusIdle       AgentStatus = "idle"
	AgentStatusProcessing AgentStatus = "processing"
	AgentStatusCompleted  AgentStatus = "completed"
	AgentStatusFailed     AgentStatus = "failed"
)

// IsTerminal 종료 상태 여부
func (s AgentStatus) IsTerminal() bool {
	return s == AgentStatusCompleted || s == AgentStatusFailed
}

// AgentConfig 에이전트 설정
// 생성 시 한 번 설정되며 실행 중에는 변경되지 않음
type AgentConfig struct {
	Enabled      bool           `json:"enabled" yaml:"enabled"`
	Timeout      time.Duration  `json:"timeout" yaml:"timeout"`
	Retries      int            `json:"retries" yaml:"retries"`
	Priority     int            `json:"priority" yaml:"priority"` // 같은 단계 내 정렬 기준 (낮을수록 먼저)
	Dependencies []AgentType    `json:"dependencies" yaml:"dependencies"`
	Settings     map[string]any `json:"settings,omitempty" yaml:"settings,omitempty"`
}

// DefaultAgentConfig 기본 에이전트 설정
func DefaultAgentConfig() *AgentConfig {
	return &AgentConfig{
		Enabled:  true,
		Timeout:  30 * time.Second,
		Retries:  0,
		Priority: 100,
	}
}

// FallbackBehavior 에이전트 실패 시 하위 에이전트 처리 방식
type FallbackBehavior string

const (
	FallbackAbort    FallbackBehavior = "abort"    // 의존 에이전트 실행 건너뜀
	FallbackPartial  FallbackBehavior = "partial"  // 실패 결과를 포함해 의존 에이전트 실행
	FallbackContinue FallbackBehavior = "continue" // 성공한 결과만으로 계속 진행
)

var (
	ErrEmptyQuery       = errors.New("query must not be empty")
	ErrInvalidTimeRange = errors.New("time range start must be before end")
)

// TimeRange 분석 대상 시간 범위
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration 시간 범위 길이
func (r TimeRange) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Valid 시간 범위 유효성 확인
func (r TimeRange) Valid() bool {
	return !r.Start.IsZero() && !r.End.IsZero() && r.Start.Before(r.End)
}

// AgentContext 파이프라인 실행 입력 컨텍스트
// 호출자가 한 번 생성하며 모든 에이전트에 읽기 전용으로 전달됨
type AgentContext struct {
	SessionID    string         `json:"session_id"`
	UserID       string         `json:"user_id,omitempty"`
	Query        string         `json:"query"`
	TimeRange    TimeRange      `json:"time_range"`
	AnalysisType string         `json:"analysis_type,omitempty"`
	Preferences  map[string]any `json:"preferences,omitempty"`
}

// Validate 컨텍스트 유효성 검증
func (c *AgentContext) Validate() error {
	if c.Query == "" {
		return ErrEmptyQuery
	}
	if !c.TimeRange.Valid() {
		return ErrInvalidTimeRange
	}
	return nil
}
