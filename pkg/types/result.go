package types

import "time"

// AgentResult 에이전트 실행 결과
// 에이전트가 생성해 반환하며 오케스트레이터는 집계만 하고 변경하지 않음
type AgentResult struct {
	AgentType     AgentType     `json:"agent_type"`
	Status        AgentStatus   `json:"status"`
	StartedAt     time.Time     `json:"started_at"`
	EndedAt       time.Time     `json:"ended_at"`
	ExecutionTime time.Duration `json:"execution_time"`
	Data          any           `json:"data,omitempty"`
	Errors        []string      `json:"errors,omitempty"`
	Warnings      []string      `json:"warnings,omitempty"`
}

// Succeeded 성공 여부
func (r *AgentResult) Succeeded() bool {
	return r != nil && r.Status == AgentStatusCompleted
}

// PipelineStatus 파이프라인 상태
type PipelineStatus string

const (
	PipelineStatusPending   PipelineStatus = "pending"
	PipelineStatusRunning   PipelineStatus = "running"
	PipelineStatusCompleted PipelineStatus = "completed"
	PipelineStatusPartial   PipelineStatus = "partial" // 일부 에이전트 실패
	PipelineStatusFailed    PipelineStatus = "failed"
	PipelineStatusAborted   PipelineStatus = "aborted"
)

// StageResult 단계별 실행 결과
type StageResult struct {
	Stage     PipelineStage               `json:"stage"`
	Status    PipelineStatus              `json:"status"`
	StartedAt time.Time                   `json:"started_at"`
	EndedAt   time.Time                   `json:"ended_at"`
	Results   map[AgentType]*AgentResult  `json:"results"`
}

// VisualizationSpec 시각화 디스크립터
type VisualizationSpec struct {
	Type    string         `json:"type"` // oee_gauge / pareto / fishbone / trend
	Title   string         `json:"title"`
	Data    any            `json:"data,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

// VisualizationResult 시각화 에이전트 결과
type VisualizationResult struct {
	Specs           []VisualizationSpec `json:"specs"`
	InterimMessages int                 `json:"interim_messages"` // 메일박스에서 소비한 중간 메시지 수
}

// Reference 참조 디스크립터
type Reference struct {
	Title  string `json:"title"`
	Source string `json:"source"`
	URL    string `json:"url,omitempty"`
}

// FinalReport 최종 합성 결과
type FinalReport struct {
	Content         string              `json:"content"`
	Confidence      float64             `json:"confidence"` // 0~1
	Visualizations  []VisualizationSpec `json:"visualizations,omitempty"`
	References      []Reference         `json:"references,omitempty"`
	Recommendations []string            `json:"recommendations,omitempty"`
}

// PipelineResult 파이프라인 전체 실행 결과
// 표현/리포트 계층이 소비하는 유일한 계약
type PipelineResult struct {
	SessionID     string                        `json:"session_id"`
	Query         string                        `json:"query"`
	Status        PipelineStatus                `json:"status"`
	StartedAt     time.Time                     `json:"started_at"`
	EndedAt       time.Time                     `json:"ended_at"`
	ExecutionTime time.Duration                 `json:"execution_time"`
	Stages        map[PipelineStage]*StageResult `json:"stages"`
	Final         *FinalReport                  `json:"final,omitempty"`
	Errors        []string                      `json:"errors,omitempty"`
	Warnings      []string                      `json:"warnings,omitempty"`
}

// AgentResultOf 특정 에이전트의 결과 조회
func (r *PipelineResult) AgentResultOf(t AgentType) *AgentResult {
	for _, stage := range r.Stages {
		if res, ok := stage.Results[t]; ok {
			return res
		}
	}
	return nil
}
