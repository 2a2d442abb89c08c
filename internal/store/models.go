package store

import (
	"time"

	"github.com/factorylens/factorylens/pkg/types"
)

// AnalysisRun 파이프라인 실행 이력
type AnalysisRun struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	SessionID string `gorm:"uniqueIndex;size:64" json:"session_id"`
	UserID    string `gorm:"size:64;index" json:"user_id,omitempty"`
	Query     string `gorm:"size:1024" json:"query"`

	Status      string    `gorm:"size:16;index" json:"status"`
	StartedAt   time.Time `json:"started_at"`
	EndedAt     time.Time `json:"ended_at"`
	ExecutionMs int64     `json:"execution_ms"`

	// 조회용 요약 컬럼
	OEE             float64 `json:"oee"`
	ComplianceLevel int     `json:"compliance_level"`

	// 전체 결과 (JSON 직렬화)
	Result string `gorm:"type:longtext" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 테이블명 지정
func (AnalysisRun) TableName() string {
	return "analysis_runs"
}

// AnalysisSchedule 주기 분석 스케줄
type AnalysisSchedule struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Name     string `gorm:"size:128;uniqueIndex" json:"name"`
	CronExpr string `gorm:"size:64" json:"cron_expr"`
	Query    string `gorm:"size:1024" json:"query"`

	// 분석 대상 시간 범위 길이 (예: 24h)
	WindowHours int  `json:"window_hours"`
	Enabled     bool `gorm:"index" json:"enabled"`

	LastRunAt *time.Time `json:"last_run_at,omitempty"`
	LastRunID string     `gorm:"size:64" json:"last_run_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 테이블명 지정
func (AnalysisSchedule) TableName() string {
	return "analysis_schedules"
}

// summaryOf 파이프라인 결과에서 요약 컬럼 추출
func summaryOf(result *types.PipelineResult) (oee float64, level int) {
	if res := result.AgentResultOf(types.AgentTypeComplianceScorer); res.Succeeded() {
		if compliance, ok := res.Data.(*types.ComplianceResult); ok {
			return compliance.OEE, compliance.Level
		}
	}
	if res := result.AgentResultOf(types.AgentTypePerformanceOptimizer); res.Succeeded() {
		if perf, ok := res.Data.(*types.PerformanceAnalysisResult); ok {
			return perf.OEE.OEE, 0
		}
	}
	return 0, 0
}
