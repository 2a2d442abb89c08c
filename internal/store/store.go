package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/factorylens/factorylens/pkg/types"
)

var ErrRunNotFound = errors.New("analysis run not found")

// SaveRun 파이프라인 결과 저장
// 같은 세션 ID가 이미 있으면 갱신
func (db *DB) SaveRun(ctx context.Context, result *types.PipelineResult) (*AnalysisRun, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal pipeline result: %w", err)
	}

	oee, level := summaryOf(result)
	run := &AnalysisRun{
		SessionID:       result.SessionID,
		Query:           result.Query,
		Status:          string(result.Status),
		StartedAt:       result.StartedAt,
		EndedAt:         result.EndedAt,
		ExecutionMs:     result.ExecutionTime.Milliseconds(),
		OEE:             oee,
		ComplianceLevel: level,
		Result:          string(payload),
	}

	var existing AnalysisRun
	err = db.WithContext(ctx).Where("session_id = ?", result.SessionID).First(&existing).Error
	switch {
	case err == nil:
		run.ID = existing.ID
		run.CreatedAt = existing.CreatedAt
		if err := db.WithContext(ctx).Save(run).Error; err != nil {
			return nil, fmt.Errorf("failed to update analysis run: %w", err)
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := db.WithContext(ctx).Create(run).Error; err != nil {
			return nil, fmt.Errorf("failed to create analysis run: %w", err)
		}
	default:
		return nil, fmt.Errorf("failed to query analysis run: %w", err)
	}

	return run, nil
}

// GetRun 세션 ID로 실행 이력 조회
func (db *DB) GetRun(ctx context.Context, sessionID string) (*AnalysisRun, error) {
	var run AnalysisRun
	err := db.WithContext(ctx).Where("session_id = ?", sessionID).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query analysis run: %w", err)
	}
	return &run, nil
}

// GetRunResult 저장된 파이프라인 결과 복원
func (db *DB) GetRunResult(ctx context.Context, sessionID string) (*types.PipelineResult, error) {
	run, err := db.GetRun(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var result types.PipelineResult
	if err := json.Unmarshal([]byte(run.Result), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stored result: %w", err)
	}
	return &result, nil
}

// ListRuns 최근 실행 이력 조회 (최신순)
func (db *DB) ListRuns(ctx context.Context, limit, offset int) ([]AnalysisRun, error) {
	if limit <= 0 {
		limit = 20
	}

	var runs []AnalysisRun
	err := db.WithContext(ctx).
		Select("id", "session_id", "user_id", "query", "status",
			"started_at", "ended_at", "execution_ms", "oee", "compliance_level",
			"created_at", "updated_at").
		Order("started_at DESC").
		Limit(limit).Offset(offset).
		Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list analysis runs: %w", err)
	}
	return runs, nil
}

// ListSchedules 활성 스케줄 조회
func (db *DB) ListSchedules(ctx context.Context, enabledOnly bool) ([]AnalysisSchedule, error) {
	query := db.WithContext(ctx).Order("id")
	if enabledOnly {
		query = query.Where("enabled = ?", true)
	}

	var schedules []AnalysisSchedule
	if err := query.Find(&schedules).Error; err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	return schedules, nil
}

// SaveSchedule 스케줄 저장 (이름 기준 upsert)
func (db *DB) SaveSchedule(ctx context.Context, schedule *AnalysisSchedule) error {
	var existing AnalysisSchedule
	err := db.WithContext(ctx).Where("name = ?", schedule.Name).First(&existing).Error
	switch {
	case err == nil:
		schedule.ID = existing.ID
		schedule.CreatedAt = existing.CreatedAt
		if err := db.WithContext(ctx).Save(schedule).Error; err != nil {
			return fmt.Errorf("failed to update schedule: %w", err)
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := db.WithContext(ctx).Create(schedule).Error; err != nil {
			return fmt.Errorf("failed to create schedule: %w", err)
		}
	default:
		return fmt.Errorf("failed to query schedule: %w", err)
	}
	return nil
}

// MarkScheduleRun 스케줄 마지막 실행 기록
func (db *DB) MarkScheduleRun(ctx context.Context, scheduleID uint, sessionID string, at time.Time) error {
	return db.WithContext(ctx).Model(&AnalysisSchedule{}).
		Where("id = ?", scheduleID).
		Updates(map[string]any{
			"last_run_at": at,
			"last_run_id": sessionID,
		}).Error
}
