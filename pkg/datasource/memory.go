package datasource

import (
	"context"
	"time"

	"github.com/factorylens/factorylens/pkg/types"
)

// MemorySource 메모리 기반 텔레메트리 소스
// 테스트와 로컬 실행에서 사용
type MemorySource struct {
	PerformanceRecords []types.PerformanceRecord
	QualityRecords     []types.QualityRecord
	MaintenanceRecords []types.MaintenanceRecord
	AlertRecords       []types.AlertRecord
	EquipmentList      []types.Equipment
}

// NewMemorySource 새 MemorySource 생성
func NewMemorySource() *MemorySource {
	return &MemorySource{}
}

func (s *MemorySource) Name() string {
	return "memory"
}

func (s *MemorySource) Performance(ctx context.Context, tr types.TimeRange) ([]types.PerformanceRecord, error) {
	out := make([]types.PerformanceRecord, 0, len(s.PerformanceRecords))
	for _, r := range s.PerformanceRecords {
		if inRange(r.Timestamp, tr) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *MemorySource) Quality(ctx context.Context, tr types.TimeRange) ([]types.QualityRecord, error) {
	out := make([]types.QualityRecord, 0, len(s.QualityRecords))
	for _, r := range s.QualityRecords {
		if inRange(r.Timestamp, tr) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *MemorySource) Maintenance(ctx context.Context, tr types.TimeRange) ([]types.MaintenanceRecord, error) {
	out := make([]types.MaintenanceRecord, 0, len(s.MaintenanceRecords))
	for _, r := range s.MaintenanceRecords {
		if inRange(r.StartedAt, tr) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *MemorySource) Alerts(ctx context.Context, tr types.TimeRange) ([]types.AlertRecord, error) {
	out := make([]types.AlertRecord, 0, len(s.AlertRecords))
	for _, r := range s.AlertRecords {
		if inRange(r.Timestamp, tr) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *MemorySource) Equipment(ctx context.Context) ([]types.Equipment, error) {
	return s.EquipmentList, nil
}

func (s *MemorySource) Close() error {
	return nil
}

func inRange(t time.Time, tr types.TimeRange) bool {
	return !t.Before(tr.Start) && !t.After(tr.End)
}
