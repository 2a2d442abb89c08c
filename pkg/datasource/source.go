// Package datasource 텔레메트리 저장소 컬래버레이터
// 데이터 수집 에이전트는 이 인터페이스를 통해서만 원시 데이터를 받음
package datasource

import (
	"context"

	"github.com/factorylens/factorylens/pkg/types"
)

// TelemetrySource 시간 범위 기반 텔레메트리 조회 인터페이스
type TelemetrySource interface {
	// Name 소스 이름
	Name() string

	// Performance 성능 레코드 조회
	Performance(ctx context.Context, tr types.TimeRange) ([]types.PerformanceRecord, error)

	// Quality 품질 레코드 조회
	Quality(ctx context.Context, tr types.TimeRange) ([]types.QualityRecord, error)

	// Maintenance 유지보수 레코드 조회
	Maintenance(ctx context.Context, tr types.TimeRange) ([]types.MaintenanceRecord, error)

	// Alerts 알람 레코드 조회
	Alerts(ctx context.Context, tr types.TimeRange) ([]types.AlertRecord, error)

	// Equipment 설비 목록 조회
	Equipment(ctx context.Context) ([]types.Equipment, error)

	// Close 연결 종료
	Close() error
}
