package datasource

import (
	"context"

	"github.com/factorylens/factorylens/pkg/types"
)

// MaintenanceProvider 유지보수 데이터셋만 제공하는 소스
type MaintenanceProvider interface {
	Maintenance(ctx context.Context, tr types.TimeRange) ([]types.MaintenanceRecord, error)
}

// AlertProvider 알람 데이터셋만 제공하는 소스
type AlertProvider interface {
	Alerts(ctx context.Context, tr types.TimeRange) ([]types.AlertRecord, error)
}

// Composite 데이터셋별로 다른 백엔드를 조합한 텔레메트리 소스
// Base가 기본이며 오버라이드가 설정된 데이터셋만 대체/병합됨
type Composite struct {
	Base TelemetrySource

	// MaintenanceOverride 설정 시 유지보수 데이터셋을 대체 (예: MongoDB CMMS)
	MaintenanceOverride MaintenanceProvider

	// ExtraAlerts 설정 시 기본 알람에 병합 (예: Kafka 스트림, Elasticsearch)
	ExtraAlerts []AlertProvider
}

func (c *Composite) Name() string {
	return "composite(" + c.Base.Name() + ")"
}

func (c *Composite) Performance(ctx context.Context, tr types.TimeRange) ([]types.PerformanceRecord, error) {
	return c.Base.Performance(ctx, tr)
}

func (c *Composite) Quality(ctx context.Context, tr types.TimeRange) ([]types.QualityRecord, error) {
	return c.Base.Quality(ctx, tr)
}

func (c *Composite) Maintenance(ctx context.Context, tr types.TimeRange) ([]types.MaintenanceRecord, error) {
	if c.MaintenanceOverride != nil {
		return c.MaintenanceOverride.Maintenance(ctx, tr)
	}
	return c.Base.Maintenance(ctx, tr)
}

func (c *Composite) Alerts(ctx context.Context, tr types.TimeRange) ([]types.AlertRecord, error) {
	alerts, err := c.Base.Alerts(ctx, tr)
	if err != nil {
		return nil, err
	}

	for _, p := range c.ExtraAlerts {
		extra, err := p.Alerts(ctx, tr)
		if err != nil {
			// 보조 소스 장애는 기본 결과 반환을 막지 않음
			continue
		}
		alerts = append(alerts, extra...)
	}
	return alerts, nil
}

func (c *Composite) Equipment(ctx context.Context) ([]types.Equipment, error) {
	return c.Base.Equipment(ctx)
}

func (c *Composite) Close() error {
	return c.Base.Close()
}
