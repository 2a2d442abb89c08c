// Package agents 분석 파이프라인의 전문 에이전트 구현
package agents

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/factorylens/factorylens/pkg/agent"
	"github.com/factorylens/factorylens/pkg/datasource"
	"github.com/factorylens/factorylens/pkg/types"
)

// DataCollector 원시 텔레메트리 수집 및 데이터 품질 평가 에이전트
type DataCollector struct {
	*agent.Base
	source datasource.TelemetrySource
}

// NewDataCollector 새 수집 에이전트 생성
func NewDataCollector(source datasource.TelemetrySource, cfg *types.AgentConfig, opts ...agent.BaseOption) *DataCollector {
	return &DataCollector{
		Base:   agent.NewBase(types.AgentTypeDataCollector, cfg, opts...),
		source: source,
	}
}

// Execute 네 가지 데이터셋과 설비 목록을 수집하고 품질 점수를 계산
// 개별 데이터셋 장애는 경고로 강등되며 전부 실패했을 때만 에러
func (c *DataCollector) Execute(ctx context.Context, actx *types.AgentContext, upstream agent.Upstream) *types.AgentResult {
	return c.Track(ctx, func(ctx context.Context) (any, []string, error) {
		if c.source == nil {
			return &types.DataCollectionResult{TimeRange: actx.TimeRange}, nil, errors.New("no telemetry source configured")
		}

		tr := actx.TimeRange
		result := &types.DataCollectionResult{TimeRange: tr}
		warnings := make([]string, 0)
		failures := 0

		var err error
		if result.Performance, err = c.source.Performance(ctx, tr); err != nil {
			warnings = append(warnings, fmt.Sprintf("performance data unavailable: %v", err))
			failures++
		}
		if result.Quality, err = c.source.Quality(ctx, tr); err != nil {
			warnings = append(warnings, fmt.Sprintf("quality data unavailable: %v", err))
			failures++
		}
		if result.Maintenance, err = c.source.Maintenance(ctx, tr); err != nil {
			warnings = append(warnings, fmt.Sprintf("maintenance data unavailable: %v", err))
			failures++
		}
		if result.Alerts, err = c.source.Alerts(ctx, tr); err != nil {
			warnings = append(warnings, fmt.Sprintf("alert data unavailable: %v", err))
			failures++
		}
		if result.Equipment, err = c.source.Equipment(ctx); err != nil {
			warnings = append(warnings, fmt.Sprintf("equipment list unavailable: %v", err))
		}

		if failures == 4 {
			return result, warnings, fmt.Errorf("all telemetry datasets unavailable from %s", c.source.Name())
		}

		result.DataQuality = scoreDataQuality(result)
		return result, warnings, nil
	})
}

// Validate 수집 결과 형태 확인
func (c *DataCollector) Validate(data any) bool {
	_, ok := data.(*types.DataCollectionResult)
	return ok
}

// scoreDataQuality 수집 데이터의 완전성/정확성/적시성 점수 계산 (각 0~1)
func scoreDataQuality(r *types.DataCollectionResult) types.DataQuality {
	return types.DataQuality{
		Completeness: scoreCompleteness(r),
		Accuracy:     scoreAccuracy(r),
		Timeliness:   scoreTimeliness(r),
	}
}

// scoreCompleteness 기대 커버리지 대비 수집량
// 설비 정보가 있으면 시간당 1건 기준으로 성능 레코드 커버리지를 계산하고
// 없으면 비어 있지 않은 데이터셋 비율로 대체
func scoreCompleteness(r *types.DataCollectionResult) float64 {
	if len(r.Equipment) > 0 {
		expected := r.TimeRange.Duration().Hours() * float64(len(r.Equipment))
		if expected <= 0 {
			return 0
		}
		return clamp01(float64(len(r.Performance)) / expected)
	}

	nonEmpty := 0.0
	if len(r.Performance) > 0 {
		nonEmpty++
	}
	if len(r.Quality) > 0 {
		nonEmpty++
	}
	if len(r.Maintenance) > 0 {
		nonEmpty++
	}
	if len(r.Alerts) > 0 {
		nonEmpty++
	}
	return nonEmpty / 4
}

// scoreAccuracy 값 범위가 유효한 레코드 비율
func scoreAccuracy(r *types.DataCollectionResult) float64 {
	total, valid := 0, 0

	for _, p := range r.Performance {
		total++
		if p.Availability >= 0 && p.Availability <= 1 &&
			p.Performance >= 0 && p.Performance <= 1 &&
			p.Quality >= 0 && p.Quality <= 1 {
			valid++
		}
	}
	for _, q := range r.Quality {
		total++
		if q.UnitsChecked >= 0 && q.Defects >= 0 && q.Defects <= q.UnitsChecked {
			valid++
		}
	}

	if total == 0 {
		return 0
	}
	return float64(valid) / float64(total)
}

// scoreTimeliness 범위 끝 대비 최신 레코드 지연도
func scoreTimeliness(r *types.DataCollectionResult) float64 {
	duration := r.TimeRange.Duration()
	if duration <= 0 {
		return 0
	}

	var latest = r.TimeRange.Start
	for _, p := range r.Performance {
		if p.Timestamp.After(latest) {
			latest = p.Timestamp
		}
	}
	for _, q := range r.Quality {
		if q.Timestamp.After(latest) {
			latest = q.Timestamp
		}
	}

	if latest.Equal(r.TimeRange.Start) {
		return 0
	}

	lag := r.TimeRange.End.Sub(latest)
	return clamp01(1 - lag.Seconds()/duration.Seconds())
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
