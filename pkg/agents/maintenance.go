package agents

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/factorylens/factorylens/pkg/agent"
	"github.com/factorylens/factorylens/pkg/types"
)

// 위험 점수 가중치
const (
	riskFailureWeight = 0.5
	riskOverdueWeight = 0.3
	riskAgeWeight     = 0.2
)

// MaintenancePredictor 고장 이력 기반 유지보수 예측 에이전트
type MaintenancePredictor struct {
	*agent.Base
}

// NewMaintenancePredictor 새 유지보수 예측 에이전트 생성
func NewMaintenancePredictor(cfg *types.AgentConfig, opts ...agent.BaseOption) *MaintenancePredictor {
	if cfg == nil {
		cfg = types.DefaultAgentConfig()
	}
	if len(cfg.Dependencies) == 0 {
		cfg.Dependencies = []types.AgentType{types.AgentTypeDataCollector}
	}
	return &MaintenancePredictor{
		Base: agent.NewBase(types.AgentTypeMaintenancePredictor, cfg, opts...),
	}
}

// Execute 설비별 MTBF/MTTR과 위험 점수, 다음 고장 추정 시점 산출
func (m *MaintenancePredictor) Execute(ctx context.Context, actx *types.AgentContext, upstream agent.Upstream) *types.AgentResult {
	return m.Track(ctx, func(ctx context.Context) (any, []string, error) {
		collection, ok := upstream.Collection()
		if !ok || len(collection.Maintenance) == 0 {
			return &types.MaintenanceAnalysisResult{}, nil, errors.New("no maintenance data available")
		}

		return PredictMaintenance(collection), nil, nil
	})
}

// Validate 유지보수 분석 결과 형태 확인
func (m *MaintenancePredictor) Validate(data any) bool {
	_, ok := data.(*types.MaintenanceAnalysisResult)
	return ok
}

// PredictMaintenance 유지보수 이력 집계와 설비별 예측 (순수 함수)
func PredictMaintenance(collection *types.DataCollectionResult) *types.MaintenanceAnalysisResult {
	type equipmentHistory struct {
		failures    int
		repairHours float64
		overdue     int
		lastFailure time.Time
	}

	histories := make(map[string]*equipmentHistory)
	for _, rec := range collection.Maintenance {
		h := histories[rec.EquipmentID]
		if h == nil {
			h = &equipmentHistory{}
			histories[rec.EquipmentID] = h
		}
		if rec.OverdueTasks > h.overdue {
			h.overdue = rec.OverdueTasks
		}
		if !rec.IsFailure {
			continue
		}
		h.failures++
		h.repairHours += rec.RepairHours
		if rec.StartedAt.After(h.lastFailure) {
			h.lastFailure = rec.StartedAt
		}
	}

	opHours := make(map[string]float64)
	var maxAge float64
	for _, e := range collection.Equipment {
		opHours[e.ID] = e.OpHours
		if e.OpHours > maxAge {
			maxAge = e.OpHours
		}
	}
	rangeHours := collection.TimeRange.Duration().Hours()

	result := &types.MaintenanceAnalysisResult{}
	var mtbfSum, repairSum float64
	mtbfN, failureTotal := 0, 0

	for id, h := range histories {
		f := types.MaintenanceForecast{
			EquipmentID:  id,
			FailureCount: h.failures,
		}

		if h.failures > 0 {
			hours := opHours[id]
			if hours <= 0 {
				hours = rangeHours
			}
			if hours > 0 {
				f.MTBFHours = hours / float64(h.failures)
				mtbfSum += f.MTBFHours
				mtbfN++
			}

			// 마지막 고장 시점 + MTBF를 다음 고장 추정 시점으로 사용
			if !h.lastFailure.IsZero() && f.MTBFHours > 0 {
				next := h.lastFailure.Add(time.Duration(f.MTBFHours * float64(time.Hour)))
				f.NextFailureAt = &next
			}

			repairSum += h.repairHours
			failureTotal += h.failures
		}

		f.RiskScore = riskScore(h.failures, h.overdue, opHours[id], maxAge)
		result.Forecasts = append(result.Forecasts, f)
	}

	// 위험 높은 순, 동률이면 설비 ID 순
	sort.Slice(result.Forecasts, func(i, j int) bool {
		a, b := result.Forecasts[i], result.Forecasts[j]
		if a.RiskScore != b.RiskScore {
			return a.RiskScore > b.RiskScore
		}
		return a.EquipmentID < b.EquipmentID
	})

	if mtbfN > 0 {
		result.AvgMTBFHours = mtbfSum / float64(mtbfN)
	}
	if failureTotal > 0 {
		result.AvgMTTRHours = repairSum / float64(failureTotal)
	}
	return result
}

// riskScore 고장 빈도, 지연 작업, 설비 연식의 가중 합 (0~1)
func riskScore(failures, overdue int, opHours, maxAge float64) float64 {
	failureTerm := clamp01(float64(failures) / 5)
	overdueTerm := clamp01(float64(overdue) / 10)

	ageTerm := 0.0
	if maxAge > 0 {
		ageTerm = clamp01(opHours / maxAge)
	}

	return clamp01(failureTerm*riskFailureWeight + overdueTerm*riskOverdueWeight + ageTerm*riskAgeWeight)
}
