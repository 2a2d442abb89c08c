package agent

import "github.com/factorylens/factorylens/pkg/types"

// Upstream 상위 에이전트 결과 스냅샷
// 오케스트레이터가 의존성 완료 시점에 만들어 읽기 전용으로 전달
type Upstream map[types.AgentType]*types.AgentResult

// Collection 데이터 수집 결과 조회
func (u Upstream) Collection() (*types.DataCollectionResult, bool) {
	res, ok := u[types.AgentTypeDataCollector]
	if !ok || !res.Succeeded() {
		return nil, false
	}
	data, ok := res.Data.(*types.DataCollectionResult)
	return data, ok
}

// QualityResult 품질 분석 결과 조회
func (u Upstream) QualityResult() (*types.QualityAnalysisResult, bool) {
	res, ok := u[types.AgentTypeQualityAnalyzer]
	if !ok || !res.Succeeded() {
		return nil, false
	}
	data, ok := res.Data.(*types.QualityAnalysisResult)
	return data, ok
}

// PerformanceResult 성능 분석 결과 조회
func (u Upstream) PerformanceResult() (*types.PerformanceAnalysisResult, bool) {
	res, ok := u[types.AgentTypePerformanceOptimizer]
	if !ok || !res.Succeeded() {
		return nil, false
	}
	data, ok := res.Data.(*types.PerformanceAnalysisResult)
	return data, ok
}

// MaintenanceResult 유지보수 분석 결과 조회
func (u Upstream) MaintenanceResult() (*types.MaintenanceAnalysisResult, bool) {
	res, ok := u[types.AgentTypeMaintenancePredictor]
	if !ok || !res.Succeeded() {
		return nil, false
	}
	data, ok := res.Data.(*types.MaintenanceAnalysisResult)
	return data, ok
}

// RootCauseResult 근본 원인 분석 결과 조회
func (u Upstream) RootCauseResult() (*types.RootCauseAnalysisResult, bool) {
	res, ok := u[types.AgentTypeRootCauseAnalyzer]
	if !ok || !res.Succeeded() {
		return nil, false
	}
	data, ok := res.Data.(*types.RootCauseAnalysisResult)
	return data, ok
}

// ComplianceResult 컴플라이언스 평가 결과 조회
func (u Upstream) ComplianceResult() (*types.ComplianceResult, bool) {
	res, ok := u[types.AgentTypeComplianceScorer]
	if !ok || !res.Succeeded() {
		return nil, false
	}
	data, ok := res.Data.(*types.ComplianceResult)
	return data, ok
}

// VisualizationResult 시각화 결과 조회
func (u Upstream) VisualizationResult() (*types.VisualizationResult, bool) {
	res, ok := u[types.AgentTypeVisualizationGen]
	if !ok || !res.Succeeded() {
		return nil, false
	}
	data, ok := res.Data.(*types.VisualizationResult)
	return data, ok
}

// Clone 스냅샷 복사본 생성
func (u Upstream) Clone() Upstream {
	out := make(Upstream, len(u))
	for k, v := range u {
		out[k] = v
	}
	return out
}
