// Package services 분석 실행과 스케줄링 서비스
package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/factorylens/factorylens/internal/store"
	"github.com/factorylens/factorylens/pkg/agent"
	"github.com/factorylens/factorylens/pkg/agents"
	"github.com/factorylens/factorylens/pkg/bus"
	"github.com/factorylens/factorylens/pkg/config"
	"github.com/factorylens/factorylens/pkg/datasource"
	"github.com/factorylens/factorylens/pkg/orchestrator"
	"github.com/factorylens/factorylens/pkg/redisclient"
	"github.com/factorylens/factorylens/pkg/types"
)

// AnalysisService 분석 파이프라인 실행 서비스
// 실행마다 버스와 오케스트레이터를 새로 구성해 동시 실행을 지원함
type AnalysisService struct {
	cfg    *config.AnalysisConfig
	source datasource.TelemetrySource
	db     *store.DB
	redis  *redisclient.Client
	logger *slog.Logger

	mu      sync.RWMutex
	current *orchestrator.Orchestrator
}

// NewAnalysisService 새 분석 서비스 생성
// db와 redis는 nil 허용 (영속화/발행 생략)
func NewAnalysisService(cfg *config.AnalysisConfig, source datasource.TelemetrySource, db *store.DB, redis *redisclient.Client, logger *slog.Logger) *AnalysisService {
	if cfg == nil {
		cfg = &config.AnalysisConfig{Name: "default"}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisService{
		cfg:    cfg,
		source: source,
		db:     db,
		redis:  redis,
		logger: logger,
	}
}

// RunRequest 단일 분석 요청
type RunRequest struct {
	Query        string          `json:"query"`
	UserID       string          `json:"user_id,omitempty"`
	TimeRange    types.TimeRange `json:"time_range"`
	AnalysisType string          `json:"analysis_type,omitempty"`
}

// Run 분석 파이프라인 한 번 실행
// 결과는 DB 저장과 Redis 발행까지 마친 뒤 반환됨 (둘 다 best-effort)
func (s *AnalysisService) Run(ctx context.Context, req RunRequest) (*types.PipelineResult, error) {
	actx := &types.AgentContext{
		SessionID:    uuid.New().String(),
		UserID:       req.UserID,
		Query:        req.Query,
		TimeRange:    req.TimeRange,
		AnalysisType: req.AnalysisType,
	}
	if err := actx.Validate(); err != nil {
		return nil, err
	}

	orch, msgBus, err := s.buildPipeline()
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}
	defer msgBus.Close()

	s.mu.Lock()
	s.current = orch
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.current == orch {
			s.current = nil
		}
		s.mu.Unlock()
	}()

	result, err := orch.ExecutePipeline(ctx, actx)
	if err != nil {
		return nil, err
	}

	s.persist(ctx, result)
	return result, nil
}

// Abort 현재 실행 중인 파이프라인 중단
func (s *AnalysisService) Abort() bool {
	s.mu.RLock()
	orch := s.current
	s.mu.RUnlock()

	if orch == nil {
		return false
	}
	orch.Abort()
	return true
}

// Status 현재 파이프라인 상태
// 실행 중이 아니면 pending
func (s *AnalysisService) Status() types.PipelineStatus {
	s.mu.RLock()
	orch := s.current
	s.mu.RUnlock()

	if orch == nil {
		return types.PipelineStatusPending
	}
	return orch.Status()
}

// RegisteredAgents 현재 설정으로 등록되는 에이전트 목록
func (s *AnalysisService) RegisteredAgents() []types.AgentType {
	out := make([]types.AgentType, 0, len(types.AllAgentTypes))
	for _, t := range types.AllAgentTypes {
		if t == types.AgentTypeOrchestrator {
			continue
		}
		if s.cfg.AgentConfigFor(t).Enabled {
			out = append(out, t)
		}
	}
	return out
}

// buildPipeline 버스, 오케스트레이터, 전체 에이전트 구성
func (s *AnalysisService) buildPipeline() (*orchestrator.Orchestrator, *bus.Bus, error) {
	msgBus := bus.New(s.cfg.Bus, bus.WithLogger(s.logger))
	orch := orchestrator.New(s.cfg.Orchestrator, msgBus, orchestrator.WithLogger(s.logger))

	baseOpts := func() []agent.BaseOption {
		return []agent.BaseOption{agent.WithSender(msgBus), agent.WithLogger(s.logger)}
	}
	cfgOf := s.cfg.AgentConfigFor

	all := []agent.Agent{
		agents.NewDataCollector(s.source, cfgOf(types.AgentTypeDataCollector), baseOpts()...),
		agents.NewQualityAnalyzer(cfgOf(types.AgentTypeQualityAnalyzer), baseOpts()...),
		agents.NewPerformanceOptimizer(cfgOf(types.AgentTypePerformanceOptimizer), baseOpts()...),
		agents.NewMaintenancePredictor(cfgOf(types.AgentTypeMaintenancePredictor), baseOpts()...),
		agents.NewRootCauseAnalyzer(cfgOf(types.AgentTypeRootCauseAnalyzer), baseOpts()...),
		agents.NewComplianceScorer(cfgOf(types.AgentTypeComplianceScorer), baseOpts()...),
		agents.NewVisualizationGenerator(msgBus, cfgOf(types.AgentTypeVisualizationGen), baseOpts()...),
		agents.NewReportGenerator(cfgOf(types.AgentTypeReportGenerator), baseOpts()...),
	}

	for _, ag := range all {
		if err := orch.RegisterAgent(ag); err != nil {
			return nil, nil, err
		}
	}
	return orch, msgBus, nil
}

// persist 결과를 DB에 저장하고 Redis로 발행 (둘 다 best-effort)
func (s *AnalysisService) persist(ctx context.Context, result *types.PipelineResult) {
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if s.db != nil {
		if _, err := s.db.SaveRun(saveCtx, result); err != nil {
			s.logger.Error("failed to persist analysis run", "session", result.SessionID, "error", err)
		}
	}

	if s.redis != nil {
		if err := s.redis.PublishResult(saveCtx, result); err != nil {
			s.logger.Warn("failed to publish analysis result", "session", result.SessionID, "error", err)
		}

		if res := result.AgentResultOf(types.AgentTypeComplianceScorer); res.Succeeded() {
			if compliance, ok := res.Data.(*types.ComplianceResult); ok {
				if err := s.redis.CacheKPIs(saveCtx, result.SessionID, compliance); err != nil {
					s.logger.Warn("failed to cache KPIs", "session", result.SessionID, "error", err)
				}
			}
		}
	}
}
