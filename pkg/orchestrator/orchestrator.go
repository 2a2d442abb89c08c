// Package orchestrator 에이전트 등록과 의존성 순서 실행을 담당하는 오케스트레이터
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/factorylens/factorylens/pkg/agent"
	"github.com/factorylens/factorylens/pkg/bus"
	"github.com/factorylens/factorylens/pkg/types"
)

var (
	ErrDependencyCycle    = errors.New("dependency cycle detected")
	ErrUnknownDependency  = errors.New("unknown dependency")
	ErrAlreadyRunning     = errors.New("pipeline is already running")
	ErrNoAgentsRegistered = errors.New("no agents registered")
	ErrAgentNotFound      = errors.New("agent not found")
	ErrAgentTimeout       = errors.New("agent execution timed out")
)

// Config 오케스트레이터 설정
type Config struct {
	FallbackBehavior types.FallbackBehavior `yaml:"fallback_behavior"`
	DefaultTimeout   time.Duration          `yaml:"default_timeout"`
}

// DefaultConfig 기본 설정
func DefaultConfig() *Config {
	return &Config{
		FallbackBehavior: types.FallbackContinue,
		DefaultTimeout:   30 * time.Second,
	}
}

// Orchestrator 파이프라인 실행기
// 명시적으로 생성해 소유하며 버스와 함께 에이전트에 주입됨
type Orchestrator struct {
	agents         map[types.AgentType]agent.Agent
	bus            *bus.Bus
	fallback       types.FallbackBehavior
	defaultTimeout time.Duration
	logger         *slog.Logger

	mu      sync.RWMutex
	status  types.PipelineStatus
	cancel  context.CancelFunc
	running bool
}

// New 새 오케스트레이터 생성
func New(cfg *Config, b *bus.Bus, opts ...Option) *Orchestrator {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.FallbackBehavior == "" {
		cfg.FallbackBehavior = types.FallbackContinue
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = 30 * time.Second
	}

	o := &Orchestrator{
		agents:         make(map[types.AgentType]agent.Agent),
		bus:            b,
		fallback:       cfg.FallbackBehavior,
		defaultTimeout: cfg.DefaultTimeout,
		status:         types.PipelineStatusPending,
		logger:         slog.Default(),
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Option 오케스트레이터 옵션
type Option func(*Orchestrator)

// WithLogger 로거 설정
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// RegisterAgent 에이전트 등록
func (o *Orchestrator) RegisterAgent(ag agent.Agent) error {
	if !types.IsValidAgentType(ag.Type()) {
		return fmt.Errorf("invalid agent type: %s", ag.Type())
	}

	if err := ag.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize agent %s: %w", ag.Type(), err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.agents[ag.Type()] = ag
	return nil
}

// UnregisterAgent 에이전트 등록 해제
func (o *Orchestrator) UnregisterAgent(t types.AgentType) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	ag, ok := o.agents[t]
	if !ok {
		return ErrAgentNotFound
	}

	_ = ag.Shutdown()
	delete(o.agents, t)
	return nil
}

// AgentStatus 특정 에이전트 상태 조회
func (o *Orchestrator) AgentStatus(t types.AgentType) (types.AgentStatus, error) {
	o.mu.RLock()
	ag, ok := o.agents[t]
	o.mu.RUnlock()

	if !ok {
		return "", ErrAgentNotFound
	}
	return ag.Status(), nil
}

// Status 파이프라인 상태 조회
func (o *Orchestrator) Status() types.PipelineStatus {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.status
}

// Abort 실행 중인 파이프라인 중단 요청
// 협조적 취소: 에이전트는 다음 확인 지점에서 취소를 관찰하고 즉시 반환
func (o *Orchestrator) Abort() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.cancel != nil {
		o.cancel()
	}
	if o.running {
		o.status = types.PipelineStatusAborted
	}
}

// ExecutePipeline 한 번의 파이프라인 실행을 수행하고 결과를 집계
func (o *Orchestrator) ExecutePipeline(ctx context.Context, actx *types.AgentContext) (*types.PipelineResult, error) {
	if err := actx.Validate(); err != nil {
		return nil, fmt.Errorf("invalid context: %w", err)
	}

	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return nil, ErrAlreadyRunning
	}

	// 활성화된 에이전트 스냅샷
	agents := make(map[types.AgentType]agent.Agent, len(o.agents))
	for t, ag := range o.agents {
		if ag.Config().Enabled {
			agents[t] = ag
		}
	}

	if len(agents) == 0 {
		o.mu.Unlock()
		return nil, ErrNoAgentsRegistered
	}

	// 의존성 레이어 계산 - 실패 시 어떤 에이전트도 실행하지 않음
	layers, err := buildLayers(agents)
	if err != nil {
		o.mu.Unlock()
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.running = true
	o.status = types.PipelineStatusRunning
	o.mu.Unlock()

	defer func() {
		cancel()
		o.mu.Lock()
		o.running = false
		o.cancel = nil
		o.mu.Unlock()
	}()

	o.logger.Info("pipeline started",
		"session", actx.SessionID,
		"agents", len(agents),
		"layers", len(layers))

	started := time.Now()
	results := make(map[types.AgentType]*types.AgentResult, len(agents))

	for _, layer := range layers {
		if runCtx.Err() != nil {
			break
		}
		o.runLayer(runCtx, layer, agents, actx, results)
	}

	return o.aggregate(runCtx, actx, agents, results, started), nil
}

// runLayer 한 레이어의 에이전트를 동시에 실행
func (o *Orchestrator) runLayer(ctx context.Context, layer []types.AgentType, agents map[types.AgentType]agent.Agent, actx *types.AgentContext, results map[types.AgentType]*types.AgentResult) {
	// 업스트림 스냅샷은 레이어의 고루틴이 결과 맵을 쓰기 전에 모두 구성
	type launch struct {
		agent    agent.Agent
		upstream agent.Upstream
	}
	launches := make(map[types.AgentType]launch, len(layer))

	for _, t := range layer {
		ag := agents[t]

		upstream, skip := o.upstreamFor(ag, results)
		if skip {
			results[t] = skippedResult(t)
			o.logger.Warn("agent skipped due to failed dependency", "agent", t)
			continue
		}
		launches[t] = launch{agent: ag, upstream: upstream}
	}

	var wg sync.WaitGroup
	var mu sync.Mutex

	for t, l := range launches {
		wg.Add(1)
		go func(t types.AgentType, l launch) {
			defer wg.Done()
			res := o.runAgent(ctx, l.agent, actx, l.upstream)
			mu.Lock()
			results[t] = res
			mu.Unlock()
		}(t, l)
	}

	wg.Wait()
}

// upstreamFor 의존성 결과 스냅샷 구성
// fallback 정책에 따라 실패한 의존성 처리 방식이 달라짐
func (o *Orchestrator) upstreamFor(ag agent.Agent, results map[types.AgentType]*types.AgentResult) (agent.Upstream, bool) {
	upstream := make(agent.Upstream)

	for _, dep := range ag.Config().Dependencies {
		res := results[dep]
		if res.Succeeded() {
			upstream[dep] = res
			continue
		}

		switch o.fallback {
		case types.FallbackAbort:
			return nil, true
		case types.FallbackPartial:
			// 실패 결과를 그대로 포함 (payload 없음)
			if res != nil {
				upstream[dep] = res
			}
		case types.FallbackContinue:
			// 성공한 결과만 사용
		}
	}

	return upstream, false
}

// runAgent 재시도 정책을 적용해 단일 에이전트 실행
// 타임아웃은 실행 에러와 동일하게 재시도 대상으로 처리됨
func (o *Orchestrator) runAgent(ctx context.Context, ag agent.Agent, actx *types.AgentContext, upstream agent.Upstream) *types.AgentResult {
	attempts := ag.Config().Retries + 1

	var res *types.AgentResult
	for i := 0; i < attempts; i++ {
		if i > 0 {
			// 재시도는 실패 후 새로운 시도이며 동일한 상위 입력을 사용
			_ = ag.Initialize()
			o.logger.Info("retrying agent", "agent", ag.Type(), "attempt", i+1)
		}

		res = o.invokeOnce(ctx, ag, actx, upstream)
		if res.Succeeded() {
			return res
		}
		if ctx.Err() != nil {
			// 중단 요청 후에는 재시도하지 않음
			return res
		}
	}

	return res
}

// invokeOnce 타임아웃을 걸고 에이전트를 한 번 호출
// 타임아웃 집행은 오케스트레이터의 책임이며 에이전트 호출과 타이머를 경합시킴
func (o *Orchestrator) invokeOnce(ctx context.Context, ag agent.Agent, actx *types.AgentContext, upstream agent.Upstream) *types.AgentResult {
	timeout := ag.Config().Timeout
	if timeout <= 0 {
		timeout = o.defaultTimeout
	}

	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := time.Now()
	resCh := make(chan *types.AgentResult, 1)

	go func() {
		resCh <- ag.Execute(tctx, actx, upstream)
	}()

	select {
	case res := <-resCh:
		if res == nil {
			res = failedResult(ag.Type(), started, "agent returned nil result")
			ag.HandleError(errors.New("agent returned nil result"))
		}
		return res

	case <-tctx.Done():
		err := tctx.Err()
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w after %s", ErrAgentTimeout, timeout)
		}
		ag.HandleError(err)
		return failedResult(ag.Type(), started, err.Error())
	}
}

// aggregate 에이전트 결과를 단계별로 집계해 파이프라인 결과 생성
func (o *Orchestrator) aggregate(ctx context.Context, actx *types.AgentContext, agents map[types.AgentType]agent.Agent, results map[types.AgentType]*types.AgentResult, started time.Time) *types.PipelineResult {
	result := &types.PipelineResult{
		SessionID: actx.SessionID,
		Query:     actx.Query,
		StartedAt: started,
		Stages:    make(map[types.PipelineStage]*types.StageResult),
	}

	succeeded, failed := 0, 0
	for t := range agents {
		res := results[t]
		if res == nil {
			res = skippedResult(t)
		}

		stage := types.StageOf(t)
		sr, ok := result.Stages[stage]
		if !ok {
			sr = &types.StageResult{
				Stage:   stage,
				Results: make(map[types.AgentType]*types.AgentResult),
			}
			result.Stages[stage] = sr
		}
		sr.Results[t] = res

		if sr.StartedAt.IsZero() || res.StartedAt.Before(sr.StartedAt) {
			sr.StartedAt = res.StartedAt
		}
		if res.EndedAt.After(sr.EndedAt) {
			sr.EndedAt = res.EndedAt
		}

		if res.Succeeded() {
			succeeded++
		} else {
			failed++
			for _, e := range res.Errors {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", t, e))
			}
		}
		result.Warnings = append(result.Warnings, res.Warnings...)
	}

	for _, sr := range result.Stages {
		sr.Status = stageStatus(sr)
	}

	result.EndedAt = time.Now()
	result.ExecutionTime = result.EndedAt.Sub(result.StartedAt)

	switch {
	case ctx.Err() != nil:
		result.Status = types.PipelineStatusAborted
	case failed == 0:
		result.Status = types.PipelineStatusCompleted
	case succeeded > 0:
		result.Status = types.PipelineStatusPartial
	default:
		result.Status = types.PipelineStatusFailed
	}

	o.mu.Lock()
	o.status = result.Status
	o.mu.Unlock()

	result.Final = o.finalReport(results)

	o.logger.Info("pipeline finished",
		"session", actx.SessionID,
		"status", result.Status,
		"succeeded", succeeded,
		"failed", failed,
		"took", result.ExecutionTime)

	return result
}

// finalReport 최종 페이로드 결정
// 리포트 에이전트 결과가 있으면 사용하고 없으면 최소 합성 결과를 생성
// 부분 실패 시에도 항상 사람이 읽을 수 있는 결과를 반환
func (o *Orchestrator) finalReport(results map[types.AgentType]*types.AgentResult) *types.FinalReport {
	if res := results[types.AgentTypeReportGenerator]; res.Succeeded() {
		if report, ok := res.Data.(*types.FinalReport); ok {
			return report
		}
	}

	upstream := agent.Upstream(results)
	report := &types.FinalReport{
		Content:    "Analysis completed with partial results.",
		Confidence: 0.3,
	}

	if rc, ok := upstream.RootCauseResult(); ok {
		report.Content = rc.ProblemStatement
		report.Confidence = 0.6
		for _, rec := range rc.Recommendations {
			report.Recommendations = append(report.Recommendations, rec.Action)
		}
	}
	if comp, ok := upstream.ComplianceResult(); ok {
		report.Recommendations = append(report.Recommendations, comp.Recommendations...)
	}
	if len(report.Recommendations) == 0 {
		report.Recommendations = []string{"Review data collection coverage to enable deeper analysis"}
	}

	return report
}

// stageStatus 단계 상태 계산
func stageStatus(sr *types.StageResult) types.PipelineStatus {
	succeeded, failed := 0, 0
	for _, res := range sr.Results {
		if res.Succeeded() {
			succeeded++
		} else {
			failed++
		}
	}

	switch {
	case failed == 0:
		return types.PipelineStatusCompleted
	case succeeded > 0:
		return types.PipelineStatusPartial
	default:
		return types.PipelineStatusFailed
	}
}

// failedResult 실패 결과 생성
func failedResult(t types.AgentType, started time.Time, msg string) *types.AgentResult {
	ended := time.Now()
	return &types.AgentResult{
		AgentType:     t,
		Status:        types.AgentStatusFailed,
		StartedAt:     started,
		EndedAt:       ended,
		ExecutionTime: ended.Sub(started),
		Errors:        []string{msg},
	}
}

// skippedResult 의존성 실패로 건너뛴 에이전트의 결과 생성
func skippedResult(t types.AgentType) *types.AgentResult {
	now := time.Now()
	return &types.AgentResult{
		AgentType:     t,
		Status:        types.AgentStatusFailed,
		StartedAt:     now,
		EndedAt:       now,
		ExecutionTime: 0,
		Errors:        []string{"skipped: upstream dependency did not complete"},
	}
}
