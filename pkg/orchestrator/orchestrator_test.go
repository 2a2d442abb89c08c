package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/factorylens/factorylens/pkg/agent"
	"github.com/factorylens/factorylens/pkg/bus"
	"github.com/factorylens/factorylens/pkg/types"
)

// stubAgent 테스트용 에이전트
type stubAgent struct {
	*agent.Base
	exec func(ctx context.Context, upstream agent.Upstream) (any, error)
}

func newStubAgent(t types.AgentType, cfg *types.AgentConfig, exec func(ctx context.Context, upstream agent.Upstream) (any, error)) *stubAgent {
	if cfg == nil {
		cfg = types.DefaultAgentConfig()
	}
	return &stubAgent{Base: agent.NewBase(t, cfg), exec: exec}
}

func (s *stubAgent) Execute(ctx context.Context, actx *types.AgentContext, upstream agent.Upstream) *types.AgentResult {
	return s.Track(ctx, func(ctx context.Context) (any, []string, error) {
		if s.exec == nil {
			return nil, nil, nil
		}
		data, err := s.exec(ctx, upstream)
		return data, nil, err
	})
}

func testContext() *types.AgentContext {
	now := time.Now()
	return &types.AgentContext{
		SessionID: "test-session",
		Query:     "why is OEE low",
		TimeRange: types.TimeRange{Start: now.Add(-24 * time.Hour), End: now},
	}
}

// orderRecorder 실행 순서 기록
type orderRecorder struct {
	mu    sync.Mutex
	order []types.AgentType
}

func (r *orderRecorder) record(t types.AgentType) {
	r.mu.Lock()
	r.order = append(r.order, t)
	r.mu.Unlock()
}

func (r *orderRecorder) indexOf(t types.AgentType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, at := range r.order {
		if at == t {
			return i
		}
	}
	return -1
}

func newOrchestrator(cfg *Config) (*Orchestrator, *bus.Bus) {
	b := bus.New(nil)
	return New(cfg, b), b
}

func TestExecutePipelineDependencyOrder(t *testing.T) {
	o, b := newOrchestrator(nil)
	defer b.Close()

	rec := &orderRecorder{}

	collector := newStubAgent(types.AgentTypeDataCollector, nil, func(ctx context.Context, _ agent.Upstream) (any, error) {
		time.Sleep(20 * time.Millisecond)
		rec.record(types.AgentTypeDataCollector)
		return &types.DataCollectionResult{}, nil
	})

	depCfg := types.DefaultAgentConfig()
	depCfg.Dependencies = []types.AgentType{types.AgentTypeDataCollector}
	analyzer := newStubAgent(types.AgentTypeQualityAnalyzer, depCfg, func(ctx context.Context, upstream agent.Upstream) (any, error) {
		rec.record(types.AgentTypeQualityAnalyzer)
		if _, ok := upstream[types.AgentTypeDataCollector]; !ok {
			return nil, errors.New("missing upstream result")
		}
		return &types.QualityAnalysisResult{}, nil
	})

	if err := o.RegisterAgent(collector); err != nil {
		t.Fatalf("RegisterAgent failed: %v", err)
	}
	if err := o.RegisterAgent(analyzer); err != nil {
		t.Fatalf("RegisterAgent failed: %v", err)
	}

	result, err := o.ExecutePipeline(context.Background(), testContext())
	if err != nil {
		t.Fatalf("ExecutePipeline failed: %v", err)
	}

	if result.Status != types.PipelineStatusCompleted {
		t.Fatalf("expected completed pipeline, got %s (errors: %v)", result.Status, result.Errors)
	}
	if ci, qi := rec.indexOf(types.AgentTypeDataCollector), rec.indexOf(types.AgentTypeQualityAnalyzer); ci < 0 || qi < 0 || ci > qi {
		t.Errorf("collector must finish before analyzer, order=%v", rec.order)
	}
}

func TestExecutePipelineCycleFailsFast(t *testing.T) {
	o, b := newOrchestrator(nil)
	defer b.Close()

	executed := false

	aCfg := types.DefaultAgentConfig()
	aCfg.Dependencies = []types.AgentType{types.AgentTypeQualityAnalyzer}
	bCfg := types.DefaultAgentConfig()
	bCfg.Dependencies = []types.AgentType{types.AgentTypeDataCollector}

	mark := func(ctx context.Context, _ agent.Upstream) (any, error) {
		executed = true
		return nil, nil
	}
	_ = o.RegisterAgent(newStubAgent(types.AgentTypeDataCollector, aCfg, mark))
	_ = o.RegisterAgent(newStubAgent(types.AgentTypeQualityAnalyzer, bCfg, mark))

	_, err := o.ExecutePipeline(context.Background(), testContext())
	if !errors.Is(err, ErrDependencyCycle) {
		t.Fatalf("expected ErrDependencyCycle, got %v", err)
	}
	if executed {
		t.Error("no agent may run when the graph has a cycle")
	}
}

func TestExecutePipelineUnknownDependency(t *testing.T) {
	o, b := newOrchestrator(nil)
	defer b.Close()

	cfg := types.DefaultAgentConfig()
	cfg.Dependencies = []types.AgentType{types.AgentTypeReportGenerator} // not registered

	_ = o.RegisterAgent(newStubAgent(types.AgentTypeDataCollector, cfg, nil))

	_, err := o.ExecutePipeline(context.Background(), testContext())
	if !errors.Is(err, ErrUnknownDependency) {
		t.Fatalf("expected ErrUnknownDependency, got %v", err)
	}
}

func TestExecutePipelineNoAgents(t *testing.T) {
	o, b := newOrchestrator(nil)
	defer b.Close()

	_, err := o.ExecutePipeline(context.Background(), testContext())
	if !errors.Is(err, ErrNoAgentsRegistered) {
		t.Fatalf("expected ErrNoAgentsRegistered, got %v", err)
	}
}

func TestExecutePipelineInvalidContext(t *testing.T) {
	o, b := newOrchestrator(nil)
	defer b.Close()
	_ = o.RegisterAgent(newStubAgent(types.AgentTypeDataCollector, nil, nil))

	actx := testContext()
	actx.Query = ""
	if _, err := o.ExecutePipeline(context.Background(), actx); !errors.Is(err, types.ErrEmptyQuery) {
		t.Fatalf("expected ErrEmptyQuery, got %v", err)
	}

	actx = testContext()
	actx.TimeRange.End = actx.TimeRange.Start.Add(-time.Hour)
	if _, err := o.ExecutePipeline(context.Background(), actx); !errors.Is(err, types.ErrInvalidTimeRange) {
		t.Fatalf("expected ErrInvalidTimeRange, got %v", err)
	}
}

func TestRunAgentRetry(t *testing.T) {
	o, b := newOrchestrator(nil)
	defer b.Close()

	cfg := types.DefaultAgentConfig()
	cfg.Retries = 2

	attempts := 0
	flaky := newStubAgent(types.AgentTypeDataCollector, cfg, func(ctx context.Context, _ agent.Upstream) (any, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("transient failure")
		}
		return "ok", nil
	})
	_ = o.RegisterAgent(flaky)

	result, err := o.ExecutePipeline(context.Background(), testContext())
	if err != nil {
		t.Fatalf("ExecutePipeline failed: %v", err)
	}

	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
	if result.Status != types.PipelineStatusCompleted {
		t.Errorf("expected completed after retries, got %s", result.Status)
	}
}

func TestAgentTimeout(t *testing.T) {
	o, b := newOrchestrator(nil)
	defer b.Close()

	cfg := types.DefaultAgentConfig()
	cfg.Timeout = 30 * time.Millisecond

	slow := newStubAgent(types.AgentTypeDataCollector, cfg, func(ctx context.Context, _ agent.Upstream) (any, error) {
		select {
		case <-time.After(time.Second):
			return "too late", nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
	_ = o.RegisterAgent(slow)

	result, err := o.ExecutePipeline(context.Background(), testContext())
	if err != nil {
		t.Fatalf("ExecutePipeline failed: %v", err)
	}

	res := result.AgentResultOf(types.AgentTypeDataCollector)
	if res.Succeeded() {
		t.Fatal("expected timed out agent to fail")
	}
	found := false
	for _, e := range res.Errors {
		if strings.Contains(e, "timed out") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected timeout error, got %v", res.Errors)
	}
	if result.Status != types.PipelineStatusFailed {
		t.Errorf("expected failed pipeline, got %s", result.Status)
	}
}

func TestFallbackBehaviors(t *testing.T) {
	tests := []struct {
		name         string
		fallback     types.FallbackBehavior
		wantRan      bool
		wantUpstream bool // failed dependency present in upstream
	}{
		{"abort skips dependents", types.FallbackAbort, false, false},
		{"continue runs with successes only", types.FallbackContinue, true, false},
		{"partial runs with failed results included", types.FallbackPartial, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, b := newOrchestrator(&Config{FallbackBehavior: tt.fallback})
			defer b.Close()

			failing := newStubAgent(types.AgentTypeDataCollector, nil, func(ctx context.Context, _ agent.Upstream) (any, error) {
				return nil, errors.New("collection failed")
			})

			ran := false
			var seen agent.Upstream
			depCfg := types.DefaultAgentConfig()
			depCfg.Dependencies = []types.AgentType{types.AgentTypeDataCollector}
			dependent := newStubAgent(types.AgentTypeQualityAnalyzer, depCfg, func(ctx context.Context, upstream agent.Upstream) (any, error) {
				ran = true
				seen = upstream
				return "done", nil
			})

			_ = o.RegisterAgent(failing)
			_ = o.RegisterAgent(dependent)

			result, err := o.ExecutePipeline(context.Background(), testContext())
			if err != nil {
				t.Fatalf("ExecutePipeline failed: %v", err)
			}

			if ran != tt.wantRan {
				t.Errorf("dependent ran=%v, want %v", ran, tt.wantRan)
			}
			if tt.wantRan {
				_, present := seen[types.AgentTypeDataCollector]
				if present != tt.wantUpstream {
					t.Errorf("failed dependency in upstream=%v, want %v", present, tt.wantUpstream)
				}
			} else {
				res := result.AgentResultOf(types.AgentTypeQualityAnalyzer)
				if res == nil || res.Succeeded() {
					t.Error("skipped agent must report a failed result")
				}
			}
		})
	}
}

func TestAbortMidRun(t *testing.T) {
	o, b := newOrchestrator(nil)
	defer b.Close()

	started := make(chan struct{})
	blocking := newStubAgent(types.AgentTypeDataCollector, nil, func(ctx context.Context, _ agent.Upstream) (any, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})

	depCfg := types.DefaultAgentConfig()
	depCfg.Dependencies = []types.AgentType{types.AgentTypeDataCollector}
	downstream := newStubAgent(types.AgentTypeQualityAnalyzer, depCfg, func(ctx context.Context, _ agent.Upstream) (any, error) {
		return "should not matter", nil
	})

	_ = o.RegisterAgent(blocking)
	_ = o.RegisterAgent(downstream)

	go func() {
		<-started
		o.Abort()
	}()

	result, err := o.ExecutePipeline(context.Background(), testContext())
	if err != nil {
		t.Fatalf("ExecutePipeline failed: %v", err)
	}

	if result.Status != types.PipelineStatusAborted {
		t.Errorf("expected aborted pipeline, got %s", result.Status)
	}
	if res := result.AgentResultOf(types.AgentTypeDataCollector); res.Succeeded() {
		t.Error("aborted agent must not report success")
	}
}

func TestAgentStatusQueries(t *testing.T) {
	o, b := newOrchestrator(nil)
	defer b.Close()

	ag := newStubAgent(types.AgentTypeDataCollector, nil, nil)
	_ = o.RegisterAgent(ag)

	status, err := o.AgentStatus(types.AgentTypeDataCollector)
	if err != nil {
		t.Fatalf("AgentStatus failed: %v", err)
	}
	if status != types.AgentStatusIdle {
		t.Errorf("expected idle, got %s", status)
	}

	if _, err := o.AgentStatus(types.AgentTypeReportGenerator); !errors.Is(err, ErrAgentNotFound) {
		t.Errorf("expected ErrAgentNotFound, got %v", err)
	}

	if err := o.UnregisterAgent(types.AgentTypeDataCollector); err != nil {
		t.Fatalf("UnregisterAgent failed: %v", err)
	}
	if err := o.UnregisterAgent(types.AgentTypeDataCollector); !errors.Is(err, ErrAgentNotFound) {
		t.Errorf("expected ErrAgentNotFound on second unregister, got %v", err)
	}
}

func TestDisabledAgentExcluded(t *testing.T) {
	o, b := newOrchestrator(nil)
	defer b.Close()

	disabledCfg := types.DefaultAgentConfig()
	disabledCfg.Enabled = false

	ran := false
	_ = o.RegisterAgent(newStubAgent(types.AgentTypeDataCollector, nil, nil))
	_ = o.RegisterAgent(newStubAgent(types.AgentTypeQualityAnalyzer, disabledCfg, func(ctx context.Context, _ agent.Upstream) (any, error) {
		ran = true
		return nil, nil
	}))

	result, err := o.ExecutePipeline(context.Background(), testContext())
	if err != nil {
		t.Fatalf("ExecutePipeline failed: %v", err)
	}

	if ran {
		t.Error("disabled agent must not run")
	}
	if res := result.AgentResultOf(types.AgentTypeQualityAnalyzer); res != nil {
		t.Error("disabled agent must not appear in results")
	}
}
