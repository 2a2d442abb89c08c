package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/factorylens/factorylens/pkg/types"
)

func TestTrackTerminalStatus(t *testing.T) {
	tests := []struct {
		name       string
		fn         ExecFunc
		wantStatus types.AgentStatus
		wantErrors int
	}{
		{
			name: "success",
			fn: func(ctx context.Context) (any, []string, error) {
				return "data", nil, nil
			},
			wantStatus: types.AgentStatusCompleted,
		},
		{
			name: "error",
			fn: func(ctx context.Context) (any, []string, error) {
				return nil, nil, errors.New("boom")
			},
			wantStatus: types.AgentStatusFailed,
			wantErrors: 1,
		},
		{
			name: "panic recovered",
			fn: func(ctx context.Context) (any, []string, error) {
				panic("unexpected")
			},
			wantStatus: types.AgentStatusFailed,
			wantErrors: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBase(types.AgentTypeDataCollector, nil)
			res := b.Track(context.Background(), tt.fn)

			if res.Status != tt.wantStatus {
				t.Errorf("expected status %s, got %s", tt.wantStatus, res.Status)
			}
			if len(res.Errors) != tt.wantErrors {
				t.Errorf("expected %d errors, got %d: %v", tt.wantErrors, len(res.Errors), res.Errors)
			}
			if !res.Status.IsTerminal() {
				t.Error("result status must be terminal")
			}
			if b.Status() != tt.wantStatus {
				t.Errorf("agent status must mirror result, got %s", b.Status())
			}
		})
	}
}

func TestTrackExecutionTime(t *testing.T) {
	b := NewBase(types.AgentTypeDataCollector, nil)
	res := b.Track(context.Background(), func(ctx context.Context) (any, []string, error) {
		time.Sleep(10 * time.Millisecond)
		return nil, nil, nil
	})

	if res.StartedAt.IsZero() || res.EndedAt.IsZero() {
		t.Fatal("expected start and end timestamps")
	}
	if got := res.EndedAt.Sub(res.StartedAt); res.ExecutionTime != got {
		t.Errorf("execution time %v must equal end-start %v", res.ExecutionTime, got)
	}
	if res.ExecutionTime < 10*time.Millisecond {
		t.Errorf("execution time %v too short", res.ExecutionTime)
	}
}

func TestTrackCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	b := NewBase(types.AgentTypeDataCollector, nil)
	res := b.Track(ctx, func(ctx context.Context) (any, []string, error) {
		called = true
		return nil, nil, nil
	})

	if called {
		t.Error("body must not run when context is already cancelled")
	}
	if res.Status != types.AgentStatusFailed {
		t.Errorf("expected failed status, got %s", res.Status)
	}
}

func TestTrackSupersededInvocationKeepsStatus(t *testing.T) {
	b := NewBase(types.AgentTypeDataCollector, nil)

	release := make(chan struct{})
	firstDone := make(chan struct{})

	// first invocation hangs past its caller's patience, as after a timeout
	go func() {
		b.Track(context.Background(), func(ctx context.Context) (any, []string, error) {
			<-release
			return nil, nil, errors.New("late failure")
		})
		close(firstDone)
	}()

	deadline := time.Now().Add(time.Second)
	for b.Status() != types.AgentStatusProcessing {
		if time.Now().After(deadline) {
			t.Fatal("first invocation never started")
		}
		time.Sleep(time.Millisecond)
	}

	// the caller gives up, re-initializes and retries
	if err := b.Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	res := b.Track(context.Background(), func(ctx context.Context) (any, []string, error) {
		return "ok", nil, nil
	})
	if !res.Succeeded() {
		t.Fatalf("retry must succeed, got %s", res.Status)
	}

	// let the superseded invocation finish; it must not clobber the new status
	close(release)
	<-firstDone

	if got := b.Status(); got != types.AgentStatusCompleted {
		t.Errorf("stale invocation overwrote status: got %s, want %s", got, types.AgentStatusCompleted)
	}
}

func TestBaseLifecycle(t *testing.T) {
	b := NewBase(types.AgentTypeQualityAnalyzer, nil)

	if b.Status() != types.AgentStatusIdle {
		t.Errorf("expected idle status, got %s", b.Status())
	}

	b.HandleError(errors.New("failure"))
	if b.Status() != types.AgentStatusFailed {
		t.Errorf("expected failed status, got %s", b.Status())
	}
	if b.LastError() == nil {
		t.Error("expected last error to be recorded")
	}

	if err := b.Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if b.Status() != types.AgentStatusIdle {
		t.Errorf("Initialize must reset to idle, got %s", b.Status())
	}
	if b.LastError() != nil {
		t.Error("Initialize must clear last error")
	}
}

type captureSender struct {
	msgs []types.AgentMessage
}

func (s *captureSender) Send(msg types.AgentMessage) error {
	s.msgs = append(s.msgs, msg)
	return nil
}

func TestSendMessage(t *testing.T) {
	sender := &captureSender{}
	b := NewBase(types.AgentTypePerformanceOptimizer, nil, WithSender(sender))

	b.SendMessage(types.AgentTypeVisualizationGen, types.MessageKindResponse, "payload")

	if len(sender.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(sender.msgs))
	}
	msg := sender.msgs[0]
	if msg.From != types.AgentTypePerformanceOptimizer {
		t.Errorf("unexpected sender: %s", msg.From)
	}
	if msg.To != types.AgentTypeVisualizationGen {
		t.Errorf("unexpected receiver: %s", msg.To)
	}
	if msg.Stage != types.StageOptimization {
		t.Errorf("expected sender stage, got %s", msg.Stage)
	}
	if msg.ID == "" {
		t.Error("expected message ID to be set")
	}

	// no sender configured: silently dropped
	b2 := NewBase(types.AgentTypeDataCollector, nil)
	b2.SendMessage(types.AgentTypeVisualizationGen, types.MessageKindResponse, nil)
}
