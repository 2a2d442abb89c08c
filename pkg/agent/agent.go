// Package agent 분석 에이전트 계약과 공통 실행 래퍼
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/factorylens/factorylens/pkg/types"
)

// Agent 모든 분석 에이전트가 구현하는 인터페이스
type Agent interface {
	// Type 에이전트 타입 반환
	Type() types.AgentType

	// Config 에이전트 설정 반환 (생성 시 고정)
	Config() *types.AgentConfig

	// Initialize 상태 초기화 (멱등, idle로 리셋)
	Initialize() error

	// Execute 한 번의 논리적 실행 수행
	// 어떤 종료 경로에서도 processing 상태로 남지 않음
	Execute(ctx context.Context, actx *types.AgentContext, upstream Upstream) *types.AgentResult

	// Validate 데이터 유효성 확인 (순수 함수, 기본 true)
	Validate(data any) bool

	// HandleError 에러 기록 후 상태를 failed로 전환 (panic 없음)
	HandleError(err error)

	// Status 현재 상태 반환
	Status() types.AgentStatus

	// Shutdown 종료 처리 (멱등, idle로 리셋)
	Shutdown() error
}

// MessageSender 에이전트가 버스로 메시지를 보내기 위한 최소 인터페이스
type MessageSender interface {
	Send(msg types.AgentMessage) error
}

// Base 공통 에이전트 구현
// 구체 에이전트가 임베딩하며 상태 전이와 결과 생성을 담당
type Base struct {
	agentType types.AgentType
	config    *types.AgentConfig
	status    types.AgentStatus
	lastErr   error
	gen       uint64 // 실행 세대 - 추월된 실행의 상태 기록 차단
	mu        sync.RWMutex
	sender    MessageSender
	logger    *slog.Logger
}

// NewBase 새 Base 생성
func NewBase(agentType types.AgentType, config *types.AgentConfig, opts ...BaseOption) *Base {
	if config == nil {
		config = types.DefaultAgentConfig()
	}

	b := &Base{
		agentType: agentType,
		config:    config,
		status:    types.AgentStatusIdle,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// BaseOption Base 옵션
type BaseOption func(*Base)

// WithSender 메시지 버스 설정
func WithSender(sender MessageSender) BaseOption {
	return func(b *Base) {
		b.sender = sender
	}
}

// WithLogger 로거 설정
func WithLogger(logger *slog.Logger) BaseOption {
	return func(b *Base) {
		b.logger = logger
	}
}

func (b *Base) Type() types.AgentType {
	return b.agentType
}

func (b *Base) Config() *types.AgentConfig {
	return b.config
}

// Initialize 상태 초기화
// 세대를 올려 이전 실행이 뒤늦게 상태를 덮어쓰지 못하게 함
func (b *Base) Initialize() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gen++
	b.status = types.AgentStatusIdle
	b.lastErr = nil
	return nil
}

// Shutdown 종료 처리
func (b *Base) Shutdown() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gen++
	b.status = types.AgentStatusIdle
	return nil
}

// Validate 기본 구현: 항상 유효
func (b *Base) Validate(data any) bool {
	return true
}

// HandleError 에러 기록 후 failed 전환
func (b *Base) HandleError(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastErr = err
	b.status = types.AgentStatusFailed
	if err != nil {
		b.logger.Error("agent error", "agent", b.agentType, "error", err)
	}
}

// recordError 마지막 에러만 기록 (상태 전이는 세대 확인을 거침)
func (b *Base) recordError(err error) {
	b.mu.Lock()
	b.lastErr = err
	b.mu.Unlock()
}

// Status 현재 상태
func (b *Base) Status() types.AgentStatus {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.status
}

// LastError 마지막 에러
func (b *Base) LastError() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastErr
}

// beginInvocation 새 실행 세대 시작
func (b *Base) beginInvocation() uint64 {
	b.mu.Lock()
	b.gen++
	gen := b.gen
	b.status = types.AgentStatusProcessing
	b.mu.Unlock()
	return gen
}

// setStatusIf 해당 세대가 아직 최신일 때만 상태 기록
// 타임아웃 후 재시도된 에이전트의 이전 실행이 새 실행의 상태를 덮어쓰지 않음
func (b *Base) setStatusIf(gen uint64, s types.AgentStatus) {
	b.mu.Lock()
	if gen == b.gen {
		b.status = s
	}
	b.mu.Unlock()
}

// SendMessage 다른 에이전트 타입의 메일박스로 중간 결과 전송 (best-effort)
func (b *Base) SendMessage(to types.AgentType, kind types.MessageKind, payload any) {
	if b.sender == nil {
		return
	}

	msg := types.AgentMessage{
		ID:        uuid.New().String(),
		Timestamp: time.Now(),
		From:      b.agentType,
		To:        to,
		Stage:     types.StageOf(b.agentType),
		Kind:      kind,
		Payload:   payload,
	}

	if err := b.sender.Send(msg); err != nil {
		b.logger.Warn("failed to send message", "agent", b.agentType, "to", to, "error", err)
	}
}

// ExecFunc 에이전트 본문
// 결과 데이터와 경고 목록, 에러를 반환
type ExecFunc func(ctx context.Context) (any, []string, error)

// Track 실행 본문을 감싸 상태 전이와 결과 생성을 보장
// 성공, 에러, panic, 컨텍스트 취소 어느 경로에서도 종료 상태로 마감됨
func (b *Base) Track(ctx context.Context, fn ExecFunc) (result *types.AgentResult) {
	started := time.Now()
	result = &types.AgentResult{
		AgentType: b.agentType,
		StartedAt: started,
	}

	gen := b.beginInvocation()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			result.Errors = append(result.Errors, err.Error())
			result.Status = types.AgentStatusFailed
			b.recordError(err)
			b.logger.Error("agent error", "agent", b.agentType, "error", err)
		}

		result.EndedAt = time.Now()
		result.ExecutionTime = result.EndedAt.Sub(result.StartedAt)

		if !result.Status.IsTerminal() {
			result.Status = types.AgentStatusFailed
		}
		b.setStatusIf(gen, result.Status)
	}()

	// 시작 전 취소 확인
	if err := ctx.Err(); err != nil {
		result.Status = types.AgentStatusFailed
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	data, warnings, err := fn(ctx)
	result.Data = data
	result.Warnings = warnings

	if err != nil {
		result.Status = types.AgentStatusFailed
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	if err := ctx.Err(); err != nil {
		result.Status = types.AgentStatusFailed
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	result.Status = types.AgentStatusCompleted
	return result
}

// Logger 로거 반환
func (b *Base) Logger() *slog.Logger {
	return b.logger
}
