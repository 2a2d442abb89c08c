// Package bus 에이전트 간 인프로세스 통신 관리자
package bus

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/factorylens/factorylens/pkg/types"
)

var ErrUnknownAgentType = errors.New("unknown agent type")

// DefaultHistoryLimit 기본 히스토리 보관 한도
const DefaultHistoryLimit = 1000

// SubscriberFunc 메시지 구독 콜백
type SubscriberFunc func(msg types.AgentMessage)

// Config 버스 설정
type Config struct {
	QueueCapacity int              `yaml:"queue_capacity"`
	HistoryLimit  int              `yaml:"history_limit"`
	Overflow      OverflowStrategy `yaml:"overflow"`
}

// Bus 에이전트 타입별 메일박스와 구독자, 메시지 히스토리를 관리
// 명시적으로 생성해 에이전트 등록 시 주입됨 (전역 싱글톤 없음)
type Bus struct {
	mailboxes   map[types.AgentType]*Mailbox
	subscribers map[types.AgentType][]SubscriberFunc
	history     []types.AgentMessage
	historyMax  int
	mu          sync.Mutex
	logger      *slog.Logger
}

// New 새 Bus 생성
// 닫힌 에이전트 타입 집합 전체에 대해 메일박스를 미리 만든다
func New(cfg *Config, opts ...Option) *Bus {
	capacity := 1000
	historyMax := DefaultHistoryLimit
	overflow := OverflowDropOldest

	if cfg != nil {
		if cfg.QueueCapacity > 0 {
			capacity = cfg.QueueCapacity
		}
		if cfg.HistoryLimit > 0 {
			historyMax = cfg.HistoryLimit
		}
		if cfg.Overflow != "" {
			overflow = cfg.Overflow
		}
	}

	b := &Bus{
		mailboxes:   make(map[types.AgentType]*Mailbox, len(types.AllAgentTypes)),
		subscribers: make(map[types.AgentType][]SubscriberFunc),
		history:     make([]types.AgentMessage, 0),
		historyMax:  historyMax,
		logger:      slog.Default(),
	}

	for _, t := range types.AllAgentTypes {
		b.mailboxes[t] = NewMailbox(capacity, overflow)
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Option 버스 옵션
type Option func(*Bus)

// WithLogger 로거 설정
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) {
		b.logger = logger
	}
}

// Send 메시지 전송
// 수신자가 지정되면 해당 큐에 추가하고 구독자를 동기 호출,
// 수신자가 없으면 브로드캐스트로 처리
func (b *Bus) Send(msg types.AgentMessage) error {
	b.stamp(&msg)

	if msg.IsBroadcast() {
		return b.Broadcast(msg)
	}

	b.mu.Lock()
	mb, ok := b.mailboxes[msg.To]
	if !ok {
		b.mu.Unlock()
		return ErrUnknownAgentType
	}

	if err := mb.Push(msg); err != nil {
		b.mu.Unlock()
		return err
	}
	subs := b.subscribersOf(msg.To)
	b.appendHistory(msg)
	b.mu.Unlock()

	b.notify(subs, msg)
	return nil
}

// Broadcast 발신자를 제외한 모든 큐로 메시지 전송
// 히스토리에는 한 번만 기록됨
func (b *Bus) Broadcast(msg types.AgentMessage) error {
	b.stamp(&msg)
	msg.To = ""

	type delivery struct {
		subs []SubscriberFunc
	}

	b.mu.Lock()
	deliveries := make([]delivery, 0, len(b.mailboxes))
	for t, mb := range b.mailboxes {
		if t == msg.From {
			continue
		}
		if err := mb.Push(msg); err != nil {
			b.logger.Warn("broadcast delivery failed", "to", t, "error", err)
			continue
		}
		deliveries = append(deliveries, delivery{subs: b.subscribersOf(t)})
	}
	b.appendHistory(msg)
	b.mu.Unlock()

	for _, d := range deliveries {
		b.notify(d.subs, msg)
	}
	return nil
}

// Receive 해당 타입 큐의 현재 내용 전체를 꺼내고 큐를 비움
// 읽기는 파괴적이며, 곧바로 다시 호출하면 빈 목록이 반환됨
func (b *Bus) Receive(agentType types.AgentType) []types.AgentMessage {
	b.mu.Lock()
	mb, ok := b.mailboxes[agentType]
	b.mu.Unlock()

	if !ok {
		return nil
	}
	return mb.Drain()
}

// QueueLen 해당 타입 큐의 현재 메시지 수
func (b *Bus) QueueLen(agentType types.AgentType) int {
	b.mu.Lock()
	mb, ok := b.mailboxes[agentType]
	b.mu.Unlock()

	if !ok {
		return 0
	}
	return mb.Len()
}

// Subscribe 타입별 구독 콜백 등록
func (b *Bus) Subscribe(agentType types.AgentType, fn SubscriberFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[agentType] = append(b.subscribers[agentType], fn)
}

// Unsubscribe 타입별 구독 콜백 전체 해제
func (b *Bus) Unsubscribe(agentType types.AgentType) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subscribers, agentType)
}

// HistoryFilter 히스토리 조회 필터 (제로값 필드는 무시)
type HistoryFilter struct {
	From  types.AgentType
	To    types.AgentType
	Stage types.PipelineStage
	Kind  types.MessageKind
	Limit int // 마지막 N개
}

// History 필터 조건에 맞는 히스토리 조회
func (b *Bus) History(filter HistoryFilter) []types.AgentMessage {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]types.AgentMessage, 0)
	for _, msg := range b.history {
		if filter.From != "" && msg.From != filter.From {
			continue
		}
		if filter.To != "" && msg.To != filter.To {
			continue
		}
		if filter.Stage != "" && msg.Stage != filter.Stage {
			continue
		}
		if filter.Kind != "" && msg.Kind != filter.Kind {
			continue
		}
		out = append(out, msg)
	}

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[len(out)-filter.Limit:]
	}
	return out
}

// HistoryLen 현재 히스토리 길이
func (b *Bus) HistoryLen() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.history)
}

// Close 모든 메일박스 닫기
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, mb := range b.mailboxes {
		mb.Close()
	}
}

// stamp ID와 타임스탬프 채우기
func (b *Bus) stamp(msg *types.AgentMessage) {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
}

// appendHistory 히스토리 기록, 한도 초과 시 앞에서부터 제거 (호출자가 락 보유)
func (b *Bus) appendHistory(msg types.AgentMessage) {
	b.history = append(b.history, msg)
	if len(b.history) > b.historyMax {
		b.history = b.history[len(b.history)-b.historyMax:]
	}
}

// subscribersOf 구독자 목록 복사 (호출자가 락 보유)
func (b *Bus) subscribersOf(t types.AgentType) []SubscriberFunc {
	subs := b.subscribers[t]
	if len(subs) == 0 {
		return nil
	}
	out := make([]SubscriberFunc, len(subs))
	copy(out, subs)
	return out
}

// notify 구독자 호출
// 콜백의 panic은 구독자 단위로 복구되어 다른 구독자 전달을 막지 않음
func (b *Bus) notify(subs []SubscriberFunc, msg types.AgentMessage) {
	for _, fn := range subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					b.logger.Error("subscriber panic", "msg_id", msg.ID, "panic", r)
				}
			}()
			fn(msg)
		}()
	}
}
