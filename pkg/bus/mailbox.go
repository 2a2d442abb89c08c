package bus

import (
	"errors"
	"sync"

	"github.com/factorylens/factorylens/pkg/types"
)

var (
	ErrMailboxFull   = errors.New("mailbox is full")
	ErrMailboxClosed = errors.New("mailbox is closed")
)

// OverflowStrategy 메일박스 초과 시 처리 방식
type OverflowStrategy string

const (
	OverflowDropOldest OverflowStrategy = "drop_oldest"
	OverflowDropNewest OverflowStrategy = "drop_newest"
)

// Mailbox 에이전트 타입별 메시지 큐 (FIFO)
type Mailbox struct {
	capacity         int
	overflowStrategy OverflowStrategy
	messages         chan types.AgentMessage
	closed           bool
	mu               sync.RWMutex
}

// NewMailbox 새 Mailbox 생성
func NewMailbox(capacity int, strategy OverflowStrategy) *Mailbox {
	if capacity <= 0 {
		capacity = 1000
	}
	if strategy == "" {
		strategy = OverflowDropOldest
	}

	return &Mailbox{
		capacity:         capacity,
		overflowStrategy: strategy,
		messages:         make(chan types.AgentMessage, capacity),
	}
}

// Push 메시지 추가
func (m *Mailbox) Push(msg types.AgentMessage) error {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return ErrMailboxClosed
	}
	m.mu.RUnlock()

	switch m.overflowStrategy {
	case OverflowDropOldest:
		select {
		case m.messages <- msg:
			return nil
		default:
			// 가장 오래된 메시지 하나 버리고 새 메시지 추가
			select {
			case <-m.messages:
			default:
			}
			m.messages <- msg
			return nil
		}

	default:
		select {
		case m.messages <- msg:
			return nil
		default:
			return ErrMailboxFull
		}
	}
}

// Drain 현재 큐 내용 전체를 꺼내고 큐를 비움 (논블로킹)
func (m *Mailbox) Drain() []types.AgentMessage {
	messages := make([]types.AgentMessage, 0)
	for {
		select {
		case msg, ok := <-m.messages:
			if !ok {
				return messages
			}
			messages = append(messages, msg)
		default:
			return messages
		}
	}
}

// Len 현재 메시지 수
func (m *Mailbox) Len() int {
	return len(m.messages)
}

// Close Mailbox 닫기
func (m *Mailbox) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.closed {
		m.closed = true
		close(m.messages)
	}
}

// IsClosed 닫힘 여부
func (m *Mailbox) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}
