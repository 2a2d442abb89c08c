package types

import "time"

// MessageKind 에이전트 간 메시지 종류
type MessageKind string

const (
	MessageKindRequest  MessageKind = "request"
	MessageKindResponse MessageKind = "response"
	MessageKindError    MessageKind = "error"
	MessageKindStatus   MessageKind = "status"
)

// AgentMessage 에이전트 간 전달되는 메시지
// To가 비어 있으면 브로드캐스트로 처리됨
type AgentMessage struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	From      AgentType      `json:"from"`
	To        AgentType      `json:"to,omitempty"`
	Stage     PipelineStage  `json:"stage"`
	Kind      MessageKind    `json:"kind"`
	Payload   any            `json:"payload,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// IsBroadcast 브로드캐스트 메시지 여부
func (m AgentMessage) IsBroadcast() bool {
	return m.To == ""
}
