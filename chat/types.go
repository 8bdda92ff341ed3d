package chat

import "time"

type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

type DeliveryStatus string

const (
	// StatusSent marks a user message appended before the network call resolves.
	StatusSent     DeliveryStatus = "sent"
	StatusReceived DeliveryStatus = "received"
	StatusError    DeliveryStatus = "error"
)

type ToolCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
	Result    string `json:"result"`
}

type Message struct {
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	Sender    Sender         `json:"sender"`
	Timestamp time.Time      `json:"timestamp"`
	Status    DeliveryStatus `json:"status"`
	ToolCalls []ToolCall     `json:"tool_calls,omitempty"`
}

// Conversation is the backend's stored transcript.
type Conversation struct {
	ID       string    `json:"conversation_id"`
	Messages []Message `json:"messages"`
}

type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type ChatError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type ChatResponse struct {
	Success        bool       `json:"success"`
	Response       string     `json:"response"`
	ToolCalls      []ToolCall `json:"tool_calls,omitempty"`
	ConversationID string     `json:"conversation_id"`
	MessageID      string     `json:"message_id"`
	Error          *ChatError `json:"error,omitempty"`
}

// Status is the conversation store lifecycle state.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusFailed  Status = "error"
)
