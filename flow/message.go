package flow

import "time"

// Inbound is the normalized message contract consumed by the orchestrator.
type Inbound struct {
	SessionID   string      `json:"sessionId"`
	Content     string      `json:"content"`
	CurrentStep Step        `json:"currentStep"`
	OrderDraft  *OrderDraft `json:"orderDraft,omitempty"`
}

// Message types.
const (
	MessageAssistant = "assistant"
	MessageUser      = "user"
)

// AssistantInfo identifies the persona shown with assistant messages.
type AssistantInfo struct {
	Name  string `json:"name" bson:"name"`
	Title string `json:"title" bson:"title"`
}

// MessageMeta is the routing metadata attached to every outbound message.
type MessageMeta struct {
	SessionID string         `json:"sessionId,omitempty" bson:"session_id,omitempty"`
	NextStep  Step           `json:"nextStep,omitempty" bson:"next_step,omitempty"`
	OrderData *OrderDraft    `json:"orderData,omitempty" bson:"order_data,omitempty"`
	Flags     map[string]any `json:"flags,omitempty" bson:"flags,omitempty"`
	Error     string         `json:"error,omitempty" bson:"error,omitempty"`
	OrderID   string         `json:"orderId,omitempty" bson:"order_id,omitempty"`
	PaymentURL string        `json:"paymentUrl,omitempty" bson:"payment_url,omitempty"`
}

// Message is one conversation turn, inbound or outbound.
type Message struct {
	Type      string        `json:"type" bson:"type"`
	Content   string        `json:"content" bson:"content"`
	Choices   []string      `json:"choices,omitempty" bson:"choices,omitempty"`
	Assistant AssistantInfo `json:"assistant,omitempty" bson:"assistant,omitempty"`
	Metadata  MessageMeta   `json:"metadata" bson:"metadata"`
	Timestamp time.Time     `json:"timestamp" bson:"timestamp"`
}

// Flag returns a boolean message flag.
func (m *Message) Flag(name string) bool {
	v, ok := m.Metadata.Flags[name]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}
