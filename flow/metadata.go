package flow

// ConversationMode routes inbound messages without re-deriving intent.
type ConversationMode string

const (
	ModeFreeConversation ConversationMode = "free_conversation"
	ModeStandardFlow     ConversationMode = "standard_flow"
	ModeExpressFlow      ConversationMode = "express_flow"
	ModeAwaitingPayment  ConversationMode = "awaiting_payment"
)

// InPurchaseFlow reports whether the mode suppresses the free-text responder.
func (m ConversationMode) InPurchaseFlow() bool {
	return m == ModeStandardFlow || m == ModeExpressFlow || m == ModeAwaitingPayment
}

// StepMarks records which side effects of a step have committed.
type StepMarks struct {
	Processed bool `json:"processed" bson:"processed"`
	Saved     bool `json:"saved" bson:"saved"`
}

// CompletedSteps is the typed replacement for the historical
// "{step}_processed"/"{step}_saved" string flag bag. It is persisted with
// the draft and consulted before repeating a step's side effects.
type CompletedSteps map[Step]StepMarks

func (c CompletedSteps) Processed(s Step) bool { return c[s].Processed }
func (c CompletedSteps) Saved(s Step) bool     { return c[s].Saved }

func (c CompletedSteps) MarkProcessed(s Step) {
	m := c[s]
	m.Processed = true
	c[s] = m
}

func (c CompletedSteps) MarkSaved(s Step) {
	m := c[s]
	m.Saved = true
	c[s] = m
}

// Metadata is the draft's metadata bag: typed idempotency and mode markers
// plus a free-form flag map for message-level markers such as
// preventRecursion.
type Metadata struct {
	Completed CompletedSteps   `json:"completed_steps" bson:"completed_steps"`
	Mode      ConversationMode `json:"mode" bson:"mode"`
	Flags     map[string]any   `json:"flags,omitempty" bson:"flags,omitempty"`
}

// Well-known flag names. The typed structures above cover step idempotency
// and flow mode; these remain for per-message markers.
const (
	FlagPreventRecursion = "preventRecursion"
	FlagExpressMode      = "expressMode"
)

func NewMetadata() Metadata {
	return Metadata{
		Completed: make(CompletedSteps),
		Mode:      ModeFreeConversation,
		Flags:     make(map[string]any),
	}
}

// Flag returns the boolean value of a named flag, false when absent or
// not a bool.
func (m *Metadata) Flag(name string) bool {
	v, ok := m.Flags[name]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

func (m *Metadata) SetFlag(name string, v any) {
	if m.Flags == nil {
		m.Flags = make(map[string]any)
	}
	m.Flags[name] = v
}

func (m *Metadata) ClearFlag(name string) {
	delete(m.Flags, name)
}

// ResetModeMarkers returns the session to free conversation. Idempotency
// markers survive; only mode state is cleared.
func (m *Metadata) ResetModeMarkers() {
	m.Mode = ModeFreeConversation
	m.ClearFlag(FlagExpressMode)
}

// MergeMetadata merges patch into base with a fixed precedence: patch mode
// wins when set, completed-step marks are unioned, flags are unioned with
// patch values winning on key collision. Nothing is ever silently dropped.
func MergeMetadata(base, patch Metadata) Metadata {
	out := base
	if out.Completed == nil {
		out.Completed = make(CompletedSteps)
	}
	for step, marks := range patch.Completed {
		cur := out.Completed[step]
		cur.Processed = cur.Processed || marks.Processed
		cur.Saved = cur.Saved || marks.Saved
		out.Completed[step] = cur
	}
	if patch.Mode != "" {
		out.Mode = patch.Mode
	}
	if len(patch.Flags) > 0 && out.Flags == nil {
		out.Flags = make(map[string]any)
	}
	for k, v := range patch.Flags {
		out.Flags[k] = v
	}
	return out
}
