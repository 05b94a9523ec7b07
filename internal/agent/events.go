package agent

// Event names published by the agent. Frontends subscribe by name; payloads
// are the types below or plain strings/bools.
const (
	EventStatus          = "agent-status"
	EventStreaming       = "agent-streaming"
	EventStreamChunk     = "agent-stream-chunk"
	EventThinking        = "agent-thinking"
	EventToolResult      = "agent-tool-result"
	EventFileAccess      = "agent-file-access"
	EventApprovalRequest = "agent-approval-request"
	EventMessageComplete = "agent-message-complete"
	EventStreamEnd       = "agent-stream-end"
	EventActiveModel     = "active-model-changed"
	EventContextSummary  = "context-summary"
	EventSummaryPending  = "context-summary-pending"
)

// Stream end reasons carried by EventStreamEnd.
const (
	EndComplete = "complete"
	EndDenied   = "denied"
	EndMaxSteps = "max_steps"
)

// Emitter 事件出口 / Emitter receives agent events. Implementations must be
// safe for concurrent use and must not block; slow consumers should buffer.
type Emitter interface {
	Emit(event string, payload any)
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(event string, payload any)

func (f EmitterFunc) Emit(event string, payload any) { f(event, payload) }

// NopEmitter discards all events.
type NopEmitter struct{}

func (NopEmitter) Emit(string, any) {}

// ToolResultPayload accompanies EventToolResult.
type ToolResultPayload struct {
	Tool       string         `json:"tool"`
	Parameters map[string]any `json:"parameters"`
	Result     string         `json:"result"`
}

// FileAccessPayload accompanies EventFileAccess. Action is "read" or "write".
type FileAccessPayload struct {
	Action string `json:"action"`
	Path   string `json:"path"`
}

// ApprovalPayload accompanies EventApprovalRequest.
type ApprovalPayload struct {
	Tool       string         `json:"tool"`
	Parameters map[string]any `json:"parameters"`
}

// MessagePayload accompanies EventMessageComplete.
type MessagePayload struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
