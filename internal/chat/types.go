package chat

// Roles carried by conversation turns. Upstream wire formats map these onto
// their own role vocabulary; everything inside the engine uses this pair plus
// RoleTool for turns that carry tool observations.
const (
	RoleUser  = "user"
	RoleModel = "model"
	RoleTool  = "tool"
)

// Message is a single conversation turn.
// 会话中的一条消息 / one turn in the conversation window.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// User builds a user turn.
func User(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// Model builds a model turn.
func Model(content string) Message {
	return Message{Role: RoleModel, Content: content}
}

// Tool builds a tool observation turn. Providers fold these into the user
// role when the upstream wire has no tool role.
func Tool(content string) Message {
	return Message{Role: RoleTool, Content: content}
}
