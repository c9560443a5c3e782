package nanotypes

// Role identifies the author of a chat message.
type Role string

// Chat roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ChatMessage is one entry of a chat session's history.
// IDs are assigned by the session and strictly increase in insertion order.
type ChatMessage struct {
	ID         int    `json:"id"`
	Role       Role   `json:"role"`
	Content    string `json:"content"`
	IsComplete bool   `json:"isComplete"`
	IsThinking bool   `json:"isThinking"`
}

// ChatState is the turn state of a chat session.
type ChatState int

// Chat session states.
const (
	ChatIdle ChatState = iota
	ChatSubmitting
	ChatStreaming
)

func (s ChatState) String() string {
	switch s {
	case ChatIdle:
		return "idle"
	case ChatSubmitting:
		return "submitting"
	case ChatStreaming:
		return "streaming"
	default:
		return "unknown"
	}
}

// ChatSnapshot is an immutable copy of a chat session's observable state.
type ChatSnapshot struct {
	SessionID    string        `json:"sessionId"`
	State        ChatState     `json:"state"`
	Command      string        `json:"command"`
	Messages     []ChatMessage `json:"messages"`
	IsSubmitting bool          `json:"isSubmitting"`
	IsStreaming  bool          `json:"isStreaming"`
}

// LastMessage returns the newest message, if any.
func (s ChatSnapshot) LastMessage() (ChatMessage, bool) {
	if len(s.Messages) == 0 {
		return ChatMessage{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}
