package chat

// Message roles on the wire.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is a single role-tagged entry in a conversation.
// Messages are immutable once created.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the body of POST /chat: the full conversation in
// chronological order. The gateway is stateless and never stores it.
type Request struct {
	Messages []Message `json:"messages"`
}

// Response is the body returned by POST /chat.
//
// Success=true always carries a non-empty Message. Success=false occurs
// only for invalid input or an internal fault; Message is then the empty
// string and Error describes the failure.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}
