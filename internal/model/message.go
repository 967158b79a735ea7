// Package model defines data structures for the portfolio API.
package model

// Role represents the role of a message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is one of the roles a caller may send.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// MessagePart is one element of the parts array some chat clients send instead of content.
type MessagePart struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	Text    string `json:"text,omitempty"`
}

// ChatMessage is one visible conversation turn supplied by the caller.
type ChatMessage struct {
	Role    Role          `json:"role"`
	Content string        `json:"content"`
	Parts   []MessagePart `json:"parts,omitempty"`
}

// Text returns the message text, preferring a leading text part over Content.
func (m ChatMessage) Text() string {
	if len(m.Parts) > 0 && m.Parts[0].Type == "text" {
		if m.Parts[0].Content != "" {
			return m.Parts[0].Content
		}
		return m.Parts[0].Text
	}
	return m.Content
}

// ChatRequest is the body of POST /api/chat. The full visible history is resent on every call.
type ChatRequest struct {
	Messages []ChatMessage `json:"messages"`
	Locale   string        `json:"locale,omitempty"`
}

// LastUserMessage returns the newest message when it was written by the user.
func (r *ChatRequest) LastUserMessage() (ChatMessage, bool) {
	if len(r.Messages) == 0 {
		return ChatMessage{}, false
	}
	last := r.Messages[len(r.Messages)-1]
	if last.Role != RoleUser {
		return ChatMessage{}, false
	}
	return last, true
}

// ContentEvent carries one incremental content delta.
type ContentEvent struct {
	Type  string `json:"type"`
	Delta string `json:"delta"`
	Index int    `json:"index"`
}

// DoneEvent is sent once the provider stream has completed.
type DoneEvent struct {
	Type         string `json:"type"`
	FinishReason string `json:"finishReason,omitempty"`
}

// ErrorEvent reports a failure after the stream has already started.
type ErrorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}
