// Package chat adapts the low-level generation API into a conversational
// model: caller-supplied messages go in, normalized generations come out,
// and any function calls the model predicts along the way are executed
// against a registry and fed back transparently.
package chat

import "errors"

var (
	// ErrUnsupportedMedia reports an attachment whose payload is not a raw
	// byte slice.
	ErrUnsupportedMedia = errors.New("unsupported media payload")

	// ErrUnsupportedMessageType reports a message role the request builder
	// cannot place in a conversation.
	ErrUnsupportedMessageType = errors.New("unsupported message type")
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Media is a binary attachment on a user message. Data must be a []byte;
// anything else is rejected when the request is built.
type Media struct {
	MIMEType string
	Data     any
}

// Message is one caller-supplied conversation turn. The sequence order is
// the turn order; the library never mutates messages it is handed.
type Message struct {
	Role    Role
	Content string
	Media   []Media
}

// UserMessage is shorthand for a plain text user turn.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// AssistantMessage is shorthand for a plain text assistant turn.
func AssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: text}
}

// SystemMessage is shorthand for a system instruction turn.
func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: text}
}
