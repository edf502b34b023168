package entities

import "time"

type MessageRole string

const (
	RoleCustomer MessageRole = "customer"
	RoleBot      MessageRole = "bot"
)

// Message is one turn of a conversation transcript.
type Message struct {
	Role      MessageRole `json:"role" bson:"role" dynamodbav:"role"`
	Content   string      `json:"content" bson:"content" dynamodbav:"content"`
	Timestamp time.Time   `json:"timestamp" bson:"timestamp" dynamodbav:"timestamp"`
}

// Prompt roles understood by the reply-generation call.
const (
	PromptRoleSystem    = "system"
	PromptRoleUser      = "user"
	PromptRoleAssistant = "assistant"
)

// PromptTurn is a role-tagged turn handed to the text-generation service.
type PromptTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// PromptRole maps a transcript role onto the prompt role vocabulary.
// Anything that is not the bot speaking is treated as the customer.
func (r MessageRole) PromptRole() string {
	switch r {
	case RoleBot, "assistant", "agent":
		return PromptRoleAssistant
	default:
		return PromptRoleUser
	}
}
