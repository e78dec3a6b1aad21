package entity

// ChatRole is the role tag of one prompt message sent to the model.
type ChatRole string

const (
	ChatRoleSystem    ChatRole = "system"
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatMessage is one entry of the prompt sent to the chat completion
// provider. ImageURLs carries image attachments as multi-part content for
// providers that support vision input.
type ChatMessage struct {
	Role      ChatRole `json:"role"`
	Content   string   `json:"content"`
	ImageURLs []string `json:"image_urls,omitempty"`
}

func SystemMessage(content string) ChatMessage {
	return ChatMessage{Role: ChatRoleSystem, Content: content}
}

func UserMessage(content string, imageURLs ...string) ChatMessage {
	return ChatMessage{Role: ChatRoleUser, Content: content, ImageURLs: imageURLs}
}

func AssistantMessage(content string) ChatMessage {
	return ChatMessage{Role: ChatRoleAssistant, Content: content}
}
