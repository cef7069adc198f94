// ABOUTME: Core data model types for the LLM client used by the strategy tiers.
// ABOUTME: Defines Message, ContentPart, Request, Response, and supporting types.

package llm

// Role represents who produced a message in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ContentKind discriminates the type of content in a ContentPart.
type ContentKind string

const (
	ContentText  ContentKind = "text"
	ContentImage ContentKind = "image"
)

// ImageData holds image content as raw bytes plus a media type.
type ImageData struct {
	Data      []byte `json:"data,omitempty"`
	MediaType string `json:"media_type,omitempty"`
	Detail    string `json:"detail,omitempty"` // "auto", "low", "high"
}

// ContentPart is a single piece of content within a message.
// The Kind field determines which data field is populated.
type ContentPart struct {
	Kind  ContentKind `json:"kind"`
	Text  string      `json:"text,omitempty"`
	Image *ImageData  `json:"image,omitempty"`
}

// TextPart creates a text ContentPart.
func TextPart(text string) ContentPart {
	return ContentPart{Kind: ContentText, Text: text}
}

// ImageDataPart creates an image ContentPart from raw bytes.
func ImageDataPart(data []byte, mediaType string) ContentPart {
	return ContentPart{Kind: ContentImage, Image: &ImageData{Data: data, MediaType: mediaType}}
}

// Message is the fundamental unit of conversation.
type Message struct {
	Role    Role          `json:"role"`
	Content []ContentPart `json:"content"`
}

// TextContent returns concatenated text from all text content parts.
func (m *Message) TextContent() string {
	var result string
	for _, part := range m.Content {
		if part.Kind == ContentText {
			result += part.Text
		}
	}
	return result
}

// SystemMessage creates a system role message.
func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: []ContentPart{TextPart(text)}}
}

// UserMessage creates a user role message with text.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: []ContentPart{TextPart(text)}}
}

// UserMessageWithParts creates a user role message with multiple content parts.
func UserMessageWithParts(parts ...ContentPart) Message {
	return Message{Role: RoleUser, Content: parts}
}

// AssistantMessage creates an assistant role message with text.
func AssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: []ContentPart{TextPart(text)}}
}

// FinishReason indicates why generation stopped.
type FinishReason struct {
	Reason string `json:"reason"` // unified: stop, length, content_filter, error, other
	Raw    string `json:"raw,omitempty"`
}

const (
	FinishStop          = "stop"
	FinishLength        = "length"
	FinishContentFilter = "content_filter"
	FinishError         = "error"
	FinishOther         = "other"
)

// Usage tracks token consumption for a single LLM call.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Add combines two Usage values, summing all fields.
func (u Usage) Add(other Usage) Usage {
	return Usage{
		InputTokens:  u.InputTokens + other.InputTokens,
		OutputTokens: u.OutputTokens + other.OutputTokens,
		TotalTokens:  u.TotalTokens + other.TotalTokens,
	}
}

// Request is the unified input type for a completion call.
type Request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Provider    string    `json:"provider,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
}

// Float64Ptr returns a pointer to a float64 value.
func Float64Ptr(v float64) *float64 {
	return &v
}

// IntPtr returns a pointer to an int value.
func IntPtr(v int) *int {
	return &v
}

// Response is the unified output from a completion call.
type Response struct {
	ID           string       `json:"id"`
	Model        string       `json:"model"`
	Provider     string       `json:"provider"`
	Message      Message      `json:"message"`
	FinishReason FinishReason `json:"finish_reason"`
	Usage        Usage        `json:"usage"`
}

// TextContent returns the concatenated text from the response message.
func (r *Response) TextContent() string {
	return r.Message.TextContent()
}
