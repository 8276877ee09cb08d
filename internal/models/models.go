package models

// ==================== Chat Completions API Models ====================

// ChatCompletionRequest represents the Chat Completions API request
type ChatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// ChatMessage represents a message in Chat Completions
type ChatMessage struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// ChatCompletionResponse represents the Chat Completions API response
type ChatCompletionResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []ChatChoice `json:"choices"`
	Usage   ChatUsage    `json:"usage,omitempty"`
}

// ChatChoice represents a choice in the response
type ChatChoice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// ChatUsage represents token usage in Chat Completions
type ChatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// UpstreamErrorBody is the error envelope OpenAI-compatible servers return
type UpstreamErrorBody struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code,omitempty"`
		Message string `json:"message"`
	} `json:"error"`
	Message string `json:"message"`
}

// ==================== Boundary Models ====================

// ChatRequest is the body of POST /api/chat
type ChatRequest struct {
	Message string `json:"message" binding:"required"`
}

// ChatResponse is the body returned by POST /api/chat
type ChatResponse struct {
	Reply string `json:"reply"`
}

// ErrorResponse is the flat error body used by the public API
type ErrorResponse struct {
	Error string `json:"error"`
}

// Acknowledgement is returned by the demo intake endpoints
type Acknowledgement struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
