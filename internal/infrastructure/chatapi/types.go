package chatapi

import (
	"errors"
	"strings"

	"github.com/yourusername/llm-relay-bot/internal/domain/entity"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// newChatRequest maps a completion request onto the single-turn wire body
func newChatRequest(req entity.CompletionRequest) chatRequest {
	return chatRequest{
		Model:       req.Model,
		Messages:    []chatMessage{{Role: "user", Content: req.Prompt}},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxOutputTokens,
	}
}

// chatResponse keeps pointers so absent fields can be told apart from empty ones.
type chatResponse struct {
	Choices []struct {
		Message *struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type errorBody struct {
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// text returns choices[0].message.content or an error naming the missing part.
func (r *chatResponse) text() (string, error) {
	if len(r.Choices) == 0 {
		return "", errors.New("no choices")
	}
	msg := r.Choices[0].Message
	if msg == nil {
		return "", errors.New("choices[0] has no message")
	}
	if msg.Content == nil {
		return "", errors.New("choices[0].message has no content")
	}
	if strings.TrimSpace(*msg.Content) == "" {
		return "", errors.New("choices[0].message.content is blank")
	}
	return *msg.Content, nil
}
