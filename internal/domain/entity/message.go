package entity

import "time"

// InboundMessage is one text message delivered by the chat platform.
type InboundMessage struct {
	UserID   int64
	Username string
	Text     string
}

// CompletionRequest is built fresh for every inbound message and never mutated.
type CompletionRequest struct {
	Prompt          string
	Model           string
	Temperature     float64
	MaxOutputTokens int
}

// CompletionResult is either a success (Kind == KindNone) carrying Text,
// or a failure carrying Kind and a technical Detail for the log.
type CompletionResult struct {
	Text     string
	Kind     ErrorKind
	Detail   string
	Attempts int
}

// OK reports whether the result is a success.
func (r CompletionResult) OK() bool {
	return r.Kind == KindNone
}

// Succeeded builds a successful result.
func Succeeded(text string, attempts int) CompletionResult {
	return CompletionResult{Text: text, Attempts: attempts}
}

// Failed builds a failed result.
func Failed(kind ErrorKind, detail string, attempts int) CompletionResult {
	return CompletionResult{Kind: kind, Detail: detail, Attempts: attempts}
}

// Exchange is the journal record of one processed inbound message.
// Prompt and reply text are deliberately not kept.
type Exchange struct {
	ID           string
	UserID       int64
	Username     string
	PromptLength int
	ReplyLength  int
	Kind         ErrorKind
	Attempts     int
	Truncated    bool
	Latency      time.Duration
	Timestamp    time.Time
}
