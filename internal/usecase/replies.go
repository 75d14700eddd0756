package usecase

import (
	"fmt"
	"math"
	"time"

	"github.com/yourusername/llm-relay-bot/internal/domain/entity"
)

// GenericApology is sent when handling a message panicked or failed outside the pipeline.
const GenericApology = "⚠️ A system error occurred. Please try again later."

// userMessage returns the fixed user-facing text for a failure kind.
// Technical detail never reaches the user.
func userMessage(kind entity.ErrorKind, maxInput int, wait time.Duration) string {
	switch kind {
	case entity.KindInputEmpty:
		return "Please send a non-empty message."
	case entity.KindInputTooLong:
		return fmt.Sprintf("Message too long. Please keep it under %d characters.", maxInput)
	case entity.KindRateLimited:
		return fmt.Sprintf("⏳ Please wait %d seconds before sending another request.", waitSeconds(wait))
	case entity.KindAuthError:
		return "🔑 Authentication with the AI service failed. The bot owner has to fix the API key."
	case entity.KindUpstreamRateLimited:
		return "🚦 Too many requests to the AI service right now. Please try again in a minute."
	case entity.KindUpstreamError:
		return "⚠️ Service temporarily unavailable. Please try again later."
	case entity.KindExhausted:
		return "⌛ Temporary error while contacting the AI service. Please try again later."
	default:
		return "🔧 An error occurred. Developers have been notified."
	}
}

// waitSeconds rounds up so the user is never told to wait less than needed.
func waitSeconds(d time.Duration) int {
	s := int(math.Ceil(d.Seconds()))
	if s < 1 {
		return 1
	}
	return s
}
