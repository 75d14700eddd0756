package upstream

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yourusername/llm-relay-bot/internal/domain/entity"
)

func TestFromStatus(t *testing.T) {
	tests := []struct {
		code  int
		kind  entity.ErrorKind
		retry bool
	}{
		{http.StatusUnauthorized, entity.KindAuthError, false},
		{http.StatusTooManyRequests, entity.KindUpstreamRateLimited, false},
		{http.StatusInternalServerError, entity.KindUpstreamError, true},
		{http.StatusBadGateway, entity.KindUpstreamError, true},
		{http.StatusServiceUnavailable, entity.KindUpstreamError, true},
		{http.StatusBadRequest, entity.KindUpstreamError, false},
		{http.StatusForbidden, entity.KindUpstreamError, false},
		{http.StatusNotFound, entity.KindUpstreamError, false},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.code), func(t *testing.T) {
			out := FromStatus(tt.code, "body")
			assert.False(t, out.OK())
			assert.Equal(t, tt.kind, out.Kind)
			assert.Equal(t, tt.retry, out.ShouldRetry())
			assert.Contains(t, out.Err.Error(), "body")
		})
	}
}

func TestMalformed_WrapsSentinel(t *testing.T) {
	out := Malformed(errors.New("missing choices"))
	assert.True(t, out.ShouldRetry())
	assert.Equal(t, entity.KindExhausted, out.Kind)
	assert.ErrorIs(t, out.Err, ErrMalformedResponse)
	assert.Contains(t, out.Err.Error(), "missing choices")

	assert.ErrorIs(t, Malformed(nil).Err, ErrMalformedResponse)
}

func TestTransport_IsRetryable(t *testing.T) {
	out := Transport(errors.New("connection refused"))
	assert.True(t, out.ShouldRetry())
	assert.Equal(t, entity.KindExhausted, out.Kind)
	assert.Equal(t, "retryable", out.String())
	assert.Equal(t, "success", Success("hi").String())
}
