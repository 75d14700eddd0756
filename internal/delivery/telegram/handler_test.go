package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/yourusername/llm-relay-bot/config"
	"github.com/yourusername/llm-relay-bot/internal/domain/entity"
	"github.com/yourusername/llm-relay-bot/internal/usecase"
)

type fakeBot struct {
	mu             sync.Mutex
	sent           []tgbotapi.MessageConfig
	sendAttempts   int
	requests       []tgbotapi.Chattable
	rejectMarkdown bool
	rejectText     string
	requestErr     error
	updates        chan tgbotapi.Update
	stopOnce       sync.Once
}

func newFakeBot() *fakeBot {
	return &fakeBot{updates: make(chan tgbotapi.Update, 10)}
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sendAttempts++

	msg, ok := c.(tgbotapi.MessageConfig)
	if !ok {
		return tgbotapi.Message{}, errors.New("unexpected chattable")
	}
	if b.rejectMarkdown && msg.ParseMode != "" {
		return tgbotapi.Message{}, &tgbotapi.Error{Code: 400, Message: "Bad Request: can't parse entities"}
	}
	if b.rejectText != "" && msg.Text == b.rejectText {
		return tgbotapi.Message{}, &tgbotapi.Error{Code: 400, Message: "Bad Request: message is too long"}
	}
	b.sent = append(b.sent, msg)
	return tgbotapi.Message{MessageID: len(b.sent)}, nil
}

func (b *fakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, c)
	if b.requestErr != nil {
		return nil, b.requestErr
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (b *fakeBot) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return b.updates
}

func (b *fakeBot) StopReceivingUpdates() {
	b.stopOnce.Do(func() { close(b.updates) })
}

func (b *fakeBot) messages() []tgbotapi.MessageConfig {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]tgbotapi.MessageConfig(nil), b.sent...)
}

type fakeRelay struct {
	mu       sync.Mutex
	received []entity.InboundMessage
	reply    usecase.Reply
	panics   bool
}

func (r *fakeRelay) ProcessMessage(_ context.Context, msg entity.InboundMessage) usecase.Reply {
	r.mu.Lock()
	r.received = append(r.received, msg)
	r.mu.Unlock()
	if r.panics {
		panic("relay exploded")
	}
	return r.reply
}

func (r *fakeRelay) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.received)
}

func testHandler(bot *fakeBot, relay *fakeRelay) *BotHandler {
	return newBotHandler(bot, "relay_test_bot", relay, config.Defaults().Limits, zap.NewNop())
}

func textMessage(text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: 10, UserName: "alice", FirstName: "Alice"},
		Chat:      &tgbotapi.Chat{ID: 100, Type: "private"},
		Text:      text,
	}
}

func commandMessage(text string) *tgbotapi.Message {
	msg := textMessage(text)
	msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}}
	return msg
}

func TestHandleMessage_Commands(t *testing.T) {
	tests := []struct {
		command  string
		contains []string
	}{
		{"/start", []string{"/help", "1 request per 5 seconds"}},
		{"/help", []string{"2000 characters", "4096 characters", "5 seconds"}},
		{"/history", []string{"Unknown command"}},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			bot := newFakeBot()
			relay := &fakeRelay{}

			testHandler(bot, relay).handleMessage(context.Background(), 1, commandMessage(tt.command))

			sent := bot.messages()
			require.Len(t, sent, 1)
			for _, want := range tt.contains {
				assert.Contains(t, sent[0].Text, want)
			}
			assert.Empty(t, sent[0].ParseMode)
			assert.Zero(t, relay.calls())
		})
	}
}

func TestHandleMessage_RelaysText(t *testing.T) {
	bot := newFakeBot()
	relay := &fakeRelay{reply: usecase.Reply{Text: "*hello*", Markdown: true}}

	testHandler(bot, relay).handleMessage(context.Background(), 1, textMessage("hi there"))

	require.Equal(t, 1, relay.calls())
	assert.Equal(t, entity.InboundMessage{UserID: 10, Username: "alice", Text: "hi there"}, relay.received[0])

	require.Len(t, bot.requests, 1)
	action, ok := bot.requests[0].(tgbotapi.ChatActionConfig)
	require.True(t, ok)
	assert.Equal(t, tgbotapi.ChatTyping, action.Action)

	sent := bot.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, int64(100), sent[0].ChatID)
	assert.Equal(t, "*hello*", sent[0].Text)
	assert.Equal(t, tgbotapi.ModeMarkdown, sent[0].ParseMode)
}

func TestHandleMessage_UsernameFallsBackToFirstName(t *testing.T) {
	bot := newFakeBot()
	relay := &fakeRelay{reply: usecase.Reply{Text: "ok", Markdown: true}}
	msg := textMessage("hi")
	msg.From.UserName = ""

	testHandler(bot, relay).handleMessage(context.Background(), 1, msg)

	require.Equal(t, 1, relay.calls())
	assert.Equal(t, "Alice", relay.received[0].Username)
}

func TestHandleMessage_FailureReplyIsPlainText(t *testing.T) {
	bot := newFakeBot()
	relay := &fakeRelay{reply: usecase.Reply{Text: "⏳ Please wait 3 seconds before sending another request.", Kind: entity.KindRateLimited}}

	testHandler(bot, relay).handleMessage(context.Background(), 1, textMessage("again"))

	sent := bot.messages()
	require.Len(t, sent, 1)
	assert.Empty(t, sent[0].ParseMode)
	assert.Equal(t, relay.reply.Text, sent[0].Text)
}

func TestHandleMessage_MarkdownRejectedResentAsPlainText(t *testing.T) {
	bot := newFakeBot()
	bot.rejectMarkdown = true
	relay := &fakeRelay{reply: usecase.Reply{Text: "unbalanced *markup", Markdown: true}}

	testHandler(bot, relay).handleMessage(context.Background(), 1, textMessage("hi"))

	sent := bot.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "unbalanced *markup", sent[0].Text)
	assert.Empty(t, sent[0].ParseMode)
	assert.Equal(t, 2, bot.sendAttempts)
}

func TestHandleMessage_RejectedReplySendsApology(t *testing.T) {
	bot := newFakeBot()
	reply := strings.Repeat("🙂", 3000)
	bot.rejectText = reply
	relay := &fakeRelay{reply: usecase.Reply{Text: reply, Markdown: true}}

	testHandler(bot, relay).handleMessage(context.Background(), 1, textMessage("emoji please"))

	sent := bot.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, usecase.GenericApology, sent[0].Text)
	assert.Empty(t, sent[0].ParseMode)
	assert.Equal(t, 3, bot.sendAttempts)
}

func TestHandleMessage_NonTextIgnored(t *testing.T) {
	bot := newFakeBot()
	relay := &fakeRelay{}
	msg := textMessage("")
	msg.Photo = []tgbotapi.PhotoSize{{FileID: "photo"}}

	testHandler(bot, relay).handleMessage(context.Background(), 1, msg)

	assert.Zero(t, relay.calls())
	assert.Empty(t, bot.messages())
}

func TestHandleMessage_PanicSendsApology(t *testing.T) {
	bot := newFakeBot()
	relay := &fakeRelay{panics: true}

	require.NotPanics(t, func() {
		testHandler(bot, relay).handleMessage(context.Background(), 7, textMessage("boom"))
	})

	sent := bot.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, usecase.GenericApology, sent[0].Text)
}

func TestStart_ProcessesUpdatesUntilCancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	bot := newFakeBot()
	relay := &fakeRelay{reply: usecase.Reply{Text: "pong", Markdown: true}}
	handler := testHandler(bot, relay)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- handler.Start(ctx) }()

	bot.updates <- tgbotapi.Update{UpdateID: 1, Message: textMessage("ping")}
	bot.updates <- tgbotapi.Update{UpdateID: 2}

	assert.Eventually(t, func() bool { return len(bot.messages()) == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancellation")
	}

	require.NotEmpty(t, bot.requests)
	webhook, ok := bot.requests[0].(tgbotapi.DeleteWebhookConfig)
	require.True(t, ok)
	assert.True(t, webhook.DropPendingUpdates)
	assert.Equal(t, "pong", bot.messages()[0].Text)
}

func TestStart_FailsWhenPendingUpdatesCannotBeDropped(t *testing.T) {
	bot := newFakeBot()
	bot.requestErr = errors.New("network down")

	err := testHandler(bot, &fakeRelay{}).Start(context.Background())

	assert.ErrorContains(t, err, "failed to drop pending updates")
	assert.Zero(t, len(bot.messages()))
}

func TestGetBotUsername(t *testing.T) {
	assert.Equal(t, "relay_test_bot", testHandler(newFakeBot(), &fakeRelay{}).GetBotUsername())
}
