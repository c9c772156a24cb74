package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/MikeSquared-Agency/lazyswap/internal/conversation"
)

const fallbackReply = "❌ Sorry, something went wrong. Please try again, or send /refresh to start over."

const turnTimeout = 2 * time.Minute

type Conversations interface {
	Advance(ctx context.Context, id, text string) (conversation.Reply, error)
}

// Sender is the subset of *tgbotapi.BotAPI used to reply.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Bot relays Telegram chats to the conversation engine, one conversation
// per chat. Messages from one chat are handled in arrival order; reset
// commands skip the queue so they can interrupt a slow turn.
type Bot struct {
	api    *tgbotapi.BotAPI
	sender Sender
	conv   Conversations
	logger *slog.Logger

	// limits concurrent turns across all chats
	sem chan struct{}
	wg  sync.WaitGroup

	mu     sync.Mutex
	queues map[int64][]string
}

func New(token string, conv Conversations, logger *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect telegram: %w", err)
	}
	b := newBot(api, conv, logger)
	b.api = api
	logger.Info("telegram bot authorised", "username", api.Self.UserName)
	return b, nil
}

func newBot(sender Sender, conv Conversations, logger *slog.Logger) *Bot {
	return &Bot{
		sender: sender,
		conv:   conv,
		logger: logger,
		sem:    make(chan struct{}, 32),
		queues: make(map[int64][]string),
	}
}

// Run long-polls for updates until ctx is cancelled, then waits for the
// turns already running. Queued messages not yet started are dropped.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.wg.Wait()
			return
		case upd, ok := <-updates:
			if !ok {
				b.wg.Wait()
				return
			}
			b.dispatch(ctx, upd)
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, upd tgbotapi.Update) {
	chatID, text, ok := incoming(upd)
	if !ok {
		return
	}
	if cmd, ok := control(text); ok {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			b.handle(chatID, cmd)
		}()
		return
	}

	b.mu.Lock()
	pending, running := b.queues[chatID]
	b.queues[chatID] = append(pending, text)
	b.mu.Unlock()
	if running {
		return
	}
	b.wg.Add(1)
	go b.drain(ctx, chatID)
}

// drain runs the chat's queued messages one at a time and exits when the
// queue is empty.
func (b *Bot) drain(ctx context.Context, chatID int64) {
	defer b.wg.Done()
	for {
		b.mu.Lock()
		pending := b.queues[chatID]
		if len(pending) == 0 || ctx.Err() != nil {
			delete(b.queues, chatID)
			b.mu.Unlock()
			return
		}
		text := pending[0]
		b.queues[chatID] = pending[1:]
		b.mu.Unlock()

		b.sem <- struct{}{}
		b.handle(chatID, text)
		<-b.sem
	}
}

// handle runs one turn. The turn is detached from the poller's context so a
// shutdown lets it finish within turnTimeout.
func (b *Bot) handle(chatID int64, text string) {
	ctx, cancel := context.WithTimeout(context.Background(), turnTimeout)
	defer cancel()

	id := ConversationID(chatID)
	reply, err := b.conv.Advance(ctx, id, text)
	out := reply.Text
	if err != nil {
		b.logger.Error("turn failed", "conversation_id", id, "error", err)
		out = fallbackReply
	}
	if err := b.send(chatID, out); err != nil {
		b.logger.Error("telegram send failed", "chat_id", chatID, "error", err)
	}
}

// send uses Markdown and retries as plain text when Telegram rejects the
// markup.
func (b *Bot) send(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.sender.Send(msg); err == nil {
		return nil
	}
	msg.ParseMode = ""
	if _, err := b.sender.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func ConversationID(chatID int64) string {
	return "telegram:" + strconv.FormatInt(chatID, 10)
}

func incoming(upd tgbotapi.Update) (int64, string, bool) {
	if upd.Message == nil || upd.Message.Chat == nil || upd.Message.Text == "" {
		return 0, "", false
	}
	return upd.Message.Chat.ID, upd.Message.Text, true
}

// control returns the bare command when text resets the conversation. Such
// commands bypass the chat queue.
func control(text string) (string, bool) {
	cmd, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(text)), " ")
	// commands in groups arrive as /refresh@botname
	cmd, _, _ = strings.Cut(cmd, "@")
	switch cmd {
	case "/start", "/refresh", "/reset", "/cancel":
		return cmd, true
	}
	return "", false
}
