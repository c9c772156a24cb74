package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/MikeSquared-Agency/lazyswap/internal/address"
	"github.com/MikeSquared-Agency/lazyswap/internal/hermes"
	"github.com/MikeSquared-Agency/lazyswap/internal/sideshift"
)

const defaultPostMessageURL = "https://slack.com/api/chat.postMessage"

// Notifier posts created and failed swaps to an operations channel. Other
// events are ignored.
type Notifier struct {
	token   string
	channel string
	client  *http.Client
	logger  *slog.Logger
	apiURL  string

	wg sync.WaitGroup
}

func NewNotifier(token, channel string, logger *slog.Logger) *Notifier {
	return &Notifier{
		token:   token,
		channel: channel,
		client:  &http.Client{Timeout: 10 * time.Second},
		apiURL:  defaultPostMessageURL,
		logger:  logger,
	}
}

// Publish satisfies the conversation event publisher. Posts are sent in the
// background.
func (n *Notifier) Publish(subject string, data any) error {
	ev, ok := data.(hermes.SwapEvent)
	if !ok {
		return nil
	}
	var text string
	switch subject {
	case hermes.SubjectSwapCreated:
		text = formatCreated(ev)
	case hermes.SubjectSwapFailed:
		text = formatFailed(ev)
	default:
		return nil
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := n.Post(ctx, text); err != nil {
			n.logger.Warn("slack notify failed", "subject", subject, "error", err)
		}
	}()
	return nil
}

// Wait blocks until queued posts finish.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

func (n *Notifier) Post(ctx context.Context, text string) error {
	body, err := json.Marshal(map[string]any{
		"channel": n.channel,
		"text":    text,
		"blocks": []map[string]any{
			{
				"type": "section",
				"text": map[string]any{
					"type": "mrkdwn",
					"text": text,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+n.token)

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("slack post: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var slackResp struct {
		OK    bool   `json:"ok"`
		Error string `json:"error,omitempty"`
	}
	if err := json.Unmarshal(respBody, &slackResp); err != nil {
		return fmt.Errorf("parse slack response: %w", err)
	}
	if !slackResp.OK {
		return fmt.Errorf("slack error: %s", slackResp.Error)
	}
	return nil
}

func formatCreated(ev hermes.SwapEvent) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, ":white_check_mark: *Swap created* `%s`\n", ev.ShiftID)
	fmt.Fprintf(&sb, "*Pair:* %s %s → %s %s\n", ev.Amount, ev.SourceToken, ev.SettleAmount, ev.DestToken)
	fmt.Fprintf(&sb, "*Deposit:* `%s`\n", address.Mask(ev.DepositAddress))
	fmt.Fprintf(&sb, "*Conversation:* %s\n", ev.ConversationID)
	fmt.Fprintf(&sb, "<%s|Track order>", sideshift.OrderURL(ev.ShiftID))
	return sb.String()
}

func formatFailed(ev hermes.SwapEvent) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, ":x: *Swap failed* at %s\n", ev.Stage)
	if ev.SourceToken != "" {
		fmt.Fprintf(&sb, "*Pair:* %s %s → %s\n", ev.Amount, ev.SourceToken, ev.DestToken)
	}
	if ev.Reason != "" {
		fmt.Fprintf(&sb, "*Reason:* %s\n", ev.Reason)
	}
	fmt.Fprintf(&sb, "*Conversation:* %s", ev.ConversationID)
	return sb.String()
}
