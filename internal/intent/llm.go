package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/MikeSquared-Agency/lazyswap/internal/anthropic"
)

const llmSystemPrompt = `You extract cryptocurrency swap requests from chat messages.

Reply with a single JSON object and nothing else:
{"source_token": string|null, "dest_token": string|null, "amount": string|null}

Rules:
- Tokens are ticker symbols such as ETH, BTC, USDC. Convert names to symbols ("bitcoin" -> "BTC").
- amount is the quantity of source_token as a plain decimal string ("0.1", "100").
- If the message is not a swap request, or any field is missing, use null for that field.
- Never guess an amount.`

type Completer interface {
	Complete(ctx context.Context, system string, messages []anthropic.Message, maxTokens int) (string, error)
}

// LLM asks a hosted model to extract the swap. Its output is held to the same
// shape rules as Patterns.
type LLM struct {
	llm    Completer
	logger *slog.Logger
}

func NewLLM(llm Completer, logger *slog.Logger) *LLM {
	return &LLM{llm: llm, logger: logger}
}

type llmResponse struct {
	SourceToken *string `json:"source_token"`
	DestToken   *string `json:"dest_token"`
	Amount      *string `json:"amount"`
}

var symbol = regexp.MustCompile(`^[A-Za-z0-9]+$`)

func (x *LLM) Extract(ctx context.Context, text string) (SwapIntent, bool, error) {
	raw, err := x.llm.Complete(ctx, llmSystemPrompt, []anthropic.Message{{Role: "user", Content: text}}, 256)
	if err != nil {
		return SwapIntent{}, false, fmt.Errorf("llm extraction: %w", err)
	}

	var resp llmResponse
	if err := json.Unmarshal([]byte(stripFences(raw)), &resp); err != nil {
		x.logger.Warn("failed to parse extraction response", "error", err, "raw", raw)
		return SwapIntent{}, false, fmt.Errorf("parse extraction: %w", err)
	}

	if resp.SourceToken == nil || resp.DestToken == nil || resp.Amount == nil {
		return SwapIntent{}, false, nil
	}
	src, dst, amt := strings.TrimSpace(*resp.SourceToken), strings.TrimSpace(*resp.DestToken), strings.TrimSpace(*resp.Amount)
	if !symbol.MatchString(src) || !symbol.MatchString(dst) || !PositiveAmount(amt) {
		x.logger.Debug("discarding malformed extraction", "source", src, "dest", dst, "amount", amt)
		return SwapIntent{}, false, nil
	}

	return SwapIntent{
		SourceToken: strings.ToUpper(src),
		DestToken:   strings.ToUpper(dst),
		Amount:      amt,
	}, true, nil
}

// stripFences removes a ```json ... ``` wrapper if the model added one.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// Chain tries each extractor in order and returns the first match. Errors are
// logged and treated as no match.
type Chain struct {
	extractors []Extractor
	logger     *slog.Logger
}

func NewChain(logger *slog.Logger, extractors ...Extractor) *Chain {
	return &Chain{extractors: extractors, logger: logger}
}

func (c *Chain) Extract(ctx context.Context, text string) (SwapIntent, bool, error) {
	for _, ext := range c.extractors {
		in, ok, err := ext.Extract(ctx, text)
		if err != nil {
			c.logger.Warn("extractor failed", "error", err)
			continue
		}
		if ok {
			return in, true, nil
		}
	}
	return SwapIntent{}, false, nil
}
