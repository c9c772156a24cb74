package intent

import (
	"context"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// SwapIntent is what a user asked to swap. Tokens are upper-case.
type SwapIntent struct {
	SourceToken string `json:"source_token"`
	DestToken   string `json:"dest_token"`
	Amount      string `json:"amount"`
	DestAddress string `json:"dest_address,omitempty"`
}

// Partial is a swap request that names both tokens but no amount.
type Partial struct {
	SourceToken string
	DestToken   string
}

// Extractor turns free text into a SwapIntent. ok is false when the text
// does not carry a complete request; that is not an error.
type Extractor interface {
	Extract(ctx context.Context, text string) (in SwapIntent, ok bool, err error)
}

// Checked in order, first match wins.
var swapPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bswap\s+(\d+(?:\.\d+)?)\s+([a-z0-9]+)\s+to\s+([a-z0-9]+)`),
	regexp.MustCompile(`(?i)\bexchange\s+(\d+(?:\.\d+)?)\s+([a-z0-9]+)\s+for\s+([a-z0-9]+)`),
	regexp.MustCompile(`(?i)\bconvert\s+(\d+(?:\.\d+)?)\s+([a-z0-9]+)\s+to\s+([a-z0-9]+)`),
}

var partialPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bswap\s+([a-z0-9]+)\s+to\s+([a-z0-9]+)`),
	regexp.MustCompile(`(?i)\bexchange\s+([a-z0-9]+)\s+for\s+([a-z0-9]+)`),
	regexp.MustCompile(`(?i)\bconvert\s+([a-z0-9]+)\s+to\s+([a-z0-9]+)`),
}

var (
	swapVerb = regexp.MustCompile(`(?i)\b(swap|exchange|convert)\b`)
	digits   = regexp.MustCompile(`^\d`)
)

// Parse extracts a complete swap request from text.
func Parse(text string) (SwapIntent, bool) {
	for _, re := range swapPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if !PositiveAmount(m[1]) {
			return SwapIntent{}, false
		}
		return SwapIntent{
			Amount:      m[1],
			SourceToken: strings.ToUpper(m[2]),
			DestToken:   strings.ToUpper(m[3]),
		}, true
	}
	return SwapIntent{}, false
}

// ParsePartial matches "<verb> <token> <prep> <token>" with the amount left out.
func ParsePartial(text string) (Partial, bool) {
	for _, re := range partialPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil || digits.MatchString(m[1]) {
			continue
		}
		return Partial{
			SourceToken: strings.ToUpper(m[1]),
			DestToken:   strings.ToUpper(m[2]),
		}, true
	}
	return Partial{}, false
}

// MentionsSwap reports whether text uses one of the swap verbs at all.
func MentionsSwap(text string) bool {
	return swapVerb.MatchString(text)
}

func PositiveAmount(s string) bool {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return false
	}
	return d.IsPositive()
}

// Patterns is the deterministic Extractor.
type Patterns struct{}

func (Patterns) Extract(_ context.Context, text string) (SwapIntent, bool, error) {
	in, ok := Parse(text)
	return in, ok, nil
}
