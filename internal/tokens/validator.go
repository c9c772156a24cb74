package tokens

import (
	"context"
	"fmt"
	"strings"

	"github.com/MikeSquared-Agency/lazyswap/internal/sideshift"
)

type CoinLister interface {
	ListCoins(ctx context.Context) ([]sideshift.Coin, error)
}

type Kind int

const (
	KindUnknown Kind = iota
	KindFixedOnly
)

type Side string

const (
	SideSource      Side = "source"
	SideDestination Side = "destination"
)

// ValidationError names the offending token and which side of the swap it is on.
type ValidationError struct {
	Kind  Kind
	Side  Side
	Token string
}

func (e *ValidationError) Error() string {
	if e.Kind == KindFixedOnly {
		return fmt.Sprintf("%s token %q is fixed-rate only", e.Side, e.Token)
	}
	return fmt.Sprintf("unknown %s token %q", e.Side, e.Token)
}

type Validator struct {
	coins CoinLister
}

func NewValidator(coins CoinLister) *Validator {
	return &Validator{coins: coins}
}

// Validate checks that both tokens are listed and neither is fixed-rate-only.
// A *ValidationError is returned for token problems; any other error means the
// coin list could not be fetched.
func (v *Validator) Validate(ctx context.Context, source, dest string) error {
	coins, err := v.coins.ListCoins(ctx)
	if err != nil {
		return fmt.Errorf("validate tokens: %w", err)
	}
	return Check(coins, source, dest)
}

// Check runs the validation rules against an already fetched coin list.
func Check(coins []sideshift.Coin, source, dest string) error {
	src, ok := Find(coins, source)
	if !ok {
		return &ValidationError{Kind: KindUnknown, Side: SideSource, Token: source}
	}
	dst, ok := Find(coins, dest)
	if !ok {
		return &ValidationError{Kind: KindUnknown, Side: SideDestination, Token: dest}
	}
	if src.FixedOnly {
		return &ValidationError{Kind: KindFixedOnly, Side: SideSource, Token: source}
	}
	if dst.FixedOnly {
		return &ValidationError{Kind: KindFixedOnly, Side: SideDestination, Token: dest}
	}
	return nil
}

// Find resolves a token by exact symbol first, then by display-name substring.
// Both comparisons ignore case.
func Find(coins []sideshift.Coin, token string) (sideshift.Coin, bool) {
	token = strings.ToLower(strings.TrimSpace(token))
	if token == "" {
		return sideshift.Coin{}, false
	}
	for _, c := range coins {
		if strings.ToLower(c.Coin) == token {
			return c, true
		}
	}
	for _, c := range coins {
		if strings.Contains(strings.ToLower(c.Name), token) {
			return c, true
		}
	}
	return sideshift.Coin{}, false
}
