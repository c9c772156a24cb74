package conversation

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MikeSquared-Agency/lazyswap/internal/address"
	"github.com/MikeSquared-Agency/lazyswap/internal/intent"
	"github.com/MikeSquared-Agency/lazyswap/internal/sideshift"
	"github.com/MikeSquared-Agency/lazyswap/internal/tokens"
)

const examples = `• "Swap 0.1 ETH to USDC"
• "Exchange 100 USDT for BTC"
• "Convert 1 BTC to ETH"`

const msgGreeting = "Hi there! Welcome to LazySwap! 👋\n\n" +
	"I'm your friendly crypto swap assistant. I can help you swap cryptocurrencies across different networks using simple commands.\n\n" +
	"🔄 *To make a swap, just tell me:*\n" + examples + "\n\n" +
	"What would you like to swap today? 🚀"

const msgAbout = "I'm LazySwap, your crypto swap assistant! 🚀\n\n" +
	"I can help you swap cryptocurrencies. Just tell me what you want to swap like:\n" + examples + "\n\n" +
	"What would you like to swap? 💱"

const msgNotUnderstood = "🤔 I didn't understand that swap request.\n\nTry something like:\n" + examples

const msgHelp = "*LazySwap commands*\n\n" +
	"Describe a swap in one message:\n" + examples + "\n\n" +
	"I'll check the tokens, ask for your destination address, lock a fixed-rate quote and give you a deposit address.\n\n" +
	"/refresh or /start clears the current swap.\n" +
	"/help shows this message."

const msgReset = "🔄 Conversation reset. What would you like to swap?\n\n" + examples

const msgCancelled = "This request was cancelled by a reset. Start again whenever you're ready."

const msgSwapDisabled = "❌ Sorry, swap creation is currently disabled. Please try again later."

const msgPermissionUnavailable = "❌ Sorry, I couldn't check whether swaps are available right now. Please try again later."

const msgQuoteFailed = "❌ Sorry, I couldn't get a quote right now. Please try again later."

const msgShiftFailed = "❌ Sorry, I couldn't create the swap. Please try again."

const msgQuoteExpired = "❌ Sorry, the quote expired before the swap could be created. Please try again."

const msgCoinsUnavailable = "❌ Sorry, I couldn't load the list of supported tokens. Please try again later."

const msgInternal = "❌ Sorry, there was an internal error. Please try again."

func isGreeting(text string) bool {
	lower := strings.ToLower(text)
	for _, w := range strings.FieldsFunc(lower, func(r rune) bool {
		return !(r >= 'a' && r <= 'z')
	}) {
		switch w {
		case "hello", "hi", "hey", "gm":
			return true
		}
	}
	return false
}

func msgValidation(verr *tokens.ValidationError) string {
	var detail string
	if verr.Kind == tokens.KindFixedOnly {
		detail = fmt.Sprintf("%s token %q only supports fixed swaps.", capitalize(string(verr.Side)), verr.Token)
	} else {
		detail = fmt.Sprintf("Invalid %s token. %q not found in available coins.", verr.Side, verr.Token)
	}
	return "❌ " + detail + "\n\nPlease try again with supported tokens."
}

func msgNeedAmount(p intent.Partial) string {
	return fmt.Sprintf("Both %s and %s are supported. 👍\n\nHow much %s would you like to swap? Send the full request, e.g. \"Swap 0.1 %s to %s\".",
		p.SourceToken, p.DestToken, p.SourceToken, p.SourceToken, p.DestToken)
}

func msgAskAddress(in intent.SwapIntent) string {
	return fmt.Sprintf("Great! I can help you swap %s %s to %s.\n\n"+
		"🔑 *To proceed, I need your %s destination address.*\n\n"+
		"Please provide the wallet address where you want to receive your %s tokens.\n\n"+
		"⚠️ *Important*: Make sure the address is correct and supports %s tokens.",
		in.Amount, in.SourceToken, in.DestToken, in.DestToken, in.DestToken, in.DestToken)
}

func msgInvalidAddress(in intent.SwapIntent) string {
	return fmt.Sprintf("❌ That doesn't look like a valid address.\n\n"+
		"Please provide a valid %s wallet address (typically 25+ characters).\n\n"+
		"Example: 0x742d35Cc6634C0532925a3b8D4C9db96590e4265", in.DestToken)
}

func msgSummary(in intent.SwapIntent) string {
	return fmt.Sprintf("✅ Perfect! Here's your swap summary:\n\n"+
		"🔄 *Swap Details:*\n"+
		"• From: %s %s\n"+
		"• To: %s\n"+
		"• Destination: %s\n\n"+
		"🔍 Getting you a quote now...",
		in.Amount, in.SourceToken, in.DestToken, address.Mask(in.DestAddress))
}

func msgQuote(in intent.SwapIntent, q sideshift.Quote) string {
	return fmt.Sprintf("💱 *Quote Ready!*\n\n"+
		"📊 *Details:*\n"+
		"• You send: %s %s\n"+
		"• You receive: ~%s %s\n"+
		"• Rate: 1 %s = %s %s\n"+
		"• Quote expires: %s",
		fixed(q.DepositAmount, in.Amount), in.SourceToken,
		fixed(q.SettleAmount, q.SettleAmount), in.DestToken,
		in.SourceToken, rate(q), in.DestToken,
		expiry(q.ExpiresAt))
}

func msgShift(in intent.SwapIntent, q sideshift.Quote, s sideshift.Shift) string {
	var b strings.Builder
	send := fixed(q.DepositAmount, in.Amount)
	fmt.Fprintf(&b, "🎉 *Swap Created Successfully!*\n\n")
	fmt.Fprintf(&b, "📬 *Send your %s to:*\n`%s`\n", in.SourceToken, s.DepositAddress)
	if s.DepositMemo != "" {
		fmt.Fprintf(&b, "📝 *Memo:* `%s`\n", s.DepositMemo)
	}
	fmt.Fprintf(&b, "\n💰 *Amount to send:* %s %s\n", send, in.SourceToken)
	fmt.Fprintf(&b, "🎯 *You receive:* ~%s %s at %s\n", fixed(q.SettleAmount, q.SettleAmount), in.DestToken, address.Mask(in.DestAddress))
	if s.SettleCoinNetworkFee != "" {
		fmt.Fprintf(&b, "⛽ *Network fee:* %s %s", fixed(s.SettleCoinNetworkFee, s.SettleCoinNetworkFee), in.DestToken)
		if usd, err := decimal.NewFromString(s.NetworkFeeUSD); err == nil {
			fmt.Fprintf(&b, " (~$%s)", usd.StringFixed(2))
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "🔍 *Swap ID:* %s\n", s.ID)
	exp := s.ExpiresAt
	if exp.IsZero() {
		exp = q.ExpiresAt
	}
	fmt.Fprintf(&b, "\n⏰ *Send before:* %s\n", expiry(exp))
	fmt.Fprintf(&b, "📦 Track it: %s\n\n", sideshift.OrderURL(s.ID))
	fmt.Fprintf(&b, "⚠️ Send the exact amount shown. Sending less may result in a refund with fees deducted.")
	return b.String()
}

// fixed renders a decimal string with 6 places, falling back to the raw value.
func fixed(s, fallback string) string {
	d, err := decimal.NewFromString(s)
	if err != nil {
		d, err = decimal.NewFromString(fallback)
		if err != nil {
			return fallback
		}
	}
	return d.StringFixed(6)
}

func rate(q sideshift.Quote) string {
	if q.Rate != "" {
		return fixed(q.Rate, q.Rate)
	}
	dep, err1 := decimal.NewFromString(q.DepositAmount)
	set, err2 := decimal.NewFromString(q.SettleAmount)
	if err1 != nil || err2 != nil || dep.IsZero() {
		return "?"
	}
	return set.Div(dep).StringFixed(6)
}

func expiry(t time.Time) string {
	if t.IsZero() {
		return "soon"
	}
	return t.UTC().Format("2006-01-02 15:04 MST")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
