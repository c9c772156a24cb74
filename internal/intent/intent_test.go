package intent

import (
	"context"
	"testing"
)

func TestParse_VerbPrepositionGrid(t *testing.T) {
	tests := []struct {
		in     string
		amount string
		src    string
		dst    string
	}{
		{"swap 0.1 ETH to USDC", "0.1", "ETH", "USDC"},
		{"Swap 100 usdt to btc", "100", "USDT", "BTC"},
		{"exchange 100 USDT for BTC", "100", "USDT", "BTC"},
		{"EXCHANGE 2.5 sol FOR eth", "2.5", "SOL", "ETH"},
		{"convert 1 BTC to ETH", "1", "BTC", "ETH"},
		{"hey can you convert 3 xmr to ltc please", "3", "XMR", "LTC"},
		{"I'd like to swap 0.1 ETH to 2 USDC", "0.1", "ETH", "2"},
	}
	for _, tt := range tests {
		got, ok := Parse(tt.in)
		if !ok {
			t.Errorf("Parse(%q): expected match", tt.in)
			continue
		}
		if got.Amount != tt.amount || got.SourceToken != tt.src || got.DestToken != tt.dst {
			t.Errorf("Parse(%q): expected %s %s->%s, got %+v", tt.in, tt.amount, tt.src, tt.dst, got)
		}
		if got.DestAddress != "" {
			t.Errorf("Parse(%q): expected empty dest address, got %q", tt.in, got.DestAddress)
		}
	}
}

func TestParse_NoMatch(t *testing.T) {
	for _, in := range []string{
		"",
		"hello",
		"swap ETH to USDC",
		"swap 0.1 ETH",
		"swap 0.1 ETH for USDC",
		"exchange 100 USDT to BTC",
		"convert 1 BTC for ETH",
		"swap 0 ETH to USDC",
		"swap 0.000 ETH to USDC",
		"swap -1 ETH to USDC",
		"swap .5 ETH to USDC",
		"0x742d35Cc6634C0532925a3b8D4C9db96590e4265",
	} {
		if got, ok := Parse(in); ok {
			t.Errorf("Parse(%q): expected no match, got %+v", in, got)
		}
	}
}

func TestParse_FirstPatternWins(t *testing.T) {
	got, ok := Parse("convert 5 DOT to ETH or swap 1 BTC to USDC")
	if !ok {
		t.Fatal("expected match")
	}
	if got.SourceToken != "BTC" {
		t.Errorf("expected swap pattern to win, got %+v", got)
	}
}

func TestParsePartial(t *testing.T) {
	got, ok := ParsePartial("I want to swap FAKECOIN to ETH")
	if !ok {
		t.Fatal("expected partial match")
	}
	if got.SourceToken != "FAKECOIN" || got.DestToken != "ETH" {
		t.Errorf("unexpected partial: %+v", got)
	}

	if _, ok := ParsePartial("swap 10 to ETH"); ok {
		t.Error("expected numeric source to be rejected")
	}
	if _, ok := ParsePartial("hello there"); ok {
		t.Error("expected no partial match")
	}
}

func TestMentionsSwap(t *testing.T) {
	if !MentionsSwap("can I Exchange stuff?") {
		t.Error("expected exchange to be detected")
	}
	if MentionsSwap("swapping is fun") {
		t.Error("expected whole-word match only")
	}
}

func TestPatterns_Extractor(t *testing.T) {
	var ext Extractor = Patterns{}
	in, ok, err := ext.Extract(context.Background(), "swap 0.1 eth to usdc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok || in.SourceToken != "ETH" || in.DestToken != "USDC" {
		t.Errorf("unexpected result: %+v ok=%v", in, ok)
	}
}
