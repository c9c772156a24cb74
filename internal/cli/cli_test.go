package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MikeSquared-Agency/lazyswap/internal/config"
	"github.com/MikeSquared-Agency/lazyswap/internal/conversation"
	"github.com/MikeSquared-Agency/lazyswap/internal/sideshift"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fakeSideShift(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/coins", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]sideshift.Coin{
			{Coin: "USDC", Name: "USD Coin", Networks: []string{"ethereum", "solana"}},
			{Coin: "BTC", Name: "Bitcoin", Networks: []string{"bitcoin"}},
			{Coin: "ETH", Name: "Ethereum", Networks: []string{"ethereum"}},
		})
	})
	mux.HandleFunc("/shifts/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/shifts/")
		json.NewEncoder(w).Encode(sideshift.Shift{
			ID:             id,
			Status:         "waiting",
			DepositCoin:    "eth",
			SettleCoin:     "usdc",
			DepositAddress: "0xdeposit",
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(baseURL string) config.Config {
	return config.Config{
		SideShiftBaseURL: baseURL,
		CallTimeout:      5 * time.Second,
		CoinCacheTTL:     time.Minute,
	}
}

func run(t *testing.T, cfg config.Config, stdin string, args ...string) string {
	t.Helper()
	root := NewRootCommand(cfg)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		t.Fatalf("execute %v: %v", args, err)
	}
	return out.String()
}

func TestCoinsCommand_JSONFiltered(t *testing.T) {
	srv := fakeSideShift(t)
	out := run(t, testConfig(srv.URL), "", "coins", "--json", "--network", "ethereum")

	var coins []sideshift.Coin
	if err := json.Unmarshal([]byte(out), &coins); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if len(coins) != 2 || coins[0].Coin != "ETH" || coins[1].Coin != "USDC" {
		t.Errorf("expected sorted ethereum coins, got %+v", coins)
	}
}

func TestCoinsCommand_Table(t *testing.T) {
	srv := fakeSideShift(t)
	out := run(t, testConfig(srv.URL), "", "coins", "--symbol", "bitcoin")
	if !strings.Contains(out, "BTC") || strings.Contains(out, "USDC") {
		t.Errorf("unexpected table output:\n%s", out)
	}
}

func TestStatusCommand(t *testing.T) {
	srv := fakeSideShift(t)
	out := run(t, testConfig(srv.URL), "", "status", "abc123")
	if !strings.Contains(out, "abc123") || !strings.Contains(out, "waiting") {
		t.Errorf("unexpected status output:\n%s", out)
	}
	if !strings.Contains(out, "https://sideshift.ai/orders/abc123") {
		t.Errorf("expected tracking url in output:\n%s", out)
	}
}

func TestStatusCommand_RequiresID(t *testing.T) {
	root := NewRootCommand(testConfig("http://unused"))
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"status"})
	if err := root.Execute(); err == nil {
		t.Error("expected an error without a shift id")
	}
}

type scriptedConversation struct {
	ids   map[string]bool
	texts []string
}

func (s *scriptedConversation) Advance(ctx context.Context, id, text string) (conversation.Reply, error) {
	if s.ids == nil {
		s.ids = make(map[string]bool)
	}
	s.ids[id] = true
	s.texts = append(s.texts, text)
	return conversation.Reply{Text: "reply to " + text}, nil
}

func TestChat_Loop(t *testing.T) {
	conv := &scriptedConversation{}
	var out bytes.Buffer
	in := strings.NewReader("swap 1 ETH to BTC\n\n/quit\nnever sent\n")

	if err := chat(context.Background(), conv, in, &out); err != nil {
		t.Fatalf("chat: %v", err)
	}

	want := []string{"/start", "swap 1 ETH to BTC"}
	if len(conv.texts) != len(want) {
		t.Fatalf("expected %v, got %v", want, conv.texts)
	}
	for i := range want {
		if conv.texts[i] != want[i] {
			t.Errorf("turn %d: expected %q, got %q", i, want[i], conv.texts[i])
		}
	}
	if len(conv.ids) != 1 {
		t.Errorf("expected one conversation id, got %d", len(conv.ids))
	}
	if !strings.Contains(out.String(), "reply to swap 1 ETH to BTC") {
		t.Errorf("expected reply in transcript:\n%s", out.String())
	}
}

func TestChat_EndOfInput(t *testing.T) {
	conv := &scriptedConversation{}
	if err := chat(context.Background(), conv, strings.NewReader("hello"), io.Discard); err != nil {
		t.Fatalf("chat: %v", err)
	}
	if len(conv.texts) != 2 {
		t.Errorf("expected greeting and one turn, got %v", conv.texts)
	}
}

type fakeResetter struct{ ids []string }

func (f *fakeResetter) Reset(ctx context.Context, id string) (conversation.Reply, error) {
	f.ids = append(f.ids, id)
	return conversation.Reply{}, nil
}

func TestResetHandler(t *testing.T) {
	r := &fakeResetter{}
	h := resetHandler(context.Background(), r, discardLogger())

	h("lazyswap.conversation.reset.requested", []byte(`{"conversation_id":"telegram:1"}`))
	h("lazyswap.conversation.reset.requested", []byte(`not json`))
	h("lazyswap.conversation.reset.requested", []byte(`{}`))

	if len(r.ids) != 1 || r.ids[0] != "telegram:1" {
		t.Errorf("expected a single reset of telegram:1, got %v", r.ids)
	}
}

type recordingPublisher struct {
	subjects []string
	err      error
}

func (r *recordingPublisher) Publish(subject string, data any) error {
	r.subjects = append(r.subjects, subject)
	return r.err
}

func TestPublishers_FanOut(t *testing.T) {
	a := &recordingPublisher{}
	b := &recordingPublisher{err: io.ErrClosedPipe}
	err := publishers{a, b}.Publish("lazyswap.swap.created", nil)
	if err == nil {
		t.Error("expected the failing sink's error")
	}
	if len(a.subjects) != 1 || len(b.subjects) != 1 {
		t.Errorf("expected both sinks to receive the event, got %v and %v", a.subjects, b.subjects)
	}
}
