package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/lazyswap/internal/address"
	"github.com/MikeSquared-Agency/lazyswap/internal/hermes"
	"github.com/MikeSquared-Agency/lazyswap/internal/intent"
	"github.com/MikeSquared-Agency/lazyswap/internal/sideshift"
	"github.com/MikeSquared-Agency/lazyswap/internal/tokens"
)

type Exchange interface {
	CheckPermissions(ctx context.Context, userIP string) (sideshift.Permissions, error)
	RequestFixedQuote(ctx context.Context, req sideshift.QuoteRequest) (sideshift.Quote, error)
	CreateFixedShift(ctx context.Context, req sideshift.FixedShiftRequest) (sideshift.Shift, error)
}

type TokenValidator interface {
	Validate(ctx context.Context, source, dest string) error
}

// ErrCorruptState is wrapped by Store.Load when a stored record cannot be
// decoded.
var ErrCorruptState = errors.New("corrupt conversation state")

// Store persists conversation state between turns.
type Store interface {
	Load(ctx context.Context, id string) (State, bool, error)
	Save(ctx context.Context, s State) error
	Delete(ctx context.Context, id string) error
}

const saveTimeout = 5 * time.Second

type Publisher interface {
	Publish(subject string, data any) error
}

type Options struct {
	AffiliateID string
	// CallTimeout bounds each remote call made during a turn.
	CallTimeout time.Duration
	Publisher   Publisher
	Metrics     *Metrics
	Now         func() time.Time
}

// Reply is the outbound message for one turn.
type Reply struct {
	Text  string           `json:"reply"`
	Step  Kind             `json:"step"`
	Shift *sideshift.Shift `json:"shift,omitempty"`
}

// Engine drives conversations through the swap flow. Turns for the same
// conversation run one at a time; different conversations run in parallel.
type Engine struct {
	store     Store
	extractor intent.Extractor
	tokens    TokenValidator
	exchange  Exchange
	logger    *slog.Logger
	opts      Options

	locks *keyedMutex

	mu       sync.Mutex
	inflight map[string]*flight
}

type flight struct {
	cancel    context.CancelFunc
	cancelled bool
}

func NewEngine(store Store, ext intent.Extractor, validator TokenValidator, exchange Exchange, logger *slog.Logger, opts Options) *Engine {
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 15 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		store:     store,
		extractor: ext,
		tokens:    validator,
		exchange:  exchange,
		logger:    logger,
		opts:      opts,
		locks:     newKeyedMutex(),
		inflight:  make(map[string]*flight),
	}
}

// Advance handles one inbound message and returns the reply. An error is
// returned only when state could not be loaded or saved.
func (e *Engine) Advance(ctx context.Context, id, text string) (Reply, error) {
	text = strings.TrimSpace(text)
	switch {
	case isStartCommand(text):
		if _, err := e.reset(ctx, id); err != nil {
			return Reply{}, err
		}
		return Reply{Text: msgGreeting, Step: KindIdle}, nil
	case isResetCommand(text):
		return e.Reset(ctx, id)
	}

	unlock := e.locks.Lock(id)
	defer unlock()

	start := e.opts.Now()
	turnCtx, f := e.begin(ctx, id)
	defer e.end(id, f)

	st, found, err := e.store.Load(ctx, id)
	if err != nil {
		return Reply{}, fmt.Errorf("load conversation %s: %w", id, err)
	}
	if !found {
		st = NewState(id)
	}
	if st.Step == nil {
		st.Step = Idle{}
	}
	from := st.Step.Kind()
	st.record("user", text, start)

	next, out := e.dispatch(turnCtx, st, text)

	// The commit is detached from caller cancellation.
	saveCtx, cancelSave := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
	defer cancelSave()

	stale, err := e.superseded(saveCtx, f, st)
	if err != nil {
		return Reply{}, err
	}
	if stale {
		e.logger.Info("discarding turn after reset", "conversation_id", id, "from", from)
		e.opts.Metrics.outcome("discarded")
		return Reply{Text: msgCancelled, Step: KindIdle}, nil
	}

	next.UpdatedAt = e.opts.Now()
	next.record("assistant", out, next.UpdatedAt)
	if err := e.store.Save(saveCtx, next); err != nil {
		return Reply{}, fmt.Errorf("save conversation %s: %w", id, err)
	}

	to := next.Step.Kind()
	e.opts.Metrics.transition(from, to)
	e.opts.Metrics.observe(e.opts.Now().Sub(start))
	e.logger.Info("conversation advanced", "conversation_id", id, "from", from, "to", to)

	reply := Reply{Text: out, Step: to}
	if sh, ok := next.Shift(); ok {
		reply.Shift = &sh
	}
	return reply, nil
}

// Reset forces the conversation back to Idle, clears its history and makes
// any turn still in flight discard its result.
func (e *Engine) Reset(ctx context.Context, id string) (Reply, error) {
	if _, err := e.reset(ctx, id); err != nil {
		return Reply{}, err
	}
	return Reply{Text: msgReset, Step: KindIdle}, nil
}

func (e *Engine) reset(ctx context.Context, id string) (State, error) {
	e.mu.Lock()
	if f := e.inflight[id]; f != nil {
		f.cancelled = true
		f.cancel()
	}
	e.mu.Unlock()

	unlock := e.locks.Lock(id)
	defer unlock()

	prev, found, err := e.store.Load(ctx, id)
	if errors.Is(err, ErrCorruptState) {
		e.logger.Error("overwriting undecodable conversation", "conversation_id", id, "error", err)
		prev, found, err = State{}, false, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("load conversation %s: %w", id, err)
	}
	from := KindIdle
	if found && prev.Step != nil {
		from = prev.Step.Kind()
	}

	st := NewState(id)
	st.Generation = prev.Generation + 1
	st.UpdatedAt = e.opts.Now()
	if err := e.store.Save(ctx, st); err != nil {
		return State{}, fmt.Errorf("save conversation %s: %w", id, err)
	}

	e.opts.Metrics.transition(from, KindIdle)
	e.logger.Info("conversation reset", "conversation_id", id, "generation", st.Generation)
	e.publish(hermes.SubjectConversationReset, hermes.ResetEvent{
		EventID:        uuid.NewString(),
		ConversationID: id,
		Generation:     st.Generation,
		Timestamp:      st.UpdatedAt.UTC(),
	})
	return st, nil
}

// Snapshot returns the stored state without advancing it.
func (e *Engine) Snapshot(ctx context.Context, id string) (State, bool, error) {
	return e.store.Load(ctx, id)
}

func (e *Engine) begin(ctx context.Context, id string) (context.Context, *flight) {
	ctx, cancel := context.WithCancel(ctx)
	f := &flight{cancel: cancel}
	e.mu.Lock()
	e.inflight[id] = f
	e.mu.Unlock()
	return ctx, f
}

func (e *Engine) end(id string, f *flight) {
	e.mu.Lock()
	if e.inflight[id] == f {
		delete(e.inflight, id)
	}
	e.mu.Unlock()
	f.cancel()
}

// superseded reports whether a reset landed while the turn was running,
// either locally or through the store from another process.
func (e *Engine) superseded(ctx context.Context, f *flight, started State) (bool, error) {
	e.mu.Lock()
	cancelled := f.cancelled
	e.mu.Unlock()
	if cancelled {
		return true, nil
	}
	cur, found, err := e.store.Load(ctx, started.ID)
	if err != nil {
		return false, fmt.Errorf("load conversation %s: %w", started.ID, err)
	}
	return found && cur.Generation != started.Generation, nil
}

func (e *Engine) dispatch(ctx context.Context, st State, text string) (State, string) {
	if isHelpCommand(text) {
		return st, msgHelp
	}
	switch step := st.Step.(type) {
	case AwaitingAddress:
		return e.onAddress(ctx, st, step, text)
	case QuoteReady:
		return e.onQuoteReady(ctx, st, step)
	default:
		return e.onIdle(ctx, st, text)
	}
}

// onIdle handles Idle and Terminal: both accept a fresh request.
func (e *Engine) onIdle(ctx context.Context, st State, text string) (State, string) {
	st.Step = Idle{}

	in, ok, err := e.extractor.Extract(ctx, text)
	if err != nil {
		e.logger.Warn("extraction failed", "conversation_id", st.ID, "error", err)
		ok = false
	}
	if ok {
		if err := e.validate(ctx, in.SourceToken, in.DestToken); err != nil {
			return st, e.validationReply(st.ID, err)
		}
		st.Step = AwaitingAddress{Intent: in}
		e.opts.Metrics.outcome("intent_accepted")
		return st, msgAskAddress(in)
	}

	if p, ok := intent.ParsePartial(text); ok {
		if err := e.validate(ctx, p.SourceToken, p.DestToken); err != nil {
			return st, e.validationReply(st.ID, err)
		}
		return st, msgNeedAmount(p)
	}
	if intent.MentionsSwap(text) {
		return st, msgNotUnderstood
	}
	if isGreeting(text) {
		return st, msgGreeting
	}
	return st, msgAbout
}

func (e *Engine) onAddress(ctx context.Context, st State, step AwaitingAddress, text string) (State, string) {
	addr := strings.TrimSpace(text)
	if !address.Valid(addr) {
		e.opts.Metrics.outcome("invalid_address")
		return st, msgInvalidAddress(step.Intent)
	}

	in := step.Intent
	in.DestAddress = addr
	summary := msgSummary(in)
	fail := func(stage, reason, msg string) (State, string) {
		e.opts.Metrics.outcome(reason)
		e.publishFailure(st.ID, in, stage, reason)
		st.Step = Idle{}
		return st, summary + "\n\n" + msg
	}

	pctx, cancel := context.WithTimeout(ctx, e.opts.CallTimeout)
	perm, err := e.exchange.CheckPermissions(pctx, "")
	cancel()
	if err != nil {
		e.logger.Error("permission check failed", "conversation_id", st.ID, "error", err)
		return fail("permissions", "permission_error", remoteReply(err, msgPermissionUnavailable))
	}
	if !perm.CreateShift {
		e.logger.Warn("shift creation not permitted", "conversation_id", st.ID, "reasons", perm.Reasons)
		return fail("permissions", "permission_denied", msgSwapDisabled)
	}

	qctx, cancel := context.WithTimeout(ctx, e.opts.CallTimeout)
	q, err := e.exchange.RequestFixedQuote(qctx, sideshift.QuoteRequest{
		DepositCoin:   strings.ToLower(in.SourceToken),
		SettleCoin:    strings.ToLower(in.DestToken),
		DepositAmount: in.Amount,
		AffiliateID:   e.opts.AffiliateID,
	})
	cancel()
	if err != nil {
		e.logger.Error("quote request failed", "conversation_id", st.ID, "error", err)
		return fail("quote", "quote_error", remoteReply(err, msgQuoteFailed))
	}

	e.opts.Metrics.outcome("quote_created")
	e.publish(hermes.SubjectSwapQuoted, hermes.SwapEvent{
		EventID:        uuid.NewString(),
		ConversationID: st.ID,
		Stage:          "quoted",
		SourceToken:    in.SourceToken,
		DestToken:      in.DestToken,
		Amount:         in.Amount,
		QuoteID:        q.ID,
		SettleAmount:   q.SettleAmount,
		Timestamp:      e.opts.Now().UTC(),
	})

	quoted := QuoteReady{Intent: in, Quote: q}
	st.Step = quoted
	next, shiftMsg := e.onQuoteReady(ctx, st, quoted)
	return next, summary + "\n\n" + msgQuote(in, q) + "\n\n" + shiftMsg
}

// onQuoteReady turns the held quote into a shift. It is reached right after
// a quote is issued, or on the next turn if a previous one stopped between
// the two calls.
func (e *Engine) onQuoteReady(ctx context.Context, st State, step QuoteReady) (State, string) {
	if step.Quote.Expired(e.opts.Now()) {
		e.opts.Metrics.outcome("quote_expired")
		e.publishFailure(st.ID, step.Intent, "shift", "quote_expired")
		st.Step = Terminal{Failed: true}
		return st, msgQuoteExpired
	}

	sctx, cancel := context.WithTimeout(ctx, e.opts.CallTimeout)
	shift, err := e.exchange.CreateFixedShift(sctx, sideshift.FixedShiftRequest{
		QuoteID:       step.Quote.ID,
		SettleAddress: step.Intent.DestAddress,
		AffiliateID:   e.opts.AffiliateID,
	})
	cancel()
	if err != nil {
		e.logger.Error("shift creation failed", "conversation_id", st.ID, "quote_id", step.Quote.ID, "error", err)
		e.opts.Metrics.outcome("shift_error")
		e.publishFailure(st.ID, step.Intent, "shift", "shift_error")
		st.Step = Terminal{Failed: true}
		return st, remoteReply(err, msgShiftFailed)
	}

	e.opts.Metrics.outcome("shift_created")
	e.publish(hermes.SubjectSwapCreated, hermes.SwapEvent{
		EventID:        uuid.NewString(),
		ConversationID: st.ID,
		Stage:          "created",
		SourceToken:    step.Intent.SourceToken,
		DestToken:      step.Intent.DestToken,
		Amount:         step.Intent.Amount,
		QuoteID:        step.Quote.ID,
		SettleAmount:   step.Quote.SettleAmount,
		ShiftID:        shift.ID,
		DepositAddress: shift.DepositAddress,
		Timestamp:      e.opts.Now().UTC(),
	})

	st.Step = Terminal{Intent: step.Intent, Quote: step.Quote, Shift: shift}
	return st, msgShift(step.Intent, step.Quote, shift)
}

func (e *Engine) validate(ctx context.Context, source, dest string) error {
	vctx, cancel := context.WithTimeout(ctx, e.opts.CallTimeout)
	defer cancel()
	return e.tokens.Validate(vctx, source, dest)
}

func (e *Engine) validationReply(id string, err error) string {
	var verr *tokens.ValidationError
	if errors.As(err, &verr) {
		e.opts.Metrics.outcome("token_rejected")
		e.logger.Info("token rejected", "conversation_id", id, "token", verr.Token, "side", verr.Side)
		return msgValidation(verr)
	}
	e.opts.Metrics.outcome("coins_error")
	e.logger.Error("coin list unavailable", "conversation_id", id, "error", err)
	return remoteReply(err, msgCoinsUnavailable)
}

func (e *Engine) publishFailure(id string, in intent.SwapIntent, stage, reason string) {
	e.publish(hermes.SubjectSwapFailed, hermes.SwapEvent{
		EventID:        uuid.NewString(),
		ConversationID: id,
		Stage:          stage,
		SourceToken:    in.SourceToken,
		DestToken:      in.DestToken,
		Amount:         in.Amount,
		Reason:         reason,
		Timestamp:      e.opts.Now().UTC(),
	})
}

func (e *Engine) publish(subject string, data any) {
	if e.opts.Publisher == nil {
		return
	}
	if err := e.opts.Publisher.Publish(subject, data); err != nil {
		e.logger.Warn("failed to publish event", "subject", subject, "error", err)
	}
}

// remoteReply hides undecodable responses behind a generic message.
func remoteReply(err error, fallback string) string {
	if errors.Is(err, sideshift.ErrInternalParse) {
		return msgInternal
	}
	return fallback
}

func isStartCommand(text string) bool {
	return strings.EqualFold(text, "/start")
}

func isResetCommand(text string) bool {
	switch strings.ToLower(text) {
	case "/reset", "/refresh", "/cancel", "reset", "start over", "cancel":
		return true
	}
	return false
}

func isHelpCommand(text string) bool {
	switch strings.ToLower(text) {
	case "/help", "help":
		return true
	}
	return false
}
