package conversation

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/MikeSquared-Agency/lazyswap/internal/intent"
	"github.com/MikeSquared-Agency/lazyswap/internal/sideshift"
)

type Kind string

const (
	KindIdle            Kind = "idle"
	KindAwaitingAddress Kind = "awaiting_address"
	KindQuoteReady      Kind = "quote_ready"
	KindTerminal        Kind = "terminal"
)

// Step is the position of a conversation in the swap flow. Each variant
// carries exactly the data that is valid at that position.
type Step interface {
	Kind() Kind
	isStep()
}

type Idle struct{}

type AwaitingAddress struct {
	Intent intent.SwapIntent
}

// QuoteReady holds a quote that has not been turned into a shift yet.
type QuoteReady struct {
	Intent intent.SwapIntent
	Quote  sideshift.Quote
}

// Terminal ends a swap attempt. A failed attempt keeps nothing.
type Terminal struct {
	Intent intent.SwapIntent
	Quote  sideshift.Quote
	Shift  sideshift.Shift
	Failed bool
}

func (Idle) Kind() Kind            { return KindIdle }
func (AwaitingAddress) Kind() Kind { return KindAwaitingAddress }
func (QuoteReady) Kind() Kind      { return KindQuoteReady }
func (Terminal) Kind() Kind        { return KindTerminal }

func (Idle) isStep()            {}
func (AwaitingAddress) isStep() {}
func (QuoteReady) isStep()      {}
func (Terminal) isStep()        {}

type Turn struct {
	Role string    `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// State is everything remembered about one conversation.
type State struct {
	ID         string
	Step       Step
	History    []Turn
	Generation uint64
	UpdatedAt  time.Time
}

func NewState(id string) State {
	return State{ID: id, Step: Idle{}}
}

// Intent returns the swap being worked on, if any.
func (s State) Intent() (intent.SwapIntent, bool) {
	switch st := s.Step.(type) {
	case AwaitingAddress:
		return st.Intent, true
	case QuoteReady:
		return st.Intent, true
	case Terminal:
		if !st.Failed {
			return st.Intent, true
		}
	}
	return intent.SwapIntent{}, false
}

func (s State) Quote() (sideshift.Quote, bool) {
	switch st := s.Step.(type) {
	case QuoteReady:
		return st.Quote, true
	case Terminal:
		if !st.Failed {
			return st.Quote, true
		}
	}
	return sideshift.Quote{}, false
}

func (s State) Shift() (sideshift.Shift, bool) {
	if st, ok := s.Step.(Terminal); ok && !st.Failed {
		return st.Shift, true
	}
	return sideshift.Shift{}, false
}

func (s *State) record(role, text string, at time.Time) {
	s.History = append(s.History, Turn{Role: role, Text: text, At: at})
}

type stateRecord struct {
	ID         string             `json:"id"`
	Step       Kind               `json:"step"`
	Failed     bool               `json:"failed,omitempty"`
	Intent     *intent.SwapIntent `json:"intent,omitempty"`
	Quote      *sideshift.Quote   `json:"quote,omitempty"`
	Shift      *sideshift.Shift   `json:"shift,omitempty"`
	History    []Turn             `json:"history"`
	Generation uint64             `json:"generation"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

func (s State) MarshalJSON() ([]byte, error) {
	step := s.Step
	if step == nil {
		step = Idle{}
	}
	rec := stateRecord{
		ID:         s.ID,
		Step:       step.Kind(),
		History:    s.History,
		Generation: s.Generation,
		UpdatedAt:  s.UpdatedAt,
	}
	if rec.History == nil {
		rec.History = []Turn{}
	}
	if t, ok := step.(Terminal); ok {
		rec.Failed = t.Failed
	}
	if in, ok := s.Intent(); ok {
		rec.Intent = &in
	}
	if q, ok := s.Quote(); ok {
		rec.Quote = &q
	}
	if sh, ok := s.Shift(); ok {
		rec.Shift = &sh
	}
	return json.Marshal(rec)
}

func (s *State) UnmarshalJSON(data []byte) error {
	var rec stateRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	s.ID = rec.ID
	s.History = rec.History
	s.Generation = rec.Generation
	s.UpdatedAt = rec.UpdatedAt

	switch rec.Step {
	case KindIdle, "":
		s.Step = Idle{}
	case KindAwaitingAddress:
		if rec.Intent == nil {
			return fmt.Errorf("step %s without intent", rec.Step)
		}
		s.Step = AwaitingAddress{Intent: *rec.Intent}
	case KindQuoteReady:
		if rec.Intent == nil || rec.Quote == nil {
			return fmt.Errorf("step %s without intent and quote", rec.Step)
		}
		s.Step = QuoteReady{Intent: *rec.Intent, Quote: *rec.Quote}
	case KindTerminal:
		if rec.Failed {
			s.Step = Terminal{Failed: true}
			break
		}
		if rec.Intent == nil || rec.Quote == nil || rec.Shift == nil {
			return fmt.Errorf("step %s without intent, quote and shift", rec.Step)
		}
		s.Step = Terminal{Intent: *rec.Intent, Quote: *rec.Quote, Shift: *rec.Shift}
	default:
		return fmt.Errorf("unknown step %q", rec.Step)
	}
	return nil
}
