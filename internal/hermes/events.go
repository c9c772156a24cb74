package hermes

import "time"

const (
	SubjectSwapQuoted        = "lazyswap.swap.quoted"
	SubjectSwapCreated       = "lazyswap.swap.created"
	SubjectSwapFailed        = "lazyswap.swap.failed"
	SubjectConversationReset = "lazyswap.conversation.reset"
	SubjectResetRequested    = "lazyswap.conversation.reset.requested"
	SubjectRegistered        = "lazyswap.agent.registered"
)

// SwapEvent describes one step of a swap attempt. Fields that do not apply
// to the stage are left empty.
type SwapEvent struct {
	EventID        string    `json:"event_id"`
	ConversationID string    `json:"conversation_id"`
	Stage          string    `json:"stage"`
	SourceToken    string    `json:"source_token,omitempty"`
	DestToken      string    `json:"dest_token,omitempty"`
	Amount         string    `json:"amount,omitempty"`
	QuoteID        string    `json:"quote_id,omitempty"`
	SettleAmount   string    `json:"settle_amount,omitempty"`
	ShiftID        string    `json:"shift_id,omitempty"`
	DepositAddress string    `json:"deposit_address,omitempty"`
	Reason         string    `json:"reason,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// ResetEvent is published when a conversation is forced back to idle.
type ResetEvent struct {
	EventID        string    `json:"event_id"`
	ConversationID string    `json:"conversation_id"`
	Generation     uint64    `json:"generation"`
	Timestamp      time.Time `json:"timestamp"`
}

// ResetRequest asks a running instance to reset a conversation.
type ResetRequest struct {
	ConversationID string `json:"conversation_id"`
}
