package sideshift

import "time"

// Coin is one entry of GET /coins.
type Coin struct {
	Coin         string                  `json:"coin"`
	Name         string                  `json:"name"`
	Networks     []string                `json:"networks"`
	HasMemo      bool                    `json:"hasMemo"`
	FixedOnly    bool                    `json:"fixedOnly"`
	VariableOnly bool                    `json:"variableOnly"`
	TokenDetails map[string]TokenDetails `json:"tokenDetails,omitempty"`
}

type TokenDetails struct {
	ContractAddress string `json:"contractAddress"`
	Decimals        int    `json:"decimals"`
}

type Permissions struct {
	CreateShift bool     `json:"createShift"`
	Reasons     []string `json:"reasons,omitempty"`
}

type QuoteRequest struct {
	DepositCoin    string `json:"depositCoin"`
	DepositNetwork string `json:"depositNetwork,omitempty"`
	SettleCoin     string `json:"settleCoin"`
	SettleNetwork  string `json:"settleNetwork,omitempty"`
	DepositAmount  string `json:"depositAmount,omitempty"`
	SettleAmount   string `json:"settleAmount,omitempty"`
	AffiliateID    string `json:"affiliateId"`
}

// Quote is a fixed-rate price commitment. It can back at most one shift and
// only until ExpiresAt.
type Quote struct {
	ID             string    `json:"id"`
	CreatedAt      time.Time `json:"createdAt"`
	DepositCoin    string    `json:"depositCoin"`
	DepositNetwork string    `json:"depositNetwork"`
	SettleCoin     string    `json:"settleCoin"`
	SettleNetwork  string    `json:"settleNetwork"`
	DepositAmount  string    `json:"depositAmount"`
	SettleAmount   string    `json:"settleAmount"`
	Rate           string    `json:"rate"`
	ExpiresAt      time.Time `json:"expiresAt"`
	AffiliateID    string    `json:"affiliateId"`
}

// Expired reports whether the quote can no longer back a shift at now.
func (q Quote) Expired(now time.Time) bool {
	return !q.ExpiresAt.IsZero() && now.After(q.ExpiresAt)
}

type FixedShiftRequest struct {
	QuoteID       string `json:"quoteId"`
	SettleAddress string `json:"settleAddress"`
	SettleMemo    string `json:"settleMemo,omitempty"`
	RefundAddress string `json:"refundAddress,omitempty"`
	AffiliateID   string `json:"affiliateId"`
}

// Shift is an order created from a quote, or fetched by id.
type Shift struct {
	ID                   string    `json:"id"`
	CreatedAt            time.Time `json:"createdAt"`
	Type                 string    `json:"type"`
	Status               string    `json:"status"`
	DepositCoin          string    `json:"depositCoin"`
	DepositNetwork       string    `json:"depositNetwork"`
	SettleCoin           string    `json:"settleCoin"`
	SettleNetwork        string    `json:"settleNetwork"`
	DepositAddress       string    `json:"depositAddress"`
	DepositMemo          string    `json:"depositMemo,omitempty"`
	DepositAmount        string    `json:"depositAmount,omitempty"`
	DepositMin           string    `json:"depositMin,omitempty"`
	DepositMax           string    `json:"depositMax,omitempty"`
	SettleAddress        string    `json:"settleAddress"`
	SettleAmount         string    `json:"settleAmount,omitempty"`
	SettleCoinNetworkFee string    `json:"settleCoinNetworkFee,omitempty"`
	NetworkFeeUSD        string    `json:"networkFeeUsd,omitempty"`
	ExpiresAt            time.Time `json:"expiresAt"`
	AverageShiftSeconds  string    `json:"averageShiftSeconds,omitempty"`
}

// OrderURL is the public tracking page for a shift.
func OrderURL(shiftID string) string {
	return "https://sideshift.ai/orders/" + shiftID
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}
