package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type CashSessionStatus string

const (
	CashSessionOpen   CashSessionStatus = "OPEN"
	CashSessionClosed CashSessionStatus = "CLOSED"
)

type CashRegisterSession struct {
	ID                     string              `json:"id"`
	OpeningBalance         decimal.Decimal     `json:"openingBalance"`
	Status                 CashSessionStatus   `json:"status"`
	OpenedAt               time.Time           `json:"openedAt"`
	ClosedAt               *time.Time          `json:"closedAt,omitempty"`
	ClosingBalanceInformed decimal.NullDecimal `json:"closingBalanceInformed"`
	CalculatedSales        decimal.NullDecimal `json:"calculatedSales"`
	ExpectedInCash         decimal.NullDecimal `json:"expectedInCash"`
	DifferenceCash         decimal.NullDecimal `json:"differenceCash"`
	NotesOpening           *string             `json:"notesOpening,omitempty"`
	NotesClosing           *string             `json:"notesClosing,omitempty"`
}

func (s CashRegisterSession) IsOpen() bool {
	return s.Status == CashSessionOpen
}

func (s CashRegisterSession) Clone() CashRegisterSession {
	c := s
	if s.ClosedAt != nil {
		t := *s.ClosedAt
		c.ClosedAt = &t
	}
	c.NotesOpening = cloneString(s.NotesOpening)
	c.NotesClosing = cloneString(s.NotesClosing)
	return c
}

type AdjustmentType string

const (
	AdjustmentAdd    AdjustmentType = "ADD"
	AdjustmentRemove AdjustmentType = "REMOVE"
)

func (t AdjustmentType) IsValid() bool {
	return t == AdjustmentAdd || t == AdjustmentRemove
}

// CashAdjustment is an append-only manual movement of cash in or out of a session.
type CashAdjustment struct {
	ID         string          `json:"id"`
	SessionID  string          `json:"cashRegisterSessionId"`
	Type       AdjustmentType  `json:"adjustmentType"`
	Amount     decimal.Decimal `json:"amount"`
	Reason     string          `json:"reason"`
	AdjustedAt time.Time       `json:"adjustedAt"`
}
