package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment is an immutable record of money received.
type Payment struct {
	ID        int32           `json:"id"`
	AccountID int32           `json:"account_id"`
	RentalID  *int32          `json:"rental_id,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference"`
	PaidOn    time.Time       `json:"paid_on"`
}

type Debt struct {
	ID        int32           `json:"id"`
	AccountID int32           `json:"account_id"`
	RentalID  *int32          `json:"rental_id,omitempty"`
	Customer  Customer        `json:"customer"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedOn time.Time       `json:"created_on"`
}

// IsOpen reports whether anything is still owed on the debt.
func (d *Debt) IsOpen() bool {
	return !IsZeroMoney(d.Amount)
}

type SettlementMode string

const (
	SettlementFull    SettlementMode = "full"
	SettlementPartial SettlementMode = "partial"
	SettlementDefer   SettlementMode = "defer"
)

func (m SettlementMode) IsValid() bool {
	switch m {
	case SettlementFull, SettlementPartial, SettlementDefer:
		return true
	}
	return false
}

// ReturnQuote is what a caller shows the customer after a return is applied:
// the charge for the returned lines and the balance still due on the rental.
type ReturnQuote struct {
	RentalID      int32           `json:"rental_id"`
	Lines         []AppliedReturn `json:"lines"`
	Days          int             `json:"days"`
	Cost          decimal.Decimal `json:"cost"`
	Charged       decimal.Decimal `json:"charged"`
	Paid          decimal.Decimal `json:"paid"`
	OpenDebt      decimal.Decimal `json:"open_debt"`
	Due           decimal.Decimal `json:"due"`
	Status        RentalStatus    `json:"status"`
	FullyReturned bool            `json:"fully_returned"`
}

type SettlementRequest struct {
	Mode   SettlementMode  `json:"mode"`
	Amount decimal.Decimal `json:"amount"`
}

type SettlementResult struct {
	RentalID  int32           `json:"rental_id"`
	Paid      decimal.Decimal `json:"paid"`
	Shortfall decimal.Decimal `json:"shortfall"`
	Payment   *Payment        `json:"payment,omitempty"`
	Debt      *Debt           `json:"debt,omitempty"`
	Status    RentalStatus    `json:"status"`
	Closed    bool            `json:"closed"`
}

// LedgerSummary is the per-account roll-up used by reports.
type LedgerSummary struct {
	AccountID     int32           `json:"account_id"`
	ActiveRentals int32           `json:"active_rentals"`
	Valuation     decimal.Decimal `json:"valuation"`
	OpenDebt      decimal.Decimal `json:"open_debt"`
}
