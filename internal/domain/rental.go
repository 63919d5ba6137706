package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type RentalStatus string

const (
	RentalStatusActive   RentalStatus = "active"
	RentalStatusReturned RentalStatus = "returned"
	RentalStatusClosed   RentalStatus = "closed"
)

// rentalTransitions lists every allowed forward move. Nothing leaves closed.
var rentalTransitions = map[RentalStatus][]RentalStatus{
	RentalStatusActive:   {RentalStatusReturned, RentalStatusClosed},
	RentalStatusReturned: {RentalStatusClosed},
}

func (s RentalStatus) IsValid() bool {
	switch s {
	case RentalStatusActive, RentalStatusReturned, RentalStatusClosed:
		return true
	}
	return false
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s RentalStatus) CanTransitionTo(next RentalStatus) bool {
	for _, allowed := range rentalTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Customer identifies the person a rental or debt belongs to.
type Customer struct {
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone"`
}

type Rental struct {
	ID           int32           `json:"id"`
	AccountID    int32           `json:"account_id"`
	Customer     Customer        `json:"customer"`
	Status       RentalStatus    `json:"status"`
	StartedAt    time.Time       `json:"started_at"`
	ChargedTotal decimal.Decimal `json:"charged_total"`
	Items        []RentalItem    `json:"items,omitempty"`
}

// Outstanding sums unreturned units over the loaded items.
func (r *Rental) Outstanding() int32 {
	var total int32
	for _, item := range r.Items {
		total += item.Outstanding()
	}
	return total
}

type RentalItem struct {
	ID               int32           `json:"id"`
	RentalID         int32           `json:"rental_id"`
	ToolID           int32           `json:"tool_id"`
	ToolName         string          `json:"tool_name,omitempty"`
	Quantity         int32           `json:"quantity"`
	ReturnedQuantity int32           `json:"returned_quantity"`
	DailyPrice       decimal.Decimal `json:"daily_price"`
}

func (i RentalItem) Outstanding() int32 {
	if i.ReturnedQuantity >= i.Quantity {
		return 0
	}
	return i.Quantity - i.ReturnedQuantity
}

// RentalLine is one requested line of a new rental. A nil DailyPrice books
// the tool at its current price.
type RentalLine struct {
	ToolID     int32            `json:"tool_id"`
	Quantity   int32            `json:"quantity"`
	DailyPrice *decimal.Decimal `json:"daily_price,omitempty"`
}

// ReturnLine asks for Quantity units of a rental item to come back.
type ReturnLine struct {
	ItemID   int32 `json:"item_id"`
	Quantity int32 `json:"quantity"`
}

// AppliedReturn is a return line after clamping, with its charge.
type AppliedReturn struct {
	ItemID     int32           `json:"item_id"`
	ToolID     int32           `json:"tool_id"`
	Quantity   int32           `json:"quantity"`
	DailyPrice decimal.Decimal `json:"daily_price"`
	Cost       decimal.Decimal `json:"cost"`
}
