package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Tool struct {
	ID         int32           `json:"id"`
	AccountID  int32           `json:"account_id"`
	Name       string          `json:"name"`
	Quantity   int32           `json:"quantity"`
	DailyPrice decimal.Decimal `json:"daily_price"`
	CreatedOn  time.Time       `json:"created_on"`
	DeletedOn  *time.Time      `json:"deleted_on,omitempty"`
}

func (t *Tool) IsAvailable() bool {
	return t.DeletedOn == nil && t.Quantity > 0
}

// ToolUpdate carries the fields an owner may edit; nil fields are left alone.
type ToolUpdate struct {
	Name       *string          `json:"name,omitempty"`
	Quantity   *int32           `json:"quantity,omitempty"`
	DailyPrice *decimal.Decimal `json:"daily_price,omitempty"`
}
