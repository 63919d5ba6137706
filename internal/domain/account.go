package domain

import "time"

// Account is one shop owner's tenant scope.
type Account struct {
	ID         int32     `json:"id"`
	ExternalID int64     `json:"external_id"`
	FullName   string    `json:"full_name"`
	ShopName   string    `json:"shop_name"`
	Address    string    `json:"address"`
	Phone      string    `json:"phone"`
	IsActive   bool      `json:"is_active"`
	CreatedOn  time.Time `json:"created_on"`
}
