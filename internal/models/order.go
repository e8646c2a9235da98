package models

import "encoding/json"

// Order is a customer purchase record from the orders snapshot. Orders are
// immutable once loaded; a reload replaces the whole set.
type Order struct {
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	Phone       string      `json:"phone"`
	IP          string      `json:"ip"`
	OrderDate   string      `json:"order_date"`
	TotalAmount json.Number `json:"total_amount"`
	Package     string      `json:"package"`
}
