package model

import "time"

// OrderStatus represents the status of a store order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusOnHold     OrderStatus = "on-hold"
	OrderStatusAutoDraft  OrderStatus = "auto-draft"
	OrderStatusFailed     OrderStatus = "failed"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
)

// String returns the string representation of the status.
func (s OrderStatus) String() string {
	return string(s)
}

// Order is a read-only view of a store order. The payment core fetches
// orders through OrderRepositoryPort and never mutates them.
type Order struct {
	ID            int64       `gorm:"primaryKey" json:"id"`
	Number        string      `json:"number"`
	OrderKey      string      `json:"order_key"`
	Status        OrderStatus `json:"status"`
	Currency      string      `json:"currency"`
	Total         int64       `json:"total"`        // smallest currency unit
	RefundTotal   int64       `json:"refund_total"` // smallest currency unit
	PaymentMethod string      `json:"payment_method"`
	DatePaid      *time.Time  `json:"date_paid"`
	BillingEmail  string      `json:"billing_email"`
	BillingName   string      `json:"billing_name"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// IsPaid returns true if the order has a recorded payment date.
func (o *Order) IsPaid() bool {
	return o.DatePaid != nil
}
