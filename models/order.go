package models

import "time"

// PaymentMethod selects how the customer settles the order
type PaymentMethod string

const (
	MethodCOD PaymentMethod = "COD"
	MethodUPI PaymentMethod = "UPI"
)

// OrderStatus represents the fulfillment axis of an order
type OrderStatus string

const (
	StatusPlaced         OrderStatus = "PLACED"
	StatusPendingPayment OrderStatus = "PENDING_PAYMENT"
	StatusPreparing      OrderStatus = "PREPARING"
	StatusOnTheWay       OrderStatus = "ON_THE_WAY"
	StatusDelivered      OrderStatus = "DELIVERED"
	StatusCancelled      OrderStatus = "CANCELLED"
)

// PaymentStatus represents the payment axis, independent of fulfillment
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPaid    PaymentStatus = "PAID"
	PaymentFailed  PaymentStatus = "FAILED"
)

type Order struct {
	ID            string        `json:"id" gorm:"primaryKey"`
	CustomerID    uint          `json:"customer_id" gorm:"not null;index"`
	Customer      *User         `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`
	Status        OrderStatus   `json:"status" gorm:"not null;default:'PLACED'"`
	PaymentMethod PaymentMethod `json:"payment_method" gorm:"not null"`
	PaymentStatus PaymentStatus `json:"payment_status" gorm:"not null;default:'PENDING'"`
	TotalPrice    float64       `json:"total_price"`
	// LinkID points at the most recent remote payment link; empty for COD
	LinkID      string      `json:"link_id,omitempty"`
	LinkAttempt int         `json:"link_attempt"` // disambiguates link-creation retries
	DestLat     float64     `json:"dest_lat"`
	DestLng     float64     `json:"dest_lng"`
	Items       []OrderItem `json:"items,omitempty" gorm:"foreignKey:OrderID"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

type OrderItem struct {
	ID       uint    `json:"id" gorm:"primaryKey"`
	OrderID  string  `json:"order_id" gorm:"not null;index"`
	Name     string  `json:"name" gorm:"not null"` // snapshot name at time of order
	Price    float64 `json:"price" gorm:"not null"`
	Quantity int     `json:"quantity" gorm:"not null"`
}
