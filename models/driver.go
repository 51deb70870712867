package models

import "time"

// DeliveryStatus mirrors the fulfillment axis for the courier record,
// but is owned by the delivery simulator
type DeliveryStatus string

const (
	DeliveryPreparing DeliveryStatus = "PREPARING"
	DeliveryOnTheWay  DeliveryStatus = "ON_THE_WAY"
	DeliveryDelivered DeliveryStatus = "DELIVERED"
)

// Driver is the synthetic courier created alongside each order.
// Position is mutated only by the simulator; destination is copied
// from the order at creation and never changes.
type Driver struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	OrderID   string         `json:"order_id" gorm:"not null;index"`
	Lat       float64        `json:"lat"`
	Lng       float64        `json:"lng"`
	DestLat   float64        `json:"dest_lat"`
	DestLng   float64        `json:"dest_lng"`
	Status    DeliveryStatus `json:"status" gorm:"not null;default:'PREPARING'"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
