package models

import (
	"slices"
	"time"
)

// OrderStatus is the fulfilment state of an order.
type OrderStatus string

const (
	StatusConfirmed      OrderStatus = "Confirmed"
	StatusPacked         OrderStatus = "Packed"
	StatusOutForDelivery OrderStatus = "Out for Delivery"
	StatusDelivered      OrderStatus = "Delivered"
	StatusCancelled      OrderStatus = "Cancelled"
)

// OrderStatuses lists every accepted status.
var OrderStatuses = []OrderStatus{
	StatusConfirmed, StatusPacked, StatusOutForDelivery, StatusDelivered, StatusCancelled,
}

func (s OrderStatus) Valid() bool { return slices.Contains(OrderStatuses, s) }

// Terminal reports whether the status normally ends the order's life.
func (s OrderStatus) Terminal() bool { return s == StatusDelivered || s == StatusCancelled }

// PaymentMethod is how the customer pays.
type PaymentMethod string

const (
	PayRazorpay PaymentMethod = "Razorpay"
	PayCOD      PaymentMethod = "COD"
	PayCard     PaymentMethod = "Card"
	PayUPI      PaymentMethod = "UPI"
)

var PaymentMethods = []PaymentMethod{PayRazorpay, PayCOD, PayCard, PayUPI}

func (m PaymentMethod) Valid() bool { return slices.Contains(PaymentMethods, m) }

// PaymentStatus is the settlement state of an order's payment.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "Pending"
	PaymentPaid    PaymentStatus = "Paid"
	PaymentFailed  PaymentStatus = "Failed"
)

// Address is where an order is delivered.
type Address struct {
	Name        string `gorm:"size:255" json:"name"        bson:"name"        validate:"required"`
	Phone       string `gorm:"size:20"  json:"phone"       bson:"phone"       validate:"required"`
	AddressLine string `gorm:"size:512" json:"addressLine" bson:"addressLine" validate:"required"`
	City        string `gorm:"size:100" json:"city"        bson:"city"        validate:"required"`
	State       string `gorm:"size:100" json:"state"       bson:"state"       validate:"required"`
	Pincode     string `gorm:"size:10"  json:"pincode"     bson:"pincode"     validate:"required,digits=6"`
}

// OrderItem snapshots a product at order time. Later catalog edits never
// change it.
type OrderItem struct {
	ID        uint    `gorm:"primaryKey;autoIncrement" json:"-"        bson:"-"`
	OrderRef  string  `gorm:"size:36;index;not null"   json:"-"        bson:"-"`
	ProductID string  `gorm:"size:36;not null"         json:"product"  bson:"product"`
	Name      string  `gorm:"size:255;not null"        json:"name"     bson:"name"`
	Image     string  `gorm:"size:512"                 json:"image"    bson:"image"`
	Price     float64 `gorm:"not null"                 json:"price"    bson:"price"`
	Quantity  int     `gorm:"not null"                 json:"quantity" bson:"quantity"`
}

func (OrderItem) TableName() string { return "order_items" }

// LineTotal is price times quantity.
func (i OrderItem) LineTotal() float64 { return i.Price * float64(i.Quantity) }

// StatusEvent is one entry of an order's append-only status history.
type StatusEvent struct {
	ID        uint        `gorm:"primaryKey;autoIncrement" json:"-"         bson:"-"`
	OrderRef  string      `gorm:"size:36;index;not null"   json:"-"         bson:"-"`
	Status    OrderStatus `gorm:"size:32;not null"         json:"status"    bson:"status"`
	Timestamp time.Time   `gorm:"column:changed_at;not null" json:"timestamp" bson:"timestamp"`
}

func (StatusEvent) TableName() string { return "order_status_events" }

// Order is a placed order. OrderID is the human-facing ZPT reference; ID
// is the storage key.
type Order struct {
	ID              string        `gorm:"primaryKey;size:36"                         json:"id"              bson:"_id"`
	OrderID         string        `gorm:"size:40;uniqueIndex;not null"               json:"orderId"         bson:"orderId"`
	UserID          string        `gorm:"size:36;index;not null"                     json:"userId"          bson:"user"`
	Items           []OrderItem   `gorm:"foreignKey:OrderRef;constraint:OnDelete:CASCADE" json:"items"     bson:"items"`
	Subtotal        float64       `gorm:"not null"                                   json:"subtotal"        bson:"subtotal"`
	DeliveryFee     float64       `gorm:"not null;default:0"                         json:"deliveryFee"     bson:"deliveryFee"`
	TotalAmount     float64       `gorm:"not null"                                   json:"totalAmount"     bson:"totalAmount"`
	DeliveryAddress Address       `gorm:"embedded;embeddedPrefix:delivery_"          json:"deliveryAddress" bson:"deliveryAddress"`
	PaymentMethod   PaymentMethod `gorm:"size:20;not null"                           json:"paymentMethod"   bson:"paymentMethod"`
	PaymentStatus   PaymentStatus `gorm:"size:20;not null"                           json:"paymentStatus"   bson:"paymentStatus"`
	PaymentID       string        `gorm:"size:100"                                   json:"paymentId,omitempty"      bson:"paymentId,omitempty"`
	GatewayOrderID  string        `gorm:"size:100"                                   json:"gatewayOrderId,omitempty" bson:"gatewayOrderId,omitempty"`
	OrderStatus     OrderStatus   `gorm:"size:32;not null;index"                     json:"orderStatus"     bson:"orderStatus"`
	DeliveryTime    time.Time     `gorm:"not null"                                   json:"deliveryTime"    bson:"deliveryTime"`
	StatusHistory   []StatusEvent `gorm:"foreignKey:OrderRef;constraint:OnDelete:CASCADE" json:"statusHistory" bson:"statusHistory"`
	CreatedAt       time.Time     `gorm:"index"                                      json:"createdAt"       bson:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"                                                         bson:"updatedAt"`
}

// Clone returns a deep copy so callers can't alias stored slices.
func (o Order) Clone() Order {
	o.Items = slices.Clone(o.Items)
	o.StatusHistory = slices.Clone(o.StatusHistory)
	return o
}

// OrderView is an order plus the summary of the customer who placed it.
type OrderView struct {
	Order
	User *UserSummary `json:"user,omitempty"`
}
