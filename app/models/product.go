package models

import (
	"encoding/json"
	"time"
)

// Category values accepted by the catalog.
const (
	CategoryDairy      = "Dairy"
	CategoryVegetables = "Vegetables"
	CategoryFruits     = "Fruits"
	CategoryGrains     = "Grains"
	CategorySnacks     = "Snacks"
	CategoryBeverages  = "Beverages"
	CategoryBakery     = "Bakery"
	CategorySpices     = "Spices"
)

// Categories lists every category in display order.
var Categories = []string{
	CategoryDairy, CategoryVegetables, CategoryFruits, CategoryGrains,
	CategorySnacks, CategoryBeverages, CategoryBakery, CategorySpices,
}

// Units lists the accepted selling units.
var Units = []string{"kg", "g", "l", "ml", "piece", "dozen", "pack"}

// Stock status labels derived from stock and the low-stock threshold.
const (
	StockOut = "out_of_stock"
	StockLow = "low_stock"
	StockIn  = "in_stock"
)

const DefaultLowStockThreshold = 5

// Product is a catalog entry. Stock is only ever lowered through the
// repository's conditional decrement, never by read-modify-write.
type Product struct {
	ID                string    `gorm:"primaryKey;size:36"                json:"id"                bson:"_id"`
	Name              string    `gorm:"size:255;not null;index"           json:"name"              bson:"name"`
	Description       string    `gorm:"type:text"                         json:"description"       bson:"description"`
	Price             float64   `gorm:"not null;default:0"                json:"price"             bson:"price"`
	Image             string    `gorm:"size:512"                          json:"image"             bson:"image"`
	Category          string    `gorm:"size:50;not null;index"            json:"category"          bson:"category"`
	Stock             int       `gorm:"not null;default:0"                json:"stock"             bson:"stock"`
	LowStockThreshold int       `gorm:"not null"                          json:"lowStockThreshold" bson:"lowStockThreshold"`
	Unit              string    `gorm:"size:20;not null;default:'piece'"  json:"unit"              bson:"unit"`
	Discount          float64   `gorm:"not null;default:0"                json:"discount"          bson:"discount"`
	IsAvailable       bool      `gorm:"not null"                          json:"isAvailable"       bson:"isAvailable"`
	CreatedAt         time.Time `json:"createdAt"                                                   bson:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"                                                   bson:"updatedAt"`
}

// StockStatus classifies the current stock level.
func (p Product) StockStatus() string {
	switch {
	case p.Stock <= 0:
		return StockOut
	case p.Stock <= p.LowStockThreshold:
		return StockLow
	default:
		return StockIn
	}
}

// MarshalJSON adds the derived stockStatus field.
func (p Product) MarshalJSON() ([]byte, error) {
	type plain Product
	return json.Marshal(struct {
		plain
		StockStatus string `json:"stockStatus"`
	}{plain(p), p.StockStatus()})
}

// ApplyDefaults fills the values the catalog assumes when a field is left
// blank on create.
func (p *Product) ApplyDefaults() {
	if p.Unit == "" {
		p.Unit = "piece"
	}
	if p.LowStockThreshold == 0 {
		p.LowStockThreshold = DefaultLowStockThreshold
	}
}
