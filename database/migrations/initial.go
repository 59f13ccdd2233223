package migrations

import (
	"github.com/shashiranjanraj/zepto/app/models"
	"github.com/shashiranjanraj/zepto/pkg/migration"
	"gorm.io/gorm"
)

func init() {
	migration.Register("20260301000000_create_users_table", createUsers{})
	migration.Register("20260301000001_create_products_table", createProducts{})
	migration.Register("20260301000002_create_orders_tables", createOrders{})
}

type createUsers struct{}

func (createUsers) Up(db *gorm.DB) error   { return db.AutoMigrate(&models.User{}) }
func (createUsers) Down(db *gorm.DB) error { return db.Migrator().DropTable(&models.User{}) }

type createProducts struct{}

func (createProducts) Up(db *gorm.DB) error   { return db.AutoMigrate(&models.Product{}) }
func (createProducts) Down(db *gorm.DB) error { return db.Migrator().DropTable(&models.Product{}) }

// Orders own their line items and status history; children go first on
// the way down.
type createOrders struct{}

func (createOrders) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.Order{}, &models.OrderItem{}, &models.StatusEvent{})
}

func (createOrders) Down(db *gorm.DB) error {
	return db.Migrator().DropTable(&models.StatusEvent{}, &models.OrderItem{}, &models.Order{})
}
