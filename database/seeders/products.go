package seeders

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shashiranjanraj/zepto/app/models"
	"github.com/shashiranjanraj/zepto/app/repositories"
	"github.com/shashiranjanraj/zepto/pkg/logger"
)

//go:embed products.json
var productsJSON []byte

func init() {
	Register("products", SeedProducts)
}

// Catalog returns the demo grocery catalog.
func Catalog() ([]models.Product, error) {
	var products []models.Product
	if err := json.Unmarshal(productsJSON, &products); err != nil {
		return nil, fmt.Errorf("seeders: decode catalog: %w", err)
	}
	return products, nil
}

// SeedProducts loads the demo catalog into an empty store. A store that
// already has products is left alone.
func SeedProducts(ctx context.Context, store *repositories.Store) error {
	stats, err := store.Products.Stats(ctx)
	if err != nil {
		return err
	}
	if stats.Products > 0 {
		logger.Info("seeders: catalog already populated", "products", stats.Products)
		return nil
	}

	catalog, err := Catalog()
	if err != nil {
		return err
	}
	return store.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		for i := range catalog {
			p := &catalog[i]
			p.ID = uuid.NewString()
			p.IsAvailable = true
			p.ApplyDefaults()
			if err := store.Products.Create(ctx, p); err != nil {
				return fmt.Errorf("create %s: %w", p.Name, err)
			}
		}
		return nil
	})
}
