package services

import (
	"context"

	"github.com/shashiranjanraj/zepto/app/models"
	"github.com/shashiranjanraj/zepto/app/repositories"
	"github.com/shashiranjanraj/zepto/pkg/apperr"
	"golang.org/x/sync/errgroup"
)

// DashboardStats are the counters on the admin landing page.
type DashboardStats struct {
	repositories.CatalogStats
	Orders int64 `json:"totalOrders"`
	Users  int64 `json:"totalUsers"`
}

type AdminService struct {
	store *repositories.Store
}

func NewAdminService(store *repositories.Store) *AdminService {
	return &AdminService{store: store}
}

// Stats gathers the catalog, order and user counters concurrently.
func (s *AdminService) Stats(ctx context.Context) (DashboardStats, error) {
	var out DashboardStats
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.CatalogStats, err = s.store.Products.Stats(ctx)
		return err
	})
	g.Go(func() (err error) {
		out.Orders, err = s.store.Orders.Count(ctx)
		return err
	})
	g.Go(func() (err error) {
		out.Users, err = s.store.Users.Count(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return DashboardStats{}, apperr.Internal(err, "admin: stats")
	}
	return out, nil
}

// Users lists every account, newest first.
func (s *AdminService) Users(ctx context.Context) ([]models.User, error) {
	users, err := s.store.Users.List(ctx)
	if err != nil {
		return nil, apperr.Internal(err, "admin: list users")
	}
	if users == nil {
		users = []models.User{}
	}
	return users, nil
}
