package controllers

import (
	"github.com/shashiranjanraj/zepto/app/repositories"
	"github.com/shashiranjanraj/zepto/app/services"
	"github.com/shashiranjanraj/zepto/pkg/ctx"
)

type AdminController struct {
	admin   *services.AdminService
	catalog *services.CatalogService
}

func NewAdminController(admin *services.AdminService, catalog *services.CatalogService) *AdminController {
	return &AdminController{admin: admin, catalog: catalog}
}

func (ac *AdminController) Stats(c *ctx.Context) {
	stats, err := ac.admin.Stats(c.Context())
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(stats)
}

func (ac *AdminController) Users(c *ctx.Context) {
	users, err := ac.admin.Users(c.Context())
	if err != nil {
		c.Fail(err)
		return
	}
	c.List(users, len(users), nil)
}

// Products lists the whole catalog, including unavailable products.
//
//	GET /api/admin/products?search=&category=&status=low_stock
func (ac *AdminController) Products(c *ctx.Context) {
	items, err := ac.catalog.AdminList(c.Context(), repositories.ProductFilter{
		Search:      c.Query("search"),
		Category:    c.Query("category"),
		StockStatus: c.Query("status"),
	})
	if err != nil {
		c.Fail(err)
		return
	}
	c.List(items, len(items), nil)
}

func (ac *AdminController) StoreProduct(c *ctx.Context) {
	var in services.ProductInput
	if !c.BindJSON(&in) {
		return
	}
	p, err := ac.catalog.Create(c.Context(), in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Created(p, "Product created successfully")
}

func (ac *AdminController) UpdateProduct(c *ctx.Context) {
	var in services.ProductUpdate
	if !c.BindJSON(&in) {
		return
	}
	p, err := ac.catalog.Update(c.Context(), c.Param("id"), in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Message("Product updated successfully", p)
}

func (ac *AdminController) AdjustStock(c *ctx.Context) {
	var in services.StockInput
	if !c.BindJSON(&in) {
		return
	}
	p, err := ac.catalog.AdjustStock(c.Context(), c.Param("id"), in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Message("Stock updated successfully", p)
}

func (ac *AdminController) DestroyProduct(c *ctx.Context) {
	if err := ac.catalog.Delete(c.Context(), c.Param("id")); err != nil {
		c.Fail(err)
		return
	}
	c.Message("Product deleted successfully", nil)
}
