package controllers

import (
	"strings"

	"github.com/shashiranjanraj/zepto/app/repositories"
	"github.com/shashiranjanraj/zepto/app/services"
	"github.com/shashiranjanraj/zepto/pkg/ctx"
)

type ProductController struct {
	catalog *services.CatalogService
}

func NewProductController(catalog *services.CatalogService) *ProductController {
	return &ProductController{catalog: catalog}
}

// Index lists available products.
//
//	GET /api/products?search=&category=&minPrice=&maxPrice=&page=&limit=&sortBy=&order=
func (pc *ProductController) Index(c *ctx.Context) {
	f := repositories.ProductFilter{
		Search:   c.Query("search"),
		Category: c.Query("category"),
		SortBy:   c.Query("sortBy"),
		Desc:     !strings.EqualFold(c.Query("order"), "asc"),
		Page:     c.IntQuery("page", 1),
		Limit:    c.IntQuery("limit", 20),
	}
	if v, ok := c.FloatQuery("minPrice"); ok {
		f.MinPrice = &v
	}
	if v, ok := c.FloatQuery("maxPrice"); ok {
		f.MaxPrice = &v
	}

	items, page, err := pc.catalog.List(c.Context(), f)
	if err != nil {
		c.Fail(err)
		return
	}
	c.List(items, len(items), page)
}

func (pc *ProductController) Categories(c *ctx.Context) {
	cats, err := pc.catalog.Categories(c.Context())
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(cats)
}

func (pc *ProductController) Show(c *ctx.Context) {
	p, err := pc.catalog.Get(c.Context(), c.Param("id"))
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(p)
}
