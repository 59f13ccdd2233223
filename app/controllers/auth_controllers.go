package controllers

import (
	"github.com/shashiranjanraj/zepto/app/services"
	"github.com/shashiranjanraj/zepto/pkg/ctx"
)

type AuthController struct {
	service *services.AuthService
}

func NewAuthController(service *services.AuthService) *AuthController {
	return &AuthController{service: service}
}

func (ac *AuthController) Register(c *ctx.Context) {
	var in services.RegisterInput
	if !c.BindJSON(&in) {
		return
	}
	s, err := ac.service.Register(c.Context(), in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Created(s, "Registration successful")
}

func (ac *AuthController) Login(c *ctx.Context) {
	var in services.LoginInput
	if !c.BindJSON(&in) {
		return
	}
	s, err := ac.service.Login(c.Context(), in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Message("Login successful", s)
}

func (ac *AuthController) Me(c *ctx.Context) {
	u, err := ac.service.Me(c.Context(), c.Actor())
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(u)
}
