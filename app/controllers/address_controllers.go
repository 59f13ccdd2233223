package controllers

import (
	"github.com/shashiranjanraj/zepto/app/services"
	"github.com/shashiranjanraj/zepto/pkg/ctx"
)

type AddressController struct {
	zone *services.DeliveryZone
}

func NewAddressController(zone *services.DeliveryZone) *AddressController {
	return &AddressController{zone: zone}
}

type pincodeInput struct {
	Pincode string `json:"pincode" validate:"required,digits=6"`
}

func (ac *AddressController) ValidatePincode(c *ctx.Context) {
	var in pincodeInput
	if !c.BindJSON(&in) {
		return
	}
	c.Success(ac.zone.Check(in.Pincode))
}
