package services

import (
	"fmt"
	"math"
	"time"

	"github.com/shashiranjanraj/zepto/config"
)

// DeliveryZone knows which pincodes are served, what delivery costs and
// how long it takes.
type DeliveryZone struct {
	pincodes  map[string]struct{}
	fee       float64
	freeAbove float64
	eta       time.Duration
}

func NewDeliveryZone(pincodes []string, fee, freeAbove float64, eta time.Duration) *DeliveryZone {
	set := make(map[string]struct{}, len(pincodes))
	for _, p := range pincodes {
		set[p] = struct{}{}
	}
	return &DeliveryZone{pincodes: set, fee: fee, freeAbove: freeAbove, eta: eta}
}

// DeliveryZoneFromConfig reads SERVICEABLE_PINCODES, DELIVERY_FEE,
// FREE_DELIVERY_ABOVE and DELIVERY_ETA_MINUTES.
func DeliveryZoneFromConfig() *DeliveryZone {
	return NewDeliveryZone(config.ServiceablePincodes(), config.DeliveryFee(), config.FreeDeliveryAbove(), config.DeliveryETA())
}

func (z *DeliveryZone) Serviceable(pincode string) bool {
	_, ok := z.pincodes[pincode]
	return ok
}

// Fee is charged unless the subtotal is above the free-delivery threshold.
func (z *DeliveryZone) Fee(subtotal float64) float64 {
	if subtotal > z.freeAbove {
		return 0
	}
	return z.fee
}

func (z *DeliveryZone) ETA() time.Duration { return z.eta }

// PincodeCheck answers the storefront's serviceability probe.
type PincodeCheck struct {
	Pincode     string `json:"pincode"`
	Serviceable bool   `json:"serviceable"`
	Message     string `json:"message"`
}

func (z *DeliveryZone) Check(pincode string) PincodeCheck {
	if z.Serviceable(pincode) {
		return PincodeCheck{Pincode: pincode, Serviceable: true, Message: fmt.Sprintf("Great! We deliver to %s", pincode)}
	}
	return PincodeCheck{Pincode: pincode, Message: fmt.Sprintf("Sorry, we don't deliver to %s yet.", pincode)}
}

func roundMoney(v float64) float64 { return math.Round(v*100) / 100 }
