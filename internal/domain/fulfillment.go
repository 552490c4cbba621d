package domain

import (
	"fmt"
	"strings"
)

type FulfillmentMethod string

const (
	FulfillmentPickup   FulfillmentMethod = "pickup"
	FulfillmentShipping FulfillmentMethod = "shipping"
)

// Sentinel values the storefront checkout writes into the address fields
// for pickup orders.
const (
	legacyPickupStreet = "Pickup Only"
	legacyPickupCity   = "Pickup Location"
)

type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
}

// Fulfillment is either a pickup at Location or a shipment to Address,
// discriminated by Method.
type Fulfillment struct {
	Method   FulfillmentMethod `json:"method"`
	Location string            `json:"location,omitempty"`
	Address  *Address          `json:"address,omitempty"`
}

func PickupAt(location string) Fulfillment {
	return Fulfillment{Method: FulfillmentPickup, Location: location}
}

func ShipTo(addr Address) Fulfillment {
	return Fulfillment{Method: FulfillmentShipping, Address: &addr}
}

// FulfillmentFromAddress converts the checkout's address form, which marks
// pickup orders with sentinel street or city values.
func FulfillmentFromAddress(addr Address) Fulfillment {
	if strings.EqualFold(strings.TrimSpace(addr.Street), legacyPickupStreet) ||
		strings.EqualFold(strings.TrimSpace(addr.City), legacyPickupCity) {
		return PickupAt(addr.State)
	}
	return ShipTo(addr)
}

func (f Fulfillment) IsPickup() bool {
	return f.Method == FulfillmentPickup
}

func (f Fulfillment) Validate() error {
	switch f.Method {
	case FulfillmentPickup:
		if f.Address != nil {
			return fmt.Errorf("%w: pickup fulfillment must not carry an address", ErrInvalidOrder)
		}
		return nil
	case FulfillmentShipping:
		if f.Address == nil {
			return fmt.Errorf("%w: shipping fulfillment requires an address", ErrInvalidOrder)
		}
		if strings.TrimSpace(f.Address.Street) == "" || strings.TrimSpace(f.Address.City) == "" ||
			strings.TrimSpace(f.Address.Country) == "" {
			return fmt.Errorf("%w: shipping address requires street, city and country", ErrInvalidOrder)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown fulfillment method %q", ErrInvalidOrder, f.Method)
	}
}
