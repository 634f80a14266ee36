package models

import (
	"github.com/shopspring/decimal"
)

func init() {
	// The coupon, order and payment services all speak plain JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

type SelectedOption struct {
	Title string          `json:"title"`
	Price decimal.Decimal `json:"price"`
}

type ConfigurationOption struct {
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	IsSelected bool            `json:"isSelected,omitempty"`
}

// SelectedConfiguration is one configuration group with the option picked for it.
type SelectedConfiguration struct {
	Title          string              `json:"title"`
	SelectedOption ConfigurationOption `json:"selectedOption"`
}

// ProductConfiguration is a configuration group as offered by the product.
type ProductConfiguration struct {
	Title   string                `json:"title"`
	Options []ConfigurationOption `json:"options"`
}

type CartItem struct {
	Id                     string                  `json:"id"`
	Title                  string                  `json:"title"`
	Sku                    string                  `json:"sku"`
	UnitPrice              decimal.Decimal         `json:"unitPrice"`
	Quantity               int                     `json:"quantity"`
	CustomPriceOverride    *decimal.Decimal        `json:"customPriceOverride,omitempty"`
	SelectedOption         *SelectedOption         `json:"selectedOption,omitempty"`
	SelectedConfigurations []SelectedConfiguration `json:"selectedConfigurations,omitempty"`
	ProductConfigurations  []ProductConfiguration  `json:"productConfigurations,omitempty"`
	ShippingUnitPrice      *decimal.Decimal        `json:"shippingUnitPrice,omitempty"`

	// Inventory, surfaced only
	AvailableQuantity int `json:"availableQuantity,omitempty"`
}

type CartItemRequest struct {
	Id                     string                  `json:"id" validate:"required"`
	Title                  string                  `json:"title" validate:"required"`
	Sku                    string                  `json:"sku"`
	BasePrice              decimal.Decimal         `json:"basePrice" validate:"gte=0"`
	Quantity               int                     `json:"quantity" validate:"gte=1"`
	CustomPrice            *decimal.Decimal        `json:"customPrice,omitempty" validate:"omitempty,gte=0"`
	SelectedOption         *SelectedOption         `json:"selectedOption,omitempty"`
	SelectedConfigurations []SelectedConfiguration `json:"selectedConfigurations,omitempty"`
	ProductConfigurations  []ProductConfiguration  `json:"productConfigurations,omitempty"`
	ShippingUnitPrice      *decimal.Decimal        `json:"shippingUnitPrice,omitempty" validate:"omitempty,gte=0"`
	AvailableQuantity      int                     `json:"availableQuantity" validate:"gte=0"`
}

type QuantityRequest struct {
	Quantity int `json:"quantity" validate:"gte=1"`
}

// PriceOverrideRequest sets the custom unit price of a line; a null price clears it.
type PriceOverrideRequest struct {
	Price *decimal.Decimal `json:"price" validate:"omitempty,gte=0"`
}

type ShippingRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"gte=0"`
}

// SnapshotEntry is the normalized per-line view used to detect cart changes.
type SnapshotEntry struct {
	Id             string
	Quantity       int
	EffectivePrice decimal.Decimal
}
