package models

import (
	"github.com/shopspring/decimal"
)

func init() {
	// value is rendered as a JSON number, e.g. "value":0
	decimal.MarshalJSONWithoutQuotes = true
}

// Asset defaults applied on create when the field is omitted.
const (
	DefaultAssetStatus    = "In Use"
	DefaultAssetUsageType = "General"
)

// Asset represents an asset row joined with its category name
type Asset struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	CategoryID     *int64          `json:"category_id"`
	Department     *string         `json:"department"`
	Status         string          `json:"status"`
	PurchaseDate   *Date           `json:"purchase_date"`
	WarrantyExpiry *Date           `json:"warranty_expiry"`
	Value          decimal.Decimal `json:"value"`
	UsageType      string          `json:"usage_type"`
	CategoryName   *string         `json:"category_name"`
}

// CreateAssetRequest represents the request body for creating a new asset.
// Pointer fields distinguish an omitted (or null) key from a zero value.
type CreateAssetRequest struct {
	Name           *string          `json:"name"`
	CategoryID     *int64           `json:"category_id"`
	Department     *string          `json:"department"`
	Status         *string          `json:"status,omitempty"`
	PurchaseDate   *Date            `json:"purchase_date,omitempty"`
	WarrantyExpiry *Date            `json:"warranty_expiry,omitempty"`
	Value          *decimal.Decimal `json:"value,omitempty"`
	UsageType      *string          `json:"usage_type,omitempty"`

	// Older clients send the purchase date in camelCase.
	PurchaseDateAlias *Date `json:"purchaseDate,omitempty"`
}

// MissingFields returns the required keys absent from the request, in a stable order
func (r CreateAssetRequest) MissingFields() []string {
	var missing []string
	if r.Name == nil {
		missing = append(missing, "name")
	}
	if r.CategoryID == nil {
		missing = append(missing, "category_id")
	}
	if r.Department == nil {
		missing = append(missing, "department")
	}
	return missing
}

// EffectivePurchaseDate returns purchase_date, falling back to purchaseDate
func (r CreateAssetRequest) EffectivePurchaseDate() *Date {
	if r.PurchaseDate != nil {
		return r.PurchaseDate
	}
	return r.PurchaseDateAlias
}

// UpdateAssetRequest represents the request body for updating an asset.
// Only these keys are mutable; anything else in the body is ignored.
type UpdateAssetRequest struct {
	Name           *string          `json:"name,omitempty"`
	CategoryID     *int64           `json:"category_id,omitempty"`
	Department     *string          `json:"department,omitempty"`
	Status         *string          `json:"status,omitempty"`
	PurchaseDate   *Date            `json:"purchase_date,omitempty"`
	WarrantyExpiry *Date            `json:"warranty_expiry,omitempty"`
	Value          *decimal.Decimal `json:"value,omitempty"`
	UsageType      *string          `json:"usage_type,omitempty"`
}

// UpdateDepartmentRequest is the body of the department sub-resource
type UpdateDepartmentRequest struct {
	Department *string `json:"department"`
}
