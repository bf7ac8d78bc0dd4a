package books

import (
	"fmt"
	"strings"
)

// Item is a product or service that can be sold on invoices.
type Item struct {
	ItemID        string        `json:"item_id"`
	Name          string        `json:"name"`
	SKU           string        `json:"sku,omitempty"`
	Description   string        `json:"description,omitempty"`
	Status        string        `json:"status"`
	Rate          float64       `json:"rate"`
	Unit          string        `json:"unit,omitempty"`
	ProductType   string        `json:"product_type,omitempty"` // goods or service
	ItemType      string        `json:"item_type,omitempty"`
	TaxID         string        `json:"tax_id,omitempty"`
	TaxName       string        `json:"tax_name,omitempty"`
	TaxPercentage float64       `json:"tax_percentage,omitempty"`
	AccountID     string        `json:"account_id,omitempty"`
	AccountName   string        `json:"account_name,omitempty"`
	IsTaxable     bool          `json:"is_taxable"`
	CustomFields  []CustomField `json:"custom_fields,omitempty"`
	CreatedTime   string        `json:"created_time,omitempty"`
	LastModified  string        `json:"last_modified_time,omitempty"`
}

// ItemInput creates or updates an item. Name and Rate are required.
type ItemInput struct {
	Name         string        `json:"name"`
	Rate         float64       `json:"rate"`
	SKU          string        `json:"sku,omitempty"`
	Description  string        `json:"description,omitempty"`
	Unit         string        `json:"unit,omitempty"`
	ProductType  string        `json:"product_type,omitempty"`
	TaxID        string        `json:"tax_id,omitempty"`
	AccountID    string        `json:"account_id,omitempty"`
	IsTaxable    *bool         `json:"is_taxable,omitempty"`
	CustomFields []CustomField `json:"custom_fields,omitempty"`
}

// Validate checks the required fields.
func (in ItemInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: item name is required", ErrInvalidInput)
	}
	if in.Rate < 0 {
		return fmt.Errorf("%w: item rate cannot be negative", ErrInvalidInput)
	}
	return nil
}

// ItemService accesses /items.
type ItemService struct {
	resource[Item, ItemInput, ItemInput]
}
