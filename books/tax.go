package books

import (
	"fmt"
	"strings"
)

// Tax is a tax rate, compound tax or tax group configured for the
// organization.
type Tax struct {
	TaxID            string  `json:"tax_id"`
	TaxName          string  `json:"tax_name"`
	TaxPercentage    float64 `json:"tax_percentage"`
	TaxType          string  `json:"tax_type"`
	TaxSpecificType  string  `json:"tax_specific_type,omitempty"`
	TaxAuthorityID   string  `json:"tax_authority_id,omitempty"`
	TaxAuthorityName string  `json:"tax_authority_name,omitempty"`
	IsValueAdded     bool    `json:"is_value_added"`
	IsDefaultTax     bool    `json:"is_default_tax"`
	IsEditable       bool    `json:"is_editable"`
	Status           string  `json:"status,omitempty"`
}

// TaxInput creates or updates a tax. TaxName and TaxPercentage are required.
type TaxInput struct {
	TaxName                string   `json:"tax_name"`
	TaxPercentage          float64  `json:"tax_percentage"`
	TaxType                string   `json:"tax_type,omitempty"`
	TaxAuthorityID         string   `json:"tax_authority_id,omitempty"`
	TaxAuthorityName       string   `json:"tax_authority_name,omitempty"`
	IsValueAdded           *bool    `json:"is_value_added,omitempty"`
	UpdateRecurringInvoice *bool    `json:"update_recurring_invoice,omitempty"`
	UpdateDraftInvoice     *bool    `json:"update_draft_invoice,omitempty"`
	CountryCode            string   `json:"country_code,omitempty"`
	TaxIDs                 []string `json:"tax_ids,omitempty"` // members of a tax group
}

// Validate checks the required fields.
func (t TaxInput) Validate() error {
	if strings.TrimSpace(t.TaxName) == "" {
		return fmt.Errorf("%w: tax_name is required", ErrInvalidInput)
	}
	if t.TaxPercentage < 0 {
		return fmt.Errorf("%w: tax_percentage cannot be negative", ErrInvalidInput)
	}
	return nil
}

// TaxService accesses /settings/taxes.
type TaxService struct {
	resource[Tax, TaxInput, TaxInput]
}
