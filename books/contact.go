package books

import (
	"fmt"
	"strings"
)

// Contact is a customer or vendor.
type Contact struct {
	ContactID        string          `json:"contact_id"`
	ContactName      string          `json:"contact_name"`
	CompanyName      string          `json:"company_name"`
	ContactType      string          `json:"contact_type"` // customer or vendor
	CustomerSubType  string          `json:"customer_sub_type,omitempty"`
	Status           string          `json:"status"`
	Email            string          `json:"email,omitempty"`
	Phone            string          `json:"phone,omitempty"`
	Mobile           string          `json:"mobile,omitempty"`
	Website          string          `json:"website,omitempty"`
	CurrencyID       string          `json:"currency_id,omitempty"`
	CurrencyCode     string          `json:"currency_code"`
	PaymentTerms     int             `json:"payment_terms,omitempty"`
	PaymentTermLabel string          `json:"payment_terms_label,omitempty"`
	PricebookID      FlexString      `json:"pricebook_id,omitempty"`
	Language         string          `json:"language_code,omitempty"`
	Notes            string          `json:"notes,omitempty"`
	BillingAddress   *Address        `json:"billing_address,omitempty"`
	ShippingAddress  *Address        `json:"shipping_address,omitempty"`
	ContactPersons   []ContactPerson `json:"contact_persons,omitempty"`
	CustomFields     []CustomField   `json:"custom_fields,omitempty"`
	OutstandingTotal float64         `json:"outstanding_receivable_amount,omitempty"`
	UnusedCredits    float64         `json:"unused_credits_receivable_amount,omitempty"`
	CreatedTime      string          `json:"created_time"`
	LastModifiedTime string          `json:"last_modified_time"`
}

// CreateContact is the create payload. ContactName is required.
type CreateContact struct {
	ContactName     string                   `json:"contact_name"`
	CompanyName     string                   `json:"company_name,omitempty"`
	ContactType     string                   `json:"contact_type,omitempty"`
	CustomerSubType string                   `json:"customer_sub_type,omitempty"`
	Website         string                   `json:"website,omitempty"`
	CurrencyID      string                   `json:"currency_id,omitempty"`
	PaymentTerms    *int                     `json:"payment_terms,omitempty"`
	PricebookID     string                   `json:"pricebook_id,omitempty"`
	Language        string                   `json:"language_code,omitempty"`
	Notes           string                   `json:"notes,omitempty"`
	BillingAddress  *AddressWithoutAddressID `json:"billing_address,omitempty"`
	ShippingAddress *AddressWithoutAddressID `json:"shipping_address,omitempty"`
	ContactPersons  []ContactPerson          `json:"contact_persons,omitempty"`
	CustomFields    []CustomField            `json:"custom_fields,omitempty"`
}

// Validate checks the required fields.
func (in CreateContact) Validate() error {
	if strings.TrimSpace(in.ContactName) == "" {
		return fmt.Errorf("%w: contact_name is required", ErrInvalidInput)
	}
	if t := in.ContactType; t != "" && t != "customer" && t != "vendor" {
		return fmt.Errorf("%w: contact_type must be customer or vendor, got %q", ErrInvalidInput, t)
	}
	return nil
}

// UpdateContact is the update payload. Only set fields are sent.
type UpdateContact struct {
	ContactName     string                   `json:"contact_name,omitempty"`
	CompanyName     string                   `json:"company_name,omitempty"`
	Website         string                   `json:"website,omitempty"`
	CurrencyID      string                   `json:"currency_id,omitempty"`
	PaymentTerms    *int                     `json:"payment_terms,omitempty"`
	PricebookID     string                   `json:"pricebook_id,omitempty"`
	Language        string                   `json:"language_code,omitempty"`
	Notes           *string                  `json:"notes,omitempty"`
	BillingAddress  *AddressWithoutAddressID `json:"billing_address,omitempty"`
	ShippingAddress *AddressWithoutAddressID `json:"shipping_address,omitempty"`
	ContactPersons  []ContactPerson          `json:"contact_persons,omitempty"`
	CustomFields    []CustomField            `json:"custom_fields,omitempty"`
}

// ContactService accesses /contacts.
type ContactService struct {
	resource[Contact, CreateContact, UpdateContact]
}
