package books

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Message is the {code, message} pair Zoho returns with every response and
// as the whole body of delete and status-change calls. Code 0 means success.
type Message struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// FlexString accepts a JSON string, number or boolean. Zoho is not
// consistent about the type of some identifiers and amounts.
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = FlexString(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err == nil {
		*s = FlexString(num.String())
		return nil
	}
	if b, err := strconv.ParseBool(string(data)); err == nil {
		*s = FlexString(strconv.FormatBool(b))
		return nil
	}
	return fmt.Errorf("cannot decode %s into a string", data)
}

func (s FlexString) String() string {
	return string(s)
}

// Address is a postal address attached to a contact.
type Address struct {
	AddressID string `json:"address_id,omitempty"`
	AddressWithoutAddressID
}

// AddressWithoutAddressID is the address shape embedded in invoices and
// used when creating contacts.
type AddressWithoutAddressID struct {
	Attention string `json:"attention,omitempty"`
	Address   string `json:"address,omitempty"`
	Street2   string `json:"street2,omitempty"`
	City      string `json:"city,omitempty"`
	State     string `json:"state,omitempty"`
	Zip       string `json:"zip,omitempty"`
	Country   string `json:"country,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Fax       string `json:"fax,omitempty"`
}

// CustomField is a user-defined field value.
type CustomField struct {
	CustomFieldID string `json:"customfield_id,omitempty"`
	// APIName is the "cf_" prefixed key of the field.
	APIName  string `json:"api_name,omitempty"`
	Label    string `json:"label,omitempty"`
	DataType string `json:"data_type,omitempty"`
	Index    int    `json:"index,omitempty"`
	Value    any    `json:"value"`
}

// ContactPerson is a person attached to a contact.
type ContactPerson struct {
	ContactPersonID  string `json:"contact_person_id,omitempty"`
	Salutation       string `json:"salutation,omitempty"`
	FirstName        string `json:"first_name,omitempty"`
	LastName         string `json:"last_name,omitempty"`
	Email            string `json:"email,omitempty"`
	Phone            string `json:"phone,omitempty"`
	Mobile           string `json:"mobile,omitempty"`
	Designation      string `json:"designation,omitempty"`
	Department       string `json:"department,omitempty"`
	IsPrimaryContact bool   `json:"is_primary_contact,omitempty"`
}

// LineItem is an invoice line as returned by the server.
type LineItem struct {
	LineItemID     string        `json:"line_item_id"`
	ItemID         string        `json:"item_id"`
	Name           string        `json:"name"`
	Description    string        `json:"description"`
	ItemOrder      int           `json:"item_order"`
	Rate           float64       `json:"rate"`
	Quantity       float64       `json:"quantity"`
	Unit           string        `json:"unit"`
	Discount       FlexString    `json:"discount"`
	DiscountAmount float64       `json:"discount_amount"`
	TaxID          string        `json:"tax_id"`
	TaxName        string        `json:"tax_name"`
	TaxType        string        `json:"tax_type"`
	TaxPercentage  float64       `json:"tax_percentage"`
	ItemTotal      float64       `json:"item_total"`
	ProductType    string        `json:"product_type"`
	CustomFields   []CustomField `json:"item_custom_fields,omitempty"`
}

// InvoiceLineItem is a line on an invoice create or update payload. ItemID and
// Quantity are required.
type InvoiceLineItem struct {
	ItemID       string        `json:"item_id"`
	Quantity     float64       `json:"quantity"`
	LineItemID   string        `json:"line_item_id,omitempty"`
	Name         string        `json:"name,omitempty"`
	Description  string        `json:"description,omitempty"`
	ItemOrder    int           `json:"item_order,omitempty"`
	Rate         *float64      `json:"rate,omitempty"`
	Unit         string        `json:"unit,omitempty"`
	Discount     *float64      `json:"discount,omitempty"`
	TaxID        string        `json:"tax_id,omitempty"`
	CustomFields []CustomField `json:"item_custom_fields,omitempty"`
}

// Validate checks the required line fields.
func (l InvoiceLineItem) Validate() error {
	if l.ItemID == "" {
		return fmt.Errorf("%w: line item item_id is required", ErrInvalidInput)
	}
	if l.Quantity <= 0 {
		return fmt.Errorf("%w: line item %s quantity must be positive", ErrInvalidInput, l.ItemID)
	}
	return nil
}

// Float returns a pointer to v, for optional numeric payload fields.
func Float(v float64) *float64 { return &v }

// Bool returns a pointer to v, for optional boolean payload fields.
func Bool(v bool) *bool { return &v }

// Int returns a pointer to v, for optional integer payload fields.
func Int(v int) *int { return &v }
