package books

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// customFieldPrefix marks the custom field keys Zoho inlines into list rows.
const customFieldPrefix = "cf_"

// Invoice is a full invoice as returned by get, create and update.
type Invoice struct {
	InvoiceID                   string                   `json:"invoice_id"`
	InvoiceNumber               string                   `json:"invoice_number"`
	IsInclusiveTax              bool                     `json:"is_inclusive_tax"`
	Status                      string                   `json:"status"`
	Date                        string                   `json:"date"`
	DueDate                     string                   `json:"due_date"`
	ReferenceNumber             string                   `json:"reference_number"`
	CustomerID                  string                   `json:"customer_id"`
	CustomerName                string                   `json:"customer_name,omitempty"`
	CompanyName                 string                   `json:"company_name,omitempty"`
	Email                       string                   `json:"email,omitempty"`
	SalespersonID               FlexString               `json:"salesperson_id,omitempty"`
	SalespersonName             string                   `json:"salesperson_name,omitempty"`
	ContactPersons              []string                 `json:"contact_persons"`
	ContactPersonsDetails       []ContactPerson          `json:"contact_persons_details,omitempty"`
	CurrencyCode                string                   `json:"currency_code"`
	ExchangeRate                float64                  `json:"exchange_rate,omitempty"`
	BillingAddress              *AddressWithoutAddressID `json:"billing_address,omitempty"`
	ShippingAddress             *AddressWithoutAddressID `json:"shipping_address,omitempty"`
	Country                     string                   `json:"country,omitempty"`
	LineItems                   []LineItem               `json:"line_items,omitempty"`
	SubTotal                    float64                  `json:"sub_total"`
	TaxTotal                    float64                  `json:"tax_total"`
	Total                       float64                  `json:"total"`
	Balance                     float64                  `json:"balance"`
	DiscountAmount              float64                  `json:"discount_amount"`
	Discount                    FlexString               `json:"discount"`
	IsDiscountBeforeTax         bool                     `json:"is_discount_before_tax"`
	DiscountType                string                   `json:"discount_type,omitempty"` // entity_level or item_level
	Notes                       string                   `json:"notes"`
	Terms                       string                   `json:"terms,omitempty"`
	PricebookID                 FlexString               `json:"pricebook_id,omitempty"`
	ShippingChargeTaxID         string                   `json:"shipping_charge_tax_id,omitempty"`
	ShippingChargeTaxPercentage float64                  `json:"shipping_charge_tax_percentage,omitempty"`
	ShippingCharge              float64                  `json:"shipping_charge"`
	CustomFields                []CustomField            `json:"custom_fields,omitempty"`
	CreatedTime                 string                   `json:"created_time"`
	LastModifiedTime            string                   `json:"last_modified_time"`
}

// InvoiceListItem is the projection returned by the invoice list. Custom
// fields arrive as top-level "cf_" keys and are collected in CustomFields.
type InvoiceListItem struct {
	InvoiceID        string                   `json:"invoice_id"`
	CustomerName     string                   `json:"customer_name"`
	CustomerID       string                   `json:"customer_id"`
	CompanyName      string                   `json:"company_name"`
	Status           string                   `json:"status"`
	InvoiceNumber    string                   `json:"invoice_number"`
	ReferenceNumber  string                   `json:"reference_number"`
	Date             string                   `json:"date"`
	DueDate          string                   `json:"due_date"`
	Email            string                   `json:"email,omitempty"`
	CurrencyCode     string                   `json:"currency_code"`
	BillingAddress   *AddressWithoutAddressID `json:"billing_address,omitempty"`
	ShippingAddress  *AddressWithoutAddressID `json:"shipping_address,omitempty"`
	Country          string                   `json:"country,omitempty"`
	CreatedTime      string                   `json:"created_time"`
	LastModifiedTime string                   `json:"last_modified_time"`
	Total            float64                  `json:"total"`
	Balance          float64                  `json:"balance"`

	CustomFields map[string]any `json:"-"`
}

func (i *InvoiceListItem) UnmarshalJSON(data []byte) error {
	type plain InvoiceListItem
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.CustomFields = nil
	for key, value := range raw {
		if !strings.HasPrefix(key, customFieldPrefix) {
			continue
		}
		var decoded any
		if err := json.Unmarshal(value, &decoded); err != nil {
			return fmt.Errorf("custom field %s: %w", key, err)
		}
		if p.CustomFields == nil {
			p.CustomFields = make(map[string]any)
		}
		p.CustomFields[key] = decoded
	}

	*i = InvoiceListItem(p)
	return nil
}

// MarshalJSON writes the custom fields back as top-level keys.
func (i InvoiceListItem) MarshalJSON() ([]byte, error) {
	type plain InvoiceListItem
	data, err := json.Marshal(plain(i))
	if err != nil || len(i.CustomFields) == 0 {
		return data, err
	}
	merged := make(map[string]any)
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	for key, value := range i.CustomFields {
		merged[key] = value
	}
	return json.Marshal(merged)
}

// CreateInvoice is the create payload. CustomerID and at least one line item
// are required.
type CreateInvoice struct {
	CustomerID          string            `json:"customer_id"`
	LineItems           []InvoiceLineItem `json:"line_items"`
	InvoiceNumber       string            `json:"invoice_number,omitempty"`
	ReferenceNumber     string            `json:"reference_number,omitempty"`
	ContactPersons      []string          `json:"contact_persons,omitempty"`
	Date                string            `json:"date,omitempty"`
	DueDate             string            `json:"due_date,omitempty"`
	DiscountType        string            `json:"discount_type,omitempty"`
	Discount            FlexString        `json:"discount,omitempty"`
	IsDiscountBeforeTax *bool             `json:"is_discount_before_tax,omitempty"`
	IsInclusiveTax      *bool             `json:"is_inclusive_tax,omitempty"`
	ExchangeRate        *float64          `json:"exchange_rate,omitempty"`
	Notes               string            `json:"notes,omitempty"`
	Terms               string            `json:"terms,omitempty"`
	PricebookID         string            `json:"pricebook_id,omitempty"`
	SalespersonName     string            `json:"salesperson_name,omitempty"`
	ShippingCharge      *float64          `json:"shipping_charge,omitempty"`
	ShippingChargeTaxID string            `json:"shipping_charge_tax_id,omitempty"`
	BillingAddressID    string            `json:"billing_address_id,omitempty"`
	ShippingAddressID   string            `json:"shipping_address_id,omitempty"`
	CustomFields        []CustomField     `json:"custom_fields,omitempty"`
}

// Validate checks the required fields.
func (in CreateInvoice) Validate() error {
	if strings.TrimSpace(in.CustomerID) == "" {
		return fmt.Errorf("%w: customer_id is required", ErrInvalidInput)
	}
	if len(in.LineItems) == 0 {
		return fmt.Errorf("%w: at least one line item is required", ErrInvalidInput)
	}
	return validateLines(in.LineItems)
}

// UpdateInvoice is the update payload. Only set fields are sent.
type UpdateInvoice struct {
	CustomerID          string            `json:"customer_id,omitempty"`
	LineItems           []InvoiceLineItem `json:"line_items,omitempty"`
	InvoiceNumber       string            `json:"invoice_number,omitempty"`
	ReferenceNumber     string            `json:"reference_number,omitempty"`
	ContactPersons      []string          `json:"contact_persons,omitempty"`
	Date                string            `json:"date,omitempty"`
	DueDate             string            `json:"due_date,omitempty"`
	DiscountType        string            `json:"discount_type,omitempty"`
	Discount            FlexString        `json:"discount,omitempty"`
	IsDiscountBeforeTax *bool             `json:"is_discount_before_tax,omitempty"`
	IsInclusiveTax      *bool             `json:"is_inclusive_tax,omitempty"`
	ExchangeRate        *float64          `json:"exchange_rate,omitempty"`
	Notes               *string           `json:"notes,omitempty"`
	Terms               *string           `json:"terms,omitempty"`
	SalespersonName     string            `json:"salesperson_name,omitempty"`
	ShippingCharge      *float64          `json:"shipping_charge,omitempty"`
	ShippingChargeTaxID string            `json:"shipping_charge_tax_id,omitempty"`
	CustomFields        []CustomField     `json:"custom_fields,omitempty"`
}

// Validate checks any line items that are present.
func (in UpdateInvoice) Validate() error {
	return validateLines(in.LineItems)
}

func validateLines(lines []InvoiceLineItem) error {
	for i, line := range lines {
		if err := line.Validate(); err != nil {
			return fmt.Errorf("line %d: %w", i+1, err)
		}
	}
	return nil
}

// InvoiceService accesses /invoices. List and ListAll return the list
// projection; Get, Create and Update return full invoices.
type InvoiceService struct {
	resource[Invoice, CreateInvoice, UpdateInvoice]
	rows resource[InvoiceListItem, CreateInvoice, UpdateInvoice]
}

func newInvoiceService(c *Client) *InvoiceService {
	full := resource[Invoice, CreateInvoice, UpdateInvoice]{client: c, path: "/invoices", single: "invoice", plural: "invoices"}
	rows := resource[InvoiceListItem, CreateInvoice, UpdateInvoice](full)
	return &InvoiceService{resource: full, rows: rows}
}

// List fetches one page of invoices.
func (s *InvoiceService) List(ctx context.Context, opts *ListOptions) (*Page[InvoiceListItem], error) {
	return s.rows.List(ctx, opts)
}

// ListAll walks every page of invoices.
func (s *InvoiceService) ListAll(ctx context.Context, opts *ListOptions) ([]InvoiceListItem, error) {
	return s.rows.ListAll(ctx, opts)
}

// MarkSent changes a draft invoice to sent.
func (s *InvoiceService) MarkSent(ctx context.Context, id string) (*Message, error) {
	return s.status(ctx, id, "sent")
}

// Void marks an invoice as void.
func (s *InvoiceService) Void(ctx context.Context, id string) (*Message, error) {
	return s.status(ctx, id, "void")
}

func (s *InvoiceService) status(ctx context.Context, id, status string) (*Message, error) {
	path, err := s.itemPath(id, "status", status)
	if err != nil {
		return nil, err
	}
	return s.client.message(ctx, http.MethodPost, path)
}
