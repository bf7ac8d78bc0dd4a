package books

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaxesList(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/settings/taxes", r.URL.Path)
		writeJSON(w, http.StatusOK, `{
			"code": 0,
			"message": "success",
			"taxes": [
				{"tax_id": "982000000566009", "tax_name": "Sales Tax", "tax_percentage": 10.5, "tax_type": "tax", "is_editable": true},
				{"tax_id": "982000000566010", "tax_name": "VAT", "tax_percentage": 20, "tax_type": "tax"}
			],
			"page_context": {"page": 1, "per_page": 200, "has_more_page": false}
		}`)
	})

	page, err := client.Taxes.List(context.Background(), nil)
	require.NoError(t, err)
	require.NotEmpty(t, page.Items)
	for _, tax := range page.Items {
		assert.NotEmpty(t, tax.TaxID)
	}
	assert.Equal(t, 10.5, page.Items[0].TaxPercentage)
	assert.Equal(t, 200, page.Context.PerPage)
	assert.False(t, page.Context.HasMorePage)
}

func TestGetUnwrapsEnvelope(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/items/460000000027009", r.URL.Path)
		writeJSON(w, http.StatusOK, `{"code":0,"message":"success","item":{"item_id":"460000000027009","name":"Hard Drive","rate":120,"status":"active"}}`)
	})

	item, err := client.Items.Get(context.Background(), "460000000027009")
	require.NoError(t, err)
	assert.Equal(t, "Hard Drive", item.Name)
	assert.Equal(t, 120.0, item.Rate)
}

func TestGetMissingEnvelope(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"code":0,"message":"success"}`)
	})

	_, err := client.Items.Get(context.Background(), "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no "item" field`)
}

func TestDeleteResponses(t *testing.T) {
	t.Run("empty body", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodDelete, r.Method)
			assert.Equal(t, "/contacts/460000000026049", r.URL.Path)
			w.WriteHeader(http.StatusOK)
		})

		msg, err := client.Contacts.Delete(context.Background(), "460000000026049")
		require.NoError(t, err)
		assert.Equal(t, "success", msg.Message)
		assert.Zero(t, msg.Code)
	})

	t.Run("message body", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, `{"code":0,"message":"The tax has been deleted."}`)
		})

		msg, err := client.Taxes.Delete(context.Background(), "1")
		require.NoError(t, err)
		assert.Equal(t, "The tax has been deleted.", msg.Message)
	})
}

func TestDoEmptyBodyYieldsZeroValue(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	out, err := Do[map[string]any](context.Background(), client, Request{Path: "/items/1", Envelope: "item"})
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestListPassesPaginationThrough(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "3", q.Get("page"))
		assert.Equal(t, "25", q.Get("per_page"))
		assert.Equal(t, "contact_name", q.Get("sort_column"))
		assert.Equal(t, "D", q.Get("sort_order"))
		assert.Equal(t, "bowman", q.Get("search_text"))
		assert.Equal(t, "Status.Active", q.Get("filter_by"))
		writeJSON(w, http.StatusOK, `{"code":0,"message":"success","contacts":[{"contact_id":"1","contact_name":"Bowman"}],
			"page_context":{"page":3,"per_page":25,"has_more_page":true,"sort_column":"contact_name","sort_order":"D"}}`)
	})

	page, err := client.Contacts.List(context.Background(), &ListOptions{
		Page:       3,
		PerPage:    25,
		SortColumn: "contact_name",
		SortOrder:  "D",
		SearchText: "bowman",
		Filters:    map[string]string{"filter_by": "Status.Active", " ": "ignored"},
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, PageContext{Page: 3, PerPage: 25, HasMorePage: true, SortColumn: "contact_name", SortOrder: "D"}, page.Context)
}

func TestListAllWalksPages(t *testing.T) {
	var pages []string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		pages = append(pages, page)
		assert.Equal(t, "2", r.URL.Query().Get("per_page"))
		n, _ := strconv.Atoi(page)
		more := n < 3
		body := `{"code":0,"message":"success","items":[{"item_id":"` + page + `a"},{"item_id":"` + page + `b"}],` +
			`"page_context":{"page":` + page + `,"per_page":2,"has_more_page":` + strconv.FormatBool(more) + `}}`
		writeJSON(w, http.StatusOK, body)
	})

	opts := &ListOptions{PerPage: 2}
	items, err := client.Items.ListAll(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, pages)
	require.Len(t, items, 6)
	assert.Equal(t, "1a", items[0].ItemID)
	assert.Equal(t, "3b", items[5].ItemID)
	assert.Zero(t, opts.Page, "caller options are not modified")
}

func TestListAllStopsOnError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			writeJSON(w, http.StatusInternalServerError, `{"code":9999,"message":"internal"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"code":0,"message":"success","taxes":[{"tax_id":"1"}],"page_context":{"page":1,"has_more_page":true}}`)
	})

	_, err := client.Taxes.ListAll(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page 2")
	var apiErr *APIError
	assert.ErrorAs(t, err, &apiErr)
}

func TestCreateReturnsServerRecord(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/invoices", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "460000000026049", body["customer_id"])
		assert.NotContains(t, body, "notes")
		lines := body["line_items"].([]any)
		require.Len(t, lines, 1)
		assert.Equal(t, 2.0, lines[0].(map[string]any)["quantity"])

		writeJSON(w, http.StatusCreated, `{"code":0,"message":"The invoice has been created.","invoice":{
			"invoice_id":"982000000567114","invoice_number":"INV-00003","status":"draft",
			"customer_id":"460000000026049","salesperson_id":4600000000,"discount":"10%",
			"line_items":[{"line_item_id":"982000000567021","item_id":"460000000027009","quantity":2,"rate":120,"item_total":240}],
			"sub_total":240,"tax_total":25.2,"total":265.2}}`)
	})

	invoice, err := client.Invoices.Create(context.Background(), CreateInvoice{
		CustomerID: "460000000026049",
		LineItems:  []InvoiceLineItem{{ItemID: "460000000027009", Quantity: 2, Rate: Float(120)}},
	})
	require.NoError(t, err)
	assert.Equal(t, "982000000567114", invoice.InvoiceID)
	assert.Equal(t, "INV-00003", invoice.InvoiceNumber)
	assert.Equal(t, FlexString("4600000000"), invoice.SalespersonID)
	assert.Equal(t, "10%", invoice.Discount.String())
	require.Len(t, invoice.LineItems, 1)
	assert.Equal(t, "982000000567021", invoice.LineItems[0].LineItemID)
	assert.Equal(t, 265.2, invoice.Total)
}

func TestUpdateSendsOnlySetFields(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/contacts/7", r.URL.Path)
		data, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"company_name":"Bowman & Co","notes":""}`, string(data))
		writeJSON(w, http.StatusOK, `{"code":0,"message":"Contact information has been saved.","contact":{"contact_id":"7","company_name":"Bowman & Co"}}`)
	})

	empty := ""
	contact, err := client.Contacts.Update(context.Background(), "7", UpdateContact{CompanyName: "Bowman & Co", Notes: &empty})
	require.NoError(t, err)
	assert.Equal(t, "Bowman & Co", contact.CompanyName)
}

func TestValidationSendsNothing(t *testing.T) {
	var hits atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, http.StatusOK, `{}`)
	})
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
	}{
		{"invoice without customer", func() error {
			_, err := client.Invoices.Create(ctx, CreateInvoice{LineItems: []InvoiceLineItem{{ItemID: "1", Quantity: 1}}})
			return err
		}},
		{"invoice without lines", func() error {
			_, err := client.Invoices.Create(ctx, CreateInvoice{CustomerID: "1"})
			return err
		}},
		{"invoice line without quantity", func() error {
			_, err := client.Invoices.Update(ctx, "1", UpdateInvoice{LineItems: []InvoiceLineItem{{ItemID: "1"}}})
			return err
		}},
		{"contact without name", func() error {
			_, err := client.Contacts.Create(ctx, CreateContact{})
			return err
		}},
		{"contact with bad type", func() error {
			_, err := client.Contacts.Create(ctx, CreateContact{ContactName: "a", ContactType: "partner"})
			return err
		}},
		{"item with negative rate", func() error {
			_, err := client.Items.Create(ctx, ItemInput{Name: "a", Rate: -1})
			return err
		}},
		{"tax without name", func() error {
			_, err := client.Taxes.Create(ctx, TaxInput{TaxPercentage: 5})
			return err
		}},
		{"get without id", func() error {
			_, err := client.Invoices.Get(ctx, " ")
			return err
		}},
		{"void without id", func() error {
			_, err := client.Invoices.Void(ctx, "")
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInput), "error %v should wrap ErrInvalidInput", err)
		})
	}
	assert.Zero(t, hits.Load())
}

func TestItemPathEscapesID(t *testing.T) {
	r := resource[Item, ItemInput, ItemInput]{path: "/items", single: "item"}
	path, err := r.itemPath("a/b c")
	require.NoError(t, err)
	assert.Equal(t, "/items/a%2Fb%20c", path)
}
