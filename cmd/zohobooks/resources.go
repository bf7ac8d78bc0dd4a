package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/torosent/zohobooks/books"
	"github.com/torosent/zohobooks/internal/batch"
	"github.com/torosent/zohobooks/internal/payload"
)

// service is the accessor set shared by every resource. T is the full
// record, L the list row, C and U the create and update payloads.
type service[T, L, C, U any] interface {
	List(ctx context.Context, opts *books.ListOptions) (*books.Page[L], error)
	ListAll(ctx context.Context, opts *books.ListOptions) ([]L, error)
	Get(ctx context.Context, id string) (*T, error)
	Create(ctx context.Context, input C) (*T, error)
	Update(ctx context.Context, id string, input U) (*T, error)
	Delete(ctx context.Context, id string) (*books.Message, error)
}

type resourceInfo struct {
	name    string
	aliases []string
	single  string
	// columns shown by list in table output
	columns []string
}

func newTaxesCommand(a *app) *cobra.Command {
	info := resourceInfo{
		name:    "taxes",
		aliases: []string{"tax"},
		single:  "tax",
		columns: []string{"tax_id", "tax_name", "tax_percentage", "tax_type", "status"},
	}
	return newResourceCommand(a, info, func(c *books.Client) service[books.Tax, books.Tax, books.TaxInput, books.TaxInput] {
		return c.Taxes
	})
}

func newInvoicesCommand(a *app) *cobra.Command {
	info := resourceInfo{
		name:    "invoices",
		aliases: []string{"invoice", "inv"},
		single:  "invoice",
		columns: []string{"invoice_id", "invoice_number", "customer_name", "status", "date", "due_date", "total", "balance"},
	}
	cmd := newResourceCommand(a, info, func(c *books.Client) service[books.Invoice, books.InvoiceListItem, books.CreateInvoice, books.UpdateInvoice] {
		return c.Invoices
	})
	cmd.AddCommand(
		newMessageCommand(a, "mark-sent <id>", "Mark a draft invoice as sent", func(ctx context.Context, c *books.Client, id string) (*books.Message, error) {
			return c.Invoices.MarkSent(ctx, id)
		}),
		newMessageCommand(a, "void <id>", "Mark an invoice as void", func(ctx context.Context, c *books.Client, id string) (*books.Message, error) {
			return c.Invoices.Void(ctx, id)
		}),
	)
	return cmd
}

func newContactsCommand(a *app) *cobra.Command {
	info := resourceInfo{
		name:    "contacts",
		aliases: []string{"contact"},
		single:  "contact",
		columns: []string{"contact_id", "contact_name", "company_name", "contact_type", "status", "email"},
	}
	return newResourceCommand(a, info, func(c *books.Client) service[books.Contact, books.Contact, books.CreateContact, books.UpdateContact] {
		return c.Contacts
	})
}

func newItemsCommand(a *app) *cobra.Command {
	info := resourceInfo{
		name:    "items",
		aliases: []string{"item"},
		single:  "item",
		columns: []string{"item_id", "name", "sku", "rate", "unit", "status"},
	}
	return newResourceCommand(a, info, func(c *books.Client) service[books.Item, books.Item, books.ItemInput, books.ItemInput] {
		return c.Items
	})
}

func newResourceCommand[T, L, C, U any](a *app, info resourceInfo, pick func(*books.Client) service[T, L, C, U]) *cobra.Command {
	cmd := &cobra.Command{
		Use:     info.name,
		Aliases: info.aliases,
		Short:   fmt.Sprintf("List, read and change %s", info.name),
	}
	cmd.AddCommand(
		newListCommand(a, info, pick),
		newGetCommand(a, info, pick),
		newWriteCommand(a, "create", fmt.Sprintf("Create a %s from a JSON body", info.single), cobra.NoArgs,
			func(ctx context.Context, c *books.Client, _ []string, in C) (*T, error) {
				return pick(c).Create(ctx, in)
			}),
		newWriteCommand(a, "update <id>", fmt.Sprintf("Update a %s from a JSON body with the changed fields", info.single), cobra.ExactArgs(1),
			func(ctx context.Context, c *books.Client, args []string, in U) (*T, error) {
				return pick(c).Update(ctx, args[0], in)
			}),
		newMessageCommand(a, "delete <id>", fmt.Sprintf("Delete a %s", info.single), func(ctx context.Context, c *books.Client, id string) (*books.Message, error) {
			return pick(c).Delete(ctx, id)
		}),
	)
	return cmd
}

func newGetCommand[T, L, C, U any](a *app, info resourceInfo, pick func(*books.Client) service[T, L, C, U]) *cobra.Command {
	var concurrency int
	cmd := &cobra.Command{
		Use:   "get <id>...",
		Short: fmt.Sprintf("Show one or more %s", info.name),
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, ids []string) error {
			return a.withClient(cmd, func(ctx context.Context, c *books.Client) error {
				svc := pick(c)
				if len(ids) == 1 {
					record, err := svc.Get(ctx, ids[0])
					if err != nil {
						return err
					}
					return a.print(record, nil)
				}

				results := batch.Run(ctx, ids, concurrency, svc.Get)
				if err := a.print(batch.Values(results), info.columns); err != nil {
					return err
				}
				return batch.Err(results)
			})
		},
	}
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "Requests in flight when several ids are given")
	return cmd
}

func newListCommand[T, L, C, U any](a *app, info resourceInfo, pick func(*books.Client) service[T, L, C, U]) *cobra.Command {
	var (
		opts books.ListOptions
		all  bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: fmt.Sprintf("List %s", info.name),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withClient(cmd, func(ctx context.Context, c *books.Client) error {
				svc := pick(c)
				if all {
					records, err := svc.ListAll(ctx, &opts)
					if err != nil {
						return err
					}
					return a.print(nonNil(records), info.columns)
				}

				page, err := svc.List(ctx, &opts)
				if err != nil {
					return err
				}
				if page.Context.HasMorePage {
					fmt.Fprintf(a.stderr, "More %s available: use --page %d or --all\n", info.name, page.Context.Page+1)
				}
				return a.print(nonNil(page.Items), info.columns)
			})
		},
	}
	flags := cmd.Flags()
	flags.IntVar(&opts.Page, "page", 0, "Page to fetch (server default 1)")
	flags.IntVar(&opts.PerPage, "per-page", 0, "Records per page (server default 200)")
	flags.StringVar(&opts.SortColumn, "sort-column", "", "Column to sort by")
	flags.StringVar(&opts.SortOrder, "sort-order", "", "Sort order: A (ascending) or D (descending)")
	flags.StringVar(&opts.SearchText, "search", "", "Search text")
	flags.StringToStringVar(&opts.Filters, "filter", nil, "Resource filter in key=value form, e.g. status=overdue")
	flags.BoolVar(&all, "all", false, "Fetch every page starting at --page")
	return cmd
}

func newWriteCommand[T, I any](a *app, use, short string, args cobra.PositionalArgs, call func(context.Context, *books.Client, []string, I) (*T, error)) *cobra.Command {
	var (
		body     string
		bodyFile string
		strict   bool
	)
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := payload.NewSource(body, bodyFile, a.stdin)
			if err != nil {
				return err
			}
			var in I
			if err := payload.Decode(src, &in, strict); err != nil {
				return err
			}
			return a.withClient(cmd, func(ctx context.Context, c *books.Client) error {
				record, err := call(ctx, c, args, in)
				if err != nil {
					return err
				}
				return a.print(record, nil)
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&body, "body", "", "Inline JSON request body")
	flags.StringVar(&bodyFile, "body-file", "", "Path to a JSON request body, or - for stdin")
	flags.BoolVar(&strict, "strict", true, "Reject fields the payload type does not declare")
	return cmd
}

func newMessageCommand(a *app, use, short string, call func(context.Context, *books.Client, string) (*books.Message, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd, func(ctx context.Context, c *books.Client) error {
				msg, err := call(ctx, c, args[0])
				if err != nil {
					return err
				}
				return a.print(msg, nil)
			})
		},
	}
}

func nonNil[T any](records []T) []T {
	if records == nil {
		return []T{}
	}
	return records
}
