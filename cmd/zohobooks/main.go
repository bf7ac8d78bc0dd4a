package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/torosent/zohobooks/internal/config"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	root := newRootCommand(&app{stdin: stdin, stdout: stdout, stderr: stderr})
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "zohobooks",
		Short: "Work with the Zoho Books API from the command line",
		Long: `zohobooks calls the Zoho Books v3 API for one organization.

Settings come from --config (JSON or YAML), a .env file, ZOHO_* environment
variables and flags, later sources winning. An access token is obtained from
the refresh token and refreshed automatically when it expires or is rejected.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		newAuthCommand(a),
		newTaxesCommand(a),
		newInvoicesCommand(a),
		newContactsCommand(a),
		newItemsCommand(a),
	)
	return root
}
