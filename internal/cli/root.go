// Package cli implements shipctl, the command line front end of the
// shipment manager. Commands talk to the store directly through
// core.Service, so they work with or without a running server.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/freight/internal/core"
)

// Opener builds the service a command runs against. The returned func
// releases it.
type Opener func(ctx context.Context) (*core.Service, func(), error)

// NewRootCmd assembles shipctl with every subcommand.
func NewRootCmd(open Opener) *cobra.Command {
	root := &cobra.Command{
		Use:   "shipctl",
		Short: "Manage freight shipments",
		Long: `shipctl imports, lists, exports and deletes shipments in the shared
shipment store, and queries the city correction service.

Configuration comes from the same environment variables (and .env file)
as the server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(importCmd(open))
	root.AddCommand(listCmd(open))
	root.AddCommand(addCmd(open))
	root.AddCommand(exportCmd(open))
	root.AddCommand(deleteCmd(open))
	root.AddCommand(correctCmd(open))
	root.AddCommand(templateCmd())
	return root
}

// withService opens the service for the duration of fn.
func withService(cmd *cobra.Command, open Opener, fn func(ctx context.Context, svc *core.Service) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	svc, closeFn, err := open(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	return fn(ctx, svc)
}

// describe renders err for the terminal: field errors verbatim, known
// failures with their user message and code.
func describe(err error) string {
	var verrs core.ValidationErrors
	if errors.As(err, &verrs) {
		return verrs.Error()
	}
	if core.IsUserFacing(err) {
		return core.FormatUserError(err)
	}
	return err.Error()
}
