package main

import (
	"github.com/spf13/cobra"
)

func newInfraCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "infra <link ou coordenadas>",
		Short: "Lista CTOs e POPs próximos",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ex, _, err := a.extract(args)
			if err != nil {
				return err
			}

			ctx, cancel := a.commandContext(cmd)
			defer cancel()

			resp, err := a.client.Infrastructure(ctx, ex.Coordinate)
			if err != nil {
				return err
			}
			a.printer.Infrastructure(resp)
			return nil
		},
	}
}
