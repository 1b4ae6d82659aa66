package main

import (
	"github.com/spf13/cobra"
)

func newHistoryCmd(a *app) *cobra.Command {
	var wipe bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Lista as últimas consultas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			if wipe {
				if err := store.Clear(cmd.Context()); err != nil {
					return err
				}
				cmd.Println("Histórico apagado")
				return nil
			}

			entries, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			a.printer.History(entries)
			return nil
		},
	}

	cmd.Flags().BoolVar(&wipe, "clear", false, "apaga o histórico")
	return cmd
}
