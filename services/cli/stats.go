package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/elofiber/viabilidade-ftth/internal/apiclient"
	"github.com/elofiber/viabilidade-ftth/internal/history"
)

func newStatsCmd(a *app) *cobra.Command {
	var localOnly bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Mostra estatísticas do inventário e do histórico local",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var server *apiclient.StatsResponse
			if !localOnly {
				ctx, cancel := a.commandContext(cmd)
				defer cancel()

				resp, err := a.client.Stats(ctx)
				if err != nil {
					return err
				}
				server = resp
			}

			var local *history.Summary
			store, err := a.openHistory()
			if err != nil {
				a.logger.Warn("history unavailable", zap.Error(err))
			} else {
				defer store.Close()
				sum, err := store.Summarize(cmd.Context())
				if err != nil {
					return err
				}
				local = &sum
			}

			a.printer.Stats(server, local)
			return nil
		},
	}

	cmd.Flags().BoolVar(&localOnly, "local", false, "mostra apenas o histórico local, sem consultar a API")
	return cmd
}
