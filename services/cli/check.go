package main

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/elofiber/viabilidade-ftth/internal/history"
	"github.com/elofiber/viabilidade-ftth/internal/present"
)

func newCheckCmd(a *app) *cobra.Command {
	var (
		radius  int
		mapPath string
	)

	cmd := &cobra.Command{
		Use:   "check <link ou coordenadas>",
		Short: "Verifica a viabilidade em um ponto",
		Example: `  viabctl check "https://www.google.com/maps/@-23.55052,-46.633308,17z"
  viabctl check --radius 500 --map mapa.geojson -- -23.55052, -46.633308`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ex, input, err := a.extract(args)
			if err != nil {
				return err
			}

			ctx, cancel := a.commandContext(cmd)
			defer cancel()

			resp, err := a.client.Viability(ctx, ex.Coordinate, radius)
			if err != nil {
				return err
			}

			a.record(cmd, history.Entry{
				Input:       input,
				Coordinate:  ex.Coordinate,
				Timestamp:   time.Now(),
				ResultCount: len(resp.Results),
			})

			a.printer.Viability(input, resp)

			if mapPath != "" {
				data, err := present.MarshalMap(ex.Coordinate, float64(resp.Metadata.RadiusM), resp.Results)
				if err != nil {
					return err
				}
				if err := os.WriteFile(mapPath, data, 0o644); err != nil {
					return eris.Wrapf(err, "check: write map %s", mapPath)
				}
				cmd.Printf("\nMapa salvo em %s\n", mapPath)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&radius, "radius", 0, "raio de busca em metros (padrão do servidor: 300)")
	cmd.Flags().StringVar(&mapPath, "map", "", "grava um mapa GeoJSON com o ponto, o raio e as CTOs")
	return cmd
}

// record stores a search; a history failure never fails the command.
func (a *app) record(cmd *cobra.Command, e history.Entry) {
	store, err := a.openHistory()
	if err != nil {
		a.logger.Warn("history unavailable", zap.Error(err))
		return
	}
	defer store.Close()

	if err := store.Add(cmd.Context(), e); err != nil {
		a.logger.Warn("history: record search", zap.Error(err))
	}
}
