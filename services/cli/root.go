package main

import (
	"context"
	"errors"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/elofiber/viabilidade-ftth/internal/apiclient"
	"github.com/elofiber/viabilidade-ftth/internal/geo"
	"github.com/elofiber/viabilidade-ftth/internal/history"
	"github.com/elofiber/viabilidade-ftth/internal/logging"
	"github.com/elofiber/viabilidade-ftth/internal/present"
	"github.com/elofiber/viabilidade-ftth/services/cli/internal/config"
)

// errNoCoordinate is returned after the retry prompt has been printed.
var errNoCoordinate = errors.New("viabctl: no coordinate found in input")

// app is the state shared by every subcommand once the config is loaded.
type app struct {
	v       *viper.Viper
	cfg     *config.Config
	out     io.Writer
	printer *present.Printer
	client  apiclient.Client
	logger  *zap.Logger
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{v: config.NewViper(), out: out}
	var configFile string

	root := &cobra.Command{
		Use:           "viabctl",
		Short:         "Consulta de viabilidade FTTH",
		Long:          "Verifica se existem CTOs com capacidade perto de um endereço colado como link de mapa ou coordenadas.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.v, configFile)
			if err != nil {
				return err
			}
			a.cfg = cfg

			logger, err := logging.Init(cfg.Log.Level, cfg.Log.Format)
			if err != nil {
				return err
			}
			a.logger = logger

			a.printer = present.NewPrinter(a.out, nil)
			a.client = apiclient.NewClient(cfg.APIURL, apiclient.WithToken(cfg.Token))
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.SetOut(out)

	f := root.PersistentFlags()
	f.StringVar(&configFile, "config", "", "arquivo de configuração (padrão ./viabctl.yaml ou ~/.viabctl/viabctl.yaml)")
	f.String("api-url", "", "URL base da API de viabilidade")
	f.String("token", "", "token Bearer da API")
	f.String("history", "", "caminho do banco de histórico")
	_ = a.v.BindPFlag("api_url", f.Lookup("api-url"))
	_ = a.v.BindPFlag("token", f.Lookup("token"))
	_ = a.v.BindPFlag("history_path", f.Lookup("history"))

	root.AddCommand(
		newCheckCmd(a),
		newInfraCmd(a),
		newStatsCmd(a),
		newHistoryCmd(a),
	)
	return root
}

// commandContext bounds a command by the configured timeout and cancels it
// on interrupt.
func (a *app) commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

// extract joins args so unquoted "lat, lng" pairs work, and prints the
// retry prompt when nothing is found.
func (a *app) extract(args []string) (geo.Extraction, string, error) {
	input := strings.Join(args, " ")
	ex, ok := geo.Extract(input)
	if !ok {
		a.printer.ExtractionFailed(input)
		return geo.Extraction{}, input, errNoCoordinate
	}
	a.logger.Debug("coordinate extracted",
		zap.String("source", string(ex.Source)),
		zap.Float64("lat", ex.Lat),
		zap.Float64("lng", ex.Lng),
	)
	return ex, input, nil
}

func (a *app) openHistory() (*history.Store, error) {
	return history.Open(a.cfg.HistoryPath)
}
