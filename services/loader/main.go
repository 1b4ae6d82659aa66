package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/elofiber/viabilidade-ftth/internal/inventory"
	"github.com/elofiber/viabilidade-ftth/internal/logging"
	"github.com/elofiber/viabilidade-ftth/internal/warehouse"
	"github.com/elofiber/viabilidade-ftth/services/loader/internal/batch"
	"github.com/elofiber/viabilidade-ftth/services/loader/internal/config"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("loader failed: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := logging.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout+time.Minute)
	defer cancel()

	var recs []inventory.Record
	if cfg.InventoryURL != "" {
		client := &http.Client{Timeout: cfg.RequestTimeout}
		recs, err = inventory.Fetch(ctx, client, cfg.InventoryURL)
	} else {
		recs, err = inventory.ReadFile(cfg.InventoryPath)
	}
	if err != nil {
		return err
	}

	b := batch.Build(recs)
	logger.Info("inventory loaded",
		zap.String("source", cfg.Source()),
		zap.Int("ctos", len(b.CTOs)),
		zap.Int("pops", len(b.POPs)),
		zap.Int("duplicates", b.Duplicates),
		zap.Int("ctos_without_capacity", b.WithoutCapacity()),
	)

	if cfg.DryRun {
		for _, c := range b.CTOs {
			logger.Info("dry-run: would upsert cto",
				zap.String("cto_id", c.ID),
				zap.Int("capacidade_disponivel", c.CapacityAvailable),
				zap.Float64("lat", c.Lat),
				zap.Float64("lng", c.Lng),
			)
		}
		for _, p := range b.POPs {
			logger.Info("dry-run: would upsert pop", zap.String("pop_id", p.ID), zap.String("tipo_olt", p.OLTType))
		}
		return nil
	}

	pg, err := warehouse.ConnectPostGIS(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pg.Close()

	if cfg.EnsureSchema {
		if err := pg.EnsureSchema(ctx); err != nil {
			return err
		}
		logger.Info("schema ensured")
	}

	if err := pg.UpsertCTOs(ctx, b.CTOs); err != nil {
		return err
	}
	if err := pg.UpsertPOPs(ctx, b.POPs); err != nil {
		return err
	}

	logger.Info("inventory upserted", zap.Int("ctos", len(b.CTOs)), zap.Int("pops", len(b.POPs)))
	return nil
}
