package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"

	"apod_etl/internal/config"
	"apod_etl/internal/db"
	"apod_etl/internal/fetcher"
	"apod_etl/internal/logger"
	"apod_etl/internal/pipeline"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// app собирает зависимости пайплайна из конфигурации.
type app struct {
	cfg      *config.Config
	store    db.Store
	pipeline *pipeline.Pipeline
	registry *prometheus.Registry
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(opts.Config)
	if errors.Is(err, fs.ErrNotExist) {
		// соединения можно задать только через APOD_CONN_*
		logger.Log.WithField("path", opts.Config).Warn("Config file not found, using defaults")
		cfg, err = config.Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	conns := config.NewProvider(cfg.Connections)

	dbConn, err := conns.Connection(cfg.PostgresConnID)
	if err != nil {
		return nil, err
	}
	store, err := db.Open(ctx, dbConn)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	client := fetcher.NewClient(
		&http.Client{Timeout: cfg.HTTP.Timeout()},
		conns,
		cfg.HTTPConnID,
		cfg.HTTP.UserAgent,
	)

	return &app{
		cfg:      cfg,
		store:    store,
		pipeline: pipeline.New(store, client, pipeline.NewMetrics(registry)),
		registry: registry,
	}, nil
}

func (a *app) Close() {
	a.store.Close()
}
