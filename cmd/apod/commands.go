package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"apod_etl/internal/logger"
	"apod_etl/internal/queue"
	"apod_etl/internal/scheduler"
	"apod_etl/internal/server"
	"apod_etl/internal/worker"
)

var errNoAMQP = errors.New("amqp.url is not configured")

type RunCommand struct {
	Date string `long:"date" description:"Logical date YYYY-MM-DD (default: today's record)"`
}

func (c *RunCommand) Execute([]string) error {
	if err := worker.ValidateDate(c.Date); err != nil {
		return err
	}

	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	res := a.pipeline.Run(ctx, c.Date)
	return res.Err
}

type InitSchemaCommand struct{}

func (c *InitSchemaCommand) Execute([]string) error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.EnsureSchema(ctx); err != nil {
		return err
	}
	logger.Log.Info("Schema is ready")
	return nil
}

type ServeCommand struct{}

func (c *ServeCommand) Execute([]string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	hour, minute, err := a.cfg.Schedule.Clock()
	if err != nil {
		return err
	}
	loc, err := a.cfg.Schedule.Location()
	if err != nil {
		return err
	}

	daily := scheduler.NewDaily(hour, minute, loc, a.cfg.Schedule.RunOnStart, func(ctx context.Context) {
		// результат уже залогирован раннером
		a.pipeline.Run(ctx, "")
	})
	scheduled := daily.Go(ctx)

	err = serveHTTP(ctx, a, nil)

	// хранилище закрывается отложенным a.Close только после остановки планировщика
	cancel()
	<-scheduled
	return err
}

type ConsumeCommand struct {
	Workers int `long:"workers" default:"1" description:"Concurrent tick handlers"`
}

func (c *ConsumeCommand) Execute([]string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.cfg.AMQP.URL == "" {
		return errNoAMQP
	}

	consumer, err := queue.NewConsumer(a.cfg.AMQP.URL, a.cfg.AMQP.Queue, c.Workers)
	if err != nil {
		return err
	}
	defer consumer.Close()

	wrk := worker.NewWorker(a.pipeline)
	if err := consumer.Consume(ctx, wrk.HandleTask); err != nil {
		return err
	}

	err = serveHTTP(ctx, a, consumer.Done())

	cancel()
	consumer.Stop()
	return err
}

type TriggerCommand struct {
	Date string `long:"date" description:"Logical date YYYY-MM-DD (default: today's record)"`
}

func (c *TriggerCommand) Execute([]string) error {
	if err := worker.ValidateDate(c.Date); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.AMQP.URL == "" {
		return errNoAMQP
	}

	producer, err := queue.NewProducer(cfg.AMQP.URL)
	if err != nil {
		return err
	}
	defer producer.Close()

	body, err := json.Marshal(worker.Tick{Date: c.Date})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := producer.Publish(ctx, cfg.AMQP.Queue, body); err != nil {
		return err
	}

	logger.Log.WithField("queue", cfg.AMQP.Queue).Info("Tick published")
	return nil
}

// serveHTTP обслуживает HTTP до сигнала, ошибки сервера или закрытия AMQP-соединения.
func serveHTTP(ctx context.Context, a *app, closed <-chan struct{}) error {
	srv := server.NewServer(a.store, a.registry)
	httpServer := &http.Server{
		Addr:         a.cfg.Server.Addr,
		Handler:      srv.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Log.Infof("Starting HTTP server on %s", a.cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-quit:
		logger.Log.Infof("Received signal: %v", sig)
	case runErr = <-serverErr:
		logger.Log.WithError(runErr).Error("Server error")
	case <-closed:
		runErr = errors.New("amqp connection closed")
		logger.Log.Error("AMQP connection closed")
	}

	logger.Log.Info("Shutting down...")
	ctxShutdown, cancelShutdown := context.WithTimeout(ctx, 5*time.Second)
	defer cancelShutdown()

	if err := httpServer.Shutdown(ctxShutdown); err != nil {
		logger.Log.WithError(err).Error("Forced shutdown")
	}
	return runErr
}
