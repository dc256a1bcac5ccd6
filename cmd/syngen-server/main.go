//                           _       _
// __      _____  __ ___   ___  __ _| |_ ___
// \ \ /\ / / _ \/ _` \ \ / / |/ _` | __/ _ \
//  \ V  V /  __/ (_| |\ V /| | (_| | ||  __/
//   \_/\_/ \___|\__,_| \_/ |_|\__,_|\__\___|
//
//  Copyright © 2016 - 2024 Weaviate B.V. All rights reserved.
//
//  CONTACT: hello@weaviate.io
//

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goflags "github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/weaviate/syngen/adapters/handlers/rest"
	enterrors "github.com/weaviate/syngen/entities/errors"
	"github.com/weaviate/syngen/usecases/config"
	"github.com/weaviate/syngen/usecases/jobs"
	"github.com/weaviate/syngen/usecases/monitoring"
)

func main() {
	var opts config.Flags
	if _, err := goflags.Parse(&opts); err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok && flagsErr.Type == goflags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(opts)
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}

	logger := newLogger(cfg.Logging)

	registry := prometheus.NewRegistry()
	metrics := monitoring.NewPrometheusMetrics(registry)

	service := jobs.NewService(cfg, logger, metrics)
	manager := jobs.NewManager(service, logger, metrics)
	handlers := rest.NewHandlers(manager, logger)

	apiServer := &http.Server{
		Addr:              cfg.Server.ListenAddress,
		Handler:           handlers.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	metricsServer := monitoring.NewMetricsServer(cfg.Server.MetricsListenAddress,
		registry, logger)

	enterrors.GoWrapper(func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("metrics server failed")
		}
	}, logger)

	enterrors.GoWrapper(func() {
		logger.WithField("address", cfg.Server.ListenAddress).Info("job API listening")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("api server failed")
		}
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("api server shutdown")
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("metrics server shutdown")
	}
}

func newLogger(cfg config.Logging) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	return logger
}
