// Command server exposes the cryptofrag pipeline over HTTP: the
// "illustrative façade" spec.md keeps deliberately out of core scope,
// kept intentionally small. Grounded on the gateway's own cmd entrypoint
// pattern (flag parsing, logrus setup, graceful shutdown on SIGINT/SIGTERM)
// and its internal/api route registration, generalized from S3 object
// verbs to POST/GET /objects.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/nilsroemer/cryptofrag/internal/api"
	"github.com/nilsroemer/cryptofrag/internal/audit"
	"github.com/nilsroemer/cryptofrag/internal/guard"
	"github.com/nilsroemer/cryptofrag/internal/hwinfo"
	"github.com/nilsroemer/cryptofrag/internal/metrics"
	"github.com/nilsroemer/cryptofrag/internal/middleware"
	"github.com/nilsroemer/cryptofrag/internal/storageio"
	"github.com/nilsroemer/cryptofrag/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := loadServerConfig(*configPath)
	if err != nil {
		logger.WithError(err).Fatal("load config")
	}
	if len(cfg.Nodes) == 0 {
		logger.Fatal("config: nodes must be non-empty")
	}
	addr := cfg.Listen.Addr
	if addr == "" {
		addr = ":8080"
	}

	hw := hwinfo.Describe()
	logger.WithFields(logrus.Fields{
		"aes_hardware_support": hw.AESHardwareSupport,
		"arch":                 hw.Architecture,
		"go_version":           hw.GoVersion,
		"num_cpu":              hw.NumCPU,
	}).Info("host crypto capabilities")

	ctx := context.Background()
	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		ServiceName: "fragvault-server",
		Exporter:    telemetry.ExporterKind(cfg.Telemetry.Exporter),
		Endpoint:    cfg.Telemetry.Endpoint,
	})
	if err != nil {
		logger.WithError(err).Fatal("build tracer provider")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("tracer provider shutdown")
		}
	}()

	m := metrics.NewMetrics()
	m.SetHardwareAccelerationStatus("aes", hw.AESHardwareSupport)
	collectorCtx, stopCollector := context.WithCancel(context.Background())
	defer stopCollector()
	m.StartSystemMetricsCollector(collectorCtx)

	var g guard.Guard
	if cfg.Guard.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Guard.RedisAddr})
		g = guard.NewRedisGuard(client, "fragvault:guard:")
	}

	var auditor audit.Logger
	if cfg.Audit.Enabled {
		auditor, err = audit.NewLoggerFromSinkConfig(audit.SinkConfig{
			Type:     cfg.Audit.SinkType,
			Endpoint: cfg.Audit.Endpoint,
			FilePath: cfg.Audit.FilePath,
		})
		if err != nil {
			logger.WithError(err).Fatal("build audit logger")
		}
	} else {
		auditor = audit.NewLogger(0, nil)
	}
	defer auditor.Close()

	if cfg.WatchNodes {
		for _, node := range cfg.Nodes {
			watcher, err := storageio.NewNodeWatcher(node, logger)
			if err != nil {
				logger.WithError(err).WithField("node", node).Warn("node watcher unavailable")
				continue
			}
			defer watcher.Close()
			go func(node string, events <-chan storageio.NodeEvent) {
				for ev := range events {
					logger.WithFields(logrus.Fields{
						"node": ev.Node,
						"name": ev.Name,
						"op":   ev.Op,
					}).Warn("node blob changed externally")
				}
			}(node, watcher.Events)
		}
	}

	handler := api.NewHandler(api.NodeSource{
		Nodes:             cfg.Nodes,
		ReplicationFactor: cfg.ReplicationFactor,
		FragmentSize:      cfg.FragmentSize,
		Concurrency:       cfg.Concurrency,
	}, logger, m, g, auditor)

	router := mux.NewRouter()
	handler.RegisterRoutes(router)

	var chain http.Handler = router
	chain = middleware.RecoveryMiddleware(logger)(chain)
	chain = middleware.LoggingMiddleware(logger)(chain)

	srv := &http.Server{
		Addr:         addr,
		Handler:      chain,
		ReadTimeout:  cfg.Listen.ReadTimeout,
		WriteTimeout: cfg.Listen.WriteTimeout,
	}

	go func() {
		logger.WithField("addr", addr).Info("starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("server shutdown error")
	}
	fmt.Println("shutdown complete")
}
