package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lldcore/engine/internal/api"
	"github.com/lldcore/engine/internal/cache"
	"github.com/lldcore/engine/internal/catalog"
	"github.com/lldcore/engine/internal/config"
	"github.com/lldcore/engine/internal/eventbus"
	"github.com/lldcore/engine/internal/gate"
	"github.com/lldcore/engine/internal/observability"
	"github.com/lldcore/engine/internal/pipeline"
	"github.com/lldcore/engine/internal/reconcile"
	"github.com/lldcore/engine/internal/regexset"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to a config file (optional, overridden by LLD_* env vars)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("lld: failed to load configuration: %v", err)
	}

	shutdownTracing := observability.InitOpenTelemetryOrNoop(context.Background(), "lld-workerd", version)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			log.Printf("lld: error shutting down tracing: %v", err)
		}
	}()
	tracer := otelTracer()

	store, closeCatalog := mustOpenCatalog(cfg.Catalog)
	if closeCatalog != nil {
		defer closeCatalog()
	}
	log.Printf("lld: catalog opened (driver=%s)", cfg.Catalog.Driver)

	names := regexset.NewRegistry()
	cacheSource := cache.NewStaticSource(nil)
	c := cache.New(gate.NewRegistry(), names, cacheSource)

	emitter := eventbus.NewEmitter(cfg.Pipeline.EventBufferSize)
	emitter.Start()
	defer emitter.Stop()

	orchestrator := pipeline.New(pipeline.Deps{
		Catalog:     store,
		Cache:       c,
		Emitter:     emitter,
		Reconcilers: reconcile.NewLoggingFanOut(),
	})

	process := func(ruleID string, payload []byte) error {
		return orchestrator.Process(context.Background(), ruleID, payload)
	}

	handler := api.NewServer(store, process, tracer, int64(cfg.HTTP.MaxBodyBytes))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.HTTP.IdleTimeout) * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("lld-workerd %s (%s) listening on :%d", version, commit, cfg.HTTP.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("lld: HTTP server error: %v", err)
		}
	}()

	<-stop
	log.Println("lld: shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("lld: server shutdown error: %v", err)
	}
	log.Println("lld: stopped")
}

func otelTracer() trace.Tracer {
	return otel.Tracer("lld-workerd")
}

func mustOpenCatalog(cfg config.CatalogConfig) (catalog.AdminStore, func()) {
	switch cfg.Driver {
	case "sqlite":
		db, err := catalog.NewSQLite(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("lld: failed to open sqlite catalog at %s: %v", cfg.SQLitePath, err)
		}
		return db, func() {
			if err := db.Close(); err != nil {
				log.Printf("lld: error closing catalog: %v", err)
			}
		}
	case "memory", "":
		return catalog.NewMemory(), nil
	default:
		log.Fatalf("lld: unknown catalog driver %q", cfg.Driver)
		return nil, nil
	}
}
