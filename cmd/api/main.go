// Command api starts the StudySwap matching and notification service.
package main

import (
	"context"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"studyswap.org/internal/auth"
	"studyswap.org/internal/catalog"
	"studyswap.org/internal/discovery"
	"studyswap.org/internal/fanout"
	"studyswap.org/internal/httpapi"
	"studyswap.org/internal/match"
	"studyswap.org/internal/notify"
	"studyswap.org/internal/obs"
	"studyswap.org/internal/store/pg"
	"studyswap.org/internal/trust"
	"studyswap.org/migrations"
)

var version = "0.3.1"

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	grpcAddr := flag.String("grpc-addr", "", "gRPC health listen address (disabled when empty)")
	sweep := flag.Duration("sweep", time.Minute, "match expiry sweep interval")
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	obs.Init()

	// Postgres when a DSN is configured, in-memory stores otherwise
	// (dev and smoke runs).
	var (
		store      *pg.Store
		probe      httpapi.ReadyProbe
		matchStore match.Store
		noteStore  notify.Store
		trustStore trust.Store
		catStore   catalog.Store
	)
	if dsn := os.Getenv("STUDYSWAP_PG_DSN"); dsn != "" {
		var err error
		store, err = pg.Open(dsn)
		if err != nil {
			logger.Fatal("open db", zap.Error(err))
		}
		if err := migrations.Run(store.DB()); err != nil {
			logger.Fatal("migrate", zap.Error(err))
		}
		probe = httpapi.ReadyProbe{DB: store.DB()}
		matchStore = store.Matches()
		noteStore = store.Notifications()
		trustStore = store.Trust()
		catStore = store.Materials()
	} else {
		logger.Warn("STUDYSWAP_PG_DSN not set; using in-memory stores")
		matchStore = match.NewInMemory()
		noteStore = notify.NewInMemory()
		trustStore = trust.NewInMemory()
		catStore = catalog.NewInMemory()
	}

	var verifier *auth.Verifier
	if secret := os.Getenv("STUDYSWAP_AUTH_SECRET"); secret != "" {
		var err error
		verifier, err = auth.NewVerifier(secret)
		if err != nil {
			logger.Fatal("auth", zap.Error(err))
		}
	} else {
		logger.Warn("STUDYSWAP_AUTH_SECRET not set; API runs unauthenticated")
	}

	registry := fanout.New(fanout.DefaultBuffer, logger)
	dispatcher := notify.NewDispatcher(noteStore, registry, nil, nil, logger)
	ledger := trust.NewLedger(trustStore, dispatcher, logger)
	disc := discovery.NewService(catStore)
	materials := catalog.NewService(catStore, dispatcher, logger)
	matches := match.NewService(matchStore, catStore, disc, ledger, dispatcher, logger)

	api := httpapi.New(probe, version, matches, disc, materials, dispatcher, registry, verifier, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweeper := match.NewSweeper(matchStore, matches, logger)
	sweeper.SetTickInterval(*sweep)
	go sweeper.Run(ctx)

	if *grpcAddr != "" {
		lis, err := net.Listen("tcp", *grpcAddr)
		if err != nil {
			logger.Fatal("grpc listen", zap.Error(err))
		}
		gs := grpc.NewServer()
		hs := health.NewServer()
		healthpb.RegisterHealthServer(gs, hs)
		hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		go func() {
			if err := gs.Serve(lis); err != nil {
				logger.Error("grpc serve", zap.Error(err))
			}
		}()
		defer gs.GracefulStop()
		logger.Info("grpc health listening", zap.String("addr", *grpcAddr))
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
		// no WriteTimeout: the SSE stream is long-lived by design
	}

	logger.Info("starting studyswap-api",
		zap.String("version", version), zap.String("addr", srv.Addr))

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)

	if store != nil {
		_ = store.Close()
	}
	logger.Info("stopped")
}
