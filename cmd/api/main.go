package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"homegrid.io/internal/auth"
	"homegrid.io/internal/httpapi"
	"homegrid.io/internal/listing"
	"homegrid.io/internal/obs"
	pgstore "homegrid.io/internal/store/pg"
	"homegrid.io/internal/stream"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	dsn := os.Getenv("HOMEGRID_PG_DSN")
	if dsn == "" {
		log.Fatal("HOMEGRID_PG_DSN is required")
	}
	store, err := pgstore.Open(dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer func() { _ = store.Close() }()

	secret := os.Getenv("HOMEGRID_AUTH_SECRET")
	if secret == "" {
		log.Fatal("HOMEGRID_AUTH_SECRET is required")
	}
	tokens, err := auth.NewTokenService(secret, envDuration("HOMEGRID_TOKEN_TTL", auth.DefaultTokenTTL))
	if err != nil {
		log.Fatalf("token service: %v", err)
	}

	// The deployed login window is tighter than the library default.
	limiter := auth.NewLoginLimiter(
		envInt("HOMEGRID_LOGIN_MAX_ATTEMPTS", auth.DefaultMaxAttempts),
		envDuration("HOMEGRID_LOGIN_WINDOW", time.Minute),
	)

	authSvc, err := auth.NewService(store, tokens, limiter)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}
	directory, err := auth.NewDirectory(store)
	if err != nil {
		log.Fatalf("directory: %v", err)
	}
	listings, err := listing.NewService(store)
	if err != nil {
		log.Fatalf("listing service: %v", err)
	}

	feed := stream.New()
	readyProbe := httpapi.ReadyProbe{DB: store.DB()}

	api := httpapi.New(httpapi.Config{
		Auth:       authSvc,
		Directory:  directory,
		Listings:   listings,
		Stream:     feed,
		ReadyProbe: readyProbe,
		UploadDir:  envString("HOMEGRID_UPLOAD_DIR", "uploads"),
		Version:    version,
	})

	srv := &http.Server{
		Addr:              envString("HOMEGRID_ADDR", ":8080"),
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Drop idle login-limiter keys in the background.
	sweepDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-sweepDone:
				return
			case <-ticker.C:
				limiter.Sweep()
			}
		}
	}()

	var grpcSrv *grpc.Server
	if addr := os.Getenv("HOMEGRID_GRPC_ADDR"); addr != "" {
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			log.Fatalf("grpc listen: %v", err)
		}
		grpcSrv = grpc.NewServer()
		httpapi.NewHealthServer(readyProbe).Register(grpcSrv)
		go func() {
			log.Printf("Starting homegrid-api gRPC health on %s", addr)
			if err := grpcSrv.Serve(lis); err != nil {
				log.Printf("grpc serve: %v", err)
			}
		}()
	}

	log.Printf("Starting homegrid-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")
	close(sweepDone)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	log.Println("Stopped")
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("%s must be an integer: %v", key, err)
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("%s must be a duration: %v", key, err)
	}
	return d
}
