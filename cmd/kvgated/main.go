// kvgated serves a token-namespaced key-value store over HTTP and gRPC,
// backed by Redis. Both front-ends share one store core; they differ only
// in wire shapes and status mapping.
//
// Configuration (environment):
//
//	REDIS_URL        backend connection string (default "redis://127.0.0.1:6379")
//	HTTP_ADDR        REST listen address       (default ":3000")
//	GRPC_ADDR        gRPC listen address       (default ":50051")
//	ENABLE_HTTP      serve the REST adapter    (default "true")
//	ENABLE_GRPC      serve the gRPC adapter    (default "true")
//	TOKEN_CACHE_TTL  validation cache, e.g. "30s"; empty/0 disables
//	LOG_LEVEL        zap level                 (default "info")
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/unkn0wn-root/kvgate"
	backendredis "github.com/unkn0wn-root/kvgate/backend/redis"
	"github.com/unkn0wn-root/kvgate/httpapi"
	zaplog "github.com/unkn0wn-root/kvgate/log/zap"
	"github.com/unkn0wn-root/kvgate/rpc"
)

type config struct {
	redisURL      string
	httpAddr      string
	grpcAddr      string
	enableHTTP    bool
	enableGRPC    bool
	tokenCacheTTL time.Duration
	logLevel      string
}

func loadConfig() config {
	return config{
		redisURL:      envStr("REDIS_URL", "redis://127.0.0.1:6379"),
		httpAddr:      envStr("HTTP_ADDR", ":3000"),
		grpcAddr:      envStr("GRPC_ADDR", ":50051"),
		enableHTTP:    envBool("ENABLE_HTTP", true),
		enableGRPC:    envBool("ENABLE_GRPC", true),
		tokenCacheTTL: envDur("TOKEN_CACHE_TTL", 0),
		logLevel:      envStr("LOG_LEVEL", "info"),
	}
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	switch os.Getenv(key) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return def
	}
}

func envDur(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func main() {
	cfg := loadConfig()

	zcfg := zap.NewProductionConfig()
	if lvl, err := zap.ParseAtomicLevel(cfg.logLevel); err == nil {
		zcfg.Level = lvl
	}
	logger, err := zcfg.Build()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("kvgated exited", zap.Error(err))
	}
}

func run(cfg config, logger *zap.Logger) error {
	if !cfg.enableHTTP && !cfg.enableGRPC {
		return errors.New("no servers enabled, set ENABLE_HTTP or ENABLE_GRPC")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("connecting to backend", zap.String("url", cfg.redisURL))
	bk, err := backendredis.Connect(ctx, cfg.redisURL)
	if err != nil {
		return err
	}

	store, err := kvgate.New(kvgate.Options{
		Backend:       bk,
		Logger:        zaplog.ZapLogger{L: logger.Named("store")},
		TokenCacheTTL: cfg.tokenCacheTTL,
	})
	if err != nil {
		return err
	}
	defer func() { _ = store.Close(context.Background()) }()

	if !store.Health(ctx) {
		return errors.New("backend unhealthy at startup")
	}

	g, ctx := errgroup.WithContext(ctx)

	if cfg.enableHTTP {
		srv := &http.Server{
			Addr:              cfg.httpAddr,
			Handler:           httpapi.NewHandler(store, zaplog.ZapLogger{L: logger.Named("http")}),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			logger.Info("http server listening", zap.String("addr", cfg.httpAddr))
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}

	if cfg.enableGRPC {
		lis, err := net.Listen("tcp", cfg.grpcAddr)
		if err != nil {
			return err
		}
		srv := grpc.NewServer()
		rpc.Register(srv, rpc.NewService(store, zaplog.ZapLogger{L: logger.Named("grpc")}))
		g.Go(func() error {
			logger.Info("grpc server listening", zap.String("addr", cfg.grpcAddr))
			return srv.Serve(lis)
		})
		g.Go(func() error {
			<-ctx.Done()
			srv.GracefulStop()
			return nil
		})
	}

	err = g.Wait()
	logger.Info("kvgated stopped")
	return err
}
