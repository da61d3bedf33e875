// Command drinkless-server hosts the remote profile store over gRPC and REST.
package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/and161185/drinkless/internal/api"
	"github.com/and161185/drinkless/internal/config"
	"github.com/and161185/drinkless/internal/limiter"
	"github.com/and161185/drinkless/internal/migrate"
	"github.com/and161185/drinkless/internal/repository"
	"github.com/and161185/drinkless/internal/repository/memory"
	"github.com/and161185/drinkless/internal/repository/mongo"
	"github.com/and161185/drinkless/internal/repository/postgres"
	grpcserver "github.com/and161185/drinkless/internal/server/grpc"
	"github.com/and161185/drinkless/internal/server/httpapi"
	"github.com/and161185/drinkless/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// stores bundles the repositories of one backend with its cleanup.
type stores struct {
	users    repository.UserRepository
	profiles repository.ProfileRepository
	limit    limiter.Limiter
	close    func()
}

func openStores(ctx context.Context, cfg config.Server, log *zap.Logger) (*stores, error) {
	switch cfg.Store {
	case "postgres":
		if err := migrate.Up(ctx, cfg.DSN); err != nil {
			return nil, err
		}
		db, err := postgres.New(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return &stores{
			users:    postgres.NewUserRepo(db),
			profiles: postgres.NewProfileRepo(db),
			limit:    limiter.NewPG(db.Pool, limiter.DefaultPolicy()),
			close:    db.Close,
		}, nil
	case "mongo":
		st, err := mongo.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		if err := st.EnsureIndexes(ctx); err != nil {
			_ = st.Close(ctx)
			return nil, err
		}
		closeFn := func() {
			cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := st.Close(cctx); err != nil {
				log.Warn("mongo disconnect", zap.Error(err))
			}
		}
		return &stores{
			users:    mongo.NewUserRepo(st),
			profiles: mongo.NewProfileRepo(st),
			limit:    limiter.NewMemory(limiter.DefaultPolicy()),
			close:    closeFn,
		}, nil
	case "memory":
		log.Warn("using in-memory store, data is lost on exit")
		return &stores{
			users:    memory.NewUsers(),
			profiles: memory.NewProfiles(),
			limit:    limiter.NewMemory(limiter.DefaultPolicy()),
			close:    func() {},
		}, nil
	}
	return nil, errors.New("unknown store " + cfg.Store)
}

// main parses configuration, opens the store, and serves gRPC and REST until a signal arrives.
func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	if err := config.LoadDotEnv(); err != nil {
		logger.Fatal("load .env", zap.Error(err))
	}
	cfg := config.LoadServer()

	// Flags override the environment.
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "gRPC listen address")
	flag.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "REST listen address (empty disables REST)")
	flag.StringVar(&cfg.Store, "store", cfg.Store, "profile store: postgres, mongo or memory")
	flag.StringVar(&cfg.DSN, "dsn", cfg.DSN, "PostgreSQL DSN")
	flag.StringVar(&cfg.MongoURI, "mongo-uri", cfg.MongoURI, "MongoDB URI")
	flag.StringVar(&cfg.MongoDB, "mongo-db", cfg.MongoDB, "MongoDB database")
	flag.StringVar(&cfg.JWTKey, "jwt-key", cfg.JWTKey, "HS256 signing key (required)")
	flag.DurationVar(&cfg.AccessTTL, "access-ttl", cfg.AccessTTL, "access token TTL")
	flag.StringVar(&cfg.TLSCert, "tls-cert", cfg.TLSCert, "TLS certificate (PEM)")
	flag.StringVar(&cfg.TLSKey, "tls-key", cfg.TLSKey, "TLS private key (PEM)")
	flag.BoolVar(&cfg.Dev, "dev", cfg.Dev, "plaintext gRPC and server reflection (dev only)")
	flag.Parse()

	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Addr),
		zap.String("httpAddr", cfg.HTTPAddr),
		zap.String("store", cfg.Store),
	)

	if cfg.JWTKey == "" {
		logger.Fatal("missing jwt signing key (--jwt-key or JWT_KEY)")
	}

	opts := []grpc.ServerOption{}
	if !cfg.Dev {
		creds, err := credentials.NewServerTLSFromFile(cfg.TLSCert, cfg.TLSKey)
		if err != nil {
			logger.Fatal("failed to load TLS cert/key", zap.Error(err))
		}
		opts = append(opts, grpc.Creds(creds))
	}

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("open store", zap.Error(err))
	}
	defer st.close()

	// Services
	authSvc := service.NewAuthService(st.users, st.profiles, []byte(cfg.JWTKey), cfg.AccessTTL)
	profileSvc := service.NewProfileService(st.profiles)

	// gRPC server with interceptors
	opts = append(opts, grpc.ChainUnaryInterceptor(
		grpcserver.RecoverUnary(logger),
		grpcserver.AuthUnary(authSvc.VerifyToken),
		grpcserver.LoggingUnary(logger),
	))
	s := grpc.NewServer(opts...)
	api.RegisterProfilesServer(s, grpcserver.New(authSvc, profileSvc).WithLimiter(st.limit))

	// Health & reflection (dev)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	if cfg.Dev {
		reflection.Register(s)
	}

	lis, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		logger.Fatal("listen", zap.Error(err))
	}

	var hsrv *http.Server
	if cfg.HTTPAddr != "" {
		hsrv = &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           httpapi.New(authSvc, profileSvc, logger).Router(cfg.AllowedOrigins),
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("grpc listening", zap.String("addr", cfg.Addr), zap.Bool("tls", !cfg.Dev))
		return s.Serve(lis)
	})
	if hsrv != nil {
		g.Go(func() error {
			logger.Info("http listening", zap.String("addr", cfg.HTTPAddr))
			if err := hsrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		hs.Shutdown()
		shutdown(s, hsrv, logger)
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		logger.Error("server error", zap.Error(err))
		st.close()
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

// shutdown stops both servers, forcing gRPC after five seconds.
func shutdown(s *grpc.Server, hsrv *http.Server, log *zap.Logger) {
	if hsrv != nil {
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := hsrv.Shutdown(cctx); err != nil {
			log.Warn("http shutdown", zap.Error(err))
		}
	}
	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		s.Stop()
	}
}
