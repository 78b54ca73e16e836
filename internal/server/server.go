package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/victornm/scholarway/internal/api"
	"github.com/victornm/scholarway/internal/authz"
	"github.com/victornm/scholarway/internal/event"
	"github.com/victornm/scholarway/internal/exam"
	"github.com/victornm/scholarway/internal/identity"
	"github.com/victornm/scholarway/internal/storage"
	"github.com/victornm/scholarway/internal/telemetry"
)

const (
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

type Config struct {
	HTTP struct {
		Port int32
	}

	GRPC struct {
		Port int32
	}

	Storage struct {
		// Driver is one of memory, redis or postgres.
		Driver string
	}

	Redis struct {
		Storage struct {
			Addrs  []string
			Pass   string
			Prefix string
		}

		// Pubsub carries user notifications. Notifications are disabled without addrs.
		Pubsub struct {
			Addrs  []string
			Pass   string
			Prefix string
		}
	}

	Postgres struct {
		Storage struct {
			Addr string
			User string
			Pass string
			Name string
		}
	}

	Exam struct {
		TickInterval time.Duration
		// CatalogPath points to a JSON array of tests. The bundled sample tests are used when empty.
		CatalogPath string
	}
}

// DefaultConfig is the preset merged under the config file.
func DefaultConfig() Config {
	var c Config
	c.HTTP.Port = 8080
	c.GRPC.Port = 8081
	c.Storage.Driver = StorageMemory
	c.Redis.Storage.Prefix = "scholarway"
	c.Redis.Pubsub.Prefix = "scholarway"
	c.Exam.TickInterval = time.Second
	return c
}

type Server struct {
	c Config

	eb *event.Bus

	infra struct {
		redis struct {
			storage redis.UniversalClient
			pubsub  redis.UniversalClient
		}

		postgres struct {
			storage *pgxpool.Pool
		}

		store storage.Store
	}

	service struct {
		identity *identity.Service
		authz    *authz.Service
		exam     *exam.Service
	}

	http   *http.Server
	grpc   *grpc.Server
	health *health.Server
}

func Init(c Config) (*Server, error) {
	s := &Server{c: c}

	s.eb = event.NewBus()

	if err := s.initInfra(); err != nil {
		return nil, fmt.Errorf("server: init infra: %w", err)
	}

	if err := s.initService(); err != nil {
		return nil, fmt.Errorf("server: init service: %w", err)
	}

	s.initAPI()
	return s, nil
}

func (s *Server) initInfra() error {
	switch s.c.Storage.Driver {
	case StorageMemory, "":
		s.infra.store = storage.NewMemory()

	case StorageRedis:
		r, err := connectRedis(s.c.Redis.Storage.Addrs, s.c.Redis.Storage.Pass)
		if err != nil {
			return fmt.Errorf("redis: storage: %w", err)
		}
		s.infra.redis.storage = r
		s.infra.store = storage.NewRedis(storage.RedisConfig{
			Redis:  r,
			Prefix: s.c.Redis.Storage.Prefix,
		})

	case StoragePostgres:
		pg := s.c.Postgres.Storage
		db, err := connectPostgres(pg.Addr, pg.User, pg.Pass, pg.Name)
		if err != nil {
			return fmt.Errorf("postgres: storage: %w", err)
		}
		s.infra.postgres.storage = db

		store := storage.NewPostgres(db)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := store.Migrate(ctx); err != nil {
			return fmt.Errorf("postgres: migrate: %w", err)
		}
		s.infra.store = store

	default:
		return fmt.Errorf("unknown storage driver %q", s.c.Storage.Driver)
	}

	if len(s.c.Redis.Pubsub.Addrs) == 0 {
		slog.Warn("server: redis pubsub not configured, notifications are disabled")
		return nil
	}

	r, err := connectRedis(s.c.Redis.Pubsub.Addrs, s.c.Redis.Pubsub.Pass)
	if err != nil {
		return fmt.Errorf("redis: pubsub: %w", err)
	}
	s.infra.redis.pubsub = r

	return nil
}

func connectRedis(addrs []string, pass string) (redis.UniversalClient, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	r := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    addrs,
		Password: pass,
	})

	if err := telemetry.MonitorRedis(r); err != nil {
		return nil, err
	}

	if err := r.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return r, nil
}

func connectPostgres(addr, user, pass, name string) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cc, err := pgxpool.ParseConfig(fmt.Sprintf("postgres://%s:%s@%s/%s", user, pass, addr, name))
	if err != nil {
		return nil, err
	}

	db, err := pgxpool.NewWithConfig(ctx, cc)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(ctx); err != nil {
		return nil, err
	}

	return db, nil
}

func (s *Server) initService() error {
	catalog, err := s.loadCatalog()
	if err != nil {
		return fmt.Errorf("exam catalog: %w", err)
	}

	s.service.identity = identity.NewService(identity.Config{
		Store: s.infra.store,
	})

	s.service.authz = authz.NewService(authz.Config{
		Store:    s.infra.store,
		EventBus: s.eb,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.service.authz.Init(ctx)

	s.service.exam = exam.NewService(exam.Config{
		Catalog:       catalog,
		Store:         s.infra.store,
		EventBus:      s.eb,
		NewTickerFunc: exam.NewTicker,
		TickInterval:  s.c.Exam.TickInterval,
	})

	return nil
}

func (s *Server) loadCatalog() (*exam.Catalog, error) {
	if s.c.Exam.CatalogPath == "" {
		return exam.DefaultCatalog(), nil
	}

	f, err := os.Open(s.c.Exam.CatalogPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return exam.ReadCatalog(f)
}

func (s *Server) initAPI() {
	e := gin.New()
	e.GET("/metrics", gin.WrapH(promhttp.Handler()))
	pprof.Register(e, "/debug/pprof")
	e.Use(gin.Recovery())

	s.grpc = grpc.NewServer(telemetry.GRPCServerOptions()...)
	s.health = health.NewServer()
	healthpb.RegisterHealthServer(s.grpc, s.health)

	c := api.Config{
		Router:       e,
		EventBus:     s.eb,
		Identity:     s.service.identity,
		Authz:        s.service.authz,
		Exam:         s.service.exam,
		PubsubPrefix: s.c.Redis.Pubsub.Prefix,
	}
	if s.infra.redis.pubsub != nil {
		c.Redis = s.infra.redis.pubsub
	}
	api.New(c)

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.c.HTTP.Port),
		Handler:           e,
		ReadHeaderTimeout: 60 * time.Second,
	}
}

func (s *Server) Start() {
	ctx := context.TODO()

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.c.GRPC.Port))
	if err != nil {
		slog.ErrorContext(ctx, "grpc server: listen failed", "error", err)
		panic(err)
	}

	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	var eg errgroup.Group
	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: gRPC listening on port %d", s.c.GRPC.Port))
		return s.grpc.Serve(lis)
	})

	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: HTTP listening on port %d", s.c.HTTP.Port))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	err = eg.Wait()
	if err != nil {
		slog.ErrorContext(ctx, "server: shutdown with error", "error", err)
	}
}

func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.health.Shutdown()

	s.grpc.GracefulStop()
	if err := s.http.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "server: shutdown HTTP failed", "error", err)
	}

	// No request can open a session past this point. Live sessions are exited before the bus drains.
	s.service.exam.Shutdown(ctx)
	s.eb.Stop()

	s.closeInfra(ctx)

	slog.InfoContext(ctx, "server: shutdown completed")
}

func (s *Server) closeInfra(ctx context.Context) {
	for name, r := range map[string]redis.UniversalClient{
		"storage": s.infra.redis.storage,
		"pubsub":  s.infra.redis.pubsub,
	} {
		if r == nil {
			continue
		}
		if err := r.Close(); err != nil {
			slog.ErrorContext(ctx, "server: close redis failed", "client", name, "error", err)
		}
	}

	if s.infra.postgres.storage != nil {
		s.infra.postgres.storage.Close()
	}
}
