package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront-backend/internal/api"
	"storefront-backend/internal/auth"
	"storefront-backend/internal/cache"
	"storefront-backend/internal/config"
	"storefront-backend/internal/database"
	"storefront-backend/internal/repository"
	"storefront-backend/internal/repository/memory"
	"storefront-backend/internal/service"
	"storefront-backend/internal/uploads"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type stores struct {
	users    repository.UserRepository
	products repository.ProductRepository
	orders   repository.OrderRepository
	carts    repository.CartRepository
	ready    func(context.Context) error
	close    func()
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func openStores(ctx context.Context, cfg *config.Config, log *slog.Logger) (*stores, error) {
	if cfg.StoreDriver == "memory" {
		log.Warn("using in-memory store, data is lost on restart")
		m := memory.New()
		return &stores{
			users:    m.Users(),
			products: m.Products(),
			orders:   m.Orders(),
			carts:    m.Carts(),
			close:    func() {},
		}, nil
	}

	client, err := database.Connect(ctx, cfg.MongoURI)
	if err != nil {
		return nil, err
	}
	db := client.Database(cfg.MongoDB)
	if err := database.EnsureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	log.Info("mongodb connected", "database", cfg.MongoDB)

	return &stores{
		users:    repository.NewUserRepository(db),
		products: repository.NewProductRepository(db),
		orders:   repository.NewOrderRepository(db),
		carts:    repository.NewCartRepository(db),
		ready: func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		},
		close: func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Disconnect(ctx); err != nil {
				log.Error("mongodb disconnect failed", "error", err)
			}
		},
	}, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log := newLogger(cfg.LogLevel)
	slog.SetDefault(log)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer st.close()

	products := st.products
	if cfg.RedisURL != "" {
		rdb, err := cache.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			log.Error("failed to connect redis", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		products = cache.NewCachedProductRepository(products, rdb, cfg.CacheTTL, log)
		log.Info("product cache enabled", "ttl", cfg.CacheTTL)
	}

	images, err := uploads.New(cfg.UploadDir, cfg.MaxUploadBytes)
	if err != nil {
		log.Error("failed to prepare upload dir", "error", err)
		os.Exit(1)
	}

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	router := api.NewRouter(api.Deps{
		Auth:        service.NewAuthService(st.users, tokens, log),
		Products:    service.NewProductService(products, images, log),
		Orders:      service.NewOrderService(st.orders, products, st.carts, log),
		Carts:       service.NewCartService(st.carts, products),
		Uploads:     images,
		Log:         log,
		CORSOrigins: cfg.CORSOrigins,
		Ready:       st.ready,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
