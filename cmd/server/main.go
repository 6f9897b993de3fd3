package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/rbac-admin/internal/auth"
	"github.com/iliyamo/rbac-admin/internal/cache"
	"github.com/iliyamo/rbac-admin/internal/config"
	"github.com/iliyamo/rbac-admin/internal/database"
	"github.com/iliyamo/rbac-admin/internal/handler"
	"github.com/iliyamo/rbac-admin/internal/queue"
	"github.com/iliyamo/rbac-admin/internal/repository"
	"github.com/iliyamo/rbac-admin/internal/router"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on process environment")
	}
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	users := repository.NewUserRepo(db)
	roles := repository.NewRoleRepo(db)
	perms := repository.NewPermissionRepo(db)
	tokens := repository.NewTokenRepo(db)

	events := queue.NewPublisher(cfg.AMQPURL)
	if events != nil {
		defer events.Close()
	}

	verifier := auth.NewVerifier(users)
	tokenSvc := auth.NewTokenService(
		cfg.AccessSecret, time.Duration(cfg.AccessTTLMin)*time.Minute,
		cfg.RefreshSecret, time.Duration(cfg.RefreshTTLDays)*24*time.Hour,
		tokens, events,
	)
	resolver := auth.NewResolver(users)

	cacheCfg := config.LoadCacheConfig()
	var store cache.Store
	if rdb := config.NewRedisClient(); rdb != nil {
		store = cache.NewRedisStore(rdb)
		log.Println("response cache: redis")
	} else {
		store = cache.NewMemoryStore()
		log.Println("response cache: in-memory")
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	router.Register(e, router.Deps{
		Auth:        handler.NewAuthHandler(verifier, tokenSvc, users, events),
		Users:       handler.NewUserHandler(users, resolver, cfg.BcryptCost),
		Roles:       handler.NewRoleHandler(roles),
		Permissions: handler.NewPermissionHandler(perms),
		Tokens:      tokenSvc,
		Resolver:    resolver,
		CacheConfig: cacheCfg,
		CacheStore:  store,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	addr := ":" + cfg.Port
	g.Go(func() error {
		log.Printf("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	if cfg.AMQPURL != "" {
		g.Go(func() error {
			queue.StartAuthEventConsumer(ctx, cfg.AMQPURL)
			return nil
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal(err)
	}
}
