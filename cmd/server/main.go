package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mpetrashov/projecthub/internal/config"
	"github.com/mpetrashov/projecthub/internal/db"
	"github.com/mpetrashov/projecthub/internal/events"
	"github.com/mpetrashov/projecthub/internal/httpserver"
	"github.com/mpetrashov/projecthub/internal/logging"
	"github.com/mpetrashov/projecthub/internal/middleware"
	"github.com/mpetrashov/projecthub/internal/models"
	"github.com/mpetrashov/projecthub/internal/repo"
	"github.com/mpetrashov/projecthub/internal/search"
	"github.com/mpetrashov/projecthub/internal/service"
	"github.com/mpetrashov/projecthub/internal/tokens"
)

func main() {
	cfg := config.Load()

	logger := logging.New(cfg.LogLevel)
	slog.SetDefault(logger)

	method, err := tokens.MethodFromName(cfg.JWTAlgorithm)
	if err != nil {
		log.Fatalf("jwt config error: %v", err)
	}
	codec := tokens.NewCodec(cfg.JWTSecret, method)

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	gdb, err := db.Open(initCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	if err := gdb.AutoMigrate(&models.User{}, &models.RefreshToken{}, &models.Project{}); err != nil {
		log.Fatalf("db migrate error: %v", err)
	}

	rp := repo.GormRepo{DB: gdb}

	var publisher events.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		producer := events.NewProducer(cfg.KafkaBrokers)
		defer producer.Close()
		publisher = producer
	}

	var indexer service.Indexer
	var searcher httpserver.Searcher
	if cfg.ESURL != "" {
		es, err := search.NewClient(cfg.ESURL, cfg.ESUser, cfg.ESPassword)
		if err != nil {
			log.Fatalf("elasticsearch init error: %v", err)
		}
		idx := &search.Index{ES: es, Name: search.DefaultIndexName}
		indexer = idx
		searcher = idx
	}

	authSvc := &service.AuthService{
		Repo:       rp,
		Codec:      codec,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
		Events:     publisher,
	}
	projectSvc := &service.ProjectService{
		Repo:   rp,
		Events: publisher,
		Index:  indexer,
	}

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second
	e.Use(middleware.RequestLogger(logger))

	httpserver.Register(e, &httpserver.Deps{
		Auth:     &httpserver.AuthHTTP{Svc: authSvc},
		Projects: &httpserver.ProjectHTTP{Svc: projectSvc, Search: searcher},
		AuthMW:   middleware.NewSimpleAuth(codec, rp),
	})

	go func() {
		addr := fmt.Sprintf(":%d", cfg.ServerPort)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("echo start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("echo shutdown: %v", err)
	}
}
