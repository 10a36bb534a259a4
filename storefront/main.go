package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"delive/config"
	httpapi "delive/storefront/internal/api/http"
	"delive/storefront/internal/service"
	"delive/storefront/internal/storage"

	"github.com/sirupsen/logrus"
)

func main() {
	addr := flag.String("addr", "", "listen address, overrides HTTP_ADDR")
	seed := flag.Bool("seed", false, "load category.csv and source_data.csv from DATA_DIR before serving")
	bootstrapAdmin := flag.Bool("bootstrap-admin", false, "create the ADMIN_EMAIL account if it does not exist")
	flag.Parse()

	settings, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	if *addr != "" {
		settings.HTTPAddr = *addr
	}

	logger := config.NewLogger(settings.LogLevel, settings.LogFormat)
	log := logger.WithField("service", "storefront")

	db := config.MustInitPostgres(settings, log)
	defer db.Close()

	rdb := config.MustInitRedis(settings, log)
	defer rdb.Close()

	repo := storage.NewPostgresRepository(db)
	ctx := context.Background()
	if err := repo.EnsureSchema(ctx); err != nil {
		log.WithError(err).Fatal("failed to ensure schema")
	}

	var publisher service.OrderPublisher
	if writer := config.NewKafkaWriter(settings); writer != nil {
		defer writer.Close()
		publisher = storage.NewKafkaPublisher(writer)
	} else {
		log.Warn("KAFKA_BROKER is not set, order events are disabled")
	}

	popularity := storage.NewRedisPopularity(rdb)
	sessions := storage.NewRedisSessionStore(rdb, settings.SessionTTL)
	qr := service.DefaultQRGenerator{BaseURL: settings.PublicBaseURL}

	seeder := service.NewSeeder(repo, log)
	catalogSvc := service.NewCatalogService(repo, popularity, log)
	cartSvc := service.NewCartService(repo, log)
	orderSvc := service.NewOrderService(repo, repo, publisher, popularity, qr, log)
	authSvc := service.NewAuthService(repo, log)
	adminSvc := service.NewAdminService(repo, repo, seeder, settings.DataDir, log)

	if *bootstrapAdmin {
		created, err := authSvc.EnsureAdmin(ctx, settings.AdminEmail, settings.AdminPassword)
		if err != nil {
			log.WithError(err).Fatal("failed to bootstrap administrator")
		}
		log.WithField("created", created).Info("administrator checked")
	}
	if *seed {
		result, err := seeder.LoadDir(ctx, settings.DataDir)
		if err != nil {
			log.WithError(err).Fatal("failed to seed catalog")
		}
		log.WithFields(logrus.Fields{
			"categories": result.Categories,
			"dishes":     result.Dishes,
		}).Info("catalog loaded")
	}

	sessionManager := httpapi.NewSessionManager(sessions, settings.SessionSecret,
		settings.SessionTTL, settings.SessionCookieSecure, log)
	handler := httpapi.NewHandler(catalogSvc, cartSvc, orderSvc, authSvc, adminSvc, sessionManager, log)
	srv := httpapi.NewServer(settings.HTTPAddr, httpapi.NewRouter(handler, log))

	go func() {
		if err := httpapi.StartServer(srv, log); err != nil {
			log.WithError(err).Fatal("server stopped")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
	log.Info("storefront stopped")
}
