package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crackers-backend/internal/api/handler"
	"crackers-backend/internal/api/middleware"
	"crackers-backend/internal/api/router"
	"crackers-backend/internal/auth"
	"crackers-backend/internal/config"
	"crackers-backend/internal/logger"
	"crackers-backend/internal/notify"
	"crackers-backend/internal/realtime"
	"crackers-backend/internal/service"
	"crackers-backend/internal/store"
	"crackers-backend/internal/store/memstore"
	"crackers-backend/internal/store/mongostore"
	"crackers-backend/internal/upload"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	if err := logger.Init(logger.ConfigFromEnv()); err != nil {
		logrus.WithError(err).Fatal("failed to initialise logger")
	}
	log := logger.WithModule("main")

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	gin.SetMode(cfg.GinMode)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	st, err := openStore(ctx, cfg)
	cancel()
	if err != nil {
		log.WithError(err).Fatal("failed to open store")
	}

	var remote upload.Remote
	if cfg.CloudinaryURL != "" {
		cld, err := upload.NewCloudinary(cfg.CloudinaryURL)
		if err != nil {
			log.WithError(err).Fatal("invalid CLOUDINARY_URL")
		}
		remote = cld
	}
	images := upload.New(upload.NewLocal(cfg.UploadDir, cfg.PublicBaseURL), remote, int64(cfg.MaxUploadMB)<<20)

	mailer := notify.New(notify.Config{
		Host:        cfg.SMTPHost,
		Port:        cfg.SMTPPort,
		User:        cfg.SMTPUser,
		Password:    cfg.SMTPPassword,
		From:        cfg.MailFrom,
		FrontendURL: cfg.FrontendURL,
	})
	hub := realtime.NewHub(cfg.Origins())

	tokens := auth.NewIssuer(cfg.JwtSecret,
		time.Duration(cfg.JwtExpiryHours)*time.Hour,
		time.Duration(cfg.AdminJwtExpiryHours)*time.Hour)
	accounts := service.NewAccounts(st.Users, tokens)
	catalog := service.NewCatalog(st, images)
	cart := service.NewCart(st)
	orders := service.NewOrders(st, images, mailer, hub)
	admins := service.NewAdmins(st.Admins, tokens)

	if cfg.SeedAdminEmail != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := admins.Seed(ctx, cfg.SeedAdminEmail, cfg.SeedAdminPassword); err != nil {
			log.WithError(err).Error("failed to seed super admin")
		}
		cancel()
	}

	stop := make(chan struct{})
	var limiter *middleware.RateLimiter
	if cfg.RateLimitEnabled {
		limiter = middleware.NewRateLimiter(cfg.RateLimitMax, time.Duration(cfg.RateLimitWindow)*time.Second)
		go limiter.Run(stop)
	}

	engine, err := router.New(router.Deps{
		Handler:   handler.New(st, accounts, catalog, cart, orders, admins),
		Tokens:    tokens,
		Users:     st.Users,
		Admins:    st.Admins,
		Websocket: hub.Serve,
	}, router.Options{
		Origins:     cfg.Origins(),
		RateLimiter: limiter,
		UploadDir:   cfg.UploadDir,
		MaxUploadMB: cfg.MaxUploadMB,
	})
	if err != nil {
		log.WithError(err).Fatal("failed to build router")
	}

	srv := &http.Server{
		Addr:              cfg.Address,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.WithFields(logrus.Fields{"address": cfg.Address, "store": cfg.StoreDriver}).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")
	close(stop)

	ctx, cancel = context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
	mailer.Close()
	if err := st.Close(ctx); err != nil {
		log.WithError(err).Error("failed to close store")
	}
}

func openStore(ctx context.Context, cfg *config.Configuration) (*store.Store, error) {
	if cfg.StoreDriver == "memory" {
		logger.WithModule("main").Warn("using in-memory store, data is lost on restart")
		return memstore.New(), nil
	}
	return mongostore.Connect(ctx, mongostore.Options{
		URI:         cfg.MongoURL,
		Database:    cfg.MongoDB,
		MaxPoolSize: uint64(cfg.MongoMaxPoolSize),
	})
}
