package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"quickbite-api/config"
	"quickbite-api/delivery"
	"quickbite-api/gateway"
	"quickbite-api/handlers"
	"quickbite-api/middleware"
	"quickbite-api/orders"
	"quickbite-api/payments"
	"quickbite-api/routes"
	"quickbite-api/store"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.DebugMode)
	}

	cfg := config.Load()

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	st := store.New(db)

	gw := gateway.NewHTTPClient(cfg.Gateway.BaseURL, cfg.Gateway.KeyID, cfg.Gateway.KeySecret)
	sims := delivery.NewRegistry(st, delivery.DefaultConfig())
	links := payments.NewLinkManager(st, gw, cfg.Gateway.CallbackBase, cfg.Currency)
	reconciler := payments.NewReconciler(st, sims, cfg.Gateway.WebhookSecret)
	resolver := payments.NewResolver(st, gw)
	svc := orders.NewService(st, links, sims)
	auth := middleware.NewAuth(cfg.JWTSecret)

	r := gin.Default()

	// CORS middleware for frontend integration
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization, "+handlers.SignatureHeader)
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "QuickBite Order & Payment API",
			"version": "1.0.0",
		})
	})

	routes.SetupRoutes(r, routes.Handlers{
		Auth:     auth,
		Account:  handlers.NewAuthHandler(st, auth),
		Orders:   handlers.NewOrderHandler(svc, st, links),
		Payments: handlers.NewPaymentHandler(reconciler, resolver),
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		log.Info().Str("port", cfg.Port).Msg("server running")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down, stopping delivery simulations")
	sims.StopAll()
	_ = srv.Close()
}
