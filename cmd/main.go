package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"taskboard-app/taskboard/broker"
	"taskboard-app/taskboard/config"
	"taskboard-app/taskboard/database"
	"taskboard-app/taskboard/middleware"
	"taskboard-app/taskboard/routes"
	"taskboard-app/taskboard/services"
)

func main() {
	cfg := config.Load()

	db, err := database.Setup(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// The broker mirrors task events for external consumers; the sync
	// pipeline itself does not depend on it.
	if err := broker.InitProducer(cfg.NatsURL); err != nil {
		log.Printf("Warning: Failed to initialize NATS producer: %v", err)
		log.Println("The application will continue, but events will not be mirrored to the broker")
	} else {
		defer broker.CloseProducer()
	}

	broadcaster := services.NewBroadcaster()

	webSocketService := services.NewWebSocketService(broadcaster)
	services.WebSocketServiceInstance = webSocketService
	defer webSocketService.Stop()

	syncService := services.NewSyncService(services.TaskServiceInstance, broadcaster)
	services.SyncServiceInstance = syncService

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	router.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")
	routes.RegisterTaskRoutes(apiGroup, db, services.TaskServiceInstance, syncService)
	routes.RegisterTagRoutes(apiGroup, db, services.TagServiceInstance)
	routes.RegisterWebSocketRoutes(apiGroup, webSocketService)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-quit
		log.Println("Shutting down server...")
		webSocketService.Stop()
		broker.CloseProducer()
		db.Close()
		os.Exit(0)
	}()

	log.Printf("API server is running on port %s", cfg.AppPort)
	if err := http.ListenAndServe(":"+cfg.AppPort, router); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
