package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"coursechat/internal/di"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	log.Println("Initializing chat server...")
	app, err := di.InitializeApplication()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	hubCtx, stopHub := context.WithCancel(context.Background())
	go app.Hub.Run(hubCtx)

	fiberApp := app.App.Fiber()
	addr := fmt.Sprintf("%s:%s", app.Config.Server.Host, app.Config.Server.Port)

	go func() {
		log.Printf("Chat server listening on %s", addr)
		if err := fiberApp.Listen(addr); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down chat server...")

	if err := fiberApp.ShutdownWithTimeout(30 * time.Second); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	stopHub()

	if sqlDB, err := app.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("Database close failed: %v", err)
		}
	}

	log.Println("Chat server gracefully stopped")
}
