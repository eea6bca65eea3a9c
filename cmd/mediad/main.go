package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
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

	log.Println("Initializing media service...")
	svc, err := di.InitializeMediaService()
	if err != nil {
		log.Fatalf("Failed to initialize media service: %v", err)
	}

	server := &http.Server{
		Addr:           fmt.Sprintf("%s:%s", svc.Config.Server.Host, svc.Config.Media.Port),
		Handler:        svc.Server.Router(),
		ReadTimeout:    time.Duration(svc.Config.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(svc.Config.Server.WriteTimeout) * time.Second,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	go func() {
		log.Printf("Media service listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down media service...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	if err := svc.Mongo.Close(ctx); err != nil {
		log.Printf("Mongo close failed: %v", err)
	}

	log.Println("Media service gracefully stopped")
}
