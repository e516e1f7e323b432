package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tideraider/surf-alert-server/internal/database"
	"github.com/tideraider/surf-alert-server/internal/queue"
	"github.com/tideraider/surf-alert-server/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	fmt.Println("Starting Forecast DB Writer...")

	// Connect to database
	db, err := database.Connect(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	fmt.Println("Connected to database")

	// Create consumer for scraped forecasts
	consumer := queue.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicForecasts, "dbwriter-group")
	defer consumer.Close()
	fmt.Println("Kafka consumer initialized")

	// Create and start batch writer
	writer := queue.NewBatchWriter(consumer, db, 50, 10*time.Second)

	ctx := context.Background()
	if err := writer.Start(ctx); err != nil {
		log.Fatalf("Failed to start batch writer: %v", err)
	}

	fmt.Println("\n✓ Forecast DB Writer is running")
	fmt.Println("✓ Press Ctrl+C to stop")

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down gracefully...")
	writer.Stop()
}
