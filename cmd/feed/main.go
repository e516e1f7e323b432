package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/tideraider/surf-alert-server/internal/feed"
	"github.com/tideraider/surf-alert-server/internal/protocol"
	"github.com/tideraider/surf-alert-server/internal/queue"
	"github.com/tideraider/surf-alert-server/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	fmt.Println("Starting Match Feed Service...")

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	fmt.Println("Connected to Redis")

	writer := feed.NewWriter(redisClient, 100)

	// Create consumer for fired matches
	consumer := queue.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicMatches, "feed-group")
	defer consumer.Close()
	fmt.Println("Kafka consumer initialized")

	fmt.Println("\n✓ Match Feed Service is running")
	fmt.Println("✓ Press Ctrl+C to stop")

	// Start consuming matches
	go func() {
		for {
			msg, err := consumer.Consume(ctx)
			if err != nil {
				log.Printf("Failed to consume message: %v\n", err)
				continue
			}

			// Decode match message
			matchMsg, err := protocol.DecodeMatchMessage(msg.Value)
			if err != nil {
				log.Printf("Failed to decode match: %v\n", err)
				consumer.Commit(ctx, msg)
				continue
			}

			// Append to the owner's feed
			if err := writer.Append(ctx, matchMsg); err != nil {
				log.Printf("Failed to append to feed: %v\n", err)
				// Don't commit on error - retry
				continue
			}

			// Commit offset
			if err := consumer.Commit(ctx, msg); err != nil {
				log.Printf("Failed to commit offset: %v\n", err)
			}
		}
	}()

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down gracefully...")
}
