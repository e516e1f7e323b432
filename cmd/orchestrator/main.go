package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tideraider/surf-alert-server/internal/alerting"
	"github.com/tideraider/surf-alert-server/internal/database"
	"github.com/tideraider/surf-alert-server/internal/notification"
	"github.com/tideraider/surf-alert-server/internal/orchestrator"
	"github.com/tideraider/surf-alert-server/internal/queue"
	"github.com/tideraider/surf-alert-server/internal/scraper"
	"github.com/tideraider/surf-alert-server/pkg/config"
)

func main() {
	once := flag.Bool("once", false, "run a single sweep and exit")
	migrationsDir := flag.String("migrations", "", "run migrations from this directory before starting")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	fmt.Println("Starting Daily Orchestrator...")

	// Connect to database
	db, err := database.Connect(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	fmt.Println("Connected to database")

	if *migrationsDir != "" {
		if err := db.RunMigrations(*migrationsDir); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	// Connect to Redis for the day guard. Optional: the evaluator degrades
	// to the database idempotency check when Redis is unreachable.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var guard *alerting.DayGuard
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Redis unavailable (%v), idempotency falls back to database checks", err)
	} else {
		guard = alerting.NewDayGuard(redisClient)
		fmt.Println("Connected to Redis")
	}

	// Ensure both topics exist before producing to them
	for _, topic := range []string{cfg.Kafka.TopicForecasts, cfg.Kafka.TopicMatches} {
		if err := queue.CreateTopic(cfg.Kafka.Brokers, topic, cfg.Kafka.NumPartitions, 1); err != nil {
			fmt.Printf("Warning: failed to create topic %s (may already exist): %v\n", topic, err)
		}
	}

	// Producers for refreshed forecasts and fired matches
	forecastProducer := queue.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicForecasts)
	defer forecastProducer.Close()
	matchProducer := queue.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicMatches)
	defer matchProducer.Close()
	fmt.Println("Kafka producers initialized")

	// Notification channels
	emailNotifier := notification.NewEmailNotifier(&cfg.SMTP)
	if err := emailNotifier.TestConnection(); err != nil {
		fmt.Printf("Note: %v (email notifications will be logged only)\n", err)
	}
	whatsappNotifier := notification.NewWhatsAppNotifier(&cfg.WhatsApp)
	dispatcher := notification.NewDispatcher(emailNotifier, whatsappNotifier, db, matchProducer)

	evaluator := alerting.NewEvaluator(db, dispatcher, guard)
	refresher := scraper.New(&cfg.Scraper)
	orch := orchestrator.New(db, refresher, evaluator, forecastProducer, cfg.Scraper.RequestDelay)

	if *once {
		report := orch.Run(ctx, time.Now())
		fmt.Printf("Sweep %s finished in state %s\n", report.RunID, report.State)
		return
	}

	fmt.Printf("\n✓ Daily Orchestrator is running (sweep at %s)\n", cfg.Schedule.DailyTime)
	fmt.Println("✓ Press Ctrl+C to stop")

	go func() {
		for {
			next, err := orchestrator.NextRunTime(time.Now(), cfg.Schedule.DailyTime)
			if err != nil {
				log.Fatalf("Invalid schedule time: %v", err)
			}
			fmt.Printf("Next sweep at %s\n", next.Format(time.RFC1123))

			select {
			case <-time.After(time.Until(next)):
			case <-ctx.Done():
				return
			}

			orch.Run(ctx, time.Now())
		}
	}()

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down gracefully...")
	cancel()
}
