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
	"github.com/tideraider/surf-alert-server/internal/protocol"
	"github.com/tideraider/surf-alert-server/internal/queue"
	"github.com/tideraider/surf-alert-server/internal/schedule"
	"github.com/tideraider/surf-alert-server/internal/scraper"
	"github.com/tideraider/surf-alert-server/internal/surf"
	"github.com/tideraider/surf-alert-server/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	fmt.Println("Starting Forecast Scraper...")

	// Connect to database for the region list
	db, err := database.Connect(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	fmt.Println("Connected to database")

	regions, err := db.ListRegions()
	if err != nil {
		log.Fatalf("Failed to list regions: %v", err)
	}
	if len(regions) == 0 {
		log.Fatal("No regions configured, nothing to scrape")
	}
	fmt.Printf("Monitoring %d regions\n", len(regions))

	// Ensure the forecast topic exists before producing to it
	if err := queue.CreateTopic(cfg.Kafka.Brokers, cfg.Kafka.TopicForecasts, cfg.Kafka.NumPartitions, 1); err != nil {
		fmt.Printf("Warning: failed to create topic (may already exist): %v\n", err)
	}

	// Producer for scraped forecasts
	producer := queue.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicForecasts)
	defer producer.Close()
	fmt.Println("Forecast producer initialized")

	s := scraper.New(&cfg.Scraper)
	byID := make(map[string]*surf.Region, len(regions))

	// Stagger the first round so the target never sees a burst.
	refreshQueue := schedule.NewRefreshQueue()
	for i, region := range regions {
		byID[region.ID] = region
		refreshQueue.Schedule(region.ID, time.Now().Add(time.Duration(i)*cfg.Scraper.RequestDelay))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fmt.Println("\n✓ Forecast Scraper is running")
	fmt.Println("✓ Press Ctrl+C to stop")

	// Single consumer loop: scrapes stay strictly sequential.
	go func() {
		for {
			regionID, ok := refreshQueue.Next(ctx)
			if !ok {
				return
			}
			region := byID[regionID]

			if err := scrapeAndPublish(ctx, s, producer, region); err != nil {
				log.Printf("Failed to refresh region %s: %v", region.ID, err)
			}

			// One bad scrape still reschedules; the next round may succeed.
			refreshQueue.Schedule(region.ID, time.Now().Add(cfg.Scraper.RefreshEvery))
		}
	}()

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down gracefully...")
	cancel()
}

func scrapeAndPublish(ctx context.Context, s *scraper.Scraper, producer *queue.Producer, region *surf.Region) error {
	snapshot, err := s.RefreshForecastForRegion(ctx, region)
	if err != nil {
		return err
	}

	msg := &protocol.ForecastMessage{
		RegionID:       region.ID,
		RegionName:     region.Name,
		Date:           snapshot.Date.Format("2006-01-02"),
		WindSpeed:      snapshot.WindSpeed,
		WindDirection:  snapshot.WindDirection,
		SwellHeight:    snapshot.SwellHeight,
		SwellPeriod:    snapshot.SwellPeriod,
		SwellDirection: snapshot.SwellDirection,
		ScrapedAt:      snapshot.ScrapedAt,
	}
	data, err := protocol.EncodeForecastMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to encode forecast: %w", err)
	}

	if err := producer.Publish(ctx, region.ID, data); err != nil {
		return err
	}

	fmt.Printf("Published forecast for %s\n", region.ID)
	return nil
}
