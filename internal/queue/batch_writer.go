package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/tideraider/surf-alert-server/internal/protocol"
	"github.com/tideraider/surf-alert-server/internal/surf"
)

// Source is the consumer side the writer drains. Satisfied by Consumer.
type Source interface {
	Consume(ctx context.Context) (kafka.Message, error)
	Commit(ctx context.Context, msg kafka.Message) error
}

// Store persists forecasts and the beach scores derived from them.
// Satisfied by database.DB.
type Store interface {
	UpsertForecast(f *surf.ForecastSnapshot) error
	ListBeachesForRegion(regionID string) ([]*surf.Beach, error)
	UpsertBeachDailyScore(s *surf.BeachDailyScore) error
}

// BatchWriter consumes scraped forecasts from Kafka and batch-writes them to
// the database, computing the dependent beach scores as it goes.
type BatchWriter struct {
	consumer      Source
	store         Store
	batchSize     int
	flushInterval time.Duration
	stopCh        chan struct{}
	wg            sync.WaitGroup
}

// NewBatchWriter creates a new batch writer
func NewBatchWriter(consumer Source, store Store, batchSize int, flushInterval time.Duration) *BatchWriter {
	return &BatchWriter{
		consumer:      consumer,
		store:         store,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		stopCh:        make(chan struct{}),
	}
}

// Start begins consuming and writing to database
func (bw *BatchWriter) Start(ctx context.Context) error {
	bw.wg.Add(1)
	go bw.run(ctx)
	return nil
}

// Stop stops the batch writer gracefully
func (bw *BatchWriter) Stop() {
	close(bw.stopCh)
	bw.wg.Wait()
}

func (bw *BatchWriter) run(ctx context.Context) {
	defer bw.wg.Done()

	var batch []kafka.Message
	ticker := time.NewTicker(bw.flushInterval)
	defer ticker.Stop()

	msgChan := make(chan kafka.Message, 10)
	go func() {
		for {
			msg, err := bw.consumer.Consume(ctx)
			if err != nil {
				select {
				case <-bw.stopCh:
					return
				case <-ctx.Done():
					return
				default:
				}
				fmt.Printf("Consumer error: %v\n", err)
				continue
			}
			select {
			case msgChan <- msg:
			case <-bw.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-bw.stopCh:
			// Flush remaining batch before stopping
			if len(batch) > 0 {
				bw.flush(ctx, batch)
			}
			return

		case <-ticker.C:
			// Periodic flush
			if len(batch) > 0 {
				fmt.Printf("Flush interval reached (%d forecasts), flushing...\n", len(batch))
				bw.flush(ctx, batch)
				batch = nil
			}

		case msg := <-msgChan:
			batch = append(batch, msg)

			// Flush if batch is full
			if len(batch) >= bw.batchSize {
				fmt.Printf("Batch full (%d forecasts), flushing...\n", len(batch))
				bw.flush(ctx, batch)
				batch = nil
			}
		}
	}
}

func (bw *BatchWriter) flush(ctx context.Context, batch []kafka.Message) {
	if len(batch) == 0 {
		return
	}

	successCount := 0
	for _, msg := range batch {
		if err := bw.processMessage(msg); err != nil {
			fmt.Printf("Failed to process forecast message: %v\n", err)
			continue
		}
		successCount++

		// Commit offset after successful processing
		if err := bw.consumer.Commit(ctx, msg); err != nil {
			fmt.Printf("Failed to commit offset: %v\n", err)
		}
	}

	fmt.Printf("Flushed batch of %d forecasts to database\n", successCount)
}

func (bw *BatchWriter) processMessage(msg kafka.Message) error {
	forecastMsg, err := protocol.DecodeForecastMessage(msg.Value)
	if err != nil {
		return fmt.Errorf("failed to decode message: %w", err)
	}

	date, err := forecastMsg.ParseDate()
	if err != nil {
		return fmt.Errorf("failed to parse forecast date: %w", err)
	}

	snapshot := &surf.ForecastSnapshot{
		RegionID:       forecastMsg.RegionID,
		Date:           date,
		WindSpeed:      forecastMsg.WindSpeed,
		WindDirection:  forecastMsg.WindDirection,
		SwellHeight:    forecastMsg.SwellHeight,
		SwellPeriod:    forecastMsg.SwellPeriod,
		SwellDirection: forecastMsg.SwellDirection,
		ScrapedAt:      forecastMsg.ScrapedAt,
	}

	if err := bw.store.UpsertForecast(snapshot); err != nil {
		return fmt.Errorf("failed to upsert forecast: %w", err)
	}

	// Recompute the dependent daily scores while the snapshot is fresh.
	beaches, err := bw.store.ListBeachesForRegion(snapshot.RegionID)
	if err != nil {
		return fmt.Errorf("failed to list beaches: %w", err)
	}
	for _, beach := range beaches {
		score := surf.ScoreForecast(beach.Profile, snapshot)
		daily := &surf.BeachDailyScore{
			BeachID:    beach.ID,
			Date:       snapshot.Date,
			Score:      score,
			StarRating: surf.StarsForScore(score),
		}
		if err := bw.store.UpsertBeachDailyScore(daily); err != nil {
			return fmt.Errorf("failed to upsert score for beach %s: %w", beach.ID, err)
		}
	}

	return nil
}
