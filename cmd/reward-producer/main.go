package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/season-tracker/internal/config"
	"github.com/season-tracker/internal/domain"
	"github.com/season-tracker/internal/kafka"
)

// sources mimic the external graders that feed the season
var sources = []string{"quiz-grader", "reading-log", "attendance", "spelling-bee"}

func playerID(idx int) string {
	return fmt.Sprintf("player-%04d", idx)
}

func randomEvent(players int) domain.RewardEvent {
	event := domain.RewardEvent{
		IdentityID: playerID(rand.Intn(players)),
		Source:     sources[rand.Intn(len(sources))],
		Experience: int64(rand.Intn(8)+1) * 10,
		Timestamp:  time.Now().UTC(),
	}
	if rand.Intn(100) < 60 {
		event.Currency = int64(rand.Intn(5) + 1)
	}
	if rand.Intn(100) < 30 {
		event.TeamXP = int64(rand.Intn(3)+1) * 10
	}
	return event
}

func main() {
	brokers := flag.String("brokers", "localhost:9094", "Kafka brokers (comma-separated)")
	topic := flag.String("topic", "season-rewards", "Kafka topic")
	players := flag.Int("players", 50, "Number of player identities to reward")
	rate := flag.Int("rate", 10, "Events per second")
	duration := flag.Duration("duration", 0, "Duration to run (0 = forever)")
	flag.Parse()

	if *players <= 0 || *rate <= 0 {
		log.Fatal("players and rate must be positive")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	fmt.Println("Season reward producer")
	fmt.Printf("  Brokers:    %s\n", *brokers)
	fmt.Printf("  Topic:      %s\n", *topic)
	fmt.Printf("  Players:    %d\n", *players)
	fmt.Printf("  Events/sec: %d\n", *rate)
	fmt.Println()

	producer, err := kafka.NewProducer(&config.KafkaConfig{
		Brokers:       strings.Split(*brokers, ","),
		Topic:         *topic,
		RetryAttempts: 3,
	}, logger)
	if err != nil {
		log.Fatalf("Failed to create producer: %v", err)
	}
	defer producer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	ticker := time.NewTicker(time.Second / time.Duration(*rate))
	defer ticker.Stop()
	statsTicker := time.NewTicker(5 * time.Second)
	defer statsTicker.Stop()

	var sent, failed int64
	for {
		select {
		case <-ctx.Done():
			fmt.Printf("\nDone. Sent: %d, Errors: %d\n", sent, failed)
			return

		case <-ticker.C:
			if err := producer.Publish(ctx, randomEvent(*players)); err != nil {
				failed++
				if ctx.Err() == nil {
					log.Printf("Producer error: %v", err)
				}
				continue
			}
			sent++

		case <-statsTicker.C:
			fmt.Printf("[%s] Sent: %d | Errors: %d\n", time.Now().Format("15:04:05"), sent, failed)
		}
	}
}
