package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"

	"github.com/season-tracker/internal/config"
	"github.com/season-tracker/internal/domain"
)

// RewardHandler applies reward events
type RewardHandler interface {
	ApplyReward(ctx context.Context, event domain.RewardEvent) (domain.RewardResult, error)
}

// Consumer consumes reward events from Kafka
type Consumer struct {
	config        *config.KafkaConfig
	handler       RewardHandler
	logger        *slog.Logger
	consumerGroup sarama.ConsumerGroup
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	ready         chan bool
}

// NewConsumer creates a new Kafka consumer
func NewConsumer(cfg *config.KafkaConfig, handler RewardHandler, logger *slog.Logger) (*Consumer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_0_0_0
	saramaConfig.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	saramaConfig.Consumer.Return.Errors = true

	consumerGroup, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("creating consumer group: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Consumer{
		config:        cfg,
		handler:       handler,
		logger:        logger,
		consumerGroup: consumerGroup,
		ctx:           ctx,
		cancel:        cancel,
		ready:         make(chan bool),
	}, nil
}

// Start begins consuming messages from Kafka
func (c *Consumer) Start() error {
	c.logger.Info("starting Kafka consumer",
		"brokers", c.config.Brokers,
		"topic", c.config.Topic,
		"group_id", c.config.GroupID,
	)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			handler := &consumerGroupHandler{
				consumer: c,
				ready:    c.ready,
			}

			if err := c.consumerGroup.Consume(c.ctx, []string{c.config.Topic}, handler); err != nil {
				if errors.Is(err, sarama.ErrClosedConsumerGroup) {
					return
				}
				c.logger.Error("error from consumer", "error", err)
			}

			if c.ctx.Err() != nil {
				return
			}

			c.ready = make(chan bool)
		}
	}()

	<-c.ready
	c.logger.Info("Kafka consumer ready")

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case <-c.ctx.Done():
				return
			case err, ok := <-c.consumerGroup.Errors():
				if !ok {
					return
				}
				c.logger.Error("consumer group error", "error", err)
			}
		}
	}()

	return nil
}

// Stop gracefully stops the consumer
func (c *Consumer) Stop() error {
	c.logger.Info("stopping Kafka consumer")
	c.cancel()
	c.wg.Wait()
	return c.consumerGroup.Close()
}

// DecodeRewardEvent parses and validates one message value
func DecodeRewardEvent(value []byte) (domain.RewardEvent, error) {
	var event domain.RewardEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return domain.RewardEvent{}, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}
	if err := event.Validate(); err != nil {
		return domain.RewardEvent{}, err
	}
	return event, nil
}

// apply hands one event to the handler, retrying while the store is unavailable
func (c *Consumer) apply(ctx context.Context, event domain.RewardEvent) error {
	attempts := c.config.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.config.RetryDelay):
			}
		}
		_, err = c.handler.ApplyReward(ctx, event)
		if err == nil || !errors.Is(err, domain.ErrStoreUnavailable) {
			return err
		}
	}
	return err
}

// processBatch applies every event in order and returns how many failed
func (c *Consumer) processBatch(events []domain.RewardEvent) int {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	failed := 0
	for _, event := range events {
		if err := c.apply(ctx, event); err != nil {
			failed++
			c.logger.Error("failed to apply reward event",
				"identity_id", event.IdentityID,
				"source", event.Source,
				"error", err,
			)
		}
	}
	c.logger.Debug("processed batch", "batch_size", len(events), "failed", failed)
	return failed
}

// consumerGroupHandler implements sarama.ConsumerGroupHandler
type consumerGroupHandler struct {
	consumer *Consumer
	ready    chan bool
}

// Setup is called at the beginning of a new session
func (h *consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	close(h.ready)
	return nil
}

// Cleanup is called at the end of a session
func (h *consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim batches events from a partition. Offsets are marked once
// the batch holding them has been applied.
func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	c := h.consumer
	cfg := c.config
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	timeout := cfg.BatchTimeout
	if timeout <= 0 {
		timeout = time.Second
	}

	batch := make([]domain.RewardEvent, 0, batchSize)
	var last *sarama.ConsumerMessage
	batchTimer := time.NewTimer(timeout)
	defer batchTimer.Stop()

	flush := func() {
		if len(batch) > 0 {
			c.processBatch(batch)
			batch = batch[:0]
		}
		if last != nil {
			session.MarkMessage(last, "")
			last = nil
		}
	}

	for {
		select {
		case <-session.Context().Done():
			flush()
			return nil

		case <-batchTimer.C:
			flush()
			batchTimer.Reset(timeout)

		case message, ok := <-claim.Messages():
			if !ok {
				flush()
				return nil
			}
			last = message

			event, err := DecodeRewardEvent(message.Value)
			if err != nil {
				c.logger.Warn("dropping invalid reward message",
					"error", err,
					"offset", message.Offset,
					"partition", message.Partition,
				)
				continue
			}
			if event.Source == "" {
				event.Source = "kafka"
			}

			batch = append(batch, event)
			if len(batch) >= batchSize {
				flush()
				batchTimer.Reset(timeout)
			}
		}
	}
}
