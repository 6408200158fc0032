package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dkoryagin/vehiclehold/config"
	"github.com/dkoryagin/vehiclehold/internal/cache"
	"github.com/dkoryagin/vehiclehold/internal/clock"
	"github.com/dkoryagin/vehiclehold/internal/email"
	"github.com/dkoryagin/vehiclehold/internal/kafka"
	"github.com/dkoryagin/vehiclehold/internal/repository"
	"github.com/dkoryagin/vehiclehold/internal/service/holds"
	"github.com/jackc/pgx/v5/pgxpool"
	kafkaGo "github.com/segmentio/kafka-go"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()
	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Holds.VehiclesCacheTTL)*time.Second)

	vehicleRepo := repository.NewVehicleRepository(pool)
	holdRepo := repository.NewHoldRepository(pool)
	holdService := holds.NewHoldService(
		holdRepo,
		vehicleRepo,
		redisCache,
		producer,
		clock.NewSystem(),
		cfg.Kafka.HoldsTopic,
		holds.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
	)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic)
	defer consumer.Close()

	emailSender := email.NewSender()

	go func() {
		if err := consumer.Consume(ctx, func(ctx context.Context, msg kafkaGo.Message) error {
			var event kafka.HoldEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				log.Printf("decode event error: %v", err)
				return nil
			}
			return emailSender.Send(ctx, event)
		}); err != nil {
			log.Printf("consumer stopped: %v", err)
		}
	}()

	sweepInterval := time.Duration(cfg.Worker.SweepIntervalSeconds) * time.Second
	if sweepInterval <= 0 {
		sweepInterval = 30 * time.Second
	}
	sweepTicker := time.NewTicker(sweepInterval)
	defer sweepTicker.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-sweepTicker.C:
			released, err := holdService.SweepExpired(ctx)
			if err != nil {
				log.Printf("sweep expired holds error: %v", err)
				continue
			}
			if len(released) > 0 {
				log.Printf("released %d vehicles with lapsed holds", len(released))
			}
		case s := <-sig:
			log.Printf("received signal %v, shutting down", s)
			return
		}
	}
}
