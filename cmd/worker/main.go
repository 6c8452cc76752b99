package main

import (
	"context"
	"encoding/json"
	"log"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Mamog1381/fortune/internal/ai"
	"github.com/Mamog1381/fortune/internal/config"
	"github.com/Mamog1381/fortune/internal/db"
	"github.com/Mamog1381/fortune/internal/fortune"
	"github.com/Mamog1381/fortune/internal/sms"
	"github.com/Mamog1381/fortune/internal/store/rabbitmq"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	gdb := db.Connect(cfg.DBDSN)
	repo := fortune.NewRepo(gdb)

	registry := ai.NewRegistry()
	registry.Register("openrouter", func(ctx context.Context, model string) (ai.Provider, error) {
		return ai.NewOpenRouterProvider(cfg.OpenRouterBaseURL, cfg.OpenRouterAPIKey, cfg.OpenRouterSiteURL, cfg.OpenRouterAppName), nil
	})
	registry.Register("ollama", func(ctx context.Context, model string) (ai.Provider, error) {
		return ai.NewOllamaProvider(cfg.OllamaBaseURL), nil
	})

	processor := fortune.NewProcessor(repo, registry, cfg.AIProvider)
	retry := fortune.NewRetryPolicy(cfg.ProcessMaxAttempts, cfg.ProcessBackoffBase)

	var sender sms.Sender = sms.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFrom)
	if !sender.Configured() {
		log.Printf("twilio not configured, falling back to log sender")
		sender = sms.LogSender{}
	}

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("rabbitmq dial: %v", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("rabbitmq channel: %v", err)
	}
	defer ch.Close()

	for _, q := range []string{cfg.ReadingQueue, cfg.SMSQueue} {
		if err := rabbitmq.DeclareQueueSet(ch, q); err != nil {
			log.Fatalf("queue declare %s: %v", q, err)
		}
	}

	if err := ch.Qos(cfg.WorkerConcurrency, 0, false); err != nil {
		log.Fatalf("qos: %v", err)
	}

	readings, err := ch.Consume(cfg.ReadingQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("consume %s: %v", cfg.ReadingQueue, err)
	}
	smsMsgs, err := ch.Consume(cfg.SMSQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("consume %s: %v", cfg.SMSQueue, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	for i := 0; i < cfg.WorkerConcurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			consumeReadings(ctx, id, readings, processor, retry)
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		consumeSMS(ctx, smsMsgs, sender)
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		cleanupLoop(ctx, repo, cfg.ReadingRetentionDays)
	}()

	log.Printf("worker started concurrency=%d queues=%s,%s", cfg.WorkerConcurrency, cfg.ReadingQueue, cfg.SMSQueue)
	<-ctx.Done()
	log.Printf("shutting down")
	_ = ch.Close()
	wg.Wait()
}

func consumeReadings(ctx context.Context, id int, msgs <-chan amqp.Delivery, processor *fortune.Processor, retry *fortune.RetryPolicy) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-msgs:
			if !ok {
				return
			}
			var msg rabbitmq.ReadingMessage
			if err := json.Unmarshal(d.Body, &msg); err != nil {
				log.Printf("worker=%d malformed reading message: %v", id, err)
				_ = d.Nack(false, false)
				continue
			}
			err := retry.Run(ctx, func(ctx context.Context) error {
				return processor.Process(ctx, msg.ReadingID)
			})
			if err != nil {
				log.Printf("worker=%d reading=%s exhausted retries: %v", id, msg.ReadingID, err)
				_ = d.Nack(false, false) // dead-letter
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func consumeSMS(ctx context.Context, msgs <-chan amqp.Delivery, sender sms.Sender) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-msgs:
			if !ok {
				return
			}
			var msg rabbitmq.SMSMessage
			if err := json.Unmarshal(d.Body, &msg); err != nil {
				log.Printf("malformed sms message: %v", err)
				_ = d.Nack(false, false)
				continue
			}
			if err := sender.Send(ctx, msg.PhoneNumber, msg.Body); err != nil {
				log.Printf("sms send to %s failed: %v", msg.PhoneNumber, err)
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// cleanupLoop purges failed readings past the retention window once a day.
func cleanupLoop(ctx context.Context, repo *fortune.Repo, retentionDays int) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().AddDate(0, 0, -retentionDays)
			n, err := repo.DeleteOldFailed(ctx, cutoff)
			if err != nil {
				log.Printf("cleanup failed: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("cleanup removed %d failed readings", n)
			}
		}
	}
}
