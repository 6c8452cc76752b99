package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/Mamog1381/fortune/internal/config"
	"github.com/Mamog1381/fortune/internal/db"
	"github.com/Mamog1381/fortune/internal/fortune"
	"github.com/Mamog1381/fortune/internal/httpapi"
	"github.com/Mamog1381/fortune/internal/httpapi/handlers"
	"github.com/Mamog1381/fortune/internal/otp"
	"github.com/Mamog1381/fortune/internal/store/rabbitmq"
	"github.com/Mamog1381/fortune/internal/store/redisstore"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	gdb := db.Connect(cfg.DBDSN)

	if created, err := fortune.SeedFeatures(context.Background(), gdb); err != nil {
		log.Fatalf("seed features: %v", err)
	} else if created > 0 {
		log.Printf("seeded %d features", created)
	}

	cache := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := cache.Ping(context.Background()); err != nil {
		log.Fatalf("redis ping: %v", err)
	}

	guard := otp.NewGuard(cache, otp.Settings{
		Length:        cfg.OTPLength,
		Expiry:        cfg.OTPExpiry,
		MaxAttempts:   cfg.MaxOTPAttempts,
		BlockDuration: cfg.OTPBlockDuration,
		SendCooldown:  cfg.OTPSendCooldown,
	})

	queue, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.ReadingQueue, cfg.SMSQueue)
	if err != nil {
		log.Fatalf("rabbitmq: %v", err)
	}
	defer queue.Close()

	h := handlers.NewHandler(gdb, cfg, guard, queue)
	r := httpapi.NewRouter(h)

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	log.Printf("api listening on %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
