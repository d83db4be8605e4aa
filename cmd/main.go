/**
 * @description
 * This is the main entry point for the wallet-service. It is responsible for
 * initializing all components of the service: configuration, the PostgreSQL
 * connection pool, the optional RabbitMQ producer and Redis rate limiter, the
 * repository, the core application service, and the HTTP server. It wires
 * everything together and starts the service with graceful shutdown.
 *
 * @dependencies
 * - log, net/http: Standard Go libraries for logging and HTTP server functionality.
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - internal/api, internal/app, internal/config, internal/store: Internal packages for the service.
 * - pkg/rabbitmq: RabbitMQ event producer.
 */

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/flowpurse/wallet-service/internal/api"
	"github.com/flowpurse/wallet-service/internal/app"
	"github.com/flowpurse/wallet-service/internal/config"
	"github.com/flowpurse/wallet-service/internal/store"
	"github.com/flowpurse/wallet-service/pkg/rabbitmq"
)

func main() {
	// Load application configuration from environment variables.
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"jwt secret must be configured\" env=JWT_SECRET")
	}

	log.Printf("level=info component=bootstrap msg=\"starting wallet-service\" port=%s", cfg.ServerPort)

	// Establish a connection pool to the PostgreSQL database.
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database url parse failed\" err=%v", err)
	}
	poolConfig.MaxConns = 50
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database connection failed\" err=%v", err)
	}
	defer dbpool.Close()
	log.Println("level=info component=bootstrap msg=\"database connected\"")

	// Initialize the RabbitMQ producer to publish transaction events. The
	// broker is optional: ledger operations keep working without it.
	var producer rabbitmq.Publisher
	if strings.TrimSpace(cfg.RabbitMQURL) == "" {
		log.Println("level=warn component=bootstrap msg=\"rabbitmq url missing; transaction events disabled\" env=RABBITMQ_URL")
		producer = &rabbitmq.EventProducerFallback{}
	} else if p, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL); err != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq producer unavailable; using fallback\" err=%v", err)
		producer = &rabbitmq.EventProducerFallback{}
	} else {
		producer = p
		log.Println("level=info component=bootstrap msg=\"rabbitmq producer connected\"")
	}
	defer producer.Close()

	// Initialize the data access layer and the core application service.
	repository := store.NewPostgresRepository(dbpool)
	walletService := app.NewService(repository, producer, cfg.TransactionEventExchange)

	// Optional Redis-backed rate limiting on mutation endpoints.
	if cfg.MutationRateLimitPerMin > 0 {
		if cfg.RedisURL == "" {
			log.Println("level=warn component=bootstrap msg=\"redis url missing; mutation rate limiting disabled\" env=REDIS_URL")
		} else if redisOptions, parseErr := redis.ParseURL(cfg.RedisURL); parseErr != nil {
			log.Printf("level=warn component=bootstrap msg=\"redis url parse failed; mutation rate limiting disabled\" err=%v", parseErr)
		} else {
			redisClient := redis.NewClient(redisOptions)
			pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelPing()
			if pingErr := redisClient.Ping(pingCtx).Err(); pingErr != nil {
				log.Printf("level=warn component=bootstrap msg=\"redis ping failed; mutation rate limiting disabled\" err=%v", pingErr)
				redisClient.Close()
			} else {
				defer redisClient.Close()
				walletService.SetRateLimiter(
					app.NewRedisRateLimiter(redisClient, cfg.RedisRateLimitPrefix),
					cfg.MutationRateLimitPerMin,
				)
				log.Println("level=info component=bootstrap msg=\"redis connected\"")
			}
		}
	}

	// Initialize the API handlers and router.
	jwtTTL := time.Duration(cfg.JWTTTLHours) * time.Hour
	walletHandlers := api.NewWalletHandlers(walletService, cfg.JWTSecret, jwtTTL)
	router := api.Routes(walletHandlers, cfg.JWTSecret)

	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("level=info component=http msg=\"server listening\" addr=%s", serverAddr)

	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("level=fatal component=http msg=\"server stopped unexpectedly\" err=%v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("level=info component=http msg=\"shutdown started\"")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("level=error component=http msg=\"shutdown failed\" err=%v", err)
	}

	log.Println("level=info component=http msg=\"shutdown complete\"")
}
