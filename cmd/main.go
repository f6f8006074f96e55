package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/yasin2514/nest-nature-nursery-server/internal/cache"
	"github.com/yasin2514/nest-nature-nursery-server/internal/events"
	h "github.com/yasin2514/nest-nature-nursery-server/internal/http"
	"github.com/yasin2514/nest-nature-nursery-server/internal/payment"
	"github.com/yasin2514/nest-nature-nursery-server/internal/repository"
	"github.com/yasin2514/nest-nature-nursery-server/internal/service"
)

type Config struct {
	HTTPPort        string
	MongoURI        string
	MongoDBName     string
	MongoMaxPool    uint64
	MongoMinPool    uint64
	RedisAddr       string
	RedisPassword   string
	KafkaBrokers    []string
	PaymentAPIURL   string
	PaymentSecret   string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

func loadConfig() *Config {
	cfg := &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		MongoURI:        getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:     getEnv("MONGO_DB_NAME", "nextNatureNursery"),
		MongoMaxPool:    getEnvUint("MONGO_MAX_POOL_SIZE", 100),
		MongoMinPool:    getEnvUint("MONGO_MIN_POOL_SIZE", 10),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		PaymentAPIURL:   getEnv("PAYMENT_API_URL", ""),
		PaymentSecret:   getEnv("PAYMENT_SECRET_KEY", ""),
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvUint(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseUint(value, 10, 64); err == nil {
			return n
		}
		log.WithField("key", key).Warn("Ignoring non-numeric value, using default")
	}
	return defaultValue
}

func init() {
	log.SetFormatter(&log.JSONFormatter{})
	log.SetLevel(log.InfoLevel)
}

func main() {
	cfg := loadConfig()
	ctx := context.Background()

	// Set up MongoDB connection
	mongoDB, err := repository.ConnectMongoDB(ctx, repository.MongoConfig{
		URI:         cfg.MongoURI,
		Database:    cfg.MongoDBName,
		MaxPoolSize: cfg.MongoMaxPool,
		MinPoolSize: cfg.MongoMinPool,
	})
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}

	inventory := repository.NewMongoInventory(mongoDB)
	ledger := repository.NewMongoLedger(mongoDB)
	if err := ledger.CreateIndexes(ctx); err != nil {
		log.Fatalf("Failed to create ledger indexes: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("Redis connection failed: ", err)
	}
	log.Info("Redis ping succeeded")
	purchaseCache := cache.NewRedisCache(redisClient)

	var publisher events.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher := events.NewKafkaPublisher(cfg.KafkaBrokers...)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
		log.WithField("brokers", cfg.KafkaBrokers).Info("Kafka publisher enabled")
	}

	var intents payment.IntentProvider
	if cfg.PaymentAPIURL != "" && cfg.PaymentSecret != "" {
		intents = payment.NewClient(cfg.PaymentAPIURL, cfg.PaymentSecret, 10*time.Second)
		log.WithField("url", cfg.PaymentAPIURL).Info("Payment intent provider enabled")
	}

	purchaseService := service.NewPurchaseService(inventory, ledger, purchaseCache, publisher)
	handler := h.NewPurchaseHandler(purchaseService, intents, cfg.RequestTimeout)
	router := h.NewRouter(handler, cfg.RequestTimeout)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "purchase-service"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.HTTPPort).Info("Purchase service starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	if err := mongoDB.Client().Disconnect(shutdownCtx); err != nil {
		log.Errorf("failed to disconnect MongoDB: %v", err)
	}

	log.Info("server exited")
}
