package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dianabombi/student-advisor-sub002/internal/ai"
	"github.com/dianabombi/student-advisor-sub002/internal/config"
	"github.com/dianabombi/student-advisor-sub002/internal/crawler"
	"github.com/dianabombi/student-advisor-sub002/internal/logger"
	"github.com/dianabombi/student-advisor-sub002/internal/queue"
	"github.com/dianabombi/student-advisor-sub002/internal/store"
	"github.com/dianabombi/student-advisor-sub002/internal/telemetry"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	shutdownTracer, err := telemetry.InitTracer("student-advisor-worker", cfg.OTLPEndpoint)
	if err != nil {
		log.Printf("Tracing disabled: %v", err)
	} else {
		defer shutdownTracer()
	}

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		log.Fatal("Failed to initialize metrics:", err)
	}

	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()

	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer rdb.Close()

	st := store.NewStore(mongoClient.Database(cfg.DBName))

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	asynqClient := asynq.NewClient(redisOpt)
	defer asynqClient.Close()

	embedder, err := ai.NewEmbedder(cfg, rdb)
	if err != nil {
		log.Fatal("Failed to initialize embedder:", err)
	}
	defer embedder.Close()

	batch := ai.NewBatchEmbedder(embedder, st.Content, st.Vectors, cfg.EmbedConcurrency)
	embedFn := func(ctx context.Context, ids []primitive.ObjectID) (int, int, error) {
		result, err := batch.EmbedBatch(ctx, ids)
		return result.SuccessCount, result.ErrorCount, err
	}

	processor := queue.NewTaskProcessor(cfg, st, embedFn, asynqClient, metrics)
	scrapeService := queue.NewService(cfg, st, asynqClient)

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			StrictPriority: true,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("task failed", "type", task.Type(), "error", err)
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskScrapeRun, processor.HandleScrape)
	mux.HandleFunc(queue.TaskEmbedBatch, processor.HandleEmbedBatch)

	scheduler := crawler.NewScheduler()
	err = scheduler.ScheduleInterval("refresh-due", time.Hour, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		n, err := scrapeService.RefreshDue(ctx)
		if err != nil {
			logger.Warn("refresh sweep failed", "error", err)
			return err
		}
		if n > 0 {
			logger.Info("refresh sweep enqueued scrapes", "count", n)
		}
		return nil
	})
	if err != nil {
		log.Fatal("Failed to schedule refresh sweep:", err)
	}

	err = scheduler.ScheduleInterval("reclaim-stale", 10*time.Minute, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		n, err := st.Jobs.ReclaimStale(ctx, cfg.ScrapeStaleAfter)
		if err != nil {
			logger.Warn("stale reclaim failed", "error", err)
			return err
		}
		if n > 0 {
			logger.Info("reclaimed stale jobs", "count", n)
		}
		return nil
	})
	if err != nil {
		log.Fatal("Failed to schedule reclaim sweep:", err)
	}

	scheduler.Start()
	defer scheduler.Stop()

	go func() {
		log.Println("Starting worker...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Worker failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down worker...")
	server.Shutdown()
}
