package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"autoarchitect/internal/config"
	"autoarchitect/internal/pipeline"
	"autoarchitect/internal/repository/postgresql"
	"autoarchitect/internal/service"
	"autoarchitect/internal/worker"
)

// Standalone worker binary for deployments where the API and the analysis
// workers scale independently. Requires Postgres and Redis; the single-binary
// in-memory mode lives in cmd/server.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	if cfg.PostgresDSN == "" {
		log.Fatal("missing env: POSTGRES_DSN")
	}
	if cfg.RedisAddr == "" {
		log.Fatal("missing env: REDIS_ADDR")
	}

	pool, err := postgresql.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("pg: %v", err)
	}
	defer pool.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("redis: %v", err)
	}

	repo := postgresql.NewJobRepository(pool)
	queue := service.NewRedisQueue(rdb, cfg.QueueKey, cfg.ProcessingKey)
	svc := service.NewJobService(repo, queue)

	// Reaper: return jobs stuck in processing back to the queue.
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := queue.RequeueStale(ctx, 100)
				if err != nil {
					log.Printf("requeue error: %v", err)
					continue
				}
				if n > 0 {
					log.Printf("requeued %d jobs from processing", n)
				}
			}
		}
	}()

	analyzer := pipeline.Canned{Delay: cfg.AnalyzerDelay}
	processor := worker.NewProcessor(svc, analyzer, cfg.GitHubToken)
	workers := worker.NewPool(queue, processor, cfg.Workers)

	log.Printf("worker started: workers=%d redis_addr=%s queue_key=%s processing_key=%s",
		cfg.Workers, cfg.RedisAddr, cfg.QueueKey, cfg.ProcessingKey,
	)
	workers.Run(ctx)

	log.Println("worker stopped")
}
