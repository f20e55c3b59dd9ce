// cmd/worker/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/unclebandit/hyperdrip/internal/config"
	"github.com/unclebandit/hyperdrip/internal/db"
	"github.com/unclebandit/hyperdrip/internal/metrics"
	"github.com/unclebandit/hyperdrip/internal/queue"
	"github.com/unclebandit/hyperdrip/internal/repository"
	"github.com/unclebandit/hyperdrip/internal/worker"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, relying on OS environment variables")
	}

	cfg := config.Load()

	db.Init(cfg)
	leadRepo := &repository.LeadRepository{DB: db.DB}

	q, err := queue.NewAMQPQueue(cfg.AMQPURL)
	if err != nil {
		log.Fatalf("failed to connect to queue broker: %v", err)
	}
	defer q.Close()

	janitor := &worker.Janitor{
		Queue:     q,
		Retention: cfg.JanitorRetention,
		Timeout:   10 * time.Second,
	}

	// Mandatory startup sweep, per spec.
	janitor.Sweep(context.Background())

	// Additional daily sweep so a long-lived worker that never
	// restarts still reclaims old day-queues.
	c := cron.New()
	if _, err := c.AddFunc("@midnight", func() {
		janitor.Sweep(context.Background())
	}); err != nil {
		log.Println("⚠️ failed to schedule janitor cron job:", err)
	} else {
		c.Start()
		defer c.Stop()
	}

	w := &worker.Worker{
		LeadRepo:          leadRepo,
		Queue:             q,
		Sender:            worker.LogSender{},
		Metrics:           metrics.New(),
		PollInterval:      cfg.WorkerPollInterval,
		MessageDelay:      cfg.WorkerMessageDelay,
		VisibilityTimeout: cfg.VisibilityTimeout,
		TestMode:          cfg.TestMode,
	}

	w.Start(context.Background())
	log.Println("🚀 worker running, draining today's queue...")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Println("shutting down worker...")
	w.Stop()
}
