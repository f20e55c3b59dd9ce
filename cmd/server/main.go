// cmd/server/main.go
package main

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/unclebandit/hyperdrip/internal/capacity"
	"github.com/unclebandit/hyperdrip/internal/config"
	"github.com/unclebandit/hyperdrip/internal/db"
	"github.com/unclebandit/hyperdrip/internal/handler"
	"github.com/unclebandit/hyperdrip/internal/metrics"
	"github.com/unclebandit/hyperdrip/internal/queue"
	"github.com/unclebandit/hyperdrip/internal/repository"
	"github.com/unclebandit/hyperdrip/internal/scheduler"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, relying on OS environment variables")
	}

	cfg := config.Load()

	// Init DB
	db.Init(cfg)

	leadRepo := &repository.LeadRepository{DB: db.DB}

	q, err := queue.NewAMQPQueue(cfg.AMQPURL)
	if err != nil {
		log.Fatalf("failed to connect to queue broker: %v", err)
	}

	sched := &scheduler.Scheduler{
		LeadRepo:        leadRepo,
		Queue:           q,
		Capacity:        &capacity.Oracle{LeadRepo: leadRepo},
		Metrics:         metrics.New(),
		DailyMax:        cfg.DailyMax,
		OverflowHorizon: cfg.OverflowHorizon,
		TestMode:        cfg.TestMode,
	}

	leadHandler := &handler.LeadHandler{
		LeadRepo:  leadRepo,
		Scheduler: sched,
	}

	r := chi.NewRouter()

	// Lead admission routes
	r.Post("/leads", leadHandler.CreateLead)
	r.Get("/leads/{id}", func(w http.ResponseWriter, req *http.Request) {
		leadHandler.GetLead(w, req, chi.URLParam(req, "id"))
	})
	r.Handle("/metrics", promhttp.Handler())

	log.Println("🚀 admission server running on :" + cfg.MetricsPort)
	log.Fatal(http.ListenAndServe(":"+cfg.MetricsPort, r))
}
