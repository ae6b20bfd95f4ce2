package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/xavierca1/ligue-engagement/internal/infra/cache"
	"github.com/xavierca1/ligue-engagement/internal/infra/database"
	"github.com/xavierca1/ligue-engagement/internal/infra/http/handlers"
	"github.com/xavierca1/ligue-engagement/internal/infra/http/middleware"
	"github.com/xavierca1/ligue-engagement/internal/infra/integration/kommo"
	"github.com/xavierca1/ligue-engagement/internal/infra/integration/whatsapp"
	"github.com/xavierca1/ligue-engagement/internal/infra/mail"
	"github.com/xavierca1/ligue-engagement/internal/infra/queue"
	"github.com/xavierca1/ligue-engagement/internal/infra/worker"
	"github.com/xavierca1/ligue-engagement/internal/usecase"
)

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	godotenv.Load()

	db, err := database.NewDBConnection(os.Getenv("DATABASE_URL"))
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	rabbitMQ, err := queue.NewRabbitMQ(
		env("RABBITMQ_USER", "user"),
		env("RABBITMQ_PASS", "password"),
		env("RABBITMQ_HOST", "localhost"),
		env("RABBITMQ_PORT", "5672"),
	)
	if err != nil {
		panic(err)
	}
	defer rabbitMQ.Conn.Close()
	defer rabbitMQ.Ch.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     env("REDIS_ADDR", "localhost:6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
	})
	defer redisClient.Close()

	// 1. Repositórios
	leadRepo := database.NewLeadRepository(db)
	eventRepo := database.NewEventRepository(db)
	transitionRepo := database.NewTransitionRepository(db)
	historyRepo := database.NewScoreHistoryRepository(db)
	rulesRepo := database.NewRulesRepository(db)
	txManager := database.NewTxManager(db)

	// 2. Cache de regras (Redis por cima do Postgres)
	rulesProvider := cache.NewRulesCache(redisClient, rulesRepo)

	// 3. Engines
	locker := usecase.NewLeadLocker()
	producer := queue.NewProducer(rabbitMQ.Conn, rabbitMQ.Ch)

	scoringEngine := usecase.NewScoringEngine(leadRepo, eventRepo, historyRepo, rulesProvider, txManager, locker)
	transitionEngine := usecase.NewTransitionEngine(leadRepo, eventRepo, transitionRepo, scoringEngine, txManager, producer, locker)
	engagementService := usecase.NewEngagementService(scoringEngine, transitionEngine, env("AUTO_PROGRESS", "true") == "true")

	// 4. Integrações de entrega (email/WhatsApp/CRM)
	crmClient := kommo.NewClient()
	mailSender := mail.NewEmailSender(os.Getenv("MAIL_HOST"), 587, os.Getenv("MAIL_USER"), os.Getenv("MAIL_PASS"))
	waClient := whatsapp.NewClient()
	stageNotifier := mail.NewStageNotifier(crmClient, mailSender, waClient)

	// 5. Workers
	ingestionWorker := queue.NewIngestionWorker(rabbitMQ.Ch, engagementService)
	go ingestionWorker.Start(queue.EventsQueue)

	notificationWorker := queue.NewNotificationWorker(rabbitMQ.Ch, crmClient, stageNotifier)
	go notificationWorker.Start(queue.NotificationsQueue)

	refreshWorker := worker.NewScoreRefreshWorker(db, scoringEngine)
	go refreshWorker.Start(context.Background())

	// 6. Handlers
	eventHandler := handlers.NewEventHandler(engagementService)
	transitionHandler := handlers.NewTransitionHandler(transitionEngine)
	rulesHandler := handlers.NewRulesHandler(rulesProvider)
	healthHandler := handlers.NewHealthHandler(db, rabbitMQ.Conn, redisClient)

	// 7. Router
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:5173", "*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
	}))

	r.Post("/leads/{leadID}/events", eventHandler.HandleRecordEvent)
	r.Get("/leads/{leadID}/score", eventHandler.HandleGetScore)
	r.Post("/leads/{leadID}/stage", transitionHandler.HandleRequestStageChange)
	r.Post("/leads/{leadID}/stage/force", transitionHandler.HandleForceStageChange)
	r.Get("/leads/{leadID}/progression", transitionHandler.HandleEvaluateProgression)
	r.Post("/leads/{leadID}/progression", transitionHandler.HandleAutoProgress)
	r.Post("/leads/progression/batch", transitionHandler.HandleBatchProgress)
	r.Get("/leads/{leadID}/transitions", transitionHandler.HandleTransitionHistory)
	r.Get("/scoring-rules/{productID}", rulesHandler.HandleGetRules)
	r.Post("/scoring-rules/{productID}/invalidate", rulesHandler.HandleInvalidate)
	r.Get("/health", healthHandler.Handle)
	r.Handle("/metrics", promhttp.Handler())

	port := ":" + env("PORT", "8080")
	log.Printf("🔥 Server Engagement rodando na porta %s", port)
	http.ListenAndServe(port, r)
}
