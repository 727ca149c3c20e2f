package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"goodCredAPI/handlers"
	"goodCredAPI/internal/notification"
	"goodCredAPI/middleware"
	"goodCredAPI/services"
	"goodCredAPI/utils"

	_ "net/http/pprof"
)

var (
	dbPool              *pgxpool.Pool
	ownerAddress        string
	journalService      *services.JournalService
	notificationService *services.NotificationService
	questRegistry       *services.QuestRegistryService
	scoreService        *services.ScoreService
	tokenService        *services.TokenService
	lendingService      *services.LendingService
	fcmService          *notification.FCMService
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	if os.Getenv("WALLET_JWT_SECRET") == "" {
		log.Fatal("WALLET_JWT_SECRET environment variable is not set")
	}

	ownerAddress = os.Getenv("OWNER_ADDRESS")
	if ownerAddress == "" {
		log.Fatal("OWNER_ADDRESS environment variable is not set")
	}

	// Without the secret the webhook handler would accept unsigned
	// verification callbacks, so a missing value is fatal.
	if os.Getenv("GOODID_WEBHOOK_SECRET") == "" {
		log.Fatal("GOODID_WEBHOOK_SECRET environment variable is not set")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		log.Fatal("Failed to parse database URL:", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	dbPool, err = pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Fatal("Failed to create connection pool:", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Fatal("Failed to ping database:", err)
	}

	log.Println("Successfully connected to Postgres")

	journalService = services.NewJournalService(dbPool)
	if err := journalService.EnsureSchema(ctx); err != nil {
		log.Fatal("Failed to ensure journal schema:", err)
	}

	notificationService = services.NewNotificationService(dbPool)
	if err := notificationService.EnsureSchema(ctx); err != nil {
		log.Fatal("Failed to ensure notification schema:", err)
	}

	questRegistry = services.NewQuestRegistryService(ownerAddress, journalService)
	scoreService = services.NewScoreService(ownerAddress, questRegistry, journalService, notificationService)
	tokenService = services.NewTokenService(ownerAddress, journalService)
	lendingService = services.NewLendingService(scoreService, tokenService, journalService, notificationService)

	// Rebuild the in-memory ledgers from the journal before serving.
	replayed, err := journalService.Replay(ctx, questRegistry, scoreService, tokenService, lendingService)
	if err != nil {
		log.Fatal("Failed to replay protocol journal:", err)
	}
	log.Printf("Replayed %d journal events", replayed)

	fcmService, err = notification.NewFCMService("./serviceAccountKey.json")
	if err != nil {
		log.Printf("Warning: Could not initialize FCM: %v", err)
	} else {
		notificationService.SetPushProvider(fcmService)
		log.Println("FCM Push Provider initialized successfully")
	}

	middleware.InitPrometheus()
}

func main() {
	defer func() {
		log.Println("Closing database connection pool...")
		dbPool.Close()
	}()

	questHandler := handlers.NewQuestHandler(questRegistry)
	scoreHandler := handlers.NewScoreHandler(scoreService)
	lendingHandler := handlers.NewLendingHandler(lendingService)
	tokenHandler := handlers.NewTokenHandler(tokenService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	webhookHandler := handlers.NewWebhookHandler(scoreService)
	eventsHandler := handlers.NewEventsHandler(journalService, ownerAddress)

	r := mux.NewRouter()

	go middleware.CleanupVisitors()

	r.Use(middleware.RateLimitMiddleware)
	r.Use(middleware.MonitorMiddleware)

	r.Handle("/metrics", middleware.BasicAuthMiddleware(promhttp.Handler()))
	r.PathPrefix("/debug/pprof/").Handler(middleware.PprofSecurityMiddleware(http.DefaultServeMux))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := dbPool.Ping(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "database connection failed"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "goodCred-api"}`))
	}).Methods("GET")

	r.HandleFunc("/webhooks/goodid", webhookHandler.HandleGoodIDWebhook).Methods("POST")

	// -------------------------------------------------------------------------
	// API V1 SUBROUTER
	// -------------------------------------------------------------------------
	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/quests", questHandler.GetQuests).Methods("GET")
	api.HandleFunc("/quests/{questId}", questHandler.GetQuest).Methods("GET")
	api.HandleFunc("/lending/pool", lendingHandler.GetPoolStats).Methods("GET")
	api.HandleFunc("/users/{address}/score", scoreHandler.GetUserScore).Methods("GET")
	api.HandleFunc("/users/{address}/profile", scoreHandler.GetUserProfile).Methods("GET")
	api.HandleFunc("/lending/loans/{loanId}", lendingHandler.GetLoan).Methods("GET")

	// -------------------------------------------------------------------------
	// PROTECTED ROUTES (REQUIRE WALLET SESSION)
	// -------------------------------------------------------------------------
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.WalletAuthMiddleware)

	protected.HandleFunc("/score/register", scoreHandler.Register).Methods("POST")
	protected.HandleFunc("/score", scoreHandler.GetOwnScore).Methods("GET")
	protected.HandleFunc("/score/profile", scoreHandler.GetOwnProfile).Methods("GET")
	protected.HandleFunc("/score/quests/{questId}/complete", scoreHandler.CompleteOnChainQuest).Methods("POST")
	protected.HandleFunc("/score/quests/{questId}/complete-offchain", scoreHandler.CompleteOffChainQuest).Methods("POST")

	protected.HandleFunc("/lending/deposit", lendingHandler.Deposit).Methods("POST")
	protected.HandleFunc("/lending/borrow", lendingHandler.Borrow).Methods("POST")
	protected.HandleFunc("/lending/repay", lendingHandler.Repay).Methods("POST")
	protected.HandleFunc("/lending/max-loan", lendingHandler.GetMaxLoanAmount).Methods("GET")
	protected.HandleFunc("/lending/active-loan", lendingHandler.GetActiveLoan).Methods("GET")

	protected.HandleFunc("/token/balance", tokenHandler.GetBalance).Methods("GET")
	protected.HandleFunc("/token/transfer", tokenHandler.Transfer).Methods("POST")
	protected.HandleFunc("/token/approve", tokenHandler.Approve).Methods("POST")

	protected.HandleFunc("/notifications", notificationHandler.GetNotifications).Methods("GET")
	protected.HandleFunc("/notifications/unread-count", notificationHandler.GetUnreadCount).Methods("GET")
	protected.HandleFunc("/notifications/{id}/read", notificationHandler.MarkAsRead).Methods("PUT")
	protected.HandleFunc("/notifications/read-all", notificationHandler.MarkAllAsRead).Methods("PUT")
	protected.HandleFunc("/notifications/register-device", notificationHandler.RegisterDevice).Methods("POST")

	// Owner-gated admin surface; the services enforce the owner check.
	protected.HandleFunc("/admin/quests", questHandler.CreateQuest).Methods("POST")
	protected.HandleFunc("/admin/quests/{questId}", questHandler.UpdateQuest).Methods("PUT")
	protected.HandleFunc("/admin/quests/{questId}/activate", questHandler.ActivateQuest).Methods("POST")
	protected.HandleFunc("/admin/quests/{questId}/deactivate", questHandler.DeactivateQuest).Methods("POST")
	protected.HandleFunc("/admin/verifications", scoreHandler.ConfirmVerification).Methods("POST")
	protected.HandleFunc("/admin/token/mint", tokenHandler.Mint).Methods("POST")
	protected.HandleFunc("/admin/events", eventsHandler.GetRecentEvents).Methods("GET")

	// CORS configuration
	corsHandler := gorillaHandlers.CORS(
		gorillaHandlers.AllowedOrigins([]string{"*"}),
		gorillaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorillaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-GoodID-Signature", "X-Pprof-Secret"}),
		gorillaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorillaHandlers.AllowCredentials(),
	)

	reminderCtx, reminderCancel := context.WithCancel(context.Background())
	defer reminderCancel()
	go utils.RunLoanDueReminders(reminderCtx, lendingService, notificationService, time.Hour)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3333"
	}
	port = ":" + port

	server := http.Server{
		Addr:         port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Error starting server:", err)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	sig := <-sigChan
	log.Println("Got signal:", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server shutdown complete")
}
