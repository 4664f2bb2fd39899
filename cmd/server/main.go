package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/trustline/backoffice/docs"
	"github.com/trustline/backoffice/internal/config"
	"github.com/trustline/backoffice/internal/database"
	"github.com/trustline/backoffice/internal/handlers"
	mW "github.com/trustline/backoffice/internal/middleware"
	"github.com/trustline/backoffice/internal/models"
	"github.com/trustline/backoffice/internal/services"
)

// @title Trustline Back Office API
// @version 1.0
// @description Multi-tenant banking back office: accounts, ledger, payment and salary approvals
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	// Initialize config
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()
	viper.ReadInConfig()

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")
	viper.BindEnv("jwt.expiry_hours", "JWT_EXPIRY_HOURS")
	viper.BindEnv("argon2.time", "ARGON2_TIME")
	viper.BindEnv("argon2.memory", "ARGON2_MEMORY")
	viper.BindEnv("argon2.threads", "ARGON2_THREADS")
	viper.BindEnv("argon2.key_length", "ARGON2_KEY_LENGTH")
	viper.BindEnv("argon2.salt_length", "ARGON2_SALT_LENGTH")

	viper.SetDefault("jwt.expiry_hours", 24)
	viper.SetDefault("argon2.time", 1)
	viper.SetDefault("argon2.memory", 64*1024)
	viper.SetDefault("argon2.threads", 4)
	viper.SetDefault("argon2.key_length", 32)
	viper.SetDefault("argon2.salt_length", 16)

	// Initialize Swagger docs
	docs.SwaggerInfo.Host = "localhost:8080"
	docs.SwaggerInfo.BasePath = "/api/v1"

	// Initialize infrastructure
	db := database.InitDatabase()
	defer db.Close()

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	policy := config.LoadApprovalPolicy()

	// Wire services
	auditService := services.NewAuditService(db)
	notificationService := services.NewNotificationService(redisClient)
	ledgerService := services.NewTransactionService(db, auditService)
	accountService := services.NewAccountService(db, ledgerService, auditService, notificationService)
	clientService := services.NewClientService(db)
	employeeService := services.NewEmployeeService(db)
	beneficiaryService := services.NewBeneficiaryService(db)
	paymentService := services.NewPaymentService(db, ledgerService, clientService,
		beneficiaryService, auditService, notificationService, policy)
	disbursementService := services.NewDisbursementService(db, ledgerService, clientService,
		employeeService, auditService, notificationService, policy)
	dashboardService := services.NewDashboardService(db, paymentService, disbursementService, ledgerService)
	bankService := services.NewBankService(db, auditService)
	queryService := services.NewQueryService(db, auditService, notificationService)
	authService := services.NewAuthService(db, redisClient, auditService)

	// Notification delivery worker
	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	go notificationService.Run(workerCtx)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	accountHandler := handlers.NewAccountHandler(accountService, ledgerService)
	transactionHandler := handlers.NewTransactionHandler(ledgerService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	disbursementHandler := handlers.NewDisbursementHandler(disbursementService)
	clientHandler := handlers.NewClientHandler(clientService, employeeService, beneficiaryService)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)
	bankHandler := handlers.NewBankHandler(bankService)
	queryHandler := handlers.NewQueryHandler(queryService)

	// Setup router
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("http://localhost:8080/swagger/doc.json"),
	))

	authMW := mW.AuthMiddleware(authService)
	bankRoles := mW.RequireRole(models.RoleSuperAdmin, models.RoleBankUser)
	adminOnly := mW.RequireRole(models.RoleSuperAdmin)

	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints
		r.Post("/auth/login", authHandler.Login)
		r.Post("/queries", queryHandler.Create)

		// Protected endpoints
		r.Group(func(r chi.Router) {
			r.Use(authMW)

			r.Post("/auth/logout", authHandler.Logout)
			r.Get("/auth/me", authHandler.Me)
			r.Put("/auth/password", authHandler.ChangePassword)

			// Bank-side administration
			r.Group(func(r chi.Router) {
				r.Use(bankRoles)

				r.Post("/auth/register", authHandler.Register)
				r.Post("/clients", clientHandler.Create)
				r.Get("/clients", clientHandler.ListByBank)
				r.Post("/accounts", accountHandler.Create)
				r.Put("/accounts/{accountId}/status", accountHandler.UpdateStatus)
				r.Post("/accounts/{accountId}/credit", accountHandler.Credit)
				r.Post("/accounts/{accountId}/debit", accountHandler.Debit)

				r.Get("/payments/pending", paymentHandler.Pending)
				r.Post("/payments/{paymentId}/approve", paymentHandler.Approve)
				r.Post("/payments/{paymentId}/reject", paymentHandler.Reject)
				r.Get("/disbursements/pending", disbursementHandler.Pending)
				r.Post("/disbursements/{disbursementId}/approve", disbursementHandler.Approve)
				r.Post("/disbursements/{disbursementId}/reject", disbursementHandler.Reject)

				r.Get("/dashboard/bank", dashboardHandler.Bank)

				r.Get("/banks", bankHandler.List)
				r.Get("/banks/{bankId}", bankHandler.Get)
				r.Get("/banks/{bankId}/statistics", bankHandler.Statistics)

				r.Get("/queries", queryHandler.List)
				r.Get("/queries/statistics", queryHandler.Statistics)
				r.Get("/queries/{queryId}", queryHandler.Get)
				r.Post("/queries/{queryId}/respond", queryHandler.Respond)
				r.Put("/queries/{queryId}/resolve", queryHandler.Resolve)
				r.Put("/queries/{queryId}/reopen", queryHandler.Reopen)
			})

			// Platform administration
			r.Group(func(r chi.Router) {
				r.Use(adminOnly)

				r.Post("/banks", bankHandler.Create)
				r.Put("/banks/{bankId}", bankHandler.Update)
			})

			// Shared read and client-side endpoints
			r.Get("/clients/{clientId}", clientHandler.Get)
			r.Get("/clients/{clientId}/accounts", accountHandler.ListByClient)
			r.Get("/clients/{clientId}/accounts/active", clientHandler.ActiveAccount)
			r.Get("/clients/{clientId}/transactions", transactionHandler.ListByClient)
			r.Get("/clients/{clientId}/payments", paymentHandler.ListByClient)
			r.Get("/clients/{clientId}/payments/statistics", paymentHandler.Statistics)
			r.Get("/clients/{clientId}/disbursements", disbursementHandler.ListByClient)
			r.Get("/clients/{clientId}/disbursements/statistics", disbursementHandler.Statistics)
			r.Get("/clients/{clientId}/employees", clientHandler.ListEmployees)
			r.Get("/clients/{clientId}/beneficiaries", clientHandler.ListBeneficiaries)

			r.Get("/accounts/lookup", accountHandler.Lookup)
			r.Get("/accounts/{accountId}", accountHandler.Get)
			r.Get("/accounts/{accountId}/balance", accountHandler.Balance)
			r.Get("/accounts/{accountId}/statement", accountHandler.Statement)
			r.Get("/accounts/{accountId}/transactions", transactionHandler.ListByAccount)

			r.Get("/transactions/{transactionId}", transactionHandler.Get)

			r.Post("/payments", paymentHandler.Create)
			r.Get("/payments/{paymentId}", paymentHandler.Get)
			r.Get("/payments/{paymentId}/transactions", transactionHandler.ListByPayment)
			r.Get("/beneficiaries/{beneficiaryId}/payments", paymentHandler.ListByBeneficiary)
			r.Get("/disbursement-details/{detailId}/transactions", transactionHandler.ListByDetail)

			r.Post("/disbursements", disbursementHandler.Create)
			r.Get("/disbursements/{disbursementId}", disbursementHandler.Get)

			r.Post("/employees", clientHandler.CreateEmployee)
			r.Delete("/employees/{employeeId}", clientHandler.DeactivateEmployee)
			r.Post("/beneficiaries", clientHandler.CreateBeneficiary)
			r.Delete("/beneficiaries/{beneficiaryId}", clientHandler.DeactivateBeneficiary)
			r.Put("/beneficiaries/{beneficiaryId}/activate", clientHandler.ActivateBeneficiary)

			r.Get("/dashboard/client", dashboardHandler.Client)
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	stopWorker()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server stopped")
}
