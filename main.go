package main

import (
	"log"

	api "github.com/eliOcs/crm-backend/cmd/api"
	"github.com/eliOcs/crm-backend/internal/crm"
	crmdomain "github.com/eliOcs/crm-backend/internal/crm/domain"
	crmRepo "github.com/eliOcs/crm-backend/internal/crm/repository"
	"github.com/eliOcs/crm-backend/internal/mailbox/delivery"
	mailboxdomain "github.com/eliOcs/crm-backend/internal/mailbox/domain"
	mailboxRepo "github.com/eliOcs/crm-backend/internal/mailbox/repository"
	"github.com/eliOcs/crm-backend/internal/mailbox/scheduler"
	mailboxUsecase "github.com/eliOcs/crm-backend/internal/mailbox/usecase"
	"github.com/eliOcs/crm-backend/pkg/config"
	"github.com/eliOcs/crm-backend/pkg/database"
	"github.com/eliOcs/crm-backend/pkg/encryption"
	"github.com/eliOcs/crm-backend/pkg/graph"
	"github.com/eliOcs/crm-backend/pkg/jobs"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database schemas
	if err := db.AutoMigrate(
		&mailboxdomain.Credential{},
		&mailboxdomain.Subscription{},
		&mailboxdomain.ImportRun{},
		&mailboxdomain.Message{},
		&mailboxdomain.MessageAttachment{},
		&crmdomain.Contact{},
	); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Secret store for tokens at rest
	box, err := encryption.NewBox(cfg.EncryptionKey)
	if err != nil {
		log.Fatal("Failed to initialize encryption:", err)
	}

	// Initialize repositories (dependency injection)
	credRepo := mailboxRepo.NewCredentialRepository(db, box)
	subRepo := mailboxRepo.NewSubscriptionRepository(db)
	runRepo := mailboxRepo.NewImportRunRepository(db)
	msgRepo := mailboxRepo.NewMessageRepository(db)
	contactRepo := crmRepo.NewContactRepository(db)

	// Provider API client
	graphService := graph.NewService(cfg.MSClientID, cfg.MSClientSecret, cfg.MSTenantID)

	// Background worker pool
	pool := jobs.NewPool(cfg.ImportWorkerCount)
	pool.Start()

	// Initialize use cases
	tokenUc := mailboxUsecase.NewTokenUsecase(credRepo, graphService)
	subUc := mailboxUsecase.NewSubscriptionUsecase(subRepo, credRepo, tokenUc, graphService, cfg.BaseURL)
	importUc := mailboxUsecase.NewImportUsecase(msgRepo, credRepo, contactRepo, tokenUc, graphService, crm.LogEnricher{})
	runUc := mailboxUsecase.NewRunUsecase(runRepo, credRepo, importUc, tokenUc, graphService, pool, cfg.WatchedFolders)
	accountUc := mailboxUsecase.NewAccountUsecase(credRepo, subRepo, subUc, graphService, cfg.BaseURL, cfg.WatchedFolders)

	// Re-enqueue runs whose step chain died with the previous process
	if err := runUc.Resume(0); err != nil {
		log.Printf("Failed to resume unfinished import runs: %v", err)
	}

	// Subscription renewal sweep
	renewal := scheduler.NewRenewalScheduler(subRepo, subUc, cfg.RenewalInterval)
	renewal.Start()
	defer renewal.Stop()

	// Rescue sweep for import runs stalled by a crash or a full queue
	rescue := scheduler.NewRescueScheduler(runUc, cfg.RenewalInterval)
	rescue.Start()
	defer rescue.Stop()

	// Initialize HTTP handlers
	webhookHandler := delivery.NewWebhookHandler(subRepo, importUc, pool)
	importHandler := delivery.NewImportHandler(runUc)
	accountHandler := delivery.NewAccountHandler(accountUc)

	handler := api.NewHandler(cfg, webhookHandler, importHandler, accountHandler)

	// Start server
	log.Printf("Server starting on port %s", cfg.Port)
	if err := handler.Start(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
