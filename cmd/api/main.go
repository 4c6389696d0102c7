package main

import (
	"context"
	"os"

	"cloud.google.com/go/firestore"
	fbapp "firebase.google.com/go/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"google.golang.org/api/option"

	"roamly/internal/adapter/api"
	"roamly/internal/adapter/api/handler"
	apimiddleware "roamly/internal/adapter/api/middleware"
	"roamly/internal/adapter/api/router"
	"roamly/internal/adapter/repository"
	"roamly/internal/infrastructure/firebase"
	"roamly/internal/infrastructure/ratelimit"
	"roamly/internal/infrastructure/realtime"
	"roamly/internal/infrastructure/storage"
	"roamly/internal/usecase"
	"roamly/pkg/config"
	"roamly/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration: %v", err)
		os.Exit(1)
	}

	logger.Init(!cfg.IsProduction())
	defer logger.Sync()

	ctx := context.Background()

	var opt option.ClientOption
	if credsJSON := os.Getenv("FIREBASE_SERVICE_ACCOUNT_JSON"); credsJSON != "" {
		opt = option.WithCredentialsJSON([]byte(credsJSON))
	} else {
		opt = option.WithCredentialsFile(cfg.FirebaseCredentials)
	}

	firebaseApp, err := fbapp.NewApp(ctx, &fbapp.Config{ProjectID: cfg.FirebaseProject}, opt)
	if err != nil {
		logger.Error("Failed to initialize Firebase: %v", err)
		os.Exit(1)
	}

	fbAuth, err := firebaseApp.Auth(ctx)
	if err != nil {
		logger.Error("Failed to initialize Firebase Auth: %v", err)
		os.Exit(1)
	}

	firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProject, opt)
	if err != nil {
		logger.Error("Failed to create Firestore client: %v", err)
		os.Exit(1)
	}
	defer firestoreClient.Close()

	storageClient, err := storage.NewCloudStorageClient(ctx, cfg.StorageBucket, opt)
	if err != nil {
		logger.Error("Failed to initialize Cloud Storage: %v", err)
		os.Exit(1)
	}
	defer storageClient.Close()

	authClient := firebase.NewAuthClient(fbAuth, cfg.FirebaseAPIKey)

	userRepo := repository.NewFirestoreUserRepository(firestoreClient)
	vehicleRepo := repository.NewFirestoreVehicleRepository(firestoreClient)
	conversationRepo := repository.NewFirestoreConversationRepository(firestoreClient)

	rateLimiter := ratelimit.NewRateLimiter()
	rateLimiter.StartCleanupRoutine()

	// The channel manager is built once here and handed to everything
	// that publishes or manages groups.
	presence := realtime.NewPresenceTracker(userRepo)
	manager := realtime.NewManager(presence)

	messagingUseCase := usecase.NewMessagingUseCase(conversationRepo, userRepo, vehicleRepo, manager, rateLimiter)
	profileUseCase := usecase.NewProfileUseCase(userRepo)

	events := realtime.NewEventHandler(manager, messagingUseCase)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Validator = api.NewValidator()

	authMiddleware := apimiddleware.NewAuthMiddleware(authClient)
	rateLimitMiddleware := apimiddleware.NewRateLimitMiddleware(rateLimiter)

	handlers := router.Handlers{
		Conversation: handler.NewConversationHandler(messagingUseCase),
		Profile:      handler.NewProfileHandler(profileUseCase, presence),
		Upload:       handler.NewUploadHandler(storageClient, cfg),
		Realtime:     handler.NewRealtimeHandler(manager, events, authClient, cfg),
		DevToken:     handler.NewDevTokenHandler(authClient, userRepo),
		Health:       handler.NewHealthHandler(authClient),
	}

	router.Setup(e, handlers, authMiddleware, rateLimitMiddleware, cfg.Environment)

	logger.Info("Starting server on port %s (environment %s)", cfg.ServerPort, cfg.Environment)
	e.Logger.Fatal(e.Start(":" + cfg.ServerPort))
}
