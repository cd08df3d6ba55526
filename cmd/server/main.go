package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"vatelanka-driver/internal/agent"
	"vatelanka-driver/internal/config"
	"vatelanka-driver/internal/database"
	"vatelanka-driver/internal/handlers"
	"vatelanka-driver/internal/logger"
	"vatelanka-driver/internal/middleware"
	"vatelanka-driver/internal/models"
	"vatelanka-driver/internal/services"
	"vatelanka-driver/internal/session"
	"vatelanka-driver/internal/tracking"
	"vatelanka-driver/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if err := logger.Init(cfg.Server.Environment); err != nil {
		panic(err)
	}
	defer logger.Sync()

	log := logger.Logger
	log.Info("🚀 VATELANKA DRIVER AGENT STARTING", zap.String("env", cfg.Server.Environment))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Firebase: truck documents, tickets, auth tokens and supervisor pushes
	app, err := services.NewFirebaseApp(ctx, services.FirebaseCredentials{
		Base64:    cfg.Firebase.CredentialsBase64,
		File:      cfg.Firebase.CredentialsFile,
		ProjectID: cfg.Firebase.ProjectID,
	})
	if err != nil {
		log.Fatal("❌ Firebase initialization failed", zap.Error(err))
	}
	fs, err := app.Firestore(ctx)
	if err != nil {
		log.Fatal("❌ Firestore client failed", zap.Error(err))
	}
	defer fs.Close()
	authClient, err := app.Auth(ctx)
	if err != nil {
		log.Fatal("❌ Firebase Auth client failed", zap.Error(err))
	}
	log.Info("✅ Firebase initialized")

	var fcm *services.FCMService
	if msgClient, err := app.Messaging(ctx); err != nil {
		log.Warn("⚠️  Firebase Cloud Messaging unavailable (push notifications disabled)", zap.Error(err))
	} else {
		fcm = services.NewFCMService(msgClient, logger.Named("fcm"))
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal("❌ Redis connection failed", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	}
	log.Info("✅ Redis connected", zap.String("addr", cfg.Redis.Addr))

	var journal *database.Journal
	if cfg.Database.URL != "" {
		db, err := database.Connect(cfg.Database.URL, logger.Named("db"))
		if err != nil {
			log.Fatal("❌ Database connection failed", zap.Error(err))
		}
		defer db.Close()
		if err := database.Migrate(db, logger.Named("db")); err != nil {
			log.Fatal("❌ Database migrations failed", zap.Error(err))
		}
		journal = database.NewJournal(db)
	} else {
		log.Warn("⚠️  DATABASE_URL not set, route journal and daily reports disabled")
	}

	hub := websocket.NewHub(logger.Named("ws"))
	go hub.Run(ctx)
	log.Info("✅ WebSocket hub started")

	truckStore := services.NewTruckStore(fs, logger.Named("trucks"))
	ticketService := services.NewTicketService(fs, logger.Named("tickets"))
	directory := services.NewTruckDirectory(fs, logger.Named("directory"))
	authService := services.NewAuthService(cfg.Firebase.APIKey, authClient, logger.Named("auth"))

	sessionStore := session.NewRedisStore(rdb, cfg.Session.KeyPrefix)
	restoreAuth(ctx, sessionStore, authService, log)

	loginService := session.NewLoginService(authService, directory, sessionStore, logger.Named("login"))

	managerOpts := []tracking.Option{
		tracking.WithWatchOptions(tracking.WatchOptions{
			Accuracy:         models.AccuracyBalanced,
			DistanceInterval: cfg.Location.DistanceInterval,
			TimeInterval:     cfg.Location.TimeInterval,
		}),
		tracking.WithPositionTimeout(cfg.Location.PositionTimeout),
		tracking.WithNotifiers(hub),
	}
	if fcm != nil {
		managerOpts = append(managerOpts, tracking.WithNotifiers(fcm))
	}
	if journal != nil {
		managerOpts = append(managerOpts, tracking.WithJournal(journal))
	}

	driver := agent.New(agent.Deps{
		Provider:       hub,
		Store:          truckStore,
		Trucks:         truckStore,
		Tickets:        ticketService,
		Broadcast:      hub,
		Login:          loginService,
		ManagerOptions: managerOpts,
	}, logger.Named("agent"))
	defer driver.Close()

	boot := session.NewBootstrapper(sessionStore, authService,
		session.WithBootstrapLogger(logger.Named("bootstrap")),
		session.WithStartupTimeout(cfg.Session.StartupTimeout),
	)
	boot.Subscribe(driver.OnSessionState)
	boot.Start(ctx)
	defer boot.Close()

	jwtAuth := middleware.NewJWTAuth(cfg.Server.JWTSecret, cfg.Server.TokenTTL, logger.Named("jwt"))
	handlerLog := logger.Named("http")

	// Optional collaborators stay untyped nil when absent
	var reports handlers.ReportStore
	if journal != nil {
		reports = journal
	}
	var geocoder handlers.Geocoder
	if g := services.NewGeocodingService(cfg.Maps.APIKey); g != nil {
		geocoder = g
	}
	var ticketNotifier handlers.TicketNotifier
	if fcm != nil {
		ticketNotifier = fcm
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", handlers.Health())

	// WebSocket endpoint (authentication handled in handler via query param)
	r.Get("/ws", websocket.HandleWebSocket(hub, jwtAuth))

	r.Route("/api", func(r chi.Router) {
		r.Get("/app/state", handlers.AppState(boot, driver, hub))
		r.Post("/auth/login", handlers.Login(driver, jwtAuth, handlerLog))

		r.Group(func(r chi.Router) {
			r.Use(jwtAuth.Auth)
			r.Use(middleware.RequireRole(middleware.RoleDriver))

			r.Post("/auth/logout", handlers.Logout(driver, handlerLog))

			// Route lifecycle
			r.Get("/driver/route/status", handlers.GetRouteStatus(driver))
			r.Post("/driver/route/start", handlers.StartRoute(driver, handlerLog))
			r.Post("/driver/route/pause", handlers.PauseRoute(driver, handlerLog))
			r.Post("/driver/route/resume", handlers.ResumeRoute(driver, handlerLog))
			r.Post("/driver/route/stop", handlers.StopRoute(driver, handlerLog))
			r.Post("/driver/route/refresh", handlers.RefreshRoute(driver))

			r.Get("/driver/location/current", handlers.GetCurrentLocation(driver, geocoder, handlerLog))

			// Tickets
			r.Get("/driver/tickets", handlers.ListTickets(driver, ticketService, services.NewTicketPlanner(handlerLog), handlerLog))
			r.Get("/driver/tickets/counts", handlers.TicketCounts(driver, ticketService))
			r.Get("/driver/tickets/{id}", handlers.GetTicket(driver, ticketService))
			r.Post("/driver/tickets/{id}/start", handlers.StartTicket(driver, ticketService, handlerLog))
			r.Post("/driver/tickets/{id}/complete", handlers.CompleteTicket(driver, ticketService, ticketNotifier, handlerLog))

			r.Get("/driver/daily-reports", handlers.ListDailyReports(driver, reports))
			r.Post("/driver/daily-reports", handlers.CreateDailyReport(driver, reports, handlerLog))
		})
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Info("🛑 Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("❌ Server shutdown failed", zap.Error(err))
		}
	}()

	log.Info("✅ ALL INITIALIZATION COMPLETE", zap.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("❌ Server failed to start", zap.String("port", cfg.Server.Port), zap.Error(err))
	}
}

// restoreAuth seeds the auth provider from a persisted session so the first
// auth callback does not clear it.
func restoreAuth(ctx context.Context, store session.Store, auth *services.AuthService, log *zap.Logger) {
	s, err := store.Load(ctx)
	if err != nil {
		log.Warn("⚠️  Could not read persisted session", zap.Error(err))
		return
	}
	if s == nil {
		return
	}
	auth.Restore(&models.Principal{UID: s.UID, Email: s.Email, EmailVerified: s.EmailVerified})
	log.Info("🔁 Restored driver session", zap.String("truck_id", s.Profile.TruckID))
}
