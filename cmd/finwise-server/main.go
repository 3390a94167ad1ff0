package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/finwise/finwise/internal/auth/registry"
	"github.com/finwise/finwise/internal/auth/sessions"
	"github.com/finwise/finwise/internal/config"
)

// AppState holds all application services
type AppState struct {
	SessionService *sessions.SessionService
	Monitor        *sessions.Monitor
	Logger         *zap.Logger
	Config         *config.Config

	db *bun.DB
}

func main() {
	// Load configuration
	config.Load()

	// Initialize logger with config
	logger := initLogger()
	logger.Info("Configuration loaded",
		zap.String("storage", config.Storage().Type))

	// Initialize application state
	as, err := newAppState(logger)
	if err != nil {
		logger.Fatal("Failed to initialize application state", zap.Error(err))
	}

	// The monitor owns the only autonomous state transitions; its lifetime is
	// scoped to this context and released on shutdown.
	monitorCtx, stopMonitor := context.WithCancel(context.Background())
	as.Monitor.Start(monitorCtx)

	// Create HTTP server
	router := setupRouter(as)

	addr := fmt.Sprintf("%s:%d", config.Http().Host, config.Http().Port)
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Setup graceful shutdown
	done := setupSignalHandler(as, server, stopMonitor, logger)

	logger.Info("Starting Finwise session server", zap.String("address", addr))

	err = server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("Failed to start server", zap.Error(err))
	}

	<-done
	logger.Info("Server shutdown complete")
}

// newAppState creates and initializes the application state
func newAppState(logger *zap.Logger) (*AppState, error) {
	sessionCfg := config.Session()

	svcCfg := sessions.Config{
		DefaultTTL:    sessionCfg.DefaultTTL(),
		RememberMeTTL: sessionCfg.RememberMeTTL(),
		ExpiringSoon:  sessionCfg.ExpiringSoon(),
	}

	as := &AppState{
		Logger: logger,
		Config: config.Get(),
	}

	store, userRegistry, verifier, err := buildCollaborators(as, logger)
	if err != nil {
		return nil, err
	}

	as.SessionService = sessions.NewService(store, userRegistry, verifier, svcCfg, logger)
	as.Monitor = sessions.NewMonitor(as.SessionService, sessionCfg.MonitorInterval(), logger)

	return as, nil
}

// buildCollaborators selects the store backend and the signup/login
// collaborators from configuration
func buildCollaborators(as *AppState, logger *zap.Logger) (sessions.SessionStore, sessions.UserRegistry, sessions.CredentialVerifier, error) {
	storageCfg := config.Storage()

	staticRegistry := registry.NewStaticRegistry(config.Auth().ReservedEmails)

	switch storageCfg.Type {
	case "file", "":
		store := sessions.NewFileStore(storageCfg.File.Path, logger)
		return store, staticRegistry, registry.NewSynthesizingVerifier(), nil

	case "memory":
		return sessions.NewInMemoryStore(), staticRegistry, registry.NewSynthesizingVerifier(), nil

	case "postgres":
		db, err := initializeDatabase(storageCfg.Postgres.DSN(), storageCfg.Postgres.MaxOpenConnections)
		if err != nil {
			return nil, nil, nil, err
		}
		as.db = db

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		store := sessions.NewPostgresStore(db)
		if err := store.CreateSchema(ctx); err != nil {
			return nil, nil, nil, err
		}

		pgRegistry := registry.NewPostgresRegistry(db)
		if err := pgRegistry.CreateSchema(ctx); err != nil {
			return nil, nil, nil, err
		}

		// with a real user directory available, logins verify stored
		// bcrypt hashes instead of accepting anything
		return store, pgRegistry, registry.NewBcryptVerifier(pgRegistry), nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown storage type: %s", storageCfg.Type)
	}
}

func initializeDatabase(databaseURL string, maxConnections int) (*bun.DB, error) {
	if maxConnections <= 0 {
		maxConnections = 10
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(databaseURL)))
	sqldb.SetMaxOpenConns(maxConnections)
	sqldb.SetMaxIdleConns(maxConnections / 2)
	sqldb.SetConnMaxLifetime(time.Hour)

	db := bun.NewDB(sqldb, pgdialect.New())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

func initLogger() *zap.Logger {
	logConfig := config.Logger()

	var config zap.Config
	if logConfig.Format == "json" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
	}

	// Set log level
	switch logConfig.Level {
	case "debug":
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		config.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		config.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	return logger
}

func setupRouter(as *AppState) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(cors.Default())
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Health endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().Format(time.RFC3339),
			"storage":   config.Storage().Type,
		})
	})

	handlers := sessions.NewAuthHandlers(as.SessionService)
	handlers.RegisterRoutes(&router.RouterGroup)

	return router
}

func setupSignalHandler(as *AppState, server *http.Server, stopMonitor context.CancelFunc, logger *zap.Logger) chan struct{} {
	done := make(chan struct{}, 1)

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-signalCh

		logger.Info("Shutting down server...")

		// Stop the session monitor before tearing down its collaborators
		stopMonitor()

		// Create context with timeout for graceful shutdown
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Error during server shutdown", zap.Error(err))
		}

		if as.db != nil {
			if err := as.db.Close(); err != nil {
				logger.Error("Error closing database", zap.Error(err))
			}
		}

		done <- struct{}{}
	}()

	return done
}
