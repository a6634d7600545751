package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/wirebird/crm/internal"
	"github.com/wirebird/crm/internal/account"
	accountpg "github.com/wirebird/crm/internal/account/postgres"
	"github.com/wirebird/crm/internal/auth"
	authpg "github.com/wirebird/crm/internal/auth/postgres"
	"github.com/wirebird/crm/internal/core/events"
	"github.com/wirebird/crm/internal/lead"
	leadpg "github.com/wirebird/crm/internal/lead/postgres"
	"github.com/wirebird/crm/internal/notification"
	"github.com/wirebird/crm/internal/rbac"
	"github.com/wirebird/crm/internal/stage"
	"github.com/wirebird/crm/internal/transport/rest"
	"github.com/wirebird/crm/internal/user"
	userpg "github.com/wirebird/crm/internal/user/postgres"
	"github.com/wirebird/crm/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config   *internal.Config
	GormDB   *gorm.DB
	DB       *sqlx.DB
	Redis    *redis.Client
	Router   *chi.Mux
	Handlers rest.Handlers
	Guard    *rbac.RouteGuard
	Logger   *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	rest.RegisterAllRoutes(deps.Router, deps.DB.DB, deps.Redis, deps.Handlers, deps.Guard,
		deps.Config.Server.AllowedOrigins, deps.Logger)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("received signal, shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("database close error", "error", err)
		}
		if err := deps.Redis.Close(); err != nil {
			deps.Logger.Error("redis close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(os.Getenv("APP_ENV"))
	lg := logger.LoggerWrapper()

	gormDB, sqlxDB, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	redisClient, err := initRedis(config.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	eventBus := events.NewEventBus(lg)

	matrix := rbac.NewMatrix()
	guard := rbac.NewRouteGuard(lg)

	sessionStore := auth.NewRedisSessionStore(redisClient, config.Security.SessionTTL)
	tokenGenerator := auth.NewJWTTokenGenerator(
		config.Security.AccessTokenSecret,
		config.Security.RefreshTokenSecret,
		config.Security.AccessTokenDuration,
		config.Security.RefreshTokenDuration,
	)
	authService := auth.NewService(authpg.NewRepository(gormDB), tokenGenerator, sessionStore, lg, config.Security.BCryptCost)

	leadService := lead.NewService(leadpg.NewLeadRepository(gormDB), matrix, eventBus, lg)
	accountService := account.NewService(accountpg.NewAccountRepository(gormDB), matrix, lg)
	userService := user.NewService(userpg.NewUserRepository(sqlxDB), authService, matrix, lg)

	if config.SMTP.Enabled {
		notifier := notification.NewNotifier(
			notification.NewSMTPSender(config.SMTP),
			&userEmailLookup{db: sqlxDB},
			lg,
		)
		notifier.Register(eventBus)
	}

	return &Dependencies{
		Config: config,
		GormDB: gormDB,
		DB:     sqlxDB,
		Redis:  redisClient,
		Router: chi.NewRouter(),
		Handlers: rest.Handlers{
			Auth:    auth.NewHandler(authService),
			Stage:   stage.NewHandler(),
			Lead:    lead.NewHandler(leadService),
			Account: account.NewHandler(accountService),
			User:    user.NewHandler(userService),
		},
		Guard:  guard,
		Logger: lg,
	}, nil
}

// initDB opens one pgx connection pool and hands it to both gorm and
// sqlx so pool limits apply once.
func initDB(cfg internal.DatabaseConfig) (*gorm.DB, *sqlx.DB, error) {
	sqlxDB, err := sqlx.Connect("pgx", cfg.Source)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	sqlxDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlxDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlxDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlxDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: sqlxDB.DB}), &gorm.Config{})
	if err != nil {
		_ = sqlxDB.Close()
		return nil, nil, fmt.Errorf("failed to open gorm connection: %w", err)
	}

	return gormDB, sqlxDB, nil
}

func initRedis(cfg internal.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}

// userEmailLookup resolves operator emails for the notifier.
type userEmailLookup struct {
	db *sqlx.DB
}

func (l *userEmailLookup) GetEmailByID(ctx context.Context, id int64) (string, error) {
	var email string
	err := l.db.GetContext(ctx, &email, `SELECT email FROM users WHERE id = $1 AND status = 'active'`, id)
	if err != nil {
		return "", err
	}
	return email, nil
}
