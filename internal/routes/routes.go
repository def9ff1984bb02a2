package routes

import (
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/simple-bank/simple_bank/internal/account"
	"github.com/simple-bank/simple_bank/internal/config"
	"github.com/simple-bank/simple_bank/internal/lock"
	"github.com/simple-bank/simple_bank/internal/middleware"
	"github.com/simple-bank/simple_bank/internal/notification"
	"github.com/simple-bank/simple_bank/internal/rates"
	"github.com/simple-bank/simple_bank/internal/validation"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
	// Rates overrides the configured HTTP rate client when set.
	Rates rates.Source
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though config also checks.
	if !d.Cfg.IsDevelopment() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	limiter, err := middleware.NewLimiter(d.Cfg.RateLimit, d.Cache)
	if err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))
	app.Use(middleware.RateLimit(limiter, d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	// Health and docs
	RegisterHealthRoutes(app, d)
	RegisterSwaggerRoutes(app, d.Cfg)

	// Services and handlers
	var accountRepo account.Repository
	if d.DB != nil {
		accountRepo = account.NewPostgresRepository(d.DB)
	} else {
		accountRepo = account.NewMemoryRepository()
	}

	var locker lock.Locker = lock.NewLocal()
	if d.Cache != nil {
		locker = lock.NewRedis(d.Cache, d.Cfg.LockTTL)
	}

	source, err := rateSource(d)
	if err != nil {
		return err
	}

	accountSvc := account.NewService(accountRepo, validation.NewRegistry(), source,
		account.WithLocker(locker),
		account.WithNotifier(notification.NewLoggerNotifier(d.Logger)),
		account.WithLogger(d.Logger),
	)
	RegisterAccountRoutes(app, account.NewHandler(accountSvc))

	return nil
}

func rateSource(d Deps) (rates.Source, error) {
	source := d.Rates
	if source == nil {
		client, err := rates.NewClient(rates.ClientConfig{
			BaseURL: d.Cfg.RatesBaseURL,
			APIKey:  d.Cfg.RatesAPIKey,
			Timeout: d.Cfg.RatesTimeout,
		}, nil)
		if err != nil {
			return nil, fmt.Errorf("rate client: %w", err)
		}
		source = client
	}
	if d.Cache != nil && d.Cfg.RatesCacheTTL > 0 {
		source = rates.NewCachedSource(source, d.Cache, d.Cfg.RatesCacheTTL, d.Logger)
	}
	return source, nil
}
