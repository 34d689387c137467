// Package routes wires services to the HTTP surface under /api.
package routes

import (
	"time"

	"stase/internal/handlers"
	"stase/internal/middleware"
	"stase/internal/repositories"
	"stase/internal/services/pin"
	"stase/internal/services/reference"
	"stase/internal/services/transaction"
	"stase/internal/services/user"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/sirupsen/logrus"
)

// Dependencies are the collaborators built by main. Users may wrap
// Store.Users() with a cache; Events may be nil.
type Dependencies struct {
	Store          repositories.Store
	Users          repositories.UserRepository
	Rates          transaction.RateTable
	Events         transaction.EventPublisher
	Metrics        transaction.MetricsCollector
	Engine         transaction.Config
	PinCost        int
	IdentitySecret string
	PinRateMax     int
	PinRateWindow  time.Duration
	HealthChecks   map[string]handlers.Pinger
	Log            *logrus.Logger
}

// SetupRoutes configures all application routes.
func SetupRoutes(app *fiber.App, deps Dependencies) {
	users := deps.Users
	if users == nil {
		users = deps.Store.Users()
	}

	pins := pin.NewAuthorizer(users, deps.PinCost)
	userService := user.NewService(deps.Store, deps.Log)
	engine := transaction.NewService(transaction.Deps{
		Store:      deps.Store,
		Rates:      deps.Rates,
		References: reference.NewGenerator(),
		Pins:       pins,
		Events:     deps.Events,
		Metrics:    deps.Metrics,
		Log:        deps.Log,
	}, deps.Engine)

	authMiddleware := middleware.NewAuthMiddleware(users, deps.IdentitySecret, deps.Log)
	authHandler := handlers.NewAuthHandler(userService, pins, deps.Log)
	accountHandler := handlers.NewAccountHandler(userService)
	transactionHandler := handlers.NewTransactionHandler(engine, userService, deps.Log)
	healthHandler := handlers.NewHealthHandler(deps.HealthChecks)

	api := app.Group("/api")
	api.Get("/health", healthHandler.Check)

	pinLimiter := newPinLimiter(deps.PinRateMax, deps.PinRateWindow)

	auth := api.Group("/auth")
	auth.Post("/create-account", authMiddleware.Subject, authHandler.CreateAccount)
	auth.Post("/check-user", authHandler.CheckUser)
	auth.Post("/create-transaction-pin", authMiddleware.Handler, pinLimiter, authHandler.CreateTransactionPin)
	auth.Get("/check-transaction-pin", authMiddleware.Handler, authHandler.CheckTransactionPin)
	auth.Post("/validate-transaction-pin", authMiddleware.Handler, pinLimiter, authHandler.ValidateTransactionPin)

	account := api.Group("/account", authMiddleware.Handler)
	account.Get("/user-details", accountHandler.UserDetails)

	tx := api.Group("/transactions", authMiddleware.Handler)
	tx.Post("/deposit", pinLimiter, transactionHandler.Deposit)
	tx.Post("/withdraw", pinLimiter, transactionHandler.Withdraw)
	tx.Post("/transfer", transactionHandler.Transfer)
	tx.Post("/convert", transactionHandler.Convert)
}

// newPinLimiter bounds failed PIN-gated requests per credential.
func newPinLimiter(max int, window time.Duration) fiber.Handler {
	if max <= 0 {
		max = 5
	}
	if window <= 0 {
		window = time.Minute
	}
	return limiter.New(limiter.Config{
		Max:                    max,
		Expiration:             window,
		SkipSuccessfulRequests: true,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.Get(fiber.HeaderAuthorization) + "|" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"error":   "Too many PIN attempts. Please try again later.",
			})
		},
	})
}
