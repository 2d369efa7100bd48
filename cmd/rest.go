package cmd

import (
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	coreconfig "github.com/truthlens/truthlens/core/config"
	"github.com/truthlens/truthlens/pkg/cachestore"
	"github.com/truthlens/truthlens/pkg/ratelimit"
	"github.com/truthlens/truthlens/pkg/utils"
	"github.com/truthlens/truthlens/ui/rest"
	"github.com/truthlens/truthlens/ui/rest/middleware"
)

var restCmd = &cobra.Command{
	Use:   "rest",
	Short: "Serve the fact-checking API over HTTP",
	Run:   restServer,
}

func init() {
	rootCmd.AddCommand(restCmd)
}

func restServer(_ *cobra.Command, _ []string) {
	cfg := coreconfig.Global

	fiberConfig := fiber.Config{
		EnableTrustedProxyCheck: true,
		BodyLimit:               int(cfg.AI.MaxImageBytes) + 1024*1024,
		Network:                 "tcp",
		AppName:                 "TruthLens",
		DisableStartupMessage:   false,
		ServerHeader:            "Hidden",
	}
	if len(cfg.App.TrustedProxies) > 0 {
		fiberConfig.TrustedProxies = cfg.App.TrustedProxies
		fiberConfig.ProxyHeader = fiber.HeaderXForwardedHost
	}

	app := fiber.New(fiberConfig)

	app.Use(requestid.New())

	origins := strings.Join(cfg.App.CorsAllowedOrigins, ", ")
	if !strings.Contains(origins, cfg.App.BaseUrl) {
		origins += ", " + cfg.App.BaseUrl
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.Recovery())

	app.Use(helmet.New(helmet.Config{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "SAMEORIGIN",
		HSTSMaxAge:         31536000,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}))
	app.Use(limiter.New(limiter.Config{
		Max:        1000,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
	}))

	if cfg.App.Debug {
		app.Use(logger.New())
	}

	apiGroup := app.Group(cfg.App.BasePath)

	if len(cfg.App.BasicAuth) > 0 {
		account := make(map[string]string)
		for _, basicAuth := range cfg.App.BasicAuth {
			ba := strings.Split(basicAuth, ":")
			if len(ba) != 2 {
				logrus.Fatalln("Basic auth is not valid, please use the format <user>:<secret>")
			}
			account[ba[0]] = ba[1]
		}
		apiGroup.Use(authAttemptLimiter(authLimiter))
		apiGroup.Use(basicauth.New(basicauth.Config{
			Users: account,
			Next: func(c *fiber.Ctx) bool {
				return c.Method() == fiber.MethodOptions
			},
		}))
	} else {
		logrus.Warn("[REST] APP_BASIC_AUTH not set, API is unauthenticated")
	}

	// Graceful shutdown handler
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logrus.Info("[REST] Termination signal received, shutting down gracefully...")
		if err := app.Shutdown(); err != nil {
			logrus.Errorf("[REST] Error during Fiber shutdown: %v", err)
		}
		StopApp()
	}()

	rest.InitRestVerification(apiGroup, verificationUsecase, cfg.AI.MaxImageBytes)
	rest.InitRestSearch(apiGroup, searchUsecase)
	rest.InitRestHistory(apiGroup, historyUsecase)
	rest.InitRestCache(apiGroup, map[string]*cachestore.Cache{
		"text":   textCache,
		"media":  mediaCache,
		"search": searchCache,
	})
	rest.InitRestRateLimit(apiGroup, map[string]*ratelimit.Limiter{
		"verification": verificationLimiter,
		"search":       searchLimiter,
		"auth":         authLimiter,
	})
	rest.InitRestHealth(apiGroup, providerChain, valkeyClient)

	// 404 handler for unmatched API routes
	app.All("/*", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(utils.ResponseData{
			Status:  404,
			Code:    "NOT_FOUND_ERROR",
			Message: "Endpoint not found: " + c.Path(),
		})
	})

	if err := app.Listen(":" + cfg.App.Port); err != nil {
		logrus.Fatalln("Failed to start: ", err.Error())
	}
}

// authAttemptLimiter throttles credential guessing: failed logins charge
// the auth budget, and once it is exhausted further attempts are denied
// before the credentials are even checked.
func authAttemptLimiter(l *ratelimit.Limiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if decision := l.Check(); !decision.Allowed {
			return c.Status(429).JSON(utils.ResponseData{
				Status:  429,
				Code:    "RATE_LIMITED",
				Message: decision.Message,
				Results: fiber.Map{"wait_ms": decision.Wait.Milliseconds()},
			})
		}
		err := c.Next()
		if c.Response().StatusCode() == fiber.StatusUnauthorized {
			l.Record()
		}
		return err
	}
}
