package main

import (
	"context"
	"fmt"
	"log"
	"time"

	common_api "docstream/internal/common/api"
	"docstream/internal/config"
	"docstream/internal/database"
	"docstream/internal/features/doctype"
	"docstream/internal/features/document"
	"docstream/internal/features/mapping"
	"docstream/internal/features/producer"
	"docstream/internal/logger"
	"docstream/internal/middleware"
	"docstream/internal/scheduler"
	"docstream/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// NewFiberServer creates a new Fiber app instance
func NewFiberServer() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(middleware.CORSMiddleware())

	return app
}

// AsRoute tags a constructor so Fx adds its result to the "routes" group.
func AsRoute(f any) any {
	return fx.Annotate(
		f,
		fx.As(new(common_api.Route)),
		fx.ResultTags(`group:"routes"`),
	)
}

// RegisterAllRoutes takes the "routes" group and calls Setup() on each one.
func RegisterAllRoutes(app *fiber.App, routes []common_api.Route) {
	for _, route := range routes {
		route.Setup(app)
	}
	log.Printf("Registered %d routes\n", len(routes))
}

var RegisterAllRoutesWithAnnotation = fx.Annotate(
	RegisterAllRoutes,
	fx.ParamTags(``, `group:"routes"`),
)

// StartServer creates a lifecycle hook to start Fiber in a goroutine
// and shut it down when the app exits.
func StartServer(lc fx.Lifecycle, app *fiber.App, cfg *config.Config) {
	utils.SetSecret(cfg.JWTSecret)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				port := fmt.Sprintf(":%s", cfg.Port)
				if err := app.Listen(port); err != nil {
					log.Fatalf("Server failed to start: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.Shutdown()
		},
	})
}

// InitializeIndexes ensures that necessary database indexes are created
func InitializeIndexes(lc fx.Lifecycle, doctypeRepo doctype.DoctypeRepository) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()

				if err := doctypeRepo.EnsureIndexes(ctx); err != nil {
					log.Printf("Failed to ensure doctype indexes: %v", err)
				}
			}()
			return nil
		},
	})
}

func NewClientFactory(cfg *config.Config) producer.ClientFactory {
	return producer.NewHTTPClientFactory(time.Duration(cfg.RemoteTimeout) * time.Second)
}

func main() {
	app := fx.New(
		fx.Provide(
			config.LoadConfig,
			logger.NewLogger,
			NewFiberServer,
			database.NewDatabase,
			NewClientFactory,

			doctype.NewDoctypeRepository,
			document.NewDocumentRepository,
			mapping.NewMappingRepository,
			producer.NewProducerRepository,
			producer.NewSyncLogRepository,

			doctype.NewDoctypeService,
			document.NewDocumentService,
			mapping.NewMappingService,
			producer.NewHub,
			producer.NewProducerService,
			scheduler.NewScheduler,

			// Interface adapter: the doctype service doubles as the
			// metadata introspection dependency.
			func(s doctype.DoctypeService) doctype.MetaService { return s },

			doctype.NewDoctypeController,
			mapping.NewMappingController,
			producer.NewProducerController,

			AsRoute(doctype.NewDoctypeApi),
			AsRoute(mapping.NewMappingApi),
			AsRoute(producer.NewProducerApi),
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(
			RegisterAllRoutesWithAnnotation,
			StartServer,
			func(lc fx.Lifecycle, sched *scheduler.Scheduler) {
				lc.Append(fx.Hook{
					OnStart: func(ctx context.Context) error {
						return sched.Start()
					},
					OnStop: func(ctx context.Context) error {
						sched.Stop()
						return nil
					},
				})
			},
			InitializeIndexes,
		),
	)

	app.Run()
}
