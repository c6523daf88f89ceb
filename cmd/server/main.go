package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/gofiber/contrib/otelfiber/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	_ "github.com/jackc/pgx/v5/stdlib"

	"meeting-service/internal/api"
	"meeting-service/internal/cache"
	"meeting-service/internal/events"
	"meeting-service/internal/repository"
	"meeting-service/internal/service"
	"meeting-service/internal/tracing"
	_ "meeting-service/migrations"
)

func main() {
	if err := godotenv.Load(".env.dev"); err != nil {
		fmt.Println("No .env.dev file found, reading from environment variables provided by Docker")
	}

	api.SetupGlobalHandler("meeting-service")

	shutdownTracer, err := tracing.InitTracerProvider("meeting-service")
	if err != nil {
		log.Fatalf("Failed to initialize OpenTelemetry: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.Printf("Error shutting down tracer provider: %v", err)
		}
	}()

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		handleMigrations()
		return
	}

	db := connectDB()
	defer db.Close()

	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		natsURL = "nats://localhost:4222"
	}
	eventPublisher, err := events.NewNatsPublisher(natsURL)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	log.Println("Successfully connected to NATS.")

	names := cache.NewNameCache()

	userRepo := repository.NewPostgresUserRepository(db)
	meetingRepo := repository.NewPostgresMeetingRepository(db)
	tokenRepo := repository.NewPostgresTokenRepository(db)

	authService := service.NewAuthService(userRepo, tokenRepo, eventPublisher, os.Getenv("ADMIN_EMAIL_DOMAIN"))
	meetingService := service.NewMeetingService(meetingRepo, userRepo, names, eventPublisher)
	userService := service.NewUserService(userRepo, names)

	authHandler := api.NewAuthHandler(authService)
	meetingHandler := api.NewMeetingHandler(meetingService)
	userHandler := api.NewUserHandler(authService, userService)

	app := fiber.New()
	app.Use(otelfiber.Middleware())
	app.Use(api.PrometheusMiddleware())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": "meeting-service"})
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	v1 := app.Group("/v1")

	authRoutes := v1.Group("/auth")
	authRoutes.Post("/register", authHandler.Register)
	authRoutes.Post("/login", authHandler.Login)
	authRoutes.Post("/refresh", authHandler.Refresh)
	authRoutes.Post("/logout", authHandler.Logout)
	authRoutes.Post("/reset-password", authHandler.ResetPassword)

	userRoutes := v1.Group("/users")
	userRoutes.Use(api.AuthMiddleware())
	userRoutes.Get("/me", userHandler.Me)
	userRoutes.Get("/", api.AdminMiddleware(), userHandler.ListUsers)
	userRoutes.Put("/:id/role", api.AdminMiddleware(), userHandler.ChangeRole)
	userRoutes.Delete("/:id", api.AdminMiddleware(), userHandler.DeleteUser)

	meetingRoutes := v1.Group("/meetings")
	meetingRoutes.Use(api.AuthMiddleware())
	meetingRoutes.Get("/", meetingHandler.ListMeetings)
	meetingRoutes.Post("/", meetingHandler.CreateMeeting)
	meetingRoutes.Get("/:id", meetingHandler.GetMeeting)
	meetingRoutes.Put("/:id", meetingHandler.UpdateMeeting)
	meetingRoutes.Post("/:id/cancel", meetingHandler.CancelMeeting)
	meetingRoutes.Delete("/:id", meetingHandler.DeleteMeeting)

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8001"
	}

	log.Printf("Listening meeting-service on port %s", port)
	log.Fatal(app.Listen(":" + port))
}

func connectDB() *sqlx.DB {
	db, err := sqlx.Connect("pgx", databaseURL())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("Successfully connected to the database.")
	return db
}

func handleMigrations() {
	fmt.Println("Running database migrations...")

	db, err := sql.Open("pgx", databaseURL())
	if err != nil {
		log.Fatalf("failed to connect to database for migration: %v", err)
	}
	defer db.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatalf("failed to set goose dialect: %v", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		log.Fatalf("goose: failed to run migrations: %v", err)
	}

	fmt.Println("Migrations applied successfully!")
}

func databaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_HOST"),
		os.Getenv("DB_PORT"),
		os.Getenv("DB_NAME"),
	)
}
