package main

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"

	"shopapi/internal/config"
	"shopapi/internal/db"
	"shopapi/internal/handlers"
	"shopapi/internal/middleware"
	"shopapi/internal/realtime"
	"shopapi/internal/services"
	"shopapi/internal/storage"
)

func main() {
	cfg := config.Load()

	// Base64 image payloads ride inside JSON bodies.
	app := fiber.New(fiber.Config{BodyLimit: 10 * 1024 * 1024})
	app.Use(logger.New())
	app.Use(cors.New())

	database := db.ConnectMongoDB(cfg.MongoURI, cfg.DBName)
	db.EnsureIndexes(database)

	var blobs storage.BlobStore
	if cfg.StorageBackend == "minio" {
		minioStore, err := storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket)
		if err != nil {
			log.Fatalf("storage init failed: %v", err)
		}
		blobs = minioStore
	} else {
		blobs = storage.NewLocalStore(cfg.UploadDir, cfg.PublicBaseURL())
		// Uploaded files are publicly reachable under /uploads.
		app.Static("/uploads", cfg.UploadDir)
	}

	tokens := services.NewTokenService(cfg.JWTSecret)
	userService := services.NewUserService(database, tokens, blobs, cfg.PublicBaseURL())
	productService := services.NewProductService(database, blobs)

	userHandler := handlers.NewUserHandler(userService)
	productHandler := handlers.NewProductHandler(productService)

	// User routes
	users := app.Group("/api/users")
	users.Post("/register", userHandler.Register)
	users.Post("/login", userHandler.Login)
	users.Get("/me", middleware.AuthRequired(tokens), userHandler.GetMe)
	users.Get("/", userHandler.GetAll)
	users.Get("/:id", userHandler.GetByID)
	users.Put("/:id", userHandler.Update)
	users.Delete("/:id", userHandler.Delete)
	users.Patch("/:id/block", userHandler.ToggleBlock)

	// Product routes
	products := app.Group("/api/products")
	products.Post("/", productHandler.Create)
	products.Get("/", productHandler.List)
	products.Get("/:id", productHandler.GetByID)
	products.Put("/:id", productHandler.Update)
	products.Delete("/:id", productHandler.Delete)
	products.Post("/:id/authors", productHandler.AddAuthor)
	products.Post("/:id/ratings", productHandler.AddRating)

	// Realtime channel
	channel := realtime.NewChannel(userService, tokens)
	app.Use("/ws", channel.Upgrade)
	app.Get("/ws", channel.Handler())

	log.Fatal(app.Listen(":" + cfg.Port))
}
