package config

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config holds all environment-driven settings. Loaded once in main and
// passed down explicitly; nothing else reads os.Getenv.
type Config struct {
	Port       string
	PublicHost string

	MongoURI string
	DBName   string

	JWTSecret string

	StorageBackend string // "local" or "minio"
	UploadDir      string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
}

// Load reads .env (if present) and the process environment.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading it, using environment variables")
	}

	return Config{
		Port:           getEnv("PORT", "3000"),
		PublicHost:     getEnv("PUBLIC_HOST", "localhost"),
		MongoURI:       getEnv("MONGO_URI", "mongodb://localhost:27017/shopapi"),
		DBName:         getEnv("DB_NAME", "shopapi"),
		JWTSecret:      getEnv("JWT_SECRET", "secretkey"),
		StorageBackend: getEnv("STORAGE_BACKEND", "local"),
		UploadDir:      getEnv("UPLOAD_DIR", "./uploads"),
		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", "minioadmin"),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", "minioadmin"),
		MinioBucket:    getEnv("MINIO_BUCKET", "shopapi-uploads"),
	}
}

// PublicBaseURL is the externally reachable root used to build image URLs.
func (c Config) PublicBaseURL() string {
	return fmt.Sprintf("http://%s:%s", c.PublicHost, c.Port)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
