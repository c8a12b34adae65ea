package main

import (
	"net/http"
	"os"
	"strconv"

	"geophoto/api"
	"geophoto/ingest"
	"geophoto/query"
	"geophoto/storage"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	connectionString := envOr("MONGODB_CONNECTION_STRING", "mongodb://localhost:27017")
	port := envOr("PORT", "8080")
	maxUploadSize := envInt64Or("MAX_UPLOAD_SIZE", ingest.DefaultMaxSize, logger)

	mongodb := storage.NewMongoPhotoDB(logger)
	if err := mongodb.Connect(connectionString, "geophoto", "photos"); err != nil {
		logger.Fatal("failed to connect to MongoDB", zap.Error(err))
	}
	defer mongodb.Close()

	handlers := &api.PhotoHandlers{
		Store: mongodb,
		Pipeline: &ingest.Pipeline{
			Store:   mongodb,
			Log:     logger,
			MaxSize: maxUploadSize,
		},
		Query: &query.Service{
			Store: mongodb,
			Log:   logger,
		},
		Log: logger,
	}

	logger.Info("starting server", zap.String("port", port))

	if err := http.ListenAndServe(":"+port, handlers.Router()); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt64Or(key string, fallback int64, logger *zap.Logger) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		logger.Warn("ignoring invalid env value", zap.String("key", key), zap.String("value", v))
		return fallback
	}
	return n
}
