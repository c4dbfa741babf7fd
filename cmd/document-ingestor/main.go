package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/funcframework"
	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"
	_ "github.com/joho/godotenv/autoload"

	"github.com/Cetc2211/AcTR-app/internal/config"
	"github.com/Cetc2211/AcTR-app/internal/models"
	"github.com/Cetc2211/AcTR-app/internal/services"
)

var (
	instance *services.Runtime
	once     sync.Once
	initErr  error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(os.Getenv("LOG_LEVEL"))}))
	slog.SetDefault(logger)

	functions.HTTP("IngestDocument", ingestDocument)
	functions.CloudEvent("IngestDocumentEvent", ingestDocumentEvent)
	functions.HTTP("Metrics", serveMetrics)
}

// main starts a local server. Deployed functions are invoked by the platform
// through the registrations in init.
func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	defer func() {
		if instance != nil {
			_ = instance.Close()
		}
	}()
	if err := funcframework.Start(port); err != nil {
		slog.Error("funcframework.Start failed", "error", err)
		os.Exit(1)
	}
}

func bootstrap() error {
	once.Do(func() {
		instance, initErr = services.NewRuntime(context.Background(), config.Load())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
	}
	return initErr
}

func ingestDocument(w http.ResponseWriter, r *http.Request) {
	if err := bootstrap(); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(models.ErrorResponse{Error: "Service initialization failed"})
		return
	}
	instance.HTTP.ServeHTTP(w, r)
}

func ingestDocumentEvent(ctx context.Context, e cloudevents.Event) error {
	if err := bootstrap(); err != nil {
		return err
	}
	return instance.Events.Handle(ctx, e)
}

func serveMetrics(w http.ResponseWriter, r *http.Request) {
	if err := bootstrap(); err != nil {
		http.Error(w, "metrics unavailable", http.StatusServiceUnavailable)
		return
	}
	instance.Metrics.Handler().ServeHTTP(w, r)
}

func logLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
