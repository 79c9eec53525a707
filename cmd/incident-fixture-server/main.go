package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"incidentdesk/internal/fixture"
	"incidentdesk/internal/logger"
)

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if value := strings.TrimSpace(part); value != "" {
			out = append(out, value)
		}
	}
	return out
}

func main() {
	_ = godotenv.Load()

	closer, err := logger.Setup(logger.Config{
		Path:   envOr("LOG_FILE", "-"),
		Level:  envOr("LOG_LEVEL", "info"),
		Format: envOr("LOG_FORMAT", "text"),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "incident-fixture-server: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	catalog, err := fixture.Load(os.Getenv("FIXTURE_FILE"))
	if err != nil {
		slog.Error("load fixtures", "error", err)
		os.Exit(1)
	}

	gin.SetMode(gin.ReleaseMode)
	addr := envOr("FIXTURE_ADDR", ":7000")
	srv := &http.Server{
		Addr: addr,
		Handler: fixture.NewHandler(catalog, fixture.Options{
			AllowedOrigins: splitList(envOr("FIXTURE_ALLOWED_ORIGINS", "*")),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("fixture server listening", "addr", addr, "incidents", catalog.Len())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("fixture server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
}
