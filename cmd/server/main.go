package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/pauljones0/smart-deals-bot/internal/config"
	"github.com/pauljones0/smart-deals-bot/internal/notifier"
	"github.com/pauljones0/smart-deals-bot/internal/processor"
	"github.com/pauljones0/smart-deals-bot/internal/scheduler"
)

var rootCmd = &cobra.Command{
	Use:   "smart-deals-bot",
	Short: "Posts the best discounted deals from affiliate catalogs to a channel",
	Long: `smart-deals-bot polls Flipkart, Amazon and an optional storefront page,
picks the most heavily discounted deals nobody has seen yet and announces
them in batches on Telegram or Discord.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load .env: %w", err)
		}
		slog.SetDefault(newLogger(os.Stderr, os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT")))
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run on the poll interval and serve /health and /process-deals",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run a single collect, select and publish cycle",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOnce(cmd.Context())
	},
}

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Print the batches the next run would publish without sending or recording them",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPreview(cmd.Context(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, onceCmd, previewCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

// newLogger builds the process logger. Unknown levels fall back to info.
func newLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func runServe(ctx context.Context) error {
	slog.Info("Starting Smart Deals Bot server...")
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("critical error loading configuration: %w", err)
	}

	app, err := newApp(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer app.Close()

	sched := scheduler.New(app.processor, cfg.PollInterval, cfg.RunTimeout)
	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer sched.Stop()

	srv := &Server{runs: sched}
	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		slog.Info("Received signal, shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		}
	}()

	slog.Info("Listening on port", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to listen and serve: %w", err)
	}
	slog.Info("Server stopped.")
	return nil
}

func runOnce(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("critical error loading configuration: %w", err)
	}

	app, err := newApp(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer app.Close()

	return scheduler.New(app.processor, cfg.PollInterval, cfg.RunTimeout).RunOnce(ctx)
}

func runPreview(ctx context.Context, out io.Writer) error {
	// Nothing is sent, so publisher credentials are not required.
	if err := os.Setenv("PUBLISHER", config.PublisherLog); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("critical error loading configuration: %w", err)
	}

	app, err := newApp(ctx, cfg, notifier.NewLog(out), processor.WithDryRun())
	if err != nil {
		return err
	}
	defer app.Close()

	return scheduler.New(app.processor, cfg.PollInterval, cfg.RunTimeout).RunOnce(ctx)
}
