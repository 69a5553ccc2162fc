package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/juandiegoalamohe-alt/localpix/internal/api"
	"github.com/juandiegoalamohe-alt/localpix/internal/api/ws"
	"github.com/juandiegoalamohe-alt/localpix/internal/closing"
	"github.com/juandiegoalamohe-alt/localpix/internal/config"
	"github.com/juandiegoalamohe-alt/localpix/internal/models"
	"github.com/juandiegoalamohe-alt/localpix/internal/observability"
	"github.com/juandiegoalamohe-alt/localpix/internal/queue"
	"github.com/juandiegoalamohe-alt/localpix/internal/search"
	"github.com/juandiegoalamohe-alt/localpix/internal/storage"
	"github.com/juandiegoalamohe-alt/localpix/internal/vision"
	"github.com/juandiegoalamohe-alt/localpix/pkg/dto"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting localpix API service", "port", cfg.Server.Port)

	// Connect to Postgres
	db, err := storage.NewPostgresStore(cfg.Database)
	if err != nil {
		slog.Error("connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(context.Background()); err != nil {
		slog.Error("migrate schema", "error", err)
		os.Exit(1)
	}

	// Connect to MinIO
	photoStore, err := storage.NewPhotoStore(cfg.MinIO)
	if err != nil {
		slog.Error("connect to minio", "error", err)
		os.Exit(1)
	}
	if err := photoStore.EnsureBucket(context.Background()); err != nil {
		slog.Warn("ensure minio bucket", "error", err)
	}

	// Connect to NATS
	producer, err := queue.NewProducer(cfg.NATS.URL)
	if err != nil {
		slog.Error("connect to nats", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	if err := producer.EnsureStreams(context.Background()); err != nil {
		slog.Warn("ensure nats streams", "error", err)
	}

	// WebSocket hub for the kiosk dashboard
	hub := ws.NewHub()
	go hub.Run()

	consumer, err := queue.NewConsumer(cfg.NATS.URL)
	if err != nil {
		slog.Error("create activity consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = consumer.ConsumeActivity(ctx, "api-activity", func(ctx context.Context, msg jetstream.Msg) error {
		var indexed models.PhotoIndexed
		if err := json.Unmarshal(msg.Data(), &indexed); err != nil {
			return err
		}
		hub.BroadcastActivity(&dto.WSActivity{
			Type:      "photo_indexed",
			PhotoID:   indexed.PhotoID,
			FaceCount: indexed.FaceCount,
			Timestamp: indexed.Timestamp.Format(time.RFC3339),
		})
		return nil
	})
	if err != nil {
		slog.Warn("start activity consumer", "error", err)
	}

	// Vision pipeline for probe extraction. Identify degrades to
	// "temporarily unavailable" when the models cannot load.
	var engine *search.Engine

	ort.SetSharedLibraryPath(onnxLibPath())
	if err := ort.InitializeEnvironment(); err != nil {
		slog.Warn("onnx runtime init failed — identify will be unavailable", "error", err)
	} else {
		pipeline, err := vision.NewPipeline(cfg.Vision)
		if err != nil {
			slog.Warn("vision pipeline init failed — identify will be unavailable", "error", err)
		} else {
			engine = search.NewEngine(cfg.Search, pipeline, db)
			defer pipeline.Close()
			defer ort.DestroyEnvironment()
			slog.Info("identification engine ready",
				"threshold", cfg.Search.Threshold, "top_k", cfg.Search.TopK)
		}
	}

	coordinator := closing.NewCoordinator(db)

	router := api.NewRouter(api.RouterConfig{
		APIKey:      cfg.Server.APIKey,
		DB:          db,
		Photos:      photoStore,
		Producer:    producer,
		Hub:         hub,
		Coordinator: coordinator,
		Engine:      engine,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("API server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down API server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("API server stopped")
}

// onnxLibPath returns the ONNX Runtime shared library path.
func onnxLibPath() string {
	switch runtime.GOOS {
	case "linux":
		return "libonnxruntime.so"
	case "darwin":
		return "libonnxruntime.dylib"
	default:
		return "onnxruntime.dll"
	}
}
