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

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/juandiegoalamohe-alt/localpix/internal/config"
	"github.com/juandiegoalamohe-alt/localpix/internal/ingest"
	"github.com/juandiegoalamohe-alt/localpix/internal/models"
	"github.com/juandiegoalamohe-alt/localpix/internal/observability"
	"github.com/juandiegoalamohe-alt/localpix/internal/queue"
	"github.com/juandiegoalamohe-alt/localpix/internal/storage"
	"github.com/juandiegoalamohe-alt/localpix/internal/vision"
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

	slog.Info("starting localpix ingestion worker",
		"workers", cfg.Ingest.WorkerCount,
		"queue_size", cfg.Ingest.QueueSize,
		"cpu_cores", runtime.NumCPU(),
	)

	// Initialize ONNX Runtime
	ort.SetSharedLibraryPath(onnxLibPath())
	if err := ort.InitializeEnvironment(); err != nil {
		slog.Error("init onnx runtime", "error", err)
		os.Exit(1)
	}
	defer ort.DestroyEnvironment()

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

	// Connect to NATS
	producer, err := queue.NewProducer(cfg.NATS.URL)
	if err != nil {
		slog.Error("connect to nats producer", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	if err := producer.EnsureStreams(context.Background()); err != nil {
		slog.Warn("ensure nats streams", "error", err)
	}

	// Load extraction models
	pipeline, err := vision.NewPipeline(cfg.Vision)
	if err != nil {
		slog.Error("init vision pipeline", "error", err)
		os.Exit(1)
	}
	defer pipeline.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ingestion pool; completed photos surface on the dashboard feed.
	notify := func(photoID uuid.UUID, faceCount int) {
		event := models.PhotoIndexed{
			PhotoID:   photoID,
			FaceCount: faceCount,
			Timestamp: time.Now().UTC(),
		}
		if err := producer.PublishActivity(ctx, "indexed", event); err != nil {
			slog.Warn("publish activity", "photo", photoID, "error", err)
		}
	}

	pool := ingest.NewPool(cfg.Ingest, pipeline, photoStore, db, notify)
	pool.Start(ctx)

	consumer, err := queue.NewConsumer(cfg.NATS.URL)
	if err != nil {
		slog.Error("create consumer", "error", err)
		os.Exit(1)
	}

	// Intake has its own context so it can be stopped ahead of the pool:
	// no new submissions may race the queue drain.
	consumeCtx, stopConsume := context.WithCancel(context.Background())
	defer stopConsume()

	err = consumer.ConsumePhotos(consumeCtx, "ingest-workers", func(ctx context.Context, msg jetstream.Msg) error {
		var task models.PhotoStoredTask
		if err := json.Unmarshal(msg.Data(), &task); err != nil {
			slog.Error("unmarshal photo task", "error", err)
			return nil // don't redeliver unparseable messages
		}

		// A full queue is a handler error: the message is redelivered
		// once workers catch up.
		return pool.Submit(ingest.Task{
			PhotoID:   task.PhotoID,
			ObjectKey: task.ObjectKey,
		})
	})
	if err != nil {
		slog.Error("start photo consumer", "error", err)
		os.Exit(1)
	}

	// Metrics endpoint
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		addr := fmt.Sprintf(":%d", cfg.Server.MetricsPort)
		slog.Info("worker metrics listening", "addr", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			slog.Error("metrics server error", "error", err)
		}
	}()

	// Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down worker...")
	// Stop intake first, then drain the pool. The task context stays live
	// until the queue is empty so accepted photos still get indexed.
	stopConsume()
	consumer.Close()
	pool.Close()
	cancel()
	slog.Info("worker stopped")
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
