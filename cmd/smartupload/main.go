// Command smartupload runs the Smart Upload pipeline: the HTTP health
// surface, the worker pool that claims and processes pipeline jobs, and the
// store/LLM wiring both depend on.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/artisanclarinets/smartupload/internal/api"
	"github.com/artisanclarinets/smartupload/internal/config"
	"github.com/artisanclarinets/smartupload/internal/llm"
	"github.com/artisanclarinets/smartupload/internal/llm/ratelimit"
	"github.com/artisanclarinets/smartupload/internal/pdftext"
	"github.com/artisanclarinets/smartupload/internal/pipeline"
	"github.com/artisanclarinets/smartupload/internal/pipeline/stages"
	"github.com/artisanclarinets/smartupload/internal/store"
	"github.com/artisanclarinets/smartupload/internal/store/fsblob"
	"github.com/artisanclarinets/smartupload/internal/store/memstore"
	"github.com/artisanclarinets/smartupload/internal/store/postgres"
	"github.com/artisanclarinets/smartupload/internal/worker"
)

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}

func main() {
	configDir := flag.String("config-dir", getEnv("CONFIG_DIR", "./deploy/config"), "directory containing the .env file")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("could not load .env file, continuing with existing environment", "path", envPath, "error", err)
	} else {
		slog.Info("loaded environment file", "path", envPath)
	}

	httpPort := getEnv("HTTP_PORT", "8080")
	podID := getEnv("POD_ID", "smartupload-1")
	blobRoot := getEnv("BLOB_ROOT", "./data/blobs")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	settings, batches, items, jobs, closeStore, err := openStore(ctx)
	if err != nil {
		slog.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	blobs, err := fsblob.New(blobRoot)
	if err != nil {
		slog.Error("failed to open blob store", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Initialize(ctx, settings)
	if err != nil {
		slog.Error("failed to initialize configuration", "error", err)
		os.Exit(1)
	}

	dispatcher := llm.New(&http.Client{Timeout: 2 * time.Minute}, ratelimit.New(cfg.RateLimitRPM))

	extractor := pdftext.New()
	handlers := &stages.Handlers{
		Batches:    batches,
		Blobs:      blobs,
		Dispatcher: dispatcher,
		Config:     cfg,
		Extractor:  extractor,
		Splitter:   unconfiguredSplitter{},
		Renderer:   unconfiguredRenderer{},
	}

	engine := pipeline.New(batches, items, jobs)
	stages.RegisterAll(engine, handlers)

	workerCfg := worker.DefaultConfig()
	workerCfg.WorkerCount = getEnvInt("WORKER_COUNT", workerCfg.WorkerCount)
	pool := worker.New(podID, jobs, engine, workerCfg)
	pool.Start(ctx)

	server := api.NewServer(batches, pool, "dev")
	go func() {
		slog.Info("http server listening", "port", httpPort)
		if err := server.Start(":" + httpPort); err != nil {
			slog.Error("http server stopped", "error", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown signal received, draining in-flight work")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}
	pool.Stop()
	slog.Info("shutdown complete")
}

// openStore selects the store backend via STORE_BACKEND ("postgres" or
// "memory", defaulting to postgres). The in-memory backend exists for local
// runs without a database.
func openStore(ctx context.Context) (store.SettingsStore, store.BatchStore, store.ItemStore, store.JobQueue, func(), error) {
	backend := getEnv("STORE_BACKEND", "postgres")
	switch backend {
	case "memory":
		st := memstore.New(nil)
		return st, st, st, st, func() {}, nil
	case "postgres":
		pgCfg, err := postgres.LoadConfigFromEnv()
		if err != nil {
			return nil, nil, nil, nil, nil, fmt.Errorf("load postgres config: %w", err)
		}
		st, err := postgres.NewStore(ctx, pgCfg)
		if err != nil {
			return nil, nil, nil, nil, nil, fmt.Errorf("open postgres store: %w", err)
		}
		return st, st, st, st, st.Close, nil
	default:
		return nil, nil, nil, nil, nil, fmt.Errorf("unknown STORE_BACKEND %q (want \"postgres\" or \"memory\")", backend)
	}
}

var errNotConfigured = errors.New("no real implementation wired for this deployment")

// unconfiguredSplitter and unconfiguredRenderer satisfy stages.Splitter and
// stages.PageRenderer with a clear error instead of a nil-pointer panic.
// spec.md scopes PDF splitting/rasterization as an external black-box
// service (internal/pdftext only covers text extraction and page counts);
// an operator wiring this binary for real multi-part ingestion supplies
// their own implementation here.
type unconfiguredSplitter struct{}

func (unconfiguredSplitter) Split(context.Context, []byte, []stages.SplitRange) ([]stages.SplitOutput, error) {
	return nil, fmt.Errorf("splitter: %w", errNotConfigured)
}

type unconfiguredRenderer struct{}

func (unconfiguredRenderer) RenderPages(context.Context, []byte, []int) ([][]byte, string, error) {
	return nil, "", fmt.Errorf("renderer: %w", errNotConfigured)
}

func (unconfiguredRenderer) PageCount(ctx context.Context, pdfBytes []byte) (int, error) {
	return pdftext.New().PageCount(ctx, pdfBytes)
}
