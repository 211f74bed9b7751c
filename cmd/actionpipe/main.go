package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"actionpipe/internal/auth"
	"actionpipe/internal/detection"
	"actionpipe/internal/featurecache"
	"actionpipe/internal/metrics"
	"actionpipe/internal/pipeline"
	"actionpipe/internal/server"
	"actionpipe/internal/source"
	"actionpipe/internal/ws"
)

func main() {
	var (
		addrF      = flag.String("addr", ":8080", "Control API listen address")
		endpointF  = flag.String("inference-endpoint", "localhost:50051", "Inference service gRPC endpoint")
		confF      = flag.Float64("conf-threshold", 0.4, "Object detection confidence threshold")
		cacheF     = flag.String("cache", "memory", "Feature cache backend (memory, redis, sqlite)")
		redisF     = flag.String("redis-addr", "localhost:6379", "Redis address for -cache=redis")
		sqliteF    = flag.String("sqlite-path", "features.db", "Database path for -cache=sqlite")
		modeF      = flag.String("mode", "batch", "Default prediction mode (realtime, batch)")
		framesF    = flag.Int("frame-count", 32, "Temporal model frame count")
		sampleF    = flag.Int("sample-rate", 2, "Temporal model frame sample rate")
		detectF    = flag.Int("detect-rate", 1, "Predictions per second of video time")
		replayF    = flag.String("replay", "", "Replay a JSONL track file into a stream and exit when flushed")
		streamIDF  = flag.String("stream-id", "", "Stream id for -replay (generated when empty)")
	)
	flag.Parse()

	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	m := metrics.New(registry)

	pool, err := newPool(*cacheF, *redisF, *sqliteF)
	if err != nil {
		log.Fatalf("[Main] Feature cache: %v", err)
	}
	defer pool.Close()

	detector, err := detection.NewGRPCDetector(detection.GRPCDetectorConfig{
		Endpoint:      *endpointF,
		ConfThreshold: float32(*confF),
	})
	if err != nil {
		log.Fatalf("[Main] Detector: %v", err)
	}
	defer detector.Close()

	scorer := detection.NewGRPCScorer(detector, pool, detection.GRPCScorerConfig{})
	manager := pipeline.NewManager(detector, scorer, pool, m)
	defer manager.Close()

	hub := ws.NewPredictionHub()

	defaults := pipeline.Config{
		Mode:            pipeline.Mode(*modeF),
		FrameCount:      *framesF,
		FrameSampleRate: *sampleF,
		DetectRate:      *detectF,
	}

	srv := server.New(server.Config{Addr: *addrF, StreamDefaults: defaults},
		manager, hub, auth.NewAuthenticator(), detector, registry)

	errc := make(chan error)
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		errc <- fmt.Errorf("%s", <-c)
	}()

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		server.NewBroadcaster(manager, hub, 0).Run(ctx)
	}()

	go func() {
		errc <- srv.Start()
	}()

	if *replayF != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := replay(ctx, manager, defaults, *streamIDF, *replayF); err != nil {
				errc <- err
			}
		}()
	}

	log.Printf("[Main] Exiting: %v", <-errc)
	cancel()
	if err := srv.Stop(10 * time.Second); err != nil {
		log.Printf("[Main] Shutdown: %v", err)
	}
	wg.Wait()
}

// newPool selects the feature cache backend.
func newPool(backend, redisAddr, sqlitePath string) (featurecache.Pool, error) {
	switch backend {
	case "memory":
		return featurecache.NewMemoryPool(), nil
	case "redis":
		return featurecache.NewRedisPool(redisAddr, os.Getenv("REDIS_PASSWORD"), 0, 0)
	case "sqlite":
		return featurecache.NewSQLitePool(sqlitePath)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", backend)
	}
}

// replay feeds one recorded stream through the pipeline and, in batch
// mode, triggers the deferred flush once the file is exhausted.
func replay(ctx context.Context, manager *pipeline.Manager, defaults pipeline.Config, streamID, path string) error {
	cfg := defaults
	cfg.StreamID = streamID

	id, err := manager.StartStream(cfg)
	if err != nil {
		return fmt.Errorf("start replay stream: %w", err)
	}
	worker, _ := manager.Get(id)

	src := source.NewJSONLSource(path)
	if err := src.Run(ctx, worker.AddTask); err != nil {
		return fmt.Errorf("replay %s: %w", path, err)
	}

	if worker.Mode() == pipeline.ModeBatch {
		if err := manager.Flush(id); err != nil {
			return fmt.Errorf("flush replay stream: %w", err)
		}
	}
	log.Printf("[Main] Replay of %s into stream %s complete", path, id)
	return nil
}
