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

	"lumen/internal/cache"
	"lumen/internal/pipeline"
	"lumen/internal/recognition"
	"lumen/internal/scanner"
	"lumen/internal/source"
	"lumen/internal/timeutil"
	"lumen/internal/ws"
)

func main() {
	// Define command line flags, add any other flag required to configure
	// the service.
	var (
		listenF     = flag.String("listen", ":8080", "HTTP listen address")
		endpointF   = flag.String("endpoint", "http://localhost:9001", "Recognition service endpoint")
		modelF      = flag.String("model", "logo-v1", "Recognition model identifier")
		framesF     = flag.String("frames", "./frames", "Directory of JPEG frames to scan")
		widthF      = flag.Int("analysis-width", 320, "Width frames are downscaled to for analysis")
		motionF     = flag.Float64("motion-threshold", 0, "Minimum normalized luminance delta to admit on motion grounds")
		qualityF    = flag.Float64("quality-threshold", 0, "Minimum combined sharpness/brightness score to admit")
		intervalF   = flag.Duration("scan-interval", 0, "Minimum spacing between admitted frames")
		confidenceF = flag.Float64("confidence", 0, "Confidence floor [0-1] for detections")
		cacheTTLF   = flag.Duration("cache-ttl", 0, "Result cache entry lifetime")
		cacheMaxF   = flag.Int("cache-max", 0, "Result cache capacity")
		retriesF    = flag.Int("max-retries", -1, "Retry ceiling for retryable dispatch errors")
		disabledF   = flag.Bool("no-gating", false, "Admit every frame unconditionally")
	)
	flag.Parse()

	// Setup logger.
	logger := log.New(os.Stderr, "[lumen] ", log.Ltime)

	// Build the effective config from defaults plus flag overrides.
	overrides := &pipeline.Overrides{}
	if *motionF > 0 {
		overrides.MotionThreshold = motionF
	}
	if *qualityF > 0 {
		overrides.QualityThreshold = qualityF
	}
	if *intervalF > 0 {
		overrides.ScanInterval = intervalF
	}
	if *confidenceF > 0 {
		overrides.ConfidenceThreshold = confidenceF
	}
	if *cacheTTLF > 0 {
		overrides.CacheTTL = cacheTTLF
	}
	if *cacheMaxF > 0 {
		overrides.CacheMaxEntries = cacheMaxF
	}
	if *retriesF >= 0 {
		overrides.MaxRetries = retriesF
	}
	cfg := overrides.Merge(pipeline.DefaultConfig())

	clock := timeutil.RealClock{}

	// Frame source.
	frameSource, err := source.NewDirectorySource(*framesF, *widthF, logger)
	if err != nil {
		logger.Fatalf("failed to open frame source: %v", err)
	}

	// Admission pipeline and dispatch path.
	stats := pipeline.NewStats()
	admission := pipeline.NewAdmissionPipeline(cfg, stats, clock)
	if *disabledF {
		admission.SetEnabled(false)
	}

	client := recognition.NewClient(*endpointF, *modelF)
	resultCache := cache.NewResultCache(cfg.CacheMaxEntries, cfg.CacheTTL, clock)
	dispatcher := recognition.NewDispatcher(client, resultCache, stats, cfg, clock, logger)

	// Scan loop and live output.
	hub := ws.NewDetectionHub(logger)
	scan := scanner.New(frameSource, admission, dispatcher, cfg, clock, logger)
	scan.SetHub(hub)

	if err := scan.Start(); err != nil {
		logger.Fatalf("failed to start scanner: %v", err)
	}

	// Create channel used by both the signal handler and server goroutines
	// to notify the main goroutine when to stop.
	errc := make(chan error)

	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		errc <- fmt.Errorf("%s", <-c)
	}()

	var wg sync.WaitGroup
	ctx, cancel := context.WithCancel(context.Background())

	handleHTTPServer(ctx, *listenF, scan, admission, stats, hub, client, &wg, errc, logger)

	// Wait for signal.
	logger.Printf("exiting (%v)", <-errc)

	scan.Stop()
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		logger.Println("shutdown timed out")
	}
	logger.Println("exited")
}
