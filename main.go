package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"inspection-pipeline/anthropic"
	"inspection-pipeline/capture"
	"inspection-pipeline/config"
	"inspection-pipeline/database"
	"inspection-pipeline/detector"
	"inspection-pipeline/filter"
	"inspection-pipeline/handlers"
	"inspection-pipeline/logstore"
	"inspection-pipeline/metrics"
	"inspection-pipeline/rabbitmq"
	"inspection-pipeline/replay"
	"inspection-pipeline/service"
)

func main() {
	mode := flag.String("mode", "serve", "serve, capture, clean or replay")
	runID := flag.String("run", "", "run ID for clean and replay modes; in capture mode, replay this run instead of the live source")
	flag.Parse()

	cfg := config.Load()
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	store := logstore.NewStore(cfg.DataDir)

	var err error
	switch *mode {
	case "serve":
		err = runServer(cfg, store)
	case "capture":
		err = runCapture(cfg, store, *runID)
	case "clean":
		err = runClean(cfg, store, *runID)
	case "replay":
		err = runReplay(cfg, store, *runID)
	default:
		err = fmt.Errorf("unknown mode %q", *mode)
	}
	if err != nil {
		log.Fatalf("%s failed: %v", *mode, err)
	}
}

// runServer hosts the ingestion API and, when configured, the AMQP
// subscriber.
func runServer(cfg *config.Config, store *logstore.Store) error {
	if cfg.AnthropicAPIKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY environment variable is required")
	}

	metrics.Register()

	db, err := database.NewDatabase(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	if err := db.CreateTables(); err != nil {
		return err
	}

	client := anthropic.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel,
		cfg.AnalysisMaxToken, cfg.AnalysisTimeout)
	svc := service.NewService(cfg, db, store, client)
	h := handlers.NewHandlers(svc)

	router := gin.Default()
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	api := router.Group("/api")
	{
		api.GET("/health", h.HealthCheck)
		api.POST("/analyze-image", h.AnalyzeImage)
		api.POST("/process-log", h.ProcessLog)
		api.GET("/properties", h.ListProperties)
		api.GET("/properties/:id", h.GetProperty)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Optional queue-driven ingestion alongside HTTP.
	if cfg.AMQPURL != "" {
		subscriber, err := rabbitmq.NewSubscriber(cfg.AMQPURL, cfg.AMQPQueue, svc)
		if err != nil {
			return fmt.Errorf("failed to initialize rabbitmq subscriber: %w", err)
		}
		defer subscriber.Close()
		go func() {
			if err := subscriber.Start(ctx); err != nil && err != context.Canceled {
				log.Errorf("rabbitmq subscriber stopped: %v", err)
			}
		}()
	}

	go func() {
		log.Infof("starting HTTP server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	log.Info("server exited")
	return nil
}

// runCapture records one bounded capture session. An interrupt ends the
// session early; the detection log is still written. With -run set the
// session re-runs detection over the raw frames of an existing run instead
// of the live source.
func runCapture(cfg *config.Config, store *logstore.Store, replayRunID string) error {
	metrics.Register()

	var source capture.FrameSource
	var err error
	if replayRunID != "" {
		source, err = capture.NewReplaySource(store, replayRunID)
	} else {
		source, err = capture.NewVideoSource(cfg.CaptureSource, cfg.CaptureRegion)
	}
	if err != nil {
		return fmt.Errorf("failed to open capture source: %w", err)
	}
	defer source.Close()

	engine, err := detector.NewYOLO(cfg.DetectorModel, detector.DefaultLabels)
	if err != nil {
		return fmt.Errorf("failed to load detector model: %w", err)
	}
	defer engine.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	session := capture.NewSession(source, engine, store, cfg.CaptureLength, cfg.CaptureInterval)
	runID, err := session.Run(ctx)
	if err != nil {
		return fmt.Errorf("capture session failed: %w", err)
	}
	log.WithField("run_id", runID).Info("capture session complete")
	return nil
}

// runClean derives the cleaned log for one run.
func runClean(cfg *config.Config, store *logstore.Store, runID string) error {
	if runID == "" {
		return fmt.Errorf("-run is required in clean mode")
	}

	entries, err := store.ReadLog(runID)
	if err != nil {
		return err
	}
	cleaned, err := filter.Clean(entries, cfg.ConfidenceThreshold, filter.DefaultDefectClasses, store)
	if err != nil {
		return err
	}
	if err := store.WriteCleanedLog(runID, cleaned); err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"run_id":   runID,
		"frames":   len(entries),
		"survived": len(cleaned),
	}).Info("cleaned log written")
	return nil
}

// runReplay renders every annotated frame of a run under
// <data>/replays/<run>/.
func runReplay(cfg *config.Config, store *logstore.Store, runID string) error {
	if runID == "" {
		return fmt.Errorf("-run is required in replay mode")
	}

	viewer := replay.NewViewer(store)
	frames, err := viewer.Render(runID)
	if err != nil {
		return err
	}

	dir := filepath.Join(cfg.DataDir, "replays", runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create replay dir: %w", err)
	}
	for i, frame := range frames {
		data, err := replay.EncodeJPEG(frame)
		if err != nil {
			return err
		}
		name := fmt.Sprintf("frame_%06d.jpg", i+1)
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			return fmt.Errorf("failed to write replay frame: %w", err)
		}
	}
	log.WithFields(log.Fields{
		"run_id": runID,
		"frames": len(frames),
		"dir":    dir,
	}).Info("replay rendered")
	return nil
}
