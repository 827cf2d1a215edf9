package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/visionkit/go-headtrack/internal/config"
	"github.com/visionkit/go-headtrack/internal/log"
	"github.com/visionkit/go-headtrack/pkg/capture"
	"github.com/visionkit/go-headtrack/pkg/debug"
	"github.com/visionkit/go-headtrack/pkg/headtrack"
	"github.com/visionkit/go-headtrack/pkg/headtrack/detection"
	"github.com/visionkit/go-headtrack/pkg/journal"
	"github.com/visionkit/go-headtrack/pkg/web"
)

const previewInterval = 100 * time.Millisecond

func main() {
	// Command line flags
	cameraID := flag.Int("camera", config.CameraID(), "Camera device ID")
	cascade := flag.String("cascade", config.CascadePath(), "Haar cascade file for face detection")
	port := flag.String("port", config.HTTPPort(), "Dashboard HTTP port")
	journalPath := flag.String("journal", config.JournalPath(), "SQLite journal path (empty = disabled)")
	mjpegURL := flag.String("mjpeg", "", "Track a remote MJPEG websocket stream instead of a local camera")
	preset := flag.String("preset", "default", "Camera preset (default, 720p)")
	fov := flag.Float64("fov", 0, "Horizontal field of view in radians (0 = estimate)")
	noRetry := flag.Bool("no-retry", false, "Stop instead of redetecting when the lock is lost")
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	debugFrames := flag.Bool("debug-frames", false, "Enable very verbose per-frame logs")
	flag.Parse()

	level := config.LogLevel()
	if *debugFlag {
		level = "debug"
		debug.Enabled = true
	}
	debug.Frames = *debugFrames
	log.Init(level)

	presetCfg := capture.GetPreset(*preset)
	if presetCfg == nil {
		log.Error("Unknown camera preset", "preset", *preset)
		os.Exit(1)
	}
	camCfg := *presetCfg

	fmt.Println("📷 Head Tracking Controller")
	if *mjpegURL != "" {
		fmt.Printf("   Source: %s\n", *mjpegURL)
	} else {
		fmt.Printf("   Camera: %d (%dx%d)\n", *cameraID, camCfg.Width, camCfg.Height)
	}
	fmt.Printf("   Dashboard: http://localhost:%s\n", *port)
	fmt.Println()

	var src interface {
		detection.Source
		CaptureJPEG() ([]byte, error)
		Close() error
	}
	manager := capture.NewManager(camCfg)

	if *mjpegURL != "" {
		ms, err := capture.DialMJPEG(*mjpegURL, 10*time.Second)
		if err != nil {
			log.Error("Failed to connect to stream", "url", *mjpegURL, "error", err)
			os.Exit(1)
		}
		src = ms
	} else {
		dev, err := capture.Open(*cameraID, camCfg)
		if err != nil {
			log.Error("Failed to open camera", "id", *cameraID, "error", err)
			os.Exit(1)
		}
		manager.OnConfigChange = dev.Apply
		src = dev
	}
	defer src.Close()

	detCfg := detection.DefaultConfig()
	detCfg.CascadePath = *cascade

	var recorder *journal.Recorder
	if *journalPath != "" {
		db, err := journal.Open(*journalPath)
		if err != nil {
			log.Error("Failed to open journal", "path", *journalPath, "error", err)
			os.Exit(1)
		}
		defer db.Close()

		recorder, err = db.NewRecorder()
		if err != nil {
			log.Error("Failed to start journal session", "error", err)
			os.Exit(1)
		}
		defer recorder.Close()
		log.Info("Journaling session", "id", recorder.SessionID(), "path", *journalPath)
	}

	// The server reads the session and the session emits to the server,
	// so bind the sink through a closure and assign the server below.
	var server *web.Server
	sinks := []headtrack.StatusSink{headtrack.SinkFunc(func(st headtrack.Status) {
		server.Emit(st)
	})}
	if recorder != nil {
		sinks = append(sinks, recorder)
	}

	cfg := headtrack.DefaultConfig()
	cfg.Spawn = detection.Factory(src, detCfg)
	cfg.FOV = *fov
	cfg.RetryOnLoss = !*noRetry
	cfg.Sink = headtrack.MultiSink(sinks...)

	session := headtrack.New(cfg)

	server = web.NewServer(*port, session, manager)
	server.OnCaptureFrame = src.CaptureJPEG

	if err := session.Init(src); err != nil {
		log.Error("Session init failed", "error", err)
		os.Exit(1)
	}

	server.StartAsync()
	defer server.Shutdown()

	if !session.Start() {
		log.Error("Session refused to start")
		os.Exit(1)
	}

	// Preview pump: push frames to dashboard clients and poses to the journal.
	stopPump := make(chan struct{})
	go func() {
		ticker := time.NewTicker(previewInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stopPump:
				return
			case <-ticker.C:
				if frame, err := src.CaptureJPEG(); err == nil {
					server.SendCameraFrame(frame)
				}
				if recorder != nil {
					if pos, ok := session.Position(); ok {
						if err := recorder.RecordPose(pos); err != nil {
							log.Debug("Pose journal write failed", "error", err)
						}
					}
				}
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n👋 Shutting down...")
		session.Stop()
	}()

	session.Wait()
	close(stopPump)
	fmt.Println("Session ended:", session.Status())
}
